package envfile

// Option configures a top-level conversion using the functional options pattern.
type Option func(*config)

type config struct {
	prefix        string // Textual key prefix, e.g. "APP_"
	preserveOrder bool   // Build order-preserving maps on decode
}

// WithPrefix restricts decoding to keys starting with prefix (matched
// case-insensitively, stripped before normalization) and prepends the
// upper-cased prefix to every key on encoding.
//
//	cfg, err := envfile.FromEnv[Config](envfile.WithPrefix("APP_"))
func WithPrefix(prefix string) Option {
	return func(c *config) {
		c.prefix = prefix
	}
}

// PreserveOrder makes decoded Values retain the first-insertion order of
// their keys, so re-serialization reproduces the input ordering. Without it
// map iteration is sorted.
func PreserveOrder() Option {
	return func(c *config) {
		c.preserveOrder = true
	}
}

func applyOptions(opts []Option) config {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
