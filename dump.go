package envfile

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"

	"github.com/Azhovan/envfile/internal/codec"
	"github.com/Azhovan/envfile/internal/normalize"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Redacted replaces secret-tagged values in dump output.
const Redacted = "***redacted***"

// DumpOption configures dump behavior using the functional options pattern.
type DumpOption func(*dumpConfig)

type dumpConfig struct {
	format      string // "env", "json", "yaml", or "toml"
	indent      string // Indentation for JSON output
	withSources bool   // Annotate env output with source attribution
}

// AsJSON outputs configuration as nested JSON instead of env text.
func AsJSON() DumpOption {
	return func(cfg *dumpConfig) {
		cfg.format = "json"
	}
}

// AsYAML outputs configuration as nested YAML instead of env text.
func AsYAML() DumpOption {
	return func(cfg *dumpConfig) {
		cfg.format = "yaml"
	}
}

// AsTOML outputs configuration as nested TOML instead of env text.
func AsTOML() DumpOption {
	return func(cfg *dumpConfig) {
		cfg.format = "toml"
	}
}

// WithIndent sets the indentation for JSON output. Default is two spaces.
func WithIndent(indent string) DumpOption {
	return func(cfg *dumpConfig) {
		cfg.indent = indent
	}
}

// WithSources annotates each env-text line with the source that supplied
// the key, when provenance is available (configs returned by Loader.Load).
func WithSources() DumpOption {
	return func(cfg *dumpConfig) {
		cfg.withSources = true
	}
}

// DumpEffective writes a human-readable representation of the effective
// configuration. Secret-tagged fields are redacted. The default format is
// env text; AsJSON, AsYAML, and AsTOML select nested structured output.
func DumpEffective[T any](w io.Writer, cfg *T, opts ...DumpOption) error {
	if cfg == nil {
		return fmt.Errorf("envfile: config is nil")
	}

	config := dumpConfig{
		format: "env",
		indent: "  ",
	}
	for _, opt := range opts {
		opt(&config)
	}

	value, err := Encode(cfg)
	if err != nil {
		return err
	}

	secrets := collectSecretKeys(reflect.TypeOf(*cfg))

	if config.format == "env" {
		return dumpAsEnv(w, cfg, value, secrets, config)
	}
	return dumpStructured(w, value, secrets, config)
}

// dumpAsEnv writes one KEY=VALUE line per leaf, with optional source
// attribution comments.
func dumpAsEnv[T any](w io.Writer, cfg *T, value *Value, secrets map[string]bool, config dumpConfig) error {
	entries, err := toEntries(value)
	if err != nil {
		return err
	}

	var sources map[string]string
	if config.withSources {
		sources = make(map[string]string)
		if prov, ok := GetProvenance(cfg); ok {
			for _, f := range prov.Fields {
				sources[f.KeyPath] = f.SourceName
			}
		}
	}

	for _, entry := range entries {
		if secrets[entry.Key] {
			entry.Value = Redacted
		}
		line := codec.Serialize([]codec.Entry{{
			Key:   normalize.ToEnvKey(entry.Key),
			Value: entry.Value,
		}})
		if src, ok := sources[entry.Key]; ok && src != "" {
			line += " # " + src
		}
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return fmt.Errorf("envfile: write error: %w", err)
		}
	}
	return nil
}

// dumpStructured renders the value tree as nested JSON, YAML, or TOML.
func dumpStructured(w io.Writer, value *Value, secrets map[string]bool, config dumpConfig) error {
	tree := valueToAny(value, "", secrets)

	var data []byte
	var err error
	switch config.format {
	case "json":
		if config.indent != "" {
			data, err = json.MarshalIndent(tree, "", config.indent)
		} else {
			data, err = json.Marshal(tree)
		}
	case "yaml":
		data, err = yaml.Marshal(tree)
	case "toml":
		data, err = toml.Marshal(tree)
	default:
		return fmt.Errorf("envfile: unsupported dump format %q", config.format)
	}
	if err != nil {
		return fmt.Errorf("envfile: marshal %s: %w", config.format, err)
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("envfile: write error: %w", err)
	}
	if len(data) > 0 && data[len(data)-1] != '\n' {
		_, err = io.WriteString(w, "\n")
	}
	return err
}

// valueToAny converts a Value tree into nested map[string]any with string
// leaves, redacting secret key paths.
func valueToAny(v *Value, path string, secrets map[string]bool) any {
	if v.IsScalar() {
		if secrets[path] {
			return Redacted
		}
		return v.Scalar()
	}
	tree := make(map[string]any, v.Len())
	for _, key := range v.Keys() {
		child, _ := v.Get(key)
		tree[key] = valueToAny(child, normalize.ApplyPrefix(path, key), secrets)
	}
	return tree
}
