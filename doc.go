// Package envfile converts between environment-file text (KEY=VALUE lines)
// and typed Go values.
//
// Quick Start:
//
//	type Config struct {
//	    Host string `conf:"required"`
//	    Port int    `conf:"default:8080,min:1024"`
//	}
//
//	cfg, err := envfile.FromString[Config]("HOST=localhost\nPORT=9000")
//	text, err := envfile.ToString(cfg)
//
// Keys lowercase on the way in and uppercase on the way out; a double
// underscore in textual keys marks a nesting level (DATABASE__HOST binds the
// field path database.host). Use Value for schemaless round trips, or
// NewLoader to merge several sources with provenance tracking.
//
// Tag directives: name:path, prefix:path, default:val, required, min:N,
// max:N, oneof:a,b,c, secret
//
// See example_test.go and README.md for detailed usage.
package envfile
