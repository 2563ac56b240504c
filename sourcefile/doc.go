// Package sourcefile loads configuration from env, YAML, JSON, or TOML files.
//
// Format is auto-detected from extension (.env, .yaml, .json, .toml).
// Nested structures flatten to dot-separated keys; sequences flatten to
// index-suffixed keys (servers_0, servers_1, ...).
//
// Example:
//
//	source := sourcefile.New(".env", sourcefile.Options{Required: true})
//	loader := envfile.NewLoader[Config]().WithSource(source)
package sourcefile
