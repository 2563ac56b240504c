package envfile

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Azhovan/envfile/internal/codec"
	"github.com/Azhovan/envfile/internal/normalize"
)

// FromString decodes environment-file text into a value of type T.
//
// T is typically a struct; use T = Value for the schema-less representation.
// Keys are normalized to lowercase dot paths before binding, with both "."
// and "__" accepted as nesting separators (HELLO=x binds to field Hello,
// DATABASE__HOST=x to Database.Host).
func FromString[T any](text string, opts ...Option) (*T, error) {
	cfg := applyOptions(opts)

	entries, err := parseText(text)
	if err != nil {
		return nil, err
	}
	entries = filterPrefix(entries, cfg.prefix)

	out := new(T)
	if err := Decode(fromEntries(entries, cfg.preserveOrder), out); err != nil {
		return nil, err
	}
	return out, nil
}

// ToString encodes data as environment-file text. Keys are emitted
// upper-cased with "__" joining nested levels, in field declaration order
// for structs and iteration order for Values. The output is parseable by
// FromString: values needing quoting are double-quoted and escaped.
func ToString(data any, opts ...Option) (string, error) {
	cfg := applyOptions(opts)

	value, err := Encode(data)
	if err != nil {
		return "", err
	}
	entries, err := toEntries(value)
	if err != nil {
		return "", err
	}

	textual := make([]codec.Entry, len(entries))
	prefix := strings.ToUpper(cfg.prefix)
	for i, entry := range entries {
		textual[i] = codec.Entry{
			Key:   prefix + normalize.ToEnvKey(entry.Key),
			Value: entry.Value,
		}
	}
	return codec.Serialize(textual), nil
}

// FromFile reads path and decodes its contents like FromString. The read is
// delegated to the file system; I/O errors are propagated unretried.
func FromFile[T any](path string, opts ...Option) (*T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("envfile: read %s: %w", path, err)
	}
	return FromString[T](string(data), opts...)
}

// FromReader reads r to completion and decodes the contents like FromString.
func FromReader[T any](r io.Reader, opts ...Option) (*T, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("envfile: read: %w", err)
	}
	return FromString[T](string(data), opts...)
}

// ToFile encodes data like ToString and writes it to path with a trailing
// newline. Environment files routinely hold credentials, so the file is
// created with 0600 permissions.
func ToFile(path string, data any, opts ...Option) error {
	text, err := ToString(data, opts...)
	if err != nil {
		return err
	}
	if text != "" {
		text += "\n"
	}
	if err := os.WriteFile(path, []byte(text), 0600); err != nil {
		return fmt.Errorf("envfile: write %s: %w", path, err)
	}
	return nil
}

// FromEnv decodes the current process environment into a value of type T.
// The environment is read once as an immutable snapshot; combine with
// WithPrefix to scope to application variables.
func FromEnv[T any](opts ...Option) (*T, error) {
	cfg := applyOptions(opts)

	environ := os.Environ()
	entries := make([]codec.Entry, 0, len(environ))
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			continue
		}
		entries = append(entries, codec.Entry{Key: key, Value: value})
	}
	entries = filterPrefix(entries, cfg.prefix)

	out := new(T)
	if err := Decode(fromEntries(entries, cfg.preserveOrder), out); err != nil {
		return nil, err
	}
	return out, nil
}

// parseText runs the text codec and converts its errors to ParseError.
func parseText(text string) ([]codec.Entry, error) {
	entries, err := codec.Parse(text)
	if err != nil {
		if cerr, ok := err.(*codec.Error); ok {
			return nil, &ParseError{Line: cerr.Line, Kind: cerr.Kind, Message: cerr.Message}
		}
		return nil, err
	}
	return entries, nil
}

// filterPrefix keeps only entries whose key starts with prefix
// (case-insensitive) and strips the prefix.
func filterPrefix(entries []codec.Entry, prefix string) []codec.Entry {
	if prefix == "" {
		return entries
	}
	upper := strings.ToUpper(prefix)
	filtered := entries[:0]
	for _, entry := range entries {
		if !strings.HasPrefix(strings.ToUpper(entry.Key), upper) {
			continue
		}
		key := entry.Key[len(prefix):]
		if key == "" {
			continue
		}
		filtered = append(filtered, codec.Entry{Key: key, Value: entry.Value})
	}
	return filtered
}
