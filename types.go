package envfile

import (
	"context"
	"reflect"
	"strings"
)

// Source provides flat configuration data from a backend (process
// environment, files, explicit maps). Keys must be normalized to lowercase
// dot-separated paths (e.g., "database.host").
type Source interface {
	// Name returns a human-readable identifier (e.g., "env", "file:.env").
	Name() string

	// Load returns configuration as a flat map. Missing optional sources
	// should return an empty map. Load is a one-shot call: no partial
	// results, no streaming.
	Load(ctx context.Context) (map[string]string, error)
}

// Validator performs cross-field validation on a fully bound config.
type Validator[T any] interface {
	Validate(ctx context.Context, cfg *T) error
}

// ValidatorFunc adapts a plain function to the Validator interface.
type ValidatorFunc[T any] func(ctx context.Context, cfg *T) error

// Validate calls f.
func (f ValidatorFunc[T]) Validate(ctx context.Context, cfg *T) error {
	return f(ctx, cfg)
}

// Optional distinguishes "not set" from "zero value". An absent key decodes
// to an unset Optional; an unset Optional encodes to no key at all.
type Optional[T any] struct {
	Value T
	Set   bool
}

// Some returns an Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

// Get returns the wrapped value and whether it was set.
func (o Optional[T]) Get() (T, bool) {
	return o.Value, o.Set
}

// OrDefault returns the wrapped value or the provided default.
func (o Optional[T]) OrDefault(defaultVal T) T {
	if o.Set {
		return o.Value
	}
	return defaultVal
}

// isOptionalType reports whether t is an instantiation of Optional[T].
func isOptionalType(t reflect.Type) bool {
	if t.Kind() != reflect.Struct || t.NumField() != 2 {
		return false
	}
	if t.PkgPath() != optionalPkgPath || !strings.HasPrefix(t.Name(), "Optional[") {
		return false
	}
	return t.Field(0).Name == "Value" &&
		t.Field(1).Name == "Set" &&
		t.Field(1).Type.Kind() == reflect.Bool
}

var optionalPkgPath = reflect.TypeOf(Optional[string]{}).PkgPath()
