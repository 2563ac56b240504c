package envfile

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/Azhovan/envfile/internal/normalize"
)

// Loader loads configuration of type T from multiple sources. Sources are
// processed in order (later override earlier), merged into one flat key
// space, then bound and validated in a single pass. A Loader holds no state
// across Load calls; concurrent Loads are safe.
type Loader[T any] struct {
	sources       []Source
	validators    []Validator[T]
	strict        bool
	preserveOrder bool
}

// NewLoader creates a Loader with no sources and strict mode disabled.
func NewLoader[T any]() *Loader[T] {
	return &Loader[T]{}
}

// WithSource adds a source. Sources are processed in order (later override
// earlier).
func (l *Loader[T]) WithSource(src Source) *Loader[T] {
	l.sources = append(l.sources, src)
	return l
}

// WithValidator adds a cross-field validator. Validators run in order after
// binding succeeds; the first error aborts the load.
func (l *Loader[T]) WithValidator(v Validator[T]) *Loader[T] {
	l.validators = append(l.validators, v)
	return l
}

// Strict controls whether keys that match no field of T cause errors.
// Strict mode only applies when T is a struct. Default: false, because env
// sources routinely carry unrelated variables.
func (l *Loader[T]) Strict(strict bool) *Loader[T] {
	l.strict = strict
	return l
}

// PreserveOrder makes the merged value tree retain key insertion order.
func (l *Loader[T]) PreserveOrder() *Loader[T] {
	l.preserveOrder = true
	return l
}

type mergedEntry struct {
	value      string
	sourceName string
}

// Load merges, binds, and validates configuration from all sources.
// Binding and validation failures aggregate into a *DecodeError. Source
// provenance for the returned config is retrievable via GetProvenance.
func (l *Loader[T]) Load(ctx context.Context) (*T, error) {
	merged := make(map[string]mergedEntry)
	var order []string

	for _, source := range l.sources {
		data, err := source.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("envfile: load source %s: %w", source.Name(), err)
		}
		keys := make([]string, 0, len(data))
		for key := range data {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			normalized := normalize.ToLowerDotPath(key)
			if normalized == "" {
				continue
			}
			if _, seen := merged[normalized]; !seen {
				order = append(order, normalized)
			}
			merged[normalized] = mergedEntry{value: data[key], sourceName: source.Name()}
		}
	}

	cfgType := reflect.TypeOf(*new(T))
	if l.strict && cfgType.Kind() == reflect.Struct && cfgType != valueType {
		if errs := unknownKeys(merged, cfgType); len(errs) > 0 {
			return nil, &DecodeError{FieldErrors: errs}
		}
	}

	var root *Value
	if l.preserveOrder {
		root = NewOrderedMap()
	} else {
		root = NewMap()
	}
	for _, key := range order {
		insertPath(root, key, merged[key].value, l.preserveOrder)
	}

	cfg := new(T)
	if err := Decode(root, cfg); err != nil {
		return nil, err
	}

	for _, v := range l.validators {
		if err := v.Validate(ctx, cfg); err != nil {
			return nil, err
		}
	}

	storeProvenance(cfg, buildProvenance(merged, cfgType))
	return cfg, nil
}

// unknownKeys reports merged keys that no field of t can bind.
func unknownKeys(merged map[string]mergedEntry, t reflect.Type) []FieldError {
	valid := collectValidKeys(t, "")

	var errs []FieldError
	for key := range merged {
		if valid.contains(key) {
			continue
		}
		errs = append(errs, FieldError{
			FieldPath: key,
			Code:      ErrCodeUnknownKey,
			Message:   "unknown configuration key (strict mode)",
		})
	}
	sort.Slice(errs, func(i, j int) bool { return errs[i].FieldPath < errs[j].FieldPath })
	return errs
}

// validKeySet describes the key space a struct type can bind: exact keys,
// index-suffixed sequence stems, and open map prefixes.
type validKeySet struct {
	exact    map[string]bool
	sequence map[string]bool // slice fields: accepts stem_0, stem_1, ...
	open     map[string]bool // map fields: accepts any key underneath
}

var indexedTail = regexp.MustCompile(`^_\d+($|\.)`)

func (s validKeySet) contains(key string) bool {
	if s.exact[key] {
		return true
	}
	for stem := range s.sequence {
		if strings.HasPrefix(key, stem) && indexedTail.MatchString(key[len(stem):]) {
			return true
		}
	}
	for prefix := range s.open {
		if strings.HasPrefix(key, prefix+Separator) {
			return true
		}
	}
	return false
}

// collectValidKeys recursively collects the bindable key space of a struct
// type, honoring name and prefix tag overrides.
func collectValidKeys(t reflect.Type, prefix string) validKeySet {
	set := validKeySet{
		exact:    make(map[string]bool),
		sequence: make(map[string]bool),
		open:     make(map[string]bool),
	}
	collectValidKeysInto(t, prefix, &set)
	return set
}

func collectValidKeysInto(t reflect.Type, prefix string, set *validKeySet) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		tagCfg := parseTag(field.Tag.Get("conf"))
		if tagCfg.skip {
			continue
		}

		if field.Anonymous && field.Type.Kind() == reflect.Struct && !isOptionalType(field.Type) {
			collectValidKeysInto(field.Type, prefix, set)
			continue
		}

		key := tagCfg.name
		if key == "" {
			key = normalize.FieldKey(field.Name)
		}
		keyPath := normalize.ApplyPrefix(prefix, key)

		fieldType := field.Type
		if isOptionalType(fieldType) {
			fieldType = fieldType.Field(0).Type
		}
		for fieldType.Kind() == reflect.Pointer {
			fieldType = fieldType.Elem()
		}

		switch {
		case fieldType == valueType:
			set.exact[keyPath] = true
			set.open[keyPath] = true
		case fieldType.Kind() == reflect.Slice:
			set.sequence[keyPath] = true
		case fieldType.Kind() == reflect.Map:
			set.open[keyPath] = true
		case isStructural(fieldType):
			nested := keyPath
			if tagCfg.prefix != "" {
				nested = normalize.ApplyPrefix(prefix, tagCfg.prefix)
			}
			collectValidKeysInto(fieldType, nested, set)
		default:
			set.exact[keyPath] = true
		}
	}
}
