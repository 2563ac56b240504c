package envfile

import (
	"sort"
)

// Value is a schema-less representation of environment-file data.
// A Value is either a scalar (a leaf string) or a map of string keys to
// nested Values. Numeric and boolean literals are kept as strings; coercion
// into Go types happens only in the typed binding layer.
//
// Maps come in two flavors, chosen at construction time:
//   - NewMap: key order is not retained; iteration is sorted for determinism.
//   - NewOrderedMap: first-insertion order is retained and observable on
//     serialization.
type Value struct {
	scalar  string
	entries map[string]*Value
	order   []string
	ordered bool
}

// String returns a scalar Value holding s.
func String(s string) *Value {
	return &Value{scalar: s}
}

// NewMap returns an empty map Value without order preservation.
// Iteration order is sorted by key.
func NewMap() *Value {
	return &Value{entries: make(map[string]*Value)}
}

// NewOrderedMap returns an empty map Value that retains first-insertion
// order of its keys.
func NewOrderedMap() *Value {
	return &Value{entries: make(map[string]*Value), ordered: true}
}

// New returns an empty map Value. It is shorthand for NewMap and exists for
// symmetry with the typical Value workflow:
//
//	v := envfile.New()
//	v.Set("hello", "world")
//	text, err := envfile.ToString(v)
func New() *Value {
	return NewMap()
}

// IsScalar reports whether v is a scalar (leaf) value.
func (v *Value) IsScalar() bool {
	return v.entries == nil
}

// IsMap reports whether v is a map value.
func (v *Value) IsMap() bool {
	return v.entries != nil
}

// Ordered reports whether v is a map that preserves insertion order.
func (v *Value) Ordered() bool {
	return v.ordered
}

// Scalar returns the scalar string held by v. It returns "" for map values;
// use IsScalar to distinguish an empty scalar from a map.
func (v *Value) Scalar() string {
	return v.scalar
}

// Insert adds or replaces a nested Value under key. Empty keys are ignored:
// a map never contains the empty key. Replacing an existing key keeps its
// original position in ordered maps. Insert is a no-op on scalar values.
func (v *Value) Insert(key string, val *Value) {
	if v.entries == nil || key == "" || val == nil {
		return
	}
	if _, exists := v.entries[key]; !exists {
		v.order = append(v.order, key)
	}
	v.entries[key] = val
}

// Set inserts a scalar string under key. Shorthand for Insert(key, String(s)).
func (v *Value) Set(key, s string) {
	v.Insert(key, String(s))
}

// Get returns the nested Value for key and whether it is present.
// Get on a scalar value returns (nil, false).
func (v *Value) Get(key string) (*Value, bool) {
	if v.entries == nil {
		return nil, false
	}
	val, ok := v.entries[key]
	return val, ok
}

// GetString returns the scalar string stored under key. It returns ("", false)
// if the key is absent or holds a nested map.
func (v *Value) GetString(key string) (string, bool) {
	val, ok := v.Get(key)
	if !ok || !val.IsScalar() {
		return "", false
	}
	return val.scalar, true
}

// Delete removes key from a map value.
func (v *Value) Delete(key string) {
	if v.entries == nil {
		return
	}
	if _, ok := v.entries[key]; !ok {
		return
	}
	delete(v.entries, key)
	for i, k := range v.order {
		if k == key {
			v.order = append(v.order[:i], v.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of keys in a map value, or 0 for scalars.
func (v *Value) Len() int {
	return len(v.entries)
}

// Keys returns the keys of a map value: in first-insertion order for ordered
// maps, sorted otherwise. Callers must not rely on unordered iteration order
// beyond it being deterministic.
func (v *Value) Keys() []string {
	if v.entries == nil {
		return nil
	}
	keys := make([]string, len(v.order))
	copy(keys, v.order)
	if !v.ordered {
		sort.Strings(keys)
	}
	return keys
}

// Equal reports whether v and other hold the same data. Scalars compare by
// exact string equality; maps compare by key set and nested equality,
// independent of insertion order and ordering mode.
func (v *Value) Equal(other *Value) bool {
	if v == nil || other == nil {
		return v == other
	}
	if v.IsScalar() != other.IsScalar() {
		return false
	}
	if v.IsScalar() {
		return v.scalar == other.scalar
	}
	if len(v.entries) != len(other.entries) {
		return false
	}
	for key, val := range v.entries {
		otherVal, ok := other.entries[key]
		if !ok || !val.Equal(otherVal) {
			return false
		}
	}
	return true
}
