package envfile

import (
	"sort"
	"strings"

	"github.com/Azhovan/envfile/internal/codec"
	"github.com/Azhovan/envfile/internal/normalize"
)

// Separator joins nested key segments in the flat key space.
const Separator = "."

// FromFlat builds a nested Value from a single-level mapping by splitting
// each key on the separator and constructing nested maps per path segment.
// Keys are processed in sorted order; use fromEntries for order-sensitive
// construction. If a scalar and a nested structure collide on the same path
// the later-constructed entry wins.
func FromFlat(flat map[string]string) *Value {
	root := NewMap()
	entries := make([]codec.Entry, 0, len(flat))
	for key, value := range flat {
		entries = append(entries, codec.Entry{Key: key, Value: value})
	}
	// Sorted construction keeps scalar/map collisions deterministic.
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	for _, entry := range entries {
		insertPath(root, entry.Key, entry.Value, false)
	}
	return root
}

// ToFlat converts a nested Value into a single-level mapping whose keys are
// nested key paths joined by the separator. It fails with a FlattenError if
// the root is not a map or if a leaf position holds a map with no scalar
// representation (an empty map). If an original key contains the separator
// literal, its flattened form is indistinguishable from a nested path; the
// later-emitted entry wins. This is a documented limitation, not silently
// repaired.
func ToFlat(v *Value) (map[string]string, error) {
	entries, err := toEntries(v)
	if err != nil {
		return nil, err
	}
	flat := make(map[string]string, len(entries))
	for _, entry := range entries {
		flat[entry.Key] = entry.Value
	}
	return flat, nil
}

// fromEntries builds a Value from ordered entries, normalizing each key to a
// lowercase dot path first. Later entries overwrite earlier ones with the
// same key (standard environment-file semantics).
func fromEntries(entries []codec.Entry, ordered bool) *Value {
	var root *Value
	if ordered {
		root = NewOrderedMap()
	} else {
		root = NewMap()
	}
	for _, entry := range entries {
		insertPath(root, normalize.ToLowerDotPath(entry.Key), entry.Value, ordered)
	}
	return root
}

// insertPath walks path segments, creating intermediate maps. A scalar in an
// intermediate position is replaced by a map; a map in the final position is
// replaced by the scalar. Later wins either way.
func insertPath(root *Value, path, scalar string, ordered bool) {
	segments := strings.Split(path, Separator)
	node := root
	for _, segment := range segments[:len(segments)-1] {
		child, ok := node.Get(segment)
		if !ok || child.IsScalar() {
			if ordered {
				child = NewOrderedMap()
			} else {
				child = NewMap()
			}
			node.Insert(segment, child)
		}
		node = child
	}
	node.Set(segments[len(segments)-1], scalar)
}

// toEntries walks the value tree in iteration order (insertion order for
// ordered maps, sorted otherwise) and emits one entry per scalar leaf.
func toEntries(v *Value) ([]codec.Entry, error) {
	if v == nil || v.IsScalar() {
		return nil, &FlattenError{KeyPath: "", Message: "root value is not a map"}
	}
	var entries []codec.Entry
	if err := appendEntries(v, "", &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func appendEntries(v *Value, prefix string, entries *[]codec.Entry) error {
	for _, key := range v.Keys() {
		child, _ := v.Get(key)
		path := normalize.ApplyPrefix(prefix, key)
		if child.IsScalar() {
			*entries = append(*entries, codec.Entry{Key: path, Value: child.Scalar()})
			continue
		}
		if child.Len() == 0 {
			return &FlattenError{KeyPath: path, Message: "map leaf has no scalar representation"}
		}
		if err := appendEntries(child, path, entries); err != nil {
			return err
		}
	}
	return nil
}
