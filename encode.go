package envfile

import (
	"encoding"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"time"

	"github.com/Azhovan/envfile/internal/normalize"
)

// Encode converts structured data into a nested Value. Each field becomes a
// scalar (primitives formatted canonically: booleans as true/false, numbers
// in decimal), a nested map (nested structs and string-keyed maps), or an
// index-suffixed sequence (slices encode as KEY_0, KEY_1, ...). Unset
// Optional fields and nil pointers are omitted entirely. Empty slices and
// empty maps also emit no keys, so the nil/empty distinction is not
// preserved across an encode/decode round trip: both decode back to nil.
//
// The resulting maps preserve field declaration order, so serializing the
// encoded Value is deterministic. A *Value passed in is returned unchanged
// (identity conversion).
func Encode(data any) (*Value, error) {
	switch v := data.(type) {
	case *Value:
		return v, nil
	case Value:
		return &v, nil
	}

	rv := reflect.ValueOf(data)
	if !rv.IsValid() {
		return nil, fmt.Errorf("envfile: Encode(nil)")
	}
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, fmt.Errorf("envfile: Encode(nil %T)", data)
		}
		rv = rv.Elem()
	}

	root := NewOrderedMap()
	switch rv.Kind() {
	case reflect.Struct:
		if err := encodeStructInto(root, rv); err != nil {
			return nil, err
		}
	case reflect.Map:
		if err := encodeMapInto(root, rv); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("envfile: cannot encode %s as an environment mapping", rv.Type())
	}
	return root, nil
}

// encodeStructInto writes each exported field of rv into m, in declaration
// order.
func encodeStructInto(m *Value, rv reflect.Value) error {
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldValue := rv.Field(i)

		if !field.IsExported() {
			continue
		}

		if field.Anonymous && field.Type.Kind() == reflect.Struct && !isOptionalType(field.Type) {
			if err := encodeStructInto(m, fieldValue); err != nil {
				return err
			}
			continue
		}

		tagCfg := parseTag(field.Tag.Get("conf"))
		if tagCfg.skip {
			continue
		}

		key := tagCfg.name
		if key == "" {
			key = normalize.FieldKey(field.Name)
		}
		structuralType := field.Type
		for structuralType.Kind() == reflect.Pointer {
			structuralType = structuralType.Elem()
		}
		if tagCfg.prefix != "" && isStructural(structuralType) {
			key = tagCfg.prefix
		}

		if isOptionalType(field.Type) {
			if !fieldValue.Field(1).Bool() {
				continue
			}
			fieldValue = fieldValue.Field(0)
		}

		if err := encodeItem(m, key, fieldValue); err != nil {
			return err
		}
	}
	return nil
}

// encodeMapInto writes the entries of a string-keyed map into m in sorted
// key order.
func encodeMapInto(m *Value, rv reflect.Value) error {
	if rv.Type().Key().Kind() != reflect.String {
		return fmt.Errorf("envfile: cannot encode map with non-string key type %s", rv.Type().Key())
	}
	keys := make([]string, 0, rv.Len())
	for _, k := range rv.MapKeys() {
		keys = append(keys, k.String())
	}
	sort.Strings(keys)
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := encodeItem(m, key, rv.MapIndex(reflect.ValueOf(key))); err != nil {
			return err
		}
	}
	return nil
}

// encodeItem writes one value under key: scalars directly, structs and maps
// as nested maps, slices as index-suffixed sibling keys. Nil pointers and
// empty containers are omitted.
func encodeItem(m *Value, key string, rv reflect.Value) error {
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}

	if rv.Type() == valueType {
		child := rv.Interface().(Value)
		if child.IsMap() && child.Len() == 0 {
			return nil
		}
		m.Insert(key, &child)
		return nil
	}

	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		for i := 0; i < rv.Len(); i++ {
			if err := encodeItem(m, indexedKey(key, i), rv.Index(i)); err != nil {
				return err
			}
		}
		return nil
	}

	if isStructural(rv.Type()) {
		child := NewOrderedMap()
		var err error
		if rv.Kind() == reflect.Struct {
			err = encodeStructInto(child, rv)
		} else {
			err = encodeMapInto(child, rv)
		}
		if err != nil {
			return err
		}
		if child.Len() > 0 {
			m.Insert(key, child)
		}
		return nil
	}

	s, err := formatScalar(rv)
	if err != nil {
		return err
	}
	m.Set(key, s)
	return nil
}

// formatScalar renders a primitive value in its canonical textual form.
func formatScalar(rv reflect.Value) (string, error) {
	if rv.CanInterface() {
		if tm, ok := rv.Interface().(encoding.TextMarshaler); ok {
			text, err := tm.MarshalText()
			if err != nil {
				return "", fmt.Errorf("envfile: marshal %s: %w", rv.Type(), err)
			}
			return string(text), nil
		}
	}

	switch rv.Kind() {
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if rv.Type() == durationType {
			return time.Duration(rv.Int()).String(), nil
		}
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'g', -1, rv.Type().Bits()), nil
	default:
		return "", fmt.Errorf("envfile: unsupported type for encoding: %s", rv.Type())
	}
}
