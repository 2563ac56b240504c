package envfile

import (
	"encoding"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/Azhovan/envfile/internal/normalize"
)

// Decode binds a nested Value into the value pointed to by out.
//
// out may be a pointer to a struct (field-by-field coercion driven by field
// names and `conf` tags), a pointer to a map[string]T, or a *Value / **Value
// for the schema-less identity conversion that bypasses coercion entirely.
//
// Decode returns a *DecodeError aggregating every field that failed: missing
// required keys, scalars that cannot be coerced to the field's type, and
// structural mismatches (a scalar where a map was expected, or vice versa).
// Each FieldError carries the offending key path.
func Decode(value *Value, out any) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("envfile: Decode(non-pointer or nil %T)", out)
	}

	// Schema-less targets take the value tree as-is.
	switch target := out.(type) {
	case *Value:
		*target = *value
		return nil
	case **Value:
		*target = value
		return nil
	}

	elem := rv.Elem()
	for elem.Kind() == reflect.Pointer {
		if elem.IsNil() {
			elem.Set(reflect.New(elem.Type().Elem()))
		}
		elem = elem.Elem()
	}

	d := &decoder{}
	switch elem.Kind() {
	case reflect.Struct:
		d.bindStruct(value, elem, "")
		d.errs = append(d.errs, validateStruct(elem)...)
	case reflect.Map:
		d.bindMap(value, elem, "")
	default:
		return fmt.Errorf("envfile: cannot decode into %s", elem.Type())
	}

	if len(d.errs) > 0 {
		return &DecodeError{FieldErrors: d.errs}
	}
	return nil
}

type decoder struct {
	errs []FieldError
}

func (d *decoder) fail(path, code, format string, args ...any) {
	d.errs = append(d.errs, FieldError{
		FieldPath: path,
		Code:      code,
		Message:   fmt.Sprintf(format, args...),
	})
}

// bindStruct maps the keys of v onto the fields of rv. A nil v binds as an
// empty map so that defaults apply and required fields are reported.
func (d *decoder) bindStruct(v *Value, rv reflect.Value, path string) {
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldValue := rv.Field(i)

		if !field.IsExported() {
			continue
		}

		if field.Anonymous && field.Type.Kind() == reflect.Struct && !isOptionalType(field.Type) {
			// Embedded structs bind inline against the same map.
			d.bindStruct(v, fieldValue, path)
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
		fieldPath := normalize.ApplyPrefix(path, key)

		d.bindField(v, fieldValue, field.Type, key, fieldPath, tagCfg)
	}
}

// bindField binds a single struct field from the map entry under key.
func (d *decoder) bindField(v *Value, fieldValue reflect.Value, fieldType reflect.Type, key, fieldPath string, tagCfg tagConfig) {
	// Value fields capture the subtree as-is, bypassing coercion.
	if fieldType == valueType {
		if child := childOf(v, key); child != nil {
			fieldValue.Set(reflect.ValueOf(*child))
		}
		return
	}

	// Optional[T]: absent key stays unset, no error and no default. Index-
	// suffixed siblings (key_0, key_1, ...) count as presence for sequence
	// inner types, same as the pointer branch below.
	if isOptionalType(fieldType) {
		child := childOf(v, key)
		if child == nil && !hasIndexedKeys(v, key) {
			return
		}
		d.bindValue(child, v, fieldValue.Field(0), key, fieldPath)
		fieldValue.Field(1).SetBool(true)
		return
	}

	// Pointer fields are the other "no value" representation.
	if fieldType.Kind() == reflect.Pointer {
		child := childOf(v, key)
		if child == nil && !hasIndexedKeys(v, key) && !tagCfg.hasDefault {
			return
		}
		if fieldValue.IsNil() {
			fieldValue.Set(reflect.New(fieldType.Elem()))
		}
		d.bindField(v, fieldValue.Elem(), fieldType.Elem(), key, fieldPath, tagCfg)
		return
	}

	if fieldType.Kind() == reflect.Slice {
		d.bindSlice(v, fieldValue, key, fieldPath)
		return
	}

	if isStructural(fieldType) {
		nestedKey := key
		if tagCfg.prefix != "" {
			nestedKey = tagCfg.prefix
		}
		child := childOf(v, nestedKey)
		if child != nil && child.IsScalar() {
			d.fail(fieldPath, ErrCodeStructure, "expected nested keys under %q, found scalar %q", nestedKey, child.Scalar())
			return
		}
		nestedPath := fieldPath
		if tagCfg.prefix != "" {
			nestedPath = normalize.ApplyPrefix(parentPath(fieldPath), tagCfg.prefix)
		}
		switch fieldType.Kind() {
		case reflect.Struct:
			d.bindStruct(child, fieldValue, nestedPath)
		case reflect.Map:
			d.bindMap(child, fieldValue, nestedPath)
		}
		return
	}

	// Scalar field.
	child := childOf(v, key)
	if child == nil {
		if tagCfg.hasDefault {
			d.coerceScalar(tagCfg.defValue, fieldValue, fieldPath)
		}
		// Required-but-absent is reported by tag validation on the zero value.
		return
	}
	if !child.IsScalar() {
		d.fail(fieldPath, ErrCodeStructure, "expected scalar, found nested keys under %q", key)
		return
	}
	d.coerceScalar(child.Scalar(), fieldValue, fieldPath)
}

// bindValue binds a Value node into rv without tag handling; used for
// Optional inner values, slice elements, and map elements. parent is the map
// containing the node, for index-suffixed slice lookups.
func (d *decoder) bindValue(child *Value, parent *Value, rv reflect.Value, key, fieldPath string) {
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			rv.Set(reflect.New(rv.Type().Elem()))
		}
		rv = rv.Elem()
	}

	if rv.Type() == valueType {
		if child != nil {
			rv.Set(reflect.ValueOf(*child))
		}
		return
	}

	if rv.Kind() == reflect.Slice {
		d.bindSlice(parent, rv, key, fieldPath)
		return
	}

	if isStructural(rv.Type()) {
		if child != nil && child.IsScalar() {
			d.fail(fieldPath, ErrCodeStructure, "expected nested keys under %q, found scalar %q", key, child.Scalar())
			return
		}
		if rv.Kind() == reflect.Struct {
			d.bindStruct(child, rv, fieldPath)
		} else {
			d.bindMap(child, rv, fieldPath)
		}
		return
	}

	if child == nil {
		return
	}
	if !child.IsScalar() {
		d.fail(fieldPath, ErrCodeStructure, "expected scalar, found nested keys under %q", key)
		return
	}
	d.coerceScalar(child.Scalar(), rv, fieldPath)
}

// bindSlice decodes index-suffixed sibling keys (key_0, key_1, ...) into a
// slice. Indexes must be consecutive from zero; the first gap ends the
// sequence. A scalar stored under the bare key is a structural mismatch.
func (d *decoder) bindSlice(v *Value, rv reflect.Value, key, fieldPath string) {
	if child := childOf(v, key); child != nil && child.IsScalar() {
		d.fail(fieldPath, ErrCodeStructure, "expected indexed keys %s_0, %s_1, ... for sequence, found scalar", key, key)
		return
	}

	var elems []*Value
	for i := 0; ; i++ {
		child := childOf(v, indexedKey(key, i))
		if child == nil {
			break
		}
		elems = append(elems, child)
	}
	if elems == nil {
		return
	}

	slice := reflect.MakeSlice(rv.Type(), len(elems), len(elems))
	for i, elem := range elems {
		d.bindValue(elem, v, slice.Index(i), indexedKey(key, i), normalize.ApplyPrefix(parentPath(fieldPath), indexedKey(key, i)))
	}
	rv.Set(slice)
}

// bindMap decodes a map node into a Go map with string keys.
func (d *decoder) bindMap(v *Value, rv reflect.Value, fieldPath string) {
	mapType := rv.Type()
	if mapType.Key().Kind() != reflect.String {
		d.fail(fieldPath, ErrCodeUnsupported, "cannot decode into map with non-string key type %s", mapType.Key())
		return
	}
	if rv.IsNil() {
		rv.Set(reflect.MakeMap(mapType))
	}
	if v == nil {
		return
	}
	elemType := mapType.Elem()
	for _, key := range v.Keys() {
		child, _ := v.Get(key)
		newVal := reflect.New(elemType).Elem()
		d.bindValue(child, v, newVal, key, normalize.ApplyPrefix(fieldPath, key))
		rv.SetMapIndex(reflect.ValueOf(key), newVal)
	}
}

// coerceScalar converts a textual scalar into the target primitive type,
// reporting a coercion FieldError with the expected type and found text on
// failure.
func (d *decoder) coerceScalar(s string, rv reflect.Value, fieldPath string) {
	// encoding.TextUnmarshaler takes precedence (covers time.Time).
	if rv.CanAddr() {
		if u, ok := rv.Addr().Interface().(encoding.TextUnmarshaler); ok {
			if err := u.UnmarshalText([]byte(s)); err != nil {
				d.fail(fieldPath, ErrCodeCoercion, "expected %s, found %q: %v", rv.Type(), s, err)
			}
			return
		}
	}

	switch rv.Kind() {
	case reflect.String:
		rv.SetString(s)
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			d.fail(fieldPath, ErrCodeCoercion, "expected bool, found %q", s)
			return
		}
		rv.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if rv.Type() == durationType {
			dur, err := time.ParseDuration(s)
			if err != nil {
				d.fail(fieldPath, ErrCodeCoercion, "expected duration, found %q", s)
				return
			}
			rv.SetInt(int64(dur))
			return
		}
		n, err := strconv.ParseInt(s, 10, rv.Type().Bits())
		if err != nil {
			d.fail(fieldPath, ErrCodeCoercion, "expected %s, found %q", rv.Type(), s)
			return
		}
		rv.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, rv.Type().Bits())
		if err != nil {
			d.fail(fieldPath, ErrCodeCoercion, "expected %s, found %q", rv.Type(), s)
			return
		}
		rv.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, rv.Type().Bits())
		if err != nil {
			d.fail(fieldPath, ErrCodeCoercion, "expected %s, found %q", rv.Type(), s)
			return
		}
		rv.SetFloat(f)
	default:
		d.fail(fieldPath, ErrCodeUnsupported, "unsupported field type %s", rv.Type())
	}
}

// childOf returns the child of v under key, or nil when v is not a map or
// the key is absent.
func childOf(v *Value, key string) *Value {
	if v == nil || v.IsScalar() {
		return nil
	}
	child, ok := v.Get(key)
	if !ok {
		return nil
	}
	return child
}

// hasIndexedKeys reports whether v contains key_0, the start of an
// index-suffixed sequence.
func hasIndexedKeys(v *Value, key string) bool {
	return childOf(v, indexedKey(key, 0)) != nil
}

func indexedKey(key string, i int) string {
	return key + "_" + strconv.Itoa(i)
}

// parentPath strips the final segment off a field path.
func parentPath(fieldPath string) string {
	if i := strings.LastIndex(fieldPath, Separator); i >= 0 {
		return fieldPath[:i]
	}
	return ""
}

// isStructural reports whether t binds against nested keys (a struct or a
// map) rather than a single scalar. Text-unmarshalable structs such as
// time.Time count as scalars.
func isStructural(t reflect.Type) bool {
	if t == valueType {
		return false
	}
	switch t.Kind() {
	case reflect.Map:
		return true
	case reflect.Struct:
		return !reflect.PointerTo(t).Implements(textUnmarshalerType)
	default:
		return false
	}
}

var (
	valueType           = reflect.TypeOf(Value{})
	durationType        = reflect.TypeOf(time.Duration(0))
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
)
