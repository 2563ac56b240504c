package envfile

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/Azhovan/envfile/internal/normalize"
)

// validateStruct walks a bound struct and checks every field against its
// `conf` tag constraints (required, min, max, oneof). Paths in the returned
// errors are lowercase key paths, matching the decode error convention.
func validateStruct(cfg reflect.Value) []FieldError {
	return validateStructAt(cfg, "")
}

func validateStructAt(cfg reflect.Value, parent string) []FieldError {
	var errs []FieldError

	if cfg.Kind() == reflect.Pointer {
		if cfg.IsNil() {
			return errs
		}
		cfg = cfg.Elem()
	}
	if cfg.Kind() != reflect.Struct {
		return errs
	}

	t := cfg.Type()
	for i := 0; i < cfg.NumField(); i++ {
		field := t.Field(i)
		fieldValue := cfg.Field(i)

		if !field.IsExported() {
			continue
		}

		tagCfg := parseTag(field.Tag.Get("conf"))
		if tagCfg.skip {
			continue
		}

		if field.Anonymous && field.Type.Kind() == reflect.Struct && !isOptionalType(field.Type) {
			errs = append(errs, validateStructAt(fieldValue, parent)...)
			continue
		}

		key := tagCfg.name
		if key == "" {
			key = normalize.FieldKey(field.Name)
		}
		fieldPath := normalize.ApplyPrefix(parent, key)

		// Optional[T]: constraints apply to the inner value, only when set.
		if isOptionalType(field.Type) {
			if fieldValue.Field(1).Bool() {
				errs = append(errs, validateField(fieldValue.Field(0), fieldPath, tagCfg)...)
			}
			continue
		}

		if isStructural(field.Type) && field.Type != valueType {
			nestedPath := fieldPath
			if tagCfg.prefix != "" {
				nestedPath = normalize.ApplyPrefix(parent, tagCfg.prefix)
			}
			errs = append(errs, validateStructAt(fieldValue, nestedPath)...)
			continue
		}

		errs = append(errs, validateField(fieldValue, fieldPath, tagCfg)...)
	}

	return errs
}

// validateField checks one scalar field against its tag constraints.
// A required field left at its zero value fails with ErrCodeRequired; zero
// values otherwise skip the remaining constraints.
func validateField(fieldValue reflect.Value, fieldPath string, tags tagConfig) []FieldError {
	var errs []FieldError

	// A non-nil pointer counts as provided even when it points at a zero;
	// explicit zeros through pointers satisfy required.
	if isZeroValue(fieldValue) {
		if tags.required {
			errs = append(errs, FieldError{
				FieldPath: fieldPath,
				Code:      ErrCodeRequired,
				Message:   "field is required but not provided",
			})
		}
		return errs
	}

	for fieldValue.Kind() == reflect.Pointer {
		fieldValue = fieldValue.Elem()
	}

	errs = append(errs, validateMinMax(fieldValue, fieldPath, tags)...)

	if len(tags.oneof) > 0 {
		errs = append(errs, validateOneof(fieldValue, fieldPath, tags)...)
	}

	return errs
}

// isZeroValue checks if a reflect.Value is the zero value for its type.
func isZeroValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Interface, reflect.Pointer:
		return v.IsNil()
	default:
		return v.IsZero()
	}
}

// validateMinMax checks numeric bounds and string length bounds. Malformed
// directive values are ignored rather than reported; the tag is authored in
// code, not loaded data.
func validateMinMax(fieldValue reflect.Value, fieldPath string, tags tagConfig) []FieldError {
	var errs []FieldError

	check := func(code, directive string, below func(bound float64) bool, describe func(bound float64) string) {
		if directive == "" {
			return
		}
		bound, err := strconv.ParseFloat(directive, 64)
		if err != nil {
			return
		}
		if below(bound) {
			errs = append(errs, FieldError{FieldPath: fieldPath, Code: code, Message: describe(bound)})
		}
	}

	var value float64
	var describeValue string
	switch fieldValue.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		value = float64(fieldValue.Int())
		describeValue = strconv.FormatInt(fieldValue.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		value = float64(fieldValue.Uint())
		describeValue = strconv.FormatUint(fieldValue.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		value = fieldValue.Float()
		describeValue = strconv.FormatFloat(value, 'g', -1, 64)
	case reflect.String:
		value = float64(len(fieldValue.String()))
		describeValue = fmt.Sprintf("length %d", len(fieldValue.String()))
	default:
		return errs
	}

	check(ErrCodeMin, tags.min,
		func(bound float64) bool { return value < bound },
		func(bound float64) string { return fmt.Sprintf("value %s is below minimum %g", describeValue, bound) })
	check(ErrCodeMax, tags.max,
		func(bound float64) bool { return value > bound },
		func(bound float64) string { return fmt.Sprintf("value %s exceeds maximum %g", describeValue, bound) })

	return errs
}

// validateOneof checks that a field value is one of the allowed options.
func validateOneof(fieldValue reflect.Value, fieldPath string, tags tagConfig) []FieldError {
	var valueStr string
	switch fieldValue.Kind() {
	case reflect.String:
		valueStr = fieldValue.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		valueStr = strconv.FormatInt(fieldValue.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		valueStr = strconv.FormatUint(fieldValue.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		valueStr = strconv.FormatFloat(fieldValue.Float(), 'f', -1, 64)
	case reflect.Bool:
		valueStr = strconv.FormatBool(fieldValue.Bool())
	default:
		return nil
	}

	for _, allowed := range tags.oneof {
		if valueStr == allowed {
			return nil
		}
	}

	return []FieldError{{
		FieldPath: fieldPath,
		Code:      ErrCodeOneOf,
		Message:   fmt.Sprintf("value %q must be one of: %s", valueStr, strings.Join(tags.oneof, ", ")),
	}}
}
