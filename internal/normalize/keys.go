package normalize

import (
	"strings"
	"unicode"
)

// ToLowerDotPath normalizes an environment-variable key to a lowercase
// dot-separated path. Double underscores (__) and dots are treated as level
// separators; single underscores within a level are preserved.
// Examples:
//   - "FOO__BAR" → "foo.bar"
//   - "NESTED.FIELD" → "nested.field"
//   - "DB_MAX_CONNECTIONS" → "db_max_connections"
func ToLowerDotPath(key string) string {
	normalized := strings.ReplaceAll(key, "__", ".")
	return strings.ToLower(normalized)
}

// ToEnvKey is the inverse textual transform: a lowercase dot-separated path
// becomes an upper-case environment-variable key with __ level separators.
// Examples:
//   - "foo.bar" → "FOO__BAR"
//   - "database.rate_limit" → "DATABASE__RATE_LIMIT"
func ToEnvKey(path string) string {
	normalized := strings.ReplaceAll(path, ".", "__")
	return strings.ToUpper(normalized)
}

// FieldKey derives a key path segment from a Go struct field name by
// converting CamelCase to snake_case. Runs of upper-case letters are kept
// as one segment.
// Examples:
//   - "Host" → "host"
//   - "MaxConnections" → "max_connections"
//   - "DatabaseURL" → "database_url"
func FieldKey(fieldName string) string {
	if fieldName == "" {
		return ""
	}

	var b strings.Builder
	runes := []rune(fieldName)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (!unicode.IsUpper(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ApplyPrefix combines a prefix with a key to create a nested path.
// Examples:
//   - ApplyPrefix("database", "host") → "database.host"
//   - ApplyPrefix("", "host") → "host"
func ApplyPrefix(prefix, key string) string {
	if prefix == "" {
		return key
	}
	if key == "" {
		return prefix
	}
	return prefix + "." + key
}
