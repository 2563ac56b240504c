package envfile

import (
	"fmt"
	"strings"
)

// Error codes for decode and validation failures.
const (
	ErrCodeRequired    = "required"
	ErrCodeCoercion    = "coercion"
	ErrCodeStructure   = "structure"
	ErrCodeMin         = "min"
	ErrCodeMax         = "max"
	ErrCodeOneOf       = "oneof"
	ErrCodeUnknownKey  = "unknown_key"
	ErrCodeUnsupported = "unsupported_type"
)

// Parse error kinds reported by the text codec.
const (
	ParseErrMissingSeparator  = "missing_separator"
	ParseErrInvalidKey        = "invalid_key"
	ParseErrUnterminatedQuote = "unterminated_quote"
	ParseErrBadEscape         = "bad_escape"
	ParseErrTrailingChars     = "trailing_characters"
)

// ParseError reports a malformed line in environment-file text.
type ParseError struct {
	Line    int    // 1-based line number of the offending input line
	Kind    string // One of the ParseErr* kinds
	Message string // Human-readable description
}

// Error formats the parse error with its line number.
func (e *ParseError) Error() string {
	return fmt.Sprintf("envfile: parse error at line %d: %s (%s)", e.Line, e.Message, e.Kind)
}

// FlattenError reports a value tree that cannot be represented as a flat
// key/value mapping.
type FlattenError struct {
	KeyPath string // Dot notation path of the offending node
	Message string
}

// Error formats the flatten error with its key path.
func (e *FlattenError) Error() string {
	return fmt.Sprintf("envfile: flatten error at %q: %s", e.KeyPath, e.Message)
}

// DecodeError aggregates field-level binding and validation failures.
type DecodeError struct {
	FieldErrors []FieldError
}

// Error formats decode errors as a multi-line message.
func (e *DecodeError) Error() string {
	if len(e.FieldErrors) == 0 {
		return "envfile: decode failed: no errors"
	}

	var b strings.Builder
	if len(e.FieldErrors) == 1 {
		b.WriteString("envfile: decode failed: 1 error\n")
	} else {
		fmt.Fprintf(&b, "envfile: decode failed: %d errors\n", len(e.FieldErrors))
	}

	for _, fe := range e.FieldErrors {
		fmt.Fprintf(&b, "  - %s: %s (%s)\n", fe.FieldPath, fe.Code, fe.Message)
	}

	return strings.TrimRight(b.String(), "\n")
}

// FieldError represents a single field binding or validation failure.
type FieldError struct {
	FieldPath string // Dot notation (e.g., "database.host")
	Code      string // Error code (e.g., "required", "coercion")
	Message   string // Human-readable description
}
