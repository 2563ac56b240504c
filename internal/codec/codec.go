// Package codec implements the textual environment-file wire format:
// parsing KEY=VALUE lines into ordered raw entries and serializing such
// entries back into text deterministically.
package codec

import (
	"fmt"
	"strings"
)

// Entry is one key/value pair of environment-file text, after quote and
// escape resolution. Entries preserve input order; duplicate handling is the
// caller's concern.
type Entry struct {
	Key   string
	Value string
}

// Error kinds reported by Parse.
const (
	KindMissingSeparator  = "missing_separator"
	KindInvalidKey        = "invalid_key"
	KindUnterminatedQuote = "unterminated_quote"
	KindBadEscape         = "bad_escape"
	KindTrailingChars     = "trailing_characters"
)

// Error reports a malformed line.
type Error struct {
	Line    int    // 1-based line number
	Kind    string // One of the Kind* constants
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("line %d: %s (%s)", e.Line, e.Message, e.Kind)
}

type parser struct {
	input string
	pos   int
	line  int
}

// Parse reads environment-file text into an ordered sequence of entries.
// Blank lines and comment lines (leading '#', after optional whitespace) are
// skipped. An optional "export " prefix before the key is accepted and
// discarded. Duplicate keys are returned as-is, in input order.
func Parse(text string) ([]Entry, error) {
	p := &parser{input: text, line: 1}
	var entries []Entry

	for p.pos < len(p.input) {
		p.skipBlank()
		if p.pos >= len(p.input) {
			break
		}
		if p.peek() == '#' {
			p.skipToEOL()
			continue
		}

		entry, err := p.parseLine()
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// parseLine parses one KEY=VALUE line. The cursor is on the first
// non-whitespace character of the key.
func (p *parser) parseLine() (Entry, error) {
	rest := p.input[p.pos:]
	if eol := strings.IndexByte(rest, '\n'); eol >= 0 {
		rest = rest[:eol]
	}

	eq := strings.IndexByte(rest, '=')
	if eq < 0 {
		p.skipToEOL()
		return Entry{}, &Error{
			Line:    p.line,
			Kind:    KindMissingSeparator,
			Message: fmt.Sprintf("no %q separator in line %q", "=", strings.TrimSpace(rest)),
		}
	}

	key := strings.TrimSpace(rest[:eq])
	key = strings.TrimPrefix(key, "export ")
	key = strings.TrimSpace(key)
	if !ValidKey(key) {
		p.skipToEOL()
		return Entry{}, &Error{
			Line:    p.line,
			Kind:    KindInvalidKey,
			Message: fmt.Sprintf("invalid key %q", key),
		}
	}

	p.pos += eq + 1
	p.skipSpaces()

	var value string
	var err error
	switch {
	case p.pos < len(p.input) && p.peek() == '\'':
		value, err = p.parseSingleQuoted()
	case p.pos < len(p.input) && p.peek() == '"':
		value, err = p.parseDoubleQuoted()
	default:
		value = p.parseUnquoted()
	}
	if err != nil {
		return Entry{}, err
	}

	return Entry{Key: key, Value: value}, nil
}

// parseUnquoted takes the value verbatim up to end-of-line, trimmed.
func (p *parser) parseUnquoted() string {
	start := p.pos
	for p.pos < len(p.input) && p.peek() != '\n' {
		p.pos++
	}
	return strings.TrimSpace(p.input[start:p.pos])
}

// parseSingleQuoted reads a literal value with no escape processing.
func (p *parser) parseSingleQuoted() (string, error) {
	openLine := p.line
	p.pos++ // consume opening quote
	start := p.pos
	for p.pos < len(p.input) {
		ch := p.input[p.pos]
		if ch == '\'' {
			value := p.input[start:p.pos]
			p.pos++ // consume closing quote
			return value, p.requireEOL()
		}
		if ch == '\n' {
			p.line++
		}
		p.pos++
	}
	return "", &Error{Line: openLine, Kind: KindUnterminatedQuote, Message: "unterminated single-quoted value"}
}

// parseDoubleQuoted reads a value supporting escape sequences for the quote,
// backslash, and newline.
func (p *parser) parseDoubleQuoted() (string, error) {
	openLine := p.line
	p.pos++ // consume opening quote
	var b strings.Builder
	for p.pos < len(p.input) {
		ch := p.input[p.pos]
		switch ch {
		case '"':
			p.pos++ // consume closing quote
			return b.String(), p.requireEOL()
		case '\\':
			p.pos++
			if p.pos >= len(p.input) {
				return "", &Error{Line: p.line, Kind: KindBadEscape, Message: "dangling backslash"}
			}
			esc := p.input[p.pos]
			switch esc {
			case '"':
				b.WriteByte('"')
			case '\\':
				b.WriteByte('\\')
			case 'n':
				b.WriteByte('\n')
			default:
				return "", &Error{
					Line:    p.line,
					Kind:    KindBadEscape,
					Message: fmt.Sprintf("invalid escape sequence \\%c", esc),
				}
			}
			p.pos++
		case '\n':
			b.WriteByte(ch)
			p.line++
			p.pos++
		default:
			b.WriteByte(ch)
			p.pos++
		}
	}
	return "", &Error{Line: openLine, Kind: KindUnterminatedQuote, Message: "unterminated double-quoted value"}
}

// requireEOL verifies that nothing but whitespace or a comment follows a
// closing quote on the same line.
func (p *parser) requireEOL() error {
	for p.pos < len(p.input) {
		ch := p.input[p.pos]
		if ch == '\n' {
			return nil
		}
		if ch == '#' {
			p.skipToEOL()
			return nil
		}
		if ch != ' ' && ch != '\t' && ch != '\r' {
			return &Error{
				Line:    p.line,
				Kind:    KindTrailingChars,
				Message: fmt.Sprintf("unexpected character %q after quoted value", ch),
			}
		}
		p.pos++
	}
	return nil
}

func (p *parser) peek() byte {
	return p.input[p.pos]
}

func (p *parser) skipSpaces() {
	for p.pos < len(p.input) {
		ch := p.input[p.pos]
		if ch != ' ' && ch != '\t' {
			return
		}
		p.pos++
	}
}

// skipBlank advances past whitespace and empty lines, tracking line numbers.
func (p *parser) skipBlank() {
	for p.pos < len(p.input) {
		ch := p.input[p.pos]
		if ch == '\n' {
			p.line++
			p.pos++
			continue
		}
		if ch == ' ' || ch == '\t' || ch == '\r' {
			p.pos++
			continue
		}
		return
	}
}

func (p *parser) skipToEOL() {
	for p.pos < len(p.input) {
		if p.input[p.pos] == '\n' {
			p.line++
			p.pos++
			return
		}
		p.pos++
	}
}

// ValidKey reports whether key is identifier-like: one or more segments of
// letters, digits, and underscores, none starting with a digit, joined by
// single dots. Dots let flattened nested keys (NESTED.FIELD) pass through
// the codec unchanged.
func ValidKey(key string) bool {
	if key == "" {
		return false
	}
	for _, segment := range strings.Split(key, ".") {
		if !validSegment(segment) {
			return false
		}
	}
	return true
}

func validSegment(s string) bool {
	if s == "" {
		return false
	}
	if isDigit(rune(s[0])) {
		return false
	}
	for _, ch := range s {
		if !isIdentChar(ch) {
			return false
		}
	}
	return true
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}

func isIdentChar(ch rune) bool {
	return ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') || isDigit(ch) || ch == '_'
}

// Serialize writes entries as environment-file text, one KEY=VALUE line per
// entry, in the given order. Values containing whitespace, '#', '=', quotes,
// backslashes, or newlines are double-quoted with '"', '\', and newline
// escaped, so that Parse(Serialize(entries)) reproduces entries exactly.
func Serialize(entries []Entry) string {
	var b strings.Builder
	for i, entry := range entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(entry.Key)
		b.WriteByte('=')
		writeValue(&b, entry.Value)
	}
	return b.String()
}

func writeValue(b *strings.Builder, value string) {
	if !needsQuoting(value) {
		b.WriteString(value)
		return
	}
	b.WriteByte('"')
	for i := 0; i < len(value); i++ {
		switch ch := value[i]; ch {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteByte(ch)
		}
	}
	b.WriteByte('"')
}

func needsQuoting(value string) bool {
	if value == "" {
		return false
	}
	// A leading quote would be misread as a quoted value on re-parse.
	if value[0] == '\'' || value[0] == '"' {
		return true
	}
	return strings.ContainsAny(value, " \t\r\n#=\"\\")
}
