package envfile

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestFromString_QuotedValue(t *testing.T) {
	type Config struct {
		Hello string
	}

	cfg, err := FromString[Config](`HELLO="WORLD"`)
	if err != nil {
		t.Fatalf("FromString() error = %v", err)
	}
	if cfg.Hello != "WORLD" {
		t.Errorf("Hello = %q, want WORLD", cfg.Hello)
	}

	// Re-encoding a plain value drops the now-unneeded quotes.
	text, err := ToString(cfg)
	if err != nil {
		t.Fatalf("ToString() error = %v", err)
	}
	if text != "HELLO=WORLD" {
		t.Errorf("ToString() = %q, want HELLO=WORLD", text)
	}
}

func TestToString_ValueWorkflow(t *testing.T) {
	v := New()
	v.Set("hello", "world")

	text, err := ToString(v)
	if err != nil {
		t.Fatalf("ToString() error = %v", err)
	}
	if text != "HELLO=world" {
		t.Errorf("ToString() = %q, want HELLO=world", text)
	}
}

func TestFromString_DottedNesting(t *testing.T) {
	v, err := FromString[Value]("A.B=1")
	if err != nil {
		t.Fatalf("FromString() error = %v", err)
	}
	a, ok := v.Get("a")
	if !ok || !a.IsMap() {
		t.Fatal("a should be a nested map")
	}
	if got, _ := a.GetString("b"); got != "1" {
		t.Errorf("a.b = %q, want 1", got)
	}
}

func TestFromString_MalformedLine(t *testing.T) {
	_, err := FromString[Value]("NOVALUELINE")
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("error = %v, want *ParseError", err)
	}
	if perr.Kind != ParseErrMissingSeparator {
		t.Errorf("Kind = %q, want %q", perr.Kind, ParseErrMissingSeparator)
	}
	if perr.Line != 1 {
		t.Errorf("Line = %d, want 1", perr.Line)
	}
}

func TestFromString_CoercionFailurePath(t *testing.T) {
	type Config struct {
		Count int
	}

	_, err := FromString[Config]("COUNT=notanumber")
	assertFieldError(t, err, "count", ErrCodeCoercion)
}

func TestRoundTrip_Struct(t *testing.T) {
	type Database struct {
		Host string
		Port int
	}
	type Config struct {
		Name     string
		Debug    bool
		Database Database
		Tags     []string
	}

	original := Config{
		Name:     "my app", // Forces quoting
		Debug:    true,
		Database: Database{Host: "db.local", Port: 5432},
		Tags:     []string{"a", "b"},
	}

	text, err := ToString(original)
	if err != nil {
		t.Fatalf("ToString() error = %v", err)
	}
	decoded, err := FromString[Config](text)
	if err != nil {
		t.Fatalf("FromString() error = %v", err)
	}
	if !reflect.DeepEqual(*decoded, original) {
		t.Errorf("round trip: got %+v, want %+v", *decoded, original)
	}
}

func TestRoundTrip_Value(t *testing.T) {
	v := New()
	v.Set("plain", "value")
	v.Set("spaced", "two words")
	nested := NewMap()
	nested.Set("inner", "x")
	v.Insert("outer", nested)

	text, err := ToString(v)
	if err != nil {
		t.Fatalf("ToString() error = %v", err)
	}
	decoded, err := FromString[Value](text)
	if err != nil {
		t.Fatalf("FromString() error = %v", err)
	}
	if !v.Equal(decoded) {
		t.Errorf("round trip: got %v, want equal trees", decoded)
	}
}

func TestWithPrefix_Decode(t *testing.T) {
	type Config struct {
		Host string
		Port int
	}

	text := "APP_HOST=localhost\nAPP_PORT=8080\nOTHER_KEY=ignored"
	cfg, err := FromString[Config](text, WithPrefix("APP_"))
	if err != nil {
		t.Fatalf("FromString() error = %v", err)
	}
	if cfg.Host != "localhost" || cfg.Port != 8080 {
		t.Errorf("cfg = %+v", *cfg)
	}
}

func TestWithPrefix_Encode(t *testing.T) {
	type Config struct {
		Host string
	}

	text, err := ToString(Config{Host: "x"}, WithPrefix("APP_"))
	if err != nil {
		t.Fatalf("ToString() error = %v", err)
	}
	if text != "APP_HOST=x" {
		t.Errorf("ToString() = %q, want APP_HOST=x", text)
	}
}

func TestWithPrefix_RoundTrip(t *testing.T) {
	type Config struct {
		Host string
		Port int
	}

	original := Config{Host: "localhost", Port: 9000}
	text, err := ToString(original, WithPrefix("SVC_"))
	if err != nil {
		t.Fatalf("ToString() error = %v", err)
	}
	decoded, err := FromString[Config](text, WithPrefix("SVC_"))
	if err != nil {
		t.Fatalf("FromString() error = %v", err)
	}
	if *decoded != original {
		t.Errorf("round trip: got %+v, want %+v", *decoded, original)
	}
}

func TestPreserveOrder(t *testing.T) {
	text := "ZEBRA=1\nALPHA=2\nMANGO=3"

	ordered, err := FromString[Value](text, PreserveOrder())
	if err != nil {
		t.Fatalf("FromString() error = %v", err)
	}
	if !reflect.DeepEqual(ordered.Keys(), []string{"zebra", "alpha", "mango"}) {
		t.Errorf("ordered Keys() = %v, want input order", ordered.Keys())
	}

	// Re-serializing reproduces the input ordering.
	out, err := ToString(ordered)
	if err != nil {
		t.Fatalf("ToString() error = %v", err)
	}
	if out != text {
		t.Errorf("ToString() = %q, want %q", out, text)
	}

	// Default is sorted iteration.
	unordered, err := FromString[Value](text)
	if err != nil {
		t.Fatalf("FromString() error = %v", err)
	}
	if !reflect.DeepEqual(unordered.Keys(), []string{"alpha", "mango", "zebra"}) {
		t.Errorf("unordered Keys() = %v, want sorted", unordered.Keys())
	}
}

func TestFromFile_ToFile(t *testing.T) {
	type Config struct {
		Host  string
		Port  int
		Token string
	}

	path := filepath.Join(t.TempDir(), ".env")
	original := Config{Host: "localhost", Port: 8080, Token: "with spaces"}

	if err := ToFile(path, original); err != nil {
		t.Fatalf("ToFile() error = %v", err)
	}

	// Files holding credentials are written owner-only.
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("file mode = %o, want 0600", info.Mode().Perm())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 || data[len(data)-1] != '\n' {
		t.Error("file should end with a trailing newline")
	}

	decoded, err := FromFile[Config](path)
	if err != nil {
		t.Fatalf("FromFile() error = %v", err)
	}
	if *decoded != original {
		t.Errorf("round trip: got %+v, want %+v", *decoded, original)
	}
}

func TestFromReader(t *testing.T) {
	type Config struct {
		Host string
		Port int
	}

	cfg, err := FromReader[Config](strings.NewReader("HOST=localhost\nPORT=8080"))
	if err != nil {
		t.Fatalf("FromReader() error = %v", err)
	}
	want := Config{Host: "localhost", Port: 8080}
	if *cfg != want {
		t.Errorf("FromReader() = %+v, want %+v", *cfg, want)
	}

	if _, err := FromReader[Config](strings.NewReader("NOVALUE")); err == nil {
		t.Error("FromReader() on malformed text should fail")
	}
}

func TestFromFile_Missing(t *testing.T) {
	_, err := FromFile[Value](filepath.Join(t.TempDir(), "absent.env"))
	if err == nil {
		t.Error("FromFile() on a missing file should fail")
	}
}

func TestToFile_EmptyData(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := ToFile(path, New()); err != nil {
		t.Fatalf("ToFile() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 0 {
		t.Errorf("empty config should write an empty file, got %q", data)
	}
}

func TestFromEnv(t *testing.T) {
	type Config struct {
		Host string
		Db   struct {
			Port int
		} `conf:"prefix:db"`
	}

	os.Setenv("FE_TEST_HOST", "envhost")
	os.Setenv("FE_TEST_DB__PORT", "5432")
	defer os.Unsetenv("FE_TEST_HOST")
	defer os.Unsetenv("FE_TEST_DB__PORT")

	cfg, err := FromEnv[Config](WithPrefix("FE_TEST_"))
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}
	if cfg.Host != "envhost" {
		t.Errorf("Host = %q", cfg.Host)
	}
	if cfg.Db.Port != 5432 {
		t.Errorf("Db.Port = %d", cfg.Db.Port)
	}
}

func TestFromEnv_IntoValue(t *testing.T) {
	os.Setenv("FEV_TEST_KEY", "val")
	defer os.Unsetenv("FEV_TEST_KEY")

	v, err := FromEnv[Value](WithPrefix("FEV_TEST_"))
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}
	if got, _ := v.GetString("key"); got != "val" {
		t.Errorf("key = %q, want val", got)
	}
}
