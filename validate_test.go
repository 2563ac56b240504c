package envfile

import (
	"testing"
)

func TestValidate_Required(t *testing.T) {
	type Config struct {
		Host string `conf:"required"`
		Port int    `conf:"required"`
	}

	_, err := FromString[Config]("HOST=localhost")
	assertFieldError(t, err, "port", ErrCodeRequired)

	if _, err := FromString[Config]("HOST=localhost\nPORT=80"); err != nil {
		t.Errorf("FromString() error = %v, want nil when all required fields set", err)
	}
}

func TestValidate_RequiredZeroValue(t *testing.T) {
	type Config struct {
		Port int `conf:"required"`
	}

	// An explicit zero is indistinguishable from absent.
	_, err := FromString[Config]("PORT=0")
	assertFieldError(t, err, "port", ErrCodeRequired)
}

func TestValidate_RequiredPointer(t *testing.T) {
	type Config struct {
		Port *int `conf:"required"`
	}

	_, err := FromString[Config]("")
	assertFieldError(t, err, "port", ErrCodeRequired)

	// An explicit zero through a pointer is set, so required passes.
	if _, err := FromString[Config]("PORT=0"); err != nil {
		t.Errorf("FromString() error = %v, explicit 0 through pointer should satisfy required", err)
	}
}

func TestValidate_RequiredDefaultInteraction(t *testing.T) {
	type Config struct {
		Host string `conf:"required,default:localhost"`
	}

	// The default applies before validation, so required is satisfied.
	cfg, err := FromString[Config]("")
	if err != nil {
		t.Fatalf("FromString() error = %v", err)
	}
	if cfg.Host != "localhost" {
		t.Errorf("Host = %q", cfg.Host)
	}
}

func TestValidate_MinMax(t *testing.T) {
	type Config struct {
		Port    int     `conf:"min:1024,max:65535"`
		Ratio   float64 `conf:"min:0.1,max:0.9"`
		Name    string  `conf:"min:3,max:10"`
		Retries uint    `conf:"max:5"`
	}

	tests := []struct {
		name     string
		input    string
		wantPath string
		wantCode string
	}{
		{"int below min", "PORT=80", "port", ErrCodeMin},
		{"int above max", "PORT=70000", "port", ErrCodeMax},
		{"float below min", "RATIO=0.01", "ratio", ErrCodeMin},
		{"float above max", "RATIO=0.95", "ratio", ErrCodeMax},
		{"string shorter than min length", "NAME=ab", "name", ErrCodeMin},
		{"string longer than max length", "NAME=abcdefghijk", "name", ErrCodeMax},
		{"uint above max", "RETRIES=9", "retries", ErrCodeMax},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromString[Config](tt.input)
			assertFieldError(t, err, tt.wantPath, tt.wantCode)
		})
	}

	if _, err := FromString[Config]("PORT=8080\nRATIO=0.5\nNAME=valid\nRETRIES=3"); err != nil {
		t.Errorf("FromString() error = %v, want all constraints satisfied", err)
	}
}

func TestValidate_ZeroSkipsConstraints(t *testing.T) {
	type Config struct {
		Port int `conf:"min:1024"`
	}

	// Non-required zero value skips min/max.
	if _, err := FromString[Config](""); err != nil {
		t.Errorf("FromString() error = %v, absent non-required field should pass", err)
	}
}

func TestValidate_Oneof(t *testing.T) {
	type Config struct {
		Level string `conf:"oneof:debug,info,warn,error"`
		Mode  int    `conf:"oneof:1,2,3"`
	}

	_, err := FromString[Config]("LEVEL=verbose")
	assertFieldError(t, err, "level", ErrCodeOneOf)

	_, err = FromString[Config]("MODE=9")
	assertFieldError(t, err, "mode", ErrCodeOneOf)

	if _, err := FromString[Config]("LEVEL=info\nMODE=2"); err != nil {
		t.Errorf("FromString() error = %v, want allowed values to pass", err)
	}
}

func TestValidate_NestedPaths(t *testing.T) {
	type Database struct {
		Host string `conf:"required"`
	}
	type Config struct {
		Database Database
		Primary  Database `conf:"prefix:db"`
	}

	_, err := FromString[Config]("")
	assertFieldError(t, err, "database.host", ErrCodeRequired)
	assertFieldError(t, err, "db.host", ErrCodeRequired)
}

func TestValidate_OptionalConstraints(t *testing.T) {
	type Config struct {
		Limit Optional[int] `conf:"max:10"`
	}

	// Unset Optional skips constraints entirely.
	if _, err := FromString[Config](""); err != nil {
		t.Errorf("FromString() error = %v, unset Optional should skip validation", err)
	}

	// Set Optional is validated.
	_, err := FromString[Config]("LIMIT=50")
	assertFieldError(t, err, "limit", ErrCodeMax)
}

func TestValidate_ErrorAggregation(t *testing.T) {
	type Config struct {
		Host  string `conf:"required"`
		Port  int    `conf:"required"`
		Level string `conf:"oneof:debug,info"`
	}

	_, err := FromString[Config]("LEVEL=bad")
	derr, ok := err.(*DecodeError)
	if !ok {
		t.Fatalf("error = %T, want *DecodeError", err)
	}
	if len(derr.FieldErrors) != 3 {
		t.Errorf("FieldErrors = %d, want 3 (two required plus one oneof)", len(derr.FieldErrors))
	}
}
