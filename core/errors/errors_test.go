package errors

import (
	"errors"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(CodeInvalidArgument, "unknown level")

	var customErr *E
	if !errors.As(err, &customErr) {
		t.Fatal("Error should be of type *E")
	}
	if customErr.Code != CodeInvalidArgument {
		t.Errorf("Expected code %s, got %s", CodeInvalidArgument, customErr.Code)
	}
	if got, want := err.Error(), "INVALID_ARGUMENT: unknown level"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestWrap(t *testing.T) {
	originalErr := errors.New("original error")
	wrappedErr := Wrap(CodeInternal, "asyncx.Go", originalErr)

	var customErr *E
	if !errors.As(wrappedErr, &customErr) {
		t.Fatal("Wrapped error should be of type *E")
	}
	if customErr.Op != "asyncx.Go" {
		t.Errorf("Expected operation %q, got %q", "asyncx.Go", customErr.Op)
	}
	if !errors.Is(wrappedErr, originalErr) {
		t.Error("Wrapped error should unwrap to the original error")
	}
	if got, want := wrappedErr.Error(), "asyncx.Go: INTERNAL: original error"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestWrapf(t *testing.T) {
	originalErr := errors.New("eof")
	err := Wrapf(CodeInvalidArgument, "configx.Load", originalErr, "parse %s", "app.yaml")

	if got, want := err.Error(), "configx.Load: INVALID_ARGUMENT: parse app.yaml: eof"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{"nil", nil, ""},
		{"plain", errors.New("plain"), ""},
		{"coded", New(CodeNotFound, "missing"), CodeNotFound},
		{"wrapped by fmt", wrapStd(New(CodeFailedPrecondition, "x")), CodeFailedPrecondition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf() = %q, want %q", got, tt.want)
			}
			if tt.want != "" && !IsCode(tt.err, tt.want) {
				t.Errorf("IsCode(%v, %q) = false", tt.err, tt.want)
			}
		})
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("cause")
	err := Build(CodeNotFound).
		WithOp("instrumentx.emit").
		WithErr(cause).
		WithMsgf("no logger at property %q", "logger").
		WithDetails("property", "logger").
		Err()

	var e *E
	if !As(err, &e) {
		t.Fatal("Builder should produce *E")
	}
	if e.Code != CodeNotFound || e.Op != "instrumentx.emit" {
		t.Errorf("unexpected code/op: %s/%s", e.Code, e.Op)
	}
	if len(e.Details) != 2 || e.Details[1] != "logger" {
		t.Errorf("unexpected details: %v", e.Details)
	}
	if !Is(err, cause) {
		t.Error("Builder error should unwrap to its cause")
	}

	plain := Build(CodeInternal).WithMsg("boom").Err()
	if plain.Error() != "INTERNAL: boom" {
		t.Errorf("Error() = %q", plain.Error())
	}
}

type stdWrapper struct{ err error }

func (w stdWrapper) Error() string { return "outer: " + w.err.Error() }
func (w stdWrapper) Unwrap() error { return w.err }

func wrapStd(err error) error { return stdWrapper{err: err} }
