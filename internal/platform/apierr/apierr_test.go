package apierr

import (
	"fmt"
	"net/http"
	"testing"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"wrapped not found", fmt.Errorf("load file 7: %w", ErrNotFound), http.StatusNotFound, "not_found"},
		{"forbidden", ErrForbidden, http.StatusForbidden, "forbidden"},
		{"conflict", fmt.Errorf("username taken: %w", ErrConflict), http.StatusBadRequest, "invalid_request"},
		{"explicit", New(http.StatusTeapot, "teapot", nil), http.StatusTeapot, "teapot"},
		{"wrapped explicit", fmt.Errorf("outer: %w", New(http.StatusConflict, "dup", ErrConflict)), http.StatusConflict, "dup"},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		status, code := Classify(tc.err)
		if status != tc.status || code != tc.code {
			t.Fatalf("%s: want=(%d,%s) got=(%d,%s)", tc.name, tc.status, tc.code, status, code)
		}
	}
}

func TestCause(t *testing.T) {
	inner := fmt.Errorf("File not found")
	wrapped := fmt.Errorf("load: %w", New(http.StatusNotFound, "file_not_found", inner))
	if got := Cause(wrapped); got != inner {
		t.Fatalf("Cause: want=%v got=%v", inner, got)
	}
	if !IsTyped(wrapped) {
		t.Fatalf("IsTyped: want=true")
	}
	plain := fmt.Errorf("boom")
	if Cause(plain) != plain || IsTyped(plain) {
		t.Fatalf("plain error should pass through untyped")
	}
}
