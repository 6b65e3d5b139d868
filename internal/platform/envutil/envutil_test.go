package envutil

import (
	"testing"
	"time"
)

func TestDurationAcceptsSecondsAndGoSyntax(t *testing.T) {
	t.Setenv("X_TIMEOUT", "7")
	if got := Duration("X_TIMEOUT", time.Second); got != 7*time.Second {
		t.Fatalf("bare seconds: want=7s got=%s", got)
	}
	t.Setenv("X_TIMEOUT", "250ms")
	if got := Duration("X_TIMEOUT", time.Second); got != 250*time.Millisecond {
		t.Fatalf("go duration: want=250ms got=%s", got)
	}
	t.Setenv("X_TIMEOUT", "soon")
	if got := Duration("X_TIMEOUT", time.Second); got != time.Second {
		t.Fatalf("invalid: want default got=%s", got)
	}
}

func TestListAndBool(t *testing.T) {
	t.Setenv("X_ORIGINS", " http://a , ,http://b")
	got := List("X_ORIGINS", nil)
	if len(got) != 2 || got[0] != "http://a" || got[1] != "http://b" {
		t.Fatalf("List: unexpected %v", got)
	}
	t.Setenv("X_FLAG", "on")
	if !Bool("X_FLAG", false) {
		t.Fatalf("Bool: want=true got=false")
	}
	t.Setenv("X_FLAG", "maybe")
	if Bool("X_FLAG", false) {
		t.Fatalf("Bool invalid: want default false")
	}
}

func TestFloat(t *testing.T) {
	t.Setenv("X_RATIO", "0.25")
	if got := Float("X_RATIO", 1); got != 0.25 {
		t.Fatalf("Float: want=0.25 got=%v", got)
	}
	t.Setenv("X_RATIO", "half")
	if got := Float("X_RATIO", 1); got != 1 {
		t.Fatalf("Float invalid: want default got=%v", got)
	}
}
