package panicerr

import (
	"context"
	"errors"
	"testing"
)

func TestSafePassesThroughSuccess(t *testing.T) {
	err := Safe(func() error { return nil })()
	if err != nil {
		t.Fatalf("got %v, want nil", err)
	}
}

func TestSafePassesThroughError(t *testing.T) {
	want := errors.New("boom")
	err := Safe(func() error { return want })()
	if !errors.Is(err, want) {
		t.Fatalf("got %v, want %v", err, want)
	}
}

func TestSafeRecoversPanic(t *testing.T) {
	err := Safe(func() error { panic("kaboom") })()
	if err == nil {
		t.Fatal("expected a panic to surface as an error")
	}
}

func TestSafeContextPassesContextThrough(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "v")
	var seen string
	err := SafeContext(func(ctx context.Context) error {
		seen, _ = ctx.Value(key{}).(string)
		return nil
	})(ctx)
	if err != nil {
		t.Fatalf("got %v, want nil", err)
	}
	if seen != "v" {
		t.Errorf("got %q, want %q", seen, "v")
	}
}

func TestSafeContextRecoversPanic(t *testing.T) {
	err := SafeContext(func(context.Context) error { panic("kaboom") })(context.Background())
	if err == nil {
		t.Fatal("expected a panic to surface as an error")
	}
}
