package procexec

import (
	"context"
	"testing"
	"time"
)

func TestRunReturnsExitCode(t *testing.T) {
	res, err := Run(context.Background(), "sh", []string{"-c", "exit 3"}, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Signaled || res.ExitCode != 3 {
		t.Fatalf("got %+v, want ExitCode=3 Signaled=false", res)
	}
}

func TestRunSucceeds(t *testing.T) {
	res, err := Run(context.Background(), "true", nil, Options{})
	if err != nil || res.ExitCode != 0 {
		t.Fatalf("got %+v err=%v, want ExitCode=0", res, err)
	}
}

func TestRunCancelSignalsTheProcess(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct {
		res Result
		err error
	}, 1)
	go func() {
		res, err := Run(ctx, "sleep", []string{"5"}, Options{})
		done <- struct {
			res Result
			err error
		}{res, err}
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case d := <-done:
		if d.err != nil {
			t.Fatalf("Run: %v", d.err)
		}
		if !d.res.Signaled || d.res.Signo != 15 {
			t.Fatalf("got %+v, want Signaled by SIGTERM (15)", d.res)
		}
	case <-time.After(GracePeriod):
		t.Fatal("expected cancellation to terminate the process before the grace period elapsed")
	}
}
