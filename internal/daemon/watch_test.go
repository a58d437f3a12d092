package daemon

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatchRuntimeDirDetectsSocketRemoval(t *testing.T) {
	dir := t.TempDir()
	sockPath := filepath.Join(dir, "daemon.sock")
	if err := os.WriteFile(sockPath, nil, 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	s := &Server{cfg: &Config{SocketPath: sockPath}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- s.watchRuntimeDir(ctx) }()

	time.Sleep(50 * time.Millisecond)
	if err := os.Remove(sockPath); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("expected watchRuntimeDir to report the socket's removal")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watchRuntimeDir did not observe the socket removal in time")
	}
}

func TestWatchRuntimeDirStopsOnContextCancel(t *testing.T) {
	dir := t.TempDir()
	sockPath := filepath.Join(dir, "daemon.sock")
	if err := os.WriteFile(sockPath, nil, 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	s := &Server{cfg: &Config{SocketPath: sockPath}}
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- s.watchRuntimeDir(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("got err=%v, want nil after cancellation", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watchRuntimeDir did not return after context cancellation")
	}
}
