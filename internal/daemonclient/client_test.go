package daemonclient

import (
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/kazz187/lash/internal/daemon"
)

func TestTryDaemonFallsBackWhenNoSocket(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "nonexistent.sock")
	_, _, _, ok := TryDaemon(sockPath, []string{"-c", "echo hi"}, daemon.StdinNull)
	if ok {
		t.Fatal("expected TryDaemon to report ok=false when nothing is listening")
	}
}

func listenFakeDaemon(t *testing.T, handle func(conn *net.UnixConn)) string {
	t.Helper()
	sockPath := filepath.Join(t.TempDir(), "daemon.sock")
	addr, err := net.ResolveUnixAddr("unix", sockPath)
	if err != nil {
		t.Fatalf("ResolveUnixAddr: %v", err)
	}
	ln, err := net.ListenUnix("unix", addr)
	if err != nil {
		t.Fatalf("ListenUnix: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	go func() {
		conn, err := ln.AcceptUnix()
		if err != nil {
			return
		}
		defer conn.Close()
		handle(conn)
	}()
	return sockPath
}

func TestTryDaemonReturnsExecutionResult(t *testing.T) {
	sockPath := listenFakeDaemon(t, func(conn *net.UnixConn) {
		frame, err := daemon.ReadFrame(conn)
		if err != nil || frame.Kind != daemon.KindSessionInit {
			return
		}
		var init daemon.SessionInit
		json.Unmarshal(frame.Payload, &init)
		daemon.WriteFrame(conn, frame.ID, daemon.KindResult, daemon.ExecutionResult{
			ExitCode: 0,
			Stdout:   []byte("hi\n"),
		})
	})

	code, stdout, _, ok := TryDaemon(sockPath, []string{"-c", "echo hi"}, daemon.StdinInherit)
	if !ok {
		t.Fatal("expected ok=true")
	}
	if code != 0 || string(stdout) != "hi\n" {
		t.Fatalf("got code=%d stdout=%q", code, string(stdout))
	}
}

func TestTryDaemonHandlesErrorMessage(t *testing.T) {
	sockPath := listenFakeDaemon(t, func(conn *net.UnixConn) {
		frame, err := daemon.ReadFrame(conn)
		if err != nil {
			return
		}
		daemon.WriteFrame(conn, frame.ID, daemon.KindError, daemon.ErrorMessage{Message: "boom"})
	})

	code, _, _, ok := TryDaemon(sockPath, []string{"-c", "true"}, daemon.StdinInherit)
	if !ok {
		t.Fatal("expected ok=true for an error-kind reply")
	}
	if code != 1 {
		t.Errorf("got code=%d, want 1", code)
	}
}

func TestEnvMapSplitsOnFirstEquals(t *testing.T) {
	t.Setenv("LASH_TEST_VAR", "a=b=c")
	m := envMap()
	if got := m["LASH_TEST_VAR"]; got != "a=b=c" {
		t.Errorf("got %q, want %q", got, "a=b=c")
	}
	if _, ok := os.LookupEnv("LASH_TEST_VAR"); !ok {
		t.Fatal("sanity check: env var not set")
	}
}
