package daemon

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestValidateFillsInZeroValues(t *testing.T) {
	c := &Config{}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if c.SocketPath == "" {
		t.Error("expected SocketPath to be filled in")
	}
	if c.PoolSize != 1 {
		t.Errorf("got PoolSize=%d, want 1", c.PoolSize)
	}
	if c.SessionTimeout != 5*time.Minute {
		t.Errorf("got SessionTimeout=%v, want 5m", c.SessionTimeout)
	}
}

func TestValidateLeavesExplicitValuesAlone(t *testing.T) {
	c := &Config{SocketPath: "/tmp/x.sock", PoolSize: 7, SessionTimeout: time.Hour}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if c.SocketPath != "/tmp/x.sock" || c.PoolSize != 7 || c.SessionTimeout != time.Hour {
		t.Errorf("Validate mutated explicit values: %+v", c)
	}
}

func TestPidPathSitsNextToSocket(t *testing.T) {
	c := &Config{SocketPath: "/run/lash/daemon.sock"}
	if got, want := c.PidPath(), "/run/lash/daemon.pid"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestReadPidParsesDigitsOnly(t *testing.T) {
	dir := t.TempDir()
	c := &Config{SocketPath: filepath.Join(dir, "daemon.sock")}

	if _, ok := ReadPid(c); ok {
		t.Fatal("expected no pid file to be found yet")
	}

	if err := os.WriteFile(c.PidPath(), []byte("1234\n"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	pid, ok := ReadPid(c)
	if !ok || pid != 1234 {
		t.Fatalf("got pid=%d ok=%v, want 1234/true", pid, ok)
	}

	if err := os.WriteFile(c.PidPath(), []byte("not-a-pid"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, ok := ReadPid(c); ok {
		t.Fatal("expected a non-numeric pid file to be rejected")
	}
}

func TestLoadConfigWritesDefaultsOnFirstRun(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_RUNTIME_DIR", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.PoolSize != 4 {
		t.Errorf("got PoolSize=%d, want the default 4", cfg.PoolSize)
	}
	if _, err := os.Stat(filepath.Join(home, ".lash", "daemon.yaml")); err != nil {
		t.Errorf("expected daemon.yaml to be written, stat: %v", err)
	}

	cfg2, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig (second run): %v", err)
	}
	if cfg2.PoolSize != cfg.PoolSize {
		t.Errorf("got PoolSize=%d on reload, want %d", cfg2.PoolSize, cfg.PoolSize)
	}
}

func TestLoadConfigAppliesEnvOverride(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_RUNTIME_DIR", "")
	t.Setenv("LASH_POOL_SIZE", "9")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.PoolSize != 9 {
		t.Errorf("got PoolSize=%d, want the env override 9", cfg.PoolSize)
	}
}
