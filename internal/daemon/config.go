package daemon

import (
	"bytes"
	"net"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds the daemon's tunables: pool size, idle timeout, socket
// path, session timeout. Loaded from ~/.lash/daemon.yaml, then layered
// with LASH_-prefixed env overrides via envconfig.
type Config struct {
	SocketPath     string        `yaml:"socket_path" envconfig:"SOCKET"`
	PoolSize       int           `yaml:"pool_size" envconfig:"POOL_SIZE"`
	IdleWorkerTTL  time.Duration `yaml:"idle_worker_ttl" envconfig:"IDLE_WORKER_TTL"`
	SessionTimeout time.Duration `yaml:"session_timeout" envconfig:"SESSION_TIMEOUT"`
	HealthAddr     string        `yaml:"health_addr" envconfig:"HEALTH_ADDR"`
}

// DefaultConfig returns sane defaults, applied before file/env
// layering.
func DefaultConfig() *Config {
	return &Config{
		SocketPath:     defaultSocketPath(),
		PoolSize:       4,
		IdleWorkerTTL:  10 * time.Minute,
		SessionTimeout: 5 * time.Minute,
		HealthAddr:     "",
	}
}

func defaultSocketPath() string {
	if xdg := os.Getenv("XDG_RUNTIME_DIR"); xdg != "" {
		return filepath.Join(xdg, "lash", "daemon.sock")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".lash", "daemon.sock")
}

func configDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".lash")
}

func configPath() string {
	return filepath.Join(configDir(), "daemon.yaml")
}

// LoadConfig loads ~/.lash/daemon.yaml, creating it with defaults if
// missing, then applies LASH_-prefixed env var overrides.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()
	path := configPath()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if mkErr := os.MkdirAll(configDir(), 0700); mkErr != nil {
			return nil, mkErr
		}
		out, mErr := yaml.Marshal(cfg)
		if mErr != nil {
			return nil, mErr
		}
		if wErr := os.WriteFile(path, out, 0600); wErr != nil {
			return nil, wErr
		}
	} else if err != nil {
		return nil, err
	} else if yErr := yaml.Unmarshal(data, cfg); yErr != nil {
		return nil, yErr
	}

	if err := envconfig.Process("lash", cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the loaded config is usable before the daemon binds
// anything, mirroring TaskDefinition.Validate()'s pre-use check.
func (c *Config) Validate() error {
	if c.SocketPath == "" {
		c.SocketPath = defaultSocketPath()
	}
	if c.PoolSize <= 0 {
		c.PoolSize = 1
	}
	if c.SessionTimeout <= 0 {
		c.SessionTimeout = 5 * time.Minute
	}
	return nil
}

func (c *Config) PidPath() string {
	return filepath.Join(filepath.Dir(c.SocketPath), "daemon.pid")
}

// ReadPid reads the pid file written by Server.Start.
func ReadPid(c *Config) (int, bool) {
	data, err := os.ReadFile(c.PidPath())
	if err != nil {
		return 0, false
	}
	pid := 0
	for _, b := range bytes.TrimSpace(data) {
		if b < '0' || b > '9' {
			return 0, false
		}
		pid = pid*10 + int(b-'0')
	}
	if pid == 0 {
		return 0, false
	}
	return pid, true
}

// IsRunning probes the socket with a short dial timeout rather than
// trusting the pid file alone, since a stale pid can be reused by an
// unrelated process.
func IsRunning(c *Config) bool {
	pid, ok := ReadPid(c)
	if !ok {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		return false
	}
	conn, err := net.DialTimeout("unix", c.SocketPath, 200*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
