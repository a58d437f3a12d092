// Package daemon implements the persistent execution daemon: a
// Unix-socket listener dispatching sessions to a pool of pre-forked
// workers. The server's accept loop, optional health endpoint and
// runtime-directory watcher run in a conc/pool with WithCancelOnError,
// each wrapped in panicerr.SafeContext.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/kazz187/lash/pkg/panicerr"
)

// Server is the daemon process: owns the Unix listener, the worker
// pool, and (optionally) a loopback HTTP introspection endpoint.
type Server struct {
	cfg      *Config
	pool     *Pool
	listener *net.UnixListener
	health   *healthServer
}

// New creates a Server from cfg, loading the on-disk config when cfg
// is nil.
func New(cfg *Config) (*Server, error) {
	if cfg == nil {
		var err error
		cfg, err = LoadConfig()
		if err != nil {
			return nil, fmt.Errorf("load daemon config: %w", err)
		}
	}
	return &Server{cfg: cfg, pool: NewPool(cfg)}, nil
}

// Start binds the socket, writes the pid file, pre-forks the worker
// pool, and serves until ctx is canceled: a conc pool running the
// listener accept loop, the runtime-directory watcher, and (if
// configured) a loopback HTTP server, all panic-guarded and canceled
// together. The worker pool's replenish loop is started by Pool.Start
// as a plain goroutine outside that conc pool.
func (s *Server) Start(ctx context.Context) error {
	if err := os.MkdirAll(filepathDir(s.cfg.SocketPath), 0700); err != nil {
		return fmt.Errorf("create runtime dir: %w", err)
	}
	_ = os.Remove(s.cfg.SocketPath)

	addr, err := net.ResolveUnixAddr("unix", s.cfg.SocketPath)
	if err != nil {
		return err
	}
	ln, err := net.ListenUnix("unix", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.SocketPath, err)
	}
	if err := os.Chmod(s.cfg.SocketPath, 0600); err != nil {
		ln.Close()
		return err
	}
	s.listener = ln

	if err := os.WriteFile(s.cfg.PidPath(), []byte(fmt.Sprintf("%d\n", os.Getpid())), 0600); err != nil {
		ln.Close()
		return err
	}
	defer os.Remove(s.cfg.PidPath())
	defer os.Remove(s.cfg.SocketPath)

	fmt.Printf("lashd listening on %s\n", s.cfg.SocketPath)

	p := pool.New().WithContext(ctx).WithCancelOnError()

	if err := s.pool.Start(ctx); err != nil {
		ln.Close()
		return err
	}
	defer s.pool.Shutdown(30 * time.Second)

	p.Go(panicerr.SafeContext(s.acceptLoop))

	if s.cfg.HealthAddr != "" {
		s.health = newHealthServer(s.cfg.HealthAddr, s.pool)
		p.Go(panicerr.SafeContext(s.health.Start))
	}

	p.Go(panicerr.SafeContext(s.watchRuntimeDir))

	return p.Wait()
}

func filepathDir(p string) string {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' {
			return p[:i]
		}
	}
	return "."
}

func (s *Server) acceptLoop(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.listener.Close()
	}()
	for {
		conn, err := s.listener.AcceptUnix()
		if err != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		go panicerr.Safe(func() error { return s.handleConn(ctx, conn) })()
	}
}

// handleConn reads session_init, acquires a worker, dispatches the
// session, resets and releases the worker, and writes the terminal
// result/error frame back to the client.
func (s *Server) handleConn(ctx context.Context, conn *net.UnixConn) error {
	defer conn.Close()

	frame, err := ReadFrame(conn)
	if err != nil {
		return fmt.Errorf("read session_init: %w", err)
	}
	if frame.Kind != KindSessionInit {
		_ = WriteFrame(conn, frame.ID, KindError, ErrorMessage{Message: "expected session_init"})
		return nil
	}
	var init SessionInit
	if err := json.Unmarshal(frame.Payload, &init); err != nil {
		_ = WriteFrame(conn, frame.ID, KindError, ErrorMessage{Message: err.Error()})
		return nil
	}

	w, err := s.pool.Acquire()
	if err != nil {
		_ = WriteFrame(conn, frame.ID, KindError, ErrorMessage{Message: err.Error()})
		return nil
	}

	result, dispatchErr := w.proc.Dispatch(ctx, init, conn)
	healthy := dispatchErr == nil
	if healthy && w.proc.Reset() {
		s.pool.Release(w, true)
	} else {
		s.pool.Release(w, false)
	}

	if dispatchErr != nil {
		return WriteFrame(conn, frame.ID, KindError, ErrorMessage{Message: dispatchErr.Error()})
	}
	return WriteFrame(conn, frame.ID, result.Kind, json.RawMessage(result.Payload))
}
