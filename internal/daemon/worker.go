package daemon

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// WorkerProc is a pre-forked child process controlled over a
// socketpair. The child re-execs the daemon binary with a hidden
// --worker flag (see cmd/lashd) that makes it read SessionInit frames
// from fd 3 instead of a listener.
type WorkerProc struct {
	cmd      *exec.Cmd
	ctrl     *net.UnixConn
	cfg      *Config
}

// StartWorkerProc forks one worker child and wires its control fd.
func StartWorkerProc(cfg *Config) (*WorkerProc, error) {
	fds, err := syscall.Socketpair(syscall.AF_UNIX, syscall.SOCK_STREAM, 0)
	if err != nil {
		return nil, fmt.Errorf("socketpair: %w", err)
	}
	parentFile := os.NewFile(uintptr(fds[0]), "worker-ctrl-parent")
	childFile := os.NewFile(uintptr(fds[1]), "worker-ctrl-child")
	defer childFile.Close()

	self, err := os.Executable()
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(self, "--worker")
	cmd.ExtraFiles = []*os.File{childFile}
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()
	if err := cmd.Start(); err != nil {
		parentFile.Close()
		return nil, fmt.Errorf("start worker: %w", err)
	}

	conn, err := net.FileConn(parentFile)
	parentFile.Close()
	if err != nil {
		_ = cmd.Process.Kill()
		return nil, err
	}
	uconn, ok := conn.(*net.UnixConn)
	if !ok {
		_ = cmd.Process.Kill()
		return nil, fmt.Errorf("unexpected control conn type %T", conn)
	}

	return &WorkerProc{cmd: cmd, ctrl: uconn, cfg: cfg}, nil
}

// Dispatch sends the client's SessionInit plus the client's own
// connection (via SCM_RIGHTS) to the worker, then waits for its
// terminal result/error frame, bounded by the session timeout.
func (w *WorkerProc) Dispatch(ctx context.Context, init SessionInit, clientConn *net.UnixConn) (Frame, error) {
	clientFile, err := clientConn.File()
	if err != nil {
		return Frame{}, fmt.Errorf("get client fd: %w", err)
	}
	defer clientFile.Close()

	rights := syscall.UnixRights(int(clientFile.Fd()))
	payload, err := frameBytes(1, KindSessionInit, init)
	if err != nil {
		return Frame{}, err
	}
	if _, _, err := w.ctrl.WriteMsgUnix(payload, rights, nil); err != nil {
		return Frame{}, fmt.Errorf("send session_init: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, w.cfg.SessionTimeout)
	defer cancel()

	type res struct {
		f   Frame
		err error
	}
	done := make(chan res, 1)
	go func() {
		f, err := ReadFrame(w.ctrl)
		done <- res{f, err}
	}()

	select {
	case r := <-done:
		return r.f, r.err
	case <-ctx.Done():
		return Frame{}, fmt.Errorf("session timed out after %s", w.cfg.SessionTimeout)
	}
}

// Reset performs the hygiene reset a pooled worker needs between
// sessions: tell it to clear state and confirm it is still alive
// before returning it to the pool.
func (w *WorkerProc) Reset() bool {
	if err := WriteFrame(w.ctrl, 0, "reset", struct{}{}); err != nil {
		return false
	}
	f, err := ReadFrame(w.ctrl)
	return err == nil && f.Kind == "reset_ok"
}

// Shutdown signals the worker to finish its current session and exit,
// waiting up to grace before force-killing it, matching
// procexec.Run's graceful-then-forced shape.
func (w *WorkerProc) Shutdown(grace time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	_ = w.cmd.Process.Signal(os.Interrupt)
	done := make(chan struct{})
	go func() {
		_ = w.cmd.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		_ = w.cmd.Process.Kill()
		<-done
	}
	_ = w.ctrl.Close()
}

func frameBytes(id uint32, kind MessageKind, v any) ([]byte, error) {
	var buf netBuffer
	if err := WriteFrame(&buf, id, kind, v); err != nil {
		return nil, err
	}
	return buf.b, nil
}

// netBuffer is a tiny io.Writer sink so we can build the frame bytes
// once and hand them to WriteMsgUnix alongside the SCM_RIGHTS control
// message in a single syscall.
type netBuffer struct{ b []byte }

func (n *netBuffer) Write(p []byte) (int, error) {
	n.b = append(n.b, p...)
	return len(p), nil
}
