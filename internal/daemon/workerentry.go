package daemon

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"syscall"

	"github.com/kazz187/lash/internal/builtin"
	"github.com/kazz187/lash/internal/exec"
	"github.com/kazz187/lash/internal/state"
)

// ServeWorker is the worker-side counterpart to WorkerProc: it reads
// control frames from fd 3 (the socketpair end StartWorkerProc wired
// up) and serves sessions and hygiene-reset requests until the parent
// closes the control socket, then returns.
// cmd/lashd's --worker mode calls this directly instead of
// Server.Start.
func ServeWorker() error {
	ctrlFile := os.NewFile(3, "worker-ctrl")
	if ctrlFile == nil {
		return fmt.Errorf("worker: missing control fd 3")
	}
	conn, err := net.FileConn(ctrlFile)
	if err != nil {
		return fmt.Errorf("worker: control conn: %w", err)
	}
	ctrl, ok := conn.(*net.UnixConn)
	if !ok {
		return fmt.Errorf("worker: unexpected control conn type %T", conn)
	}
	defer ctrl.Close()

	root, _ := os.Getwd()
	rt := state.New()

	for {
		frame, clientFd, err := readFrameWithRights(ctrl)
		if err != nil {
			return nil // parent closed the control socket; exit quietly
		}
		switch frame.Kind {
		case KindSessionInit:
			var init SessionInit
			if err := json.Unmarshal(frame.Payload, &init); err != nil {
				_ = WriteFrame(ctrl, frame.ID, KindError, ErrorMessage{Message: err.Error()})
				continue
			}
			result := runSession(rt, init, clientFd)
			_ = WriteFrame(ctrl, frame.ID, KindResult, result)
		case "reset":
			rt.HygieneReset(root)
			_ = WriteFrame(ctrl, frame.ID, "reset_ok", struct{}{})
		default:
			_ = WriteFrame(ctrl, frame.ID, KindError, ErrorMessage{Message: "unknown message kind"})
		}
	}
}

// runSession initializes a fresh Runtime from SessionInit and runs the
// requested argv against the passed client fd.
func runSession(rt *state.Runtime, init SessionInit, clientFd *os.File) ExecutionResult {
	defer clientFd.Close()

	rt.WorkingDir = init.Cwd
	for k, v := range init.Env {
		_ = rt.Set(k, v)
		_ = rt.Export(k)
	}

	var stdin *os.File
	switch init.StdinMode {
	case StdinNull:
		stdin, _ = os.Open(os.DevNull)
		defer stdin.Close()
	default:
		stdin = clientFd
	}

	var outBuf, errBuf bytes.Buffer
	outR, outW, _ := os.Pipe()
	errR, errW, _ := os.Pipe()
	go func() { outBuf.ReadFrom(outR) }()
	go func() { errBuf.ReadFrom(errR) }()

	ex := exec.New(rt)
	ex.Stdin, ex.Stdout, ex.Stderr = stdin, outW, errW
	builtin.Register(ex)

	var src []byte
	if len(init.Argv) >= 2 && init.Argv[0] == "-c" {
		src = []byte(init.Argv[1])
		// Argv[2], when present, stands for $0; the rest are positionals.
		var positional []string
		if len(init.Argv) > 3 {
			positional = init.Argv[3:]
		}
		rt.SetPositional(positional)
	} else if len(init.Argv) >= 1 {
		data, err := os.ReadFile(init.Argv[0])
		if err != nil {
			outW.Close()
			errW.Close()
			return ExecutionResult{ExitCode: 127, Stderr: []byte(err.Error())}
		}
		src = data
		rt.SetPositional(init.Argv[1:])
	}

	code, _ := ex.Run(src)
	outW.Close()
	errW.Close()

	return ExecutionResult{ExitCode: code, Stdout: outBuf.Bytes(), Stderr: errBuf.Bytes()}
}

// readFrameWithRights reads one frame and, if an SCM_RIGHTS ancillary
// message accompanies it (the client connection fd), extracts the
// first fd into an *os.File.
func readFrameWithRights(ctrl *net.UnixConn) (Frame, *os.File, error) {
	header := make([]byte, 8)
	oob := make([]byte, syscall.CmsgSpace(4))
	n, oobn, _, _, err := ctrl.ReadMsgUnix(header, oob)
	if err != nil {
		return Frame{}, nil, err
	}
	if n < 8 {
		return Frame{}, nil, fmt.Errorf("short frame header")
	}
	length := le32(header[0:4])
	id := le32(header[4:8])
	body := make([]byte, length-4)
	if _, err := readFullUnix(ctrl, body); err != nil {
		return Frame{}, nil, err
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Frame{}, nil, err
	}

	var clientFile *os.File
	if oobn > 0 {
		scms, err := syscall.ParseSocketControlMessage(oob[:oobn])
		if err == nil && len(scms) > 0 {
			fds, err := syscall.ParseUnixRights(&scms[0])
			if err == nil && len(fds) > 0 {
				clientFile = os.NewFile(uintptr(fds[0]), "client")
			}
		}
	}
	return Frame{ID: id, Kind: env.Kind, Payload: env.Payload}, clientFile, nil
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func readFullUnix(conn *net.UnixConn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
