// Package daemonclient is the shell-side counterpart to the daemon:
// probe the daemon socket, forward a session, or fall back to
// in-process execution with no user-visible difference.
package daemonclient

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/kazz187/lash/internal/daemon"
)

// ProbeTimeout bounds the connect attempt; on any error beyond this
// the caller should fall back to direct execution rather than surface
// a user-visible failure.
const ProbeTimeout = 200 * time.Millisecond

// TryDaemon attempts to run argv via the daemon at socketPath. ok is
// false whenever the caller should fall back to in-process execution
// no socket, connect timeout, or any protocol error.
func TryDaemon(socketPath string, argv []string, stdinMode daemon.StdinMode) (exitCode int, stdout, stderr []byte, ok bool) {
	conn, err := net.DialTimeout("unix", socketPath, ProbeTimeout)
	if err != nil {
		return 0, nil, nil, false
	}
	uconn := conn.(*net.UnixConn)
	defer uconn.Close()

	cwd, _ := os.Getwd()
	init := daemon.SessionInit{
		Cwd:       cwd,
		Env:       envMap(),
		Argv:      argv,
		StdinMode: stdinMode,
	}

	if err := daemon.WriteFrame(uconn, 1, daemon.KindSessionInit, init); err != nil {
		return 0, nil, nil, false
	}

	frame, err := daemon.ReadFrame(uconn)
	if err != nil {
		return 0, nil, nil, false
	}
	switch frame.Kind {
	case daemon.KindResult:
		var result daemon.ExecutionResult
		if err := json.Unmarshal(frame.Payload, &result); err != nil {
			return 0, nil, nil, false
		}
		return result.ExitCode, result.Stdout, result.Stderr, true
	case daemon.KindError:
		var em daemon.ErrorMessage
		_ = json.Unmarshal(frame.Payload, &em)
		fmt.Fprintln(os.Stderr, "lashd:", em.Message)
		return 1, nil, nil, true
	default:
		return 0, nil, nil, false
	}
}

func envMap() map[string]string {
	m := make(map[string]string)
	for _, kv := range os.Environ() {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				m[kv[:i]] = kv[i+1:]
				break
			}
		}
	}
	return m
}
