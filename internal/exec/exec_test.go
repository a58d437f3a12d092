package exec

import (
	"bufio"
	"io"
	"os"
	"testing"
	"time"

	"github.com/kazz187/lash/internal/state"
)

func newTestExecutorWithPipe(t *testing.T) (*Executor, *bufio.Reader) {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	ex := New(state.New())
	ex.Stdout = w
	ex.Stderr = w
	t.Cleanup(func() { w.Close() })
	return ex, bufio.NewReader(r)
}

func TestRunExternalCommandExitCodes(t *testing.T) {
	ex, _ := newTestExecutorWithPipe(t)
	code, err := ex.Run([]byte("true"))
	if err != nil || code != 0 {
		t.Fatalf("true returned code=%d err=%v", code, err)
	}
	code, err = ex.Run([]byte("false"))
	if err != nil || code != 1 {
		t.Fatalf("false returned code=%d err=%v", code, err)
	}
}

func TestRunAndOrShortCircuits(t *testing.T) {
	ex, _ := newTestExecutorWithPipe(t)
	code, err := ex.Run([]byte("false && true"))
	if err != nil || code != 1 {
		t.Fatalf("false && true returned code=%d err=%v", code, err)
	}
	code, err = ex.Run([]byte("false || true"))
	if err != nil || code != 0 {
		t.Fatalf("false || true returned code=%d err=%v", code, err)
	}
}

func TestRunPipelineExitIsLastStage(t *testing.T) {
	ex, _ := newTestExecutorWithPipe(t)
	code, err := ex.Run([]byte("false | true"))
	if err != nil || code != 0 {
		t.Fatalf("false | true returned code=%d err=%v, want 0 (last stage)", code, err)
	}
}

func TestRunPipefailUsesRightmostNonzero(t *testing.T) {
	ex, _ := newTestExecutorWithPipe(t)
	ex.RT.Opts.Pipefail = true
	code, err := ex.Run([]byte("false | true"))
	if err != nil || code != 1 {
		t.Fatalf("set -o pipefail; false | true returned code=%d err=%v, want 1", code, err)
	}
}

func TestRunNegatedPipeline(t *testing.T) {
	ex, _ := newTestExecutorWithPipe(t)
	code, err := ex.Run([]byte("! true"))
	if err != nil || code != 1 {
		t.Fatalf("! true returned code=%d err=%v, want 1", code, err)
	}
}

func TestRunErrexitStopsOnFailure(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	defer r.Close()
	ex := New(state.New())
	ex.Stdout, ex.Stderr = w, w
	ex.RT.Set("MARK", "0")
	code, err := ex.Run([]byte("set -e; false; MARK=1"))
	w.Close()
	if err != nil {
		t.Fatalf("Run returned err=%v, want nil (errexit surfaces via exit code)", err)
	}
	if code != 1 {
		t.Fatalf("got code=%d, want 1", code)
	}
	if got := ex.RT.Get("MARK"); got != "0" {
		t.Errorf("expected MARK to stay 0 after errexit aborted the list, got %q", got)
	}
}

func TestRunIfElifElse(t *testing.T) {
	ex, _ := newTestExecutorWithPipe(t)
	code, err := ex.Run([]byte("if false; then true; elif true; then false; else true; fi"))
	if err != nil || code != 1 {
		t.Fatalf("got code=%d err=%v, want 1 from the elif branch", code, err)
	}
}

func TestRunForLoopOverWords(t *testing.T) {
	ex, _ := newTestExecutorWithPipe(t)
	code, err := ex.Run([]byte("for x in a b c; do :; done"))
	if err != nil || code != 0 {
		t.Fatalf("got code=%d err=%v", code, err)
	}
	if got := ex.RT.Get("x"); got != "c" {
		t.Errorf("got x=%q, want c after the loop", got)
	}
}

func TestSubshellDoesNotLeakAssignments(t *testing.T) {
	ex, _ := newTestExecutorWithPipe(t)
	ex.RT.Set("FOO", "outer")
	code, err := ex.Run([]byte("(FOO=inner)"))
	if err != nil || code != 0 {
		t.Fatalf("got code=%d err=%v", code, err)
	}
	if got := ex.RT.Get("FOO"); got != "outer" {
		t.Errorf("expected subshell assignment not to leak, got FOO=%q", got)
	}
}

func TestRunBackgroundRegistersAndCompletesJob(t *testing.T) {
	ex, _ := newTestExecutorWithPipe(t)
	_, err := ex.Run([]byte("true &"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(ex.RT.Jobs) != 1 {
		t.Fatalf("expected one background job registered, got %d", len(ex.RT.Jobs))
	}
	j := ex.RT.Jobs[0]
	if j.CmdLine != "true" {
		t.Errorf("got CmdLine=%q, want %q", j.CmdLine, "true")
	}
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && j.State != state.JobDone {
		time.Sleep(time.Millisecond)
	}
	if j.State != state.JobDone {
		t.Fatal("expected the background job to finish within the deadline")
	}
	if j.ExitCode != 0 {
		t.Errorf("got ExitCode=%d, want 0", j.ExitCode)
	}
}

func TestCommandSubstitutionCapturesStdout(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	defer r.Close()
	ex := New(state.New())
	ex.Stdout, ex.Stderr = w, w
	code, runErr := ex.Run([]byte(`echo "result: $(echo hi)"`))
	w.Close()
	if runErr != nil || code != 0 {
		t.Fatalf("got code=%d err=%v", code, runErr)
	}
	out, _ := io.ReadAll(r)
	if string(out) != "result: hi\n" {
		t.Errorf("got %q, want %q", string(out), "result: hi\n")
	}
}

func TestCaseMatchesGlobPattern(t *testing.T) {
	ex, _ := newTestExecutorWithPipe(t)
	code, err := ex.Run([]byte(`case hello.txt in *.txt) true ;; *) false ;; esac`))
	if err != nil || code != 0 {
		t.Fatalf("got code=%d err=%v, want the *.txt arm to match", code, err)
	}
}
