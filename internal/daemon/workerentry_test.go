package daemon

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kazz187/lash/internal/state"
)

func devNullFile(t *testing.T) *os.File {
	t.Helper()
	f, err := os.Open(os.DevNull)
	if err != nil {
		t.Fatalf("open %s: %v", os.DevNull, err)
	}
	return f
}

func TestRunSessionExecutesInlineScript(t *testing.T) {
	rt := state.New()
	init := SessionInit{
		Cwd:       t.TempDir(),
		Argv:      []string{"-c", "echo hi"},
		StdinMode: StdinNull,
	}
	result := runSession(rt, init, devNullFile(t))
	if result.ExitCode != 0 {
		t.Fatalf("got ExitCode=%d, want 0 (stderr=%q)", result.ExitCode, string(result.Stderr))
	}
	if string(result.Stdout) != "hi\n" {
		t.Errorf("got stdout=%q, want %q", string(result.Stdout), "hi\n")
	}
}

func TestRunSessionSetsPositionalFromDashC(t *testing.T) {
	rt := state.New()
	init := SessionInit{
		Cwd:       t.TempDir(),
		Argv:      []string{"-c", "echo $1", "scriptname", "argone"},
		StdinMode: StdinNull,
	}
	result := runSession(rt, init, devNullFile(t))
	if result.ExitCode != 0 {
		t.Fatalf("got ExitCode=%d, stderr=%q", result.ExitCode, string(result.Stderr))
	}
	if string(result.Stdout) != "argone\n" {
		t.Errorf("got stdout=%q, want %q", string(result.Stdout), "argone\n")
	}
}

func TestRunSessionMissingScriptFileFails(t *testing.T) {
	rt := state.New()
	init := SessionInit{
		Cwd:       t.TempDir(),
		Argv:      []string{filepath.Join(t.TempDir(), "does-not-exist.sh")},
		StdinMode: StdinNull,
	}
	result := runSession(rt, init, devNullFile(t))
	if result.ExitCode != 127 {
		t.Fatalf("got ExitCode=%d, want 127", result.ExitCode)
	}
}
