package exec

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/kazz187/lash/internal/ast"
	"github.com/kazz187/lash/internal/expand"
	"github.com/kazz187/lash/internal/shellerr"
	"github.com/kazz187/lash/internal/state"
	"github.com/kazz187/lash/pkg/color"
	"github.com/kazz187/lash/pkg/shellfmt"
)

// execSimple implements simple command evaluation: assignments,
// expansion, redirection setup, then dispatch.
func (ex *Executor) execSimple(c ast.SimpleCommand) (int, error) {
	assigns, err := ex.expandAssignments(c.Assignments)
	if err != nil {
		return 1, err
	}

	var words []string
	for _, w := range c.Words {
		fs, err := ex.Expander.Fields(w, expand.ModeNormal)
		if err != nil {
			return 1, err
		}
		words = append(words, fs...)
	}

	if len(words) == 0 {
		// Assignment-only command: apply to current scope, return 0.
		for _, a := range assigns {
			if err := ex.RT.Set(a.name, a.value); err != nil {
				return 1, err
			}
		}
		return 0, nil
	}

	restore, err := ex.applyRedirects(c.Redirects)
	if err != nil {
		return 1, err
	}
	defer restore()

	name := words[0]
	args := words[1:]

	// `command` prefix bypasses function lookup.
	bypassFunc := false
	for name == "command" && len(args) > 0 {
		bypassFunc = true
		name = args[0]
		args = args[1:]
	}

	// Assignments on a command line (not assignment-only) are scoped to
	// that command's environment only, restored after it runs, unless
	// it's a special builtin, whose assignments persist in the current
	// shell (POSIX special-builtin semantics).
	var savedEnv []savedVar
	isSpecial := specialBuiltins[name]
	for _, a := range assigns {
		if !isSpecial {
			savedEnv = append(savedEnv, ex.tempSet(a.name, a.value))
		} else if err := ex.RT.Set(a.name, a.value); err != nil {
			return 1, err
		}
	}
	defer ex.restoreVars(savedEnv)

	if ex.RT.Opts.Xtrace {
		fmt.Fprintln(ex.Stderr, color.Colorize("+", color.BrightBlack), shellfmt.Line(words))
	}

	// dispatch order: special builtins, functions, regular builtins, PATH
	if b, ok := ex.Builtins[name]; ok && isSpecial {
		return b(ex, args)
	}
	if !bypassFunc {
		if fn, ok := ex.RT.Functions[name]; ok {
			return ex.callFunction(fn, args)
		}
	}
	if b, ok := ex.Builtins[name]; ok {
		return b(ex, args)
	}
	return ex.execExternal(name, args)
}

type savedVar struct {
	name    string
	existed bool
	val     state.Var
}

func (ex *Executor) tempSet(name, value string) savedVar {
	sv := savedVar{name: name}
	if v, ok := ex.RT.Lookup(name); ok {
		sv.existed = true
		sv.val = *v
	}
	_ = ex.RT.Set(name, value)
	if v, ok := ex.RT.Lookup(name); ok {
		v.Exported = true
	}
	return sv
}

func (ex *Executor) restoreVars(saved []savedVar) {
	for i := len(saved) - 1; i >= 0; i-- {
		sv := saved[i]
		if sv.existed {
			if v, ok := ex.RT.Lookup(sv.name); ok {
				*v = sv.val
			}
		} else {
			_ = ex.RT.Unset(sv.name)
		}
	}
}

type assignPair struct{ name, value string }

func (ex *Executor) expandAssignments(as []ast.Assignment) ([]assignPair, error) {
	var out []assignPair
	for _, a := range as {
		fs, err := ex.Expander.Fields(a.Value, expand.ModeAssignment)
		if err != nil {
			return nil, err
		}
		val := ""
		if len(fs) > 0 {
			val = fs[0]
		}
		out = append(out, assignPair{a.Name, val})
	}
	return out, nil
}

// callFunction pushes a new scope frame, runs the function body, and
// catches a Return control signal as the function's exit code.
func (ex *Executor) callFunction(fn *ast.FunctionDef, args []string) (int, error) {
	ex.RT.PushFrame(args)
	ex.RT.FunctionDepth++
	defer func() {
		ex.RT.FunctionDepth--
		ex.RT.PopFrame()
	}()
	code, err := ex.execCommand(fn.Body)
	if ret, ok := err.(state.Return); ok {
		return ret.Code, nil
	}
	return code, err
}

// execExternal forks/execs a resolved PATH executable. It sets no
// os/exec.Cmd.SysProcAttr, so every child, including pipeline stages
// and background jobs, starts in the shell's own process group.
func (ex *Executor) execExternal(name string, args []string) (int, error) {
	path, err := ex.lookPath(name)
	if err != nil {
		fmt.Fprintf(ex.Stderr, "%s: command not found\n", name)
		return 127, nil
	}
	if info, statErr := os.Stat(path); statErr == nil {
		if info.IsDir() {
			fmt.Fprintf(ex.Stderr, "%s: is a directory\n", name)
			return 126, nil
		}
		if info.Mode().Perm()&0111 == 0 {
			fmt.Fprintf(ex.Stderr, "%s: permission denied\n", name)
			return 126, nil
		}
	}

	cmd := exec.Command(path, args...)
	cmd.Args[0] = name
	cmd.Stdin, cmd.Stdout, cmd.Stderr = ex.Stdin, ex.Stdout, ex.Stderr
	cmd.Dir = ex.RT.WorkingDir
	cmd.Env = ex.RT.ExportedEnviron()

	runErr := cmd.Run()
	if runErr == nil {
		return 0, nil
	}
	if exitErr, ok := runErr.(*exec.ExitError); ok {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return 128 + int(ws.Signal()), nil
		}
		return exitErr.ExitCode(), nil
	}
	return 1, &shellerr.Redirection{Target: name, Err: runErr}
}

func (ex *Executor) lookPath(name string) (string, error) {
	if strings.Contains(name, "/") {
		return name, nil
	}
	pathEnv := ex.RT.Get("PATH")
	for _, dir := range strings.Split(pathEnv, ":") {
		if dir == "" {
			continue
		}
		cand := filepath.Join(dir, name)
		if info, err := os.Stat(cand); err == nil && !info.IsDir() {
			return cand, nil
		}
	}
	return "", &shellerr.CommandNotFound{Name: name}
}

// pathMatch matches a case/glob pattern against an already-expanded
// scrutinee string using the same glob dialect as pathname expansion.
// filepath.Match's single-segment semantics are what we want here
// since case patterns never span path separators.
func pathMatch(pattern, s string) (bool, error) {
	ok, err := filepath.Match(pattern, s)
	if err != nil {
		return s == pattern, nil
	}
	return ok, nil
}
