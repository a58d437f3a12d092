// Package exec walks the AST and produces exit codes: simple commands,
// pipelines, control flow, subshells, and the function call protocol.
package exec

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kazz187/lash/internal/ast"
	"github.com/kazz187/lash/internal/expand"
	"github.com/kazz187/lash/internal/parser"
	"github.com/kazz187/lash/internal/shellerr"
	"github.com/kazz187/lash/internal/state"
)

// specialBuiltins get first dispatch priority and their errors are
// fatal under errexit, per POSIX's special-builtin rules.
var specialBuiltins = map[string]bool{
	":": true, ".": true, "eval": true, "exec": true, "exit": true,
	"export": true, "readonly": true, "set": true, "shift": true,
	"trap": true, "unset": true, "return": true, "break": true, "continue": true,
}

// Builtin is one builtin command implementation (internal/builtin
// registers the concrete set into an Executor).
type Builtin func(ex *Executor, args []string) (int, error)

// Executor ties a Runtime to the three standard streams and the
// builtin table; it is the single owner that borrows the Runtime
// mutably during a call.
type Executor struct {
	RT       *state.Runtime
	Expander *expand.Expander

	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File

	Builtins map[string]Builtin

	// Fds holds any additional open file descriptors beyond 0/1/2
	// established by redirections, keyed by fd number.
	Fds map[int]*os.File
}

// New builds an Executor over rt wired to the process's own stdio.
func New(rt *state.Runtime) *Executor {
	ex := &Executor{
		RT:       rt,
		Stdin:    os.Stdin,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
		Builtins: make(map[string]Builtin),
		Fds:      make(map[int]*os.File),
	}
	ex.Expander = &expand.Expander{RT: rt, RunCmdSub: ex.runCommandSub}
	return ex
}

// Run parses the entire input before executing any of it, rather than
// streaming statement-by-statement.
func (ex *Executor) Run(src []byte) (int, error) {
	prog, err := parser.ParseProgram(src, ex.lookupAlias)
	if err != nil {
		fmt.Fprintln(ex.Stderr, err)
		return int(shellerr.ExitSyntaxError), nil
	}
	code, err := ex.ExecProgram(prog)
	if exit, ok := err.(state.Exit); ok {
		return exit.Code, nil
	}
	return code, err
}

func (ex *Executor) lookupAlias(name string) (string, bool) {
	v, ok := ex.RT.Aliases[name]
	return v, ok
}

// ExecProgram runs a whole program, honoring EXIT traps.
func (ex *Executor) ExecProgram(prog *ast.Program) (code int, err error) {
	code, err = ex.execList(prog.Body)
	if exitTrap, ok := ex.RT.Traps["EXIT"]; ok && exitTrap != "" {
		ex.runTrapCode(exitTrap)
	}
	return code, err
}

func (ex *Executor) execList(l ast.List) (int, error) {
	code := 0
	for _, item := range l.Items {
		if item.Sep == ast.SeparatorBackground {
			ex.runBackground(item.AndOr)
			code = 0
			continue
		}
		c, err := ex.execAndOr(item.AndOr)
		code = c
		if err != nil {
			return code, err
		}
	}
	return code, nil
}

func (ex *Executor) execAndOr(ao ast.AndOr) (int, error) {
	code, err := ex.execPipeline(ao.First)
	if err != nil {
		return code, err
	}
	for _, tail := range ao.Rest {
		if tail.Op == ast.OpAnd && code != 0 {
			continue
		}
		if tail.Op == ast.OpOr && code == 0 {
			continue
		}
		code, err = ex.execPipeline(tail.Pipeline)
		if err != nil {
			return code, err
		}
	}
	return code, nil
}

// errexitApplies reports whether the current command's exit status,
// if non-zero, should propagate as a shell Exit under `set -e`. The
// caller (execList/execAndOr) marks non-terminal positions by simply
// not calling this for conditions of if/while/until or non-final
// stages of && / ||, which are handled structurally above instead of
// via a flag, matching 's rule precisely.
func (ex *Executor) errexitApplies(code int) bool {
	return ex.RT.Opts.Errexit && code != 0
}

func (ex *Executor) execPipeline(pl ast.Pipeline) (int, error) {
	var code int
	var err error
	if len(pl.Stages) == 1 {
		code, err = ex.execCommand(pl.Stages[0])
	} else {
		code, err = ex.execMultiStage(pl.Stages)
	}
	if err != nil {
		return code, err
	}
	if pl.Negated {
		if code == 0 {
			code = 1
		} else {
			code = 0
		}
	}
	ex.RT.LastExitCode = code
	if ex.errexitApplies(code) {
		return code, state.Exit{Code: code}
	}
	return code, nil
}

// execMultiStage wires N-1 pipes across N commands. All stages start
// before statuses are collected; exit status is the last stage's, or
// with pipefail the rightmost non-zero.
func (ex *Executor) execMultiStage(stages []ast.Command) (int, error) {
	n := len(stages)
	readers := make([]*os.File, n)
	writers := make([]*os.File, n)
	for i := 0; i < n-1; i++ {
		r, w, err := os.Pipe()
		if err != nil {
			return 1, &shellerr.Redirection{Target: "pipe", Err: err}
		}
		readers[i+1] = r
		writers[i] = w
	}
	codes := make([]int, n)
	errs := make([]error, n)
	done := make(chan int, n)
	for i := 0; i < n; i++ {
		i := i
		stdin, stdout := ex.Stdin, ex.Stdout
		if readers[i] != nil {
			stdin = readers[i]
		}
		if writers[i] != nil {
			stdout = writers[i]
		}
		go func() {
			sub := ex.subExecutor(stdin, stdout, ex.Stderr)
			codes[i], errs[i] = sub.execCommand(stages[i])
			if writers[i] != nil {
				writers[i].Close()
			}
			if readers[i] != nil {
				readers[i].Close()
			}
			done <- i
		}()
	}
	for i := 0; i < n; i++ {
		<-done
	}
	for _, e := range errs {
		if e != nil {
			return codes[n-1], e
		}
	}
	if ex.RT.Opts.Pipefail {
		for i := n - 1; i >= 0; i-- {
			if codes[i] != 0 {
				return codes[i], nil
			}
		}
		return 0, nil
	}
	return codes[n-1], nil
}

// subExecutor shares the Runtime (pipeline stages of a single process
// still observe the same shell state per POSIX; only stdio differs)
// but gets its own stdio triple.
func (ex *Executor) subExecutor(in, out, errw *os.File) *Executor {
	sub := *ex
	sub.Stdin, sub.Stdout, sub.Stderr = in, out, errw
	sub.Expander = &expand.Expander{RT: ex.RT, RunCmdSub: sub.runCommandSub}
	return &sub
}

// runBackground registers a job in the runtime's job table before
// starting the and_or chain, so `jobs` can list it even before the
// goroutine below has produced its first exit code.
func (ex *Executor) runBackground(ao ast.AndOr) {
	j := ex.RT.AllocJob(0, commandLine(ao))
	go func() {
		code, _ := ex.execAndOr(ao)
		j.State = state.JobDone
		j.ExitCode = code
	}()
}

// commandLine reconstructs a best-effort display string for a job's
// entry in `jobs`, from the first stage of the first pipeline only
// (POSIX shells show the full source text here; this walks only as
// deep as the common `cmd arg1 arg2 &` case needs).
func commandLine(ao ast.AndOr) string {
	if len(ao.First.Stages) == 0 {
		return ""
	}
	sc, ok := ao.First.Stages[0].(ast.SimpleCommand)
	if !ok {
		return ""
	}
	words := make([]string, len(sc.Words))
	for i, w := range sc.Words {
		words[i] = w.Lit
	}
	return strings.Join(words, " ")
}

func (ex *Executor) execCommand(cmd ast.Command) (int, error) {
	switch c := cmd.(type) {
	case ast.SimpleCommand:
		return ex.execSimple(c)
	case ast.Subshell:
		return ex.execSubshell(c)
	case ast.Group:
		return ex.execList(c.Body)
	case ast.If:
		return ex.execIf(c)
	case ast.While:
		return ex.execWhile(c)
	case ast.For:
		return ex.execFor(c)
	case ast.Case:
		return ex.execCase(c)
	case ast.FunctionDef:
		ex.RT.Functions[c.Name] = &c
		return 0, nil
	}
	return 1, &shellerr.Internal{Msg: fmt.Sprintf("unknown command node %T", cmd)}
}

// execSubshell models `( ... )` as state isolation: child Runtime is a
// shallow-copied snapshot so the parent is never mutated.
func (ex *Executor) execSubshell(s ast.Subshell) (int, error) {
	childRT := ex.snapshotRuntime()
	sub := New(childRT)
	sub.Stdin, sub.Stdout, sub.Stderr = ex.Stdin, ex.Stdout, ex.Stderr
	sub.Builtins = ex.Builtins
	code, err := sub.execList(s.Body)
	if exit, ok := err.(state.Exit); ok {
		return exit.Code, nil
	}
	return code, err
}

func (ex *Executor) snapshotRuntime() *state.Runtime {
	clone := *ex.RT
	clone.Frames = make([]*state.Frame, len(ex.RT.Frames))
	for i, f := range ex.RT.Frames {
		nf := &state.Frame{Vars: make(map[string]*state.Var, len(f.Vars)), Positional: f.Positional}
		for k, v := range f.Vars {
			vv := *v
			nf.Vars[k] = &vv
		}
		clone.Frames[i] = nf
	}
	clone.Functions = make(map[string]*ast.FunctionDef, len(ex.RT.Functions))
	for k, v := range ex.RT.Functions {
		clone.Functions[k] = v
	}
	clone.Aliases = make(map[string]string, len(ex.RT.Aliases))
	for k, v := range ex.RT.Aliases {
		clone.Aliases[k] = v
	}
	clone.Traps = make(map[string]string, len(ex.RT.Traps))
	for k, v := range ex.RT.Traps {
		clone.Traps[k] = v
	}
	return &clone
}

func (ex *Executor) execIf(n ast.If) (int, error) {
	code, err := ex.execList(n.Cond)
	if err != nil {
		return code, err
	}
	if code == 0 {
		return ex.execList(n.Then)
	}
	for _, elif := range n.Elifs {
		c, err := ex.execList(elif.Cond)
		if err != nil {
			return c, err
		}
		if c == 0 {
			return ex.execList(elif.Then)
		}
	}
	if n.Else != nil {
		return ex.execList(*n.Else)
	}
	return 0, nil
}

func (ex *Executor) execWhile(n ast.While) (int, error) {
	code := 0
	for {
		condCode, err := ex.execList(n.Cond)
		if err != nil {
			return condCode, err
		}
		test := condCode == 0
		if n.Until {
			test = !test
		}
		if !test {
			return code, nil
		}
		bc, err := ex.execList(n.Body)
		code = bc
		if brk, ok := err.(state.Break); ok {
			if brk.N > 1 {
				return code, state.Break{N: brk.N - 1}
			}
			return code, nil
		}
		if cont, ok := err.(state.Continue); ok {
			if cont.N > 1 {
				return code, state.Continue{N: cont.N - 1}
			}
			continue
		}
		if err != nil {
			return code, err
		}
	}
}

func (ex *Executor) execFor(n ast.For) (int, error) {
	words := n.Words
	var items []string
	if words == nil {
		items = ex.RT.Positional()
	} else {
		for _, w := range words {
			fs, err := ex.Expander.Fields(w, expand.ModeNormal)
			if err != nil {
				return 1, err
			}
			items = append(items, fs...)
		}
	}
	code := 0
	for _, item := range items {
		if err := ex.RT.Set(n.Name, item); err != nil {
			return 1, err
		}
		bc, err := ex.execList(n.Body)
		code = bc
		if brk, ok := err.(state.Break); ok {
			if brk.N > 1 {
				return code, state.Break{N: brk.N - 1}
			}
			return code, nil
		}
		if cont, ok := err.(state.Continue); ok {
			if cont.N > 1 {
				return code, state.Continue{N: cont.N - 1}
			}
			continue
		}
		if err != nil {
			return code, err
		}
	}
	return code, nil
}

func (ex *Executor) execCase(n ast.Case) (int, error) {
	fs, err := ex.Expander.Fields(n.Scrutinee, expand.ModeNormal)
	if err != nil {
		return 1, err
	}
	scrut := strings.Join(fs, " ")
	for _, arm := range n.Arms {
		for _, pat := range arm.Patterns {
			pfs, err := ex.Expander.Fields(pat, expand.ModeAssignment)
			if err != nil {
				return 1, err
			}
			if len(pfs) == 0 {
				continue
			}
			if ok, _ := matchGlob(pfs[0], scrut); ok {
				return ex.execList(arm.Body)
			}
		}
	}
	return 0, nil
}

func matchGlob(pattern, s string) (bool, error) {
	return pathMatch(pattern, s)
}

// runCommandSub executes src in a child Runtime snapshot with its
// stdout captured, the fourth step of the expansion pipeline.
func (ex *Executor) runCommandSub(src string) (string, int, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return "", 1, err
	}
	childRT := ex.snapshotRuntime()
	sub := New(childRT)
	sub.Builtins = ex.Builtins
	sub.Stdin, sub.Stdout, sub.Stderr = ex.Stdin, w, ex.Stderr
	sub.Expander = &expand.Expander{RT: childRT, RunCmdSub: sub.runCommandSub}

	outCh := make(chan string, 1)
	go func() {
		buf, _ := io.ReadAll(r)
		outCh <- string(buf)
	}()

	code, err := sub.Run([]byte(src))
	w.Close()
	out := <-outCh
	r.Close()
	return out, code, err
}

func (ex *Executor) runTrapCode(code string) {
	_, _ = ex.Run([]byte(code))
}
