// Package state holds the Runtime: everything a single executor
// instance owns (variable scopes, positional parameters, functions,
// aliases, options, traps, last exit code, working directory,
// permanent redirections, job table).
package state

import (
	"os"
	"sync"

	"github.com/kazz187/lash/internal/ast"
	"github.com/kazz187/lash/internal/shellerr"
)

// Var is one variable binding.
type Var struct {
	Value    string
	Exported bool
	Readonly bool
}

// Frame is one scope in the variable-scope stack. A non-nil Positional
// means this frame also rebinds $@/$1../$# (a function call frame).
type Frame struct {
	Vars       map[string]*Var
	Positional []string // nil = inherit enclosing frame's positional params
}

func newFrame() *Frame {
	return &Frame{Vars: make(map[string]*Var)}
}

// Job tracks one background or pipeline process group.
type JobState int

const (
	JobRunning JobState = iota
	JobStopped
	JobDone
)

type Job struct {
	ID       int
	Pgid     int
	CmdLine  string
	State    JobState
	ExitCode int
}

// Options bundles the `set -o` flags this implementation honors.
type Options struct {
	Errexit  bool
	Nounset  bool
	Xtrace   bool
	Pipefail bool
	Noclobber bool
	DotFile  bool // startup-file (rc) sourcing mode
}

// Runtime is the single owner of all shell-visible state for one
// shell invocation, or one daemon worker's session: the Executor
// borrows this mutably during a call; nothing here points back at an
// AST node belonging to a caller.
type Runtime struct {
	mu sync.Mutex // guards Traps/pending signal mask only; everything
	// else is single-threaded and needs no lock.

	Frames []*Frame

	Functions map[string]*ast.FunctionDef
	Aliases   map[string]string

	Opts Options

	LastExitCode int

	Traps map[string]string // signal name -> shell code ("" = ignore)

	WorkingDir string
	Umask      int
	// PermanentRedirects are installed by `exec >file` with no command
	// applied to every command started afterward.
	PermanentStdout *os.File
	PermanentStderr *os.File
	PermanentStdin  *os.File

	FunctionDepth int

	Jobs     []*Job
	nextJob  int
	JobsLock sync.Mutex

	// Pending is set by the signal-polling loop, which atomically sets
	// a pending-mask and polls it at statement boundaries rather than
	// running handler logic from inside a signal context.
	Pending []string
}

// New builds a fresh Runtime seeded from the process environment, the
// way a freshly execed shell or a freshly spawned daemon worker would.
func New() *Runtime {
	wd, _ := os.Getwd()
	r := &Runtime{
		Functions:  make(map[string]*ast.FunctionDef),
		Aliases:    make(map[string]string),
		Traps:      make(map[string]string),
		WorkingDir: wd,
	}
	r.Frames = []*Frame{newFrame()}
	for _, kv := range os.Environ() {
		name, val := splitEnv(kv)
		r.Frames[0].Vars[name] = &Var{Value: val, Exported: true}
	}
	if _, ok := r.Frames[0].Vars["IFS"]; !ok {
		r.Frames[0].Vars["IFS"] = &Var{Value: " \t\n"}
	}
	return r
}

func splitEnv(kv string) (name, val string) {
	for i := 0; i < len(kv); i++ {
		if kv[i] == '=' {
			return kv[:i], kv[i+1:]
		}
	}
	return kv, ""
}

// PushFrame enters a new scope (function call); positional is the
// argv the function was called with, or nil to keep inheriting.
func (r *Runtime) PushFrame(positional []string) {
	f := newFrame()
	f.Positional = positional
	r.Frames = append(r.Frames, f)
}

func (r *Runtime) PopFrame() {
	r.Frames = r.Frames[:len(r.Frames)-1]
}

func (r *Runtime) top() *Frame { return r.Frames[len(r.Frames)-1] }

// Lookup walks the scope stack top-down.
func (r *Runtime) Lookup(name string) (*Var, bool) {
	for i := len(r.Frames) - 1; i >= 0; i-- {
		if v, ok := r.Frames[i].Vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Get returns a variable's value, or "" if unset.
func (r *Runtime) Get(name string) string {
	if v, ok := r.Lookup(name); ok {
		return v.Value
	}
	return ""
}

// Set assigns name=value in the current (topmost) frame if it already
// holds the name, else the global (frame 0) — matching "an exported
// variable stays exported across scopes" by updating in place wherever
// found, and only creating a new binding in frame 0 for a brand-new
// name (so plain `x=1` inside a function without `local` is global, as
// in real shells).
func (r *Runtime) Set(name, value string) error {
	for i := len(r.Frames) - 1; i >= 0; i-- {
		if v, ok := r.Frames[i].Vars[name]; ok {
			if v.Readonly {
				return &shellerr.ReadonlyAssignment{Name: name}
			}
			v.Value = value
			return nil
		}
	}
	r.Frames[0].Vars[name] = &Var{Value: value}
	return nil
}

// SetLocal binds name to value in the current frame only, shadowing any
// outer binding until the frame pops, at which point the
// outer binding reappears unchanged. Valid only when FunctionDepth>0,
// enforced by the executor before calling this.
func (r *Runtime) SetLocal(name, value string) {
	r.top().Vars[name] = &Var{Value: value}
}

func (r *Runtime) Export(name string) error {
	if v, ok := r.Lookup(name); ok {
		v.Exported = true
		return nil
	}
	r.Frames[0].Vars[name] = &Var{Value: "", Exported: true}
	return nil
}

func (r *Runtime) SetReadonly(name string) {
	if v, ok := r.Lookup(name); ok {
		v.Readonly = true
		return
	}
	r.Frames[0].Vars[name] = &Var{Readonly: true}
}

func (r *Runtime) Unset(name string) error {
	for i := len(r.Frames) - 1; i >= 0; i-- {
		if v, ok := r.Frames[i].Vars[name]; ok {
			if v.Readonly {
				return &shellerr.ReadonlyAssignment{Name: name}
			}
			delete(r.Frames[i].Vars, name)
			return nil
		}
	}
	return nil
}

// Positional returns the active positional-parameter list: the
// nearest frame (walking outward) that set one, or nil at top level.
func (r *Runtime) Positional() []string {
	for i := len(r.Frames) - 1; i >= 0; i-- {
		if r.Frames[i].Positional != nil {
			return r.Frames[i].Positional
		}
	}
	return nil
}

// SetPositional rebinds $@ in the current frame (used for `set --` and
// script-level ARG assignment).
func (r *Runtime) SetPositional(args []string) {
	r.top().Positional = args
}

// ExportedEnviron builds the `NAME=value` slice to hand to a child
// process (os/exec's Cmd.Env), per the exported subset of all frames
// flattened by lookup order.
func (r *Runtime) ExportedEnviron() []string {
	seen := make(map[string]bool)
	var out []string
	for i := len(r.Frames) - 1; i >= 0; i-- {
		for name, v := range r.Frames[i].Vars {
			if seen[name] {
				continue
			}
			seen[name] = true
			if v.Exported {
				out = append(out, name+"="+v.Value)
			}
		}
	}
	return out
}

// AllocJob appends a new job to the table and returns it.
func (r *Runtime) AllocJob(pgid int, cmdLine string) *Job {
	r.JobsLock.Lock()
	defer r.JobsLock.Unlock()
	r.nextJob++
	j := &Job{ID: r.nextJob, Pgid: pgid, CmdLine: cmdLine, State: JobRunning}
	r.Jobs = append(r.Jobs, j)
	return j
}

// HygieneReset restores a Runtime to pristine condition for daemon
// worker reuse: clears variables/functions/traps, resets options,
// chdirs back to root. Signal disposition reset is the caller's
// (daemon worker's) responsibility since that is process-global, not
// Runtime state.
func (r *Runtime) HygieneReset(root string) {
	r.Frames = []*Frame{newFrame()}
	for _, kv := range os.Environ() {
		name, val := splitEnv(kv)
		r.Frames[0].Vars[name] = &Var{Value: val, Exported: true}
	}
	r.Frames[0].Vars["IFS"] = &Var{Value: " \t\n"}
	r.Functions = make(map[string]*ast.FunctionDef)
	r.Aliases = make(map[string]string)
	r.Traps = make(map[string]string)
	r.Opts = Options{}
	r.LastExitCode = 0
	r.FunctionDepth = 0
	r.Jobs = nil
	r.nextJob = 0
	r.PermanentStdout, r.PermanentStderr, r.PermanentStdin = nil, nil, nil
	r.WorkingDir = root
}

// QueueSignal records an asynchronous signal for polling at the next
// safe point, rather than acting on it immediately from signal context.
func (r *Runtime) QueueSignal(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Pending = append(r.Pending, name)
}

// DrainSignals returns and clears pending signals.
func (r *Runtime) DrainSignals() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.Pending
	r.Pending = nil
	return p
}
