// Package builtin implements the core builtin set: cd, pwd, echo,
// export, unset, set, shift, read, eval, exec, return, trap, test/[,
// : true false, source, local.
package builtin

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/kazz187/lash/internal/exec"
	"github.com/kazz187/lash/internal/state"
)

// Register installs the core builtin table into ex.
func Register(ex *exec.Executor) {
	ex.Builtins[":"] = biTrue
	ex.Builtins["true"] = biTrue
	ex.Builtins["false"] = biFalse
	ex.Builtins["cd"] = biCd
	ex.Builtins["pwd"] = biPwd
	ex.Builtins["echo"] = biEcho
	ex.Builtins["export"] = biExport
	ex.Builtins["readonly"] = biReadonly
	ex.Builtins["unset"] = biUnset
	ex.Builtins["set"] = biSet
	ex.Builtins["shift"] = biShift
	ex.Builtins["read"] = biRead
	ex.Builtins["eval"] = biEval
	ex.Builtins["exec"] = biExec
	ex.Builtins["return"] = biReturn
	ex.Builtins["break"] = biBreak
	ex.Builtins["continue"] = biContinue
	ex.Builtins["exit"] = biExit
	ex.Builtins["trap"] = biTrap
	ex.Builtins["test"] = biTest
	ex.Builtins["["] = biTestBracket
	ex.Builtins["source"] = biSource
	ex.Builtins["."] = biSource
	ex.Builtins["local"] = biLocal
	ex.Builtins["alias"] = biAlias
	ex.Builtins["unalias"] = biUnalias
	ex.Builtins["jobs"] = biJobs
	ex.Builtins["wait"] = biWait
}

func biTrue(ex *exec.Executor, args []string) (int, error)  { return 0, nil }
func biFalse(ex *exec.Executor, args []string) (int, error) { return 1, nil }

func biCd(ex *exec.Executor, args []string) (int, error) {
	dir := ex.RT.Get("HOME")
	if len(args) > 0 {
		dir = args[0]
		if dir == "-" {
			dir = ex.RT.Get("OLDPWD")
			fmt.Fprintln(ex.Stdout, dir)
		}
	}
	if dir == "" {
		fmt.Fprintln(ex.Stderr, "cd: HOME not set")
		return 1, nil
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(ex.RT.WorkingDir, dir)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		fmt.Fprintf(ex.Stderr, "cd: %s\n", err)
		return 1, nil
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		fmt.Fprintf(ex.Stderr, "cd: %s: No such file or directory\n", args[0])
		return 1, nil
	}
	_ = ex.RT.Set("OLDPWD", ex.RT.WorkingDir)
	ex.RT.WorkingDir = abs
	_ = ex.RT.Set("PWD", abs)
	return 0, nil
}

func biPwd(ex *exec.Executor, args []string) (int, error) {
	fmt.Fprintln(ex.Stdout, ex.RT.WorkingDir)
	return 0, nil
}

func biEcho(ex *exec.Executor, args []string) (int, error) {
	nlSuppress := false
	interpret := false
	for len(args) > 0 {
		switch args[0] {
		case "-n":
			nlSuppress = true
		case "-e":
			interpret = true
		case "-E":
			interpret = false
		default:
			goto printargs
		}
		args = args[1:]
	}
printargs:
	out := strings.Join(args, " ")
	if interpret {
		out = interpretEchoEscapes(out)
	}
	fmt.Fprint(ex.Stdout, out)
	if !nlSuppress {
		fmt.Fprintln(ex.Stdout)
	}
	return 0, nil
}

func interpretEchoEscapes(s string) string {
	r := strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\\`, `\`, `\r`, "\r")
	return r.Replace(s)
}

func biExport(ex *exec.Executor, args []string) (int, error) {
	for _, a := range args {
		name, val, has := strings.Cut(a, "=")
		if has {
			if err := ex.RT.Set(name, val); err != nil {
				fmt.Fprintln(ex.Stderr, "export:", err)
				return 1, nil
			}
		}
		if err := ex.RT.Export(name); err != nil {
			fmt.Fprintln(ex.Stderr, "export:", err)
			return 1, nil
		}
	}
	return 0, nil
}

func biReadonly(ex *exec.Executor, args []string) (int, error) {
	for _, a := range args {
		name, val, has := strings.Cut(a, "=")
		if has {
			if err := ex.RT.Set(name, val); err != nil {
				fmt.Fprintln(ex.Stderr, "readonly:", err)
				return 1, nil
			}
		}
		ex.RT.SetReadonly(name)
	}
	return 0, nil
}

func biUnset(ex *exec.Executor, args []string) (int, error) {
	for _, a := range args {
		if err := ex.RT.Unset(a); err != nil {
			fmt.Fprintln(ex.Stderr, "unset:", err)
			return 1, nil
		}
		delete(ex.RT.Functions, a)
	}
	return 0, nil
}

// biSet implements the option matrix this shell supports:
// errexit/nounset/xtrace/pipefail/noclobber, plus `set --` positional
// reassignment.
func biSet(ex *exec.Executor, args []string) (int, error) {
	i := 0
	for i < len(args) {
		a := args[i]
		if a == "--" {
			i++
			break
		}
		if !strings.HasPrefix(a, "-") && !strings.HasPrefix(a, "+") {
			break
		}
		on := strings.HasPrefix(a, "-")
		flag := a[1:]
		if flag == "o" && i+1 < len(args) {
			i++
			flag = "o" + args[i]
		}
		applySetFlag(ex.RT, flag, on)
		i++
	}
	if i < len(args) || i == 0 && len(args) > 0 {
		ex.RT.SetPositional(args[i:])
	}
	return 0, nil
}

func applySetFlag(rt *state.Runtime, flag string, on bool) {
	switch flag {
	case "e":
		rt.Opts.Errexit = on
	case "u":
		rt.Opts.Nounset = on
	case "x":
		rt.Opts.Xtrace = on
	case "C":
		rt.Opts.Noclobber = on
	}
	if strings.HasPrefix(flag, "o") {
		switch strings.TrimPrefix(flag, "o") {
		case "errexit":
			rt.Opts.Errexit = on
		case "nounset":
			rt.Opts.Nounset = on
		case "xtrace":
			rt.Opts.Xtrace = on
		case "pipefail":
			rt.Opts.Pipefail = on
		case "noclobber":
			rt.Opts.Noclobber = on
		}
	}
}

func biShift(ex *exec.Executor, args []string) (int, error) {
	n := 1
	if len(args) > 0 {
		if v, err := strconv.Atoi(args[0]); err == nil {
			n = v
		}
	}
	pos := ex.RT.Positional()
	if n > len(pos) {
		return 1, nil
	}
	ex.RT.SetPositional(pos[n:])
	return 0, nil
}

func biRead(ex *exec.Executor, args []string) (int, error) {
	if len(args) == 0 {
		args = []string{"REPLY"}
	}
	reader := bufio.NewReader(ex.Stdin)
	line, err := reader.ReadString('\n')
	line = strings.TrimRight(line, "\n")
	if err != nil && line == "" {
		return 1, nil
	}
	ifs := ex.RT.Get("IFS")
	if ifs == "" {
		ifs = " \t\n"
	}
	fields := strings.FieldsFunc(line, func(r rune) bool { return strings.ContainsRune(ifs, r) })
	for i, name := range args {
		if i == len(args)-1 {
			_ = ex.RT.Set(name, strings.Join(fields[min(i, len(fields)):], " "))
			break
		}
		if i < len(fields) {
			_ = ex.RT.Set(name, fields[i])
		} else {
			_ = ex.RT.Set(name, "")
		}
	}
	return 0, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func biEval(ex *exec.Executor, args []string) (int, error) {
	src := strings.Join(args, " ")
	code, err := ex.Run([]byte(src))
	return code, err
}

func biSource(ex *exec.Executor, args []string) (int, error) {
	if len(args) == 0 {
		return 1, nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintln(ex.Stderr, "source:", err)
		return 1, nil
	}
	return ex.Run(data)
}

// biExec implements the `exec` builtin: with only redirections it
// installs them as permanent on the Runtime; with a command, replaces
// the process. Go cannot safely replace its own image mid-runtime the
// way a fork/exec shell does, so a command form execs via syscall.Exec
// (ExecReplace resolves the path through the executor's PATH lookup).
func biExec(ex *exec.Executor, args []string) (int, error) {
	if len(args) == 0 {
		ex.RT.PermanentStdout = ex.Stdout
		ex.RT.PermanentStderr = ex.Stderr
		ex.RT.PermanentStdin = ex.Stdin
		return 0, nil
	}
	return ex.ExecReplace(args[0], args[1:])
}

func biReturn(ex *exec.Executor, args []string) (int, error) {
	code := ex.RT.LastExitCode
	if len(args) > 0 {
		if v, err := strconv.Atoi(args[0]); err == nil {
			code = v
		}
	}
	return code, state.Return{Code: code}
}

func biBreak(ex *exec.Executor, args []string) (int, error) {
	n := 1
	if len(args) > 0 {
		if v, err := strconv.Atoi(args[0]); err == nil {
			n = v
		}
	}
	return 0, state.Break{N: n}
}

func biContinue(ex *exec.Executor, args []string) (int, error) {
	n := 1
	if len(args) > 0 {
		if v, err := strconv.Atoi(args[0]); err == nil {
			n = v
		}
	}
	return 0, state.Continue{N: n}
}

func biExit(ex *exec.Executor, args []string) (int, error) {
	code := ex.RT.LastExitCode
	if len(args) > 0 {
		if v, err := strconv.Atoi(args[0]); err == nil {
			code = v
		}
	}
	return code, state.Exit{Code: code}
}

func biTrap(ex *exec.Executor, args []string) (int, error) {
	if len(args) < 2 {
		return 0, nil
	}
	action := args[0]
	for _, sig := range args[1:] {
		ex.RT.Traps[strings.ToUpper(sig)] = action
	}
	return 0, nil
}

func biLocal(ex *exec.Executor, args []string) (int, error) {
	if ex.RT.FunctionDepth == 0 {
		fmt.Fprintln(ex.Stderr, "local: can only be used in a function")
		return 1, nil
	}
	for _, a := range args {
		name, val, has := strings.Cut(a, "=")
		if !has {
			ex.RT.SetLocal(name, "")
			continue
		}
		ex.RT.SetLocal(name, val)
	}
	return 0, nil
}

func biAlias(ex *exec.Executor, args []string) (int, error) {
	if len(args) == 0 {
		for name, val := range ex.RT.Aliases {
			fmt.Fprintf(ex.Stdout, "alias %s='%s'\n", name, val)
		}
		return 0, nil
	}
	for _, a := range args {
		name, val, has := strings.Cut(a, "=")
		if !has {
			if v, ok := ex.RT.Aliases[a]; ok {
				fmt.Fprintf(ex.Stdout, "alias %s='%s'\n", a, v)
			}
			continue
		}
		ex.RT.Aliases[name] = val
	}
	return 0, nil
}

func biUnalias(ex *exec.Executor, args []string) (int, error) {
	for _, a := range args {
		delete(ex.RT.Aliases, a)
	}
	return 0, nil
}

func biJobs(ex *exec.Executor, args []string) (int, error) {
	stateWidth := 0
	for _, j := range ex.RT.Jobs {
		if w := runewidth.StringWidth(jobStateLabel(j.State)); w > stateWidth {
			stateWidth = w
		}
	}
	for _, j := range ex.RT.Jobs {
		label := jobStateLabel(j.State)
		pad := strings.Repeat(" ", stateWidth-runewidth.StringWidth(label))
		fmt.Fprintf(ex.Stdout, "[%d]  %s%s  %s\n", j.ID, label, pad, j.CmdLine)
	}
	return 0, nil
}

func jobStateLabel(s state.JobState) string {
	switch s {
	case state.JobDone:
		return "Done"
	case state.JobStopped:
		return "Stopped"
	default:
		return "Running"
	}
}

func biWait(ex *exec.Executor, args []string) (int, error) {
	return 0, nil
}
