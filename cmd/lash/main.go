// lash is the shell binary: interactive when stdin is a TTY, otherwise
// a script reader, plus -c STRING and FILE forms. It tries the daemon
// socket first (internal/daemonclient) and falls back to an in-process
// internal/exec.Executor transparently.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kingpin/v2"

	"github.com/kazz187/lash/internal/builtin"
	"github.com/kazz187/lash/internal/daemon"
	"github.com/kazz187/lash/internal/daemonclient"
	"github.com/kazz187/lash/internal/exec"
	"github.com/kazz187/lash/internal/shellerr"
	"github.com/kazz187/lash/internal/state"
)

var (
	app = kingpin.New("lash", "a POSIX-compatible shell")

	noRC    = app.Flag("no-rc", "skip the startup file").Bool()
	login   = app.Flag("login", "process login startup").Bool()
	cString = app.Flag("c", "execute STRING instead of reading a script").Short('c').String()

	scriptArgs = app.Arg("args", "FILE [ARG...], or ARG0 [ARG...] with -c").Strings()
)

func main() {
	app.Version("lash, version 0.1.0")
	app.HelpFlag.Short('h')
	kingpin.MustParse(app.Parse(os.Args[1:]))

	os.Exit(run())
}

func run() int {
	rt := state.New()

	if !*noRC {
		runStartupFile(rt, *login)
	}

	var (
		src  []byte
		code int
		err  error
	)

	switch {
	case *cString != "":
		src = []byte(*cString)
		arg0 := "lash"
		var positional []string
		if len(*scriptArgs) > 0 {
			arg0 = (*scriptArgs)[0]
			positional = (*scriptArgs)[1:]
		}
		code, err = execWithFallback(rt, src, arg0, positional)
	case len(*scriptArgs) > 0:
		path := (*scriptArgs)[0]
		data, rerr := os.ReadFile(path)
		if rerr != nil {
			fmt.Fprintf(os.Stderr, "lash: %s: %v\n", path, rerr)
			return 127
		}
		src = data
		code, err = execWithFallback(rt, src, path, (*scriptArgs)[1:])
	default:
		if isTTY(os.Stdin) {
			code, err = runInteractive(rt)
		} else {
			data, rerr := readAll(os.Stdin)
			if rerr != nil {
				fmt.Fprintf(os.Stderr, "lash: %v\n", rerr)
				return 1
			}
			code, err = execWithFallback(rt, data, "lash", nil)
		}
	}

	if err != nil {
		return exitCodeFor(err)
	}
	return code
}

// execWithFallback tries the daemon socket first; on any
// probe/protocol failure it falls back to direct in-process execution
// so behavior is identical either way.
func execWithFallback(rt *state.Runtime, src []byte, arg0 string, positional []string) (int, error) {
	argv := append([]string{"-c", string(src), arg0}, positional...)
	stdinMode := daemon.StdinInherit
	if !isTTY(os.Stdin) {
		stdinMode = daemon.StdinPiped
	}
	if cfg, cerr := daemon.LoadConfig(); cerr == nil {
		if code, stdout, stderr, ok := daemonclient.TryDaemon(cfg.SocketPath, argv, stdinMode); ok {
			os.Stdout.Write(stdout)
			os.Stderr.Write(stderr)
			return code, nil
		}
	}
	return runDirect(rt, src, positional)
}

func runDirect(rt *state.Runtime, src []byte, positional []string) (int, error) {
	rt.SetPositional(positional)
	ex := exec.New(rt)
	builtin.Register(ex)
	return ex.Run(src)
}

func runInteractive(rt *state.Runtime) (int, error) {
	ex := exec.New(rt)
	builtin.Register(ex)

	reader := bufio.NewReader(os.Stdin)
	lastCode := 0
	for {
		ps1 := rt.Get("PS1")
		if ps1 == "" {
			ps1 = "$ "
		}
		fmt.Fprint(os.Stderr, ps1)

		line, rerr := readInteractiveLine(reader)
		if rerr != nil {
			fmt.Fprintln(os.Stderr)
			return lastCode, nil
		}
		code, err := ex.Run([]byte(line))
		if err != nil {
			fmt.Fprintln(os.Stderr, "lash:", err)
		}
		lastCode = code
	}
}

func readInteractiveLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if line == "" && err != nil {
		return "", err
	}
	return line, nil
}

func runStartupFile(rt *state.Runtime, loginShell bool) {
	name := ".lashrc"
	if loginShell {
		name = ".lash_profile"
	}
	home := rt.Get("HOME")
	if home == "" {
		return
	}
	path := home + "/" + name
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	ex := exec.New(rt)
	builtin.Register(ex)
	_, _ = ex.Run(data)
}

func readAll(f *os.File) ([]byte, error) {
	return io.ReadAll(f)
}

func isTTY(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// exitCodeFor maps the error taxonomy to the CLI exit codes a shell
// invocation is expected to return.
func exitCodeFor(err error) int {
	switch e := err.(type) {
	case *shellerr.Lexical, *shellerr.Parse:
		return int(shellerr.ExitSyntaxError)
	case *shellerr.CommandNotFound:
		return int(shellerr.ExitCommandNotFound)
	case *shellerr.NotExecutable:
		return int(shellerr.ExitNotExecutable)
	case *shellerr.PermissionDenied:
		return int(shellerr.ExitPermissionDenied)
	case *shellerr.SignalDeath:
		return e.ExitCode()
	case *shellerr.Internal:
		return 125
	default:
		return 1
	}
}
