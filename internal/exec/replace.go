package exec

import "syscall"

// ExecReplace implements the command form of `exec`: replace the
// current process image after resolving PATH. Redirections were
// already applied by execSimple before dispatch, and since
// stdin/stdout/stderr on a Go *os.File are real OS file descriptors,
// they survive syscall.Exec unchanged as long as they occupy fds
// 0/1/2, which they do for the process's own standard streams.
func (ex *Executor) ExecReplace(name string, args []string) (int, error) {
	path, err := ex.lookPath(name)
	if err != nil {
		return 127, nil
	}
	argv := append([]string{name}, args...)
	env := ex.RT.ExportedEnviron()
	execErr := syscall.Exec(path, argv, env)
	// Only reached on failure; syscall.Exec does not return otherwise.
	return 126, execErr
}
