package exec

import (
	"fmt"
	"os"
	"strings"

	"github.com/kazz187/lash/internal/ast"
	"github.com/kazz187/lash/internal/expand"
	"github.com/kazz187/lash/internal/lexer"
	"github.com/kazz187/lash/internal/shellerr"
	"github.com/kazz187/lash/internal/token"
)

func lexLineParts(line string) ([]token.Part, error) {
	l := lexer.New([]byte(line))
	tok, err := l.Next()
	if err != nil {
		return nil, err
	}
	return tok.Parts, nil
}

// applyRedirects opens/dups each redirection onto the Executor's
// current stdin/stdout/stderr, returning a restore func that undoes
// them once the command completes. Builtins see the same swapped
// *os.File fields the external-command path does, so `2>` redirection
// is observed uniformly instead of only affecting forked children.
func (ex *Executor) applyRedirects(rs []ast.Redirect) (func(), error) {
	origIn, origOut, origErr := ex.Stdin, ex.Stdout, ex.Stderr
	var opened []*os.File

	restore := func() {
		ex.Stdin, ex.Stdout, ex.Stderr = origIn, origOut, origErr
		for _, f := range opened {
			f.Close()
		}
	}

	for _, r := range rs {
		if err := ex.applyOneRedirect(r, &opened); err != nil {
			restore()
			return func() {}, err
		}
	}
	return restore, nil
}

func (ex *Executor) applyOneRedirect(r ast.Redirect, opened *[]*os.File) error {
	targetWord := func() (string, error) {
		fs, err := ex.Expander.Fields(r.Target, expand.ModeAssignment)
		if err != nil {
			return "", err
		}
		if len(fs) == 0 {
			return "", nil
		}
		return fs[0], nil
	}

	fd := r.Fd
	switch r.Kind {
	case ast.RedirIn, ast.RedirHereDoc, ast.RedirHereDocTabs, ast.RedirHereString, ast.RedirReadWrite:
		if !r.FdGiven {
			fd = 0
		}
	default:
		if !r.FdGiven {
			fd = 1
		}
	}

	switch r.Kind {
	case ast.RedirIn:
		name, err := targetWord()
		if err != nil {
			return err
		}
		f, err := os.Open(name)
		if err != nil {
			return &shellerr.Redirection{Target: name, Err: err}
		}
		*opened = append(*opened, f)
		ex.assignFd(fd, f)
		return nil

	case ast.RedirOut, ast.RedirClobber:
		name, err := targetWord()
		if err != nil {
			return err
		}
		flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
		if ex.RT.Opts.Noclobber && r.Kind != ast.RedirClobber {
			if _, statErr := os.Stat(name); statErr == nil {
				return &shellerr.Redirection{Target: name, Err: fmt.Errorf("cannot overwrite existing file")}
			}
		}
		f, err := os.OpenFile(name, flags, 0644)
		if err != nil {
			return &shellerr.Redirection{Target: name, Err: err}
		}
		*opened = append(*opened, f)
		ex.assignFd(fd, f)
		return nil

	case ast.RedirAppend:
		name, err := targetWord()
		if err != nil {
			return err
		}
		f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			return &shellerr.Redirection{Target: name, Err: err}
		}
		*opened = append(*opened, f)
		ex.assignFd(fd, f)
		return nil

	case ast.RedirReadWrite:
		name, err := targetWord()
		if err != nil {
			return err
		}
		f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE, 0644)
		if err != nil {
			return &shellerr.Redirection{Target: name, Err: err}
		}
		*opened = append(*opened, f)
		ex.assignFd(fd, f)
		return nil

	case ast.RedirOutErr:
		name, err := targetWord()
		if err != nil {
			return err
		}
		f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return &shellerr.Redirection{Target: name, Err: err}
		}
		*opened = append(*opened, f)
		ex.Stdout, ex.Stderr = f, f
		return nil

	case ast.RedirHereDoc, ast.RedirHereDocTabs:
		body := r.HereDoc
		if len(r.Target.Parts) == 0 {
			expanded, err := ex.expandHereDocBody(body)
			if err != nil {
				return err
			}
			body = expanded
		}
		pr, pw, err := os.Pipe()
		if err != nil {
			return &shellerr.Redirection{Target: "heredoc", Err: err}
		}
		go func() {
			pw.WriteString(body)
			pw.Close()
		}()
		*opened = append(*opened, pr)
		ex.assignFd(fd, pr)
		return nil

	case ast.RedirHereString:
		name, err := targetWord()
		if err != nil {
			return err
		}
		pr, pw, err := os.Pipe()
		if err != nil {
			return &shellerr.Redirection{Target: "here-string", Err: err}
		}
		go func() {
			pw.WriteString(name + "\n")
			pw.Close()
		}()
		*opened = append(*opened, pr)
		ex.assignFd(fd, pr)
		return nil

	case ast.RedirDupIn, ast.RedirDupOut:
		if r.DupToFd == -2 {
			ex.closeFd(fd)
			return nil
		}
		src := ex.getFd(r.DupToFd)
		if src == nil {
			return &shellerr.Redirection{Target: "dup", Err: fmt.Errorf("bad file descriptor %d", r.DupToFd)}
		}
		ex.assignFd(fd, src)
		return nil
	}
	return nil
}

// expandHereDocBody expands parameter/command/arithmetic refs inside
// an unquoted-delimiter here-document body line by line, leaving
// literal text untouched.
func (ex *Executor) expandHereDocBody(body string) (string, error) {
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		// Lex the line as the inside of one double-quoted word so that
		// blanks, quotes and '#' stay literal and the whole line is kept.
		quoted := strings.NewReplacer(`\"`, `\\\"`, `"`, `\"`).Replace(line)
		parts, err := lexLineParts(`"` + quoted + `"`)
		if err != nil {
			continue
		}
		word := ast.Word{Parts: parts}
		fs, err := ex.Expander.Fields(word, expand.ModeAssignment)
		if err != nil {
			return "", err
		}
		if len(fs) > 0 {
			lines[i] = fs[0]
		}
	}
	return strings.Join(lines, "\n"), nil
}

func (ex *Executor) assignFd(fd int, f *os.File) {
	switch fd {
	case 0:
		ex.Stdin = f
	case 1:
		ex.Stdout = f
	case 2:
		ex.Stderr = f
	default:
		ex.Fds[fd] = f
	}
}

func (ex *Executor) getFd(fd int) *os.File {
	switch fd {
	case 0:
		return ex.Stdin
	case 1:
		return ex.Stdout
	case 2:
		return ex.Stderr
	default:
		return ex.Fds[fd]
	}
}

func (ex *Executor) closeFd(fd int) {
	switch fd {
	case 0:
		ex.Stdin = nil
	case 1:
		ex.Stdout = nil
	case 2:
		ex.Stderr = nil
	default:
		delete(ex.Fds, fd)
	}
}
