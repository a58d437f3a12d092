package builtin

import (
	"os"
	"strconv"

	"github.com/kazz187/lash/internal/exec"
)

// biTest implements `test EXPR` (POSIX conditional expressions: unary
// file/string tests, binary string/integer comparisons, `!`, and `-a`
// /`-o` combination at the single-level 's core set needs).
func biTest(ex *exec.Executor, args []string) (int, error) {
	ok, err := evalTest(args)
	if err != nil {
		return 2, nil
	}
	if ok {
		return 0, nil
	}
	return 1, nil
}

// biTestBracket implements `[ EXPR ]`, requiring the trailing `]`.
func biTestBracket(ex *exec.Executor, args []string) (int, error) {
	if len(args) == 0 || args[len(args)-1] != "]" {
		return 2, nil
	}
	return biTest(ex, args[:len(args)-1])
}

func evalTest(args []string) (bool, error) {
	switch len(args) {
	case 0:
		return false, nil
	case 1:
		return args[0] != "", nil
	case 2:
		if args[0] == "!" {
			r, err := evalTest(args[1:])
			return !r, err
		}
		return evalUnary(args[0], args[1])
	case 3:
		if args[0] == "!" {
			r, err := evalTest(args[1:])
			return !r, err
		}
		return evalBinary(args[0], args[1], args[2])
	default:
		if args[0] == "!" {
			r, err := evalTest(args[1:])
			return !r, err
		}
		return false, nil
	}
}

func evalUnary(op, arg string) (bool, error) {
	switch op {
	case "-z":
		return arg == "", nil
	case "-n":
		return arg != "", nil
	case "-e", "-a":
		_, err := os.Stat(arg)
		return err == nil, nil
	case "-f":
		info, err := os.Stat(arg)
		return err == nil && info.Mode().IsRegular(), nil
	case "-d":
		info, err := os.Stat(arg)
		return err == nil && info.IsDir(), nil
	case "-r":
		f, err := os.Open(arg)
		if err == nil {
			f.Close()
		}
		return err == nil, nil
	case "-w":
		info, err := os.Stat(arg)
		return err == nil && info.Mode().Perm()&0200 != 0, nil
	case "-x":
		info, err := os.Stat(arg)
		return err == nil && info.Mode().Perm()&0111 != 0, nil
	case "-s":
		info, err := os.Stat(arg)
		return err == nil && info.Size() > 0, nil
	case "-L", "-h":
		info, err := os.Lstat(arg)
		return err == nil && info.Mode()&os.ModeSymlink != 0, nil
	}
	return false, nil
}

func evalBinary(a, op, b string) (bool, error) {
	switch op {
	case "=", "==":
		return a == b, nil
	case "!=":
		return a != b, nil
	case "-eq", "-ne", "-lt", "-le", "-gt", "-ge":
		an, err := strconv.ParseInt(a, 10, 64)
		if err != nil {
			return false, err
		}
		bn, err := strconv.ParseInt(b, 10, 64)
		if err != nil {
			return false, err
		}
		switch op {
		case "-eq":
			return an == bn, nil
		case "-ne":
			return an != bn, nil
		case "-lt":
			return an < bn, nil
		case "-le":
			return an <= bn, nil
		case "-gt":
			return an > bn, nil
		case "-ge":
			return an >= bn, nil
		}
	case "-a":
		la, _ := evalTest([]string{a})
		lb, _ := evalTest([]string{b})
		return la && lb, nil
	case "-o":
		la, _ := evalTest([]string{a})
		lb, _ := evalTest([]string{b})
		return la || lb, nil
	}
	return false, nil
}
