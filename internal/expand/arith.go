package expand

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kazz187/lash/internal/shellerr"
)

// EvalArith evaluates a C-like integer expression for $((...)): the
// usual + - * / % ( ) < > <= >= == != && || ! & | ^ ~ << >> operators
// and variable reads.
func (e *Expander) EvalArith(expr string) (int64, error) {
	p := &arithParser{e: e, toks: tokenizeArith(expr)}
	v, err := p.parseExpr(0)
	if err != nil {
		return 0, err
	}
	if p.pos != len(p.toks) {
		return 0, &shellerr.Expansion{Msg: fmt.Sprintf("arithmetic syntax error near %q", p.toks[p.pos])}
	}
	return v, nil
}

type arithParser struct {
	e    *Expander
	toks []string
	pos  int
}

func (p *arithParser) peek() string {
	if p.pos >= len(p.toks) {
		return ""
	}
	return p.toks[p.pos]
}

func (p *arithParser) next() string {
	t := p.peek()
	p.pos++
	return t
}

// precedence table, lowest to highest binding.
var binOps = [][]string{
	{"||"},
	{"&&"},
	{"|"},
	{"^"},
	{"&"},
	{"==", "!="},
	{"<", ">", "<=", ">="},
	{"<<", ">>"},
	{"+", "-"},
	{"*", "/", "%"},
}

func (p *arithParser) parseExpr(level int) (int64, error) {
	if level == len(binOps) {
		return p.parseUnary()
	}
	lhs, err := p.parseExpr(level + 1)
	if err != nil {
		return 0, err
	}
	for contains(binOps[level], p.peek()) {
		op := p.next()
		rhs, err := p.parseExpr(level + 1)
		if err != nil {
			return 0, err
		}
		lhs, err = applyBinOp(op, lhs, rhs)
		if err != nil {
			return 0, err
		}
	}
	return lhs, nil
}

func contains(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}

func b2i(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func applyBinOp(op string, a, b int64) (int64, error) {
	switch op {
	case "||":
		return b2i(a != 0 || b != 0), nil
	case "&&":
		return b2i(a != 0 && b != 0), nil
	case "|":
		return a | b, nil
	case "^":
		return a ^ b, nil
	case "&":
		return a & b, nil
	case "==":
		return b2i(a == b), nil
	case "!=":
		return b2i(a != b), nil
	case "<":
		return b2i(a < b), nil
	case ">":
		return b2i(a > b), nil
	case "<=":
		return b2i(a <= b), nil
	case ">=":
		return b2i(a >= b), nil
	case "<<":
		return a << uint(b), nil
	case ">>":
		return a >> uint(b), nil
	case "+":
		return a + b, nil
	case "-":
		return a - b, nil
	case "*":
		return a * b, nil
	case "/":
		if b == 0 {
			return 0, &shellerr.Expansion{Msg: "division by zero"}
		}
		return a / b, nil
	case "%":
		if b == 0 {
			return 0, &shellerr.Expansion{Msg: "division by zero"}
		}
		return a % b, nil
	}
	return 0, &shellerr.Expansion{Msg: "unknown operator " + op}
}

func (p *arithParser) parseUnary() (int64, error) {
	switch p.peek() {
	case "!":
		p.next()
		v, err := p.parseUnary()
		return b2i(v == 0), err
	case "~":
		p.next()
		v, err := p.parseUnary()
		return ^v, err
	case "-":
		p.next()
		v, err := p.parseUnary()
		return -v, err
	case "+":
		p.next()
		return p.parseUnary()
	}
	return p.parsePrimary()
}

func (p *arithParser) parsePrimary() (int64, error) {
	t := p.peek()
	if t == "(" {
		p.next()
		v, err := p.parseExpr(0)
		if err != nil {
			return 0, err
		}
		if p.peek() != ")" {
			return 0, &shellerr.Expansion{Msg: "expected )"}
		}
		p.next()
		return v, nil
	}
	if t == "" {
		return 0, &shellerr.Expansion{Msg: "unexpected end of arithmetic expression"}
	}
	if n, err := strconv.ParseInt(t, 0, 64); err == nil {
		p.next()
		return n, nil
	}
	if isArithIdent(t) {
		p.next()
		val := p.e.RT.Get(t)
		if val == "" {
			return 0, nil
		}
		n, err := strconv.ParseInt(val, 0, 64)
		if err != nil {
			return 0, &shellerr.Expansion{Msg: fmt.Sprintf("%s: not a number: %q", t, val)}
		}
		return n, nil
	}
	return 0, &shellerr.Expansion{Msg: fmt.Sprintf("arithmetic syntax error near %q", t)}
}

func isArithIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		if c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (i > 0 && c >= '0' && c <= '9') {
			continue
		}
		return false
	}
	return true
}

// tokenizeArith splits an arithmetic expression into operator/operand
// tokens with longest-match multi-char operators.
func tokenizeArith(s string) []string {
	var toks []string
	i := 0
	multi := []string{"<<", ">>", "<=", ">=", "==", "!=", "&&", "||"}
	for i < len(s) {
		c := s[i]
		if c == ' ' || c == '\t' {
			i++
			continue
		}
		matched := false
		for _, m := range multi {
			if strings.HasPrefix(s[i:], m) {
				toks = append(toks, m)
				i += len(m)
				matched = true
				break
			}
		}
		if matched {
			continue
		}
		if strings.ContainsRune("+-*/%()<>!~&|^", rune(c)) {
			toks = append(toks, string(c))
			i++
			continue
		}
		j := i
		for j < len(s) && !strings.ContainsRune(" \t+-*/%()<>!~&|^", rune(s[j])) {
			j++
		}
		if j == i {
			j++
		}
		toks = append(toks, s[i:j])
		i = j
	}
	return toks
}
