// Package expand implements the shell word-expansion pipeline that
// turns an ast.Word into zero or more result fields, parameterized by
// each part's quote class so splitting/globbing only ever touches
// unquoted expansion results.
package expand

import (
	"fmt"
	"os"
	"os/user"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/kazz187/lash/internal/ast"
	"github.com/kazz187/lash/internal/lexer"
	"github.com/kazz187/lash/internal/shellerr"
	"github.com/kazz187/lash/internal/state"
	"github.com/kazz187/lash/internal/token"
)

// CommandSubRunner executes `src` as a shell program in a subshell and
// returns its stdout. The expand package only declares the dependency;
// internal/exec supplies the closure, which keeps expand from
// importing exec (exec already imports expand).
type CommandSubRunner func(src string) (stdout string, exitCode int, err error)

// Expander holds the dependencies needed to fully expand words: the
// Runtime for variable/positional lookups and a CommandSubRunner for
// $(...) / `...`.
type Expander struct {
	RT        *state.Runtime
	RunCmdSub CommandSubRunner
}

// Mode controls which late steps apply: assignments are expanded in a
// mode where word splitting and globbing are suppressed.
type Mode int

const (
	ModeNormal Mode = iota
	ModeAssignment
)

// seg is one fragment produced while expanding a Word's parts. Most
// parts produce exactly one seg; a double-quoted "$@"/"$*" with more
// than one positional parameter produces several, with standalone
// marking the interior ones so they become their own fields instead
// of gluing to neighboring text (the first and last pieces still glue,
// matching how foo"$@"bar splits between a/b/c positionals).
type seg struct {
	text       string
	quoted     bool
	standalone bool
}

// Fields expands one Word into its resulting argument fields.
func (e *Expander) Fields(w ast.Word, mode Mode) ([]string, error) {
	pieces, err := e.expandParts(w.Parts)
	if err != nil {
		return nil, err
	}
	if mode == ModeAssignment {
		var b strings.Builder
		for _, pc := range pieces {
			b.WriteString(pc.text)
		}
		return []string{b.String()}, nil
	}
	fields, fieldQuoted := e.splitFields(pieces)
	var out []string
	for i, f := range fields {
		if fieldQuoted[i] {
			out = append(out, f)
			continue
		}
		out = append(out, e.globField(f)...)
	}
	return out, nil
}

// expandParts expands each Part in order into a flat seg list. Plain
// parts contribute exactly one seg; a quoted "$@"/"$*" expands via
// expandDoubleQuotedParts into the field vector POSIX requires.
func (e *Expander) expandParts(parts []token.Part) ([]seg, error) {
	var pieces []seg
	for i, p := range parts {
		isFirst := i == 0
		if p.Kind == token.PartDoubleQuoted {
			sub, err := e.expandDoubleQuotedParts(p.SubParts)
			if err != nil {
				return nil, err
			}
			pieces = append(pieces, sub...)
			continue
		}
		text, isQuoted, err := e.expandPart(p, isFirst)
		if err != nil {
			return nil, err
		}
		pieces = append(pieces, seg{text: text, quoted: isQuoted})
	}
	return pieces, nil
}

// expandDoubleQuotedParts expands the inner parts of a "..." region.
// A bare parameter ref of $@/$* is the one construct that can expand
// to more than one field even inside double quotes: with N positional
// parameters it contributes N pieces, the first and last of which glue
// to whatever literal text precedes/follows them in the same quoted
// region, and the interior ones (if any) standing as their own fields.
func (e *Expander) expandDoubleQuotedParts(subParts []token.Part) ([]seg, error) {
	var pieces []seg
	cur := &strings.Builder{}
	for _, sp := range subParts {
		if sp.Kind == token.PartParameterRef && (sp.ParamName == "@" || sp.ParamName == "*") && sp.ParamOp == "" {
			pos := e.RT.Positional()
			switch len(pos) {
			case 0:
				// contributes no text and no field boundary
			case 1:
				cur.WriteString(pos[0])
			default:
				cur.WriteString(pos[0])
				pieces = append(pieces, seg{text: cur.String(), quoted: true})
				cur = &strings.Builder{}
				for i := 1; i < len(pos)-1; i++ {
					pieces = append(pieces, seg{text: pos[i], quoted: true, standalone: true})
				}
				cur.WriteString(pos[len(pos)-1])
			}
			continue
		}
		text, _, err := e.expandPart(sp, false)
		if err != nil {
			return nil, err
		}
		cur.WriteString(text)
	}
	pieces = append(pieces, seg{text: cur.String(), quoted: true})
	return pieces, nil
}

func (e *Expander) expandPart(p token.Part, isFirst bool) (string, bool, error) {
	switch p.Kind {
	case token.PartLiteral:
		return p.Text, p.Quote == token.SingleQuoted || p.Quote == token.DoubleQuoted, nil
	case token.PartSingleQuoted:
		return p.Text, true, nil
	case token.PartDoubleQuoted:
		var b strings.Builder
		for _, sp := range p.SubParts {
			text, _, err := e.expandPart(sp, false)
			if err != nil {
				return "", true, err
			}
			b.WriteString(text)
		}
		return b.String(), true, nil
	case token.PartParameterRef:
		v, err := e.expandParam(p)
		return v, p.Quote == token.DoubleQuoted, err
	case token.PartCommandSub:
		out, _, err := e.RunCmdSub(p.SubSource)
		if err != nil {
			return "", p.Quote == token.DoubleQuoted, err
		}
		return strings.TrimRight(out, "\n"), p.Quote == token.DoubleQuoted, nil
	case token.PartArithSub:
		n, err := e.EvalArith(p.ArithExpr)
		if err != nil {
			return "", p.Quote == token.DoubleQuoted, err
		}
		return strconv.FormatInt(n, 10), p.Quote == token.DoubleQuoted, nil
	case token.PartGlob:
		return p.Text, false, nil
	case token.PartTilde:
		return e.expandTilde(p.TildeUser) + p.Text, true, nil
	}
	return "", false, nil
}

func (e *Expander) expandTilde(user_ string) string {
	if user_ == "" {
		if h := e.RT.Get("HOME"); h != "" {
			return h
		}
		if h, err := os.UserHomeDir(); err == nil {
			return h
		}
		return "~"
	}
	u, err := user.Lookup(user_)
	if err != nil {
		return "~" + user_
	}
	return u.HomeDir
}

// isSpecialParam reports whether name is a special parameter such as
// $@ $* $# $? $$ $! $0 $1..
func isSpecialParam(name string) bool {
	if len(name) != 1 {
		return false
	}
	switch name[0] {
	case '@', '*', '#', '?', '$', '!', '0', '-':
		return true
	}
	return name[0] >= '1' && name[0] <= '9'
}

func (e *Expander) paramValue(name string) (string, bool) {
	switch {
	case name == "#":
		return strconv.Itoa(len(e.RT.Positional())), true
	case name == "?":
		return strconv.Itoa(e.RT.LastExitCode), true
	case name == "$":
		return strconv.Itoa(os.Getpid()), true
	case name == "0":
		if v, ok := e.RT.Lookup("0"); ok {
			return v.Value, true
		}
		return "lash", true
	case name == "@" || name == "*":
		return strings.Join(e.RT.Positional(), " "), true
	case len(name) >= 1 && name[0] >= '1' && name[0] <= '9':
		n, _ := strconv.Atoi(name)
		pos := e.RT.Positional()
		if n >= 1 && n <= len(pos) {
			return pos[n-1], true
		}
		return "", false
	}
	v, ok := e.RT.Lookup(name)
	if !ok {
		return "", false
	}
	return v.Value, true
}

// expandParam implements $name, ${name}, the suffix/prefix/default
// operators, and ${#name}.
func (e *Expander) expandParam(p token.Part) (string, error) {
	if p.ParamOp == "length" {
		if p.ParamName == "@" || p.ParamName == "*" {
			return strconv.Itoa(len(e.RT.Positional())), nil
		}
		v, _ := e.paramValue(p.ParamName)
		return strconv.Itoa(len(v)), nil
	}
	val, set := e.paramValue(p.ParamName)
	isNull := set && val == ""
	switch p.ParamOp {
	case "":
		if !set {
			if e.RT.Opts.Nounset {
				return "", &shellerr.Expansion{Msg: fmt.Sprintf("%s: unbound variable", p.ParamName)}
			}
			return "", nil
		}
		return val, nil
	case ":-":
		if !set || isNull {
			return e.expandArgText(p.ParamArg)
		}
		return val, nil
	case "-":
		if !set {
			return e.expandArgText(p.ParamArg)
		}
		return val, nil
	case ":=":
		if !set || isNull {
			word, err := e.expandArgText(p.ParamArg)
			if err != nil {
				return "", err
			}
			if err := e.RT.Set(p.ParamName, word); err != nil {
				return "", err
			}
			return word, nil
		}
		return val, nil
	case "=":
		if !set {
			word, err := e.expandArgText(p.ParamArg)
			if err != nil {
				return "", err
			}
			if err := e.RT.Set(p.ParamName, word); err != nil {
				return "", err
			}
			return word, nil
		}
		return val, nil
	case ":+":
		if set && !isNull {
			return e.expandArgText(p.ParamArg)
		}
		return "", nil
	case "+":
		if set {
			return e.expandArgText(p.ParamArg)
		}
		return "", nil
	case ":?":
		if !set || isNull {
			msg, _ := e.expandArgText(p.ParamArg)
			if msg == "" {
				msg = "parameter null or not set"
			}
			return "", &shellerr.Expansion{Msg: fmt.Sprintf("%s: %s", p.ParamName, msg)}
		}
		return val, nil
	case "?":
		if !set {
			msg, _ := e.expandArgText(p.ParamArg)
			if msg == "" {
				msg = "parameter not set"
			}
			return "", &shellerr.Expansion{Msg: fmt.Sprintf("%s: %s", p.ParamName, msg)}
		}
		return val, nil
	case "#", "##", "%", "%%":
		pat, err := e.expandArgText(p.ParamArg)
		if err != nil {
			return "", err
		}
		return trimByPattern(val, pat, p.ParamOp), nil
	}
	return val, nil
}

// expandArgText re-expands a ParamArg's raw (unexpanded) source text
// as a miniature word, reusing the lexer's part decomposition so
// nested expansions (${x:-$y}) work uniformly.
func (e *Expander) expandArgText(raw string) (string, error) {
	if raw == "" {
		return "", nil
	}
	parts, err := lexWordParts(raw)
	if err != nil {
		return raw, nil
	}
	pieces, err := e.expandParts(parts)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, pc := range pieces {
		b.WriteString(pc.text)
	}
	return b.String(), nil
}

// splitFields applies IFS word splitting (step 6) to the unquoted
// segments and reassembles contiguous quoted/unquoted runs into final
// fields. A field break only happens at an actual unquoted IFS
// separator: two unquoted pieces that abut across a part boundary
// without an intervening separator (e.g. $a$b) glue into one field,
// the same as they would within a single part's text. A standalone
// piece (the interior of a quoted "$@" with several positional
// parameters) always forms its own field regardless of what precedes
// or follows it.
func (e *Expander) splitFields(pieces []seg) ([]string, []bool) {
	ifs := e.RT.Get("IFS")
	ifsSet := true
	if _, ok := e.RT.Lookup("IFS"); !ok {
		ifsSet = false
	}
	if !ifsSet {
		ifs = " \t\n"
	}

	var fields []string
	var fieldQuoted []bool
	cur := strings.Builder{}
	curQuoted := false
	curHasContent := false
	flush := func() {
		if curHasContent {
			fields = append(fields, cur.String())
			fieldQuoted = append(fieldQuoted, curQuoted)
		}
		cur.Reset()
		curQuoted = false
		curHasContent = false
	}

	for _, pc := range pieces {
		if pc.standalone {
			flush()
			fields = append(fields, pc.text)
			fieldQuoted = append(fieldQuoted, true)
			continue
		}
		if pc.quoted {
			cur.WriteString(pc.text)
			curQuoted = true
			curHasContent = true
			continue
		}
		if ifs == "" || pc.text == "" {
			cur.WriteString(pc.text)
			curHasContent = curHasContent || pc.text != ""
			continue
		}
		text := pc.text
		for len(text) > 0 {
			r, size := utf8.DecodeRuneInString(text)
			if strings.ContainsRune(ifs, r) {
				flush()
				text = text[size:]
				continue
			}
			start := 0
			for start < len(text) {
				r2, size2 := utf8.DecodeRuneInString(text[start:])
				if strings.ContainsRune(ifs, r2) {
					break
				}
				start += size2
			}
			cur.WriteString(text[:start])
			curHasContent = true
			text = text[start:]
		}
	}
	flush()
	return fields, fieldQuoted
}

// lexWordParts re-lexes a raw argument string (a ParamArg's
// unexpanded source text) into parts by running it through the word
// lexer, so nested expansions like ${x:-$y} decompose the same way a
// top-level word does.
func lexWordParts(raw string) ([]token.Part, error) {
	l := lexer.New([]byte(raw))
	tok, err := l.Next()
	if err != nil {
		return nil, err
	}
	return tok.Parts, nil
}
