// Package parser builds an ast.Program from a token.Token stream,
// driving a full-script grammar rather than parsing line by line.
package parser

import (
	"fmt"
	"strings"

	"github.com/kazz187/lash/internal/ast"
	"github.com/kazz187/lash/internal/lexer"
	"github.com/kazz187/lash/internal/token"
)

// Error is a ParseError: a grammar violation with a precise position
// and the first unexpected token.
type Error struct {
	Msg   string
	Pos   token.Pos
	Found token.Token
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: parse error: %s (found %s)", e.Pos, e.Msg, e.Found)
}

// AliasLookup resolves an alias name to its replacement text. The
// parser calls it only at command-start position, expanding the alias
// table during parsing rather than pre-processing the source text.
type AliasLookup func(name string) (string, bool)

type lexFrame struct {
	lex       *lexer.Lexer
	expanding string // alias name being expanded through this frame, "" for the root source
}

// Parser is a recursive-descent parser with one token of lookahead.
type Parser struct {
	frames  []*lexFrame
	tok     token.Token
	alias   AliasLookup
	started bool
}

// New creates a Parser over src. alias may be nil to disable alias
// expansion (e.g. when parsing `eval` strings, which still honors
// aliases defined in the current shell, so callers normally pass one).
func New(src []byte, alias AliasLookup) *Parser {
	p := &Parser{alias: alias}
	p.frames = []*lexFrame{{lex: lexer.New(src)}}
	return p
}

func (p *Parser) top() *lexFrame { return p.frames[len(p.frames)-1] }

// advance reads the next raw token from the current frame stack,
// popping exhausted alias-expansion frames transparently.
func (p *Parser) advance() error {
	for {
		fr := p.top()
		tok, err := fr.lex.Next()
		if err != nil {
			return err
		}
		if tok.Kind == token.EOF && len(p.frames) > 1 {
			p.frames = p.frames[:len(p.frames)-1]
			continue
		}
		p.tok = tok
		if tok.Kind == token.Word && tok.Quote == token.Unquoted {
			// Promote reserved words and the `{`, `}`, `!` words to their
			// keyword kinds; parseSimpleCommand turns them back into
			// plain words when they appear in argument position.
			if k, ok := token.LookupKeyword(tok.Lit); ok {
				p.tok.Kind = k
			} else if k, ok := map[string]token.Kind{"{": token.LBrace, "}": token.RBrace, "!": token.Bang}[tok.Lit]; ok {
				p.tok.Kind = k
			}
		}
		return nil
	}
}

func (p *Parser) next() error {
	if !p.started {
		p.started = true
		return p.advance()
	}
	return p.advance()
}

// ParseProgram parses the entire input before any of it executes
// (script mode, as opposed to a line-at-a-time REPL parse).
func ParseProgram(src []byte, alias AliasLookup) (*ast.Program, error) {
	p := New(src, alias)
	if err := p.next(); err != nil {
		return nil, err
	}
	p.skipNewlines()
	list, err := p.parseList(nil)
	if err != nil {
		return nil, err
	}
	if p.tok.Kind != token.EOF {
		return nil, &Error{Msg: "unexpected trailing input", Pos: p.tok.Start, Found: p.tok}
	}
	return &ast.Program{Body: *list}, nil
}

func (p *Parser) skipNewlines() error {
	for p.tok.Kind == token.Newline {
		if err := p.advance(); err != nil {
			return err
		}
	}
	return nil
}

// isListEnd reports whether the current token closes an enclosing
// compound construct, given the keywords/operators that terminate it.
func isListEnd(k token.Kind, enders []token.Kind) bool {
	if k == token.EOF {
		return true
	}
	for _, e := range enders {
		if k == e {
			return true
		}
	}
	return false
}

// parseList parses `and_or (sep and_or)*`. enders names the token
// kinds that end the list without being consumed (e.g. `fi`, `done`,
// `)`, `}` for compounds; nil for top-level/EOF-terminated lists).
func (p *Parser) parseList(enders []token.Kind) (*ast.List, error) {
	list := &ast.List{}
	if err := p.skipNewlines(); err != nil {
		return nil, err
	}
	for !isListEnd(p.tok.Kind, enders) {
		ao, err := p.parseAndOr()
		if err != nil {
			return nil, err
		}
		sawSep := p.tok.Kind == token.Amp || p.tok.Kind == token.Semi || p.tok.Kind == token.Newline
		sep := ast.SeparatorSequential
		switch p.tok.Kind {
		case token.Amp:
			sep = ast.SeparatorBackground
			if err := p.advance(); err != nil {
				return nil, err
			}
		case token.Semi:
			if err := p.advance(); err != nil {
				return nil, err
			}
		case token.Newline:
			// handled by skipNewlines below
		}
		list.Items = append(list.Items, ast.ListItem{AndOr: *ao, Sep: sep})
		if err := p.skipNewlines(); err != nil {
			return nil, err
		}
		if isListEnd(p.tok.Kind, enders) {
			break
		}
		if !sawSep {
			// another and_or may follow only if we actually advanced
			// past a separator above or a newline; otherwise the token
			// that ended this and_or would silently start a new command,
			// so "no separator consumed and not at list end" is an error.
			return nil, &Error{Msg: "expected ;, & or newline", Pos: p.tok.Start, Found: p.tok}
		}
	}
	return list, nil
}

func (p *Parser) parseAndOr() (*ast.AndOr, error) {
	first, err := p.parsePipeline()
	if err != nil {
		return nil, err
	}
	ao := &ast.AndOr{First: *first}
	for {
		var op ast.AndOrOp
		switch p.tok.Kind {
		case token.AndAnd:
			op = ast.OpAnd
		case token.OrOr:
			op = ast.OpOr
		default:
			return ao, nil
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.skipNewlines(); err != nil {
			return nil, err
		}
		rhs, err := p.parsePipeline()
		if err != nil {
			return nil, err
		}
		ao.Rest = append(ao.Rest, ast.AndOrTail{Op: op, Pipeline: *rhs})
	}
}

func (p *Parser) parsePipeline() (*ast.Pipeline, error) {
	pl := &ast.Pipeline{}
	if p.tok.Kind == token.Bang {
		pl.Negated = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	for {
		cmd, err := p.parseCommand()
		if err != nil {
			return nil, err
		}
		pl.Stages = append(pl.Stages, cmd)
		if p.tok.Kind != token.Pipe {
			return pl, nil
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.skipNewlines(); err != nil {
			return nil, err
		}
	}
}

var compoundEnders = map[token.Kind][]token.Kind{
	token.If:    {token.Fi},
	token.While: {token.Done},
	token.Until: {token.Done},
	token.For:   {token.Done},
}

func (p *Parser) parseCommand() (ast.Command, error) {
	switch p.tok.Kind {
	case token.If:
		return p.parseIf()
	case token.While, token.Until:
		return p.parseWhile()
	case token.For:
		return p.parseFor()
	case token.Case:
		return p.parseCase()
	case token.LParen:
		return p.parseSubshell()
	case token.LBrace:
		return p.parseGroup()
	case token.Function:
		return p.parseFunctionKeyword()
	case token.Word:
		if p.tok.Quote == token.Unquoted && looksLikeFunctionDef(p) {
			return p.parseFunctionParen()
		}
		return p.parseSimpleCommand()
	default:
		return nil, &Error{Msg: "expected a command", Pos: p.tok.Start, Found: p.tok}
	}
}

// looksLikeFunctionDef reports whether the current Word is immediately
// followed by `()`, i.e. `name ()`. We can only see one token of
// lookahead cheaply, so we special-case it in parseCommand by trying
// parseFunctionParen and falling back is avoided: instead we peek by
// scanning ahead with a cloned lexer state is expensive, so the
// grammar is resolved the simple way real shells do it: after reading
// the word, check for an immediately following LParen RParen pair
// before deciding; this helper performs that bounded lookahead.
func looksLikeFunctionDef(p *Parser) bool {
	name := p.tok.Lit
	if !isValidFuncName(name) {
		return false
	}
	fr := p.top()
	save := *fr.lex
	next1, err := fr.lex.Next()
	if err != nil {
		*fr.lex = save
		return false
	}
	if next1.Kind != token.LParen {
		*fr.lex = save
		return false
	}
	next2, err := fr.lex.Next()
	if err != nil || next2.Kind != token.RParen {
		*fr.lex = save
		return false
	}
	*fr.lex = save
	return true
}

func isValidFuncName(s string) bool {
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

func (p *Parser) parseFunctionParen() (ast.Command, error) {
	name := p.tok.Lit
	if err := p.advance(); err != nil { // consume name
		return nil, err
	}
	if err := p.advance(); err != nil { // consume (
		return nil, err
	}
	if err := p.advance(); err != nil { // consume )
		return nil, err
	}
	if err := p.skipNewlines(); err != nil {
		return nil, err
	}
	body, err := p.parseCommand()
	if err != nil {
		return nil, err
	}
	return ast.FunctionDef{Name: name, Body: body}, nil
}

func (p *Parser) parseFunctionKeyword() (ast.Command, error) {
	if err := p.advance(); err != nil { // consume `function`
		return nil, err
	}
	if p.tok.Kind != token.Word {
		return nil, &Error{Msg: "expected function name", Pos: p.tok.Start, Found: p.tok}
	}
	name := p.tok.Lit
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok.Kind == token.LParen {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.Kind != token.RParen {
			return nil, &Error{Msg: "expected ) in function definition", Pos: p.tok.Start, Found: p.tok}
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if err := p.skipNewlines(); err != nil {
		return nil, err
	}
	body, err := p.parseCommand()
	if err != nil {
		return nil, err
	}
	return ast.FunctionDef{Name: name, Body: body}, nil
}

func (p *Parser) expect(k token.Kind) error {
	if p.tok.Kind != k {
		return &Error{Msg: fmt.Sprintf("expected %v", k), Pos: p.tok.Start, Found: p.tok}
	}
	return p.advance()
}

func (p *Parser) parseIf() (ast.Command, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	cond, err := p.parseList([]token.Kind{token.Then})
	if err != nil {
		return nil, err
	}
	if err := p.expect(token.Then); err != nil {
		return nil, err
	}
	thenList, err := p.parseList([]token.Kind{token.Elif, token.Else, token.Fi})
	if err != nil {
		return nil, err
	}
	n := ast.If{Cond: *cond, Then: *thenList}
	for p.tok.Kind == token.Elif {
		if err := p.advance(); err != nil {
			return nil, err
		}
		ec, err := p.parseList([]token.Kind{token.Then})
		if err != nil {
			return nil, err
		}
		if err := p.expect(token.Then); err != nil {
			return nil, err
		}
		et, err := p.parseList([]token.Kind{token.Elif, token.Else, token.Fi})
		if err != nil {
			return nil, err
		}
		n.Elifs = append(n.Elifs, ast.ElifClause{Cond: *ec, Then: *et})
	}
	if p.tok.Kind == token.Else {
		if err := p.advance(); err != nil {
			return nil, err
		}
		el, err := p.parseList([]token.Kind{token.Fi})
		if err != nil {
			return nil, err
		}
		n.Else = el
	}
	if err := p.expect(token.Fi); err != nil {
		return nil, err
	}
	return n, nil
}

func (p *Parser) parseWhile() (ast.Command, error) {
	until := p.tok.Kind == token.Until
	if err := p.advance(); err != nil {
		return nil, err
	}
	cond, err := p.parseList([]token.Kind{token.Do})
	if err != nil {
		return nil, err
	}
	if err := p.expect(token.Do); err != nil {
		return nil, err
	}
	body, err := p.parseList([]token.Kind{token.Done})
	if err != nil {
		return nil, err
	}
	if err := p.expect(token.Done); err != nil {
		return nil, err
	}
	return ast.While{Cond: *cond, Body: *body, Until: until}, nil
}

func (p *Parser) parseFor() (ast.Command, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok.Kind != token.Word {
		return nil, &Error{Msg: "expected name after for", Pos: p.tok.Start, Found: p.tok}
	}
	name := p.tok.Lit
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.skipNewlines(); err != nil {
		return nil, err
	}
	var words []ast.Word
	hasWords := false
	if p.tok.Kind == token.In {
		hasWords = true
		if err := p.advance(); err != nil {
			return nil, err
		}
		for p.tok.Kind == token.Word {
			words = append(words, ast.Word{Parts: p.tok.Parts, Lit: p.tok.Lit})
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		if p.tok.Kind == token.Semi || p.tok.Kind == token.Newline {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	} else if p.tok.Kind == token.Semi {
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if err := p.skipNewlines(); err != nil {
		return nil, err
	}
	if err := p.expect(token.Do); err != nil {
		return nil, err
	}
	body, err := p.parseList([]token.Kind{token.Done})
	if err != nil {
		return nil, err
	}
	if err := p.expect(token.Done); err != nil {
		return nil, err
	}
	if !hasWords {
		words = nil // nil means "iterate $@", see ast.For doc
	}
	return ast.For{Name: name, Words: words, Body: *body}, nil
}

func (p *Parser) parseCase() (ast.Command, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok.Kind != token.Word {
		return nil, &Error{Msg: "expected word after case", Pos: p.tok.Start, Found: p.tok}
	}
	scrut := ast.Word{Parts: p.tok.Parts, Lit: p.tok.Lit}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.skipNewlines(); err != nil {
		return nil, err
	}
	if err := p.expect(token.In); err != nil {
		return nil, err
	}
	if err := p.skipNewlines(); err != nil {
		return nil, err
	}
	c := ast.Case{Scrutinee: scrut}
	for p.tok.Kind != token.Esac {
		if p.tok.Kind == token.LParen {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		var pats []ast.Word
		for {
			if p.tok.Kind != token.Word {
				return nil, &Error{Msg: "expected case pattern", Pos: p.tok.Start, Found: p.tok}
			}
			pats = append(pats, ast.Word{Parts: p.tok.Parts, Lit: p.tok.Lit})
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.tok.Kind == token.Pipe {
				if err := p.advance(); err != nil {
					return nil, err
				}
				continue
			}
			break
		}
		if err := p.expect(token.RParen); err != nil {
			return nil, err
		}
		if err := p.skipNewlines(); err != nil {
			return nil, err
		}
		body, err := p.parseList([]token.Kind{token.DSemi, token.Esac})
		if err != nil {
			return nil, err
		}
		c.Arms = append(c.Arms, ast.CaseArm{Patterns: pats, Body: *body})
		if p.tok.Kind == token.DSemi {
			if err := p.advance(); err != nil {
				return nil, err
			}
			if err := p.skipNewlines(); err != nil {
				return nil, err
			}
		}
	}
	if err := p.expect(token.Esac); err != nil {
		return nil, err
	}
	return c, nil
}

func (p *Parser) parseSubshell() (ast.Command, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	body, err := p.parseList([]token.Kind{token.RParen})
	if err != nil {
		return nil, err
	}
	if err := p.expect(token.RParen); err != nil {
		return nil, err
	}
	return ast.Subshell{Body: *body}, nil
}

func (p *Parser) parseGroup() (ast.Command, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	body, err := p.parseList([]token.Kind{token.RBrace})
	if err != nil {
		return nil, err
	}
	if err := p.expect(token.RBrace); err != nil {
		return nil, err
	}
	return ast.Group{Body: *body}, nil
}

// parseSimpleCommand implements
// `(assignment|redirection)* word (word|redirection)*`, with
// command-start alias expansion applied to the first word.
func (p *Parser) parseSimpleCommand() (ast.Command, error) {
	cmd := ast.SimpleCommand{}
	first := true
	for {
		if r, ok, err := p.tryParseRedirect(); err != nil {
			return nil, err
		} else if ok {
			cmd.Redirects = append(cmd.Redirects, r)
			continue
		}
		if len(cmd.Words) > 0 && p.tok.Kind != token.Word && p.tok.Parts != nil {
			p.tok.Kind = token.Word // a promoted keyword in argument position
		}
		if p.tok.Kind != token.Word {
			break
		}
		if name, val, isAssign := assignmentPrefix(p.tok.Lit); isAssign && len(cmd.Words) == 0 {
			cmd.Assignments = append(cmd.Assignments, ast.Assignment{Name: name, Value: assignmentValueWord(p.tok, val)})
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		if first {
			if err := p.maybeExpandAlias(); err != nil {
				return nil, err
			}
			if p.tok.Kind != token.Word {
				first = false
				continue
			}
		}
		cmd.Words = append(cmd.Words, ast.Word{Parts: p.tok.Parts, Lit: p.tok.Lit})
		first = false
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if len(cmd.Words) == 0 && len(cmd.Assignments) == 0 && len(cmd.Redirects) == 0 {
		return nil, &Error{Msg: "expected a command", Pos: p.tok.Start, Found: p.tok}
	}
	return cmd, nil
}

// maybeExpandAlias performs the one-pass, command-start-only alias
// rewrite. It pushes a new lexer frame over the alias's replacement
// text so subsequent tokens are re-lexed from it.
func (p *Parser) maybeExpandAlias() error {
	if p.alias == nil || p.tok.Kind != token.Word || p.tok.Quote != token.Unquoted {
		return nil
	}
	name := p.tok.Lit
	fr := p.top()
	if fr.expanding == name {
		return nil // one-pass: don't re-expand the same alias recursively
	}
	repl, ok := p.alias(name)
	if !ok {
		return nil
	}
	newFrame := &lexFrame{lex: lexer.New([]byte(repl)), expanding: name}
	p.frames = append(p.frames, newFrame)
	return p.advance()
}

// assignmentPrefix recognizes `[A-Za-z_][A-Za-z0-9_]*=value` and
// splits it. `--name=value` long options fail the leading-identifier
// check and so remain a single regular word.
func assignmentPrefix(lit string) (name, value string, ok bool) {
	i := 0
	if i >= len(lit) || !(lit[i] == '_' || (lit[i] >= 'a' && lit[i] <= 'z') || (lit[i] >= 'A' && lit[i] <= 'Z')) {
		return "", "", false
	}
	i++
	for i < len(lit) && (lit[i] == '_' || (lit[i] >= 'a' && lit[i] <= 'z') || (lit[i] >= 'A' && lit[i] <= 'Z') || (lit[i] >= '0' && lit[i] <= '9')) {
		i++
	}
	if i >= len(lit) || lit[i] != '=' {
		return "", "", false
	}
	return lit[:i], lit[i+1:], true
}

// assignmentValueWord rebuilds a Word for the value half of an
// assignment token, slicing the already-decomposed Parts so later
// expansion sees the exact same parameter/command/arith refs.
func assignmentValueWord(tok token.Token, value string) ast.Word {
	eq := strings.IndexByte(tok.Lit, '=')
	if eq < 0 {
		return ast.Word{Lit: value}
	}
	consumed := 0
	var parts []token.Part
	for _, part := range tok.Parts {
		if part.Kind == token.PartLiteral {
			if consumed+len(part.Text) <= eq+1 {
				consumed += len(part.Text)
				continue
			}
			start := 0
			if consumed < eq+1 {
				start = eq + 1 - consumed
			}
			parts = append(parts, token.Part{Kind: token.PartLiteral, Quote: part.Quote, Text: part.Text[start:]})
			consumed += len(part.Text)
			continue
		}
		parts = append(parts, part)
	}
	return ast.Word{Parts: parts, Lit: value}
}

// tryParseRedirect consumes one redirection if the current token
// begins one (optionally preceded by an explicit fd digit word).
func (p *Parser) tryParseRedirect() (ast.Redirect, bool, error) {
	fd := -1
	fdGiven := false
	if p.tok.Kind == token.Word && isAllDigits(p.tok.Lit) && p.peekIsRedirectOperator() {
		n := 0
		for _, c := range p.tok.Lit {
			n = n*10 + int(c-'0')
		}
		fd = n
		fdGiven = true
		if err := p.advance(); err != nil {
			return ast.Redirect{}, false, err
		}
	}
	kind, ok := redirKindOf(p.tok.Kind)
	if !ok {
		return ast.Redirect{}, false, nil
	}
	if err := p.advance(); err != nil {
		return ast.Redirect{}, false, err
	}
	r := ast.Redirect{Kind: kind, Fd: fd, FdGiven: fdGiven, DupToFd: -1}
	if kind == ast.RedirDupIn || kind == ast.RedirDupOut {
		if p.tok.Kind == token.Word && (isAllDigits(p.tok.Lit) || p.tok.Lit == "-") {
			if p.tok.Lit == "-" {
				r.DupToFd = -2 // close
			} else {
				n := 0
				for _, c := range p.tok.Lit {
					n = n*10 + int(c-'0')
				}
				r.DupToFd = n
				r.HasDupFd = true
			}
			if err := p.advance(); err != nil {
				return ast.Redirect{}, false, err
			}
			return r, true, nil
		}
	}
	if kind == ast.RedirHereDoc || kind == ast.RedirHereDocTabs {
		if p.tok.Kind != token.Word {
			return ast.Redirect{}, false, &Error{Msg: "expected here-document delimiter", Pos: p.tok.Start, Found: p.tok}
		}
		delim := stripQuotesForDelim(p.tok.Lit)
		stripTabs := kind == ast.RedirHereDocTabs
		expand := !strings.ContainsAny(p.tok.Lit, "'\"\\")
		if err := p.advance(); err != nil {
			return ast.Redirect{}, false, err
		}
		body, err := p.top().lex.ReadHereDocBody(delim, stripTabs)
		if err != nil {
			return ast.Redirect{}, false, err
		}
		r.HereDoc = body
		r.Target = ast.Word{Lit: delim}
		if !expand {
			r.Target.Parts = []token.Part{{Kind: token.PartSingleQuoted, Text: body}}
		}
		return r, true, nil
	}
	if p.tok.Kind != token.Word {
		return ast.Redirect{}, false, &Error{Msg: "expected redirection target", Pos: p.tok.Start, Found: p.tok}
	}
	r.Target = ast.Word{Parts: p.tok.Parts, Lit: p.tok.Lit}
	if err := p.advance(); err != nil {
		return ast.Redirect{}, false, err
	}
	return r, true, nil
}

func (p *Parser) peekIsRedirectOperator() bool {
	fr := p.top()
	save := *fr.lex
	next, err := fr.lex.Next()
	*fr.lex = save
	if err != nil {
		return false
	}
	_, ok := redirKindOf(next.Kind)
	return ok
}

func redirKindOf(k token.Kind) (ast.RedirKind, bool) {
	switch k {
	case token.Less:
		return ast.RedirIn, true
	case token.Great:
		return ast.RedirOut, true
	case token.DGreat:
		return ast.RedirAppend, true
	case token.DLess:
		return ast.RedirHereDoc, true
	case token.DLessDash:
		return ast.RedirHereDocTabs, true
	case token.TLess:
		return ast.RedirHereString, true
	case token.LessAnd:
		return ast.RedirDupIn, true
	case token.GreatAnd:
		return ast.RedirDupOut, true
	case token.LessGreat:
		return ast.RedirReadWrite, true
	case token.Clobber:
		return ast.RedirClobber, true
	case token.AndGreat:
		return ast.RedirOutErr, true
	}
	return 0, false
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func stripQuotesForDelim(lit string) string {
	var b strings.Builder
	inSingle, inDouble := false, false
	for i := 0; i < len(lit); i++ {
		c := lit[i]
		switch {
		case c == '\'' && !inDouble:
			inSingle = !inSingle
		case c == '"' && !inSingle:
			inDouble = !inDouble
		case c == '\\' && !inSingle && i+1 < len(lit):
			i++
			b.WriteByte(lit[i])
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
