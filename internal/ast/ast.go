// Package ast defines the abstract syntax tree produced by the parser.
package ast

import "github.com/kazz187/lash/internal/token"

// Separator is how one list item is joined to the next.
type Separator int

const (
	SeparatorSequential Separator = iota
	SeparatorBackground
)

// Node is implemented by every AST node so the executor can type-switch.
type Node interface {
	node()
}

// Program is a whole parsed script: a List plus any function defs that
// appeared at top level (functions are also reachable via List, this
// just makes "the script is a list" the single entry point).
type Program struct {
	Body List
}

func (Program) node() {}

// List is `and_or (sep and_or)*`.
type List struct {
	Items []ListItem
}

func (List) node() {}

type ListItem struct {
	AndOr AndOr
	Sep   Separator
}

// AndOrOp is && or ||.
type AndOrOp int

const (
	OpAnd AndOrOp = iota
	OpOr
)

// AndOr is a left-associative chain of pipelines joined by && / ||.
// Stored flat (not as a binary tree) since evaluation is strictly
// left-to-right and short-circuiting.
type AndOr struct {
	First Pipeline
	Rest  []AndOrTail
}

func (AndOr) node() {}

type AndOrTail struct {
	Op       AndOrOp
	Pipeline Pipeline
}

// Pipeline is `[!] command (| command)*`.
type Pipeline struct {
	Negated bool
	Stages  []Command
}

func (Pipeline) node() {}

// Command is implemented by every command-position node: SimpleCommand,
// the compound commands, and FunctionDef.
type Command interface {
	Node
	command()
}

// Assignment is NAME=value appearing in prefix (or bare) position.
type Assignment struct {
	Name  string
	Value Word
}

// Word is an ordered list of argument parts, i.e. 's "argument".
type Word struct {
	Parts []token.Part
	// Lit is the raw source text, used for diagnostics and for passing
	// through to mvdan.cc/sh/v3/syntax when rendering xtrace lines.
	Lit string
}

// RedirKind enumerates the redirection operators a simple command can
// carry.
type RedirKind int

const (
	RedirIn          RedirKind = iota // <
	RedirOut                          // >
	RedirAppend                       // >>
	RedirHereDoc                      // <<
	RedirHereDocTabs                  // <<-
	RedirHereString                   // <<<
	RedirDupIn                        // <&
	RedirDupOut                       // >&
	RedirReadWrite                    // <>
	RedirClobber                      // >|
	RedirOutErr                       // &>
)

// Redirect is one redirection attached to a command.
type Redirect struct {
	Kind     RedirKind
	Fd       int  // source fd; -1 means "default for Kind" (0 for <, 1 for >)
	FdGiven  bool // whether Fd was explicit (e.g. 2>file)
	Target   Word // filename, or the fd/word for dup forms
	HereDoc  string
	DupToFd  int // target fd number for n<&m / n>&m forms, -1 if Target is a word
	HasDupFd bool
}

// SimpleCommand is a single command invocation: assignments, argv
// words, and redirections, in original source order where it matters
// for `exec` semantics.
type SimpleCommand struct {
	Assignments []Assignment
	Words       []Word
	Redirects   []Redirect
}

func (SimpleCommand) node()    {}
func (SimpleCommand) command() {}

// Subshell is `( body )`.
type Subshell struct {
	Body List
}

func (Subshell) node()    {}
func (Subshell) command() {}

// Group is `{ body ; }`.
type Group struct {
	Body List
}

func (Group) node()    {}
func (Group) command() {}

// If is the if/elif/else chain.
type If struct {
	Cond List
	Then List
	Elifs []ElifClause
	Else  *List
}

func (If) node()    {}
func (If) command() {}

type ElifClause struct {
	Cond List
	Then List
}

// While and Until share shape; distinguished by the Until flag so the
// executor can invert the loop-continuation test in one place.
type While struct {
	Cond  List
	Body  List
	Until bool
}

func (While) node()    {}
func (While) command() {}

// For iterates Words (after expansion) binding each to Name in turn.
// If Words is nil, the for loop is `for name; do ... done`, which
// POSIX defines as iterating "$@".
type For struct {
	Name  string
	Words []Word
	Body  List
}

func (For) node()    {}
func (For) command() {}

// Case selects the first matching arm.
type Case struct {
	Scrutinee Word
	Arms      []CaseArm
}

func (Case) node()    {}
func (Case) command() {}

type CaseArm struct {
	Patterns []Word
	Body     List
}

// FunctionDef stores the compound command that follows `name ()` or
// `function name` unexpanded, so each call re-expands it against the
// current variable bindings.
type FunctionDef struct {
	Name string
	Body Command
}

func (FunctionDef) node()    {}
func (FunctionDef) command() {}
