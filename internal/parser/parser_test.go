package parser

import (
	"testing"

	"github.com/kazz187/lash/internal/ast"
)

func mustParse(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, err := ParseProgram([]byte(src), nil)
	if err != nil {
		t.Fatalf("ParseProgram(%q): %v", src, err)
	}
	return prog
}

func firstSimple(t *testing.T, prog *ast.Program) ast.SimpleCommand {
	t.Helper()
	if len(prog.Body.Items) != 1 {
		t.Fatalf("expected 1 list item, got %d", len(prog.Body.Items))
	}
	cmd := prog.Body.Items[0].AndOr.First.Stages[0]
	sc, ok := cmd.(ast.SimpleCommand)
	if !ok {
		t.Fatalf("expected a SimpleCommand, got %T", cmd)
	}
	return sc
}

func TestParseSimpleCommand(t *testing.T) {
	sc := firstSimple(t, mustParse(t, "echo hello world"))
	if len(sc.Words) != 3 || sc.Words[0].Lit != "echo" || sc.Words[2].Lit != "world" {
		t.Fatalf("got words %+v", sc.Words)
	}
}

func TestParseAssignmentPrefix(t *testing.T) {
	sc := firstSimple(t, mustParse(t, "FOO=bar echo hi"))
	if len(sc.Assignments) != 1 || sc.Assignments[0].Name != "FOO" || sc.Assignments[0].Value.Lit != "bar" {
		t.Fatalf("got assignments %+v", sc.Assignments)
	}
	if len(sc.Words) != 2 || sc.Words[0].Lit != "echo" {
		t.Fatalf("got words %+v", sc.Words)
	}
}

func TestParseBareAssignmentIsNotAWord(t *testing.T) {
	sc := firstSimple(t, mustParse(t, "FOO=bar"))
	if len(sc.Assignments) != 1 || len(sc.Words) != 0 {
		t.Fatalf("got assignments=%+v words=%+v", sc.Assignments, sc.Words)
	}
}

func TestParsePipeline(t *testing.T) {
	prog := mustParse(t, "a | b | c")
	pl := prog.Body.Items[0].AndOr.First
	if len(pl.Stages) != 3 {
		t.Fatalf("expected 3 pipeline stages, got %d", len(pl.Stages))
	}
}

func TestParseNegatedPipeline(t *testing.T) {
	prog := mustParse(t, "! true")
	pl := prog.Body.Items[0].AndOr.First
	if !pl.Negated {
		t.Fatal("expected Negated to be true")
	}
}

func TestParseAndOrChain(t *testing.T) {
	prog := mustParse(t, "a && b || c")
	ao := prog.Body.Items[0].AndOr
	if len(ao.Rest) != 2 {
		t.Fatalf("expected 2 tail entries, got %d", len(ao.Rest))
	}
	if ao.Rest[0].Op != ast.OpAnd || ao.Rest[1].Op != ast.OpOr {
		t.Fatalf("got ops %v, %v", ao.Rest[0].Op, ao.Rest[1].Op)
	}
}

func TestParseBackgroundSeparator(t *testing.T) {
	prog := mustParse(t, "sleep 1 &")
	if prog.Body.Items[0].Sep != ast.SeparatorBackground {
		t.Fatalf("expected SeparatorBackground, got %v", prog.Body.Items[0].Sep)
	}
}

func TestParseIf(t *testing.T) {
	prog := mustParse(t, "if true; then echo yes; elif false; then echo maybe; else echo no; fi")
	if len(prog.Body.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(prog.Body.Items))
	}
	n, ok := prog.Body.Items[0].AndOr.First.Stages[0].(ast.If)
	if !ok {
		t.Fatalf("expected ast.If, got %T", prog.Body.Items[0].AndOr.First.Stages[0])
	}
	if len(n.Elifs) != 1 || n.Else == nil {
		t.Fatalf("expected 1 elif and a non-nil else, got elifs=%d else=%v", len(n.Elifs), n.Else)
	}
}

func TestParseWhileUntil(t *testing.T) {
	prog := mustParse(t, "until false; do echo loop; done")
	n, ok := prog.Body.Items[0].AndOr.First.Stages[0].(ast.While)
	if !ok {
		t.Fatalf("expected ast.While, got %T", prog.Body.Items[0].AndOr.First.Stages[0])
	}
	if !n.Until {
		t.Fatal("expected Until to be true")
	}
}

func TestParseForWithWords(t *testing.T) {
	prog := mustParse(t, "for x in a b c; do echo $x; done")
	n, ok := prog.Body.Items[0].AndOr.First.Stages[0].(ast.For)
	if !ok {
		t.Fatalf("expected ast.For, got %T", prog.Body.Items[0].AndOr.First.Stages[0])
	}
	if n.Name != "x" || len(n.Words) != 3 {
		t.Fatalf("got name=%q words=%+v", n.Name, n.Words)
	}
}

func TestParseForWithoutWordsIteratesPositional(t *testing.T) {
	prog := mustParse(t, "for x; do echo $x; done")
	n, ok := prog.Body.Items[0].AndOr.First.Stages[0].(ast.For)
	if !ok {
		t.Fatalf("expected ast.For, got %T", prog.Body.Items[0].AndOr.First.Stages[0])
	}
	if n.Words != nil {
		t.Fatalf("expected nil Words for positional iteration, got %+v", n.Words)
	}
}

func TestParseCase(t *testing.T) {
	prog := mustParse(t, "case $x in a|b) echo ab ;; *) echo other ;; esac")
	n, ok := prog.Body.Items[0].AndOr.First.Stages[0].(ast.Case)
	if !ok {
		t.Fatalf("expected ast.Case, got %T", prog.Body.Items[0].AndOr.First.Stages[0])
	}
	if len(n.Arms) != 2 || len(n.Arms[0].Patterns) != 2 {
		t.Fatalf("got arms %+v", n.Arms)
	}
}

func TestParseSubshellAndGroup(t *testing.T) {
	prog := mustParse(t, "(echo a)")
	if _, ok := prog.Body.Items[0].AndOr.First.Stages[0].(ast.Subshell); !ok {
		t.Fatalf("expected ast.Subshell, got %T", prog.Body.Items[0].AndOr.First.Stages[0])
	}
	prog = mustParse(t, "{ echo a; }")
	if _, ok := prog.Body.Items[0].AndOr.First.Stages[0].(ast.Group); !ok {
		t.Fatalf("expected ast.Group, got %T", prog.Body.Items[0].AndOr.First.Stages[0])
	}
}

func TestParseFunctionDefBothForms(t *testing.T) {
	prog := mustParse(t, "foo() { echo hi; }")
	fn, ok := prog.Body.Items[0].AndOr.First.Stages[0].(ast.FunctionDef)
	if !ok || fn.Name != "foo" {
		t.Fatalf("expected FunctionDef named foo, got %+v (ok=%v)", prog.Body.Items[0].AndOr.First.Stages[0], ok)
	}

	prog = mustParse(t, "function bar { echo hi; }")
	fn, ok = prog.Body.Items[0].AndOr.First.Stages[0].(ast.FunctionDef)
	if !ok || fn.Name != "bar" {
		t.Fatalf("expected FunctionDef named bar, got %+v (ok=%v)", prog.Body.Items[0].AndOr.First.Stages[0], ok)
	}
}

func TestParseRedirections(t *testing.T) {
	sc := firstSimple(t, mustParse(t, "echo hi > out.txt 2>> err.txt"))
	if len(sc.Redirects) != 2 {
		t.Fatalf("expected 2 redirects, got %+v", sc.Redirects)
	}
	if sc.Redirects[0].Kind != ast.RedirOut || sc.Redirects[0].Target.Lit != "out.txt" {
		t.Fatalf("got first redirect %+v", sc.Redirects[0])
	}
	if sc.Redirects[1].Kind != ast.RedirAppend || sc.Redirects[1].Fd != 2 {
		t.Fatalf("got second redirect %+v", sc.Redirects[1])
	}
}

func TestParseHereDoc(t *testing.T) {
	sc := firstSimple(t, mustParse(t, "cat <<EOF\nhello\nEOF\n"))
	if len(sc.Redirects) != 1 || sc.Redirects[0].Kind != ast.RedirHereDoc {
		t.Fatalf("got redirects %+v", sc.Redirects)
	}
	if sc.Redirects[0].HereDoc != "hello\n" {
		t.Fatalf("got here-doc body %q", sc.Redirects[0].HereDoc)
	}
}

func TestParseAliasExpansionAtCommandStart(t *testing.T) {
	aliases := map[string]string{"ll": "ls -l"}
	lookup := func(name string) (string, bool) {
		v, ok := aliases[name]
		return v, ok
	}
	prog, err := ParseProgram([]byte("ll /tmp"), lookup)
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	sc, ok := prog.Body.Items[0].AndOr.First.Stages[0].(ast.SimpleCommand)
	if !ok {
		t.Fatalf("expected ast.SimpleCommand, got %T", prog.Body.Items[0].AndOr.First.Stages[0])
	}
	if len(sc.Words) != 3 || sc.Words[0].Lit != "ls" || sc.Words[1].Lit != "-l" || sc.Words[2].Lit != "/tmp" {
		t.Fatalf("got words %+v", sc.Words)
	}
}

func TestParseErrorReportsPosition(t *testing.T) {
	_, err := ParseProgram([]byte("if true; then"), nil)
	if err == nil {
		t.Fatal("expected a parse error for an unterminated if")
	}
}
