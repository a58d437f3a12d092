// Package shellfmt renders already-expanded argv as a single,
// properly quoted shell line, for `set -x` (xtrace) output. It reuses mvdan.cc/sh/v3/syntax purely as a
// pretty-printer — parse a synthesized command, reprint it — never as
// this module's interpreter, the same narrow technique the sibling
// backend module's shellformat package applies to user-supplied shell
// one-liners.
package shellfmt

import (
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// Line quotes and joins argv the way a POSIX shell would need to
// reparse it unambiguously, by building a CallExpr and printing it
// through syntax.Printer.
func Line(argv []string) string {
	if len(argv) == 0 {
		return ""
	}
	call := &syntax.CallExpr{}
	for _, a := range argv {
		call.Args = append(call.Args, word(a))
	}
	stmt := &syntax.Stmt{Cmd: call}
	var b strings.Builder
	printer := syntax.NewPrinter()
	if err := printer.Print(&b, &syntax.File{Stmts: []*syntax.Stmt{stmt}}); err != nil {
		return strings.Join(argv, " ")
	}
	return strings.TrimRight(b.String(), "\n")
}

func word(s string) *syntax.Word {
	return &syntax.Word{Parts: []syntax.WordPart{&syntax.Lit{Value: quoteIfNeeded(s)}}}
}

// quoteIfNeeded single-quotes s if it contains characters the printer
// would otherwise need to re-escape, matching the defensive quoting a
// trace line needs to stay copy-pasteable.
func quoteIfNeeded(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n'\"$`\\|&;()<>*?[]{}~") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
