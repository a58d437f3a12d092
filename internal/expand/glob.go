package expand

import (
	"path/filepath"
	"sort"
	"strings"
)

// trimByPattern implements the #, ##, %, %% parameter-expansion
// operators: strip the shortest/longest prefix or suffix match of a
// glob pattern.
func trimByPattern(val, pat, op string) string {
	switch op {
	case "#":
		return trimPrefix(val, pat, false)
	case "##":
		return trimPrefix(val, pat, true)
	case "%":
		return trimSuffix(val, pat, false)
	case "%%":
		return trimSuffix(val, pat, true)
	}
	return val
}

func trimPrefix(val, pat string, longest bool) string {
	best := -1
	for i := 0; i <= len(val); i++ {
		if ok, _ := filepath.Match(pat, val[:i]); ok {
			best = i
			if !longest {
				break
			}
		}
	}
	if best < 0 {
		return val
	}
	return val[best:]
}

func trimSuffix(val, pat string, longest bool) string {
	best := -1
	if longest {
		for i := 0; i <= len(val); i++ {
			if ok, _ := filepath.Match(pat, val[i:]); ok {
				best = i
				break
			}
		}
	} else {
		for i := len(val); i >= 0; i-- {
			if ok, _ := filepath.Match(pat, val[i:]); ok {
				best = i
				break
			}
		}
	}
	if best < 0 {
		return val
	}
	return val[:best]
}

// globField implements pathname expansion: if the field contains glob
// metacharacters, match it against the filesystem relative to the
// Runtime's working directory; dotfiles only match when the pattern's
// basename itself starts with a dot; on no match, the literal pattern
// is kept unchanged rather than expanding to nothing.
func (e *Expander) globField(field string) []string {
	if !hasMeta(field) {
		return []string{field}
	}
	pattern := field
	if !filepath.IsAbs(pattern) {
		pattern = filepath.Join(e.RT.WorkingDir, pattern)
	}
	matches, err := filepath.Glob(pattern)
	if err != nil || len(matches) == 0 {
		return []string{field}
	}
	base := filepath.Base(field)
	wantDot := strings.HasPrefix(base, ".")
	var out []string
	for _, m := range matches {
		mb := filepath.Base(m)
		if strings.HasPrefix(mb, ".") && !wantDot {
			continue
		}
		rel := m
		if !filepath.IsAbs(field) {
			if r, err := filepath.Rel(e.RT.WorkingDir, m); err == nil {
				rel = r
			}
		}
		out = append(out, rel)
	}
	if len(out) == 0 {
		return []string{field}
	}
	sort.Strings(out)
	return out
}

func hasMeta(s string) bool {
	return strings.ContainsAny(s, "*?[")
}
