package color

import "testing"

func clearColorEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"NO_COLOR", "FORCE_COLOR", "TERM", "CI", "COLORTERM"} {
		t.Setenv(k, "")
	}
}

func TestColorizeHonorsNoColor(t *testing.T) {
	clearColorEnv(t)
	t.Setenv("NO_COLOR", "1")
	t.Setenv("FORCE_COLOR", "1")
	if got := Colorize("hi", Red); got != "hi" {
		t.Errorf("got %q, want plain text when NO_COLOR is set", got)
	}
}

func TestColorizeForceColorWrapsText(t *testing.T) {
	clearColorEnv(t)
	t.Setenv("FORCE_COLOR", "1")
	got := Colorize("hi", Red)
	want := Red + "hi" + Reset
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestColorizeDumbTermStaysPlain(t *testing.T) {
	clearColorEnv(t)
	t.Setenv("TERM", "dumb")
	if got := Colorize("hi", Red); got != "hi" {
		t.Errorf("got %q, want plain text for TERM=dumb", got)
	}
}

func TestGetAgentColorIsDeterministic(t *testing.T) {
	clearColorEnv(t)
	t.Setenv("FORCE_COLOR", "1")
	c1 := GetAgentColor("agent-7")
	c2 := GetAgentColor("agent-7")
	if c1 != c2 {
		t.Errorf("expected the same agent ID to always map to the same color, got %q then %q", c1, c2)
	}
	if c1 == "" {
		t.Error("expected a non-empty color when color is supported")
	}
}

func TestGetAgentColorEmptyWhenUnsupported(t *testing.T) {
	clearColorEnv(t)
	t.Setenv("NO_COLOR", "1")
	if got := GetAgentColor("agent-7"); got != "" {
		t.Errorf("got %q, want empty when color is unsupported", got)
	}
}

func TestFormatAgentPrefixWrapsID(t *testing.T) {
	clearColorEnv(t)
	t.Setenv("NO_COLOR", "1")
	if got, want := FormatAgentPrefix("abc"), "[abc]"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestColor256FormatsEscapeSequence(t *testing.T) {
	if got, want := Color256(214), "\033[38;5;214m"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
