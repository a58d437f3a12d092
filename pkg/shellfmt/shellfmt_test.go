package shellfmt

import "testing"

func TestLine(t *testing.T) {
	tests := []struct {
		name     string
		argv     []string
		expected string
	}{
		{
			name:     "empty argv",
			argv:     nil,
			expected: "",
		},
		{
			name:     "plain words need no quoting",
			argv:     []string{"echo", "hello", "world"},
			expected: "echo hello world",
		},
		{
			name:     "word with a space gets single-quoted",
			argv:     []string{"echo", "hello world"},
			expected: `echo 'hello world'`,
		},
		{
			name:     "empty argument prints as ''",
			argv:     []string{"echo", ""},
			expected: "echo ''",
		},
		{
			name:     "embedded single quote is escaped bash-style",
			argv:     []string{"echo", "it's"},
			expected: `echo 'it'\''s'`,
		},
		{
			name:     "dollar sign forces quoting so it stays literal",
			argv:     []string{"echo", "$HOME"},
			expected: `echo '$HOME'`,
		},
		{
			name:     "glob metacharacters force quoting",
			argv:     []string{"ls", "*.go"},
			expected: `ls '*.go'`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Line(tt.argv); got != tt.expected {
				t.Errorf("Line(%v) = %q, want %q", tt.argv, got, tt.expected)
			}
		})
	}
}
