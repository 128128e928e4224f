package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestGenerateCompletion(t *testing.T) {
	t.Parallel()
	backends := []string{"accelerator", "sequential", "task_scheduled"}
	tests := []struct {
		shell string
		want  []string
	}{
		{"bash", []string{"complete -F _dftcalc_completions dftcalc", `backends="accelerator sequential task_scheduled all"`}},
		{"zsh", []string{"#compdef dftcalc", "backends=(accelerator sequential task_scheduled all)"}},
		{"fish", []string{"complete -c dftcalc", "'accelerator sequential task_scheduled all'"}},
	}

	for _, tt := range tests {
		t.Run(tt.shell, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			if err := GenerateCompletion(&buf, tt.shell, backends); err != nil {
				t.Fatalf("GenerateCompletion(%s) error = %v", tt.shell, err)
			}
			for _, w := range tt.want {
				if !strings.Contains(buf.String(), w) {
					t.Errorf("%s script missing %q", tt.shell, w)
				}
			}
			if strings.Contains(buf.String(), "%!") {
				t.Errorf("%s script has a formatting error", tt.shell)
			}
		})
	}
}

func TestGenerateCompletion_Unsupported(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	err := GenerateCompletion(&buf, "powershell", nil)
	if err == nil || !strings.Contains(err.Error(), "unsupported shell") {
		t.Errorf("expected unsupported shell error, got %v", err)
	}
}
