package ui

import (
	"os"
	"testing"
)

func TestInitTheme(t *testing.T) {
	original := GetCurrentTheme()
	t.Cleanup(func() { SetCurrentTheme(original) })

	tests := []struct {
		name    string
		noColor bool
		env     map[string]string
		want    string
	}{
		{"Default", false, nil, "dark"},
		{"Flag", true, map[string]string{ThemeEnv: "light"}, "none"},
		{"NO_COLOR empty value", false, map[string]string{"NO_COLOR": ""}, "none"},
		{"Dumb terminal", false, map[string]string{"TERM": "dumb"}, "none"},
		{"Light palette", false, map[string]string{ThemeEnv: "light"}, "light"},
		{"Unknown palette", false, map[string]string{ThemeEnv: "solarized"}, "dark"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TERM", "xterm-256color")
			t.Setenv(ThemeEnv, "")
			unsetNoColor(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			InitTheme(tt.noColor)
			if got := GetCurrentTheme().Name; got != tt.want {
				t.Errorf("InitTheme(%v) selected %q, want %q", tt.noColor, got, tt.want)
			}
		})
	}
}

// unsetNoColor removes NO_COLOR until the test ends. t.Setenv records the
// previous value so that it is restored afterwards.
func unsetNoColor(t *testing.T) {
	t.Helper()
	t.Setenv("NO_COLOR", "")
	if err := os.Unsetenv("NO_COLOR"); err != nil {
		t.Fatal(err)
	}
}

func TestLookupTheme(t *testing.T) {
	t.Parallel()
	for _, name := range []string{"dark", "light", "none"} {
		th, ok := LookupTheme(name)
		if !ok || th.Name != name {
			t.Errorf("LookupTheme(%q) = %q, %v", name, th.Name, ok)
		}
	}
	if _, ok := LookupTheme("sepia"); ok {
		t.Error("LookupTheme accepted an unknown name")
	}
}

func TestThemeRoles(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		theme Theme
		got   string
		want  string
	}{
		{"Header", DarkTheme, DarkTheme.Header("Backend"), "\033[4mBackend\033[0m"},
		{"Passing status", DarkTheme, DarkTheme.Status(true, "ok"), DarkTheme.Success + "ok" + DarkTheme.Reset},
		{"Failing status", LightTheme, LightTheme.Status(false, "bad"), LightTheme.Error + "bad" + LightTheme.Reset},
		{"Backend without colors", NoColorTheme, NoColorTheme.Backend("sequential"), "sequential"},
		{"Duration without colors", NoColorTheme, NoColorTheme.Duration("1ms"), "1ms"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if tt.got != tt.want {
				t.Errorf("%s role = %q, want %q", tt.theme.Name, tt.got, tt.want)
			}
		})
	}
}
