package app

import (
	"bytes"
	"runtime"
	"strings"
	"testing"
)

func TestHasVersionFlag(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		args []string
		want bool
	}{
		{"Empty", nil, false},
		{"No version flag", []string{"-backend", "all"}, false},
		{"Long", []string{"--version"}, true},
		{"Short", []string{"-V"}, true},
		{"Single dash", []string{"-version"}, true},
		{"After other flags", []string{"-server", "-port", "9090", "--version"}, true},
		{"Flag value", []string{"-sources-file", "version"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := HasVersionFlag(tt.args); got != tt.want {
				t.Errorf("HasVersionFlag(%v) = %v, want %v", tt.args, got, tt.want)
			}
		})
	}
}

func TestPrintVersion(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	PrintVersion(&buf)
	output := buf.String()
	for _, want := range []string{"dftcalc " + Version, "Commit:", "Built:", runtime.Version(), runtime.GOOS + "/" + runtime.GOARCH, "Device:"} {
		if !strings.Contains(output, want) {
			t.Errorf("PrintVersion output lacks %q:\n%s", want, output)
		}
	}
}

func TestGetVersionInfo(t *testing.T) {
	t.Parallel()
	info := GetVersionInfo()
	if info.Version != Version || info.Commit != Commit || info.BuildDate != BuildDate {
		t.Errorf("build metadata = %+v", info)
	}
	if info.GoVersion != runtime.Version() || info.OS != runtime.GOOS || info.Arch != runtime.GOARCH {
		t.Errorf("runtime metadata = %+v", info)
	}
	if info.Device == "" {
		t.Error("Device is empty")
	}
}
