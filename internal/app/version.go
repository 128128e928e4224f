// Package app wires the dftcalc configuration, backends and presentation
// together and dispatches to the CLI, server and calibration modes.
package app

import (
	"fmt"
	"io"
	"runtime"

	"github.com/agbru/dftcalc/internal/dft"
)

// Build metadata, set with -ldflags:
//
//	go build -ldflags="-X github.com/agbru/dftcalc/internal/app.Version=v1.2.3 -X github.com/agbru/dftcalc/internal/app.Commit=abc123 -X github.com/agbru/dftcalc/internal/app.BuildDate=2026-01-01T00:00:00Z" ./cmd/dftcalc
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// HasVersionFlag reports whether args contain a version flag in any
// position, so that "dftcalc -server --version" prints the version too.
func HasVersionFlag(args []string) bool {
	for _, arg := range args {
		if arg == "--version" || arg == "-version" || arg == "-V" {
			return true
		}
	}
	return false
}

// PrintVersion writes the build metadata and the runtime platform to out.
func PrintVersion(out io.Writer) {
	info := GetVersionInfo()
	fmt.Fprintf(out, "dftcalc %s\n", info.Version)
	fmt.Fprintf(out, "  Commit:     %s\n", info.Commit)
	fmt.Fprintf(out, "  Built:      %s\n", info.BuildDate)
	fmt.Fprintf(out, "  Go version: %s\n", info.GoVersion)
	fmt.Fprintf(out, "  OS/Arch:    %s/%s\n", info.OS, info.Arch)
	fmt.Fprintf(out, "  Device:     %s\n", info.Device)
}

// VersionData is the machine-readable form of PrintVersion.
type VersionData struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	// Device lists the SIMD features the CPU device reports.
	Device string `json:"device"`
}

// GetVersionInfo returns the current build and platform information.
func GetVersionInfo() VersionData {
	return VersionData{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		Device:    dft.HostFeatures(),
	}
}
