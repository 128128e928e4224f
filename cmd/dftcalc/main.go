// Command dftcalc extracts visibilities from a sky model with a Direct
// Fourier Transform on interchangeable backends.
package main

import (
	"context"
	"io"
	"os"

	"github.com/agbru/dftcalc/internal/app"
	apperrors "github.com/agbru/dftcalc/internal/errors"
	"github.com/agbru/dftcalc/internal/logging"
)

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) > 1 && app.HasVersionFlag(args[1:]) {
		app.PrintVersion(stdout)
		return apperrors.ExitSuccess
	}

	application, err := app.New(args, stderr)
	if err != nil {
		if app.IsHelpError(err) {
			return apperrors.ExitSuccess
		}
		return apperrors.ExitErrorConfig
	}

	level, _ := logging.ParseLevel(application.Config.LogLevel)
	logging.Setup(stderr, level, !application.Config.JSONOutput)

	return application.Run(context.Background(), stdout)
}
