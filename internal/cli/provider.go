package cli

import apperrors "github.com/agbru/dftcalc/internal/errors"

var _ apperrors.ColorProvider = CLIColorProvider{}

// CLIColorProvider feeds the current theme's colors to
// apperrors.HandleExtractionError, which cannot import this package.
type CLIColorProvider struct{}

// Yellow returns the warning color of the current theme.
func (c CLIColorProvider) Yellow() string { return ColorYellow() }

// Reset returns the reset code of the current theme.
func (c CLIColorProvider) Reset() string { return ColorReset() }
