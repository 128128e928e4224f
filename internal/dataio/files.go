package dataio

import (
	"os"

	"github.com/agbru/dftcalc/internal/dft"
	apperrors "github.com/agbru/dftcalc/internal/errors"
)

// LoadSourcesFile opens path and reads it with LoadSources. Errors are
// reported as apperrors.InputError.
func LoadSourcesFile(path string, cellSize float64) ([]dft.Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewInputError(path, err)
	}
	defer f.Close()

	sources, err := LoadSources(f, cellSize)
	if err != nil {
		return nil, apperrors.NewInputError(path, err)
	}
	return sources, nil
}

// LoadVisibilitiesFile opens path and reads it with LoadVisibilities.
func LoadVisibilitiesFile(path string, frequencyHz float64) ([]dft.Visibility, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewInputError(path, err)
	}
	defer f.Close()

	visibilities, _, err := LoadVisibilities(f, frequencyHz)
	if err != nil {
		return nil, apperrors.NewInputError(path, err)
	}
	return visibilities, nil
}

// LoadRecordsFile reads every column of a saved output or visibilities file.
func LoadRecordsFile(path string, frequencyHz float64) ([]VisibilityRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewInputError(path, err)
	}
	defer f.Close()

	records, err := LoadVisibilityRecords(f, frequencyHz)
	if err != nil {
		return nil, apperrors.NewInputError(path, err)
	}
	return records, nil
}

// SaveVisibilitiesFile creates path and writes the extraction result.
func SaveVisibilitiesFile(path string, frequencyHz float64, visibilities []dft.Visibility, output []dft.Complex) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return SaveVisibilities(f, frequencyHz, visibilities, output)
}
