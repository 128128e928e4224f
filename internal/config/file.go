package config

import (
	"os"

	"gopkg.in/yaml.v3"

	apperrors "github.com/agbru/dftcalc/internal/errors"
)

// LoadFile reads a YAML configuration from path over base. Keys missing
// from the file keep the value they have in base.
func LoadFile(path string, base AppConfig) (AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return AppConfig{}, apperrors.NewConfigError("reading config file %s: %v", path, err)
	}
	cfg := base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return AppConfig{}, apperrors.NewConfigError("parsing config file %s: %v", path, err)
	}
	return cfg, nil
}

// Marshal renders cfg as YAML in the format LoadFile accepts.
func Marshal(cfg AppConfig) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// SaveFile writes cfg to path as YAML.
func SaveFile(path string, cfg AppConfig) error {
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
