package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// LoadTOML attempts to load configuration from .lineidx.toml in dir. It
// returns nil, nil when the file does not exist.
func LoadTOML(dir string) (*Config, error) {
	tomlPath := filepath.Join(dir, TOMLFileName)

	if _, err := os.Stat(tomlPath); os.IsNotExist(err) {
		return nil, nil
	}
	return LoadFile(tomlPath)
}

// parseTOML overlays the document on Default, so missing keys keep their
// default values. Unknown keys are rejected.
func parseTOML(content []byte) (*Config, error) {
	cfg := Default()

	dec := toml.NewDecoder(bytes.NewReader(content))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return nil, fmt.Errorf("failed to parse TOML config at %d:%d: %w", row, col, err)
		}
		return nil, fmt.Errorf("failed to parse TOML config: %w", err)
	}
	return cfg, nil
}
