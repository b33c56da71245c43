package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	scoring "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/domain/scoring"
)

//go:embed rubrics.yaml
var defaultRubrics []byte

// DefaultRubrics returns the embedded rubric catalog document.
func DefaultRubrics() []byte {
	out := make([]byte, len(defaultRubrics))
	copy(out, defaultRubrics)
	return out
}

// LoadRubrics reads the catalog at RubricsPath, or the embedded one when
// unset, and validates it with the options this config selects.
func (c *Config) LoadRubrics(_ context.Context) (*scoring.RubricSet, error) {
	data := defaultRubrics
	source := "embedded"
	if c.RubricsPath != "" {
		b, err := os.ReadFile(c.RubricsPath)
		if err != nil {
			return nil, fmt.Errorf("%w: rubrics %s: %w", ErrLoadConfig, c.RubricsPath, err)
		}
		data, source = b, c.RubricsPath
	}
	set, err := scoring.LoadRubricSet(data, c.RubricOptions()...)
	if err != nil {
		return nil, fmt.Errorf("%w: rubrics %s: %w", ErrInvalidConfig, source, err)
	}
	return set, nil
}
