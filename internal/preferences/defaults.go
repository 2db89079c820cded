package preferences

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/fieldroute/fieldroute/internal/optimizer"
)

// LoadDefaults reads a YAML file of preference overrides and applies it to
// the built-in defaults. An empty path returns the built-in defaults.
func LoadDefaults(path string) (optimizer.Preferences, error) {
	defaults := optimizer.DefaultPreferences()
	if path == "" {
		return defaults, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return defaults, fmt.Errorf("read preferences defaults: %w", err)
	}
	return ParseDefaults(data)
}

// ParseDefaults applies YAML overrides to the built-in defaults and
// validates the result.
func ParseDefaults(data []byte) (optimizer.Preferences, error) {
	var o Overrides
	if err := yaml.Unmarshal(data, &o); err != nil {
		return optimizer.Preferences{}, fmt.Errorf("parse preferences defaults: %w", err)
	}

	p := o.Apply(optimizer.DefaultPreferences())
	if err := p.Validate(); err != nil {
		return optimizer.Preferences{}, fmt.Errorf("preferences defaults: %w", err)
	}
	return p, nil
}
