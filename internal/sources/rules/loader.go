package rules

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Loader reads the tracking rules file.
type Loader struct {
	filePath string
}

// NewLoader creates a loader for filePath.
func NewLoader(filePath string) *Loader {
	return &Loader{
		filePath: filePath,
	}
}

// Path returns the file the loader reads.
func (l *Loader) Path() string { return l.filePath }

// Load reads and parses the rules file.
func (l *Loader) Load() (Config, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read rules file: %w", err)
	}

	data = expandVariables(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse rules yaml: %w", err)
	}

	return cfg, nil
}

var varPattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// expandVariables replaces {{NAME}} with the value of the NAME environment
// variable. Unset variables expand to an empty string.
func expandVariables(data []byte) []byte {
	return varPattern.ReplaceAllFunc(data, func(m []byte) []byte {
		name := varPattern.FindSubmatch(m)[1]
		return []byte(os.Getenv(string(name)))
	})
}
