// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Environment variables consulted when neither the config file nor a flag sets a value.
const (
	EnvDatabaseURL = "DATABASE_URL"
	EnvControlMap  = "VDYP_CONTROL_MAP"
)

// Config represents the CLI configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Paths
	ControlMap  string `json:"control_map,omitempty"`  // YAML control map; empty uses the embedded default
	Input       string `json:"input,omitempty"`        // Polygon input JSON
	Output      string `json:"output,omitempty"`       // Prepared polygons JSON
	MetricsFile string `json:"metrics_file,omitempty"` // Prometheus textfile written after a run

	// Behavior
	LastStep    string `json:"last_step,omitempty" validate:"omitempty,oneof=NONE BASE_AREA_VETERAN COMPATIBILITY_VARIABLES SIZE_LIMITS ALL"`
	Workers     int    `json:"workers,omitempty" validate:"gte=0,lte=256"`
	Verbose     bool   `json:"verbose,omitempty"`
	LogLevel    string `json:"log_level,omitempty" validate:"omitempty,oneof=debug info warn error"`
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL
}

// Defaults are the values used when neither the config file nor a flag provides one.
var Defaults = Config{
	LastStep: "ALL",
	Workers:  4,
	LogLevel: "info",
}

var validate = validator.New()

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Required inputs are checked by the CLI after merging flags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fmt.Sprintf("'%s' failed %s", jsonName(fe.Field()), fe.Tag()))
			}
			return fmt.Errorf("config error: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("config error: %w", err)
	}

	if c.ControlMap != "" {
		if _, err := os.Stat(c.ControlMap); os.IsNotExist(err) {
			return fmt.Errorf("config error: control map not found: %s", c.ControlMap)
		}
	}
	if c.Input != "" {
		if _, err := os.Stat(c.Input); os.IsNotExist(err) {
			return fmt.Errorf("config error: input file not found: %s", c.Input)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.ControlMap == "" {
		result.ControlMap = defaults.ControlMap
	}
	if result.Input == "" {
		result.Input = defaults.Input
	}
	if result.Output == "" {
		result.Output = defaults.Output
	}
	if result.MetricsFile == "" {
		result.MetricsFile = defaults.MetricsFile
	}
	if result.LastStep == "" {
		result.LastStep = defaults.LastStep
	}
	if result.LogLevel == "" {
		result.LogLevel = defaults.LogLevel
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}

	if result.Workers == 0 {
		result.Workers = defaults.Workers
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// ApplyEnv fills the database URL and control map path from the environment when they
// are still empty.
func (c *Config) ApplyEnv() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv(EnvDatabaseURL)
	}
	if c.ControlMap == "" {
		c.ControlMap = os.Getenv(EnvControlMap)
	}
}

func jsonName(field string) string {
	switch field {
	case "LastStep":
		return "last_step"
	case "LogLevel":
		return "log_level"
	case "Workers":
		return "workers"
	}
	return strings.ToLower(field)
}
