package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_ValidJSON(t *testing.T) {
	content := `{
		"input": "polygons.json",
		"output": "prepared.json",
		"last_step": "SIZE_LIMITS",
		"workers": 8,
		"verbose": true
	}`

	tmpFile := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(tmpFile, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "polygons.json", cfg.Input)
	assert.Equal(t, "prepared.json", cfg.Output)
	assert.Equal(t, "SIZE_LIMITS", cfg.LastStep)
	assert.Equal(t, 8, cfg.Workers)
	assert.True(t, cfg.Verbose)
}

func TestLoadConfig_Errors(t *testing.T) {
	invalid := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(invalid, []byte(`{ invalid json }`), 0644))

	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{name: "invalid JSON", path: invalid, wantErr: "failed to parse config JSON"},
		{name: "file not found", path: "/nonexistent/path/config.json", wantErr: "failed to read config file"},
		{name: "empty path", path: "", wantErr: "config path is empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig(tt.path)
			assert.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "valid", cfg: Config{LastStep: "COMPATIBILITY_VARIABLES", Workers: 2, LogLevel: "debug"}},
		{name: "empty", cfg: Config{}},
		{name: "unknown step", cfg: Config{LastStep: "GROW"}, wantErr: "last_step"},
		{name: "negative workers", cfg: Config{Workers: -1}, wantErr: "workers"},
		{name: "unknown log level", cfg: Config{LogLevel: "trace"}, wantErr: "log_level"},
		{name: "missing control map", cfg: Config{ControlMap: "/nonexistent/control.yaml"}, wantErr: "control map not found"},
		{name: "missing input", cfg: Config{Input: "/nonexistent/polygons.json"}, wantErr: "input file not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMergeWithDefaults(t *testing.T) {
	partial := Config{
		Input:   "custom.json",
		Workers: 1,
	}

	merged := partial.MergeWithDefaults(Defaults)

	// Custom values should be preserved
	assert.Equal(t, "custom.json", merged.Input)
	assert.Equal(t, 1, merged.Workers)

	// Default values should fill in empty fields
	assert.Equal(t, "ALL", merged.LastStep)
	assert.Equal(t, "info", merged.LogLevel)
	assert.Empty(t, merged.DatabaseURL)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvDatabaseURL, "postgres://localhost/vdyp")
	t.Setenv(EnvControlMap, "control.yaml")

	cfg := Config{ControlMap: "explicit.yaml"}
	cfg.ApplyEnv()

	assert.Equal(t, "postgres://localhost/vdyp", cfg.DatabaseURL)
	assert.Equal(t, "explicit.yaml", cfg.ControlMap, "file values win over the environment")
}
