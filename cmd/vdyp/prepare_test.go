package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcgov/nr-vdyp-sub007/internal/back"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		level     string
		wantDebug bool
		wantErr   bool
	}{
		{level: "", wantDebug: false},
		{level: "debug", wantDebug: true},
		{level: "warn", wantDebug: false},
		{level: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := newLogger(tt.level, &buf)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDebug, logger.Enabled(context.Background(), slog.LevelDebug))
		})
	}
}

func TestSummaryPath(t *testing.T) {
	assert.Equal(t, "out/prepared.prepared.json", summaryPath("out/prepared.json"))
	assert.Equal(t, "out/prepared.prepared.json", summaryPath("out/prepared"))
}

func TestLoadControlMap(t *testing.T) {
	m, err := loadControlMap("")
	require.NoError(t, err)
	_, ok := m.SizeLimits("B", "COASTAL")
	assert.True(t, ok)

	_, err = loadControlMap(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestWriteSummaries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.prepared.json")
	ba := 20.0
	require.NoError(t, writeSummaries(path, []*back.Summary{{Polygon: "P 2000", BaseAreaVeteran: &ba}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got []back.Summary
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "P 2000", got[0].Polygon)

	require.NoError(t, writeSummaries(path, nil))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", strings.TrimSpace(string(data)))
}

func TestPrepareCommand_Success(t *testing.T) {
	binaryPath := getBinaryPath(t)
	out := filepath.Join(t.TempDir(), "prepared.json")
	metrics := filepath.Join(t.TempDir(), "vdyp.prom")

	cmd := exec.Command(binaryPath, "prepare",
		"--input", filepath.Join("testdata", "polygons.json"),
		"--out", out,
		"--metrics-file", metrics,
		"--workers", "2",
	)
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, string(output))

	assert.Contains(t, string(output), "RUN SUMMARY")
	assert.Contains(t, string(output), "Prepared:  1")
	assert.FileExists(t, out)
	assert.FileExists(t, summaryPath(out))
	assert.FileExists(t, metrics)
}

func TestPrepareCommand_MissingInput(t *testing.T) {
	binaryPath := getBinaryPath(t)

	cmd := exec.Command(binaryPath, "prepare")
	output, err := cmd.CombinedOutput()

	assert.Error(t, err, "command should fail")
	assert.Contains(t, string(output), "--input must be provided")
}

func TestPrepareCommand_InvalidLastStep(t *testing.T) {
	binaryPath := getBinaryPath(t)

	cmd := exec.Command(binaryPath, "prepare", "--input", filepath.Join("testdata", "polygons.json"), "--last-step", "sideways")
	output, err := cmd.CombinedOutput()

	assert.Error(t, err, "command should fail")
	assert.Contains(t, string(output), "last_step")
}
