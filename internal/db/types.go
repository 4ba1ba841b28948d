package db

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Run status constants
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusAborted   = "aborted"
)

// Polygon result status constants
const (
	PolygonStatusPrepared = "prepared"
	PolygonStatusFailed   = "failed"
)

// Run represents a projection run record
type Run struct {
	ID          uuid.UUID  `json:"id"`
	InputPath   string     `json:"input_path"`
	LastStep    string     `json:"last_step"`
	Workers     int        `json:"workers"`
	Status      string     `json:"status"`
	Processed   int        `json:"processed"`
	Failed      int        `json:"failed"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// RunInput represents input for creating a run
type RunInput struct {
	InputPath string
	LastStep  string
	Workers   int
}

// PolygonResult represents the outcome of one polygon within a run
type PolygonResult struct {
	ID           uuid.UUID       `json:"id"`
	RunID        uuid.UUID       `json:"run_id"`
	Polygon      string          `json:"polygon"`
	Status       string          `json:"status"`
	LastStep     string          `json:"last_step"`
	DurationMs   int             `json:"duration_ms"`
	ErrorMessage *string         `json:"error_message,omitempty"`
	Prepared     json.RawMessage `json:"prepared,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// PolygonResultInput represents input for saving a polygon result
type PolygonResultInput struct {
	Polygon      string
	Status       string
	LastStep     string
	DurationMs   int
	ErrorMessage *string
	Prepared     any
}
