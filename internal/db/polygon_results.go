package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// SavePolygonResult records the outcome of one polygon within a run. Saving the same
// polygon twice for a run replaces the earlier record.
func (db *DB) SavePolygonResult(ctx context.Context, runID uuid.UUID, input *PolygonResultInput) (*PolygonResult, error) {
	var preparedJSON []byte
	if input.Prepared != nil {
		var err error
		preparedJSON, err = json.Marshal(input.Prepared)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal prepared state: %w", err)
		}
	}

	var result PolygonResult
	err := db.pool.QueryRow(ctx,
		`INSERT INTO polygon_results (run_id, polygon, status, last_step, duration_ms, error_message, prepared)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (run_id, polygon) DO UPDATE
		 SET status = EXCLUDED.status, last_step = EXCLUDED.last_step,
		     duration_ms = EXCLUDED.duration_ms, error_message = EXCLUDED.error_message,
		     prepared = EXCLUDED.prepared, created_at = NOW()
		 RETURNING id, run_id, polygon, status, last_step, duration_ms, error_message, prepared, created_at`,
		runID, input.Polygon, input.Status, input.LastStep, input.DurationMs, input.ErrorMessage, preparedJSON,
	).Scan(&result.ID, &result.RunID, &result.Polygon, &result.Status, &result.LastStep,
		&result.DurationMs, &result.ErrorMessage, &preparedJSON, &result.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to save polygon result %s: %w", input.Polygon, err)
	}
	result.Prepared = preparedJSON

	return &result, nil
}

// ListPolygonResults retrieves the results of a run, optionally filtered by status
func (db *DB) ListPolygonResults(ctx context.Context, runID uuid.UUID, status *string) ([]PolygonResult, error) {
	query := `SELECT id, run_id, polygon, status, last_step, duration_ms, error_message, prepared, created_at
		FROM polygon_results WHERE run_id = $1`
	args := []any{runID}

	if status != nil {
		query += " AND status = $2"
		args = append(args, *status)
	}
	query += " ORDER BY polygon ASC"

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list polygon results: %w", err)
	}
	defer rows.Close()

	var results []PolygonResult
	for rows.Next() {
		var r PolygonResult
		var preparedJSON []byte
		if err := rows.Scan(&r.ID, &r.RunID, &r.Polygon, &r.Status, &r.LastStep,
			&r.DurationMs, &r.ErrorMessage, &preparedJSON, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan polygon result: %w", err)
		}
		r.Prepared = preparedJSON
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list polygon results: %w", err)
	}
	return results, nil
}
