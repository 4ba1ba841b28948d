// Package pipeline provides the batch driver that prepares polygons through the forward
// and back stages.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bcgov/nr-vdyp-sub007/internal/back"
	"github.com/bcgov/nr-vdyp-sub007/internal/compute"
	"github.com/bcgov/nr-vdyp-sub007/internal/control"
	"github.com/bcgov/nr-vdyp-sub007/internal/db"
	"github.com/bcgov/nr-vdyp-sub007/internal/estimate"
	"github.com/bcgov/nr-vdyp-sub007/internal/forward"
	"github.com/bcgov/nr-vdyp-sub007/internal/observability"
	"github.com/bcgov/nr-vdyp-sub007/internal/pipeline/steps"
	"github.com/bcgov/nr-vdyp-sub007/internal/processing"
	"github.com/bcgov/nr-vdyp-sub007/internal/types"
)

// Store persists runs and their polygon results. *db.DB implements it.
type Store interface {
	CreateRun(ctx context.Context, input db.RunInput) (uuid.UUID, error)
	SavePolygonResult(ctx context.Context, runID uuid.UUID, input *db.PolygonResultInput) (*db.PolygonResult, error)
	CompleteRun(ctx context.Context, runID uuid.UUID, status string, processed, failed int) error
}

// ProgressEvent represents a progress update during a run
type ProgressEvent struct {
	Step    string `json:"step"`
	Polygon string `json:"polygon,omitempty"`
	Message string `json:"message"`
	RunID   string `json:"run_id,omitempty"`
}

// ProgressCallback is called when run progress occurs. It is called from worker
// goroutines and must be safe for concurrent use.
type ProgressCallback func(event ProgressEvent)

// RunOptions holds configuration for a batch run
type RunOptions struct {
	ControlMap *control.Map
	Estimator  estimate.Estimator // nil uses the control map's tables
	Polygons   []*types.Polygon
	InputPath  string
	LastStep   back.ExecutionStep
	Workers    int
	Verbose    bool

	Store      Store                  // optional
	Metrics    *observability.Metrics // optional
	Logger     *slog.Logger
	Out        io.Writer // progress output, os.Stdout when nil
	OnProgress ProgressCallback
}

// Outcome is the result of one polygon.
type Outcome struct {
	Polygon  *types.Polygon
	Summary  *back.Summary
	Err      error
	Duration time.Duration
}

// Result is the result of a run. Outcomes are in input order; polygons not reached
// because the run was aborted have a nil Polygon.
type Result struct {
	RunID     uuid.UUID
	Outcomes  []Outcome
	Processed int
	Failed    int
}

// Failures returns "<polygon>: <error>" for every failed polygon.
func (r *Result) Failures() []string {
	var out []string
	for _, o := range r.Outcomes {
		if o.Err != nil && o.Polygon != nil {
			out = append(out, fmt.Sprintf("%s: %v", o.Polygon.Identifier, o.Err))
		}
	}
	return out
}

// Prepared returns the summaries of the polygons that were prepared.
func (r *Result) Prepared() []*back.Summary {
	var out []*back.Summary
	for _, o := range r.Outcomes {
		if o.Err == nil && o.Summary != nil {
			out = append(out, o.Summary)
		}
	}
	return out
}

// emitProgress calls the progress callback if configured
func emitProgress(opts *RunOptions, runID uuid.UUID, step, polygon, message string) {
	if opts.OnProgress != nil {
		event := ProgressEvent{Step: step, Polygon: polygon, Message: message}
		if runID != uuid.Nil {
			event.RunID = runID.String()
		}
		opts.OnProgress(event)
	}
}

// Run prepares every polygon with a pool of workers, each owning one forward and one
// back engine. A polygon that fails with a processing error is recorded and skipped; a
// contract violation aborts the run and is returned along with the partial result. The
// step plan for LastStep is checked against the registered dependencies first.
func Run(ctx context.Context, opts RunOptions) (*Result, error) {
	if opts.ControlMap == nil {
		return nil, fmt.Errorf("control map is required")
	}
	if !back.Steps.Contains(opts.LastStep) {
		return nil, &processing.ContractError{Invariant: processing.InvariantUnknownStep, Detail: opts.LastStep.String()}
	}
	plan, err := steps.Plan(opts.LastStep)
	if err != nil {
		return nil, &processing.ContractError{Invariant: processing.InvariantUnknownStep, Detail: err.Error()}
	}
	if err := steps.ValidatePlan(plan); err != nil {
		return nil, &processing.ContractError{Invariant: processing.InvariantStepDependencies, Detail: err.Error()}
	}
	if opts.Estimator == nil {
		opts.Estimator = estimate.NewTableEstimator(opts.ControlMap)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	workers = min(workers, max(len(opts.Polygons), 1))

	result := &Result{Outcomes: make([]Outcome, len(opts.Polygons))}
	printer := observability.NewPrinter(opts.Out)
	var printMu sync.Mutex

	fmt.Fprintf(opts.Out, "Step 1/3: Registering run for %d polygons...\n", len(opts.Polygons))
	if opts.Store != nil {
		runID, err := opts.Store.CreateRun(ctx, db.RunInput{
			InputPath: opts.InputPath,
			LastStep:  opts.LastStep.String(),
			Workers:   workers,
		})
		if err != nil {
			fmt.Fprintf(opts.Out, "Warning: Failed to create database run: %v\n", err)
			fmt.Fprintf(opts.Out, "Continuing without database persistence...\n")
			opts.Store = nil
		} else {
			result.RunID = runID
			if opts.Verbose {
				fmt.Fprintf(opts.Out, "[VERBOSE] Created database run: %s\n", runID)
			}
		}
	}
	if result.RunID == uuid.Nil {
		result.RunID = uuid.New()
	}
	emitProgress(&opts, result.RunID, "register", "", fmt.Sprintf("run %s registered", result.RunID))

	fmt.Fprintf(opts.Out, "Step 2/3: Preparing polygons through %s with %d workers...\n", opts.LastStep, workers)
	if opts.Verbose {
		fmt.Fprintf(opts.Out, "[VERBOSE] Plan: %s\n", strings.Join(plan, " -> "))
	}

	computer := compute.NewComputer()
	indexes := make(chan int)
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(indexes)
		for i := range opts.Polygons {
			select {
			case indexes <- i:
			case <-gCtx.Done():
				return nil
			}
		}
		return nil
	})

	for w := 0; w < workers; w++ {
		logger := opts.Logger.With("worker", w)
		fwd := forward.NewEngine(opts.ControlMap, opts.Estimator, computer, processing.CarriedSource{}, logger)
		bck := back.NewEngine(opts.ControlMap, opts.Estimator, computer, fwd, logger)

		g.Go(func() error {
			for i := range indexes {
				if err := gCtx.Err(); err != nil {
					return err
				}

				outcome := preparePolygon(fwd, bck, opts.Polygons[i], opts.LastStep)
				result.Outcomes[i] = outcome

				if processing.IsContractError(outcome.Err) {
					return fmt.Errorf("polygon %s: %w", opts.Polygons[i].Identifier, outcome.Err)
				}
				record(gCtx, &opts, result.RunID, outcome)

				if opts.Verbose && outcome.Summary != nil {
					printMu.Lock()
					printer.PrintPrepared(outcome.Summary)
					printMu.Unlock()
				}
			}
			return nil
		})
	}

	runErr := g.Wait()

	for _, o := range result.Outcomes {
		switch {
		case o.Polygon == nil:
		case o.Err != nil:
			result.Failed++
		default:
			result.Processed++
		}
	}

	status := db.RunStatusCompleted
	if runErr != nil {
		status = db.RunStatusAborted
		if opts.Metrics != nil && processing.IsContractError(runErr) {
			opts.Metrics.ContractViolation()
		}
	}

	fmt.Fprintf(opts.Out, "Step 3/3: Recording run status %s...\n", status)
	if opts.Store != nil {
		if err := opts.Store.CompleteRun(context.WithoutCancel(ctx), result.RunID, status, result.Processed, result.Failed); err != nil {
			fmt.Fprintf(opts.Out, "Warning: Failed to complete database run: %v\n", err)
		}
	}
	emitProgress(&opts, result.RunID, "complete", "",
		fmt.Sprintf("%d prepared, %d failed", result.Processed, result.Failed))

	if runErr != nil {
		return result, fmt.Errorf("run aborted: %w", runErr)
	}
	return result, nil
}

func preparePolygon(fwd *forward.Engine, bck *back.Engine, polygon *types.Polygon, lastStep back.ExecutionStep) Outcome {
	start := time.Now()
	outcome := Outcome{Polygon: polygon}

	if _, err := fwd.ProcessPolygon(polygon, forward.StepAll); err != nil {
		outcome.Err = err
		outcome.Duration = time.Since(start)
		return outcome
	}

	updated, err := bck.ProcessPolygon(polygon, lastStep)
	if err != nil {
		outcome.Err = err
		outcome.Duration = time.Since(start)
		return outcome
	}
	outcome.Polygon = updated

	summary, err := bck.State().Summary()
	if err != nil {
		outcome.Err = err
	} else {
		outcome.Summary = summary
	}
	outcome.Duration = time.Since(start)
	return outcome
}

// record reports one finished polygon to the store, metrics and progress callback.
func record(ctx context.Context, opts *RunOptions, runID uuid.UUID, outcome Outcome) {
	id := outcome.Polygon.Identifier.String()
	status := db.PolygonStatusPrepared
	message := "prepared"
	var errMsg *string
	if outcome.Err != nil {
		status = db.PolygonStatusFailed
		message = outcome.Err.Error()
		errMsg = &message

		var procErr *processing.Error
		if !errors.As(outcome.Err, &procErr) {
			opts.Logger.Warn("polygon failed outside a processing error", "polygon", id, "error", outcome.Err)
		}
	}

	if opts.Metrics != nil {
		opts.Metrics.ObservePolygon(status, outcome.Duration.Seconds())
		if outcome.Summary != nil {
			n := 0
			for _, sp := range outcome.Summary.Species {
				if sp.Reconciled {
					n++
				}
			}
			opts.Metrics.AddReconciled(n)
		}
	}

	if opts.Store != nil {
		input := &db.PolygonResultInput{
			Polygon:      id,
			Status:       status,
			LastStep:     opts.LastStep.String(),
			DurationMs:   int(outcome.Duration.Milliseconds()),
			ErrorMessage: errMsg,
		}
		if outcome.Summary != nil {
			input.Prepared = outcome.Summary
		}
		if _, err := opts.Store.SavePolygonResult(ctx, runID, input); err != nil {
			opts.Logger.Warn("failed to save polygon result", "polygon", id, "error", err)
		}
	}

	emitProgress(opts, runID, status, id, message)
}
