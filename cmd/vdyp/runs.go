package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/bcgov/nr-vdyp-sub007/internal/config"
	"github.com/bcgov/nr-vdyp-sub007/internal/db"
)

var runsCommand = &cobra.Command{
	Use:   "runs",
	Short: "List recorded preparation runs, or the polygon results of one run",
	RunE:  runRunsCmd,
}

var (
	runsID          string
	runsLimit       int
	runsFailedOnly  bool
	runsDatabaseURL string
)

func init() {
	runsCommand.Flags().StringVar(&runsID, "run-id", "", "Show the polygon results of this run")
	runsCommand.Flags().IntVar(&runsLimit, "limit", 20, "Maximum runs to list")
	runsCommand.Flags().BoolVar(&runsFailedOnly, "failed", false, "Only show failed polygons (with --run-id)")
	runsCommand.Flags().StringVar(&runsDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
	rootCmd.AddCommand(runsCommand)
}

func runRunsCmd(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	if runsDatabaseURL == "" {
		runsDatabaseURL = os.Getenv(config.EnvDatabaseURL)
	}
	if runsDatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable or --db-url flag is required")
	}

	database, err := db.Connect(ctx, runsDatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	if runsID == "" {
		runs, err := database.ListRuns(ctx, runsLimit)
		if err != nil {
			return err
		}
		for _, r := range runs {
			_, _ = fmt.Fprintf(os.Stdout, "%s  %-9s  %-23s  prepared %d  failed %d  %s\n",
				r.ID, r.Status, r.LastStep, r.Processed, r.Failed, r.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	}

	runID, err := uuid.Parse(runsID)
	if err != nil {
		return fmt.Errorf("invalid run id: %w", err)
	}
	run, err := database.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run not found: %s", runID)
	}

	var status *string
	if runsFailedOnly {
		failed := db.PolygonStatusFailed
		status = &failed
	}
	results, err := database.ListPolygonResults(ctx, runID, status)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(os.Stdout, "Run %s (%s, through %s): %d prepared, %d failed\n",
		run.ID, run.Status, run.LastStep, run.Processed, run.Failed)
	for _, r := range results {
		line := fmt.Sprintf("  %-30s %-8s %5dms", r.Polygon, r.Status, r.DurationMs)
		if r.ErrorMessage != nil {
			line += "  " + *r.ErrorMessage
		}
		_, _ = fmt.Fprintln(os.Stdout, line)
	}
	return nil
}
