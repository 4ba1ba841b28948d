package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bcgov/nr-vdyp-sub007/internal/back"
	"github.com/bcgov/nr-vdyp-sub007/internal/config"
	"github.com/bcgov/nr-vdyp-sub007/internal/control"
	"github.com/bcgov/nr-vdyp-sub007/internal/db"
	"github.com/bcgov/nr-vdyp-sub007/internal/ingestion"
	"github.com/bcgov/nr-vdyp-sub007/internal/observability"
	"github.com/bcgov/nr-vdyp-sub007/internal/pipeline"
	"github.com/bcgov/nr-vdyp-sub007/internal/types"
)

var prepareCommand = &cobra.Command{
	Use:   "prepare",
	Short: "Prepare a batch of polygons for back projection",
	Long: `Runs every polygon of the input through the forward stage and the back stage preparation steps: base area veteran -> compatibility variables -> size limits.

Configuration can be loaded from a JSON file using --config. Command-line arguments override config file values.`,
	RunE: runPrepareCmd,
}

var (
	prepareConfigPath  string
	prepareControlMap  string
	prepareInput       string
	prepareOutput      string
	prepareMetricsFile string
	prepareLastStep    string
	prepareWorkers     int
	prepareVerbose     bool
	prepareLogLevel    string
	prepareDatabaseURL string
)

func init() {
	// Config file flag (processed first)
	prepareCommand.Flags().StringVar(&prepareConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	prepareCommand.Flags().StringVarP(&prepareInput, "input", "i", "", "Path to polygon input JSON")
	prepareCommand.Flags().StringVarP(&prepareOutput, "out", "o", "", "Path to write prepared polygons JSON (optional)")
	prepareCommand.Flags().StringVar(&prepareControlMap, "control-map", "", "Path to control map YAML (optional, defaults to VDYP_CONTROL_MAP or the built-in map)")
	prepareCommand.Flags().StringVar(&prepareMetricsFile, "metrics-file", "", "Path to write Prometheus textfile metrics (optional)")
	prepareCommand.Flags().StringVar(&prepareLastStep, "last-step", "", "Last back stage step to run: NONE, BASE_AREA_VETERAN, COMPATIBILITY_VARIABLES, SIZE_LIMITS or ALL")
	prepareCommand.Flags().IntVarP(&prepareWorkers, "workers", "w", 0, "Number of polygons processed concurrently")
	prepareCommand.Flags().BoolVarP(&prepareVerbose, "verbose", "v", false, "Print each prepared polygon")
	prepareCommand.Flags().StringVar(&prepareLogLevel, "log-level", "", "Log level: debug, info, warn or error")

	// Database URL for run persistence
	prepareCommand.Flags().StringVar(&prepareDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")

	rootCmd.AddCommand(prepareCommand)
}

func runPrepareCmd(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Step 1: Load config file if provided
	var cfg config.Config
	if prepareConfigPath != "" {
		loadedCfg, err := config.LoadConfig(prepareConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loadedCfg
		if prepareVerbose {
			_, _ = fmt.Fprintf(os.Stdout, "Loaded config from: %s\n", prepareConfigPath)
		}
	}

	// Step 2: Apply CLI overrides (command-line args take priority)
	// Only override if the flag was explicitly set
	if cmd.Flags().Changed("input") {
		cfg.Input = prepareInput
	}
	if cmd.Flags().Changed("out") {
		cfg.Output = prepareOutput
	}
	if cmd.Flags().Changed("control-map") {
		cfg.ControlMap = prepareControlMap
	}
	if cmd.Flags().Changed("metrics-file") {
		cfg.MetricsFile = prepareMetricsFile
	}
	if cmd.Flags().Changed("last-step") {
		cfg.LastStep = strings.ToUpper(prepareLastStep)
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = prepareWorkers
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = prepareVerbose
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = strings.ToLower(prepareLogLevel)
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = prepareDatabaseURL
	}

	// Step 3: Apply environment and defaults for unset values
	cfg.ApplyEnv()
	cfg = cfg.MergeWithDefaults(config.Defaults)

	// Step 4: Validate
	if cfg.Input == "" {
		return fmt.Errorf("--input must be provided (via flag or config)")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel, os.Stderr)
	if err != nil {
		return err
	}
	lastStep, err := back.Steps.Parse(cfg.LastStep)
	if err != nil {
		return fmt.Errorf("invalid last step: %w", err)
	}

	controlMap, err := loadControlMap(cfg.ControlMap)
	if err != nil {
		return err
	}

	polygons, err := ingestion.LoadPolygons(cfg.Input)
	if err != nil {
		return fmt.Errorf("failed to load polygons: %w", err)
	}

	// Step 5: Optional database persistence
	var store pipeline.Store
	if cfg.DatabaseURL != "" {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stdout, "Warning: Failed to connect to database: %v\n", err)
			_, _ = fmt.Fprintf(os.Stdout, "Continuing without database persistence...\n")
		} else {
			defer database.Close()
			if err := database.EnsureSchema(ctx); err != nil {
				return fmt.Errorf("failed to prepare database schema: %w", err)
			}
			store = database
		}
	}

	metrics := observability.NewMetrics()
	result, runErr := pipeline.Run(ctx, pipeline.RunOptions{
		ControlMap: controlMap,
		Polygons:   polygons,
		InputPath:  cfg.Input,
		LastStep:   lastStep,
		Workers:    cfg.Workers,
		Verbose:    cfg.Verbose,
		Store:      store,
		Metrics:    metrics,
		Logger:     logger,
	})
	if result == nil {
		return runErr
	}

	observability.NewPrinter(os.Stdout).PrintRunTotals(observability.RunTotals{
		RunID:     result.RunID.String(),
		Processed: result.Processed,
		Failed:    result.Failed,
		Aborted:   runErr != nil,
		Failures:  result.Failures(),
	})

	if cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.Warn("failed to write metrics", "path", cfg.MetricsFile, "error", err)
		}
	}
	if runErr != nil {
		return runErr
	}

	if cfg.Output != "" {
		prepared := make([]*types.Polygon, 0, result.Processed)
		for _, o := range result.Outcomes {
			if o.Err == nil && o.Polygon != nil {
				prepared = append(prepared, o.Polygon)
			}
		}
		if err := ingestion.WritePolygons(cfg.Output, prepared); err != nil {
			return fmt.Errorf("failed to write prepared polygons: %w", err)
		}
		if err := writeSummaries(summaryPath(cfg.Output), result.Prepared()); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(os.Stdout, "Wrote %d prepared polygons to %s\n", len(prepared), cfg.Output)
	}

	return nil
}

// loadControlMap loads the control map at path, or the built-in map when path is empty.
func loadControlMap(path string) (*control.Map, error) {
	if path == "" {
		return control.Default()
	}
	return control.Load(path)
}

func newLogger(level string, w io.Writer) (*slog.Logger, error) {
	var lvl slog.Level
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

// summaryPath returns the path of the prepared state written next to the output.
func summaryPath(output string) string {
	return strings.TrimSuffix(output, ".json") + ".prepared.json"
}

func writeSummaries(path string, summaries []*back.Summary) error {
	if summaries == nil {
		summaries = []*back.Summary{}
	}
	data, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal prepared state: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write prepared state to %s: %w", path, err)
	}
	return nil
}
