package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bcgov/nr-vdyp-sub007/internal/ingestion"
	"github.com/bcgov/nr-vdyp-sub007/internal/schemas"
)

var validateCommand = &cobra.Command{
	Use:   "validate",
	Short: "Validate a polygon input file",
	Long: `Checks a polygon input file against the embedded polygon schema and the layer rules applied at load time.

With --schema, the file is validated against that JSON schema instead.`,
	RunE: runValidateCmd,
}

var (
	validateInput  string
	validateSchema string
)

func init() {
	validateCommand.Flags().StringVarP(&validateInput, "input", "i", "", "Path to the JSON file to validate")
	validateCommand.Flags().StringVar(&validateSchema, "schema", "", "Path to a JSON schema (optional, defaults to the polygon schema)")

	_ = validateCommand.MarkFlagRequired("input")

	rootCmd.AddCommand(validateCommand)
}

func runValidateCmd(_ *cobra.Command, _ []string) error {
	if validateSchema != "" {
		if err := schemas.ValidateJSON(validateSchema, validateInput); err != nil {
			return reportValidation(err)
		}
		_, _ = fmt.Fprintf(os.Stdout, "Validation passed\n")
		return nil
	}

	polygons, err := ingestion.LoadPolygons(validateInput)
	if err != nil {
		return reportValidation(err)
	}
	_, _ = fmt.Fprintf(os.Stdout, "Validation passed: %d polygons\n", len(polygons))
	return nil
}

// reportValidation prints schema violations and exits with status 1; other errors are
// returned to cobra.
func reportValidation(err error) error {
	var validationErr *schemas.ValidationError
	if !errors.As(err, &validationErr) {
		return err
	}
	_, _ = fmt.Fprintf(os.Stderr, "Validation failed:\n")
	for _, fe := range validationErr.Errors {
		_, _ = fmt.Fprintf(os.Stderr, "  - %s: %s\n", fe.Field, fe.Message)
	}
	os.Exit(1)
	return nil
}
