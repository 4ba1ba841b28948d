package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bcgov/nr-vdyp-sub007/internal/pipeline/steps"
)

var stepsCommand = &cobra.Command{
	Use:   "steps",
	Short: "List the forward and back stage execution steps",
	RunE:  runStepsCmd,
}

func init() {
	rootCmd.AddCommand(stepsCommand)
}

func runStepsCmd(_ *cobra.Command, _ []string) error {
	for _, stage := range []string{steps.StageForward, steps.StageBack} {
		defs, err := steps.Stage(stage)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(os.Stdout, "%s:\n", stage)
		for i, def := range defs {
			line := fmt.Sprintf("  %d. %-28s %s", i+1, def.Step, def.Description)
			if len(def.Dependencies) > 0 {
				line += fmt.Sprintf(" (after %s)", strings.Join(def.Dependencies, ", "))
			}
			_, _ = fmt.Fprintln(os.Stdout, line)
		}
	}
	return nil
}
