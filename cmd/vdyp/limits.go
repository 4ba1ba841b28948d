package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bcgov/nr-vdyp-sub007/internal/config"
	"github.com/bcgov/nr-vdyp-sub007/internal/observability"
	"github.com/bcgov/nr-vdyp-sub007/internal/types"
)

var limitsCommand = &cobra.Command{
	Use:   "limits [genus...]",
	Short: "Print the baseline component size limits of the control map",
	Long:  "Prints the baseline size limits of the given genera in each region, or of every genus when none are given.",
	RunE:  runLimitsCmd,
}

var limitsControlMap string

func init() {
	limitsCommand.Flags().StringVar(&limitsControlMap, "control-map", "", "Path to control map YAML (optional, defaults to VDYP_CONTROL_MAP or the built-in map)")
	rootCmd.AddCommand(limitsCommand)
}

func runLimitsCmd(_ *cobra.Command, args []string) error {
	path := limitsControlMap
	if path == "" {
		path = os.Getenv(config.EnvControlMap)
	}
	controlMap, err := loadControlMap(path)
	if err != nil {
		return err
	}

	genera := args
	if len(genera) == 0 {
		genera = controlMap.Genera()
	}

	printer := observability.NewPrinter(os.Stdout)
	for _, genus := range genera {
		genus = strings.ToUpper(genus)
		name, ok := controlMap.GenusName(genus)
		if !ok {
			return fmt.Errorf("unknown genus: %s", genus)
		}
		limits := make(map[types.Region]types.ComponentSizeLimits)
		for _, region := range []types.Region{types.RegionCoastal, types.RegionInterior} {
			if l, ok := controlMap.SizeLimits(genus, region); ok {
				limits[region] = l
			}
		}
		printer.PrintSizeLimits(genus, name, limits)
	}
	return nil
}
