// Package main provides the entry point for the vdyp polygon preparation CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "vdyp",
	Short: "VDYP back stage polygon preparation",
	Long:  "vdyp runs forest stand polygons through the forward stage and prepares them for back projection: veteran basal area, per-species compatibility variables and reconciled size limits.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
