// Package observability provides formatted output utilities for verbose CLI mode and the
// batch metrics exported after a run.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/bcgov/nr-vdyp-sub007/internal/back"
	"github.com/bcgov/nr-vdyp-sub007/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintPrepared outputs a human-readable summary of a polygon's prepared state.
func (p *Printer) PrintPrepared(summary *back.Summary) {
	if summary == nil {
		return
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Polygon:  %s\n", summary.Polygon))
	if summary.BaseAreaVeteran != nil {
		sb.WriteString(fmt.Sprintf("Veteran basal area: %.4f\n", *summary.BaseAreaVeteran))
	} else {
		sb.WriteString("Veteran basal area: none\n")
	}
	if summary.PolygonFinalDiameter != nil {
		sb.WriteString(fmt.Sprintf("Final diameter:     %.4f\n", *summary.PolygonFinalDiameter))
	}
	sb.WriteString("\n")

	count := min(len(summary.Species), maxItemsToShow)
	for i := 0; i < count; i++ {
		sp := summary.Species[i]
		sb.WriteString(fmt.Sprintf("%d. %s", i+1, sp.Genus))
		if sp.FinalDiameter != nil {
			sb.WriteString(fmt.Sprintf("  dq %.2f", *sp.FinalDiameter))
		}
		if sp.Reconciled {
			sb.WriteString("  [reconciled]")
		}
		sb.WriteString("\n")
		if sp.SizeLimits != nil {
			sb.WriteString("   " + formatLimits(*sp.SizeLimits) + "\n")
		}
		if ba, ok := sp.BasalAreaCV[types.UtilizationAll]; ok {
			sb.WriteString(fmt.Sprintf("   CV ba %.4f  dq %.4f\n", ba, sp.QuadMeanDiameterCV[types.UtilizationAll]))
		}
	}
	if len(summary.Species) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("... and %d more\n", len(summary.Species)-maxItemsToShow))
	}

	p.printBox("PREPARED POLYGON", strings.TrimRight(sb.String(), "\n"))
}

// RunTotals is what a batch run reports when it finishes.
type RunTotals struct {
	RunID     string
	Processed int
	Failed    int
	Aborted   bool
	Failures  []string
}

// PrintRunTotals outputs the outcome of a batch run.
func (p *Printer) PrintRunTotals(totals RunTotals) {
	var sb strings.Builder

	if totals.RunID != "" {
		sb.WriteString(fmt.Sprintf("Run:       %s\n", totals.RunID))
	}
	sb.WriteString(fmt.Sprintf("Prepared:  %d\n", totals.Processed))
	sb.WriteString(fmt.Sprintf("Failed:    %d\n", totals.Failed))
	if totals.Aborted {
		sb.WriteString("Status:    ABORTED\n")
	}

	if len(totals.Failures) > 0 {
		sb.WriteString("\nFailures:\n")
		count := min(len(totals.Failures), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", totals.Failures[i]))
		}
		if len(totals.Failures) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(totals.Failures)-maxItemsToShow))
		}
	}

	p.printBox("RUN SUMMARY", strings.TrimRight(sb.String(), "\n"))
}

// PrintSizeLimits outputs the baseline size limits of one genus in every region.
func (p *Printer) PrintSizeLimits(genus, name string, limits map[types.Region]types.ComponentSizeLimits) {
	var sb strings.Builder
	for _, region := range []types.Region{types.RegionCoastal, types.RegionInterior} {
		l, ok := limits[region]
		if !ok {
			continue
		}
		sb.WriteString(fmt.Sprintf("%-9s %s\n", region, formatLimits(l)))
	}
	title := fmt.Sprintf("SIZE LIMITS %s", genus)
	if name != "" {
		title += " (" + name + ")"
	}
	p.printBox(title, strings.TrimRight(sb.String(), "\n"))
}

func formatLimits(l types.ComponentSizeLimits) string {
	return fmt.Sprintf("hl<=%.1f dq<=%.1f ratio %.3f-%.3f",
		l.LoreyHeightMaximum, l.QuadMeanDiameterMaximum,
		l.MinQuadMeanDiameterLoreyHeightRatio, l.MaxQuadMeanDiameterLoreyHeightRatio)
}
