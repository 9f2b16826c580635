package cmd

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/spf13/cobra"

	"github.com/kamal-hamza/bx-cli/internal/core/domain"
	"github.com/kamal-hamza/bx-cli/pkg/ui"
)

var (
	statsChart  string
	statsRecent int
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show badge server statistics",
	Long: `Summarise the badge server.

Includes:
  - Total students, badges and assignments
  - The most recent assignments
  - Assignments per badge

Use --chart to also write the per-badge counts as an HTML bar chart.`,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().StringVar(&statsChart, "chart", "", "Write an HTML bar chart of assignments per badge")
	statsCmd.Flags().IntVarP(&statsRecent, "recent", "n", 0, "Number of recent assignments to show (default from config)")
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := getContext(cmd)

	recent := appConfig.RecentAssignments
	if cmd.Flags().Changed("recent") {
		recent = statsRecent
	}

	stats, err := statsService.Execute(ctx, recent)
	if err != nil {
		fmt.Println(ui.FormatError("Could not load statistics"))
		return err
	}

	fmt.Println()
	fmt.Println(ui.FormatTitle("Badge Server"))
	fmt.Println()

	// --- General Stats (Tabular) ---
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 4, ' ', 0)
	fmt.Fprintf(w, "%s\t%d\n", ui.StyleBold.Render("Students:"), stats.TotalStudents)
	fmt.Fprintf(w, "%s\t%d\n", ui.StyleBold.Render("Badges:"), stats.TotalBadges)
	fmt.Fprintf(w, "%s\t%d\n", ui.StyleBold.Render("Assignments:"), stats.TotalAssignments)
	w.Flush()
	fmt.Println()

	if len(stats.Recent) > 0 {
		fmt.Println(ui.StyleHeader.Render("Recent Assignments"))
		fmt.Print(assignmentTable(stats.Recent).Render())
		fmt.Println()
	}

	renderBadgeBars(os.Stdout, stats.PerBadge)

	if statsChart != "" {
		f, err := os.Create(statsChart)
		if err != nil {
			return fmt.Errorf("failed to create chart file: %w", err)
		}
		defer f.Close()

		if err := writeBadgeChart(f, stats.PerBadge); err != nil {
			return fmt.Errorf("failed to render chart: %w", err)
		}
		fmt.Println(ui.FormatSuccess("Chart written to " + statsChart))
	}

	return nil
}

// renderBadgeBars displays a horizontal bar chart of the top badges
func renderBadgeBars(out io.Writer, counts []domain.BadgeCount) {
	if len(counts) == 0 {
		return
	}

	fmt.Fprintln(out, ui.StyleHeader.Render("Assignments per Badge"))

	// Limit to top 5
	limit := 5
	if len(counts) < limit {
		limit = len(counts)
	}

	// Counts arrive sorted, so the first is the max
	maxCount := counts[0].Count
	barWidth := 20

	for i := 0; i < limit; i++ {
		c := counts[i]
		length := int(math.Ceil(float64(c.Count) / float64(maxCount) * float64(barWidth)))
		bar := strings.Repeat("█", length)

		fmt.Fprintf(out, "%s %-20s %s\n",
			ui.StyleAccent.Render(bar),
			ui.Truncate(c.Name, 20),
			ui.StyleMuted.Render(fmt.Sprintf("%d", c.Count)),
		)
	}
	fmt.Fprintln(out)
}

// writeBadgeChart renders every per-badge count as an HTML bar chart
func writeBadgeChart(w io.Writer, counts []domain.BadgeCount) error {
	names := make([]string, 0, len(counts))
	values := make([]opts.BarData, 0, len(counts))
	for _, c := range counts {
		names = append(names, c.Name)
		values = append(values, opts.BarData{Value: c.Count})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Assignments per badge",
			Subtitle: fmt.Sprintf("%d badges", len(counts)),
		}),
	)
	bar.SetXAxis(names).AddSeries("Assignments", values)

	return bar.Render(w)
}
