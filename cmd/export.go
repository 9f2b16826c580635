package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kamal-hamza/bx-cli/pkg/ui"
)

var exportCmd = &cobra.Command{
	Use:   "export <code>",
	Short: "Export a badge record as JSON",
	Long: `Validate a download code and write the badge it unlocks as a JSON
document into the exports directory.

The document has four sections (badge, issuer, recipient, metadata) with
absolute image URLs and the export time in UTC. The download count is not
changed: exporting never downloads the badge.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := getContext(cmd)
	out := cmd.OutOrStdout()
	code := strings.Join(args, " ")

	redemptionFlow.SetInput(code)
	if _, err := redemptionFlow.Validate(ctx, code); err != nil {
		return shown(err)
	}

	path, err := redemptionFlow.Export(ctx)
	if err != nil {
		return shown(err)
	}

	fmt.Fprintln(out, ui.RenderKeyValue("Exported", path))
	return nil
}
