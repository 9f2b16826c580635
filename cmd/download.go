package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kamal-hamza/bx-cli/pkg/ui"
)

var (
	downloadExport bool
	downloadOpen   bool
)

var downloadCmd = &cobra.Command{
	Use:     "download <code>",
	Aliases: []string{"dl"},
	Short:   "Redeem a download code and save the badge (alias: dl)",
	Long: `Validate a download code, download the badge image it unlocks, and
refresh the badge details from the server.

The image is saved into the downloads directory under the name the server
suggests (badge.png when it suggests none). An existing file with the same
content is reused; otherwise a numbered name is picked.

Flags:
  --export   also write the badge record as JSON into the exports directory
  --open     open the saved image with the configured viewer`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDownload,
}

func init() {
	downloadCmd.Flags().BoolVarP(&downloadExport, "export", "e", false, "Also export the badge record as JSON")
	downloadCmd.Flags().BoolVarP(&downloadOpen, "open", "o", false, "Open the badge after downloading")
}

func runDownload(cmd *cobra.Command, args []string) error {
	ctx := getContext(cmd)
	out := cmd.OutOrStdout()
	code := strings.Join(args, " ")

	redemptionFlow.SetInput(code)
	if _, err := redemptionFlow.Validate(ctx, code); err != nil {
		return shown(err)
	}

	res, err := redemptionFlow.Download(ctx)
	if err != nil {
		return shown(err)
	}

	fmt.Fprintln(out, ui.RenderKeyValue("Saved", res.Path))
	if res.RefreshErr != nil {
		fmt.Fprintln(out, ui.FormatWarning("Badge saved, but its details could not be refreshed"))
	}
	if res.State.View != nil {
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderBadgeCard(*res.State.View, now(), appConfig.TableWidth))
		fmt.Fprintln(out)
	}

	if downloadExport || appConfig.ExportAfterDownload {
		if res.State.CanExport() {
			path, err := redemptionFlow.Export(ctx)
			if err != nil {
				return shown(err)
			}
			fmt.Fprintln(out, ui.RenderKeyValue("Exported", path))
		} else {
			fmt.Fprintln(out, ui.FormatWarning("Skipping export: the badge is no longer valid"))
		}
	}

	if downloadOpen || appConfig.OpenAfterDownload {
		if err := OpenFile(res.Path, appConfig.BadgeViewer); err != nil {
			return err
		}
	}

	return nil
}
