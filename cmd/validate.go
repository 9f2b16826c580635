package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kamal-hamza/bx-cli/pkg/ui"
)

var validateCmd = &cobra.Command{
	Use:     "validate <code>",
	Aliases: []string{"check"},
	Short:   "Check a badge download code (alias: check)",
	Long: `Ask the badge server whether a download code can be redeemed.

When the code is valid the badge it unlocks is shown, including its
download count and how long the code stays valid. Nothing is downloaded.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx := getContext(cmd)
	out := cmd.OutOrStdout()
	code := strings.Join(args, " ")

	redemptionFlow.SetInput(code)
	state, err := redemptionFlow.Validate(ctx, code)
	if err != nil {
		return shown(err)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, renderBadgeCard(*state.View, now(), appConfig.TableWidth))
	fmt.Fprintln(out)
	fmt.Fprintln(out, ui.FormatMuted("Run 'bx download " + state.Token + "' to download it"))
	return nil
}
