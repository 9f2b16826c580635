package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kamal-hamza/bx-cli/pkg/config"
	"github.com/kamal-hamza/bx-cli/pkg/ui"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the bx workspace",
	Long: `Initialize the bx workspace directory structure.

This creates the managed workspace at ~/.local/share/bx/ with the following structure:
  - downloads/  : Redeemed badge images
  - exports/    : Exported badge records (JSON)
  - inbox/      : Drop *.token files here for 'bx inbox'

and a default configuration file at ~/.config/bx/config.yaml.`,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	ws := appWorkspace
	ws.Override(appConfig.DownloadDir, appConfig.ExportDir, appConfig.InboxDir)

	// Check if already initialized
	if ws.Exists() {
		fmt.Println(ui.FormatWarning("Workspace already initialized"))
		fmt.Println(ui.FormatMuted("Location: " + ws.RootPath))
		return nil
	}

	fmt.Println(ui.FormatRocket("Initializing bx workspace..."))
	fmt.Println()

	if err := ws.Initialize(); err != nil {
		fmt.Println(ui.FormatError("Failed to initialize workspace"))
		return err
	}

	// Create default config
	if _, err := os.Stat(ws.ConfigPath); os.IsNotExist(err) {
		if err := config.DefaultConfig().Save(ws.ConfigPath); err != nil {
			// Don't fail - config is optional
			fmt.Println(ui.FormatWarning("Failed to create default config: " + err.Error()))
		} else {
			fmt.Println(ui.FormatSuccess("Default config created"))
		}
	}

	fmt.Println(ui.FormatSuccess("Workspace initialized successfully!"))
	fmt.Println()
	fmt.Println(ui.RenderKeyValue("Location", ws.RootPath))
	fmt.Println(ui.RenderKeyValue("Config", ws.ConfigPath))
	fmt.Println()
	fmt.Println(ui.FormatInfo("Next steps:"))
	fmt.Println(ui.FormatMuted("  1. Point bx at your badge server: bx config (api_url)"))
	fmt.Println(ui.FormatMuted("  2. Check a code: bx validate <code>"))
	fmt.Println(ui.FormatMuted("  3. Redeem interactively: bx redeem"))

	return nil
}
