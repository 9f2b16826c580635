package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kamal-hamza/bx-cli/pkg/config"
	"github.com/kamal-hamza/bx-cli/pkg/ui"
)

var configShow bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Edit the bx configuration file",
	Long: `Open the bx configuration file in your editor.

A default file is written first when none exists. After the editor exits
the file is validated again. Use --show to print the effective settings
(file values plus environment overrides) instead.`,
	RunE: runConfig,
}

func init() {
	configCmd.Flags().BoolVar(&configShow, "show", false, "Print the effective configuration")
}

func runConfig(cmd *cobra.Command, args []string) error {
	path := appWorkspace.ConfigPath

	if configShow {
		data, err := yaml.Marshal(appConfig)
		if err != nil {
			return fmt.Errorf("failed to render config: %w", err)
		}
		fmt.Println(ui.FormatMuted("# " + path))
		fmt.Print(string(data))
		return nil
	}

	// Ensure it exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := config.DefaultConfig().Save(path); err != nil {
			return err
		}
		fmt.Println(ui.FormatSuccess("Created default config"))
	}

	fmt.Println(ui.FormatInfo("Opening config: " + path))
	if err := runEditor(path); err != nil {
		return err
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		fmt.Println(ui.FormatWarning("Config saved but has problems:"))
		return err
	}
	fmt.Println(ui.FormatSuccess("Config is valid"))
	return nil
}
