package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kamal-hamza/bx-cli/internal/adapters/api"
	"github.com/kamal-hamza/bx-cli/internal/adapters/clipboard"
	"github.com/kamal-hamza/bx-cli/internal/adapters/notify"
	"github.com/kamal-hamza/bx-cli/internal/adapters/qrcode"
	"github.com/kamal-hamza/bx-cli/internal/adapters/storage"
	"github.com/kamal-hamza/bx-cli/internal/core/ports"
	"github.com/kamal-hamza/bx-cli/internal/core/services"
	"github.com/kamal-hamza/bx-cli/pkg/config"
	"github.com/kamal-hamza/bx-cli/pkg/logger"
	"github.com/kamal-hamza/bx-cli/pkg/ui"
	"github.com/kamal-hamza/bx-cli/pkg/workspace"
)

var (
	// Global workspace and configuration
	appWorkspace *workspace.Workspace
	appConfig    *config.Config

	// Services
	redemptionFlow    *services.RedemptionFlow
	assignmentService *services.AssignmentService
	statsService      *services.StatsService
	assertionService  *services.AssertionService

	// Adapters
	apiClient    *api.Client
	downloadDir  *storage.DirSaver
	exportDir    *storage.DirSaver
	sysClipboard clipboard.System

	// Global flags
	flagVerbose bool
	flagQuiet   bool
	flagAPIURL  string
	flagEnvFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bx",
	Short: "BX - redeem and manage digital badges",
	Long: ui.StyleTitle.Render("BX") + " - Badge Console\n\n" +
		"Redeem badge download codes, export badge records, and look up\n" +
		"assignments on a badge server from the terminal.",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initializeApp,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.Error().Err(err).Msg("command failed")
		var shown *shownError
		if !errors.As(err, &shown) {
			fmt.Fprintln(os.Stderr, ui.FormatError(err.Error()))
		}
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(redeemCmd)
	rootCmd.AddCommand(assertionCmd)
	rootCmd.AddCommand(assignmentsCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(inboxCmd)

	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log debug output to stderr")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Only print errors")
	rootCmd.PersistentFlags().StringVar(&flagAPIURL, "api-url", "", "Badge server base URL (overrides config and "+config.EnvAPIURL+")")
	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", ".env", "Dotenv file to load before reading the environment")
}

// shownError marks an error whose message already reached the user
// through a notification
type shownError struct {
	err error
}

func (e *shownError) Error() string { return e.err.Error() }
func (e *shownError) Unwrap() error { return e.err }

func shown(err error) error {
	if err == nil {
		return nil
	}
	return &shownError{err: err}
}

// initializeApp initializes the application components
func initializeApp(cmd *cobra.Command, args []string) error {
	// Version needs nothing
	if cmd.Name() == "version" {
		return nil
	}

	// A missing .env file is fine; a broken one is not
	if err := godotenv.Load(flagEnvFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load %s: %w", flagEnvFile, err)
	}

	ws, err := workspace.New()
	if err != nil {
		return fmt.Errorf("failed to initialize workspace: %w", err)
	}
	appWorkspace = ws

	cfg, err := config.Load(ws.ConfigPath)
	if err != nil {
		return err
	}
	cfg.ApplyEnv()
	if flagAPIURL != "" {
		cfg.APIURL = flagAPIURL
		cfg.ApplyEnv()
	}
	appConfig = cfg

	ui.SetTheme(cfg.ColorTheme)
	logger.Init(cfg.LogLevel, flagVerbose)

	// init and config must work even with a broken config file
	if cmd.Name() == "init" || cmd.Name() == "config" {
		return nil
	}

	if err := cfg.Validate(); err != nil {
		fmt.Println(ui.FormatInfo("Run 'bx config' to fix " + ws.ConfigPath))
		return err
	}

	ws.Override(cfg.DownloadDir, cfg.ExportDir, cfg.InboxDir)
	logger.Debug().
		Str("api", cfg.APIURL).
		Str("downloads", ws.DownloadsPath).
		Str("exports", ws.ExportsPath).
		Msg("workspace ready")

	// Initialize adapters
	apiClient = api.NewClient(cfg.APIURL, api.WithUserAgent("bx/"+Version))
	downloadDir = storage.NewDirSaver(ws.DownloadsPath)
	exportDir = storage.NewDirSaver(ws.ExportsPath)
	sysClipboard = clipboard.NewSystem()

	// Initialize services
	redemptionFlow = newRedemptionFlow(notify.NewConsole(os.Stdout, flagQuiet))
	assignmentService = services.NewAssignmentService(apiClient)
	statsService = services.NewStatsService(apiClient)
	assertionService = services.NewAssertionService(
		apiClient,
		qrcode.NewGenerator(cfg.QRSize, cfg.QRRecoveryLevel),
		cfg.APIURL,
	)

	return nil
}

// newRedemptionFlow wires a flow that reports through notifier
func newRedemptionFlow(notifier ports.Notifier) *services.RedemptionFlow {
	return services.NewRedemptionFlow(
		apiClient,
		notifier,
		downloadDir,
		exportDir,
		sysClipboard,
		appConfig.APIURL,
		services.WithLogger(logger.Log),
	)
}

// getContext returns the command context, cancelled on interrupt
func getContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// now is the wall clock used when rendering badge validity
var now = time.Now
