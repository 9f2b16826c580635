package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/kamal-hamza/bx-cli/internal/core/services"
	"github.com/kamal-hamza/bx-cli/pkg/logger"
	"github.com/kamal-hamza/bx-cli/pkg/ui"
)

var (
	inboxOnce   bool
	inboxExport bool
)

var inboxCmd = &cobra.Command{
	Use:   "inbox",
	Short: "Redeem download codes dropped into the inbox directory",
	Long: `Watch the inbox directory and redeem every code file that appears.

Each file whose name ends in the configured extension (.token by default)
is read, and its first non-blank line is redeemed like 'bx download'.
Files are handled one at a time. Afterwards the file is renamed with a
.done or .failed suffix so it is not picked up again.

Files already waiting when the watcher starts are processed first.
Use --once to process those and exit without watching.`,
	RunE: runInbox,
}

func init() {
	inboxCmd.Flags().BoolVar(&inboxOnce, "once", false, "Process pending files and exit")
	inboxCmd.Flags().BoolVarP(&inboxExport, "export", "e", false, "Also export each badge record as JSON")
}

func runInbox(cmd *cobra.Command, args []string) error {
	ctx := getContext(cmd)
	dir := appWorkspace.InboxPath

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create inbox directory: %w", err)
	}

	inbox := services.NewInboxService(redemptionFlow, appConfig.InboxExtension, inboxExport || appConfig.ExportAfterDownload)

	pending, err := inbox.Pending(dir)
	if err != nil {
		return err
	}
	for _, path := range pending {
		reportInbox(inbox.Process(ctx, path))
	}
	if inboxOnce {
		if len(pending) == 0 {
			fmt.Println(ui.FormatMuted("Inbox is empty"))
		}
		return nil
	}

	// Create file watcher
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch inbox directory: %w", err)
	}

	if !flagQuiet {
		fmt.Println(ui.FormatRocket("Watching inbox..."))
		fmt.Println(ui.FormatMuted("Directory: " + dir))
		fmt.Println(ui.FormatMuted("Drop *" + appConfig.InboxExtension + " files here. Press Ctrl+C to stop"))
		fmt.Println()
	}

	// Debounce per file so a code is read once its writer is done
	debounce := time.Duration(appConfig.InboxDebounceMS) * time.Millisecond
	timers := make(map[string]*time.Timer)
	ready := make(chan string, 16)

	// Event loop
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if !inbox.Matches(event.Name) {
				continue
			}

			// Filter out temporary/hidden files
			baseName := filepath.Base(event.Name)
			if strings.HasPrefix(baseName, ".") || strings.HasPrefix(baseName, "~") {
				continue
			}

			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}

			path := event.Name
			if t, exists := timers[path]; exists {
				t.Stop()
			}
			timers[path] = time.AfterFunc(debounce, func() {
				select {
				case ready <- path:
				case <-ctx.Done():
				}
			})

		case path := <-ready:
			delete(timers, path)
			if _, err := os.Stat(path); err != nil {
				continue
			}
			reportInbox(inbox.Process(ctx, path))

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Msg("inbox watcher error")

		case <-ctx.Done():
			for _, t := range timers {
				t.Stop()
			}
			if !flagQuiet {
				fmt.Println()
				fmt.Println(ui.FormatMuted("Inbox watcher stopped"))
			}
			return nil
		}
	}
}

// reportInbox prints the outcome of one inbox file
func reportInbox(res services.InboxResult) {
	name := filepath.Base(res.Source)
	if res.Err != nil {
		logger.Debug().Err(res.Err).Str("file", name).Msg("inbox item failed")
		fmt.Println(ui.FormatError(name + ": " + res.Err.Error()))
	} else {
		logger.Info().Str("file", name).Str("saved", res.Download).Msg("inbox item redeemed")
		fmt.Println(ui.FormatSuccess(name + " → " + res.Download))
		if res.Export != "" {
			fmt.Println(ui.FormatMuted("  exported " + res.Export))
		}
	}
	if res.ArchivedAs == "" {
		logger.Warn().Str("file", name).Msg("could not archive inbox file")
	}
}
