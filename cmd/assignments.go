package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	fuzzyfinder "github.com/ktr0731/go-fuzzyfinder"
	"github.com/spf13/cobra"

	"github.com/kamal-hamza/bx-cli/internal/core/domain"
	"github.com/kamal-hamza/bx-cli/internal/core/services"
	"github.com/kamal-hamza/bx-cli/pkg/logger"
	"github.com/kamal-hamza/bx-cli/pkg/ui"
)

var (
	assignmentsSortBy  string
	assignmentsReverse bool
	assignmentsPick    bool
)

// assignmentsCmd represents the assignments command
var assignmentsCmd = &cobra.Command{
	Use:     "assignments [query]",
	Aliases: []string{"ls"},
	Short:   "List badge assignments (alias: ls)",
	Long: `List badge assignments in a table format.

An optional query filters by student name, e-mail or badge name.
With --pick a fuzzy finder opens instead, and the chosen assignment's
public download link is copied to the clipboard.

Examples:
  bx assignments
  bx assignments ana --sort downloads --reverse
  bx assignments --pick
  bx assignments resend 42`,
	RunE: runAssignments,
}

var resendCmd = &cobra.Command{
	Use:   "resend <assignment-id>",
	Short: "E-mail an assignment's download code again",
	Args:  cobra.ExactArgs(1),
	RunE:  runResend,
}

func init() {
	assignmentsCmd.Flags().StringVar(&assignmentsSortBy, "sort", "id", "Sort by field (id, student, badge, downloads)")
	assignmentsCmd.Flags().BoolVar(&assignmentsReverse, "reverse", false, "Reverse sort order")
	assignmentsCmd.Flags().BoolVarP(&assignmentsPick, "pick", "p", false, "Pick an assignment and copy its download link")
	assignmentsCmd.AddCommand(resendCmd)
}

func runAssignments(cmd *cobra.Command, args []string) error {
	ctx := getContext(cmd)
	query := strings.Join(args, " ")

	resp, err := assignmentService.Execute(ctx, services.ListAssignmentsRequest{
		Query:   query,
		SortBy:  assignmentsSortBy,
		Reverse: assignmentsReverse,
	})
	if err != nil {
		fmt.Println(ui.FormatError("Failed to list assignments"))
		return err
	}

	// Handle empty results
	if resp.Total == 0 {
		if query != "" {
			fmt.Println(ui.FormatWarning("No assignments match: " + query))
		} else {
			fmt.Println(ui.FormatWarning("No assignments found"))
		}
		return nil
	}

	if assignmentsPick {
		return pickAssignment(resp.Assignments)
	}

	if query != "" {
		fmt.Println(ui.FormatTitle(fmt.Sprintf("Assignments (matching: %s)", query)))
	} else {
		fmt.Println(ui.FormatTitle("Assignments"))
	}
	fmt.Println()

	fmt.Print(assignmentTable(resp.Assignments).Render())
	fmt.Println()
	fmt.Println(ui.FormatMuted(fmt.Sprintf("Total: %d assignments", resp.Total)))

	return nil
}

// assignmentTable builds the listing table
func assignmentTable(assignments []domain.Assignment) *ui.Table {
	maxWidth := 30
	if appConfig != nil && appConfig.TableWidth > 0 {
		maxWidth = appConfig.TableWidth
	}

	table := ui.NewTable([]ui.TableColumn{
		{Header: "ID", Width: 4, Align: "right"},
		{Header: "Student", MaxWidth: maxWidth},
		{Header: "Badge", MaxWidth: maxWidth},
		{Header: "Downloads", Align: "right"},
		{Header: "E-mail", Width: 6},
		{Header: "Expires", Width: 16},
	})

	layout := displayDateFormat()
	for _, a := range assignments {
		sent := ui.IconError
		if a.EmailSent {
			sent = ui.IconSuccess
		}
		expires := "-"
		if a.TokenExpiresAt.Raw != "" {
			expires = a.TokenExpiresAt.Format(layout)
		}
		table.AddRow([]string{
			strconv.FormatInt(a.ID, 10),
			a.StudentName,
			a.BadgeName,
			strconv.FormatInt(a.DownloadCount, 10),
			sent,
			expires,
		})
	}
	return table
}

func pickAssignment(assignments []domain.Assignment) error {
	idx, err := fuzzyfinder.Find(
		assignments,
		func(i int) string {
			return fmt.Sprintf("%s · %s", assignments[i].StudentName, assignments[i].BadgeName)
		},
		fuzzyfinder.WithPreviewWindow(func(i, w, h int) string {
			if i == -1 {
				return ""
			}
			a := assignments[i]
			preview := fmt.Sprintf("Assignment: #%d\nStudent: %s\nBadge: %s\nDownloads: %d",
				a.ID, a.StudentName, a.BadgeName, a.DownloadCount)
			if a.StudentEmail != "" {
				preview += "\nE-mail: " + a.StudentEmail
			}
			if a.AchievementReason != "" {
				preview += "\nReason: " + a.AchievementReason
			}
			return preview
		}),
	)
	if err != nil {
		if errors.Is(err, fuzzyfinder.ErrAbort) {
			return nil
		}
		return err
	}

	chosen := assignments[idx]
	link := chosen.DownloadLink(appConfig.APIURL)
	if link == "" {
		fmt.Println(ui.FormatWarning("This assignment has no download code"))
		return nil
	}

	fmt.Println(ui.RenderKeyValue("Download link", link))
	if err := sysClipboard.WriteAll(link); err != nil {
		fmt.Println(ui.FormatWarning("Clipboard access failed, please copy manually"))
		logger.Debug().Err(err).Msg("clipboard write failed")
		return nil
	}
	fmt.Println(ui.FormatSuccess("Link copied to the clipboard"))
	return nil
}

func runResend(cmd *cobra.Command, args []string) error {
	ctx := getContext(cmd)

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid assignment id %q", args[0])
	}

	if err := assignmentService.Resend(ctx, id); err != nil {
		var apiErr *domain.APIError
		if errors.As(err, &apiErr) && apiErr.Body != "" {
			return fmt.Errorf("resend failed: %s", apiErr.Body)
		}
		return err
	}

	fmt.Println(ui.FormatSuccess(fmt.Sprintf("Download code for assignment #%d sent again", id)))
	return nil
}
