package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/kamal-hamza/bx-cli/internal/core/domain"
	"github.com/kamal-hamza/bx-cli/pkg/config"
	"github.com/kamal-hamza/bx-cli/pkg/ui"
)

// displayDateFormat returns the configured layout for dates on screen
func displayDateFormat() string {
	if appConfig != nil && appConfig.DisplayDateFormat != "" {
		return appConfig.DisplayDateFormat
	}
	return config.DefaultConfig().DisplayDateFormat
}

// validityLine describes the token window. It is computed from at on every
// call and never stored.
func validityLine(info domain.BadgeInfo, at time.Time) string {
	if info.TokenExpiresAt.Raw == "" {
		return ui.StyleSuccess.Render(ui.IconSuccess + " Valid, no expiry")
	}
	until := info.TokenExpiresAt.Format(displayDateFormat())
	if info.Expired(at) {
		return ui.StyleError.Render(ui.IconError + " Expired on " + until)
	}
	return ui.StyleSuccess.Render(ui.IconClock + " Valid until " + until)
}

// renderBadgeCard draws the held badge view
func renderBadgeCard(info domain.BadgeInfo, at time.Time, width int) string {
	layout := displayDateFormat()

	subtitle := info.BadgeCategory
	if info.BadgeDescription != "" {
		if subtitle != "" {
			subtitle += " · "
		}
		subtitle += info.BadgeDescription
	}

	var assigned string
	if info.AssignedAt.Raw != "" {
		assigned = info.AssignedAt.Format(layout)
	}

	var assignment string
	if info.AssignmentID != 0 {
		assignment = "#" + strconv.FormatInt(info.AssignmentID, 10)
	}

	card := ui.Card{
		Title:    info.BadgeName,
		Subtitle: subtitle,
		Fields: []ui.Field{
			{Key: "Recipient", Value: info.StudentName},
			{Key: "Reason", Value: info.AchievementReason},
			{Key: "Issuer", Value: info.Issuer},
			{Key: "Assigned", Value: assigned},
			{Key: "Downloads", Value: fmt.Sprintf("%d", info.DownloadCount)},
			{Key: "Assignment", Value: assignment},
		},
		Footer: validityLine(info, at),
		Width:  width,
	}
	return card.Render()
}
