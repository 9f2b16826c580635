package domain

import (
	"strconv"
	"strings"
	"time"
)

// ExportDocument is the JSON written by a local export of a validated badge
type ExportDocument struct {
	Badge     ExportBadge     `json:"badge"`
	Issuer    ExportIssuer    `json:"issuer"`
	Recipient ExportRecipient `json:"recipient"`
	Metadata  ExportMetadata  `json:"metadata"`
}

type ExportBadge struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	ImagePath   string  `json:"imagePath"`
	ImageURL    *string `json:"imageUrl"`
}

type ExportIssuer struct {
	Name      string  `json:"name"`
	ImagePath string  `json:"imagePath"`
	ImageURL  *string `json:"imageUrl"`
}

type ExportRecipient struct {
	Name              string `json:"name"`
	AchievementReason string `json:"achievementReason"`
}

type ExportMetadata struct {
	AssignedAt     Timestamp `json:"assignedAt"`
	DownloadCount  int64     `json:"downloadCount"`
	TokenExpiresAt Timestamp `json:"tokenExpiresAt"`
	AssignmentID   int64     `json:"assignmentId"`
	ExportedAt     string    `json:"exportedAt"`
}

// isoMillis matches the millisecond UTC form browsers produce
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// NewExportDocument reshapes a badge view for export. Image paths become
// absolute URLs against apiBase and the document is stamped with now.
func NewExportDocument(info BadgeInfo, apiBase string, now time.Time) ExportDocument {
	return ExportDocument{
		Badge: ExportBadge{
			Name:        info.BadgeName,
			Description: info.BadgeDescription,
			Category:    info.BadgeCategory,
			ImagePath:   info.BadgeImagePath,
			ImageURL:    assetURL(apiBase, info.BadgeImagePath, AssetBadges),
		},
		Issuer: ExportIssuer{
			Name:      info.Issuer,
			ImagePath: info.IssuerImagePath,
			ImageURL:  assetURL(apiBase, info.IssuerImagePath, AssetIssuers),
		},
		Recipient: ExportRecipient{
			Name:              info.StudentName,
			AchievementReason: info.AchievementReason,
		},
		Metadata: ExportMetadata{
			AssignedAt:     info.AssignedAt,
			DownloadCount:  info.DownloadCount,
			TokenExpiresAt: info.TokenExpiresAt,
			AssignmentID:   info.AssignmentID,
			ExportedAt:     now.UTC().Format(isoMillis),
		},
	}
}

func assetURL(base, path string, category AssetCategory) *string {
	url, ok := ResolveAssetURL(base, path, category)
	if !ok {
		return nil
	}
	return &url
}

// ExportSlug replaces every character outside [a-zA-Z0-9] with a hyphen and
// lowercases the result. Runs of hyphens are kept as-is.
// Converts "Python Basics" -> "python-basics"
func ExportSlug(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteByte('-')
		}
	}
	return b.String()
}

// ExportFilename returns badge-{slug}-{epoch millis}.json
func ExportFilename(badgeName string, now time.Time) string {
	return "badge-" + ExportSlug(badgeName) + "-" + strconv.FormatInt(now.UnixMilli(), 10) + ".json"
}
