package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// timestampLayouts lists the formats the badge API has been seen to emit.
// Zone-less values are read in local time.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Timestamp keeps the server's original string next to its parsed value so
// that exported documents echo exactly what the API returned.
type Timestamp struct {
	Raw  string
	Time time.Time
}

// ParseTimestamp parses raw with the known layouts. Unparseable input keeps
// Raw and leaves Time zero.
func ParseTimestamp(raw string) Timestamp {
	ts := Timestamp{Raw: raw}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			ts.Time = t
			break
		}
	}
	return ts
}

// NewTimestamp wraps t using RFC 3339 as its raw form
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Raw: t.Format(time.RFC3339Nano), Time: t}
}

func (t Timestamp) IsZero() bool {
	return t.Time.IsZero()
}

// Format renders the timestamp, falling back to the raw string when it
// could not be parsed
func (t Timestamp) Format(layout string) string {
	if t.Time.IsZero() {
		return t.Raw
	}
	return t.Time.Format(layout)
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*t = Timestamp{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = ParseTimestamp(raw)
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.Raw == "" {
		return []byte("null"), nil
	}
	return json.Marshal(t.Raw)
}

// BadgeInfo is the read-only projection of one badge assignment returned by a
// successful token validation. It is replaced wholesale on every validation.
type BadgeInfo struct {
	BadgeName         string    `json:"badgeName"`
	BadgeDescription  string    `json:"badgeDescription"`
	BadgeCategory     string    `json:"badgeCategory"`
	BadgeImagePath    string    `json:"badgeImagePath"`
	Issuer            string    `json:"issuer"`
	IssuerImagePath   string    `json:"issuerImagePath"`
	StudentName       string    `json:"studentName"`
	AchievementReason string    `json:"achievementReason"`
	AssignedAt        Timestamp `json:"assignedAt"`
	DownloadCount     int64     `json:"downloadCount"`
	TokenExpiresAt    Timestamp `json:"tokenExpiresAt"`
	AssignmentID      int64     `json:"assignmentId"`
}

// Expired reports whether the token's validity window has closed at now.
// Callers pass the render-time clock; the result is never stored.
func (b BadgeInfo) Expired(now time.Time) bool {
	if b.TokenExpiresAt.IsZero() {
		return false
	}
	return b.TokenExpiresAt.Time.Before(now)
}

// ValidationResponse is the body of POST /api/badges/validate-token
type ValidationResponse struct {
	Valid     bool       `json:"valid"`
	Message   string     `json:"message"`
	BadgeInfo *BadgeInfo `json:"badgeInfo,omitempty"`
}

// Artifact is a downloaded badge file
type Artifact struct {
	Filename string
	Data     []byte
}

// DefaultArtifactName is used when the server does not name the file
const DefaultArtifactName = "badge.png"

// AssetCategory selects the uploads folder an image lives in
type AssetCategory string

const (
	AssetBadges  AssetCategory = "badges"
	AssetIssuers AssetCategory = "issuers"
)

// ResolveAssetURL turns a stored image path into an absolute URL.
// Absolute URLs pass through; anything else is reduced to its file name
// under {base}/uploads/{category}/. An empty path has no URL.
func ResolveAssetURL(base, path string, category AssetCategory) (string, bool) {
	if path == "" {
		return "", false
	}
	if strings.HasPrefix(path, "http") {
		return path, true
	}
	filename := path[strings.LastIndex(path, "/")+1:]
	return strings.TrimRight(base, "/") + "/uploads/" + string(category) + "/" + filename, true
}

// APIError is a non-2xx answer from the badge API. Body holds the server's
// plain-text explanation.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("badge api returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("badge api returned status %d: %s", e.StatusCode, e.Body)
}
