package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Student is a badge recipient as listed by /api/students
type Student struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Issuer is the entity that grants a badge
type Issuer struct {
	Name     string `json:"name"`
	Role     string `json:"role,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// UnmarshalJSON accepts either a full issuer object or a bare name string;
// older badges store only the name.
func (i *Issuer) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var name string
		if err := json.Unmarshal(trimmed, &name); err != nil {
			return err
		}
		*i = Issuer{Name: name}
		return nil
	}

	type plain Issuer
	var p plain
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return err
	}
	*i = Issuer(p)
	return nil
}

// Badge is a credential definition as listed by /api/badges
type Badge struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Category       string    `json:"category"`
	ImageURL       string    `json:"imageUrl"`
	Issuer         Issuer    `json:"issuer"`
	IssuerImageURL string    `json:"issuerImageUrl"`
	IsActive       bool      `json:"isActive"`
	CreatedAt      Timestamp `json:"createdAt"`
}

// Assignment links one badge to one student
type Assignment struct {
	ID                int64     `json:"id"`
	StudentID         int64     `json:"studentId"`
	BadgeID           int64     `json:"badgeId"`
	StudentName       string    `json:"studentName"`
	StudentEmail      string    `json:"studentEmail"`
	BadgeName         string    `json:"badgeName"`
	BadgeDescription  string    `json:"badgeDescription"`
	AchievementReason string    `json:"achievementReason"`
	EmailSent         bool      `json:"emailSent"`
	EmailSentAt       Timestamp `json:"emailSentAt"`
	DownloadToken     string    `json:"downloadToken"`
	DownloadCount     int64     `json:"downloadCount"`
	TokenExpiresAt    Timestamp `json:"tokenExpiresAt"`
}

// DownloadLink is the public link mailed to the recipient
func (a Assignment) DownloadLink(apiBase string) string {
	if a.DownloadToken == "" {
		return ""
	}
	return strings.TrimRight(apiBase, "/") + "/api/badges/download/" + a.DownloadToken
}

// AssertionURL is the public open badge document for an assignment
func AssertionURL(apiBase string, assignmentID int64) string {
	return strings.TrimRight(apiBase, "/") + "/api/public/assertions/" + strconv.FormatInt(assignmentID, 10) + "/open-badge"
}

// VerificationResult is the server's verdict on an assertion and recipient
type VerificationResult struct {
	Valid     bool     `json:"valid"`
	BadgeName string   `json:"badgeName"`
	Issuer    Issuer   `json:"issuer"`
	Errors    []string `json:"errors"`
}

// BadgeCount is the number of assignments of one badge
type BadgeCount struct {
	Name  string
	Count int
}

// DashboardStats summarises the catalog
type DashboardStats struct {
	TotalStudents    int
	TotalBadges      int
	TotalAssignments int
	Recent           []Assignment
	PerBadge         []BadgeCount
}
