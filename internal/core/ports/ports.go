package ports

import (
	"context"
	"encoding/json"

	"github.com/kamal-hamza/bx-cli/internal/core/domain"
)

// BadgeAPI defines the port for the remote badge REST API
type BadgeAPI interface {
	// ValidateToken asks the server whether a download token is redeemable
	ValidateToken(ctx context.Context, token string) (*domain.ValidationResponse, error)

	// DownloadByToken fetches the badge artifact for a token.
	// A non-2xx answer is returned as *domain.APIError carrying the body text.
	DownloadByToken(ctx context.Context, token string) (*domain.Artifact, error)

	// OpenBadge returns the public open badge assertion for an assignment
	OpenBadge(ctx context.Context, assignmentID int64) (json.RawMessage, error)

	// VerifyAssertion checks an open badge document against a recipient.
	// A failed check is a result with Valid false, not an error.
	VerifyAssertion(ctx context.Context, badgeJSON json.RawMessage, recipient string) (*domain.VerificationResult, error)

	// ListStudents returns every student
	ListStudents(ctx context.Context) ([]domain.Student, error)

	// ListBadges returns every badge definition
	ListBadges(ctx context.Context) ([]domain.Badge, error)

	// ListAssignments returns every assignment
	ListAssignments(ctx context.Context) ([]domain.Assignment, error)

	// ResendEmail re-sends the download token email of an assignment
	ResendEmail(ctx context.Context, assignmentID int64) error
}

// Notifier receives user-facing notifications
type Notifier interface {
	Notify(n domain.Notification)
}

// FileSaver defines the port for the client-side "save as"
type FileSaver interface {
	// Save writes data under name and returns the path actually used
	Save(ctx context.Context, name string, data []byte) (string, error)
}

// Clipboard defines the port for the system clipboard
type Clipboard interface {
	WriteAll(text string) error
}

// QRGenerator renders a payload as a PNG QR code
type QRGenerator interface {
	PNG(content string) ([]byte, error)
}
