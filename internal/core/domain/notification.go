package domain

// Severity classifies a user-facing notification
type Severity int

const (
	SeverityInfo Severity = iota
	SeveritySuccess
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeveritySuccess:
		return "success"
	case SeverityError:
		return "error"
	default:
		return "info"
	}
}

// Notification is a toast-style message for the user
type Notification struct {
	Title       string
	Description string
	Severity    Severity
}
