package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kamal-hamza/bx-cli/internal/core/domain"
	"github.com/kamal-hamza/bx-cli/internal/core/ports"
)

// AssignmentService handles listing, searching and re-sending assignments
type AssignmentService struct {
	api ports.BadgeAPI
}

// NewAssignmentService creates a new assignment service
func NewAssignmentService(api ports.BadgeAPI) *AssignmentService {
	return &AssignmentService{api: api}
}

// ListAssignmentsRequest represents a request to list assignments
type ListAssignmentsRequest struct {
	Query   string // Matches student name, email or badge name (optional)
	SortBy  string // "id", "student", "badge", "downloads" (default: id)
	Reverse bool
}

// ListAssignmentsResponse represents the response from listing assignments
type ListAssignmentsResponse struct {
	Assignments []domain.Assignment
	Total       int
}

// Execute lists assignments with optional filtering and sorting
func (s *AssignmentService) Execute(ctx context.Context, req ListAssignmentsRequest) (*ListAssignmentsResponse, error) {
	assignments, err := s.api.ListAssignments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}

	if q := strings.TrimSpace(req.Query); q != "" {
		assignments = filterAssignments(assignments, q)
	}

	sortAssignments(assignments, req.SortBy, req.Reverse)

	return &ListAssignmentsResponse{
		Assignments: assignments,
		Total:       len(assignments),
	}, nil
}

// Resend asks the server to e-mail the download code again
func (s *AssignmentService) Resend(ctx context.Context, assignmentID int64) error {
	if assignmentID <= 0 {
		return fmt.Errorf("invalid assignment id: %d", assignmentID)
	}
	if err := s.api.ResendEmail(ctx, assignmentID); err != nil {
		return fmt.Errorf("failed to resend email for assignment %d: %w", assignmentID, err)
	}
	return nil
}

func filterAssignments(assignments []domain.Assignment, query string) []domain.Assignment {
	q := strings.ToLower(query)
	var filtered []domain.Assignment
	for _, a := range assignments {
		if strings.Contains(strings.ToLower(a.StudentName), q) ||
			strings.Contains(strings.ToLower(a.StudentEmail), q) ||
			strings.Contains(strings.ToLower(a.BadgeName), q) {
			filtered = append(filtered, a)
		}
	}
	return filtered
}

func sortAssignments(assignments []domain.Assignment, sortBy string, reverse bool) {
	less := func(a, b domain.Assignment) bool {
		switch sortBy {
		case "student":
			return strings.ToLower(a.StudentName) < strings.ToLower(b.StudentName)
		case "badge":
			return strings.ToLower(a.BadgeName) < strings.ToLower(b.BadgeName)
		case "downloads":
			return a.DownloadCount < b.DownloadCount
		default: // "id"
			return a.ID < b.ID
		}
	}
	sort.SliceStable(assignments, func(i, j int) bool {
		// Swapped operands keep ties in their original order
		if reverse {
			return less(assignments[j], assignments[i])
		}
		return less(assignments[i], assignments[j])
	})
}
