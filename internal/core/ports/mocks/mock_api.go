package mocks

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/kamal-hamza/bx-cli/internal/core/domain"
)

// MockBadgeAPI is an in-memory implementation of ports.BadgeAPI for testing.
// Set the *Func fields to script behaviour; call counters are always kept.
type MockBadgeAPI struct {
	mu sync.Mutex

	ValidateFunc func(ctx context.Context, token string) (*domain.ValidationResponse, error)
	DownloadFunc func(ctx context.Context, token string) (*domain.Artifact, error)
	VerifyFunc   func(ctx context.Context, badgeJSON json.RawMessage, recipient string) (*domain.VerificationResult, error)

	Students    []domain.Student
	Badges      []domain.Badge
	Assignments []domain.Assignment
	Assertions  map[int64]json.RawMessage
	ListErr     error

	validateCalls []string
	downloadCalls []string
	resent        []int64
	verified      []string
}

// NewMockBadgeAPI creates a new mock API
func NewMockBadgeAPI() *MockBadgeAPI {
	return &MockBadgeAPI{
		Assertions: make(map[int64]json.RawMessage),
	}
}

func (m *MockBadgeAPI) ValidateToken(ctx context.Context, token string) (*domain.ValidationResponse, error) {
	m.mu.Lock()
	m.validateCalls = append(m.validateCalls, token)
	fn := m.ValidateFunc
	m.mu.Unlock()

	if fn == nil {
		return &domain.ValidationResponse{Valid: false, Message: "token not found"}, nil
	}
	return fn(ctx, token)
}

func (m *MockBadgeAPI) DownloadByToken(ctx context.Context, token string) (*domain.Artifact, error) {
	m.mu.Lock()
	m.downloadCalls = append(m.downloadCalls, token)
	fn := m.DownloadFunc
	m.mu.Unlock()

	if fn == nil {
		return nil, fmt.Errorf("download not scripted")
	}
	return fn(ctx, token)
}

func (m *MockBadgeAPI) OpenBadge(ctx context.Context, assignmentID int64) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.Assertions[assignmentID]
	if !ok {
		return nil, fmt.Errorf("assertion not found: %d", assignmentID)
	}
	return doc, nil
}

func (m *MockBadgeAPI) VerifyAssertion(ctx context.Context, badgeJSON json.RawMessage, recipient string) (*domain.VerificationResult, error) {
	m.mu.Lock()
	m.verified = append(m.verified, recipient)
	fn := m.VerifyFunc
	m.mu.Unlock()

	if fn == nil {
		return &domain.VerificationResult{Valid: true}, nil
	}
	return fn(ctx, badgeJSON, recipient)
}

func (m *MockBadgeAPI) ListStudents(ctx context.Context) ([]domain.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Students, m.ListErr
}

func (m *MockBadgeAPI) ListBadges(ctx context.Context) ([]domain.Badge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Badges, m.ListErr
}

func (m *MockBadgeAPI) ListAssignments(ctx context.Context) ([]domain.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Assignment(nil), m.Assignments...), m.ListErr
}

func (m *MockBadgeAPI) ResendEmail(ctx context.Context, assignmentID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range m.Assignments {
		if a.ID == assignmentID {
			m.resent = append(m.resent, assignmentID)
			return nil
		}
	}
	return fmt.Errorf("assignment not found: %d", assignmentID)
}

// ValidateCalls returns the tokens passed to ValidateToken, in order
func (m *MockBadgeAPI) ValidateCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.validateCalls...)
}

// DownloadCalls returns the tokens passed to DownloadByToken, in order
func (m *MockBadgeAPI) DownloadCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.downloadCalls...)
}

// Resent returns the assignment ids whose email was re-sent
func (m *MockBadgeAPI) Resent() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.resent...)
}

// Verified returns the recipients passed to VerifyAssertion, in order
func (m *MockBadgeAPI) Verified() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.verified...)
}
