package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kamal-hamza/bx-cli/internal/core/domain"
	"github.com/kamal-hamza/bx-cli/internal/core/ports"
)

// AssertionService reads public open badge assertions
type AssertionService struct {
	api     ports.BadgeAPI
	qr      ports.QRGenerator
	apiBase string
}

// NewAssertionService creates a new assertion service
func NewAssertionService(api ports.BadgeAPI, qr ports.QRGenerator, apiBase string) *AssertionService {
	return &AssertionService{api: api, qr: qr, apiBase: apiBase}
}

// Fetch returns the assertion document indented for display
func (s *AssertionService) Fetch(ctx context.Context, assignmentID int64) ([]byte, error) {
	raw, err := s.api.OpenBadge(ctx, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch open badge %d: %w", assignmentID, err)
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, fmt.Errorf("open badge %d is not valid JSON: %w", assignmentID, err)
	}
	return buf.Bytes(), nil
}

// ErrNoRecipient is returned when a verification names no recipient
var ErrNoRecipient = errors.New("recipient is required")

// Verify fetches an assignment's assertion and asks the server whether it
// was issued to recipient
func (s *AssertionService) Verify(ctx context.Context, assignmentID int64, recipient string) (*domain.VerificationResult, error) {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return nil, ErrNoRecipient
	}

	raw, err := s.api.OpenBadge(ctx, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch open badge %d: %w", assignmentID, err)
	}

	res, err := s.api.VerifyAssertion(ctx, raw, recipient)
	if err != nil {
		return nil, fmt.Errorf("failed to verify open badge %d: %w", assignmentID, err)
	}
	return res, nil
}

// URL is the public address of an assignment's assertion
func (s *AssertionService) URL(assignmentID int64) string {
	return domain.AssertionURL(s.apiBase, assignmentID)
}

// QRCode renders the assertion URL as a PNG QR code
func (s *AssertionService) QRCode(assignmentID int64) ([]byte, error) {
	png, err := s.qr.PNG(s.URL(assignmentID))
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code: %w", err)
	}
	return png, nil
}
