package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/kamal-hamza/bx-cli/internal/core/domain"
	"github.com/kamal-hamza/bx-cli/internal/core/ports"
)

var _ ports.BadgeAPI = (*Client)(nil)

// Client talks to the badge REST API. It implements ports.BadgeAPI.
// No request timeout is set; callers bound requests through the context.
type Client struct {
	baseURL   string
	http      *http.Client
	userAgent string
}

// Option customises a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithUserAgent sets the User-Agent header sent with every request
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// NewClient creates a client for the API rooted at baseURL
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{},
		userAgent: "bx",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client was built with
func (c *Client) BaseURL() string {
	return c.baseURL
}

type tokenRequest struct {
	Token string `json:"token"`
}

// ValidateToken posts the token to /api/badges/validate-token. The body is
// decoded whatever the status, since rejections carry a JSON message too.
func (c *Client) ValidateToken(ctx context.Context, token string) (*domain.ValidationResponse, error) {
	resp, err := c.do(ctx, http.MethodPost, "/api/badges/validate-token", tokenRequest{Token: token})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out domain.ValidationResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode validation response (status %d): %w", resp.StatusCode, err)
	}
	return &out, nil
}

// DownloadByToken posts the token to /api/badges/download-by-token and reads
// the whole artifact
func (c *Client) DownloadByToken(ctx context.Context, token string) (*domain.Artifact, error) {
	resp, err := c.do(ctx, http.MethodPost, "/api/badges/download-by-token", tokenRequest{Token: token})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read badge artifact: %w", err)
	}

	return &domain.Artifact{
		Filename: FilenameFromDisposition(resp.Header.Get("Content-Disposition")),
		Data:     data,
	}, nil
}

// OpenBadge fetches the public open badge assertion of an assignment
func (c *Client) OpenBadge(ctx context.Context, assignmentID int64) (json.RawMessage, error) {
	var raw json.RawMessage
	p := "/api/public/assertions/" + strconv.FormatInt(assignmentID, 10) + "/open-badge"
	if err := c.getJSON(ctx, p, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

type verifyRequest struct {
	BadgeJSON string `json:"badgeJson"`
	Recipient string `json:"recipient"`
}

// VerifyAssertion posts the assertion to /api/badges/validate. The document
// travels as a JSON string, and the verdict is decoded whatever the status.
func (c *Client) VerifyAssertion(ctx context.Context, badgeJSON json.RawMessage, recipient string) (*domain.VerificationResult, error) {
	resp, err := c.do(ctx, http.MethodPost, "/api/badges/validate", verifyRequest{
		BadgeJSON: string(badgeJSON),
		Recipient: recipient,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out domain.VerificationResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode verification response (status %d): %w", resp.StatusCode, err)
	}
	return &out, nil
}

func (c *Client) ListStudents(ctx context.Context) ([]domain.Student, error) {
	var out []domain.Student
	if err := c.getJSON(ctx, "/api/students", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListBadges(ctx context.Context) ([]domain.Badge, error) {
	var out []domain.Badge
	if err := c.getJSON(ctx, "/api/badges", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListAssignments(ctx context.Context) ([]domain.Assignment, error) {
	var out []domain.Assignment
	if err := c.getJSON(ctx, "/api/assignments", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ResendEmail asks the server to mail the assignment's download code again
func (c *Client) ResendEmail(ctx context.Context, assignmentID int64) error {
	p := "/api/assignments/" + strconv.FormatInt(assignmentID, 10) + "/resend-email"
	resp, err := c.do(ctx, http.MethodPost, p, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return checkStatus(resp)
}

func (c *Client) getJSON(ctx context.Context, p string, out any) error {
	resp, err := c.do(ctx, http.MethodGet, p, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", p, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, p string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+p, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, p, err)
	}
	return resp, nil
}

// checkStatus turns a non-2xx response into *domain.APIError with the body text
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	return &domain.APIError{
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}
}

var quotedFilename = regexp.MustCompile(`filename="(.+)"`)

// FilenameFromDisposition extracts the file name from a Content-Disposition
// header. Directory components are stripped. Empty means none was given.
func FilenameFromDisposition(header string) string {
	if header == "" {
		return ""
	}

	var name string
	if _, params, err := mime.ParseMediaType(header); err == nil {
		name = params["filename"]
	}
	if name == "" {
		if m := quotedFilename.FindStringSubmatch(header); m != nil {
			name = m[1]
		}
	}

	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return name
}
