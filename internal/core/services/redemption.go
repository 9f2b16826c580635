package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kamal-hamza/bx-cli/internal/core/domain"
	"github.com/kamal-hamza/bx-cli/internal/core/ports"
)

var (
	ErrBlankToken      = errors.New("download code is blank")
	ErrInvalidToken    = errors.New("download code rejected")
	ErrUnavailable     = errors.New("badge server unavailable")
	ErrNotValidated    = errors.New("no validated download code")
	ErrBusy            = errors.New("a download is already in progress")
	ErrNothingToExport = errors.New("no validated badge to export")
	ErrSuperseded      = errors.New("superseded by a newer request")
)

// RedemptionFlow drives one download code from entry to artifact.
//
// A download is only possible after a successful validation, and after a
// download the badge view is refreshed from the server rather than
// patched locally. Validations are ordered by start: a response whose
// request is no longer the latest is discarded. Reset also discards
// in-flight results.
type RedemptionFlow struct {
	api       ports.BadgeAPI
	notifier  ports.Notifier
	downloads ports.FileSaver
	exports   ports.FileSaver
	clipboard ports.Clipboard
	apiBase   string
	now       func() time.Time
	log       zerolog.Logger

	mu    sync.Mutex
	state domain.FlowState
	gen   uint64
}

// FlowOption customises a RedemptionFlow
type FlowOption func(*RedemptionFlow)

// WithClock replaces the wall clock used for exports and expiry checks
func WithClock(now func() time.Time) FlowOption {
	return func(f *RedemptionFlow) { f.now = now }
}

// WithLogger attaches a logger for failures that are not shown to the user
func WithLogger(log zerolog.Logger) FlowOption {
	return func(f *RedemptionFlow) { f.log = log }
}

// NewRedemptionFlow creates a flow in the Empty state
func NewRedemptionFlow(
	api ports.BadgeAPI,
	notifier ports.Notifier,
	downloads ports.FileSaver,
	exports ports.FileSaver,
	clipboard ports.Clipboard,
	apiBase string,
	opts ...FlowOption,
) *RedemptionFlow {
	f := &RedemptionFlow{
		api:       api,
		notifier:  notifier,
		downloads: downloads,
		exports:   exports,
		clipboard: clipboard,
		apiBase:   apiBase,
		now:       time.Now,
		log:       zerolog.Nop(),
		state:     domain.EmptyState(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// DownloadResult describes a completed download
type DownloadResult struct {
	Path  string           // where the artifact was saved
	State domain.FlowState // state after the refresh settled
	// RefreshErr is set when the post-download validation failed.
	// The saved file is kept either way.
	RefreshErr error
}

// State returns a snapshot of the flow
func (f *RedemptionFlow) State() domain.FlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot()
}

// Now is the flow's clock, for render-time expiry checks
func (f *RedemptionFlow) Now() time.Time {
	return f.now()
}

// SetInput records the raw text typed by the user without changing phase
func (f *RedemptionFlow) SetInput(raw string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.Input = raw
}

// Validate checks raw against the server. A blank code is rejected locally.
func (f *RedemptionFlow) Validate(ctx context.Context, raw string) (domain.FlowState, error) {
	token := strings.TrimSpace(raw)

	f.mu.Lock()
	if token == "" {
		f.state.Input = raw
		state := f.snapshot()
		f.mu.Unlock()
		f.notify("Error", "Please enter a valid download code", domain.SeverityError)
		return state, ErrBlankToken
	}
	f.gen++
	gen := f.gen
	f.state = domain.ValidatingState(raw, token)
	f.mu.Unlock()

	return f.validate(ctx, gen, raw, token)
}

// validate performs the request for generation gen and applies the answer
// if gen is still current
func (f *RedemptionFlow) validate(ctx context.Context, gen uint64, raw, token string) (domain.FlowState, error) {
	resp, err := f.api.ValidateToken(ctx, token)

	f.mu.Lock()
	if gen != f.gen {
		state := f.snapshot()
		f.mu.Unlock()
		f.log.Debug().Str("token", token).Msg("dropping stale validation result")
		return state, ErrSuperseded
	}

	switch {
	case err != nil:
		f.state = domain.InvalidState(raw, token, "")
		state := f.snapshot()
		f.mu.Unlock()
		f.log.Warn().Err(err).Msg("token validation request failed")
		f.notify("Connection error", "Could not connect to the server", domain.SeverityError)
		return state, fmt.Errorf("%w: %w", ErrUnavailable, err)

	case resp.Valid && resp.BadgeInfo != nil:
		f.state = domain.ValidState(raw, token, *resp.BadgeInfo)
		state := f.snapshot()
		f.mu.Unlock()
		f.notify("Code valid", "You can now download your badge.", domain.SeveritySuccess)
		return state, nil

	default:
		f.state = domain.InvalidState(raw, token, resp.Message)
		state := f.snapshot()
		f.mu.Unlock()
		f.notify("Invalid code", resp.Message, domain.SeverityError)
		return state, ErrInvalidToken
	}
}

// Download fetches the artifact for the validated code, saves it, and then
// re-validates the same code to pick up the server's download count.
// Without a validated code it does nothing and sends no request.
func (f *RedemptionFlow) Download(ctx context.Context) (DownloadResult, error) {
	f.mu.Lock()
	if f.state.Phase == domain.PhaseDownloading {
		state := f.snapshot()
		f.mu.Unlock()
		return DownloadResult{State: state}, ErrBusy
	}
	if !f.state.CanDownload() {
		state := f.snapshot()
		f.mu.Unlock()
		return DownloadResult{State: state}, ErrNotValidated
	}
	gen := f.gen
	prev := f.snapshot()
	f.state = domain.DownloadingState(prev.Input, prev.Token, *prev.View)
	f.mu.Unlock()

	artifact, err := f.api.DownloadByToken(ctx, prev.Token)
	if err != nil {
		var apiErr *domain.APIError
		if errors.As(err, &apiErr) {
			f.notify("Download failed", apiErr.Body, domain.SeverityError)
		} else {
			f.log.Warn().Err(err).Msg("badge download request failed")
			f.notify("Error", "Failed to download the badge", domain.SeverityError)
		}
		return DownloadResult{State: f.restore(gen, prev)}, fmt.Errorf("download failed: %w", err)
	}

	name := artifact.Filename
	if name == "" {
		name = domain.DefaultArtifactName
	}
	path, err := f.downloads.Save(ctx, name, artifact.Data)
	if err != nil {
		f.log.Error().Err(err).Str("file", name).Msg("saving badge failed")
		f.notify("Error", "Could not save the badge file", domain.SeverityError)
		return DownloadResult{State: f.restore(gen, prev)}, fmt.Errorf("failed to save badge: %w", err)
	}

	f.notify("Download complete", fmt.Sprintf("Badge %q downloaded successfully!", prev.View.BadgeName), domain.SeveritySuccess)

	// The refresh runs strictly after the artifact is saved
	state, refreshErr := f.validate(ctx, gen, prev.Input, prev.Token)
	if errors.Is(refreshErr, ErrSuperseded) {
		refreshErr = nil
	}
	return DownloadResult{Path: path, State: state, RefreshErr: refreshErr}, nil
}

// restore returns a failed download to the state it started from, unless
// something newer has replaced it meanwhile
func (f *RedemptionFlow) restore(gen uint64, prev domain.FlowState) domain.FlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	if gen == f.gen && f.state.Phase == domain.PhaseDownloading {
		f.state = prev
	}
	return f.snapshot()
}

// Export writes the held badge view as a JSON document. It is local only.
func (f *RedemptionFlow) Export(ctx context.Context) (string, error) {
	f.mu.Lock()
	var view *domain.BadgeInfo
	if f.state.View != nil {
		v := *f.state.View
		view = &v
	}
	f.mu.Unlock()

	if view == nil {
		f.notify("Error", "No validated badge to export", domain.SeverityError)
		return "", ErrNothingToExport
	}

	now := f.now()
	doc := domain.NewExportDocument(*view, f.apiBase, now)
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		f.notify("Error", "Could not build the export document", domain.SeverityError)
		return "", fmt.Errorf("failed to marshal export: %w", err)
	}

	path, err := f.exports.Save(ctx, domain.ExportFilename(view.BadgeName, now), data)
	if err != nil {
		f.log.Error().Err(err).Msg("saving export failed")
		f.notify("Error", "Could not save the exported JSON", domain.SeverityError)
		return "", fmt.Errorf("failed to save export: %w", err)
	}

	f.notify("JSON exported", "Badge data exported successfully!", domain.SeveritySuccess)
	return path, nil
}

// Reset returns to Empty. Results of requests still in flight are dropped.
func (f *RedemptionFlow) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gen++
	f.state = domain.EmptyState()
}

// CopyToken puts the raw, untrimmed input on the clipboard
func (f *RedemptionFlow) CopyToken() error {
	f.mu.Lock()
	raw := f.state.Input
	f.mu.Unlock()

	if raw == "" {
		f.notify("Error", "There is no code to copy", domain.SeverityError)
		return ErrBlankToken
	}
	if err := f.clipboard.WriteAll(raw); err != nil {
		f.log.Warn().Err(err).Msg("clipboard write failed")
		f.notify("Error", "Clipboard access failed, please copy manually", domain.SeverityError)
		return fmt.Errorf("failed to copy code: %w", err)
	}

	f.notify("Copied!", "Code copied to the clipboard", domain.SeverityInfo)
	return nil
}

// snapshot copies the state so callers never share the held view.
// Caller holds f.mu.
func (f *RedemptionFlow) snapshot() domain.FlowState {
	s := f.state
	if s.View != nil {
		v := *s.View
		s.View = &v
	}
	return s
}

func (f *RedemptionFlow) notify(title, description string, sev domain.Severity) {
	if f.notifier == nil {
		return
	}
	f.notifier.Notify(domain.Notification{Title: title, Description: description, Severity: sev})
}
