package services

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamal-hamza/bx-cli/internal/core/domain"
	"github.com/kamal-hamza/bx-cli/internal/core/ports/mocks"
)

type flowFixture struct {
	api       *mocks.MockBadgeAPI
	notifier  *mocks.MockNotifier
	downloads *mocks.MockFileSaver
	exports   *mocks.MockFileSaver
	clipboard *mocks.MockClipboard
	flow      *RedemptionFlow
	now       time.Time
}

func newFlowFixture(t *testing.T) *flowFixture {
	t.Helper()
	fx := &flowFixture{
		api:       mocks.NewMockBadgeAPI(),
		notifier:  mocks.NewMockNotifier(),
		downloads: mocks.NewMockFileSaver(),
		exports:   mocks.NewMockFileSaver(),
		clipboard: &mocks.MockClipboard{},
		now:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	fx.flow = NewRedemptionFlow(
		fx.api, fx.notifier, fx.downloads, fx.exports, fx.clipboard,
		"https://api.school.test",
		WithClock(func() time.Time { return fx.now }),
	)
	return fx
}

func sampleBadge(count int64) domain.BadgeInfo {
	assigned := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	return domain.BadgeInfo{
		BadgeName:         "Python Basics",
		BadgeDescription:  "First steps in Python",
		BadgeCategory:     "bronze",
		BadgeImagePath:    "uploads/badges/python.png",
		Issuer:            "Code School",
		IssuerImagePath:   "uploads/issuers/school.png",
		StudentName:       "Ana Souza",
		AchievementReason: "Completed the course",
		AssignedAt:        domain.NewTimestamp(assigned),
		DownloadCount:     count,
		TokenExpiresAt:    domain.NewTimestamp(assigned.AddDate(1, 0, 0)),
		AssignmentID:      17,
	}
}

func validResponse(info domain.BadgeInfo) *domain.ValidationResponse {
	return &domain.ValidationResponse{Valid: true, Message: "ok", BadgeInfo: &info}
}

func TestValidate_BlankInputMakesNoRequest(t *testing.T) {
	for _, input := range []string{"", " ", "\t", "  \n  "} {
		fx := newFlowFixture(t)

		state, err := fx.flow.Validate(context.Background(), input)

		assert.ErrorIs(t, err, ErrBlankToken)
		assert.Empty(t, fx.api.ValidateCalls(), "blank input %q must not hit the server", input)
		assert.Len(t, fx.notifier.All(), 1)
		assert.Equal(t, 1, fx.notifier.Count(domain.SeverityError))
		assert.Equal(t, domain.PhaseEmpty, state.Phase)
	}
}

func TestValidate_SuccessHoldsViewVerbatim(t *testing.T) {
	fx := newFlowFixture(t)
	token := uuid.NewString()
	info := sampleBadge(0)
	fx.api.ValidateFunc = func(ctx context.Context, got string) (*domain.ValidationResponse, error) {
		return validResponse(info), nil
	}

	state, err := fx.flow.Validate(context.Background(), "  "+token+"  ")

	require.NoError(t, err)
	assert.Equal(t, []string{token}, fx.api.ValidateCalls(), "token must be trimmed before sending")
	assert.Equal(t, domain.PhaseValid, state.Phase)
	require.NotNil(t, state.View)
	assert.Equal(t, info, *state.View)
	assert.True(t, state.CanDownload())
	assert.True(t, state.CanExport())

	last, _ := fx.notifier.Last()
	assert.Equal(t, domain.SeveritySuccess, last.Severity)
}

func TestValidate_RejectionClearsPreviousView(t *testing.T) {
	fx := newFlowFixture(t)
	good := uuid.NewString()
	fx.api.ValidateFunc = func(ctx context.Context, token string) (*domain.ValidationResponse, error) {
		if token == good {
			return validResponse(sampleBadge(0)), nil
		}
		return &domain.ValidationResponse{Valid: false, Message: "Token expirado"}, nil
	}

	_, err := fx.flow.Validate(context.Background(), good)
	require.NoError(t, err)

	state, err := fx.flow.Validate(context.Background(), "bogus")

	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Equal(t, domain.PhaseInvalid, state.Phase)
	assert.Nil(t, state.View)
	assert.False(t, state.CanDownload())

	last, _ := fx.notifier.Last()
	assert.Equal(t, "Token expirado", last.Description, "server message is shown verbatim")
	assert.Equal(t, domain.SeverityError, last.Severity)
}

func TestValidate_ValidWithoutBadgeInfoIsRejected(t *testing.T) {
	fx := newFlowFixture(t)
	fx.api.ValidateFunc = func(ctx context.Context, token string) (*domain.ValidationResponse, error) {
		return &domain.ValidationResponse{Valid: true, Message: "odd"}, nil
	}

	state, err := fx.flow.Validate(context.Background(), "abc")

	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Equal(t, domain.PhaseInvalid, state.Phase)
}

func TestValidate_TransportFailureIsGeneric(t *testing.T) {
	fx := newFlowFixture(t)
	fx.api.ValidateFunc = func(ctx context.Context, token string) (*domain.ValidationResponse, error) {
		return nil, errors.New("dial tcp: connection refused")
	}

	state, err := fx.flow.Validate(context.Background(), "abc")

	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, domain.PhaseInvalid, state.Phase)

	last, _ := fx.notifier.Last()
	assert.Equal(t, "Connection error", last.Title)
	assert.NotContains(t, last.Description, "refused", "raw transport errors are not shown")
}

func TestDownload_WithoutValidationIsNoop(t *testing.T) {
	fx := newFlowFixture(t)

	_, err := fx.flow.Download(context.Background())
	assert.ErrorIs(t, err, ErrNotValidated)

	fx.flow.SetInput("typed-but-not-validated")
	_, err = fx.flow.Download(context.Background())
	assert.ErrorIs(t, err, ErrNotValidated)

	assert.Empty(t, fx.api.DownloadCalls())
	assert.Empty(t, fx.notifier.All())
}

func TestDownload_RefreshesCountFromServer(t *testing.T) {
	fx := newFlowFixture(t)
	token := uuid.NewString()

	var mu sync.Mutex
	serverCount := int64(4)
	fx.api.ValidateFunc = func(ctx context.Context, got string) (*domain.ValidationResponse, error) {
		mu.Lock()
		defer mu.Unlock()
		return validResponse(sampleBadge(serverCount)), nil
	}
	fx.api.DownloadFunc = func(ctx context.Context, got string) (*domain.Artifact, error) {
		mu.Lock()
		defer mu.Unlock()
		// The server counts downloads in its own way; the client must not guess
		serverCount += 10
		return &domain.Artifact{Filename: "python-basics.png", Data: []byte("PNGDATA")}, nil
	}

	_, err := fx.flow.Validate(context.Background(), token)
	require.NoError(t, err)

	res, err := fx.flow.Download(context.Background())
	require.NoError(t, err)
	require.NoError(t, res.RefreshErr)

	assert.Equal(t, []string{token}, fx.api.DownloadCalls())
	assert.Equal(t, []string{token, token}, fx.api.ValidateCalls(), "exactly one refresh with the same token")
	assert.Equal(t, "/mem/python-basics.png", res.Path)

	data, ok := fx.downloads.Get(res.Path)
	require.True(t, ok)
	assert.Equal(t, "PNGDATA", string(data))

	assert.Equal(t, domain.PhaseValid, res.State.Phase)
	require.NotNil(t, res.State.View)
	assert.Equal(t, int64(14), res.State.View.DownloadCount, "count comes from the server, not a local +1")
}

func TestDownload_DefaultFilename(t *testing.T) {
	fx := newFlowFixture(t)
	fx.api.ValidateFunc = func(ctx context.Context, token string) (*domain.ValidationResponse, error) {
		return validResponse(sampleBadge(0)), nil
	}
	fx.api.DownloadFunc = func(ctx context.Context, token string) (*domain.Artifact, error) {
		return &domain.Artifact{Data: []byte("x")}, nil
	}

	_, err := fx.flow.Validate(context.Background(), "abc")
	require.NoError(t, err)

	res, err := fx.flow.Download(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/mem/badge.png", res.Path)
}

func TestDownload_ServerErrorSurfacesBodyAndKeepsValid(t *testing.T) {
	fx := newFlowFixture(t)
	fx.api.ValidateFunc = func(ctx context.Context, token string) (*domain.ValidationResponse, error) {
		return validResponse(sampleBadge(1)), nil
	}
	fx.api.DownloadFunc = func(ctx context.Context, token string) (*domain.Artifact, error) {
		return nil, &domain.APIError{StatusCode: 410, Body: "Limite de downloads atingido"}
	}

	_, err := fx.flow.Validate(context.Background(), "abc")
	require.NoError(t, err)

	res, err := fx.flow.Download(context.Background())

	require.Error(t, err)
	assert.Equal(t, domain.PhaseValid, res.State.Phase)
	assert.Equal(t, int64(1), res.State.View.DownloadCount)
	assert.Len(t, fx.api.ValidateCalls(), 1, "no refresh after a failed download")
	assert.Empty(t, fx.downloads.Saved())

	last, _ := fx.notifier.Last()
	assert.Equal(t, "Limite de downloads atingido", last.Description)
}

func TestDownload_RefreshFailureKeepsFile(t *testing.T) {
	fx := newFlowFixture(t)
	calls := 0
	fx.api.ValidateFunc = func(ctx context.Context, token string) (*domain.ValidationResponse, error) {
		calls++
		if calls == 1 {
			return validResponse(sampleBadge(0)), nil
		}
		return &domain.ValidationResponse{Valid: false, Message: "Token já utilizado"}, nil
	}
	fx.api.DownloadFunc = func(ctx context.Context, token string) (*domain.Artifact, error) {
		return &domain.Artifact{Filename: "b.png", Data: []byte("x")}, nil
	}

	_, err := fx.flow.Validate(context.Background(), "abc")
	require.NoError(t, err)

	res, err := fx.flow.Download(context.Background())

	require.NoError(t, err, "the download itself succeeded")
	assert.ErrorIs(t, res.RefreshErr, ErrInvalidToken)
	assert.Equal(t, domain.PhaseInvalid, res.State.Phase)
	assert.Equal(t, []string{"/mem/b.png"}, fx.downloads.Saved())
}

func TestDownload_SingleFlight(t *testing.T) {
	fx := newFlowFixture(t)
	release := make(chan struct{})
	started := make(chan struct{})

	fx.api.ValidateFunc = func(ctx context.Context, token string) (*domain.ValidationResponse, error) {
		return validResponse(sampleBadge(0)), nil
	}
	fx.api.DownloadFunc = func(ctx context.Context, token string) (*domain.Artifact, error) {
		close(started)
		<-release
		return &domain.Artifact{Filename: "b.png", Data: []byte("x")}, nil
	}

	_, err := fx.flow.Validate(context.Background(), "abc")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := fx.flow.Download(context.Background())
		done <- err
	}()
	<-started

	assert.Equal(t, domain.PhaseDownloading, fx.flow.State().Phase)
	_, err = fx.flow.Download(context.Background())
	assert.ErrorIs(t, err, ErrBusy)

	close(release)
	require.NoError(t, <-done)

	assert.Len(t, fx.api.DownloadCalls(), 1)
	assert.Len(t, fx.api.ValidateCalls(), 2, "one validation plus one refresh")
}

func TestValidate_LastStartedWins(t *testing.T) {
	fx := newFlowFixture(t)
	first, second := uuid.NewString(), uuid.NewString()
	releaseFirst := make(chan struct{})
	firstStarted := make(chan struct{})

	fx.api.ValidateFunc = func(ctx context.Context, token string) (*domain.ValidationResponse, error) {
		info := sampleBadge(0)
		if token == first {
			close(firstStarted)
			<-releaseFirst
			info.BadgeName = "First"
		} else {
			info.BadgeName = "Second"
		}
		return validResponse(info), nil
	}

	firstDone := make(chan error, 1)
	go func() {
		_, err := fx.flow.Validate(context.Background(), first)
		firstDone <- err
	}()
	<-firstStarted

	// The second request starts later and resolves first
	state, err := fx.flow.Validate(context.Background(), second)
	require.NoError(t, err)
	assert.Equal(t, "Second", state.View.BadgeName)

	close(releaseFirst)
	assert.ErrorIs(t, <-firstDone, ErrSuperseded)

	final := fx.flow.State()
	assert.Equal(t, second, final.Token)
	assert.Equal(t, "Second", final.View.BadgeName, "the later-started validation stays authoritative")
}

func TestReset_DiscardsInFlightValidation(t *testing.T) {
	fx := newFlowFixture(t)
	release := make(chan struct{})
	started := make(chan struct{})
	fx.api.ValidateFunc = func(ctx context.Context, token string) (*domain.ValidationResponse, error) {
		close(started)
		<-release
		return validResponse(sampleBadge(0)), nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := fx.flow.Validate(context.Background(), "abc")
		done <- err
	}()
	<-started

	fx.flow.Reset()
	close(release)

	assert.ErrorIs(t, <-done, ErrSuperseded)
	state := fx.flow.State()
	assert.Equal(t, domain.PhaseEmpty, state.Phase)
	assert.Nil(t, state.View)
	assert.Empty(t, state.Input)
}

func TestExport_WritesDocument(t *testing.T) {
	fx := newFlowFixture(t)
	fx.api.ValidateFunc = func(ctx context.Context, token string) (*domain.ValidationResponse, error) {
		return validResponse(sampleBadge(3)), nil
	}
	_, err := fx.flow.Validate(context.Background(), "abc")
	require.NoError(t, err)

	path, err := fx.flow.Export(context.Background())
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^/mem/badge-python-basics-\d+\.json$`), path)
	assert.Empty(t, fx.api.DownloadCalls())
	assert.Len(t, fx.api.ValidateCalls(), 1, "export is local")

	data, ok := fx.exports.Get(path)
	require.True(t, ok)

	var doc domain.ExportDocument
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "Python Basics", doc.Badge.Name)
	assert.Equal(t, "https://api.school.test/uploads/badges/python.png", *doc.Badge.ImageURL)
	assert.Equal(t, "https://api.school.test/uploads/issuers/school.png", *doc.Issuer.ImageURL)
	assert.Equal(t, int64(3), doc.Metadata.DownloadCount)

	exportedAt, err := time.Parse(time.RFC3339Nano, doc.Metadata.ExportedAt)
	require.NoError(t, err)
	assert.True(t, exportedAt.After(doc.Metadata.AssignedAt.Time))
}

func TestExport_WithoutViewFails(t *testing.T) {
	fx := newFlowFixture(t)

	_, err := fx.flow.Export(context.Background())

	assert.ErrorIs(t, err, ErrNothingToExport)
	assert.Empty(t, fx.exports.Saved())
	assert.Equal(t, 1, fx.notifier.Count(domain.SeverityError))
}

func TestCopyToken_UsesRawInput(t *testing.T) {
	fx := newFlowFixture(t)
	fx.flow.SetInput("  abc-123 ")

	require.NoError(t, fx.flow.CopyToken())
	assert.Equal(t, "  abc-123 ", fx.clipboard.Text)
	assert.Equal(t, domain.PhaseEmpty, fx.flow.State().Phase)

	fx.clipboard.Err = errors.New("no display")
	assert.Error(t, fx.flow.CopyToken())
}

func TestCopyToken_EmptyInputIsRefused(t *testing.T) {
	fx := newFlowFixture(t)
	fx.clipboard.Text = "previous"

	err := fx.flow.CopyToken()

	assert.ErrorIs(t, err, ErrBlankToken)
	assert.Equal(t, "previous", fx.clipboard.Text, "clipboard must be left alone")
	assert.Equal(t, 1, fx.notifier.Count(domain.SeverityError))
}

func TestReset_ClearsEverything(t *testing.T) {
	fx := newFlowFixture(t)
	fx.api.ValidateFunc = func(ctx context.Context, token string) (*domain.ValidationResponse, error) {
		return validResponse(sampleBadge(0)), nil
	}
	_, err := fx.flow.Validate(context.Background(), "abc")
	require.NoError(t, err)

	fx.flow.Reset()

	state := fx.flow.State()
	assert.Equal(t, domain.EmptyState(), state)

	_, err = fx.flow.Download(context.Background())
	assert.ErrorIs(t, err, ErrNotValidated)
}

func TestState_ExpiryIsRecomputed(t *testing.T) {
	fx := newFlowFixture(t)
	info := sampleBadge(0)
	info.TokenExpiresAt = domain.NewTimestamp(fx.now.Add(time.Hour))
	fx.api.ValidateFunc = func(ctx context.Context, token string) (*domain.ValidationResponse, error) {
		return validResponse(info), nil
	}
	_, err := fx.flow.Validate(context.Background(), "abc")
	require.NoError(t, err)

	view := fx.flow.State().View
	assert.False(t, view.Expired(fx.flow.Now()))

	fx.now = fx.now.Add(2 * time.Hour)
	assert.True(t, fx.flow.State().View.Expired(fx.flow.Now()))
}
