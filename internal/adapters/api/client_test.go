package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamal-hamza/bx-cli/internal/core/domain"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL + "/")
}

func TestClient_ValidateToken(t *testing.T) {
	token := uuid.NewString()
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/badges/validate-token", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, token, body["token"])

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"valid":true,"message":"ok","badgeInfo":{"badgeName":"Go","downloadCount":2,"assignmentId":9,"tokenExpiresAt":"2030-01-01T00:00:00"}}`)
	})

	resp, err := client.ValidateToken(context.Background(), token)
	require.NoError(t, err)

	assert.True(t, resp.Valid)
	require.NotNil(t, resp.BadgeInfo)
	assert.Equal(t, "Go", resp.BadgeInfo.BadgeName)
	assert.Equal(t, int64(2), resp.BadgeInfo.DownloadCount)
	assert.Equal(t, int64(9), resp.BadgeInfo.AssignmentID)
	assert.Equal(t, 2030, resp.BadgeInfo.TokenExpiresAt.Time.Year())
}

func TestClient_ValidateToken_RejectionWithErrorStatus(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"valid":false,"message":"Token inválido ou expirado"}`)
	})

	resp, err := client.ValidateToken(context.Background(), "x")
	require.NoError(t, err)
	assert.False(t, resp.Valid)
	assert.Equal(t, "Token inválido ou expirado", resp.Message)
	assert.Nil(t, resp.BadgeInfo)
}

func TestClient_ValidateToken_UnparseableBody(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "<html>bad gateway</html>")
	})

	_, err := client.ValidateToken(context.Background(), "x")
	assert.ErrorContains(t, err, "failed to decode validation response")
}

func TestClient_ValidateToken_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	_, err := NewClient(srv.URL).ValidateToken(context.Background(), "x")
	assert.Error(t, err)
}

func TestClient_DownloadByToken(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/badges/download-by-token", r.URL.Path)
		w.Header().Set("Content-Disposition", `attachment; filename="python-basics.png"`)
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte{0x89, 'P', 'N', 'G'})
	})

	artifact, err := client.DownloadByToken(context.Background(), "tok")
	require.NoError(t, err)

	assert.Equal(t, "python-basics.png", artifact.Filename)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, artifact.Data)
}

func TestClient_DownloadByToken_ErrorBody(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Token expirado", http.StatusGone)
	})

	_, err := client.DownloadByToken(context.Background(), "tok")

	var apiErr *domain.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusGone, apiErr.StatusCode)
	assert.Equal(t, "Token expirado", apiErr.Body)
}

func TestFilenameFromDisposition(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"attachment", ""},
		{`attachment; filename="badge-ana.png"`, "badge-ana.png"},
		{`attachment; filename=plain.png`, "plain.png"},
		{`attachment; filename="../../etc/passwd"`, "passwd"},
		{`attachment; filename="C:\\temp\\win.png"`, "win.png"},
		{`inline; filename="Python Basics.png"; size=10`, "Python Basics.png"},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			assert.Equal(t, tt.want, FilenameFromDisposition(tt.header))
		})
	}
}

func TestClient_Lists(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		switch r.URL.Path {
		case "/api/students":
			io.WriteString(w, `[{"id":1,"name":"Ana","email":"ana@x.test"}]`)
		case "/api/badges":
			io.WriteString(w, `[{"id":1,"name":"Go","issuer":"School","isActive":true}]`)
		case "/api/assignments":
			io.WriteString(w, `[{"id":4,"studentName":"Ana","badgeName":"Go","downloadToken":"t","emailSent":true}]`)
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	students, err := client.ListStudents(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.Student{{ID: 1, Name: "Ana", Email: "ana@x.test"}}, students)

	badges, err := client.ListBadges(ctx)
	require.NoError(t, err)
	require.Len(t, badges, 1)
	assert.Equal(t, "School", badges[0].Issuer.Name)

	assignments, err := client.ListAssignments(ctx)
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Equal(t, "t", assignments[0].DownloadToken)
	assert.True(t, assignments[0].EmailSent)
}

func TestClient_OpenBadgeAndResend(t *testing.T) {
	var resent bool
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/public/assertions/12/open-badge":
			io.WriteString(w, `{"type":"Assertion"}`)
		case r.Method == http.MethodPost && r.URL.Path == "/api/assignments/12/resend-email":
			resent = true
			w.WriteHeader(http.StatusNoContent)
		default:
			http.Error(w, "Badge não encontrado", http.StatusNotFound)
		}
	})
	ctx := context.Background()

	raw, err := client.OpenBadge(ctx, 12)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"Assertion"}`, string(raw))

	require.NoError(t, client.ResendEmail(ctx, 12))
	assert.True(t, resent)

	_, err = client.OpenBadge(ctx, 13)
	var apiErr *domain.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Badge não encontrado", apiErr.Body)
}

func TestClient_VerifyAssertion(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/badges/validate", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.JSONEq(t, `{"type":"Assertion","id":"12"}`, body["badgeJson"])

		if body["recipient"] != "ana@school.test" {
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"valid":false,"errors":["recipient mismatch","expired"]}`)
			return
		}
		io.WriteString(w, `{"valid":true,"badgeName":"Go","issuer":"Code School"}`)
	})
	ctx := context.Background()
	doc := json.RawMessage(`{"type":"Assertion","id":"12"}`)

	res, err := client.VerifyAssertion(ctx, doc, "ana@school.test")
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, "Go", res.BadgeName)
	assert.Equal(t, "Code School", res.Issuer.Name)

	res, err = client.VerifyAssertion(ctx, doc, "bob@school.test")
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, []string{"recipient mismatch", "expired"}, res.Errors)
}

func TestClient_VerifyAssertion_UnparseableBody(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := client.VerifyAssertion(context.Background(), json.RawMessage(`{}`), "a@b.test")
	assert.ErrorContains(t, err, "status 500")
}
