package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "club-secret"

func protected(a *Auth) http.Handler {
	return a.Authenticate(a.Authorize(RoleOrganizer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, _ := GetSubjectFromContext(r.Context())
		w.Write([]byte("ok " + subject))
	})))
}

func TestAuth_Gate(t *testing.T) {
	a := NewAuth(testSecret, slog.New(slog.NewTextHandler(io.Discard, nil)))

	organizer, err := IssueToken(testSecret, "td-1", RoleOrganizer, time.Hour)
	require.NoError(t, err)
	player, err := IssueToken(testSecret, "p-1", "player", time.Hour)
	require.NoError(t, err)
	forged, err := IssueToken("other-secret", "td-1", RoleOrganizer, time.Hour)
	require.NoError(t, err)
	expired, err := IssueToken(testSecret, "td-1", RoleOrganizer, -time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"organizer", "Bearer " + organizer, http.StatusOK},
		{"wrong role", "Bearer " + player, http.StatusForbidden},
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + forged, http.StatusUnauthorized},
		{"garbage", "Bearer not.a.token", http.StatusUnauthorized},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/tournaments", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			protected(a).ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, "ok td-1", rec.Body.String())
			}
		})
	}
}

func TestAuth_DisabledWithoutSecret(t *testing.T) {
	a := NewAuth("", nil)
	assert.False(t, a.Enabled())

	rec := httptest.NewRecorder()
	protected(a).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tournaments", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIssueToken_RequiresSecret(t *testing.T) {
	_, err := IssueToken("", "td", RoleOrganizer, time.Hour)
	assert.Error(t, err)
}
