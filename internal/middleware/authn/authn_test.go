package authn

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"accounts_service/internal/lib/apperr"
	"accounts_service/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeParser struct {
	authz models.Authorization
	token string
}

func (p fakeParser) ParseAccessToken(token string) (models.Authorization, error) {
	if token != p.token {
		return models.Authorization{}, apperr.Unauthorized(apperr.MsgUnauthorized)
	}
	return p.authz, nil
}

func TestNew(t *testing.T) {
	t.Parallel()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	want := models.Authorization{UserID: uuid.New(), Role: models.RoleUser, Permissions: []string{models.PermUsersRead}}
	parser := fakeParser{authz: want, token: "good"}

	var got models.Authorization
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a, ok := FromContext(r.Context())
		require.True(t, ok)
		got = a
		w.WriteHeader(http.StatusNoContent)
	})

	h := New(log, parser)(next)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid", "Bearer good", http.StatusNoContent},
		{"lowercase scheme", "bearer good", http.StatusNoContent},
		{"missing", "", http.StatusBadRequest},
		{"no scheme", "good", http.StatusBadRequest},
		{"basic", "Basic good", http.StatusBadRequest},
		{"invalid", "Bearer bad", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got = models.Authorization{}

			req := httptest.NewRequest(http.MethodGet, "/my-account", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			require.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusNoContent {
				require.Equal(t, want, got)
			}
		})
	}
}

func TestFromContextEmpty(t *testing.T) {
	t.Parallel()

	_, ok := FromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	require.False(t, ok)
}
