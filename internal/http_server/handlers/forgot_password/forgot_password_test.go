package forgotPassword

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"accounts_service/internal/lib/apperr"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

type fakeRequester struct {
	login string
	err   error
}

func (f *fakeRequester) RequestPasswordReset(_ context.Context, login string) error {
	f.login = login
	return f.err
}

func TestHandler(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{"sent", `{"login":"alice"}`, nil, http.StatusNoContent},
		{"unknown user", `{"login":"bob"}`, apperr.BadRequest(apperr.MsgNonExistentUser), http.StatusBadRequest},
		{"mail down", `{"login":"alice"}`, apperr.BadRequest(apperr.MsgEmailNotSent), http.StatusBadRequest},
		{"empty login", `{"login":""}`, nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeRequester{err: tt.err}

			rec := httptest.NewRecorder()
			New(log, validator.New(), svc).ServeHTTP(rec,
				httptest.NewRequest(http.MethodPost, "/forgot-password", strings.NewReader(tt.body)))

			require.Equal(t, tt.status, rec.Code)
		})
	}
}
