package resetPassword

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

type fakeResetter struct {
	token, pass, confirm string
	err                  error
}

func (f *fakeResetter) ResetPassword(_ context.Context, token, pass, confirmPass string) error {
	f.token, f.pass, f.confirm = token, pass, confirmPass
	return f.err
}

func TestHandler(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	body := `{"password":"N3wPassw0rd?","confirmPassword":"N3wPassw0rd?"}`

	t.Run("reset", func(t *testing.T) {
		svc := &fakeResetter{}

		rec := httptest.NewRecorder()
		New(log, validator.New(), svc).ServeHTTP(rec,
			httptest.NewRequest(http.MethodPost, "/reset-password?token=tok", strings.NewReader(body)))

		require.Equal(t, http.StatusNoContent, rec.Code)
		require.Equal(t, "tok", svc.token)
		require.Equal(t, "N3wPassw0rd?", svc.pass)
		require.Equal(t, "N3wPassw0rd?", svc.confirm)
	})

	t.Run("used token", func(t *testing.T) {
		svc := &fakeResetter{err: apperr.UnprocessableEntity(apperr.MsgTokenAlreadyUsed)}

		rec := httptest.NewRecorder()
		New(log, validator.New(), svc).ServeHTTP(rec,
			httptest.NewRequest(http.MethodPost, "/reset-password?token=tok", strings.NewReader(body)))

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		require.Contains(t, rec.Body.String(), apperr.MsgTokenAlreadyUsed)
	})

	t.Run("no token", func(t *testing.T) {
		svc := &fakeResetter{}

		rec := httptest.NewRecorder()
		New(log, validator.New(), svc).ServeHTTP(rec,
			httptest.NewRequest(http.MethodPost, "/reset-password", strings.NewReader(body)))

		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, rec.Body.String(), apperr.MsgNoToken)
		require.Empty(t, svc.token)
	})
}
