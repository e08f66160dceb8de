package register

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	resp "accounts_service/internal/lib/api/response"
	"accounts_service/internal/lib/apperr"
	"accounts_service/internal/lib/validation"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeRegisterer struct {
	id    uuid.UUID
	err   error
	calls int
}

func (f *fakeRegisterer) Register(_ context.Context, username, email, pass, confirmPass string) (uuid.UUID, error) {
	f.calls++
	return f.id, f.err
}

func TestHandler(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	id := uuid.New()

	tests := []struct {
		name       string
		body       string
		err        error
		status     int
		wantError  string
		wantDetail string
		wantCalls  int
	}{
		{
			name:      "created",
			body:      `{"username":"alice","email":"alice@example.com","password":"Passw0rd!","confirmPassword":"Passw0rd!"}`,
			status:    http.StatusCreated,
			wantCalls: 1,
		},
		{
			name:      "already registered",
			body:      `{"username":"alice","email":"alice@example.com","password":"Passw0rd!","confirmPassword":"Passw0rd!"}`,
			err:       apperr.BadRequest(apperr.MsgUserAlreadyRegistered),
			status:    http.StatusBadRequest,
			wantError: apperr.MsgUserAlreadyRegistered,
			wantCalls: 1,
		},
		{
			name:      "invalid email",
			body:      `{"username":"alice","email":"nope","password":"Passw0rd!","confirmPassword":"Passw0rd!"}`,
			status:    http.StatusBadRequest,
			wantError: apperr.MsgValidation,
		},
		{
			name:       "username too long for the column",
			body:       `{"username":"` + strings.Repeat("a", 23) + `","email":"alice@example.com","password":"Passw0rd!","confirmPassword":"Passw0rd!"}`,
			status:     http.StatusBadRequest,
			wantError:  apperr.MsgValidation,
			wantDetail: "field username may contain only letters, digits, '-' and '_' (up to 22)",
		},
		{
			name:       "username shaped like an email",
			body:       `{"username":"victim@example.com","email":"mallory@example.com","password":"Passw0rd!","confirmPassword":"Passw0rd!"}`,
			status:     http.StatusBadRequest,
			wantError:  apperr.MsgValidation,
			wantDetail: "field username may contain only letters, digits, '-' and '_' (up to 22)",
		},
		{
			name:       "email too long for the column",
			body:       `{"username":"alice","email":"` + strings.Repeat("a", 90) + `@example.com","password":"Passw0rd!","confirmPassword":"Passw0rd!"}`,
			status:     http.StatusBadRequest,
			wantError:  apperr.MsgValidation,
			wantDetail: "field email is too long",
		},
		{
			name:      "longest username",
			body:      `{"username":"` + strings.Repeat("a", 22) + `","email":"alice@example.com","password":"Passw0rd!","confirmPassword":"Passw0rd!"}`,
			status:    http.StatusCreated,
			wantCalls: 1,
		},
		{
			name:   "malformed body",
			body:   `{"username":`,
			status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeRegisterer{id: id, err: tt.err}
			h := New(log, validation.New(), svc)

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(tt.body)))

			require.Equal(t, tt.status, rec.Code)
			require.Equal(t, tt.wantCalls, svc.calls)

			var got Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))

			if tt.status == http.StatusCreated {
				require.Equal(t, resp.StatusOK, got.Status)
				require.Equal(t, id, got.UserID)
				return
			}
			require.Equal(t, resp.StatusError, got.Status)
			if tt.wantError != "" {
				require.Equal(t, tt.wantError, got.Error)
			}
			if tt.wantDetail != "" {
				require.Contains(t, got.Details, tt.wantDetail)
			}
		})
	}
}
