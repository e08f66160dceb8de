package logout

import (
	"context"
	"log/slog"
	"net/http"

	resp "accounts_service/internal/lib/api/response"
	"accounts_service/internal/lib/apperr"
	"accounts_service/internal/middleware/authn"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"
)

type SessionCloser interface {
	Logout(ctx context.Context, userID uuid.UUID) error
}

func New(log *slog.Logger, closer SessionCloser) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.logout.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		a, ok := authn.FromContext(r.Context())
		if !ok {
			resp.RenderError(w, r, log, apperr.Unauthorized(apperr.MsgUnauthorized))
			return
		}

		if err := closer.Logout(r.Context(), a.UserID); err != nil {
			resp.RenderError(w, r, log, err)
			return
		}

		log.Info("user logged out", slog.String("user_id", a.UserID.String()))

		render.NoContent(w, r)
	}
}
