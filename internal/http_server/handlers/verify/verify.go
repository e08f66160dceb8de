package verify

import (
	"context"
	"log/slog"
	"net/http"

	resp "accounts_service/internal/lib/api/response"
	"accounts_service/internal/lib/apperr"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type EmailConfirmer interface {
	ConfirmEmail(ctx context.Context, token string) error
}

// New handles the link sent in the confirmation email.
func New(log *slog.Logger, confirmer EmailConfirmer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.verify.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		token := r.URL.Query().Get("token")
		if token == "" {
			resp.RenderError(w, r, log, apperr.BadRequest(apperr.MsgNoToken))
			return
		}

		if err := confirmer.ConfirmEmail(r.Context(), token); err != nil {
			resp.RenderError(w, r, log, err)
			return
		}

		log.Info("email confirmed")

		render.NoContent(w, r)
	}
}
