package deleteAccount

import (
	"context"
	"log/slog"
	"net/http"

	resp "accounts_service/internal/lib/api/response"
	"accounts_service/internal/lib/apperr"
	"accounts_service/internal/middleware/authn"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type Request struct {
	Pass string `json:"password" validate:"required"`
}

type AccountDeleter interface {
	DeleteAccount(ctx context.Context, userID uuid.UUID, pass string) error
}

// New deletes the caller's own account after re-checking the password.
func New(log *slog.Logger, validate *validator.Validate, deleter AccountDeleter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.delete_account.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		a, ok := authn.FromContext(r.Context())
		if !ok {
			resp.RenderError(w, r, log, apperr.Unauthorized(apperr.MsgUnauthorized))
			return
		}

		var req Request

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			resp.DecodeError(w, r, log, err)
			return
		}

		if err := validate.Struct(req); err != nil {
			resp.Invalid(w, r, log, err)
			return
		}

		if err := deleter.DeleteAccount(r.Context(), a.UserID, req.Pass); err != nil {
			resp.RenderError(w, r, log, err)
			return
		}

		log.Info("account deleted", slog.String("user_id", a.UserID.String()))

		render.NoContent(w, r)
	}
}
