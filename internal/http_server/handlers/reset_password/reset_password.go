package resetPassword

import (
	"context"
	"log/slog"
	"net/http"

	resp "accounts_service/internal/lib/api/response"
	"accounts_service/internal/lib/apperr"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	Pass            string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

type PasswordResetter interface {
	ResetPassword(ctx context.Context, token, pass, confirmPass string) error
}

// New completes a reset. The token arrives in the query string of the
// emailed link.
func New(log *slog.Logger, validate *validator.Validate, resetter PasswordResetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.reset_password.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		token := r.URL.Query().Get("token")
		if token == "" {
			resp.RenderError(w, r, log, apperr.BadRequest(apperr.MsgNoToken))
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

		if err := resetter.ResetPassword(r.Context(), token, req.Pass, req.ConfirmPassword); err != nil {
			resp.RenderError(w, r, log, err)
			return
		}

		log.Info("password reset")

		render.NoContent(w, r)
	}
}
