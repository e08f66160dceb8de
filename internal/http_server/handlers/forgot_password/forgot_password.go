package forgotPassword

import (
	"context"
	"log/slog"
	"net/http"

	resp "accounts_service/internal/lib/api/response"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	Login string `json:"login" validate:"required"`
}

type ResetRequester interface {
	RequestPasswordReset(ctx context.Context, login string) error
}

func New(log *slog.Logger, validate *validator.Validate, requester ResetRequester) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.forgot_password.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			resp.DecodeError(w, r, log, err)
			return
		}

		if err := validate.Struct(req); err != nil {
			resp.Invalid(w, r, log, err)
			return
		}

		if err := requester.RequestPasswordReset(r.Context(), req.Login); err != nil {
			resp.RenderError(w, r, log, err)
			return
		}

		log.Info("password reset email sent")

		render.NoContent(w, r)
	}
}
