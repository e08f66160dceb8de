package changePassword

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
	Pass               string `json:"password" validate:"required"`
	NewPassword        string `json:"newPassword" validate:"required"`
	ConfirmNewPassword string `json:"confirmNewPassword" validate:"required"`
}

type PasswordChanger interface {
	ChangePassword(ctx context.Context, userID uuid.UUID, pass, newPass, confirmNewPass string) error
}

func New(log *slog.Logger, validate *validator.Validate, changer PasswordChanger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.change_password.New"

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

		if err := changer.ChangePassword(r.Context(), a.UserID, req.Pass, req.NewPassword, req.ConfirmNewPassword); err != nil {
			resp.RenderError(w, r, log, err)
			return
		}

		log.Info("password changed", slog.String("user_id", a.UserID.String()))

		render.NoContent(w, r)
	}
}
