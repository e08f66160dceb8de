package register

import (
	"context"
	"log/slog"
	"net/http"

	resp "accounts_service/internal/lib/api/response"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type Request struct {
	Username        string `json:"username" validate:"required,username"`
	Email           string `json:"email" validate:"required,email,max=100"`
	Pass            string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

type Response struct {
	resp.Response
	UserID uuid.UUID `json:"id"`
}

type UserRegisterer interface {
	Register(ctx context.Context, username, email, pass, confirmPass string) (uuid.UUID, error)
}

func New(log *slog.Logger, validate *validator.Validate, registerer UserRegisterer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.register.New"

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

		userID, err := registerer.Register(r.Context(), req.Username, req.Email, req.Pass, req.ConfirmPassword)
		if err != nil {
			resp.RenderError(w, r, log, err)
			return
		}

		log.Info("user registered", slog.String("user_id", userID.String()))

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, Response{
			Response: resp.OK(),
			UserID:   userID,
		})
	}
}
