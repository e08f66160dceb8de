package login

import (
	"context"
	"log/slog"
	"net/http"

	resp "accounts_service/internal/lib/api/response"
	"accounts_service/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

// Request accepts a username or an email as login.
type Request struct {
	Login string `json:"login" validate:"required"`
	Pass  string `json:"password" validate:"required"`
}

type Response struct {
	resp.Response
	models.TokenPair
}

type Authenticator interface {
	Login(ctx context.Context, login, pass string) (models.TokenPair, error)
}

func New(log *slog.Logger, validate *validator.Validate, authenticator Authenticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.login.New"

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

		tokens, err := authenticator.Login(r.Context(), req.Login, req.Pass)
		if err != nil {
			resp.RenderError(w, r, log, err)
			return
		}

		log.Info("user logged in")

		resp.NoCache(w)
		render.JSON(w, r, Response{
			Response:  resp.OK(),
			TokenPair: tokens,
		})
	}
}
