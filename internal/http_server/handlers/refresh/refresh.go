package refresh

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

// Request carries the current pair. The access token is optional; while it
// is still valid it is returned unchanged.
type Request struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type Response struct {
	resp.Response
	models.TokenPair
}

type TokenRefresher interface {
	Refresh(ctx context.Context, accessToken, refreshToken string) (models.TokenPair, error)
}

func New(log *slog.Logger, validate *validator.Validate, refresher TokenRefresher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.refresh.New"

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

		tokens, err := refresher.Refresh(r.Context(), req.AccessToken, req.RefreshToken)
		if err != nil {
			resp.RenderError(w, r, log, err)
			return
		}

		log.Info("tokens refreshed", slog.Bool("rotated", tokens.RefreshToken != ""))

		resp.NoCache(w)
		render.JSON(w, r, Response{
			Response:  resp.OK(),
			TokenPair: tokens,
		})
	}
}
