package deleteUser

import (
	"context"
	"log/slog"
	"net/http"

	resp "accounts_service/internal/lib/api/response"
	"accounts_service/internal/lib/apperr"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"
)

type UserDeleter interface {
	DeleteUser(ctx context.Context, userID uuid.UUID) error
}

// New removes the user named by the {id} path parameter.
func New(log *slog.Logger, deleter UserDeleter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.delete_user.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		userID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			resp.RenderError(w, r, log, apperr.BadRequest(apperr.MsgNonExistentUser))
			return
		}

		if err := deleter.DeleteUser(r.Context(), userID); err != nil {
			resp.RenderError(w, r, log, err)
			return
		}

		log.Info("user deleted", slog.String("user_id", userID.String()))

		render.NoContent(w, r)
	}
}
