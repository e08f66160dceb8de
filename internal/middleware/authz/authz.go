// Package authz checks the permissions carried by an authenticated request.
package authz

import (
	"log/slog"
	"net/http"

	resp "accounts_service/internal/lib/api/response"
	"accounts_service/internal/lib/apperr"
	"accounts_service/internal/middleware/authn"

	"github.com/go-chi/chi/middleware"
)

// RequirePermission lets the request through only when its access token
// grants perm. It must run after authn.
func RequirePermission(log *slog.Logger, perm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			const op = "middleware.authz"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.String("permission", perm),
			)

			a, ok := authn.FromContext(r.Context())
			if !ok {
				resp.RenderError(w, r, log, apperr.Unauthorized(apperr.MsgUnauthorized))
				return
			}

			if !a.Can(perm) {
				log.Warn("permission denied", slog.String("user_id", a.UserID.String()), slog.String("role", a.Role))
				resp.RenderError(w, r, log, apperr.Forbidden(apperr.MsgForbidden))
				return
			}

			next.ServeHTTP(w, r)
		}

		return http.HandlerFunc(fn)
	}
}
