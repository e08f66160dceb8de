// Package authn guards routes behind a bearer access token.
package authn

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	resp "accounts_service/internal/lib/api/response"
	"accounts_service/internal/lib/apperr"
	"accounts_service/internal/models"

	"github.com/go-chi/chi/middleware"
)

type TokenParser interface {
	ParseAccessToken(token string) (models.Authorization, error)
}

type ctxKey struct{}

// New verifies the Authorization header and stores the token's
// authorization snapshot in the request context.
func New(log *slog.Logger, parser TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			const op = "middleware.authn"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			token := bearer(r.Header.Get("Authorization"))
			if token == "" {
				resp.RenderError(w, r, log, apperr.BadRequest(apperr.MsgNoToken))
				return
			}

			authz, err := parser.ParseAccessToken(token)
			if err != nil {
				resp.RenderError(w, r, log, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAuthorization(r.Context(), authz)))
		}

		return http.HandlerFunc(fn)
	}
}

func bearer(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func WithAuthorization(ctx context.Context, authz models.Authorization) context.Context {
	return context.WithValue(ctx, ctxKey{}, authz)
}

func FromContext(ctx context.Context) (models.Authorization, bool) {
	authz, ok := ctx.Value(ctxKey{}).(models.Authorization)
	return authz, ok
}
