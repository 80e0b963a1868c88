package middleware

import (
	"log/slog"
	"net/http"

	errors "github.com/jarvis4everyone/jarvis-backend/internal"
	"github.com/jarvis4everyone/jarvis-backend/internal/auth"
	"github.com/jarvis4everyone/jarvis-backend/internal/transport"
)

// RequireAdmin lets through only authenticated administrators. It must run
// after auth.Handler.AuthMiddleware.
func RequireAdmin(logger *slog.Logger) func(http.Handler) http.Handler {
	base := transport.NewBaseHandler(logger)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := auth.UserFromContext(r.Context())
			if !ok || user == nil {
				base.HandleError(w, errors.ErrAuthRequired)
				return
			}

			if !user.IsAdmin {
				logger.Warn("access denied: admin required",
					"user_id", user.ID,
					"path", r.URL.Path)
				base.HandleError(w, errors.ErrAdminRequired)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
