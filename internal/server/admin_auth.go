package server

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// AdminCredentials guard destructive maintenance endpoints. PasswordHash
// is a bcrypt hash; an empty hash locks the endpoints entirely.
type AdminCredentials struct {
	User         string
	PasswordHash string
}

func adminAuthMiddleware(logger *slog.Logger, creds AdminCredentials) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if creds.PasswordHash == "" {
				writeError(w, http.StatusForbidden, "admin access disabled")
				return
			}

			user, pass, ok := r.BasicAuth()
			if !ok {
				w.Header().Set("WWW-Authenticate", `Basic realm="meimei"`)
				writeError(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			userOK := subtle.ConstantTimeCompare([]byte(user), []byte(creds.User)) == 1
			passErr := bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(pass))
			if !userOK || passErr != nil {
				logger.Warn("admin auth failed", "user", user, "remote", r.RemoteAddr)
				w.Header().Set("WWW-Authenticate", `Basic realm="meimei"`)
				writeError(w, http.StatusUnauthorized, "invalid credentials")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
