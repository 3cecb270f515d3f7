package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
)

// SecretConfig holds the shared secrets accepted by RequireSecret.
type SecretConfig struct {
	// CronSecret is the scheduler's shared secret.
	CronSecret string
	// ServiceKey is the privileged service key, accepted as an alternative.
	ServiceKey string
}

// Enabled reports whether any secret is configured.
func (c SecretConfig) Enabled() bool {
	return c.CronSecret != "" || c.ServiceKey != ""
}

// RequireSecret rejects requests whose bearer token matches neither secret.
// With no secret configured every request passes.
func RequireSecret(cfg SecretConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled() {
				next.ServeHTTP(w, r)
				return
			}

			token := bearerToken(r)
			if token == "" || !(matches(token, cfg.CronSecret) || matches(token, cfg.ServiceKey)) {
				LogEntry(r.Context()).WithFields(logrus.Fields{
					"component": "auth",
					"path":      r.URL.Path,
				}).Warn("Rejected request without a valid secret")

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "Unauthorized"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}

func matches(token, secret string) bool {
	return secret != "" && subtle.ConstantTimeCompare([]byte(token), []byte(secret)) == 1
}
