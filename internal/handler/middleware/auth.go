package middleware

import (
	"context"
	"net/http"

	log "github.com/sirupsen/logrus"

	"ledger-service/pkg/response"
)

// SessionVerifier validates a session token and resolves the account it
// belongs to. The session service owns issuance, caching and expiry; the
// ledger only asks whether a token is currently valid.
type SessionVerifier interface {
	Verify(ctx context.Context, token string) (accountID string, err error)
}

type contextKey string

// AccountIDKey carries the authenticated account id resolved from the
// session cookie.
const AccountIDKey contextKey = "account_id"

// SessionAuth rejects requests whose session cookie does not validate.
// With a nil verifier the middleware is a pass-through, which is how the
// test profile and offline tooling run.
func SessionAuth(verifier SessionVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifier == nil {
				next.ServeHTTP(w, r)
				return
			}

			cookie, err := r.Cookie("session")
			if err != nil || cookie.Value == "" {
				response.Error(w, http.StatusUnauthorized, "session cookie required")
				return
			}

			accountID, err := verifier.Verify(r.Context(), cookie.Value)
			if err != nil {
				log.WithField("error", err.Error()).Warn("failed to validate session")
				response.Error(w, http.StatusUnauthorized, "failed to validate session")
				return
			}

			ctx := context.WithValue(r.Context(), AccountIDKey, accountID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
