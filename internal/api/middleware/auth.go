package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/zatekoja/facilityfinder/backend/internal/infrastructure/observability"
	"github.com/zatekoja/facilityfinder/backend/pkg/auth"
	apperrors "github.com/zatekoja/facilityfinder/backend/pkg/errors"
)

// TokenValidator validates bearer tokens
type TokenValidator interface {
	Validate(tokenString string) (*auth.Claims, error)
}

// Authenticate rejects requests without a valid bearer token and stores the
// token's claims in the request context.
func Authenticate(tokens TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			scheme, token, found := strings.Cut(header, " ")
			if header == "" || !found || !strings.EqualFold(scheme, "Bearer") {
				unauthorized(w, "missing or malformed bearer token")
				return
			}

			claims, err := tokens.Validate(strings.TrimSpace(token))
			if err != nil {
				observability.LoggerFromContext(r.Context()).Debug().Err(err).Msg("token rejected")
				switch {
				case errors.Is(err, auth.ErrExpiredToken):
					unauthorized(w, "token has expired")
				default:
					unauthorized(w, "invalid token")
				}
				return
			}

			if info := RequestInfoFromContext(r.Context()); info != nil {
				info.ClientID = claims.ClientID
			}

			next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
		})
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="facility-finder"`)
	writeError(w, apperrors.NewUnauthorizedError(message))
}
