package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/zatekoja/facilityfinder/backend/internal/infrastructure/observability"
	"github.com/zatekoja/facilityfinder/backend/pkg/auth"
	apperrors "github.com/zatekoja/facilityfinder/backend/pkg/errors"
)

const maxTokenRequestBytes = 4 << 10

// TokenIssuer exchanges client credentials for an access token
type TokenIssuer interface {
	Authenticate(clientID, clientSecret string) error
	Issue(clientID string) (*auth.Token, error)
}

// TokenRequest is the body of POST /api/auth/token
type TokenRequest struct {
	ClientID     string `json:"clientId" validate:"required,max=200"`
	ClientSecret string `json:"clientSecret" validate:"required,max=200"`
}

// AuthHandler handles token issuance
type AuthHandler struct {
	issuer TokenIssuer
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(issuer TokenIssuer) *AuthHandler {
	return &AuthHandler{issuer: issuer}
}

// IssueToken handles POST /api/auth/token.
// Credentials are read from the JSON body, or from HTTP Basic auth when the
// body is empty.
func (h *AuthHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if id, secret, ok := r.BasicAuth(); ok {
		req = TokenRequest{ClientID: id, ClientSecret: secret}
	} else {
		decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxTokenRequestBytes))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&req); err != nil {
			respondWithError(w, r, apperrors.NewValidationError("request body must be a JSON object with clientId and clientSecret"))
			return
		}
	}

	if err := getValidator().Struct(req); err != nil {
		respondWithError(w, r, validationError(err))
		return
	}

	if err := h.issuer.Authenticate(req.ClientID, req.ClientSecret); err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			respondWithError(w, r, apperrors.NewInternalError("failed to authenticate client", err))
			return
		}
		observability.LoggerFromContext(r.Context()).Warn().
			Str("client_id", req.ClientID).
			Msg("rejected client credentials")
		respondWithError(w, r, apperrors.NewUnauthorizedError("invalid client credentials"))
		return
	}

	token, err := h.issuer.Issue(req.ClientID)
	if err != nil {
		respondWithError(w, r, apperrors.NewInternalError("failed to issue token", err))
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	respondWithJSON(w, http.StatusOK, token)
}
