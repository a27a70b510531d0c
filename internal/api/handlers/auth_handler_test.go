package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/facilityfinder/backend/internal/api/handlers"
	"github.com/zatekoja/facilityfinder/backend/pkg/auth"
	"github.com/zatekoja/facilityfinder/backend/pkg/config"
)

func newTokenService(t *testing.T) *auth.TokenService {
	t.Helper()

	svc, err := auth.NewTokenService(config.AuthConfig{
		Secret:   "test-secret",
		Issuer:   "facility-finder",
		Audience: "facility-finder-api",
		TokenTTL: 15 * time.Minute,
		Clients:  map[string]string{"mobile": "s3cret"},
	})
	require.NoError(t, err)
	return svc
}

func TestAuthHandler_IssueToken(t *testing.T) {
	tokens := newTokenService(t)
	handler := handlers.NewAuthHandler(tokens)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/token",
		strings.NewReader(`{"clientId":"mobile","clientSecret":"s3cret"}`))
	rec := httptest.NewRecorder()
	handler.IssueToken(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var token auth.Token
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &token))
	assert.Equal(t, "Bearer", token.TokenType)
	assert.Equal(t, int64(900), token.ExpiresIn)

	claims, err := tokens.Validate(token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "mobile", claims.ClientID)
}

func TestAuthHandler_IssueToken_BasicAuth(t *testing.T) {
	handler := handlers.NewAuthHandler(newTokenService(t))

	req := httptest.NewRequest(http.MethodPost, "/api/auth/token", nil)
	req.SetBasicAuth("mobile", "s3cret")
	rec := httptest.NewRecorder()
	handler.IssueToken(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthHandler_IssueToken_Rejects(t *testing.T) {
	handler := handlers.NewAuthHandler(newTokenService(t))

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"wrong secret", `{"clientId":"mobile","clientSecret":"nope"}`, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"unknown client", `{"clientId":"web","clientSecret":"s3cret"}`, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"missing secret", `{"clientId":"mobile"}`, http.StatusBadRequest, "VALIDATION"},
		{"not json", `clientId=mobile`, http.StatusBadRequest, "VALIDATION"},
		{"unknown field", `{"clientId":"mobile","clientSecret":"s3cret","admin":true}`, http.StatusBadRequest, "VALIDATION"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/auth/token", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			handler.IssueToken(rec, req)

			assert.Equal(t, tt.status, rec.Code)

			var body handlers.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Code)
		})
	}
}
