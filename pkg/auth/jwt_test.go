package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/facilityfinder/backend/pkg/config"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		Secret:   "test-secret",
		Issuer:   "facility-finder",
		Audience: "facility-finder-api",
		TokenTTL: time.Hour,
		Clients:  map[string]string{"mobile": "s3cret"},
	}
}

func TestNewTokenService_RequiresSecret(t *testing.T) {
	cfg := testAuthConfig()
	cfg.Secret = ""

	_, err := NewTokenService(cfg)

	assert.Error(t, err)
}

func TestTokenService_Authenticate(t *testing.T) {
	svc, err := NewTokenService(testAuthConfig())
	require.NoError(t, err)

	assert.NoError(t, svc.Authenticate("mobile", "s3cret"))
	assert.ErrorIs(t, svc.Authenticate("mobile", "wrong"), ErrInvalidCredentials)
	assert.ErrorIs(t, svc.Authenticate("unknown", "s3cret"), ErrInvalidCredentials)
}

func TestTokenService_IssueAndValidate(t *testing.T) {
	svc, err := NewTokenService(testAuthConfig())
	require.NoError(t, err)

	token, err := svc.Issue("mobile")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", token.TokenType)
	assert.Equal(t, int64(3600), token.ExpiresIn)

	claims, err := svc.Validate("Bearer " + token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "mobile", claims.ClientID)
	assert.Equal(t, "mobile", claims.Subject)
}

func TestTokenService_ValidateRejects(t *testing.T) {
	svc, err := NewTokenService(testAuthConfig())
	require.NoError(t, err)

	t.Run("missing", func(t *testing.T) {
		_, err := svc.Validate("  ")
		assert.ErrorIs(t, err, ErrMissingToken)
	})

	t.Run("expired", func(t *testing.T) {
		token, err := svc.Issue("mobile")
		require.NoError(t, err)

		svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		defer func() { svc.now = time.Now }()

		_, err = svc.Validate(token.AccessToken)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("wrong signature", func(t *testing.T) {
		cfg := testAuthConfig()
		cfg.Secret = "other-secret"
		other, err := NewTokenService(cfg)
		require.NoError(t, err)
		token, err := other.Issue("mobile")
		require.NoError(t, err)

		_, err = svc.Validate(token.AccessToken)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("wrong audience", func(t *testing.T) {
		cfg := testAuthConfig()
		cfg.Audience = "someone-else"
		other, err := NewTokenService(cfg)
		require.NoError(t, err)
		token, err := other.Issue("mobile")
		require.NoError(t, err)

		_, err = svc.Validate(token.AccessToken)
		assert.ErrorIs(t, err, ErrInvalidClaims)
	})

	t.Run("unexpected algorithm", func(t *testing.T) {
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{ClientID: "mobile"}).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = svc.Validate(unsigned)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestClaimsContext(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "", ClientIDFromContext(ctx))

	ctx = WithClaims(ctx, &Claims{ClientID: "mobile"})
	assert.Equal(t, "mobile", ClientIDFromContext(ctx))
}
