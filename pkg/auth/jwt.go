package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/zatekoja/facilityfinder/backend/pkg/config"
)

var (
	ErrMissingToken       = errors.New("missing authentication token")
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("token has expired")
	ErrInvalidSignature   = errors.New("invalid token signature")
	ErrInvalidClaims      = errors.New("invalid token claims")
	ErrInvalidCredentials = errors.New("invalid client credentials")
)

// Claims represents the JWT claims issued to API clients
type Claims struct {
	ClientID string `json:"client_id"`
	jwt.RegisteredClaims
}

// Token is the result of a successful client-credentials exchange
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// TokenService issues and validates HS256 tokens for registered clients
type TokenService struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	clients  map[string]string
	now      func() time.Time
}

// NewTokenService creates a token service from configuration
func NewTokenService(cfg config.AuthConfig) (*TokenService, error) {
	if cfg.Secret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if cfg.TokenTTL <= 0 {
		return nil, fmt.Errorf("token TTL must be positive, got %s", cfg.TokenTTL)
	}

	clients := make(map[string]string, len(cfg.Clients))
	for id, secret := range cfg.Clients {
		clients[id] = secret
	}

	return &TokenService{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      cfg.TokenTTL,
		clients:  clients,
		now:      time.Now,
	}, nil
}

// Authenticate checks a client id and secret against the registered clients
func (s *TokenService) Authenticate(clientID, clientSecret string) error {
	expected, ok := s.clients[clientID]
	if !ok {
		// compare anyway so unknown ids cost the same as wrong secrets
		subtle.ConstantTimeCompare([]byte(clientSecret), []byte(clientSecret))
		return ErrInvalidCredentials
	}
	if subtle.ConstantTimeCompare([]byte(clientSecret), []byte(expected)) != 1 {
		return ErrInvalidCredentials
	}
	return nil
}

// Issue signs a new token for clientID
func (s *TokenService) Issue(clientID string) (*Token, error) {
	now := s.now()
	claims := &Claims{
		ClientID: clientID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   clientID,
			Audience:  jwt.ClaimStrings{s.audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &Token{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.ttl.Seconds()),
	}, nil
}

// Validate parses tokenString and returns its claims.
// A leading "Bearer " prefix is accepted.
func (s *TokenService) Validate(tokenString string) (*Claims, error) {
	tokenString = strings.TrimSpace(strings.TrimPrefix(tokenString, "Bearer "))
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(s.issuer))
	}
	if s.audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(s.audience))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, parserOpts...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrInvalidSignature
		case errors.Is(err, jwt.ErrTokenInvalidIssuer), errors.Is(err, jwt.ErrTokenInvalidAudience):
			return nil, fmt.Errorf("%w: %v", ErrInvalidClaims, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	if claims.ClientID == "" {
		return nil, fmt.Errorf("%w: missing client id", ErrInvalidClaims)
	}

	return claims, nil
}

type contextKey string

const claimsContextKey contextKey = "auth_claims"

// WithClaims returns a copy of ctx carrying claims
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

// ClaimsFromContext returns the claims stored by WithClaims
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*Claims)
	return claims, ok && claims != nil
}

// ClientIDFromContext returns the authenticated client id, or "" when the
// request is anonymous.
func ClientIDFromContext(ctx context.Context) string {
	if claims, ok := ClaimsFromContext(ctx); ok {
		return claims.ClientID
	}
	return ""
}
