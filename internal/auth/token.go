package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/game-invites/internal/domain"
)

type contextKey struct{}

var claimsKey contextKey

// Claims carries the authenticated player identity inside a bearer token
type Claims struct {
	PlayerID    int64  `json:"player_id"`
	DisplayName string `json:"display_name"`
	PlayerTag   string `json:"player_tag"`
	jwt.RegisteredClaims
}

// FullName returns the display name with its tag appended
func (c *Claims) FullName() string {
	return c.DisplayName + c.PlayerTag
}

// TokenManager mints and verifies HMAC-signed bearer tokens
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager creates a token manager with the given signing secret and
// token lifetime
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Generate mints a token for the given player identity
func (m *TokenManager) Generate(playerID int64, displayName, playerTag string) (string, error) {
	now := time.Now()
	claims := &Claims{
		PlayerID:    playerID,
		DisplayName: displayName,
		PlayerTag:   playerTag,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token, returning the player claims
func (m *TokenManager) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, domain.ErrUnauthorized
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.PlayerID == 0 {
		return nil, domain.ErrUnauthorized
	}
	return claims, nil
}

// FromRequest extracts a bearer credential from an HTTP request: the
// Authorization header first, then a token query parameter for clients that
// cannot set headers on a websocket handshake.
func FromRequest(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// WithClaims stores claims on a context
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFrom retrieves claims stored on a context by the middleware
func ClaimsFrom(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	return claims, ok
}

// Middleware rejects requests without a valid bearer token and attaches the
// verified claims to the request context
func (m *TokenManager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := FromRequest(r)
		if tokenString == "" {
			http.Error(w, `{"success":false,"error":"access token required"}`, http.StatusUnauthorized)
			return
		}
		claims, err := m.Verify(tokenString)
		if err != nil {
			http.Error(w, `{"success":false,"error":"invalid or expired token"}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}
