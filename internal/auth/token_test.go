package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/game-invites/internal/domain"
)

func TestGenerateAndVerify(t *testing.T) {
	manager := NewTokenManager("test-secret", time.Hour)

	token, err := manager.Generate(7, "Ada", "#0042")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := manager.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.PlayerID)
	assert.Equal(t, "Ada", claims.DisplayName)
	assert.Equal(t, "#0042", claims.PlayerTag)
	assert.Equal(t, "Ada#0042", claims.FullName())
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	manager := NewTokenManager("test-secret", time.Hour)

	_, err := manager.Verify("")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = manager.Verify("not-a-token")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	// Token signed with a different secret.
	other := NewTokenManager("other-secret", time.Hour)
	token, err := other.Generate(7, "Ada", "#0042")
	require.NoError(t, err)
	_, err = manager.Verify(token)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	manager := NewTokenManager("test-secret", -time.Minute)

	token, err := manager.Generate(7, "Ada", "#0042")
	require.NoError(t, err)

	_, err = manager.Verify(token)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestVerifyRejectsMissingPlayerID(t *testing.T) {
	manager := NewTokenManager("test-secret", time.Hour)

	token, err := manager.Generate(0, "Ada", "#0042")
	require.NoError(t, err)

	_, err = manager.Verify(token)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.Empty(t, FromRequest(r))

	r.Header.Set("Authorization", "Bearer abc123")
	assert.Equal(t, "abc123", FromRequest(r))

	// Query fallback for websocket handshakes that cannot set headers.
	r = httptest.NewRequest(http.MethodGet, "/ws?token=qry456", nil)
	assert.Equal(t, "qry456", FromRequest(r))

	// Header wins over the query parameter.
	r.Header.Set("Authorization", "Bearer hdr789")
	assert.Equal(t, "hdr789", FromRequest(r))
}

func TestMiddleware(t *testing.T) {
	manager := NewTokenManager("test-secret", time.Hour)

	var gotClaims *Claims
	handler := manager.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFrom(r.Context())
		require.True(t, ok)
		gotClaims = claims
		w.WriteHeader(http.StatusOK)
	}))

	// No token.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/players", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Garbage token.
	rec = httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/players", nil)
	r.Header.Set("Authorization", "Bearer garbage")
	handler.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Valid token.
	token, err := manager.Generate(7, "Ada", "#0042")
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodGet, "/api/v1/players", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, gotClaims)
	assert.Equal(t, int64(7), gotClaims.PlayerID)
}
