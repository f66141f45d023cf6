package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/webmail/internal/logging"
	"github.com/dmitrijs2005/webmail/internal/server/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiddlewareServer() *Server {
	return &Server{logger: logging.NewDiscard(), jwtSecret: []byte("secret")}
}

func runAccessToken(t *testing.T, s *Server, header string) (*httptest.ResponseRecorder, int64, bool) {
	t.Helper()
	var gotID int64
	called := false
	h := s.accessToken(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		gotID = userID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, gotID, called
}

func TestAccessToken_Missing(t *testing.T) {
	rec, _, called := runAccessToken(t, newMiddlewareServer(), "")
	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _, called = runAccessToken(t, newMiddlewareServer(), "Basic abc")
	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAccessToken_Invalid(t *testing.T) {
	rec, _, called := runAccessToken(t, newMiddlewareServer(), "Bearer not-a-valid-jwt")
	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAccessToken_WrongSecret(t *testing.T) {
	token, err := auth.GenerateToken(7, []byte("other"), time.Minute)
	require.NoError(t, err)

	rec, _, called := runAccessToken(t, newMiddlewareServer(), "Bearer "+token)
	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAccessToken_Expired(t *testing.T) {
	token, err := auth.GenerateToken(7, []byte("secret"), -time.Minute)
	require.NoError(t, err)

	rec, _, called := runAccessToken(t, newMiddlewareServer(), "Bearer "+token)
	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "expired")
}

func TestAccessToken_Valid(t *testing.T) {
	token, err := auth.GenerateToken(42, []byte("secret"), time.Minute)
	require.NoError(t, err)

	rec, id, called := runAccessToken(t, newMiddlewareServer(), "Bearer "+token)
	require.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(42), id)
}
