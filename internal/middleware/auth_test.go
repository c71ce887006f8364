package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"cache-countdown-api/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func newProtectedRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(JWTAuthMiddleware())
	r.GET("/protected", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextUsername))
	})
	return r
}

func TestJWTAuthMiddleware_Success(t *testing.T) {
	r := newProtectedRouter()

	token, err := auth.GenerateToken("admin-1", "alice")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "alice", w.Body.String())
}

func TestJWTAuthMiddleware_MissingHeader(t *testing.T) {
	r := newProtectedRouter()

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuthMiddleware_InvalidToken(t *testing.T) {
	r := newProtectedRouter()

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBearerToken(t *testing.T) {
	tok, ok := bearerToken("Bearer abc")
	require.True(t, ok)
	require.Equal(t, "abc", tok)

	_, ok = bearerToken("Basic abc")
	require.False(t, ok)
	_, ok = bearerToken("Bearer")
	require.False(t, ok)
}
