package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func protectedEcho() *echo.Echo {
	e := echo.New()
	g := e.Group("/secure")
	g.Use(JWTMiddleware())
	g.GET("", func(c echo.Context) error {
		cl := GetClaims(c)
		return c.JSON(http.StatusOK, echo.Map{"userid": cl.UserID})
	})
	g.GET("/admin", AdminOnly(func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"ok": true})
	}))
	return e
}

func TestJWTRoundTrip(t *testing.T) {
	e := protectedEcho()

	token, err := GenerateToken(42, "user@example.com", "customer", 1)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"userid":42`)
}

func TestJWTMissingHeader(t *testing.T) {
	e := protectedEcho()

	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTGarbageToken(t *testing.T) {
	e := protectedEcho()

	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminOnly(t *testing.T) {
	e := protectedEcho()

	customer, err := GenerateToken(42, "user@example.com", "customer", 1)
	require.NoError(t, err)
	admin, err := GenerateToken(1, "admin@example.com", "admin", 1)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/secure/admin", nil)
	req.Header.Set("Authorization", "Bearer "+customer)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/secure/admin", nil)
	req.Header.Set("Authorization", "Bearer "+admin)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
