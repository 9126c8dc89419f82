package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProtectedEcho(apiKey string) *echo.Echo {
	e := echo.New()
	e.GET("/ping", func(c echo.Context) error {
		return c.String(http.StatusOK, "pong")
	}, AuthEcho(apiKey))
	return e
}

func TestAuthEchoAcceptsHeader(t *testing.T) {
	e := newProtectedEcho("sekret")

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-API-Key", "sekret")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthEchoAcceptsQueryParam(t *testing.T) {
	e := newProtectedEcho("sekret")

	req := httptest.NewRequest(http.MethodGet, "/ping?api_key=sekret", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthEchoRejectsBadKey(t *testing.T) {
	e := newProtectedEcho("sekret")

	for _, header := range []string{"", "wrong"} {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		if header != "" {
			req.Header.Set("X-API-Key", header)
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}
}

func TestAuthEchoDisabledWithoutKey(t *testing.T) {
	e := newProtectedEcho("")

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestKeyMatches(t *testing.T) {
	assert.True(t, keyMatches("abc", "abc"))
	assert.False(t, keyMatches("abc", "abd"))
	assert.False(t, keyMatches("abc", ""))
	assert.False(t, keyMatches("abc", "abcabc"))
}
