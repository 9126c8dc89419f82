package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// Auth validates the pre-shared API key on huma operations. The key is read
// from the X-API-Key header, falling back to the api_key query parameter for
// clients that cannot set headers.
func Auth(apiKey string) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if apiKey == "" {
			// Auth disabled; local development only.
			next(ctx)
			return
		}

		provided := ctx.Header("X-API-Key")
		if provided == "" {
			provided = ctx.Query("api_key")
		}
		if !keyMatches(apiKey, provided) {
			log.Debug().Str("path", ctx.URL().Path).Msg("authentication failed")
			writeUnauthorized(ctx, "invalid or missing API key")
			return
		}
		next(ctx)
	}
}

// AuthEcho is the same check for raw echo routes (SSE, downloads) that huma
// does not front.
func AuthEcho(apiKey string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if apiKey == "" {
				return next(c)
			}
			provided := c.Request().Header.Get("X-API-Key")
			if provided == "" {
				provided = c.QueryParam("api_key")
			}
			if !keyMatches(apiKey, provided) {
				return c.JSON(http.StatusUnauthorized, map[string]any{
					"title":  http.StatusText(http.StatusUnauthorized),
					"status": http.StatusUnauthorized,
					"detail": "invalid or missing API key",
				})
			}
			return next(c)
		}
	}
}

func keyMatches(expected, provided string) bool {
	if provided == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) == 1
}

func writeUnauthorized(ctx huma.Context, msg string) {
	ctx.SetStatus(http.StatusUnauthorized)
	ctx.SetHeader("Content-Type", "application/json")
	_ = json.NewEncoder(ctx.BodyWriter()).Encode(huma.ErrorModel{
		Title:  http.StatusText(http.StatusUnauthorized),
		Status: http.StatusUnauthorized,
		Detail: msg,
	})
}
