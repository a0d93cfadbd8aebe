package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

type SecurityConfig struct {
	ConnectDomains []string
	HSTS           bool
}

// SecurityHeaders sets the response hardening headers for the JSON API and the
// admin feed.
func SecurityHeaders(config SecurityConfig) echo.MiddlewareFunc {
	csp := buildCSP(config)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()

			h.Set("X-Frame-Options", "DENY")
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("Content-Security-Policy", csp)
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if config.HSTS {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}
			h.Del("Server")
			h.Del("X-Powered-By")

			return next(c)
		}
	}
}

func buildCSP(config SecurityConfig) string {
	csp := []string{
		"default-src 'none'",
		"frame-ancestors 'none'",
	}
	if len(config.ConnectDomains) > 0 {
		csp = append(csp, "connect-src 'self' "+strings.Join(config.ConnectDomains, " "))
	}
	return strings.Join(csp, "; ")
}
