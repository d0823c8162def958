package middleware

import (
	"github.com/labstack/echo/v4"
)

// apiHeaders are set on every response of the JSON API.
var apiHeaders = map[string]string{
	"X-Content-Type-Options":  "nosniff",
	"X-Frame-Options":         "DENY",
	"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'",
	"Referrer-Policy":         "no-referrer",
	// Patient documents must not land in shared HTTP caches.
	"Cache-Control": "no-store",
}

// SecurityHeaders sets the hardening headers of a JSON API on each response.
// With hsts, clients are also told to use TLS for the next year; leave it off
// for plain-HTTP development servers.
func SecurityHeaders(hsts bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			for k, v := range apiHeaders {
				h.Set(k, v)
			}
			if hsts {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}
			return next(c)
		}
	}
}
