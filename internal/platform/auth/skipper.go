package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths lists route templates that bypass authentication: health
// checks and the metrics scrape endpoint.
var publicPaths = map[string]bool{
	"/health":    true,
	"/health/db": true,
	"/metrics":   true,
}

// AuthSkipper returns true for requests whose path should skip authentication.
func AuthSkipper(c echo.Context) bool {
	return publicPaths[c.Path()]
}
