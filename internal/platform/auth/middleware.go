package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// TokenConfig holds the two shared secrets of the API. The write token also
// grants read access.
type TokenConfig struct {
	ReadToken  string
	WriteToken string
	Skipper    func(echo.Context) bool
}

// TokenMiddleware checks the Authorization header against the configured
// tokens. POST and PUT need the write token; every other method accepts
// either token. The header may carry the token bare or as "Bearer <token>".
func TokenMiddleware(cfg TokenConfig) echo.MiddlewareFunc {
	if cfg.Skipper == nil {
		cfg.Skipper = AuthSkipper
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper(c) {
				return next(c)
			}

			token := presentedToken(c.Request())
			if token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization")
			}

			switch c.Request().Method {
			case http.MethodPost, http.MethodPut:
				if !tokenEqual(token, cfg.WriteToken) {
					return echo.NewHTTPError(http.StatusUnauthorized, "write access denied")
				}
			default:
				if !tokenEqual(token, cfg.ReadToken) && !tokenEqual(token, cfg.WriteToken) {
					return echo.NewHTTPError(http.StatusUnauthorized, "read access denied")
				}
			}
			return next(c)
		}
	}
}

func presentedToken(r *http.Request) string {
	h := r.Header.Get(echo.HeaderAuthorization)
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return h[7:]
	}
	return h
}

func tokenEqual(got, want string) bool {
	return want != "" && subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
