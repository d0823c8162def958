package middleware

import (
	"bytes"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/patientstore/internal/platform/cache"
)

// CacheObserver receives read-through outcomes, typically to count them.
type CacheObserver interface {
	CacheHit()
	CacheMiss()
	CacheError(op string)
}

type noopObserver struct{}

func (noopObserver) CacheHit()         {}
func (noopObserver) CacheMiss()        {}
func (noopObserver) CacheError(string) {}

// ReadThroughConfig configures ReadThrough.
type ReadThroughConfig struct {
	Route    string                       // route template to guard; empty guards every wrapped route
	Param    string                       // path parameter holding the key
	ParseKey func(string) (string, error) // validates and canonicalises the key
	Store    cache.Store
	TTL      time.Duration
	Logger   zerolog.Logger
	Observer CacheObserver
}

// ReadThrough returns Echo middleware that serves the configured route from
// the cache and fills the cache from successful downstream responses.
//
// Only GET and HEAD requests are served from the cache; any other method
// passes straight through to the next handler.
//
// A key that fails to parse is rejected with 400 before the cache or the
// handler is touched. A cache that cannot be read fails the request with 500
// and the handler is not called. Only 200 responses are stored; a failed
// store is logged and the response is returned as usual. Entries expire
// after TTL and are never invalidated on write.
func ReadThrough(config ReadThroughConfig) echo.MiddlewareFunc {
	if config.Param == "" {
		config.Param = "id"
	}
	if config.Observer == nil {
		config.Observer = noopObserver{}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if config.Route != "" && c.Path() != config.Route {
				return next(c)
			}
			if m := c.Request().Method; m != http.MethodGet && m != http.MethodHead {
				return next(c)
			}

			key := c.Param(config.Param)
			if config.ParseKey != nil {
				parsed, err := config.ParseKey(key)
				if err != nil {
					return echo.NewHTTPError(http.StatusBadRequest, "invalid id format")
				}
				key = parsed
			}

			ctx := c.Request().Context()
			data, ok, err := config.Store.Get(ctx, key)
			if err != nil {
				config.Observer.CacheError("get")
				config.Logger.Error().Err(err).Str("key", key).Msg("cache lookup failed")
				return echo.NewHTTPError(http.StatusInternalServerError, "cache unavailable")
			}
			if ok {
				config.Observer.CacheHit()
				c.Response().Header().Set("X-Cache", "HIT")
				return c.JSONBlob(http.StatusOK, data)
			}
			config.Observer.CacheMiss()

			// Cache miss: buffer the response.
			res := c.Response()
			origWriter := res.Writer
			buf := newBufferedResponseWriter(origWriter)
			res.Writer = buf

			if err := next(c); err != nil {
				res.Writer = origWriter
				return err
			}

			res.Writer = origWriter

			if buf.statusCode == http.StatusOK {
				if err := config.Store.Set(ctx, key, buf.buf.Bytes(), config.TTL); err != nil {
					config.Observer.CacheError("set")
					config.Logger.Warn().Err(err).Str("key", key).Msg("cache store failed")
				}
				res.Header().Set("X-Cache", "MISS")
			}
			return buf.flushTo()
		}
	}
}

// bufferedResponseWriter captures the response body in a buffer so we can
// inspect it before flushing to the real writer.
type bufferedResponseWriter struct {
	writer     http.ResponseWriter
	buf        *bytes.Buffer
	statusCode int
}

func newBufferedResponseWriter(w http.ResponseWriter) *bufferedResponseWriter {
	return &bufferedResponseWriter{
		writer:     w,
		buf:        &bytes.Buffer{},
		statusCode: http.StatusOK,
	}
}

// Header returns the underlying writer's header map so that headers set by
// handlers are visible to both the middleware and the final flush.
func (w *bufferedResponseWriter) Header() http.Header {
	return w.writer.Header()
}

// Write captures bytes into the buffer instead of sending them immediately.
func (w *bufferedResponseWriter) Write(b []byte) (int, error) {
	return w.buf.Write(b)
}

// WriteHeader captures the status code without writing it to the underlying writer.
func (w *bufferedResponseWriter) WriteHeader(code int) {
	w.statusCode = code
}

// Flush implements http.Flusher (no-op for buffer).
func (w *bufferedResponseWriter) Flush() {}

// flushTo writes the buffered status and body to the underlying writer.
func (w *bufferedResponseWriter) flushTo() error {
	w.writer.WriteHeader(w.statusCode)
	if w.buf.Len() > 0 {
		_, err := w.writer.Write(w.buf.Bytes())
		return err
	}
	return nil
}
