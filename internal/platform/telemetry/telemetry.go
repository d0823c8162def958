// Package telemetry exposes service metrics in Prometheus text format.
package telemetry

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/labstack/echo/v4"
)

// Provider owns one metrics set. Each server builds its own so tests do not
// share counters through the package-level default set.
type Provider struct {
	set            *metrics.Set
	processMetrics bool

	cacheHits   *metrics.Counter
	cacheMisses *metrics.Counter
	idsAssigned *metrics.Counter
}

// NewProvider creates a Provider. With processMetrics set, the exposition
// also carries Go runtime and process metrics.
func NewProvider(processMetrics bool) *Provider {
	set := metrics.NewSet()
	return &Provider{
		set:            set,
		processMetrics: processMetrics,
		cacheHits:      set.NewCounter("patient_cache_hits_total"),
		cacheMisses:    set.NewCounter("patient_cache_misses_total"),
		idsAssigned:    set.NewCounter("patient_ids_assigned_total"),
	}
}

func (p *Provider) CacheHit()  { p.cacheHits.Inc() }
func (p *Provider) CacheMiss() { p.cacheMisses.Inc() }

func (p *Provider) CacheError(op string) {
	p.set.GetOrCreateCounter(fmt.Sprintf(`patient_cache_errors_total{op=%q}`, op)).Inc()
}

// IDsAssigned adds n freshly generated node ids.
func (p *Provider) IDsAssigned(n int) {
	if n > 0 {
		p.idsAssigned.Add(n)
	}
}

// GaugeFunc registers a gauge whose value is read from f at scrape time.
func (p *Provider) GaugeFunc(name string, f func() float64) {
	p.set.GetOrCreateGauge(name, f)
}

// Counter returns the current value of the named counter.
func (p *Provider) Counter(name string) uint64 {
	return p.set.GetOrCreateCounter(name).Get()
}

// unmatchedRoute labels requests that no route handled.
const unmatchedRoute = "unmatched"

// MetricsMiddleware records request counts and latencies per route template.
func (p *Provider) MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			route := c.Path()
			if route == "" || errors.Is(err, echo.ErrNotFound) {
				route = unmatchedRoute
			}
			status := c.Response().Status
			if err != nil {
				status = http.StatusInternalServerError
				var he *echo.HTTPError
				if errors.As(err, &he) {
					status = he.Code
				}
			}

			p.set.GetOrCreateCounter(fmt.Sprintf(`http_requests_total{method=%q,route=%q,status="%s"}`,
				c.Request().Method, route, strconv.Itoa(status))).Inc()
			p.set.GetOrCreateHistogram(fmt.Sprintf(`http_request_duration_seconds{route=%q}`, route)).
				UpdateDuration(start)
			return err
		}
	}
}

// PrometheusHandler serves the metrics set at /metrics.
func (p *Provider) PrometheusHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set(echo.HeaderContentType, "text/plain; version=0.0.4")
		c.Response().WriteHeader(http.StatusOK)
		p.set.WritePrometheus(c.Response())
		if p.processMetrics {
			metrics.WriteProcessMetrics(c.Response())
		}
		return nil
	}
}
