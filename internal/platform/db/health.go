package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// PoolStats represents database connection pool statistics.
type PoolStats struct {
	TotalConns      int32  `json:"total_conns"`
	IdleConns       int32  `json:"idle_conns"`
	AcquiredConns   int32  `json:"acquired_conns"`
	MaxConns        int32  `json:"max_conns"`
	AcquireCount    int64  `json:"acquire_count"`
	AcquireDuration string `json:"acquire_duration"`
	Healthy         bool   `json:"healthy"`
}

// GetPoolStats returns connection pool statistics.
func GetPoolStats(pool *pgxpool.Pool) *PoolStats {
	stat := pool.Stat()
	return &PoolStats{
		TotalConns:      stat.TotalConns(),
		IdleConns:       stat.IdleConns(),
		AcquiredConns:   stat.AcquiredConns(),
		MaxConns:        stat.MaxConns(),
		AcquireCount:    stat.AcquireCount(),
		AcquireDuration: stat.AcquireDuration().String(),
		Healthy:         stat.TotalConns() > 0,
	}
}

// PoolGauges returns named gauge readers over the pool, suitable for
// registering with a metrics set.
func PoolGauges(pool *pgxpool.Pool) map[string]func() float64 {
	return map[string]func() float64{
		"db_pool_total_conns":    func() float64 { return float64(pool.Stat().TotalConns()) },
		"db_pool_idle_conns":     func() float64 { return float64(pool.Stat().IdleConns()) },
		"db_pool_acquired_conns": func() float64 { return float64(pool.Stat().AcquiredConns()) },
		"db_pool_max_conns":      func() float64 { return float64(pool.Stat().MaxConns()) },
	}
}

// Check probes one dependency.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
	// Details, when set, is reported alongside the probe result.
	Details func() any
}

// PoolCheck probes the database pool and reports its statistics.
func PoolCheck(pool *pgxpool.Pool) Check {
	return Check{
		Name:    "postgres",
		Probe:   pool.Ping,
		Details: func() any { return GetPoolStats(pool) },
	}
}

type checkResult struct {
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Details any    `json:"details,omitempty"`
}

// HealthHandler returns a handler that runs every check and answers 200 when
// all pass, 503 otherwise.
func HealthHandler(checks ...Check) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		status := "healthy"
		code := http.StatusOK
		results := make(map[string]checkResult, len(checks))
		for _, check := range checks {
			res := checkResult{Status: "healthy"}
			if err := check.Probe(ctx); err != nil {
				res.Status = "unhealthy"
				res.Error = err.Error()
				status = "unhealthy"
				code = http.StatusServiceUnavailable
			}
			if check.Details != nil {
				res.Details = check.Details()
			}
			results[check.Name] = res
		}

		return c.JSON(code, map[string]interface{}{
			"status": status,
			"checks": results,
		})
	}
}
