package main

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/patientstore/internal/config"
	"github.com/ehr/patientstore/internal/domain/patient"
	"github.com/ehr/patientstore/internal/platform/auth"
	"github.com/ehr/patientstore/internal/platform/cache"
	"github.com/ehr/patientstore/internal/platform/db"
	"github.com/ehr/patientstore/internal/platform/middleware"
	"github.com/ehr/patientstore/internal/platform/telemetry"
	"github.com/ehr/patientstore/migrations"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "patient-server",
		Short: "Patient document store API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the patient API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			migrate, _ := cmd.Flags().GetBool("migrate")
			return runServer(migrate)
		},
	}
	cmd.Flags().Bool("migrate", false, "Apply bundled migrations before serving (postgres store only)")
	return cmd
}

// migrationsFS returns the bundled migrations, or dir when one is given.
func migrationsFS(dir string) fs.FS {
	if dir == "" {
		return migrations.FS
	}
	return os.DirFS(dir)
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	// migrate up
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			target, _ := cmd.Flags().GetInt("to")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, migrationsFS(dir))
			count, err := migrator.UpTo(ctx, target)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "", "Path to a migrations directory (default: bundled migrations)")
	upCmd.Flags().Int("to", 0, "Stop after this version (0 applies all)")
	cmd.AddCommand(upCmd)

	// migrate status
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, migrationsFS(dir)).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "", "Path to a migrations directory (default: bundled migrations)")
	cmd.AddCommand(statusCmd)

	return cmd
}

// deps are the backends a server is assembled from.
type deps struct {
	repo    patient.Repository
	store   cache.Store
	checks  []db.Check
	metrics *telemetry.Provider
}

func runServer(migrate bool) error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	ctx := context.Background()
	d := deps{metrics: telemetry.NewProvider(true)}

	// Persistence
	switch cfg.Store {
	case config.StorePostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		logger.Info().Msg("connected to database")

		if migrate {
			count, err := db.NewMigrator(pool, migrations.FS).Up(ctx)
			if err != nil {
				logger.Fatal().Err(err).Msg("failed to apply migrations")
			}
			logger.Info().Int("applied", count).Msg("migrations applied")
		}

		d.repo = patient.NewRepoPG(pool)
		d.checks = append(d.checks, db.PoolCheck(pool))
		for name, gauge := range db.PoolGauges(pool) {
			d.metrics.GaugeFunc(name, gauge)
		}
	case config.StoreMemory:
		logger.Warn().Msg("using in-memory patient store; data is lost on exit")
		d.repo = patient.NewRepoMemory()
	}

	// Cache
	switch cfg.CacheBackend {
	case config.CacheRedis:
		d.store, err = cache.NewRedisStore(ctx, cfg.RedisURL)
	case config.CacheMemory:
		d.store, err = cache.NewMemoryStore(cfg.CacheCapacity, cfg.CacheTTL())
	}
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.CacheBackend).Msg("failed to open cache")
	}
	defer d.store.Close()
	d.checks = append(d.checks, db.Check{Name: "cache", Probe: d.store.Ping})
	logger.Info().Str("backend", cfg.CacheBackend).Dur("ttl", cfg.CacheTTL()).Msg("cache ready")

	e := newServer(cfg, logger, d)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newServer wires routes and middleware around already opened backends.
func newServer(cfg *config.Config, logger zerolog.Logger, d deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Recovery(logger))
	e.Use(d.metrics.MetricsMiddleware())
	e.Use(middleware.SecurityHeaders(!cfg.IsDev()))
	e.Use(middleware.BodyLimit(cfg.MaxBodySize))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeoutDuration()))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	}))
	e.Use(auth.TokenMiddleware(auth.TokenConfig{
		ReadToken:  cfg.ReadToken,
		WriteToken: cfg.WriteToken,
	}))
	// Health and metrics
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status": "ok",
		})
	})
	e.GET("/health/db", db.HealthHandler(d.checks...))
	e.GET("/metrics", d.metrics.PrometheusHandler())

	// Patient API
	svc := patient.NewService(d.repo, d.metrics)
	patient.NewHandler(svc).RegisterRoutes(e.Group("/fhir"), middleware.ReadThrough(middleware.ReadThroughConfig{
		Route:    patient.RouteByID,
		Param:    "id",
		ParseKey: patient.ParseID,
		Store:    d.store,
		TTL:      cfg.CacheTTL(),
		Logger:   logger,
		Observer: d.metrics,
	}))

	return e
}
