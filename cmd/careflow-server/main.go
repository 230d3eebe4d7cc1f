package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/careflow/careflow/internal/config"
	"github.com/careflow/careflow/internal/domain/encounter"
	"github.com/careflow/careflow/internal/domain/imaging"
	"github.com/careflow/careflow/internal/domain/scheduling"
	"github.com/careflow/careflow/internal/platform/auth"
	"github.com/careflow/careflow/internal/platform/db"
	"github.com/careflow/careflow/internal/platform/directory"
	"github.com/careflow/careflow/internal/platform/middleware"
	"github.com/careflow/careflow/internal/platform/notify"
	"github.com/careflow/careflow/internal/platform/pacs"
	"github.com/careflow/careflow/internal/platform/sandbox"
	"github.com/careflow/careflow/migrations"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "careflow-server",
		Short: "Scheduling and clinical order lifecycle API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate()
		},
	}
}

func runMigrate() error {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if !cfg.UsePostgres() {
		logger.Fatal().Msg("migrate requires DATABASE_URL")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	m := db.NewMigrator(pool, migrations.FS)
	applied, err := m.Up(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("migration failed")
	}
	logger.Info().Int("applied", applied).Msg("migrations complete")

	statuses, err := m.Status(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to read migration status")
	}
	for _, st := range statuses {
		logger.Info().
			Int("version", st.Version).
			Str("name", st.Name).
			Bool("applied", st.Applied).
			Msg("migration")
	}
	return nil
}

func seedCmd() *cobra.Command {
	var seed uint64
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Populate the database with demo data",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(seed)
		},
	}
	cmd.Flags().Uint64Var(&seed, "seed", 0, "faker seed (0 picks a random one)")
	return cmd
}

func runSeed(seed uint64) error {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if !cfg.UsePostgres() {
		logger.Fatal().Msg("seed requires DATABASE_URL")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	if _, err := db.NewMigrator(pool, migrations.FS).Up(ctx); err != nil {
		logger.Fatal().Err(err).Msg("migration failed")
	}

	dir := directory.NewInMemory()
	reminders := notify.NewLogSender(logger)
	apptSvc := scheduling.NewService(scheduling.NewPGRepository(pool), dir, reminders, logger)
	encSvc := encounter.NewService(encounter.NewPGRepository(pool), dir, logger)
	orderSvc := imaging.NewService(imaging.NewPGRepository(pool), dir, logger)

	seedCfg := sandbox.DefaultSeedConfig()
	seedCfg.Seed = seed
	seeder := sandbox.NewSeeder(dir, apptSvc, encSvc, orderSvc, logger)
	if err := seeder.Run(ctx, seedCfg); err != nil {
		logger.Fatal().Err(err).Msg("seeding failed")
	}
	logger.Info().Msg("seeding complete")
	return nil
}

func runServer() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	// Repositories: Postgres when DATABASE_URL is set, in-memory
	// otherwise.
	ctx := context.Background()
	var (
		apptRepo  scheduling.Repository
		encRepo   encounter.Repository
		orderRepo imaging.Repository
	)
	if cfg.UsePostgres() {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		logger.Info().Msg("connected to database")
		apptRepo = scheduling.NewPGRepository(pool)
		encRepo = encounter.NewPGRepository(pool)
		orderRepo = imaging.NewPGRepository(pool)
	} else {
		logger.Info().Msg("using in-memory repositories")
		apptRepo = scheduling.NewMemoryRepository()
		encRepo = encounter.NewMemoryRepository()
		orderRepo = imaging.NewMemoryRepository()
	}

	// Collaborators
	dir := directory.NewInMemory()
	reminders := notify.NewLogSender(logger)
	viewer := pacs.NewURLResolver(cfg.PACSBaseURL)

	// Services
	apptSvc := scheduling.NewService(apptRepo, dir, reminders, logger)
	encSvc := encounter.NewService(encRepo, dir, logger)
	orderSvc := imaging.NewService(orderRepo, dir, logger)

	if cfg.SeedDemoData {
		seeder := sandbox.NewSeeder(dir, apptSvc, encSvc, orderSvc, logger)
		if err := seeder.Run(ctx, sandbox.DefaultSeedConfig()); err != nil {
			logger.Fatal().Err(err).Msg("failed to seed demo data")
		}
	}

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Auth middleware
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware([]byte(cfg.JWTSigningKey)))
	}

	// API group
	apiV1 := e.Group("/api/v1")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	// Domain routes
	scheduling.NewHandler(apptSvc).RegisterRoutes(apiV1)
	encounter.NewHandler(encSvc).RegisterRoutes(apiV1)
	imaging.NewHandler(orderSvc, viewer).RegisterRoutes(apiV1)

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})

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
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
