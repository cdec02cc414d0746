package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"fixwala-backend/internal/auth"
	"fixwala-backend/internal/cache"
	"fixwala-backend/internal/events"
	"fixwala-backend/internal/handlers"
	"fixwala-backend/internal/health"
	h "fixwala-backend/internal/http"
	"fixwala-backend/internal/logger"
	"fixwala-backend/internal/middleware"
	"fixwala-backend/internal/monitoring"
	"fixwala-backend/internal/services"
	"fixwala-backend/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Example: `  # In-memory store on port 5000
  fixwala serve

  # MongoDB store
  MONGODB_URI=mongodb://localhost:27017/fixwala fixwala serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Bool("migrate", true, "apply schema migrations before serving")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.WithComponent("server")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open invoice store: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			log.Warn().Err(err).Msg("Closing invoice store failed")
		}
	}()

	if migrate, _ := cmd.Flags().GetBool("migrate"); migrate {
		if err := store.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient, err = cache.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unavailable, rate limiting in process")
			redisClient = nil
		} else {
			defer redisClient.Close()
			log.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")
		}
	}

	hub := events.NewHub()
	defer hub.Close()

	invoiceService := services.NewInvoiceService(store, hub, cfg.Invoices.RejectArchivedPayments)

	var objectStore services.ObjectStore
	if cfg.StorageEnabled() {
		s3Store, err := storage.NewS3Store(ctx, storage.Options{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.Region,
			Prefix:    cfg.Storage.Prefix,
		})
		if err != nil {
			return err
		}
		objectStore = s3Store
		log.Info().Str("bucket", cfg.Storage.Bucket).Msg("PDF export enabled")
	}
	pdfService := services.NewInvoicePDFService(invoiceService, objectStore)

	watchdog := monitoring.NewWatchdog(store, cfg.Monitoring.Interval, cfg.Monitoring.LatencyThreshold)
	go watchdog.Run(ctx)

	deps := h.RouterDeps{
		Invoices: handlers.NewInvoiceHandler(invoiceService, pdfService),
		Health:   handlers.NewHealthHandler(health.NewHealthChecker(store, cfg.Database.Driver, redisClient), watchdog),
		Events:   hub,
		CORS:     middleware.NewCORS(cfg),
	}
	if cfg.RateLimit.Enabled {
		var limiter cache.Limiter = cache.NewMemoryLimiter()
		if redisClient != nil {
			limiter = cache.NewRedisLimiter(redisClient)
		}
		deps.APILimiter = middleware.NewRateLimiter(limiter, "api", cfg.RateLimit.APIMax, cfg.RateLimit.Window)
		deps.WriteLimiter = middleware.NewRateLimiter(limiter, "write", cfg.RateLimit.WriteMax, cfg.RateLimit.Window, http.MethodPost)
	}
	if cfg.JWT.Secret != "" {
		jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.ExpirationHours)*time.Hour)
		deps.Auth = middleware.NewAuthMiddleware(jwtManager, auth.ScopeInvoicesWrite)
		log.Info().Msg("Write routes require a bearer token")
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      h.NewRouter(deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Int("port", cfg.Server.Port).
			Str("driver", cfg.Database.Driver).
			Str("version", version).
			Msg("Server listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

