package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"keuangan/internal/backend"
	"keuangan/internal/cache"
	"keuangan/internal/cli"
	apphttp "keuangan/internal/http"
	"keuangan/internal/log"
	"keuangan/internal/middleware/ratelimit"
	"keuangan/internal/middleware/security"
	"keuangan/internal/session"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err.Error())
		os.Exit(1)
	}
	factory, err := backend.NewFactory(backendCfg, logger)
	if err != nil {
		logger.Error("Failed to create backend factory", log.FieldError, err.Error())
		os.Exit(1)
	}
	defer factory.Close()

	integrations, err := factory.Integrations(ctx)
	if err != nil {
		logger.Error("Failed to initialize integrations", log.FieldError, err.Error())
		os.Exit(1)
	}
	defer func() {
		if err := integrations.Cleanup(); err != nil {
			logger.Warn("Integration cleanup failed", log.FieldError, err.Error())
		}
	}()

	sessions := session.NewManager(factory, session.Options{
		TTL:           cfg.SessionTTL,
		MaxSessions:   cfg.MaxSessions,
		DateLayout:    cfg.DateLayout,
		MaxPhotoBytes: cfg.MaxPhotoBytes,
		Publisher:     integrations.Publisher,
		Logger:        logger,
	})
	defer sessions.Close()

	sweeper := cache.NewManager(logger)
	sweeper.Register(sessions.Cleaner())

	detector, err := security.NewDetector(cfg.TrustedProxies, logger)
	if err != nil {
		logger.Error("Invalid trusted proxies", log.FieldError, err.Error())
		os.Exit(1)
	}
	limiterCfg := ratelimit.DefaultConfig()
	limiterCfg.RequestsPerMinute = cfg.RateLimitPerMin
	limiter := ratelimit.NewLimiter(limiterCfg)
	startsCfg := ratelimit.DefaultConfig()
	startsCfg.RequestsPerMinute = cfg.SessionStartsPerMin
	starts := ratelimit.NewLimiter(startsCfg)

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:           ":" + cfg.Port,
		Sessions:       sessions,
		Exporter:       integrations.Exporter,
		SessionCookie:  cfg.SessionCookie,
		MaxPhotoBytes:  cfg.MaxPhotoBytes,
		Detector:       detector,
		Limiter:        limiter,
		SessionLimiter: starts,
		ReadyCheck:     factory.Ping,
		Logger:         logger,
	})
	if err != nil {
		logger.Error("Failed to build HTTP server", log.FieldError, err.Error())
		os.Exit(1)
	}
	srv.ReadTimeout = 15 * time.Second
	srv.WriteTimeout = 15 * time.Second
	srv.IdleTimeout = 60 * time.Second

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting keuangan server",
			"port", cfg.Port,
			"backend", cfg.LedgerBackend,
			"feed", cfg.FeedEnabled(),
			"sheets", cfg.SheetsEnabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		limiter.Run(gctx)
		return nil
	})
	g.Go(func() error {
		starts.Run(gctx)
		return nil
	})
	g.Go(func() error {
		sweeper.Run(time.Minute)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sweeper.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err.Error())
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err.Error(), "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully", "sessions", sessions.Count())
}
