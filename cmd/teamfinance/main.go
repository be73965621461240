package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	_ "go.uber.org/automaxprocs"

	"teamfinance/internal/auth"
	"teamfinance/internal/cli"
	apphttp "teamfinance/internal/http"
	"teamfinance/internal/log"
	"teamfinance/internal/services"
)

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentApp)

	res := cli.InitBackend(context.Background(), logger, cfg, false)

	var opts []services.Option
	if res.Publisher != nil {
		opts = append(opts, services.WithPublisher(res.Publisher))
	}

	authn := auth.New(auth.Config{
		Header:   cfg.IdentityHeader,
		Secret:   cfg.JWTSecret,
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
	}, logger)

	srv := apphttp.NewServer(apphttp.Config{
		Addr:               cfg.Addr(),
		ReadTimeout:        cfg.HTTPReadTimeout,
		WriteTimeout:       cfg.HTTPWriteTimeout,
		AllowedOrigins:     cfg.CORSAllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		RecentLimit:        cfg.RecentLimit,
		Development:        cfg.IsDevelopment(),
	}, res.Store, authn, logger, opts...)

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	logger.Info("Starting teamfinance server",
		"addr", cfg.Addr(),
		"store", cfg.DataBackend,
		"events", cfg.EventsBackend,
		"bearer_tokens", authn.UsesTokens())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "addr", cfg.Addr())
		_ = res.Cleanup()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
