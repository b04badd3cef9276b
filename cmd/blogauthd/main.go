// Command blogauthd serves the blogauth HTTP API.
//
// Configuration is read from the environment; see internal/config for the
// recognised variables.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrEthical07/blogauth"
	"github.com/MrEthical07/blogauth/internal/config"
	"github.com/MrEthical07/blogauth/internal/httpapi"
	promexport "github.com/MrEthical07/blogauth/metrics/export/prometheus"
	"github.com/MrEthical07/blogauth/notify"
	"github.com/MrEthical07/blogauth/userstore"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})).
		With("service", "blogauthd")
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	repo, closeRepo, err := openRepository(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeRepo()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer func() { _ = rdb.Close() }()

	notifier, err := newNotifier(cfg, log)
	if err != nil {
		return err
	}

	builder := blogauth.New().
		WithConfig(cfg.AuthConfig()).
		WithRedis(rdb).
		WithIdentityRepository(repo).
		WithNotifier(notifier).
		WithLogger(log)
	if cfg.AuditEnabled {
		builder = builder.WithAuditSink(blogauth.NewSlogSink(log))
	}
	engine, err := builder.Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := engine.Ping(pingCtx); err != nil {
		log.Warn("redis not reachable at startup", "addr", cfg.RedisAddr, "error", err)
	}
	cancel()

	reg := prometheus.NewRegistry()
	opts := httpapi.Options{
		Logger:       log,
		CookieSecure: cfg.CookieSecure,
		RefreshTTL:   cfg.RefreshTokenTTL,
	}
	if cfg.MetricsEnabled {
		if err := reg.Register(promexport.NewCollector(engine)); err != nil {
			return err
		}
		opts.Registerer = reg
		opts.Metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	router, err := httpapi.New(engine, opts)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errorCh := make(chan error, 1)
	go func() {
		log.Info("blogauthd starting", "addr", cfg.Addr)
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		log.Info("blogauthd stopped")
		return nil
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func openRepository(ctx context.Context, cfg *config.Config, log *slog.Logger) (blogauth.IdentityRepository, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, using in-memory user store")
		return userstore.NewMemory(), func() {}, nil
	}

	db, err := userstore.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() { _ = db.Close() }

	if err := userstore.Migrate(ctx, db); err != nil {
		closeDB()
		return nil, nil, err
	}
	return userstore.NewPostgres(db), closeDB, nil
}

func newNotifier(cfg *config.Config, log *slog.Logger) (blogauth.Notifier, error) {
	if cfg.SMTPHost == "" {
		log.Warn("SMTP_HOST not set, OTPs and reset links are logged")
		return notify.NewLogNotifier(log, cfg.ResetURL), nil
	}
	n, err := notify.NewSMTPNotifier(smtpConfig(cfg))
	if err != nil {
		return nil, err
	}
	return n, nil
}

// smtpConfig maps daemon settings to the mailer. Each mail states the TTL of
// the secret it carries.
func smtpConfig(cfg *config.Config) notify.SMTPConfig {
	return notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		ResetURL: cfg.ResetURL,

		OTPExpiry:   cfg.OTPTTL,
		ResetExpiry: cfg.ResetTokenTTL,
	}
}
