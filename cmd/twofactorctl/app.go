package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"os"

	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/auth"
	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/cache"
	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/clock"
	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/config"
	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/database"
	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/delivery"
	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/metrics"
	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/models"
	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/ops"
	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/repositories"
	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/services"
	pkgauth "github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/pkg/auth"
	pkglogger "github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	_ services.Notifier = (*metrics.Metrics)(nil)
	_ services.Notifier = (*pkglogger.AuditLogger)(nil)
)

type cacheBackend interface {
	cache.Store
	cache.AttemptLog
}

// app is every long-lived component, built once per command
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	db       *database.DB
	cache    cacheBackend
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	checks   map[string]ops.Check

	twoFactor *services.TwoFactorService
	devices   *services.DeviceTrustService
	audit     *services.AuditService

	closers []func()
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (a *app, err error) {
	a = &app{
		cfg:      cfg,
		logger:   logger,
		registry: prometheus.NewRegistry(),
		checks:   map[string]ops.Check{},
	}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.New(a.registry)
	clk := clock.Real{}

	a.db, err = database.NewConnection(&cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.db.Close)
	a.checks["database"] = a.db.HealthCheck
	a.db.RegisterPoolMetrics(a.registry)

	if cfg.Redis.Enabled {
		rc, err := cache.NewRedisCache(cache.RedisConfig{
			Addrs:      cfg.Redis.Addrs,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			UseCluster: cfg.Redis.UseCluster,
			Prefix:     cfg.Redis.Prefix,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = rc.Close() })
		if err := rc.Ping(ctx); err != nil {
			return nil, fmt.Errorf("failed to reach redis: %w", err)
		}
		a.cache = rc
		a.checks["cache"] = rc.Ping
	} else {
		logger.Warn("redis disabled; pending codes and rate limits are local to this process")
		a.cache = cache.NewMemoryCache(clk)
	}

	tf := cfg.TwoFactor

	methods := make([]models.Method, 0, len(tf.EnabledMethods))
	for _, name := range tf.EnabledMethods {
		m, err := models.ParseMethod(name)
		if err != nil {
			return nil, err
		}
		methods = append(methods, m)
	}

	algorithm, err := auth.ParseAlgorithm(tf.TOTPAlgorithm)
	if err != nil {
		return nil, err
	}
	totpManager, err := auth.NewTOTPManager(tf.Issuer, auth.TOTPOptions{
		Period:    uint(tf.TOTPPeriod),
		Digits:    tf.TOTPDigits,
		Algorithm: algorithm,
		Window:    tf.TOTPWindow,
	})
	if err != nil {
		return nil, err
	}

	cipher, err := auth.NewSecretCipher(tf.EncryptionKey, rand.Reader)
	if err != nil {
		return nil, err
	}

	signingKey := []byte(tf.DeviceTrustSigningKey)
	if !tf.DeviceTrustEnabled {
		// Nothing is ever signed; a throwaway key keeps revocation paths working
		signingKey = make([]byte, auth.MinSigningKeyBytes)
		if _, err := rand.Read(signingKey); err != nil {
			return nil, err
		}
	}
	tokens, err := auth.NewTokenManager(signingKey, tf.Issuer, clk)
	if err != nil {
		return nil, err
	}

	providers := map[models.Method]delivery.Provider{}
	if email, err := delivery.NewEmailProvider(ctx, cfg.Delivery, cfg.Server.Env, logger); err != nil {
		return nil, err
	} else if email != nil {
		providers[models.MethodEmail] = email
	}
	if sms, err := delivery.NewSMSProvider(cfg.Delivery, cfg.Server.Env, logger); err != nil {
		return nil, err
	} else if sms != nil {
		providers[models.MethodSMS] = sms
	}

	a.devices = services.NewDeviceTrustService(repositories.NewDeviceSessionRepository(a.db), tokens, rand.Reader, clk, logger)
	a.audit = services.NewAuditService(repositories.NewAuthAttemptRepository(a.db), clk, logger)

	recovery := services.NewRecoveryCodeService(
		repositories.NewRecoveryCodeRepository(a.db),
		pkgauth.NewCodeHasher(tf.RecoveryHashCost),
		rand.Reader,
		clk,
		services.RecoveryCodeConfig{Count: tf.RecoveryCount, Length: tf.RecoveryLength},
		logger,
	)

	var timing *auth.TimingDelay
	if tf.FailureDelay > 0 {
		timing = auth.NewTimingDelay(auth.TimingConfig{BaseDelay: tf.FailureDelay, RandomDelay: tf.FailureJitter})
	}

	a.twoFactor = services.NewTwoFactorService(services.TwoFactorDeps{
		Repo:     repositories.NewTwoFactorRepository(a.db),
		Cipher:   cipher,
		TOTP:     totpManager,
		Recovery: recovery,
		Limiter: services.NewRateLimitService(a.cache, services.RateLimitConfig{
			MaxAttempts: tf.RateLimitMaxAttempts,
			Decay:       tf.RateLimitDecay,
		}, clk, logger),
		Devices:   a.devices,
		Audit:     a.audit,
		Codes:     a.cache,
		Providers: providers,
		Notifier:  services.Notifiers{pkglogger.NewAuditLogger(logger), a.metrics},
		Timing:    timing,
		Random:    rand.Reader,
		Clock:     clk,
		Issuer:    tf.Issuer,
	}, services.TwoFactorConfig{
		EnabledMethods:       methods,
		TOTPSecretSize:       tf.TOTPSecretSize,
		OTPLength:            tf.OTPLength,
		OTPExpiry:            tf.OTPExpiry,
		RecoveryEnabled:      tf.RecoveryEnabled,
		RecoveryCount:        tf.RecoveryCount,
		ConfirmRateLimited:   tf.ConfirmRateLimited,
		DeviceTrustEnabled:   tf.DeviceTrustEnabled,
		DeviceTrustDuration:  tf.DeviceTrustDuration,
		StrictClassification: tf.Classification == "strict",
	}, logger)

	return a, nil
}

// Close releases connections in reverse order of acquisition
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
