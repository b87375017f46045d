// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"codeberg.org/oliverandrich/regdesk/internal/config"
	"codeberg.org/oliverandrich/regdesk/internal/database"
	"codeberg.org/oliverandrich/regdesk/internal/handlers"
	"codeberg.org/oliverandrich/regdesk/internal/metrics"
	"codeberg.org/oliverandrich/regdesk/internal/repository"
	"codeberg.org/oliverandrich/regdesk/internal/services/approval"
	"codeberg.org/oliverandrich/regdesk/internal/services/auth"
	"codeberg.org/oliverandrich/regdesk/internal/services/email"
	"codeberg.org/oliverandrich/regdesk/internal/services/housekeeping"
	"codeberg.org/oliverandrich/regdesk/internal/services/otp"
	"codeberg.org/oliverandrich/regdesk/internal/services/registration"
	"codeberg.org/oliverandrich/regdesk/internal/services/regnumber"
	"codeberg.org/oliverandrich/regdesk/internal/storage"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// app holds the wired services of one server instance.
type app struct {
	echo    *echo.Echo
	repo    *repository.Repository
	janitor *housekeeping.Janitor
	closers []func() error
}

// Close releases the database and cache connections in reverse order.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// newApp opens the stores, builds the services and registers the routes.
func newApp(ctx context.Context, cfg *config.Config) (a *app, err error) {
	if err := ensureSecrets(cfg); err != nil {
		return nil, err
	}

	a = &app{}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a.closers = append(a.closers, db.Close)
	a.repo = repository.New(db)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	sender, err := newSender(&cfg.SMTP)
	if err != nil {
		return nil, err
	}
	notifier := email.NewNotifier(sender, m, cfg)

	otpStore, err := a.newOTPStore(ctx, &cfg.OTP)
	if err != nil {
		return nil, err
	}
	otpService := otp.NewService(otpStore, notifier, &cfg.OTP, otp.WithMetrics(m))

	store, err := storage.New(ctx, &cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to set up storage: %w", err)
	}

	tokens := auth.NewTokenIssuer(&cfg.Auth)
	authService := auth.NewService(a.repo, cfg, tokens, notifier)

	approvalService, err := approval.NewService(a.repo, cfg, notifier, approval.WithMetrics(m))
	if err != nil {
		return nil, err
	}

	registrationService := registration.NewService(registration.Deps{
		Repo:      a.repo,
		OTP:       otpService,
		Allocator: regnumber.NewAllocator(m),
		Store:     store,
		Notifier:  notifier,
		Approver:  approvalService,
		Tokens:    tokens,
		Metrics:   m,
	}, &cfg.OTP)

	if cfg.Auth.AdminEmail != "" && cfg.Auth.AdminPassword != "" {
		if err := authService.EnsureAdmin(ctx, "Administrator", cfg.Auth.AdminEmail, cfg.Auth.AdminPassword, cfg.Auth.AdminPhone); err != nil {
			return nil, fmt.Errorf("failed to create bootstrap admin: %w", err)
		}
	}

	a.janitor = housekeeping.NewJanitor(a.repo, otpService, &cfg.Housekeeping, housekeeping.WithMetrics(m))

	h := handlers.New(handlers.Deps{
		Config:       cfg,
		Repo:         a.repo,
		Auth:         authService,
		Registration: registrationService,
		Approval:     approvalService,
		Store:        store,
	})

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handlers.HTTPErrorHandler

	setupMiddleware(e, cfg)
	setupRoutes(e, h, tokens, a.repo, reg)
	if local, ok := store.(*storage.LocalStore); ok {
		e.Static(storage.URLPrefix, local.Dir())
	}

	a.echo = e
	return a, nil
}

func newSender(cfg *config.SMTPConfig) (email.Sender, error) {
	if cfg.Host == "" {
		slog.Warn("SMTP host not configured, mails are written to the log")
		return email.LogSender{}, nil
	}
	return email.NewSMTPSender(cfg)
}

func (a *app) newOTPStore(ctx context.Context, cfg *config.OTPConfig) (otp.Store, error) {
	if cfg.RedisURL == "" {
		return otp.NewMemoryStore(), nil
	}

	client, err := otp.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, client.Close)
	return otp.NewRedisStore(client), nil
}

// ensureSecrets fills empty signing secrets with random ones on localhost.
// Generated secrets change on every start, invalidating issued tokens.
func ensureSecrets(cfg *config.Config) error {
	secrets := []struct {
		name  string
		value *string
		size  int
	}{
		{"admin-secret", &cfg.Auth.AdminSecret, 32},
		{"volunteer-secret", &cfg.Auth.VolunteerSecret, 32},
		{"user-secret", &cfg.Auth.UserSecret, 32},
		{"approval-secret", &cfg.Approval.Secret, approval.MinSecretLength},
	}

	for _, s := range secrets {
		if *s.value != "" {
			continue
		}
		if !config.IsLocalhost(cfg.Server.Host) {
			return fmt.Errorf("%s is required", s.name)
		}
		generated, err := auth.GenerateSecret(s.size)
		if err != nil {
			return err
		}
		*s.value = generated
		slog.Warn("generated ephemeral secret, set it explicitly outside development", "flag", s.name)
	}
	return nil
}
