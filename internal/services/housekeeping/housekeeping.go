// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package housekeeping prunes abandoned registrations and stale codes.
package housekeeping

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"codeberg.org/oliverandrich/regdesk/internal/config"
	"codeberg.org/oliverandrich/regdesk/internal/metrics"
	"codeberg.org/oliverandrich/regdesk/internal/repository"
	"codeberg.org/oliverandrich/regdesk/internal/services/otp"
)

// Report summarizes one pruning pass.
type Report struct {
	Accounts       int64
	OTPEntries     int
	ApprovalTokens int64
}

type Janitor struct {
	repo     *repository.Repository
	otp      *otp.Service
	metrics  *metrics.Metrics
	interval time.Duration
	maxAge   time.Duration
	now      func() time.Time
}

// Option configures a Janitor.
type Option func(*Janitor)

func WithClock(now func() time.Time) Option {
	return func(j *Janitor) {
		j.now = now
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(j *Janitor) {
		j.metrics = m
	}
}

func NewJanitor(repo *repository.Repository, otpService *otp.Service, cfg *config.HousekeepingConfig, opts ...Option) *Janitor {
	j := &Janitor{
		repo:     repo,
		otp:      otpService,
		interval: cfg.Interval,
		maxAge:   cfg.MaxAge,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Run prunes once and then on every tick until ctx is done.
func (j *Janitor) Run(ctx context.Context) {
	if j.interval <= 0 {
		slog.Warn("housekeeping_disabled", "interval", j.interval)
		return
	}

	j.logPrune(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			j.logPrune(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (j *Janitor) logPrune(ctx context.Context) {
	report, err := j.Prune(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		slog.Error("housekeeping_failed", "error", err)
	}
	if report.Accounts > 0 || report.OTPEntries > 0 || report.ApprovalTokens > 0 {
		slog.Info("housekeeping_done",
			"accounts", report.Accounts,
			"otp_entries", report.OTPEntries,
			"approval_tokens", report.ApprovalTokens)
	}
}

// Prune runs a single pass. Each step runs even when an earlier one failed;
// the errors are joined.
func (j *Janitor) Prune(ctx context.Context) (Report, error) {
	var (
		report Report
		errs   []error
		err    error
	)
	now := j.now()

	report.Accounts, err = j.repo.DeleteUnverifiedBefore(ctx, now.Add(-j.maxAge))
	if err != nil {
		errs = append(errs, err)
	}
	j.metrics.AccountsPruned(report.Accounts)

	if j.otp != nil {
		report.OTPEntries, err = j.otp.Sweep(ctx)
		if err != nil {
			errs = append(errs, err)
		}
	}

	report.ApprovalTokens, err = j.repo.DeleteExpiredApprovalTokens(ctx, now)
	if err != nil {
		errs = append(errs, err)
	}

	return report, errors.Join(errs...)
}
