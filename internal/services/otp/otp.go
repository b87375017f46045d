// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package otp issues and verifies one-time codes that prove control of an
// email address.
package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"codeberg.org/oliverandrich/regdesk/internal/config"
	"codeberg.org/oliverandrich/regdesk/internal/metrics"
)

// CodeLength is the number of digits of an emailed OTP.
const CodeLength = 6

// ErrDeliveryFailed is returned by Issue when the code could not be sent.
var ErrDeliveryFailed = errors.New("otp delivery failed")

// Result is the outcome of a verification attempt.
type Result int

const (
	NotFound Result = iota
	Expired
	Mismatch
	Verified
)

func (r Result) String() string {
	switch r {
	case Verified:
		return "verified"
	case Expired:
		return "expired"
	case Mismatch:
		return "mismatch"
	}
	return "not_found"
}

// CodeSender delivers a code to an email address.
type CodeSender interface {
	SendOTP(ctx context.Context, to, code string) error
}

type Service struct {
	store       Store
	sender      CodeSender
	metrics     *metrics.Metrics
	now         func() time.Time
	ttl         time.Duration
	verifiedTTL time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithMetrics records issue and verify outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func NewService(store Store, sender CodeSender, cfg *config.OTPConfig, opts ...Option) *Service {
	s := &Service{
		store:       store,
		sender:      sender,
		now:         time.Now,
		ttl:         cfg.TTL,
		verifiedTTL: cfg.VerifiedTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue generates a code for email, replaces any earlier entry and sends it.
// When sending fails the fresh entry is removed again.
func (s *Service) Issue(ctx context.Context, email string) (string, error) {
	key := normalize(email)

	code, err := GenerateCode(CodeLength)
	if err != nil {
		return "", err
	}

	entry := Entry{Code: code, ExpiresAt: s.now().Add(s.ttl)}
	if err := s.store.Set(ctx, key, entry, s.ttl+s.verifiedTTL); err != nil {
		return "", fmt.Errorf("failed to store otp: %w", err)
	}

	if err := s.sender.SendOTP(ctx, email, code); err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			slog.Error("otp_rollback_failed", "email", key, "error", delErr)
		}
		return "", fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}

	s.metrics.OTPIssued()
	slog.Info("otp_issued", "email", key)
	return code, nil
}

// Verify checks code against the entry for email. A verified entry answers
// Verified again without looking at the code.
func (s *Service) Verify(ctx context.Context, email, code string) (Result, error) {
	result, err := s.verify(ctx, normalize(email), strings.TrimSpace(code))
	if err != nil {
		return NotFound, err
	}
	s.metrics.OTPVerification(result.String())
	return result, nil
}

func (s *Service) verify(ctx context.Context, key, code string) (Result, error) {
	entry, ok, err := s.store.Get(ctx, key)
	if err != nil {
		return NotFound, fmt.Errorf("failed to load otp: %w", err)
	}
	if !ok {
		return NotFound, nil
	}
	if entry.Verified {
		return Verified, nil
	}

	now := s.now()
	if now.After(entry.ExpiresAt) {
		if err := s.store.Delete(ctx, key); err != nil {
			return NotFound, fmt.Errorf("failed to delete otp: %w", err)
		}
		return Expired, nil
	}

	if subtle.ConstantTimeCompare([]byte(entry.Code), []byte(code)) != 1 {
		return Mismatch, nil
	}

	verified := Entry{Verified: true, VerifiedAt: now}
	if err := s.store.Set(ctx, key, verified, s.verifiedTTL); err != nil {
		return NotFound, fmt.Errorf("failed to store otp: %w", err)
	}
	slog.Info("otp_verified", "email", key)
	return Verified, nil
}

// IsVerified reports whether email reached the verified state and has not
// been consumed or aged out.
func (s *Service) IsVerified(ctx context.Context, email string) (bool, error) {
	entry, ok, err := s.store.Get(ctx, normalize(email))
	if err != nil {
		return false, fmt.Errorf("failed to load otp: %w", err)
	}
	if !ok || !entry.Verified {
		return false, nil
	}
	return !s.now().After(entry.VerifiedAt.Add(s.verifiedTTL)), nil
}

// Consume removes the entry once a registration has used it.
func (s *Service) Consume(ctx context.Context, email string) error {
	return s.store.Delete(ctx, normalize(email))
}

// Sweep evicts stale entries.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	return s.store.Sweep(ctx, s.now(), s.verifiedTTL)
}

// GenerateCode returns a random numeric code of the given length whose first
// digit is never zero.
func GenerateCode(digits int) (string, error) {
	if digits < 1 {
		return "", fmt.Errorf("invalid code length %d", digits)
	}

	var b strings.Builder
	b.Grow(digits)

	first, err := rand.Int(rand.Reader, big.NewInt(9))
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	b.WriteByte(byte('1' + first.Int64()))

	for range digits - 1 {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("failed to generate code: %w", err)
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
