// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package approval issues signed, single-use approve and reject links for
// candidate registrations and applies the decision taken through them.
package approval

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"codeberg.org/oliverandrich/regdesk/internal/apperror"
	"codeberg.org/oliverandrich/regdesk/internal/config"
	"codeberg.org/oliverandrich/regdesk/internal/metrics"
	"codeberg.org/oliverandrich/regdesk/internal/models"
	"codeberg.org/oliverandrich/regdesk/internal/repository"
	"codeberg.org/oliverandrich/regdesk/internal/services/regnumber"
	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
)

// MinSecretLength is the minimum decoded length of the signing secret.
const MinSecretLength = 32

// ApprovePath is where approval links point to, relative to the base URL.
const ApprovePath = "/api/v1/user/approve"

const codecName = "approval"

const msgInvalidLink = "Approval link is invalid or has expired."

// Notifier delivers approval related mails.
type Notifier interface {
	SendApprovalRequest(ctx context.Context, to string, account *models.Account, approveURL, rejectURL string, expires time.Time) error
	SendApproved(ctx context.Context, account *models.Account) error
}

// payload is the signed part of a link. Approve and reject links of one
// request share the token ID, so whichever is used first decides.
type payload struct {
	TokenID   string `json:"t"`
	AccountID int64  `json:"a"`
	Approved  bool   `json:"ok"`
}

// Links are the two URLs mailed to the approver.
type Links struct {
	ApproveURL string
	RejectURL  string
	ExpiresAt  time.Time
}

// Outcome describes the result of Decide.
type Outcome struct {
	Decision       models.Decision
	Account        *models.Account
	AlreadyDecided bool
}

type Service struct {
	repo          *repository.Repository
	codec         *securecookie.SecureCookie
	notifier      Notifier
	metrics       *metrics.Metrics
	baseURL       string
	approverEmail string
	ttl           time.Duration
	now           func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the time source for token expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithMetrics records decisions.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService creates the approval service. cfg.Approval.Secret must be hex
// encoded and at least MinSecretLength bytes long.
func NewService(repo *repository.Repository, cfg *config.Config, notifier Notifier, opts ...Option) (*Service, error) {
	key, err := hex.DecodeString(cfg.Approval.Secret)
	if err != nil {
		return nil, fmt.Errorf("approval secret must be hex encoded: %w", err)
	}
	if len(key) < MinSecretLength {
		return nil, fmt.Errorf("approval secret must be at least %d bytes", MinSecretLength)
	}

	codec := securecookie.New(key, nil)
	codec.SetSerializer(securecookie.JSONEncoder{})
	codec.MaxAge(int(cfg.Approval.TTL / time.Second))

	s := &Service{
		repo:          repo,
		codec:         codec,
		notifier:      notifier,
		baseURL:       cfg.Server.BaseURL,
		approverEmail: cfg.Approval.ApproverEmail,
		ttl:           cfg.Approval.TTL,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue stores a fresh approval token for account and returns the signed links.
func (s *Service) Issue(ctx context.Context, account *models.Account) (*Links, error) {
	id := uuid.NewString()
	expires := s.now().Add(s.ttl)
	if err := s.repo.CreateApprovalToken(ctx, id, account.ID, expires); err != nil {
		return nil, fmt.Errorf("failed to store approval token: %w", err)
	}

	approve, err := s.link(payload{TokenID: id, AccountID: account.ID, Approved: true})
	if err != nil {
		return nil, err
	}
	reject, err := s.link(payload{TokenID: id, AccountID: account.ID, Approved: false})
	if err != nil {
		return nil, err
	}
	return &Links{ApproveURL: approve, RejectURL: reject, ExpiresAt: expires}, nil
}

// RequestApproval issues links for account and mails them to the approver.
// Without a configured approver nothing is sent.
func (s *Service) RequestApproval(ctx context.Context, account *models.Account) error {
	if s.approverEmail == "" {
		slog.Warn("approval_request_skipped", "account_id", account.ID, "reason", "no_approver_email")
		return nil
	}

	links, err := s.Issue(ctx, account)
	if err != nil {
		return err
	}
	return s.notifier.SendApprovalRequest(ctx, s.approverEmail, account, links.ApproveURL, links.RejectURL, links.ExpiresAt)
}

// Inspect reports what following a signed link would do without recording
// anything. An already used link reports the recorded decision.
func (s *Service) Inspect(ctx context.Context, signed string) (*Outcome, error) {
	p, err := s.decode(signed)
	if err != nil {
		return nil, err
	}
	outcome, _, err := s.lookup(ctx, s.repo, p)
	return outcome, err
}

// Decide applies the decision carried by a signed link. Repeating a decision
// on the same request changes nothing and reports AlreadyDecided.
func (s *Service) Decide(ctx context.Context, signed string) (*Outcome, error) {
	p, err := s.decode(signed)
	if err != nil {
		return nil, err
	}

	var outcome *Outcome
	err = s.repo.InTx(ctx, func(tx *repository.Repository) error {
		var token *models.ApprovalToken
		var err error
		outcome, token, err = s.lookup(ctx, tx, p)
		if err != nil || outcome.AlreadyDecided {
			return err
		}

		used, err := tx.UseApprovalToken(ctx, token.ID, outcome.Decision)
		if err != nil {
			return err
		}
		if !used {
			outcome.AlreadyDecided = true
			return nil
		}

		account := outcome.Account
		if outcome.Decision == models.DecisionApproved && account.RegNumber != nil && regnumber.IsTemporary(*account.RegNumber) {
			permanent := regnumber.Permanent(*account.RegNumber)
			if err := tx.SetRegNumber(ctx, account.ID, permanent); err != nil {
				return fmt.Errorf("failed to set registration number: %w", err)
			}
			account.RegNumber = &permanent
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if outcome.AlreadyDecided {
		slog.Info("approval_repeated", "account_id", p.AccountID, "decision", outcome.Decision)
		return outcome, nil
	}

	s.metrics.Approval(string(outcome.Decision))
	slog.Info("approval_decided", "account_id", p.AccountID, "decision", outcome.Decision,
		"reg_number", outcome.Account.RegNumberValue())

	if outcome.Decision == models.DecisionApproved {
		if err := s.notifier.SendApproved(context.WithoutCancel(ctx), outcome.Account); err != nil {
			slog.Error("approval_mail_failed", "account_id", p.AccountID, "error", err)
		}
	}
	return outcome, nil
}

func (s *Service) decode(signed string) (payload, error) {
	var p payload
	if signed == "" {
		return p, apperror.Validation("Token is missing.")
	}
	if err := s.codec.Decode(codecName, signed, &p); err != nil {
		slog.Warn("approval_rejected", "reason", "bad_signature", "error", err)
		return p, apperror.Auth(http.StatusBadRequest, msgInvalidLink)
	}
	return p, nil
}

// lookup loads the token and account a link refers to. An unused token must
// not have expired.
func (s *Service) lookup(ctx context.Context, r *repository.Repository, p payload) (*Outcome, *models.ApprovalToken, error) {
	outcome := &Outcome{Decision: models.DecisionRejected}
	if p.Approved {
		outcome.Decision = models.DecisionApproved
	}

	token, err := r.GetApprovalToken(ctx, p.TokenID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, apperror.Auth(http.StatusBadRequest, msgInvalidLink)
		}
		return nil, nil, err
	}
	if token.AccountID != p.AccountID {
		return nil, nil, apperror.Auth(http.StatusBadRequest, msgInvalidLink)
	}

	account, err := r.GetAccountByID(ctx, token.AccountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, apperror.NotFound("User not found.")
		}
		return nil, nil, err
	}
	outcome.Account = account

	if token.IsUsed() {
		outcome.AlreadyDecided = true
		if token.Decision != nil {
			outcome.Decision = *token.Decision
		}
		return outcome, token, nil
	}
	if !token.ExpiresAt.After(s.now()) {
		return nil, nil, apperror.Auth(http.StatusBadRequest, msgInvalidLink)
	}
	return outcome, token, nil
}

func (s *Service) link(p payload) (string, error) {
	encoded, err := s.codec.Encode(codecName, p)
	if err != nil {
		return "", fmt.Errorf("failed to sign approval token: %w", err)
	}
	return s.baseURL + ApprovePath + "?token=" + url.QueryEscape(encoded), nil
}
