// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email

import (
	"context"
	"fmt"
	"time"

	"codeberg.org/oliverandrich/regdesk/internal/config"
	"codeberg.org/oliverandrich/regdesk/internal/i18n"
	"codeberg.org/oliverandrich/regdesk/internal/metrics"
	"codeberg.org/oliverandrich/regdesk/internal/models"
)

// Template names, also used as metric labels.
const (
	TemplateOTP              = "otp"
	TemplateVerificationCode = "verification_code"
	TemplateRegNumber        = "regnumber"
	TemplateWelcome          = "welcome"
	TemplateApprovalRequest  = "approval_request"
	TemplateApproved         = "approved"
	TemplatePasswordReset    = "password_reset"
)

// Notifier renders the localized mails of the registration flow and hands
// them to a Sender.
type Notifier struct {
	sender   Sender
	metrics  *metrics.Metrics
	otpTTL   time.Duration
	codeTTL  time.Duration
	resetTTL time.Duration
}

func NewNotifier(sender Sender, m *metrics.Metrics, cfg *config.Config) *Notifier {
	return &Notifier{
		sender:   sender,
		metrics:  m,
		otpTTL:   cfg.OTP.TTL,
		codeTTL:  cfg.OTP.VerificationCodeTTL,
		resetTTL: cfg.Auth.ResetTokenTTL,
	}
}

// SendOTP mails an email verification code.
func (n *Notifier) SendOTP(ctx context.Context, to, code string) error {
	return n.notify(ctx, TemplateOTP, to, map[string]any{
		"Code":    code,
		"Minutes": minutes(n.otpTTL),
	})
}

// SendVerificationCode mails the account verification code of a fresh
// registration.
func (n *Notifier) SendVerificationCode(ctx context.Context, account *models.Account, code string) error {
	return n.notify(ctx, TemplateVerificationCode, account.Email, map[string]any{
		"Name":    account.Name,
		"Code":    code,
		"Minutes": minutes(n.codeTTL),
	})
}

func (n *Notifier) SendRegNumber(ctx context.Context, account *models.Account) error {
	return n.notify(ctx, TemplateRegNumber, account.Email, map[string]any{
		"Name":      account.Name,
		"RegNumber": account.RegNumberValue(),
	})
}

func (n *Notifier) SendWelcome(ctx context.Context, account *models.Account) error {
	return n.notify(ctx, TemplateWelcome, account.Email, map[string]any{
		"Name":      account.Name,
		"RegNumber": account.RegNumberValue(),
	})
}

// SendApprovalRequest asks the approver to decide on account.
func (n *Notifier) SendApprovalRequest(ctx context.Context, to string, account *models.Account, approveURL, rejectURL string, expires time.Time) error {
	return n.notify(ctx, TemplateApprovalRequest, to, map[string]any{
		"Name":       account.Name,
		"Email":      account.Email,
		"Phone":      account.Phone,
		"RegNumber":  account.RegNumberValue(),
		"ApproveURL": approveURL,
		"RejectURL":  rejectURL,
		"Expires":    expires.UTC().Format("2006-01-02 15:04 MST"),
	})
}

func (n *Notifier) SendApproved(ctx context.Context, account *models.Account) error {
	return n.notify(ctx, TemplateApproved, account.Email, map[string]any{
		"Name":      account.Name,
		"RegNumber": account.RegNumberValue(),
	})
}

func (n *Notifier) SendPasswordReset(ctx context.Context, to, resetURL string) error {
	return n.notify(ctx, TemplatePasswordReset, to, map[string]any{
		"ResetURL": resetURL,
		"Minutes":  minutes(n.resetTTL),
	})
}

func (n *Notifier) notify(ctx context.Context, template, to string, data map[string]any) error {
	msg := Message{
		To:      to,
		Subject: i18n.TData(ctx, template+"_subject", data),
		Body:    i18n.TData(ctx, template+"_body", data),
	}
	if err := n.sender.Send(ctx, msg); err != nil {
		n.metrics.NotificationFailed(template)
		return fmt.Errorf("sending %s mail: %w", template, err)
	}
	return nil
}

func minutes(d time.Duration) int {
	return int(d.Round(time.Minute) / time.Minute)
}
