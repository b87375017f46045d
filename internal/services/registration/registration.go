// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package registration implements the two-phase signup of users and
// volunteers: email or code verification, document submission and the
// allocation of a temporary registration number.
package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"codeberg.org/oliverandrich/regdesk/internal/apperror"
	"codeberg.org/oliverandrich/regdesk/internal/config"
	"codeberg.org/oliverandrich/regdesk/internal/metrics"
	"codeberg.org/oliverandrich/regdesk/internal/models"
	"codeberg.org/oliverandrich/regdesk/internal/repository"
	"codeberg.org/oliverandrich/regdesk/internal/services/auth"
	"codeberg.org/oliverandrich/regdesk/internal/services/otp"
	"codeberg.org/oliverandrich/regdesk/internal/services/regnumber"
	"codeberg.org/oliverandrich/regdesk/internal/storage"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// VerificationCodeLength is the number of digits of a volunteer account code.
const VerificationCodeLength = 5

const (
	msgAllFieldsRequired = "All fields are required."
	msgDocumentsRequired = "All required documents must be uploaded."
	msgAlreadyRegistered = "Email or phone is already registered."
	msgInvalidOTP        = "Invalid OTP."
	msgStoreFailed       = "Failed to store documents."
)

// Notifier sends the mails of the registration flow.
type Notifier interface {
	SendVerificationCode(ctx context.Context, account *models.Account, code string) error
	SendRegNumber(ctx context.Context, account *models.Account) error
	SendWelcome(ctx context.Context, account *models.Account) error
}

// Approver asks a human to approve a fresh registration.
type Approver interface {
	RequestApproval(ctx context.Context, account *models.Account) error
}

// Deps are the collaborators of the Service.
type Deps struct {
	Repo      *repository.Repository
	OTP       *otp.Service
	Allocator *regnumber.Allocator
	Store     storage.Store
	Notifier  Notifier
	Approver  Approver
	Tokens    *auth.TokenIssuer
	Metrics   *metrics.Metrics
}

type Service struct {
	Deps
	validator *auth.PasswordValidator
	codeTTL   time.Duration
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the time source for verification code expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(deps Deps, cfg *config.OTPConfig, opts ...Option) *Service {
	s := &Service{
		Deps:      deps,
		validator: auth.DefaultPasswordValidator(),
		codeTTL:   cfg.VerificationCodeTTL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SendEmailOTP starts a user registration by mailing a code to email.
func (s *Service) SendEmailOTP(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return apperror.Validation("Email is required.")
	}

	_, err := s.Repo.GetVerifiedAccountByEmail(ctx, models.KindUser, email)
	if err == nil {
		return apperror.Conflict("Email is already registered.")
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to check existing user: %w", err)
	}

	if _, err := s.OTP.Issue(ctx, email); err != nil {
		if errors.Is(err, otp.ErrDeliveryFailed) {
			return apperror.Dependency("Failed to send OTP.", err)
		}
		return err
	}
	return nil
}

// VerifyEmailOTP checks the code mailed by SendEmailOTP.
func (s *Service) VerifyEmailOTP(ctx context.Context, email, code string) error {
	email = normalizeEmail(email)
	if email == "" || strings.TrimSpace(code) == "" {
		return apperror.Validation("Email and OTP are required.")
	}

	result, err := s.OTP.Verify(ctx, email, code)
	if err != nil {
		return err
	}
	switch result {
	case otp.NotFound:
		return apperror.Auth(http.StatusBadRequest, "OTP not found or expired.")
	case otp.Expired:
		return apperror.Auth(http.StatusBadRequest, "OTP Expired.")
	case otp.Mismatch:
		return apperror.Auth(http.StatusBadRequest, msgInvalidOTP)
	}
	return nil
}

// RegisterUser creates a verified user with a temporary candidate number
// once the email went through SendEmailOTP and VerifyEmailOTP. The approval
// request and the welcome mail are best effort.
func (s *Service) RegisterUser(ctx context.Context, sub *Submission) (*models.Account, error) {
	p := UserProfile
	account, err := s.validate(ctx, p, sub)
	if err != nil {
		return nil, err
	}

	verified, err := s.OTP.IsVerified(ctx, account.Email)
	if err != nil {
		return nil, err
	}
	if !verified {
		return nil, apperror.Auth(http.StatusBadRequest, "Email not verified. Please verify your email first.")
	}

	exists, err := s.Repo.VerifiedAccountExists(ctx, p.Kind, account.Email, account.Phone)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if exists {
		return nil, apperror.Conflict(msgAlreadyRegistered)
	}

	docs, err := s.storeDocuments(ctx, p, sub)
	if err != nil {
		return nil, err
	}

	account.AccountVerified = true
	err = s.Repo.InTx(ctx, func(tx *repository.Repository) error {
		reg, err := s.Allocator.Allocate(ctx, tx, p.Scope, true)
		if err != nil {
			return err
		}
		account.RegNumber = &reg
		if err := tx.CreateAccount(ctx, account); err != nil {
			return err
		}
		return saveDocuments(ctx, tx, account, docs)
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperror.Conflict(msgAlreadyRegistered)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := s.OTP.Consume(ctx, account.Email); err != nil {
		slog.Error("otp_consume_failed", "email", account.Email, "error", err)
	}
	s.Metrics.Registration(p.Kind.String())
	slog.Info("register_success", "kind", p.Kind, "account_id", account.ID, "reg_number", account.RegNumberValue())

	tasks := map[string]func(context.Context) error{
		"welcome": func(ctx context.Context) error { return s.Notifier.SendWelcome(ctx, account) },
	}
	if p.RequiresApproval {
		tasks["approval_request"] = func(ctx context.Context) error { return s.Approver.RequestApproval(ctx, account) }
	}
	notifyAll(ctx, account, tasks)

	return account, nil
}

// RegisterVolunteer stores an unverified volunteer and mails the account
// verification code. The row stays when the mail fails and is pruned later.
func (s *Service) RegisterVolunteer(ctx context.Context, sub *Submission) (*models.Account, error) {
	p := VolunteerProfile
	if v := sub.Get("verificationMethod"); v != "" && v != "email" {
		return nil, apperror.Validation("Invalid verification method. Only email is supported.")
	}

	account, err := s.validate(ctx, p, sub)
	if err != nil {
		return nil, err
	}

	exists, err := s.Repo.VerifiedAccountExists(ctx, p.Kind, account.Email, account.Phone)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing volunteer: %w", err)
	}
	if exists {
		return nil, apperror.Conflict(msgAlreadyRegistered)
	}

	attempts, err := s.Repo.ListUnverifiedByEmailOrPhone(ctx, p.Kind, account.Email, account.Phone)
	if err != nil {
		return nil, fmt.Errorf("failed to count attempts: %w", err)
	}
	if len(attempts) > p.MaxUnverifiedAttempts {
		return nil, apperror.Conflict(fmt.Sprintf(
			"You have exceeded the maximum number of attempts (%d). Please try again after an hour.",
			p.MaxUnverifiedAttempts))
	}

	docs, err := s.storeDocuments(ctx, p, sub)
	if err != nil {
		return nil, err
	}

	code, err := otp.GenerateCode(VerificationCodeLength)
	if err != nil {
		return nil, err
	}
	numeric, err := strconv.ParseInt(code, 10, 64)
	if err != nil {
		return nil, err
	}
	expire := s.now().Add(s.codeTTL)
	account.VerificationCode = &numeric
	account.VerificationCodeExpire = &expire

	err = s.Repo.InTx(ctx, func(tx *repository.Repository) error {
		if err := tx.CreateAccount(ctx, account); err != nil {
			return err
		}
		return saveDocuments(ctx, tx, account, docs)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create volunteer: %w", err)
	}

	if err := s.Notifier.SendVerificationCode(context.WithoutCancel(ctx), account, code); err != nil {
		slog.Error("verification_code_failed", "account_id", account.ID, "error", err)
		return nil, apperror.Dependency("Verification code failed to send.", err)
	}

	slog.Info("registration_pending", "kind", p.Kind, "account_id", account.ID)
	return account, nil
}

// VerifyAccount completes a pending registration. The newest unverified row
// matching email or phone wins and all older ones are removed, even when the
// code turns out to be wrong. On success the account is verified, receives a
// temporary registration number unless it has one and a session token is
// issued.
func (s *Service) VerifyAccount(ctx context.Context, kind models.Kind, email, phone, code string) (*models.Account, string, error) {
	p, ok := ProfileFor(kind)
	if !ok {
		return nil, "", apperror.Validation("Unsupported account type.")
	}

	email = normalizeEmail(email)
	phone = strings.TrimSpace(phone)
	code = strings.TrimSpace(code)
	if email == "" || phone == "" || code == "" {
		return nil, "", apperror.Validation(msgAllFieldsRequired)
	}
	if !models.IsValidPhone(phone) {
		return nil, "", apperror.Validation("Invalid phone number.")
	}
	supplied, err := strconv.ParseInt(code, 10, 64)
	if err != nil {
		return nil, "", apperror.Auth(http.StatusBadRequest, msgInvalidOTP)
	}

	var (
		account   *models.Account
		verifyErr error
	)
	err = s.Repo.InTx(ctx, func(tx *repository.Repository) error {
		pending, err := tx.ListUnverifiedByEmailOrPhone(ctx, p.Kind, email, phone)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			verifyErr = apperror.NotFound("No pending verification found.")
			return nil
		}

		newest := pending[0]
		for _, stale := range pending[1:] {
			if err := tx.DeleteAccount(ctx, stale.ID); err != nil {
				return err
			}
		}
		if len(pending) > 1 {
			slog.Info("pending_duplicates_removed", "kind", p.Kind, "kept", newest.ID, "removed", len(pending)-1)
		}

		if !newest.HasPendingCode() || *newest.VerificationCode != supplied {
			verifyErr = apperror.Auth(http.StatusBadRequest, msgInvalidOTP)
			return nil
		}
		if s.now().After(*newest.VerificationCodeExpire) {
			verifyErr = apperror.Auth(http.StatusBadRequest, "OTP has expired.")
			return nil
		}

		var reg string
		if newest.RegNumber == nil {
			reg, err = s.Allocator.Allocate(ctx, tx, p.Scope, true)
			if err != nil {
				return err
			}
		}
		if err := tx.MarkVerified(ctx, newest.ID, reg); err != nil {
			return err
		}

		account, err = tx.GetAccountByID(ctx, newest.ID)
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, "", apperror.Conflict(msgAlreadyRegistered)
		}
		return nil, "", fmt.Errorf("failed to verify account: %w", err)
	}
	if verifyErr != nil {
		return nil, "", verifyErr
	}

	s.Metrics.Registration(p.Kind.String())
	slog.Info("account_verified", "kind", p.Kind, "account_id", account.ID, "reg_number", account.RegNumberValue())

	if err := s.Notifier.SendRegNumber(context.WithoutCancel(ctx), account); err != nil {
		slog.Error("regnumber_mail_failed", "account_id", account.ID, "error", err)
	}

	token, err := s.Tokens.Issue(account)
	if err != nil {
		return nil, "", err
	}
	return account, token, nil
}

// validate checks fields, phone, email, password and documents of a
// submission and returns the account it describes.
func (s *Service) validate(ctx context.Context, p Profile, sub *Submission) (*models.Account, error) {
	sub.normalize(p.DocumentAliases)

	missing := lo.Filter(p.RequiredFields, func(name string, _ int) bool {
		return sub.Get(name) == ""
	})
	if len(missing) > 0 {
		slog.Debug("registration_incomplete", "kind", p.Kind, "missing", missing)
		return nil, apperror.Validation(msgAllFieldsRequired)
	}

	account := &models.Account{
		Kind:                     p.Kind,
		Name:                     sub.Get("name"),
		Email:                    normalizeEmail(sub.Get("email")),
		Phone:                    sub.Get("phone"),
		Guardian:                 sub.Get("guardian"),
		Address:                  sub.Get("address"),
		CurrentAddress:           sub.Get("currentAddress"),
		DOB:                      sub.Get("dob"),
		Gender:                   sub.Get("gender"),
		BankAccNumber:            sub.Get("bankAccNumber"),
		BankName:                 sub.Get("bankName"),
		IFSC:                     sub.Get("ifsc"),
		VolunteerName:            sub.Get("volunteerName"),
		PWDCategory:              sub.Get("pwdCategory"),
		EntrepreneurshipInterest: sub.Get("entrepreneurshipInterest"),
	}

	if !models.IsValidPhone(account.Phone) {
		return nil, apperror.Validation("Invalid phone number.")
	}
	if _, err := mail.ParseAddress(account.Email); err != nil {
		return nil, apperror.Validation("Invalid email format.")
	}

	password := sub.Fields["password"]
	if result := s.validator.Validate(password, account.Email, account.Name); !result.Valid {
		return nil, apperror.Validation(result.Message())
	}

	var storeErr error
	present := func(name string) bool {
		if _, ok := sub.Files[name]; ok {
			return true
		}
		ref := sub.Get(name)
		if ref == "" || storeErr != nil {
			return false
		}
		ok, err := s.Store.Exists(ctx, ref)
		if err != nil {
			storeErr = err
		}
		return ok
	}
	missingDocs := !lo.EveryBy(p.RequiredDocuments, present)
	if storeErr != nil {
		return nil, apperror.Dependency(msgStoreFailed, storeErr)
	}
	if missingDocs {
		return nil, apperror.Validation(msgDocumentsRequired)
	}
	for _, c := range p.ConditionalDocuments {
		if sub.Get(c.Field) != c.When {
			continue
		}
		ok := present(c.Name)
		if storeErr != nil {
			return nil, apperror.Dependency(msgStoreFailed, storeErr)
		}
		if !ok {
			return nil, apperror.Validation(c.Message)
		}
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	account.PasswordHash = hash
	return account, nil
}

// storeDocuments saves uploaded files and returns document name to reference.
func (s *Service) storeDocuments(ctx context.Context, p Profile, sub *Submission) (map[string]string, error) {
	docs := make(map[string]string)
	for _, name := range p.documents(sub) {
		file, ok := sub.Files[name]
		if !ok {
			docs[name] = sub.Get(name)
			continue
		}

		ref, err := s.saveFile(ctx, name, file)
		if err != nil {
			return nil, apperror.Dependency(msgStoreFailed, err)
		}
		docs[name] = ref
	}
	return docs, nil
}

func (s *Service) saveFile(ctx context.Context, name string, file File) (string, error) {
	r, err := file.Open()
	if err != nil {
		return "", err
	}
	defer r.Close()
	return s.Store.Save(ctx, name, file.Filename, r, file.Size, file.ContentType)
}

func saveDocuments(ctx context.Context, tx *repository.Repository, account *models.Account, docs map[string]string) error {
	for _, name := range lo.Keys(docs) {
		if err := tx.SaveDocument(ctx, account.ID, name, docs[name]); err != nil {
			return err
		}
	}
	var err error
	account.Documents, err = tx.ListDocuments(ctx, account.ID)
	return err
}

// notifyAll runs the best-effort mails of a registration in parallel. Failures
// are logged and never reach the caller.
func notifyAll(ctx context.Context, account *models.Account, tasks map[string]func(context.Context) error) {
	ctx = context.WithoutCancel(ctx)
	var g errgroup.Group
	for name, task := range tasks {
		g.Go(func() error {
			if err := task(ctx); err != nil {
				slog.Error("registration_notification_failed",
					"notification", name, "account_id", account.ID, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
