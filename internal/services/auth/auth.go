// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"codeberg.org/oliverandrich/regdesk/internal/apperror"
	"codeberg.org/oliverandrich/regdesk/internal/config"
	"codeberg.org/oliverandrich/regdesk/internal/models"
	"codeberg.org/oliverandrich/regdesk/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

const msgInvalidCredentials = "Invalid email or password."

// dummyHash is used for constant-time login to prevent timing attacks
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), bcrypt.DefaultCost)

// ResetNotifier delivers password reset links.
type ResetNotifier interface {
	SendPasswordReset(ctx context.Context, to, resetURL string) error
}

type Service struct {
	repo              *repository.Repository
	config            *config.AuthConfig
	tokens            *TokenIssuer
	notifier          ResetNotifier
	frontendURL       string
	passwordValidator *PasswordValidator
	now               func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the time source used for reset token expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(repo *repository.Repository, cfg *config.Config, tokens *TokenIssuer, notifier ResetNotifier, opts ...Option) *Service {
	s := &Service{
		repo:              repo,
		config:            &cfg.Auth,
		tokens:            tokens,
		notifier:          notifier,
		frontendURL:       cfg.Server.FrontendURL,
		passwordValidator: DefaultPasswordValidator(),
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tokens returns the issuer used for session tokens.
func (s *Service) Tokens() *TokenIssuer {
	return s.tokens
}

// HashPassword hashes a plaintext password with bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Login authenticates a verified account of the given kind and returns it
// together with a session token.
func (s *Service) Login(ctx context.Context, kind models.Kind, email, password string) (*models.Account, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, "", apperror.Validation("Email and password are required.")
	}

	account, err := s.repo.GetVerifiedAccountByEmail(ctx, kind, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Constant-time: always perform bcrypt comparison to prevent timing attacks
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			slog.Warn("login_failed", "kind", kind, "email", email, "reason", "account_not_found")
			return nil, "", apperror.Auth(http.StatusBadRequest, msgInvalidCredentials)
		}
		return nil, "", fmt.Errorf("failed to get account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		slog.Warn("login_failed", "kind", kind, "email", email, "reason", "invalid_password")
		return nil, "", apperror.Auth(http.StatusBadRequest, msgInvalidCredentials)
	}

	if !account.CanLogin() {
		slog.Warn("login_failed", "kind", kind, "email", email, "reason", "blocked")
		return nil, "", apperror.Unauthorized("Account is blocked.")
	}

	token, err := s.tokens.Issue(account)
	if err != nil {
		return nil, "", err
	}

	slog.Info("login_success", "kind", kind, "account_id", account.ID)
	return account, token, nil
}

// ForgotPassword stores a reset token for the verified account with email and
// mails the reset link. When the mail cannot be sent the token is removed again.
func (s *Service) ForgotPassword(ctx context.Context, kind models.Kind, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return apperror.Validation("Email is required.")
	}

	account, err := s.repo.GetVerifiedAccountByEmail(ctx, kind, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.NotFound(kind.Title() + " not found.")
		}
		return fmt.Errorf("failed to get account: %w", err)
	}

	token, err := GenerateToken()
	if err != nil {
		return err
	}
	expire := s.now().Add(s.config.ResetTokenTTL)
	if err := s.repo.SetResetToken(ctx, account.ID, HashToken(token), expire); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	resetURL := fmt.Sprintf("%s/password/reset/%s", s.frontendURL, token)
	if err := s.notifier.SendPasswordReset(ctx, account.Email, resetURL); err != nil {
		if clearErr := s.repo.SetResetToken(ctx, account.ID, "", time.Time{}); clearErr != nil {
			slog.Error("reset_token_rollback_failed", "account_id", account.ID, "error", clearErr)
		}
		return apperror.Dependency("Cannot send reset password token.", err)
	}

	slog.Info("password_reset_requested", "kind", kind, "account_id", account.ID)
	return nil
}

// ResetPassword sets a new password using a reset token and returns the
// account with a fresh session token.
func (s *Service) ResetPassword(ctx context.Context, kind models.Kind, token, password, confirm string) (*models.Account, string, error) {
	if token == "" {
		return nil, "", apperror.Validation("Token is missing.")
	}

	account, err := s.repo.GetAccountByResetToken(ctx, kind, HashToken(token))
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, "", fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil || account.ResetPasswordExpire == nil || !account.ResetPasswordExpire.After(s.now()) {
		return nil, "", apperror.Auth(http.StatusBadRequest, "Reset password token is invalid or has expired.")
	}

	if password == "" || confirm == "" {
		return nil, "", apperror.Validation("Password and confirm password are required.")
	}
	if password != confirm {
		return nil, "", apperror.Validation("Passwords do not match.")
	}
	if result := s.passwordValidator.Validate(password, account.Email, account.Name); !result.Valid {
		return nil, "", apperror.Validation(result.Message())
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, "", err
	}
	if err := s.repo.UpdatePassword(ctx, account.ID, hash); err != nil {
		return nil, "", fmt.Errorf("failed to update password: %w", err)
	}
	account.PasswordHash = hash
	account.ResetPasswordToken = nil
	account.ResetPasswordExpire = nil

	session, err := s.tokens.Issue(account)
	if err != nil {
		return nil, "", err
	}

	slog.Info("password_reset", "kind", kind, "account_id", account.ID)
	return account, session, nil
}

// RegisterAdminParams holds the fields of an admin signup.
type RegisterAdminParams struct {
	Name     string
	Email    string
	Phone    string
	Password string
}

// RegisterAdmin creates a verified admin while admin registration is open.
func (s *Service) RegisterAdmin(ctx context.Context, params RegisterAdminParams) (*models.Account, error) {
	if !s.config.IsAdminRegistrationOpen() {
		return nil, apperror.Auth(http.StatusForbidden, "Admin registration is closed.")
	}
	return s.createAdmin(ctx, params)
}

func (s *Service) createAdmin(ctx context.Context, params RegisterAdminParams) (*models.Account, error) {
	params.Email = strings.ToLower(strings.TrimSpace(params.Email))
	params.Phone = strings.TrimSpace(params.Phone)
	if params.Name == "" || params.Email == "" || params.Phone == "" || params.Password == "" {
		return nil, apperror.Validation("All fields are required.")
	}
	if _, err := mail.ParseAddress(params.Email); err != nil {
		return nil, apperror.Validation("Invalid email format.")
	}
	if !models.IsValidPhone(params.Phone) {
		return nil, apperror.Validation("Invalid phone number.")
	}
	if result := s.passwordValidator.Validate(params.Password, params.Email, params.Name); !result.Valid {
		return nil, apperror.Validation(result.Message())
	}

	exists, err := s.repo.VerifiedAccountExists(ctx, models.KindAdmin, params.Email, params.Phone)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing admin: %w", err)
	}
	if exists {
		return nil, apperror.Conflict("Phone or Email is already used.")
	}

	hash, err := HashPassword(params.Password)
	if err != nil {
		return nil, err
	}

	account := &models.Account{
		Kind:            models.KindAdmin,
		Name:            params.Name,
		Email:           params.Email,
		Phone:           params.Phone,
		PasswordHash:    hash,
		AccountVerified: true,
	}
	if err := s.repo.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperror.Conflict("Phone or Email is already used.")
		}
		return nil, fmt.Errorf("failed to create admin: %w", err)
	}

	slog.Info("register_success", "kind", models.KindAdmin, "account_id", account.ID, "email", account.Email)
	return account, nil
}

// EnsureAdmin ensures at least one admin exists, creating one if needed
func (s *Service) EnsureAdmin(ctx context.Context, name, email, password, phone string) error {
	count, err := s.repo.CountAdmins(ctx)
	if err != nil {
		return fmt.Errorf("failed to count admins: %w", err)
	}

	if count > 0 {
		return nil // Admin already exists
	}

	if _, err := s.createAdmin(ctx, RegisterAdminParams{
		Name:     name,
		Email:    email,
		Phone:    phone,
		Password: password,
	}); err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}
	return nil
}
