// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package testutil provides test helpers and fixtures.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"codeberg.org/oliverandrich/regdesk/internal/database"
	"codeberg.org/oliverandrich/regdesk/internal/models"
	"codeberg.org/oliverandrich/regdesk/internal/repository"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"
	"golang.org/x/crypto/bcrypt"
)

// TestPassword is the plaintext password of accounts created by NewTestAccount.
const TestPassword = "correct-horse-battery"

var (
	passwordHashOnce sync.Once
	passwordHash     string
)

// NewTestDB creates an in-memory SQLite database for tests.
// Returns both the database connection and the repository for convenience.
func NewTestDB(t *testing.T) (*sqlx.DB, *repository.Repository) {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	repo := repository.New(db)
	return db, repo
}

// NewTestAccount creates a verified account of the given kind.
func NewTestAccount(t *testing.T, repo *repository.Repository, kind models.Kind, email, phone string) *models.Account {
	t.Helper()
	passwordHashOnce.Do(func() {
		hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
		require.NoError(t, err)
		passwordHash = string(hash)
	})

	account := &models.Account{
		Kind:            kind,
		Name:            "Test " + kind.String(),
		Email:           email,
		Phone:           phone,
		PasswordHash:    passwordHash,
		AccountVerified: true,
	}
	require.NoError(t, repo.CreateAccount(context.Background(), account))
	return account
}

// NewUnverifiedAccount creates an unverified account with a pending code.
func NewUnverifiedAccount(t *testing.T, repo *repository.Repository, kind models.Kind, email, phone string, code int64, expire time.Time) *models.Account {
	t.Helper()
	account := &models.Account{
		Kind:                   kind,
		Name:                   "Pending " + kind.String(),
		Email:                  email,
		Phone:                  phone,
		PasswordHash:           "x",
		VerificationCode:       &code,
		VerificationCodeExpire: &expire,
	}
	require.NoError(t, repo.CreateAccount(context.Background(), account))
	return account
}

// FixedClock returns a clock function frozen at the given instant together
// with a setter to move it.
func FixedClock(at time.Time) (func() time.Time, func(time.Time)) {
	var mu sync.Mutex
	current := at
	return func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			return current
		}, func(t time.Time) {
			mu.Lock()
			defer mu.Unlock()
			current = t
		}
}
