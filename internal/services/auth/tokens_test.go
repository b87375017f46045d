// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth_test

import (
	"testing"
	"time"

	"codeberg.org/oliverandrich/regdesk/internal/config"
	"codeberg.org/oliverandrich/regdesk/internal/models"
	"codeberg.org/oliverandrich/regdesk/internal/services/auth"
	"codeberg.org/oliverandrich/regdesk/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAuthConfig() *config.AuthConfig {
	return &config.AuthConfig{
		AdminSecret:     "admin-secret",
		VolunteerSecret: "volunteer-secret",
		UserSecret:      "user-secret",
		JWTExpire:       time.Hour,
		ResetTokenTTL:   15 * time.Minute,
	}
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := auth.NewTokenIssuer(testAuthConfig())

	token, err := issuer.Issue(&models.Account{ID: 42, Kind: models.KindVolunteer})
	require.NoError(t, err)

	id, err := issuer.Parse(models.KindVolunteer, token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestTokenIssuer_KindSecretsAreSeparate(t *testing.T) {
	issuer := auth.NewTokenIssuer(testAuthConfig())

	token, err := issuer.Issue(&models.Account{ID: 1, Kind: models.KindUser})
	require.NoError(t, err)

	_, err = issuer.Parse(models.KindAdmin, token)
	assert.ErrorIs(t, err, auth.ErrTokenInvalid)
}

func TestTokenIssuer_Expired(t *testing.T) {
	clock, set := testutil.FixedClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	issuer := auth.NewTokenIssuer(testAuthConfig(), auth.WithIssuerClock(clock))

	token, err := issuer.Issue(&models.Account{ID: 1, Kind: models.KindAdmin})
	require.NoError(t, err)

	set(time.Date(2025, 1, 1, 2, 0, 0, 0, time.UTC))
	_, err = issuer.Parse(models.KindAdmin, token)
	assert.ErrorIs(t, err, auth.ErrTokenExpired)
}

func TestTokenIssuer_Garbage(t *testing.T) {
	issuer := auth.NewTokenIssuer(testAuthConfig())

	_, err := issuer.Parse(models.KindUser, "not-a-token")
	assert.ErrorIs(t, err, auth.ErrTokenInvalid)
}

func TestTokenIssuer_MissingSecret(t *testing.T) {
	cfg := testAuthConfig()
	cfg.UserSecret = ""
	issuer := auth.NewTokenIssuer(cfg)

	_, err := issuer.Issue(&models.Account{ID: 1, Kind: models.KindUser})
	assert.Error(t, err)
}

func TestGenerateToken(t *testing.T) {
	a, err := auth.GenerateToken()
	require.NoError(t, err)
	b, err := auth.GenerateToken()
	require.NoError(t, err)

	assert.Len(t, a, auth.ResetTokenLength*2)
	assert.NotEqual(t, a, b)
	assert.Len(t, auth.HashToken(a), 64)
	assert.Equal(t, auth.HashToken(a), auth.HashToken(a))
}

func TestGenerateSecret(t *testing.T) {
	s, err := auth.GenerateSecret(32)
	require.NoError(t, err)
	assert.Len(t, s, 64)
}
