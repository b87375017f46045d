// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth_test

import (
	"context"
	"testing"

	"codeberg.org/oliverandrich/regdesk/internal/auth"
	"codeberg.org/oliverandrich/regdesk/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestGetAccount(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, auth.GetAccount(ctx))
	assert.False(t, auth.IsAuthenticated(ctx))

	account := &models.Account{ID: 7, Kind: models.KindVolunteer}
	ctx = auth.WithAccount(ctx, account)

	assert.Same(t, account, auth.GetAccount(ctx))
	assert.True(t, auth.IsAuthenticated(ctx))
}
