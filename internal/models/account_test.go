// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models_test

import (
	"testing"
	"time"

	"codeberg.org/oliverandrich/regdesk/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestKind_Title(t *testing.T) {
	assert.Equal(t, "Admin", models.KindAdmin.Title())
	assert.Equal(t, "Volunteer", models.KindVolunteer.Title())
	assert.Equal(t, "User", models.KindUser.Title())
}

func TestAccount_RegNumberValue(t *testing.T) {
	a := &models.Account{}
	assert.Empty(t, a.RegNumberValue())

	reg := "T/ASF/FE/000001"
	a.RegNumber = &reg
	assert.Equal(t, reg, a.RegNumberValue())
}

func TestAccount_CanLogin(t *testing.T) {
	tests := []struct {
		name     string
		verified bool
		blocked  bool
		expected bool
	}{
		{"verified", true, false, true},
		{"unverified", false, false, false},
		{"blocked", true, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &models.Account{AccountVerified: tt.verified, IsBlocked: tt.blocked}
			assert.Equal(t, tt.expected, a.CanLogin())
		})
	}
}

func TestAccount_HasPendingCode(t *testing.T) {
	a := &models.Account{}
	assert.False(t, a.HasPendingCode())

	code := int64(12345)
	expire := time.Now().Add(time.Minute)
	a.VerificationCode = &code
	a.VerificationCodeExpire = &expire
	assert.True(t, a.HasPendingCode())
}

func TestIsValidPhone(t *testing.T) {
	tests := []struct {
		phone string
		valid bool
	}{
		{"+919876543210", true},
		{"9876543210", false},
		{"+91987654321", false},
		{"+9198765432100", false},
		{"+449876543210", false},
		{"+91 9876543210", false},
	}

	for _, tt := range tests {
		t.Run(tt.phone, func(t *testing.T) {
			assert.Equal(t, tt.valid, models.IsValidPhone(tt.phone))
		})
	}
}
