// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package i18n_test

import (
	"context"
	"testing"

	"codeberg.org/oliverandrich/regdesk/internal/i18n"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestInit(t *testing.T) {
	require.NoError(t, i18n.Init())
	require.NoError(t, i18n.Init())
}

func TestT(t *testing.T) {
	ctx := i18n.WithLocale(context.Background(), language.English)

	assert.Equal(t, "ASF Registration Desk", i18n.T(ctx, "app_name"))
	assert.Equal(t, "en", i18n.GetLocale(ctx))
}

func TestT_Hindi(t *testing.T) {
	ctx := i18n.WithLocale(context.Background(), language.Hindi)

	result := i18n.T(ctx, "otp_subject")
	assert.NotEqual(t, "otp_subject", result)
	assert.NotEqual(t, i18n.T(context.Background(), "otp_subject"), result)
}

func TestT_HindiFallsBackToEnglish(t *testing.T) {
	ctx := i18n.WithLocale(context.Background(), language.Hindi)

	assert.Equal(t, "Registration review", i18n.T(ctx, "approval_page_title"))
}

func TestT_UnknownKey(t *testing.T) {
	ctx := i18n.WithLocale(context.Background(), language.English)

	result := i18n.T(ctx, "unknown_key_that_does_not_exist")
	assert.Equal(t, "unknown_key_that_does_not_exist", result)
}

func TestT_NoLocaleContext(t *testing.T) {
	result := i18n.T(context.Background(), "app_name")
	assert.Equal(t, "ASF Registration Desk", result)
	assert.Equal(t, "en", i18n.GetLocale(context.Background()))
}

func TestTData(t *testing.T) {
	ctx := i18n.WithLocale(context.Background(), language.English)

	result := i18n.TData(ctx, "otp_body", map[string]any{"Code": "123456", "Minutes": 5})
	assert.Contains(t, result, "123456")
	assert.Contains(t, result, "5 minutes")
}

func TestMatchLanguage(t *testing.T) {
	tests := []struct {
		header   string
		expected language.Tag
	}{
		{"hi-IN,hi;q=0.9,en;q=0.8", language.Hindi},
		{"en-US,en;q=0.9", language.English},
		{"fr-FR", language.English},
		{"", language.English},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			assert.Equal(t, tt.expected, i18n.MatchLanguage(tt.header))
		})
	}
}
