// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"codeberg.org/oliverandrich/regdesk/internal/config"
	"codeberg.org/oliverandrich/regdesk/internal/i18n"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestI18nMiddleware(t *testing.T) {
	// Initialize i18n bundle
	require.NoError(t, i18n.Init())

	e := echo.New()
	e.Use(i18nMiddleware())

	var locale string
	e.GET("/", func(c echo.Context) error {
		locale = i18n.GetLocale(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})

	t.Run("English header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Accept-Language", "en-US")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, "en", locale)
	})

	t.Run("Hindi header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Accept-Language", "hi-IN,hi;q=0.9")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, "hi", locale)
	})

	t.Run("Unsupported header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Accept-Language", "de-DE")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, "en", locale)
	})
}

func TestCorsMiddleware(t *testing.T) {
	cfg := &config.Config{Server: config.ServerConfig{FrontendURL: "https://app.example.com"}}

	e := echo.New()
	e.Use(corsMiddleware(cfg))
	e.GET("/", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	t.Run("allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(echo.HeaderOrigin, "https://app.example.com")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, "https://app.example.com", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
		assert.Equal(t, "true", rec.Header().Get(echo.HeaderAccessControlAllowCredentials))
	})

	t.Run("foreign origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(echo.HeaderOrigin, "https://evil.example.com")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	})
}

func TestEnsureSecrets(t *testing.T) {
	t.Run("generates on localhost", func(t *testing.T) {
		cfg := &config.Config{Server: config.ServerConfig{Host: "localhost"}}
		require.NoError(t, ensureSecrets(cfg))

		assert.Len(t, cfg.Auth.AdminSecret, 64)
		assert.Len(t, cfg.Approval.Secret, 64)
		assert.NotEqual(t, cfg.Auth.AdminSecret, cfg.Auth.UserSecret)
	})

	t.Run("keeps configured secrets", func(t *testing.T) {
		cfg := &config.Config{
			Server:   config.ServerConfig{Host: "0.0.0.0"},
			Auth:     config.AuthConfig{AdminSecret: "a", VolunteerSecret: "v", UserSecret: "u"},
			Approval: config.ApprovalConfig{Secret: "ab"},
		}
		require.NoError(t, ensureSecrets(cfg))
		assert.Equal(t, "a", cfg.Auth.AdminSecret)
	})

	t.Run("requires secrets elsewhere", func(t *testing.T) {
		cfg := &config.Config{Server: config.ServerConfig{Host: "0.0.0.0"}}
		err := ensureSecrets(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "admin-secret")
	})
}
