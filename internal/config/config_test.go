// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/urfave/cli/v3"
)

func TestIsLocalhost(t *testing.T) {
	tests := []struct {
		host     string
		expected bool
	}{
		{"", true},
		{"localhost", true},
		{"127.0.0.1", true},
		{"::1", true},
		{"app.localhost", true},
		{"example.com", false},
		{"192.168.1.1", false},
		{"localhost.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsLocalhost(tt.host))
		})
	}
}

func TestBuildBaseURL(t *testing.T) {
	tests := []struct {
		name     string
		cfg      *Config
		expected string
	}{
		{
			name:     "default port hidden",
			cfg:      &Config{Server: ServerConfig{Host: "localhost", Port: 80}},
			expected: "http://localhost",
		},
		{
			name:     "custom port",
			cfg:      &Config{Server: ServerConfig{Host: "localhost", Port: 8080}},
			expected: "http://localhost:8080",
		},
		{
			name:     "remote host",
			cfg:      &Config{Server: ServerConfig{Host: "api.example.org", Port: 5000}},
			expected: "http://api.example.org:5000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, buildBaseURL(tt.cfg))
		})
	}
}

func TestAuthConfig(t *testing.T) {
	cfg := &AuthConfig{AdminRegistration: "Open", CookieExpireDays: 7}

	assert.True(t, cfg.IsAdminRegistrationOpen())
	assert.Equal(t, 604800, cfg.CookieMaxAge())

	cfg.AdminRegistration = "closed"
	assert.False(t, cfg.IsAdminRegistrationOpen())
}

func TestFlags(t *testing.T) {
	flags := Flags()

	flagNames := make(map[string]bool)
	for _, f := range flags {
		for _, name := range f.Names() {
			flagNames[name] = true
		}
	}

	for _, name := range []string{
		"host", "port", "base-url", "frontend-url", "log-level", "database-dsn",
		"admin-secret", "volunteer-secret", "user-secret", "jwt-expire",
		"smtp-host", "otp-ttl", "redis-url", "approver-email", "approval-secret",
		"storage-backend", "s3-bucket", "prune-interval",
	} {
		assert.True(t, flagNames[name], "should have %s flag", name)
	}
}

func TestNewFromCLI(t *testing.T) {
	app := &cli.Command{
		Name:  "test",
		Flags: Flags(),
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg := NewFromCLI(cmd)

			assert.Equal(t, "localhost", cfg.Server.Host)
			assert.Equal(t, 8080, cfg.Server.Port)
			assert.Equal(t, "http://localhost:8080", cfg.Server.BaseURL)
			assert.Equal(t, 20, cfg.Server.MaxBodySize)
			assert.Equal(t, 7*24*time.Hour, cfg.Auth.JWTExpire)
			assert.Equal(t, 15*time.Minute, cfg.Auth.ResetTokenTTL)
			assert.Equal(t, 5*time.Minute, cfg.OTP.TTL)
			assert.Equal(t, 10*time.Minute, cfg.OTP.VerificationCodeTTL)
			assert.Equal(t, "local", cfg.Storage.Backend)
			assert.Equal(t, 30*time.Minute, cfg.Housekeeping.Interval)
			assert.False(t, cfg.Auth.IsAdminRegistrationOpen())

			return nil
		},
	}

	err := app.Run(context.Background(), []string{"test"})
	assert.NoError(t, err)
}

func TestNewFromCLI_WithCustomValues(t *testing.T) {
	app := &cli.Command{
		Name:  "test",
		Flags: Flags(),
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg := NewFromCLI(cmd)

			assert.Equal(t, "0.0.0.0", cfg.Server.Host)
			assert.Equal(t, 9000, cfg.Server.Port)
			assert.Equal(t, "https://api.example.com", cfg.Server.BaseURL)
			assert.Equal(t, "https://example.com", cfg.Server.FrontendURL)
			assert.Equal(t, 2*time.Minute, cfg.OTP.TTL)
			assert.Equal(t, "approvals@example.com", cfg.Approval.ApproverEmail)

			return nil
		},
	}

	args := []string{
		"test",
		"--host", "0.0.0.0",
		"--port", "9000",
		"--base-url", "https://api.example.com/",
		"--frontend-url", "https://example.com/",
		"--otp-ttl", "2m",
		"--approver-email", "approvals@example.com",
	}
	err := app.Run(context.Background(), args)
	assert.NoError(t, err)
}
