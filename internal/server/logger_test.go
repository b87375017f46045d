// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"bytes"
	"encoding/json"
	"testing"

	"codeberg.org/oliverandrich/regdesk/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSONRedactsSecrets(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&config.LogConfig{Level: "debug", Format: "json"}, &buf)

	logger.Debug("login_success", "account_id", 7, "token", "eyJhbGciOi")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "login_success", entry["msg"])
	assert.Equal(t, "regdesk", entry["service"])
	assert.InDelta(t, 7, entry["account_id"], 0)
	assert.Equal(t, "[redacted]", entry["token"])
}

func TestNewLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&config.LogConfig{Level: "warn", Format: "json"}, &buf)

	logger.Info("hidden")
	assert.Zero(t, buf.Len())

	logger.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewLogger_UnknownLevelIsInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&config.LogConfig{Level: "verbose"}, &buf)

	logger.Debug("hidden")
	assert.Zero(t, buf.Len())

	logger.Info("shown")
	assert.Contains(t, buf.String(), "shown")
}
