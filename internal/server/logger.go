// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"io"
	"log/slog"
	"strings"
	"time"

	"codeberg.org/oliverandrich/regdesk/internal/config"
	"github.com/lmittmann/tint"
)

// redactedKeys are attribute keys whose values never reach the log.
var redactedKeys = map[string]bool{
	"password": true,
	"token":    true,
	"otp":      true,
	"code":     true,
	"secret":   true,
}

// newLogger builds the process logger: tint for humans, JSON for machines.
// Unknown levels fall back to info.
func newLogger(cfg *config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}

	replace := func(_ []string, a slog.Attr) slog.Attr {
		if redactedKeys[strings.ToLower(a.Key)] {
			return slog.String(a.Key, "[redacted]")
		}
		return a
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level, ReplaceAttr: replace})
	} else {
		handler = tint.NewHandler(w, &tint.Options{Level: level, TimeFormat: time.DateTime, ReplaceAttr: replace})
	}

	return slog.New(handler).With("service", "regdesk")
}
