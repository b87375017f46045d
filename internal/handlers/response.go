// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"codeberg.org/oliverandrich/regdesk/internal/apperror"
	"github.com/labstack/echo/v4"
)

// envelope is the JSON shape shared by every API response.
type envelope map[string]any

// respond writes {"success":true,"message":...} merged with payload.
func respond(c echo.Context, status int, message string, payload envelope) error {
	body := envelope{"success": true}
	if message != "" {
		body["message"] = message
	}
	for k, v := range payload {
		body[k] = v
	}
	return c.JSON(status, body)
}

// HTTPErrorHandler renders errors in the API envelope. Application errors
// keep their status and message; anything else becomes a 500 whose cause is
// only logged.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal Server Error."

	var httpErr *echo.HTTPError
	if appErr, ok := apperror.As(err); ok {
		status = appErr.Status
		message = appErr.Message
		if appErr.Err != nil {
			slog.Error("request_failed", "path", c.Path(), "status", status, "error", appErr.Err)
		}
	} else if errors.As(err, &httpErr) {
		status = httpErr.Code
		if msg, ok := httpErr.Message.(string); ok {
			message = msg
		} else {
			message = http.StatusText(status)
		}
	} else {
		slog.Error("request_failed", "path", c.Path(), "error", err)
	}

	body := envelope{"success": false, "message": message}
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		slog.Error("failed to write error response", "error", err)
	}
}
