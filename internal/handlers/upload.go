// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"
	"strings"

	"codeberg.org/oliverandrich/regdesk/internal/apperror"
	"github.com/labstack/echo/v4"
)

// Upload stores a single file and returns the reference to submit with a
// registration form. The optional "field" value names the document.
func (h *Handlers) Upload(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return apperror.Validation("File is required.")
	}

	field := strings.TrimSpace(c.FormValue("field"))
	if field == "" {
		field = "file"
	}

	f, err := fh.Open()
	if err != nil {
		return apperror.Dependency("Failed to upload file.", err)
	}
	defer f.Close()

	ref, err := h.Store.Save(c.Request().Context(), field, fh.Filename, f, fh.Size, fh.Header.Get(echo.HeaderContentType))
	if err != nil {
		return apperror.Dependency("Failed to upload file.", err)
	}
	return respond(c, http.StatusCreated, "File uploaded.", envelope{"path": ref})
}
