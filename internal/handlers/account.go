// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"

	"codeberg.org/oliverandrich/regdesk/internal/apperror"
	"codeberg.org/oliverandrich/regdesk/internal/auth"
	"codeberg.org/oliverandrich/regdesk/internal/models"
	authsvc "codeberg.org/oliverandrich/regdesk/internal/services/auth"
	"github.com/labstack/echo/v4"
)

type loginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" form:"email"`
}

type resetPasswordRequest struct {
	Password        string `json:"password" form:"password"`
	ConfirmPassword string `json:"confirmPassword" form:"confirmPassword"`
}

type registerAdminRequest struct {
	Name     string `json:"name" form:"name"`
	Email    string `json:"email" form:"email"`
	Phone    string `json:"phone" form:"phone"`
	Password string `json:"password" form:"password"`
}

func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return apperror.Validation("Invalid request body.")
	}
	return nil
}

// Login authenticates an account of the given kind and sets the token cookie.
func (h *Handlers) Login(kind models.Kind) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req loginRequest
		if err := bind(c, &req); err != nil {
			return err
		}

		account, token, err := h.Auth.Login(c.Request().Context(), kind, req.Email, req.Password)
		if err != nil {
			return err
		}

		h.setTokenCookie(c, token)
		return respond(c, http.StatusOK, "Login successful.", envelope{
			"token":       token,
			kind.String(): account,
		})
	}
}

// Logout clears the token cookie.
func (h *Handlers) Logout(c echo.Context) error {
	h.clearTokenCookie(c)
	return respond(c, http.StatusOK, "Logged out successfully.", nil)
}

// Me returns the authenticated account with its documents.
func (h *Handlers) Me(c echo.Context) error {
	account := auth.GetAccount(c.Request().Context())
	if account == nil {
		return apperror.Unauthorized("Not authenticated.")
	}

	docs, err := h.Repo.ListDocuments(c.Request().Context(), account.ID)
	if err != nil {
		return err
	}
	account.Documents = docs

	return respond(c, http.StatusOK, "", envelope{account.Kind.String(): account})
}

// ForgotPassword mails a reset link to a verified account of the given kind.
func (h *Handlers) ForgotPassword(kind models.Kind) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req forgotPasswordRequest
		if err := bind(c, &req); err != nil {
			return err
		}

		if err := h.Auth.ForgotPassword(c.Request().Context(), kind, req.Email); err != nil {
			return err
		}
		return respond(c, http.StatusOK, "Reset password link sent to "+req.Email+".", nil)
	}
}

// ResetPassword sets a new password with the token from the reset link and
// logs the account in.
func (h *Handlers) ResetPassword(kind models.Kind) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req resetPasswordRequest
		if err := bind(c, &req); err != nil {
			return err
		}

		account, token, err := h.Auth.ResetPassword(c.Request().Context(), kind,
			c.Param("token"), req.Password, req.ConfirmPassword)
		if err != nil {
			return err
		}

		h.setTokenCookie(c, token)
		return respond(c, http.StatusOK, "Password reset successfully.", envelope{
			"token":       token,
			kind.String(): account,
		})
	}
}

// RegisterAdmin creates an admin while admin registration is open.
func (h *Handlers) RegisterAdmin(c echo.Context) error {
	var req registerAdminRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	account, err := h.Auth.RegisterAdmin(c.Request().Context(), authsvc.RegisterAdminParams{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "Admin registered successfully.", envelope{"admin": account})
}
