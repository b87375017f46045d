// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package middleware holds the echo middleware that guards authenticated routes.
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"codeberg.org/oliverandrich/regdesk/internal/apperror"
	"codeberg.org/oliverandrich/regdesk/internal/auth"
	"codeberg.org/oliverandrich/regdesk/internal/models"
	"codeberg.org/oliverandrich/regdesk/internal/repository"
	"github.com/labstack/echo/v4"
)

// TokenCookie is the cookie carrying the session JWT.
const TokenCookie = "token"

// TokenParser verifies a JWT of the given kind and returns the account ID.
type TokenParser interface {
	Parse(kind models.Kind, token string) (int64, error)
}

// AccountLoader loads the account a token refers to.
type AccountLoader interface {
	GetAccountByID(ctx context.Context, id int64) (*models.Account, error)
}

// missingTokenStatus keeps the historical status codes of the client apps.
var missingTokenStatus = map[models.Kind]int{
	models.KindAdmin:     http.StatusUnauthorized,
	models.KindVolunteer: http.StatusBadRequest,
	models.KindUser:      http.StatusUnauthorized,
}

// RequireAccount admits requests that carry a valid token for an account of
// the given kind and stores the account in the request context.
func RequireAccount(kind models.Kind, tokens TokenParser, accounts AccountLoader) echo.MiddlewareFunc {
	notAuthenticated := kind.Title() + " is not authenticated."

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := TokenFromRequest(c)
			if token == "" {
				return apperror.Auth(missingTokenStatus[kind], notAuthenticated)
			}

			id, err := tokens.Parse(kind, token)
			if err != nil {
				slog.Debug("token_rejected", "kind", kind, "error", err)
				return apperror.Unauthorized("Invalid or expired token.")
			}

			account, err := accounts.GetAccountByID(c.Request().Context(), id)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return apperror.NotFound(kind.Title() + " not found.")
				}
				return err
			}
			if account.Kind != kind {
				return apperror.Unauthorized(notAuthenticated)
			}
			if !account.CanLogin() {
				if account.IsBlocked {
					return apperror.Unauthorized("Account is blocked.")
				}
				return apperror.Unauthorized(notAuthenticated)
			}

			ctx := auth.WithAccount(c.Request().Context(), account)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// TokenFromRequest returns the token from the cookie or, failing that, from
// an "Authorization: Bearer" header.
func TokenFromRequest(c echo.Context) string {
	if cookie, err := c.Cookie(TokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}
