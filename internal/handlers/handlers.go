// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"
	"strconv"

	"codeberg.org/oliverandrich/regdesk/internal/config"
	"codeberg.org/oliverandrich/regdesk/internal/middleware"
	"codeberg.org/oliverandrich/regdesk/internal/repository"
	"codeberg.org/oliverandrich/regdesk/internal/services/approval"
	"codeberg.org/oliverandrich/regdesk/internal/services/auth"
	"codeberg.org/oliverandrich/regdesk/internal/services/registration"
	"codeberg.org/oliverandrich/regdesk/internal/storage"
	"github.com/labstack/echo/v4"
)

// Deps are the services the handlers call into.
type Deps struct {
	Config       *config.Config
	Repo         *repository.Repository
	Auth         *auth.Service
	Registration *registration.Service
	Approval     *approval.Service
	Store        storage.Store
}

// Handlers contains all HTTP handlers.
type Handlers struct {
	Deps
}

// New creates a new Handlers instance.
func New(deps Deps) *Handlers {
	return &Handlers{Deps: deps}
}

// Health returns the health status.
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// setTokenCookie stores the session JWT. Cross-site frontends need
// SameSite=None, which browsers only accept on secure cookies.
func (h *Handlers) setTokenCookie(c echo.Context, token string) {
	c.SetCookie(h.tokenCookie(token, h.Config.Auth.CookieMaxAge()))
}

func (h *Handlers) clearTokenCookie(c echo.Context) {
	c.SetCookie(h.tokenCookie("", -1))
}

func (h *Handlers) tokenCookie(value string, maxAge int) *http.Cookie {
	sameSite := http.SameSiteLaxMode
	if h.Config.Auth.CookieSecure {
		sameSite = http.SameSiteNoneMode
	}
	return &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.Config.Auth.CookieSecure,
		SameSite: sameSite,
	}
}

// queryInt parses a positive integer query parameter, falling back to def.
func queryInt(c echo.Context, name string, def int) int {
	v, err := strconv.Atoi(c.QueryParam(name))
	if err != nil || v < 1 {
		return def
	}
	return v
}
