// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"context"
	"io"

	"codeberg.org/oliverandrich/regdesk/internal/i18n"
	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
)

// renderPage writes a templ component as an uncached HTML response.
// Approval pages reflect a one-time decision and must not be replayed from
// a cache.
func renderPage(c echo.Context, status int, component templ.Component) error {
	buf := templ.GetBuffer()
	defer templ.ReleaseBuffer(buf)

	if err := component.Render(c.Request().Context(), buf); err != nil {
		return err
	}

	c.Response().Header().Set("Cache-Control", "no-store")
	return c.HTMLBlob(status, buf.Bytes())
}

// messagePage is the standalone page shown to reviewers who follow an
// approval link. It carries no scripts or external assets.
func messagePage(title, message string) templ.Component {
	return page(title, `<p>`+templ.EscapeString(message)+`</p>`)
}

// confirmPage asks the reviewer to post the token back. Opening a link never
// records a decision, so mail scanners that prefetch it change nothing.
func confirmPage(title, question, action, token, submit string) templ.Component {
	return page(title, `<p>`+templ.EscapeString(question)+`</p>`+
		`<form method="post" action="`+templ.EscapeString(action)+`">`+
		`<input type="hidden" name="token" value="`+templ.EscapeString(token)+`">`+
		`<button type="submit">`+templ.EscapeString(submit)+`</button></form>`)
}

func page(title, body string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<!doctype html><html lang="`+templ.EscapeString(i18n.GetLocale(ctx))+`">`+
			`<head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1">`+
			`<title>`+templ.EscapeString(title)+`</title>`+
			`<style>body{font-family:system-ui,sans-serif;max-width:40rem;margin:4rem auto;padding:0 1rem;color:#1f2937}</style>`+
			`</head><body><main><h1>`+templ.EscapeString(title)+`</h1>`+body+`</main></body></html>`)
		return err
	})
}
