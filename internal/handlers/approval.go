// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"

	"codeberg.org/oliverandrich/regdesk/internal/apperror"
	"codeberg.org/oliverandrich/regdesk/internal/i18n"
	"codeberg.org/oliverandrich/regdesk/internal/models"
	"codeberg.org/oliverandrich/regdesk/internal/services/approval"
	"github.com/labstack/echo/v4"
)

type approveRequest struct {
	Token string `json:"token" form:"token"`
}

// ApprovePage is the target of a mailed approval link. It only shows what
// the link would do and posts the token back to Approve on confirmation.
func (h *Handlers) ApprovePage(c echo.Context) error {
	ctx := c.Request().Context()
	title := i18n.T(ctx, "approval_page_title")
	token := c.QueryParam("token")

	outcome, err := h.Approval.Inspect(ctx, token)
	if err != nil {
		return approvalError(c, title, err)
	}
	if outcome.AlreadyDecided {
		return renderPage(c, http.StatusOK, messagePage(title, i18n.T(ctx, "approval_page_already_decided")))
	}

	data := map[string]any{
		"Name":      outcome.Account.Name,
		"RegNumber": outcome.Account.RegNumberValue(),
	}
	question := i18n.TData(ctx, "approval_page_confirm_reject", data)
	submit := i18n.T(ctx, "approval_page_submit_reject")
	if outcome.Decision == models.DecisionApproved {
		question = i18n.TData(ctx, "approval_page_confirm_approve", data)
		submit = i18n.T(ctx, "approval_page_submit_approve")
	}
	return renderPage(c, http.StatusOK, confirmPage(title, question, approval.ApprovePath, token, submit))
}

// Approve records the decision of a confirmed approval link and answers with
// an HTML page, since reviewers arrive from their mail client.
func (h *Handlers) Approve(c echo.Context) error {
	var req approveRequest
	_ = c.Bind(&req)

	ctx := c.Request().Context()
	title := i18n.T(ctx, "approval_page_title")

	outcome, err := h.Approval.Decide(ctx, req.Token)
	if err != nil {
		return approvalError(c, title, err)
	}

	var message string
	switch {
	case outcome.AlreadyDecided:
		message = i18n.T(ctx, "approval_page_already_decided")
	case outcome.Decision == models.DecisionApproved:
		message = i18n.TData(ctx, "approval_page_approved", map[string]any{
			"RegNumber": outcome.Account.RegNumberValue(),
		})
	default:
		message = i18n.T(ctx, "approval_page_rejected")
	}
	return renderPage(c, http.StatusOK, messagePage(title, message))
}

func approvalError(c echo.Context, title string, err error) error {
	if appErr, ok := apperror.As(err); ok {
		return renderPage(c, appErr.Status, messagePage(title, appErr.Message))
	}
	return err
}
