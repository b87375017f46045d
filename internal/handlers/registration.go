// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"codeberg.org/oliverandrich/regdesk/internal/apperror"
	"codeberg.org/oliverandrich/regdesk/internal/models"
	"codeberg.org/oliverandrich/regdesk/internal/services/registration"
	"github.com/labstack/echo/v4"
	"github.com/samber/lo"
)

type emailOTPRequest struct {
	Email string `json:"email" form:"email"`
	OTP   string `json:"otp" form:"otp"`
}

type verifyAccountRequest struct {
	Email string `json:"email" form:"email"`
	Phone string `json:"phone" form:"phone"`
	OTP   string `json:"otp" form:"otp"`
}

// volunteerOption is an entry of the volunteer dropdown on the user form.
type volunteerOption struct {
	Name      string `json:"name"`
	RegNumber string `json:"regNumber"`
}

// SendEmailOTP mails a one-time code to a prospective user.
func (h *Handlers) SendEmailOTP(c echo.Context) error {
	var req emailOTPRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.Registration.SendEmailOTP(c.Request().Context(), req.Email); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "OTP sent to "+req.Email+".", nil)
}

// VerifyEmailOTP checks the code sent by SendEmailOTP.
func (h *Handlers) VerifyEmailOTP(c echo.Context) error {
	var req emailOTPRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.Registration.VerifyEmailOTP(c.Request().Context(), req.Email, req.OTP); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Email verified successfully.", nil)
}

// RegisterUser handles the multipart user registration form.
func (h *Handlers) RegisterUser(c echo.Context) error {
	sub, err := submissionFromRequest(c)
	if err != nil {
		return err
	}

	account, err := h.Registration.RegisterUser(c.Request().Context(), sub)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "User registered successfully.", envelope{"user": account})
}

// RegisterVolunteer handles the volunteer registration form and mails the
// account verification code.
func (h *Handlers) RegisterVolunteer(c echo.Context) error {
	sub, err := submissionFromRequest(c)
	if err != nil {
		return err
	}

	account, err := h.Registration.RegisterVolunteer(c.Request().Context(), sub)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated,
		"Verification code sent to "+account.Email+".", envelope{"volunteer": account})
}

// VerifyAccount completes a pending registration and logs the account in.
func (h *Handlers) VerifyAccount(kind models.Kind) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req verifyAccountRequest
		if err := bind(c, &req); err != nil {
			return err
		}

		account, token, err := h.Registration.VerifyAccount(c.Request().Context(), kind, req.Email, req.Phone, req.OTP)
		if err != nil {
			return err
		}

		h.setTokenCookie(c, token)
		return respond(c, http.StatusOK, kind.Title()+" verified successfully.", envelope{
			"token":       token,
			kind.String(): account,
		})
	}
}

// Volunteers lists the verified volunteers a user can name on the form.
func (h *Handlers) Volunteers(c echo.Context) error {
	volunteers, err := h.Repo.ListVerifiedAccounts(c.Request().Context(), models.KindVolunteer, 0, 0)
	if err != nil {
		return err
	}

	options := lo.Map(volunteers, func(v models.Account, _ int) volunteerOption {
		return volunteerOption{Name: v.Name, RegNumber: v.RegNumberValue()}
	})
	return respond(c, http.StatusOK, "", envelope{"volunteers": options})
}

// submissionFromRequest reads a multipart, urlencoded or JSON registration
// body. Only the first value and the first file of a field are used.
func submissionFromRequest(c echo.Context) (*registration.Submission, error) {
	sub := &registration.Submission{
		Fields: make(map[string]string),
		Files:  make(map[string]registration.File),
	}
	contentType := c.Request().Header.Get(echo.HeaderContentType)

	switch {
	case strings.HasPrefix(contentType, echo.MIMEMultipartForm):
		form, err := c.MultipartForm()
		if err != nil {
			return nil, apperror.Validation("Invalid form data.")
		}
		for name, values := range form.Value {
			if len(values) > 0 {
				sub.Fields[name] = values[0]
			}
		}
		for name, headers := range form.File {
			if len(headers) == 0 {
				continue
			}
			fh := headers[0]
			sub.Files[name] = registration.File{
				Filename:    fh.Filename,
				Size:        fh.Size,
				ContentType: fh.Header.Get(echo.HeaderContentType),
				Open: func() (io.ReadCloser, error) {
					return fh.Open()
				},
			}
		}

	case strings.HasPrefix(contentType, echo.MIMEApplicationJSON):
		var body map[string]any
		dec := json.NewDecoder(c.Request().Body)
		dec.UseNumber()
		if err := dec.Decode(&body); err != nil {
			return nil, apperror.Validation("Invalid request body.")
		}
		for name, value := range body {
			switch v := value.(type) {
			case nil:
			case string:
				sub.Fields[name] = v
			case json.Number:
				// Account and phone numbers keep their digits.
				sub.Fields[name] = v.String()
			case bool:
				sub.Fields[name] = strconv.FormatBool(v)
			default:
				return nil, apperror.Validation("Invalid request body.")
			}
		}

	default:
		params, err := c.FormParams()
		if err != nil {
			return nil, apperror.Validation("Invalid form data.")
		}
		for name := range params {
			sub.Fields[name] = params.Get(name)
		}
	}

	return sub, nil
}
