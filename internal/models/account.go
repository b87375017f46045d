// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"regexp"
	"time"
)

var phonePattern = regexp.MustCompile(`^\+91\d{10}$`)

// IsValidPhone reports whether phone is an Indian mobile number in +91 form.
func IsValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

// Kind identifies the actor type an account belongs to.
type Kind string

const (
	KindAdmin     Kind = "admin"
	KindVolunteer Kind = "volunteer"
	KindUser      Kind = "user"
)

func (k Kind) String() string {
	return string(k)
}

// Title returns the kind as used at the start of client messages.
func (k Kind) Title() string {
	switch k {
	case KindAdmin:
		return "Admin"
	case KindVolunteer:
		return "Volunteer"
	}
	return "User"
}

// Account is the single record type behind admins, volunteers and users.
// Profile columns that do not apply to a kind stay empty.
type Account struct { //nolint:govet // fieldalignment: readability over optimization
	ID                     int64      `db:"id" json:"id"`
	Kind                   Kind       `db:"kind" json:"kind"`
	Name                   string     `db:"name" json:"name"`
	Email                  string     `db:"email" json:"email"`
	Phone                  string     `db:"phone" json:"phone"`
	PasswordHash           string     `db:"password_hash" json:"-"`
	AccountVerified        bool       `db:"account_verified" json:"accountVerified"`
	VerificationCode       *int64     `db:"verification_code" json:"-"`
	VerificationCodeExpire *time.Time `db:"verification_code_expire" json:"-"`
	RegNumber              *string    `db:"reg_number" json:"regNumber,omitempty"`
	IsBlocked              bool       `db:"is_blocked" json:"isBlocked"`
	ResetPasswordToken     *string    `db:"reset_password_token" json:"-"`
	ResetPasswordExpire    *time.Time `db:"reset_password_expire" json:"-"`

	Guardian                 string `db:"guardian" json:"guardian,omitempty"`
	Address                  string `db:"address" json:"address,omitempty"`
	CurrentAddress           string `db:"current_address" json:"currentAddress,omitempty"`
	DOB                      string `db:"dob" json:"dob,omitempty"`
	Gender                   string `db:"gender" json:"gender,omitempty"`
	BankAccNumber            string `db:"bank_acc_number" json:"bankAccNumber,omitempty"`
	BankName                 string `db:"bank_name" json:"bankName,omitempty"`
	IFSC                     string `db:"ifsc" json:"ifsc,omitempty"`
	VolunteerName            string `db:"volunteer_name" json:"volunteerName,omitempty"`
	PWDCategory              string `db:"pwd_category" json:"pwdCategory,omitempty"`
	EntrepreneurshipInterest string `db:"entrepreneurship_interest" json:"entrepreneurshipInterest,omitempty"`
	CCCStatus                string `db:"ccc_status" json:"cccStatus,omitempty"`
	CCCCertificate           string `db:"ccc_certificate" json:"cccCertificate,omitempty"`
	SelectedJobRoleID        *int64 `db:"selected_job_role_id" json:"selectedJobRoleId,omitempty"`
	SelectedCourseID         *int64 `db:"selected_course_id" json:"selectedCourseId,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`

	Documents []Document `db:"-" json:"documents,omitempty"`
}

// RegNumberValue returns the registration number or "" when none is assigned.
func (a *Account) RegNumberValue() string {
	if a.RegNumber == nil {
		return ""
	}
	return *a.RegNumber
}

// HasPendingCode reports whether a verification code is outstanding.
func (a *Account) HasPendingCode() bool {
	return a.VerificationCode != nil && a.VerificationCodeExpire != nil
}

// CanLogin reports whether the account is allowed to authenticate.
func (a *Account) CanLogin() bool {
	return a.AccountVerified && !a.IsBlocked
}

// Document references an uploaded file attached to an account.
type Document struct { //nolint:govet // fieldalignment: readability over optimization
	ID        int64     `db:"id" json:"-"`
	AccountID int64     `db:"account_id" json:"-"`
	Name      string    `db:"name" json:"name"`
	Path      string    `db:"path" json:"path"`
	CreatedAt time.Time `db:"created_at" json:"-"`
}
