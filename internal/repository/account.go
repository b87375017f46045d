// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"fmt"
	"time"

	"codeberg.org/oliverandrich/regdesk/internal/models"
	"github.com/vinovest/sqlx"
)

const insertAccount = `INSERT INTO accounts (
	kind, name, email, phone, password_hash, account_verified,
	verification_code, verification_code_expire, reg_number, is_blocked,
	guardian, address, current_address, dob, gender,
	bank_acc_number, bank_name, ifsc, volunteer_name, pwd_category,
	entrepreneurship_interest, created_at, updated_at
) VALUES (
	:kind, :name, :email, :phone, :password_hash, :account_verified,
	:verification_code, :verification_code_expire, :reg_number, :is_blocked,
	:guardian, :address, :current_address, :dob, :gender,
	:bank_acc_number, :bank_name, :ifsc, :volunteer_name, :pwd_category,
	:entrepreneurship_interest, :created_at, :updated_at
)`

// CreateAccount inserts a new account and sets its ID and timestamps.
func (r *Repository) CreateAccount(ctx context.Context, account *models.Account) error {
	ts := now()
	account.CreatedAt = ts
	account.UpdatedAt = ts

	res, err := sqlx.NamedExecContext(ctx, r.ext, insertAccount, account)
	if err != nil {
		return wrapError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	account.ID = id
	return nil
}

// GetAccountByID retrieves an account by ID.
func (r *Repository) GetAccountByID(ctx context.Context, id int64) (*models.Account, error) {
	var account models.Account
	if err := sqlx.GetContext(ctx, r.ext, &account, `SELECT * FROM accounts WHERE id = ?`, id); err != nil {
		return nil, wrapError(err)
	}
	return &account, nil
}

// GetVerifiedAccountByEmail retrieves the verified account of a kind by email.
func (r *Repository) GetVerifiedAccountByEmail(ctx context.Context, kind models.Kind, email string) (*models.Account, error) {
	var account models.Account
	err := sqlx.GetContext(ctx, r.ext, &account,
		`SELECT * FROM accounts WHERE kind = ? AND email = ? AND account_verified = 1`,
		string(kind), email)
	if err != nil {
		return nil, wrapError(err)
	}
	return &account, nil
}

// GetAccountByRegNumber retrieves an account of a kind by registration number.
func (r *Repository) GetAccountByRegNumber(ctx context.Context, kind models.Kind, regNumber string) (*models.Account, error) {
	var account models.Account
	err := sqlx.GetContext(ctx, r.ext, &account,
		`SELECT * FROM accounts WHERE kind = ? AND reg_number = ?`, string(kind), regNumber)
	if err != nil {
		return nil, wrapError(err)
	}
	return &account, nil
}

// GetAccountByResetToken retrieves an account of a kind by reset token hash.
func (r *Repository) GetAccountByResetToken(ctx context.Context, kind models.Kind, tokenHash string) (*models.Account, error) {
	var account models.Account
	err := sqlx.GetContext(ctx, r.ext, &account,
		`SELECT * FROM accounts WHERE kind = ? AND reset_password_token = ?`, string(kind), tokenHash)
	if err != nil {
		return nil, wrapError(err)
	}
	return &account, nil
}

// VerifiedAccountExists reports whether a verified account of a kind uses the
// email or the phone.
func (r *Repository) VerifiedAccountExists(ctx context.Context, kind models.Kind, email, phone string) (bool, error) {
	var count int64
	err := sqlx.GetContext(ctx, r.ext, &count,
		`SELECT count(*) FROM accounts WHERE kind = ? AND account_verified = 1 AND (email = ? OR phone = ?)`,
		string(kind), email, phone)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListUnverifiedByEmailOrPhone returns unverified accounts matching the email
// or the phone, newest first.
func (r *Repository) ListUnverifiedByEmailOrPhone(ctx context.Context, kind models.Kind, email, phone string) ([]models.Account, error) {
	var accounts []models.Account
	err := sqlx.SelectContext(ctx, r.ext, &accounts,
		`SELECT * FROM accounts
		 WHERE kind = ? AND account_verified = 0 AND (email = ? OR phone = ?)
		 ORDER BY created_at DESC, id DESC`,
		string(kind), email, phone)
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

// DeleteAccount deletes an account by ID.
func (r *Repository) DeleteAccount(ctx context.Context, id int64) error {
	_, err := r.ext.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	return err
}

// DeleteUnverifiedBefore deletes unverified accounts created before the cutoff.
func (r *Repository) DeleteUnverifiedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.ext.ExecContext(ctx,
		`DELETE FROM accounts WHERE account_verified = 0 AND created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// MarkVerified sets the account verified, clears the verification code and
// assigns regNumber unless one is already set.
func (r *Repository) MarkVerified(ctx context.Context, id int64, regNumber string) error {
	_, err := r.ext.ExecContext(ctx,
		`UPDATE accounts
		 SET account_verified = 1, verification_code = NULL, verification_code_expire = NULL,
		     reg_number = COALESCE(reg_number, NULLIF(?, '')), updated_at = ?
		 WHERE id = ?`,
		regNumber, now(), id)
	return wrapError(err)
}

// SetRegNumber replaces the registration number of an account.
func (r *Repository) SetRegNumber(ctx context.Context, id int64, regNumber string) error {
	_, err := r.ext.ExecContext(ctx,
		`UPDATE accounts SET reg_number = ?, updated_at = ? WHERE id = ?`, regNumber, now(), id)
	return wrapError(err)
}

// SetResetToken stores a password reset token hash and expiry. Passing an
// empty hash clears both.
func (r *Repository) SetResetToken(ctx context.Context, id int64, tokenHash string, expire time.Time) error {
	var (
		hash any
		exp  any
	)
	if tokenHash != "" {
		hash = tokenHash
		exp = expire.UTC()
	}
	_, err := r.ext.ExecContext(ctx,
		`UPDATE accounts SET reset_password_token = ?, reset_password_expire = ?, updated_at = ? WHERE id = ?`,
		hash, exp, now(), id)
	return err
}

// UpdatePassword sets a new password hash and clears any reset token.
func (r *Repository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	_, err := r.ext.ExecContext(ctx,
		`UPDATE accounts
		 SET password_hash = ?, reset_password_token = NULL, reset_password_expire = NULL, updated_at = ?
		 WHERE id = ?`,
		passwordHash, now(), id)
	return err
}

// SetBlocked sets the blocked flag of an account.
func (r *Repository) SetBlocked(ctx context.Context, id int64, blocked bool) error {
	_, err := r.ext.ExecContext(ctx,
		`UPDATE accounts SET is_blocked = ?, updated_at = ? WHERE id = ?`, blocked, now(), id)
	return err
}

// UpdateCCC stores the CCC status and certificate reference of an account.
func (r *Repository) UpdateCCC(ctx context.Context, id int64, status, certificate string) error {
	_, err := r.ext.ExecContext(ctx,
		`UPDATE accounts SET ccc_status = ?, ccc_certificate = ?, updated_at = ? WHERE id = ?`,
		status, certificate, now(), id)
	return err
}

// SelectCourse stores the job role and course chosen by an account.
func (r *Repository) SelectCourse(ctx context.Context, id, jobRoleID, courseID int64) error {
	_, err := r.ext.ExecContext(ctx,
		`UPDATE accounts SET selected_job_role_id = ?, selected_course_id = ?, updated_at = ? WHERE id = ?`,
		jobRoleID, courseID, now(), id)
	return err
}

// ListVerifiedAccounts returns verified accounts of a kind, newest first.
// A limit of zero returns all of them.
func (r *Repository) ListVerifiedAccounts(ctx context.Context, kind models.Kind, limit, offset int) ([]models.Account, error) {
	query := `SELECT * FROM accounts WHERE kind = ? AND account_verified = 1 ORDER BY created_at DESC, id DESC`
	args := []any{string(kind)}
	if limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	}

	accounts := []models.Account{}
	if err := sqlx.SelectContext(ctx, r.ext, &accounts, query, args...); err != nil {
		return nil, err
	}
	return accounts, nil
}

// CountVerifiedAccounts returns the number of verified accounts of a kind.
func (r *Repository) CountVerifiedAccounts(ctx context.Context, kind models.Kind) (int64, error) {
	var count int64
	err := sqlx.GetContext(ctx, r.ext, &count,
		`SELECT count(*) FROM accounts WHERE kind = ? AND account_verified = 1`, string(kind))
	return count, err
}

// CountAdmins returns the number of admin accounts
func (r *Repository) CountAdmins(ctx context.Context) (int64, error) {
	return r.CountVerifiedAccounts(ctx, models.KindAdmin)
}

// VolunteerCandidateCount is the number of users who named a volunteer.
type VolunteerCandidateCount struct {
	VolunteerName string `db:"volunteer_name" json:"volunteerName"`
	Count         int64  `db:"count" json:"count"`
}

// CountUsersByVolunteer groups verified users by the volunteer they named.
func (r *Repository) CountUsersByVolunteer(ctx context.Context) ([]VolunteerCandidateCount, error) {
	counts := []VolunteerCandidateCount{}
	err := sqlx.SelectContext(ctx, r.ext, &counts,
		`SELECT volunteer_name, count(*) AS count FROM accounts
		 WHERE kind = 'user' AND account_verified = 1 AND volunteer_name <> ''
		 GROUP BY volunteer_name ORDER BY count DESC, volunteer_name`)
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// ListUsersByVolunteerName returns verified users who named a volunteer.
func (r *Repository) ListUsersByVolunteerName(ctx context.Context, volunteerName string) ([]models.Account, error) {
	accounts := []models.Account{}
	err := sqlx.SelectContext(ctx, r.ext, &accounts,
		`SELECT * FROM accounts
		 WHERE kind = 'user' AND account_verified = 1 AND volunteer_name = ?
		 ORDER BY created_at DESC, id DESC`, volunteerName)
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

// RegNumbersWithPrefix returns every registration number starting with one of
// the given prefixes.
func (r *Repository) RegNumbersWithPrefix(ctx context.Context, prefixes ...string) ([]string, error) {
	if len(prefixes) == 0 {
		return nil, nil
	}

	query := `SELECT reg_number FROM accounts WHERE reg_number IS NOT NULL AND (`
	args := make([]any, 0, len(prefixes))
	for i, p := range prefixes {
		if i > 0 {
			query += ` OR `
		}
		query += `substr(reg_number, 1, ?) = ?`
		args = append(args, len(p), p)
	}
	query += `)`

	var numbers []string
	if err := sqlx.SelectContext(ctx, r.ext, &numbers, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list registration numbers: %w", err)
	}
	return numbers, nil
}
