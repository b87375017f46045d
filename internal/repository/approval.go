// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/oliverandrich/regdesk/internal/models"
	"github.com/vinovest/sqlx"
)

// CreateApprovalToken stores a new approval token.
func (r *Repository) CreateApprovalToken(ctx context.Context, id string, accountID int64, expiresAt time.Time) error {
	_, err := r.ext.ExecContext(ctx,
		`INSERT INTO approval_tokens (id, account_id, expires_at, created_at) VALUES (?, ?, ?, ?)`,
		id, accountID, expiresAt.UTC(), now())
	return err
}

// GetApprovalToken retrieves an approval token by ID.
func (r *Repository) GetApprovalToken(ctx context.Context, id string) (*models.ApprovalToken, error) {
	var token models.ApprovalToken
	if err := sqlx.GetContext(ctx, r.ext, &token, `SELECT * FROM approval_tokens WHERE id = ?`, id); err != nil {
		return nil, wrapError(err)
	}
	return &token, nil
}

// UseApprovalToken records a decision on an unused token. It reports false
// when the token was already used.
func (r *Repository) UseApprovalToken(ctx context.Context, id string, decision models.Decision) (bool, error) {
	res, err := r.ext.ExecContext(ctx,
		`UPDATE approval_tokens SET used_at = ?, decision = ? WHERE id = ? AND used_at IS NULL`,
		now(), string(decision), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// DeleteExpiredApprovalTokens deletes tokens past their expiry.
func (r *Repository) DeleteExpiredApprovalTokens(ctx context.Context, at time.Time) (int64, error) {
	res, err := r.ext.ExecContext(ctx, `DELETE FROM approval_tokens WHERE expires_at < ?`, at.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
