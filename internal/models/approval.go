// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// Decision is the outcome recorded on an approval token.
type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

// ApprovalToken is the server-side half of a signed approval link.
// A token is spent once UsedAt is set.
type ApprovalToken struct { //nolint:govet // fieldalignment: readability over optimization
	ID        string     `db:"id"`
	AccountID int64      `db:"account_id"`
	ExpiresAt time.Time  `db:"expires_at"`
	UsedAt    *time.Time `db:"used_at"`
	Decision  *Decision  `db:"decision"`
	CreatedAt time.Time  `db:"created_at"`
}

// IsUsed reports whether a decision was already recorded.
func (t *ApprovalToken) IsUsed() bool {
	return t.UsedAt != nil
}
