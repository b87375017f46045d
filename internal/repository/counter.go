// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"

	"github.com/vinovest/sqlx"
)

// IncrementCounter atomically bumps the counter of a scope and returns the
// new value. Returns ErrNotFound when the scope has no counter yet.
func (r *Repository) IncrementCounter(ctx context.Context, scope string) (int64, error) {
	var value int64
	err := sqlx.GetContext(ctx, r.ext, &value,
		`UPDATE reg_counters SET value = value + 1 WHERE scope = ? RETURNING value`, scope)
	if err != nil {
		return 0, wrapError(err)
	}
	return value, nil
}

// InitCounter creates the counter of a scope with the given value.
func (r *Repository) InitCounter(ctx context.Context, scope string, value int64) error {
	_, err := r.ext.ExecContext(ctx,
		`INSERT INTO reg_counters (scope, value) VALUES (?, ?)`, scope, value)
	return wrapError(err)
}
