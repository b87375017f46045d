// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"

	"codeberg.org/oliverandrich/regdesk/internal/models"
	"github.com/vinovest/sqlx"
)

// SaveDocument attaches a document to an account, replacing an earlier one
// with the same name.
func (r *Repository) SaveDocument(ctx context.Context, accountID int64, name, path string) error {
	_, err := r.ext.ExecContext(ctx,
		`INSERT INTO account_documents (account_id, name, path, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (account_id, name) DO UPDATE SET path = excluded.path, created_at = excluded.created_at`,
		accountID, name, path, now())
	return err
}

// ListDocuments returns the documents of an account ordered by name.
func (r *Repository) ListDocuments(ctx context.Context, accountID int64) ([]models.Document, error) {
	docs := []models.Document{}
	err := sqlx.SelectContext(ctx, r.ext, &docs,
		`SELECT * FROM account_documents WHERE account_id = ? ORDER BY name`, accountID)
	if err != nil {
		return nil, err
	}
	return docs, nil
}
