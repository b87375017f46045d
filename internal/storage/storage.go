// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package storage keeps uploaded documents on local disk or in an S3 bucket.
package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"codeberg.org/oliverandrich/regdesk/internal/config"
	"github.com/google/uuid"
)

// Store saves an uploaded file and returns a reference to it that is stored
// with the account. Exists reports whether ref names a file this store
// holds; references in another backend's format or location are false.
type Store interface {
	Save(ctx context.Context, field, filename string, r io.Reader, size int64, contentType string) (string, error)
	Exists(ctx context.Context, ref string) (bool, error)
}

// New returns the store selected by cfg.Backend.
func New(ctx context.Context, cfg *config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case "", "local":
		return NewLocalStore(cfg.UploadDir)
	case "s3":
		return NewS3Store(ctx, cfg)
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}

// objectName builds "<field>-<unix millis>-<8 hex chars><ext>". Only the
// extension of the client supplied name is kept.
func objectName(field, filename string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if len(ext) > 10 || strings.ContainsAny(ext, `/\ `) {
		ext = ""
	}
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s-%d-%s%s", sanitizeField(field), now.UnixMilli(), id, ext)
}

func sanitizeField(field string) string {
	var b strings.Builder
	for _, r := range field {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "file"
	}
	return b.String()
}

// validName reports whether name could have come from objectName.
func validName(name string) bool {
	return name != "" && !strings.ContainsAny(name, `/\`) && !strings.HasPrefix(name, ".")
}
