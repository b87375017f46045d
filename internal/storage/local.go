// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// URLPrefix is the path under which the server exposes the upload directory.
const URLPrefix = "/uploads"

// LocalStore writes files into a directory served at URLPrefix.
type LocalStore struct {
	dir string
	now func() time.Time
}

func NewLocalStore(dir string) (*LocalStore, error) {
	if dir == "" {
		dir = "./uploads"
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalStore{dir: dir, now: time.Now}, nil
}

// Dir returns the upload directory.
func (s *LocalStore) Dir() string {
	return s.dir
}

func (s *LocalStore) Save(ctx context.Context, field, filename string, r io.Reader, _ int64, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := objectName(field, filename, s.now())
	path := filepath.Join(s.dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("failed to close file: %w", err)
	}

	slog.Debug("document_stored", "backend", "local", "name", name)
	return URLPrefix + "/" + name, nil
}

// Exists reports whether ref is a "/uploads/<name>" reference to a regular
// file in the upload directory.
func (s *LocalStore) Exists(ctx context.Context, ref string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	name, ok := strings.CutPrefix(ref, URLPrefix+"/")
	if !ok || !validName(name) {
		return false, nil
	}

	info, err := os.Stat(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat upload: %w", err)
	}
	return info.Mode().IsRegular(), nil
}
