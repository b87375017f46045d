// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"codeberg.org/oliverandrich/regdesk/internal/config"
	"codeberg.org/oliverandrich/regdesk/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_Save(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewLocalStore(dir)
	require.NoError(t, err)

	ref, err := store.Save(context.Background(), "aadharCard", "../../etc/Scan.PDF",
		strings.NewReader("pdf-bytes"), 9, "application/pdf")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(ref, "/uploads/aadharCard-"))
	assert.True(t, strings.HasSuffix(ref, ".pdf"))

	data, err := os.ReadFile(filepath.Join(dir, strings.TrimPrefix(ref, "/uploads/")))
	require.NoError(t, err)
	assert.Equal(t, "pdf-bytes", string(data))
}

func TestLocalStore_NamesAreUnique(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	a, err := store.Save(context.Background(), "photo", "a.jpg", strings.NewReader("a"), 1, "")
	require.NoError(t, err)
	b, err := store.Save(context.Background(), "photo", "a.jpg", strings.NewReader("b"), 1, "")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestLocalStore_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "uploads")

	store, err := storage.NewLocalStore(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, store.Dir())
	assert.DirExists(t, dir)
}

func TestLocalStore_CanceledContext(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = store.Save(ctx, "photo", "a.jpg", strings.NewReader("a"), 1, "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_Backends(t *testing.T) {
	store, err := storage.New(context.Background(), &config.StorageConfig{Backend: "local", UploadDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &storage.LocalStore{}, store)

	_, err = storage.New(context.Background(), &config.StorageConfig{Backend: "ftp"})
	assert.Error(t, err)

	_, err = storage.New(context.Background(), &config.StorageConfig{Backend: "s3"})
	assert.ErrorContains(t, err, "bucket not set")
}

func TestLocalStore_Exists(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewLocalStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	ref, err := store.Save(ctx, "photo", "a.jpg", strings.NewReader("a"), 1, "")
	require.NoError(t, err)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "folder"), 0o750))

	tests := []struct {
		ref      string
		expected bool
	}{
		{ref, true},
		{"/uploads/never-uploaded.jpg", false},
		{"/uploads/folder", false},
		{"/uploads/../local_test.go", false},
		{"/uploads/", false},
		{"s3://someone-elses-bucket/any/key.pdf", false},
		{"https://example.com/a.jpg", false},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			ok, err := store.Exists(ctx, tt.ref)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ok)
		})
	}
}
