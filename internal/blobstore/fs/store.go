// Package fs provides the reference BlobStore: screenshot bytes persisted
// as plain files under a root directory, retrievable by a base-URL-prefixed
// path.
package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kandev/androidctl/internal/common/apperrors"
	"github.com/kandev/androidctl/internal/common/config"
)

// Store is the reference collab.BlobStore. Keys are slash-separated (e.g.
// "task/<taskId>/step/<n>_<name>.png") and are mapped directly onto
// RootDir-relative file paths.
type Store struct {
	rootDir string
	baseURL string
}

// New builds a Store rooted at cfg.RootDir, creating it if missing.
// cfg.BaseURL prefixes every key to form the URL Put returns.
func New(cfg config.BlobStoreConfig) (*Store, error) {
	root, err := filepath.Abs(cfg.RootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve blob store root: %w", err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob store root: %w", err)
	}
	return &Store{rootDir: root, baseURL: strings.TrimRight(cfg.BaseURL, "/")}, nil
}

// Put writes data to key's path under RootDir and returns its retrieval
// URL. contentType is accepted for interface parity with remote-object-store
// implementations; the filesystem store does not record it.
func (s *Store) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	path, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", apperrors.StoreErr("blob store mkdir failed", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", apperrors.StoreErr("blob store write failed", err)
	}
	return s.baseURL + "/" + key, nil
}

// Delete removes key's file. Deleting an already-absent key is a no-op.
func (s *Store) Delete(ctx context.Context, key string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return apperrors.StoreErr("blob store delete failed", err)
	}
	return nil
}

// resolve joins key onto rootDir, rejecting any key that would escape it
// (e.g. via "../" segments).
func (s *Store) resolve(key string) (string, error) {
	path := filepath.Join(s.rootDir, filepath.FromSlash(key))
	cleanRoot := filepath.Clean(s.rootDir)
	if path != cleanRoot && !strings.HasPrefix(path, cleanRoot+string(os.PathSeparator)) {
		return "", apperrors.StoreErr("blob key escapes store root", fmt.Errorf("key: %s", key))
	}
	return path, nil
}
