package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type localStore struct {
	root string
}

// NewLocalStore stores attachments on the local filesystem. Used in
// development, where signed URLs degrade to plain file paths.
func NewLocalStore(root string) (Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &localStore{root: root}, nil
}

func (s *localStore) path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

func (s *localStore) Upload(ctx context.Context, key string, r io.Reader) (string, error) {
	dest := s.path(key)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory for %s: %w", key, err)
	}

	f, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", key, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", key, err)
	}
	return key, nil
}

func (s *localStore) URL(ctx context.Context, key string, expires time.Duration) (string, error) {
	p := s.path(key)
	if _, err := os.Stat(p); err != nil {
		return "", fmt.Errorf("stored file %s not found: %w", key, err)
	}
	return "file://" + p, nil
}

func (s *localStore) DeleteByPrefix(ctx context.Context, prefix string) error {
	prefix = strings.TrimSuffix(prefix, "/")
	return os.RemoveAll(s.path(prefix))
}
