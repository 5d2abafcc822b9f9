// Package storage holds the blob store the media pipeline writes into.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// DiskBlobStore writes ingested media under a root directory and returns the
// public path recorded on the message. Names are generated by the caller,
// scoped to a conversation, and never taken from client input.
type DiskBlobStore struct {
	root    string
	baseURL string
	log     *slog.Logger
}

func NewDiskBlobStore(root, baseURL string, log *slog.Logger) (DiskBlobStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return DiskBlobStore{}, fmt.Errorf("blob root creation failed: %w", err)
	}
	return DiskBlobStore{root: root, baseURL: strings.TrimSuffix(baseURL, "/"), log: log}, nil
}

func (s DiskBlobStore) Store(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	clean := path.Clean(name)
	if clean == "." || strings.HasPrefix(clean, "..") || path.IsAbs(clean) {
		return "", fmt.Errorf("invalid blob name %q", name)
	}

	target := filepath.Join(s.root, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", err
	}

	s.log.Debug("Blob stored", "name", clean, "bytes", len(data))
	return s.baseURL + "/" + clean, nil
}
