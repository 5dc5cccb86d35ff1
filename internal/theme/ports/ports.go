// Package ports defines the object storage contract theme files are read from.
package ports

import (
	"context"
	"time"
)

// FileInfo describes one stored theme file. Path is relative to the store's theme root.
type FileInfo struct {
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
}

// ObjectStorage lists and reads theme files of a store.
// ReadFile returns sentinel.ErrNotFound for a missing file.
type ObjectStorage interface {
	ListFiles(ctx context.Context, storeID string) ([]FileInfo, error)
	ReadFile(ctx context.Context, storeID, path string) ([]byte, error)
}
