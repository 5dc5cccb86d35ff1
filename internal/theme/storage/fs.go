package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"storefront/internal/theme/ports"
	"storefront/pkg/platform/sentinel"
)

// FS reads themes from {root}/{storeId}/...
type FS struct {
	root string
}

func NewFS(root string) *FS {
	return &FS{root: root}
}

func (s *FS) storeDir(storeID string) (string, error) {
	if storeID == "" || strings.ContainsAny(storeID, `/\`) || storeID == "." || storeID == ".." {
		return "", fmt.Errorf("invalid store id %q: %w", storeID, sentinel.ErrNotFound)
	}
	return filepath.Join(s.root, storeID), nil
}

func (s *FS) ListFiles(ctx context.Context, storeID string) ([]ports.FileInfo, error) {
	dir, err := s.storeDir(storeID)
	if err != nil {
		return nil, err
	}
	var out []ports.FileInfo
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		out = append(out, ports.FileInfo{
			Path:         filepath.ToSlash(rel),
			Size:         info.Size(),
			LastModified: info.ModTime(),
		})
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("list theme files for %s: %w", storeID, err)
	}
	return out, nil
}

// ReadFile rejects paths escaping the store directory.
func (s *FS) ReadFile(_ context.Context, storeID, p string) ([]byte, error) {
	dir, err := s.storeDir(storeID)
	if err != nil {
		return nil, err
	}
	clean := path.Clean("/" + p)
	if clean == "/" {
		return nil, sentinel.ErrNotFound
	}
	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(strings.TrimPrefix(clean, "/"))))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read theme file %s: %w", p, err)
	}
	return data, nil
}
