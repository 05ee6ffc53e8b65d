package localstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Lllllllleong/bookcastflow/internal/pipeline"
)

// FileStore is a pipeline.ObjectStore rooted at a local directory. Object
// paths map to files below the root; writes go through a temp file and a
// rename so readers never see a partial object.
type FileStore struct {
	root string
}

var _ pipeline.ObjectStore = (*FileStore)(nil)

func NewFileStore(root string) (*FileStore, error) {
	if root == "" {
		return nil, fmt.Errorf("%w: data directory must be provided", pipeline.ErrConfiguration)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve data directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &FileStore{root: abs}, nil
}

func (s *FileStore) resolve(name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(strings.TrimPrefix(name, "/")))
	if clean == "." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || clean == ".." {
		return "", fmt.Errorf("%w: object path %q escapes the data directory", pipeline.ErrDataIntegrity, name)
	}
	return filepath.Join(s.root, clean), nil
}

func (s *FileStore) Write(_ context.Context, name string, data []byte) (string, error) {
	target, err := s.resolve(name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create directory for %s: %w", name, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp file for %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("publish %s: %w", name, err)
	}
	return "file://" + filepath.ToSlash(target), nil
}

// WriteIfAbsent leaves an existing file untouched and reports its URI.
func (s *FileStore) WriteIfAbsent(ctx context.Context, name string, data []byte) (string, error) {
	target, err := s.resolve(name)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(target); err == nil {
		return "file://" + filepath.ToSlash(target), nil
	}
	return s.Write(ctx, name, data)
}

func (s *FileStore) Download(_ context.Context, name string) ([]byte, error) {
	target, err := s.resolve(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(target)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("object %s: %w", name, pipeline.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

// Dir reads and writes objects below an existing directory without creating it.
func Dir(root string) *FileStore {
	return &FileStore{root: root}
}
