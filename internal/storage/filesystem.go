package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/nikolayk812/goldorder/internal/port"
)

const (
	dirPerm  = 0o750
	filePerm = 0o640
)

// FileStore keeps blobs as files under a root directory.
type FileStore struct {
	root string
}

var _ port.BlobStore = (*FileStore)(nil)

func NewFileStore(root string) (*FileStore, error) {
	if root == "" {
		return nil, errors.New("storage: root directory is required")
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("filepath.Abs: %w", err)
	}

	if err := os.MkdirAll(abs, dirPerm); err != nil {
		return nil, fmt.Errorf("os.MkdirAll: %w", err)
	}

	return &FileStore{root: abs}, nil
}

// Store writes through a temporary file so a reader never sees a partial blob.
// The content type is not kept on disk.
func (s *FileStore) Store(ctx context.Context, subdir, fileName, _ string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	key, err := JoinPath(subdir, fileName)
	if err != nil {
		return "", err
	}

	target := s.fullPath(key)
	if err := os.MkdirAll(filepath.Dir(target), dirPerm); err != nil {
		return "", fmt.Errorf("os.MkdirAll: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("os.CreateTemp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("tmp.Write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("tmp.Close: %w", err)
	}
	if err := os.Chmod(tmp.Name(), filePerm); err != nil {
		return "", fmt.Errorf("os.Chmod: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("os.Rename: %w", err)
	}

	return key, nil
}

func (s *FileStore) Load(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ValidatePath(key); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.fullPath(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("os.ReadFile[%s]: %w", key, ErrObjectNotFound)
		}
		return nil, fmt.Errorf("os.ReadFile: %w", err)
	}

	return data, nil
}

func (s *FileStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidatePath(key); err != nil {
		return err
	}

	if err := os.Remove(s.fullPath(key)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("os.Remove[%s]: %w", key, ErrObjectNotFound)
		}
		return fmt.Errorf("os.Remove: %w", err)
	}

	return nil
}

func (s *FileStore) fullPath(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}
