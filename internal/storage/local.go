package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

const defaultContentType = "application/octet-stream"

// Local хранит блобы в файловой системе под корневым каталогом
type Local struct {
	fs afero.Fs
}

var _ Storage = (*Local)(nil)

// NewLocal ограничивает fs каталогом root; для тестов подходит afero.NewMemMapFs()
func NewLocal(fs afero.Fs, root string) (*Local, error) {
	if err := fs.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root %s: %w", root, err)
	}
	return &Local{fs: afero.NewBasePathFs(fs, root)}, nil
}

// Put пишет во временный файл и переименовывает его, так что блоб под
// ключом появляется только целиком
func (l *Local) Put(_ context.Context, key string, r io.Reader, _ string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	dir := filepath.Dir(filepath.FromSlash(key))
	if err := l.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp := filepath.Join(dir, ".upload-"+uuid.NewString())
	f, err := l.fs.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		l.fs.Remove(tmp)
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := f.Close(); err != nil {
		l.fs.Remove(tmp)
		return fmt.Errorf("failed to close file: %w", err)
	}

	if err := l.fs.Rename(tmp, filepath.FromSlash(key)); err != nil {
		l.fs.Remove(tmp)
		return fmt.Errorf("failed to finalize file: %w", err)
	}
	return nil
}

func (l *Local) Get(_ context.Context, key string) (Object, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	f, err := l.fs.Open(filepath.FromSlash(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	return &object{
		ReadCloser:    f,
		contentLength: info.Size(),
		contentType:   defaultContentType,
	}, nil
}

func (l *Local) Stat(_ context.Context, key string) (int64, error) {
	if err := validateKey(key); err != nil {
		return 0, err
	}

	info, err := l.fs.Stat(filepath.FromSlash(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return 0, fmt.Errorf("failed to stat file: %w", err)
	}
	return info.Size(), nil
}

func (l *Local) Delete(_ context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	if err := l.fs.Remove(filepath.FromSlash(key)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
