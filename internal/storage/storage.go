// Package storage хранит содержимое файлов (блобы) под непрозрачными ключами.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

var ErrObjectNotFound = errors.New("object not found")

// Object определяет интерфейс для прочитанного блоба
type Object interface {
	io.ReadCloser
	ContentLength() int64
	ContentType() string
}

type object struct {
	io.ReadCloser
	contentLength int64
	contentType   string
}

func (o *object) ContentLength() int64 {
	return o.contentLength
}

func (o *object) ContentType() string {
	return o.contentType
}

// Storage - общее для всех аккаунтов хранилище блобов
type Storage interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) error
	Get(ctx context.Context, key string) (Object, error)
	// Stat возвращает фактический размер записанного блоба
	Stat(ctx context.Context, key string) (int64, error)
	// Delete возвращает ErrObjectNotFound, если блоба уже нет
	Delete(ctx context.Context, key string) error
}

// NewKey генерирует глобально уникальный ключ, не зависящий от имени файла
func NewKey(accountID int64) string {
	return fmt.Sprintf("%d/%s", accountID, strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// validateKey отсекает ключи, которые могут выйти за пределы хранилища
func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("key is required")
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, `\`) {
		return fmt.Errorf("invalid key %q", key)
	}
	if path.Clean(key) != key || strings.HasPrefix(key, "..") {
		return fmt.Errorf("invalid key %q", key)
	}
	return nil
}
