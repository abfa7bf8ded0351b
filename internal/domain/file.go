package domain

import (
	"io"
	"strings"
	"time"
)

type File struct {
	ID          int64     `json:"id" db:"id"`
	DisplayName string    `json:"display_name" db:"display_name"`
	StorageKey  string    `json:"-" db:"storage_key"`
	SizeBytes   int64     `json:"size_bytes" db:"size_bytes"`
	ContentType string    `json:"content_type" db:"content_type"`
	FolderID    *int64    `json:"folder_id,omitempty" db:"folder_id"`
	AccountID   int64     `json:"account_id" db:"account_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
	IsPublic    bool      `json:"is_public" db:"is_public"`
	PublicToken *string   `json:"public_token,omitempty" db:"public_token"`
}

// Extension возвращает расширение отображаемого имени вместе с точкой
func (f *File) Extension() string {
	_, ext := SplitExt(f.DisplayName)
	return ext
}

// SplitExt делит имя на основу и расширение. Ведущие точки расширением
// не считаются: у ".bashrc" расширения нет
func SplitExt(name string) (base, ext string) {
	dot := strings.LastIndex(name, ".")
	if dot <= 0 || strings.Trim(name[:dot], ".") == "" {
		return name, ""
	}
	return name[:dot], name[dot:]
}

// UploadRequest описывает загрузку одного файла
type UploadRequest struct {
	AccountID    int64
	FolderID     *int64
	Name         string
	ContentType  string
	DeclaredSize int64 // -1, если размер неизвестен
	Content      io.Reader
	MakePublic   bool
}

type UploadItem struct {
	Name         string
	ContentType  string
	DeclaredSize int64
	Content      io.Reader
}

type UploadItemResult struct {
	Name  string `json:"name"`
	File  *File  `json:"file,omitempty"`
	Error string `json:"error,omitempty"`
}

// BatchUploadResult - поштучный итог пакетной загрузки
type BatchUploadResult struct {
	Items    []UploadItemResult `json:"items"`
	Uploaded int                `json:"uploaded"`
	Failed   int                `json:"failed"`
}
