package domain

import "time"

type Folder struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	ParentID  *int64    `json:"parent_id,omitempty" db:"parent_id"`
	AccountID int64     `json:"account_id" db:"account_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// FolderContents - непосредственное содержимое папки (или корня)
type FolderContents struct {
	Folder      *Folder  `json:"folder,omitempty"`
	Breadcrumbs []Folder `json:"breadcrumbs"`
	Folders     []Folder `json:"folders"`
	Files       []File   `json:"files"`
}

// DeleteResult - итог рекурсивного удаления папки
type DeleteResult struct {
	FilesRemoved   int   `json:"files_removed"`
	FoldersRemoved int   `json:"folders_removed"`
	BytesFreed     int64 `json:"bytes_freed"`
}

// Add складывает результаты удаления поддеревьев
func (r DeleteResult) Add(other DeleteResult) DeleteResult {
	return DeleteResult{
		FilesRemoved:   r.FilesRemoved + other.FilesRemoved,
		FoldersRemoved: r.FoldersRemoved + other.FoldersRemoved,
		BytesFreed:     r.BytesFreed + other.BytesFreed,
	}
}

type SearchResult struct {
	Query   string   `json:"query"`
	Folders []Folder `json:"folders"`
	Files   []File   `json:"files"`
}

// SameParent сравнивает два необязательных идентификатора родителя
func SameParent(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
