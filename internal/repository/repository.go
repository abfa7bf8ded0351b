// Package repository описывает хранилище метаданных: аккаунты, папки,
// файлы, доступы и журнал действий.
package repository

import (
	"context"
	"time"

	"clouddrive/internal/domain"
)

type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id int64) (*domain.Account, error)
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
	List(ctx context.Context) ([]domain.Account, error)
	// Lock блокирует аккаунт до конца текущей единицы работы
	Lock(ctx context.Context, id int64) (*domain.Account, error)
	AdjustStorageUsed(ctx context.Context, id int64, delta int64) (*domain.Account, error)
	UpdateStorageLimit(ctx context.Context, id int64, limit int64) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	// UpdateProfile сохраняет username, email, is_admin и is_active
	UpdateProfile(ctx context.Context, account *domain.Account) error
	SetActive(ctx context.Context, id int64, active bool) error
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
	CountOwned(ctx context.Context, id int64) (files int64, folders int64, err error)
	Delete(ctx context.Context, id int64) error
}

type FolderRepository interface {
	Create(ctx context.Context, folder *domain.Folder) error
	GetByID(ctx context.Context, id int64) (*domain.Folder, error)
	ListChildren(ctx context.Context, accountID int64, parentID *int64) ([]domain.Folder, error)
	ListByAccount(ctx context.Context, accountID int64) ([]domain.Folder, error)
	NameTaken(ctx context.Context, accountID int64, parentID *int64, name string, excludeID int64) (bool, error)
	Rename(ctx context.Context, id int64, name string) error
	SetParent(ctx context.Context, id int64, parentID *int64) error
	Delete(ctx context.Context, id int64) error
	Search(ctx context.Context, accountID int64, query string, limit int) ([]domain.Folder, error)
}

type FileRepository interface {
	Create(ctx context.Context, file *domain.File) error
	GetByID(ctx context.Context, id int64) (*domain.File, error)
	GetByPublicToken(ctx context.Context, token string) (*domain.File, error)
	ListByFolder(ctx context.Context, accountID int64, folderID *int64) ([]domain.File, error)
	// ListByAccount возвращает все файлы аккаунта, новые первыми
	ListByAccount(ctx context.Context, accountID int64) ([]domain.File, error)
	NameTaken(ctx context.Context, accountID int64, folderID *int64, name string, excludeID int64) (bool, error)
	Rename(ctx context.Context, id int64, name string) error
	SetFolder(ctx context.Context, id int64, folderID *int64) error
	SetVisibility(ctx context.Context, id int64, isPublic bool, token *string) error
	Delete(ctx context.Context, id int64) error
	SumSizes(ctx context.Context, accountID int64) (int64, error)
	Search(ctx context.Context, accountID int64, query string, limit int) ([]domain.File, error)
}

type ShareRepository interface {
	Create(ctx context.Context, grant *domain.ShareGrant) error
	GetByID(ctx context.Context, id int64) (*domain.ShareGrant, error)
	ListByFile(ctx context.Context, fileID int64) ([]domain.ShareGrant, error)
	ListByGrantee(ctx context.Context, granteeID int64) ([]domain.ShareGrant, error)
	Delete(ctx context.Context, id int64) error
	DeleteByFile(ctx context.Context, fileID int64) error
}

type ActivityRepository interface {
	Append(ctx context.Context, record *domain.ActivityRecord) error
	ListRecent(ctx context.Context, limit int) ([]domain.ActivityRecord, error)
}

// Tx - набор репозиториев одной единицы работы
type Tx interface {
	Accounts() AccountRepository
	Folders() FolderRepository
	Files() FileRepository
	Shares() ShareRepository
	Activity() ActivityRepository
}

// Store дает доступ к репозиториям вне транзакции и открывает транзакции.
// Ошибка fn откатывает все изменения, сделанные через tx.
type Store interface {
	Tx
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
