package domain

import "time"

// Account - учетная запись владельца файлов с квотой хранилища
type Account struct {
	ID           int64      `json:"id" db:"id"`
	Username     string     `json:"username" db:"username"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	IsAdmin      bool       `json:"is_admin" db:"is_admin"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	StorageUsed  int64      `json:"storage_used" db:"storage_used"`
	StorageLimit int64      `json:"storage_limit" db:"storage_limit"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty" db:"last_login"`
}

// Available возвращает количество свободных байт
func (a *Account) Available() int64 {
	if a.StorageUsed >= a.StorageLimit {
		return 0
	}
	return a.StorageLimit - a.StorageUsed
}

// Fits сообщает, поместятся ли ещё size байт в квоту. Сравнение идет с
// остатком, чтобы огромный size не переполнял сумму
func (a *Account) Fits(size int64) bool {
	return size <= a.StorageLimit-a.StorageUsed
}

type CreateAccountRequest struct {
	Username     string `json:"username"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	IsAdmin      bool   `json:"is_admin"`
	StorageLimit int64  `json:"storage_limit"`
}

// UpdateAccountRequest - правка аккаунта администратором; лимит меняется
// отдельно через квоту
type UpdateAccountRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	IsAdmin  bool   `json:"is_admin"`
	IsActive bool   `json:"is_active"`
}

// AccountStorage - все папки и файлы аккаунта для просмотра администратором
type AccountStorage struct {
	Account *Account   `json:"account"`
	Quota   *QuotaInfo `json:"quota"`
	Folders []Folder   `json:"folders"`
	Files   []File     `json:"files"`
}
