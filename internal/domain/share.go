package domain

import "time"

type Permission string

const (
	PermissionRead  Permission = "read"
	PermissionWrite Permission = "write"
	PermissionAdmin Permission = "admin"
)

func (p Permission) Valid() bool {
	switch p {
	case PermissionRead, PermissionWrite, PermissionAdmin:
		return true
	}
	return false
}

// ShareGrant дает другому аккаунту доступ к одному файлу
type ShareGrant struct {
	ID         int64      `json:"id" db:"id"`
	FileID     int64      `json:"file_id" db:"file_id"`
	GranterID  int64      `json:"granter_id" db:"granter_id"`
	GranteeID  int64      `json:"grantee_id" db:"grantee_id"`
	Permission Permission `json:"permission" db:"permission"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty" db:"expires_at"`
}

// Active проверяет, не истек ли срок действия доступа
func (g *ShareGrant) Active(now time.Time) bool {
	return g.ExpiresAt == nil || now.Before(*g.ExpiresAt)
}

type SharedFile struct {
	File  File       `json:"file"`
	Grant ShareGrant `json:"grant"`
}
