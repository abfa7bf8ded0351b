package domain

import (
	"context"
	"time"
)

const (
	ActionLogin            = "login"
	ActionRegister         = "register"
	ActionUpload           = "upload"
	ActionDownload         = "download"
	ActionDelete           = "delete"
	ActionRename           = "rename"
	ActionMove             = "move"
	ActionCreateFolder     = "create_folder"
	ActionToggleVisibility = "toggle_visibility"
	ActionShare            = "share"
	ActionUnshare          = "unshare"
	ActionAccountCreate    = "account_create"
	ActionAccountDelete    = "account_delete"
	ActionAccountToggle    = "account_toggle"
	ActionPasswordReset    = "password_reset"
	ActionQuotaChange      = "quota_change"
	ActionAccountEdit      = "account_edit"
	ActionUpdateSettings   = "update_settings"

	ResourceFile    = "file"
	ResourceFolder  = "folder"
	ResourceAccount = "account"
	ResourceShare   = "share"
)

// ActivityRecord - запись журнала действий, только на добавление
type ActivityRecord struct {
	ID           int64     `json:"id" db:"id"`
	AccountID    *int64    `json:"account_id,omitempty" db:"account_id"`
	Action       string    `json:"action" db:"action"`
	ResourceType string    `json:"resource_type" db:"resource_type"`
	ResourceID   *int64    `json:"resource_id,omitempty" db:"resource_id"`
	IP           string    `json:"ip" db:"ip"`
	Agent        string    `json:"agent" db:"agent"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// RequestMeta - сведения о клиенте, который инициировал операцию
type RequestMeta struct {
	IP    string
	Agent string
}

type requestMetaKey struct{}

func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

func RequestMetaFrom(ctx context.Context) RequestMeta {
	meta, _ := ctx.Value(requestMetaKey{}).(RequestMeta)
	return meta
}
