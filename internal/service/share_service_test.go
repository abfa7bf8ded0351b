package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clouddrive/internal/domain"
)

func TestShareService_Grant(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	owner := env.createAccount(t, "alice", 1<<20)
	friend := env.createAccount(t, "bob", 1<<20)
	stranger := env.createAccount(t, "carol", 1<<20)
	file := env.upload(t, owner.ID, nil, "a.txt", "x")
	past := time.Now().Add(-time.Hour)

	tests := []struct {
		name       string
		granterID  int64
		fileID     int64
		grantee    string
		permission domain.Permission
		expiresAt  *time.Time
		wantErr    error
	}{
		{"неизвестное право", owner.ID, file.ID, friend.Username, "owner", nil, domain.ErrInvalidArgument},
		{"срок в прошлом", owner.ID, file.ID, friend.Username, domain.PermissionRead, &past, domain.ErrInvalidArgument},
		{"самому себе", owner.ID, file.ID, owner.Username, domain.PermissionRead, nil, domain.ErrInvalidArgument},
		{"нет получателя", owner.ID, file.ID, "nobody", domain.PermissionRead, nil, domain.ErrNotFound},
		{"нет файла", owner.ID, 9999, friend.Username, domain.PermissionRead, nil, domain.ErrNotFound},
		{"не владелец", stranger.ID, file.ID, friend.Username, domain.PermissionRead, nil, domain.ErrForbidden},
		{"успешно", owner.ID, file.ID, friend.Username, domain.PermissionRead, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grant, err := env.shares.Grant(ctx, tt.granterID, tt.fileID, tt.grantee, tt.permission, tt.expiresAt)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, friend.ID, grant.GranteeID)
			assert.Equal(t, owner.ID, grant.GranterID)
		})
	}
}

func TestShareService_RegrantReplaces(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	owner := env.createAccount(t, "dave", 1<<20)
	friend := env.createAccount(t, "erin", 1<<20)
	file := env.upload(t, owner.ID, nil, "a.txt", "x")

	_, err := env.shares.Grant(ctx, owner.ID, file.ID, friend.Username, domain.PermissionRead, nil)
	require.NoError(t, err)
	_, err = env.shares.Grant(ctx, owner.ID, file.ID, friend.Username, domain.PermissionAdmin, nil)
	require.NoError(t, err)

	grants, err := env.shares.ListForFile(ctx, owner.ID, file.ID)
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.Equal(t, domain.PermissionAdmin, grants[0].Permission)

	// admin может просматривать доступы, read - нет
	_, err = env.shares.ListForFile(ctx, friend.ID, file.ID)
	require.NoError(t, err)
}

func TestShareService_SharedWithMe(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	owner := env.createAccount(t, "frank", 1<<20)
	friend := env.createAccount(t, "grace", 1<<20)
	active := env.upload(t, owner.ID, nil, "active.txt", "1")
	expiring := env.upload(t, owner.ID, nil, "expiring.txt", "2")

	_, err := env.shares.Grant(ctx, owner.ID, active.ID, friend.Username, domain.PermissionRead, nil)
	require.NoError(t, err)
	soon := time.Now().Add(time.Minute)
	_, err = env.shares.Grant(ctx, owner.ID, expiring.ID, friend.Username, domain.PermissionRead, &soon)
	require.NoError(t, err)

	shared, err := env.shares.SharedWithMe(ctx, friend.ID)
	require.NoError(t, err)
	assert.Len(t, shared, 2)

	env.shares.now = func() time.Time { return soon.Add(time.Second) }
	shared, err = env.shares.SharedWithMe(ctx, friend.ID)
	require.NoError(t, err)
	require.Len(t, shared, 1)
	assert.Equal(t, "active.txt", shared[0].File.DisplayName)

	env.perms.now = env.shares.now
	_, _, err = env.files.Open(ctx, friend.ID, expiring.ID, OperationView)
	require.ErrorIs(t, err, domain.ErrForbidden)
}

func TestShareService_Revoke(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	owner := env.createAccount(t, "heidi", 1<<20)
	friend := env.createAccount(t, "ivan", 1<<20)
	stranger := env.createAccount(t, "judy", 1<<20)
	file := env.upload(t, owner.ID, nil, "a.txt", "x")

	grant, err := env.shares.Grant(ctx, owner.ID, file.ID, friend.Username, domain.PermissionRead, nil)
	require.NoError(t, err)

	require.ErrorIs(t, env.shares.Revoke(ctx, stranger.ID, grant.ID), domain.ErrForbidden)
	require.NoError(t, env.shares.Revoke(ctx, owner.ID, grant.ID))
	require.ErrorIs(t, env.shares.Revoke(ctx, owner.ID, grant.ID), domain.ErrNotFound)

	_, _, err = env.files.Open(ctx, friend.ID, file.ID, OperationView)
	require.ErrorIs(t, err, domain.ErrForbidden)
}

func TestCheckAccessLevel(t *testing.T) {
	tests := []struct {
		permission domain.Permission
		operation  OperationType
		want       bool
	}{
		{domain.PermissionRead, OperationView, true},
		{domain.PermissionRead, OperationDownload, true},
		{domain.PermissionRead, OperationRename, false},
		{domain.PermissionRead, OperationShare, false},
		{domain.PermissionWrite, OperationRename, true},
		{domain.PermissionWrite, OperationShare, false},
		{domain.PermissionAdmin, OperationShare, true},
		{"unknown", OperationView, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.permission)+"/"+string(tt.operation), func(t *testing.T) {
			assert.Equal(t, tt.want, checkAccessLevel(tt.permission, tt.operation))
		})
	}
}
