package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clouddrive/internal/domain"
)

func TestAccountService_CreateAccount_Validation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	_, err := env.accounts.Register(ctx, "taken", "taken@example.com", "secret1")
	require.NoError(t, err)

	tests := []struct {
		name    string
		req     domain.CreateAccountRequest
		wantErr error
	}{
		{"короткий логин", domain.CreateAccountRequest{Username: "ab", Email: "a@b.c", Password: "secret1"}, domain.ErrInvalidArgument},
		{"email без @", domain.CreateAccountRequest{Username: "alice", Email: "alice.example.com", Password: "secret1"}, domain.ErrInvalidArgument},
		{"короткий пароль", domain.CreateAccountRequest{Username: "alice", Email: "a@b.c", Password: "12345"}, domain.ErrInvalidArgument},
		{"отрицательный лимит", domain.CreateAccountRequest{Username: "alice", Email: "a@b.c", Password: "secret1", StorageLimit: -1}, domain.ErrInvalidArgument},
		{"логин занят", domain.CreateAccountRequest{Username: "taken", Email: "x@b.c", Password: "secret1"}, domain.ErrDuplicateName},
		{"email занят", domain.CreateAccountRequest{Username: "other", Email: "taken@example.com", Password: "secret1"}, domain.ErrDuplicateName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.accounts.CreateAccount(ctx, tt.req)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAccountService_Register(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	account, err := env.accounts.Register(ctx, " alice ", "alice@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "alice", account.Username)
	assert.False(t, account.IsAdmin)
	assert.True(t, account.IsActive)
	assert.Equal(t, int64(1<<20), account.StorageLimit)
	assert.NotEqual(t, "secret1", account.PasswordHash)

	admin, err := env.accounts.CreateAccount(ctx, domain.CreateAccountRequest{
		Username:     "root",
		Email:        "root@example.com",
		Password:     "secret1",
		IsAdmin:      true,
		StorageLimit: 42,
	})
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin)
	assert.Equal(t, int64(42), admin.StorageLimit)
}

func TestAccountService_VerifyCredentials(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	admin, err := env.accounts.CreateAccount(ctx, domain.CreateAccountRequest{
		Username: "admin", Email: "admin@example.com", Password: "secret1", IsAdmin: true,
	})
	require.NoError(t, err)
	user, err := env.accounts.Register(ctx, "alice", "alice@example.com", "secret1")
	require.NoError(t, err)

	account, err := env.accounts.VerifyCredentials(ctx, "alice", "secret1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, account.ID)
	assert.NotNil(t, account.LastLogin)

	_, err = env.accounts.VerifyCredentials(ctx, "alice", "wrong")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = env.accounts.VerifyCredentials(ctx, "nobody", "secret1")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)

	toggled, err := env.accounts.ToggleStatus(ctx, admin.ID, user.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsActive)

	_, err = env.accounts.VerifyCredentials(ctx, "alice", "secret1")
	require.ErrorIs(t, err, domain.ErrForbidden)

	_, err = env.accounts.ToggleStatus(ctx, admin.ID, admin.ID)
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestAccountService_ResetPassword(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	user, err := env.accounts.Register(ctx, "alice", "alice@example.com", "secret1")
	require.NoError(t, err)

	password, err := env.accounts.ResetPassword(ctx, 1, user.ID)
	require.NoError(t, err)
	assert.Len(t, password, 12)

	_, err = env.accounts.VerifyCredentials(ctx, "alice", "secret1")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = env.accounts.VerifyCredentials(ctx, "alice", password)
	require.NoError(t, err)

	_, err = env.accounts.ResetPassword(ctx, 1, 9999)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAccountService_DeleteAccount(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	admin := env.createAccount(t, "admin", 1<<20)
	user := env.createAccount(t, "alice", 1<<20)
	file := env.upload(t, user.ID, nil, "a.txt", "x")

	require.ErrorIs(t, env.accounts.DeleteAccount(ctx, admin.ID, admin.ID), domain.ErrInvalidArgument)
	require.ErrorIs(t, env.accounts.DeleteAccount(ctx, admin.ID, user.ID), domain.ErrResourceNotEmpty)

	require.NoError(t, env.files.DeleteFile(ctx, user.ID, file.ID))
	env.mkdir(t, user.ID, nil, "left")
	require.ErrorIs(t, env.accounts.DeleteAccount(ctx, admin.ID, user.ID), domain.ErrResourceNotEmpty)

	contents, err := env.folders.ListChildren(ctx, user.ID, nil)
	require.NoError(t, err)
	_, err = env.folders.DeleteFolder(ctx, user.ID, contents.Folders[0].ID)
	require.NoError(t, err)

	require.NoError(t, env.accounts.DeleteAccount(ctx, admin.ID, user.ID))
	_, err = env.accounts.GetAccount(ctx, user.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)

	accounts, err := env.accounts.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "admin", accounts[0].Username)
}

func TestActivityService_RecordsRequestMeta(t *testing.T) {
	ctx := domain.WithRequestMeta(context.Background(), domain.RequestMeta{IP: "10.0.0.1", Agent: "curl/8.0"})
	env := newTestEnv(t)
	acc := env.createAccount(t, "alice", 1<<20)

	folder, err := env.folders.CreateFolder(ctx, acc.ID, "docs", nil)
	require.NoError(t, err)

	records, err := env.activity.ListRecent(ctx, 0)
	require.NoError(t, err)
	require.NotEmpty(t, records)

	last := records[0]
	assert.Equal(t, domain.ActionCreateFolder, last.Action)
	assert.Equal(t, domain.ResourceFolder, last.ResourceType)
	require.NotNil(t, last.ResourceID)
	assert.Equal(t, folder.ID, *last.ResourceID)
	assert.Equal(t, "10.0.0.1", last.IP)
	assert.Equal(t, "curl/8.0", last.Agent)
}

func TestAccountService_UpdateSettings(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		current     string
		email       string
		newPassword string
		wantErr     error
		wantEmail   string
		loginWith   string
	}{
		{"смена email", "secret1", "alice@new.example.com", "", nil, "alice@new.example.com", "secret1"},
		{"смена пароля", "secret1", "", "secret2", nil, "alice@example.com", "secret2"},
		{"неверный текущий пароль", "wrong", "alice@new.example.com", "", domain.ErrInvalidCredentials, "alice@example.com", "secret1"},
		{"короткий новый пароль", "secret1", "", "123", domain.ErrInvalidArgument, "alice@example.com", "secret1"},
		{"email без @", "secret1", "alice.example.com", "", domain.ErrInvalidArgument, "alice@example.com", "secret1"},
		{"email занят", "secret1", "bob@example.com", "", domain.ErrDuplicateName, "alice@example.com", "secret1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			user, err := env.accounts.Register(ctx, "alice", "alice@example.com", "secret1")
			require.NoError(t, err)
			_, err = env.accounts.Register(ctx, "bob", "bob@example.com", "secret1")
			require.NoError(t, err)

			_, err = env.accounts.UpdateSettings(ctx, user.ID, tt.current, tt.email, tt.newPassword)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			stored, err := env.accounts.GetAccount(ctx, user.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantEmail, stored.Email)

			_, err = env.accounts.VerifyCredentials(ctx, "alice", tt.loginWith)
			require.NoError(t, err)
		})
	}
}

func TestAccountService_UpdateAccount(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	admin := env.createAccount(t, "admin", 1<<20)
	user := env.createAccount(t, "alice", 1<<20)
	env.createAccount(t, "bob", 1<<20)

	tests := []struct {
		name      string
		actorID   int64
		accountID int64
		req       domain.UpdateAccountRequest
		wantErr   error
	}{
		{"правка себя", admin.ID, admin.ID, domain.UpdateAccountRequest{Username: "admin", Email: "admin@example.com"}, domain.ErrInvalidArgument},
		{"короткий логин", admin.ID, user.ID, domain.UpdateAccountRequest{Username: "al", Email: "alice@example.com", IsActive: true}, domain.ErrInvalidArgument},
		{"email без @", admin.ID, user.ID, domain.UpdateAccountRequest{Username: "alice", Email: "alice", IsActive: true}, domain.ErrInvalidArgument},
		{"логин занят", admin.ID, user.ID, domain.UpdateAccountRequest{Username: "bob", Email: "alice@example.com", IsActive: true}, domain.ErrDuplicateName},
		{"нет аккаунта", admin.ID, 9999, domain.UpdateAccountRequest{Username: "ghost", Email: "ghost@example.com"}, domain.ErrNotFound},
		{"повышение и отключение", admin.ID, user.ID, domain.UpdateAccountRequest{Username: " alicia ", Email: "alicia@example.com", IsAdmin: true}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			account, err := env.accounts.UpdateAccount(ctx, tt.actorID, tt.accountID, tt.req)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "alicia", account.Username)

			stored, err := env.accounts.GetAccount(ctx, tt.accountID)
			require.NoError(t, err)
			assert.Equal(t, "alicia@example.com", stored.Email)
			assert.True(t, stored.IsAdmin)
			assert.False(t, stored.IsActive)
			assert.Equal(t, int64(1<<20), stored.StorageLimit)
		})
	}
}

func TestAccountService_AccountStorage(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	user := env.createAccount(t, "alice", 100)
	other := env.createAccount(t, "bob", 100)
	dir := env.mkdir(t, user.ID, nil, "docs")
	env.upload(t, user.ID, nil, "a.txt", "abc")
	env.upload(t, user.ID, &dir.ID, "b.txt", "de")
	env.upload(t, other.ID, nil, "c.txt", "f")

	view, err := env.accounts.AccountStorage(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", view.Account.Username)
	assert.Equal(t, int64(5), view.Quota.UsedSpace)
	assert.Equal(t, int64(95), view.Quota.AvailableSpace)
	require.Len(t, view.Folders, 1)
	assert.Equal(t, "docs", view.Folders[0].Name)
	require.Len(t, view.Files, 2)
	for _, f := range view.Files {
		assert.Equal(t, user.ID, f.AccountID)
	}

	empty := env.createAccount(t, "carol", 100)
	view, err = env.accounts.AccountStorage(ctx, empty.ID)
	require.NoError(t, err)
	assert.NotNil(t, view.Folders)
	assert.NotNil(t, view.Files)

	_, err = env.accounts.AccountStorage(ctx, 9999)
	require.ErrorIs(t, err, domain.ErrNotFound)
}
