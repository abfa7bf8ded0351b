package service

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clouddrive/internal/domain"
	"clouddrive/internal/repository/memory"
	"clouddrive/internal/storage"
)

const testRoot = "/data"

type testEnv struct {
	store    *memory.Store
	fs       afero.Fs
	blobs    *faultyStorage
	quota    *StorageQuotaService
	perms    *PermissionService
	activity *ActivityService
	files    *FileService
	folders  *FolderService
	shares   *ShareService
	accounts *AccountService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	fs := afero.NewMemMapFs()
	local, err := storage.NewLocal(fs, testRoot)
	require.NoError(t, err)

	log := zerolog.Nop()
	env := &testEnv{
		store: memory.NewStore(),
		fs:    fs,
		blobs: &faultyStorage{Storage: local},
	}
	env.quota = NewStorageQuotaService(env.store, log)
	env.perms = NewPermissionService()
	env.activity = NewActivityService(env.store, log)
	env.files = NewFileService(env.store, env.blobs, env.quota, env.perms, env.activity, 0, log)
	env.folders = NewFolderService(env.store, env.blobs, env.quota, env.perms, env.activity, log)
	env.shares = NewShareService(env.store, env.perms, env.activity, log)
	env.accounts = NewAccountService(env.store, env.activity, 1<<20, log)
	return env
}

// faultyStorage позволяет подменить ошибки хранилища блобов
type faultyStorage struct {
	storage.Storage
	putErr    error
	deleteErr error
}

func (f *faultyStorage) Put(ctx context.Context, key string, r io.Reader, contentType string) error {
	if f.putErr != nil {
		return f.putErr
	}
	return f.Storage.Put(ctx, key, r, contentType)
}

func (f *faultyStorage) Delete(ctx context.Context, key string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.Storage.Delete(ctx, key)
}

func (e *testEnv) createAccount(t *testing.T, username string, limit int64) *domain.Account {
	t.Helper()
	account := &domain.Account{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		IsActive:     true,
		StorageLimit: limit,
	}
	require.NoError(t, e.store.Accounts().Create(context.Background(), account))
	return account
}

func (e *testEnv) upload(t *testing.T, accountID int64, folderID *int64, name, content string) *domain.File {
	t.Helper()
	file, err := e.files.Upload(context.Background(), domain.UploadRequest{
		AccountID:    accountID,
		FolderID:     folderID,
		Name:         name,
		DeclaredSize: int64(len(content)),
		Content:      strings.NewReader(content),
	})
	require.NoError(t, err)
	return file
}

func (e *testEnv) mkdir(t *testing.T, accountID int64, parentID *int64, name string) *domain.Folder {
	t.Helper()
	folder, err := e.folders.CreateFolder(context.Background(), accountID, name, parentID)
	require.NoError(t, err)
	return folder
}

func (e *testEnv) used(t *testing.T, accountID int64) int64 {
	t.Helper()
	account, err := e.store.Accounts().GetByID(context.Background(), accountID)
	require.NoError(t, err)
	return account.StorageUsed
}

// assertLedger проверяет, что storage_used равен сумме размеров живых файлов
func (e *testEnv) assertLedger(t *testing.T, accountID int64) {
	t.Helper()
	sum, err := e.store.Files().SumSizes(context.Background(), accountID)
	require.NoError(t, err)
	assert.Equal(t, sum, e.used(t, accountID), "storage_used must match live files")
}

// blobCount считает блобы на диске, пропуская временные файлы
func (e *testEnv) blobCount(t *testing.T) int {
	t.Helper()
	count := 0
	err := afero.Walk(e.fs, testRoot, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && !strings.HasPrefix(info.Name(), ".upload-") {
			count++
		}
		return nil
	})
	require.NoError(t, err)
	return count
}

func int64Ptr(v int64) *int64 {
	return &v
}
