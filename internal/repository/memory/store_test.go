package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clouddrive/internal/domain"
	"clouddrive/internal/repository"
)

func newAccount(t *testing.T, s *Store, username string, limit int64) *domain.Account {
	t.Helper()
	a := &domain.Account{Username: username, Email: username + "@example.com", IsActive: true, StorageLimit: limit}
	require.NoError(t, s.Accounts().Create(context.Background(), a))
	return a
}

func TestStore_RollbackRestoresState(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	acc := newAccount(t, s, "alice", 1000)

	root := &domain.Folder{Name: "Документы", AccountID: acc.ID}
	require.NoError(t, s.Folders().Create(ctx, root))

	file := &domain.File{DisplayName: "a.txt", StorageKey: "k1", SizeBytes: 100, AccountID: acc.ID, FolderID: &root.ID}
	require.NoError(t, s.Files().Create(ctx, file))

	err := s.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.Accounts().Lock(ctx, acc.ID); err != nil {
			return err
		}
		if err := tx.Files().Delete(ctx, file.ID); err != nil {
			return err
		}
		if err := tx.Folders().Delete(ctx, root.ID); err != nil {
			return err
		}
		if err := tx.Folders().Create(ctx, &domain.Folder{Name: "Новая", AccountID: acc.ID}); err != nil {
			return err
		}
		if _, err := tx.Accounts().AdjustStorageUsed(ctx, acc.ID, 50); err != nil {
			return err
		}
		return errors.New("boom")
	})
	require.ErrorIs(t, err, domain.ErrTransactionFailed)

	_, err = s.Files().GetByID(ctx, file.ID)
	assert.NoError(t, err)
	_, err = s.Folders().GetByID(ctx, root.ID)
	assert.NoError(t, err)

	roots, err := s.Folders().ListChildren(ctx, acc.ID, nil)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, "Документы", roots[0].Name)

	got, err := s.Accounts().GetByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.StorageUsed)
}

func TestStore_KnownErrorsPassThrough(t *testing.T) {
	s := NewStore()
	err := s.WithTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		return fmt.Errorf("%w: folder 1", domain.ErrNotFound)
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NotErrorIs(t, err, domain.ErrTransactionFailed)
}

func TestStore_PanicRollsBack(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	acc := newAccount(t, s, "alice", 1000)

	assert.Panics(t, func() {
		_ = s.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			_, _ = tx.Accounts().Lock(ctx, acc.ID)
			_, _ = tx.Accounts().AdjustStorageUsed(ctx, acc.ID, 10)
			panic("unexpected")
		})
	})

	got, err := s.Accounts().GetByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.StorageUsed)

	// блокировка аккаунта освобождена
	err = s.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		_, err := tx.Accounts().Lock(ctx, acc.ID)
		return err
	})
	assert.NoError(t, err)
}

func TestStore_AccountLockSerializes(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	acc := newAccount(t, s, "alice", 1_000_000)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
				a, err := tx.Accounts().Lock(ctx, acc.ID)
				if err != nil {
					return err
				}
				// чтение-изменение-запись под блокировкой аккаунта
				time.Sleep(time.Millisecond)
				return tx.Accounts().UpdateStorageLimit(ctx, acc.ID, a.StorageLimit+1)
			})
		}()
	}
	wg.Wait()

	got, err := s.Accounts().GetByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_020), got.StorageLimit)
}

func TestStore_DifferentAccountsDoNotBlock(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	alice := newAccount(t, s, "alice", 1000)
	bob := newAccount(t, s, "bob", 1000)

	locked := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = s.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			if _, err := tx.Accounts().Lock(ctx, alice.ID); err != nil {
				return err
			}
			close(locked)
			<-release
			return nil
		})
	}()
	<-locked
	defer close(release)

	done := make(chan error, 1)
	go func() {
		done <- s.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			_, err := tx.Accounts().Lock(ctx, bob.ID)
			return err
		})
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("lock on another account blocked")
	}
}

func TestStore_UniqueConstraints(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	acc := newAccount(t, s, "alice", 1000)

	err := s.Accounts().Create(ctx, &domain.Account{Username: "alice", Email: "other@example.com"})
	assert.ErrorIs(t, err, domain.ErrDuplicateName)

	require.NoError(t, s.Folders().Create(ctx, &domain.Folder{Name: "Фото", AccountID: acc.ID}))
	err = s.Folders().Create(ctx, &domain.Folder{Name: "Фото", AccountID: acc.ID})
	assert.ErrorIs(t, err, domain.ErrDuplicateName)

	require.NoError(t, s.Files().Create(ctx, &domain.File{DisplayName: "a", StorageKey: "same", AccountID: acc.ID}))
	err = s.Files().Create(ctx, &domain.File{DisplayName: "b", StorageKey: "same", AccountID: acc.ID})
	assert.ErrorIs(t, err, domain.ErrDuplicateName)
}

func TestStore_FolderDeleteRequiresEmpty(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	acc := newAccount(t, s, "alice", 1000)

	parent := &domain.Folder{Name: "a", AccountID: acc.ID}
	require.NoError(t, s.Folders().Create(ctx, parent))
	require.NoError(t, s.Folders().Create(ctx, &domain.Folder{Name: "b", AccountID: acc.ID, ParentID: &parent.ID}))

	assert.Error(t, s.Folders().Delete(ctx, parent.ID))
}
