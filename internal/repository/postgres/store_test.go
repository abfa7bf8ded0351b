package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clouddrive/internal/domain"
	"clouddrive/internal/repository"
)

func TestStore_WithTx(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(mock sqlmock.Sqlmock)
		fn      func(ctx context.Context, tx repository.Tx) error
		wantErr error
	}{
		{
			name: "успешная транзакция коммитится",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("DELETE FROM folders").
					WithArgs(int64(3)).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
			fn: func(ctx context.Context, tx repository.Tx) error {
				return tx.Folders().Delete(ctx, 3)
			},
		},
		{
			name: "доменная ошибка откатывает и возвращается как есть",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectRollback()
			},
			fn: func(ctx context.Context, tx repository.Tx) error {
				return fmt.Errorf("%w: 10 > 5", domain.ErrQuotaExceeded)
			},
			wantErr: domain.ErrQuotaExceeded,
		},
		{
			name: "прочая ошибка оборачивается в ErrTransactionFailed",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectRollback()
			},
			fn: func(ctx context.Context, tx repository.Tx) error {
				return errors.New("connection reset")
			},
			wantErr: domain.ErrTransactionFailed,
		},
		{
			name: "ошибка коммита",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectCommit().WillReturnError(errors.New("serialization failure"))
			},
			fn: func(ctx context.Context, tx repository.Tx) error {
				return nil
			},
			wantErr: domain.ErrTransactionFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			tt.setup(mock)

			err := NewStore(db).WithTx(context.Background(), tt.fn)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, "%report%", likePattern("report"))
	assert.Equal(t, `%100\%\_done%`, likePattern("100%_done"))
}
