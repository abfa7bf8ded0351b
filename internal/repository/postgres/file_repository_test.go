package postgres

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clouddrive/internal/domain"
)

var fileRowColumns = []string{
	"id", "display_name", "storage_key", "size_bytes", "content_type", "folder_id",
	"account_id", "created_at", "updated_at", "is_public", "public_token",
}

func TestFileRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO files (")).
		WithArgs("отчет.pdf", "1/abc", int64(600), "application/pdf", int64(4), int64(1), false, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(11), now, now))

	file := &domain.File{
		DisplayName: "отчет.pdf",
		StorageKey:  "1/abc",
		SizeBytes:   600,
		ContentType: "application/pdf",
		FolderID:    int64Ptr(4),
		AccountID:   1,
	}
	require.NoError(t, NewFileRepository(db).Create(context.Background(), file))
	assert.Equal(t, int64(11), file.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFileRepository_GetByPublicToken(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewFileRepository(db)
	now := time.Now()
	token := "f3a9"

	mock.ExpectQuery(regexp.QuoteMeta("WHERE public_token = $1 AND is_public = TRUE")).
		WithArgs(token).
		WillReturnRows(sqlmock.NewRows(fileRowColumns).
			AddRow(int64(11), "отчет.pdf", "1/abc", int64(600), "application/pdf", nil, int64(1), now, now, true, token))

	file, err := repo.GetByPublicToken(context.Background(), token)
	require.NoError(t, err)
	assert.True(t, file.IsPublic)
	require.NotNil(t, file.PublicToken)
	assert.Equal(t, token, *file.PublicToken)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE public_token = $1 AND is_public = TRUE")).
		WithArgs("stale").
		WillReturnError(sql.ErrNoRows)

	_, err = repo.GetByPublicToken(context.Background(), "stale")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFileRepository_SetVisibility(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta("SET is_public = $1, public_token = $2")).
		WithArgs(false, nil, int64(11)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewFileRepository(db).SetVisibility(context.Background(), 11, false, nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFileRepository_SumSizes(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(size_bytes), 0) FROM files")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(int64(1100)))

	total, err := NewFileRepository(db).SumSizes(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1100), total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFileRepository_ListByAccount(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE account_id = $1 ORDER BY created_at DESC, id DESC")).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows(fileRowColumns).
			AddRow(int64(9), "new.txt", "4/b", int64(3), "text/plain", int64(2), int64(4), now, now, false, nil).
			AddRow(int64(8), "old.txt", "4/a", int64(5), "text/plain", nil, int64(4), now.Add(-time.Hour), now, false, nil))

	files, err := NewFileRepository(db).ListByAccount(context.Background(), 4)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "new.txt", files[0].DisplayName)
	assert.Equal(t, int64Ptr(2), files[0].FolderID)
	assert.Nil(t, files[1].FolderID)
	require.NoError(t, mock.ExpectationsWereMet())
}
