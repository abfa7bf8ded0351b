// Package postgres реализует хранилище метаданных поверх PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"clouddrive/internal/domain"
	"clouddrive/internal/repository"
)

const (
	pqUniqueViolation = "23505"
	pqCheckViolation  = "23514"
)

type Store struct {
	db *sqlx.DB
	repos
}

var _ repository.Store = (*Store)(nil)

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db, repos: newRepos(db)}
}

// WithTx выполняет fn в одной транзакции. Любая ошибка fn откатывает
// транзакцию; необработанные ошибки базы превращаются в ErrTransactionFailed.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %w", domain.ErrTransactionFailed, err)
	}
	defer tx.Rollback()

	if err := fn(ctx, newRepos(tx)); err != nil {
		if domain.IsKnown(err) {
			return err
		}
		return fmt.Errorf("%w: %w", domain.ErrTransactionFailed, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit transaction: %w", domain.ErrTransactionFailed, err)
	}
	return nil
}

// repos собирает репозитории над *sqlx.DB или *sqlx.Tx
type repos struct {
	accounts *AccountRepository
	folders  *FolderRepository
	files    *FileRepository
	shares   *ShareRepository
	activity *ActivityRepository
}

func newRepos(db sqlx.ExtContext) repos {
	return repos{
		accounts: NewAccountRepository(db),
		folders:  NewFolderRepository(db),
		files:    NewFileRepository(db),
		shares:   NewShareRepository(db),
		activity: NewActivityRepository(db),
	}
}

func (r repos) Accounts() repository.AccountRepository { return r.accounts }
func (r repos) Folders() repository.FolderRepository { return r.folders }
func (r repos) Files() repository.FileRepository { return r.files }
func (r repos) Shares() repository.ShareRepository { return r.shares }
func (r repos) Activity() repository.ActivityRepository { return r.activity }

func isPQError(err error, code pq.ErrorCode) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == code
}

// notFound переводит sql.ErrNoRows в доменную ошибку
func notFound(err error, what string, id any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s %v", domain.ErrNotFound, what, id)
	}
	return fmt.Errorf("failed to get %s: %w", what, err)
}

// expectOne проверяет, что запрос затронул ровно одну строку
func expectOne(res sql.Result, what string, id int64) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s %d", domain.ErrNotFound, what, id)
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern строит шаблон ILIKE для поиска подстроки
func likePattern(query string) string {
	return "%" + likeEscaper.Replace(query) + "%"
}
