package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"clouddrive/internal/domain"
)

const accountColumns = `id, username, email, password_hash, is_admin, is_active,
            storage_used, storage_limit, created_at, last_login`

type AccountRepository struct {
	db sqlx.ExtContext
}

func NewAccountRepository(db sqlx.ExtContext) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	query := `
        INSERT INTO accounts (username, email, password_hash, is_admin, is_active, storage_limit)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, storage_used, created_at`

	err := r.db.QueryRowxContext(ctx, query,
		account.Username,
		account.Email,
		account.PasswordHash,
		account.IsAdmin,
		account.IsActive,
		account.StorageLimit,
	).Scan(&account.ID, &account.StorageUsed, &account.CreatedAt)
	if err != nil {
		if isPQError(err, pqUniqueViolation) {
			return fmt.Errorf("%w: username or email is already registered", domain.ErrDuplicateName)
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*domain.Account, error) {
	var account domain.Account
	err := sqlx.GetContext(ctx, r.db, &account,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	if err != nil {
		return nil, notFound(err, "account", id)
	}
	return &account, nil
}

func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	var account domain.Account
	err := sqlx.GetContext(ctx, r.db, &account,
		`SELECT `+accountColumns+` FROM accounts WHERE username = $1`, username)
	if err != nil {
		return nil, notFound(err, "account", username)
	}
	return &account, nil
}

func (r *AccountRepository) List(ctx context.Context) ([]domain.Account, error) {
	accounts := []domain.Account{}
	err := sqlx.SelectContext(ctx, r.db, &accounts,
		`SELECT `+accountColumns+` FROM accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

// Lock берет строку аккаунта FOR UPDATE: до конца транзакции остальные
// изменения квоты этого аккаунта ждут
func (r *AccountRepository) Lock(ctx context.Context, id int64) (*domain.Account, error) {
	var account domain.Account
	err := sqlx.GetContext(ctx, r.db, &account,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		return nil, notFound(err, "account", id)
	}
	return &account, nil
}

func (r *AccountRepository) AdjustStorageUsed(ctx context.Context, id int64, delta int64) (*domain.Account, error) {
	query := `
        UPDATE accounts
        SET storage_used = storage_used + $1
        WHERE id = $2
        RETURNING ` + accountColumns

	var account domain.Account
	err := sqlx.GetContext(ctx, r.db, &account, query, delta, id)
	if err != nil {
		if isPQError(err, pqCheckViolation) {
			return nil, fmt.Errorf("%w: storage usage of account %d would become negative", domain.ErrTransactionFailed, id)
		}
		return nil, notFound(err, "account", id)
	}
	return &account, nil
}

func (r *AccountRepository) UpdateStorageLimit(ctx context.Context, id int64, limit int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET storage_limit = $1 WHERE id = $2`, limit, id)
	if err != nil {
		return fmt.Errorf("failed to update storage limit: %w", err)
	}
	return expectOne(res, "account", id)
}

func (r *AccountRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET password_hash = $1 WHERE id = $2`, passwordHash, id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return expectOne(res, "account", id)
}

func (r *AccountRepository) UpdateProfile(ctx context.Context, account *domain.Account) error {
	query := `
        UPDATE accounts
        SET username = $1, email = $2, is_admin = $3, is_active = $4
        WHERE id = $5`

	res, err := r.db.ExecContext(ctx, query,
		account.Username,
		account.Email,
		account.IsAdmin,
		account.IsActive,
		account.ID,
	)
	if err != nil {
		if isPQError(err, pqUniqueViolation) {
			return fmt.Errorf("%w: username or email is already registered", domain.ErrDuplicateName)
		}
		return fmt.Errorf("failed to update account: %w", err)
	}
	return expectOne(res, "account", account.ID)
}

func (r *AccountRepository) SetActive(ctx context.Context, id int64, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET is_active = $1 WHERE id = $2`, active, id)
	if err != nil {
		return fmt.Errorf("failed to update account status: %w", err)
	}
	return expectOne(res, "account", id)
}

func (r *AccountRepository) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET last_login = $1 WHERE id = $2`, at, id)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return expectOne(res, "account", id)
}

func (r *AccountRepository) CountOwned(ctx context.Context, id int64) (int64, int64, error) {
	query := `
        SELECT
            (SELECT COUNT(*) FROM files WHERE account_id = $1) AS files,
            (SELECT COUNT(*) FROM folders WHERE account_id = $1) AS folders`

	var files, folders int64
	if err := r.db.QueryRowxContext(ctx, query, id).Scan(&files, &folders); err != nil {
		return 0, 0, fmt.Errorf("failed to count account resources: %w", err)
	}
	return files, folders, nil
}

func (r *AccountRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return expectOne(res, "account", id)
}
