package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"clouddrive/internal/domain"
)

const fileColumns = `id, display_name, storage_key, size_bytes, content_type, folder_id,
            account_id, created_at, updated_at, is_public, public_token`

type FileRepository struct {
	db sqlx.ExtContext
}

func NewFileRepository(db sqlx.ExtContext) *FileRepository {
	return &FileRepository{db: db}
}

func (r *FileRepository) Create(ctx context.Context, file *domain.File) error {
	query := `
        INSERT INTO files (
            display_name, storage_key, size_bytes, content_type,
            folder_id, account_id, is_public, public_token
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id, created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		file.DisplayName,
		file.StorageKey,
		file.SizeBytes,
		file.ContentType,
		file.FolderID,
		file.AccountID,
		file.IsPublic,
		file.PublicToken,
	).Scan(&file.ID, &file.CreatedAt, &file.UpdatedAt)
	if err != nil {
		if isPQError(err, pqUniqueViolation) {
			return fmt.Errorf("%w: storage key or public token collision", domain.ErrDuplicateName)
		}
		return fmt.Errorf("failed to create file: %w", err)
	}
	return nil
}

func (r *FileRepository) GetByID(ctx context.Context, id int64) (*domain.File, error) {
	var file domain.File
	err := sqlx.GetContext(ctx, r.db, &file,
		`SELECT `+fileColumns+` FROM files WHERE id = $1`, id)
	if err != nil {
		return nil, notFound(err, "file", id)
	}
	return &file, nil
}

func (r *FileRepository) GetByPublicToken(ctx context.Context, token string) (*domain.File, error) {
	var file domain.File
	err := sqlx.GetContext(ctx, r.db, &file,
		`SELECT `+fileColumns+` FROM files WHERE public_token = $1 AND is_public = TRUE`, token)
	if err != nil {
		return nil, notFound(err, "public link", "")
	}
	return &file, nil
}

func (r *FileRepository) ListByFolder(ctx context.Context, accountID int64, folderID *int64) ([]domain.File, error) {
	query := `
        SELECT ` + fileColumns + `
        FROM files
        WHERE account_id = $1 AND folder_id IS NOT DISTINCT FROM $2
        ORDER BY display_name`

	files := []domain.File{}
	if err := sqlx.SelectContext(ctx, r.db, &files, query, accountID, folderID); err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	return files, nil
}

func (r *FileRepository) ListByAccount(ctx context.Context, accountID int64) ([]domain.File, error) {
	query := `
        SELECT ` + fileColumns + `
        FROM files
        WHERE account_id = $1
        ORDER BY created_at DESC, id DESC`

	files := []domain.File{}
	if err := sqlx.SelectContext(ctx, r.db, &files, query, accountID); err != nil {
		return nil, fmt.Errorf("failed to list account files: %w", err)
	}
	return files, nil
}

func (r *FileRepository) NameTaken(ctx context.Context, accountID int64, folderID *int64, name string, excludeID int64) (bool, error) {
	query := `
        SELECT EXISTS(
            SELECT 1 FROM files
            WHERE account_id = $1
              AND folder_id IS NOT DISTINCT FROM $2
              AND display_name = $3
              AND id <> $4
        )`

	var exists bool
	if err := sqlx.GetContext(ctx, r.db, &exists, query, accountID, folderID, name, excludeID); err != nil {
		return false, fmt.Errorf("failed to check file name: %w", err)
	}
	return exists, nil
}

func (r *FileRepository) Rename(ctx context.Context, id int64, name string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE files SET display_name = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`, name, id)
	if err != nil {
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return expectOne(res, "file", id)
}

func (r *FileRepository) SetFolder(ctx context.Context, id int64, folderID *int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE files SET folder_id = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`, folderID, id)
	if err != nil {
		return fmt.Errorf("failed to move file: %w", err)
	}
	return expectOne(res, "file", id)
}

// SetVisibility меняет флаг и токен одним UPDATE, поэтому старая ссылка
// перестает работать в момент коммита
func (r *FileRepository) SetVisibility(ctx context.Context, id int64, isPublic bool, token *string) error {
	query := `
        UPDATE files
        SET is_public = $1, public_token = $2, updated_at = CURRENT_TIMESTAMP
        WHERE id = $3`

	res, err := r.db.ExecContext(ctx, query, isPublic, token, id)
	if err != nil {
		if isPQError(err, pqUniqueViolation) {
			return fmt.Errorf("%w: public token collision", domain.ErrDuplicateName)
		}
		return fmt.Errorf("failed to update visibility: %w", err)
	}
	return expectOne(res, "file", id)
}

func (r *FileRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return expectOne(res, "file", id)
}

func (r *FileRepository) SumSizes(ctx context.Context, accountID int64) (int64, error) {
	var total int64
	err := sqlx.GetContext(ctx, r.db, &total,
		`SELECT COALESCE(SUM(size_bytes), 0) FROM files WHERE account_id = $1`, accountID)
	if err != nil {
		return 0, fmt.Errorf("failed to calculate used space: %w", err)
	}
	return total, nil
}

func (r *FileRepository) Search(ctx context.Context, accountID int64, query string, limit int) ([]domain.File, error) {
	q := `
        SELECT ` + fileColumns + `
        FROM files
        WHERE account_id = $1 AND display_name ILIKE $2
        ORDER BY display_name
        LIMIT $3`

	files := []domain.File{}
	if err := sqlx.SelectContext(ctx, r.db, &files, q, accountID, likePattern(query), limit); err != nil {
		return nil, fmt.Errorf("failed to search files: %w", err)
	}
	return files, nil
}
