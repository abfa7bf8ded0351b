package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"clouddrive/internal/domain"
)

const folderColumns = `id, name, parent_id, account_id, created_at, updated_at`

type FolderRepository struct {
	db sqlx.ExtContext
}

func NewFolderRepository(db sqlx.ExtContext) *FolderRepository {
	return &FolderRepository{db: db}
}

func (r *FolderRepository) Create(ctx context.Context, folder *domain.Folder) error {
	query := `
        INSERT INTO folders (name, parent_id, account_id)
        VALUES ($1, $2, $3)
        RETURNING id, created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		folder.Name,
		folder.ParentID,
		folder.AccountID,
	).Scan(&folder.ID, &folder.CreatedAt, &folder.UpdatedAt)
	if err != nil {
		if isPQError(err, pqUniqueViolation) {
			return fmt.Errorf("%w: folder %q", domain.ErrDuplicateName, folder.Name)
		}
		return fmt.Errorf("failed to create folder: %w", err)
	}
	return nil
}

func (r *FolderRepository) GetByID(ctx context.Context, id int64) (*domain.Folder, error) {
	var folder domain.Folder
	err := sqlx.GetContext(ctx, r.db, &folder,
		`SELECT `+folderColumns+` FROM folders WHERE id = $1`, id)
	if err != nil {
		return nil, notFound(err, "folder", id)
	}
	return &folder, nil
}

// ListChildren возвращает подпапки parentID (nil - корень аккаунта)
func (r *FolderRepository) ListChildren(ctx context.Context, accountID int64, parentID *int64) ([]domain.Folder, error) {
	query := `
        SELECT ` + folderColumns + `
        FROM folders
        WHERE account_id = $1 AND parent_id IS NOT DISTINCT FROM $2
        ORDER BY name`

	folders := []domain.Folder{}
	if err := sqlx.SelectContext(ctx, r.db, &folders, query, accountID, parentID); err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}
	return folders, nil
}

func (r *FolderRepository) ListByAccount(ctx context.Context, accountID int64) ([]domain.Folder, error) {
	folders := []domain.Folder{}
	err := sqlx.SelectContext(ctx, r.db, &folders,
		`SELECT `+folderColumns+` FROM folders WHERE account_id = $1 ORDER BY name, id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list account folders: %w", err)
	}
	return folders, nil
}

func (r *FolderRepository) NameTaken(ctx context.Context, accountID int64, parentID *int64, name string, excludeID int64) (bool, error) {
	query := `
        SELECT EXISTS(
            SELECT 1 FROM folders
            WHERE account_id = $1
              AND parent_id IS NOT DISTINCT FROM $2
              AND name = $3
              AND id <> $4
        )`

	var exists bool
	if err := sqlx.GetContext(ctx, r.db, &exists, query, accountID, parentID, name, excludeID); err != nil {
		return false, fmt.Errorf("failed to check folder name: %w", err)
	}
	return exists, nil
}

func (r *FolderRepository) Rename(ctx context.Context, id int64, name string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE folders SET name = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`, name, id)
	if err != nil {
		if isPQError(err, pqUniqueViolation) {
			return fmt.Errorf("%w: folder %q", domain.ErrDuplicateName, name)
		}
		return fmt.Errorf("failed to rename folder: %w", err)
	}
	return expectOne(res, "folder", id)
}

func (r *FolderRepository) SetParent(ctx context.Context, id int64, parentID *int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE folders SET parent_id = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`, parentID, id)
	if err != nil {
		if isPQError(err, pqUniqueViolation) {
			return fmt.Errorf("%w: target already contains a folder with this name", domain.ErrDuplicateName)
		}
		return fmt.Errorf("failed to move folder: %w", err)
	}
	return expectOne(res, "folder", id)
}

func (r *FolderRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM folders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete folder: %w", err)
	}
	return expectOne(res, "folder", id)
}

func (r *FolderRepository) Search(ctx context.Context, accountID int64, query string, limit int) ([]domain.Folder, error) {
	q := `
        SELECT ` + folderColumns + `
        FROM folders
        WHERE account_id = $1 AND name ILIKE $2
        ORDER BY name
        LIMIT $3`

	folders := []domain.Folder{}
	if err := sqlx.SelectContext(ctx, r.db, &folders, q, accountID, likePattern(query), limit); err != nil {
		return nil, fmt.Errorf("failed to search folders: %w", err)
	}
	return folders, nil
}
