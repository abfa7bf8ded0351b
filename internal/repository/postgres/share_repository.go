package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"clouddrive/internal/domain"
)

const shareColumns = `id, file_id, granter_id, grantee_id, permission, created_at, expires_at`

type ShareRepository struct {
	db sqlx.ExtContext
}

func NewShareRepository(db sqlx.ExtContext) *ShareRepository {
	return &ShareRepository{db: db}
}

func (r *ShareRepository) Create(ctx context.Context, grant *domain.ShareGrant) error {
	query := `
        INSERT INTO share_grants (file_id, granter_id, grantee_id, permission, expires_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at`

	err := r.db.QueryRowxContext(ctx, query,
		grant.FileID,
		grant.GranterID,
		grant.GranteeID,
		grant.Permission,
		grant.ExpiresAt,
	).Scan(&grant.ID, &grant.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create share grant: %w", err)
	}
	return nil
}

func (r *ShareRepository) GetByID(ctx context.Context, id int64) (*domain.ShareGrant, error) {
	var grant domain.ShareGrant
	err := sqlx.GetContext(ctx, r.db, &grant,
		`SELECT `+shareColumns+` FROM share_grants WHERE id = $1`, id)
	if err != nil {
		return nil, notFound(err, "share grant", id)
	}
	return &grant, nil
}

func (r *ShareRepository) ListByFile(ctx context.Context, fileID int64) ([]domain.ShareGrant, error) {
	grants := []domain.ShareGrant{}
	err := sqlx.SelectContext(ctx, r.db, &grants,
		`SELECT `+shareColumns+` FROM share_grants WHERE file_id = $1 ORDER BY id`, fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to list share grants: %w", err)
	}
	return grants, nil
}

func (r *ShareRepository) ListByGrantee(ctx context.Context, granteeID int64) ([]domain.ShareGrant, error) {
	grants := []domain.ShareGrant{}
	err := sqlx.SelectContext(ctx, r.db, &grants,
		`SELECT `+shareColumns+` FROM share_grants WHERE grantee_id = $1 ORDER BY created_at DESC, id DESC`, granteeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list shared files: %w", err)
	}
	return grants, nil
}

func (r *ShareRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM share_grants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete share grant: %w", err)
	}
	return expectOne(res, "share grant", id)
}

func (r *ShareRepository) DeleteByFile(ctx context.Context, fileID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM share_grants WHERE file_id = $1`, fileID); err != nil {
		return fmt.Errorf("failed to delete share grants: %w", err)
	}
	return nil
}
