package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"clouddrive/internal/domain"
)

type ActivityRepository struct {
	db sqlx.ExtContext
}

func NewActivityRepository(db sqlx.ExtContext) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) Append(ctx context.Context, record *domain.ActivityRecord) error {
	query := `
        INSERT INTO activity_log (account_id, action, resource_type, resource_id, ip, agent)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at`

	err := r.db.QueryRowxContext(ctx, query,
		record.AccountID,
		record.Action,
		record.ResourceType,
		record.ResourceID,
		record.IP,
		record.Agent,
	).Scan(&record.ID, &record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append activity: %w", err)
	}
	return nil
}

func (r *ActivityRepository) ListRecent(ctx context.Context, limit int) ([]domain.ActivityRecord, error) {
	query := `
        SELECT id, account_id, action, resource_type, resource_id, ip, agent, created_at
        FROM activity_log
        ORDER BY created_at DESC, id DESC
        LIMIT $1`

	records := []domain.ActivityRecord{}
	if err := sqlx.SelectContext(ctx, r.db, &records, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	return records, nil
}
