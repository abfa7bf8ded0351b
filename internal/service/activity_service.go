package service

import (
	"context"

	"github.com/rs/zerolog"

	"clouddrive/internal/domain"
	"clouddrive/internal/logger"
	"clouddrive/internal/repository"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 500
)

// ActivityService пишет журнал действий. Сбой записи не влияет на операцию
type ActivityService struct {
	store repository.Store
	log   zerolog.Logger
}

func NewActivityService(store repository.Store, log zerolog.Logger) *ActivityService {
	return &ActivityService{
		store: store,
		log:   logger.Component(log, "ActivityService"),
	}
}

func (s *ActivityService) Record(ctx context.Context, accountID int64, action, resourceType string, resourceID int64) {
	meta := domain.RequestMetaFrom(ctx)
	record := &domain.ActivityRecord{
		Action:       action,
		ResourceType: resourceType,
		IP:           meta.IP,
		Agent:        meta.Agent,
	}
	if accountID != 0 {
		record.AccountID = &accountID
	}
	if resourceID != 0 {
		record.ResourceID = &resourceID
	}

	if err := s.store.Activity().Append(context.WithoutCancel(ctx), record); err != nil {
		s.log.Warn().Err(err).Str("action", action).Int64("account_id", accountID).Msg("failed to record activity")
	}
}

func (s *ActivityService) ListRecent(ctx context.Context, limit int) ([]domain.ActivityRecord, error) {
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	limit = min(limit, maxActivityLimit)
	return s.store.Activity().ListRecent(ctx, limit)
}
