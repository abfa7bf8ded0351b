package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"clouddrive/internal/domain"
	"clouddrive/internal/logger"
	"clouddrive/internal/repository"
)

// ShareService выдает другим аккаунтам доступ к отдельным файлам
type ShareService struct {
	store             repository.Store
	permissionService *PermissionService
	activityService   *ActivityService
	now               func() time.Time
	log               zerolog.Logger
}

func NewShareService(
	store repository.Store,
	permissionService *PermissionService,
	activityService *ActivityService,
	log zerolog.Logger,
) *ShareService {
	return &ShareService{
		store:             store,
		permissionService: permissionService,
		activityService:   activityService,
		now:               time.Now,
		log:               logger.Component(log, "ShareService"),
	}
}

// Grant выдает доступ аккаунту granteeUsername. Повторная выдача тому же
// аккаунту заменяет прежний доступ
func (s *ShareService) Grant(
	ctx context.Context,
	granterID int64,
	fileID int64,
	granteeUsername string,
	permission domain.Permission,
	expiresAt *time.Time,
) (*domain.ShareGrant, error) {
	if !permission.Valid() {
		return nil, fmt.Errorf("%w: unknown permission %q", domain.ErrInvalidArgument, permission)
	}
	if expiresAt != nil && !expiresAt.After(s.now()) {
		return nil, fmt.Errorf("%w: expiration must be in the future", domain.ErrInvalidArgument)
	}

	grantee, err := s.store.Accounts().GetByUsername(ctx, granteeUsername)
	if err != nil {
		return nil, err
	}
	if grantee.ID == granterID {
		return nil, fmt.Errorf("%w: cannot share a file with yourself", domain.ErrInvalidArgument)
	}

	current, err := s.store.Files().GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if grantee.ID == current.AccountID {
		return nil, fmt.Errorf("%w: account already owns the file", domain.ErrInvalidArgument)
	}

	grant := &domain.ShareGrant{
		FileID:     fileID,
		GranterID:  granterID,
		GranteeID:  grantee.ID,
		Permission: permission,
		ExpiresAt:  expiresAt,
	}

	err = s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.Accounts().Lock(ctx, current.AccountID); err != nil {
			return err
		}
		if _, err := s.permissionService.CheckFileAccess(ctx, tx, granterID, fileID, OperationShare); err != nil {
			return err
		}

		existing, err := tx.Shares().ListByFile(ctx, fileID)
		if err != nil {
			return err
		}
		for _, g := range existing {
			if g.GranteeID == grantee.ID {
				if err := tx.Shares().Delete(ctx, g.ID); err != nil {
					return err
				}
			}
		}
		return tx.Shares().Create(ctx, grant)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("file_id", fileID).
		Int64("granter_id", granterID).
		Int64("grantee_id", grantee.ID).
		Str("permission", string(permission)).
		Msg("file shared")
	s.activityService.Record(ctx, granterID, domain.ActionShare, domain.ResourceShare, grant.ID)
	return grant, nil
}

// Revoke отзывает доступ. Отозвать может владелец файла или выдавший
func (s *ShareService) Revoke(ctx context.Context, accountID, grantID int64) error {
	grant, err := s.store.Shares().GetByID(ctx, grantID)
	if err != nil {
		return err
	}

	file, err := s.store.Files().GetByID(ctx, grant.FileID)
	if err != nil {
		return err
	}
	if file.AccountID != accountID && grant.GranterID != accountID {
		return fmt.Errorf("%w: share grant %d", domain.ErrForbidden, grantID)
	}

	err = s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.Accounts().Lock(ctx, file.AccountID); err != nil {
			return err
		}
		return tx.Shares().Delete(ctx, grantID)
	})
	if err != nil {
		return err
	}

	s.activityService.Record(ctx, accountID, domain.ActionUnshare, domain.ResourceShare, grantID)
	return nil
}

// ListForFile возвращает доступы к файлу тому, кто может ими управлять
func (s *ShareService) ListForFile(ctx context.Context, accountID, fileID int64) ([]domain.ShareGrant, error) {
	if _, err := s.permissionService.CheckFileAccess(ctx, s.store, accountID, fileID, OperationShare); err != nil {
		return nil, err
	}

	grants, err := s.store.Shares().ListByFile(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to list share grants: %w", err)
	}
	return nonNil(grants), nil
}

// SharedWithMe возвращает файлы, к которым у аккаунта есть действующий доступ
func (s *ShareService) SharedWithMe(ctx context.Context, accountID int64) ([]domain.SharedFile, error) {
	grants, err := s.store.Shares().ListByGrantee(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list share grants: %w", err)
	}

	now := s.now()
	shared := make([]domain.SharedFile, 0, len(grants))
	for _, g := range grants {
		if !g.Active(now) {
			continue
		}

		file, err := s.store.Files().GetByID(ctx, g.FileID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, err
		}
		shared = append(shared, domain.SharedFile{File: *file, Grant: g})
	}
	return shared, nil
}
