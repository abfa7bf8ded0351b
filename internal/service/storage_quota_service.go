package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"clouddrive/internal/domain"
	"clouddrive/internal/logger"
	"clouddrive/internal/repository"
)

// StorageQuotaService ведет учет занятого места. Adjust - единственный
// путь изменения storage_used
type StorageQuotaService struct {
	store repository.Store
	log   zerolog.Logger
}

func NewStorageQuotaService(store repository.Store, log zerolog.Logger) *StorageQuotaService {
	return &StorageQuotaService{
		store: store,
		log:   logger.Component(log, "QuotaService"),
	}
}

func (s *StorageQuotaService) GetQuotaInfo(ctx context.Context, accountID int64) (*domain.QuotaInfo, error) {
	account, err := s.store.Accounts().GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get quota: %w", err)
	}
	return domain.NewQuotaInfo(account), nil
}

func (s *StorageQuotaService) CheckSpaceAvailable(ctx context.Context, accountID int64, requiredBytes int64) (bool, error) {
	account, err := s.store.Accounts().GetByID(ctx, accountID)
	if err != nil {
		return false, fmt.Errorf("failed to get quota: %w", err)
	}
	return account.Fits(requiredBytes), nil
}

// Adjust применяет delta к storage_used внутри транзакции вызывающей
// операции. Превышение лимита или уход в минус возвращают ошибку, и
// транзакция откатывается вместе с изменением счетчика
func (s *StorageQuotaService) Adjust(ctx context.Context, tx repository.Tx, accountID int64, delta int64) (*domain.Account, error) {
	return s.adjust(ctx, tx, accountID, delta, true)
}

func (s *StorageQuotaService) adjust(ctx context.Context, tx repository.Tx, accountID int64, delta int64, enforceLimit bool) (*domain.Account, error) {
	if delta == 0 {
		return tx.Accounts().GetByID(ctx, accountID)
	}

	account, err := tx.Accounts().AdjustStorageUsed(ctx, accountID, delta)
	if err != nil {
		return nil, err
	}

	if account.StorageUsed < 0 {
		return nil, fmt.Errorf("%w: storage usage of account %d would become negative", domain.ErrTransactionFailed, accountID)
	}
	if enforceLimit && delta > 0 && account.StorageUsed > account.StorageLimit {
		return nil, fmt.Errorf("%w: %d of %d bytes", domain.ErrQuotaExceeded, account.StorageUsed, account.StorageLimit)
	}

	s.log.Debug().
		Int64("account_id", accountID).
		Int64("delta", delta).
		Int64("used", account.StorageUsed).
		Int64("limit", account.StorageLimit).
		Msg("storage usage adjusted")

	return account, nil
}

// UpdateQuotaLimit меняет лимит; лимит ниже текущего объема не принимается
func (s *StorageQuotaService) UpdateQuotaLimit(ctx context.Context, accountID int64, newLimit int64) error {
	if newLimit < 0 {
		return fmt.Errorf("%w: quota limit cannot be negative", domain.ErrInvalidArgument)
	}

	return s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		account, err := tx.Accounts().Lock(ctx, accountID)
		if err != nil {
			return err
		}
		if newLimit < account.StorageUsed {
			return fmt.Errorf("%w: new limit %d is below current usage %d",
				domain.ErrQuotaExceeded, newLimit, account.StorageUsed)
		}
		return tx.Accounts().UpdateStorageLimit(ctx, accountID, newLimit)
	})
}

// Reconcile пересчитывает занятое место по живым файлам и возвращает
// найденное расхождение. Исправление проходит через тот же Adjust
func (s *StorageQuotaService) Reconcile(ctx context.Context, accountID int64) (int64, error) {
	var drift int64

	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		account, err := tx.Accounts().Lock(ctx, accountID)
		if err != nil {
			return err
		}

		actual, err := tx.Files().SumSizes(ctx, accountID)
		if err != nil {
			return err
		}

		drift = actual - account.StorageUsed
		_, err = s.adjust(ctx, tx, accountID, drift, false)
		return err
	})
	if err != nil {
		return 0, err
	}

	if drift != 0 {
		s.log.Warn().Int64("account_id", accountID).Int64("drift", drift).Msg("storage usage reconciled")
	}
	return drift, nil
}
