package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"clouddrive/internal/domain"
	"clouddrive/internal/logger"
	"clouddrive/internal/repository"
	"clouddrive/internal/storage"
)

const searchLimit = 50

type FolderService struct {
	store             repository.Store
	quotaService      *StorageQuotaService
	permissionService *PermissionService
	activityService   *ActivityService
	purger            *treePurger
	log               zerolog.Logger
}

func NewFolderService(
	store repository.Store,
	blobs storage.Storage,
	quotaService *StorageQuotaService,
	permissionService *PermissionService,
	activityService *ActivityService,
	log zerolog.Logger,
) *FolderService {
	log = logger.Component(log, "FolderService")
	return &FolderService{
		store:             store,
		quotaService:      quotaService,
		permissionService: permissionService,
		activityService:   activityService,
		purger:            &treePurger{blobs: blobs, log: log},
		log:               log,
	}
}

// CreateFolder создает папку в parentID или в корне
func (s *FolderService) CreateFolder(ctx context.Context, accountID int64, name string, parentID *int64) (*domain.Folder, error) {
	name, err := validateName(name)
	if err != nil {
		return nil, err
	}

	folder := &domain.Folder{
		Name:      name,
		ParentID:  parentID,
		AccountID: accountID,
	}

	err = s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.Accounts().Lock(ctx, accountID); err != nil {
			return err
		}
		if parentID != nil {
			if _, err := s.permissionService.OwnedFolder(ctx, tx, accountID, *parentID); err != nil {
				return err
			}
		}

		taken, err := tx.Folders().NameTaken(ctx, accountID, parentID, name, 0)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: folder %q", domain.ErrDuplicateName, name)
		}
		return tx.Folders().Create(ctx, folder)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Int64("account_id", accountID).Int64("folder_id", folder.ID).Str("name", name).Msg("folder created")
	s.activityService.Record(ctx, accountID, domain.ActionCreateFolder, domain.ResourceFolder, folder.ID)
	return folder, nil
}

// ListChildren возвращает непосредственное содержимое папки (nil - корень)
func (s *FolderService) ListChildren(ctx context.Context, accountID int64, folderID *int64) (*domain.FolderContents, error) {
	contents := &domain.FolderContents{
		Breadcrumbs: []domain.Folder{},
	}

	if folderID != nil {
		folder, err := s.permissionService.OwnedFolder(ctx, s.store, accountID, *folderID)
		if err != nil {
			return nil, err
		}
		contents.Folder = folder

		if contents.Breadcrumbs, err = ancestors(ctx, s.store.Folders(), folder.ID); err != nil {
			return nil, err
		}
	}

	folders, err := s.store.Folders().ListChildren(ctx, accountID, folderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}
	files, err := s.store.Files().ListByFolder(ctx, accountID, folderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	contents.Folders = nonNil(folders)
	contents.Files = nonNil(files)
	return contents, nil
}

// Breadcrumbs возвращает путь от корня до папки
func (s *FolderService) Breadcrumbs(ctx context.Context, accountID, folderID int64) ([]domain.Folder, error) {
	if _, err := s.permissionService.OwnedFolder(ctx, s.store, accountID, folderID); err != nil {
		return nil, err
	}
	return ancestors(ctx, s.store.Folders(), folderID)
}

func (s *FolderService) RenameFolder(ctx context.Context, accountID, folderID int64, newName string) (*domain.Folder, error) {
	newName, err := validateName(newName)
	if err != nil {
		return nil, err
	}

	var folder *domain.Folder
	err = s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.Accounts().Lock(ctx, accountID); err != nil {
			return err
		}
		if folder, err = s.permissionService.OwnedFolder(ctx, tx, accountID, folderID); err != nil {
			return err
		}
		if folder.Name == newName {
			return nil
		}

		taken, err := tx.Folders().NameTaken(ctx, accountID, folder.ParentID, newName, folder.ID)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: folder %q", domain.ErrDuplicateName, newName)
		}
		if err := tx.Folders().Rename(ctx, folder.ID, newName); err != nil {
			return err
		}
		folder.Name = newName
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.activityService.Record(ctx, accountID, domain.ActionRename, domain.ResourceFolder, folderID)
	return folder, nil
}

// MoveFolder переносит папку в targetFolderID (nil - корень). Перенос в себя
// или в своего потомка запрещен
func (s *FolderService) MoveFolder(ctx context.Context, accountID, folderID int64, targetFolderID *int64) error {
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.Accounts().Lock(ctx, accountID); err != nil {
			return err
		}

		folder, err := s.permissionService.OwnedFolder(ctx, tx, accountID, folderID)
		if err != nil {
			return err
		}

		if targetFolderID != nil {
			if _, err := s.permissionService.OwnedFolder(ctx, tx, accountID, *targetFolderID); err != nil {
				return err
			}
			if *targetFolderID == folderID {
				return fmt.Errorf("%w: folder %d", domain.ErrCyclicMove, folderID)
			}

			chain, err := ancestors(ctx, tx.Folders(), *targetFolderID)
			if err != nil {
				return err
			}
			for _, a := range chain {
				if a.ID == folderID {
					return fmt.Errorf("%w: folder %d is an ancestor of %d", domain.ErrCyclicMove, folderID, *targetFolderID)
				}
			}
		}

		if domain.SameParent(folder.ParentID, targetFolderID) {
			return nil
		}

		taken, err := tx.Folders().NameTaken(ctx, accountID, targetFolderID, folder.Name, folder.ID)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: folder %q", domain.ErrDuplicateName, folder.Name)
		}
		return tx.Folders().SetParent(ctx, folder.ID, targetFolderID)
	})
	if err != nil {
		return err
	}

	s.activityService.Record(ctx, accountID, domain.ActionMove, domain.ResourceFolder, folderID)
	return nil
}

// DeleteFolder рекурсивно удаляет папку и освобождает место одним
// изменением квоты. Ошибка до коммита откатывает все записи
func (s *FolderService) DeleteFolder(ctx context.Context, accountID, folderID int64) (*domain.DeleteResult, error) {
	var (
		result domain.DeleteResult
		keys   []string
	)

	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.Accounts().Lock(ctx, accountID); err != nil {
			return err
		}

		folder, err := s.permissionService.OwnedFolder(ctx, tx, accountID, folderID)
		if err != nil {
			return err
		}

		if result, keys, err = s.purger.purgeFolder(ctx, tx, folder, 0); err != nil {
			return err
		}

		_, err = s.quotaService.Adjust(ctx, tx, accountID, -result.BytesFreed)
		return err
	})
	if err != nil {
		s.log.Error().Err(err).Int64("account_id", accountID).Int64("folder_id", folderID).Msg("folder delete failed")
		return nil, err
	}
	s.purger.releaseBlobs(ctx, keys)

	s.log.Info().
		Int64("account_id", accountID).
		Int64("folder_id", folderID).
		Int("files", result.FilesRemoved).
		Int("folders", result.FoldersRemoved).
		Int64("bytes", result.BytesFreed).
		Msg("folder deleted")
	s.activityService.Record(ctx, accountID, domain.ActionDelete, domain.ResourceFolder, folderID)
	return &result, nil
}

// Search ищет папки и файлы аккаунта по подстроке имени без учета регистра
func (s *FolderService) Search(ctx context.Context, accountID int64, query string) (*domain.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query is empty", domain.ErrInvalidArgument)
	}

	folders, err := s.store.Folders().Search(ctx, accountID, query, searchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to search folders: %w", err)
	}
	files, err := s.store.Files().Search(ctx, accountID, query, searchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to search files: %w", err)
	}

	return &domain.SearchResult{
		Query:   query,
		Folders: nonNil(folders),
		Files:   nonNil(files),
	}, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
