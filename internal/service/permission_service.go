package service

import (
	"context"
	"fmt"
	"time"

	"clouddrive/internal/domain"
	"clouddrive/internal/repository"
)

// PermissionService представляет сервис для проверки прав доступа
type PermissionService struct {
	now func() time.Time
}

// NewPermissionService создает новый экземпляр PermissionService
func NewPermissionService() *PermissionService {
	return &PermissionService{now: time.Now}
}

// OperationType определяет тип операции над файлом
type OperationType string

const (
	OperationView     OperationType = "view"
	OperationDownload OperationType = "download"
	OperationRename   OperationType = "rename"
	OperationShare    OperationType = "share"
)

// checkAccessLevel проверяет, достаточен ли уровень доступа для операции
func checkAccessLevel(permission domain.Permission, operation OperationType) bool {
	switch permission {
	case domain.PermissionRead:
		// Только просмотр и скачивание
		return operation == OperationView || operation == OperationDownload
	case domain.PermissionWrite:
		// Запись позволяет еще и переименовывать
		return operation == OperationView || operation == OperationDownload || operation == OperationRename
	case domain.PermissionAdmin:
		return true
	}
	return false
}

// Authorize проверяет права accountID на операцию с файлом. Владелец может
// все, публичный файл доступен на чтение любому, остальным нужен
// действующий доступ подходящего уровня. accountID == 0 - аноним
func (s *PermissionService) Authorize(ctx context.Context, q repository.Tx, accountID int64, file *domain.File, operation OperationType) error {
	if accountID != 0 && file.AccountID == accountID {
		return nil
	}

	if file.IsPublic && (operation == OperationView || operation == OperationDownload) {
		return nil
	}

	if accountID != 0 {
		grants, err := q.Shares().ListByFile(ctx, file.ID)
		if err != nil {
			return err
		}

		now := s.now()
		for _, g := range grants {
			if g.GranteeID == accountID && g.Active(now) && checkAccessLevel(g.Permission, operation) {
				return nil
			}
		}
	}

	return fmt.Errorf("%w: file %d", domain.ErrForbidden, file.ID)
}

// CheckFileAccess сначала устанавливает существование файла (NotFound),
// затем права (Forbidden)
func (s *PermissionService) CheckFileAccess(ctx context.Context, q repository.Tx, accountID, fileID int64, operation OperationType) (*domain.File, error) {
	file, err := q.Files().GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if err := s.Authorize(ctx, q, accountID, file, operation); err != nil {
		return nil, err
	}
	return file, nil
}

// OwnedFile возвращает файл, только если им владеет accountID
func (s *PermissionService) OwnedFile(ctx context.Context, q repository.Tx, accountID, fileID int64) (*domain.File, error) {
	file, err := q.Files().GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file.AccountID != accountID {
		return nil, fmt.Errorf("%w: file %d", domain.ErrForbidden, fileID)
	}
	return file, nil
}

// OwnedFolder возвращает папку, только если ей владеет accountID
func (s *PermissionService) OwnedFolder(ctx context.Context, q repository.Tx, accountID, folderID int64) (*domain.Folder, error) {
	folder, err := q.Folders().GetByID(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if folder.AccountID != accountID {
		return nil, fmt.Errorf("%w: folder %d", domain.ErrForbidden, folderID)
	}
	return folder, nil
}
