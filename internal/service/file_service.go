package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"clouddrive/internal/domain"
	"clouddrive/internal/logger"
	"clouddrive/internal/repository"
	"clouddrive/internal/storage"
)

const defaultContentType = "application/octet-stream"

type FileService struct {
	store             repository.Store
	blobs             storage.Storage
	quotaService      *StorageQuotaService
	permissionService *PermissionService
	activityService   *ActivityService
	maxUploadSize     int64
	log               zerolog.Logger
}

// NewFileService создает сервис файлов. maxUploadSize <= 0 снимает
// ограничение на размер одного файла
func NewFileService(
	store repository.Store,
	blobs storage.Storage,
	quotaService *StorageQuotaService,
	permissionService *PermissionService,
	activityService *ActivityService,
	maxUploadSize int64,
	log zerolog.Logger,
) *FileService {
	return &FileService{
		store:             store,
		blobs:             blobs,
		quotaService:      quotaService,
		permissionService: permissionService,
		activityService:   activityService,
		maxUploadSize:     maxUploadSize,
		log:               logger.Component(log, "FileService"),
	}
}

// Upload записывает блоб, затем в одной транзакции создает запись файла
// и увеличивает занятое место. При ошибке транзакции блоб удаляется
func (s *FileService) Upload(ctx context.Context, req domain.UploadRequest) (*domain.File, error) {
	name, err := sanitizeName(req.Name)
	if err != nil {
		return nil, err
	}
	if req.Content == nil {
		return nil, fmt.Errorf("%w: file content is required", domain.ErrInvalidArgument)
	}
	if s.maxUploadSize > 0 && req.DeclaredSize > s.maxUploadSize {
		return nil, fmt.Errorf("%w: file is larger than %d bytes", domain.ErrInvalidArgument, s.maxUploadSize)
	}

	account, err := s.store.Accounts().GetByID(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}
	if !account.Fits(max(req.DeclaredSize, 0)) {
		return nil, fmt.Errorf("%w: %d bytes requested, %d available",
			domain.ErrQuotaExceeded, req.DeclaredSize, account.Available())
	}
	if req.FolderID != nil {
		if _, err := s.permissionService.OwnedFolder(ctx, s.store, req.AccountID, *req.FolderID); err != nil {
			return nil, err
		}
	}

	// Читаем не больше, чем может поместиться, плюс один байт: превышение
	// обнаружится при повторной проверке квоты
	limit := account.Available()
	if s.maxUploadSize > 0 && s.maxUploadSize < limit {
		limit = s.maxUploadSize
	}

	content := req.Content
	if limit < math.MaxInt64 {
		content = io.LimitReader(content, limit+1)
	}

	key := storage.NewKey(req.AccountID)
	contentType := detectContentType(name, req.ContentType)

	if err := s.blobs.Put(ctx, key, content, contentType); err != nil {
		s.log.Error().Err(err).Int64("account_id", req.AccountID).Str("name", name).Msg("blob write failed")
		return nil, fmt.Errorf("%w: %w", domain.ErrStorageIO, err)
	}

	size, err := s.blobs.Stat(ctx, key)
	if err != nil {
		s.discardBlob(ctx, key)
		return nil, fmt.Errorf("%w: %w", domain.ErrStorageIO, err)
	}
	if s.maxUploadSize > 0 && size > s.maxUploadSize {
		s.discardBlob(ctx, key)
		return nil, fmt.Errorf("%w: file is larger than %d bytes", domain.ErrInvalidArgument, s.maxUploadSize)
	}

	file := &domain.File{
		StorageKey:  key,
		SizeBytes:   size,
		ContentType: contentType,
		FolderID:    req.FolderID,
		AccountID:   req.AccountID,
	}

	err = s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		locked, err := tx.Accounts().Lock(ctx, req.AccountID)
		if err != nil {
			return err
		}
		if !locked.Fits(size) {
			return fmt.Errorf("%w: %d bytes written, %d available", domain.ErrQuotaExceeded, size, locked.Available())
		}
		if req.FolderID != nil {
			if _, err := s.permissionService.OwnedFolder(ctx, tx, req.AccountID, *req.FolderID); err != nil {
				return err
			}
		}

		if file.DisplayName, err = uniqueFileName(ctx, tx.Files(), req.AccountID, req.FolderID, name); err != nil {
			return err
		}
		if req.MakePublic {
			token := newPublicToken()
			file.IsPublic = true
			file.PublicToken = &token
		}

		if err := tx.Files().Create(ctx, file); err != nil {
			return err
		}
		_, err = s.quotaService.Adjust(ctx, tx, req.AccountID, size)
		return err
	})
	if err != nil {
		s.discardBlob(ctx, key)
		return nil, err
	}

	s.log.Info().
		Int64("account_id", req.AccountID).
		Int64("file_id", file.ID).
		Str("name", file.DisplayName).
		Int64("size", size).
		Msg("file uploaded")
	s.activityService.Record(ctx, req.AccountID, domain.ActionUpload, domain.ResourceFile, file.ID)
	return file, nil
}

// UploadBatch проверяет квоту по сумме заявленных размеров, затем грузит
// файлы по одному. Ошибка одного файла не отменяет уже загруженные
func (s *FileService) UploadBatch(ctx context.Context, accountID int64, folderID *int64, items []domain.UploadItem, makePublic bool) (*domain.BatchUploadResult, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no files to upload", domain.ErrInvalidArgument)
	}

	account, err := s.store.Accounts().GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	// сумма копится только пока помещается в остаток, поэтому не переполняется
	available := account.Available()
	var total int64
	for _, item := range items {
		size := max(item.DeclaredSize, 0)
		if size > available-total {
			return nil, fmt.Errorf("%w: batch needs more than %d available bytes", domain.ErrQuotaExceeded, available)
		}
		total += size
	}
	if folderID != nil {
		if _, err := s.permissionService.OwnedFolder(ctx, s.store, accountID, *folderID); err != nil {
			return nil, err
		}
	}

	result := &domain.BatchUploadResult{Items: make([]domain.UploadItemResult, 0, len(items))}
	for _, item := range items {
		file, err := s.Upload(ctx, domain.UploadRequest{
			AccountID:    accountID,
			FolderID:     folderID,
			Name:         item.Name,
			ContentType:  item.ContentType,
			DeclaredSize: item.DeclaredSize,
			Content:      item.Content,
			MakePublic:   makePublic,
		})
		if err != nil {
			s.log.Warn().Err(err).Int64("account_id", accountID).Str("name", item.Name).Msg("batch item failed")
			result.Items = append(result.Items, domain.UploadItemResult{Name: item.Name, Error: err.Error()})
			result.Failed++
			continue
		}
		result.Items = append(result.Items, domain.UploadItemResult{Name: item.Name, File: file})
		result.Uploaded++
	}
	return result, nil
}

// GetFile возвращает метаданные файла, доступного accountID
func (s *FileService) GetFile(ctx context.Context, accountID, fileID int64) (*domain.File, error) {
	return s.permissionService.CheckFileAccess(ctx, s.store, accountID, fileID, OperationView)
}

// Open открывает содержимое файла для просмотра или скачивания.
// Вызывающий обязан закрыть Object
func (s *FileService) Open(ctx context.Context, accountID, fileID int64, operation OperationType) (*domain.File, storage.Object, error) {
	file, err := s.permissionService.CheckFileAccess(ctx, s.store, accountID, fileID, operation)
	if err != nil {
		return nil, nil, err
	}

	obj, err := s.openBlob(ctx, file)
	if err != nil {
		return nil, nil, err
	}

	if operation == OperationDownload {
		s.activityService.Record(ctx, accountID, domain.ActionDownload, domain.ResourceFile, file.ID)
	}
	return file, obj, nil
}

// ResolvePublic находит опубликованный файл по токену ссылки
func (s *FileService) ResolvePublic(ctx context.Context, token string) (*domain.File, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: public link", domain.ErrNotFound)
	}

	file, err := s.store.Files().GetByPublicToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if !file.IsPublic {
		return nil, fmt.Errorf("%w: public link", domain.ErrNotFound)
	}
	return file, nil
}

func (s *FileService) OpenPublic(ctx context.Context, token string) (*domain.File, storage.Object, error) {
	file, err := s.ResolvePublic(ctx, token)
	if err != nil {
		return nil, nil, err
	}

	obj, err := s.openBlob(ctx, file)
	if err != nil {
		return nil, nil, err
	}
	return file, obj, nil
}

func (s *FileService) openBlob(ctx context.Context, file *domain.File) (storage.Object, error) {
	obj, err := s.blobs.Get(ctx, file.StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			s.log.Error().Int64("file_id", file.ID).Str("storage_key", file.StorageKey).Msg("blob is missing")
			return nil, fmt.Errorf("%w: content of file %d", domain.ErrNotFound, file.ID)
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrStorageIO, err)
	}
	return obj, nil
}

// DeleteFile удаляет запись и освобождает квоту в одной транзакции. Блоб
// удаляется после коммита; если это не удалось, остается сиротский блоб
func (s *FileService) DeleteFile(ctx context.Context, accountID, fileID int64) error {
	var file *domain.File

	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.Accounts().Lock(ctx, accountID); err != nil {
			return err
		}

		var err error
		if file, err = s.permissionService.OwnedFile(ctx, tx, accountID, fileID); err != nil {
			return err
		}

		if err := purgeFile(ctx, tx, file); err != nil {
			return err
		}
		_, err = s.quotaService.Adjust(ctx, tx, accountID, -file.SizeBytes)
		return err
	})
	if err != nil {
		return err
	}
	releaseBlob(context.WithoutCancel(ctx), s.blobs, s.log, file.StorageKey)

	s.log.Info().Int64("account_id", accountID).Int64("file_id", fileID).Msg("file deleted")
	s.activityService.Record(ctx, accountID, domain.ActionDelete, domain.ResourceFile, fileID)
	return nil
}

// RenameFile меняет отображаемое имя, сохраняя расширение. Переименовать
// может владелец или получатель доступа с правом записи
func (s *FileService) RenameFile(ctx context.Context, accountID, fileID int64, newName string) (*domain.File, error) {
	newName, err := validateName(newName)
	if err != nil {
		return nil, err
	}

	current, err := s.store.Files().GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}

	var file *domain.File
	err = s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.Accounts().Lock(ctx, current.AccountID); err != nil {
			return err
		}
		if file, err = s.permissionService.CheckFileAccess(ctx, tx, accountID, fileID, OperationRename); err != nil {
			return err
		}

		if _, ext := domain.SplitExt(newName); ext != file.Extension() {
			return fmt.Errorf("%w: extension %q must be kept", domain.ErrInvalidName, file.Extension())
		}
		if newName == file.DisplayName {
			return nil
		}

		taken, err := tx.Files().NameTaken(ctx, file.AccountID, file.FolderID, newName, file.ID)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: file %q", domain.ErrDuplicateName, newName)
		}
		if err := tx.Files().Rename(ctx, file.ID, newName); err != nil {
			return err
		}
		file.DisplayName = newName
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.activityService.Record(ctx, accountID, domain.ActionRename, domain.ResourceFile, fileID)
	return file, nil
}

// MoveFile переносит файл в другую папку того же аккаунта (nil - корень)
func (s *FileService) MoveFile(ctx context.Context, accountID, fileID int64, targetFolderID *int64) error {
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.Accounts().Lock(ctx, accountID); err != nil {
			return err
		}

		file, err := s.permissionService.OwnedFile(ctx, tx, accountID, fileID)
		if err != nil {
			return err
		}
		if targetFolderID != nil {
			if _, err := s.permissionService.OwnedFolder(ctx, tx, accountID, *targetFolderID); err != nil {
				return err
			}
		}
		if domain.SameParent(file.FolderID, targetFolderID) {
			return nil
		}

		taken, err := tx.Files().NameTaken(ctx, accountID, targetFolderID, file.DisplayName, file.ID)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: file %q", domain.ErrDuplicateName, file.DisplayName)
		}
		return tx.Files().SetFolder(ctx, file.ID, targetFolderID)
	})
	if err != nil {
		return err
	}

	s.activityService.Record(ctx, accountID, domain.ActionMove, domain.ResourceFile, fileID)
	return nil
}

// ToggleVisibility публикует файл с новым токеном или снимает публикацию.
// Снятие сразу делает старую ссылку недействительной
func (s *FileService) ToggleVisibility(ctx context.Context, accountID, fileID int64) (*domain.File, error) {
	var file *domain.File

	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.Accounts().Lock(ctx, accountID); err != nil {
			return err
		}

		var err error
		if file, err = s.permissionService.OwnedFile(ctx, tx, accountID, fileID); err != nil {
			return err
		}

		if file.IsPublic {
			file.IsPublic = false
			file.PublicToken = nil
		} else {
			token := newPublicToken()
			file.IsPublic = true
			file.PublicToken = &token
		}
		return tx.Files().SetVisibility(ctx, file.ID, file.IsPublic, file.PublicToken)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Int64("file_id", fileID).Bool("public", file.IsPublic).Msg("file visibility changed")
	s.activityService.Record(ctx, accountID, domain.ActionToggleVisibility, domain.ResourceFile, fileID)
	return file, nil
}

// discardBlob убирает блоб, для которого не удалось сохранить запись.
// Выполняется и после отмены запроса
func (s *FileService) discardBlob(ctx context.Context, key string) {
	if err := s.blobs.Delete(context.WithoutCancel(ctx), key); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		s.log.Error().Err(err).Str("storage_key", key).Msg("failed to discard orphaned blob")
	}
}

func newPublicToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// detectContentType доверяет типу от клиента, если он конкретнее
// application/octet-stream, иначе определяет тип по расширению
func detectContentType(name, provided string) string {
	if provided != "" && provided != defaultContentType {
		return provided
	}
	if _, ext := domain.SplitExt(name); ext != "" {
		if ct := mime.TypeByExtension(strings.ToLower(ext)); ct != "" {
			return ct
		}
	}
	return defaultContentType
}
