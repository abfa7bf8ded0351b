package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"clouddrive/internal/domain"
	"clouddrive/internal/repository"
	"clouddrive/internal/storage"
)

// MaxTreeDepth ограничивает глубину обхода дерева папок
const MaxTreeDepth = 256

// ancestors возвращает цепочку папок от корня до folderID включительно
func ancestors(ctx context.Context, folders repository.FolderRepository, folderID int64) ([]domain.Folder, error) {
	var chain []domain.Folder

	current := &folderID
	for current != nil {
		if len(chain) >= MaxTreeDepth {
			return nil, fmt.Errorf("%w: folder %d is deeper than %d levels", domain.ErrCycleDetected, folderID, MaxTreeDepth)
		}

		folder, err := folders.GetByID(ctx, *current)
		if err != nil {
			return nil, err
		}
		chain = append(chain, *folder)
		current = folder.ParentID
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// treePurger удаляет поддеревья внутри транзакции вызывающей операции.
// Блобы удаляются только после коммита: если транзакция откатится,
// записи должны указывать на живые блобы
type treePurger struct {
	blobs storage.Storage
	log   zerolog.Logger
}

// purgeFolder удаляет записи содержимого папки снизу вверх, затем саму
// папку. Счетчики собираются из результатов поддеревьев, ключи удаленных
// файлов возвращаются для releaseBlobs
func (p *treePurger) purgeFolder(ctx context.Context, tx repository.Tx, folder *domain.Folder, depth int) (domain.DeleteResult, []string, error) {
	if depth >= MaxTreeDepth {
		return domain.DeleteResult{}, nil, fmt.Errorf("%w: folder %d is deeper than %d levels", domain.ErrCycleDetected, folder.ID, MaxTreeDepth)
	}

	var (
		result domain.DeleteResult
		keys   []string
	)

	files, err := tx.Files().ListByFolder(ctx, folder.AccountID, &folder.ID)
	if err != nil {
		return domain.DeleteResult{}, nil, err
	}
	for i := range files {
		if err := purgeFile(ctx, tx, &files[i]); err != nil {
			return domain.DeleteResult{}, nil, err
		}
		keys = append(keys, files[i].StorageKey)
		result = result.Add(domain.DeleteResult{FilesRemoved: 1, BytesFreed: files[i].SizeBytes})
	}

	children, err := tx.Folders().ListChildren(ctx, folder.AccountID, &folder.ID)
	if err != nil {
		return domain.DeleteResult{}, nil, err
	}
	for i := range children {
		sub, subKeys, err := p.purgeFolder(ctx, tx, &children[i], depth+1)
		if err != nil {
			return domain.DeleteResult{}, nil, err
		}
		keys = append(keys, subKeys...)
		result = result.Add(sub)
	}

	if err := tx.Folders().Delete(ctx, folder.ID); err != nil {
		return domain.DeleteResult{}, nil, err
	}
	return result.Add(domain.DeleteResult{FoldersRemoved: 1}), keys, nil
}

// releaseBlobs удаляет блобы уже удаленных файлов. Ошибки только пишутся
// в лог: оставшийся блоб - утечка места, а не порча метаданных
func (p *treePurger) releaseBlobs(ctx context.Context, keys []string) {
	ctx = context.WithoutCancel(ctx)
	for _, key := range keys {
		releaseBlob(ctx, p.blobs, p.log, key)
	}
}

func releaseBlob(ctx context.Context, blobs storage.Storage, log zerolog.Logger, key string) {
	err := blobs.Delete(ctx, key)
	if err == nil {
		return
	}

	event := log.Error()
	if errors.Is(err, storage.ErrObjectNotFound) {
		event = log.Warn()
	}
	event.Err(err).Str("storage_key", key).Msg("blob delete skipped")
}

// purgeFile удаляет доступы и запись файла
func purgeFile(ctx context.Context, tx repository.Tx, file *domain.File) error {
	if err := tx.Shares().DeleteByFile(ctx, file.ID); err != nil {
		return err
	}
	return tx.Files().Delete(ctx, file.ID)
}
