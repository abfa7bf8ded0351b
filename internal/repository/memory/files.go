package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"clouddrive/internal/domain"
)

type fileRepo struct {
	u *unit
}

func copyToken(token *string) *string {
	if token == nil {
		return nil
	}
	v := *token
	return &v
}

func storeFile(f *domain.File) *domain.File {
	stored := clone(f)
	stored.FolderID = copyID(f.FolderID)
	stored.PublicToken = copyToken(f.PublicToken)
	return stored
}

func (r *fileRepo) Create(_ context.Context, file *domain.File) error {
	return r.u.write(func(d *data) ([]func(), error) {
		if file.FolderID != nil {
			if _, ok := d.folders[*file.FolderID]; !ok {
				return nil, fmt.Errorf("folder %d does not exist", *file.FolderID)
			}
		}
		for _, f := range d.files {
			if f.StorageKey == file.StorageKey {
				return nil, fmt.Errorf("%w: storage key or public token collision", domain.ErrDuplicateName)
			}
			if file.PublicToken != nil && f.PublicToken != nil && *f.PublicToken == *file.PublicToken {
				return nil, fmt.Errorf("%w: storage key or public token collision", domain.ErrDuplicateName)
			}
		}

		file.ID = r.u.s.nextID()
		file.CreatedAt = now()
		file.UpdatedAt = file.CreatedAt

		undo := snapshot(d.files, file.ID)
		d.files[file.ID] = storeFile(file)
		return []func(){undo}, nil
	})
}

func (r *fileRepo) get(id int64) (*domain.File, error) {
	var out *domain.File
	err := r.u.read(func(d *data) error {
		f, ok := d.files[id]
		if !ok {
			return fmt.Errorf("%w: file %d", domain.ErrNotFound, id)
		}
		out = storeFile(f)
		return nil
	})
	return out, err
}

func (r *fileRepo) GetByID(_ context.Context, id int64) (*domain.File, error) {
	return r.get(id)
}

func (r *fileRepo) GetByPublicToken(_ context.Context, token string) (*domain.File, error) {
	var out *domain.File
	err := r.u.read(func(d *data) error {
		for _, f := range d.files {
			if f.IsPublic && f.PublicToken != nil && *f.PublicToken == token {
				out = storeFile(f)
				return nil
			}
		}
		return fmt.Errorf("%w: public link", domain.ErrNotFound)
	})
	return out, err
}

func (r *fileRepo) ListByFolder(_ context.Context, accountID int64, folderID *int64) ([]domain.File, error) {
	files := []domain.File{}
	err := r.u.read(func(d *data) error {
		for _, f := range d.files {
			if f.AccountID == accountID && sameParent(f.FolderID, folderID) {
				files = append(files, *storeFile(f))
			}
		}
		return nil
	})
	sort.Slice(files, func(i, j int) bool { return files[i].DisplayName < files[j].DisplayName })
	return files, err
}

func (r *fileRepo) ListByAccount(_ context.Context, accountID int64) ([]domain.File, error) {
	files := []domain.File{}
	err := r.u.read(func(d *data) error {
		for _, f := range d.files {
			if f.AccountID == accountID {
				files = append(files, *storeFile(f))
			}
		}
		return nil
	})
	sort.Slice(files, func(i, j int) bool {
		if !files[i].CreatedAt.Equal(files[j].CreatedAt) {
			return files[i].CreatedAt.After(files[j].CreatedAt)
		}
		return files[i].ID > files[j].ID
	})
	return files, err
}

func (r *fileRepo) NameTaken(_ context.Context, accountID int64, folderID *int64, name string, excludeID int64) (bool, error) {
	var taken bool
	err := r.u.read(func(d *data) error {
		for _, f := range d.files {
			if f.ID != excludeID && f.AccountID == accountID && sameParent(f.FolderID, folderID) && f.DisplayName == name {
				taken = true
				return nil
			}
		}
		return nil
	})
	return taken, err
}

func (r *fileRepo) update(id int64, fn func(d *data, f *domain.File) error) error {
	return r.u.write(func(d *data) ([]func(), error) {
		f, ok := d.files[id]
		if !ok {
			return nil, fmt.Errorf("%w: file %d", domain.ErrNotFound, id)
		}
		undo := snapshot(d.files, id)
		if err := fn(d, f); err != nil {
			undo()
			return nil, err
		}
		f.UpdatedAt = now()
		return []func(){undo}, nil
	})
}

func (r *fileRepo) Rename(_ context.Context, id int64, name string) error {
	return r.update(id, func(_ *data, f *domain.File) error {
		f.DisplayName = name
		return nil
	})
}

func (r *fileRepo) SetFolder(_ context.Context, id int64, folderID *int64) error {
	return r.update(id, func(d *data, f *domain.File) error {
		if folderID != nil {
			if _, ok := d.folders[*folderID]; !ok {
				return fmt.Errorf("folder %d does not exist", *folderID)
			}
		}
		f.FolderID = copyID(folderID)
		return nil
	})
}

func (r *fileRepo) SetVisibility(_ context.Context, id int64, isPublic bool, token *string) error {
	return r.update(id, func(d *data, f *domain.File) error {
		if token != nil {
			for _, other := range d.files {
				if other.ID != id && other.PublicToken != nil && *other.PublicToken == *token {
					return fmt.Errorf("%w: public token collision", domain.ErrDuplicateName)
				}
			}
		}
		f.IsPublic = isPublic
		f.PublicToken = copyToken(token)
		return nil
	})
}

// Delete удаляет файл вместе с доступами к нему (ON DELETE CASCADE в схеме)
func (r *fileRepo) Delete(_ context.Context, id int64) error {
	return r.u.write(func(d *data) ([]func(), error) {
		if _, ok := d.files[id]; !ok {
			return nil, fmt.Errorf("%w: file %d", domain.ErrNotFound, id)
		}
		undo := []func(){snapshot(d.files, id)}
		delete(d.files, id)

		for gid, g := range d.shares {
			if g.FileID == id {
				undo = append(undo, snapshot(d.shares, gid))
				delete(d.shares, gid)
			}
		}
		return undo, nil
	})
}

func (r *fileRepo) SumSizes(_ context.Context, accountID int64) (int64, error) {
	var total int64
	err := r.u.read(func(d *data) error {
		for _, f := range d.files {
			if f.AccountID == accountID {
				total += f.SizeBytes
			}
		}
		return nil
	})
	return total, err
}

func (r *fileRepo) Search(_ context.Context, accountID int64, query string, limit int) ([]domain.File, error) {
	needle := strings.ToLower(query)
	files := []domain.File{}
	err := r.u.read(func(d *data) error {
		for _, f := range d.files {
			if f.AccountID == accountID && strings.Contains(strings.ToLower(f.DisplayName), needle) {
				files = append(files, *storeFile(f))
			}
		}
		return nil
	})
	sort.Slice(files, func(i, j int) bool { return files[i].DisplayName < files[j].DisplayName })
	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}
	return files, err
}
