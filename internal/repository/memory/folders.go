package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"clouddrive/internal/domain"
)

type folderRepo struct {
	u *unit
}

func folderNameTaken(d *data, accountID int64, parentID *int64, name string, excludeID int64) bool {
	for _, f := range d.folders {
		if f.ID != excludeID && f.AccountID == accountID && sameParent(f.ParentID, parentID) && f.Name == name {
			return true
		}
	}
	return false
}

func (r *folderRepo) Create(_ context.Context, folder *domain.Folder) error {
	return r.u.write(func(d *data) ([]func(), error) {
		if folder.ParentID != nil {
			if _, ok := d.folders[*folder.ParentID]; !ok {
				return nil, fmt.Errorf("parent folder %d does not exist", *folder.ParentID)
			}
		}
		if folderNameTaken(d, folder.AccountID, folder.ParentID, folder.Name, 0) {
			return nil, fmt.Errorf("%w: folder %q", domain.ErrDuplicateName, folder.Name)
		}

		folder.ID = r.u.s.nextID()
		folder.CreatedAt = now()
		folder.UpdatedAt = folder.CreatedAt

		undo := snapshot(d.folders, folder.ID)
		stored := clone(folder)
		stored.ParentID = copyID(folder.ParentID)
		d.folders[folder.ID] = stored
		return []func(){undo}, nil
	})
}

func (r *folderRepo) GetByID(_ context.Context, id int64) (*domain.Folder, error) {
	var out *domain.Folder
	err := r.u.read(func(d *data) error {
		f, ok := d.folders[id]
		if !ok {
			return fmt.Errorf("%w: folder %d", domain.ErrNotFound, id)
		}
		out = clone(f)
		return nil
	})
	return out, err
}

func (r *folderRepo) ListChildren(_ context.Context, accountID int64, parentID *int64) ([]domain.Folder, error) {
	folders := []domain.Folder{}
	err := r.u.read(func(d *data) error {
		for _, f := range d.folders {
			if f.AccountID == accountID && sameParent(f.ParentID, parentID) {
				folders = append(folders, *f)
			}
		}
		return nil
	})
	sort.Slice(folders, func(i, j int) bool { return folders[i].Name < folders[j].Name })
	return folders, err
}

func (r *folderRepo) ListByAccount(_ context.Context, accountID int64) ([]domain.Folder, error) {
	folders := []domain.Folder{}
	err := r.u.read(func(d *data) error {
		for _, f := range d.folders {
			if f.AccountID == accountID {
				folder := *f
				folder.ParentID = copyID(f.ParentID)
				folders = append(folders, folder)
			}
		}
		return nil
	})
	sort.Slice(folders, func(i, j int) bool {
		if folders[i].Name != folders[j].Name {
			return folders[i].Name < folders[j].Name
		}
		return folders[i].ID < folders[j].ID
	})
	return folders, err
}

func (r *folderRepo) NameTaken(_ context.Context, accountID int64, parentID *int64, name string, excludeID int64) (bool, error) {
	var taken bool
	err := r.u.read(func(d *data) error {
		taken = folderNameTaken(d, accountID, parentID, name, excludeID)
		return nil
	})
	return taken, err
}

func (r *folderRepo) Rename(_ context.Context, id int64, name string) error {
	return r.u.write(func(d *data) ([]func(), error) {
		f, ok := d.folders[id]
		if !ok {
			return nil, fmt.Errorf("%w: folder %d", domain.ErrNotFound, id)
		}
		if folderNameTaken(d, f.AccountID, f.ParentID, name, id) {
			return nil, fmt.Errorf("%w: folder %q", domain.ErrDuplicateName, name)
		}
		undo := snapshot(d.folders, id)
		f.Name = name
		f.UpdatedAt = now()
		return []func(){undo}, nil
	})
}

func (r *folderRepo) SetParent(_ context.Context, id int64, parentID *int64) error {
	return r.u.write(func(d *data) ([]func(), error) {
		f, ok := d.folders[id]
		if !ok {
			return nil, fmt.Errorf("%w: folder %d", domain.ErrNotFound, id)
		}
		if folderNameTaken(d, f.AccountID, parentID, f.Name, id) {
			return nil, fmt.Errorf("%w: target already contains a folder with this name", domain.ErrDuplicateName)
		}
		undo := snapshot(d.folders, id)
		f.ParentID = copyID(parentID)
		f.UpdatedAt = now()
		return []func(){undo}, nil
	})
}

// Delete, как и внешний ключ в postgres, не дает удалить непустую папку
func (r *folderRepo) Delete(_ context.Context, id int64) error {
	return r.u.write(func(d *data) ([]func(), error) {
		if _, ok := d.folders[id]; !ok {
			return nil, fmt.Errorf("%w: folder %d", domain.ErrNotFound, id)
		}
		for _, f := range d.folders {
			if f.ParentID != nil && *f.ParentID == id {
				return nil, fmt.Errorf("folder %d still has subfolders", id)
			}
		}
		for _, f := range d.files {
			if f.FolderID != nil && *f.FolderID == id {
				return nil, fmt.Errorf("folder %d still has files", id)
			}
		}
		undo := snapshot(d.folders, id)
		delete(d.folders, id)
		return []func(){undo}, nil
	})
}

func (r *folderRepo) Search(_ context.Context, accountID int64, query string, limit int) ([]domain.Folder, error) {
	needle := strings.ToLower(query)
	folders := []domain.Folder{}
	err := r.u.read(func(d *data) error {
		for _, f := range d.folders {
			if f.AccountID == accountID && strings.Contains(strings.ToLower(f.Name), needle) {
				folders = append(folders, *f)
			}
		}
		return nil
	})
	sort.Slice(folders, func(i, j int) bool { return folders[i].Name < folders[j].Name })
	if limit > 0 && len(folders) > limit {
		folders = folders[:limit]
	}
	return folders, err
}
