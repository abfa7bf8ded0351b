package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"clouddrive/internal/domain"
)

type accountRepo struct {
	u *unit
}

func (r *accountRepo) Create(_ context.Context, account *domain.Account) error {
	return r.u.write(func(d *data) ([]func(), error) {
		for _, a := range d.accounts {
			if a.Username == account.Username || a.Email == account.Email {
				return nil, fmt.Errorf("%w: username or email is already registered", domain.ErrDuplicateName)
			}
		}

		account.ID = r.u.s.nextID()
		account.CreatedAt = now()
		account.StorageUsed = 0

		undo := snapshot(d.accounts, account.ID)
		d.accounts[account.ID] = clone(account)
		return []func(){undo}, nil
	})
}

func (r *accountRepo) GetByID(_ context.Context, id int64) (*domain.Account, error) {
	var out *domain.Account
	err := r.u.read(func(d *data) error {
		a, ok := d.accounts[id]
		if !ok {
			return fmt.Errorf("%w: account %d", domain.ErrNotFound, id)
		}
		out = clone(a)
		return nil
	})
	return out, err
}

func (r *accountRepo) GetByUsername(_ context.Context, username string) (*domain.Account, error) {
	var out *domain.Account
	err := r.u.read(func(d *data) error {
		for _, a := range d.accounts {
			if a.Username == username {
				out = clone(a)
				return nil
			}
		}
		return fmt.Errorf("%w: account %s", domain.ErrNotFound, username)
	})
	return out, err
}

func (r *accountRepo) List(_ context.Context) ([]domain.Account, error) {
	accounts := []domain.Account{}
	err := r.u.read(func(d *data) error {
		for _, a := range d.accounts {
			accounts = append(accounts, *a)
		}
		return nil
	})
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })
	return accounts, err
}

func (r *accountRepo) Lock(ctx context.Context, id int64) (*domain.Account, error) {
	r.u.lockAccount(id)
	return r.GetByID(ctx, id)
}

func (r *accountRepo) AdjustStorageUsed(_ context.Context, id int64, delta int64) (*domain.Account, error) {
	var out *domain.Account
	err := r.u.write(func(d *data) ([]func(), error) {
		a, ok := d.accounts[id]
		if !ok {
			return nil, fmt.Errorf("%w: account %d", domain.ErrNotFound, id)
		}
		if a.StorageUsed+delta < 0 {
			return nil, fmt.Errorf("%w: storage usage of account %d would become negative", domain.ErrTransactionFailed, id)
		}
		undo := snapshot(d.accounts, id)
		a.StorageUsed += delta
		out = clone(a)
		return []func(){undo}, nil
	})
	return out, err
}

func (r *accountRepo) update(id int64, fn func(a *domain.Account)) error {
	return r.u.write(func(d *data) ([]func(), error) {
		a, ok := d.accounts[id]
		if !ok {
			return nil, fmt.Errorf("%w: account %d", domain.ErrNotFound, id)
		}
		undo := snapshot(d.accounts, id)
		fn(a)
		return []func(){undo}, nil
	})
}

func (r *accountRepo) UpdateStorageLimit(_ context.Context, id int64, limit int64) error {
	return r.update(id, func(a *domain.Account) { a.StorageLimit = limit })
}

func (r *accountRepo) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	return r.update(id, func(a *domain.Account) { a.PasswordHash = passwordHash })
}

func (r *accountRepo) UpdateProfile(_ context.Context, account *domain.Account) error {
	return r.u.write(func(d *data) ([]func(), error) {
		a, ok := d.accounts[account.ID]
		if !ok {
			return nil, fmt.Errorf("%w: account %d", domain.ErrNotFound, account.ID)
		}
		for _, other := range d.accounts {
			if other.ID != account.ID && (other.Username == account.Username || other.Email == account.Email) {
				return nil, fmt.Errorf("%w: username or email is already registered", domain.ErrDuplicateName)
			}
		}

		undo := snapshot(d.accounts, account.ID)
		a.Username = account.Username
		a.Email = account.Email
		a.IsAdmin = account.IsAdmin
		a.IsActive = account.IsActive
		return []func(){undo}, nil
	})
}

func (r *accountRepo) SetActive(_ context.Context, id int64, active bool) error {
	return r.update(id, func(a *domain.Account) { a.IsActive = active })
}

func (r *accountRepo) TouchLastLogin(_ context.Context, id int64, at time.Time) error {
	return r.update(id, func(a *domain.Account) { a.LastLogin = &at })
}

func (r *accountRepo) CountOwned(_ context.Context, id int64) (int64, int64, error) {
	var files, folders int64
	err := r.u.read(func(d *data) error {
		for _, f := range d.files {
			if f.AccountID == id {
				files++
			}
		}
		for _, f := range d.folders {
			if f.AccountID == id {
				folders++
			}
		}
		return nil
	})
	return files, folders, err
}

// Delete повторяет каскады схемы: доступы удаляются, журнал обезличивается
func (r *accountRepo) Delete(_ context.Context, id int64) error {
	return r.u.write(func(d *data) ([]func(), error) {
		if _, ok := d.accounts[id]; !ok {
			return nil, fmt.Errorf("%w: account %d", domain.ErrNotFound, id)
		}
		for _, f := range d.files {
			if f.AccountID == id {
				return nil, fmt.Errorf("account %d still referenced by files", id)
			}
		}
		for _, f := range d.folders {
			if f.AccountID == id {
				return nil, fmt.Errorf("account %d still referenced by folders", id)
			}
		}

		undo := []func(){snapshot(d.accounts, id)}
		delete(d.accounts, id)

		for gid, g := range d.shares {
			if g.GranterID == id || g.GranteeID == id {
				undo = append(undo, snapshot(d.shares, gid))
				delete(d.shares, gid)
			}
		}
		for _, rec := range d.activity {
			if rec.AccountID != nil && *rec.AccountID == id {
				prev := rec.AccountID
				undo = append(undo, func() { rec.AccountID = prev })
				rec.AccountID = nil
			}
		}
		return undo, nil
	})
}
