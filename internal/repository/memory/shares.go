package memory

import (
	"context"
	"fmt"
	"sort"

	"clouddrive/internal/domain"
)

type shareRepo struct {
	u *unit
}

func (r *shareRepo) Create(_ context.Context, grant *domain.ShareGrant) error {
	return r.u.write(func(d *data) ([]func(), error) {
		if _, ok := d.files[grant.FileID]; !ok {
			return nil, fmt.Errorf("file %d does not exist", grant.FileID)
		}
		grant.ID = r.u.s.nextID()
		grant.CreatedAt = now()

		undo := snapshot(d.shares, grant.ID)
		d.shares[grant.ID] = clone(grant)
		return []func(){undo}, nil
	})
}

func (r *shareRepo) GetByID(_ context.Context, id int64) (*domain.ShareGrant, error) {
	var out *domain.ShareGrant
	err := r.u.read(func(d *data) error {
		g, ok := d.shares[id]
		if !ok {
			return fmt.Errorf("%w: share grant %d", domain.ErrNotFound, id)
		}
		out = clone(g)
		return nil
	})
	return out, err
}

func (r *shareRepo) list(match func(g *domain.ShareGrant) bool) ([]domain.ShareGrant, error) {
	grants := []domain.ShareGrant{}
	err := r.u.read(func(d *data) error {
		for _, g := range d.shares {
			if match(g) {
				grants = append(grants, *g)
			}
		}
		return nil
	})
	return grants, err
}

func (r *shareRepo) ListByFile(_ context.Context, fileID int64) ([]domain.ShareGrant, error) {
	grants, err := r.list(func(g *domain.ShareGrant) bool { return g.FileID == fileID })
	sort.Slice(grants, func(i, j int) bool { return grants[i].ID < grants[j].ID })
	return grants, err
}

func (r *shareRepo) ListByGrantee(_ context.Context, granteeID int64) ([]domain.ShareGrant, error) {
	grants, err := r.list(func(g *domain.ShareGrant) bool { return g.GranteeID == granteeID })
	sort.Slice(grants, func(i, j int) bool { return grants[i].ID > grants[j].ID })
	return grants, err
}

func (r *shareRepo) Delete(_ context.Context, id int64) error {
	return r.u.write(func(d *data) ([]func(), error) {
		if _, ok := d.shares[id]; !ok {
			return nil, fmt.Errorf("%w: share grant %d", domain.ErrNotFound, id)
		}
		undo := snapshot(d.shares, id)
		delete(d.shares, id)
		return []func(){undo}, nil
	})
}

func (r *shareRepo) DeleteByFile(_ context.Context, fileID int64) error {
	return r.u.write(func(d *data) ([]func(), error) {
		var undo []func()
		for id, g := range d.shares {
			if g.FileID == fileID {
				undo = append(undo, snapshot(d.shares, id))
				delete(d.shares, id)
			}
		}
		return undo, nil
	})
}
