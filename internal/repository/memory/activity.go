package memory

import (
	"context"

	"clouddrive/internal/domain"
)

type activityRepo struct {
	u *unit
}

func (r *activityRepo) Append(_ context.Context, record *domain.ActivityRecord) error {
	return r.u.write(func(d *data) ([]func(), error) {
		record.ID = r.u.s.nextID()
		record.CreatedAt = now()

		stored := clone(record)
		stored.AccountID = copyID(record.AccountID)
		stored.ResourceID = copyID(record.ResourceID)
		d.activity = append(d.activity, stored)

		id := record.ID
		undo := func() {
			for i, rec := range d.activity {
				if rec.ID == id {
					d.activity = append(d.activity[:i], d.activity[i+1:]...)
					return
				}
			}
		}
		return []func(){undo}, nil
	})
}

func (r *activityRepo) ListRecent(_ context.Context, limit int) ([]domain.ActivityRecord, error) {
	records := []domain.ActivityRecord{}
	err := r.u.read(func(d *data) error {
		for i := len(d.activity) - 1; i >= 0; i-- {
			if limit > 0 && len(records) >= limit {
				break
			}
			records = append(records, *d.activity[i])
		}
		return nil
	})
	return records, err
}
