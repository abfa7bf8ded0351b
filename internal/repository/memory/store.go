// Package memory - хранилище метаданных в памяти процесса. Используется в
// тестах и для локального запуска без базы; семантика совпадает с postgres.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"clouddrive/internal/domain"
	"clouddrive/internal/repository"
)

type Store struct {
	mu   sync.Mutex
	data data

	lockMu sync.Mutex
	locks  map[int64]*sync.Mutex

	base *unit
}

var _ repository.Store = (*Store)(nil)

type data struct {
	seq      int64
	accounts map[int64]*domain.Account
	folders  map[int64]*domain.Folder
	files    map[int64]*domain.File
	shares   map[int64]*domain.ShareGrant
	activity []*domain.ActivityRecord
}

func NewStore() *Store {
	s := &Store{
		data: data{
			accounts: map[int64]*domain.Account{},
			folders:  map[int64]*domain.Folder{},
			files:    map[int64]*domain.File{},
			shares:   map[int64]*domain.ShareGrant{},
		},
		locks: map[int64]*sync.Mutex{},
	}
	s.base = &unit{s: s}
	return s
}

func (s *Store) Accounts() repository.AccountRepository { return s.base.Accounts() }
func (s *Store) Folders() repository.FolderRepository { return s.base.Folders() }
func (s *Store) Files() repository.FileRepository { return s.base.Files() }
func (s *Store) Shares() repository.ShareRepository { return s.base.Shares() }
func (s *Store) Activity() repository.ActivityRepository { return s.base.Activity() }

// WithTx копит журнал отката; при ошибке или панике fn изменения
// отменяются в обратном порядке
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	u := &unit{s: s, tx: true, held: map[int64]*sync.Mutex{}}

	committed := false
	defer func() {
		if !committed {
			u.rollback()
		}
		u.release()
	}()

	if err := fn(ctx, u); err != nil {
		if domain.IsKnown(err) {
			return err
		}
		return fmt.Errorf("%w: %w", domain.ErrTransactionFailed, err)
	}
	committed = true
	return nil
}

func (s *Store) accountLock(id int64) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()

	m, ok := s.locks[id]
	if !ok {
		m = &sync.Mutex{}
		s.locks[id] = m
	}
	return m
}

func (s *Store) nextID() int64 {
	s.data.seq++
	return s.data.seq
}

// unit - единица работы: либо без транзакции, либо с журналом отката
type unit struct {
	s    *Store
	tx   bool
	undo []func()
	held map[int64]*sync.Mutex
}

func (u *unit) Accounts() repository.AccountRepository { return &accountRepo{u: u} }
func (u *unit) Folders() repository.FolderRepository { return &folderRepo{u: u} }
func (u *unit) Files() repository.FileRepository { return &fileRepo{u: u} }
func (u *unit) Shares() repository.ShareRepository { return &shareRepo{u: u} }
func (u *unit) Activity() repository.ActivityRepository { return &activityRepo{u: u} }

// read выполняет fn под общим мьютексом данных
func (u *unit) read(fn func(d *data) error) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	return fn(&u.s.data)
}

// write выполняет изменение; undo-функции попадают в журнал транзакции
func (u *unit) write(fn func(d *data) ([]func(), error)) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	undo, err := fn(&u.s.data)
	if err != nil {
		return err
	}
	if u.tx {
		u.undo = append(u.undo, undo...)
	}
	return nil
}

func (u *unit) lockAccount(id int64) {
	if !u.tx {
		return
	}
	if _, ok := u.held[id]; ok {
		return
	}
	m := u.s.accountLock(id)
	m.Lock()
	u.held[id] = m
}

func (u *unit) rollback() {
	if len(u.undo) == 0 {
		return
	}
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	for i := len(u.undo) - 1; i >= 0; i-- {
		u.undo[i]()
	}
	u.undo = nil
}

func (u *unit) release() {
	for id, m := range u.held {
		m.Unlock()
		delete(u.held, id)
	}
}

// snapshot запоминает состояние записи id до изменения
func snapshot[T any](m map[int64]*T, id int64) func() {
	old, ok := m[id]
	if !ok {
		return func() { delete(m, id) }
	}
	saved := *old
	return func() {
		restored := saved
		m[id] = &restored
	}
}

func clone[T any](v *T) *T {
	c := *v
	return &c
}

func now() time.Time {
	return time.Now().UTC()
}

func sameParent(a, b *int64) bool {
	return domain.SameParent(a, b)
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
