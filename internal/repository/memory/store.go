// Package memory provides an in-process repository.Store used when no
// database is configured and in engine tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/spec-kit/worklist-service/internal/domain"
	"github.com/spec-kit/worklist-service/internal/repository"
	"github.com/spec-kit/worklist-service/internal/workflow"
)

type dataset struct {
	items     map[int64]*domain.WorkItem
	photos    map[int64]*domain.Photo
	history   map[int64]*domain.StatusHistory
	itemSeq   int64
	photoSeq  int64
	recordSeq int64
}

func newDataset() *dataset {
	return &dataset{
		items:   make(map[int64]*domain.WorkItem),
		photos:  make(map[int64]*domain.Photo),
		history: make(map[int64]*domain.StatusHistory),
	}
}

func (d *dataset) clone() *dataset {
	out := &dataset{
		items:     make(map[int64]*domain.WorkItem, len(d.items)),
		photos:    make(map[int64]*domain.Photo, len(d.photos)),
		history:   make(map[int64]*domain.StatusHistory, len(d.history)),
		itemSeq:   d.itemSeq,
		photoSeq:  d.photoSeq,
		recordSeq: d.recordSeq,
	}
	for id, item := range d.items {
		out.items[id] = item.Clone()
	}
	for id, p := range d.photos {
		cp := *p
		out.photos[id] = &cp
	}
	for id, h := range d.history {
		cp := h.Clone()
		out.history[id] = &cp
	}
	return out
}

// accessor runs fn against the dataset visible to the caller.
type accessor interface {
	read(fn func(d *dataset) error) error
	write(fn func(d *dataset) error) error
	clock() time.Time
}

// Store is a mutex-guarded repository.Store. A transaction holds the store
// lock for its whole duration and works on a private copy that replaces the
// shared state only on commit, so concurrent transactions are serialized.
type Store struct {
	mu   sync.RWMutex
	data *dataset
	now  func() time.Time
}

// Option customises a Store.
type Option func(*Store)

// WithClock overrides the time source used for generated timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore returns an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{data: newDataset(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) read(fn func(d *dataset) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.data)
}

func (s *Store) write(fn func(d *dataset) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.data.clone()
	if err := fn(work); err != nil {
		return err
	}
	s.data = work
	return nil
}

func (s *Store) clock() time.Time { return s.now().UTC() }

func (s *Store) WorkItems() repository.WorkItemRepository { return &workItems{a: s} }

func (s *Store) Photos() repository.PhotoRepository { return &photos{a: s} }

func (s *Store) History() repository.StatusHistoryRepository { return &history{a: s} }

// WithinTx must not be re-entered through the root store from inside fn; use
// the tx argument instead.
func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.data.clone()
	if err := fn(&txStore{data: work, now: s.now}); err != nil {
		return err
	}
	s.data = work
	return nil
}

type txStore struct {
	data *dataset
	now  func() time.Time
}

func (t *txStore) read(fn func(d *dataset) error) error  { return fn(t.data) }
func (t *txStore) write(fn func(d *dataset) error) error { return fn(t.data) }
func (t *txStore) clock() time.Time                      { return t.now().UTC() }

func (t *txStore) WorkItems() repository.WorkItemRepository { return &workItems{a: t} }

func (t *txStore) Photos() repository.PhotoRepository { return &photos{a: t} }

func (t *txStore) History() repository.StatusHistoryRepository { return &history{a: t} }

// WithinTx behaves like a savepoint.
func (t *txStore) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	work := t.data.clone()
	if err := fn(&txStore{data: work, now: t.now}); err != nil {
		return err
	}
	*t.data = *work
	return nil
}

type workItems struct{ a accessor }

func (r *workItems) Create(ctx context.Context, item *domain.WorkItem) error {
	return r.a.write(func(d *dataset) error {
		for _, existing := range d.items {
			if existing.ItemNumber == item.ItemNumber {
				return repository.ErrDuplicate
			}
		}
		d.itemSeq++
		item.ID = d.itemSeq
		if item.SubmittedAt.IsZero() {
			item.SubmittedAt = r.a.clock()
		}
		stored := item.Clone()
		stored.Photos, stored.History = nil, nil
		d.items[item.ID] = stored
		return nil
	})
}

func (r *workItems) Update(ctx context.Context, item *domain.WorkItem) error {
	return r.a.write(func(d *dataset) error {
		current, ok := d.items[item.ID]
		if !ok {
			return repository.ErrNotFound
		}
		for id, existing := range d.items {
			if id != item.ID && existing.ItemNumber == item.ItemNumber {
				return repository.ErrDuplicate
			}
		}
		stored := item.Clone()
		stored.Photos, stored.History = nil, nil
		stored.SubmitterName = current.SubmitterName
		stored.OriginalSubmitter = current.OriginalSubmitter
		stored.SubmittedAt = current.SubmittedAt
		d.items[item.ID] = stored
		return nil
	})
}

func (r *workItems) GetByID(ctx context.Context, id int64) (*domain.WorkItem, error) {
	var out *domain.WorkItem
	err := r.a.read(func(d *dataset) error {
		item, ok := d.items[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = item.Clone()
		return nil
	})
	return out, err
}

func (r *workItems) GetByIDForUpdate(ctx context.Context, id int64) (*domain.WorkItem, error) {
	return r.GetByID(ctx, id)
}

func (r *workItems) GetByItemNumberForUpdate(ctx context.Context, number string) (*domain.WorkItem, error) {
	var out *domain.WorkItem
	err := r.a.read(func(d *dataset) error {
		for _, item := range d.items {
			if item.ItemNumber == number {
				out = item.Clone()
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *workItems) List(ctx context.Context, filter repository.WorkItemFilter) ([]domain.WorkItem, error) {
	var out []domain.WorkItem
	err := r.a.read(func(d *dataset) error {
		for _, item := range d.items {
			if filter.Status != nil && item.Status != *filter.Status {
				continue
			}
			out = append(out, *item.Clone())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortItems(out, filter.Sort)

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *workItems) ListAssigned(ctx context.Context, assignee string, statuses []domain.WorkItemStatus) ([]domain.WorkItem, error) {
	allowed := make(map[domain.WorkItemStatus]bool, len(statuses))
	for _, s := range statuses {
		allowed[s] = true
	}
	var out []domain.WorkItem
	err := r.a.read(func(d *dataset) error {
		for _, item := range d.items {
			if !item.IsAssignedTo(assignee) {
				continue
			}
			if len(allowed) > 0 && !allowed[item.Status] {
				continue
			}
			out = append(out, *item.Clone())
		}
		return nil
	})
	sortItems(out, repository.SortDateDesc)
	return out, err
}

func (r *workItems) Delete(ctx context.Context, id int64) error {
	return r.a.write(func(d *dataset) error {
		if _, ok := d.items[id]; !ok {
			return repository.ErrNotFound
		}
		delete(d.items, id)
		for pid, p := range d.photos {
			if p.WorkItemID == id {
				delete(d.photos, pid)
			}
		}
		for hid, h := range d.history {
			if h.WorkItemID == id {
				delete(d.history, hid)
			}
		}
		return nil
	})
}

func (r *workItems) MaxDraftNumber(ctx context.Context) (string, error) {
	var best string
	err := r.a.read(func(d *dataset) error {
		for _, item := range d.items {
			n := item.ItemNumber
			if !workflow.IsDraftNumber(n) {
				continue
			}
			if len(n) > len(best) || (len(n) == len(best) && n > best) {
				best = n
			}
		}
		return nil
	})
	return best, err
}

// LockDraftNumbers is a no-op: transactions already hold the store lock.
func (r *workItems) LockDraftNumbers(ctx context.Context) error { return nil }

func sortItems(items []domain.WorkItem, order string) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		switch order {
		case repository.SortDateAsc:
			if !a.SubmittedAt.Equal(b.SubmittedAt) {
				return a.SubmittedAt.Before(b.SubmittedAt)
			}
			return a.ID < b.ID
		case repository.SortItemNumber:
			return a.ItemNumber < b.ItemNumber
		case repository.SortSubmitter:
			if a.SubmitterName != b.SubmitterName {
				return a.SubmitterName < b.SubmitterName
			}
			return a.SubmittedAt.After(b.SubmittedAt)
		default:
			if !a.SubmittedAt.Equal(b.SubmittedAt) {
				return a.SubmittedAt.After(b.SubmittedAt)
			}
			return a.ID > b.ID
		}
	})
}

type photos struct{ a accessor }

func (r *photos) Create(ctx context.Context, photo *domain.Photo) error {
	return r.a.write(func(d *dataset) error {
		if _, ok := d.items[photo.WorkItemID]; !ok {
			return repository.ErrNotFound
		}
		d.photoSeq++
		photo.ID = d.photoSeq
		if photo.CreatedAt.IsZero() {
			photo.CreatedAt = r.a.clock()
		}
		cp := *photo
		d.photos[photo.ID] = &cp
		return nil
	})
}

func (r *photos) UpdateCaption(ctx context.Context, id int64, caption string) error {
	return r.a.write(func(d *dataset) error {
		p, ok := d.photos[id]
		if !ok {
			return repository.ErrNotFound
		}
		p.Caption = caption
		return nil
	})
}

func (r *photos) GetByID(ctx context.Context, id int64) (*domain.Photo, error) {
	var out *domain.Photo
	err := r.a.read(func(d *dataset) error {
		p, ok := d.photos[id]
		if !ok {
			return repository.ErrNotFound
		}
		cp := *p
		out = &cp
		return nil
	})
	return out, err
}

func (r *photos) ListByWorkItem(ctx context.Context, workItemID int64) ([]domain.Photo, error) {
	var out []domain.Photo
	err := r.a.read(func(d *dataset) error {
		for _, p := range d.photos {
			if p.WorkItemID == workItemID {
				out = append(out, *p)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (r *photos) CountByWorkItem(ctx context.Context, workItemID int64) (int, error) {
	count := 0
	err := r.a.read(func(d *dataset) error {
		for _, p := range d.photos {
			if p.WorkItemID == workItemID {
				count++
			}
		}
		return nil
	})
	return count, err
}

func (r *photos) Delete(ctx context.Context, id int64) error {
	return r.a.write(func(d *dataset) error {
		if _, ok := d.photos[id]; !ok {
			return repository.ErrNotFound
		}
		delete(d.photos, id)
		return nil
	})
}

type history struct{ a accessor }

func (r *history) Create(ctx context.Context, entry *domain.StatusHistory) error {
	return r.a.write(func(d *dataset) error {
		if _, ok := d.items[entry.WorkItemID]; !ok {
			return repository.ErrNotFound
		}
		d.recordSeq++
		entry.ID = d.recordSeq
		if entry.ChangedAt.IsZero() {
			entry.ChangedAt = r.a.clock()
		}
		cp := entry.Clone()
		d.history[entry.ID] = &cp
		return nil
	})
}

func (r *history) ListByWorkItem(ctx context.Context, workItemID int64) ([]domain.StatusHistory, error) {
	var out []domain.StatusHistory
	err := r.a.read(func(d *dataset) error {
		for _, h := range d.history {
			if h.WorkItemID == workItemID {
				out = append(out, h.Clone())
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ChangedAt.Equal(out[j].ChangedAt) {
			return out[i].ChangedAt.Before(out[j].ChangedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}
