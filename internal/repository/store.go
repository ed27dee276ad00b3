package repository

import (
	"context"
	"errors"

	"github.com/spec-kit/worklist-service/internal/domain"
)

var (
	// ErrNotFound is returned when a referenced row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a uniqueness constraint is violated.
	ErrDuplicate = errors.New("duplicate record")
)

// Dashboard sort orders.
const (
	SortDateDesc   = "date_desc"
	SortDateAsc    = "date_asc"
	SortItemNumber = "item_number"
	SortSubmitter  = "submitter"
)

// WorkItemFilter captures admin dashboard parameters.
type WorkItemFilter struct {
	Status *domain.WorkItemStatus
	Sort   string
	Limit  int
	Offset int
}

// Store groups the repositories and runs them inside one transaction.
type Store interface {
	WorkItems() WorkItemRepository
	Photos() PhotoRepository
	History() StatusHistoryRepository
	// WithinTx runs fn against a transactional view of the store. The
	// transaction commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

// WorkItemRepository encapsulates work item persistence.
type WorkItemRepository interface {
	Create(ctx context.Context, item *domain.WorkItem) error
	Update(ctx context.Context, item *domain.WorkItem) error
	GetByID(ctx context.Context, id int64) (*domain.WorkItem, error)
	// GetByIDForUpdate reads the row and locks it until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.WorkItem, error)
	GetByItemNumberForUpdate(ctx context.Context, number string) (*domain.WorkItem, error)
	List(ctx context.Context, filter WorkItemFilter) ([]domain.WorkItem, error)
	ListAssigned(ctx context.Context, assignee string, statuses []domain.WorkItemStatus) ([]domain.WorkItem, error)
	Delete(ctx context.Context, id int64) error
	// MaxDraftNumber returns the highest DRAFT_ item number, or "" when none exist.
	MaxDraftNumber(ctx context.Context) (string, error)
	// LockDraftNumbers serializes draft number allocation until the
	// surrounding transaction ends.
	LockDraftNumbers(ctx context.Context) error
}

// PhotoRepository persists photo metadata.
type PhotoRepository interface {
	Create(ctx context.Context, photo *domain.Photo) error
	UpdateCaption(ctx context.Context, id int64, caption string) error
	GetByID(ctx context.Context, id int64) (*domain.Photo, error)
	ListByWorkItem(ctx context.Context, workItemID int64) ([]domain.Photo, error)
	CountByWorkItem(ctx context.Context, workItemID int64) (int, error)
	Delete(ctx context.Context, id int64) error
}

// StatusHistoryRepository stores audit entries.
type StatusHistoryRepository interface {
	Create(ctx context.Context, entry *domain.StatusHistory) error
	ListByWorkItem(ctx context.Context, workItemID int64) ([]domain.StatusHistory, error)
}
