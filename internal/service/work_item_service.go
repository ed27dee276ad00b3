package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/spec-kit/worklist-service/internal/config"
	"github.com/spec-kit/worklist-service/internal/domain"
	"github.com/spec-kit/worklist-service/internal/events"
	"github.com/spec-kit/worklist-service/internal/export"
	"github.com/spec-kit/worklist-service/internal/observability"
	"github.com/spec-kit/worklist-service/internal/repository"
	"github.com/spec-kit/worklist-service/internal/storage"
	"github.com/spec-kit/worklist-service/internal/workflow"
	apperrors "github.com/spec-kit/worklist-service/pkg/util/errorutil"
)

const (
	nextDraftCacheKey = "next_draft_number"
	submitAttempts    = 3
)

// PhotoStore keeps the binary photo files referenced by photo rows.
type PhotoStore interface {
	Save(originalName string, r io.Reader) (string, error)
	Delete(name string) error
	Path(name string) (string, error)
}

// WorkItemService is the workflow engine for work items.
type WorkItemService struct {
	store      repository.Store
	photos     PhotoStore
	exporter   export.Exporter
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	cfg        config.WorkflowConfig
	draftCache *gocache.Cache
	now        func() time.Time
}

// WorkItemDependencies bundles collaborators for the work item service.
type WorkItemDependencies struct {
	Store      repository.Store
	Photos     PhotoStore
	Exporter   export.Exporter
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Workflow   config.WorkflowConfig
	Clock      func() time.Time
}

// PhotoUpload is one incoming photo file with its caption.
type PhotoUpload struct {
	Name    string
	Caption string
	Content io.Reader
}

// SubmitInput describes a crew submission.
type SubmitInput struct {
	ItemNumber string
	Content    domain.WorkItemContent
	Photos     []PhotoUpload
}

// SubmitResult reports the stored item and whether it was newly created.
type SubmitResult struct {
	Item    *domain.WorkItem
	Created bool
}

// AssignInput describes an admin assignment.
type AssignInput struct {
	Status        domain.WorkItemStatus
	Assignee      string
	RevisionNotes string
}

// ResolveInput describes a crew revision.
type ResolveInput struct {
	Description string
	Detail      string
	References  string
	Captions    map[int64]string
	Photos      []PhotoUpload
}

// EditInput describes an admin content edit.
type EditInput struct {
	ItemNumber string
	Content    domain.WorkItemContent
	Captions   map[int64]string
	Photos     []PhotoUpload
}

// NewWorkItemService constructs the service.
func NewWorkItemService(deps WorkItemDependencies) *WorkItemService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	dispatcher := deps.Dispatcher
	if dispatcher == nil {
		dispatcher = events.NewInMemoryDispatcher(logger)
	}
	now := deps.Clock
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	var draftCache *gocache.Cache
	if ttl := deps.Workflow.DraftNumberCacheTTL(); ttl > 0 {
		draftCache = gocache.New(ttl, 2*ttl)
	}
	return &WorkItemService{
		store:      deps.Store,
		photos:     deps.Photos,
		exporter:   deps.Exporter,
		dispatcher: dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		cfg:        deps.Workflow,
		draftCache: draftCache,
		now:        now,
	}
}

// Submit creates a work item or overwrites the content of an existing one
// with the same item number. A blank number takes the next draft number.
func (s *WorkItemService) Submit(ctx context.Context, actor domain.Actor, input SubmitInput) (*SubmitResult, error) {
	if !actor.IsCrew() {
		return nil, apperrors.NewPermissionDenied("only crew members can submit work items")
	}
	content, err := workflow.NormalizeContent(input.Content, true)
	if err != nil {
		return nil, err
	}
	number := ""
	if raw := strings.TrimSpace(input.ItemNumber); raw != "" {
		if number, err = workflow.NormalizeItemNumber(raw); err != nil {
			return nil, err
		}
	}
	if err := s.checkUploads(input.Photos); err != nil {
		return nil, err
	}
	if err := workflow.CheckPhotoLimit(0, len(input.Photos), s.cfg.PhotoMaxCount); err != nil {
		return nil, err
	}

	var (
		result *SubmitResult
		saved  []string
	)
	// A concurrent insert of the same number surfaces as ErrDuplicate. The
	// retry then either allocates a fresh draft number or takes the
	// overwrite path for an explicit number.
	for attempt := 1; ; attempt++ {
		saved = saved[:0]
		result, err = s.submitOnce(ctx, actor, number, content, input.Photos, &saved)
		if err == nil || attempt == submitAttempts || !errors.Is(err, repository.ErrDuplicate) {
			break
		}
		s.removeFiles(saved)
		s.logger.Debug("item number taken concurrently, retrying submit",
			zap.String("item_number", number), zap.Int("attempt", attempt))
	}
	if err != nil {
		s.removeFiles(saved)
		return nil, s.classify(err, "work item")
	}
	s.invalidateDraftNumber()

	s.logger.Info("work item submitted",
		zap.Int64("work_item_id", result.Item.ID),
		zap.String("item_number", result.Item.ItemNumber),
		zap.String("actor", actor.ID),
		zap.Bool("created", result.Created),
		zap.Int("photos", len(input.Photos)))
	s.publishEvent(ctx, events.NewEvent(events.EventWorkItemSubmitted, result.Item, actor, events.WorkItemSubmittedPayload{
		Created:    result.Created,
		PhotoCount: len(input.Photos),
	}))
	return result, nil
}

// submitOnce runs one submit transaction. With a blank number the draft
// allocation lock is taken and only the create path is possible.
func (s *WorkItemService) submitOnce(ctx context.Context, actor domain.Actor, number string, content domain.WorkItemContent, photos []PhotoUpload, saved *[]string) (*SubmitResult, error) {
	result := &SubmitResult{}
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		var (
			item *domain.WorkItem
			err  error
		)
		if number == "" {
			item, err = s.createDraft(ctx, tx, actor, content)
			result.Created = true
		} else {
			item, result.Created, err = s.upsertNumbered(ctx, tx, actor, number, content, len(photos))
		}
		if err != nil {
			return err
		}

		if err := s.attachPhotos(ctx, tx, item.ID, photos, saved); err != nil {
			return err
		}
		if item.Photos, err = tx.Photos().ListByWorkItem(ctx, item.ID); err != nil {
			return err
		}
		result.Item = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *WorkItemService) createDraft(ctx context.Context, tx repository.Store, actor domain.Actor, content domain.WorkItemContent) (*domain.WorkItem, error) {
	if err := tx.WorkItems().LockDraftNumbers(ctx); err != nil {
		return nil, err
	}
	highest, err := tx.WorkItems().MaxDraftNumber(ctx)
	if err != nil {
		return nil, err
	}
	item := s.newItem(actor, workflow.NextDraftNumber(highest), content)
	if err := tx.WorkItems().Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *WorkItemService) upsertNumbered(ctx context.Context, tx repository.Store, actor domain.Actor, number string, content domain.WorkItemContent, incoming int) (*domain.WorkItem, bool, error) {
	item, err := tx.WorkItems().GetByItemNumberForUpdate(ctx, number)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		item = s.newItem(actor, number, content)
		if err := tx.WorkItems().Create(ctx, item); err != nil {
			return nil, false, err
		}
		return item, true, nil
	case err != nil:
		return nil, false, err
	}

	if guard := workflow.CanResubmit(item); !guard.Allowed {
		return nil, false, guard.Error()
	}
	existing, err := tx.Photos().CountByWorkItem(ctx, item.ID)
	if err != nil {
		return nil, false, err
	}
	if err := workflow.CheckPhotoLimit(existing, incoming, s.cfg.PhotoMaxCount); err != nil {
		return nil, false, err
	}
	item.ApplyContent(content)
	s.touch(item, actor)
	if err := tx.WorkItems().Update(ctx, item); err != nil {
		return nil, false, err
	}
	return item, false, nil
}

func (s *WorkItemService) newItem(actor domain.Actor, number string, content domain.WorkItemContent) *domain.WorkItem {
	item := &domain.WorkItem{
		ItemNumber:        number,
		SubmitterName:     actor.ID,
		OriginalSubmitter: actor.ID,
		Status:            domain.StatusSubmitted,
	}
	item.ApplyContent(content)
	if s.cfg.AutoAssignSubmitter {
		assignee := actor.ID
		item.AssignedTo = &assignee
	}
	return item
}

// Assign sets status, assignee and revision notes in one step. A history row
// is written only when the status changes.
func (s *WorkItemService) Assign(ctx context.Context, actor domain.Actor, itemID int64, input AssignInput) (*domain.WorkItem, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewPermissionDenied("only admins can assign work items")
	}
	status, ok := workflow.ParseStatus(string(input.Status))
	if !ok {
		return nil, invalidStatus(input.Status)
	}
	var assignee *string
	if input.Assignee != "" {
		if _, ok := s.cfg.Member(input.Assignee); !ok {
			return nil, apperrors.NewValidationError("unknown crew member",
				map[string]any{"assigned_to": input.Assignee})
		}
		name := input.Assignee
		assignee = &name
	}
	notes, err := workflow.NormalizeNotes("revision notes", input.RevisionNotes)
	if err != nil {
		return nil, err
	}

	var (
		item      *domain.WorkItem
		oldStatus domain.WorkItemStatus
	)
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		item, err = tx.WorkItems().GetByIDForUpdate(ctx, itemID)
		if err != nil {
			return err
		}
		oldStatus = item.Status
		item.Status = status
		item.AssignedTo = assignee
		item.RevisionNotes = notes
		item.NeedsRevision = workflow.NeedsRevision(status)
		s.touch(item, actor)
		if err := tx.WorkItems().Update(ctx, item); err != nil {
			return err
		}
		if oldStatus == status {
			return nil
		}
		return s.recordHistory(ctx, tx, item, oldStatus, actor, notes)
	})
	if err != nil {
		return nil, s.classify(err, "work item")
	}

	if oldStatus != status {
		s.metrics.RecordTransition("assign", oldStatus, status)
	}
	s.logger.Info("work item assigned",
		zap.Int64("work_item_id", item.ID),
		zap.String("actor", actor.ID),
		zap.String("old_status", string(oldStatus)),
		zap.String("status", string(status)),
		zap.Stringp("assigned_to", assignee))
	if assignee != nil {
		s.publishEvent(ctx, events.NewEvent(events.EventWorkItemAssigned, item, actor, events.WorkItemAssignedPayload{
			Assignee:      *assignee,
			OldStatus:     oldStatus,
			Status:        status,
			RevisionNotes: notes,
		}))
	}
	return item, nil
}

// ResolveRevision lets the submitter or assignee fix an item and hand it back
// for review. The item always ends in Submitted with its notes cleared.
func (s *WorkItemService) ResolveRevision(ctx context.Context, actor domain.Actor, itemID int64, input ResolveInput) (*domain.WorkItem, error) {
	if !actor.IsCrew() {
		return nil, apperrors.NewPermissionDenied("only crew members can resolve revisions")
	}
	if err := s.checkUploads(input.Photos); err != nil {
		return nil, err
	}
	captions, err := normalizeCaptions(input.Captions)
	if err != nil {
		return nil, err
	}

	var (
		item      *domain.WorkItem
		oldStatus domain.WorkItemStatus
		saved     []string
	)
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		item, err = tx.WorkItems().GetByIDForUpdate(ctx, itemID)
		if err != nil {
			return err
		}
		if guard := workflow.CanResolveRevision(item, actor.ID); !guard.Allowed {
			return guard.Error()
		}
		content, err := workflow.NormalizeContent(domain.WorkItemContent{
			Location:    item.Location,
			Description: input.Description,
			Detail:      input.Detail,
			References:  input.References,
		}, false)
		if err != nil {
			return err
		}
		if err := s.updateCaptions(ctx, tx, item.ID, captions); err != nil {
			return err
		}
		existing, err := tx.Photos().CountByWorkItem(ctx, item.ID)
		if err != nil {
			return err
		}
		if err := workflow.CheckPhotoLimit(existing, len(input.Photos), s.cfg.PhotoMaxCount); err != nil {
			return err
		}

		oldStatus = item.Status
		item.ApplyContent(content)
		item.Status = domain.StatusSubmitted
		item.NeedsRevision = false
		item.RevisionNotes = nil
		s.touch(item, actor)
		if err := tx.WorkItems().Update(ctx, item); err != nil {
			return err
		}
		if err := s.attachPhotos(ctx, tx, item.ID, input.Photos, &saved); err != nil {
			return err
		}
		if item.Photos, err = tx.Photos().ListByWorkItem(ctx, item.ID); err != nil {
			return err
		}
		note := "Resubmitted after revision"
		return s.recordHistory(ctx, tx, item, oldStatus, actor, &note)
	})
	if err != nil {
		s.removeFiles(saved)
		return nil, s.classify(err, "work item")
	}

	s.metrics.RecordTransition("resolve_revision", oldStatus, domain.StatusSubmitted)
	s.logger.Info("work item revision resolved",
		zap.Int64("work_item_id", item.ID),
		zap.String("actor", actor.ID),
		zap.String("old_status", string(oldStatus)),
		zap.Int("photos_added", len(input.Photos)))
	s.publishEvent(ctx, events.NewEvent(events.EventWorkItemRevised, item, actor, events.WorkItemRevisedPayload{
		OldStatus:   oldStatus,
		PhotosAdded: len(input.Photos),
	}))
	return item, nil
}

// UpdateStatus changes only the status. Like Assign, a changed status is
// recorded in the history.
func (s *WorkItemService) UpdateStatus(ctx context.Context, actor domain.Actor, itemID int64, status domain.WorkItemStatus) (*domain.WorkItem, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewPermissionDenied("only admins can change the status")
	}
	if _, ok := workflow.ParseStatus(string(status)); !ok {
		return nil, invalidStatus(status)
	}

	var (
		item      *domain.WorkItem
		oldStatus domain.WorkItemStatus
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		item, err = tx.WorkItems().GetByIDForUpdate(ctx, itemID)
		if err != nil {
			return err
		}
		oldStatus = item.Status
		if oldStatus == status {
			return nil
		}
		item.Status = status
		item.NeedsRevision = workflow.NeedsRevision(status)
		s.touch(item, actor)
		if err := tx.WorkItems().Update(ctx, item); err != nil {
			return err
		}
		return s.recordHistory(ctx, tx, item, oldStatus, actor, nil)
	})
	if err != nil {
		return nil, s.classify(err, "work item")
	}
	if oldStatus == status {
		return item, nil
	}

	s.metrics.RecordTransition("update_status", oldStatus, status)
	s.logger.Info("work item status updated",
		zap.Int64("work_item_id", item.ID),
		zap.String("actor", actor.ID),
		zap.String("old_status", string(oldStatus)),
		zap.String("status", string(status)))
	s.publishEvent(ctx, events.NewEvent(events.EventWorkItemStatusChanged, item, actor, events.WorkItemStatusChangedPayload{
		OldStatus: oldStatus,
		NewStatus: status,
	}))
	return item, nil
}

// CanEdit reports whether actor may edit item from the crew side. Admins
// have their own edit path and are not covered here.
func (s *WorkItemService) CanEdit(item *domain.WorkItem, actor domain.Actor) bool {
	return actor.IsCrew() && workflow.CanEdit(item, actor.ID)
}

// NextDraftNumber returns the draft number a blank submission would receive.
// The value is cached briefly and dropped after every submission.
func (s *WorkItemService) NextDraftNumber(ctx context.Context) (string, error) {
	if s.draftCache != nil {
		if cached, ok := s.draftCache.Get(nextDraftCacheKey); ok {
			return cached.(string), nil
		}
	}
	highest, err := s.store.WorkItems().MaxDraftNumber(ctx)
	if err != nil {
		return "", s.classify(err, "work item")
	}
	next := workflow.NextDraftNumber(highest)
	if s.draftCache != nil {
		s.draftCache.SetDefault(nextDraftCacheKey, next)
	}
	return next, nil
}

func (s *WorkItemService) invalidateDraftNumber() {
	if s.draftCache != nil {
		s.draftCache.Delete(nextDraftCacheKey)
	}
}

func (s *WorkItemService) touch(item *domain.WorkItem, actor domain.Actor) {
	by := actor.ID
	at := s.now()
	item.LastModifiedBy = &by
	item.LastModifiedAt = &at
}

func (s *WorkItemService) recordHistory(ctx context.Context, tx repository.Store, item *domain.WorkItem, old domain.WorkItemStatus, actor domain.Actor, notes *string) error {
	prev := old
	return tx.History().Create(ctx, &domain.StatusHistory{
		WorkItemID: item.ID,
		OldStatus:  &prev,
		NewStatus:  item.Status,
		ChangedBy:  actor.ID,
		Notes:      notes,
	})
}

// checkUploads validates photo metadata before anything is written.
func (s *WorkItemService) checkUploads(uploads []PhotoUpload) error {
	if len(uploads) > 0 && s.photos == nil {
		return apperrors.NewInternalError(errors.New("photo storage not configured"))
	}
	for i, up := range uploads {
		if !storage.Allowed(up.Name) {
			return apperrors.NewValidationError("unsupported photo type",
				map[string]any{"photo": i + 1, "allowed": storage.AllowedExtensions})
		}
		if _, err := workflow.NormalizeCaption(up.Caption); err != nil {
			return err
		}
	}
	return nil
}

// attachPhotos stores the files and their rows. Names of written files are
// appended to saved so the caller can remove them if the transaction fails.
func (s *WorkItemService) attachPhotos(ctx context.Context, tx repository.Store, itemID int64, uploads []PhotoUpload, saved *[]string) error {
	for i, up := range uploads {
		name, err := s.photos.Save(up.Name, up.Content)
		if err != nil {
			return uploadError(i+1, err)
		}
		*saved = append(*saved, name)
		caption, _ := workflow.NormalizeCaption(up.Caption)
		if err := tx.Photos().Create(ctx, &domain.Photo{
			WorkItemID: itemID,
			Filename:   name,
			Caption:    caption,
		}); err != nil {
			return err
		}
	}
	return nil
}

// updateCaptions rewrites captions of photos that belong to itemID.
func (s *WorkItemService) updateCaptions(ctx context.Context, tx repository.Store, itemID int64, captions map[int64]string) error {
	for photoID, caption := range captions {
		photo, err := tx.Photos().GetByID(ctx, photoID)
		if errors.Is(err, repository.ErrNotFound) || (err == nil && photo.WorkItemID != itemID) {
			return apperrors.NewNotFound("photo", map[string]any{"photo_id": photoID})
		}
		if err != nil {
			return err
		}
		if err := tx.Photos().UpdateCaption(ctx, photoID, caption); err != nil {
			return err
		}
	}
	return nil
}

func (s *WorkItemService) publishEvent(ctx context.Context, event events.Event) {
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish event",
			zap.String("event_type", string(event.Type)),
			zap.Int64("work_item_id", event.WorkItemID),
			zap.Error(err))
	}
}

// classify turns store errors into the caller-facing error taxonomy.
func (s *WorkItemService) classify(err error, resource string) error {
	var domainErr *apperrors.DomainError
	switch {
	case errors.As(err, &domainErr):
		return domainErr
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(resource, nil)
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.NewConflict("item number already exists", nil)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewStorageError(err)
	default:
		s.logger.Error("work item store failure", zap.Error(err))
		return apperrors.NewStorageError(err)
	}
}

func normalizeCaptions(raw map[int64]string) (map[int64]string, error) {
	out := make(map[int64]string, len(raw))
	for id, caption := range raw {
		c, err := workflow.NormalizeCaption(caption)
		if err != nil {
			return nil, err
		}
		out[id] = c
	}
	return out, nil
}

func invalidStatus(status domain.WorkItemStatus) error {
	return apperrors.NewValidationError("invalid status", map[string]any{
		"status":  string(status),
		"allowed": workflow.AllStatuses(),
	})
}

func uploadError(index int, err error) error {
	switch {
	case errors.Is(err, storage.ErrTooLarge):
		return apperrors.NewValidationError("photo too large", map[string]any{"photo": index})
	case errors.Is(err, storage.ErrUnsupportedType):
		return apperrors.NewValidationError("unsupported photo type", map[string]any{"photo": index})
	default:
		return apperrors.NewStorageError(fmt.Errorf("save photo %d: %w", index, err))
	}
}
