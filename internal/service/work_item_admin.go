package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/worklist-service/internal/domain"
	"github.com/spec-kit/worklist-service/internal/events"
	"github.com/spec-kit/worklist-service/internal/export"
	"github.com/spec-kit/worklist-service/internal/repository"
	"github.com/spec-kit/worklist-service/internal/workflow"
	apperrors "github.com/spec-kit/worklist-service/pkg/util/errorutil"
)

// ItemView is a fully loaded work item as seen by a particular actor.
type ItemView struct {
	Item    *domain.WorkItem
	CanEdit bool
}

// ListFilter describes admin dashboard parameters.
type ListFilter struct {
	Status string
	Sort   string
	Limit  int
	Offset int
}

// GetItem loads an item with its photos and history. Crew may only read items
// they submitted or are assigned to, and never see admin notes.
func (s *WorkItemService) GetItem(ctx context.Context, actor domain.Actor, itemID int64) (*ItemView, error) {
	item, err := s.loadItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		if !actor.IsCrew() || !workflow.IsInvolved(item, actor.ID) {
			return nil, apperrors.NewPermissionDenied("you do not have access to this work item")
		}
		item.AdminNotes = nil
		item.AdminNotesUpdatedAt = nil
	}
	return &ItemView{Item: item, CanEdit: s.CanEdit(item, actor)}, nil
}

// ListItems returns the admin dashboard listing.
func (s *WorkItemService) ListItems(ctx context.Context, actor domain.Actor, filter ListFilter) ([]domain.WorkItem, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewPermissionDenied("only admins can list all work items")
	}
	repoFilter := repository.WorkItemFilter{
		Sort:   normalizeSort(filter.Sort),
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}
	if filter.Status != "" {
		status, ok := workflow.ParseStatus(filter.Status)
		if !ok {
			return nil, invalidStatus(domain.WorkItemStatus(filter.Status))
		}
		repoFilter.Status = &status
	}
	items, err := s.store.WorkItems().List(ctx, repoFilter)
	if err != nil {
		return nil, s.classify(err, "work item")
	}
	return items, nil
}

// ListAssigned returns the items waiting on actor for a revision.
func (s *WorkItemService) ListAssigned(ctx context.Context, actor domain.Actor) ([]domain.WorkItem, error) {
	if !actor.IsCrew() {
		return nil, apperrors.NewPermissionDenied("only crew members have assignments")
	}
	items, err := s.store.WorkItems().ListAssigned(ctx, actor.ID, workflow.RevisionStatuses())
	if err != nil {
		return nil, s.classify(err, "work item")
	}
	return items, nil
}

// ListApproved returns the items that completed review, by item number.
func (s *WorkItemService) ListApproved(ctx context.Context, actor domain.Actor) ([]domain.WorkItem, error) {
	if !actor.IsCrew() && !actor.IsAdmin() {
		return nil, apperrors.NewPermissionDenied("authentication required")
	}
	status := domain.StatusCompletedReview
	items, err := s.store.WorkItems().List(ctx, repository.WorkItemFilter{
		Status: &status,
		Sort:   repository.SortItemNumber,
	})
	if err != nil {
		return nil, s.classify(err, "work item")
	}
	for i := range items {
		items[i].AdminNotes = nil
		items[i].AdminNotesUpdatedAt = nil
	}
	return items, nil
}

// FormOptions is what the crew submit form offers.
type FormOptions struct {
	NextItemNumber string
	MaxPhotos      int
	YardItems      []string
	DraftItems     []string
	Assigned       []domain.WorkItem
}

const catalogueDescriptionLen = 50

// FormOptions gathers the submit form choices for a crew member. Approved
// items are appended to the planned drafts unless already listed.
func (s *WorkItemService) FormOptions(ctx context.Context, actor domain.Actor) (*FormOptions, error) {
	if !actor.IsCrew() {
		return nil, apperrors.NewPermissionDenied("only crew members can submit work items")
	}
	next, err := s.NextDraftNumber(ctx)
	if err != nil {
		return nil, err
	}
	assigned, err := s.ListAssigned(ctx, actor)
	if err != nil {
		return nil, err
	}
	approved, err := s.ListApproved(ctx, actor)
	if err != nil {
		return nil, err
	}

	drafts := append([]string(nil), s.cfg.Catalogue.DraftItems...)
	listed := make(map[string]bool, len(drafts))
	for _, d := range drafts {
		listed[d] = true
	}
	for _, item := range approved {
		entry := item.ItemNumber + " - " + truncateRunes(item.Description, catalogueDescriptionLen)
		if !listed[entry] {
			listed[entry] = true
			drafts = append(drafts, entry)
		}
	}
	return &FormOptions{
		NextItemNumber: next,
		MaxPhotos:      s.cfg.PhotoMaxCount,
		YardItems:      append([]string(nil), s.cfg.Catalogue.YardItems...),
		DraftItems:     drafts,
		Assigned:       assigned,
	}, nil
}

// EditItem lets an admin change any content field, including the item
// number. The status is left alone.
func (s *WorkItemService) EditItem(ctx context.Context, actor domain.Actor, itemID int64, input EditInput) (*domain.WorkItem, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewPermissionDenied("only admins can edit work items")
	}
	number, err := workflow.NormalizeItemNumber(input.ItemNumber)
	if err != nil {
		return nil, err
	}
	content, err := workflow.NormalizeContent(input.Content, true)
	if err != nil {
		return nil, err
	}
	captions, err := normalizeCaptions(input.Captions)
	if err != nil {
		return nil, err
	}
	if err := s.checkUploads(input.Photos); err != nil {
		return nil, err
	}

	var (
		item  *domain.WorkItem
		saved []string
	)
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		item, err = tx.WorkItems().GetByIDForUpdate(ctx, itemID)
		if err != nil {
			return err
		}
		existing, err := tx.Photos().CountByWorkItem(ctx, item.ID)
		if err != nil {
			return err
		}
		if err := workflow.CheckPhotoLimit(existing, len(input.Photos), s.cfg.PhotoMaxCount); err != nil {
			return err
		}
		if err := s.updateCaptions(ctx, tx, item.ID, captions); err != nil {
			return err
		}
		item.ItemNumber = number
		item.ApplyContent(content)
		s.touch(item, actor)
		if err := tx.WorkItems().Update(ctx, item); err != nil {
			return err
		}
		if err := s.attachPhotos(ctx, tx, item.ID, input.Photos, &saved); err != nil {
			return err
		}
		item.Photos, err = tx.Photos().ListByWorkItem(ctx, item.ID)
		return err
	})
	if err != nil {
		s.removeFiles(saved)
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("item number already exists", map[string]any{"item_number": number})
		}
		return nil, s.classify(err, "work item")
	}
	s.invalidateDraftNumber()
	s.logger.Info("work item edited",
		zap.Int64("work_item_id", item.ID),
		zap.String("item_number", item.ItemNumber),
		zap.String("actor", actor.ID),
		zap.Int("photos_added", len(input.Photos)))
	return item, nil
}

// SaveAdminNotes stores the private admin notes of an item.
func (s *WorkItemService) SaveAdminNotes(ctx context.Context, actor domain.Actor, itemID int64, notes string) (*domain.WorkItem, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewPermissionDenied("only admins can write admin notes")
	}
	normalized, err := workflow.NormalizeNotes("admin notes", notes)
	if err != nil {
		return nil, err
	}

	var item *domain.WorkItem
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		item, err = tx.WorkItems().GetByIDForUpdate(ctx, itemID)
		if err != nil {
			return err
		}
		at := s.now()
		item.AdminNotes = normalized
		item.AdminNotesUpdatedAt = &at
		return tx.WorkItems().Update(ctx, item)
	})
	if err != nil {
		return nil, s.classify(err, "work item")
	}
	return item, nil
}

// DeletePhoto removes one photo of an item. Admins may always do this; crew
// only while they can edit the item. The file is removed after commit.
func (s *WorkItemService) DeletePhoto(ctx context.Context, actor domain.Actor, itemID, photoID int64) error {
	var photo *domain.Photo
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		item, err := tx.WorkItems().GetByIDForUpdate(ctx, itemID)
		if err != nil {
			return err
		}
		if guard := workflow.CanModifyPhotos(item, actor); !guard.Allowed {
			return guard.Error()
		}
		photo, err = ownedPhoto(ctx, tx, itemID, photoID)
		if err != nil {
			return err
		}
		return tx.Photos().Delete(ctx, photoID)
	})
	if err != nil {
		return s.classify(err, "work item")
	}
	s.removeFiles([]string{photo.Filename})
	s.logger.Info("photo deleted",
		zap.Int64("work_item_id", itemID),
		zap.Int64("photo_id", photoID),
		zap.String("actor", actor.ID))
	return nil
}

// DeleteItem removes an item together with its photos and history.
func (s *WorkItemService) DeleteItem(ctx context.Context, actor domain.Actor, itemID int64) error {
	if !actor.IsAdmin() {
		return apperrors.NewPermissionDenied("only admins can delete work items")
	}
	var (
		item  *domain.WorkItem
		files []string
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		item, err = tx.WorkItems().GetByIDForUpdate(ctx, itemID)
		if err != nil {
			return err
		}
		photos, err := tx.Photos().ListByWorkItem(ctx, itemID)
		if err != nil {
			return err
		}
		for _, p := range photos {
			files = append(files, p.Filename)
		}
		return tx.WorkItems().Delete(ctx, itemID)
	})
	if err != nil {
		return s.classify(err, "work item")
	}
	s.removeFiles(files)
	s.invalidateDraftNumber()
	s.logger.Info("work item deleted",
		zap.Int64("work_item_id", item.ID),
		zap.String("item_number", item.ItemNumber),
		zap.String("actor", actor.ID),
		zap.Int("photos", len(files)))
	s.publishEvent(ctx, events.NewEvent(events.EventWorkItemDeleted, item, actor, events.WorkItemDeletedPayload{
		PhotoFiles: files,
	}))
	return nil
}

// PhotoPath resolves the stored file of a photo for download by an admin.
func (s *WorkItemService) PhotoPath(ctx context.Context, actor domain.Actor, itemID, photoID int64) (string, *domain.Photo, error) {
	if !actor.IsAdmin() {
		return "", nil, apperrors.NewPermissionDenied("only admins can download photos")
	}
	if s.photos == nil {
		return "", nil, apperrors.NewInternalError(errors.New("photo storage not configured"))
	}
	if _, err := s.store.WorkItems().GetByID(ctx, itemID); err != nil {
		return "", nil, s.classify(err, "work item")
	}
	photo, err := ownedPhoto(ctx, s.store, itemID, photoID)
	if err != nil {
		return "", nil, s.classify(err, "photo")
	}
	path, err := s.photos.Path(photo.Filename)
	if err != nil {
		return "", nil, apperrors.NewNotFound("photo", map[string]any{"photo_id": photoID})
	}
	return path, photo, nil
}

// ExportItem renders one item as a document.
func (s *WorkItemService) ExportItem(ctx context.Context, actor domain.Actor, itemID int64) (*export.Document, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewPermissionDenied("only admins can export work items")
	}
	item, err := s.loadItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	doc, err := s.exporter.Export(ctx, item)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return doc, nil
}

// ExportBatch renders several items into one zip archive. Items that cannot
// be loaded or rendered are logged and left out.
func (s *WorkItemService) ExportBatch(ctx context.Context, actor domain.Actor, itemIDs []int64) (*export.Document, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewPermissionDenied("only admins can export work items")
	}
	if len(itemIDs) == 0 {
		return nil, apperrors.NewValidationError("no work items selected", nil)
	}
	docs := make([]*export.Document, 0, len(itemIDs))
	for _, id := range itemIDs {
		doc, err := s.ExportItem(ctx, actor, id)
		if err != nil {
			s.logger.Warn("skipping work item in batch export", zap.Int64("work_item_id", id), zap.Error(err))
			continue
		}
		docs = append(docs, doc)
	}
	if len(docs) == 0 {
		return nil, apperrors.NewNotFound("exportable work items", map[string]any{"ids": itemIDs})
	}
	bundle, err := export.Bundle(docs, s.now())
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return bundle, nil
}

func (s *WorkItemService) loadItem(ctx context.Context, itemID int64) (*domain.WorkItem, error) {
	item, err := s.store.WorkItems().GetByID(ctx, itemID)
	if err != nil {
		return nil, s.classify(err, "work item")
	}
	if item.Photos, err = s.store.Photos().ListByWorkItem(ctx, itemID); err != nil {
		return nil, s.classify(err, "work item")
	}
	if item.History, err = s.store.History().ListByWorkItem(ctx, itemID); err != nil {
		return nil, s.classify(err, "work item")
	}
	return item, nil
}

// removeFiles deletes files whose rows are gone. Failures leave orphans on
// disk and are only logged.
func (s *WorkItemService) removeFiles(names []string) {
	if s.photos == nil {
		return
	}
	for _, name := range names {
		if err := s.photos.Delete(name); err != nil {
			s.logger.Warn("failed to remove photo file", zap.String("file", name), zap.Error(err))
		}
	}
}

func ownedPhoto(ctx context.Context, store repository.Store, itemID, photoID int64) (*domain.Photo, error) {
	photo, err := store.Photos().GetByID(ctx, photoID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && photo.WorkItemID != itemID) {
		return nil, apperrors.NewNotFound("photo", map[string]any{"photo_id": photoID})
	}
	if err != nil {
		return nil, err
	}
	return photo, nil
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func normalizeSort(sort string) string {
	switch sort {
	case repository.SortDateAsc, repository.SortItemNumber, repository.SortSubmitter:
		return sort
	default:
		return repository.SortDateDesc
	}
}
