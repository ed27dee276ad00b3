package repository

import (
	"context"

	"github.com/spec-kit/worklist-service/internal/domain"
)

type statusHistoryRepository struct {
	db DBTX
}

func (r *statusHistoryRepository) Create(ctx context.Context, entry *domain.StatusHistory) error {
	const query = `
        INSERT INTO status_history (work_item_id, old_status, new_status, changed_by, notes)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, changed_at`
	err := r.db.QueryRow(ctx, query, entry.WorkItemID, entry.OldStatus, entry.NewStatus, entry.ChangedBy, entry.Notes).
		Scan(&entry.ID, &entry.ChangedAt)
	return mapPgError(err)
}

func (r *statusHistoryRepository) ListByWorkItem(ctx context.Context, workItemID int64) ([]domain.StatusHistory, error) {
	const query = `
        SELECT id, work_item_id, old_status, new_status, changed_by, notes, changed_at
        FROM status_history
        WHERE work_item_id=$1
        ORDER BY changed_at ASC, id ASC`
	rows, err := r.db.Query(ctx, query, workItemID)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	var entries []domain.StatusHistory
	for rows.Next() {
		var h domain.StatusHistory
		if err := rows.Scan(&h.ID, &h.WorkItemID, &h.OldStatus, &h.NewStatus, &h.ChangedBy, &h.Notes, &h.ChangedAt); err != nil {
			return nil, err
		}
		entries = append(entries, h)
	}
	return entries, rows.Err()
}
