package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/worklist-service/internal/domain"
)

const workItemColumns = `id, item_number, location, description, detail, reference_notes,
               submitter_name, original_submitter, submitted_at, status, assigned_to,
               needs_revision, revision_notes, last_modified_by, last_modified_at,
               admin_notes, admin_notes_updated_at`

type workItemRepository struct {
	db DBTX
}

func (r *workItemRepository) Create(ctx context.Context, item *domain.WorkItem) error {
	const query = `
        INSERT INTO work_items (item_number, location, description, detail, reference_notes,
            submitter_name, original_submitter, status, assigned_to, needs_revision, revision_notes)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, submitted_at`
	err := r.db.QueryRow(ctx, query,
		item.ItemNumber,
		item.Location,
		item.Description,
		item.Detail,
		item.References,
		item.SubmitterName,
		item.OriginalSubmitter,
		item.Status,
		item.AssignedTo,
		item.NeedsRevision,
		item.RevisionNotes,
	).Scan(&item.ID, &item.SubmittedAt)
	return mapPgError(err)
}

func (r *workItemRepository) Update(ctx context.Context, item *domain.WorkItem) error {
	const query = `
        UPDATE work_items SET item_number=$1, location=$2, description=$3, detail=$4, reference_notes=$5,
            status=$6, assigned_to=$7, needs_revision=$8, revision_notes=$9, last_modified_by=$10,
            last_modified_at=$11, admin_notes=$12, admin_notes_updated_at=$13
        WHERE id=$14`
	cmd, err := r.db.Exec(ctx, query,
		item.ItemNumber,
		item.Location,
		item.Description,
		item.Detail,
		item.References,
		item.Status,
		item.AssignedTo,
		item.NeedsRevision,
		item.RevisionNotes,
		item.LastModifiedBy,
		item.LastModifiedAt,
		item.AdminNotes,
		item.AdminNotesUpdatedAt,
		item.ID,
	)
	if err != nil {
		return mapPgError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *workItemRepository) GetByID(ctx context.Context, id int64) (*domain.WorkItem, error) {
	return r.fetchSingle(ctx, `SELECT `+workItemColumns+` FROM work_items WHERE id=$1`, id)
}

func (r *workItemRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.WorkItem, error) {
	return r.fetchSingle(ctx, `SELECT `+workItemColumns+` FROM work_items WHERE id=$1 FOR UPDATE`, id)
}

func (r *workItemRepository) GetByItemNumberForUpdate(ctx context.Context, number string) (*domain.WorkItem, error) {
	return r.fetchSingle(ctx, `SELECT `+workItemColumns+` FROM work_items WHERE item_number=$1 FOR UPDATE`, number)
}

func (r *workItemRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.WorkItem, error) {
	item, err := scanWorkItem(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, mapPgError(err)
	}
	return item, nil
}

func (r *workItemRepository) List(ctx context.Context, filter WorkItemFilter) ([]domain.WorkItem, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 500
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM work_items WHERE %s ORDER BY %s LIMIT %d OFFSET %d`,
		workItemColumns, strings.Join(clauses, " AND "), orderBy(filter.Sort), limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()
	return scanWorkItems(rows)
}

func (r *workItemRepository) ListAssigned(ctx context.Context, assignee string, statuses []domain.WorkItemStatus) ([]domain.WorkItem, error) {
	args := []any{assignee}
	clauses := []string{"assigned_to=$1"}
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}

	query := fmt.Sprintf(`SELECT %s FROM work_items WHERE %s ORDER BY submitted_at DESC, id DESC`,
		workItemColumns, strings.Join(clauses, " AND "))
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()
	return scanWorkItems(rows)
}

// Delete removes the item; photos and history follow through ON DELETE CASCADE.
func (r *workItemRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM work_items WHERE id=$1`, id)
	if err != nil {
		return mapPgError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *workItemRepository) MaxDraftNumber(ctx context.Context) (string, error) {
	// Fixed-width suffixes sort lexically; the length key keeps DRAFT_10000 above DRAFT_9999.
	const query = `
        SELECT item_number FROM work_items
        WHERE item_number ~ '^DRAFT_[0-9]+$'
        ORDER BY LENGTH(item_number) DESC, item_number DESC
        LIMIT 1`
	var number string
	if err := r.db.QueryRow(ctx, query).Scan(&number); err != nil {
		if err == pgx.ErrNoRows {
			return "", nil
		}
		return "", mapPgError(err)
	}
	return number, nil
}

// draftLockKey identifies the advisory lock guarding draft number allocation.
const draftLockKey int64 = 0x44524146540001

func (r *workItemRepository) LockDraftNumbers(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, draftLockKey)
	return mapPgError(err)
}

func orderBy(sort string) string {
	switch sort {
	case SortDateAsc:
		return "submitted_at ASC, id ASC"
	case SortItemNumber:
		return "item_number ASC"
	case SortSubmitter:
		return "submitter_name ASC, submitted_at DESC"
	default:
		return "submitted_at DESC, id DESC"
	}
}

func scanWorkItem(row pgx.Row) (*domain.WorkItem, error) {
	var item domain.WorkItem
	var originalSubmitter *string
	if err := row.Scan(
		&item.ID,
		&item.ItemNumber,
		&item.Location,
		&item.Description,
		&item.Detail,
		&item.References,
		&item.SubmitterName,
		&originalSubmitter,
		&item.SubmittedAt,
		&item.Status,
		&item.AssignedTo,
		&item.NeedsRevision,
		&item.RevisionNotes,
		&item.LastModifiedBy,
		&item.LastModifiedAt,
		&item.AdminNotes,
		&item.AdminNotesUpdatedAt,
	); err != nil {
		return nil, err
	}
	if originalSubmitter != nil {
		item.OriginalSubmitter = *originalSubmitter
	}
	return &item, nil
}

func scanWorkItems(rows pgx.Rows) ([]domain.WorkItem, error) {
	var result []domain.WorkItem
	for rows.Next() {
		item, err := scanWorkItem(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *item)
	}
	return result, rows.Err()
}
