package repository

import (
	"context"

	"github.com/spec-kit/worklist-service/internal/domain"
)

type photoRepository struct {
	db DBTX
}

func (r *photoRepository) Create(ctx context.Context, photo *domain.Photo) error {
	const query = `
        INSERT INTO photos (work_item_id, filename, caption)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	err := r.db.QueryRow(ctx, query, photo.WorkItemID, photo.Filename, photo.Caption).
		Scan(&photo.ID, &photo.CreatedAt)
	return mapPgError(err)
}

func (r *photoRepository) UpdateCaption(ctx context.Context, id int64, caption string) error {
	cmd, err := r.db.Exec(ctx, `UPDATE photos SET caption=$1 WHERE id=$2`, caption, id)
	if err != nil {
		return mapPgError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *photoRepository) GetByID(ctx context.Context, id int64) (*domain.Photo, error) {
	const query = `SELECT id, work_item_id, filename, caption, created_at FROM photos WHERE id=$1`
	var p domain.Photo
	if err := r.db.QueryRow(ctx, query, id).Scan(&p.ID, &p.WorkItemID, &p.Filename, &p.Caption, &p.CreatedAt); err != nil {
		return nil, mapPgError(err)
	}
	return &p, nil
}

func (r *photoRepository) ListByWorkItem(ctx context.Context, workItemID int64) ([]domain.Photo, error) {
	const query = `
        SELECT id, work_item_id, filename, caption, created_at
        FROM photos WHERE work_item_id=$1
        ORDER BY id ASC`
	rows, err := r.db.Query(ctx, query, workItemID)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	var result []domain.Photo
	for rows.Next() {
		var p domain.Photo
		if err := rows.Scan(&p.ID, &p.WorkItemID, &p.Filename, &p.Caption, &p.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (r *photoRepository) CountByWorkItem(ctx context.Context, workItemID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM photos WHERE work_item_id=$1`, workItemID).Scan(&count)
	return count, mapPgError(err)
}

func (r *photoRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM photos WHERE id=$1`, id)
	if err != nil {
		return mapPgError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
