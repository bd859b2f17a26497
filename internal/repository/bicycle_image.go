package repository

import (
	"context"
	"fmt"

	"github.com/Rafafndz7/registro-bicis-sub000/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type BicycleImageRepository struct {
	db DBTX
}

const imageColumns = `id, bicycle_id, storage_path, url, content_type, size_bytes, created_at`

func (r *BicycleImageRepository) Create(ctx context.Context, img *model.BicycleImage) (*model.BicycleImage, error) {
	stmt := `
		INSERT INTO bicycle_images (bicycle_id, storage_path, url, content_type, size_bytes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + imageColumns

	rows, err := r.db.Query(ctx, stmt, img.BicycleID, img.StoragePath, img.URL, img.ContentType, img.SizeBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to execute create image query for bicycle_id=%s: %w", img.BicycleID, err)
	}

	created, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[model.BicycleImage])
	if err != nil {
		return nil, fmt.Errorf("failed to collect created image for bicycle_id=%s: %w", img.BicycleID, err)
	}
	return created, nil
}

func (r *BicycleImageRepository) ListByBicycle(ctx context.Context, bicycleID uuid.UUID) ([]model.BicycleImage, error) {
	return r.ListByBicycles(ctx, []uuid.UUID{bicycleID})
}

// ListByBicycles loads the images of several bicycles in one query.
func (r *BicycleImageRepository) ListByBicycles(ctx context.Context, bicycleIDs []uuid.UUID) ([]model.BicycleImage, error) {
	if len(bicycleIDs) == 0 {
		return nil, nil
	}

	rows, err := r.db.Query(ctx, `SELECT `+imageColumns+` FROM bicycle_images WHERE bicycle_id = ANY($1) ORDER BY created_at`, bicycleIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to execute list images query: %w", err)
	}

	images, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.BicycleImage])
	if err != nil {
		return nil, fmt.Errorf("failed to collect images: %w", err)
	}
	return images, nil
}

func (r *BicycleImageRepository) CountByBicycle(ctx context.Context, bicycleID uuid.UUID) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM bicycle_images WHERE bicycle_id = $1`, bicycleID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count images for bicycle_id=%s: %w", bicycleID, err)
	}
	return count, nil
}

// GetOwned returns the image only when its bicycle belongs to userID.
func (r *BicycleImageRepository) GetOwned(ctx context.Context, id, bicycleID uuid.UUID, userID string) (*model.BicycleImage, error) {
	stmt := `
		SELECT i.id, i.bicycle_id, i.storage_path, i.url, i.content_type, i.size_bytes, i.created_at
		FROM bicycle_images i
		JOIN bicycles b ON b.id = i.bicycle_id
		WHERE i.id = $1 AND i.bicycle_id = $2 AND b.user_id = $3`

	rows, err := r.db.Query(ctx, stmt, id, bicycleID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to execute get image query for id=%s: %w", id, err)
	}

	img, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[model.BicycleImage])
	if err != nil {
		return nil, fmt.Errorf("failed to collect image id=%s: %w", id, err)
	}
	return img, nil
}

func (r *BicycleImageRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM bicycle_images WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete image id=%s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("image id=%s: %w", id, pgx.ErrNoRows)
	}
	return nil
}
