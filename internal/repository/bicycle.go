package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Rafafndz7/registro-bicis-sub000/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type BicycleRepository struct {
	db DBTX
}

const bicycleColumns = `id, user_id, serial_number, brand, model, color, bike_type, year, wheel_size, characteristics, purchase_date, purchase_place, invoice_path, is_stolen, created_at, updated_at`

func (r *BicycleRepository) Create(ctx context.Context, b *model.Bicycle) (*model.Bicycle, error) {
	stmt := `
		INSERT INTO bicycles (user_id, serial_number, brand, model, color, bike_type, year, wheel_size, characteristics, purchase_date, purchase_place)
		VALUES (@user_id, @serial_number, @brand, @model, @color, @bike_type, @year, @wheel_size, @characteristics, @purchase_date, @purchase_place)
		RETURNING ` + bicycleColumns

	rows, err := r.db.Query(ctx, stmt, pgx.NamedArgs{
		"user_id":         b.UserID,
		"serial_number":   b.SerialNumber,
		"brand":           b.Brand,
		"model":           b.Model,
		"color":           b.Color,
		"bike_type":       b.BikeType,
		"year":            b.Year,
		"wheel_size":      b.WheelSize,
		"characteristics": b.Characteristics,
		"purchase_date":   b.PurchaseDate,
		"purchase_place":  b.PurchasePlace,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to execute create bicycle query for user_id=%s serial=%s: %w", b.UserID, b.SerialNumber, err)
	}

	bicycle, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[model.Bicycle])
	if err != nil {
		return nil, fmt.Errorf("failed to collect created bicycle for serial=%s: %w", b.SerialNumber, err)
	}
	return bicycle, nil
}

func (r *BicycleRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Bicycle, error) {
	return r.getOne(ctx, `SELECT `+bicycleColumns+` FROM bicycles WHERE id = $1`, id)
}

// GetOwned returns the bicycle only when it belongs to userID.
func (r *BicycleRepository) GetOwned(ctx context.Context, id uuid.UUID, userID string) (*model.Bicycle, error) {
	return r.getOne(ctx, `SELECT `+bicycleColumns+` FROM bicycles WHERE id = $1 AND user_id = $2`, id, userID)
}

// GetBySerial expects a normalized serial number.
func (r *BicycleRepository) GetBySerial(ctx context.Context, serial string) (*model.Bicycle, error) {
	return r.getOne(ctx, `SELECT `+bicycleColumns+` FROM bicycles WHERE serial_number = $1`, serial)
}

func (r *BicycleRepository) getOne(ctx context.Context, stmt string, args ...any) (*model.Bicycle, error) {
	rows, err := r.db.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute get bicycle query: %w", err)
	}

	bicycle, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[model.Bicycle])
	if err != nil {
		return nil, fmt.Errorf("failed to collect bicycle: %w", err)
	}
	return bicycle, nil
}

func (r *BicycleRepository) ListByUser(ctx context.Context, userID string) ([]model.Bicycle, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bicycleColumns+` FROM bicycles WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to execute list bicycles query for user_id=%s: %w", userID, err)
	}

	bicycles, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.Bicycle])
	if err != nil {
		return nil, fmt.Errorf("failed to collect bicycles for user_id=%s: %w", userID, err)
	}
	return bicycles, nil
}

func (r *BicycleRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM bicycles WHERE user_id = $1`, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count bicycles for user_id=%s: %w", userID, err)
	}
	return count, nil
}

// BicycleUpdate carries the editable descriptive fields. The serial number is
// immutable once registered. nil keeps the stored value; an empty optional
// text field clears it.
type BicycleUpdate struct {
	Brand           *string
	Model           *string
	Color           *string
	BikeType        *string
	Year            *int
	WheelSize       *string
	Characteristics *string
	PurchaseDate    *time.Time
	PurchasePlace   *string
}

func (r *BicycleRepository) Update(ctx context.Context, id uuid.UUID, userID string, u BicycleUpdate) (*model.Bicycle, error) {
	stmt := `
		UPDATE bicycles SET
			brand = COALESCE(@brand, brand),
			model = COALESCE(@model, model),
			color = COALESCE(@color, color),
			bike_type = COALESCE(@bike_type, bike_type),
			year = COALESCE(@year, year),
			wheel_size = CASE WHEN @wheel_size::text IS NULL THEN wheel_size ELSE NULLIF(@wheel_size::text, '') END,
			characteristics = CASE WHEN @characteristics::text IS NULL THEN characteristics ELSE NULLIF(@characteristics::text, '') END,
			purchase_date = COALESCE(@purchase_date, purchase_date),
			purchase_place = CASE WHEN @purchase_place::text IS NULL THEN purchase_place ELSE NULLIF(@purchase_place::text, '') END
		WHERE id = @id AND user_id = @user_id
		RETURNING ` + bicycleColumns

	rows, err := r.db.Query(ctx, stmt, pgx.NamedArgs{
		"id":              id,
		"user_id":         userID,
		"brand":           u.Brand,
		"model":           u.Model,
		"color":           u.Color,
		"bike_type":       u.BikeType,
		"year":            u.Year,
		"wheel_size":      u.WheelSize,
		"characteristics": u.Characteristics,
		"purchase_date":   u.PurchaseDate,
		"purchase_place":  u.PurchasePlace,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to execute update bicycle query for id=%s: %w", id, err)
	}

	bicycle, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[model.Bicycle])
	if err != nil {
		return nil, fmt.Errorf("failed to collect updated bicycle id=%s: %w", id, err)
	}
	return bicycle, nil
}

// Delete removes an owned bicycle. Images and theft reports cascade.
func (r *BicycleRepository) Delete(ctx context.Context, id uuid.UUID, userID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM bicycles WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete bicycle id=%s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("bicycle id=%s: %w", id, pgx.ErrNoRows)
	}
	return nil
}

func (r *BicycleRepository) SetStolen(ctx context.Context, id uuid.UUID, stolen bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE bicycles SET is_stolen = $2 WHERE id = $1`, id, stolen)
	if err != nil {
		return fmt.Errorf("failed to set stolen=%t for bicycle id=%s: %w", stolen, id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("bicycle id=%s: %w", id, pgx.ErrNoRows)
	}
	return nil
}

func (r *BicycleRepository) SetInvoicePath(ctx context.Context, id uuid.UUID, path string) error {
	tag, err := r.db.Exec(ctx, `UPDATE bicycles SET invoice_path = $2 WHERE id = $1`, id, path)
	if err != nil {
		return fmt.Errorf("failed to set invoice path for bicycle id=%s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("bicycle id=%s: %w", id, pgx.ErrNoRows)
	}
	return nil
}

// Search matches q against serial, brand and model, newest first.
func (r *BicycleRepository) Search(ctx context.Context, q string, page, limit int) (*model.Page[model.BicycleSearchResult], error) {
	page, limit, offset := pagination(page, limit)
	pattern := "%" + q + "%"

	const filter = `
		FROM bicycles b
		JOIN profiles p ON p.id = b.user_id
		WHERE @q = '' OR b.serial_number ILIKE @pattern OR b.brand ILIKE @pattern OR b.model ILIKE @pattern`
	args := pgx.NamedArgs{"q": q, "pattern": pattern, "limit": limit, "offset": offset}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) `+filter, args).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count bicycle search q=%q: %w", q, err)
	}

	stmt := `
		SELECT b.id, b.user_id, b.serial_number, b.brand, b.model, b.color, b.bike_type, b.year,
			b.wheel_size, b.characteristics, b.purchase_date, b.purchase_place, b.invoice_path,
			b.is_stolen, b.created_at, b.updated_at,
			p.full_name AS owner_name, p.email AS owner_email ` + filter + `
		ORDER BY b.created_at DESC
		LIMIT @limit OFFSET @offset`

	rows, err := r.db.Query(ctx, stmt, args)
	if err != nil {
		return nil, fmt.Errorf("failed to execute bicycle search q=%q: %w", q, err)
	}

	results, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.BicycleSearchResult])
	if err != nil {
		return nil, fmt.Errorf("failed to collect bicycle search q=%q: %w", q, err)
	}

	return &model.Page[model.BicycleSearchResult]{Data: results, Page: page, Limit: limit, Total: total}, nil
}
