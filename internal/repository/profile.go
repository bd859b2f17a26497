package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Rafafndz7/registro-bicis-sub000/internal/model"
	"github.com/jackc/pgx/v5"
)

type ProfileRepository struct {
	db DBTX
}

const profileColumns = `id, email, full_name, phone, address, city, state, postal_code, role, stripe_customer_id, created_at, updated_at`

// Create inserts a profile. An existing profile for the same id is left
// untouched and returned, so the first call wins.
func (r *ProfileRepository) Create(ctx context.Context, p *model.Profile) (*model.Profile, bool, error) {
	stmt := `
		INSERT INTO profiles (id, email, full_name, phone, address, city, state, postal_code)
		VALUES (@id, @email, @full_name, @phone, @address, @city, @state, @postal_code)
		ON CONFLICT (id) DO NOTHING
		RETURNING ` + profileColumns

	rows, err := r.db.Query(ctx, stmt, pgx.NamedArgs{
		"id":          p.ID,
		"email":       p.Email,
		"full_name":   p.FullName,
		"phone":       p.Phone,
		"address":     p.Address,
		"city":        p.City,
		"state":       p.State,
		"postal_code": p.PostalCode,
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to execute create profile query for id=%s: %w", p.ID, err)
	}

	created, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[model.Profile])
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to collect created profile for id=%s: %w", p.ID, err)
	}

	existing, err := r.GetByID(ctx, p.ID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	rows, err := r.db.Query(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to execute get profile query for id=%s: %w", id, err)
	}

	profile, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[model.Profile])
	if err != nil {
		return nil, fmt.Errorf("failed to collect profile for id=%s: %w", id, err)
	}
	return profile, nil
}

func (r *ProfileRepository) GetByStripeCustomerID(ctx context.Context, customerID string) (*model.Profile, error) {
	rows, err := r.db.Query(ctx, `SELECT `+profileColumns+` FROM profiles WHERE stripe_customer_id = $1`, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to execute get profile by customer query for customer=%s: %w", customerID, err)
	}

	profile, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[model.Profile])
	if err != nil {
		return nil, fmt.Errorf("failed to collect profile for customer=%s: %w", customerID, err)
	}
	return profile, nil
}

// ProfileUpdate carries the editable profile fields. Nil fields are unchanged.
// ProfileUpdate holds the fields to change. nil keeps the stored value; an
// empty optional field clears it.
type ProfileUpdate struct {
	FullName   *string
	Phone      *string
	Address    *string
	City       *string
	State      *string
	PostalCode *string
}

func (r *ProfileRepository) Update(ctx context.Context, id string, u ProfileUpdate) (*model.Profile, error) {
	stmt := `
		UPDATE profiles SET
			full_name = COALESCE(@full_name, full_name),
			phone = CASE WHEN @phone::text IS NULL THEN phone ELSE NULLIF(@phone::text, '') END,
			address = CASE WHEN @address::text IS NULL THEN address ELSE NULLIF(@address::text, '') END,
			city = CASE WHEN @city::text IS NULL THEN city ELSE NULLIF(@city::text, '') END,
			state = CASE WHEN @state::text IS NULL THEN state ELSE NULLIF(@state::text, '') END,
			postal_code = CASE WHEN @postal_code::text IS NULL THEN postal_code ELSE NULLIF(@postal_code::text, '') END
		WHERE id = @id
		RETURNING ` + profileColumns

	rows, err := r.db.Query(ctx, stmt, pgx.NamedArgs{
		"id":          id,
		"full_name":   u.FullName,
		"phone":       u.Phone,
		"address":     u.Address,
		"city":        u.City,
		"state":       u.State,
		"postal_code": u.PostalCode,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to execute update profile query for id=%s: %w", id, err)
	}

	profile, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[model.Profile])
	if err != nil {
		return nil, fmt.Errorf("failed to collect updated profile for id=%s: %w", id, err)
	}
	return profile, nil
}

func (r *ProfileRepository) SetStripeCustomerID(ctx context.Context, id, customerID string) error {
	tag, err := r.db.Exec(ctx, `UPDATE profiles SET stripe_customer_id = $2 WHERE id = $1`, id, customerID)
	if err != nil {
		return fmt.Errorf("failed to set stripe customer for profile id=%s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("profile id=%s: %w", id, pgx.ErrNoRows)
	}
	return nil
}
