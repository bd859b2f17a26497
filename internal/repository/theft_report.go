package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Rafafndz7/registro-bicis-sub000/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type TheftReportRepository struct {
	db DBTX
}

const theftColumns = `id, bicycle_id, user_id, theft_date, location, description, police_report_number, status, recovered_at, created_at, updated_at`

const theftWithBicycleColumns = `t.id, t.bicycle_id, t.user_id, t.theft_date, t.location, t.description,
	t.police_report_number, t.status, t.recovered_at, t.created_at, t.updated_at,
	b.serial_number, b.brand, b.model`

// Create inserts an active report. A second active report for the same bicycle
// violates theft_reports_one_active_idx.
func (r *TheftReportRepository) Create(ctx context.Context, t *model.TheftReport) (*model.TheftReport, error) {
	stmt := `
		INSERT INTO theft_reports (bicycle_id, user_id, theft_date, location, description, police_report_number)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + theftColumns

	rows, err := r.db.Query(ctx, stmt, t.BicycleID, t.UserID, t.TheftDate, t.Location, t.Description, t.PoliceReportNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to execute create theft report query for bicycle_id=%s: %w", t.BicycleID, err)
	}

	report, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[model.TheftReport])
	if err != nil {
		return nil, fmt.Errorf("failed to collect theft report for bicycle_id=%s: %w", t.BicycleID, err)
	}
	return report, nil
}

func (r *TheftReportRepository) GetOwned(ctx context.Context, id uuid.UUID, userID string) (*model.TheftReport, error) {
	rows, err := r.db.Query(ctx, `SELECT `+theftColumns+` FROM theft_reports WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to execute get theft report query for id=%s: %w", id, err)
	}

	report, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[model.TheftReport])
	if err != nil {
		return nil, fmt.Errorf("failed to collect theft report id=%s: %w", id, err)
	}
	return report, nil
}

// GetActiveByBicycle returns pgx.ErrNoRows when the bicycle is not reported.
func (r *TheftReportRepository) GetActiveByBicycle(ctx context.Context, bicycleID uuid.UUID) (*model.TheftReport, error) {
	rows, err := r.db.Query(ctx, `SELECT `+theftColumns+` FROM theft_reports WHERE bicycle_id = $1 AND status = 'active'`, bicycleID)
	if err != nil {
		return nil, fmt.Errorf("failed to execute get active theft report query for bicycle_id=%s: %w", bicycleID, err)
	}

	report, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[model.TheftReport])
	if err != nil {
		return nil, fmt.Errorf("failed to collect active theft report for bicycle_id=%s: %w", bicycleID, err)
	}
	return report, nil
}

func (r *TheftReportRepository) ListByUser(ctx context.Context, userID string) ([]model.TheftReportWithBicycle, error) {
	stmt := `
		SELECT ` + theftWithBicycleColumns + `
		FROM theft_reports t
		JOIN bicycles b ON b.id = t.bicycle_id
		WHERE t.user_id = $1
		ORDER BY t.created_at DESC`

	rows, err := r.db.Query(ctx, stmt, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to execute list theft reports query for user_id=%s: %w", userID, err)
	}

	reports, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.TheftReportWithBicycle])
	if err != nil {
		return nil, fmt.Errorf("failed to collect theft reports for user_id=%s: %w", userID, err)
	}
	return reports, nil
}

// ListAll pages through every report, optionally filtered by status.
func (r *TheftReportRepository) ListAll(ctx context.Context, status string, page, limit int) (*model.Page[model.TheftReportWithBicycle], error) {
	page, limit, offset := pagination(page, limit)
	args := pgx.NamedArgs{"status": status, "limit": limit, "offset": offset}

	const filter = `
		FROM theft_reports t
		JOIN bicycles b ON b.id = t.bicycle_id
		WHERE @status = '' OR t.status = @status`

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) `+filter, args).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count theft reports status=%q: %w", status, err)
	}

	rows, err := r.db.Query(ctx, `SELECT `+theftWithBicycleColumns+filter+` ORDER BY t.created_at DESC LIMIT @limit OFFSET @offset`, args)
	if err != nil {
		return nil, fmt.Errorf("failed to execute list theft reports status=%q: %w", status, err)
	}

	reports, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.TheftReportWithBicycle])
	if err != nil {
		return nil, fmt.Errorf("failed to collect theft reports status=%q: %w", status, err)
	}

	return &model.Page[model.TheftReportWithBicycle]{Data: reports, Page: page, Limit: limit, Total: total}, nil
}

// UpdateStatus moves an active report to status. Reports that are no longer
// active are not touched and pgx.ErrNoRows is returned.
func (r *TheftReportRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.TheftStatus, recoveredAt *time.Time) (*model.TheftReport, error) {
	stmt := `
		UPDATE theft_reports SET status = $2, recovered_at = $3
		WHERE id = $1 AND status = 'active'
		RETURNING ` + theftColumns

	rows, err := r.db.Query(ctx, stmt, id, status, recoveredAt)
	if err != nil {
		return nil, fmt.Errorf("failed to execute update theft report status query for id=%s: %w", id, err)
	}

	report, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[model.TheftReport])
	if err != nil {
		return nil, fmt.Errorf("failed to collect updated theft report id=%s: %w", id, err)
	}
	return report, nil
}
