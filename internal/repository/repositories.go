// Package repository holds the SQL for every table.
//
// Repositories run against a DBTX so the same code works on the pool and
// inside a transaction opened with WithTx.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Rafafndz7/registro-bicis-sub000/internal/server"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by *pgxpool.Pool, pgx.Tx and pgxmock.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type Repositories struct {
	db DBTX

	Profile      ProfileStore
	Bicycle      BicycleStore
	BicycleImage BicycleImageStore
	TheftReport  TheftReportStore
	Subscription SubscriptionStore
	Payment      PaymentStore
	Stats        StatsStore
}

func NewRepositories(s *server.Server) *Repositories {
	return New(s.DB.Pool)
}

// New builds every repository on top of db.
func New(db DBTX) *Repositories {
	return &Repositories{
		db:           db,
		Profile:      &ProfileRepository{db: db},
		Bicycle:      &BicycleRepository{db: db},
		BicycleImage: &BicycleImageRepository{db: db},
		TheftReport:  &TheftReportRepository{db: db},
		Subscription: &SubscriptionRepository{db: db},
		Payment:      &PaymentRepository{db: db},
		Stats:        &StatsRepository{db: db},
	}
}

// WithTx runs fn with repositories bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
func (r *Repositories) WithTx(ctx context.Context, fn func(tx *Repositories) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(New(tx)); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return errors.Join(err, fmt.Errorf("failed to roll back transaction: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// pagination clamps page and limit and returns the offset.
func pagination(page, limit int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit, (page - 1) * limit
}
