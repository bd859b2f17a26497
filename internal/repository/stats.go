package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/Rafafndz7/registro-bicis-sub000/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type StatsRepository struct {
	db DBTX
}

func (r *StatsRepository) Get(ctx context.Context) (*model.Stats, error) {
	stmt := `
		SELECT
			(SELECT COUNT(*) FROM profiles),
			(SELECT COUNT(*) FROM bicycles),
			(SELECT COUNT(*) FROM bicycles WHERE is_stolen),
			(SELECT COUNT(*) FROM subscriptions WHERE status IN ('active', 'trialing'))`

	var s model.Stats
	err := r.db.QueryRow(ctx, stmt).Scan(
		&s.Users,
		&s.Bicycles,
		&s.StolenBicycles,
		&s.ActiveSubscriptions,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to execute stats query: %w", err)
	}

	revenue, err := r.revenue(ctx)
	if err != nil {
		return nil, err
	}
	s.Revenue = revenue
	return &s, nil
}

// revenue sums succeeded payments per currency; amounts are never added across
// currencies.
func (r *StatsRepository) revenue(ctx context.Context) (map[string]decimal.Decimal, error) {
	stmt := `
		SELECT currency, SUM(amount_cents)::BIGINT
		FROM payments
		WHERE status = 'succeeded'
		GROUP BY currency`

	rows, err := r.db.Query(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("failed to execute revenue query: %w", err)
	}

	revenue := make(map[string]decimal.Decimal)
	var (
		currency string
		cents    int64
	)
	_, err = pgx.ForEachRow(rows, []any{&currency, &cents}, func() error {
		revenue[strings.ToLower(currency)] = decimal.New(cents, -2)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to collect revenue: %w", err)
	}
	return revenue, nil
}
