package model

import "github.com/shopspring/decimal"

// Stats backs the admin dashboard.
type Stats struct {
	Users                 int64           `db:"users" json:"users"`
	Bicycles              int64           `db:"bicycles" json:"bicycles"`
	StolenBicycles        int64           `db:"stolen_bicycles" json:"stolen_bicycles"`
	ActiveSubscriptions   int64           `db:"active_subscriptions" json:"active_subscriptions"`

	// Revenue sums succeeded payments per lower-case ISO currency code.
	Revenue map[string]decimal.Decimal `db:"-" json:"revenue"`
}

// Page is a slice of results plus the total used for pagination.
type Page[T any] struct {
	Data  []T   `json:"data"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}
