// Package model holds the database entities and the views returned by the API.
package model

import "time"

// Role gates the admin endpoints.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Profile is keyed by the Clerk user id.
type Profile struct {
	ID               string    `db:"id" json:"id"`
	Email            string    `db:"email" json:"email"`
	FullName         string    `db:"full_name" json:"full_name"`
	Phone            *string   `db:"phone" json:"phone,omitempty"`
	Address          *string   `db:"address" json:"address,omitempty"`
	City             *string   `db:"city" json:"city,omitempty"`
	State            *string   `db:"state" json:"state,omitempty"`
	PostalCode       *string   `db:"postal_code" json:"postal_code,omitempty"`
	Role             Role      `db:"role" json:"role"`
	StripeCustomerID *string   `db:"stripe_customer_id" json:"-"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

func (p *Profile) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// ProfileWithSubscription is the GET /profile view.
type ProfileWithSubscription struct {
	*Profile
	Subscription *Subscription `json:"subscription"`
	BicycleCount int           `json:"bicycle_count"`
}
