package model

import (
	"time"

	"github.com/google/uuid"
)

type Bicycle struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	UserID          string     `db:"user_id" json:"user_id"`
	SerialNumber    string     `db:"serial_number" json:"serial_number"`
	Brand           string     `db:"brand" json:"brand"`
	Model           string     `db:"model" json:"model"`
	Color           string     `db:"color" json:"color"`
	BikeType        string     `db:"bike_type" json:"bike_type"`
	Year            *int       `db:"year" json:"year,omitempty"`
	WheelSize       *string    `db:"wheel_size" json:"wheel_size,omitempty"`
	Characteristics *string    `db:"characteristics" json:"characteristics,omitempty"`
	PurchaseDate    *time.Time `db:"purchase_date" json:"purchase_date,omitempty"`
	PurchasePlace   *string    `db:"purchase_place" json:"purchase_place,omitempty"`
	InvoicePath     *string    `db:"invoice_path" json:"-"`
	IsStolen        bool       `db:"is_stolen" json:"is_stolen"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`

	Images []BicycleImage `db:"-" json:"images"`
}

// HasInvoice reports whether a purchase invoice was uploaded.
func (b *Bicycle) HasInvoice() bool {
	return b.InvoicePath != nil && *b.InvoicePath != ""
}

// BicycleDetail adds the active theft report to a bicycle.
type BicycleDetail struct {
	*Bicycle
	HasInvoice        bool         `json:"has_invoice"`
	ActiveTheftReport *TheftReport `json:"active_theft_report"`
}

type BicycleImage struct {
	ID          uuid.UUID `db:"id" json:"id"`
	BicycleID   uuid.UUID `db:"bicycle_id" json:"bicycle_id"`
	StoragePath string    `db:"storage_path" json:"-"`
	URL         string    `db:"url" json:"url"`
	ContentType string    `db:"content_type" json:"content_type"`
	SizeBytes   int64     `db:"size_bytes" json:"size_bytes"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// BicycleSearchResult is a row of the admin search.
type BicycleSearchResult struct {
	Bicycle
	OwnerName  string `db:"owner_name" json:"owner_name"`
	OwnerEmail string `db:"owner_email" json:"owner_email"`
}
