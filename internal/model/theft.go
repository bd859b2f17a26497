package model

import (
	"time"

	"github.com/google/uuid"
)

type TheftStatus string

const (
	TheftStatusActive    TheftStatus = "active"
	TheftStatusRecovered TheftStatus = "recovered"
	TheftStatusClosed    TheftStatus = "closed"
)

type TheftReport struct {
	ID                 uuid.UUID   `db:"id" json:"id"`
	BicycleID          uuid.UUID   `db:"bicycle_id" json:"bicycle_id"`
	UserID             string      `db:"user_id" json:"user_id"`
	TheftDate          time.Time   `db:"theft_date" json:"theft_date"`
	Location           string      `db:"location" json:"location"`
	Description        string      `db:"description" json:"description"`
	PoliceReportNumber *string     `db:"police_report_number" json:"police_report_number,omitempty"`
	Status             TheftStatus `db:"status" json:"status"`
	RecoveredAt        *time.Time  `db:"recovered_at" json:"recovered_at,omitempty"`
	CreatedAt          time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time   `db:"updated_at" json:"updated_at"`
}

// TheftReportWithBicycle is the list view for owners and admins.
type TheftReportWithBicycle struct {
	TheftReport
	SerialNumber string `db:"serial_number" json:"serial_number"`
	Brand        string `db:"brand" json:"brand"`
	Model        string `db:"model" json:"model"`
}
