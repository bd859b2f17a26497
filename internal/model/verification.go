package model

import "time"

type VerificationStatus string

const (
	VerificationStatusRegistered VerificationStatus = "registered"
	VerificationStatusStolen     VerificationStatus = "stolen"
)

// Verification is the public view of a registered bicycle.
type Verification struct {
	SerialNumber string             `json:"serial_number"`
	Brand        string             `json:"brand"`
	Model        string             `json:"model"`
	Color        string             `json:"color"`
	BikeType     string             `json:"bike_type"`
	Year         *int               `json:"year,omitempty"`
	RegisteredAt time.Time          `json:"registered_at"`
	Status       VerificationStatus `json:"status"`
	Theft        *TheftSummary      `json:"theft,omitempty"`
	ImageURLs    []string           `json:"image_urls"`
	Owner        OwnerContact       `json:"owner"`
}

type TheftSummary struct {
	TheftDate time.Time `json:"theft_date"`
	Location  string    `json:"location"`
}

type OwnerContact struct {
	FullName string  `json:"full_name"`
	Phone    *string `json:"phone,omitempty"`
	Email    string  `json:"email"`
}
