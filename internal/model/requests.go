package model

import (
	"net/url"
	"time"

	"github.com/Rafafndz7/registro-bicis-sub000/internal/validation"
)

// BikeTypes are the accepted values of bike_type.
var BikeTypes = []string{"road", "mountain", "urban", "hybrid", "bmx", "electric", "kids", "other"}

// clockSkew tolerates client clocks slightly ahead of the server.
const clockSkew = 5 * time.Minute

type EmptyRequest struct{}

func (r *EmptyRequest) Validate() error {
	return nil
}

type CreateProfileRequest struct {
	FullName string  `json:"full_name" validate:"required,min=2,max=120"`
	Email    string  `json:"email" validate:"omitempty,email,max=254"`
	Phone    *string `json:"phone" validate:"omitempty,e164"`
}

func (r *CreateProfileRequest) Validate() error {
	return validation.Struct(r)
}

type UpdateProfileRequest struct {
	FullName   *string `json:"full_name" validate:"omitempty,min=2,max=120"`
	Phone      *string `json:"phone" validate:"omitempty,e164|len=0"`
	Address    *string `json:"address" validate:"omitempty,max=200"`
	City       *string `json:"city" validate:"omitempty,max=100"`
	State      *string `json:"state" validate:"omitempty,max=100"`
	PostalCode *string `json:"postal_code" validate:"omitempty,max=10"`
}

func (r *UpdateProfileRequest) Validate() error {
	return validation.Struct(r)
}

type BicycleIDRequest struct {
	ID string `param:"id" validate:"required,uuid"`
}

func (r *BicycleIDRequest) Validate() error {
	return validation.Struct(r)
}

type BicycleImageRequest struct {
	ID      string `param:"id" validate:"required,uuid"`
	ImageID string `param:"imageId" validate:"required,uuid"`
}

func (r *BicycleImageRequest) Validate() error {
	return validation.Struct(r)
}

type CreateBicycleRequest struct {
	SerialNumber    string     `json:"serial_number" validate:"required,serial"`
	Brand           string     `json:"brand" validate:"required,max=60"`
	Model           string     `json:"model" validate:"required,max=60"`
	Color           string     `json:"color" validate:"required,max=40"`
	BikeType        string     `json:"bike_type" validate:"required,oneof=road mountain urban hybrid bmx electric kids other"`
	Year            *int       `json:"year" validate:"omitempty,gte=1900"`
	WheelSize       *string    `json:"wheel_size" validate:"omitempty,max=20"`
	Characteristics *string    `json:"characteristics" validate:"omitempty,max=1000"`
	PurchaseDate    *time.Time `json:"purchase_date"`
	PurchasePlace   *string    `json:"purchase_place" validate:"omitempty,max=200"`
}

func (r *CreateBicycleRequest) Validate() error {
	if err := validation.Struct(r); err != nil {
		return err
	}
	return validatePurchase(r.Year, r.PurchaseDate, time.Now())
}

type UpdateBicycleRequest struct {
	ID              string     `param:"id" validate:"required,uuid"`
	Brand           *string    `json:"brand" validate:"omitempty,min=1,max=60"`
	Model           *string    `json:"model" validate:"omitempty,min=1,max=60"`
	Color           *string    `json:"color" validate:"omitempty,min=1,max=40"`
	BikeType        *string    `json:"bike_type" validate:"omitempty,oneof=road mountain urban hybrid bmx electric kids other"`
	Year            *int       `json:"year" validate:"omitempty,gte=1900"`
	WheelSize       *string    `json:"wheel_size" validate:"omitempty,max=20"`
	Characteristics *string    `json:"characteristics" validate:"omitempty,max=1000"`
	PurchaseDate    *time.Time `json:"purchase_date"`
	PurchasePlace   *string    `json:"purchase_place" validate:"omitempty,max=200"`
}

func (r *UpdateBicycleRequest) Validate() error {
	if err := validation.Struct(r); err != nil {
		return err
	}
	return validatePurchase(r.Year, r.PurchaseDate, time.Now())
}

func validatePurchase(year *int, purchased *time.Time, now time.Time) error {
	var errs validation.CustomValidationErrors
	if year != nil && *year > now.Year()+1 {
		errs = append(errs, validation.CustomValidationError{Field: "year", Message: "cannot be in the future"})
	}
	if purchased != nil && purchased.After(now.Add(clockSkew)) {
		errs = append(errs, validation.CustomValidationError{Field: "purchase_date", Message: "cannot be in the future"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

type CreateTheftReportRequest struct {
	BicycleID          string    `param:"id" validate:"required,uuid"`
	TheftDate          time.Time `json:"theft_date" validate:"required"`
	Location           string    `json:"location" validate:"required,max=255"`
	Description        string    `json:"description" validate:"required,min=10,max=2000"`
	PoliceReportNumber *string   `json:"police_report_number" validate:"omitempty,max=60"`
}

func (r *CreateTheftReportRequest) Validate() error {
	if err := validation.Struct(r); err != nil {
		return err
	}
	if r.TheftDate.After(time.Now().Add(clockSkew)) {
		return validation.CustomValidationErrors{{Field: "theft_date", Message: "cannot be in the future"}}
	}
	return nil
}

type UpdateTheftReportRequest struct {
	ID     string `param:"id" validate:"required,uuid"`
	Status string `json:"status" validate:"required,oneof=recovered closed"`
}

func (r *UpdateTheftReportRequest) Validate() error {
	return validation.Struct(r)
}

type PlanRequest struct {
	PlanID string `json:"plan_id" validate:"required,plan"`
}

func (r *PlanRequest) Validate() error {
	return validation.Struct(r)
}

type VerifySerialRequest struct {
	Serial string `param:"serial" validate:"required,serial"`
}

// Validate unescapes the path parameter first: Echo hands over the raw path
// segment, so a serial with "/" arrives as "%2F".
func (r *VerifySerialRequest) Validate() error {
	if serial, err := url.PathUnescape(r.Serial); err == nil {
		r.Serial = serial
	}
	return validation.Struct(r)
}

type VerifyCertificateRequest struct {
	Token string `query:"token" validate:"required,max=2048"`
}

func (r *VerifyCertificateRequest) Validate() error {
	return validation.Struct(r)
}

type SearchBicyclesRequest struct {
	Q     string `query:"q" validate:"omitempty,max=100"`
	Page  int    `query:"page" validate:"gte=0"`
	Limit int    `query:"limit" validate:"gte=0,lte=100"`
}

func (r *SearchBicyclesRequest) Validate() error {
	return validation.Struct(r)
}

type ListTheftReportsRequest struct {
	Status string `query:"status" validate:"omitempty,oneof=active recovered closed"`
	Page   int    `query:"page" validate:"gte=0"`
	Limit  int    `query:"limit" validate:"gte=0,lte=100"`
}

func (r *ListTheftReportsRequest) Validate() error {
	return validation.Struct(r)
}

// CheckoutSession is returned by the checkout endpoint.
type CheckoutSession struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// RedirectURL is returned by endpoints that send the client elsewhere.
type RedirectURL struct {
	URL       string     `json:"url"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}
