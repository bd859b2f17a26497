package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Rafafndz7/registro-bicis-sub000/internal/errs"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/lib/certificate"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/lib/utils"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/model"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/repository"
	"github.com/google/uuid"
)

// CertificateService issues QR codes and signed PDF certificates and verifies
// bicycles publicly by serial or certificate token.
type CertificateService struct {
	repos     *repository.Repositories
	signer    *certificate.Signer
	publicURL string
	now       func() time.Time
}

func NewCertificateService(repos *repository.Repositories, signer *certificate.Signer, publicURL string) *CertificateService {
	return &CertificateService{
		repos:     repos,
		signer:    signer,
		publicURL: publicURL,
		now:       time.Now,
	}
}

// QRCode returns a PNG pointing at the public verification page of an owned
// bicycle.
func (s *CertificateService) QRCode(ctx context.Context, userID string, id uuid.UUID) ([]byte, error) {
	bicycle, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return certificate.QRCode(utils.VerifyURL(s.publicURL, bicycle.SerialNumber), certificate.QRSize)
}

// Certificate renders the PDF certificate of an owned bicycle. The second
// return value is the suggested file name.
func (s *CertificateService) Certificate(ctx context.Context, userID string, id uuid.UUID) ([]byte, string, error) {
	bicycle, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, "", err
	}
	profile, err := requireProfile(ctx, s.repos, userID)
	if err != nil {
		return nil, "", err
	}

	issuedAt := s.now().UTC()
	token, err := s.signer.Sign(bicycle.ID, bicycle.SerialNumber, userID, issuedAt)
	if err != nil {
		return nil, "", err
	}

	pdf, err := certificate.RenderPDF(certificate.Data{
		Token:        token,
		OwnerName:    profile.FullName,
		OwnerEmail:   profile.Email,
		SerialNumber: bicycle.SerialNumber,
		Brand:        bicycle.Brand,
		Model:        bicycle.Model,
		Color:        bicycle.Color,
		BikeType:     bicycle.BikeType,
		Year:         bicycle.Year,
		RegisteredAt: bicycle.CreatedAt,
		Stolen:       bicycle.IsStolen,
		VerifyURL:    utils.VerifyURL(s.publicURL, bicycle.SerialNumber),
		IssuedAt:     issuedAt,
	})
	if err != nil {
		return nil, "", err
	}
	return pdf, fmt.Sprintf("certificate-%s.pdf", certificate.Number(token)), nil
}

// Verify is the public lookup by serial number.
func (s *CertificateService) Verify(ctx context.Context, serial string) (*model.Verification, error) {
	bicycle, err := s.repos.Bicycle.GetBySerial(ctx, utils.NormalizeSerial(serial))
	if err != nil {
		if isNoRows(err) {
			return nil, errs.NewNotFoundError("No bicycle is registered with this serial number", true, errs.Code("BICYCLE_NOT_REGISTERED"))
		}
		return nil, err
	}
	return s.verification(ctx, bicycle)
}

// VerifyToken checks a certificate token and returns the current state of the
// bicycle it was issued for. Certificates of deleted or transferred bicycles
// are rejected.
func (s *CertificateService) VerifyToken(ctx context.Context, token string) (*model.Verification, error) {
	claims, err := s.signer.Parse(token)
	if err != nil {
		return nil, errInvalidCertificate()
	}

	bicycle, err := s.repos.Bicycle.GetByID(ctx, uuid.MustParse(claims.BicycleID))
	if err != nil {
		if isNoRows(err) {
			return nil, errInvalidCertificate()
		}
		return nil, err
	}
	if bicycle.SerialNumber != claims.Serial || bicycle.UserID != claims.OwnerID {
		return nil, errInvalidCertificate()
	}
	return s.verification(ctx, bicycle)
}

func (s *CertificateService) verification(ctx context.Context, bicycle *model.Bicycle) (*model.Verification, error) {
	owner, err := s.repos.Profile.GetByID(ctx, bicycle.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load owner of bicycle %s: %w", bicycle.ID, err)
	}

	images, err := s.repos.BicycleImage.ListByBicycle(ctx, bicycle.ID)
	if err != nil {
		return nil, err
	}
	urls := make([]string, len(images))
	for i, img := range images {
		urls[i] = img.URL
	}

	v := &model.Verification{
		SerialNumber: bicycle.SerialNumber,
		Brand:        bicycle.Brand,
		Model:        bicycle.Model,
		Color:        bicycle.Color,
		BikeType:     bicycle.BikeType,
		Year:         bicycle.Year,
		RegisteredAt: bicycle.CreatedAt,
		Status:       model.VerificationStatusRegistered,
		ImageURLs:    urls,
		Owner: model.OwnerContact{
			FullName: owner.FullName,
			Phone:    owner.Phone,
			Email:    owner.Email,
		},
	}

	if bicycle.IsStolen {
		v.Status = model.VerificationStatusStolen
		report, err := s.repos.TheftReport.GetActiveByBicycle(ctx, bicycle.ID)
		switch {
		case err == nil:
			v.Theft = &model.TheftSummary{TheftDate: report.TheftDate, Location: report.Location}
		case !isNoRows(err):
			return nil, err
		}
	}
	return v, nil
}

func (s *CertificateService) owned(ctx context.Context, userID string, id uuid.UUID) (*model.Bicycle, error) {
	bicycle, err := s.repos.Bicycle.GetOwned(ctx, id, userID)
	if err != nil {
		if isNoRows(err) {
			return nil, errBicycleNotFound()
		}
		return nil, err
	}
	return bicycle, nil
}

func errInvalidCertificate() error {
	return errs.NewBadRequestError("Certificate is invalid or no longer valid", true, errs.Code("INVALID_CERTIFICATE"), nil, nil)
}
