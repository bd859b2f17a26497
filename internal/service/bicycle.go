package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Rafafndz7/registro-bicis-sub000/internal/config"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/errs"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/lib/email"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/lib/job"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/lib/metrics"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/lib/utils"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/model"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/repository"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/sqlerr"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// InvoiceURLTTL is how long a presigned invoice download stays valid.
const InvoiceURLTTL = 15 * time.Minute

var (
	imageTypes   = []string{"image/jpeg", "image/png", "image/webp"}
	invoiceTypes = []string{"application/pdf", "image/jpeg", "image/png"}
)

// Upload is a file received from a multipart form.
type Upload struct {
	Filename string
	Size     int64
	Body     io.ReadSeeker
}

type BicycleConfig struct {
	ImagesBucket   string
	InvoicesBucket string
	PublicURL      string
	MaxImages      int
	MaxUploadBytes int64
}

func NewBicycleConfig(cfg *config.Config) BicycleConfig {
	return BicycleConfig{
		ImagesBucket:   cfg.Storage.ImagesBucket,
		InvoicesBucket: cfg.Storage.InvoicesBucket,
		PublicURL:      cfg.App.PublicURL,
		MaxImages:      cfg.App.MaxImagesPerBicycle,
		MaxUploadBytes: cfg.App.MaxUploadBytes,
	}
}

type BicycleService struct {
	repos  *repository.Repositories
	store  ObjectStore
	jobs   Enqueuer
	cfg    BicycleConfig
	logger *zerolog.Logger
	now    func() time.Time
}

func NewBicycleService(repos *repository.Repositories, store ObjectStore, jobs Enqueuer, cfg BicycleConfig, logger *zerolog.Logger) *BicycleService {
	return &BicycleService{
		repos:  repos,
		store:  store,
		jobs:   jobs,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Register creates a bicycle for userID. The user needs a profile, a usable
// subscription and room left in the plan's bicycle limit.
func (s *BicycleService) Register(ctx context.Context, userID string, req *model.CreateBicycleRequest) (*model.Bicycle, error) {
	profile, err := s.repos.Profile.GetByID(ctx, userID)
	if err != nil {
		if isNoRows(err) {
			return nil, errs.NewBadRequestError("Create your profile before registering a bicycle", true, errs.Code("PROFILE_REQUIRED"), nil, nil)
		}
		return nil, err
	}

	sub, err := s.repos.Subscription.GetCurrentByUser(ctx, userID)
	if err != nil && !isNoRows(err) {
		return nil, err
	}
	if err != nil || !sub.IsUsable(s.now()) {
		return nil, errs.NewPaymentRequiredError("An active subscription is required to register bicycles", errs.Code("SUBSCRIPTION_REQUIRED"), plansAction)
	}

	count, err := s.repos.Bicycle.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if count >= sub.BicycleLimit {
		return nil, errs.NewBadRequestError(
			fmt.Sprintf("Your plan allows %d registered bicycles", sub.BicycleLimit),
			true, errs.Code("BICYCLE_LIMIT_REACHED"), nil, plansAction)
	}

	serial := utils.NormalizeSerial(req.SerialNumber)
	if _, err := s.repos.Bicycle.GetBySerial(ctx, serial); err == nil {
		return nil, errSerialTaken()
	} else if !isNoRows(err) {
		return nil, err
	}

	bicycle, err := s.repos.Bicycle.Create(ctx, &model.Bicycle{
		UserID:          userID,
		SerialNumber:    serial,
		Brand:           strings.TrimSpace(req.Brand),
		Model:           strings.TrimSpace(req.Model),
		Color:           strings.TrimSpace(req.Color),
		BikeType:        req.BikeType,
		Year:            req.Year,
		WheelSize:       utils.NilIfEmpty(req.WheelSize),
		Characteristics: utils.NilIfEmpty(req.Characteristics),
		PurchaseDate:    req.PurchaseDate,
		PurchasePlace:   utils.NilIfEmpty(req.PurchasePlace),
	})
	if err != nil {
		if sqlerr.IsUniqueViolation(err, "unique_bicycles_serial") {
			return nil, errSerialTaken()
		}
		return nil, err
	}
	bicycle.Images = []model.BicycleImage{}

	metrics.BicycleRegistered()

	task, err := job.NewBicycleRegisteredEmailTask(profile.Email, email.BicycleRegisteredData{
		FullName:     profile.FullName,
		SerialNumber: bicycle.SerialNumber,
		Brand:        bicycle.Brand,
		Model:        bicycle.Model,
		VerifyURL:    utils.VerifyURL(s.cfg.PublicURL, bicycle.SerialNumber),
	})
	enqueue(ctx, s.jobs, s.logger, task, err)

	return bicycle, nil
}

// List returns the user's bicycles with their images.
func (s *BicycleService) List(ctx context.Context, userID string) ([]model.Bicycle, error) {
	bicycles, err := s.repos.Bicycle.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(bicycles))
	for i := range bicycles {
		ids[i] = bicycles[i].ID
	}
	images, err := s.repos.BicycleImage.ListByBicycles(ctx, ids)
	if err != nil {
		return nil, err
	}

	byBicycle := make(map[uuid.UUID][]model.BicycleImage, len(bicycles))
	for _, img := range images {
		byBicycle[img.BicycleID] = append(byBicycle[img.BicycleID], img)
	}
	for i := range bicycles {
		bicycles[i].Images = byBicycle[bicycles[i].ID]
		if bicycles[i].Images == nil {
			bicycles[i].Images = []model.BicycleImage{}
		}
	}
	return bicycles, nil
}

// Get returns an owned bicycle with its images and active theft report.
func (s *BicycleService) Get(ctx context.Context, userID string, id uuid.UUID) (*model.BicycleDetail, error) {
	bicycle, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := s.attachImages(ctx, bicycle); err != nil {
		return nil, err
	}

	report, err := s.repos.TheftReport.GetActiveByBicycle(ctx, id)
	switch {
	case isNoRows(err):
		report = nil
	case err != nil:
		return nil, err
	}

	return &model.BicycleDetail{
		Bicycle:           bicycle,
		HasInvoice:        bicycle.HasInvoice(),
		ActiveTheftReport: report,
	}, nil
}

func (s *BicycleService) Update(ctx context.Context, userID string, id uuid.UUID, req *model.UpdateBicycleRequest) (*model.Bicycle, error) {
	bicycle, err := s.repos.Bicycle.Update(ctx, id, userID, repository.BicycleUpdate{
		Brand:           trimmed(req.Brand),
		Model:           trimmed(req.Model),
		Color:           trimmed(req.Color),
		BikeType:        req.BikeType,
		Year:            req.Year,
		WheelSize:       trimmed(req.WheelSize),
		Characteristics: trimmed(req.Characteristics),
		PurchaseDate:    req.PurchaseDate,
		PurchasePlace:   trimmed(req.PurchasePlace),
	})
	if err != nil {
		if isNoRows(err) {
			return nil, errBicycleNotFound()
		}
		return nil, err
	}
	if err := s.attachImages(ctx, bicycle); err != nil {
		return nil, err
	}
	return bicycle, nil
}

// Delete removes the bicycle row (images and theft reports cascade) and then
// its stored files. Storage failures are logged only.
func (s *BicycleService) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	bicycle, err := s.owned(ctx, userID, id)
	if err != nil {
		return err
	}
	images, err := s.repos.BicycleImage.ListByBicycle(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repos.Bicycle.Delete(ctx, id, userID); err != nil {
		if isNoRows(err) {
			return errBicycleNotFound()
		}
		return err
	}

	for _, img := range images {
		s.deleteObject(ctx, s.cfg.ImagesBucket, img.StoragePath)
	}
	if bicycle.HasInvoice() {
		s.deleteObject(ctx, s.cfg.InvoicesBucket, *bicycle.InvoicePath)
	}
	return nil
}

func (s *BicycleService) AddImage(ctx context.Context, userID string, id uuid.UUID, upload Upload) (*model.BicycleImage, error) {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return nil, err
	}

	count, err := s.repos.BicycleImage.CountByBicycle(ctx, id)
	if err != nil {
		return nil, err
	}
	if count >= s.cfg.MaxImages {
		return nil, errs.NewBadRequestError(
			fmt.Sprintf("A bicycle can have at most %d images", s.cfg.MaxImages),
			true, errs.Code("IMAGE_LIMIT_REACHED"), nil, nil)
	}

	mime, err := s.sniff(upload, "image", imageTypes)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s/%s/%s%s", userID, id, uuid.New(), mime.Extension())
	if err := s.store.Put(ctx, s.cfg.ImagesBucket, key, upload.Body, upload.Size, mime.String()); err != nil {
		return nil, err
	}

	img, err := s.repos.BicycleImage.Create(ctx, &model.BicycleImage{
		BicycleID:   id,
		StoragePath: key,
		URL:         s.store.PublicURL(s.cfg.ImagesBucket, key),
		ContentType: mime.String(),
		SizeBytes:   upload.Size,
	})
	if err != nil {
		s.deleteObject(ctx, s.cfg.ImagesBucket, key)
		return nil, err
	}
	return img, nil
}

func (s *BicycleService) DeleteImage(ctx context.Context, userID string, bicycleID, imageID uuid.UUID) error {
	img, err := s.repos.BicycleImage.GetOwned(ctx, imageID, bicycleID, userID)
	if err != nil {
		if isNoRows(err) {
			return errs.NewNotFoundError("Image not found", true, errs.Code("IMAGE_NOT_FOUND"))
		}
		return err
	}

	if err := s.repos.BicycleImage.Delete(ctx, img.ID); err != nil {
		return err
	}
	s.deleteObject(ctx, s.cfg.ImagesBucket, img.StoragePath)
	return nil
}

// UploadInvoice stores the purchase invoice privately, replacing any previous
// one.
func (s *BicycleService) UploadInvoice(ctx context.Context, userID string, id uuid.UUID, upload Upload) (*model.BicycleDetail, error) {
	bicycle, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	mime, err := s.sniff(upload, "invoice", invoiceTypes)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s/%s/invoice-%s%s", userID, id, uuid.New(), mime.Extension())
	if err := s.store.Put(ctx, s.cfg.InvoicesBucket, key, upload.Body, upload.Size, mime.String()); err != nil {
		return nil, err
	}

	if err := s.repos.Bicycle.SetInvoicePath(ctx, id, key); err != nil {
		s.deleteObject(ctx, s.cfg.InvoicesBucket, key)
		return nil, err
	}

	if bicycle.HasInvoice() {
		s.deleteObject(ctx, s.cfg.InvoicesBucket, *bicycle.InvoicePath)
	}
	bicycle.InvoicePath = &key

	return &model.BicycleDetail{Bicycle: bicycle, HasInvoice: true}, nil
}

// InvoiceURL returns a short-lived download link for the invoice.
func (s *BicycleService) InvoiceURL(ctx context.Context, userID string, id uuid.UUID) (*model.RedirectURL, error) {
	bicycle, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !bicycle.HasInvoice() {
		return nil, errs.NewNotFoundError("No invoice was uploaded for this bicycle", true, errs.Code("INVOICE_NOT_FOUND"))
	}

	url, err := s.store.PresignGet(ctx, s.cfg.InvoicesBucket, *bicycle.InvoicePath, InvoiceURLTTL)
	if err != nil {
		return nil, err
	}
	expires := s.now().Add(InvoiceURLTTL).UTC()
	return &model.RedirectURL{URL: url, ExpiresAt: &expires}, nil
}

func (s *BicycleService) owned(ctx context.Context, userID string, id uuid.UUID) (*model.Bicycle, error) {
	bicycle, err := s.repos.Bicycle.GetOwned(ctx, id, userID)
	if err != nil {
		if isNoRows(err) {
			return nil, errBicycleNotFound()
		}
		return nil, err
	}
	return bicycle, nil
}

func (s *BicycleService) attachImages(ctx context.Context, bicycle *model.Bicycle) error {
	images, err := s.repos.BicycleImage.ListByBicycle(ctx, bicycle.ID)
	if err != nil {
		return err
	}
	if images == nil {
		images = []model.BicycleImage{}
	}
	bicycle.Images = images
	return nil
}

// sniff checks the size and the detected content type of upload and rewinds
// it for the storage upload.
func (s *BicycleService) sniff(upload Upload, field string, allowed []string) (*mimetype.MIME, error) {
	if upload.Size <= 0 {
		return nil, errs.NewBadRequestError("File is empty", true, errs.Code("EMPTY_FILE"),
			[]errs.FieldError{{Field: field, Error: "is empty"}}, nil)
	}
	if upload.Size > s.cfg.MaxUploadBytes {
		return nil, errs.NewBadRequestError(
			fmt.Sprintf("File exceeds the %d MB limit", s.cfg.MaxUploadBytes>>20),
			true, errs.Code("FILE_TOO_LARGE"),
			[]errs.FieldError{{Field: field, Error: "is too large"}}, nil)
	}

	mime, err := mimetype.DetectReader(upload.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to detect content type of %s: %w", upload.Filename, err)
	}
	if _, err := upload.Body.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind %s: %w", upload.Filename, err)
	}

	if !mimetype.EqualsAny(mime.String(), allowed...) {
		return nil, errs.NewBadRequestError(
			fmt.Sprintf("Unsupported file type %s", mime.String()),
			true, errs.Code("UNSUPPORTED_FILE_TYPE"),
			[]errs.FieldError{{Field: field, Error: "must be one of " + strings.Join(allowed, ", ")}}, nil)
	}
	return mime, nil
}

func (s *BicycleService) deleteObject(ctx context.Context, bucket, key string) {
	if err := s.store.Delete(ctx, bucket, key); err != nil {
		s.logger.Warn().Err(err).Str("bucket", bucket).Str("key", key).Msg("failed to delete stored object")
	}
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	return utils.Ptr(strings.TrimSpace(*s))
}
