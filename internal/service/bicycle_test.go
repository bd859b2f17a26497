package service

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/Rafafndz7/registro-bicis-sub000/internal/errs"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/lib/job"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/lib/utils"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/model"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pngHeader is enough for content sniffing to report image/png.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func requireHTTPError(t *testing.T, err error, status int, code string) {
	t.Helper()
	var httpErr *errs.HTTPError
	require.True(t, errors.As(err, &httpErr), "expected *errs.HTTPError, got %v", err)
	assert.Equal(t, status, httpErr.Status)
	assert.Equal(t, code, httpErr.Code)
}

type bicycleFixture struct {
	svc   *BicycleService
	db    *memDB
	repos *repository.Repositories
	store *memObjectStore
	queue *recordingQueue
}

func newBicycleFixture(t *testing.T) *bicycleFixture {
	t.Helper()
	repos, db := newMemRepos()
	store := newMemObjectStore()
	queue := &recordingQueue{}
	svc := NewBicycleService(repos, store, queue, BicycleConfig{
		ImagesBucket:   "bicycle-images",
		InvoicesBucket: "bicycle-invoices",
		PublicURL:      "https://bikereg.test",
		MaxImages:      2,
		MaxUploadBytes: 1 << 20,
	}, nopLogger())
	return &bicycleFixture{svc: svc, db: db, repos: repos, store: store, queue: queue}
}

func registerRequest(serial string) *model.CreateBicycleRequest {
	return &model.CreateBicycleRequest{
		SerialNumber: serial,
		Brand:        " Specialized ",
		Model:        "Rockhopper",
		Color:        "Black",
		BikeType:     "mountain",
	}
}

func TestRegisterRequiresProfile(t *testing.T) {
	f := newBicycleFixture(t)

	_, err := f.svc.Register(context.Background(), "user_1", registerRequest("WTU123"))
	requireHTTPError(t, err, http.StatusBadRequest, "PROFILE_REQUIRED")
}

func TestRegisterRequiresUsableSubscription(t *testing.T) {
	f := newBicycleFixture(t)
	f.db.addProfile("user_1", "ana@example.com", "Ana")

	_, err := f.svc.Register(context.Background(), "user_1", registerRequest("WTU123"))
	requireHTTPError(t, err, http.StatusPaymentRequired, "SUBSCRIPTION_REQUIRED")

	f.db.addSubscription("user_1", "basic", 1, model.SubscriptionStatusCanceled)
	_, err = f.svc.Register(context.Background(), "user_1", registerRequest("WTU123"))
	requireHTTPError(t, err, http.StatusPaymentRequired, "SUBSCRIPTION_REQUIRED")
}

func TestRegisterAllowsPastDueWithinPeriod(t *testing.T) {
	f := newBicycleFixture(t)
	f.db.addProfile("user_1", "ana@example.com", "Ana")
	f.db.addSubscription("user_1", "basic", 1, model.SubscriptionStatusPastDue)

	_, err := f.svc.Register(context.Background(), "user_1", registerRequest("WTU123"))
	require.NoError(t, err)
}

func TestRegisterEnforcesPlanLimit(t *testing.T) {
	f := newBicycleFixture(t)
	f.db.addProfile("user_1", "ana@example.com", "Ana")
	f.db.addSubscription("user_1", "basic", 1, model.SubscriptionStatusActive)
	f.db.addBicycle("user_1", "EXISTING1")

	_, err := f.svc.Register(context.Background(), "user_1", registerRequest("WTU123"))
	requireHTTPError(t, err, http.StatusBadRequest, "BICYCLE_LIMIT_REACHED")
}

func TestRegisterRejectsDuplicateSerial(t *testing.T) {
	f := newBicycleFixture(t)
	f.db.addProfile("user_1", "ana@example.com", "Ana")
	f.db.addSubscription("user_1", "standard", 3, model.SubscriptionStatusActive)
	f.db.addBicycle("user_2", "WTU123")

	_, err := f.svc.Register(context.Background(), "user_1", registerRequest("  wtu123 "))
	requireHTTPError(t, err, http.StatusConflict, "BICYCLE_ALREADY_EXISTS")
}

func TestRegisterNormalizesAndNotifies(t *testing.T) {
	f := newBicycleFixture(t)
	f.db.addProfile("user_1", "ana@example.com", "Ana")
	f.db.addSubscription("user_1", "standard", 3, model.SubscriptionStatusActive)

	b, err := f.svc.Register(context.Background(), "user_1", registerRequest(" wtu-123/a "))
	require.NoError(t, err)

	assert.Equal(t, "WTU-123/A", b.SerialNumber)
	assert.Equal(t, "Specialized", b.Brand)
	assert.Equal(t, "user_1", b.UserID)
	assert.NotNil(t, b.Images)
	assert.Equal(t, []string{job.TaskBicycleRegisteredEmail}, f.queue.types())
}

func TestRegisterSucceedsWhenQueueIsDown(t *testing.T) {
	f := newBicycleFixture(t)
	f.queue.err = errors.New("redis down")
	f.db.addProfile("user_1", "ana@example.com", "Ana")
	f.db.addSubscription("user_1", "basic", 1, model.SubscriptionStatusActive)

	_, err := f.svc.Register(context.Background(), "user_1", registerRequest("WTU123"))
	require.NoError(t, err)
}

func TestGetChecksOwnershipAndAttachesTheftReport(t *testing.T) {
	f := newBicycleFixture(t)
	b := f.db.addBicycle("user_1", "WTU123")
	b.IsStolen = true
	report, err := f.repos.TheftReport.Create(context.Background(), &model.TheftReport{
		BicycleID: b.ID, UserID: "user_1", Status: model.TheftStatusActive, Location: "Centro",
	})
	require.NoError(t, err)

	_, err = f.svc.Get(context.Background(), "user_2", b.ID)
	requireHTTPError(t, err, http.StatusNotFound, "BICYCLE_NOT_FOUND")

	detail, err := f.svc.Get(context.Background(), "user_1", b.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.ActiveTheftReport)
	assert.Equal(t, report.ID, detail.ActiveTheftReport.ID)
	assert.False(t, detail.HasInvoice)
	assert.Empty(t, detail.Images)
}

func TestListGroupsImagesByBicycle(t *testing.T) {
	f := newBicycleFixture(t)
	b1 := f.db.addBicycle("user_1", "A1")
	f.db.addBicycle("user_1", "B2")
	_, err := f.repos.BicycleImage.Create(context.Background(), &model.BicycleImage{BicycleID: b1.ID, URL: "u1"})
	require.NoError(t, err)

	list, err := f.svc.List(context.Background(), "user_1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, b := range list {
		if b.ID == b1.ID {
			assert.Len(t, b.Images, 1)
		} else {
			assert.NotNil(t, b.Images)
			assert.Empty(t, b.Images)
		}
	}
}

func TestAddImageStoresSniffedContent(t *testing.T) {
	f := newBicycleFixture(t)
	b := f.db.addBicycle("user_1", "WTU123")

	img, err := f.svc.AddImage(context.Background(), "user_1", b.ID, Upload{
		Filename: "photo.bin",
		Size:     int64(len(pngHeader)),
		Body:     bytes.NewReader(pngHeader),
	})
	require.NoError(t, err)

	assert.Equal(t, "image/png", img.ContentType)
	assert.True(t, strings.HasPrefix(img.StoragePath, "user_1/"+b.ID.String()+"/"))
	assert.True(t, strings.HasSuffix(img.StoragePath, ".png"))
	assert.Equal(t, "https://cdn.test/bicycle-images/"+img.StoragePath, img.URL)

	stored, ok := f.store.objects["bicycle-images/"+img.StoragePath]
	require.True(t, ok)
	assert.Equal(t, pngHeader, stored.body, "body must be rewound after sniffing")
}

func TestAddImageRejectsInvalidUploads(t *testing.T) {
	f := newBicycleFixture(t)
	b := f.db.addBicycle("user_1", "WTU123")
	text := []byte("just some text, not an image")

	_, err := f.svc.AddImage(context.Background(), "user_1", b.ID, Upload{Size: int64(len(text)), Body: bytes.NewReader(text)})
	requireHTTPError(t, err, http.StatusBadRequest, "UNSUPPORTED_FILE_TYPE")

	_, err = f.svc.AddImage(context.Background(), "user_1", b.ID, Upload{Size: 2 << 20, Body: bytes.NewReader(pngHeader)})
	requireHTTPError(t, err, http.StatusBadRequest, "FILE_TOO_LARGE")

	_, err = f.svc.AddImage(context.Background(), "user_2", b.ID, Upload{Size: int64(len(pngHeader)), Body: bytes.NewReader(pngHeader)})
	requireHTTPError(t, err, http.StatusNotFound, "BICYCLE_NOT_FOUND")

	assert.Empty(t, f.store.objects)
}

func TestAddImageEnforcesMaximum(t *testing.T) {
	f := newBicycleFixture(t)
	b := f.db.addBicycle("user_1", "WTU123")

	for i := 0; i < 2; i++ {
		_, err := f.svc.AddImage(context.Background(), "user_1", b.ID, Upload{Size: int64(len(pngHeader)), Body: bytes.NewReader(pngHeader)})
		require.NoError(t, err)
	}
	_, err := f.svc.AddImage(context.Background(), "user_1", b.ID, Upload{Size: int64(len(pngHeader)), Body: bytes.NewReader(pngHeader)})
	requireHTTPError(t, err, http.StatusBadRequest, "IMAGE_LIMIT_REACHED")
}

func TestDeleteImage(t *testing.T) {
	f := newBicycleFixture(t)
	b := f.db.addBicycle("user_1", "WTU123")
	img, err := f.svc.AddImage(context.Background(), "user_1", b.ID, Upload{Size: int64(len(pngHeader)), Body: bytes.NewReader(pngHeader)})
	require.NoError(t, err)

	err = f.svc.DeleteImage(context.Background(), "user_1", b.ID, uuid.New())
	requireHTTPError(t, err, http.StatusNotFound, "IMAGE_NOT_FOUND")

	require.NoError(t, f.svc.DeleteImage(context.Background(), "user_1", b.ID, img.ID))
	assert.Empty(t, f.db.images)
	assert.Equal(t, []string{"bicycle-images/" + img.StoragePath}, f.store.deleted)
}

func TestInvoiceUploadReplacesPrevious(t *testing.T) {
	f := newBicycleFixture(t)
	b := f.db.addBicycle("user_1", "WTU123")
	pdf := []byte("%PDF-1.4\n%âãÏÓ\n1 0 obj\n<<>>\nendobj\n")

	_, err := f.svc.InvoiceURL(context.Background(), "user_1", b.ID)
	requireHTTPError(t, err, http.StatusNotFound, "INVOICE_NOT_FOUND")

	first, err := f.svc.UploadInvoice(context.Background(), "user_1", b.ID, Upload{Size: int64(len(pdf)), Body: bytes.NewReader(pdf)})
	require.NoError(t, err)
	assert.True(t, first.HasInvoice)
	firstKey := *first.InvoicePath
	assert.True(t, strings.HasSuffix(firstKey, ".pdf"))

	second, err := f.svc.UploadInvoice(context.Background(), "user_1", b.ID, Upload{Size: int64(len(pngHeader)), Body: bytes.NewReader(pngHeader)})
	require.NoError(t, err)
	assert.NotEqual(t, firstKey, *second.InvoicePath)
	assert.Contains(t, f.store.deleted, "bicycle-invoices/"+firstKey)

	url, err := f.svc.InvoiceURL(context.Background(), "user_1", b.ID)
	require.NoError(t, err)
	assert.Contains(t, url.URL, *second.InvoicePath)
	assert.Contains(t, url.URL, "expires=900")
	require.NotNil(t, url.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(InvoiceURLTTL), *url.ExpiresAt, time.Minute)
}

func TestDeleteRemovesStoredObjects(t *testing.T) {
	f := newBicycleFixture(t)
	b := f.db.addBicycle("user_1", "WTU123")
	img, err := f.svc.AddImage(context.Background(), "user_1", b.ID, Upload{Size: int64(len(pngHeader)), Body: bytes.NewReader(pngHeader)})
	require.NoError(t, err)

	requireHTTPError(t, f.svc.Delete(context.Background(), "user_2", b.ID), http.StatusNotFound, "BICYCLE_NOT_FOUND")

	require.NoError(t, f.svc.Delete(context.Background(), "user_1", b.ID))
	assert.Empty(t, f.db.bicycles)
	assert.Equal(t, []string{"bicycle-images/" + img.StoragePath}, f.store.deleted)
}

func TestUpdateTrimsFields(t *testing.T) {
	f := newBicycleFixture(t)
	b := f.db.addBicycle("user_1", "WTU123")
	brand := "  Giant "

	updated, err := f.svc.Update(context.Background(), "user_1", b.ID, &model.UpdateBicycleRequest{Brand: &brand})
	require.NoError(t, err)
	assert.Equal(t, "Giant", updated.Brand)

	_, err = f.svc.Update(context.Background(), "user_2", b.ID, &model.UpdateBicycleRequest{Brand: &brand})
	requireHTTPError(t, err, http.StatusNotFound, "BICYCLE_NOT_FOUND")
}

func TestUpdateClearsOptionalFields(t *testing.T) {
	f := newBicycleFixture(t)
	b := f.db.addBicycle("user_1", "WTU123")

	_, err := f.svc.Update(context.Background(), "user_1", b.ID, &model.UpdateBicycleRequest{
		WheelSize:     utils.Ptr("29"),
		PurchasePlace: utils.Ptr("Bici Centro"),
	})
	require.NoError(t, err)

	updated, err := f.svc.Update(context.Background(), "user_1", b.ID, &model.UpdateBicycleRequest{PurchasePlace: utils.Ptr("")})
	require.NoError(t, err)
	assert.Nil(t, updated.PurchasePlace)
	require.NotNil(t, updated.WheelSize)
	assert.Equal(t, "29", *updated.WheelSize)
}
