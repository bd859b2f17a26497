package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Rafafndz7/registro-bicis-sub000/internal/config"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/errs"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/lib/utils"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/middleware"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/model"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/server"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUser = "user_1"

func newTestServer() *server.Server {
	logger := zerolog.Nop()
	return &server.Server{
		Config: &config.Config{
			Primary:       config.Primary{Env: "test"},
			App:           config.DefaultAppConfig(),
			Observability: config.DefaultObservabilityConfig(),
		},
		Logger: &logger,
	}
}

// newEcho wires the error handler and authenticates every request as testUser.
func newEcho(s *server.Server) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = middleware.NewGlobalMiddlewares(s).GlobalErrorHandler
	e.Use(middleware.RequestID(), middleware.NewContextEnhancer(s).EnhanceContext())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			middleware.SetUserID(c, testUser)
			return next(c)
		}
	})
	return e
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errs.HTTPError {
	t.Helper()
	var body errs.HTTPError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

type fakeProfiles struct {
	created bool
	last    *model.CreateProfileRequest
}

func (f *fakeProfiles) Create(_ context.Context, userID string, req *model.CreateProfileRequest) (*model.Profile, bool, error) {
	f.last = req
	return &model.Profile{ID: userID, FullName: req.FullName}, f.created, nil
}

func (f *fakeProfiles) Get(context.Context, string) (*model.ProfileWithSubscription, error) {
	return nil, errs.NewNotFoundError("Profile not found", true, errs.Code("PROFILE_NOT_FOUND"))
}

func (f *fakeProfiles) Update(_ context.Context, userID string, req *model.UpdateProfileRequest) (*model.Profile, error) {
	return &model.Profile{ID: userID}, nil
}

func TestCreateProfileStatus(t *testing.T) {
	s := newTestServer()
	profiles := &fakeProfiles{created: true}
	h := NewProfileHandler(s, profiles)
	e := newEcho(s)
	e.POST("/profile", h.CreateProfile())

	rec := serve(e, jsonRequest(http.MethodPost, "/profile", `{"full_name":"Ana López"}`))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Ana López", profiles.last.FullName)

	profiles.created = false
	rec = serve(e, jsonRequest(http.MethodPost, "/profile", `{"full_name":"Ana López"}`))
	assert.Equal(t, http.StatusOK, rec.Code)

	var p model.Profile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, testUser, p.ID)
}

func TestGetProfileNotFound(t *testing.T) {
	s := newTestServer()
	e := newEcho(s)
	e.GET("/profile", NewProfileHandler(s, &fakeProfiles{}).GetProfile())

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/profile", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "PROFILE_NOT_FOUND", decodeError(t, rec).Code)
}

type fakeBicycles struct {
	bicycleService

	registered int
	updates    []*model.UpdateBicycleRequest
	upload     []byte
	uploadName string
}

func (f *fakeBicycles) Register(_ context.Context, userID string, req *model.CreateBicycleRequest) (*model.Bicycle, error) {
	f.registered++
	return &model.Bicycle{ID: uuid.New(), UserID: userID, SerialNumber: req.SerialNumber}, nil
}

func (f *fakeBicycles) Update(_ context.Context, userID string, id uuid.UUID, req *model.UpdateBicycleRequest) (*model.Bicycle, error) {
	f.updates = append(f.updates, req)
	return &model.Bicycle{ID: id, UserID: userID}, nil
}

func (f *fakeBicycles) AddImage(_ context.Context, _ string, id uuid.UUID, upload service.Upload) (*model.BicycleImage, error) {
	data, err := io.ReadAll(upload.Body)
	if err != nil {
		return nil, err
	}
	f.upload = data
	f.uploadName = upload.Filename
	return &model.BicycleImage{ID: uuid.New(), BicycleID: id, SizeBytes: upload.Size}, nil
}

func TestRegisterBicycleValidation(t *testing.T) {
	s := newTestServer()
	bicycles := &fakeBicycles{}
	e := newEcho(s)
	e.POST("/bicycles", NewBicycleHandler(s, bicycles).RegisterBicycle())

	rec := serve(e, jsonRequest(http.MethodPost, "/bicycles", `{"serial_number":"WTU123","brand":"Trek"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	fields := make([]string, 0, len(body.Errors))
	for _, fe := range body.Errors {
		fields = append(fields, fe.Field)
	}
	assert.ElementsMatch(t, []string{"model", "color", "bike_type"}, fields)
	assert.Zero(t, bicycles.registered)

	rec = serve(e, jsonRequest(http.MethodPost, "/bicycles",
		`{"serial_number":"WTU123","brand":"Trek","model":"Marlin 5","color":"Red","bike_type":"mountain"}`))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, bicycles.registered)
}

func TestRequestsAreNotShared(t *testing.T) {
	s := newTestServer()
	bicycles := &fakeBicycles{}
	e := newEcho(s)
	e.PUT("/bicycles/:id", NewBicycleHandler(s, bicycles).UpdateBicycle())
	id := uuid.NewString()

	require.Equal(t, http.StatusOK, serve(e, jsonRequest(http.MethodPut, "/bicycles/"+id, `{"brand":"Trek"}`)).Code)
	require.Equal(t, http.StatusOK, serve(e, jsonRequest(http.MethodPut, "/bicycles/"+id, `{"color":"Blue"}`)).Code)

	require.Len(t, bicycles.updates, 2)
	assert.Nil(t, bicycles.updates[1].Brand, "a field from the previous request leaked")
	assert.Equal(t, "Blue", *bicycles.updates[1].Color)
}

func TestUpdateBicycleRejectsBadID(t *testing.T) {
	s := newTestServer()
	e := newEcho(s)
	e.PUT("/bicycles/:id", NewBicycleHandler(s, &fakeBicycles{}).UpdateBicycle())

	rec := serve(e, jsonRequest(http.MethodPut, "/bicycles/not-a-uuid", `{}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func multipartRequest(t *testing.T, target, field, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if field != "" {
		part, err := w.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	} else {
		require.NoError(t, w.WriteField("note", "no file"))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func TestAddImageMultipart(t *testing.T) {
	s := newTestServer()
	bicycles := &fakeBicycles{}
	e := newEcho(s)
	e.POST("/bicycles/:id/images", NewBicycleHandler(s, bicycles).AddImage())
	id := uuid.NewString()

	content := []byte("\x89PNG\r\n\x1a\nfake")
	rec := serve(e, multipartRequest(t, "/bicycles/"+id+"/images", "image", "bike.png", content))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, content, bicycles.upload)
	assert.Equal(t, "bike.png", bicycles.uploadName)

	rec = serve(e, multipartRequest(t, "/bicycles/"+id+"/images", "", "", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "FILE_REQUIRED", decodeError(t, rec).Code)
}

type fakeCertificates struct {
	certificateService
}

func (fakeCertificates) Certificate(_ context.Context, _ string, _ uuid.UUID) ([]byte, string, error) {
	return []byte("%PDF-1.3 test"), "certificate-BR-ABC123.pdf", nil
}

func (fakeCertificates) Verify(_ context.Context, serial string) (*model.Verification, error) {
	return &model.Verification{SerialNumber: serial, Status: model.VerificationStatusRegistered}, nil
}

func TestCertificateDownload(t *testing.T) {
	s := newTestServer()
	e := newEcho(s)
	e.GET("/bicycles/:id/certificate", NewCertificateHandler(s, fakeCertificates{}).Certificate())

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/bicycles/"+uuid.NewString()+"/certificate", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, `attachment; filename=certificate-BR-ABC123.pdf`, rec.Header().Get(echo.HeaderContentDisposition))
	assert.Equal(t, "%PDF-1.3 test", rec.Body.String())
}

func TestVerifySerialValidatesFormat(t *testing.T) {
	s := newTestServer()
	e := newEcho(s)
	e.GET("/verify/:serial", NewCertificateHandler(s, fakeCertificates{}).VerifySerial())

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/verify/WTU123", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	var v model.Verification
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.Equal(t, "WTU123", v.SerialNumber)

	rec = serve(e, httptest.NewRequest(http.MethodGet, "/verify/%24%24", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVerifySerialWithSlash(t *testing.T) {
	s := newTestServer()
	e := newEcho(s)
	e.GET("/verify/:serial", NewCertificateHandler(s, fakeCertificates{}).VerifySerial())

	target := utils.VerifyURL("", "WTU-123/45")
	require.Equal(t, "/verify/WTU-123%2F45", target)

	rec := serve(e, httptest.NewRequest(http.MethodGet, target, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var v model.Verification
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.Equal(t, "WTU-123/45", v.SerialNumber)
}

type fakeWebhooks struct {
	payload   []byte
	signature string
	err       error
}

func (f *fakeWebhooks) HandleStripe(_ context.Context, payload []byte, signature string) (*service.WebhookResult, error) {
	f.payload = payload
	f.signature = signature
	if f.err != nil {
		return nil, f.err
	}
	return &service.WebhookResult{Received: true}, nil
}

func TestStripeWebhook(t *testing.T) {
	s := newTestServer()
	webhooks := &fakeWebhooks{}
	e := newEcho(s)
	e.POST("/webhooks/stripe", NewWebhookHandler(s, webhooks).Stripe)

	payload := `{"id":"evt_1","type":"invoice.paid"}`
	req := jsonRequest(http.MethodPost, "/webhooks/stripe", payload)
	req.Header.Set("Stripe-Signature", "t=1,v1=abc")
	rec := serve(e, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received":true}`, rec.Body.String())
	assert.Equal(t, payload, string(webhooks.payload))
	assert.Equal(t, "t=1,v1=abc", webhooks.signature)

	rec = serve(e, jsonRequest(http.MethodPost, "/webhooks/stripe", payload))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_SIGNATURE", decodeError(t, rec).Code)

	big := jsonRequest(http.MethodPost, "/webhooks/stripe", strings.Repeat("x", MaxWebhookBody+1))
	big.Header.Set("Stripe-Signature", "t=1,v1=abc")
	assert.Equal(t, http.StatusRequestEntityTooLarge, serve(e, big).Code)
}

func TestStripeWebhookFailureIsRetried(t *testing.T) {
	s := newTestServer()
	e := newEcho(s)
	e.POST("/webhooks/stripe", NewWebhookHandler(s, &fakeWebhooks{err: errors.New("db down")}).Stripe)

	req := jsonRequest(http.MethodPost, "/webhooks/stripe", `{}`)
	req.Header.Set("Stripe-Signature", "t=1,v1=abc")
	assert.Equal(t, http.StatusInternalServerError, serve(e, req).Code)
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer()
	e := newEcho(s)

	healthy := newHealthHandler(s, map[string]Pinger{
		"database": PingFunc(func(context.Context) error { return nil }),
		"redis":    PingFunc(func(context.Context) error { return nil }),
	})
	e.GET("/status", healthy.CheckHealth)

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/status", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	var body healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Len(t, body.Checks, 2)

	unhealthy := newHealthHandler(s, map[string]Pinger{
		"database": PingFunc(func(context.Context) error { return nil }),
		"redis":    PingFunc(func(context.Context) error { return errors.New("connection refused") }),
	})
	e.GET("/status-down", unhealthy.CheckHealth)

	rec = serve(e, httptest.NewRequest(http.MethodGet, "/status-down", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "connection refused", body.Checks["redis"].Error)
}

func TestHealthCheckSkipsDisabledChecks(t *testing.T) {
	s := newTestServer()
	s.Config.Observability.HealthChecks.Checks = []string{"database"}
	e := newEcho(s)

	h := newHealthHandler(s, map[string]Pinger{
		"database": PingFunc(func(context.Context) error { return nil }),
		"redis":    PingFunc(func(context.Context) error { return errors.New("down") }),
	})
	e.GET("/status", h.CheckHealth)

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/status", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
