package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Rafafndz7/registro-bicis-sub000/internal/errs"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/middleware"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/model"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/server"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type bicycleService interface {
	Register(ctx context.Context, userID string, req *model.CreateBicycleRequest) (*model.Bicycle, error)
	List(ctx context.Context, userID string) ([]model.Bicycle, error)
	Get(ctx context.Context, userID string, id uuid.UUID) (*model.BicycleDetail, error)
	Update(ctx context.Context, userID string, id uuid.UUID, req *model.UpdateBicycleRequest) (*model.Bicycle, error)
	Delete(ctx context.Context, userID string, id uuid.UUID) error
	AddImage(ctx context.Context, userID string, id uuid.UUID, upload service.Upload) (*model.BicycleImage, error)
	DeleteImage(ctx context.Context, userID string, bicycleID, imageID uuid.UUID) error
	UploadInvoice(ctx context.Context, userID string, id uuid.UUID, upload service.Upload) (*model.BicycleDetail, error)
	InvoiceURL(ctx context.Context, userID string, id uuid.UUID) (*model.RedirectURL, error)
}

type BicycleHandler struct {
	Handler
	bicycles bicycleService
}

func NewBicycleHandler(s *server.Server, bicycles bicycleService) *BicycleHandler {
	return &BicycleHandler{
		Handler:  NewHandler(s),
		bicycles: bicycles,
	}
}

func (h *BicycleHandler) RegisterBicycle() echo.HandlerFunc {
	return Handle(h.Handler, func(c echo.Context, req *model.CreateBicycleRequest) (*model.Bicycle, error) {
		return h.bicycles.Register(c.Request().Context(), middleware.GetUserID(c), req)
	}, http.StatusCreated)
}

func (h *BicycleHandler) ListBicycles() echo.HandlerFunc {
	return Handle(h.Handler, func(c echo.Context, req *model.EmptyRequest) ([]model.Bicycle, error) {
		return h.bicycles.List(c.Request().Context(), middleware.GetUserID(c))
	}, http.StatusOK)
}

func (h *BicycleHandler) GetBicycle() echo.HandlerFunc {
	return Handle(h.Handler, func(c echo.Context, req *model.BicycleIDRequest) (*model.BicycleDetail, error) {
		return h.bicycles.Get(c.Request().Context(), middleware.GetUserID(c), uuid.MustParse(req.ID))
	}, http.StatusOK)
}

func (h *BicycleHandler) UpdateBicycle() echo.HandlerFunc {
	return Handle(h.Handler, func(c echo.Context, req *model.UpdateBicycleRequest) (*model.Bicycle, error) {
		return h.bicycles.Update(c.Request().Context(), middleware.GetUserID(c), uuid.MustParse(req.ID), req)
	}, http.StatusOK)
}

func (h *BicycleHandler) DeleteBicycle() echo.HandlerFunc {
	return HandleNoContent(h.Handler, func(c echo.Context, req *model.BicycleIDRequest) error {
		return h.bicycles.Delete(c.Request().Context(), middleware.GetUserID(c), uuid.MustParse(req.ID))
	}, http.StatusNoContent)
}

// AddImage expects a multipart form with the photo in the "image" field.
func (h *BicycleHandler) AddImage() echo.HandlerFunc {
	return Handle(h.Handler, func(c echo.Context, req *model.BicycleIDRequest) (*model.BicycleImage, error) {
		upload, closeFile, err := formUpload(c, "image")
		if err != nil {
			return nil, err
		}
		defer closeFile()

		return h.bicycles.AddImage(c.Request().Context(), middleware.GetUserID(c), uuid.MustParse(req.ID), upload)
	}, http.StatusCreated)
}

func (h *BicycleHandler) DeleteImage() echo.HandlerFunc {
	return HandleNoContent(h.Handler, func(c echo.Context, req *model.BicycleImageRequest) error {
		return h.bicycles.DeleteImage(c.Request().Context(), middleware.GetUserID(c), uuid.MustParse(req.ID), uuid.MustParse(req.ImageID))
	}, http.StatusNoContent)
}

// UploadInvoice expects a multipart form with the document in the "invoice"
// field.
func (h *BicycleHandler) UploadInvoice() echo.HandlerFunc {
	return Handle(h.Handler, func(c echo.Context, req *model.BicycleIDRequest) (*model.BicycleDetail, error) {
		upload, closeFile, err := formUpload(c, "invoice")
		if err != nil {
			return nil, err
		}
		defer closeFile()

		return h.bicycles.UploadInvoice(c.Request().Context(), middleware.GetUserID(c), uuid.MustParse(req.ID), upload)
	}, http.StatusOK)
}

func (h *BicycleHandler) GetInvoice() echo.HandlerFunc {
	return Handle(h.Handler, func(c echo.Context, req *model.BicycleIDRequest) (*model.RedirectURL, error) {
		return h.bicycles.InvoiceURL(c.Request().Context(), middleware.GetUserID(c), uuid.MustParse(req.ID))
	}, http.StatusOK)
}

// formUpload opens the named multipart file. The returned func closes it.
func formUpload(c echo.Context, field string) (service.Upload, func(), error) {
	header, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return service.Upload{}, nil, errs.NewBadRequestError(
				fmt.Sprintf("A file is required in the %q form field", field), true, errs.Code("FILE_REQUIRED"),
				[]errs.FieldError{{Field: field, Error: "is required"}}, nil)
		}
		return service.Upload{}, nil, fmt.Errorf("failed to read multipart form: %w", err)
	}

	file, err := header.Open()
	if err != nil {
		return service.Upload{}, nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}

	upload := service.Upload{
		Filename: header.Filename,
		Size:     header.Size,
		Body:     file,
	}
	return upload, func() { _ = file.Close() }, nil
}
