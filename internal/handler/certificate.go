package handler

import (
	"context"
	"net/http"

	"github.com/Rafafndz7/registro-bicis-sub000/internal/middleware"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/model"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/server"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type certificateService interface {
	QRCode(ctx context.Context, userID string, id uuid.UUID) ([]byte, error)
	Certificate(ctx context.Context, userID string, id uuid.UUID) ([]byte, string, error)
	Verify(ctx context.Context, serial string) (*model.Verification, error)
	VerifyToken(ctx context.Context, token string) (*model.Verification, error)
}

// CertificateHandler serves the owner's QR code and PDF certificate, and the
// public verification lookups.
type CertificateHandler struct {
	Handler
	certificates certificateService
}

func NewCertificateHandler(s *server.Server, certificates certificateService) *CertificateHandler {
	return &CertificateHandler{
		Handler:      NewHandler(s),
		certificates: certificates,
	}
}

func (h *CertificateHandler) QRCode() echo.HandlerFunc {
	return HandleFile(h.Handler, func(c echo.Context, req *model.BicycleIDRequest) (*File, error) {
		png, err := h.certificates.QRCode(c.Request().Context(), middleware.GetUserID(c), uuid.MustParse(req.ID))
		if err != nil {
			return nil, err
		}
		return &File{Name: "bicycle-" + req.ID + "-qr.png", ContentType: "image/png", Data: png, Inline: true}, nil
	}, http.StatusOK)
}

func (h *CertificateHandler) Certificate() echo.HandlerFunc {
	return HandleFile(h.Handler, func(c echo.Context, req *model.BicycleIDRequest) (*File, error) {
		pdf, name, err := h.certificates.Certificate(c.Request().Context(), middleware.GetUserID(c), uuid.MustParse(req.ID))
		if err != nil {
			return nil, err
		}
		return &File{Name: name, ContentType: "application/pdf", Data: pdf}, nil
	}, http.StatusOK)
}

func (h *CertificateHandler) VerifySerial() echo.HandlerFunc {
	return Handle(h.Handler, func(c echo.Context, req *model.VerifySerialRequest) (*model.Verification, error) {
		return h.certificates.Verify(c.Request().Context(), req.Serial)
	}, http.StatusOK)
}

func (h *CertificateHandler) VerifyCertificate() echo.HandlerFunc {
	return Handle(h.Handler, func(c echo.Context, req *model.VerifyCertificateRequest) (*model.Verification, error) {
		return h.certificates.VerifyToken(c.Request().Context(), req.Token)
	}, http.StatusOK)
}
