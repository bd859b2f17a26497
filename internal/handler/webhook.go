package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/Rafafndz7/registro-bicis-sub000/internal/errs"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/middleware"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/server"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/service"
	"github.com/labstack/echo/v4"
)

// MaxWebhookBody is the largest Stripe payload accepted.
const MaxWebhookBody = 64 << 10

const stripeSignatureHeader = "Stripe-Signature"

type webhookService interface {
	HandleStripe(ctx context.Context, payload []byte, signature string) (*service.WebhookResult, error)
}

type WebhookHandler struct {
	Handler
	webhooks webhookService
}

func NewWebhookHandler(s *server.Server, webhooks webhookService) *WebhookHandler {
	return &WebhookHandler{
		Handler:  NewHandler(s),
		webhooks: webhooks,
	}
}

// Stripe receives signed Stripe events. The signature covers the exact bytes
// sent, so the body is read raw instead of going through the binder.
func (h *WebhookHandler) Stripe(c echo.Context) error {
	logger := middleware.GetLogger(c).With().Str("operation", "stripe_webhook").Logger()

	signature := c.Request().Header.Get(stripeSignatureHeader)
	if signature == "" {
		return errs.NewBadRequestError("Missing Stripe-Signature header", false, errs.Code("INVALID_SIGNATURE"), nil, nil)
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, MaxWebhookBody+1))
	if err != nil {
		return fmt.Errorf("failed to read webhook body: %w", err)
	}
	if len(payload) > MaxWebhookBody {
		return echo.ErrStatusRequestEntityTooLarge
	}

	result, err := h.webhooks.HandleStripe(c.Request().Context(), payload, signature)
	if err != nil {
		return err
	}

	logger.Debug().Bool("duplicate", result.Duplicate).Msg("stripe event acknowledged")
	return c.JSON(http.StatusOK, result)
}
