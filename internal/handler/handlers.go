package handler

import (
	"github.com/Rafafndz7/registro-bicis-sub000/internal/server"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/service"
)

type Handlers struct {
	Health       *HealthHandler
	OpenAPI      *OpenAPIHandler
	Profile      *ProfileHandler
	Bicycle      *BicycleHandler
	Certificate  *CertificateHandler
	Theft        *TheftHandler
	Subscription *SubscriptionHandler
	Webhook      *WebhookHandler
	Admin        *AdminHandler
}

func NewHandlers(s *server.Server, services *service.Services) *Handlers {
	return &Handlers{
		Health:       NewHealthHandler(s),
		OpenAPI:      NewOpenAPIHandler(s),
		Profile:      NewProfileHandler(s, services.Profile),
		Bicycle:      NewBicycleHandler(s, services.Bicycle),
		Certificate:  NewCertificateHandler(s, services.Certificate),
		Theft:        NewTheftHandler(s, services.Theft),
		Subscription: NewSubscriptionHandler(s, services.Subscription),
		Webhook:      NewWebhookHandler(s, services.Webhook),
		Admin:        NewAdminHandler(s, services.Admin),
	}
}
