package router

import (
	"fmt"

	"github.com/Rafafndz7/registro-bicis-sub000/internal/handler"
	"github.com/Rafafndz7/registro-bicis-sub000/internal/middleware"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

func registerV1Routes(v1 *echo.Group, h *handler.Handlers, mw *middleware.Middlewares) {
	auth := mw.Auth.RequireAuth

	// Public.
	v1.GET("/plans", h.Subscription.ListPlans())
	v1.GET("/verify/certificate", h.Certificate.VerifyCertificate(), mw.RateLimit.Verify())
	v1.GET("/verify/:serial", h.Certificate.VerifySerial(), mw.RateLimit.Verify())
	v1.POST("/webhooks/stripe", h.Webhook.Stripe,
		echomw.BodyLimit(fmt.Sprintf("%dK", handler.MaxWebhookBody>>10)))

	profile := v1.Group("/profile", auth)
	profile.POST("", h.Profile.CreateProfile())
	profile.GET("", h.Profile.GetProfile())
	profile.PUT("", h.Profile.UpdateProfile())

	bicycles := v1.Group("/bicycles", auth)
	bicycles.POST("", h.Bicycle.RegisterBicycle())
	bicycles.GET("", h.Bicycle.ListBicycles())
	bicycles.GET("/:id", h.Bicycle.GetBicycle())
	bicycles.PUT("/:id", h.Bicycle.UpdateBicycle())
	bicycles.DELETE("/:id", h.Bicycle.DeleteBicycle())
	bicycles.POST("/:id/images", h.Bicycle.AddImage())
	bicycles.DELETE("/:id/images/:imageId", h.Bicycle.DeleteImage())
	bicycles.POST("/:id/invoice", h.Bicycle.UploadInvoice())
	bicycles.GET("/:id/invoice", h.Bicycle.GetInvoice())
	bicycles.GET("/:id/qr", h.Certificate.QRCode())
	bicycles.GET("/:id/certificate", h.Certificate.Certificate())
	bicycles.POST("/:id/theft-reports", h.Theft.ReportTheft())

	thefts := v1.Group("/theft-reports", auth)
	thefts.GET("", h.Theft.ListReports())
	thefts.PATCH("/:id", h.Theft.UpdateStatus())

	subscriptions := v1.Group("/subscriptions", auth)
	subscriptions.POST("/checkout", h.Subscription.Checkout())
	subscriptions.GET("/current", h.Subscription.Current())
	subscriptions.POST("/change-plan", h.Subscription.ChangePlan())
	subscriptions.POST("/cancel", h.Subscription.Cancel())
	subscriptions.POST("/resume", h.Subscription.Resume())
	subscriptions.POST("/portal", h.Subscription.Portal())

	v1.GET("/payments", h.Subscription.Payments(), auth)

	admin := v1.Group("/admin", auth, mw.Auth.RequireAdmin)
	admin.GET("/stats", h.Admin.Stats())
	admin.GET("/bicycles", h.Admin.SearchBicycles())
	admin.GET("/theft-reports", h.Admin.ListTheftReports())
}
