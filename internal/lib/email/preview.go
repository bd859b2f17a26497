package email

import "time"

// PreviewData holds sample data for rendering every template locally.
var PreviewData = map[Template]any{
	TemplateWelcome: WelcomeData{
		FullName: "Ana López",
		AppURL:   "http://localhost:3000",
	},
	TemplateBicycleRegistered: BicycleRegisteredData{
		FullName:     "Ana López",
		SerialNumber: "WTU123G4567",
		Brand:        "Trek",
		Model:        "Marlin 7",
		VerifyURL:    "http://localhost:3000/verify/WTU123G4567",
	},
	TemplateTheftReported: TheftReportedData{
		FullName:     "Ana López",
		SerialNumber: "WTU123G4567",
		Brand:        "Trek",
		Model:        "Marlin 7",
		TheftDate:    time.Date(2026, 5, 2, 18, 30, 0, 0, time.UTC),
		Location:     "Av. Reforma 222, CDMX",
		VerifyURL:    "http://localhost:3000/verify/WTU123G4567",
	},
	TemplateSubscriptionActivated: SubscriptionActivatedData{
		FullName:     "Ana López",
		PlanName:     "Estándar",
		BicycleLimit: 3,
		PeriodEnd:    time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC),
		AppURL:       "http://localhost:3000",
	},
	TemplateSubscriptionCanceled: SubscriptionCanceledData{
		FullName: "Ana López",
		PlanName: "Estándar",
		AppURL:   "http://localhost:3000",
	},
	TemplatePaymentFailed: PaymentFailedData{
		FullName: "Ana López",
		Amount:   "129.00",
		Currency: "MXN",
		AppURL:   "http://localhost:3000",
	},
}
