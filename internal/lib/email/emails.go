package email

import (
	"context"
	"time"
)

type WelcomeData struct {
	FullName string
	AppURL   string
}

type BicycleRegisteredData struct {
	FullName     string
	SerialNumber string
	Brand        string
	Model        string
	VerifyURL    string
}

type TheftReportedData struct {
	FullName     string
	SerialNumber string
	Brand        string
	Model        string
	TheftDate    time.Time
	Location     string
	VerifyURL    string
}

type SubscriptionActivatedData struct {
	FullName     string
	PlanName     string
	BicycleLimit int
	PeriodEnd    time.Time
	AppURL       string
}

type SubscriptionCanceledData struct {
	FullName string
	PlanName string
	AppURL   string
}

type PaymentFailedData struct {
	FullName string
	Amount   string
	Currency string
	AppURL   string
}

func (c *Client) SendWelcomeEmail(ctx context.Context, to string, data WelcomeData) error {
	if data.AppURL == "" {
		data.AppURL = c.appURL
	}
	return c.SendEmail(ctx, to, "Bienvenido a Registro Bicis", TemplateWelcome, data)
}

func (c *Client) SendBicycleRegisteredEmail(ctx context.Context, to string, data BicycleRegisteredData) error {
	return c.SendEmail(ctx, to, "Tu bicicleta "+data.SerialNumber+" quedó registrada", TemplateBicycleRegistered, data)
}

func (c *Client) SendTheftReportedEmail(ctx context.Context, to string, data TheftReportedData) error {
	return c.SendEmail(ctx, to, "Reporte de robo registrado: "+data.SerialNumber, TemplateTheftReported, data)
}

func (c *Client) SendSubscriptionActivatedEmail(ctx context.Context, to string, data SubscriptionActivatedData) error {
	if data.AppURL == "" {
		data.AppURL = c.appURL
	}
	return c.SendEmail(ctx, to, "Tu suscripción "+data.PlanName+" está activa", TemplateSubscriptionActivated, data)
}

func (c *Client) SendSubscriptionCanceledEmail(ctx context.Context, to string, data SubscriptionCanceledData) error {
	if data.AppURL == "" {
		data.AppURL = c.appURL
	}
	return c.SendEmail(ctx, to, "Tu suscripción fue cancelada", TemplateSubscriptionCanceled, data)
}

func (c *Client) SendPaymentFailedEmail(ctx context.Context, to string, data PaymentFailedData) error {
	if data.AppURL == "" {
		data.AppURL = c.appURL
	}
	return c.SendEmail(ctx, to, "No pudimos procesar tu pago", TemplatePaymentFailed, data)
}
