package email

import (
	"embed"
	"html/template"

	// Templates render dates in America/Mexico_City.
	_ "time/tzdata"

	"github.com/Masterminds/sprig/v3"
)

// Template names an embedded template under templates/.
type Template string

const (
	TemplateWelcome               Template = "welcome"
	TemplateBicycleRegistered     Template = "bicycle_registered"
	TemplateTheftReported         Template = "theft_reported"
	TemplateSubscriptionActivated Template = "subscription_activated"
	TemplateSubscriptionCanceled  Template = "subscription_canceled"
	TemplatePaymentFailed         Template = "payment_failed"
)

// Templates lists every template, in preview order.
var Templates = []Template{
	TemplateWelcome,
	TemplateBicycleRegistered,
	TemplateTheftReported,
	TemplateSubscriptionActivated,
	TemplateSubscriptionCanceled,
	TemplatePaymentFailed,
}

func (t Template) file() string {
	return string(t) + ".html"
}

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(
	template.New("email").Funcs(sprig.FuncMap()).ParseFS(templateFS, "templates/*.html"),
)
