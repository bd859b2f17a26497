// Package config manages environment variables.
//
// It reads variables from the process environment (and a `.env` file when
// present), loads them into structured Go types and validates that required
// values are present so the service fails fast on bad configuration.
//
// Responsibilities:
//   - Load environment variables (optionally from a `.env` file).
//   - Map env vars into a structured Go config (structs).
//   - Validate required values.
//   - Provide defaults for optional blocks (observability, app limits).
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	// Side-effect import: loads `.env` into the process env before we read it.
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

/*
	Env vars are read using the BIKEREG_ prefix. Keys are lowercased with the
	prefix removed and nested with ".":

	  BIKEREG_SERVER.PORT        -> server.port        -> Config.Server.Port
	  BIKEREG_STRIPE.PRICE_BASIC -> stripe.price_basic -> Config.Stripe.PriceBasic
*/

// EnvPrefix is the prefix every configuration variable carries.
const EnvPrefix = "BIKEREG_"

// Config is the root configuration object for the application.
//
// Observability and App are pointers because they are optional; defaults are
// injected by LoadConfig when they are missing.
type Config struct {
	Primary       Primary              `koanf:"primary" validate:"required"`
	Server        ServerConfig         `koanf:"server" validate:"required"`
	Database      DatabaseConfig       `koanf:"database" validate:"required"`
	Redis         RedisConfig          `koanf:"redis" validate:"required"`
	Auth          AuthConfig           `koanf:"auth" validate:"required"`
	Integration   IntegrationConfig    `koanf:"integration" validate:"required"`
	Stripe        StripeConfig         `koanf:"stripe" validate:"required"`
	Storage       StorageConfig        `koanf:"storage" validate:"required"`
	App           *AppConfig           `koanf:"app"`
	Observability *ObservabilityConfig `koanf:"observability"`
}

// Primary holds top-level information about the runtime environment.
type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

// ServerConfig groups settings for the HTTP server runtime.
// Timeouts are expressed in seconds.
type ServerConfig struct {
	Port               string   `koanf:"port" validate:"required"`
	ReadTimeout        int      `koanf:"read_timeout" validate:"required"`
	WriteTimeout       int      `koanf:"write_timeout" validate:"required"`
	IdleTimeout        int      `koanf:"idle_timeout" validate:"required"`
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins" validate:"required"`
}

// DatabaseConfig contains PostgreSQL connection parameters and pool tuning.
type DatabaseConfig struct {
	Host            string `koanf:"host" validate:"required"`
	Port            int    `koanf:"port" validate:"required"`
	User            string `koanf:"user" validate:"required"`
	Password        string `koanf:"password" validate:"required"`
	Name            string `koanf:"name" validate:"required"`
	SSLMode         string `koanf:"ssl_mode" validate:"required"`
	MaxOpenConns    int    `koanf:"max_open_conns" validate:"required"`
	MaxIdleConns    int    `koanf:"max_idle_conns" validate:"required"`
	ConnMaxLifetime int    `koanf:"conn_max_lifetime" validate:"required"`
	ConnMaxIdleTime int    `koanf:"conn_max_idle_time" validate:"required"`
}

// RedisConfig contains Redis connection details. Address is "host:port".
type RedisConfig struct {
	Address string `koanf:"address" validate:"required"`
}

// AuthConfig stores the Clerk secret key used to verify session tokens.
type AuthConfig struct {
	SecretKey string `koanf:"secret_key" validate:"required"`
}

// IntegrationConfig holds credentials for transactional email.
type IntegrationConfig struct {
	ResendAPIKey string `koanf:"resend_api_key" validate:"required"`
	EmailFrom    string `koanf:"email_from" validate:"required"`
}

// StripeConfig holds payment processor credentials, the price id bound to
// every plan of the catalog and the URLs Stripe redirects back to.
type StripeConfig struct {
	SecretKey       string `koanf:"secret_key" validate:"required"`
	WebhookSecret   string `koanf:"webhook_secret" validate:"required"`
	PriceBasic      string `koanf:"price_basic" validate:"required"`
	PriceStandard   string `koanf:"price_standard" validate:"required"`
	PricePremium    string `koanf:"price_premium" validate:"required"`
	SuccessURL      string `koanf:"success_url" validate:"required,url"`
	CancelURL       string `koanf:"cancel_url" validate:"required,url"`
	PortalReturnURL string `koanf:"portal_return_url" validate:"required,url"`
}

// PriceIDs maps plan ids of the catalog to their Stripe price ids.
func (s StripeConfig) PriceIDs() map[string]string {
	return map[string]string{
		"basic":    s.PriceBasic,
		"standard": s.PriceStandard,
		"premium":  s.PricePremium,
	}
}

// StorageConfig describes the S3-compatible object storage.
//
// Endpoint may be empty for AWS itself; for Supabase Storage or MinIO it is the
// S3 endpoint and path-style addressing is used.
type StorageConfig struct {
	Endpoint        string `koanf:"endpoint"`
	Region          string `koanf:"region" validate:"required"`
	AccessKeyID     string `koanf:"access_key_id" validate:"required"`
	SecretAccessKey string `koanf:"secret_access_key" validate:"required"`
	ImagesBucket    string `koanf:"images_bucket" validate:"required"`
	InvoicesBucket  string `koanf:"invoices_bucket" validate:"required"`
	PublicBaseURL   string `koanf:"public_base_url" validate:"required,url"`
}

// AppConfig carries product-level settings.
type AppConfig struct {
	// PublicURL is the website the QR codes and emails point to.
	PublicURL string `koanf:"public_url" validate:"required,url"`

	// CertificateSigningKey signs the token printed on registration certificates.
	CertificateSigningKey string `koanf:"certificate_signing_key" validate:"required,min=32"`

	MaxImagesPerBicycle int   `koanf:"max_images_per_bicycle" validate:"min=1"`
	MaxUploadBytes      int64 `koanf:"max_upload_bytes" validate:"min=1024"`
}

// DefaultAppConfig returns the limits used when BIKEREG_APP.* is partially set.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		PublicURL:           "http://localhost:3000",
		MaxImagesPerBicycle: 5,
		MaxUploadBytes:      5 << 20,
	}
}

// LoadConfig loads configuration from environment variables, unmarshals it into
// Config, applies defaults and validates the result.
func LoadConfig() (*Config, error) {
	k := koanf.New(".")

	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("could not load initial env variables: %w", err)
	}

	mainConfig := &Config{}
	if err := k.Unmarshal("", mainConfig); err != nil {
		return nil, fmt.Errorf("could not unmarshal main config: %w", err)
	}

	// App is optional as a block, but the fields inside it are not: fill the
	// numeric limits and let the validator complain about the secrets.
	if mainConfig.App == nil {
		mainConfig.App = DefaultAppConfig()
	}
	defaults := DefaultAppConfig()
	if mainConfig.App.PublicURL == "" {
		mainConfig.App.PublicURL = defaults.PublicURL
	}
	if mainConfig.App.MaxImagesPerBicycle == 0 {
		mainConfig.App.MaxImagesPerBicycle = defaults.MaxImagesPerBicycle
	}
	if mainConfig.App.MaxUploadBytes == 0 {
		mainConfig.App.MaxUploadBytes = defaults.MaxUploadBytes
	}

	if mainConfig.Observability == nil {
		mainConfig.Observability = DefaultObservabilityConfig()
	}

	// Service name and environment are not user-configurable: telemetry must
	// always be tagged consistently.
	mainConfig.Observability.ServiceName = ServiceName
	mainConfig.Observability.Environment = mainConfig.Primary.Env

	validate := validator.New()
	if err := validate.Struct(mainConfig); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	if err := mainConfig.Observability.Validate(); err != nil {
		return nil, fmt.Errorf("invalid observability config: %w", err)
	}

	return mainConfig, nil
}
