// Package email renders and sends transactional email through Resend.
//
// Templates are embedded in the binary and rendered with html/template plus
// the sprig function map.
package email

import (
	"bytes"
	"context"
	"fmt"

	"github.com/Rafafndz7/registro-bicis-sub000/internal/config"
	"github.com/pkg/errors"
	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"
)

// Sender is the part of the Resend API the client uses.
type Sender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

type Client struct {
	sender Sender
	from   string
	appURL string
	logger *zerolog.Logger
}

func NewClient(cfg *config.Config, logger *zerolog.Logger) *Client {
	return NewClientWithSender(resend.NewClient(cfg.Integration.ResendAPIKey).Emails, cfg.Integration.EmailFrom, cfg.App.PublicURL, logger)
}

// NewClientWithSender builds a client on top of any Sender.
func NewClientWithSender(sender Sender, from, appURL string, logger *zerolog.Logger) *Client {
	return &Client{
		sender: sender,
		from:   from,
		appURL: appURL,
		logger: logger,
	}
}

// Render executes the named template with data.
func Render(name Template, data any) (string, error) {
	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, name.file(), data); err != nil {
		return "", errors.Wrapf(err, "failed to execute email template %s", name)
	}
	return body.String(), nil
}

// SendEmail renders name with data and sends it to a single recipient.
func (c *Client) SendEmail(ctx context.Context, to, subject string, name Template, data any) error {
	html, err := Render(name, data)
	if err != nil {
		return err
	}

	resp, err := c.sender.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    c.from,
		To:      []string{to},
		Subject: subject,
		Html:    html,
		Tags:    []resend.Tag{{Name: "template", Value: string(name)}},
	})
	if err != nil {
		return fmt.Errorf("failed to send %s email: %w", name, err)
	}

	c.logger.Debug().Str("template", string(name)).Str("email_id", resp.Id).Msg("email accepted by provider")
	return nil
}
