package notification

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

// ErrNoRecipient is returned when the address or phone number is empty.
var ErrNoRecipient = errors.New("notification recipient is empty")

// Attachment is a file sent with an email.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Email is one outgoing message.
type Email struct {
	To          string
	ToName      string
	Subject     string
	Text        string
	HTML        string
	Attachments []Attachment
}

// EmailSender delivers email.
type EmailSender interface {
	SendEmail(ctx context.Context, email Email) error
}

// SMSSender delivers text messages.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// SendGridSender implements EmailSender with the SendGrid v3 API.
type SendGridSender struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
}

// NewSendGridSender creates a SendGridSender.
func NewSendGridSender(apiKey, fromEmail, fromName string) *SendGridSender {
	return &SendGridSender{
		client:    sendgrid.NewSendClient(apiKey),
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

// SendEmail sends email, attaching any files base64-encoded.
func (s *SendGridSender) SendEmail(ctx context.Context, email Email) error {
	if email.To == "" {
		return ErrNoRecipient
	}
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(email.ToName, email.To)
	message := mail.NewSingleEmail(from, email.Subject, to, email.Text, email.HTML)

	for _, a := range email.Attachments {
		att := mail.NewAttachment()
		att.SetContent(base64.StdEncoding.EncodeToString(a.Data))
		att.SetType(a.ContentType)
		att.SetFilename(a.Filename)
		att.SetDisposition("attachment")
		message.AddAttachment(att)
	}

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
	}
	return nil
}

// TwilioSender implements SMSSender with the Twilio Messages API.
type TwilioSender struct {
	client *twilio.RestClient
	from   string
}

// NewTwilioSender creates a TwilioSender.
func NewTwilioSender(accountSID, authToken, from string) *TwilioSender {
	return &TwilioSender{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSID,
			Password: authToken,
		}),
		from: from,
	}
}

// SendSMS sends body to the phone number to.
func (s *TwilioSender) SendSMS(ctx context.Context, to, body string) error {
	if to == "" {
		return ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.from)
	params.SetBody(body)

	if _, err := s.client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("failed to send sms: %w", err)
	}
	return nil
}

// DisabledSender stands in for a channel with no credentials configured.
// Every send is logged and skipped.
type DisabledSender struct {
	channel string
	logger  *zap.Logger
}

// NewDisabledSender creates a DisabledSender for channel.
func NewDisabledSender(channel string, logger *zap.Logger) *DisabledSender {
	return &DisabledSender{channel: channel, logger: logger}
}

// SendEmail logs and skips.
func (d *DisabledSender) SendEmail(_ context.Context, email Email) error {
	d.logger.Info("notification skipped, channel not configured",
		zap.String("channel", d.channel),
		zap.String("subject", email.Subject),
	)
	return nil
}

// SendSMS logs and skips.
func (d *DisabledSender) SendSMS(_ context.Context, _, _ string) error {
	d.logger.Info("notification skipped, channel not configured", zap.String("channel", d.channel))
	return nil
}
