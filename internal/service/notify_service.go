package service

import (
	"fmt"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

type EmailSender interface {
	SendEmail(toEmail, toName, subject, plainText, html string) error
}

type SMSSender interface {
	SendSMS(toNumber, body string) error
}

type SendGridMailer struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	logger    *zap.Logger
}

// NewSendGridMailer returns nil when the API key or sender is missing.
func NewSendGridMailer(apiKey, fromEmail, fromName string, logger *zap.Logger) EmailSender {
	if apiKey == "" || fromEmail == "" {
		logger.Warn("SendGrid not configured, emails will not be sent")
		return nil
	}
	return &SendGridMailer{client: sendgrid.NewSendClient(apiKey), fromEmail: fromEmail, fromName: fromName, logger: logger}
}

func (m *SendGridMailer) SendEmail(toEmail, toName, subject, plainText, html string) error {
	from := mail.NewEmail(m.fromName, m.fromEmail)
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, plainText, html)

	response, err := m.client.Send(message)
	if err != nil {
		return fmt.Errorf("sendgrid send to %s: %w", toEmail, err)
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return fmt.Errorf("sendgrid returned status %d: %s", response.StatusCode, response.Body)
	}
	m.logger.Info("Email sent", zap.String("to", toEmail), zap.String("subject", subject), zap.Int("status", response.StatusCode))
	return nil
}

type TwilioSMS struct {
	client     *twilio.RestClient
	fromNumber string
	logger     *zap.Logger
}

// NewTwilioSMS returns nil when any credential is missing.
func NewTwilioSMS(accountSID, authToken, fromNumber string, logger *zap.Logger) SMSSender {
	if accountSID == "" || authToken == "" || fromNumber == "" {
		logger.Warn("Twilio not configured, SMS will not be sent")
		return nil
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username:   accountSID,
		Password:   authToken,
		AccountSid: accountSID,
	})
	return &TwilioSMS{client: client, fromNumber: fromNumber, logger: logger}
}

func (t *TwilioSMS) SendSMS(toNumber, body string) error {
	if !strings.HasPrefix(toNumber, "+") {
		t.logger.Warn("Destination number is not E.164, SMS may fail", zap.String("to", toNumber))
	}

	params := &openapi.CreateMessageParams{}
	params.SetTo(toNumber)
	params.SetFrom(t.fromNumber)
	params.SetBody(body)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("twilio send to %s: %w", toNumber, err)
	}
	if resp != nil && resp.Sid != nil {
		t.logger.Info("SMS sent", zap.String("to", toNumber), zap.String("sid", *resp.Sid))
	}
	return nil
}
