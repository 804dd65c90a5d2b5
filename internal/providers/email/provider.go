// Package email delivers buyer-facing mail for the notification
// dispatcher: purchase and renewal confirmations, failure and expiry
// notices.
package email

import "context"

type Provider interface {
	Send(ctx context.Context, to []string, subject string, htmlBody string) error
	// SendTemplate renders the named template with data and mails it
	// with that template's subject line.
	SendTemplate(ctx context.Context, to []string, templateName string, data interface{}) error
}

// NoOpProvider drops all mail. Used when SMTP is unconfigured and in
// tests that only care about the in-app notification row.
type NoOpProvider struct{}

func (p *NoOpProvider) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	return nil
}

func (p *NoOpProvider) SendTemplate(ctx context.Context, to []string, templateName string, data interface{}) error {
	return nil
}
