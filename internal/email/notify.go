// Package email sends system notification mail via SendGrid. Tenant-facing
// replies go out through Postmark; this channel is only for alerting
// account owners.
package email

import (
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const limitReachedSubject = "Leasedesk: Inbox conversation limit reached"

const limitReachedBody = `Your Leasedesk subscription plan inbox/conversation limit has been reached.

You will not be able to start new conversations until you upgrade your plan.

If you have questions, please contact support.`

// NotificationService handles sending account notification emails via SendGrid
type NotificationService struct {
	apiKey      string
	fromAddress string
	fromName    string
}

// NewNotificationService creates a new notification service instance
func NewNotificationService(apiKey, fromAddress, fromName string) *NotificationService {
	if fromName == "" {
		fromName = "Leasedesk"
	}
	return &NotificationService{
		apiKey:      apiKey,
		fromAddress: fromAddress,
		fromName:    fromName,
	}
}

// SendLimitReached alerts every owner address that the conversation quota is
// exhausted. Each recipient is mailed individually; the first failure aborts
// so the caller can log how far delivery got.
func (ns *NotificationService) SendLimitReached(recipients []string) error {
	if ns.apiKey == "" {
		return fmt.Errorf("SendGrid API key not configured")
	}

	from := mail.NewEmail(ns.fromName, ns.fromAddress)
	client := sendgrid.NewSendClient(ns.apiKey)

	for _, recipient := range recipients {
		to := mail.NewEmail("", recipient)
		message := mail.NewSingleEmail(from, limitReachedSubject, to, limitReachedBody, limitReachedBody)

		response, err := client.Send(message)
		if err != nil {
			return fmt.Errorf("failed to send limit notification to %s: %w", recipient, err)
		}
		if response.StatusCode >= 400 {
			return fmt.Errorf("SendGrid API error for %s: status %d, body: %s",
				recipient, response.StatusCode, response.Body)
		}
	}

	return nil
}
