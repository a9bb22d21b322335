// Package gmail pulls mailbox messages through the Gmail API for owners
// whose provider cannot deliver webhooks.
package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"leasedesk/internal/sanitize"
)

// Message is one fetched mailbox message, normalized from the provider's
// multipart payload.
type Message struct {
	ID         string
	From       string
	FromName   string
	To         string
	Subject    string
	TextBody   string
	HTMLBody   string
	ReceivedAt time.Time
}

// Credentials holds the OAuth2 client and the per-mailbox refresh token.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	UserEmail    string
}

// Fetcher lists and normalizes new messages for one mailbox.
type Fetcher struct {
	service   *gmailapi.Service
	userEmail string
	lastCheck time.Time
	logger    zerolog.Logger
}

// NewFetcher builds a Gmail API client from a refresh token. The first fetch
// window covers the last 24 hours.
func NewFetcher(ctx context.Context, creds Credentials, logger zerolog.Logger) (*Fetcher, error) {
	oauthConfig := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Scopes:       []string{gmailapi.GmailReadonlyScope},
		Endpoint:     google.Endpoint,
	}
	tokenSource := oauthConfig.TokenSource(ctx, &oauth2.Token{RefreshToken: creds.RefreshToken})

	service, err := gmailapi.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return &Fetcher{
		service:   service,
		userEmail: creds.UserEmail,
		lastCheck: time.Now().Add(-24 * time.Hour),
		logger:    logger.With().Str("component", "gmail").Logger(),
	}, nil
}

// UserEmail is the polled mailbox address.
func (f *Fetcher) UserEmail() string {
	return f.userEmail
}

// FetchNew lists messages received since the previous call. Messages that
// fail to load or parse are logged and skipped, not returned as errors.
func (f *Fetcher) FetchNew(ctx context.Context) ([]Message, error) {
	query := fmt.Sprintf("after:%d", f.lastCheck.Unix())

	response, err := f.service.Users.Messages.List(f.userEmail).Q(query).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	var messages []Message
	for _, ref := range response.Messages {
		full, err := f.service.Users.Messages.Get(f.userEmail, ref.Id).Format("full").Context(ctx).Do()
		if err != nil {
			f.logger.Warn().Err(err).Str("gmail_id", ref.Id).Msg("Failed to load message")
			continue
		}
		msg, err := parseMessage(full)
		if err != nil {
			f.logger.Warn().Err(err).Str("gmail_id", ref.Id).Msg("Failed to parse message")
			continue
		}
		messages = append(messages, msg)
	}

	f.lastCheck = time.Now()
	return messages, nil
}

func parseMessage(raw *gmailapi.Message) (Message, error) {
	msg := Message{
		ID:         raw.Id,
		ReceivedAt: time.UnixMilli(raw.InternalDate).UTC(),
	}
	if raw.Payload == nil {
		return msg, fmt.Errorf("message %s has no payload", raw.Id)
	}

	for _, header := range raw.Payload.Headers {
		switch header.Name {
		case "Subject":
			msg.Subject = header.Value
		case "From":
			msg.From = sanitize.ExtractAddress(header.Value)
			msg.FromName = displayName(header.Value)
		case "To":
			msg.To = sanitize.ExtractAddress(header.Value)
		}
	}

	if err := parseBody(raw.Payload, &msg); err != nil {
		return msg, err
	}
	return msg, nil
}

// parseBody walks the MIME tree collecting the plain-text and HTML parts.
func parseBody(part *gmailapi.MessagePart, msg *Message) error {
	if part.Body != nil && part.Body.Data != "" {
		data, err := base64.URLEncoding.DecodeString(part.Body.Data)
		if err != nil {
			return fmt.Errorf("failed to decode body part: %w", err)
		}
		switch part.MimeType {
		case "text/plain":
			msg.TextBody = string(data)
		case "text/html":
			msg.HTMLBody = string(data)
		}
	}

	for _, sub := range part.Parts {
		if err := parseBody(sub, msg); err != nil {
			return err
		}
	}
	return nil
}

// displayName pulls the human name off a "Name <addr>" header value.
func displayName(formatted string) string {
	if idx := strings.Index(formatted, "<"); idx > 0 {
		return strings.Trim(strings.TrimSpace(formatted[:idx]), `"`)
	}
	return ""
}
