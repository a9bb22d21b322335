// Package outbound dispatches persisted draft messages through Postmark and
// records every attempt in the delivery log.
package outbound

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"leasedesk/internal/database"
	"leasedesk/internal/metrics"
	"leasedesk/internal/models"
	"leasedesk/internal/postmark"
)

// Request carries one send invocation. MessageID is the internal message
// row the send is anchored to; the row supplies thread ownership for the
// From-address resolution.
type Request struct {
	MessageID string            `json:"messageId"`
	To        string            `json:"to"`
	Subject   string            `json:"subject"`
	Body      string            `json:"body"`
	HTMLBody  string            `json:"htmlBody,omitempty"`
	ReplyTo   string            `json:"replyTo,omitempty"`
	Tag       string            `json:"tag,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Validate checks the required send fields.
func (r *Request) Validate() error {
	var missing []string
	if r.MessageID == "" {
		missing = append(missing, "messageId")
	}
	if r.To == "" {
		missing = append(missing, "to")
	}
	if r.Subject == "" {
		missing = append(missing, "subject")
	}
	if r.Body == "" {
		missing = append(missing, "body")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %v", missing)
	}
	return nil
}

// Sender resolves the From address, calls Postmark, updates the message row,
// and appends the delivery log entry.
type Sender struct {
	store       *database.Store
	client      *postmark.Client
	defaultFrom string
	logger      zerolog.Logger
	metrics     *metrics.Metrics
}

// NewSender builds a dispatcher.
func NewSender(store *database.Store, client *postmark.Client, defaultFrom string, logger zerolog.Logger, m *metrics.Metrics) *Sender {
	return &Sender{
		store:       store,
		client:      client,
		defaultFrom: defaultFrom,
		logger:      logger.With().Str("component", "outbound").Logger(),
		metrics:     m,
	}
}

// Dispatch sends one persisted message. On success the row is marked sent
// with the provider message ID; on failure a failed delivery-log entry is
// written and the row is left queued for manual resend. The delivery log is
// best-effort either way.
func (s *Sender) Dispatch(ctx context.Context, req Request) (string, error) {
	msg, err := s.store.GetMessage(ctx, req.MessageID)
	if err != nil {
		return "", fmt.Errorf("message not found: %w", err)
	}
	thread, err := s.store.GetThread(ctx, msg.ThreadID)
	if err != nil {
		return "", fmt.Errorf("thread not found: %w", err)
	}

	from := s.resolveFromAddress(ctx, thread, req.ReplyTo)

	metadata := map[string]string{
		"messageId": req.MessageID,
		"threadId":  msg.ThreadID,
	}
	for k, v := range req.Metadata {
		metadata[k] = v
	}

	result, err := s.client.Send(ctx, postmark.OutboundEmail{
		From:     from,
		To:       req.To,
		Subject:  req.Subject,
		TextBody: req.Body,
		HTMLBody: req.HTMLBody,
		ReplyTo:  from,
		Tag:      req.Tag,
		Metadata: metadata,
	})
	if err != nil {
		s.metrics.SendFailures.Inc()
		s.appendDeliveryLog(ctx, req, models.StatusFailed, map[string]string{"error": err.Error()})
		return "", fmt.Errorf("failed to send email: %w", err)
	}

	if err := s.store.UpdateMessageSent(ctx, req.MessageID, result.MessageID); err != nil {
		// The mail is already out; surface the bookkeeping failure.
		s.metrics.SendFailures.Inc()
		return result.MessageID, fmt.Errorf("sent but failed to update message: %w", err)
	}

	s.metrics.SendSuccesses.Inc()
	s.appendDeliveryLog(ctx, req, models.StatusSent, map[string]string{"MessageID": result.MessageID})
	return result.MessageID, nil
}

// resolveFromAddress picks the owner's primary address, then the request's
// replyTo, then the configured default.
func (s *Sender) resolveFromAddress(ctx context.Context, thread *models.EmailThread, replyTo string) string {
	from, err := s.store.PrimaryAddress(ctx, thread.TeamID, thread.UserID)
	if err != nil {
		s.logger.Warn().Err(err).Str("thread_id", thread.ID).Msg("Primary address lookup failed")
	}
	if from != "" {
		return from
	}
	if replyTo != "" {
		s.logger.Info().Str("from", replyTo).Msg("Using replyTo as fallback sender address")
		return replyTo
	}
	return s.defaultFrom
}

func (s *Sender) appendDeliveryLog(ctx context.Context, req Request, status string, raw map[string]string) {
	rawData, _ := json.Marshal(raw)
	entry := &models.EmailDeliveryLog{
		MessageID: req.MessageID,
		EventType: "send",
		Recipient: req.To,
		Status:    status,
		RawData:   string(rawData),
	}
	if err := s.store.InsertDeliveryLog(ctx, entry); err != nil {
		// The email outcome is already decided; a lost audit row is logged,
		// not escalated.
		s.logger.Error().Err(err).Str("message_id", req.MessageID).Msg("Failed to append delivery log")
	}
}
