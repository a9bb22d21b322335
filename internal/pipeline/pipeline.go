// Package pipeline turns an inbound email payload into persisted thread
// state and, when possible, a drafted reply. Persistence is the contract;
// the reply is best effort.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"leasedesk/internal/database"
	"leasedesk/internal/leads"
	"leasedesk/internal/metrics"
	"leasedesk/internal/models"
	"leasedesk/internal/postmark"
	"leasedesk/internal/retry"
	"leasedesk/internal/sanitize"
)

// ErrLimitReached means the owner's inbox quota is exhausted. The message is
// not persisted; the provider keeps retrying delivery until capacity returns.
var ErrLimitReached = errors.New("inbox conversation limit reached")

// Notifier delivers the quota warning to a mailbox owner.
type Notifier interface {
	SendLimitReached(recipients []string) error
}

// Responder drafts and dispatches a reply for a persisted message. A nil
// workflow means the default one.
type Responder interface {
	Respond(ctx context.Context, addr *models.EmailAddress, thread *models.EmailThread, msg *models.EmailMessage, wf *models.EmailWorkflow) ReplyOutcome
}

// ReplyOutcome reports what happened to the reply attempt. It is informative
// only; no outcome changes the ingestion result.
type ReplyOutcome string

const (
	ReplySent    ReplyOutcome = "sent"
	ReplyFailed  ReplyOutcome = "failed"
	ReplySkipped ReplyOutcome = "skipped"
)

// Result is what ingestion produced.
type Result struct {
	ThreadID  string
	MessageID string
	Reply     ReplyOutcome
}

// Pipeline is the inbound ingestion path. One instance is shared by the
// webhook handler and the mailbox poller.
type Pipeline struct {
	store     *database.Store
	notifier  Notifier
	responder Responder
	logger    zerolog.Logger
	metrics   *metrics.Metrics

	// retryOpts shortens backoff in tests.
	retryOpts []retry.Option
}

func New(store *database.Store, notifier Notifier, responder Responder, logger zerolog.Logger, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		store:     store,
		notifier:  notifier,
		responder: responder,
		logger:    logger.With().Str("component", "pipeline").Logger(),
		metrics:   m,
	}
}

// Process ingests one inbound email: routes it to its owning mailbox,
// enforces the inbox quota, persists a new thread with its message, and
// hands the message to the responder. Routing and persistence failures are
// returned; responder failures are not.
func (p *Pipeline) Process(ctx context.Context, inbound *postmark.InboundEmail, rawPayload string) (*Result, error) {
	return p.process(ctx, inbound, rawPayload, nil)
}

// ProcessPolled ingests a polled mailbox message, replying per the matched
// workflow instead of the default one.
func (p *Pipeline) ProcessPolled(ctx context.Context, inbound *postmark.InboundEmail, wf *models.EmailWorkflow) (*Result, error) {
	return p.process(ctx, inbound, "", wf)
}

func (p *Pipeline) process(ctx context.Context, inbound *postmark.InboundEmail, rawPayload string, wf *models.EmailWorkflow) (*Result, error) {
	start := time.Now()
	defer func() { p.metrics.ProcessingTime.Observe(time.Since(start).Seconds()) }()

	toAddress := sanitize.ExtractAddress(inbound.To)
	addr, err := p.store.LookupEmailAddress(ctx, toAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve recipient %s: %w", toAddress, err)
	}

	limited, err := p.store.CheckInboxUsage(ctx, addr.UserID, addr.TeamID)
	if err != nil {
		return nil, fmt.Errorf("failed to check inbox usage: %w", err)
	}
	if limited {
		p.metrics.QuotaRejections.Inc()
		p.notifyLimitReached(ctx, addr)
		return nil, ErrLimitReached
	}

	body := inbound.TextBody
	if body == "" && inbound.HTMLBody != "" {
		body = sanitize.HTMLToText(inbound.HTMLBody)
	}
	lead := leads.Extract(body)

	thread, msg := p.buildThreadAndMessage(inbound, addr, body, lead)

	err = retry.Do(ctx, "create thread", func(ctx context.Context) error {
		return p.store.CreateThread(ctx, thread)
	}, p.retryOpts...)
	if err != nil {
		return nil, err
	}

	msg.ThreadID = thread.ID
	err = retry.Do(ctx, "insert message", func(ctx context.Context) error {
		return p.store.InsertMessage(ctx, msg)
	}, p.retryOpts...)
	if err != nil {
		return nil, err
	}

	// The message row is the source of truth for the thread. Attachment
	// metadata and the raw payload are secondary; their failure flags the
	// message instead of failing the request.
	if err := p.persistExtras(ctx, inbound, msg, rawPayload); err != nil {
		p.logger.Error().Err(err).Str("message_id", msg.ID).Msg("Secondary inserts failed, message flagged partial")
		if markErr := p.store.MarkMessagePartial(ctx, msg.ID); markErr != nil {
			p.logger.Error().Err(markErr).Str("message_id", msg.ID).Msg("Failed to flag partial message")
		}
	}

	outcome := ReplySkipped
	if p.responder != nil {
		outcome = p.responder.Respond(ctx, addr, thread, msg, wf)
	}

	p.logger.Info().
		Str("thread_id", thread.ID).
		Str("message_id", msg.ID).
		Str("from", inbound.From).
		Str("reply", string(outcome)).
		Msg("Inbound email processed")

	return &Result{ThreadID: thread.ID, MessageID: msg.ID, Reply: outcome}, nil
}

func (p *Pipeline) buildThreadAndMessage(inbound *postmark.InboundEmail, addr *models.EmailAddress, body string, lead leads.Info) (*models.EmailThread, *models.EmailMessage) {
	subject := inbound.Subject
	if subject == "" {
		subject = "(no subject)"
	}
	receivedAt := inbound.ReceivedAt()

	thread := &models.EmailThread{
		Subject:       subject,
		LastMessageAt: receivedAt,
		Status:        models.StatusReceived,
		Priority:      models.PriorityNormal,
		LeadEmail:     lead.Email,
		LeadName:      lead.Name,
		LeadPhone:     lead.Phone,
		TeamID:        addr.TeamID,
		UserID:        addr.UserID,
	}

	msg := &models.EmailMessage{
		FromAddress:    sanitize.ExtractAddress(inbound.From),
		FromName:       inbound.FromName,
		ToAddress:      sanitize.ExtractAddress(inbound.To),
		Subject:        subject,
		Body:           sanitize.Body(body),
		BodyHTML:       inbound.HTMLBody,
		Status:         models.StatusReceived,
		HasAttachments: len(inbound.Attachments) > 0,
		IsContactForm:  lead.Email != nil,
		LeadEmail:      lead.Email,
		LeadName:       lead.Name,
		LeadPhone:      lead.Phone,
		ReceivedAt:     &receivedAt,
	}
	if inbound.MessageID != "" {
		msg.MessageID = &inbound.MessageID
	}
	return thread, msg
}

func (p *Pipeline) persistExtras(ctx context.Context, inbound *postmark.InboundEmail, msg *models.EmailMessage, rawPayload string) error {
	if len(inbound.Attachments) > 0 {
		// Attachment bytes land in object storage keyed by the provider
		// message ID; the internal ID stands in when the provider gave none.
		storageBase := inbound.MessageID
		if storageBase == "" {
			storageBase = msg.ID
		}
		attachments := make([]models.EmailAttachment, 0, len(inbound.Attachments))
		for _, a := range inbound.Attachments {
			attachments = append(attachments, models.EmailAttachment{
				MessageID:   msg.ID,
				FileName:    a.Name,
				FileType:    a.ContentType,
				FileSize:    a.ContentLength,
				StoragePath: fmt.Sprintf("attachments/%s/%s", storageBase, a.Name),
			})
		}
		err := retry.Do(ctx, "insert attachments", func(ctx context.Context) error {
			return p.store.InsertAttachments(ctx, attachments)
		}, p.retryOpts...)
		if err != nil {
			return err
		}
	}

	if inbound.MessageID != "" && rawPayload != "" {
		return retry.Do(ctx, "insert raw message", func(ctx context.Context) error {
			return p.store.InsertRawMessage(ctx, &models.EmailRawMessage{
				MessageID:  inbound.MessageID,
				RawContent: rawPayload,
			})
		}, p.retryOpts...)
	}
	return nil
}

func (p *Pipeline) notifyLimitReached(ctx context.Context, addr *models.EmailAddress) {
	if p.notifier == nil {
		return
	}
	recipients, err := p.store.OwnerNotificationEmails(ctx, addr)
	if err != nil {
		p.logger.Error().Err(err).Str("owner_id", addr.OwnerID()).Msg("Failed to resolve limit notification recipients")
		return
	}
	if len(recipients) == 0 {
		return
	}
	if err := p.notifier.SendLimitReached(recipients); err != nil {
		p.logger.Error().Err(err).Str("owner_id", addr.OwnerID()).Msg("Failed to send limit notification")
	}
}
