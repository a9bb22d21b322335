package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"leasedesk/internal/ai"
	"leasedesk/internal/cache"
	"leasedesk/internal/database"
	"leasedesk/internal/metrics"
	"leasedesk/internal/models"
	"leasedesk/internal/outbound"
	"leasedesk/internal/retry"
)

// propertyContextLimit caps how many listings are handed to the completion
// service per request.
const propertyContextLimit = 50

// agentContextTTL is how long a cached profile/portfolio stays valid.
const agentContextTTL = 5 * time.Minute

type agentContext struct {
	profile    models.AgentProfile
	properties []models.Property
}

// Dispatcher sends a persisted draft message.
type Dispatcher interface {
	Dispatch(ctx context.Context, req outbound.Request) (string, error)
}

// AIResponder drafts a reply via the completion service, persists it as a
// queued message on the thread, and dispatches it. Every failure downgrades
// the outcome instead of propagating.
type AIResponder struct {
	store      *database.Store
	client     *ai.Client
	dispatcher Dispatcher
	cache      *cache.Cache
	logger     zerolog.Logger
	metrics    *metrics.Metrics

	// retryOpts shortens backoff in tests.
	retryOpts []retry.Option
}

func NewAIResponder(store *database.Store, client *ai.Client, dispatcher Dispatcher, logger zerolog.Logger, m *metrics.Metrics) *AIResponder {
	return &AIResponder{
		store:      store,
		client:     client,
		dispatcher: dispatcher,
		cache:      cache.New(),
		logger:     logger.With().Str("component", "responder").Logger(),
		metrics:    m,
	}
}

// Respond runs the draft-persist-dispatch sequence for one inbound message.
func (r *AIResponder) Respond(ctx context.Context, addr *models.EmailAddress, thread *models.EmailThread, msg *models.EmailMessage, wf *models.EmailWorkflow) ReplyOutcome {
	if !r.client.Configured() {
		return ReplySkipped
	}

	reply, validation, err := r.draft(ctx, addr, msg, wf)
	if err != nil {
		if errors.Is(err, ai.ErrNotConfigured) {
			return ReplySkipped
		}
		r.metrics.AIFailures.Inc()
		r.logger.Error().Err(err).Str("message_id", msg.ID).Msg("Reply drafting failed")
		return ReplyFailed
	}

	// Contact-form mail arrives from a portal address; the extracted lead
	// email is the real correspondent when present.
	recipient := msg.FromAddress
	if msg.LeadEmail != nil && *msg.LeadEmail != "" {
		recipient = *msg.LeadEmail
	}
	subject := reply.Subject
	if subject == "" {
		subject = "Re: " + thread.Subject
	}

	draft, err := r.persistDraft(ctx, thread, msg, recipient, subject, reply, validation)
	if err != nil {
		r.metrics.AIFailures.Inc()
		r.logger.Error().Err(err).Str("thread_id", thread.ID).Msg("Failed to persist drafted reply")
		return ReplyFailed
	}
	r.metrics.AIReplies.Inc()

	if _, err := r.dispatcher.Dispatch(ctx, outbound.Request{
		MessageID: draft.ID,
		To:        recipient,
		Subject:   subject,
		Body:      reply.Body,
		Tag:       "auto-reply",
	}); err != nil {
		// The draft stays queued for manual resend.
		r.logger.Error().Err(err).Str("message_id", draft.ID).Msg("Failed to dispatch drafted reply")
		return ReplyFailed
	}
	return ReplySent
}

func (r *AIResponder) draft(ctx context.Context, addr *models.EmailAddress, msg *models.EmailMessage, wf *models.EmailWorkflow) (*ai.Reply, *ai.Validation, error) {
	agentCtx := r.agentContext(ctx, addr)

	emailDate := ""
	if msg.ReceivedAt != nil {
		emailDate = msg.ReceivedAt.Format(time.RFC3339)
	}

	req := ai.ProcessEmailRequest{
		AgentID:         addr.OwnerID(),
		WorkflowID:      "default",
		EmailContent:    msg.Body,
		EmailSubject:    msg.Subject,
		EmailFrom:       msg.FromAddress,
		EmailDate:       emailDate,
		AgentProperties: agentCtx.properties,
		WorkflowActions: ai.WorkflowActions{
			AgentName:    agentCtx.profile.Name,
			AgentContact: agentCtx.profile.Contact,
		},
	}
	if wf != nil {
		req.WorkflowID = wf.ID
		req.WorkflowActions.CustomMessage = wf.Actions.CustomMessage
	}

	resp, err := r.client.ProcessEmail(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	return resp.Response, resp.Validation, nil
}

// agentContext loads the profile and portfolio for an owner, caching the
// result. Lookup failures degrade the draft instead of blocking it, and are
// never cached.
func (r *AIResponder) agentContext(ctx context.Context, addr *models.EmailAddress) agentContext {
	key := "agent-context:" + addr.OwnerID()
	if cached, ok := r.cache.Get(key); ok {
		return cached.(agentContext)
	}

	var failed bool
	profile, err := r.store.AgentProfile(ctx, addr.TeamID, addr.UserID)
	if err != nil {
		failed = true
		r.logger.Warn().Err(err).Str("owner_id", addr.OwnerID()).Msg("Agent profile lookup failed")
	}
	properties, err := r.store.OwnerProperties(ctx, addr.TeamID, addr.UserID, propertyContextLimit)
	if err != nil {
		failed = true
		r.logger.Warn().Err(err).Str("owner_id", addr.OwnerID()).Msg("Property lookup failed")
	}

	result := agentContext{profile: profile, properties: properties}
	if !failed {
		r.cache.Set(key, result, agentContextTTL)
	}
	return result
}

func (r *AIResponder) persistDraft(ctx context.Context, thread *models.EmailThread, msg *models.EmailMessage, recipient, subject string, reply *ai.Reply, validation *ai.Validation) (*models.EmailMessage, error) {
	now := time.Now().UTC()
	draft := &models.EmailMessage{
		ThreadID:    thread.ID,
		FromAddress: msg.ToAddress,
		ToAddress:   recipient,
		Subject:     subject,
		Body:        reply.Body,
		Status:      models.StatusQueued,
		IsRead:      true,
		AIGenerated: true,
		ReceivedAt:  &now,
	}
	if validation != nil {
		draft.AIConfidence = validation.Confidence
	}

	err := retry.Do(ctx, "insert drafted reply", func(ctx context.Context) error {
		return r.store.InsertMessage(ctx, draft)
	}, r.retryOpts...)
	if err != nil {
		return nil, err
	}
	return draft, nil
}
