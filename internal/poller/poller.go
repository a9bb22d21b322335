// Package poller periodically drains a connected Gmail mailbox into the
// ingestion pipeline. Unlike the webhook path, polled messages are
// deduplicated on the provider message ID because re-listing old mail is
// part of normal operation here.
package poller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"leasedesk/internal/database"
	"leasedesk/internal/gmail"
	"leasedesk/internal/metrics"
	"leasedesk/internal/models"
	"leasedesk/internal/pipeline"
	"leasedesk/internal/postmark"
)

const (
	// maxConcurrent bounds per-cycle message processing fan-out.
	maxConcurrent = 4
	// messageTimeout bounds one message end to end, AI call included.
	messageTimeout = 2 * time.Minute
	// stopTimeout is how long Stop waits for an in-flight cycle.
	stopTimeout = 30 * time.Second
)

// Fetcher lists new mailbox messages since the previous call.
type Fetcher interface {
	FetchNew(ctx context.Context) ([]gmail.Message, error)
	UserEmail() string
}

// Poller runs fetch cycles on a cron schedule.
type Poller struct {
	cron     *cron.Cron
	entryID  cron.EntryID
	interval time.Duration
	fetcher  Fetcher
	store    *database.Store
	pipeline *pipeline.Pipeline
	logger   zerolog.Logger
	metrics  *metrics.Metrics

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.RWMutex
	isRunning bool
}

func New(fetcher Fetcher, store *database.Store, p *pipeline.Pipeline, intervalMinutes int, logger zerolog.Logger, m *metrics.Metrics) *Poller {
	ctx, cancel := context.WithCancel(context.Background())
	return &Poller{
		cron:     cron.New(),
		interval: time.Duration(intervalMinutes) * time.Minute,
		fetcher:  fetcher,
		store:    store,
		pipeline: p,
		logger:   logger.With().Str("component", "poller").Logger(),
		metrics:  m,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start schedules the fetch cycle.
func (p *Poller) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.isRunning {
		return errors.New("poller is already running")
	}

	entryID, err := p.cron.AddFunc(fmt.Sprintf("@every %s", p.interval), p.runCycle)
	if err != nil {
		return fmt.Errorf("failed to schedule poll cycle: %w", err)
	}
	p.entryID = entryID
	p.cron.Start()
	p.isRunning = true

	p.logger.Info().Str("mailbox", p.fetcher.UserEmail()).Dur("interval", p.interval).Msg("Poller started")
	return nil
}

// Stop cancels in-flight work and waits for the current cycle to drain.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.isRunning {
		return
	}
	p.cancel()
	cronCtx := p.cron.Stop()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		<-cronCtx.Done()
		p.logger.Info().Msg("Poller stopped")
	case <-time.After(stopTimeout):
		p.logger.Warn().Msg("Poller stop timed out")
	}
	p.isRunning = false
}

// IsRunning reports whether the poller is scheduled.
func (p *Poller) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.isRunning
}

func (p *Poller) runCycle() {
	p.wg.Add(1)
	defer p.wg.Done()

	p.metrics.PollCycles.Inc()

	mailbox := p.fetcher.UserEmail()
	addr, err := p.store.LookupEmailAddress(p.ctx, mailbox)
	if err != nil {
		p.logger.Error().Err(err).Str("mailbox", mailbox).Msg("Polled mailbox is not provisioned")
		return
	}

	messages, err := p.fetcher.FetchNew(p.ctx)
	if err != nil {
		p.logger.Error().Err(err).Str("mailbox", mailbox).Msg("Fetch cycle failed")
		return
	}
	if len(messages) == 0 {
		return
	}

	workflows, err := p.store.ActiveWorkflows(p.ctx, addr.OwnerID())
	if err != nil {
		p.logger.Error().Err(err).Str("owner_id", addr.OwnerID()).Msg("Workflow lookup failed")
		workflows = nil
	}

	p.logger.Info().Int("count", len(messages)).Str("mailbox", mailbox).Msg("Processing fetched messages")

	sem := make(chan struct{}, maxConcurrent)
	var cycleWG sync.WaitGroup
	for _, msg := range messages {
		select {
		case sem <- struct{}{}:
		case <-p.ctx.Done():
			return
		}
		cycleWG.Add(1)
		go func(msg gmail.Message) {
			defer cycleWG.Done()
			defer func() { <-sem }()
			p.processMessage(msg, workflows)
		}(msg)
	}
	cycleWG.Wait()
}

func (p *Poller) processMessage(msg gmail.Message, workflows []models.EmailWorkflow) {
	ctx, cancel := context.WithTimeout(p.ctx, messageTimeout)
	defer cancel()

	processed, err := p.store.IsEmailProcessed(ctx, msg.ID)
	if err != nil {
		p.logger.Error().Err(err).Str("gmail_id", msg.ID).Msg("Dedup check failed")
		return
	}
	if processed {
		p.metrics.PollSkippedDupes.Inc()
		return
	}

	wf := MatchWorkflow(workflows, msg.Subject, msg.TextBody)

	result, err := p.pipeline.ProcessPolled(ctx, toInbound(msg), wf)
	if err != nil {
		p.logger.Error().Err(err).Str("gmail_id", msg.ID).Msg("Failed to process polled message")
		p.logWorkflow(ctx, wf, msg, "failed", nil, err)
		return
	}

	if err := p.store.MarkEmailProcessed(ctx, msg.ID); err != nil {
		// Worst case the next cycle reprocesses; the message itself is safe.
		p.logger.Error().Err(err).Str("gmail_id", msg.ID).Msg("Failed to mark message processed")
	}

	action := "stored"
	if result.Reply == pipeline.ReplySent {
		action = "ai_reply_sent"
	}
	p.logWorkflow(ctx, wf, msg, "completed", &action, nil)
}

func (p *Poller) logWorkflow(ctx context.Context, wf *models.EmailWorkflow, msg gmail.Message, status string, action *string, cause error) {
	if wf == nil {
		return
	}
	entry := &models.WorkflowLog{
		WorkflowID:   wf.ID,
		Status:       status,
		EmailSubject: msg.Subject,
		EmailFrom:    msg.From,
		ActionTaken:  action,
	}
	if cause != nil {
		errMsg := cause.Error()
		entry.ErrorMessage = &errMsg
	}
	if err := p.store.InsertWorkflowLog(ctx, entry); err != nil {
		p.logger.Error().Err(err).Str("workflow_id", wf.ID).Msg("Failed to record workflow log")
	}
}

// MatchWorkflow returns the first workflow whose subject or body filter
// matches the message, or nil. A workflow with no filter terms matches
// nothing; unmatched messages fall through to the default reply path.
func MatchWorkflow(workflows []models.EmailWorkflow, subject, body string) *models.EmailWorkflow {
	subject = strings.ToLower(subject)
	body = strings.ToLower(body)

	for i := range workflows {
		wf := &workflows[i]
		if matchesAny(subject, wf.Filter.SubjectContains) || matchesAny(body, wf.Filter.BodyContains) {
			return wf
		}
	}
	return nil
}

func matchesAny(haystack string, needles []string) bool {
	for _, needle := range needles {
		if needle != "" && strings.Contains(haystack, strings.ToLower(needle)) {
			return true
		}
	}
	return false
}

func toInbound(msg gmail.Message) *postmark.InboundEmail {
	return &postmark.InboundEmail{
		From:      msg.From,
		FromName:  msg.FromName,
		To:        msg.To,
		Subject:   msg.Subject,
		TextBody:  msg.TextBody,
		HTMLBody:  msg.HTMLBody,
		MessageID: msg.ID,
		Date:      msg.ReceivedAt.Format(time.RFC1123Z),
	}
}
