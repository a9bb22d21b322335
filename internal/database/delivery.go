package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"leasedesk/internal/models"
)

// UpdateMessageSent records a successful dispatch: provider message ID,
// status sent, and the send timestamp.
func (s *Store) UpdateMessageSent(ctx context.Context, id, providerMessageID string) error {
	query := s.db.Rebind(`
		UPDATE email_messages
		SET message_id = ?, status = ?, sent_at = ?
		WHERE id = ?
	`)
	_, err := s.db.ExecContext(ctx, query, providerMessageID, models.StatusSent, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update message after send: %w", err)
	}
	return nil
}

// InsertDeliveryLog appends one send-attempt outcome. The log is audit
// trail, not recovery state; entries are never updated.
func (s *Store) InsertDeliveryLog(ctx context.Context, entry *models.EmailDeliveryLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.CreatedAt = time.Now().UTC()

	query := s.db.Rebind(`
		INSERT INTO email_delivery_logs
			(id, message_id, event_type, recipient, status, raw_data, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := s.db.ExecContext(ctx, query,
		entry.ID, entry.MessageID, entry.EventType, entry.Recipient,
		entry.Status, entry.RawData, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert delivery log: %w", err)
	}
	return nil
}

// IsEmailProcessed reports whether the polling path already handled this
// provider message. The webhook path does not use this table.
func (s *Store) IsEmailProcessed(ctx context.Context, providerMessageID string) (bool, error) {
	var one int
	query := s.db.Rebind(`SELECT 1 FROM processed_emails WHERE message_id = ?`)
	err := s.db.GetContext(ctx, &one, query, providerMessageID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check processed email: %w", err)
	}
	return true, nil
}

// MarkEmailProcessed records a provider message as handled by the polling
// path.
func (s *Store) MarkEmailProcessed(ctx context.Context, providerMessageID string) error {
	row := models.ProcessedEmail{MessageID: providerMessageID, ProcessedAt: time.Now().UTC()}
	query := s.db.Rebind(`INSERT INTO processed_emails (message_id, processed_at) VALUES (?, ?)`)
	if _, err := s.db.ExecContext(ctx, query, row.MessageID, row.ProcessedAt); err != nil {
		return fmt.Errorf("failed to mark email processed: %w", err)
	}
	return nil
}

type workflowRow struct {
	ID          string `db:"id"`
	AgentID     string `db:"agent_id"`
	Name        string `db:"name"`
	Active      bool   `db:"active"`
	FilterJSON  []byte `db:"email_filter"`
	ActionsJSON []byte `db:"actions"`
}

// ActiveWorkflows returns the agent's active email workflows with their
// JSON filter/action columns decoded. Workflows without a filter cannot
// match anything and are excluded up front.
func (s *Store) ActiveWorkflows(ctx context.Context, agentID string) ([]models.EmailWorkflow, error) {
	var rows []workflowRow
	query := s.db.Rebind(`
		SELECT id, agent_id, name, active, email_filter, actions
		FROM email_workflows
		WHERE agent_id = ? AND active = true AND email_filter IS NOT NULL
	`)
	if err := s.db.SelectContext(ctx, &rows, query, agentID); err != nil {
		return nil, fmt.Errorf("failed to fetch workflows: %w", err)
	}

	workflows := make([]models.EmailWorkflow, 0, len(rows))
	for _, row := range rows {
		wf := models.EmailWorkflow{
			ID:      row.ID,
			AgentID: row.AgentID,
			Name:    row.Name,
			Active:  row.Active,
		}
		if len(row.FilterJSON) > 0 {
			if err := json.Unmarshal(row.FilterJSON, &wf.Filter); err != nil {
				return nil, fmt.Errorf("failed to decode workflow filter for %s: %w", row.ID, err)
			}
		}
		if len(row.ActionsJSON) > 0 {
			if err := json.Unmarshal(row.ActionsJSON, &wf.Actions); err != nil {
				return nil, fmt.Errorf("failed to decode workflow actions for %s: %w", row.ID, err)
			}
		}
		workflows = append(workflows, wf)
	}
	return workflows, nil
}

// InsertWorkflowLog records one workflow execution outcome.
func (s *Store) InsertWorkflowLog(ctx context.Context, entry *models.WorkflowLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.CreatedAt = time.Now().UTC()

	query := s.db.Rebind(`
		INSERT INTO workflow_logs
			(id, workflow_id, status, email_subject, email_from, action_taken, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := s.db.ExecContext(ctx, query,
		entry.ID, entry.WorkflowID, entry.Status, entry.EmailSubject,
		entry.EmailFrom, entry.ActionTaken, entry.ErrorMessage, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert workflow log: %w", err)
	}
	return nil
}
