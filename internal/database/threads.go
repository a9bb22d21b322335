package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"leasedesk/internal/models"
)

// ErrMessageNotFound marks a send request for a message row that does not
// exist.
var ErrMessageNotFound = errors.New("email message not found")

// CreateThread inserts a new conversation thread and fills in its generated
// ID and creation time.
func (s *Store) CreateThread(ctx context.Context, thread *models.EmailThread) error {
	thread.ID = uuid.NewString()
	thread.CreatedAt = time.Now().UTC()

	query := s.db.Rebind(`
		INSERT INTO email_threads
			(id, subject, last_message_at, status, priority, needs_follow_up,
			 lead_email, lead_name, lead_phone, team_id, user_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := s.db.ExecContext(ctx, query,
		thread.ID, thread.Subject, thread.LastMessageAt, thread.Status,
		thread.Priority, thread.NeedsFollowUp, thread.LeadEmail, thread.LeadName,
		thread.LeadPhone, thread.TeamID, thread.UserID, thread.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create email thread: %w", err)
	}
	return nil
}

// InsertMessage inserts a message row and fills in its generated ID.
func (s *Store) InsertMessage(ctx context.Context, msg *models.EmailMessage) error {
	msg.ID = uuid.NewString()
	msg.CreatedAt = time.Now().UTC()

	query := s.db.Rebind(`
		INSERT INTO email_messages
			(id, thread_id, message_id, from_address, from_name, to_address,
			 subject, body, body_html, status, is_read, has_attachments,
			 is_contact_form, lead_email, lead_name, lead_phone,
			 ai_generated, ai_confidence, received_at, sent_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := s.db.ExecContext(ctx, query,
		msg.ID, msg.ThreadID, msg.MessageID, msg.FromAddress, msg.FromName,
		msg.ToAddress, msg.Subject, msg.Body, msg.BodyHTML, msg.Status,
		msg.IsRead, msg.HasAttachments, msg.IsContactForm, msg.LeadEmail,
		msg.LeadName, msg.LeadPhone, msg.AIGenerated, msg.AIConfidence,
		msg.ReceivedAt, msg.SentAt, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert email message: %w", err)
	}
	return nil
}

// InsertAttachments stores attachment metadata rows for a provider message.
// Raw bytes live in object storage; only the path is recorded here.
func (s *Store) InsertAttachments(ctx context.Context, attachments []models.EmailAttachment) error {
	query := s.db.Rebind(`
		INSERT INTO email_attachments
			(id, message_id, file_name, file_type, file_size, storage_path)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	for i := range attachments {
		a := &attachments[i]
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		_, err := s.db.ExecContext(ctx, query,
			a.ID, a.MessageID, a.FileName, a.FileType, a.FileSize, a.StoragePath)
		if err != nil {
			return fmt.Errorf("failed to insert attachment %s: %w", a.FileName, err)
		}
	}
	return nil
}

// InsertRawMessage stores the untouched provider payload for audit/replay.
func (s *Store) InsertRawMessage(ctx context.Context, raw *models.EmailRawMessage) error {
	raw.CreatedAt = time.Now().UTC()
	query := s.db.Rebind(`
		INSERT INTO email_raw_messages (message_id, raw_content, created_at)
		VALUES (?, ?, ?)
	`)
	if _, err := s.db.ExecContext(ctx, query, raw.MessageID, raw.RawContent, raw.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert raw message: %w", err)
	}
	return nil
}

// MarkMessagePartial flags a message whose follow-up inserts (attachments,
// raw payload) failed, so the row is not left in an ambiguous state.
func (s *Store) MarkMessagePartial(ctx context.Context, messageID string) error {
	query := s.db.Rebind(`UPDATE email_messages SET status = ? WHERE id = ?`)
	if _, err := s.db.ExecContext(ctx, query, models.StatusPartial, messageID); err != nil {
		return fmt.Errorf("failed to mark message partial: %w", err)
	}
	return nil
}

// GetMessage loads a message row by internal ID.
func (s *Store) GetMessage(ctx context.Context, id string) (*models.EmailMessage, error) {
	var msg models.EmailMessage
	query := s.db.Rebind(`
		SELECT id, thread_id, message_id, from_address, from_name, to_address,
		       subject, body, body_html, status, is_read, has_attachments,
		       is_contact_form, lead_email, lead_name, lead_phone,
		       ai_generated, ai_confidence, received_at, sent_at, created_at
		FROM email_messages
		WHERE id = ?
	`)
	err := s.db.GetContext(ctx, &msg, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrMessageNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load message: %w", err)
	}
	return &msg, nil
}

// GetThread loads a thread row by ID.
func (s *Store) GetThread(ctx context.Context, id string) (*models.EmailThread, error) {
	var thread models.EmailThread
	query := s.db.Rebind(`
		SELECT id, subject, last_message_at, status, priority, needs_follow_up,
		       lead_email, lead_name, lead_phone, team_id, user_id, created_at
		FROM email_threads
		WHERE id = ?
	`)
	if err := s.db.GetContext(ctx, &thread, query, id); err != nil {
		return nil, fmt.Errorf("failed to load thread: %w", err)
	}
	return &thread, nil
}

// PrimaryAddress returns the owner's primary sending address, if any.
func (s *Store) PrimaryAddress(ctx context.Context, teamID, userID *string) (string, error) {
	var (
		address string
		query   string
		owner   string
	)

	switch {
	case teamID != nil:
		query = `SELECT email_address FROM email_addresses WHERE is_primary = true AND team_id = ?`
		owner = *teamID
	case userID != nil:
		query = `SELECT email_address FROM email_addresses WHERE is_primary = true AND user_id = ?`
		owner = *userID
	default:
		return "", nil
	}

	err := s.db.GetContext(ctx, &address, s.db.Rebind(query), owner)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to fetch primary address: %w", err)
	}
	return address, nil
}

// ListThreads returns the owner's threads ordered by recency.
func (s *Store) ListThreads(ctx context.Context, teamID, userID *string, limit, offset int) ([]models.EmailThread, error) {
	var (
		threads []models.EmailThread
		query   string
		owner   string
	)

	switch {
	case teamID != nil:
		query = `
			SELECT id, subject, last_message_at, status, priority, needs_follow_up,
			       lead_email, lead_name, lead_phone, team_id, user_id, created_at
			FROM email_threads
			WHERE team_id = ?
			ORDER BY last_message_at DESC
			LIMIT ? OFFSET ?
		`
		owner = *teamID
	case userID != nil:
		query = `
			SELECT id, subject, last_message_at, status, priority, needs_follow_up,
			       lead_email, lead_name, lead_phone, team_id, user_id, created_at
			FROM email_threads
			WHERE user_id = ?
			ORDER BY last_message_at DESC
			LIMIT ? OFFSET ?
		`
		owner = *userID
	default:
		return nil, fmt.Errorf("no owner scope for thread listing")
	}

	if err := s.db.SelectContext(ctx, &threads, s.db.Rebind(query), owner, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}
	if threads == nil {
		threads = []models.EmailThread{}
	}
	return threads, nil
}

// CountThreads returns the owner's total thread count.
func (s *Store) CountThreads(ctx context.Context, teamID, userID *string) (int, error) {
	var (
		count int
		query string
		owner string
	)

	switch {
	case teamID != nil:
		query = `SELECT COUNT(*) FROM email_threads WHERE team_id = ?`
		owner = *teamID
	case userID != nil:
		query = `SELECT COUNT(*) FROM email_threads WHERE user_id = ?`
		owner = *userID
	default:
		return 0, fmt.Errorf("no owner scope for thread count")
	}

	if err := s.db.GetContext(ctx, &count, s.db.Rebind(query), owner); err != nil {
		return 0, fmt.Errorf("failed to count threads: %w", err)
	}
	return count, nil
}

// ListMessages returns a thread's messages oldest first.
func (s *Store) ListMessages(ctx context.Context, threadID string) ([]models.EmailMessage, error) {
	var messages []models.EmailMessage
	query := s.db.Rebind(`
		SELECT id, thread_id, message_id, from_address, from_name, to_address,
		       subject, body, body_html, status, is_read, has_attachments,
		       is_contact_form, lead_email, lead_name, lead_phone,
		       ai_generated, ai_confidence, received_at, sent_at, created_at
		FROM email_messages
		WHERE thread_id = ?
		ORDER BY created_at ASC
	`)
	if err := s.db.SelectContext(ctx, &messages, query, threadID); err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	if messages == nil {
		messages = []models.EmailMessage{}
	}
	return messages, nil
}
