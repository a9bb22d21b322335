package models

import "time"

// Message status values. Inbound messages start at received; AI drafts are
// queued until dispatch resolves them to sent or failed.
const (
	StatusReceived = "received"
	StatusQueued   = "queued"
	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusRetrying = "retrying"
	StatusPartial  = "partial"
)

// Thread priority values.
const (
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

// EmailAddress is an inbound routing alias. Exactly one of TeamID/UserID is
// set; the row is immutable once provisioned.
type EmailAddress struct {
	ID           string  `db:"id" json:"id"`
	EmailAddress string  `db:"email_address" json:"email_address"`
	TeamID       *string `db:"team_id" json:"team_id,omitempty"`
	UserID       *string `db:"user_id" json:"user_id,omitempty"`
	IsPrimary    bool    `db:"is_primary" json:"is_primary"`
}

// OwnerID returns whichever of team/user owns the address.
func (a *EmailAddress) OwnerID() string {
	if a.TeamID != nil {
		return *a.TeamID
	}
	if a.UserID != nil {
		return *a.UserID
	}
	return ""
}

// EmailThread is one conversation. Threads are created on first inbound
// message and updated, never deleted, as messages arrive.
type EmailThread struct {
	ID            string    `db:"id" json:"id"`
	Subject       string    `db:"subject" json:"subject"`
	LastMessageAt time.Time `db:"last_message_at" json:"last_message_at"`
	Status        string    `db:"status" json:"status"`
	Priority      string    `db:"priority" json:"priority"`
	NeedsFollowUp bool      `db:"needs_follow_up" json:"needs_follow_up"`
	LeadEmail     *string   `db:"lead_email" json:"lead_email,omitempty"`
	LeadName      *string   `db:"lead_name" json:"lead_name,omitempty"`
	LeadPhone     *string   `db:"lead_phone" json:"lead_phone,omitempty"`
	TeamID        *string   `db:"team_id" json:"team_id,omitempty"`
	UserID        *string   `db:"user_id" json:"user_id,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// EmailMessage is one inbound or outbound message. AI-drafted replies carry
// AIGenerated=true and stay queued until dispatch succeeds.
type EmailMessage struct {
	ID             string     `db:"id" json:"id"`
	ThreadID       string     `db:"thread_id" json:"thread_id"`
	MessageID      *string    `db:"message_id" json:"message_id,omitempty"` // provider message ID
	FromAddress    string     `db:"from_address" json:"from_address"`
	FromName       string     `db:"from_name" json:"from_name"`
	ToAddress      string     `db:"to_address" json:"to_address"`
	Subject        string     `db:"subject" json:"subject"`
	Body           string     `db:"body" json:"body"`
	BodyHTML       string     `db:"body_html" json:"body_html"`
	Status         string     `db:"status" json:"status"`
	IsRead         bool       `db:"is_read" json:"is_read"`
	HasAttachments bool       `db:"has_attachments" json:"has_attachments"`
	IsContactForm  bool       `db:"is_contact_form" json:"is_contact_form"`
	LeadEmail      *string    `db:"lead_email" json:"lead_email,omitempty"`
	LeadName       *string    `db:"lead_name" json:"lead_name,omitempty"`
	LeadPhone      *string    `db:"lead_phone" json:"lead_phone,omitempty"`
	AIGenerated    bool       `db:"ai_generated" json:"ai_generated"`
	AIConfidence   *float64   `db:"ai_confidence" json:"ai_confidence,omitempty"`
	ReceivedAt     *time.Time `db:"received_at" json:"received_at,omitempty"`
	SentAt         *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// EmailAttachment is attachment metadata; raw bytes live in object storage
// under StoragePath.
type EmailAttachment struct {
	ID          string `db:"id" json:"id"`
	MessageID   string `db:"message_id" json:"message_id"`
	FileName    string `db:"file_name" json:"file_name"`
	FileType    string `db:"file_type" json:"file_type"`
	FileSize    int64  `db:"file_size" json:"file_size"`
	StoragePath string `db:"storage_path" json:"storage_path"`
}

// EmailRawMessage is the untouched provider payload, kept for audit and
// replay, keyed by the provider message ID.
type EmailRawMessage struct {
	MessageID  string    `db:"message_id" json:"message_id"`
	RawContent string    `db:"raw_content" json:"raw_content"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// EmailDeliveryLog records the outcome of one send attempt. Entries are
// append-only; this is a log, not a queue.
type EmailDeliveryLog struct {
	ID        string    `db:"id" json:"id"`
	MessageID string    `db:"message_id" json:"message_id"`
	EventType string    `db:"event_type" json:"event_type"`
	Recipient string    `db:"recipient" json:"recipient"`
	Status    string    `db:"status" json:"status"`
	RawData   string    `db:"raw_data" json:"raw_data"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ProcessedEmail marks a provider message as handled by the polling path.
// The webhook path does not consult this table.
type ProcessedEmail struct {
	MessageID   string    `db:"message_id" json:"message_id"`
	ProcessedAt time.Time `db:"processed_at" json:"processed_at"`
}

// Property is the minimal listing context handed to the AI collaborator.
type Property struct {
	ID              string  `db:"id" json:"id"`
	WebReference    *string `db:"web_reference" json:"web_reference,omitempty"`
	Address         string  `db:"address" json:"address"`
	Status          string  `db:"status" json:"status"`
	ApplicationLink *string `db:"application_link" json:"application_link,omitempty"`
	AgentID         *string `db:"agent_id" json:"agent_id,omitempty"`
}

// AgentProfile is the human-readable identity attached to outgoing replies.
type AgentProfile struct {
	Name    string `json:"name"`
	Contact string `json:"contact"`
	Email   string `json:"email"`
}
