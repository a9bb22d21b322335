package models

import "time"

// HealthResponse represents a basic health check response
type HealthResponse struct {
	Status    string    `json:"status" example:"healthy"`
	Timestamp time.Time `json:"timestamp" example:"2023-01-01T00:00:00Z"`
	Version   string    `json:"version" example:"1.0.0"`
}

// DBHealthResponse represents a database health check response
type DBHealthResponse struct {
	Status    string        `json:"status" example:"healthy"`
	Timestamp time.Time     `json:"timestamp" example:"2023-01-01T00:00:00Z"`
	Connected bool          `json:"connected" example:"true"`
	Latency   time.Duration `json:"latency" example:"1ms"`
	Error     string        `json:"error,omitempty" example:""`
}

// WebhookResponse is returned to the inbound email provider. The provider
// only ever sees ingestion success or failure, never AI/send sub-steps.
type WebhookResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	ThreadID string `json:"thread_id,omitempty"`
	Error    string `json:"error,omitempty"`
}

// SendResponse is returned by the outbound send endpoint.
type SendResponse struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId,omitempty"` // provider message ID on success
	Error     string `json:"error,omitempty"`
}

// ThreadListResponse is a paginated thread listing.
type ThreadListResponse struct {
	Threads []EmailThread `json:"threads"`
	Total   int           `json:"total"`
	Limit   int           `json:"limit"`
	Offset  int           `json:"offset"`
}

// ThreadMessagesResponse lists the messages of one thread.
type ThreadMessagesResponse struct {
	ThreadID string         `json:"thread_id"`
	Messages []EmailMessage `json:"messages"`
}
