// Package ai is the client for the external email-completion service. The
// service drafts tenant-facing replies from the inbound email plus the
// agent's listing context; this package only moves JSON, it holds no model
// logic.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"leasedesk/internal/models"
)

var (
	// ErrNotConfigured indicates the AI base URL is missing
	ErrNotConfigured = errors.New("AI client not configured")
	// ErrAPICallFailed indicates the completion API call failed
	ErrAPICallFailed = errors.New("AI API call failed")
	// ErrProcessingFailed indicates the service answered but reported failure
	ErrProcessingFailed = errors.New("AI processing failed")
)

// WorkflowActions carries the reply instructions forwarded to the service.
type WorkflowActions struct {
	AgentName     string `json:"agent_name"`
	AgentContact  string `json:"agent_contact"`
	CustomMessage string `json:"custom_message,omitempty"`
}

// ProcessEmailRequest is the request envelope of the process-email endpoint.
type ProcessEmailRequest struct {
	AgentID         string            `json:"agent_id"`
	WorkflowID      string            `json:"workflow_id"`
	EmailContent    string            `json:"email_content"`
	EmailSubject    string            `json:"email_subject"`
	EmailFrom       string            `json:"email_from"`
	EmailDate       string            `json:"email_date"`
	AgentProperties []models.Property `json:"agent_properties"`
	WorkflowActions WorkflowActions   `json:"workflow_actions"`
}

// Reply is the drafted response returned by the service.
type Reply struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Validation is the service's self-assessment of the draft.
type Validation struct {
	Confidence *float64 `json:"confidence,omitempty"`
	Notes      string   `json:"notes,omitempty"`
}

// ProcessEmailResponse is the response envelope of the process-email
// endpoint.
type ProcessEmailResponse struct {
	Success    bool        `json:"success"`
	Response   *Reply      `json:"response,omitempty"`
	Validation *Validation `json:"validation,omitempty"`
	Detail     string      `json:"detail,omitempty"`
}

// Client calls the completion service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a completion client with the given request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Configured reports whether a service base URL was provided.
func (c *Client) Configured() bool {
	return c.baseURL != ""
}

// ProcessEmail asks the service to draft a reply. A non-2xx status or an
// explicit success=false envelope is a hard failure; the caller decides
// whether that failure is fatal (it is not, for the webhook pipeline).
func (c *Client) ProcessEmail(ctx context.Context, req ProcessEmailRequest) (*ProcessEmailResponse, error) {
	if c.baseURL == "" {
		return nil, ErrNotConfigured
	}
	if req.WorkflowID == "" {
		req.WorkflowID = "default"
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode process-email request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/process-email", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build process-email request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAPICallFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrAPICallFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Surface the service's detail field when the error body is JSON.
		var envelope ProcessEmailResponse
		if json.Unmarshal(body, &envelope) == nil && envelope.Detail != "" {
			return nil, fmt.Errorf("%w: %s", ErrAPICallFailed, envelope.Detail)
		}
		return nil, fmt.Errorf("%w: status %d, body: %s", ErrAPICallFailed, resp.StatusCode, body)
	}

	var result ProcessEmailResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrAPICallFailed, err)
	}
	if !result.Success {
		return nil, fmt.Errorf("%w: %s", ErrProcessingFailed, string(body))
	}
	if result.Response == nil {
		return nil, fmt.Errorf("%w: success envelope without response", ErrProcessingFailed)
	}

	return &result, nil
}
