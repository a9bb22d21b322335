package postmark

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// OutboundEmail is the Postmark send API request body.
type OutboundEmail struct {
	From        string            `json:"From"`
	To          string            `json:"To"`
	Subject     string            `json:"Subject"`
	TextBody    string            `json:"TextBody"`
	HTMLBody    string            `json:"HtmlBody,omitempty"`
	ReplyTo     string            `json:"ReplyTo,omitempty"`
	Tag         string            `json:"Tag,omitempty"`
	Metadata    map[string]string `json:"Metadata,omitempty"`
	Attachments []Attachment      `json:"Attachments,omitempty"`
}

// SendResult is the Postmark send API response.
type SendResult struct {
	MessageID   string `json:"MessageID"`
	ErrorCode   int    `json:"ErrorCode"`
	Message     string `json:"Message"`
	SubmittedAt string `json:"SubmittedAt"`
}

// Client talks to the Postmark send API.
type Client struct {
	baseURL     string
	serverToken string
	httpClient  *http.Client
}

// NewClient builds a send client. baseURL is overridable for tests and
// defaults to the public API when empty.
func NewClient(baseURL, serverToken string) *Client {
	if baseURL == "" {
		baseURL = "https://api.postmarkapp.com"
	}
	return &Client{
		baseURL:     baseURL,
		serverToken: serverToken,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Send submits one outbound email. A non-2xx status or a non-zero Postmark
// ErrorCode is returned as an error with the raw response text attached, so
// delivery logs capture what the provider actually said.
func (c *Client) Send(ctx context.Context, email OutboundEmail) (*SendResult, error) {
	payload, err := json.Marshal(email)
	if err != nil {
		return nil, fmt.Errorf("failed to encode outbound email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/email", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build send request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.serverToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call Postmark: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read Postmark response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("Postmark API error: status %d, body: %s", resp.StatusCode, body)
	}

	var result SendResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode Postmark response: %w", err)
	}
	if result.ErrorCode != 0 {
		return nil, fmt.Errorf("Postmark rejected message: code %d, %s", result.ErrorCode, result.Message)
	}

	return &result, nil
}
