// Package postmark covers both directions of the Postmark integration: the
// inbound webhook payload schema and the outbound send API client.
package postmark

import (
	"fmt"
	"strings"
	"time"
)

// Header is one inbound message header.
type Header struct {
	Name  string `json:"Name"`
	Value string `json:"Value"`
}

// Attachment is inbound attachment metadata. Content is base64 and only
// present on inbound payloads that include it.
type Attachment struct {
	Name          string `json:"Name"`
	Content       string `json:"Content,omitempty"`
	ContentType   string `json:"ContentType"`
	ContentLength int64  `json:"ContentLength"`
}

// InboundEmail is the Postmark inbound webhook payload.
type InboundEmail struct {
	From        string       `json:"From"`
	FromName    string       `json:"FromName"`
	To          string       `json:"To"`
	Subject     string       `json:"Subject"`
	TextBody    string       `json:"TextBody"`
	HTMLBody    string       `json:"HtmlBody"`
	MessageID   string       `json:"MessageID"`
	Date        string       `json:"Date"`
	Attachments []Attachment `json:"Attachments"`
	Headers     []Header     `json:"Headers"`
}

// Validate checks the structurally required fields of an inbound payload.
func (e *InboundEmail) Validate() error {
	var missing []string
	if e.From == "" {
		missing = append(missing, "From")
	}
	if e.To == "" {
		missing = append(missing, "To")
	}
	if e.Subject == "" {
		missing = append(missing, "Subject")
	}
	if e.Date == "" {
		missing = append(missing, "Date")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %v", missing)
	}
	return nil
}

// ReceivedAt parses the provider date, falling back to now when the format
// is unrecognized so ingestion never fails on a sloppy Date header.
func (e *InboundEmail) ReceivedAt() time.Time {
	for _, layout := range []string{time.RFC1123Z, time.RFC1123, time.RFC3339, "Mon, 2 Jan 2006 15:04:05 -0700"} {
		if t, err := time.Parse(layout, e.Date); err == nil {
			return t.UTC()
		}
	}
	return time.Now().UTC()
}

// HeaderValue returns the named header case-insensitively, or "".
func (e *InboundEmail) HeaderValue(name string) string {
	for _, h := range e.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}
