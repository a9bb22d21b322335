package models

import "time"

// EmailWorkflowFilter selects which polled emails a workflow applies to.
// An email matches when any subject or body fragment is contained
// case-insensitively.
type EmailWorkflowFilter struct {
	SubjectContains []string `json:"subject_contains,omitempty"`
	BodyContains    []string `json:"body_contains,omitempty"`
}

// EmailWorkflowActions carries the reply instructions for a workflow.
type EmailWorkflowActions struct {
	SendApplicationLink bool   `json:"send_application_link"`
	CustomMessage       string `json:"custom_message,omitempty"`
}

// EmailWorkflow is an agent-configured automation applied by the Gmail
// polling path. The webhook path always runs the default workflow.
type EmailWorkflow struct {
	ID      string               `db:"id" json:"id"`
	AgentID string               `db:"agent_id" json:"agent_id"`
	Name    string               `db:"name" json:"name"`
	Active  bool                 `db:"active" json:"active"`
	Filter  EmailWorkflowFilter  `json:"email_filter"`
	Actions EmailWorkflowActions `json:"actions"`
}

// WorkflowLog records one workflow execution against one polled email.
type WorkflowLog struct {
	ID           string    `db:"id" json:"id"`
	WorkflowID   string    `db:"workflow_id" json:"workflow_id"`
	Status       string    `db:"status" json:"status"`
	EmailSubject string    `db:"email_subject" json:"email_subject"`
	EmailFrom    string    `db:"email_from" json:"email_from"`
	ActionTaken  *string   `db:"action_taken" json:"action_taken,omitempty"`
	ErrorMessage *string   `db:"error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
