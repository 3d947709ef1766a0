// Package audit implements the tamper-evident, hash-chained audit log:
// the event model, the pluggable Storage capability, three concrete
// backends (memory, file, database), the chaining Logger, and a
// retention manager. Grounded on the original_source
// llm-orchestrator-audit crate (models.rs, storage.rs, file.rs,
// database.rs, logger.rs, retention.rs) since none of the example Go
// repos carry an audit subsystem of their own.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType enumerates the kinds of actions the audit log records,
// grounded on models.rs's AuditEventType.
type EventType string

const (
	EventAuthAttempt        EventType = "auth_attempt"
	EventAuthorization      EventType = "authorization"
	EventWorkflowExecution  EventType = "workflow_execution"
	EventWorkflowCreate     EventType = "workflow_create"
	EventWorkflowUpdate     EventType = "workflow_update"
	EventWorkflowDelete     EventType = "workflow_delete"
	EventSecretAccess       EventType = "secret_access"
	EventConfigChange       EventType = "config_change"
	EventAPIKeyCreate       EventType = "api_key_create"
	EventAPIKeyRevoke       EventType = "api_key_revoke"
	EventStepExecution      EventType = "step_execution"
	EventRetentionCleanup   EventType = "retention_cleanup"
)

// ResourceType enumerates the kind of resource an event is about,
// grounded on models.rs's ResourceType.
type ResourceType string

const (
	ResourceWorkflow  ResourceType = "workflow"
	ResourceExecution ResourceType = "execution"
	ResourceStep      ResourceType = "step"
	ResourceUser      ResourceType = "user"
	ResourceAPIKey    ResourceType = "api_key"
	ResourceRole      ResourceType = "role"
	ResourceSecret    ResourceType = "secret"
)

// Result captures the outcome of the audited action: Success,
// PartialSuccess, or Failure with a message, grounded on models.rs's
// AuditResult.
type Result struct {
	Tag     string `json:"tag"`
	Message string `json:"message,omitempty"`
}

const (
	resultSuccess        = "success"
	resultPartialSuccess = "partial_success"
	resultFailure        = "failure"
)

// ResultSuccess constructs a successful Result.
func ResultSuccess() Result { return Result{Tag: resultSuccess} }

// ResultPartialSuccess constructs a partial-success Result.
func ResultPartialSuccess() Result { return Result{Tag: resultPartialSuccess} }

// ResultFailure constructs a failure Result carrying a message.
func ResultFailure(message string) Result { return Result{Tag: resultFailure, Message: message} }

// IsSuccess reports whether the result tag is Success.
func (r Result) IsSuccess() bool { return r.Tag == resultSuccess }

// ErrorMessage returns the failure message, if any.
func (r Result) ErrorMessage() (string, bool) {
	if r.Tag == resultFailure {
		return r.Message, true
	}
	return "", false
}

// Event is one entry in the hash-chained audit log, field-for-field
// per spec.md §3.
type Event struct {
	ID            string         `json:"id"`
	Timestamp     time.Time      `json:"timestamp"`
	EventType     EventType      `json:"event_type"`
	UserID        string         `json:"user_id,omitempty"`
	Action        string         `json:"action"`
	ResourceType  ResourceType   `json:"resource_type"`
	ResourceID    string         `json:"resource_id"`
	Result        Result         `json:"result"`
	Details       map[string]any `json:"details,omitempty"`
	IP            string         `json:"ip,omitempty"`
	UserAgent     string         `json:"user_agent,omitempty"`
	RequestID     string         `json:"request_id,omitempty"`
	PreviousHash  string         `json:"previous_hash,omitempty"`
	EventHash     string         `json:"event_hash,omitempty"`
}

// New constructs an Event with a fresh id and current timestamp,
// leaving the hash fields for the Logger to populate.
func New(eventType EventType, action string, resourceType ResourceType, resourceID string, result Result) Event {
	return Event{
		ID:           uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		EventType:    eventType,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Result:       result,
	}
}

// resultTag renders the Result the same way on every call so
// ComputeHash is deterministic regardless of the Message field (the
// message is not part of the canonical hash input, matching
// models.rs's compute_hash which hashes only the result's discriminant
// tag, not its payload).
func (r Result) tag() string { return r.Tag }

// ComputeHash computes the canonical SHA-256 digest of this event per
// spec.md §3: SHA-256(id | ts_rfc3339 | kind | action | resource_kind |
// resource_id | result_tag | previous_hash_or_empty).
func (e Event) ComputeHash() string {
	canonical := fmt.Sprintf("%s|%s|%s|%s|%s|%s|%s|%s",
		e.ID,
		e.Timestamp.Format(time.RFC3339Nano),
		e.EventType,
		e.Action,
		e.ResourceType,
		e.ResourceID,
		e.Result.tag(),
		e.PreviousHash,
	)
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// Filter restricts a Storage query, grounded on models.rs's
// AuditFilter (builder pattern there, a plain struct here).
type Filter struct {
	UserID       string
	EventType    EventType
	ResourceType ResourceType
	ResourceID   string
	Since        *time.Time
	Until        *time.Time
	Limit        int
	Offset       int
}

// DefaultLimit matches AuditFilter's default limit of 100.
const DefaultLimit = 100

// NewFilter returns a Filter with the default limit applied.
func NewFilter() Filter {
	return Filter{Limit: DefaultLimit}
}

// Matches reports whether an event satisfies every set field of the
// filter, used by the in-memory and file backends.
func (f Filter) Matches(e Event) bool {
	if f.UserID != "" && e.UserID != f.UserID {
		return false
	}
	if f.EventType != "" && e.EventType != f.EventType {
		return false
	}
	if f.ResourceType != "" && e.ResourceType != f.ResourceType {
		return false
	}
	if f.ResourceID != "" && e.ResourceID != f.ResourceID {
		return false
	}
	if f.Since != nil && e.Timestamp.Before(*f.Since) {
		return false
	}
	if f.Until != nil && e.Timestamp.After(*f.Until) {
		return false
	}
	return true
}
