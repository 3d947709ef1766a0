package audit

import (
	"context"
	"fmt"
	"sync"
)

// Logger wraps a Storage and owns the previous-hash chain state,
// serializing writers so the chain stays intact, grounded on
// logger.rs's AuditLogger.
type Logger struct {
	storage Storage
	enabled bool

	mu           sync.Mutex
	previousHash string
}

// New returns an enabled Logger over storage.
func New(storage Storage) *Logger {
	return &Logger{storage: storage, enabled: true}
}

// Disabled returns a Logger that accepts every call as a no-op,
// matching logger.rs's NoOpStorage-backed disabled mode.
func Disabled() *Logger {
	return &Logger{enabled: false}
}

// LogEvent sets e's previous_hash from the chain state, computes and
// sets event_hash, delegates to storage, and advances the chain.
// Writers are serialized by mu so concurrent LogEvent calls cannot
// interleave the read-compute-store-advance sequence.
func (l *Logger) LogEvent(ctx context.Context, e Event) (Event, error) {
	if !l.enabled {
		return e, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	e.PreviousHash = l.previousHash
	e.EventHash = e.ComputeHash()

	if err := l.storage.Store(ctx, e); err != nil {
		return Event{}, fmt.Errorf("audit: storing event: %w", err)
	}
	l.previousHash = e.EventHash
	return e, nil
}

// Query, Get, Count, and HealthCheck pass straight through to storage;
// a disabled logger answers them as empty/no-op too.
func (l *Logger) Query(ctx context.Context, filter Filter) ([]Event, error) {
	if !l.enabled {
		return nil, nil
	}
	return l.storage.Query(ctx, filter)
}

func (l *Logger) Get(ctx context.Context, id string) (Event, error) {
	if !l.enabled {
		return Event{}, ErrEventNotFound
	}
	return l.storage.Get(ctx, id)
}

func (l *Logger) Count(ctx context.Context, filter Filter) (int64, error) {
	if !l.enabled {
		return 0, nil
	}
	return l.storage.Count(ctx, filter)
}

func (l *Logger) HealthCheck(ctx context.Context) error {
	if !l.enabled {
		return nil
	}
	return l.storage.HealthCheck(ctx)
}

// --- Typed convenience helpers, grounded on logger.rs's log_auth_attempt /
// log_authorization / log_workflow_execution / etc. (SPEC_FULL.md §4.8) ---

func (l *Logger) logSimple(ctx context.Context, eventType EventType, action string, resourceType ResourceType, resourceID string, result Result, userID string, details map[string]any) (Event, error) {
	e := New(eventType, action, resourceType, resourceID, result)
	e.UserID = userID
	e.Details = details
	return l.LogEvent(ctx, e)
}

// LogAuthAttempt records a login/authentication attempt.
func (l *Logger) LogAuthAttempt(ctx context.Context, userID string, success bool, reason string) (Event, error) {
	result := ResultSuccess()
	if !success {
		result = ResultFailure(reason)
	}
	return l.logSimple(ctx, EventAuthAttempt, "authenticate", ResourceUser, userID, result, userID, nil)
}

// LogAuthorization records a permission check outcome.
func (l *Logger) LogAuthorization(ctx context.Context, userID, permission string, granted bool) (Event, error) {
	result := ResultSuccess()
	if !granted {
		result = ResultFailure("permission denied: " + permission)
	}
	return l.logSimple(ctx, EventAuthorization, "check_permission:"+permission, ResourceUser, userID, result, userID, nil)
}

// LogWorkflowExecution records a workflow run's completion.
func (l *Logger) LogWorkflowExecution(ctx context.Context, userID, workflowID string, result Result) (Event, error) {
	return l.logSimple(ctx, EventWorkflowExecution, "execute", ResourceWorkflow, workflowID, result, userID, nil)
}

// LogWorkflowCreate records a workflow creation.
func (l *Logger) LogWorkflowCreate(ctx context.Context, userID, workflowID string) (Event, error) {
	return l.logSimple(ctx, EventWorkflowCreate, "create", ResourceWorkflow, workflowID, ResultSuccess(), userID, nil)
}

// LogWorkflowUpdate records a workflow update.
func (l *Logger) LogWorkflowUpdate(ctx context.Context, userID, workflowID string) (Event, error) {
	return l.logSimple(ctx, EventWorkflowUpdate, "update", ResourceWorkflow, workflowID, ResultSuccess(), userID, nil)
}

// LogWorkflowDelete records a workflow deletion.
func (l *Logger) LogWorkflowDelete(ctx context.Context, userID, workflowID string) (Event, error) {
	return l.logSimple(ctx, EventWorkflowDelete, "delete", ResourceWorkflow, workflowID, ResultSuccess(), userID, nil)
}

// LogSecretAccess records access to a secret-bearing resource.
func (l *Logger) LogSecretAccess(ctx context.Context, userID, secretID string, granted bool) (Event, error) {
	result := ResultSuccess()
	if !granted {
		result = ResultFailure("access denied")
	}
	return l.logSimple(ctx, EventSecretAccess, "access", ResourceSecret, secretID, result, userID, nil)
}

// LogConfigChange records a configuration mutation.
func (l *Logger) LogConfigChange(ctx context.Context, userID, configKey string, details map[string]any) (Event, error) {
	return l.logSimple(ctx, EventConfigChange, "change:"+configKey, ResourceUser, userID, ResultSuccess(), userID, details)
}

// LogAPIKeyCreate records API key issuance.
func (l *Logger) LogAPIKeyCreate(ctx context.Context, userID, keyID string) (Event, error) {
	return l.logSimple(ctx, EventAPIKeyCreate, "create", ResourceAPIKey, keyID, ResultSuccess(), userID, nil)
}

// LogAPIKeyRevoke records API key revocation.
func (l *Logger) LogAPIKeyRevoke(ctx context.Context, userID, keyID string) (Event, error) {
	return l.logSimple(ctx, EventAPIKeyRevoke, "revoke", ResourceAPIKey, keyID, ResultSuccess(), userID, nil)
}

// LogStepExecution records a single workflow step's terminal outcome.
func (l *Logger) LogStepExecution(ctx context.Context, userID, workflowID, stepID string, result Result) (Event, error) {
	return l.logSimple(ctx, EventStepExecution, "execute_step", ResourceStep, workflowID+"/"+stepID, result, userID, nil)
}
