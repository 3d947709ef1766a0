package audit

import (
	"context"
	"errors"
	"time"
)

// ErrEventNotFound is returned by Storage.Get for an unknown id.
var ErrEventNotFound = errors.New("audit: event not found")

// Storage is the pluggable persistence capability every audit backend
// implements, grounded on storage.rs's AuditStorage trait.
type Storage interface {
	Store(ctx context.Context, event Event) error
	Query(ctx context.Context, filter Filter) ([]Event, error)
	Get(ctx context.Context, id string) (Event, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	Count(ctx context.Context, filter Filter) (int64, error)
	HealthCheck(ctx context.Context) error
}
