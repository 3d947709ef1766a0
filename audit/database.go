package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DatabaseStorage is a PostgreSQL-backed Storage, grounded on
// database.rs's DatabaseAuditStorage but built on jackc/pgx/v5 rather
// than sqlx — pgx is the Postgres driver the rest of the example pack
// (jordigilh-kubernaut, nevindra-oasis) standardizes on.
type DatabaseStorage struct {
	pool *pgxpool.Pool
}

// NewDatabaseStorage opens a connection pool, applying the same
// min/max connection and lifetime bounds as database.rs's
// PgPoolOptions.
func NewDatabaseStorage(ctx context.Context, databaseURL string) (*DatabaseStorage, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("audit: parsing database url: %w", err)
	}
	cfg.MinConns = 5
	cfg.MaxConns = 20
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("audit: connecting to database: %w", err)
	}
	return &DatabaseStorage{pool: pool}, nil
}

// WithPool wraps an already-constructed pool.
func WithPool(pool *pgxpool.Pool) *DatabaseStorage {
	return &DatabaseStorage{pool: pool}
}

// Migrate creates the audit_events table and its indexes if absent,
// with the exact column set spec.md §6 calls for.
func (d *DatabaseStorage) Migrate(ctx context.Context) error {
	_, err := d.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS audit_events (
			id UUID PRIMARY KEY,
			timestamp TIMESTAMPTZ NOT NULL,
			event_type VARCHAR(100) NOT NULL,
			user_id VARCHAR(255),
			action VARCHAR(255) NOT NULL,
			resource_type VARCHAR(50) NOT NULL,
			resource_id VARCHAR(255) NOT NULL,
			result VARCHAR(50) NOT NULL,
			result_error TEXT,
			details JSONB,
			ip_address INET,
			user_agent TEXT,
			request_id VARCHAR(255),
			previous_hash VARCHAR(64),
			event_hash VARCHAR(64)
		)`)
	if err != nil {
		return fmt.Errorf("audit: creating audit_events table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_audit_events_timestamp ON audit_events (timestamp DESC)",
		"CREATE INDEX IF NOT EXISTS idx_audit_events_user_id ON audit_events (user_id)",
		"CREATE INDEX IF NOT EXISTS idx_audit_events_event_type ON audit_events (event_type)",
		"CREATE INDEX IF NOT EXISTS idx_audit_events_resource ON audit_events (resource_type, resource_id)",
	}
	for _, stmt := range indexes {
		if _, err := d.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("audit: creating index: %w", err)
		}
	}
	return nil
}

func (d *DatabaseStorage) Store(ctx context.Context, event Event) error {
	resultErr, _ := event.Result.ErrorMessage()
	var detailsJSON []byte
	if event.Details != nil {
		var err error
		detailsJSON, err = json.Marshal(event.Details)
		if err != nil {
			return fmt.Errorf("audit: marshaling details: %w", err)
		}
	}

	_, err := d.pool.Exec(ctx, `
		INSERT INTO audit_events (
			id, timestamp, event_type, user_id, action,
			resource_type, resource_id, result, result_error, details,
			ip_address, user_agent, request_id, previous_hash, event_hash
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		event.ID, event.Timestamp, string(event.EventType), nullableString(event.UserID), event.Action,
		string(event.ResourceType), event.ResourceID, event.Result.Tag, nullableString(resultErr), detailsJSON,
		nullableString(event.IP), nullableString(event.UserAgent), nullableString(event.RequestID),
		nullableString(event.PreviousHash), nullableString(event.EventHash),
	)
	if err != nil {
		return fmt.Errorf("audit: inserting event: %w", err)
	}
	return nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func scanEvent(row pgx.Row) (Event, error) {
	var e Event
	var userID, resultError, ip, userAgent, requestID, previousHash, eventHash *string
	var eventType, resourceType, result string
	var detailsJSON []byte

	err := row.Scan(
		&e.ID, &e.Timestamp, &eventType, &userID, &e.Action,
		&resourceType, &e.ResourceID, &result, &resultError, &detailsJSON,
		&ip, &userAgent, &requestID, &previousHash, &eventHash,
	)
	if err != nil {
		return Event{}, err
	}

	e.EventType = EventType(eventType)
	e.ResourceType = ResourceType(resourceType)
	switch result {
	case resultFailure:
		msg := ""
		if resultError != nil {
			msg = *resultError
		}
		e.Result = ResultFailure(msg)
	case resultPartialSuccess:
		e.Result = ResultPartialSuccess()
	default:
		e.Result = ResultSuccess()
	}
	if userID != nil {
		e.UserID = *userID
	}
	if ip != nil {
		e.IP = *ip
	}
	if userAgent != nil {
		e.UserAgent = *userAgent
	}
	if requestID != nil {
		e.RequestID = *requestID
	}
	if previousHash != nil {
		e.PreviousHash = *previousHash
	}
	if eventHash != nil {
		e.EventHash = *eventHash
	}
	if len(detailsJSON) > 0 {
		_ = json.Unmarshal(detailsJSON, &e.Details)
	}
	return e, nil
}

const selectColumns = `id, timestamp, event_type, user_id, action, resource_type, resource_id, result, result_error, details, ip_address, user_agent, request_id, previous_hash, event_hash`

// buildFilterClause mirrors database.rs's incremental "WHERE 1=1 AND
// ..." query construction, parameterized to avoid injection.
func buildFilterClause(filter Filter, startParam int) (string, []any) {
	var clauses []string
	var args []any
	n := startParam

	add := func(clause string, arg any) {
		clauses = append(clauses, fmt.Sprintf(clause, n))
		args = append(args, arg)
		n++
	}

	if filter.UserID != "" {
		add("user_id = $%d", filter.UserID)
	}
	if filter.EventType != "" {
		add("event_type = $%d", string(filter.EventType))
	}
	if filter.ResourceType != "" {
		add("resource_type = $%d", string(filter.ResourceType))
	}
	if filter.ResourceID != "" {
		add("resource_id = $%d", filter.ResourceID)
	}
	if filter.Since != nil {
		add("timestamp >= $%d", *filter.Since)
	}
	if filter.Until != nil {
		add("timestamp <= $%d", *filter.Until)
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " AND " + strings.Join(clauses, " AND "), args
}

func (d *DatabaseStorage) Query(ctx context.Context, filter Filter) ([]Event, error) {
	clause, args := buildFilterClause(filter, 1)
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	query := fmt.Sprintf("SELECT %s FROM audit_events WHERE 1=1%s ORDER BY timestamp DESC LIMIT %d OFFSET %d",
		selectColumns, clause, limit, filter.Offset)

	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: querying events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("audit: scanning event row: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (d *DatabaseStorage) Get(ctx context.Context, id string) (Event, error) {
	query := fmt.Sprintf("SELECT %s FROM audit_events WHERE id = $1", selectColumns)
	row := d.pool.QueryRow(ctx, query, id)
	e, err := scanEvent(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return Event{}, ErrEventNotFound
		}
		return Event{}, fmt.Errorf("audit: fetching event: %w", err)
	}
	return e, nil
}

func (d *DatabaseStorage) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := d.pool.Exec(ctx, "DELETE FROM audit_events WHERE timestamp < $1", cutoff)
	if err != nil {
		return 0, fmt.Errorf("audit: deleting old events: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (d *DatabaseStorage) Count(ctx context.Context, filter Filter) (int64, error) {
	clause, args := buildFilterClause(filter, 1)
	query := "SELECT COUNT(*) FROM audit_events WHERE 1=1" + clause

	var count int64
	if err := d.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("audit: counting events: %w", err)
	}
	return count, nil
}

func (d *DatabaseStorage) HealthCheck(ctx context.Context) error {
	var one int
	if err := d.pool.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("audit: database health check: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (d *DatabaseStorage) Close() {
	d.pool.Close()
}
