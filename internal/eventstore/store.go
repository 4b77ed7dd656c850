package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/database"
	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/types"
)

// Store is the append-only event log contract. Implementations must
// guarantee that appended events are durable before returning and that
// Query results are ordered by (timestamp, insertion sequence) ascending.
type Store interface {
	// Append persists an event and returns its assigned ID.
	Append(ctx context.Context, input AppendInput) (types.ID, error)

	// Query retrieves events matching the filter.
	Query(ctx context.Context, filter *Filter) ([]*Event, error)

	// Stream returns a channel of events for one aggregate starting from a
	// timestamp, for projection rebuild and replay. The channel is closed
	// when all events are sent or the context is cancelled.
	Stream(ctx context.Context, aggregateID string, from time.Time) (<-chan *Event, error)
}

// DBStore implements Store on the shared SQLite database.
type DBStore struct {
	db *database.DB
}

// NewDBStore creates a database-backed event store.
func NewDBStore(db *database.DB) *DBStore {
	return &DBStore{db: db}
}

// Append persists an event to the log.
func (s *DBStore) Append(ctx context.Context, input AppendInput) (types.ID, error) {
	if input.TenantID == "" || input.AppID == "" {
		return "", types.NewError(types.VALIDATION_FAILED, "event requires tenant and app identifiers")
	}
	if input.Type == "" {
		return "", types.NewError(types.VALIDATION_FAILED, "event type cannot be empty")
	}

	eventID := types.NewID()

	var payloadJSON string
	if input.Payload != nil {
		data, err := json.Marshal(input.Payload)
		if err != nil {
			return "", types.WrapError(types.PERSISTENCE_FAILED, "failed to marshal event payload", err)
		}
		payloadJSON = string(data)
	}

	timestamp := input.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	query := `
		INSERT INTO event_store (
			event_id, tenant_id, app_id, event_type, event_data,
			aggregate_type, aggregate_id, causation_id, correlation_id, event_timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		eventID.String(),
		input.TenantID,
		input.AppID,
		input.Type,
		payloadJSON,
		input.AggregateType,
		input.AggregateID,
		input.CausationID,
		input.CorrelationID,
		timestamp,
	)
	if err != nil {
		return "", types.WrapError(types.PERSISTENCE_FAILED, "failed to append event", err)
	}

	return eventID, nil
}

// Query retrieves events matching the filter.
func (s *DBStore) Query(ctx context.Context, filter *Filter) ([]*Event, error) {
	if filter == nil {
		filter = NewFilter()
	}
	if filter.Limit == 0 {
		filter.Limit = 100
	}

	var conditions []string
	var args []interface{}

	if filter.TenantID != "" {
		conditions = append(conditions, "tenant_id = ?")
		args = append(args, filter.TenantID)
	}
	if filter.AppID != "" {
		conditions = append(conditions, "app_id = ?")
		args = append(args, filter.AppID)
	}
	if filter.AggregateID != "" {
		conditions = append(conditions, "aggregate_id = ?")
		args = append(args, filter.AggregateID)
	}
	if len(filter.EventTypes) > 0 {
		placeholders := make([]string, len(filter.EventTypes))
		for i, eventType := range filter.EventTypes {
			placeholders[i] = "?"
			args = append(args, eventType)
		}
		conditions = append(conditions, fmt.Sprintf("event_type IN (%s)", strings.Join(placeholders, ", ")))
	}
	if filter.After != nil {
		conditions = append(conditions, "event_timestamp >= ?")
		args = append(args, *filter.After)
	}
	if filter.Before != nil {
		conditions = append(conditions, "event_timestamp <= ?")
		args = append(args, *filter.Before)
	}

	query := `
		SELECT
			seq, event_id, tenant_id, app_id, event_type, event_data,
			aggregate_type, aggregate_id, causation_id, correlation_id, event_timestamp
		FROM event_store
	`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY event_timestamp ASC, seq ASC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, types.WrapError(types.PERSISTENCE_FAILED, "failed to query events", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// Stream returns a channel of events for one aggregate, batching through
// the log from the given timestamp.
func (s *DBStore) Stream(ctx context.Context, aggregateID string, from time.Time) (<-chan *Event, error) {
	eventCh := make(chan *Event, 100)

	go func() {
		defer close(eventCh)

		const batchSize = 100
		offset := 0

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			filter := NewFilter().
				WithAggregateID(aggregateID).
				WithTimeRange(from, time.Now().UTC()).
				WithPagination(batchSize, offset)

			events, err := s.Query(ctx, filter)
			if err != nil {
				return
			}

			for _, event := range events {
				select {
				case eventCh <- event:
				case <-ctx.Done():
					return
				}
			}

			if len(events) < batchSize {
				return
			}
			offset += batchSize
		}
	}()

	return eventCh, nil
}

func scanEvents(rows *sql.Rows) ([]*Event, error) {
	events := make([]*Event, 0)

	for rows.Next() {
		var (
			seq           int64
			idStr         string
			tenantID      string
			appID         string
			eventType     string
			payloadStr    sql.NullString
			aggregateType sql.NullString
			aggregateID   sql.NullString
			causationID   sql.NullString
			correlationID sql.NullString
			timestamp     time.Time
		)

		err := rows.Scan(
			&seq, &idStr, &tenantID, &appID, &eventType, &payloadStr,
			&aggregateType, &aggregateID, &causationID, &correlationID, &timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}

		eventID, err := types.ParseID(idStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse event ID: %w", err)
		}

		event := &Event{
			ID:            eventID,
			TenantID:      tenantID,
			AppID:         appID,
			Type:          eventType,
			AggregateType: aggregateType.String,
			AggregateID:   aggregateID.String,
			CausationID:   causationID.String,
			CorrelationID: correlationID.String,
			Timestamp:     timestamp,
			Seq:           seq,
		}

		if payloadStr.Valid && payloadStr.String != "" {
			var payload map[string]any
			if err := json.Unmarshal([]byte(payloadStr.String), &payload); err != nil {
				return nil, fmt.Errorf("failed to unmarshal event payload: %w", err)
			}
			event.Payload = payload
		}

		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return events, nil
}

// Ensure DBStore implements Store at compile time.
var _ Store = (*DBStore)(nil)
