package outbox

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	otelx "github.com/md-rashed-zaman/salonbook/libs/otel"
)

// Repository reads and writes outbox_events. Every method runs on the
// caller's transaction.
type Repository struct{}

func NewRepository() *Repository {
	return &Repository{}
}

// Append stores evt along with the trace context of ctx so the publisher
// can continue the trace when the event reaches Kafka.
func (r *Repository) Append(ctx context.Context, tx pgx.Tx, evt Event) error {
	parent, state := otelx.TraceContextStrings(ctx)
	_, err := tx.Exec(ctx, `
		INSERT INTO outbox_events (aggregate_type, aggregate_id, event_type, payload, traceparent, tracestate)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, evt.AggregateType, evt.AggregateID, evt.EventType, evt.Payload, parent, state)
	return err
}

func (r *Repository) RecordChange(ctx context.Context, tx pgx.Tx, table string, op Op, id string) error {
	evt, err := NewChangeEvent(table, op, id)
	if err != nil {
		return err
	}
	return r.Append(ctx, tx, evt)
}

// Record is a stored event waiting to be sent.
type Record struct {
	Seq         int64
	EventID     string
	Event       Event
	Traceparent string
	Tracestate  string
	StoredAt    time.Time
}

// Claim locks up to limit unsent events in insertion order. Rows held by
// another publisher are skipped.
func (r *Repository) Claim(ctx context.Context, tx pgx.Tx, limit int) ([]Record, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, event_id::text, aggregate_type, aggregate_id, event_type, payload, traceparent, tracestate, created_at
		FROM outbox_events
		WHERE published_at IS NULL
		ORDER BY id
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		e := &rec.Event
		if err := rows.Scan(&rec.Seq, &rec.EventID, &e.AggregateType, &e.AggregateID, &e.EventType, &e.Payload,
			&rec.Traceparent, &rec.Tracestate, &rec.StoredAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *Repository) MarkSent(ctx context.Context, tx pgx.Tx, seqs []int64) error {
	if len(seqs) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `UPDATE outbox_events SET published_at = now() WHERE id = ANY($1)`, seqs)
	return err
}

// PurgeSent drops sent events older than before and reports how many went.
func (r *Repository) PurgeSent(ctx context.Context, tx pgx.Tx, before time.Time) (int64, error) {
	tag, err := tx.Exec(ctx, `DELETE FROM outbox_events WHERE published_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
