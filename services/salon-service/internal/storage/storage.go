package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/md-rashed-zaman/salonbook/libs/db"
	"github.com/md-rashed-zaman/salonbook/services/salon-service/internal/outbox"
)

var (
	ErrNotFound       = errors.New("not found")
	// ErrStatusConflict means the row exists but its status no longer allows the change.
	ErrStatusConflict = errors.New("status changed concurrently")
)

// Outbox records events in the transaction of the write that caused them.
// *outbox.Repository satisfies it.
type Outbox interface {
	Append(ctx context.Context, tx pgx.Tx, evt outbox.Event) error
	RecordChange(ctx context.Context, tx pgx.Tx, table string, op outbox.Op, id string) error
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || errors.Is(err, ErrNotFound)
}

func IsUniqueViolation(err error) bool {
	return pgCode(err) == "23505"
}

func IsForeignKeyViolation(err error) bool {
	return pgCode(err) == "23503"
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// writeRow runs one statement and its change event in a transaction.
// A statement that touches no rows yields ErrNotFound.
func writeRow(ctx context.Context, conn db.DBTX, box Outbox, table string, op outbox.Op, id string, events []outbox.Event, sql string, args ...any) error {
	return db.WithTx(ctx, conn, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, sql, args...)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return recordAll(ctx, tx, box, table, op, id, events)
	})
}

func recordAll(ctx context.Context, tx pgx.Tx, box Outbox, table string, op outbox.Op, id string, events []outbox.Event) error {
	if err := box.RecordChange(ctx, tx, table, op, id); err != nil {
		return err
	}
	for _, evt := range events {
		if err := box.Append(ctx, tx, evt); err != nil {
			return err
		}
	}
	return nil
}
