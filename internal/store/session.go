package store

import (
	"context"
)

// Session is a transactional unit of work.
//
// Add stages a record: records without an id are inserted, records that
// already carry one are updated. Flush executes the staged writes inside the
// transaction and fills generated ids, without making anything durable.
// Commit finalizes the transaction; Rollback discards it and is safe to call
// after Commit.
type Session interface {
	Add(record any)
	Flush(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Factory opens sessions. Each story generation gets its own session.
type Factory interface {
	Begin(ctx context.Context) (Session, error)
}
