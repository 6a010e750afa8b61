package scrape

import (
	"context"
	"time"
)

// Navigator drives the remote session to the page denoted by a work item.
// Implementations hold one long-lived session that is navigated sequentially;
// Reset tears the session down and reloads the entry page so a retry starts
// from a known state.
type Navigator[W any] interface {
	Navigate(ctx context.Context, item W) (PageSnapshot, error)
	Reset(ctx context.Context) error
}

// Parser turns a page snapshot into zero or more typed records. Zero records
// is a valid outcome (some coordinates legitimately have no table); an error
// means the page structure was malformed.
type Parser[W, R any] func(snap PageSnapshot, item W) ([]R, error)

// RecordStore persists one work item's records in a single atomic batch.
// An empty batch is a no-op. Upserts are idempotent on the record's natural
// key and never regress a populated column to null.
type RecordStore[R any] interface {
	UpsertBatch(ctx context.Context, records []R) error
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// Publisher pushes job lifecycle events to an external topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Archiver optionally stores raw page snapshots for post-mortem debugging.
// Archive failures must never fail the work item.
type Archiver interface {
	Archive(ctx context.Context, path string, html string) (string, error)
}
