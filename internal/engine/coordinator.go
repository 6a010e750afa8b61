// Package engine implements the resumable crawl coordinator. One coordinator
// drives an ordered space of work items through a stateful remote session,
// a parser and a record store, with retries, pacing, cooperative cancellation
// and a persisted resume checkpoint. The engine is generic over the work item
// and record types so every job family shares a single implementation.
package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/afttdata/aftt-sync/internal/pace"
	"github.com/afttdata/aftt-sync/internal/retry"
	"github.com/afttdata/aftt-sync/internal/scrape"
)

// Item is one coordinate of a crawl space. Key must be stable and unique
// within the space; it identifies the item in logs and checkpoints.
type Item interface {
	Key() string
}

// KeyedItem is a pre-rendered item key. Callers that handle stats from
// different item types uniformly erase the concrete type to this.
type KeyedItem string

// Key implements Item.
func (k KeyedItem) Key() string { return string(k) }

// Stats summarizes one coordinator run.
type Stats[W Item] struct {
	TotalItems       int
	Skipped          int
	Completed        int
	RecordsPersisted int
	Errors           []string
	LastSuccess      *W
}

// Hooks let the caller observe per-item lifecycle without the engine knowing
// about job registries or metrics. All hooks are optional.
type Hooks[W Item] struct {
	// OnItemStart fires before an item is attempted. done counts items
	// already accounted for (skipped plus processed).
	OnItemStart func(item W, done, total int)
	// OnItemDone fires after the item succeeded or exhausted its retries.
	OnItemDone func(item W, records int, err error)
	// OnItemRetry fires before each retry attempt (attempt >= 2).
	OnItemRetry func(item W, attempt int)
}

// Config carries the coordinator collaborators that are not type-specific.
// Sink receives one line per work item (coordinate, record count, running
// percentage) for the job's rolling log.
type Config[W Item] struct {
	Retry         retry.Policy
	Pacer         *pace.Pacer
	Logger        *zap.Logger
	Sink          func(string)
	Archiver      scrape.Archiver
	ArchivePrefix string
	Hooks         Hooks[W]
}

// Coordinator walks a crawl space in order against one remote session.
type Coordinator[W Item, R any] struct {
	nav   scrape.Navigator[W]
	parse scrape.Parser[W, R]
	store scrape.RecordStore[R]
	cfg   Config[W]
}

// New builds a Coordinator. The navigator, parser and store are required;
// a nil pacer means no pacing and a nil logger is replaced with a nop.
func New[W Item, R any](
	nav scrape.Navigator[W],
	parse scrape.Parser[W, R],
	store scrape.RecordStore[R],
	cfg Config[W],
) *Coordinator[W, R] {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Pacer == nil {
		cfg.Pacer = pace.New(0, 0)
	}
	return &Coordinator[W, R]{nav: nav, parse: parse, store: store, cfg: cfg}
}

// Run processes every item of space in order. resumeFrom, when non-nil, must
// be a member of space: all earlier items are skipped without being fetched
// and resumeFrom itself is re-processed (idempotent upserts make the overlap
// harmless). isCancelled is polled before each item; a cancelled run returns
// partial stats with a nil error, leaving the caller to mark the job
// cancelled. A single bad item never aborts the run: after its retries are
// exhausted it is recorded in Stats.Errors and the crawl continues.
func (c *Coordinator[W, R]) Run(
	ctx context.Context,
	space []W,
	resumeFrom *W,
	isCancelled func() bool,
) (Stats[W], error) {
	stats := Stats[W]{TotalItems: len(space)}

	start := 0
	if resumeFrom != nil {
		idx := indexOf(space, (*resumeFrom).Key())
		if idx < 0 {
			return stats, fmt.Errorf("resume point %q is not in the crawl space", (*resumeFrom).Key())
		}
		start = idx
		stats.Skipped = idx
		c.say("resuming from %s (%d items skipped)", (*resumeFrom).Key(), idx)
	}

	for i := start; i < len(space); i++ {
		if isCancelled != nil && isCancelled() {
			c.say("cancelled after %d/%d items", stats.Skipped+stats.Completed, stats.TotalItems)
			return stats, nil
		}
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		item := space[i]
		if c.cfg.Hooks.OnItemStart != nil {
			c.cfg.Hooks.OnItemStart(item, stats.Skipped+stats.Completed, stats.TotalItems)
		}

		records, err := c.processItem(ctx, item)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return stats, ctxErr
			}
			stats.Completed++
			msg := fmt.Sprintf("%s: %v", item.Key(), err)
			stats.Errors = append(stats.Errors, msg)
			c.cfg.Logger.Warn("work item failed",
				zap.String("item", item.Key()),
				zap.Error(err),
			)
			c.say("[%s] %s: FAILED: %v", c.percent(stats), item.Key(), err)
			if c.cfg.Hooks.OnItemDone != nil {
				c.cfg.Hooks.OnItemDone(item, 0, err)
			}
			// Post-error headroom comes on top of the steady delay.
			if werr := c.cfg.Pacer.Wait(ctx, pace.Steady); werr != nil {
				return stats, werr
			}
			if werr := c.cfg.Pacer.Wait(ctx, pace.PostError); werr != nil {
				return stats, werr
			}
			continue
		}

		stats.Completed++
		stats.RecordsPersisted += records
		checkpoint := item
		stats.LastSuccess = &checkpoint
		c.say("[%s] %s: %d records", c.percent(stats), item.Key(), records)
		if c.cfg.Hooks.OnItemDone != nil {
			c.cfg.Hooks.OnItemDone(item, records, nil)
		}
		if werr := c.cfg.Pacer.Wait(ctx, pace.Steady); werr != nil {
			return stats, werr
		}
	}

	c.say("done: %d items, %d records, %d errors",
		stats.Completed, stats.RecordsPersisted, len(stats.Errors))
	return stats, nil
}

// processItem runs navigate+parse+persist under the retry policy. Attempts
// after the first re-establish the remote session first, since a failed
// navigation can leave it in an indeterminate state.
func (c *Coordinator[W, R]) processItem(ctx context.Context, item W) (int, error) {
	records := 0
	err := retry.Do(ctx, c.cfg.Retry, func(ctx context.Context, attempt int) error {
		if attempt > 1 {
			if c.cfg.Hooks.OnItemRetry != nil {
				c.cfg.Hooks.OnItemRetry(item, attempt)
			}
			if rerr := c.nav.Reset(ctx); rerr != nil {
				c.cfg.Logger.Warn("session reset failed",
					zap.String("item", item.Key()),
					zap.Int("attempt", attempt),
					zap.Error(rerr),
				)
			}
		}
		snap, err := c.nav.Navigate(ctx, item)
		if err != nil {
			return fmt.Errorf("navigate: %w", err)
		}
		c.archive(ctx, item, snap)
		recs, err := c.parse(snap, item)
		if err != nil {
			return fmt.Errorf("parse: %w", err)
		}
		if err := c.store.UpsertBatch(ctx, recs); err != nil {
			return fmt.Errorf("persist: %w", err)
		}
		records = len(recs)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return records, nil
}

func (c *Coordinator[W, R]) archive(ctx context.Context, item W, snap scrape.PageSnapshot) {
	if c.cfg.Archiver == nil {
		return
	}
	path := c.cfg.ArchivePrefix + "/" + item.Key()
	if _, err := c.cfg.Archiver.Archive(ctx, path, snap.HTML); err != nil {
		c.cfg.Logger.Warn("snapshot archive failed",
			zap.String("item", item.Key()),
			zap.Error(err),
		)
	}
}

func (c *Coordinator[W, R]) percent(stats Stats[W]) string {
	if stats.TotalItems == 0 {
		return "100.0%"
	}
	done := stats.Skipped + stats.Completed
	return fmt.Sprintf("%.1f%%", float64(done)/float64(stats.TotalItems)*100)
}

func (c *Coordinator[W, R]) say(format string, args ...any) {
	if c.cfg.Sink == nil {
		return
	}
	c.cfg.Sink(fmt.Sprintf(format, args...))
}

func indexOf[W Item](space []W, key string) int {
	for i, item := range space {
		if item.Key() == key {
			return i
		}
	}
	return -1
}
