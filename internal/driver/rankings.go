package driver

import (
	"context"
	"fmt"

	"github.com/afttdata/aftt-sync/internal/engine"
	"github.com/afttdata/aftt-sync/internal/parser"
	"github.com/afttdata/aftt-sync/internal/registry"
	"github.com/afttdata/aftt-sync/internal/scrape"
)

// runRankings syncs the interclubs standings: division catalog × weeks,
// driven through one headless browser session.
func (d *Driver) runRankings(ctx context.Context, job registry.Job, filters Filters) (engine.Stats[engine.KeyedItem], error) {
	var none engine.Stats[engine.KeyedItem]
	if d.cfg.NewSession == nil {
		return none, fmt.Errorf("rankings session factory is not configured")
	}

	sess, err := d.cfg.NewSession(ctx)
	if err != nil {
		return none, fmt.Errorf("open rankings session: %w", err)
	}
	defer sess.Close()

	// The division catalog is the job's setup step: failure here is fatal.
	snap, err := sess.LoadDivisions(ctx)
	if err != nil {
		return none, fmt.Errorf("load divisions: %w", err)
	}
	divisions, err := parser.Divisions(snap)
	if err != nil {
		return none, fmt.Errorf("parse divisions: %w", err)
	}
	if d.cfg.Stores.Divisions != nil {
		if err := d.cfg.Stores.Divisions.UpsertBatch(ctx, divisions); err != nil {
			return none, fmt.Errorf("persist divisions: %w", err)
		}
	}

	space, names := rankingsSpace(divisions, filters, d.cfg.Weeks)
	d.cfg.Registry.AppendLog(job.ID, fmt.Sprintf(
		"catalog: %d divisions, crawl space %d items", len(divisions), len(space)))

	var resume *scrape.DivisionWeek
	if filters.Resume != nil && filters.Resume.DivisionIndex != nil && filters.Resume.Week != nil {
		resume = &scrape.DivisionWeek{
			DivisionIndex: *filters.Resume.DivisionIndex,
			Week:          *filters.Resume.Week,
		}
	}

	return runFamily(d, ctx, job, scrape.Navigator[scrape.DivisionWeek](sess),
		parser.Rankings(names), d.cfg.Stores.Rankings, space, resume)
}

// rankingsSpace enumerates the ordered division×week cross product, applying
// the operator's division and week subsets.
func rankingsSpace(divisions []scrape.Division, filters Filters, defaultWeeks []int) ([]scrape.DivisionWeek, map[int]string) {
	weeks := weeksFor(filters, defaultWeeks)

	names := make(map[int]string, len(divisions))
	var space []scrape.DivisionWeek
	for _, div := range divisions {
		names[div.DivisionIndex] = div.Name
		if len(filters.Divisions) > 0 && !intsContain(filters.Divisions, div.DivisionIndex) {
			continue
		}
		for _, w := range weeks {
			space = append(space, scrape.DivisionWeek{DivisionIndex: div.DivisionIndex, Week: w})
		}
	}
	return space, names
}

func weeksFor(filters Filters, defaultWeeks []int) []int {
	if len(filters.Weeks) > 0 {
		return sortedWeeks(filters.Weeks)
	}
	return defaultWeeks
}
