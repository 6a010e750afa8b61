package driver

import (
	"context"
	"fmt"
	"sort"

	"github.com/afttdata/aftt-sync/internal/engine"
	"github.com/afttdata/aftt-sync/internal/parser"
	"github.com/afttdata/aftt-sync/internal/registry"
	"github.com/afttdata/aftt-sync/internal/scrape"
)

// runRosters syncs club rosters: the club directory is the catalog, one
// WorkItem per club code.
func (d *Driver) runRosters(ctx context.Context, job registry.Job, filters Filters) (engine.Stats[engine.KeyedItem], error) {
	var none engine.Stats[engine.KeyedItem]
	if d.cfg.Pages == nil || d.cfg.ClubNav == nil {
		return none, fmt.Errorf("roster adapters are not configured")
	}

	snap, err := d.cfg.Pages.ClubCatalog(ctx)
	if err != nil {
		return none, fmt.Errorf("load club catalog: %w", err)
	}
	clubs, err := parser.ClubDirectory(snap)
	if err != nil {
		return none, fmt.Errorf("parse club catalog: %w", err)
	}
	if d.cfg.Stores.Clubs != nil {
		if err := d.cfg.Stores.Clubs.UpsertBatch(ctx, clubs); err != nil {
			return none, fmt.Errorf("persist club catalog: %w", err)
		}
	}

	space := rosterSpace(clubs, filters)
	d.cfg.Registry.AppendLog(job.ID, fmt.Sprintf(
		"catalog: %d clubs, crawl space %d items", len(clubs), len(space)))

	var resume *scrape.ClubItem
	if filters.Resume != nil && filters.Resume.ClubCode != nil {
		resume = &scrape.ClubItem{ClubCode: *filters.Resume.ClubCode}
	}

	return runFamily(d, ctx, job, d.cfg.ClubNav,
		parser.ClubMembers, d.cfg.Stores.Players, space, resume)
}

// rosterSpace orders the club directory by code, applying the club subset.
func rosterSpace(clubs []scrape.Club, filters Filters) []scrape.ClubItem {
	var space []scrape.ClubItem
	for _, club := range clubs {
		if len(filters.Clubs) > 0 && !stringsContain(filters.Clubs, club.Code) {
			continue
		}
		space = append(space, scrape.ClubItem{ClubCode: club.Code})
	}
	sort.Slice(space, func(i, j int) bool { return space[i].ClubCode < space[j].ClubCode })
	return space
}
