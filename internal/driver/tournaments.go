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

// runTournaments syncs the tournament calendar and each tournament's series.
// The paginated calendar is the catalog; one WorkItem per tournament id.
func (d *Driver) runTournaments(ctx context.Context, job registry.Job, filters Filters) (engine.Stats[engine.KeyedItem], error) {
	var none engine.Stats[engine.KeyedItem]
	if d.cfg.Pages == nil || d.cfg.TournamentNav == nil {
		return none, fmt.Errorf("tournament adapters are not configured")
	}

	tournaments, err := d.loadTournamentCatalog(ctx)
	if err != nil {
		return none, err
	}
	if d.cfg.Stores.Tournaments != nil {
		if err := d.cfg.Stores.Tournaments.UpsertBatch(ctx, tournaments); err != nil {
			return none, fmt.Errorf("persist tournament catalog: %w", err)
		}
	}

	space := tournamentSpace(tournaments)
	d.cfg.Registry.AppendLog(job.ID, fmt.Sprintf(
		"catalog: %d tournaments, crawl space %d items", len(tournaments), len(space)))

	var resume *scrape.TournamentItem
	if filters.Resume != nil && filters.Resume.TournamentID != nil {
		resume = &scrape.TournamentItem{TournamentID: *filters.Resume.TournamentID}
	}

	return runFamily(d, ctx, job, d.cfg.TournamentNav,
		parser.TournamentSeries, d.cfg.Stores.Series, space, resume)
}

// loadTournamentCatalog walks every calendar page. Any page failing is a
// setup failure: a partial catalog would silently shrink the crawl space.
func (d *Driver) loadTournamentCatalog(ctx context.Context) ([]scrape.Tournament, error) {
	first, err := d.cfg.Pages.TournamentCalendarPage(ctx, 1)
	if err != nil {
		return nil, fmt.Errorf("load tournament calendar: %w", err)
	}
	pages, err := parser.CalendarPageCount(first)
	if err != nil {
		return nil, fmt.Errorf("parse tournament calendar: %w", err)
	}
	tournaments, err := parser.TournamentCalendar(first)
	if err != nil {
		return nil, fmt.Errorf("parse tournament calendar: %w", err)
	}

	for page := 2; page <= pages; page++ {
		snap, err := d.cfg.Pages.TournamentCalendarPage(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("load tournament calendar page %d: %w", page, err)
		}
		more, err := parser.TournamentCalendar(snap)
		if err != nil {
			return nil, fmt.Errorf("parse tournament calendar page %d: %w", page, err)
		}
		tournaments = append(tournaments, more...)
	}
	return tournaments, nil
}

// tournamentSpace orders the calendar by tournament id, dropping duplicate
// ids across pages.
func tournamentSpace(tournaments []scrape.Tournament) []scrape.TournamentItem {
	seen := make(map[int]bool, len(tournaments))
	var space []scrape.TournamentItem
	for _, t := range tournaments {
		if seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		space = append(space, scrape.TournamentItem{TournamentID: t.ID})
	}
	sort.Slice(space, func(i, j int) bool { return space[i].TournamentID < space[j].TournamentID })
	return space
}
