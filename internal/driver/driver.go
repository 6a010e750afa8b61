// Package driver launches and supervises family sync jobs. One Driver owns
// the registry, the record stores, the site adapters and the lifecycle
// publisher; each Start spawns one goroutine that loads the family catalog,
// builds the ordered crawl space and hands it to a coordinator, translating
// its progress into registry updates and metrics.
package driver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/afttdata/aftt-sync/internal/engine"
	"github.com/afttdata/aftt-sync/internal/metrics"
	"github.com/afttdata/aftt-sync/internal/pace"
	"github.com/afttdata/aftt-sync/internal/registry"
	"github.com/afttdata/aftt-sync/internal/retry"
	"github.com/afttdata/aftt-sync/internal/scrape"
)

// DefaultWeeks is the default interclubs week range.
var DefaultWeeks = weekRange(1, 22)

func weekRange(lo, hi int) []int {
	out := make([]int, 0, hi-lo+1)
	for w := lo; w <= hi; w++ {
		out = append(out, w)
	}
	return out
}

// RankingsSession is the stateful browser session a rankings run owns.
type RankingsSession interface {
	scrape.Navigator[scrape.DivisionWeek]
	LoadDivisions(ctx context.Context) (scrape.PageSnapshot, error)
	Close()
}

// PageClient fetches the catalog pages of the plain-HTTP families.
type PageClient interface {
	ClubCatalog(ctx context.Context) (scrape.PageSnapshot, error)
	TournamentCalendarPage(ctx context.Context, page int) (scrape.PageSnapshot, error)
}

// Stores bundles the record stores the families persist into.
type Stores struct {
	Divisions   scrape.RecordStore[scrape.Division]
	Rankings    scrape.RecordStore[scrape.TeamRanking]
	Clubs       scrape.RecordStore[scrape.Club]
	Players     scrape.RecordStore[scrape.Player]
	Tournaments scrape.RecordStore[scrape.Tournament]
	Series      scrape.RecordStore[scrape.TournamentSeries]
}

// Filters narrows a job's crawl space and optionally resumes it from a
// checkpoint coordinate. Empty slices mean "everything".
type Filters struct {
	Divisions []int    `json:"divisions,omitempty"`
	Weeks     []int    `json:"weeks,omitempty"`
	Clubs     []string `json:"clubs,omitempty"`
	Resume    *Resume  `json:"resume,omitempty"`
}

// Resume names the last_success coordinate of an earlier run. Only the
// fields of the job's own family are read.
type Resume struct {
	DivisionIndex *int    `json:"division_index,omitempty"`
	Week          *int    `json:"week,omitempty"`
	ClubCode      *string `json:"club_code,omitempty"`
	TournamentID  *int    `json:"tournament_id,omitempty"`
}

// Config wires a Driver.
type Config struct {
	Registry      *registry.Registry
	Stores        Stores
	NewSession    func(ctx context.Context) (RankingsSession, error)
	Pages         PageClient
	ClubNav       scrape.Navigator[scrape.ClubItem]
	TournamentNav scrape.Navigator[scrape.TournamentItem]
	Publisher     scrape.Publisher
	Topic         string
	Archiver      scrape.Archiver
	Logger        *zap.Logger
	Retry         retry.Policy
	Pacer         *pace.Pacer
	Weeks         []int
}

// Driver starts family sync jobs.
type Driver struct {
	cfg  Config
	base context.Context
	stop context.CancelFunc
}

// New builds a Driver. Jobs run under the driver's own base context, so
// Shutdown stops every running job.
func New(cfg Config) (*Driver, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if len(cfg.Weeks) == 0 {
		cfg.Weeks = DefaultWeeks
	}
	base, stop := context.WithCancel(context.Background())
	return &Driver{cfg: cfg, base: base, stop: stop}, nil
}

// Shutdown cancels the base context shared by all running jobs.
func (d *Driver) Shutdown() {
	d.stop()
}

// Start creates a job for the family and launches its run. It returns
// registry.ErrJobRunning while a job for the family is still active.
func (d *Driver) Start(family scrape.Family, trigger string, filters Filters) (registry.Job, error) {
	job, err := d.cfg.Registry.Create(family, trigger)
	if err != nil {
		return registry.Job{}, err
	}
	metrics.IncActiveJobs()
	go d.run(job, filters)
	return job, nil
}

func (d *Driver) run(job registry.Job, filters Filters) {
	defer metrics.DecActiveJobs()

	log := d.cfg.Logger.With(
		zap.String("job_id", job.ID.String()),
		zap.String("family", string(job.Family)),
	)
	log.Info("job started", zap.String("trigger", job.Trigger))
	d.publish(job, "started", nil)

	var (
		stats engine.Stats[engine.KeyedItem]
		err   error
	)
	switch job.Family {
	case scrape.FamilyRankings:
		stats, err = d.runRankings(d.base, job, filters)
	case scrape.FamilyRosters:
		stats, err = d.runRosters(d.base, job, filters)
	case scrape.FamilyTournaments:
		stats, err = d.runTournaments(d.base, job, filters)
	default:
		err = fmt.Errorf("unknown family %q", job.Family)
	}

	status := registry.StatusSuccess
	switch {
	case err != nil && errors.Is(err, context.Canceled):
		// Shutdown cancelled the base context; not a failure.
		status = registry.StatusCancelled
		log.Info("job stopped by shutdown",
			zap.Int("completed", stats.Completed),
			zap.Int("records", stats.RecordsPersisted),
		)
	case err != nil:
		status = registry.StatusFailed
		stats.Errors = append(stats.Errors, err.Error())
		log.Error("job failed", zap.Error(err))
	case d.cancelled(job):
		status = registry.StatusCancelled
		log.Info("job cancelled",
			zap.Int("completed", stats.Completed),
			zap.Int("records", stats.RecordsPersisted),
		)
	default:
		log.Info("job finished",
			zap.Int("completed", stats.Completed),
			zap.Int("records", stats.RecordsPersisted),
			zap.Int("errors", len(stats.Errors)),
		)
	}

	if ferr := d.cfg.Registry.Finish(job.ID, status, stats.Errors); ferr != nil {
		log.Warn("finish job", zap.Error(ferr))
	}
	metrics.ObserveJob(string(job.Family), string(status))
	d.publish(job, string(status), &stats)
}

func (d *Driver) cancelled(job registry.Job) bool {
	current, err := d.cfg.Registry.Get(job.ID)
	return err == nil && current.CancelRequested
}

// lifecycleEvent is the payload published at job start and finish.
type lifecycleEvent struct {
	JobID            string    `json:"job_id"`
	Family           string    `json:"family"`
	Trigger          string    `json:"trigger"`
	Event            string    `json:"event"`
	Timestamp        time.Time `json:"timestamp"`
	Completed        int       `json:"completed,omitempty"`
	RecordsPersisted int       `json:"records_persisted,omitempty"`
	ErrorCount       int       `json:"error_count,omitempty"`
}

func (d *Driver) publish(job registry.Job, event string, stats *engine.Stats[engine.KeyedItem]) {
	if d.cfg.Publisher == nil {
		return
	}
	payload := lifecycleEvent{
		JobID:     job.ID.String(),
		Family:    string(job.Family),
		Trigger:   job.Trigger,
		Event:     event,
		Timestamp: time.Now().UTC(),
	}
	if stats != nil {
		payload.Completed = stats.Completed
		payload.RecordsPersisted = stats.RecordsPersisted
		payload.ErrorCount = len(stats.Errors)
	}
	if _, err := d.cfg.Publisher.Publish(d.base, d.cfg.Topic, payload); err != nil {
		d.cfg.Logger.Warn("publish lifecycle event",
			zap.String("job_id", job.ID.String()),
			zap.String("event", event),
			zap.Error(err),
		)
	}
}

// runFamily drives one coordinator over a prepared space, wiring hooks into
// the registry and metrics. It is generic so the three families share the
// translation layer.
func runFamily[W engine.Item, R any](
	d *Driver,
	ctx context.Context,
	job registry.Job,
	nav scrape.Navigator[W],
	parse scrape.Parser[W, R],
	store scrape.RecordStore[R],
	space []W,
	resume *W,
) (engine.Stats[engine.KeyedItem], error) {
	family := string(job.Family)
	reg := d.cfg.Registry

	total := len(space)
	_ = reg.Update(job.ID, registry.Progress{TotalUnits: &total})

	completed := 0
	errs := 0
	cfg := engine.Config[W]{
		Retry:         d.cfg.Retry,
		Pacer:         d.cfg.Pacer,
		Logger:        d.cfg.Logger.With(zap.String("family", family)),
		Sink:          func(msg string) { reg.AppendLog(job.ID, msg) },
		Archiver:      d.cfg.Archiver,
		ArchivePrefix: family,
		Hooks: engine.Hooks[W]{
			OnItemStart: func(item W, done, _ int) {
				key := item.Key()
				completed = done
				_ = reg.Update(job.ID, registry.Progress{
					CompletedUnits: &completed,
					CurrentUnit:    &key,
				})
			},
			OnItemRetry: func(W, int) { metrics.ObserveRetry(family) },
			OnItemDone: func(item W, records int, err error) {
				completed++
				// The finished item is no longer current; the next
				// OnItemStart names its successor.
				idle := ""
				p := registry.Progress{CompletedUnits: &completed, CurrentUnit: &idle}
				if err != nil {
					errs++
					p.ErrorCount = &errs
					metrics.ObserveItem(family, "error")
				} else {
					key := item.Key()
					p.LastSuccess = &key
					metrics.ObserveItem(family, "success")
					metrics.ObserveRecords(family, records)
				}
				_ = reg.Update(job.ID, p)
			},
		},
	}

	coord := engine.New(nav, parse, store, cfg)
	stats, err := coord.Run(ctx, space, resume, reg.CancelToken(job.ID))
	return erase(stats), err
}

// erase drops the typed checkpoint from per-family stats so the driver's
// finish path handles every family uniformly.
func erase[W engine.Item](stats engine.Stats[W]) engine.Stats[engine.KeyedItem] {
	out := engine.Stats[engine.KeyedItem]{
		TotalItems:       stats.TotalItems,
		Skipped:          stats.Skipped,
		Completed:        stats.Completed,
		RecordsPersisted: stats.RecordsPersisted,
		Errors:           stats.Errors,
	}
	if stats.LastSuccess != nil {
		item := engine.KeyedItem((*stats.LastSuccess).Key())
		out.LastSuccess = &item
	}
	return out
}

func intsContain(set []int, v int) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func stringsContain(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func sortedWeeks(weeks []int) []int {
	out := append([]int(nil), weeks...)
	sort.Ints(out)
	return out
}
