// Package registry owns job and task lifecycle: one active job per family,
// progress counters, a rolling log per job, and status/history queries. All
// state lives behind a single lock so reads answer immediately without
// waiting on an in-progress crawl.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/afttdata/aftt-sync/internal/scrape"
)

// Registry errors.
var (
	ErrNotFound   = errors.New("job not found")
	ErrJobRunning = errors.New("a job for this family is already running")
	ErrNotRunning = errors.New("job is not running")
)

const defaultLogCap = 1000

type jobState struct {
	job  Job
	logs *ring
}

// Registry is the single owner of in-memory job state. Safe for concurrent
// use; no caller holds a reference into its internals.
type Registry struct {
	mu     sync.RWMutex
	clock  scrape.Clock
	logCap int
	jobs   map[uuid.UUID]*jobState
	active map[scrape.Family]uuid.UUID
}

// New builds a Registry. logCap bounds each job's rolling log; values <= 0
// fall back to the default of 1000 entries.
func New(clock scrape.Clock, logCap int) *Registry {
	if logCap <= 0 {
		logCap = defaultLogCap
	}
	return &Registry{
		clock:  clock,
		logCap: logCap,
		jobs:   make(map[uuid.UUID]*jobState),
		active: make(map[scrape.Family]uuid.UUID),
	}
}

// Create allocates a new running job for the family, or fails with
// ErrJobRunning if a non-terminal job for the family already exists. A second
// start must conflict, never queue.
func (r *Registry) Create(family scrape.Family, trigger string) (Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.active[family]; ok {
		if st, exists := r.jobs[id]; exists && !st.job.Status.Terminal() {
			return Job{}, fmt.Errorf("%w (job %s)", ErrJobRunning, id)
		}
	}

	job := Job{
		ID:        uuid.New(),
		Family:    family,
		Trigger:   trigger,
		Status:    StatusRunning,
		StartedAt: r.clock.Now().UTC(),
	}
	r.jobs[job.ID] = &jobState{job: job, logs: newRing(r.logCap)}
	r.active[family] = job.ID
	return job, nil
}

// Update merges progress fields into a running job. completed_units is
// clamped monotonically non-decreasing and never above total_units; the
// error counter never decreases.
func (r *Registry) Update(id uuid.UUID, p Progress) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if st.job.Status.Terminal() {
		return ErrNotRunning
	}

	if p.TotalUnits != nil && *p.TotalUnits >= st.job.TotalUnits {
		st.job.TotalUnits = *p.TotalUnits
	}
	if p.CompletedUnits != nil && *p.CompletedUnits > st.job.CompletedUnits {
		st.job.CompletedUnits = *p.CompletedUnits
	}
	if st.job.TotalUnits > 0 && st.job.CompletedUnits > st.job.TotalUnits {
		st.job.CompletedUnits = st.job.TotalUnits
	}
	if p.ErrorCount != nil && *p.ErrorCount > st.job.ErrorCount {
		st.job.ErrorCount = *p.ErrorCount
	}
	if p.CurrentUnit != nil {
		st.job.CurrentUnit = *p.CurrentUnit
	}
	if p.LastSuccess != nil {
		st.job.LastSuccess = *p.LastSuccess
	}
	return nil
}

// Finish moves the job to a terminal status. Calling it twice with the same
// terminal status is a no-op; a second call with a different terminal status
// is an error.
func (r *Registry) Finish(id uuid.UUID, status Status, errorLog []string) error {
	if !status.Terminal() {
		return fmt.Errorf("finish requires a terminal status, got %q", status)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if st.job.Status.Terminal() {
		if st.job.Status == status {
			return nil
		}
		return fmt.Errorf("job already finished as %q", st.job.Status)
	}

	now := r.clock.Now().UTC()
	st.job.Status = status
	st.job.FinishedAt = &now
	st.job.CurrentUnit = ""
	if len(errorLog) > 0 {
		st.job.Errors = append([]string(nil), errorLog...)
		if len(errorLog) > st.job.ErrorCount {
			st.job.ErrorCount = len(errorLog)
		}
	}
	if r.active[st.job.Family] == id {
		delete(r.active, st.job.Family)
	}
	return nil
}

// Cancel flips the cooperative cancellation flag of a running job. It does
// not interrupt in-flight work: the coordinator observes the flag between
// work items, so cancellation latency is bounded by one item's worst-case
// retry time.
func (r *Registry) Cancel(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if st.job.Status.Terminal() {
		return ErrNotRunning
	}
	st.job.CancelRequested = true
	return nil
}

// CancelToken returns the is_cancelled closure handed to a coordinator.
// Unknown ids read as cancelled so an orphaned run stops itself.
func (r *Registry) CancelToken(id uuid.UUID) func() bool {
	return func() bool {
		r.mu.RLock()
		defer r.mu.RUnlock()
		st, ok := r.jobs[id]
		if !ok {
			return true
		}
		return st.job.CancelRequested || st.job.Status.Terminal()
	}
}

// AppendLog appends one line to the job's rolling log. Logs are best effort:
// once the ring is full the oldest entries drop silently, and appends to
// unknown jobs are ignored.
func (r *Registry) AppendLog(id uuid.UUID, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.jobs[id]
	if !ok {
		return
	}
	st.logs.push(LogEntry{Timestamp: r.clock.Now().UTC(), Message: message})
}

// Get returns a copy of the job's current snapshot.
func (r *Registry) Get(id uuid.UUID) (Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st, ok := r.jobs[id]
	if !ok {
		return Job{}, ErrNotFound
	}
	return cloneJob(st.job), nil
}

// Logs returns the job's retained log entries in append order.
func (r *Registry) Logs(id uuid.UUID) ([]LogEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st, ok := r.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return st.logs.snapshot(), nil
}

// Active returns the running job for a family, if any.
func (r *Registry) Active(family scrape.Family) (Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.active[family]
	if !ok {
		return Job{}, false
	}
	st, ok := r.jobs[id]
	if !ok || st.job.Status.Terminal() {
		return Job{}, false
	}
	return cloneJob(st.job), true
}

// History returns up to limit jobs ordered by start time descending.
func (r *Registry) History(limit int) []Job {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Job, 0, len(r.jobs))
	for _, st := range r.jobs {
		out = append(out, cloneJob(st.job))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID.String() > out[j].ID.String()
		}
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func cloneJob(j Job) Job {
	out := j
	if j.FinishedAt != nil {
		ts := *j.FinishedAt
		out.FinishedAt = &ts
	}
	out.Errors = append([]string(nil), j.Errors...)
	return out
}

// ring is a fixed-capacity log buffer; oldest entries are evicted first.
type ring struct {
	buf  []LogEntry
	next int
	full bool
}

func newRing(cap int) *ring {
	return &ring{buf: make([]LogEntry, cap)}
}

func (r *ring) push(e LogEntry) {
	r.buf[r.next] = e
	r.next = (r.next + 1) % len(r.buf)
	if r.next == 0 {
		r.full = true
	}
}

func (r *ring) snapshot() []LogEntry {
	if !r.full {
		return append([]LogEntry(nil), r.buf[:r.next]...)
	}
	out := make([]LogEntry, 0, len(r.buf))
	out = append(out, r.buf[r.next:]...)
	out = append(out, r.buf[:r.next]...)
	return out
}
