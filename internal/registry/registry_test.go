package registry

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/afttdata/aftt-sync/internal/scrape"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newTestRegistry(t *testing.T) (*Registry, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	return New(clock, 0), clock
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func TestCreate_SingleFlightPerFamily(t *testing.T) {
	t.Parallel()

	r, _ := newTestRegistry(t)

	first, err := r.Create(scrape.FamilyRankings, "manual")
	require.NoError(t, err)
	require.Equal(t, StatusRunning, first.Status)

	_, err = r.Create(scrape.FamilyRankings, "manual")
	require.ErrorIs(t, err, ErrJobRunning)

	// A different family is not blocked.
	_, err = r.Create(scrape.FamilyRosters, "cron")
	require.NoError(t, err)

	// Finishing releases the family slot.
	require.NoError(t, r.Finish(first.ID, StatusSuccess, nil))
	_, err = r.Create(scrape.FamilyRankings, "manual")
	require.NoError(t, err)
}

func TestUpdate_MonotonicProgress(t *testing.T) {
	t.Parallel()

	r, _ := newTestRegistry(t)
	job, err := r.Create(scrape.FamilyRankings, "manual")
	require.NoError(t, err)

	require.NoError(t, r.Update(job.ID, Progress{TotalUnits: intPtr(10)}))
	require.NoError(t, r.Update(job.ID, Progress{CompletedUnits: intPtr(4)}))
	require.NoError(t, r.Update(job.ID, Progress{CompletedUnits: intPtr(2)})) // regression ignored
	require.NoError(t, r.Update(job.ID, Progress{CompletedUnits: intPtr(99)})) // clamped to total

	got, err := r.Get(job.ID)
	require.NoError(t, err)
	require.Equal(t, 10, got.TotalUnits)
	require.Equal(t, 10, got.CompletedUnits)

	require.NoError(t, r.Update(job.ID, Progress{ErrorCount: intPtr(3)}))
	require.NoError(t, r.Update(job.ID, Progress{ErrorCount: intPtr(1)}))
	got, err = r.Get(job.ID)
	require.NoError(t, err)
	require.Equal(t, 3, got.ErrorCount)
}

func TestFinish_IdempotentTerminalState(t *testing.T) {
	t.Parallel()

	r, _ := newTestRegistry(t)
	job, err := r.Create(scrape.FamilyTournaments, "manual")
	require.NoError(t, err)

	require.NoError(t, r.Finish(job.ID, StatusFailed, []string{"catalog load failed"}))
	require.NoError(t, r.Finish(job.ID, StatusFailed, []string{"catalog load failed"}))
	require.Error(t, r.Finish(job.ID, StatusSuccess, nil))
	require.Error(t, r.Finish(job.ID, StatusRunning, nil))

	got, err := r.Get(job.ID)
	require.NoError(t, err)
	require.Equal(t, StatusFailed, got.Status)
	require.NotNil(t, got.FinishedAt)
	require.Equal(t, []string{"catalog load failed"}, got.Errors)
	require.Equal(t, 1, got.ErrorCount)
}

func TestCancel_CooperativeFlag(t *testing.T) {
	t.Parallel()

	r, _ := newTestRegistry(t)
	job, err := r.Create(scrape.FamilyRosters, "manual")
	require.NoError(t, err)

	token := r.CancelToken(job.ID)
	require.False(t, token())

	require.NoError(t, r.Cancel(job.ID))
	require.True(t, token())

	// Cancel does not finish the job by itself; the coordinator does.
	got, err := r.Get(job.ID)
	require.NoError(t, err)
	require.Equal(t, StatusRunning, got.Status)
	require.True(t, got.CancelRequested)

	require.NoError(t, r.Finish(job.ID, StatusCancelled, nil))
	require.ErrorIs(t, r.Cancel(job.ID), ErrNotRunning)
}

func TestAppendLog_BoundedRingKeepsNewest(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(1000, 0)}
	r := New(clock, 5)
	job, err := r.Create(scrape.FamilyRankings, "manual")
	require.NoError(t, err)

	for i := 1; i <= 8; i++ {
		r.AppendLog(job.ID, fmt.Sprintf("line %d", i))
	}

	logs, err := r.Logs(job.ID)
	require.NoError(t, err)
	require.Len(t, logs, 5)
	for i, entry := range logs {
		require.Equal(t, fmt.Sprintf("line %d", i+4), entry.Message)
	}
}

func TestHistory_OrderedByStartDescending(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(1000, 0)}
	r := New(clock, 0)

	a, err := r.Create(scrape.FamilyRankings, "manual")
	require.NoError(t, err)
	require.NoError(t, r.Finish(a.ID, StatusSuccess, nil))

	clock.now = clock.now.Add(time.Minute)
	b, err := r.Create(scrape.FamilyRankings, "cron")
	require.NoError(t, err)
	require.NoError(t, r.Finish(b.ID, StatusFailed, nil))

	clock.now = clock.now.Add(time.Minute)
	c, err := r.Create(scrape.FamilyRosters, "manual")
	require.NoError(t, err)

	history := r.History(2)
	require.Len(t, history, 2)
	require.Equal(t, c.ID, history[0].ID)
	require.Equal(t, b.ID, history[1].ID)
}

func TestUpdate_RejectedAfterTerminal(t *testing.T) {
	t.Parallel()

	r, _ := newTestRegistry(t)
	job, err := r.Create(scrape.FamilyRankings, "manual")
	require.NoError(t, err)
	require.NoError(t, r.Finish(job.ID, StatusSuccess, nil))

	require.ErrorIs(t, r.Update(job.ID, Progress{CompletedUnits: intPtr(1)}), ErrNotRunning)
}

func TestCurrentUnitAndCheckpoint(t *testing.T) {
	t.Parallel()

	r, _ := newTestRegistry(t)
	job, err := r.Create(scrape.FamilyRankings, "manual")
	require.NoError(t, err)

	require.NoError(t, r.Update(job.ID, Progress{
		CurrentUnit: strPtr("division=3 week=7"),
		LastSuccess: strPtr("division=3 week=6"),
	}))

	got, err := r.Get(job.ID)
	require.NoError(t, err)
	require.Equal(t, "division=3 week=7", got.CurrentUnit)
	require.Equal(t, "division=3 week=6", got.LastSuccess)

	// Finish clears the in-flight marker but keeps the checkpoint.
	require.NoError(t, r.Finish(job.ID, StatusSuccess, nil))
	got, err = r.Get(job.ID)
	require.NoError(t, err)
	require.Empty(t, got.CurrentUnit)
	require.Equal(t, "division=3 week=6", got.LastSuccess)
}
