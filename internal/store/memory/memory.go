// Package memory provides in-memory record stores mirroring the Postgres
// merge policy: insert-or-update by natural key, non-nil incoming fields win,
// nil incoming fields keep the stored value. Used by tests and the dev mode
// that runs without a database.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/afttdata/aftt-sync/internal/scrape"
)

// Store aggregates one in-memory table per record type. Safe for concurrent
// use.
type Store struct {
	mu          sync.RWMutex
	divisions   map[int]scrape.Division
	rankings    map[string]scrape.TeamRanking
	clubs       map[string]scrape.Club
	players     map[string]scrape.Player
	tournaments map[int]scrape.Tournament
	series      map[string]scrape.TournamentSeries
}

// New builds an empty Store.
func New() *Store {
	return &Store{
		divisions:   make(map[int]scrape.Division),
		rankings:    make(map[string]scrape.TeamRanking),
		clubs:       make(map[string]scrape.Club),
		players:     make(map[string]scrape.Player),
		tournaments: make(map[int]scrape.Tournament),
		series:      make(map[string]scrape.TournamentSeries),
	}
}

func rankingKey(r scrape.TeamRanking) string {
	return fmt.Sprintf("%d/%d/%s", r.DivisionIndex, r.Week, r.TeamName)
}

func seriesKey(s scrape.TournamentSeries) string {
	return fmt.Sprintf("%d/%s", s.TournamentID, s.Name)
}

func coalesceStr(incoming, stored *string) *string {
	if incoming != nil {
		return incoming
	}
	return stored
}

func coalesceInt(incoming, stored *int) *int {
	if incoming != nil {
		return incoming
	}
	return stored
}

func coalesceFloat(incoming, stored *float64) *float64 {
	if incoming != nil {
		return incoming
	}
	return stored
}

// DivisionStore implements scrape.RecordStore for divisions.
type DivisionStore struct{ s *Store }

// Divisions returns the division table.
func (s *Store) Divisions() *DivisionStore { return &DivisionStore{s: s} }

// UpsertBatch implements scrape.RecordStore.
func (d *DivisionStore) UpsertBatch(_ context.Context, records []scrape.Division) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	for _, r := range records {
		if old, ok := d.s.divisions[r.DivisionIndex]; ok {
			r.DivisionID = coalesceStr(r.DivisionID, old.DivisionID)
			r.Category = coalesceStr(r.Category, old.Category)
			r.Gender = coalesceStr(r.Gender, old.Gender)
			if r.Name == "" {
				r.Name = old.Name
			}
		}
		d.s.divisions[r.DivisionIndex] = r
	}
	return nil
}

// RankingStore implements scrape.RecordStore for standings rows.
type RankingStore struct{ s *Store }

// Rankings returns the standings table.
func (s *Store) Rankings() *RankingStore { return &RankingStore{s: s} }

// UpsertBatch implements scrape.RecordStore.
func (r *RankingStore) UpsertBatch(_ context.Context, records []scrape.TeamRanking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rec := range records {
		key := rankingKey(rec)
		if old, ok := r.s.rankings[key]; ok {
			rec.Rank = coalesceInt(rec.Rank, old.Rank)
			rec.Points = coalesceInt(rec.Points, old.Points)
			if rec.DivisionName == "" {
				rec.DivisionName = old.DivisionName
			}
		}
		r.s.rankings[key] = rec
	}
	return nil
}

// ClubStore implements scrape.RecordStore for the club directory.
type ClubStore struct{ s *Store }

// Clubs returns the club table.
func (s *Store) Clubs() *ClubStore { return &ClubStore{s: s} }

// UpsertBatch implements scrape.RecordStore.
func (c *ClubStore) UpsertBatch(_ context.Context, records []scrape.Club) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	for _, r := range records {
		if old, ok := c.s.clubs[r.Code]; ok {
			r.Province = coalesceStr(r.Province, old.Province)
			r.Email = coalesceStr(r.Email, old.Email)
			r.Phone = coalesceStr(r.Phone, old.Phone)
			r.Website = coalesceStr(r.Website, old.Website)
			r.VenueName = coalesceStr(r.VenueName, old.VenueName)
			r.VenueAddress = coalesceStr(r.VenueAddress, old.VenueAddress)
			if r.Name == "" {
				r.Name = old.Name
			}
		}
		c.s.clubs[r.Code] = r
	}
	return nil
}

// PlayerStore implements scrape.RecordStore for rosters.
type PlayerStore struct{ s *Store }

// Players returns the player table.
func (s *Store) Players() *PlayerStore { return &PlayerStore{s: s} }

// UpsertBatch implements scrape.RecordStore.
func (p *PlayerStore) UpsertBatch(_ context.Context, records []scrape.Player) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	for _, r := range records {
		if old, ok := p.s.players[r.Licence]; ok {
			r.ClubCode = coalesceStr(r.ClubCode, old.ClubCode)
			r.Ranking = coalesceStr(r.Ranking, old.Ranking)
			r.Category = coalesceStr(r.Category, old.Category)
			r.Gender = coalesceStr(r.Gender, old.Gender)
			r.PointsCurrent = coalesceFloat(r.PointsCurrent, old.PointsCurrent)
			r.RankingPosition = coalesceInt(r.RankingPosition, old.RankingPosition)
			r.Matches = coalesceInt(r.Matches, old.Matches)
			if r.Name == "" {
				r.Name = old.Name
			}
		}
		p.s.players[r.Licence] = r
	}
	return nil
}

// TournamentStore implements scrape.RecordStore for the calendar.
type TournamentStore struct{ s *Store }

// Tournaments returns the tournament table.
func (s *Store) Tournaments() *TournamentStore { return &TournamentStore{s: s} }

// UpsertBatch implements scrape.RecordStore.
func (t *TournamentStore) UpsertBatch(_ context.Context, records []scrape.Tournament) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for _, r := range records {
		if old, ok := t.s.tournaments[r.ID]; ok {
			r.Level = coalesceStr(r.Level, old.Level)
			r.DateStart = coalesceStr(r.DateStart, old.DateStart)
			r.DateEnd = coalesceStr(r.DateEnd, old.DateEnd)
			r.Reference = coalesceStr(r.Reference, old.Reference)
			if r.Name == "" {
				r.Name = old.Name
			}
		}
		t.s.tournaments[r.ID] = r
	}
	return nil
}

// SeriesStore implements scrape.RecordStore for tournament series.
type SeriesStore struct{ s *Store }

// Series returns the series table.
func (s *Store) Series() *SeriesStore { return &SeriesStore{s: s} }

// UpsertBatch implements scrape.RecordStore.
func (ss *SeriesStore) UpsertBatch(_ context.Context, records []scrape.TournamentSeries) error {
	ss.s.mu.Lock()
	defer ss.s.mu.Unlock()
	for _, r := range records {
		key := seriesKey(r)
		if old, ok := ss.s.series[key]; ok {
			r.Date = coalesceStr(r.Date, old.Date)
			r.Time = coalesceStr(r.Time, old.Time)
		}
		ss.s.series[key] = r
	}
	return nil
}

// RankingRows returns the stored standings ordered by key. Test helper.
func (s *Store) RankingRows() []scrape.TeamRanking {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]scrape.TeamRanking, 0, len(s.rankings))
	for _, r := range s.rankings {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return rankingKey(out[i]) < rankingKey(out[j]) })
	return out
}

// PlayerByLicence looks up one stored player.
func (s *Store) PlayerByLicence(licence string) (scrape.Player, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.players[licence]
	return p, ok
}

// Counts reports the size of every table, keyed by table name.
func (s *Store) Counts() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]int{
		"divisions":         len(s.divisions),
		"team_rankings":     len(s.rankings),
		"clubs":             len(s.clubs),
		"players":           len(s.players),
		"tournaments":       len(s.tournaments),
		"tournament_series": len(s.series),
	}
}
