package postgres

import (
	"context"

	"github.com/afttdata/aftt-sync/internal/scrape"
)

const upsertDivisionSQL = `
INSERT INTO divisions (division_index, division_id, name, category, gender, updated_at)
VALUES ($1, $2, $3, $4, $5, now())
ON CONFLICT (division_index) DO UPDATE SET
	division_id = COALESCE(EXCLUDED.division_id, divisions.division_id),
	name = COALESCE(EXCLUDED.name, divisions.name),
	category = COALESCE(EXCLUDED.category, divisions.category),
	gender = COALESCE(EXCLUDED.gender, divisions.gender),
	updated_at = now()`

const upsertRankingSQL = `
INSERT INTO team_rankings (division_index, division_name, week, rank, team_name,
	played, wins, losses, draws, forfeits, points, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now())
ON CONFLICT (division_index, week, team_name) DO UPDATE SET
	division_name = COALESCE(EXCLUDED.division_name, team_rankings.division_name),
	rank = COALESCE(EXCLUDED.rank, team_rankings.rank),
	played = EXCLUDED.played,
	wins = EXCLUDED.wins,
	losses = EXCLUDED.losses,
	draws = EXCLUDED.draws,
	forfeits = EXCLUDED.forfeits,
	points = COALESCE(EXCLUDED.points, team_rankings.points),
	updated_at = now()`

const upsertClubSQL = `
INSERT INTO clubs (code, name, province, email, phone, website,
	venue_name, venue_address, teams_men, teams_women, teams_youth, teams_vets, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now())
ON CONFLICT (code) DO UPDATE SET
	name = COALESCE(EXCLUDED.name, clubs.name),
	province = COALESCE(EXCLUDED.province, clubs.province),
	email = COALESCE(EXCLUDED.email, clubs.email),
	phone = COALESCE(EXCLUDED.phone, clubs.phone),
	website = COALESCE(EXCLUDED.website, clubs.website),
	venue_name = COALESCE(EXCLUDED.venue_name, clubs.venue_name),
	venue_address = COALESCE(EXCLUDED.venue_address, clubs.venue_address),
	teams_men = EXCLUDED.teams_men,
	teams_women = EXCLUDED.teams_women,
	teams_youth = EXCLUDED.teams_youth,
	teams_vets = EXCLUDED.teams_vets,
	updated_at = now()`

const upsertPlayerSQL = `
INSERT INTO players (licence, name, club_code, ranking, category,
	points_current, ranking_position, matches, gender, is_active, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
ON CONFLICT (licence) DO UPDATE SET
	name = COALESCE(EXCLUDED.name, players.name),
	club_code = COALESCE(EXCLUDED.club_code, players.club_code),
	ranking = COALESCE(EXCLUDED.ranking, players.ranking),
	category = COALESCE(EXCLUDED.category, players.category),
	points_current = COALESCE(EXCLUDED.points_current, players.points_current),
	ranking_position = COALESCE(EXCLUDED.ranking_position, players.ranking_position),
	matches = COALESCE(EXCLUDED.matches, players.matches),
	gender = COALESCE(EXCLUDED.gender, players.gender),
	is_active = EXCLUDED.is_active,
	updated_at = now()`

const upsertTournamentSQL = `
INSERT INTO tournaments (id, name, level, date_start, date_end, reference, series_count, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, now())
ON CONFLICT (id) DO UPDATE SET
	name = COALESCE(EXCLUDED.name, tournaments.name),
	level = COALESCE(EXCLUDED.level, tournaments.level),
	date_start = COALESCE(EXCLUDED.date_start, tournaments.date_start),
	date_end = COALESCE(EXCLUDED.date_end, tournaments.date_end),
	reference = COALESCE(EXCLUDED.reference, tournaments.reference),
	series_count = EXCLUDED.series_count,
	updated_at = now()`

const upsertSeriesSQL = `
INSERT INTO tournament_series (tournament_id, name, date, time,
	inscriptions_count, inscriptions_max, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, now())
ON CONFLICT (tournament_id, name) DO UPDATE SET
	date = COALESCE(EXCLUDED.date, tournament_series.date),
	time = COALESCE(EXCLUDED.time, tournament_series.time),
	inscriptions_count = EXCLUDED.inscriptions_count,
	inscriptions_max = EXCLUDED.inscriptions_max,
	updated_at = now()`

// DivisionStore upserts division catalog rows.
type DivisionStore struct{ db *DB }

// Divisions returns the division store backed by this DB.
func (db *DB) Divisions() *DivisionStore { return &DivisionStore{db: db} }

// UpsertBatch implements scrape.RecordStore.
func (s *DivisionStore) UpsertBatch(ctx context.Context, records []scrape.Division) error {
	return s.db.upsertBatch(ctx, upsertDivisionSQL, len(records), func(i int) []any {
		r := records[i]
		return []any{r.DivisionIndex, r.DivisionID, r.Name, r.Category, r.Gender}
	})
}

// RankingStore upserts standings rows keyed by (division, week, team).
type RankingStore struct{ db *DB }

// Rankings returns the standings store backed by this DB.
func (db *DB) Rankings() *RankingStore { return &RankingStore{db: db} }

// UpsertBatch implements scrape.RecordStore.
func (s *RankingStore) UpsertBatch(ctx context.Context, records []scrape.TeamRanking) error {
	return s.db.upsertBatch(ctx, upsertRankingSQL, len(records), func(i int) []any {
		r := records[i]
		return []any{
			r.DivisionIndex, r.DivisionName, r.Week, r.Rank, r.TeamName,
			r.Played, r.Wins, r.Losses, r.Draws, r.Forfeits, r.Points,
		}
	})
}

// ClubStore upserts club directory rows keyed by club code.
type ClubStore struct{ db *DB }

// Clubs returns the club store backed by this DB.
func (db *DB) Clubs() *ClubStore { return &ClubStore{db: db} }

// UpsertBatch implements scrape.RecordStore.
func (s *ClubStore) UpsertBatch(ctx context.Context, records []scrape.Club) error {
	return s.db.upsertBatch(ctx, upsertClubSQL, len(records), func(i int) []any {
		r := records[i]
		return []any{
			r.Code, r.Name, r.Province, r.Email, r.Phone, r.Website,
			r.VenueName, r.VenueAddress, r.TeamsMen, r.TeamsWomen, r.TeamsYouth, r.TeamsVets,
		}
	})
}

// PlayerStore upserts roster rows keyed by licence.
type PlayerStore struct{ db *DB }

// Players returns the player store backed by this DB.
func (db *DB) Players() *PlayerStore { return &PlayerStore{db: db} }

// UpsertBatch implements scrape.RecordStore.
func (s *PlayerStore) UpsertBatch(ctx context.Context, records []scrape.Player) error {
	return s.db.upsertBatch(ctx, upsertPlayerSQL, len(records), func(i int) []any {
		r := records[i]
		return []any{
			r.Licence, r.Name, r.ClubCode, r.Ranking, r.Category,
			r.PointsCurrent, r.RankingPosition, r.Matches, r.Gender, r.IsActive,
		}
	})
}

// TournamentStore upserts calendar rows keyed by the remote tournament id.
type TournamentStore struct{ db *DB }

// Tournaments returns the tournament store backed by this DB.
func (db *DB) Tournaments() *TournamentStore { return &TournamentStore{db: db} }

// UpsertBatch implements scrape.RecordStore.
func (s *TournamentStore) UpsertBatch(ctx context.Context, records []scrape.Tournament) error {
	return s.db.upsertBatch(ctx, upsertTournamentSQL, len(records), func(i int) []any {
		r := records[i]
		return []any{r.ID, r.Name, r.Level, r.DateStart, r.DateEnd, r.Reference, r.SeriesCount}
	})
}

// SeriesStore upserts tournament series keyed by (tournament, series name).
type SeriesStore struct{ db *DB }

// Series returns the series store backed by this DB.
func (db *DB) Series() *SeriesStore { return &SeriesStore{db: db} }

// UpsertBatch implements scrape.RecordStore.
func (s *SeriesStore) UpsertBatch(ctx context.Context, records []scrape.TournamentSeries) error {
	return s.db.upsertBatch(ctx, upsertSeriesSQL, len(records), func(i int) []any {
		r := records[i]
		return []any{
			r.TournamentID, r.Name, r.Date, r.Time,
			r.InscriptionsCount, r.InscriptionsMax,
		}
	})
}
