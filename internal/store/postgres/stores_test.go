package postgres

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/afttdata/aftt-sync/internal/scrape"
)

func newMockDB(t *testing.T) (*DB, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	db, err := NewWithPool(mock)
	require.NoError(t, err)
	return db, mock
}

func TestRankingUpsert_BatchInOneTransaction(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)

	rank := 1
	points := 9
	rows := []scrape.TeamRanking{
		{
			DivisionIndex: 3, DivisionName: "Division 1A - Messieurs", Week: 7,
			Rank: &rank, TeamName: "Logis Auderghem A",
			Played: 5, Wins: 4, Losses: 0, Draws: 1, Forfeits: 0, Points: &points,
		},
		{
			DivisionIndex: 3, DivisionName: "Division 1A - Messieurs", Week: 7,
			TeamName: "Villette Charleroi A",
			Played:   4, Wins: 0, Losses: 4, Draws: 0, Forfeits: 1,
		},
	}

	mock.ExpectBegin()
	for _, r := range rows {
		mock.ExpectExec("INSERT INTO team_rankings").
			WithArgs(
				r.DivisionIndex, r.DivisionName, r.Week, r.Rank, r.TeamName,
				r.Played, r.Wins, r.Losses, r.Draws, r.Forfeits, r.Points,
			).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	mock.ExpectCommit()

	require.NoError(t, db.Rankings().UpsertBatch(context.Background(), rows))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRankingUpsert_NullableColumnsMergeWithCoalesce(t *testing.T) {
	t.Parallel()

	// A re-fetch with a null points cell must keep the stored value; a
	// non-null one overwrites. Observed counters always overwrite.
	require.Contains(t, upsertRankingSQL, "points = COALESCE(EXCLUDED.points, team_rankings.points)")
	require.Contains(t, upsertRankingSQL, "rank = COALESCE(EXCLUDED.rank, team_rankings.rank)")
	require.Contains(t, upsertRankingSQL, "played = EXCLUDED.played")
	require.Contains(t, upsertRankingSQL, "ON CONFLICT (division_index, week, team_name)")

	require.Contains(t, upsertPlayerSQL, "ranking = COALESCE(EXCLUDED.ranking, players.ranking)")
	require.Contains(t, upsertClubSQL, "province = COALESCE(EXCLUDED.province, clubs.province)")
	require.Contains(t, upsertTournamentSQL, "level = COALESCE(EXCLUDED.level, tournaments.level)")
}

func TestUpsert_EmptyBatchIsNoOp(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)

	require.NoError(t, db.Rankings().UpsertBatch(context.Background(), nil))
	require.NoError(t, db.Players().UpsertBatch(context.Background(), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert_RowFailureRollsBack(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO tournaments").
		WithArgs(
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := db.Tournaments().UpsertBatch(context.Background(), []scrape.Tournament{{ID: 1843, Name: "Tournoi"}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "connection reset")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPlayerUpsert_Args(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)

	club := "BBW225"
	ranking := "B2"
	points := 712.5
	gender := "M"
	p := scrape.Player{
		Licence: "152174", Name: "DUPONT JEAN",
		ClubCode: &club, Ranking: &ranking, PointsCurrent: &points,
		Gender: &gender, IsActive: true,
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO players").
		WithArgs(
			p.Licence, p.Name, p.ClubCode, p.Ranking, p.Category,
			p.PointsCurrent, p.RankingPosition, p.Matches, p.Gender, p.IsActive,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, db.Players().UpsertBatch(context.Background(), []scrape.Player{p}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS divisions").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, db.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())

	// Every record table ships in the schema.
	for _, table := range []string{"divisions", "team_rankings", "clubs", "players", "tournaments", "tournament_series"} {
		require.True(t, strings.Contains(schemaSQL, "CREATE TABLE IF NOT EXISTS "+table), table)
	}
}
