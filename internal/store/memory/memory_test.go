package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/afttdata/aftt-sync/internal/scrape"
)

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func TestRankingMergePolicy(t *testing.T) {
	t.Parallel()

	store := New()
	ctx := context.Background()

	first := scrape.TeamRanking{
		DivisionIndex: 3, Week: 7, TeamName: "A",
		Played: 5, Points: intPtr(9), Rank: intPtr(1),
	}
	require.NoError(t, store.Rankings().UpsertBatch(ctx, []scrape.TeamRanking{first}))

	// Null points keeps the stored 9; counters overwrite.
	second := scrape.TeamRanking{DivisionIndex: 3, Week: 7, TeamName: "A", Played: 6}
	require.NoError(t, store.Rankings().UpsertBatch(ctx, []scrape.TeamRanking{second}))

	rows := store.RankingRows()
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].Points)
	require.Equal(t, 9, *rows[0].Points)
	require.Equal(t, 6, rows[0].Played)

	// Non-null points overwrites.
	third := scrape.TeamRanking{DivisionIndex: 3, Week: 7, TeamName: "A", Played: 7, Points: intPtr(12)}
	require.NoError(t, store.Rankings().UpsertBatch(ctx, []scrape.TeamRanking{third}))
	rows = store.RankingRows()
	require.Equal(t, 12, *rows[0].Points)
}

func TestRankingNaturalKeyNoDuplicates(t *testing.T) {
	t.Parallel()

	store := New()
	ctx := context.Background()

	batch := []scrape.TeamRanking{
		{DivisionIndex: 3, Week: 7, TeamName: "A"},
		{DivisionIndex: 3, Week: 7, TeamName: "B"},
		{DivisionIndex: 3, Week: 8, TeamName: "A"},
	}
	require.NoError(t, store.Rankings().UpsertBatch(ctx, batch))
	require.NoError(t, store.Rankings().UpsertBatch(ctx, batch)) // replay

	require.Equal(t, 3, store.Counts()["team_rankings"])
}

func TestPlayerMergeKeepsFieldsAcrossPartialFetches(t *testing.T) {
	t.Parallel()

	store := New()
	ctx := context.Background()

	full := scrape.Player{
		Licence: "152174", Name: "DUPONT JEAN",
		ClubCode: strPtr("BBW225"), Ranking: strPtr("B2"), IsActive: true,
	}
	require.NoError(t, store.Players().UpsertBatch(ctx, []scrape.Player{full}))

	// A later fetch from another page knows the category but not the club.
	partial := scrape.Player{Licence: "152174", Name: "DUPONT JEAN", Category: strPtr("SEN"), IsActive: true}
	require.NoError(t, store.Players().UpsertBatch(ctx, []scrape.Player{partial}))

	got, ok := store.PlayerByLicence("152174")
	require.True(t, ok)
	require.NotNil(t, got.ClubCode)
	require.Equal(t, "BBW225", *got.ClubCode)
	require.NotNil(t, got.Category)
	require.Equal(t, "SEN", *got.Category)
}

func TestCountsCoverAllTables(t *testing.T) {
	t.Parallel()

	store := New()
	ctx := context.Background()

	require.NoError(t, store.Divisions().UpsertBatch(ctx, []scrape.Division{{DivisionIndex: 1, Name: "D"}}))
	require.NoError(t, store.Clubs().UpsertBatch(ctx, []scrape.Club{{Code: "H004", Name: "Palette"}}))
	require.NoError(t, store.Tournaments().UpsertBatch(ctx, []scrape.Tournament{{ID: 1843, Name: "T"}}))
	require.NoError(t, store.Series().UpsertBatch(ctx, []scrape.TournamentSeries{{TournamentID: 1843, Name: "A"}}))

	counts := store.Counts()
	require.Equal(t, 1, counts["divisions"])
	require.Equal(t, 1, counts["clubs"])
	require.Equal(t, 1, counts["tournaments"])
	require.Equal(t, 1, counts["tournament_series"])
}
