package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/afttdata/aftt-sync/internal/scrape"
)

const divisionPageHTML = `
<html><body>
<select id="divisionSelect">
  <option value="">-- Sélectionner une division --</option>
  <option value="4281">Super Division - Messieurs</option>
  <option value="4282">Division 1A - Messieurs</option>
  <option value="4310">Super Division - Dames</option>
  <option value="4400">Coupe AFTT</option>
</select>
</body></html>`

const standingsPageHTML = `
<html><body>
<table class="table table-sm table-striped text-center">
  <tr><th>#</th><th>Equipe</th><th>J</th><th>G</th><th>P</th><th>N</th><th>FF</th><th>Pts</th></tr>
  <tr><td>1</td><td>Logis Auderghem A</td><td>5</td><td>4</td><td>0</td><td>1</td><td>0</td><td>9</td></tr>
  <tr><td>2</td><td>Vedrinamur A</td><td>5</td><td>3</td><td>1</td><td>1</td><td>0</td><td>7</td></tr>
  <tr><td>-</td><td>Villette Charleroi A</td><td>4</td><td>0</td><td>4</td><td>0</td><td>1</td><td></td></tr>
</table>
</body></html>`

const resultsOnlyPageHTML = `
<html><body>
<table class="table">
  <tr><th>Date</th><th>Rencontre</th><th>Score</th><th>x</th><th>x</th><th>x</th><th>x</th><th>x</th></tr>
  <tr><td>01/10</td><td>A - B</td><td>9-7</td><td></td><td></td><td></td><td></td><td></td></tr>
</table>
</body></html>`

func snap(html string) scrape.PageSnapshot {
	return scrape.PageSnapshot{URL: "https://resultats.aftt.be/", HTML: html}
}

func TestDivisions(t *testing.T) {
	t.Parallel()

	divisions, err := Divisions(snap(divisionPageHTML))
	require.NoError(t, err)
	require.Len(t, divisions, 4)

	// The placeholder keeps its slot in the option list, so real divisions
	// start at index 1.
	first := divisions[0]
	require.Equal(t, 1, first.DivisionIndex)
	require.Equal(t, "Super Division - Messieurs", first.Name)
	require.NotNil(t, first.DivisionID)
	require.Equal(t, "4281", *first.DivisionID)
	require.NotNil(t, first.Category)
	require.Equal(t, "Super Division", *first.Category)
	require.NotNil(t, first.Gender)
	require.Equal(t, "Messieurs", *first.Gender)

	// Cup entries have no " - " separator: no category or gender.
	cup := divisions[3]
	require.Equal(t, "Coupe AFTT", cup.Name)
	require.Nil(t, cup.Category)
	require.Nil(t, cup.Gender)
}

func TestDivisions_MissingSelect(t *testing.T) {
	t.Parallel()

	_, err := Divisions(snap("<html><body><p>maintenance</p></body></html>"))
	require.Error(t, err)
}

func TestRankings_ParsesStandingsTable(t *testing.T) {
	t.Parallel()

	parse := Rankings(map[int]string{3: "Division 1A - Messieurs"})
	rows, err := parse(snap(standingsPageHTML), scrape.DivisionWeek{DivisionIndex: 3, Week: 7})
	require.NoError(t, err)
	require.Len(t, rows, 3)

	first := rows[0]
	require.Equal(t, 3, first.DivisionIndex)
	require.Equal(t, "Division 1A - Messieurs", first.DivisionName)
	require.Equal(t, 7, first.Week)
	require.NotNil(t, first.Rank)
	require.Equal(t, 1, *first.Rank)
	require.Equal(t, "Logis Auderghem A", first.TeamName)
	require.Equal(t, 5, first.Played)
	require.Equal(t, 4, first.Wins)
	require.NotNil(t, first.Points)
	require.Equal(t, 9, *first.Points)

	// A dash rank and an empty points cell are absent, not zero.
	forfeited := rows[2]
	require.Nil(t, forfeited.Rank)
	require.Nil(t, forfeited.Points)
	require.Equal(t, 1, forfeited.Forfeits)
}

func TestRankings_NoStandingsTableIsEmpty(t *testing.T) {
	t.Parallel()

	parse := Rankings(nil)
	item := scrape.DivisionWeek{DivisionIndex: 40, Week: 1}

	// Cup divisions render no table at all.
	rows, err := parse(snap("<html><body></body></html>"), item)
	require.NoError(t, err)
	require.Empty(t, rows)

	// A results grid is not a standings table.
	rows, err = parse(snap(resultsOnlyPageHTML), item)
	require.NoError(t, err)
	require.Empty(t, rows)
}
