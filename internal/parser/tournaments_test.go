package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/afttdata/aftt-sync/internal/scrape"
)

const calendarPageHTML = `
<html><body>
<table>
  <tr><th>Nom</th><th>Niveau</th><th>Date</th><th>Réf.</th><th>Nombre Séries</th><th>Actions</th></tr>
  <tr>
    <td>Tournoi de Schaerbeek</td><td>B</td><td>05/07/2025</td><td>T-2025-014</td><td>12</td>
    <td><a href="/?menu=7&amp;viewseries=1&amp;t_id=1843">Séries</a></td>
  </tr>
  <tr>
    <td>Open de Virton</td><td>A</td><td>26/07-27/07/2025</td><td></td><td>18</td>
    <td><a href="/?menu=7&amp;viewseries=1&amp;t_id=1850">Séries</a></td>
  </tr>
  <tr><td colspan="6"><a href="/?menu=7&amp;cur_page=2">2</a> <a href="/?menu=7&amp;cur_page=3">3</a></td></tr>
</table>
</body></html>`

const seriesPageHTML = `
<html><body>
<table>
  <tr><th>Date</th><th>Heure</th><th>Série</th><th>Nombre Inscriptions</th><th>Actions</th></tr>
  <tr><td>05/07/2025</td><td>09:30</td><td>Série A - NC à E2</td><td>36 / 36</td><td></td></tr>
  <tr><td>05/07/2025</td><td>13:00</td><td>Série B - E0 à D4</td><td>21</td><td></td></tr>
  <tr><td>05/07/2025</td><td>15:00</td><td></td><td>0 / 24</td><td></td></tr>
</table>
</body></html>`

func TestTournamentCalendar(t *testing.T) {
	t.Parallel()

	tournaments, err := TournamentCalendar(snap(calendarPageHTML))
	require.NoError(t, err)
	require.Len(t, tournaments, 2)

	first := tournaments[0]
	require.Equal(t, 1843, first.ID)
	require.Equal(t, "Tournoi de Schaerbeek", first.Name)
	require.NotNil(t, first.Level)
	require.Equal(t, "B", *first.Level)
	require.NotNil(t, first.Reference)
	require.Equal(t, "T-2025-014", *first.Reference)
	require.Equal(t, 12, first.SeriesCount)
	require.NotNil(t, first.DateStart)
	require.Equal(t, "05/07/2025", *first.DateStart)
	require.Equal(t, "05/07/2025", *first.DateEnd)

	// A weekend tournament carries a date range; the year applies to both
	// ends. Empty reference stays nil.
	second := tournaments[1]
	require.Equal(t, 1850, second.ID)
	require.Nil(t, second.Reference)
	require.NotNil(t, second.DateStart)
	require.Equal(t, "26/07/2025", *second.DateStart)
	require.Equal(t, "27/07/2025", *second.DateEnd)
}

func TestTournamentCalendar_TableMissing(t *testing.T) {
	t.Parallel()

	_, err := TournamentCalendar(snap("<html><body><table><tr><th>Date</th></tr></table></body></html>"))
	require.Error(t, err)
}

func TestCalendarPageCount(t *testing.T) {
	t.Parallel()

	pages, err := CalendarPageCount(snap(calendarPageHTML))
	require.NoError(t, err)
	require.Equal(t, 3, pages)

	pages, err = CalendarPageCount(snap("<html><body></body></html>"))
	require.NoError(t, err)
	require.Equal(t, 1, pages)
}

func TestTournamentSeries(t *testing.T) {
	t.Parallel()

	series, err := TournamentSeries(snap(seriesPageHTML), scrape.TournamentItem{TournamentID: 1843})
	require.NoError(t, err)

	// The unnamed row is dropped.
	require.Len(t, series, 2)

	full := series[0]
	require.Equal(t, 1843, full.TournamentID)
	require.Equal(t, "Série A - NC à E2", full.Name)
	require.NotNil(t, full.Date)
	require.Equal(t, "05/07/2025", *full.Date)
	require.NotNil(t, full.Time)
	require.Equal(t, "09:30", *full.Time)
	require.Equal(t, 36, full.InscriptionsCount)
	require.Equal(t, 36, full.InscriptionsMax)

	// A bare count has no stated capacity.
	bare := series[1]
	require.Equal(t, 21, bare.InscriptionsCount)
	require.Equal(t, 0, bare.InscriptionsMax)
}

func TestTournamentSeries_NoTableIsEmpty(t *testing.T) {
	t.Parallel()

	series, err := TournamentSeries(snap("<html><body></body></html>"), scrape.TournamentItem{TournamentID: 9})
	require.NoError(t, err)
	require.Empty(t, series)
}
