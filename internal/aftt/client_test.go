package aftt

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient(ClientConfig{
		ClubCatalogURL: srv.URL + "/interclubs/rankings.php",
		ClubRankingURL: srv.URL + "/ranking/clubs.php",
		TournamentsURL: srv.URL + "/",
	})
	return client
}

func TestClient_ClubPagePostsClubCode(t *testing.T) {
	t.Parallel()

	var gotCode string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		gotCode = r.PostFormValue("club")
		_, _ = w.Write([]byte("<html><body>ok</body></html>"))
	})

	snap, err := client.ClubPage(context.Background(), "BBW225")
	require.NoError(t, err)
	require.Equal(t, "BBW225", gotCode)
	require.Contains(t, snap.HTML, "ok")
	require.False(t, snap.FetchedAt.IsZero())
}

func TestClient_TournamentDetailQuery(t *testing.T) {
	t.Parallel()

	var gotQuery map[string]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"menu":       r.URL.Query().Get("menu"),
			"viewseries": r.URL.Query().Get("viewseries"),
			"t_id":       r.URL.Query().Get("t_id"),
		}
		_, _ = w.Write([]byte("<html></html>"))
	})

	_, err := client.TournamentDetail(context.Background(), 1843)
	require.NoError(t, err)
	require.Equal(t, map[string]string{"menu": "7", "viewseries": "1", "t_id": "1843"}, gotQuery)
}

func TestClient_CalendarFirstPageHasNoPageParam(t *testing.T) {
	t.Parallel()

	var rawQuery string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		_, _ = w.Write([]byte("<html></html>"))
	})

	_, err := client.TournamentCalendarPage(context.Background(), 1)
	require.NoError(t, err)
	require.NotContains(t, rawQuery, "cur_page")

	_, err = client.TournamentCalendarPage(context.Background(), 3)
	require.NoError(t, err)
	require.Contains(t, rawQuery, "cur_page=3")
}

func TestClient_ServerErrorSurfaces(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.ClubCatalog(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "502")
}
