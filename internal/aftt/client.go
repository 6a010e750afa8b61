package aftt

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/afttdata/aftt-sync/internal/scrape"
)

// Page URLs of the plain-HTML parts of the federation sites.
const (
	ClubCatalogURL = "https://data.aftt.be/interclubs/rankings.php"
	ClubRankingURL = "https://data.aftt.be/ranking/clubs.php"
	TournamentsURL = "https://resultats.aftt.be/"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// ClientConfig controls the plain-HTTP client.
type ClientConfig struct {
	ClubCatalogURL string
	ClubRankingURL string
	TournamentsURL string
	UserAgent      string
	Timeout        time.Duration
}

func (c *ClientConfig) applyDefaults() {
	if c.ClubCatalogURL == "" {
		c.ClubCatalogURL = ClubCatalogURL
	}
	if c.ClubRankingURL == "" {
		c.ClubRankingURL = ClubRankingURL
	}
	if c.TournamentsURL == "" {
		c.TournamentsURL = TournamentsURL
	}
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
}

// Client fetches the club and tournament pages. These pages keep no session
// state, so one Client serves any number of crawls.
type Client struct {
	cfg  ClientConfig
	http *resty.Client
}

// NewClient builds the HTTP client. Retries are owned by the crawl engine,
// so the client itself never retries.
func NewClient(cfg ClientConfig) *Client {
	cfg.applyDefaults()
	http := resty.New()
	http.SetHeader("user-agent", cfg.UserAgent)
	http.SetHeader("accept-language", "fr-FR,fr;q=0.9,en;q=0.8")
	http.SetTimeout(cfg.Timeout)
	return &Client{cfg: cfg, http: http}
}

// ClubCatalog fetches the page carrying the club select box.
func (c *Client) ClubCatalog(ctx context.Context) (scrape.PageSnapshot, error) {
	return c.get(ctx, c.cfg.ClubCatalogURL, nil)
}

// ClubPage fetches one club's member listing. The remote form posts the club
// code; the response carries the men's and women's ranking datatables.
func (c *Client) ClubPage(ctx context.Context, clubCode string) (scrape.PageSnapshot, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("content-type", "application/x-www-form-urlencoded").
		SetFormData(map[string]string{"club": clubCode}).
		Post(c.cfg.ClubRankingURL)
	if err != nil {
		return scrape.PageSnapshot{}, fmt.Errorf("fetch club %s: %w", clubCode, err)
	}
	return c.snapshot(res)
}

// TournamentCalendarPage fetches one page of the tournament calendar.
func (c *Client) TournamentCalendarPage(ctx context.Context, page int) (scrape.PageSnapshot, error) {
	params := map[string]string{"menu": "7"}
	if page > 1 {
		params["cur_page"] = strconv.Itoa(page)
	}
	return c.get(ctx, c.cfg.TournamentsURL, params)
}

// TournamentDetail fetches the series view of one tournament.
func (c *Client) TournamentDetail(ctx context.Context, tournamentID int) (scrape.PageSnapshot, error) {
	return c.get(ctx, c.cfg.TournamentsURL, map[string]string{
		"menu":       "7",
		"viewseries": "1",
		"t_id":       strconv.Itoa(tournamentID),
	})
}

func (c *Client) get(ctx context.Context, url string, params map[string]string) (scrape.PageSnapshot, error) {
	req := c.http.R().SetContext(ctx)
	if len(params) > 0 {
		req.SetQueryParams(params)
	}
	res, err := req.Get(url)
	if err != nil {
		return scrape.PageSnapshot{}, fmt.Errorf("fetch %s: %w", url, err)
	}
	return c.snapshot(res)
}

func (c *Client) snapshot(res *resty.Response) (scrape.PageSnapshot, error) {
	if res.IsError() {
		return scrape.PageSnapshot{}, fmt.Errorf("fetch %s: status %d", res.Request.URL, res.StatusCode())
	}
	return scrape.PageSnapshot{
		URL:       res.Request.URL,
		HTML:      string(res.Body()),
		FetchedAt: time.Now().UTC(),
	}, nil
}

// ClubNavigator adapts Client to the roster crawl space. Reset is a no-op:
// plain GET/POST requests carry no session to recover.
type ClubNavigator struct {
	client *Client
}

// NewClubNavigator wraps the client for a roster crawl.
func NewClubNavigator(client *Client) *ClubNavigator {
	return &ClubNavigator{client: client}
}

// Navigate implements scrape.Navigator.
func (n *ClubNavigator) Navigate(ctx context.Context, item scrape.ClubItem) (scrape.PageSnapshot, error) {
	return n.client.ClubPage(ctx, item.ClubCode)
}

// Reset implements scrape.Navigator.
func (n *ClubNavigator) Reset(_ context.Context) error { return nil }

// TournamentNavigator adapts Client to the tournament crawl space.
type TournamentNavigator struct {
	client *Client
}

// NewTournamentNavigator wraps the client for a tournament crawl.
func NewTournamentNavigator(client *Client) *TournamentNavigator {
	return &TournamentNavigator{client: client}
}

// Navigate implements scrape.Navigator.
func (n *TournamentNavigator) Navigate(ctx context.Context, item scrape.TournamentItem) (scrape.PageSnapshot, error) {
	return n.client.TournamentDetail(ctx, item.TournamentID)
}

// Reset implements scrape.Navigator.
func (n *TournamentNavigator) Reset(_ context.Context) error { return nil }
