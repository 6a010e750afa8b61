// Package scrape defines the domain types and ports shared across the sync
// engine, the remote-site adapters and the persistence layer.
package scrape

import (
	"fmt"
	"time"
)

// Family identifies a job family. At most one job per family runs at a time.
type Family string

// Known job families.
const (
	FamilyRankings    Family = "rankings"
	FamilyRosters     Family = "rosters"
	FamilyTournaments Family = "tournaments"
)

// ParseFamily validates an operator-supplied family name.
func ParseFamily(s string) (Family, error) {
	switch Family(s) {
	case FamilyRankings, FamilyRosters, FamilyTournaments:
		return Family(s), nil
	default:
		return "", fmt.Errorf("unknown family %q", s)
	}
}

// PageSnapshot is the rendered HTML of one remote page, handed from a
// navigator to a parser.
type PageSnapshot struct {
	URL       string
	HTML      string
	FetchedAt time.Time
}

// DivisionWeek is one coordinate of the rankings crawl space. The space is
// ordered lexicographically by (DivisionIndex, Week).
type DivisionWeek struct {
	DivisionIndex int `json:"division_index"`
	Week          int `json:"week"`
}

// Key returns the stable coordinate label used for logs and checkpoints.
func (w DivisionWeek) Key() string {
	return fmt.Sprintf("division=%d week=%d", w.DivisionIndex, w.Week)
}

// ClubItem is one coordinate of the roster crawl space, ordered by club code.
type ClubItem struct {
	ClubCode string `json:"club_code"`
}

// Key implements engine.Item.
func (c ClubItem) Key() string { return "club=" + c.ClubCode }

// TournamentItem is one coordinate of the tournament crawl space, ordered by
// tournament id.
type TournamentItem struct {
	TournamentID int `json:"tournament_id"`
}

// Key implements engine.Item.
func (t TournamentItem) Key() string { return fmt.Sprintf("tournament=%d", t.TournamentID) }

// Division is one entry of the division catalog extracted from the rankings
// page select box. DivisionIndex is the positional index in the select, which
// is what the remote form navigates by.
type Division struct {
	DivisionIndex int
	DivisionID    *string
	Name          string
	Category      *string
	Gender        *string
}

// TeamRanking is one row of a division/week standings table. The natural key
// is (DivisionIndex, Week, TeamName). Nullable columns use pointers so the
// store's merge policy can tell "absent" from zero.
type TeamRanking struct {
	DivisionIndex int
	DivisionName  string
	Week          int
	Rank          *int
	TeamName      string
	Played        int
	Wins          int
	Losses        int
	Draws         int
	Forfeits      int
	Points        *int
}

// Club is one row of the club directory, keyed by club code.
type Club struct {
	Code         string
	Name         string
	Province     *string
	Email        *string
	Phone        *string
	Website      *string
	VenueName    *string
	VenueAddress *string
	TeamsMen     int
	TeamsWomen   int
	TeamsYouth   int
	TeamsVets    int
}

// Player is one member of a club roster, keyed by licence number.
type Player struct {
	Licence         string
	Name            string
	ClubCode        *string
	Ranking         *string
	Category        *string
	PointsCurrent   *float64
	RankingPosition *int
	Matches         *int
	Gender          *string
	IsActive        bool
}

// Tournament is one entry of the tournament calendar, keyed by the remote
// tournament id.
type Tournament struct {
	ID          int
	Name        string
	Level       *string
	DateStart   *string
	DateEnd     *string
	Reference   *string
	SeriesCount int
}

// TournamentSeries is one series row of a tournament detail page, keyed by
// (TournamentID, Name).
type TournamentSeries struct {
	TournamentID      int
	Name              string
	Date              *string
	Time              *string
	InscriptionsCount int
	InscriptionsMax   int
}
