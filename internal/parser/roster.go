package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/afttdata/aftt-sync/internal/scrape"
)

var (
	clubOptionRe = regexp.MustCompile(`^([A-Za-z0-9\-_]+)\s*-\s*(.+)$`)
	licenceIDRe  = regexp.MustCompile(`licenceID=(\d+)`)
	licenceNumRe = regexp.MustCompile(`\b(\d{6})\b`)
)

// provinceByPrefix maps club code prefixes to provinces. Codes are assigned
// by federation wing, so the prefix is the only province signal the site
// exposes. Longest prefix wins: "Lx" before "L".
var provinceByPrefix = map[string]string{
	"A":    "Antwerpen",
	"BBW":  "Brabant Wallon / Bruxelles",
	"H":    "Hainaut",
	"L":    "Liège",
	"Lx":   "Luxembourg",
	"N":    "Namur",
	"OVL":  "Oost-Vlaanderen",
	"Vl-B": "Vlaams-Brabant",
	"WVL":  "West-Vlaanderen",
	"VTTL": "VTTL (Fédération Flamande)",
	"AFTT": "AFTT (Fédération Francophone)",
	"FR":   "France (mutation)",
}

// ProvinceForClubCode derives the province from the club code prefix, or nil
// when no known prefix matches.
func ProvinceForClubCode(code string) *string {
	var best string
	var bestLen int
	upper := strings.ToUpper(code)
	for prefix, province := range provinceByPrefix {
		if len(prefix) > bestLen && strings.HasPrefix(upper, strings.ToUpper(prefix)) {
			best = province
			bestLen = len(prefix)
		}
	}
	if bestLen == 0 {
		return nil
	}
	return &best
}

// ClubDirectory extracts the club catalog from the club select box. Options
// read "CODE - NAME"; placeholders and malformed entries are skipped.
func ClubDirectory(snap scrape.PageSnapshot) ([]scrape.Club, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(snap.HTML))
	if err != nil {
		return nil, fmt.Errorf("parse club page: %w", err)
	}

	sel := doc.Find("select").First()
	if sel.Length() == 0 {
		return nil, fmt.Errorf("club page has no select element")
	}

	var clubs []scrape.Club
	seen := make(map[string]bool)
	sel.Find("option").Each(func(_ int, opt *goquery.Selection) {
		text := strings.TrimSpace(opt.Text())
		if text == "" || strings.HasPrefix(text, "--") {
			return
		}
		m := clubOptionRe.FindStringSubmatch(text)
		if m == nil {
			return
		}
		code := strings.TrimSpace(m[1])
		name := strings.TrimSpace(m[2])
		if code == "" || name == "" || seen[code] {
			return
		}
		seen[code] = true
		clubs = append(clubs, scrape.Club{
			Code:     code,
			Name:     name,
			Province: ProvinceForClubCode(code),
		})
	})
	if len(clubs) == 0 {
		return nil, fmt.Errorf("club select has no usable options")
	}
	return clubs, nil
}

// ClubMembers parses a club's member listing page. Players come from two
// ranking datatables (men and women), columns:
//
//	Pos | Pos N or "Inactive" | Nom | Clt. | Club | Match | Points | Action
//
// The licence hides in the action link (fiche.php?licenceID=N) with a bare
// six-digit fallback. Rows without a licence are dropped: licence is the
// natural key.
func ClubMembers(snap scrape.PageSnapshot, item scrape.ClubItem) ([]scrape.Player, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(snap.HTML))
	if err != nil {
		return nil, fmt.Errorf("parse members page: %w", err)
	}

	var players []scrape.Player
	for _, t := range []struct {
		id     string
		gender string
	}{
		{"datatable-messieurs", "M"},
		{"datatable-dames", "F"},
	} {
		table := doc.Find("#" + t.id)
		if table.Length() == 0 {
			continue
		}
		players = append(players, parsePlayerTable(table, item.ClubCode, t.gender)...)
	}
	return players, nil
}

func parsePlayerTable(table *goquery.Selection, clubCode, gender string) []scrape.Player {
	var players []scrape.Player
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 7 {
			return
		}
		texts := make([]string, cells.Length())
		cells.Each(func(i int, c *goquery.Selection) {
			texts[i] = strings.TrimSpace(c.Text())
		})

		name := texts[2]
		licence := extractLicence(cells)
		if name == "" || licence == "" {
			return
		}

		p := scrape.Player{
			Licence:  licence,
			Name:     name,
			IsActive: texts[1] != "Inactive",
			Gender:   &gender,
		}
		code := clubCode
		p.ClubCode = &code
		if texts[3] != "" {
			ranking := texts[3]
			p.Ranking = &ranking
		}
		if pos, err := strconv.Atoi(texts[0]); err == nil {
			p.RankingPosition = &pos
		}
		if matches, err := strconv.Atoi(texts[5]); err == nil {
			p.Matches = &matches
		}
		if points, err := strconv.ParseFloat(texts[6], 64); err == nil {
			p.PointsCurrent = &points
		}
		players = append(players, p)
	})
	return players
}

// extractLicence digs the licence number out of the action cell: first the
// licenceID query parameter of the detail link, then a hidden form input,
// then any six-digit run anywhere in the row.
func extractLicence(cells *goquery.Selection) string {
	action := cells.Eq(7)
	if action.Length() > 0 {
		if href, ok := action.Find("a").First().Attr("href"); ok {
			if m := licenceIDRe.FindStringSubmatch(href); m != nil {
				return m[1]
			}
			if m := licenceNumRe.FindStringSubmatch(href); m != nil {
				return m[1]
			}
		}
		if value, ok := action.Find(`form input[name="licence"]`).Attr("value"); ok && value != "" {
			return value
		}
	}
	if html, err := goquery.OuterHtml(cells.Parent()); err == nil {
		if m := licenceNumRe.FindStringSubmatch(html); m != nil {
			return m[1]
		}
	}
	return ""
}
