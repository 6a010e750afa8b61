// Package parser turns fetched page snapshots into domain records. Each
// parser is a pure function of the HTML, so all of them are testable against
// fixture pages without any browser or network.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/afttdata/aftt-sync/internal/scrape"
)

// Divisions extracts the division catalog from the rankings entry page. The
// positional option index is the division's identity: the remote form
// navigates by selectedIndex, not by option value.
func Divisions(snap scrape.PageSnapshot) ([]scrape.Division, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(snap.HTML))
	if err != nil {
		return nil, fmt.Errorf("parse rankings page: %w", err)
	}

	sel := doc.Find("select#divisionSelect")
	if sel.Length() == 0 {
		return nil, fmt.Errorf("rankings page has no division select")
	}

	var divisions []scrape.Division
	sel.Find("option").Each(func(i int, opt *goquery.Selection) {
		text := strings.TrimSpace(opt.Text())
		if text == "" || strings.HasPrefix(text, "--") || strings.Contains(text, "lectionner") {
			return
		}
		div := scrape.Division{DivisionIndex: i, Name: text}
		if value, ok := opt.Attr("value"); ok && strings.TrimSpace(value) != "" {
			v := strings.TrimSpace(value)
			div.DivisionID = &v
		}
		div.Category, div.Gender = splitDivisionName(text)
		divisions = append(divisions, div)
	})
	if len(divisions) == 0 {
		return nil, fmt.Errorf("division select has no usable options")
	}
	return divisions, nil
}

// splitDivisionName pulls category and gender out of names shaped like
// "Super Division - Messieurs". Names without the separator keep nil parts.
func splitDivisionName(name string) (category, gender *string) {
	parts := strings.SplitN(name, " - ", 2)
	if len(parts) != 2 {
		return nil, nil
	}
	c := strings.TrimSpace(parts[0])
	g := strings.TrimSpace(parts[1])
	if c != "" {
		category = &c
	}
	if g != "" {
		gender = &g
	}
	return category, gender
}

// Rankings builds the standings parser for a known division catalog. Some
// divisions (cup draws) render no standings table at all; that parses to zero
// records, which the engine treats as success.
func Rankings(divisionNames map[int]string) scrape.Parser[scrape.DivisionWeek, scrape.TeamRanking] {
	return func(snap scrape.PageSnapshot, item scrape.DivisionWeek) ([]scrape.TeamRanking, error) {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(snap.HTML))
		if err != nil {
			return nil, fmt.Errorf("parse standings page: %w", err)
		}

		table := findStandingsTable(doc)
		if table == nil {
			return nil, nil
		}

		var rankings []scrape.TeamRanking
		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("td")
			if cells.Length() < 8 {
				return
			}
			texts := make([]string, cells.Length())
			cells.Each(func(i int, c *goquery.Selection) {
				texts[i] = strings.TrimSpace(c.Text())
			})

			team := texts[1]
			if team == "" {
				return
			}

			r := scrape.TeamRanking{
				DivisionIndex: item.DivisionIndex,
				DivisionName:  divisionNames[item.DivisionIndex],
				Week:          item.Week,
				TeamName:      team,
				Played:        atoiOrZero(texts[2]),
				Wins:          atoiOrZero(texts[3]),
				Losses:        atoiOrZero(texts[4]),
				Draws:         atoiOrZero(texts[5]),
				Forfeits:      atoiOrZero(texts[6]),
			}
			if rank, err := strconv.Atoi(texts[0]); err == nil {
				r.Rank = &rank
			}
			if pts, err := strconv.Atoi(texts[7]); err == nil {
				r.Points = &pts
			}
			rankings = append(rankings, r)
		})
		return rankings, nil
	}
}

// findStandingsTable locates the standings table: the bootstrap "table" class
// when present, otherwise any table whose headers mention a team column. A
// table without a team header is a results grid, not standings.
func findStandingsTable(doc *goquery.Document) *goquery.Selection {
	candidate := doc.Find("table.table").First()
	if candidate.Length() == 0 {
		doc.Find("table").EachWithBreak(func(_ int, t *goquery.Selection) bool {
			if tableHasHeader(t, "equipe", "équipe", "team", "pts") {
				candidate = t
				return false
			}
			return true
		})
	}
	if candidate.Length() == 0 {
		return nil
	}
	if !tableHasHeader(candidate, "equipe", "équipe", "team") {
		return nil
	}
	return candidate
}

func tableHasHeader(table *goquery.Selection, names ...string) bool {
	found := false
	table.Find("th").EachWithBreak(func(_ int, th *goquery.Selection) bool {
		text := strings.ToLower(strings.TrimSpace(th.Text()))
		for _, name := range names {
			if text == name {
				found = true
				return false
			}
		}
		return true
	})
	return found
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
