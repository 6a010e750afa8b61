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
	tournamentIDRe = regexp.MustCompile(`t_id=(\d+)`)
	pageNumberRe   = regexp.MustCompile(`cur_page=(\d+)`)
	dateRangeRe    = regexp.MustCompile(`^(\d{2}/\d{2})-(\d{2}/\d{2})/(\d{4})$`)
	simpleDateRe   = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)
	inscriptionsRe = regexp.MustCompile(`^(\d+)\s*/\s*(\d+)`)
)

// TournamentCalendar extracts one page of the tournament calendar. The table
// is identified by its Nom and Niveau headers; columns are
//
//	Nom | Niveau | Date | Réf. | Nombre Séries | Actions
//
// and the tournament id comes from the action links (t_id query parameter).
// Rows without an id or a name (pagination rows included) are skipped.
func TournamentCalendar(snap scrape.PageSnapshot) ([]scrape.Tournament, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(snap.HTML))
	if err != nil {
		return nil, fmt.Errorf("parse tournament calendar: %w", err)
	}

	table := findTableWithHeaders(doc, "Nom", "Niveau")
	if table == nil {
		return nil, fmt.Errorf("tournament calendar table not found")
	}

	var tournaments []scrape.Tournament
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 5 {
			return
		}
		texts := make([]string, cells.Length())
		cells.Each(func(i int, c *goquery.Selection) {
			texts[i] = strings.TrimSpace(c.Text())
		})

		id := 0
		if cells.Length() > 5 {
			cells.Eq(5).Find("a").EachWithBreak(func(_ int, link *goquery.Selection) bool {
				href, _ := link.Attr("href")
				if m := tournamentIDRe.FindStringSubmatch(href); m != nil {
					id, _ = strconv.Atoi(m[1])
					return false
				}
				return true
			})
		}
		if id == 0 || texts[0] == "" {
			return
		}

		t := scrape.Tournament{
			ID:          id,
			Name:        texts[0],
			SeriesCount: atoiOrZero(texts[4]),
		}
		if texts[1] != "" {
			level := texts[1]
			t.Level = &level
		}
		if texts[3] != "" {
			ref := texts[3]
			t.Reference = &ref
		}
		t.DateStart, t.DateEnd = parseDateRange(texts[2])
		tournaments = append(tournaments, t)
	})
	return tournaments, nil
}

// CalendarPageCount reads the highest page number out of the calendar's
// pagination links. A page without pagination is a single page.
func CalendarPageCount(snap scrape.PageSnapshot) (int, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(snap.HTML))
	if err != nil {
		return 0, fmt.Errorf("parse tournament calendar: %w", err)
	}

	max := 1
	doc.Find("a").Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		if m := pageNumberRe.FindStringSubmatch(href); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > max {
				max = n
			}
		}
	})
	return max, nil
}

// TournamentSeries parses the series table of a tournament detail page,
// columns Date | Heure | Série | Nombre Inscriptions. The inscriptions cell
// reads "36 / 36" (current over capacity) or a bare count.
func TournamentSeries(snap scrape.PageSnapshot, item scrape.TournamentItem) ([]scrape.TournamentSeries, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(snap.HTML))
	if err != nil {
		return nil, fmt.Errorf("parse tournament detail: %w", err)
	}

	table := findTableWithHeaders(doc, "Série")
	if table == nil {
		table = findTableWithHeaders(doc, "Date", "Heure")
	}
	if table == nil {
		return nil, nil
	}

	var series []scrape.TournamentSeries
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 4 {
			return
		}
		texts := make([]string, cells.Length())
		cells.Each(func(i int, c *goquery.Selection) {
			texts[i] = strings.TrimSpace(c.Text())
		})

		name := texts[2]
		if name == "" {
			return
		}

		s := scrape.TournamentSeries{
			TournamentID: item.TournamentID,
			Name:         name,
		}
		if texts[0] != "" {
			date := texts[0]
			s.Date = &date
		}
		if texts[1] != "" {
			hour := texts[1]
			s.Time = &hour
		}
		if m := inscriptionsRe.FindStringSubmatch(texts[3]); m != nil {
			s.InscriptionsCount, _ = strconv.Atoi(m[1])
			s.InscriptionsMax, _ = strconv.Atoi(m[2])
		} else if n, err := strconv.Atoi(texts[3]); err == nil {
			s.InscriptionsCount = n
		}
		series = append(series, s)
	})
	return series, nil
}

// parseDateRange splits "26/07-27/07/2025" into start and end; a simple
// "05/07/2025" is both. Anything else passes through verbatim rather than be
// lost.
func parseDateRange(s string) (start, end *string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if m := dateRangeRe.FindStringSubmatch(s); m != nil {
		a := m[1] + "/" + m[3]
		b := m[2] + "/" + m[3]
		return &a, &b
	}
	if simpleDateRe.MatchString(s) {
		return &s, &s
	}
	return &s, &s
}

// findTableWithHeaders returns the first table whose th texts include every
// given name, or nil.
func findTableWithHeaders(doc *goquery.Document, names ...string) *goquery.Selection {
	var found *goquery.Selection
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		headers := make(map[string]bool)
		table.Find("th").Each(func(_ int, th *goquery.Selection) {
			headers[strings.TrimSpace(th.Text())] = true
		})
		for _, name := range names {
			if !headers[name] {
				return true
			}
		}
		found = table
		return false
	})
	return found
}
