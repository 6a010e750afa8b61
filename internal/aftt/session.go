// Package aftt adapts the federation's result sites to the scrape ports. The
// rankings site is a stateful JS application driven through a headless
// browser; the club and tournament pages are plain HTML fetched over HTTP.
package aftt

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/afttdata/aftt-sync/internal/scrape"
)

// RankingsURL is the entry page of the interclubs rankings application.
const RankingsURL = "https://data.aftt.be/interclubs/rankings_division.php"

// divisionSubmitJS selects a division by positional index and submits its
// form. The page navigates by selectedIndex; option values are not stable
// across seasons.
const divisionSubmitJS = `(() => {
	const select = document.getElementById('divisionSelect');
	if (select) {
		select.selectedIndex = %d;
		select.dispatchEvent(new Event('change', { bubbles: true }));
		if (select.form) {
			select.form.submit();
		}
	}
})()`

// weekSubmitJS fills the week control and submits the week form. Both the
// input and select variants exist depending on the page build.
const weekSubmitJS = `(() => {
	const weekInput = document.getElementById('week-input');
	const weekSelect = document.getElementById('week-select');
	if (weekInput) {
		weekInput.value = '%d';
	}
	if (weekSelect) {
		weekSelect.value = '%d';
	}
	const form = document.getElementById('week-form');
	if (form) {
		form.submit();
	}
})()`

// SessionConfig controls the headless browser session.
type SessionConfig struct {
	EntryURL          string
	UserAgent         string
	NavigationTimeout time.Duration
	// RenderSettle is the pause after each navigation for the page's own JS
	// to fill the standings table.
	RenderSettle time.Duration
}

func (c *SessionConfig) applyDefaults() {
	if c.EntryURL == "" {
		c.EntryURL = RankingsURL
	}
	if c.NavigationTimeout <= 0 {
		c.NavigationTimeout = 30 * time.Second
	}
	if c.RenderSettle <= 0 {
		c.RenderSettle = 500 * time.Millisecond
	}
}

// Session is one headless browser tab on the rankings site. It implements
// scrape.Navigator[scrape.DivisionWeek]: Navigate drives the division select
// and the week form in the live page, Reset reloads the entry page to recover
// from an indeterminate state. Not safe for concurrent use; a coordinator
// owns its session exclusively.
type Session struct {
	cfg         SessionConfig
	logger      *zap.Logger
	allocCancel context.CancelFunc
	tab         context.Context
	tabCancel   context.CancelFunc
	opened      bool
}

// NewSession starts a headless browser and opens one tab. The tab navigates
// nowhere until Reset or the first Navigate.
func NewSession(cfg SessionConfig, logger *zap.Logger) (*Session, error) {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	return &Session{
		cfg:         cfg,
		logger:      logger,
		allocCancel: allocCancel,
		tab:         tabCtx,
		tabCancel:   tabCancel,
	}, nil
}

// Close tears down the tab and the browser.
func (s *Session) Close() {
	s.tabCancel()
	s.allocCancel()
}

// Reset reloads the rankings entry page, discarding whatever division and
// week the page was left on.
func (s *Session) Reset(ctx context.Context) error {
	err := s.run(ctx,
		s.setupAction(),
		chromedp.Navigate(s.cfg.EntryURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(s.cfg.RenderSettle),
	)
	if err != nil {
		s.opened = false
		return fmt.Errorf("open rankings page: %w", err)
	}
	s.opened = true
	return nil
}

// LoadDivisions opens the entry page and returns its snapshot, from which
// the division catalog is parsed.
func (s *Session) LoadDivisions(ctx context.Context) (scrape.PageSnapshot, error) {
	if err := s.Reset(ctx); err != nil {
		return scrape.PageSnapshot{}, err
	}
	return s.capture(ctx)
}

// Navigate drives the live page to one division/week coordinate and returns
// the rendered standings page. Each submit is a full page reload, so the
// division select is re-submitted for every coordinate even when only the
// week changed.
func (s *Session) Navigate(ctx context.Context, item scrape.DivisionWeek) (scrape.PageSnapshot, error) {
	if !s.opened {
		if err := s.Reset(ctx); err != nil {
			return scrape.PageSnapshot{}, err
		}
	}

	err := s.run(ctx,
		chromedp.Evaluate(fmt.Sprintf(divisionSubmitJS, item.DivisionIndex), nil),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(s.cfg.RenderSettle),
	)
	if err != nil {
		s.opened = false
		return scrape.PageSnapshot{}, fmt.Errorf("select division %d: %w", item.DivisionIndex, err)
	}

	err = s.run(ctx,
		chromedp.Evaluate(fmt.Sprintf(weekSubmitJS, item.Week, item.Week), nil),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(s.cfg.RenderSettle),
	)
	if err != nil {
		s.opened = false
		return scrape.PageSnapshot{}, fmt.Errorf("select week %d: %w", item.Week, err)
	}

	return s.capture(ctx)
}

func (s *Session) capture(ctx context.Context) (scrape.PageSnapshot, error) {
	var (
		html string
		url  string
	)
	err := s.run(ctx,
		chromedp.Location(&url),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return scrape.PageSnapshot{}, fmt.Errorf("capture page: %w", err)
	}
	return scrape.PageSnapshot{URL: url, HTML: html, FetchedAt: time.Now().UTC()}, nil
}

// run executes chromedp actions in the session tab, bounded by both the
// caller's context and the navigation timeout.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(s.tab, s.cfg.NavigationTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- chromedp.Run(runCtx, actions...) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		cancel()
		<-done
		return ctx.Err()
	}
}

func (s *Session) setupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if s.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(s.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		return nil
	})
}
