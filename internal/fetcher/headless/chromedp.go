// Package headless renders league pages with JavaScript enabled via
// headless Chrome. DevExpress grids that only materialize after a
// __doPostBack round trip need this path.
package headless

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pitboard-bot/pitboard/internal/standings"
)

// ErrDisabled indicates headless fetching has been disabled via configuration.
var ErrDisabled = errors.New("headless fetcher disabled")

// Config controls the behavior of the headless fetcher.
type Config struct {
	MaxParallel       int
	UserAgent         string
	NavigationTimeout time.Duration
	DomainQPS         float64
	// WaitSelector is the CSS selector that must be visible before the DOM
	// is snapshotted; defaults to "table".
	WaitSelector string
	// WaitSelectorMax bounds how long the selector wait may take. When it
	// expires while the navigation is still healthy, the current DOM is
	// snapshotted anyway. Zero means wait until the navigation timeout.
	WaitSelectorMax time.Duration
}

// Fetcher implements standings.Headless using chromedp.
type Fetcher struct {
	cfg             Config
	logger          *zap.Logger
	sem             chan struct{}
	allocatorCancel context.CancelFunc
	browserCtx      context.Context
	browserCancel   context.CancelFunc
	domainLimiters  sync.Map
}

// NewChromedp creates a headless fetcher, warming up a shared browser.
func NewChromedp(cfg Config, logger *zap.Logger) (*Fetcher, error) {
	if cfg.MaxParallel <= 0 {
		return nil, ErrDisabled
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 25 * time.Second
	}
	if cfg.WaitSelector == "" {
		cfg.WaitSelector = "table"
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.UserAgent(cfg.UserAgent),
	)
	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		allocatorCancel()
		browserCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}

	return &Fetcher{
		cfg:             cfg,
		logger:          logger,
		sem:             make(chan struct{}, cfg.MaxParallel),
		allocatorCancel: allocatorCancel,
		browserCtx:      browserCtx,
		browserCancel:   browserCancel,
	}, nil
}

// Close tears down the chromedp allocator and browser contexts.
func (f *Fetcher) Close(_ context.Context) error {
	if f == nil {
		return nil
	}
	f.browserCancel()
	f.allocatorCancel()
	return nil
}

// Render executes the page with JavaScript enabled and returns the DOM
// snapshot once the wait selector is visible.
func (f *Fetcher) Render(ctx context.Context, rawURL string) (standings.Page, error) {
	if f == nil {
		return standings.Page{}, ErrDisabled
	}

	release, err := f.acquireSlot(ctx)
	if err != nil {
		return standings.Page{}, err
	}
	defer release()

	if waitErr := f.waitDomainBudget(ctx, rawURL); waitErr != nil {
		return standings.Page{}, fmt.Errorf("render rate limit: %w", waitErr)
	}

	tabCtx, cancelTab := chromedp.NewContext(f.browserCtx)
	defer cancelTab()

	taskCtx, cancelTask := context.WithTimeout(tabCtx, f.cfg.NavigationTimeout)
	defer cancelTask()

	stopForward := forwardCancel(ctx, cancelTask)
	defer stopForward()

	meta := newResponseMeta()
	f.recordResponse(tabCtx, meta)

	start := time.Now()
	html, err := f.runChromedp(taskCtx, rawURL)
	if err != nil {
		return standings.Page{}, fmt.Errorf("chromedp run: %w", err)
	}

	return standings.Page{
		URL:        rawURL,
		FinalURL:   meta.finalURL(rawURL),
		StatusCode: meta.statusCode,
		Headers:    meta.headers,
		Body:       []byte(html),
		UsedJS:     true,
		Duration:   time.Since(start),
	}, nil
}

func (f *Fetcher) acquireSlot(ctx context.Context) (func(), error) {
	if f.sem == nil {
		return func() {}, nil
	}
	select {
	case f.sem <- struct{}{}:
		return func() { <-f.sem }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("acquire render slot: %w", ctx.Err())
	}
}

type responseMeta struct {
	once       sync.Once
	statusCode int
	headers    http.Header
	url        string
}

func newResponseMeta() *responseMeta {
	return &responseMeta{
		headers: make(http.Header),
	}
}

func (m *responseMeta) finalURL(raw string) string {
	if m.url == "" {
		return raw
	}
	return m.url
}

func (f *Fetcher) recordResponse(tabCtx context.Context, meta *responseMeta) {
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		resp, ok := ev.(*network.EventResponseReceived)
		if !ok || resp.Type != network.ResourceTypeDocument {
			return
		}
		meta.once.Do(func() {
			meta.statusCode = int(resp.Response.Status)
			meta.url = resp.Response.URL
			for k, v := range resp.Response.Headers {
				meta.headers.Add(k, fmt.Sprint(v))
			}
		})
	})
}

func (f *Fetcher) runChromedp(ctx context.Context, rawURL string) (string, error) {
	var html string
	tasks := chromedp.Tasks{
		network.Enable(),
		emulation.SetUserAgentOverride(f.cfg.UserAgent),
		chromedp.Navigate(rawURL),
		chromedp.ActionFunc(f.waitForSelector),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if err := chromedp.Run(ctx, tasks); err != nil {
		return "", fmt.Errorf("chromedp run: %w", err)
	}
	return html, nil
}

// waitForSelector waits for the configured selector, bounded by
// WaitSelectorMax. Grids that never show the selector still get their DOM
// snapshotted once the bound expires.
func (f *Fetcher) waitForSelector(ctx context.Context) error {
	waitCtx := ctx
	if f.cfg.WaitSelectorMax > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, f.cfg.WaitSelectorMax)
		defer cancel()
	}
	err := chromedp.WaitVisible(f.cfg.WaitSelector, chromedp.ByQuery).Do(waitCtx)
	if err == nil {
		return nil
	}
	if waitCtx.Err() != nil && ctx.Err() == nil {
		f.logger.Debug("selector wait expired, snapshotting current DOM",
			zap.String("selector", f.cfg.WaitSelector),
		)
		return nil
	}
	return err
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}

func (f *Fetcher) waitDomainBudget(ctx context.Context, rawURL string) error {
	if f.cfg.DomainQPS <= 0 {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse render url: %w", err)
	}
	host := strings.ToLower(parsed.Host)
	val, _ := f.domainLimiters.LoadOrStore(host, rate.NewLimiter(rate.Limit(f.cfg.DomainQPS), 1))
	limiter, ok := val.(*rate.Limiter)
	if !ok {
		return fmt.Errorf("unexpected limiter type %T", val)
	}
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait limiter: %w", err)
	}
	return nil
}
