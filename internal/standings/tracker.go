package standings

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/pitboard-bot/pitboard/internal/metrics"
)

// ErrRunInProgress is returned when a league run is triggered while another
// run for the same league is still in flight. Triggers are dropped, never
// queued.
var ErrRunInProgress = errors.New("run already in progress for league")

// Tracker executes the fetch → parse → digest → render → notify pipeline for
// one league at a time.
type Tracker struct {
	fetcher  Fetcher
	headless Headless
	detector Detector
	parsers  map[SourceKind]Parser
	hasher   Hasher
	renderer Renderer
	notifier Notifier
	state    StateStore
	archive  Archive
	retry    RetryPolicy
	clock    Clock
	ids      IDGenerator
	logger   *zap.Logger

	locks sync.Map // league slug -> *atomic.Bool
}

// NewTracker constructs a Tracker. headless, notifier and archive may be nil;
// the corresponding stages are skipped.
func NewTracker(
	fetcher Fetcher,
	headless Headless,
	detector Detector,
	parsers map[SourceKind]Parser,
	hasher Hasher,
	renderer Renderer,
	notifier Notifier,
	state StateStore,
	archive Archive,
	retry RetryPolicy,
	clock Clock,
	ids IDGenerator,
	logger *zap.Logger,
) *Tracker {
	return &Tracker{
		fetcher:  fetcher,
		headless: headless,
		detector: detector,
		parsers:  parsers,
		hasher:   hasher,
		renderer: renderer,
		notifier: notifier,
		state:    state,
		archive:  archive,
		retry:    retry,
		clock:    clock,
		ids:      ids,
		logger:   logger,
	}
}

// Run executes one full pipeline pass for the league. Concurrent runs for
// the same league return ErrRunInProgress.
func (t *Tracker) Run(ctx context.Context, league League) (RunResult, error) {
	return t.runLocked(ctx, league, false)
}

// ForceRun re-renders and reposts even when the digest is unchanged. Used by
// the /standings show command to restore a board a moderator deleted.
func (t *Tracker) ForceRun(ctx context.Context, league League) (RunResult, error) {
	return t.runLocked(ctx, league, true)
}

func (t *Tracker) runLocked(ctx context.Context, league League, force bool) (RunResult, error) {
	release, err := t.acquire(league)
	if err != nil {
		return RunResult{League: league.Slug}, err
	}
	defer release()

	start := t.clock.Now()
	result, err := t.run(ctx, league, force)
	result.DurationM = time.Since(start).Milliseconds()

	outcome := "unchanged"
	switch {
	case err != nil:
		outcome = "failed"
	case result.Changed:
		outcome = "changed"
	}
	metrics.ObserveRun(league.Slug, outcome, time.Since(start))
	return result, err
}

func (t *Tracker) run(ctx context.Context, league League, force bool) (RunResult, error) {
	result := RunResult{League: league.Slug}

	table, digest, usedJS, err := t.snapshot(ctx, league)
	if err != nil {
		return result, err
	}
	result.Digest = digest
	result.Rows = len(table.Rows)
	result.UsedJS = usedJS
	metrics.SetRows(league.Slug, len(table.Rows))

	rec, found, err := t.state.Load(league.Slug)
	if err != nil {
		return result, fmt.Errorf("load state for %s: %w", league.Slug, err)
	}
	if found && rec.Digest == digest && !force {
		rec.CheckedAt = t.clock.Now()
		if err := t.state.Save(rec); err != nil {
			return result, fmt.Errorf("save checked-at for %s: %w", league.Slug, err)
		}
		t.logger.Debug("standings unchanged",
			zap.String("league", league.Slug),
			zap.String("digest", digest),
		)
		return result, nil
	}
	result.Changed = true

	if t.renderer == nil || t.notifier == nil {
		return result, nil
	}

	table.Tints = league.Tints
	png, err := t.renderer.Render(ctx, table)
	if err != nil {
		return result, fmt.Errorf("render %s: %w", league.Slug, err)
	}

	if !found {
		rec = Record{League: league.Slug, ChannelID: league.ChannelID}
	}
	rec.ChannelID = league.ChannelID
	rec, err = t.notifier.Upsert(ctx, rec, png, table)
	if err != nil {
		return result, fmt.Errorf("upsert message for %s: %w", league.Slug, err)
	}
	result.Posted = true

	now := t.clock.Now()
	rec.Digest = digest
	rec.RenderedAt = now
	rec.CheckedAt = now
	if err := t.state.Save(rec); err != nil {
		return result, fmt.Errorf("save state for %s: %w", league.Slug, err)
	}

	t.archiveSnapshot(ctx, league, table, digest)

	t.logger.Info("standings updated",
		zap.String("league", league.Slug),
		zap.String("digest", digest),
		zap.Int("rows", len(table.Rows)),
		zap.Bool("used_js", usedJS),
	)
	return result, nil
}

// Clear removes the league's board message and deletes its stored record.
// Shares the per-league lock with Run so a clear cannot race a repost.
func (t *Tracker) Clear(ctx context.Context, league League) error {
	release, err := t.acquire(league)
	if err != nil {
		return err
	}
	defer release()

	rec, found, err := t.state.Load(league.Slug)
	if err != nil {
		return fmt.Errorf("load state for %s: %w", league.Slug, err)
	}
	if found && t.notifier != nil {
		if err := t.notifier.Remove(ctx, rec); err != nil {
			return fmt.Errorf("remove message for %s: %w", league.Slug, err)
		}
	}
	if err := t.state.Delete(league.Slug); err != nil {
		return fmt.Errorf("delete state for %s: %w", league.Slug, err)
	}
	t.logger.Info("board cleared", zap.String("league", league.Slug))
	return nil
}

// Snapshot fetches and parses the league page without touching Discord or
// state. Used by the scrape and render CLI commands.
func (t *Tracker) Snapshot(ctx context.Context, league League) (Table, string, error) {
	table, digest, _, err := t.snapshot(ctx, league)
	return table, digest, err
}

func (t *Tracker) snapshot(ctx context.Context, league League) (Table, string, bool, error) {
	page, err := t.fetchWithRetry(ctx, league)
	if err != nil {
		return Table{}, "", false, err
	}
	metrics.ObserveFetch(league.Slug, page.ContentLength())

	parser, ok := t.parsers[league.Kind]
	if !ok {
		return Table{}, "", page.UsedJS, fmt.Errorf("no parser for source kind %q", league.Kind)
	}
	table, err := parser.Parse(page, league)
	if err != nil {
		return Table{}, "", page.UsedJS, fmt.Errorf("parse %s: %w", league.Slug, err)
	}
	table.FetchedAt = t.clock.Now()

	digest, err := t.hasher.Hash(Canonical(table))
	if err != nil {
		return Table{}, "", page.UsedJS, fmt.Errorf("hash table for %s: %w", league.Slug, err)
	}
	return table, digest, page.UsedJS, nil
}

// fetchWithRetry runs whole fetch attempts through the retry policy. An
// attempt covers probe fetch, headless promotion and marker validation, so a
// transient interstitial page counts as a failed attempt and is re-fetched.
func (t *Tracker) fetchWithRetry(ctx context.Context, league League) (Page, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		page, err := t.fetchOnce(ctx, league)
		if err == nil {
			return page, nil
		}
		lastErr = err
		if t.retry == nil || !t.retry.ShouldRetry(err, attempt+1) {
			break
		}
		delay := t.retry.Backoff(attempt)
		t.logger.Warn("fetch failed, retrying",
			zap.String("league", league.Slug),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return Page{}, fmt.Errorf("fetch canceled for %s: %w", league.Slug, ctx.Err())
		case <-time.After(delay):
		}
	}
	return Page{}, fmt.Errorf("fetch %s: %w", league.Slug, lastErr)
}

func (t *Tracker) fetchOnce(ctx context.Context, league League) (Page, error) {
	page, err := t.fetcher.Fetch(ctx, league.URL)
	if err != nil {
		return Page{}, err
	}
	page = t.maybePromote(ctx, league, page)
	if err := validateMarker(page, league.Marker); err != nil {
		return Page{}, fmt.Errorf("validate %s: %w", league.Slug, err)
	}
	return page, nil
}

func (t *Tracker) maybePromote(ctx context.Context, league League, page Page) Page {
	if t.headless == nil || t.detector == nil {
		return page
	}
	if !t.detector.NeedsJS(ctx, page) {
		return page
	}
	rendered, err := t.headless.Render(ctx, league.URL)
	if err != nil {
		t.logger.Warn("headless promotion failed, keeping probe page",
			zap.String("league", league.Slug),
			zap.Error(err),
		)
		return page
	}
	t.logger.Debug("headless promotion applied", zap.String("league", league.Slug))
	return rendered
}

// archiveSnapshot is the best-effort variant used inside runs: archive
// failures are logged, never fail the run.
func (t *Tracker) archiveSnapshot(ctx context.Context, league League, table Table, digest string) {
	if t.archive == nil {
		return
	}
	if err := t.ArchiveSnapshot(ctx, league, table, digest); err != nil {
		t.logger.Warn("snapshot archive append failed",
			zap.String("league", league.Slug),
			zap.Error(err),
		)
	}
}

// ArchiveSnapshot appends the table to the snapshot history. Used by the
// scrape command; pipeline runs archive through the best-effort path.
func (t *Tracker) ArchiveSnapshot(ctx context.Context, league League, table Table, digest string) error {
	if t.archive == nil {
		return errors.New("snapshot archive is disabled")
	}
	id, err := t.ids.NewID()
	if err != nil {
		return fmt.Errorf("generate snapshot id: %w", err)
	}
	snap := Snapshot{
		ID:      id,
		League:  league.Slug,
		Digest:  digest,
		TakenAt: t.clock.Now(),
		Table:   table,
	}
	if err := t.archive.Append(ctx, snap); err != nil {
		return fmt.Errorf("append snapshot for %s: %w", league.Slug, err)
	}
	return nil
}

func (t *Tracker) acquire(league League) (func(), error) {
	val, _ := t.locks.LoadOrStore(league.Slug, new(atomic.Bool))
	lock, ok := val.(*atomic.Bool)
	if !ok {
		return nil, fmt.Errorf("unexpected lock type %T", val)
	}
	if !lock.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("%w: %s", ErrRunInProgress, league.Slug)
	}
	return func() { lock.Store(false) }, nil
}

func validateMarker(page Page, marker string) error {
	if marker == "" {
		return nil
	}
	if !containsLower(string(page.Body), marker) {
		return fmt.Errorf("%w: %q", ErrMarkerMissing, marker)
	}
	return nil
}
