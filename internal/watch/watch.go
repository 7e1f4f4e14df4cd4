// Package watch periodically refreshes platform configuration status and the
// latest publishing history on a cron schedule.
//
// It is also the history-refresh observer of the reconciler: HistoryObserver
// marks the cached history stale and wakes the refresh loop.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/robfig/cron/v3"

	"go-publicist/internal/logx"
	"go-publicist/internal/model"
	"go-publicist/internal/notify"
	"go-publicist/internal/publish"
)

// Source is the read side of the publish API used by the watcher.
// *core.Core satisfies it.
type Source interface {
	PlatformStatus(ctx context.Context) map[model.PlatformID]bool
	History(ctx context.Context, f publish.Filter) []model.HistoryRecord
}

type Config struct {
	// Schedule accepts standard cron specs with optional seconds and
	// descriptors such as "@every 30s" or "@hourly".
	Schedule     string
	HistoryLimit int
}

type Watcher struct {
	cfg      Config
	src      Source
	notifier notify.Notifier
	log      *slog.Logger
	parser   cron.Parser

	mu       sync.Mutex
	c        *cron.Cron
	cancel   context.CancelFunc
	loopDone chan struct{}
	status   map[model.PlatformID]bool
	seen     bool
	latest   []model.HistoryRecord

	dirty atomic.Bool
	kick  chan struct{}
}

func New(cfg Config, src Source, n notify.Notifier) (*Watcher, error) {
	if src == nil {
		return nil, errors.New("watch: nil source")
	}
	if n == nil {
		n = notify.Nop{}
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 10
	}
	w := &Watcher{
		cfg:      cfg,
		src:      src,
		notifier: n,
		log:      logx.With("comp", "watch"),
		parser:   cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		kick:     make(chan struct{}, 1),
	}
	if _, err := w.parser.Parse(cfg.Schedule); err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", cfg.Schedule, err)
	}
	return w, nil
}

// Start registers the cron job and the observer loop. Calling Start on a
// running watcher is a no-op.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.c != nil {
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	c := cron.New(cron.WithParser(w.parser))
	if _, err := c.AddFunc(w.cfg.Schedule, func() { w.Refresh(runCtx) }); err != nil {
		cancel()
		return fmt.Errorf("add schedule: %w", err)
	}
	w.c = c
	w.cancel = cancel
	w.loopDone = make(chan struct{})
	go w.loop(runCtx, w.loopDone)
	c.Start()
	w.log.Info("watcher started", "schedule", w.cfg.Schedule, "history_limit", w.cfg.HistoryLimit)
	return nil
}

// Stop waits for a running refresh to finish.
func (w *Watcher) Stop() {
	w.mu.Lock()
	c, cancel, done := w.c, w.cancel, w.loopDone
	w.c, w.cancel, w.loopDone = nil, nil, nil
	w.mu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
	cancel()
	<-done
	w.log.Info("watcher stopped")
}

func (w *Watcher) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.kick:
			w.Flush(ctx)
		}
	}
}

// Refresh fetches platform status and the latest history page.
func (w *Watcher) Refresh(ctx context.Context) {
	w.refreshPlatforms(ctx)
	w.dirty.Store(false)
	w.refreshHistory(ctx)
}

// HistoryObserver returns a callback for Reconciler.OnHistoryRefresh. It never
// blocks: the refresh itself runs on the watcher loop or on the next Flush.
func (w *Watcher) HistoryObserver() func() {
	return func() {
		w.dirty.Store(true)
		select {
		case w.kick <- struct{}{}:
		default:
		}
	}
}

// Flush refreshes history if an observer call marked it stale and returns the
// cached page.
func (w *Watcher) Flush(ctx context.Context) []model.HistoryRecord {
	if w.dirty.Swap(false) {
		w.refreshHistory(ctx)
	}
	return w.Latest()
}

// Latest returns the most recently fetched history page.
func (w *Watcher) Latest() []model.HistoryRecord {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]model.HistoryRecord(nil), w.latest...)
}

// Snapshot returns the last known platform status, sorted by platform.
func (w *Watcher) Snapshot() []model.PublishTarget {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]model.PublishTarget, 0, len(w.status))
	for p, ok := range w.status {
		out = append(out, model.PublishTarget{Platform: p, Configured: ok})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Platform < out[j].Platform })
	return out
}

func (w *Watcher) refreshPlatforms(ctx context.Context) {
	cur := w.src.PlatformStatus(ctx)

	w.mu.Lock()
	if len(cur) == 0 && len(w.status) > 0 {
		// an empty map also means the API was unreachable; keep the last snapshot
		w.mu.Unlock()
		w.log.Warn("platform status unavailable, keeping last snapshot")
		return
	}
	var notices []model.Notice
	if w.seen {
		for _, p := range sortedKeys(cur) {
			prev, known := w.status[p]
			now := cur[p]
			switch {
			case now && (!known || !prev):
				notices = append(notices, model.Notice{Level: model.LevelSuccess, Platform: p,
					Message: fmt.Sprintf("%s webhook is now configured", model.DisplayName(p))})
			case !now && known && prev:
				notices = append(notices, model.Notice{Level: model.LevelWarning, Platform: p,
					Message: fmt.Sprintf("%s webhook is no longer configured", model.DisplayName(p))})
			}
		}
	}
	w.status = cur
	w.seen = true
	w.mu.Unlock()

	for _, n := range notices {
		w.notifier.Notify(ctx, n)
	}
	w.log.Debug("platform status refreshed", "platforms", len(cur), "changes", len(notices))
}

func (w *Watcher) refreshHistory(ctx context.Context) {
	recs := w.src.History(ctx, publish.Filter{Limit: w.cfg.HistoryLimit})
	w.mu.Lock()
	w.latest = recs
	w.mu.Unlock()
	w.log.Debug("history refreshed", "records", len(recs))
}

func sortedKeys(m map[model.PlatformID]bool) []model.PlatformID {
	out := make([]model.PlatformID, 0, len(m))
	for p := range m {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
