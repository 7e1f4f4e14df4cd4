// Package notify delivers human-readable notices produced by the publish core.
//
// A Notifier is the only way the core talks to a human: it never renders
// anything itself. Sinks are best-effort; a failing sink is logged and never
// propagates into the publish flow.
package notify

import (
	"context"
	"sync"

	"go-publicist/internal/logx"
	"go-publicist/internal/model"
)

// Notifier receives one notice per completed unit of work.
type Notifier interface {
	Notify(ctx context.Context, n model.Notice)
}

// Func adapts a plain function to Notifier.
type Func func(ctx context.Context, n model.Notice)

func (f Func) Notify(ctx context.Context, n model.Notice) { f(ctx, n) }

// Nop discards every notice.
type Nop struct{}

func (Nop) Notify(context.Context, model.Notice) {}

// Multi fans a notice out to every sink in order.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n model.Notice) {
	for _, s := range m {
		if s != nil {
			s.Notify(ctx, n)
		}
	}
}

// Recorder keeps notices in memory. It backs the status listing of the CLI
// and is handy in tests.
type Recorder struct {
	mu      sync.Mutex
	notices []model.Notice
}

func (r *Recorder) Notify(_ context.Context, n model.Notice) {
	r.mu.Lock()
	r.notices = append(r.notices, n)
	r.mu.Unlock()
}

// Notices returns a copy of everything recorded so far.
func (r *Recorder) Notices() []model.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Notice(nil), r.notices...)
}

// Last returns the most recent notice, if any.
func (r *Recorder) Last() (model.Notice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return model.Notice{}, false
	}
	return r.notices[len(r.notices)-1], true
}

// Reset drops recorded notices.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.notices = nil
	r.mu.Unlock()
}

// Logging mirrors every notice into the structured log.
type Logging struct{}

func (Logging) Notify(_ context.Context, n model.Notice) {
	log := logx.With("comp", "notify", "level", string(n.Level))
	if n.Platform != "" {
		log = log.With("platform", string(n.Platform))
	}
	if n.PostID != 0 {
		log = log.With("post_id", int64(n.PostID))
	}
	switch n.Level {
	case model.LevelError:
		log.Error(n.Message)
	case model.LevelWarning:
		log.Warn(n.Message)
	default:
		log.Debug(n.Message)
	}
}
