// 包 reconcile 维护每个 (post, platform) 的发布状态机并驱动通知：
// - idle → publishing → published | failed
// - failed 在展示时长后回到 idle（允许重试），published 为终态
// - 迁移后通知 Notifier、广播 StatusChange，并触发已注册的历史刷新回调
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go-publicist/internal/logx"
	"go-publicist/internal/model"
	"go-publicist/internal/notify"
)

var (
	// ErrTerminal 表示目标已发布成功，不允许再次发布。
	ErrTerminal = errors.New("target is terminal")
	// ErrInProgress 表示目标正在发布中，拒绝重复发起。
	ErrInProgress = errors.New("target already in progress")
	// ErrNotPublishing 表示收到结果时目标并不处于 publishing。
	ErrNotPublishing = errors.New("target is not publishing")
)

// DefaultFailedReset 为 failed 状态的默认展示时长。
const DefaultFailedReset = 3 * time.Second

// Reconciler 独占状态存储的写入。
// 存储访问由 mu 串行化；通知/订阅/回调都在锁外执行。
type Reconciler struct {
	mu          sync.Mutex
	store       Store
	notifier    notify.Notifier
	failedReset time.Duration
	now         func() time.Time
	useTimers   bool
	timers      map[Key]*time.Timer
	closed      bool

	omu       sync.Mutex
	observers map[uint64]func()
	oseq      uint64

	bus fanout
}

// Option 为 Reconciler 的可选配置。
type Option func(*Reconciler)

// WithFailedReset 设置 failed → idle 的展示时长。
func WithFailedReset(d time.Duration) Option {
	return func(r *Reconciler) {
		if d > 0 {
			r.failedReset = d
		}
	}
}

// WithClock 替换时钟，并关闭定时器（只在读取/发起时按时钟判定过期）。
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		if now != nil {
			r.now = now
			r.useTimers = false
		}
	}
}

// New 创建 Reconciler；store 为 nil 时使用内存存储，notifier 为 nil 时丢弃通知。
func New(store Store, n notify.Notifier, opts ...Option) *Reconciler {
	if store == nil {
		store = NewMemoryStore()
	}
	if n == nil {
		n = notify.Nop{}
	}
	r := &Reconciler{
		store:       store,
		notifier:    n,
		failedReset: DefaultFailedReset,
		now:         time.Now,
		useTimers:   true,
		timers:      map[Key]*time.Timer{},
		observers:   map[uint64]func(){},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Reconciler) log() *slog.Logger { return logx.With("comp", "reconcile") }

// OnHistoryRefresh 注册历史刷新回调，在每次 published/failed 迁移后调用。
// 返回的函数用于注销；未注册任何回调时不做任何事。
func (r *Reconciler) OnHistoryRefresh(fn func()) (unregister func()) {
	if fn == nil {
		return func() {}
	}
	r.omu.Lock()
	r.oseq++
	id := r.oseq
	r.observers[id] = fn
	r.omu.Unlock()
	return func() {
		r.omu.Lock()
		delete(r.observers, id)
		r.omu.Unlock()
	}
}

// Subscribe 订阅全部状态迁移（含定时的 failed → idle）。慢订阅者会丢事件。
func (r *Reconciler) Subscribe(buffer int) (<-chan StatusChange, func()) {
	return r.bus.subscribe(buffer)
}

// Status 返回某目标当前状态（已过展示时长的 failed 视为 idle）。
func (r *Reconciler) Status(ctx context.Context, postID model.PostID, platform model.PlatformID) (model.TargetStatus, error) {
	e, err := r.Entry(ctx, postID, platform)
	return e.Status, err
}

// Entry 返回某目标的完整状态条目。
func (r *Reconciler) Entry(ctx context.Context, postID model.PostID, platform model.PlatformID) (Entry, error) {
	r.mu.Lock()
	e, ev, err := r.currentLocked(ctx, Key{PostID: postID, Platform: platform})
	r.mu.Unlock()
	r.emit(ev)
	return e, err
}

// List 返回某帖子（postID 为 0 时为全部）的状态条目。
func (r *Reconciler) List(ctx context.Context, postID model.PostID) ([]Entry, error) {
	r.mu.Lock()
	entries, err := r.store.List(ctx, postID)
	if err != nil {
		r.mu.Unlock()
		return nil, fmt.Errorf("list status: %w", err)
	}
	var events []*StatusChange
	for i := range entries {
		if entries[i].Status != model.StatusFailed {
			continue
		}
		e, ev, err := r.currentLocked(ctx, entries[i].Key)
		if err != nil {
			r.mu.Unlock()
			return nil, err
		}
		entries[i] = e
		events = append(events, ev)
	}
	r.mu.Unlock()
	r.emit(events...)
	return entries, nil
}

// BeginPublish 将目标置为 publishing。目标为 published 时返回 ErrTerminal，
// 为 publishing 时返回 ErrInProgress，两种情况都不修改状态。
func (r *Reconciler) BeginPublish(ctx context.Context, postID model.PostID, platform model.PlatformID) error {
	k := Key{PostID: postID, Platform: platform}
	r.mu.Lock()
	e, expired, err := r.currentLocked(ctx, k)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	switch e.Status {
	case model.StatusPublished:
		r.mu.Unlock()
		r.emit(expired)
		return fmt.Errorf("%w: %s", ErrTerminal, k)
	case model.StatusPublishing:
		r.mu.Unlock()
		r.emit(expired)
		return fmt.Errorf("%w: %s", ErrInProgress, k)
	}
	r.stopTimerLocked(k)
	from := e.Status
	e.Status = model.StatusPublishing
	e.Message = ""
	e.UpdatedAt = r.now()
	if err := r.store.Save(ctx, e); err != nil {
		r.mu.Unlock()
		return fmt.Errorf("save status %s: %w", k, err)
	}
	r.mu.Unlock()
	r.emit(expired, &StatusChange{Key: k, From: from, To: model.StatusPublishing, At: e.UpdatedAt})
	r.log().Debug("begin publish", "key", k.String())
	return nil
}

// ApplyOutcome 将 publishing 的目标迁移到 published 或 failed，并发出一条通知。
// 目标不处于 publishing 时返回 ErrNotPublishing，结果被忽略。
func (r *Reconciler) ApplyOutcome(ctx context.Context, postID model.PostID, platform model.PlatformID, o model.Outcome) error {
	k := Key{PostID: postID, Platform: platform}
	expired, ev, err := r.settle(ctx, k, o)
	r.emit(expired)
	if err != nil {
		r.log().Warn("outcome ignored", "key", k.String(), "err", err)
		return err
	}
	r.emit(ev)
	r.notifier.Notify(ctx, outcomeNotice(k, o))
	r.refreshHistory()
	return nil
}

// ApplyBatchResult 对批量结果中的每个平台执行 ApplyOutcome，最后发出一条汇总通知。
func (r *Reconciler) ApplyBatchResult(ctx context.Context, postID model.PostID, br model.BatchResult) error {
	var errs []error
	for _, p := range br.Platforms() {
		if err := r.ApplyOutcome(ctx, postID, p, br.Outcomes[p]); err != nil {
			errs = append(errs, err)
		}
	}
	r.notifier.Notify(ctx, batchNotice(postID, br))
	return errors.Join(errs...)
}

// Close 停止所有待触发的 failed → idle 定时器。
func (r *Reconciler) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	for k, t := range r.timers {
		t.Stop()
		delete(r.timers, k)
	}
}

func (r *Reconciler) settle(ctx context.Context, k Key, o model.Outcome) (expired, ev *StatusChange, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, expired, err := r.currentLocked(ctx, k)
	if err != nil {
		return nil, nil, err
	}
	if e.Status != model.StatusPublishing {
		return expired, nil, fmt.Errorf("%w: %s is %s", ErrNotPublishing, k, e.Status)
	}
	to := model.StatusFailed
	if o.Success {
		to = model.StatusPublished
	}
	e.Status = to
	e.Message = o.ErrorMessage
	e.PostURL = o.PostURL
	e.UpdatedAt = r.now()
	if err := r.store.Save(ctx, e); err != nil {
		return expired, nil, fmt.Errorf("save status %s: %w", k, err)
	}
	if to == model.StatusFailed {
		r.scheduleResetLocked(k)
	}
	return expired, &StatusChange{Key: k, From: model.StatusPublishing, To: to, At: e.UpdatedAt}, nil
}

// currentLocked 读取条目；已过展示时长的 failed 就地回到 idle 并返回对应事件。
// 调用方需持有 mu。
func (r *Reconciler) currentLocked(ctx context.Context, k Key) (Entry, *StatusChange, error) {
	e, ok, err := r.store.Load(ctx, k)
	if err != nil {
		return Entry{}, nil, fmt.Errorf("load status %s: %w", k, err)
	}
	if !ok {
		return Entry{Key: k, Status: model.StatusIdle}, nil, nil
	}
	if e.Status != model.StatusFailed || r.now().Before(e.UpdatedAt.Add(r.failedReset)) {
		return e, nil, nil
	}
	e.Status = model.StatusIdle
	e.UpdatedAt = r.now()
	if err := r.store.Save(ctx, e); err != nil {
		return Entry{}, nil, fmt.Errorf("save status %s: %w", k, err)
	}
	return e, &StatusChange{Key: k, From: model.StatusFailed, To: model.StatusIdle, At: e.UpdatedAt}, nil
}

func (r *Reconciler) scheduleResetLocked(k Key) {
	if !r.useTimers || r.closed {
		return
	}
	r.stopTimerLocked(k)
	r.timers[k] = time.AfterFunc(r.failedReset, func() { r.expire(k) })
}

func (r *Reconciler) stopTimerLocked(k Key) {
	if t, ok := r.timers[k]; ok {
		t.Stop()
		delete(r.timers, k)
	}
}

func (r *Reconciler) expire(k Key) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	delete(r.timers, k)
	_, ev, err := r.currentLocked(context.Background(), k)
	r.mu.Unlock()
	if err != nil {
		r.log().Warn("failed reset", "key", k.String(), "err", err)
		return
	}
	r.emit(ev)
}

func (r *Reconciler) emit(events ...*StatusChange) {
	for _, ev := range events {
		if ev != nil {
			r.bus.publish(*ev)
		}
	}
}

func (r *Reconciler) refreshHistory() {
	r.omu.Lock()
	fns := make([]func(), 0, len(r.observers))
	for _, fn := range r.observers {
		fns = append(fns, fn)
	}
	r.omu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
