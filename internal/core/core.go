// 包 core 为发布编排的命令入口：
// - 展示层只发出意图（发布/批量发布/测试），不直接接触请求与状态
// - 发布前由状态机把关，结果总会写回状态存储，不受调用方取消影响
package core

import (
	"context"
	"errors"
	"fmt"

	"go-publicist/internal/logx"
	"go-publicist/internal/model"
	"go-publicist/internal/notify"
	"go-publicist/internal/publish"
	"go-publicist/internal/reconcile"
)

var (
	// ErrInvalidPost 表示帖子 ID 不合法（必须为正数）。
	ErrInvalidPost = errors.New("invalid post id")
	// ErrInvalidPlatform 表示平台名为空。
	ErrInvalidPlatform = errors.New("invalid platform")
	// ErrNothingToPublish 表示批量发布的目标全部被状态机拒绝，未发出请求。
	ErrNothingToPublish = errors.New("nothing to publish")
)

// Skip 为批量发布中被状态机拒绝的目标（已发布或发布中）。
type Skip struct {
	Platform model.PlatformID
	Reason   error
}

// BatchReport 为批量发布的执行报告。
type BatchReport struct {
	Result  model.BatchResult
	Skipped []Skip
}

// Core 持有发布 API 的各组件与状态机。
type Core struct {
	rec         *reconcile.Reconciler
	cache       *publish.StatusCache
	dispatcher  *publish.Dispatcher
	coordinator *publish.Coordinator
	probe       *publish.Probe
	history     *publish.History
	setup       *publish.Setup
	stats       *publish.StatsService
}

// New 创建 Core。n 用于测试/历史/配置说明等与状态机无关的通知，通常与 Reconciler 使用同一个 Notifier。
func New(api publish.API, rec *reconcile.Reconciler, n notify.Notifier) *Core {
	if rec == nil {
		rec = reconcile.New(nil, n)
	}
	return &Core{
		rec:         rec,
		cache:       publish.NewStatusCache(api),
		dispatcher:  publish.NewDispatcher(api),
		coordinator: publish.NewCoordinator(api),
		probe:       publish.NewProbe(api, n),
		history:     publish.NewHistory(api, n),
		setup:       publish.NewSetup(api, n),
		stats:       publish.NewStats(api),
	}
}

// Reconciler 返回底层状态机，供订阅与状态查询使用。
func (c *Core) Reconciler() *reconcile.Reconciler { return c.rec }

// RequestPublish 发布到单个平台。状态机拒绝时直接返回错误，不发出请求。
func (c *Core) RequestPublish(ctx context.Context, postID model.PostID, platform model.PlatformID) (model.Outcome, error) {
	if postID <= 0 {
		return model.Outcome{}, fmt.Errorf("%w: %d", ErrInvalidPost, postID)
	}
	if platform == "" {
		return model.Outcome{}, ErrInvalidPlatform
	}
	if err := c.rec.BeginPublish(ctx, postID, platform); err != nil {
		return model.Outcome{}, err
	}
	// 请求一旦发出就等待结果并写回状态
	ctx = context.WithoutCancel(ctx)
	o := c.dispatcher.Dispatch(ctx, postID, platform)
	if err := c.rec.ApplyOutcome(ctx, postID, platform, o); err != nil {
		return o, fmt.Errorf("apply outcome: %w", err)
	}
	return o, nil
}

// RequestBatchPublish 发布到多个平台。
// 目标为空时返回 publish.ErrNoTargets；被状态机拒绝的目标记入 Skipped 且不随请求发送；
// 全部被拒绝时返回 ErrNothingToPublish。
func (c *Core) RequestBatchPublish(ctx context.Context, postID model.PostID, platforms []model.PlatformID) (BatchReport, error) {
	var rep BatchReport
	if postID <= 0 {
		return rep, fmt.Errorf("%w: %d", ErrInvalidPost, postID)
	}
	targets := publish.Distinct(platforms)
	if len(targets) == 0 {
		return rep, publish.ErrNoTargets
	}
	accepted := make([]model.PlatformID, 0, len(targets))
	for _, p := range targets {
		if err := c.rec.BeginPublish(ctx, postID, p); err != nil {
			rep.Skipped = append(rep.Skipped, Skip{Platform: p, Reason: err})
			continue
		}
		accepted = append(accepted, p)
	}
	if len(accepted) == 0 {
		return rep, ErrNothingToPublish
	}
	if len(rep.Skipped) > 0 {
		logx.With("comp", "core", "post_id", int64(postID)).Info("batch targets skipped", "skipped", len(rep.Skipped), "accepted", len(accepted))
	}

	ctx = context.WithoutCancel(ctx)
	br, err := c.coordinator.DispatchMany(ctx, postID, accepted)
	if err != nil {
		return rep, fmt.Errorf("dispatch batch: %w", err)
	}
	rep.Result = br
	if err := c.rec.ApplyBatchResult(ctx, postID, br); err != nil {
		return rep, fmt.Errorf("apply batch result: %w", err)
	}
	return rep, nil
}

// RequestTest 测试某平台的 webhook，只产生通知。
func (c *Core) RequestTest(ctx context.Context, platform model.PlatformID) (model.Outcome, error) {
	if platform == "" {
		return model.Outcome{}, ErrInvalidPlatform
	}
	return c.probe.Test(ctx, platform), nil
}

// Platforms 返回按名称排序的平台配置状态；请求失败时为空。
func (c *Core) Platforms(ctx context.Context) []model.PublishTarget {
	return c.cache.Targets(ctx)
}

// PlatformStatus 返回平台 → 是否已配置；请求失败时为空映射。
func (c *Core) PlatformStatus(ctx context.Context) map[model.PlatformID]bool {
	return c.cache.FetchStatus(ctx)
}

func (c *Core) Setup(ctx context.Context, platform model.PlatformID) (model.SetupGuide, error) {
	if platform == "" {
		return model.SetupGuide{}, ErrInvalidPlatform
	}
	return c.setup.Guide(ctx, platform)
}

func (c *Core) History(ctx context.Context, f publish.Filter) []model.HistoryRecord {
	return c.history.Query(ctx, f)
}

func (c *Core) Stats(ctx context.Context) (model.Stats, error) {
	return c.stats.Fetch(ctx)
}

// Status 返回帖子（postID 为 0 时为全部）在本地状态存储中的条目。
func (c *Core) Status(ctx context.Context, postID model.PostID) ([]reconcile.Entry, error) {
	return c.rec.List(ctx, postID)
}
