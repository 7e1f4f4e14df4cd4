package publish

import (
	"context"
	"sort"

	"go-publicist/internal/logx"
	"go-publicist/internal/model"
)

// StatusCache 查询各平台是否已配置 webhook。无状态，每次调用都重新请求。
type StatusCache struct {
	api API
}

func NewStatusCache(api API) *StatusCache {
	return &StatusCache{api: api}
}

// FetchStatus 返回平台 → 是否已配置。任何请求或解码失败都返回空映射（记录日志），
// 调用方应将空映射视为“没有已配置的平台”。
func (c *StatusCache) FetchStatus(ctx context.Context) map[model.PlatformID]bool {
	var resp platformsResponse
	if err := c.api.GetJSON(ctx, c.api.URL(nil, "platforms"), &resp); err != nil {
		logx.With("comp", "platforms").Warn("fetch platform status failed", "err", err)
		return map[model.PlatformID]bool{}
	}
	out := make(map[model.PlatformID]bool, len(resp.Platforms))
	for p, ok := range resp.Platforms {
		out[model.PlatformID(p)] = ok
	}
	return out
}

// Targets 与 FetchStatus 相同，但返回按平台名排序的列表，便于展示。
func (c *StatusCache) Targets(ctx context.Context) []model.PublishTarget {
	m := c.FetchStatus(ctx)
	out := make([]model.PublishTarget, 0, len(m))
	for p, ok := range m {
		out = append(out, model.PublishTarget{Platform: p, Configured: ok})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Platform < out[j].Platform })
	return out
}
