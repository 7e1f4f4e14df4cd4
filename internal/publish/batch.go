package publish

import (
	"context"
	"errors"

	"go-publicist/internal/logx"
	"go-publicist/internal/model"
)

// ErrNoTargets 表示批量发布的目标集合为空，在任何网络请求前返回。
var ErrNoTargets = errors.New("no publish targets")

// Coordinator 发起多平台发布请求，并把返回结果与请求的目标集合对齐。
type Coordinator struct {
	api API
}

func NewCoordinator(api API) *Coordinator {
	return &Coordinator{api: api}
}

// DispatchMany 调用 POST /posts/{id}/multi。唯一的错误为 ErrNoTargets；
// 其余失败都体现在 BatchResult 中：
//   - 响应缺少的目标记为失败（no result reported）
//   - 响应中未请求的平台被丢弃
//   - 整体请求失败时每个目标都记为失败
//
// 计数按对齐后的结果重新统计，保证 SuccessCount+FailureCount 等于去重后的目标数。
func (c *Coordinator) DispatchMany(ctx context.Context, postID model.PostID, targets []model.PlatformID) (model.BatchResult, error) {
	uniq := Distinct(targets)
	if len(uniq) == 0 {
		return model.BatchResult{}, ErrNoTargets
	}
	log := logx.With("comp", "batch", "post_id", int64(postID))

	names := make([]string, len(uniq))
	for i, p := range uniq {
		names[i] = string(p)
	}
	var resp multiResponse
	target := c.api.URL(nil, "posts", postSegment(postID), "multi")
	if err := c.api.PostJSON(ctx, target, multiRequest{Platforms: names}, &resp); err != nil {
		o := errorOutcome(err)
		log.Warn("batch request failed", "targets", len(uniq), "failure", string(o.Failure), "err", err)
		br := model.BatchResult{Outcomes: make(map[model.PlatformID]model.Outcome, len(uniq))}
		for _, p := range uniq {
			br.Outcomes[p] = o
		}
		br.FailureCount = len(uniq)
		return br, nil
	}

	br := model.BatchResult{Outcomes: make(map[model.PlatformID]model.Outcome, len(uniq))}
	for _, p := range uniq {
		r, ok := resp.Results[string(p)]
		if !ok {
			log.Warn("target missing from batch response", "platform", string(p))
			br.Outcomes[p] = model.Failed(model.FailureMissing, model.NoResultReported)
			br.FailureCount++
			continue
		}
		o := r.outcome()
		br.Outcomes[p] = o
		if o.Success {
			br.SuccessCount++
		} else {
			br.FailureCount++
		}
	}
	for p := range resp.Results {
		if _, ok := br.Outcomes[model.PlatformID(p)]; !ok {
			log.Debug("dropped unrequested result", "platform", p)
		}
	}
	if resp.SuccessCount != br.SuccessCount || resp.FailureCount != br.FailureCount {
		log.Debug("batch counts reconciled",
			"api_success", resp.SuccessCount, "api_failure", resp.FailureCount,
			"success", br.SuccessCount, "failure", br.FailureCount)
	}
	return br, nil
}

// Distinct 按首次出现的顺序去重，并丢弃空平台名。
func Distinct(targets []model.PlatformID) []model.PlatformID {
	seen := make(map[model.PlatformID]struct{}, len(targets))
	out := make([]model.PlatformID, 0, len(targets))
	for _, p := range targets {
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
