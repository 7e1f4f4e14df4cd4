package publish

import (
	"context"

	"go-publicist/internal/logx"
	"go-publicist/internal/model"
)

// Dispatcher 发起单平台发布请求并归一化结果。
type Dispatcher struct {
	api API
}

func NewDispatcher(api API) *Dispatcher {
	return &Dispatcher{api: api}
}

// Dispatch 调用 POST /posts/{id}/{platform}，总是返回一个 Outcome，从不失败。
// 发布请求只发送一次，不做自动重试。
func (d *Dispatcher) Dispatch(ctx context.Context, postID model.PostID, platform model.PlatformID) model.Outcome {
	var resp publishResponse
	target := d.api.URL(nil, "posts", postSegment(postID), string(platform))
	if err := d.api.PostJSON(ctx, target, nil, &resp); err != nil {
		o := errorOutcome(err)
		logx.With("comp", "dispatch", "post_id", int64(postID), "platform", string(platform)).
			Warn("publish request failed", "failure", string(o.Failure), "err", err)
		return o
	}
	return resp.outcome()
}
