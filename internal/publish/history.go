package publish

import (
	"context"
	"net/url"
	"sort"
	"strconv"

	"go-publicist/internal/logx"
	"go-publicist/internal/model"
	"go-publicist/internal/notify"
)

// DefaultHistoryLimit 为界面默认展示的历史条数。
const DefaultHistoryLimit = 50

// Filter 为历史查询条件，零值字段不生效。
type Filter struct {
	Platform    model.PlatformID
	Limit       int
	SuccessOnly bool
}

func (f Filter) query() url.Values {
	q := url.Values{}
	if f.Platform != "" {
		q.Set("platform", string(f.Platform))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.SuccessOnly {
		q.Set("success_only", "true")
	}
	return q
}

// History 查询历史发布记录。
type History struct {
	api      API
	notifier notify.Notifier
}

func NewHistory(api API, n notify.Notifier) *History {
	if n == nil {
		n = notify.Nop{}
	}
	return &History{api: api, notifier: n}
}

// Query 调用 GET /history，返回最新在前的记录。
// 过滤条件同时在本地生效，API 忽略某个参数时结果仍然正确。
// 请求失败时返回空切片并发出一条错误通知。
func (h *History) Query(ctx context.Context, f Filter) []model.HistoryRecord {
	log := logx.With("comp", "history")
	var resp historyResponse
	if err := h.api.GetJSON(ctx, h.api.URL(f.query(), "history"), &resp); err != nil {
		log.Warn("load history failed", "err", err)
		h.notifier.Notify(ctx, model.Notice{Level: model.LevelError, Message: "Error loading publishing history"})
		return []model.HistoryRecord{}
	}
	out := make([]model.HistoryRecord, 0, len(resp.History))
	for _, it := range resp.History {
		rec := model.HistoryRecord{
			PostID:   model.PostID(it.PostID),
			Platform: model.PlatformID(it.Platform),
			Success:  it.Success,
			PostURL:  it.PostURL,
		}
		if t, ok := parseTime(it.PublishedAt); ok {
			rec.PublishedAt = t
		} else if it.PublishedAt != "" {
			log.Debug("unparsable published_at", "value", it.PublishedAt)
		}
		if f.Platform != "" && rec.Platform != f.Platform {
			continue
		}
		if f.SuccessOnly && !rec.Success {
			continue
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PublishedAt.After(out[j].PublishedAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}
