// 包 publish 对接发布 API：平台状态、单平台/多平台发布、webhook 测试、历史、配置说明与统计。
// 所有调用边界上的错误都归一化为 Outcome 或空结果，不向调用方抛出。
package publish

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go-publicist/internal/fetch"
	"go-publicist/internal/model"
)

// ActionConfigureWebhook 为 API 表示“目标平台未配置 webhook”的 action 值。
const ActionConfigureWebhook = "configure_webhook"

// UnknownError 为 API 未给出错误信息时的兜底文案。
const UnknownError = "Unknown error"

// API 为发布 API 的最小访问面，*fetch.Client 实现了它。
type API interface {
	URL(query url.Values, segments ...string) string
	GetJSON(ctx context.Context, target string, out any) error
	PostJSON(ctx context.Context, target string, body any, out any) error
}

var _ API = (*fetch.Client)(nil)

// publishResponse 对应 POST /posts/{id}/{platform} 与 multi 结果中的单项。
type publishResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Action  string `json:"action,omitempty"`
	PostURL string `json:"post_url,omitempty"`
}

func (r publishResponse) outcome() model.Outcome {
	switch {
	case r.Success:
		return model.Succeeded(r.PostURL)
	case r.Action == ActionConfigureWebhook:
		return model.Failed(model.FailureConfiguration, r.Error)
	default:
		msg := strings.TrimSpace(r.Error)
		if msg == "" {
			msg = UnknownError
		}
		return model.Failed(model.FailureAPI, msg)
	}
}

type multiRequest struct {
	Platforms []string `json:"platforms"`
}

type multiResponse struct {
	SuccessCount int                        `json:"success_count"`
	FailureCount int                        `json:"failure_count"`
	Results      map[string]publishResponse `json:"results"`
}

type platformsResponse struct {
	Platforms map[string]bool `json:"platforms"`
}

type setupResponse struct {
	Steps          []string `json:"steps"`
	EnvVar         string   `json:"env_var"`
	ExampleWebhook string   `json:"example_webhook"`
	ZapierURL      string   `json:"zapier_url"`
}

type historyResponse struct {
	History []historyItem `json:"history"`
}

type historyItem struct {
	PostID      int64  `json:"post_id"`
	Platform    string `json:"platform"`
	PublishedAt string `json:"published_at"`
	Success     bool   `json:"success"`
	PostURL     string `json:"post_url,omitempty"`
}

// testResponse 对应 POST /test/{platform}；未配置时 API 不返回 test_result，
// 而是在顶层给出 success/error/action。
type testResponse struct {
	TestResult *testResult `json:"test_result"`
	Success    bool        `json:"success"`
	Error      string      `json:"error,omitempty"`
	Action     string      `json:"action,omitempty"`
}

type testResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type statsResponse struct {
	TotalPublished      int            `json:"total_published"`
	SuccessfulPublishes int            `json:"successful_publishes"`
	FailedPublishes     int            `json:"failed_publishes"`
	SuccessRate         float64        `json:"success_rate"`
	ByPlatform          map[string]int `json:"by_platform"`
	LastPublished       *string        `json:"last_published"`
}

// 历史时间戳可能带时区（RFC 3339），也可能是不带时区的 isoformat。
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999",
}

// parseTime 解析 API 返回的时间；不带时区的时间按 UTC 处理。
func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// errorOutcome 将调用错误归一化为失败结果：
// 带可读 detail 的 4xx 视为 API 报告的失败，其余均为传输失败。
func errorOutcome(err error) model.Outcome {
	var se *fetch.StatusError
	if errors.As(err, &se) && se.Code < 500 && se.Detail != "" {
		return model.Failed(model.FailureAPI, se.Detail)
	}
	return model.Failed(model.FailureTransport, err.Error())
}

func postSegment(id model.PostID) string {
	return strconv.FormatInt(int64(id), 10)
}
