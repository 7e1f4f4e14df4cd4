// 包 model 定义发布编排使用的数据模型（平台/结果/批量结果/目标状态/历史/通知）。
package model

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// PlatformID 为目标平台标识（如 linkedin/twitter），按值比较。
type PlatformID string

// Normalize 去除空白并转为小写，与发布 API 的平台名保持一致。
func (p PlatformID) Normalize() PlatformID {
	return PlatformID(strings.ToLower(strings.TrimSpace(string(p))))
}

// PostID 为帖子在发布 API 侧的数据库 ID。
type PostID int64

// PublishTarget 为一次平台状态查询得到的目标及其是否已配置 webhook。
type PublishTarget struct {
	Platform   PlatformID `json:"platform"`
	Configured bool       `json:"configured"`
}

// FailureKind 标识失败的归类，成功时为空。
type FailureKind string

const (
	FailureNone          FailureKind = ""
	FailureTransport     FailureKind = "transport"     // 请求未完成或响应无法解码
	FailureAPI           FailureKind = "api"           // API 明确返回 success=false
	FailureConfiguration FailureKind = "configuration" // action=configure_webhook
	FailureMissing       FailureKind = "missing"       // 批量响应缺少该目标
)

// NoResultReported 为批量响应遗漏目标时记录的错误信息。
const NoResultReported = "no result reported"

// Outcome 为单个 (post, platform) 发布或测试尝试的归一化结果，构造后不再修改。
type Outcome struct {
	Success               bool        `json:"success"`
	ErrorMessage          string      `json:"error,omitempty"`
	PostURL               string      `json:"post_url,omitempty"`
	RequiresConfiguration bool        `json:"requires_configuration,omitempty"`
	Failure               FailureKind `json:"failure,omitempty"`
}

// Succeeded 构造成功结果。
func Succeeded(postURL string) Outcome {
	return Outcome{Success: true, PostURL: postURL}
}

// Failed 构造失败结果。
func Failed(kind FailureKind, msg string) Outcome {
	return Outcome{
		ErrorMessage:          msg,
		Failure:               kind,
		RequiresConfiguration: kind == FailureConfiguration,
	}
}

// BatchResult 为多平台发布的聚合结果。
// 协调器保证 SuccessCount+FailureCount == len(Outcomes) == 请求的目标数。
type BatchResult struct {
	SuccessCount int                    `json:"success_count"`
	FailureCount int                    `json:"failure_count"`
	Outcomes     map[PlatformID]Outcome `json:"outcomes"`
}

// Platforms 返回按名称排序的平台列表，便于稳定输出。
func (b BatchResult) Platforms() []PlatformID {
	out := make([]PlatformID, 0, len(b.Outcomes))
	for p := range b.Outcomes {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// TargetStatus 为 (post, platform) 对外可见的状态。
type TargetStatus string

const (
	StatusIdle       TargetStatus = "idle"
	StatusPublishing TargetStatus = "publishing"
	StatusPublished  TargetStatus = "published"
	StatusFailed     TargetStatus = "failed"
)

// ParseTargetStatus 解析持久化的状态字符串，未知值回退为 idle。
func ParseTargetStatus(s string) TargetStatus {
	switch TargetStatus(strings.ToLower(strings.TrimSpace(s))) {
	case StatusPublishing:
		return StatusPublishing
	case StatusPublished:
		return StatusPublished
	case StatusFailed:
		return StatusFailed
	default:
		return StatusIdle
	}
}

// HistoryRecord 为一次历史发布记录（只读）。
type HistoryRecord struct {
	PostID      PostID     `json:"post_id"`
	Platform    PlatformID `json:"platform"`
	PublishedAt time.Time  `json:"published_at"`
	Success     bool       `json:"success"`
	PostURL     string     `json:"post_url,omitempty"`
}

// SetupGuide 为某平台 webhook 的配置说明。
type SetupGuide struct {
	Platform       PlatformID `json:"platform"`
	Steps          []string   `json:"steps"`
	EnvVar         string     `json:"env_var"`
	ExampleWebhook string     `json:"example_webhook"`
	ZapierURL      string     `json:"zapier_url"`
}

// Stats 为发布统计汇总。
type Stats struct {
	TotalPublished int                `json:"total_published"`
	Successful     int                `json:"successful_publishes"`
	Failed         int                `json:"failed_publishes"`
	SuccessRate    float64            `json:"success_rate"`
	ByPlatform     map[PlatformID]int `json:"by_platform"`
	LastPublished  *time.Time         `json:"last_published,omitempty"`
}

// HistoryExport 为历史导出的 JSON 顶层结构。
type HistoryExport struct {
	ExportedAt time.Time       `json:"exported_at"`
	Count      int             `json:"count"`
	Records    []HistoryRecord `json:"records"`
}

// NoticeLevel 为通知级别。
type NoticeLevel string

const (
	LevelInfo    NoticeLevel = "info"
	LevelSuccess NoticeLevel = "success"
	LevelWarning NoticeLevel = "warning"
	LevelError   NoticeLevel = "error"
)

// Notice 为交给 Notifier 的一条人类可读消息。
type Notice struct {
	Level    NoticeLevel `json:"level"`
	Message  string      `json:"message"`
	PostID   PostID      `json:"post_id,omitempty"`
	Platform PlatformID  `json:"platform,omitempty"`
}

func (n Notice) String() string {
	return fmt.Sprintf("[%s] %s", n.Level, n.Message)
}

// DisplayName 将平台名首字母大写，用于通知文案。
func DisplayName(p PlatformID) string {
	s := string(p)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
