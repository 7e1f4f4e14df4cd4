package publish

import (
	"context"
	"fmt"
	"strings"

	"go-publicist/internal/logx"
	"go-publicist/internal/model"
	"go-publicist/internal/notify"
)

// Probe 发起与帖子无关的 webhook 连通性测试。只发通知，从不修改目标状态。
type Probe struct {
	api      API
	notifier notify.Notifier
}

func NewProbe(api API, n notify.Notifier) *Probe {
	if n == nil {
		n = notify.Nop{}
	}
	return &Probe{api: api, notifier: n}
}

// Test 调用 POST /test/{platform}，总是返回一个 Outcome 并发出一条通知。
func (p *Probe) Test(ctx context.Context, platform model.PlatformID) model.Outcome {
	var resp testResponse
	var o model.Outcome
	if err := p.api.PostJSON(ctx, p.api.URL(nil, "test", string(platform)), nil, &resp); err != nil {
		o = errorOutcome(err)
		logx.With("comp", "probe", "platform", string(platform)).Warn("webhook test request failed", "err", err)
	} else {
		o = resp.outcome()
	}
	p.notifier.Notify(ctx, testNotice(platform, o))
	return o
}

func (r testResponse) outcome() model.Outcome {
	if r.TestResult == nil {
		if r.Action == ActionConfigureWebhook {
			return model.Failed(model.FailureConfiguration, r.Error)
		}
		if r.Success {
			return model.Succeeded("")
		}
		msg := strings.TrimSpace(r.Error)
		if msg == "" {
			msg = "no test result"
		}
		return model.Failed(model.FailureAPI, msg)
	}
	if r.TestResult.Success {
		return model.Succeeded("")
	}
	msg := strings.TrimSpace(r.TestResult.Error)
	if msg == "" {
		msg = UnknownError
	}
	return model.Failed(model.FailureAPI, msg)
}

func testNotice(platform model.PlatformID, o model.Outcome) model.Notice {
	name := model.DisplayName(platform)
	n := model.Notice{Platform: platform}
	switch {
	case o.Success:
		n.Level = model.LevelSuccess
		n.Message = fmt.Sprintf("%s webhook test successful! Check your Zap history in Zapier.", name)
	case o.RequiresConfiguration:
		n.Level = model.LevelWarning
		n.Message = fmt.Sprintf("%s webhook not configured. Please add it to your .env file.", name)
	default:
		n.Level = model.LevelError
		n.Message = fmt.Sprintf("%s webhook test failed: %s", name, o.ErrorMessage)
	}
	return n
}
