package publish

import (
	"context"
	"fmt"

	"go-publicist/internal/model"
	"go-publicist/internal/notify"
)

// Setup 获取某平台 webhook 的配置说明。
type Setup struct {
	api      API
	notifier notify.Notifier
}

func NewSetup(api API, n notify.Notifier) *Setup {
	if n == nil {
		n = notify.Nop{}
	}
	return &Setup{api: api, notifier: n}
}

// Guide 调用 GET /platforms/{platform}/setup；失败时通知并返回错误。
func (s *Setup) Guide(ctx context.Context, platform model.PlatformID) (model.SetupGuide, error) {
	var resp setupResponse
	if err := s.api.GetJSON(ctx, s.api.URL(nil, "platforms", string(platform), "setup"), &resp); err != nil {
		s.notifier.Notify(ctx, model.Notice{Level: model.LevelError, Message: "Error loading setup instructions", Platform: platform})
		return model.SetupGuide{}, fmt.Errorf("load setup %s: %w", platform, err)
	}
	return model.SetupGuide{
		Platform:       platform,
		Steps:          resp.Steps,
		EnvVar:         resp.EnvVar,
		ExampleWebhook: resp.ExampleWebhook,
		ZapierURL:      resp.ZapierURL,
	}, nil
}
