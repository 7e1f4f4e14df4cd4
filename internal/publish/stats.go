package publish

import (
	"context"
	"fmt"

	"go-publicist/internal/model"
)

// StatsService 获取发布统计。
type StatsService struct {
	api API
}

func NewStats(api API) *StatsService {
	return &StatsService{api: api}
}

// Fetch 调用 GET /stats。
func (s *StatsService) Fetch(ctx context.Context) (model.Stats, error) {
	var resp statsResponse
	if err := s.api.GetJSON(ctx, s.api.URL(nil, "stats"), &resp); err != nil {
		return model.Stats{}, fmt.Errorf("load stats: %w", err)
	}
	st := model.Stats{
		TotalPublished: resp.TotalPublished,
		Successful:     resp.SuccessfulPublishes,
		Failed:         resp.FailedPublishes,
		SuccessRate:    resp.SuccessRate,
		ByPlatform:     make(map[model.PlatformID]int, len(resp.ByPlatform)),
	}
	for p, n := range resp.ByPlatform {
		st.ByPlatform[model.PlatformID(p)] = n
	}
	if resp.LastPublished != nil {
		if t, ok := parseTime(*resp.LastPublished); ok {
			st.LastPublished = &t
		}
	}
	return st, nil
}
