package publish_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-publicist/internal/fetch"
	"go-publicist/internal/model"
	"go-publicist/internal/notify"
	"go-publicist/internal/publish"
)

// fakeAPI 挂在 /api/publish 下，记录请求次数。
type fakeAPI struct {
	mux   *http.ServeMux
	calls atomic.Int32
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{mux: http.NewServeMux()}
}

func (f *fakeAPI) handle(pattern string, h http.HandlerFunc) {
	f.mux.HandleFunc(pattern, h)
}

func (f *fakeAPI) start(t *testing.T) *fetch.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		f.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	cl, err := fetch.New(fetch.Options{BaseURL: srv.URL + "/api/publish", Timeout: 2 * time.Second})
	require.NoError(t, err)
	return cl
}

func writeJSON(w http.ResponseWriter, code int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(body))
}

func deadClient(t *testing.T) *fetch.Client {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()
	cl, err := fetch.New(fetch.Options{BaseURL: base + "/api/publish", Timeout: time.Second})
	require.NoError(t, err)
	return cl
}

func TestFetchStatus(t *testing.T) {
	api := newFakeAPI()
	api.handle("GET /api/publish/platforms", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{"platforms":{"twitter":true,"linkedin":false}}`)
	})
	cache := publish.NewStatusCache(api.start(t))

	got := cache.FetchStatus(context.Background())
	assert.Equal(t, map[model.PlatformID]bool{"twitter": true, "linkedin": false}, got)

	targets := cache.Targets(context.Background())
	require.Len(t, targets, 2)
	assert.Equal(t, model.PlatformID("linkedin"), targets[0].Platform)
	assert.False(t, targets[0].Configured)
}

func TestFetchStatusFailsSoft(t *testing.T) {
	got := publish.NewStatusCache(deadClient(t)).FetchStatus(context.Background())
	require.NotNil(t, got)
	assert.Empty(t, got)

	api := newFakeAPI()
	api.handle("GET /api/publish/platforms", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `<html>`)
	})
	assert.Empty(t, publish.NewStatusCache(api.start(t)).FetchStatus(context.Background()))
}

func TestDispatchSuccess(t *testing.T) {
	api := newFakeAPI()
	api.handle("POST /api/publish/posts/42/twitter", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{"success":true,"post_url":"https://x.example/1"}`)
	})
	o := publish.NewDispatcher(api.start(t)).Dispatch(context.Background(), 42, "twitter")
	assert.True(t, o.Success)
	assert.Equal(t, "https://x.example/1", o.PostURL)
	assert.Equal(t, model.FailureNone, o.Failure)
}

func TestDispatchFailures(t *testing.T) {
	api := newFakeAPI()
	api.handle("POST /api/publish/posts/1/linkedin", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{"success":false,"error":"linkedin webhook not configured","action":"configure_webhook"}`)
	})
	api.handle("POST /api/publish/posts/1/facebook", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{"success":false}`)
	})
	api.handle("POST /api/publish/posts/1/reddit", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{"success":false,"error":"HTTP 500"}`)
	})
	api.handle("POST /api/publish/posts/404/twitter", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 404, `{"detail":"Post not found"}`)
	})
	api.handle("POST /api/publish/posts/1/broken", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{"success":`)
	})
	d := publish.NewDispatcher(api.start(t))
	ctx := context.Background()

	o := d.Dispatch(ctx, 1, "linkedin")
	assert.False(t, o.Success)
	assert.True(t, o.RequiresConfiguration)
	assert.Equal(t, model.FailureConfiguration, o.Failure)

	o = d.Dispatch(ctx, 1, "facebook")
	assert.Equal(t, model.FailureAPI, o.Failure)
	assert.Equal(t, publish.UnknownError, o.ErrorMessage)
	assert.False(t, o.RequiresConfiguration)

	o = d.Dispatch(ctx, 1, "reddit")
	assert.Equal(t, "HTTP 500", o.ErrorMessage)

	o = d.Dispatch(ctx, 404, "twitter")
	assert.Equal(t, model.FailureAPI, o.Failure)
	assert.Equal(t, "Post not found", o.ErrorMessage)

	o = d.Dispatch(ctx, 1, "broken")
	assert.Equal(t, model.FailureTransport, o.Failure)
	assert.NotEmpty(t, o.ErrorMessage)
}

func TestDispatchTransportFailureNeverPanics(t *testing.T) {
	o := publish.NewDispatcher(deadClient(t)).Dispatch(context.Background(), 1, "twitter")
	assert.False(t, o.Success)
	assert.Equal(t, model.FailureTransport, o.Failure)
	assert.NotEmpty(t, o.ErrorMessage)
}

func TestDispatchManyScenario(t *testing.T) {
	api := newFakeAPI()
	var got struct {
		Platforms []string `json:"platforms"`
	}
	api.handle("POST /api/publish/posts/7/multi", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		writeJSON(w, 200, `{"success_count":1,"failure_count":1,"results":{
			"linkedin":{"success":false,"action":"configure_webhook"},
			"instagram":{"success":true}}}`)
	})
	c := publish.NewCoordinator(api.start(t))
	br, err := c.DispatchMany(context.Background(), 7, []model.PlatformID{"linkedin", "instagram", "linkedin"})
	require.NoError(t, err)
	assert.Equal(t, []string{"linkedin", "instagram"}, got.Platforms)
	assert.Equal(t, 1, br.SuccessCount)
	assert.Equal(t, 1, br.FailureCount)
	assert.True(t, br.Outcomes["linkedin"].RequiresConfiguration)
	assert.True(t, br.Outcomes["instagram"].Success)
}

func TestDispatchManyMissingAndExtraResults(t *testing.T) {
	api := newFakeAPI()
	api.handle("POST /api/publish/posts/3/multi", func(w http.ResponseWriter, r *http.Request) {
		// the API claims two successes, omits b and reports an unrequested z
		writeJSON(w, 200, `{"success_count":2,"failure_count":0,"results":{"a":{"success":true},"z":{"success":true}}}`)
	})
	c := publish.NewCoordinator(api.start(t))
	br, err := c.DispatchMany(context.Background(), 3, []model.PlatformID{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, 2, br.SuccessCount+br.FailureCount)
	assert.Len(t, br.Outcomes, 2)
	assert.Equal(t, 1, br.SuccessCount)
	b := br.Outcomes["b"]
	assert.False(t, b.Success)
	assert.Equal(t, model.NoResultReported, b.ErrorMessage)
	assert.Equal(t, model.FailureMissing, b.Failure)
	_, extra := br.Outcomes["z"]
	assert.False(t, extra)
}

func TestDispatchManyCountInvariant(t *testing.T) {
	// 任意返回子集下，计数总和都等于目标数
	targets := []model.PlatformID{"a", "b", "c", "d"}
	for mask := 0; mask < 1<<len(targets); mask++ {
		results := map[string]any{}
		for i, p := range targets {
			if mask&(1<<i) != 0 {
				results[string(p)] = map[string]any{"success": i%2 == 0}
			}
		}
		body, _ := json.Marshal(map[string]any{"success_count": 99, "failure_count": 0, "results": results})
		api := newFakeAPI()
		api.handle("POST /api/publish/posts/1/multi", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, 200, string(body))
		})
		br, err := publish.NewCoordinator(api.start(t)).DispatchMany(context.Background(), 1, targets)
		require.NoError(t, err)
		assert.Equal(t, len(targets), br.SuccessCount+br.FailureCount, "mask=%b", mask)
		assert.Len(t, br.Outcomes, len(targets))
	}
}

func TestDispatchManyTransportFailure(t *testing.T) {
	br, err := publish.NewCoordinator(deadClient(t)).DispatchMany(context.Background(), 5, []model.PlatformID{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, 0, br.SuccessCount)
	assert.Equal(t, 3, br.FailureCount)
	for _, o := range br.Outcomes {
		assert.Equal(t, model.FailureTransport, o.Failure)
	}
}

func TestDispatchManyRejectsEmptyTargets(t *testing.T) {
	api := newFakeAPI()
	c := publish.NewCoordinator(api.start(t))
	_, err := c.DispatchMany(context.Background(), 1, nil)
	require.ErrorIs(t, err, publish.ErrNoTargets)
	_, err = c.DispatchMany(context.Background(), 1, []model.PlatformID{""})
	require.ErrorIs(t, err, publish.ErrNoTargets)
	assert.Zero(t, api.calls.Load())
}

func TestProbe(t *testing.T) {
	api := newFakeAPI()
	api.handle("POST /api/publish/test/twitter", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{"test_result":{"success":true}}`)
	})
	api.handle("POST /api/publish/test/facebook", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{"test_result":{"success":false,"error":"HTTP 410"}}`)
	})
	api.handle("POST /api/publish/test/linkedin", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{"success":false,"error":"linkedin webhook not configured","action":"configure_webhook"}`)
	})
	rec := &notify.Recorder{}
	p := publish.NewProbe(api.start(t), rec)
	ctx := context.Background()

	assert.True(t, p.Test(ctx, "twitter").Success)
	n, _ := rec.Last()
	assert.Equal(t, model.LevelSuccess, n.Level)
	assert.Equal(t, "Twitter webhook test successful! Check your Zap history in Zapier.", n.Message)

	o := p.Test(ctx, "facebook")
	assert.False(t, o.Success)
	n, _ = rec.Last()
	assert.Equal(t, "Facebook webhook test failed: HTTP 410", n.Message)

	o = p.Test(ctx, "linkedin")
	assert.True(t, o.RequiresConfiguration)
	n, _ = rec.Last()
	assert.Equal(t, model.LevelWarning, n.Level)

	assert.Len(t, rec.Notices(), 3)
}

func TestProbeTransportFailure(t *testing.T) {
	rec := &notify.Recorder{}
	o := publish.NewProbe(deadClient(t), rec).Test(context.Background(), "twitter")
	assert.Equal(t, model.FailureTransport, o.Failure)
	n, ok := rec.Last()
	require.True(t, ok)
	assert.Equal(t, model.LevelError, n.Level)
	assert.Contains(t, n.Message, "Twitter webhook test failed:")
}

func TestHistoryQuery(t *testing.T) {
	api := newFakeAPI()
	var rawQuery string
	api.handle("GET /api/publish/history", func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		writeJSON(w, 200, `{"history":[
			{"post_id":1,"platform":"twitter","published_at":"2025-10-20T10:00:00","success":true},
			{"post_id":2,"platform":"twitter","published_at":"2025-10-20T12:00:00.123456","success":false},
			{"post_id":3,"platform":"linkedin","published_at":"2025-10-20T11:00:00+00:00","success":true,"post_url":"https://l/3"},
			{"post_id":4,"platform":"twitter","published_at":"2025-10-20T11:30:00Z","success":true}
		]}`)
	})
	h := publish.NewHistory(api.start(t), nil)
	ctx := context.Background()

	all := h.Query(ctx, publish.Filter{})
	assert.Empty(t, rawQuery, "absent filters are not sent")
	require.Len(t, all, 4)
	ids := []model.PostID{all[0].PostID, all[1].PostID, all[2].PostID, all[3].PostID}
	assert.Equal(t, []model.PostID{2, 4, 3, 1}, ids)
	assert.Equal(t, "https://l/3", all[2].PostURL)

	got := h.Query(ctx, publish.Filter{Platform: "twitter", Limit: 2, SuccessOnly: true})
	assert.Contains(t, rawQuery, "platform=twitter")
	assert.Contains(t, rawQuery, "limit=2")
	assert.Contains(t, rawQuery, "success_only=true")
	require.Len(t, got, 2)
	assert.Equal(t, model.PostID(4), got[0].PostID)
	assert.Equal(t, model.PostID(1), got[1].PostID)
}

func TestHistoryQueryFailure(t *testing.T) {
	rec := &notify.Recorder{}
	got := publish.NewHistory(deadClient(t), rec).Query(context.Background(), publish.Filter{Limit: 10})
	require.NotNil(t, got)
	assert.Empty(t, got)
	n, ok := rec.Last()
	require.True(t, ok)
	assert.Equal(t, model.LevelError, n.Level)
	assert.Equal(t, "Error loading publishing history", n.Message)
}

func TestSetupGuide(t *testing.T) {
	api := newFakeAPI()
	api.handle("GET /api/publish/platforms/twitter/setup", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{"steps":["Create a Zap","Copy the URL"],"env_var":"ZAPIER_TWITTER_WEBHOOK",
			"example_webhook":"https://hooks.zapier.com/hooks/catch/1/abc/","zapier_url":"https://zapier.com/app/zaps"}`)
	})
	api.handle("GET /api/publish/platforms/myspace/setup", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 404, `{"detail":"Unknown platform"}`)
	})
	rec := &notify.Recorder{}
	s := publish.NewSetup(api.start(t), rec)

	g, err := s.Guide(context.Background(), "twitter")
	require.NoError(t, err)
	assert.Equal(t, "ZAPIER_TWITTER_WEBHOOK", g.EnvVar)
	assert.Len(t, g.Steps, 2)
	assert.Empty(t, rec.Notices())

	_, err = s.Guide(context.Background(), "myspace")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unknown platform")
	n, _ := rec.Last()
	assert.Equal(t, "Error loading setup instructions", n.Message)
}

func TestStats(t *testing.T) {
	api := newFakeAPI()
	api.handle("GET /api/publish/stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{"total_published":4,"successful_publishes":3,"failed_publishes":1,
			"success_rate":75.0,"by_platform":{"twitter":3,"linkedin":1},"last_published":"2025-10-20T12:00:00"}`)
	})
	st, err := publish.NewStats(api.start(t)).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, st.TotalPublished)
	assert.Equal(t, 3, st.ByPlatform["twitter"])
	assert.InDelta(t, 75.0, st.SuccessRate, 0.001)
	require.NotNil(t, st.LastPublished)
	assert.Equal(t, 12, st.LastPublished.Hour())

	_, err = publish.NewStats(deadClient(t)).Fetch(context.Background())
	require.Error(t, err)
}

func TestDistinct(t *testing.T) {
	got := publish.Distinct([]model.PlatformID{"b", "a", "", "b", "c", "a"})
	assert.Equal(t, []model.PlatformID{"b", "a", "c"}, got)
}
