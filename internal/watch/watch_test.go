package watch_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-publicist/internal/model"
	"go-publicist/internal/notify"
	"go-publicist/internal/publish"
	"go-publicist/internal/watch"
)

type fakeSource struct {
	mu           sync.Mutex
	status       map[model.PlatformID]bool
	history      []model.HistoryRecord
	historyCalls int
	statusCalls  int
	lastFilter   publish.Filter
}

func (f *fakeSource) PlatformStatus(context.Context) map[model.PlatformID]bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	out := map[model.PlatformID]bool{}
	for k, v := range f.status {
		out[k] = v
	}
	return out
}

func (f *fakeSource) History(_ context.Context, flt publish.Filter) []model.HistoryRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.historyCalls++
	f.lastFilter = flt
	return append([]model.HistoryRecord(nil), f.history...)
}

func (f *fakeSource) set(status map[model.PlatformID]bool) {
	f.mu.Lock()
	f.status = status
	f.mu.Unlock()
}

func (f *fakeSource) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusCalls, f.historyCalls
}

func TestNewRejectsBadSchedule(t *testing.T) {
	_, err := watch.New(watch.Config{Schedule: "every tuesday"}, &fakeSource{}, nil)
	require.Error(t, err)
	_, err = watch.New(watch.Config{Schedule: "@every 1m"}, nil, nil)
	require.Error(t, err)
	_, err = watch.New(watch.Config{Schedule: "*/30 * * * * *"}, &fakeSource{}, nil)
	require.NoError(t, err)
}

func TestRefreshNotifiesConfigurationChanges(t *testing.T) {
	src := &fakeSource{
		status:  map[model.PlatformID]bool{"twitter": true, "linkedin": false},
		history: []model.HistoryRecord{{PostID: 1, Platform: "twitter", Success: true}},
	}
	rec := &notify.Recorder{}
	w, err := watch.New(watch.Config{Schedule: "@every 1m", HistoryLimit: 5}, src, rec)
	require.NoError(t, err)
	ctx := context.Background()

	w.Refresh(ctx)
	assert.Empty(t, rec.Notices(), "first snapshot is a baseline")
	assert.Len(t, w.Latest(), 1)
	assert.Equal(t, 5, src.lastFilter.Limit)

	src.set(map[model.PlatformID]bool{"twitter": false, "linkedin": true, "instagram": true})
	w.Refresh(ctx)
	ns := rec.Notices()
	require.Len(t, ns, 3)
	assert.Equal(t, model.PlatformID("instagram"), ns[0].Platform)
	assert.Equal(t, model.LevelSuccess, ns[0].Level)
	assert.Equal(t, model.PlatformID("linkedin"), ns[1].Platform)
	assert.Equal(t, model.LevelWarning, ns[2].Level)
	assert.Contains(t, ns[2].Message, "Twitter webhook is no longer configured")

	// unreachable API keeps the last snapshot and stays quiet
	src.set(nil)
	w.Refresh(ctx)
	assert.Len(t, rec.Notices(), 3)
	assert.Len(t, w.Snapshot(), 3)
}

func TestHistoryObserverAndFlush(t *testing.T) {
	src := &fakeSource{history: []model.HistoryRecord{{PostID: 2}}}
	w, err := watch.New(watch.Config{Schedule: "@every 1h"}, src, nil)
	require.NoError(t, err)
	ctx := context.Background()

	assert.Empty(t, w.Flush(ctx), "nothing is stale yet")
	_, hc := src.calls()
	assert.Zero(t, hc)

	observe := w.HistoryObserver()
	observe()
	observe()
	got := w.Flush(ctx)
	require.Len(t, got, 1)
	_, hc = src.calls()
	assert.Equal(t, 1, hc, "observer calls coalesce")
}

func TestStartRunsScheduleAndObserverLoop(t *testing.T) {
	src := &fakeSource{status: map[model.PlatformID]bool{"twitter": true}}
	w, err := watch.New(watch.Config{Schedule: "@every 1s"}, src, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	w.HistoryObserver()()
	require.Eventually(t, func() bool {
		_, hc := src.calls()
		return hc >= 1
	}, time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		sc, _ := src.calls()
		return sc >= 1
	}, 3*time.Second, 50*time.Millisecond)

	w.Stop()
	w.Stop()
}
