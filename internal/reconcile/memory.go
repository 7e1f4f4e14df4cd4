package reconcile

import (
	"context"
	"sort"
	"sync"

	"go-publicist/internal/model"
)

// MemoryStore 在极简模式下保存状态，进程退出即丢失。
type MemoryStore struct {
	mu      sync.Mutex
	entries map[Key]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[Key]Entry)}
}

func (m *MemoryStore) Load(_ context.Context, k Key) (Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[k]
	return e, ok, nil
}

func (m *MemoryStore) Save(_ context.Context, e Entry) error {
	m.mu.Lock()
	m.entries[e.Key] = e
	m.mu.Unlock()
	return nil
}

// List 返回副本，按 post 倒序、平台名升序排列。
func (m *MemoryStore) List(_ context.Context, postID model.PostID) ([]Entry, error) {
	m.mu.Lock()
	out := make([]Entry, 0, len(m.entries))
	for k, e := range m.entries {
		if postID != 0 && k.PostID != postID {
			continue
		}
		out = append(out, e)
	}
	m.mu.Unlock()
	sortEntries(out)
	return out, nil
}

func sortEntries(es []Entry) {
	sort.Slice(es, func(i, j int) bool {
		if es[i].PostID != es[j].PostID {
			return es[i].PostID > es[j].PostID
		}
		return es[i].Platform < es[j].Platform
	})
}
