package reconcile

import (
	"sync"
	"sync/atomic"
	"time"

	"go-publicist/internal/model"
)

// StatusChange 为一次状态迁移事件，供渲染层订阅。
type StatusChange struct {
	Key
	From model.TargetStatus
	To   model.TargetStatus
	At   time.Time
}

// fanout 为非阻塞的内存广播：订阅者使用带缓冲 channel，慢订阅者会丢事件。
type fanout struct {
	mu   sync.RWMutex
	subs map[uint64]chan StatusChange
	seq  atomic.Uint64
}

func (f *fanout) publish(ev StatusChange) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, ch := range f.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (f *fanout) subscribe(buffer int) (<-chan StatusChange, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan StatusChange, buffer)
	id := f.seq.Add(1)

	f.mu.Lock()
	if f.subs == nil {
		f.subs = map[uint64]chan StatusChange{}
	}
	f.subs[id] = ch
	f.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			// 在写锁内删除并关闭，publish 持读锁发送，不会向已关闭的 channel 写入
			f.mu.Lock()
			delete(f.subs, id)
			close(ch)
			f.mu.Unlock()
		})
	}
}
