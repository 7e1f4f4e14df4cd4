package reconcile

import (
	"context"
	"fmt"
	"time"

	"go-publicist/internal/model"
)

// Key 为状态表的主键 (post, platform)。
type Key struct {
	PostID   model.PostID
	Platform model.PlatformID
}

func (k Key) String() string { return fmt.Sprintf("%d/%s", k.PostID, k.Platform) }

// Entry 为某个 Key 的最新状态；Message/PostURL 来自最近一次结果。
type Entry struct {
	Key
	Status    model.TargetStatus
	Message   string
	PostURL   string
	UpdatedAt time.Time
}

// Store 为 TargetStatus 的存储，只由 Reconciler 写入。
// Load 在 Key 不存在时返回 ok=false（视为 idle）。
type Store interface {
	Load(ctx context.Context, k Key) (e Entry, ok bool, err error)
	Save(ctx context.Context, e Entry) error
	// List 返回某帖子的全部状态；postID 为 0 时返回全部。
	List(ctx context.Context, postID model.PostID) ([]Entry, error)
}
