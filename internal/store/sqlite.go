// 包 store 提供状态存储实现（SQLite），包含表迁移/写入/查询/清理等操作。
// 持久化后 published 终态跨进程有效，多次命令行调用不会重复发布。
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"go-publicist/internal/model"
	"go-publicist/internal/reconcile"
)

// SQLite 封装 *sql.DB，基于 modernc.org/sqlite（纯 Go 实现）。
type SQLite struct {
	db *sql.DB
}

var _ reconcile.Store = (*SQLite)(nil)

// OpenSQLite 打开 SQLite 数据库并执行自动迁移。
func OpenSQLite(path string) (*SQLite, error) {
	// 说明：modernc sqlite 的 DSN 可直接使用文件路径，或以 'file:...' 前缀表示
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

// Reset 清空状态表（不删除数据库文件）。
func (s *SQLite) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM target_status`); err != nil {
		return fmt.Errorf("delete target_status: %w", err)
	}
	return nil
}

// migrate 执行建表语句，保持幂等。
func (s *SQLite) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS target_status (
            post_id INTEGER NOT NULL,
            platform TEXT NOT NULL,
            status TEXT NOT NULL,
            message TEXT,
            post_url TEXT,
            updated_at TIMESTAMP,
            PRIMARY KEY (post_id, platform)
        );`,
		`CREATE INDEX IF NOT EXISTS idx_target_status_updated ON target_status(updated_at);`,
	}
	for _, q := range stmts {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("exec migrate: %w", err)
		}
	}
	return nil
}

// Load 按 (post, platform) 读取状态，不存在时 ok=false。
func (s *SQLite) Load(ctx context.Context, k reconcile.Key) (reconcile.Entry, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT status, COALESCE(message,''), COALESCE(post_url,''), updated_at
        FROM target_status WHERE post_id = ? AND platform = ?`, int64(k.PostID), string(k.Platform))
	e := reconcile.Entry{Key: k}
	var status string
	var updatedAt sql.NullTime
	if err := row.Scan(&status, &e.Message, &e.PostURL, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return reconcile.Entry{}, false, nil
		}
		return reconcile.Entry{}, false, fmt.Errorf("load status %s: %w", k, err)
	}
	e.Status = model.ParseTargetStatus(status)
	if updatedAt.Valid {
		e.UpdatedAt = updatedAt.Time
	}
	return e, true, nil
}

// Save 插入或覆盖状态（主键 post_id+platform），最新状态总是胜出。
func (s *SQLite) Save(ctx context.Context, e reconcile.Entry) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO target_status(post_id, platform, status, message, post_url, updated_at)
        VALUES(?,?,?,?,?,?)
        ON CONFLICT(post_id, platform) DO UPDATE SET status=excluded.status, message=excluded.message, post_url=excluded.post_url, updated_at=excluded.updated_at`,
		int64(e.PostID), string(e.Platform), string(e.Status), e.Message, e.PostURL, nowOr(e.UpdatedAt).UTC())
	if err != nil {
		return fmt.Errorf("upsert status %s: %w", e.Key, err)
	}
	return nil
}

// List 返回状态列表，按 post 倒序、平台名升序；postID 为 0 时返回全部。
func (s *SQLite) List(ctx context.Context, postID model.PostID) ([]reconcile.Entry, error) {
	q := `SELECT post_id, platform, status, COALESCE(message,''), COALESCE(post_url,''), updated_at FROM target_status`
	var args []any
	if postID != 0 {
		q += ` WHERE post_id = ?`
		args = append(args, int64(postID))
	}
	q += ` ORDER BY post_id DESC, platform ASC`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query status: %w", err)
	}
	defer rows.Close()
	var out []reconcile.Entry
	for rows.Next() {
		var e reconcile.Entry
		var id int64
		var platform, status string
		var updatedAt sql.NullTime
		if err := rows.Scan(&id, &platform, &status, &e.Message, &e.PostURL, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan status: %w", err)
		}
		e.PostID = model.PostID(id)
		e.Platform = model.PlatformID(platform)
		e.Status = model.ParseTargetStatus(status)
		if updatedAt.Valid {
			e.UpdatedAt = updatedAt.Time
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status: %w", err)
	}
	return out, nil
}

// CountByStatus 统计各状态的条目数。
func (s *SQLite) CountByStatus(ctx context.Context) (map[model.TargetStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM target_status GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count status: %w", err)
	}
	defer rows.Close()
	out := map[model.TargetStatus]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		out[model.ParseTargetStatus(status)] += n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate count: %w", err)
	}
	return out, nil
}

// CleanOlderThan 按天数阈值清理非 published 的陈旧状态（基于 updated_at）。
// published 为终态，永不清理。
func (s *SQLite) CleanOlderThan(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	res, err := s.db.ExecContext(ctx, `DELETE FROM target_status WHERE status <> ? AND updated_at < ?`, string(model.StatusPublished), cutoff)
	if err != nil {
		return 0, fmt.Errorf("clean stale status: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func nowOr(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
