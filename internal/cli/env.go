package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"go-publicist/internal/config"
	"go-publicist/internal/core"
	"go-publicist/internal/fetch"
	"go-publicist/internal/logx"
	"go-publicist/internal/notify"
	"go-publicist/internal/reconcile"
	"go-publicist/internal/store"
)

// env 为单次命令执行所需的全部依赖，由 options.open 构建，命令结束时 Close。
type env struct {
	cfg  *config.Config
	core *core.Core
	rec  *reconcile.Reconciler
	// notifier 为终端/Telegram/日志的组合出口
	notifier notify.Notifier
	// db 仅在非极简模式下打开
	db *store.SQLite
}

// open 按顺序完成：加载 .env → 加载配置 → 初始化日志 → 构建通知/存储/客户端。
// JSON 输出时终端通知写到 stderr，stdout 只保留 JSON。
func (o *options) open(cmd *cobra.Command) (*env, error) {
	out := cmd.OutOrStdout()
	if o.json() {
		out = cmd.ErrOrStderr()
	}
	// 1) .env 覆盖（文件不存在时跳过）
	loaded, err := config.LoadDotEnv(o.envFiles...)
	if err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}
	// 2) 配置：文件不存在时使用默认值
	cfg, err := config.LoadOrDefault(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.baseURL != "" {
		cfg.API.BaseURL = o.baseURL
	}
	if o.simple {
		cfg.SimpleMode = true
	}
	// 3) 日志：级别/格式/语言/颜色
	logx.Init(cfg.LogLevel, cfg.LogFormat, cfg.LogLocale, cfg.LogColor)
	if len(loaded) > 0 {
		logx.Debugf("loaded env files: %v", loaded)
	}

	// 4) HTTP 客户端（代理/超时/GET 重试/限速）
	cl, err := fetch.New(fetch.Options{
		BaseURL:    cfg.API.BaseURL,
		ProxyHTTP:  cfg.Proxy.HTTP,
		ProxyHTTPS: cfg.Proxy.HTTPS,
		Timeout:    cfg.API.Timeout,
		Retry:      cfg.API.Retry,
		RatePerSec: cfg.API.RatePerSec,
	})
	if err != nil {
		return nil, fmt.Errorf("http client: %w", err)
	}

	n, err := buildNotifier(cfg, out)
	if err != nil {
		return nil, err
	}

	// 5) 状态存储：极简模式只用内存，正常模式使用 SQLite 让 published 跨进程保持终态
	e := &env{cfg: cfg, notifier: n}
	var st reconcile.Store
	if !cfg.SimpleMode {
		db, err := store.OpenSQLite(cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
		e.db = db
		st = db
	}
	e.rec = reconcile.New(st, n, reconcile.WithFailedReset(cfg.FailedReset))
	e.core = core.New(cl, e.rec, n)
	return e, nil
}

func (e *env) Close() {
	e.rec.Close()
	if e.db != nil {
		if err := e.db.Close(); err != nil {
			logx.Warnf("close db: %v", err)
		}
	}
}

// buildNotifier 组合终端/Telegram/日志三个通知出口。
func buildNotifier(cfg *config.Config, out io.Writer) (notify.Notifier, error) {
	var sinks notify.Multi
	if cfg.Notify.ConsoleEnabled() {
		sinks = append(sinks, notify.NewConsole(out, cfg.Notify.Color))
	}
	if cfg.Notify.Telegram.Enabled() {
		tg, err := notify.NewTelegram(notify.TelegramConfig{
			Token:      cfg.Notify.Telegram.Token,
			ChatID:     cfg.Notify.Telegram.ChatID,
			RatePerSec: cfg.Notify.Telegram.RatePerSec,
		})
		if err != nil {
			return nil, fmt.Errorf("telegram notifier: %w", err)
		}
		sinks = append(sinks, tg)
	}
	sinks = append(sinks, notify.Logging{})
	return sinks, nil
}
