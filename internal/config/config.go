// 包 config 负责加载与校验应用配置（settings.yaml + .env 覆盖），
// 对外提供结构体 Config 及默认值/合法性校验。
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultBaseURL 为发布 API 的默认基础路径。
const DefaultBaseURL = "http://localhost:8000/api/publish"

// 环境变量覆盖项（可写在 .env 中）。
const (
	EnvAPIBase        = "PUBLICIST_API_BASE"
	EnvTelegramToken  = "PUBLICIST_TELEGRAM_TOKEN"
	EnvTelegramChatID = "PUBLICIST_TELEGRAM_CHAT_ID"
)

type Config struct {
	API         API           `yaml:"API"`
	Proxy       Proxy         `yaml:"PROXY"`
	SimpleMode  bool          `yaml:"SIMPLE_MODE"` // true：状态只保存在内存，不打开数据库
	Database    Database      `yaml:"DATABASE"`
	FailedReset time.Duration `yaml:"FAILED_RESET"` // failed 状态自动回到 idle 的展示时长
	Notify      Notify        `yaml:"NOTIFY"`
	Watch       Watch         `yaml:"WATCH"`
	LogLevel    string        `yaml:"LOG_LEVEL"`
	LogFormat   string        `yaml:"LOG_FORMAT"` // text|json|pretty
	LogLocale   string        `yaml:"LOG_LOCALE"` // zh-CN|en
	LogColor    string        `yaml:"LOG_COLOR"`  // auto|always|never
}

type API struct {
	BaseURL    string        `yaml:"BASE_URL"`
	Timeout    time.Duration `yaml:"TIMEOUT"`
	Retry      int           `yaml:"RETRY"` // 仅用于 GET
	RatePerSec float64       `yaml:"RATE_PER_SEC"`
}

type Proxy struct {
	HTTP  string `yaml:"http"`
	HTTPS string `yaml:"https"`
}

type Database struct {
	Type string `yaml:"type"` // sqlite (default)
	DSN  string `yaml:"dsn"`  // ./publicist.db
}

type Notify struct {
	// Console 为 nil 时默认开启
	Console  *bool    `yaml:"CONSOLE"`
	Color    string   `yaml:"COLOR"` // auto|always|never
	Telegram Telegram `yaml:"TELEGRAM"`
}

// ConsoleEnabled 返回是否向终端输出通知。
func (n Notify) ConsoleEnabled() bool {
	return n.Console == nil || *n.Console
}

type Telegram struct {
	Token      string  `yaml:"token"`
	ChatID     int64   `yaml:"chat_id"`
	RatePerSec float64 `yaml:"rate_per_sec"`
}

// Enabled 在 token 与 chat_id 都存在时为 true。
func (t Telegram) Enabled() bool {
	return strings.TrimSpace(t.Token) != "" && t.ChatID != 0
}

type Watch struct {
	Schedule     string `yaml:"schedule"`
	HistoryLimit int    `yaml:"history_limit"`
}

// Default 返回仅含默认值的配置（无配置文件时使用）。
func Default() *Config {
	c := &Config{}
	_ = c.Validate()
	return c
}

func Load(path string) (*Config, error) {
	// Load 从文件读取 YAML 并反序列化为 Config，随后应用环境变量覆盖并校验。
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("unmarshal config %s: %w", path, err)
	}
	if err := c.ApplyEnv(); err != nil {
		return nil, fmt.Errorf("apply env: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadOrDefault 与 Load 相同，但配置文件不存在时返回默认配置（仍应用环境变量）。
func LoadOrDefault(path string) (*Config, error) {
	c, err := Load(path)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	c = &Config{}
	if err := c.ApplyEnv(); err != nil {
		return nil, fmt.Errorf("apply env: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadDotEnv 按顺序加载存在的 .env 文件（后者覆盖前者），返回实际加载的文件。
func LoadDotEnv(files ...string) ([]string, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	loaded := make([]string, 0, len(files))
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Overload(file); err != nil {
			return loaded, fmt.Errorf("load %s: %w", file, err)
		}
		loaded = append(loaded, file)
	}
	return loaded, nil
}

// ApplyEnv 使用环境变量覆盖配置文件中的对应字段。
func (c *Config) ApplyEnv() error {
	if v := strings.TrimSpace(os.Getenv(EnvAPIBase)); v != "" {
		c.API.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelegramToken)); v != "" {
		c.Notify.Telegram.Token = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelegramChatID)); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTelegramChatID, err)
		}
		c.Notify.Telegram.ChatID = id
	}
	return nil
}

func (c *Config) Validate() error {
	// Validate 负责合法性检查与默认值设置，避免在业务层分散判空逻辑。
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultBaseURL
	}
	if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		return fmt.Errorf("API.BASE_URL must be an http(s) url: %q", c.API.BaseURL)
	}
	if c.API.Timeout < 0 {
		return errors.New("API.TIMEOUT must be >= 0")
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = 30 * time.Second
	}
	if c.API.Retry < 0 {
		c.API.Retry = 2
	}
	if c.API.RatePerSec < 0 {
		return errors.New("API.RATE_PER_SEC must be >= 0")
	}
	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
	}
	if c.Database.Type != "sqlite" {
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}
	if c.Database.DSN == "" {
		c.Database.DSN = "./publicist.db"
	}
	if c.FailedReset < 0 {
		return errors.New("FAILED_RESET must be >= 0")
	}
	if c.FailedReset == 0 {
		c.FailedReset = 3 * time.Second
	}
	if c.Notify.Color == "" {
		c.Notify.Color = "auto"
	}
	if c.Notify.Telegram.RatePerSec <= 0 {
		c.Notify.Telegram.RatePerSec = 1
	}
	if c.Watch.Schedule == "" {
		c.Watch.Schedule = "@every 1m"
	}
	if c.Watch.HistoryLimit <= 0 {
		c.Watch.HistoryLimit = 10
	}
	if c.LogFormat == "" {
		c.LogFormat = "pretty"
	}
	if c.LogLocale == "" {
		c.LogLocale = "en"
	}
	if c.LogColor == "" {
		c.LogColor = "auto"
	}
	return nil
}
