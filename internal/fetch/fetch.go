// 包 fetch 封装发布 API 的 HTTP 客户端（基础路径/代理/超时/限速/GET 重试/JSON 编解码）。
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// 响应体读取上限，避免异常响应占用过多内存。
const maxBody = 4 << 20

// ErrDecode 表示响应无法解码为期望的 JSON 结构。
var ErrDecode = errors.New("decode response")

// Client 为发布 API 客户端，所有路径均挂在同一个基础路径下。
type Client struct {
	http    *http.Client
	base    *url.URL
	retry   int
	limiter *rate.Limiter
}

// Options 为客户端构造参数。
type Options struct {
	BaseURL    string
	ProxyHTTP  string
	ProxyHTTPS string
	Timeout    time.Duration
	// Retry 仅作用于幂等的 GET 请求；发布写请求从不自动重试。
	Retry int
	// RatePerSec 为每秒请求上限，<=0 表示不限速。
	RatePerSec float64
}

// New 创建客户端，支持 http/https 代理、基础超时与可选限速。
func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", opts.BaseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", opts.BaseURL)
	}
	transport := &http.Transport{
		Proxy: func(req *http.Request) (*url.URL, error) {
			if req.URL.Scheme == "https" && opts.ProxyHTTPS != "" {
				return url.Parse(opts.ProxyHTTPS)
			}
			if req.URL.Scheme == "http" && opts.ProxyHTTP != "" {
				return url.Parse(opts.ProxyHTTP)
			}
			return http.ProxyFromEnvironment(req)
		},
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	cl := &http.Client{Transport: transport}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	cl.Timeout = opts.Timeout
	c := &Client{http: cl, base: base, retry: max(0, opts.Retry)}
	if opts.RatePerSec > 0 {
		burst := int(opts.RatePerSec)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSec), burst)
	}
	return c, nil
}

// URL 返回基础路径下由 segments 拼接的完整地址。
func (c *Client) URL(query url.Values, segments ...string) string {
	u := c.base.JoinPath(segments...)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// GetJSON 发起 GET 请求并将响应解码到 out，失败时按线性回退重试。
func (c *Client) GetJSON(ctx context.Context, target string, out any) error {
	var lastErr error
	attempts := c.retry + 1
	for i := 0; i < attempts; i++ {
		lastErr = c.do(ctx, http.MethodGet, target, nil, out)
		if lastErr == nil {
			return nil
		}
		// 4xx 与解码错误重试无意义
		var se *StatusError
		if errors.As(lastErr, &se) && se.Code < 500 {
			return lastErr
		}
		if errors.Is(lastErr, ErrDecode) {
			return lastErr
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(i+1) * 300 * time.Millisecond):
		}
	}
	return lastErr
}

// PostJSON 发起 POST 请求（body 为 nil 时不带请求体），只尝试一次。
func (c *Client) PostJSON(ctx context.Context, target string, body any, out any) error {
	return c.do(ctx, http.MethodPost, target, body, out)
}

func (c *Client) do(ctx context.Context, method, target string, body any, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rd)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	// 支持环境变量覆盖 UA（PUBLICIST_UA）
	ua := os.Getenv("PUBLICIST_UA")
	if ua == "" {
		ua = "go-publicist/1.0"
	}
	req.Header.Set("User-Agent", ua)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("read response %s: %w", target, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{
			Code:   resp.StatusCode,
			Status: resp.Status,
			Detail: Describe(resp.Header.Get("Content-Type"), raw),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w from %s: %v (%s)", ErrDecode, target, err, Describe(resp.Header.Get("Content-Type"), raw))
	}
	return nil
}

// StatusError 表示 API 返回了非 2xx 状态码。
type StatusError struct {
	Code   int
	Status string
	// Detail 为从响应体中提取的可读描述（FastAPI detail、HTML 标题或截断文本）。
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("http status: %s", e.Status)
	}
	return fmt.Sprintf("http status: %s: %s", e.Status, e.Detail)
}
