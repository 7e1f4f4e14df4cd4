package fetch

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const maxDescribe = 200

// Describe 从错误响应体中提取一段可读描述：
// - JSON：优先 FastAPI 的 detail，其次 error/message 字段
// - HTML：取 <title>，没有则取 <body> 文本（代理/网关错误页常见）
// - 其他：截断后的原始文本
func Describe(contentType string, body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return ""
	}
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "json") || body[0] == '{' {
		if s := describeJSON(body); s != "" {
			return s
		}
	}
	if strings.Contains(ct, "html") || bytes.HasPrefix(bytes.ToLower(body), []byte("<!doctype html")) || bytes.HasPrefix(bytes.ToLower(body), []byte("<html")) {
		if s := describeHTML(body); s != "" {
			return s
		}
	}
	return truncate(strings.Join(strings.Fields(string(body)), " "))
}

func describeJSON(body []byte) string {
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return ""
	}
	for _, k := range []string{"detail", "error", "message"} {
		switch v := m[k].(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				return truncate(v)
			}
		case nil:
		default:
			// FastAPI 校验错误的 detail 为数组
			if b, err := json.Marshal(v); err == nil {
				return truncate(string(b))
			}
		}
	}
	return ""
}

func describeHTML(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" {
		return truncate(t)
	}
	if h := strings.TrimSpace(doc.Find("h1").First().Text()); h != "" {
		return truncate(h)
	}
	return truncate(strings.Join(strings.Fields(doc.Find("body").Text()), " "))
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= maxDescribe {
		return s
	}
	return string(r[:maxDescribe]) + "..."
}
