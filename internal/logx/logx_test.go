package logx_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"go-publicist/internal/logx"
)

func TestLogx_PrettyZH_Info(t *testing.T) {
	var buf bytes.Buffer
	logx.InitWriter(&buf, "debug", "pretty", "zh-CN", "never")
	logx.Infof("hello %s", "world")
	if !strings.Contains(buf.String(), "[信息]") {
		t.Fatalf("expect zh label [信息], got: %q", buf.String())
	}
}

func TestLogx_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logx.InitWriter(&buf, "warn", "pretty", "zh-CN", "never")
	logx.Infof("should not print")
	logx.Warnf("warn on")
	out := buf.String()
	if strings.Contains(out, "should not print") {
		t.Fatalf("info should be filtered when level=warn")
	}
	if !strings.Contains(out, "[警告]") {
		t.Fatalf("expect warn label present")
	}
}

func TestLogx_EnglishLabels(t *testing.T) {
	var buf bytes.Buffer
	logx.InitWriter(&buf, "info", "pretty", "en", "never")
	logx.Infof("ok")
	if !strings.Contains(buf.String(), "[INFO]") {
		t.Fatalf("expect en label [INFO], got: %q", buf.String())
	}
}

func TestLogx_SilentLevel(t *testing.T) {
	var buf bytes.Buffer
	logx.InitWriter(&buf, "off", "pretty", "en", "never")
	logx.Errorf("nothing")
	if buf.Len() != 0 {
		t.Fatalf("expect no output when level=off, got: %q", buf.String())
	}
}

func TestLogx_ErrorfAndColorAlways(t *testing.T) {
	t.Setenv("NO_COLOR", "")
	var buf bytes.Buffer
	logx.InitWriter(&buf, "error", "pretty", "zh-CN", "always")
	logx.Errorf("boom %d", 1)
	out := buf.String()
	if !strings.Contains(out, "[错误]") {
		t.Fatalf("expect error label, got: %q", out)
	}
	if !strings.Contains(out, "\x1b[") {
		t.Fatalf("expect ansi color when color=always")
	}
}

func TestLogx_WithQuotesValues(t *testing.T) {
	var buf bytes.Buffer
	logx.InitWriter(&buf, "info", "pretty", "en", "never")
	logx.With("comp", "reconcile").Info("applied", "message", "no result reported")
	out := buf.String()
	if !strings.Contains(out, "comp=reconcile") {
		t.Fatalf("expect component attr, got: %q", out)
	}
	if !strings.Contains(out, `message="no result reported"`) {
		t.Fatalf("expect quoted value, got: %q", out)
	}
}

func TestLogx_WithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	h := logx.NewPrettyHandler(&buf, slog.LevelInfo, "en", "never")
	logger := slog.New(h).With("k", "v").WithGroup("g")
	logger.Info("hello")
	if !strings.Contains(buf.String(), "k=v") {
		t.Fatalf("expect flattened attr present, got: %q", buf.String())
	}
}

func TestLogx_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logx.InitWriter(&buf, "info", "json", "en", "never")
	logx.Infof("structured")
	if !strings.Contains(buf.String(), `"msg":"structured"`) {
		t.Fatalf("expect json output, got: %q", buf.String())
	}
}
