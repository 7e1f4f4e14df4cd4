package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go-publicist/internal/model"
)

// Console prints notices as single lines: icon + message, optionally colored.
type Console struct {
	mu    sync.Mutex
	w     io.Writer
	color bool
}

// NewConsole writes to w (stdout when nil). colorMode is auto|always|never and
// NO_COLOR always wins.
func NewConsole(w io.Writer, colorMode string) *Console {
	if w == nil {
		w = os.Stdout
	}
	return &Console{w: w, color: shouldColor(w, colorMode)}
}

func (c *Console) Notify(_ context.Context, n model.Notice) {
	line := icon(n.Level) + " " + n.Message
	if c.color {
		line = colorize(line, n.Level)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintln(c.w, line)
}

func icon(l model.NoticeLevel) string {
	switch l {
	case model.LevelSuccess:
		return "✓"
	case model.LevelError:
		return "✗"
	case model.LevelWarning:
		return "⚠"
	default:
		return "ℹ"
	}
}

func colorize(s string, l model.NoticeLevel) string {
	code := "36"
	switch l {
	case model.LevelSuccess:
		code = "32"
	case model.LevelWarning:
		code = "33"
	case model.LevelError:
		code = "31"
	}
	return "\x1b[" + code + "m" + s + "\x1b[0m"
}

func shouldColor(w io.Writer, mode string) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "always":
		return true
	case "auto", "":
		if f, ok := w.(*os.File); ok {
			if fi, err := f.Stat(); err == nil {
				return (fi.Mode() & os.ModeCharDevice) != 0
			}
		}
		return false
	default:
		return false
	}
}
