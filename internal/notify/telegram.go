package notify

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	"go-publicist/internal/logx"
	"go-publicist/internal/model"
)

// TelegramConfig configures the Telegram sink.
type TelegramConfig struct {
	Token  string
	ChatID int64
	// RatePerSec caps sends; Telegram throttles bots that burst into one chat.
	RatePerSec float64
	// APIURL overrides the Bot API endpoint (tests).
	APIURL  string
	Timeout time.Duration
}

// Telegram forwards notices to a single chat.
type Telegram struct {
	bot     *tele.Bot
	chat    *tele.Chat
	limiter *rate.Limiter
}

// NewTelegram builds the sink without contacting Telegram; the first network
// call happens on the first notice.
func NewTelegram(cfg TelegramConfig) (*Telegram, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat id is empty")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 8 * time.Second
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 1
	}
	b, err := tele.NewBot(tele.Settings{
		URL:     cfg.APIURL,
		Token:   cfg.Token,
		Offline: true,
		Client:  &http.Client{Timeout: cfg.Timeout},
	})
	if err != nil {
		return nil, err
	}
	burst := int(cfg.RatePerSec)
	if burst < 1 {
		burst = 1
	}
	return &Telegram{
		bot:     b,
		chat:    &tele.Chat{ID: cfg.ChatID},
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), burst),
	}, nil
}

func (t *Telegram) Notify(ctx context.Context, n model.Notice) {
	if err := t.Send(ctx, n); err != nil {
		logx.With("comp", "notify.telegram").Warn("send notice failed", "err", err)
	}
}

// Send delivers one notice and reports the error instead of swallowing it.
func (t *Telegram) Send(ctx context.Context, n model.Notice) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := t.bot.Send(t.chat, icon(n.Level)+" "+n.Message, &tele.SendOptions{DisableWebPagePreview: true})
	return err
}
