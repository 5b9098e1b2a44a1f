package notifier

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"hlrecap/internal/logger"
	"hlrecap/internal/pkg/text"

	tele "gopkg.in/telebot.v3"
)

// 中文说明：
// Telegram 通知器：把每个账户的 24 小时回顾推送到指定群/频道。

const (
	// Telegram rejects messages above 4096 characters.
	maxMessageLen  = 4000
	sendAttempts   = 3
	defaultAPIURL  = "https://api.telegram.org"
	requestTimeout = 15 * time.Second
)

// apiCodeSuffix matches the "(400)" tail telebot puts on API errors it has no
// sentinel for.
var apiCodeSuffix = regexp.MustCompile(`\((\d{3})\)$`)

// chatRecipient accepts numeric chat ids as well as @channel names.
type chatRecipient string

func (c chatRecipient) Recipient() string { return string(c) }

// TelegramConfig 描述 Telegram 推送参数。
type TelegramConfig struct {
	BotToken string
	ChatID   string
	APIURL   string
}

type Telegram struct {
	bot       *tele.Bot
	chat      chatRecipient
	retryWait time.Duration
}

func NewTelegram(cfg TelegramConfig) (*Telegram, error) {
	token := strings.TrimSpace(cfg.BotToken)
	chat := strings.TrimSpace(cfg.ChatID)
	if token == "" || chat == "" {
		return nil, fmt.Errorf("Telegram 配置不完整")
	}
	apiURL := strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	bot, err := tele.NewBot(tele.Settings{
		URL:     apiURL,
		Token:   token,
		Client:  &http.Client{Timeout: requestTimeout},
		Offline: true,
	})
	if err != nil {
		return nil, fmt.Errorf("init telegram bot: %w", err)
	}
	return &Telegram{bot: bot, chat: chatRecipient(chat), retryWait: time.Second}, nil
}

// SendText 发送 HTML 文本消息（带最多 3 次重试）；4xx 类错误不重试。
func (t *Telegram) SendText(ctx context.Context, msg string) error {
	msg = text.TruncateLines(msg, maxMessageLen, "<i>(truncated)</i>")
	opts := &tele.SendOptions{
		ParseMode:             tele.ModeHTML,
		DisableWebPagePreview: true,
	}
	var lastErr error
	for i := 0; i < sendAttempts; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := t.bot.Send(t.chat, msg, opts); err != nil {
			lastErr = err
			logger.Warnf("telegram send attempt %d/%d failed: %v", i+1, sendAttempts, err)
			if i == sendAttempts-1 || !retryableSend(err) {
				break
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(i+1) * t.retryWait):
			}
			continue
		}
		return nil
	}
	return fmt.Errorf("telegram send failed: %w", lastErr)
}

// retryableSend reports whether a failed send may succeed later. Client
// errors other than 429 (bad HTML, unknown chat, revoked token) are permanent.
func retryableSend(err error) bool {
	code := 0
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		code = apiErr.Code
	} else if m := apiCodeSuffix.FindStringSubmatch(err.Error()); m != nil {
		code, _ = strconv.Atoi(m[1])
	}
	if code == http.StatusTooManyRequests {
		return true
	}
	return code < 400 || code >= 500
}

// LogNotifier writes messages to the log instead of delivering them.
type LogNotifier struct{}

func (LogNotifier) SendText(_ context.Context, msg string) error {
	logger.InfoBlock(msg)
	return nil
}
