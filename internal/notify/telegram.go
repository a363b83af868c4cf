package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	tele "gopkg.in/telebot.v3"

	"github.com/smysle/huzz-rng/internal/config"
	"github.com/smysle/huzz-rng/internal/database/models"
)

// Telegram 通过 Bot 向群组或频道推送新兑换码
type Telegram struct {
	bot     *tele.Bot
	chat    tele.ChatID
	message string
}

// NewTelegram 创建 Telegram 通知，不会启动轮询
func NewTelegram(cfg config.TelegramConfig, timeout time.Duration) (*Telegram, error) {
	settings := tele.Settings{
		Token:   cfg.BotToken,
		URL:     cfg.APIURL,
		Offline: true,
		Client:  &http.Client{Timeout: timeout},
	}

	bot, err := tele.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("初始化 Telegram Bot 失败: %w", err)
	}

	return &Telegram{
		bot:     bot,
		chat:    tele.ChatID(cfg.ChatID),
		message: cfg.Message,
	}, nil
}

// Name 渠道名称
func (t *Telegram) Name() string {
	return "telegram"
}

// Notify 推送新兑换码
func (t *Telegram) Notify(ctx context.Context, code *models.Code) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := t.bot.Send(t.chat, render(t.message, code)); err != nil {
		return fmt.Errorf("发送 Telegram 消息失败: %w", err)
	}
	return nil
}
