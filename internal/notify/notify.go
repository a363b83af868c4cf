// Package notify 新兑换码通知
package notify

import (
	"context"
	"strings"
	"time"

	"github.com/smysle/huzz-rng/internal/config"
	"github.com/smysle/huzz-rng/internal/database/models"
	"github.com/smysle/huzz-rng/pkg/logger"
)

// Notifier 通知渠道
type Notifier interface {
	Name() string
	Notify(ctx context.Context, code *models.Code) error
}

// Multi 依次调用所有渠道，失败只记录日志
type Multi struct {
	notifiers []Notifier
}

// NewMulti 创建组合通知
func NewMulti(notifiers ...Notifier) *Multi {
	return &Multi{notifiers: notifiers}
}

// Len 渠道数量
func (m *Multi) Len() int {
	return len(m.notifiers)
}

// Notify 发送通知，返回成功的渠道数
func (m *Multi) Notify(ctx context.Context, code *models.Code) int {
	sent := 0
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, code); err != nil {
			logger.Warn().Err(err).Str("notifier", n.Name()).Str("code", code.Code).Msg("发送兑换码通知失败")
			continue
		}
		logger.Debug().Str("notifier", n.Name()).Str("code", code.Code).Msg("兑换码通知已发送")
		sent++
	}
	return sent
}

// FromConfig 根据配置创建启用的通知渠道
func FromConfig(cfg *config.NotifyConfig) (*Multi, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second

	var notifiers []Notifier
	if cfg.Discord.Enabled && cfg.Discord.WebhookURL != "" {
		notifiers = append(notifiers, NewWebhook(cfg.Discord.WebhookURL, cfg.Discord.Message, timeout))
	}
	if cfg.Telegram.Enabled && cfg.Telegram.BotToken != "" {
		tg, err := NewTelegram(cfg.Telegram, timeout)
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, tg)
	}
	return NewMulti(notifiers...), nil
}

// render 替换消息模板中的 {code} 和 {category}
func render(tmpl string, code *models.Code) string {
	return strings.NewReplacer("{code}", code.Code, "{category}", code.Category).Replace(tmpl)
}
