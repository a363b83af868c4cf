package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/smysle/huzz-rng/internal/database/models"
	"github.com/smysle/huzz-rng/pkg/logger"
)

// WebhookPayload Discord 风格 Webhook 载荷
type WebhookPayload struct {
	Content string `json:"content"`
}

// Webhook 聊天 Webhook 通知
type Webhook struct {
	url        string
	message    string
	httpClient *resty.Client
}

// NewWebhook 创建 Webhook 通知
func NewWebhook(url, message string, timeout time.Duration) *Webhook {
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetRetryCount(1)
	client.SetRetryWaitTime(time.Second)
	client.SetLogger(restyLogger{})

	return &Webhook{
		url:        url,
		message:    message,
		httpClient: client,
	}
}

// Name 渠道名称
func (w *Webhook) Name() string {
	return "webhook"
}

// Notify 推送新兑换码
func (w *Webhook) Notify(ctx context.Context, code *models.Code) error {
	resp, err := w.httpClient.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(WebhookPayload{Content: render(w.message, code)}).
		Post(w.url)
	if err != nil {
		return fmt.Errorf("请求 Webhook 失败: %w", err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("Webhook 返回状态码 %d", resp.StatusCode())
	}
	return nil
}

// restyLogger 把 resty 的内部日志转到 zerolog
type restyLogger struct{}

func (restyLogger) Errorf(format string, v ...interface{}) {
	logger.Error().Str("component", "resty").Msgf(format, v...)
}

func (restyLogger) Warnf(format string, v ...interface{}) {
	logger.Warn().Str("component", "resty").Msgf(format, v...)
}

func (restyLogger) Debugf(format string, v ...interface{}) {
	logger.Debug().Str("component", "resty").Msgf(format, v...)
}
