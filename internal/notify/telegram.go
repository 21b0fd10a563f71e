package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/life2you_mini/profitbank/internal/banking"
)

// TelegramSink 通过Telegram Bot API推送划转事件通知
type TelegramSink struct {
	botToken string
	chatID   string
	client   *http.Client
	logger   *zap.Logger
}

// NewTelegramSink 创建Telegram事件消费者
func NewTelegramSink(botToken, chatID string, logger *zap.Logger) *TelegramSink {
	return &TelegramSink{
		botToken: botToken,
		chatID:   chatID,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger.With(zap.String("component", "telegram_sink")),
	}
}

// Publish 实现 banking.EventSink。发送失败只记录日志，
// 不影响划转流程
func (s *TelegramSink) Publish(event banking.Event) {
	text := formatEvent(event)
	if text == "" {
		return
	}

	go func() {
		if err := s.send(text); err != nil {
			s.logger.Warn("Telegram通知发送失败",
				zap.String("event_type", string(event.Type)),
				zap.Error(err))
		}
	}()
}

// send 调用Telegram sendMessage接口
func (s *TelegramSink) send(text string) error {
	apiURL := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", s.botToken)
	payload := map[string]string{
		"chat_id":    s.chatID,
		"text":       text,
		"parse_mode": "HTML",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化通知内容失败: %w", err)
	}

	resp, err := s.client.Post(apiURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("发送Telegram消息失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("Telegram接口返回错误: status=%d body=%s", resp.StatusCode, string(respBody))
	}
	return nil
}

// formatEvent 将事件渲染为通知文本，不需要推送的事件返回空串
func formatEvent(event banking.Event) string {
	switch payload := event.Payload.(type) {
	case banking.InitializedPayload:
		return fmt.Sprintf("🏦 利润划转服务已启动\n累计已划转: %.2f USDT\n累计划转笔数: %d",
			payload.TotalBanked, payload.TotalTransfers)
	case banking.ProfitBankedPayload:
		return fmt.Sprintf("💰 利润划转成功\n金额: %.2f USDT\n当日累计: %.2f USDT\n划转ID: %s",
			payload.Record.Amount, payload.DailyTotal, payload.Record.TransferID)
	case banking.BankingFailedPayload:
		return fmt.Sprintf("⚠️ 利润划转失败\n金额: %.2f USDT\n原因: %s",
			payload.Amount, payload.Error)
	case banking.EmergencyStopPayload:
		return fmt.Sprintf("🚨 触发紧急停止\n回撤: %.2f%%\n当前余额: %.2f USDT\n初始本金: %.2f USDT",
			payload.Drawdown*100, payload.CurrentBalance, payload.InitialBalance)
	case banking.ToggledPayload:
		if payload.Enabled {
			return "▶️ 自动利润划转已开启"
		}
		return "⏸ 自动利润划转已关闭"
	default:
		// 配置更新等事件只进日志，不推送
		return ""
	}
}
