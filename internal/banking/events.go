package banking

import "time"

// EventType 事件类型
type EventType string

const (
	EventInitialized   EventType = "initialized"
	EventProfitBanked  EventType = "profit_banked"
	EventBankingFailed EventType = "banking_failed"
	EventEmergencyStop EventType = "emergency_stop"
	EventConfigUpdated EventType = "config_updated"
	EventToggled       EventType = "banking_toggled"
)

// Event 生命周期事件，Payload为对应类型的载荷结构
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// InitializedPayload 控制器初始化完成
type InitializedPayload struct {
	TotalBanked    float64       `json:"total_banked"`
	TotalTransfers int           `json:"total_transfers"`
	Config         BankingConfig `json:"config"`
}

// ProfitBankedPayload 成功完成一笔划转
type ProfitBankedPayload struct {
	Record     *BankingRecord `json:"record"`
	DailyTotal float64        `json:"daily_total"`
}

// BankingFailedPayload 划转失败
type BankingFailedPayload struct {
	Amount float64 `json:"amount"`
	Error  string  `json:"error"`
}

// EmergencyStopPayload 触发紧急停止，本周期划转被抑制
type EmergencyStopPayload struct {
	Drawdown       float64 `json:"drawdown"`
	CurrentBalance float64 `json:"current_balance"`
	InitialBalance float64 `json:"initial_balance"`
}

// ConfigUpdatedPayload 配置更新后的完整配置
type ConfigUpdatedPayload struct {
	Config BankingConfig `json:"config"`
}

// ToggledPayload 自动划转开关状态变化
type ToggledPayload struct {
	Enabled bool `json:"enabled"`
}

// EventSink 生命周期事件消费者
type EventSink interface {
	Publish(event Event)
}
