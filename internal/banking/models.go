package banking

import (
	"time"
)

const (
	// 划转记录状态
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"

	// 初始本金获取失败时的兜底值
	DefaultInitialBalance = 10000.0

	// 单位金额下限，低于该值的划转没有意义
	MinBankingUnit = 1.0

	// 手动划转时合约账户需保留的余额比例
	ManualBalanceReserveRatio = 0.9

	// 启动时从历史存储加载的记录条数
	HistoryLoadLimit = 100
)

// BankingConfig 利润划转配置
type BankingConfig struct {
	Enabled                bool          `json:"enabled" mapstructure:"enabled"`
	BankingPercentage      float64       `json:"banking_percentage" mapstructure:"banking_percentage"`             // 每周期划转的利润比例 [0,1]
	MinimumProfitThreshold float64       `json:"minimum_profit_threshold" mapstructure:"minimum_profit_threshold"` // 低于该利润不划转
	MaximumSingleTransfer  float64       `json:"maximum_single_transfer" mapstructure:"maximum_single_transfer"`   // 单笔划转上限
	BankingInterval        time.Duration `json:"banking_interval" mapstructure:"-"`                                // 定时周期
	EmergencyStopThreshold float64       `json:"emergency_stop_threshold" mapstructure:"emergency_stop_threshold"` // 触发紧急停止的回撤比例 [0,1]
	MaxDailyBanking        float64       `json:"max_daily_banking" mapstructure:"max_daily_banking"`               // 单日划转总额上限
}

// ConfigUpdate 配置的部分更新，nil字段表示保持不变
type ConfigUpdate struct {
	Enabled                *bool          `json:"enabled,omitempty"`
	BankingPercentage      *float64       `json:"banking_percentage,omitempty"`
	MinimumProfitThreshold *float64       `json:"minimum_profit_threshold,omitempty"`
	MaximumSingleTransfer  *float64       `json:"maximum_single_transfer,omitempty"`
	BankingInterval        *time.Duration `json:"banking_interval,omitempty"`
	EmergencyStopThreshold *float64       `json:"emergency_stop_threshold,omitempty"`
	MaxDailyBanking        *float64       `json:"max_daily_banking,omitempty"`
}

// Merge 将部分更新合并到配置副本上，返回合并结果和周期是否变化
func (c BankingConfig) Merge(update *ConfigUpdate) (BankingConfig, bool) {
	merged := c
	intervalChanged := false

	if update.Enabled != nil {
		merged.Enabled = *update.Enabled
	}
	if update.BankingPercentage != nil {
		merged.BankingPercentage = *update.BankingPercentage
	}
	if update.MinimumProfitThreshold != nil {
		merged.MinimumProfitThreshold = *update.MinimumProfitThreshold
	}
	if update.MaximumSingleTransfer != nil {
		merged.MaximumSingleTransfer = *update.MaximumSingleTransfer
	}
	if update.BankingInterval != nil && *update.BankingInterval != c.BankingInterval {
		merged.BankingInterval = *update.BankingInterval
		intervalChanged = true
	}
	if update.EmergencyStopThreshold != nil {
		merged.EmergencyStopThreshold = *update.EmergencyStopThreshold
	}
	if update.MaxDailyBanking != nil {
		merged.MaxDailyBanking = *update.MaxDailyBanking
	}

	return merged, intervalChanged
}

// Validate 验证配置有效性
func (c *BankingConfig) Validate() error {
	if c.BankingPercentage < 0 || c.BankingPercentage > 1 {
		return ErrInvalidConfig
	}
	if c.EmergencyStopThreshold < 0 || c.EmergencyStopThreshold > 1 {
		return ErrInvalidConfig
	}
	if c.MinimumProfitThreshold < 0 || c.MaximumSingleTransfer < 0 || c.MaxDailyBanking < 0 {
		return ErrInvalidConfig
	}
	if c.BankingInterval <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// BankingRecord 单次划转记录，持久化后不可变
type BankingRecord struct {
	ID                   string    `json:"id"`
	Timestamp            time.Time `json:"timestamp"`
	Amount               float64   `json:"amount"`
	TotalProfit          float64   `json:"total_profit"`
	FuturesBalanceBefore float64   `json:"futures_balance_before,omitempty"`
	FuturesBalanceAfter  float64   `json:"futures_balance_after,omitempty"`
	TransferID           string    `json:"transfer_id,omitempty"`
	Status               string    `json:"status"`
	Error                string    `json:"error,omitempty"`
}

// BankingStats 划转统计，由历史记录推导
type BankingStats struct {
	TotalBanked         float64   `json:"total_banked"`
	TotalTransfers      int       `json:"total_transfers"`
	AverageTransferSize float64   `json:"average_transfer_size"`
	LastBankingTime     time.Time `json:"last_banking_time"`
	FailedTransfers     int       `json:"failed_transfers"`
	EmergencyStops      int       `json:"emergency_stops"`
}

// recordCompleted 记入一笔成功划转并重算均值
func (s *BankingStats) recordCompleted(amount float64, at time.Time) {
	s.TotalBanked += amount
	s.TotalTransfers++
	s.AverageTransferSize = s.TotalBanked / float64(s.TotalTransfers)
	s.LastBankingTime = at
}

// ComputeStats 从历史记录重算统计（记录按最新在前排列）
func ComputeStats(records []*BankingRecord) BankingStats {
	var stats BankingStats
	for i := len(records) - 1; i >= 0; i-- {
		record := records[i]
		switch record.Status {
		case StatusCompleted:
			stats.recordCompleted(record.Amount, record.Timestamp)
		case StatusFailed:
			stats.FailedTransfers++
		}
	}
	return stats
}

// StatsSnapshot 对外暴露的状态快照
type StatsSnapshot struct {
	Stats              BankingStats     `json:"stats"`
	DailyBankingTotal  float64          `json:"daily_banking_total"`
	LastDailyResetDate string           `json:"last_daily_reset_date"`
	Config             BankingConfig    `json:"config"`
	RecentHistory      []*BankingRecord `json:"recent_history"`
	Degraded           bool             `json:"degraded"`
}

// TransferResult 划转网关返回结果
type TransferResult struct {
	Success    bool   `json:"success"`
	TransferID string `json:"transfer_id,omitempty"`
	Error      string `json:"error,omitempty"`
}
