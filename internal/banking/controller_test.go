package banking_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap/zaptest"

	"github.com/life2you_mini/profitbank/internal/banking"
	"github.com/life2you_mini/profitbank/internal/mocks"
)

func testConfig() banking.BankingConfig {
	return banking.BankingConfig{
		Enabled:                false, // 大部分用例不需要定时器
		BankingPercentage:      0.3,
		MinimumProfitThreshold: 50,
		MaximumSingleTransfer:  1000,
		BankingInterval:        time.Hour,
		EmergencyStopThreshold: 0.2,
		MaxDailyBanking:        5000,
	}
}

type controllerFixture struct {
	controller *banking.Controller
	balance    *mocks.MockBalanceProvider
	baseline   *mocks.MockBaselineStore
	gateway    *mocks.MockTransferGateway
	history    *mocks.MockHistoryStore
	sink       *mocks.CapturingEventSink
}

func newFixture(t *testing.T, cfg banking.BankingConfig) *controllerFixture {
	f := &controllerFixture{
		balance:  new(mocks.MockBalanceProvider),
		baseline: new(mocks.MockBaselineStore),
		gateway:  new(mocks.MockTransferGateway),
		history:  new(mocks.MockHistoryStore),
		sink:     new(mocks.CapturingEventSink),
	}
	f.controller = banking.NewController(
		context.Background(),
		cfg,
		zaptest.NewLogger(t),
		f.balance,
		f.baseline,
		f.gateway,
		f.history,
		f.sink,
	)
	return f
}

func TestController_StartRecomputesStatsFromHistory(t *testing.T) {
	f := newFixture(t, testConfig())

	history := []*banking.BankingRecord{
		{ID: "bank-3", Amount: 40, Status: banking.StatusCompleted, Timestamp: time.Now()},
		{ID: "bank-2", Amount: 15, Status: banking.StatusFailed, Error: "网关超时"},
		{ID: "bank-1", Amount: 60, Status: banking.StatusCompleted},
	}
	f.history.On("LoadRecent", mock.Anything, banking.HistoryLoadLimit).Return(history, nil)

	assert.NoError(t, f.controller.Start())
	defer f.controller.Stop()

	snapshot := f.controller.GetStats()
	assert.Equal(t, 100.0, snapshot.Stats.TotalBanked)
	assert.Equal(t, 2, snapshot.Stats.TotalTransfers)
	assert.Equal(t, 50.0, snapshot.Stats.AverageTransferSize)
	assert.Equal(t, 1, snapshot.Stats.FailedTransfers)
	assert.Len(t, snapshot.RecentHistory, 3)

	// 初始化事件携带累计统计
	events := f.sink.EventsOfType(banking.EventInitialized)
	assert.Len(t, events, 1)
	payload := events[0].Payload.(banking.InitializedPayload)
	assert.Equal(t, 100.0, payload.TotalBanked)
	assert.Equal(t, 2, payload.TotalTransfers)

	// 重复初始化报错
	assert.ErrorIs(t, f.controller.Start(), banking.ErrAlreadyRunning)
}

func TestController_StartSurvivesHistoryLoadFailure(t *testing.T) {
	f := newFixture(t, testConfig())
	f.history.On("LoadRecent", mock.Anything, banking.HistoryLoadLimit).Return(nil, assert.AnError)

	// 历史加载失败按空历史继续，初始化本身不失败
	assert.NoError(t, f.controller.Start())
	defer f.controller.Stop()

	snapshot := f.controller.GetStats()
	assert.Equal(t, 0, snapshot.Stats.TotalTransfers)
	assert.Empty(t, snapshot.RecentHistory)
}

func TestController_ManualBankingValidation(t *testing.T) {
	tests := []struct {
		name        string
		amount      float64
		balance     float64
		expectedErr error
	}{
		{
			name:        "金额为0被拒绝",
			amount:      0,
			balance:     10000,
			expectedErr: banking.ErrInvalidAmount,
		},
		{
			name:        "金额为负被拒绝",
			amount:      -5,
			balance:     10000,
			expectedErr: banking.ErrInvalidAmount,
		},
		{
			name:        "超过单笔上限被拒绝",
			amount:      1500,
			balance:     10000,
			expectedErr: banking.ErrExceedsSingleTransferLimit,
		},
		{
			name:        "余额不足被拒绝（保留10%缓冲）",
			amount:      950,
			balance:     1000,
			expectedErr: banking.ErrInsufficientBalance,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, testConfig())
			f.balance.On("GetFuturesBalance", mock.Anything).Return(tt.balance, nil)

			err := f.controller.ManualBanking(context.Background(), tt.amount)
			assert.ErrorIs(t, err, tt.expectedErr)

			// 校验失败不调用网关也不产生历史记录
			f.gateway.AssertNotCalled(t, "TransferToSpot", mock.Anything, mock.Anything)
			f.history.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
		})
	}
}

func TestController_ManualBankingDailyLimit(t *testing.T) {
	cfg := testConfig()
	cfg.MaxDailyBanking = 100
	f := newFixture(t, cfg)

	f.balance.On("GetFuturesBalance", mock.Anything).Return(10000.0, nil)
	f.gateway.On("TransferToSpot", mock.Anything, 60.0).
		Return(&banking.TransferResult{Success: true, TransferID: "tx-1"}, nil)
	f.history.On("Append", mock.Anything, mock.Anything).Return(nil)

	// 第一笔60成功
	assert.NoError(t, f.controller.ManualBanking(context.Background(), 60))

	// 第二笔50会超过当日上限100
	err := f.controller.ManualBanking(context.Background(), 50)
	assert.ErrorIs(t, err, banking.ErrExceedsDailyLimit)

	snapshot := f.controller.GetStats()
	assert.Equal(t, 60.0, snapshot.DailyBankingTotal)
}

func TestController_ManualBankingAllowedWhileDisabled(t *testing.T) {
	// 自动划转关闭只停止定时器，手动划转仍然允许
	cfg := testConfig()
	cfg.Enabled = false
	f := newFixture(t, cfg)

	f.balance.On("GetFuturesBalance", mock.Anything).Return(10000.0, nil)
	f.gateway.On("TransferToSpot", mock.Anything, 100.0).
		Return(&banking.TransferResult{Success: true, TransferID: "tx-9"}, nil)
	f.history.On("Append", mock.Anything, mock.Anything).Return(nil)

	assert.NoError(t, f.controller.ManualBanking(context.Background(), 100))

	snapshot := f.controller.GetStats()
	assert.Equal(t, 100.0, snapshot.Stats.TotalBanked)
	assert.Equal(t, 100.0, snapshot.DailyBankingTotal)
}

func TestController_ManualBankingGatewayFailureSurfaces(t *testing.T) {
	f := newFixture(t, testConfig())

	f.balance.On("GetFuturesBalance", mock.Anything).Return(10000.0, nil)
	f.gateway.On("TransferToSpot", mock.Anything, 100.0).
		Return(&banking.TransferResult{Success: false, Error: "划转接口维护中"}, nil)
	f.history.On("Append", mock.Anything, mock.Anything).Return(nil)

	// 手动路径的执行失败直接返回给调用方
	err := f.controller.ManualBanking(context.Background(), 100)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "划转接口维护中")

	snapshot := f.controller.GetStats()
	assert.Equal(t, 1, snapshot.Stats.FailedTransfers)
	assert.Equal(t, 0.0, snapshot.Stats.TotalBanked)
	assert.Equal(t, 0.0, snapshot.DailyBankingTotal)
	assert.Len(t, f.sink.EventsOfType(banking.EventBankingFailed), 1)
}

func TestController_UpdateConfigPartialMerge(t *testing.T) {
	f := newFixture(t, testConfig())

	percentage := 0.5
	assert.NoError(t, f.controller.UpdateConfig(&banking.ConfigUpdate{
		BankingPercentage: &percentage,
	}))

	cfg := f.controller.GetStats().Config
	assert.Equal(t, 0.5, cfg.BankingPercentage)
	// 未指定字段保持不变
	assert.Equal(t, 1000.0, cfg.MaximumSingleTransfer)
	assert.Equal(t, time.Hour, cfg.BankingInterval)

	events := f.sink.EventsOfType(banking.EventConfigUpdated)
	assert.Len(t, events, 1)
	assert.Equal(t, 0.5, events[0].Payload.(banking.ConfigUpdatedPayload).Config.BankingPercentage)
}

func TestController_UpdateConfigRejectsInvalid(t *testing.T) {
	f := newFixture(t, testConfig())

	percentage := 1.5
	err := f.controller.UpdateConfig(&banking.ConfigUpdate{
		BankingPercentage: &percentage,
	})
	assert.ErrorIs(t, err, banking.ErrInvalidConfig)

	// 配置保持不变
	assert.Equal(t, 0.3, f.controller.GetStats().Config.BankingPercentage)
	assert.Empty(t, f.sink.EventsOfType(banking.EventConfigUpdated))
}

func TestController_SetBankingEnabledEmitsToggle(t *testing.T) {
	f := newFixture(t, testConfig())

	f.controller.SetBankingEnabled(true)
	assert.True(t, f.controller.GetStats().Config.Enabled)

	f.controller.SetBankingEnabled(false)
	assert.False(t, f.controller.GetStats().Config.Enabled)

	events := f.sink.EventsOfType(banking.EventToggled)
	assert.Len(t, events, 2)
	assert.True(t, events[0].Payload.(banking.ToggledPayload).Enabled)
	assert.False(t, events[1].Payload.(banking.ToggledPayload).Enabled)

	// 状态未变化时不重复发事件
	f.controller.SetBankingEnabled(false)
	assert.Len(t, f.sink.EventsOfType(banking.EventToggled), 2)
}

func TestController_GetBankingHistoryLimit(t *testing.T) {
	f := newFixture(t, testConfig())

	f.balance.On("GetFuturesBalance", mock.Anything).Return(10000.0, nil)
	f.gateway.On("TransferToSpot", mock.Anything, mock.Anything).
		Return(&banking.TransferResult{Success: true, TransferID: "tx"}, nil)
	f.history.On("Append", mock.Anything, mock.Anything).Return(nil)

	for i := 0; i < 5; i++ {
		assert.NoError(t, f.controller.ManualBanking(context.Background(), 10))
	}

	assert.Len(t, f.controller.GetBankingHistory(3), 3)
	assert.Len(t, f.controller.GetBankingHistory(0), 5)
	assert.Len(t, f.controller.GetBankingHistory(100), 5)

	// 最新在前
	history := f.controller.GetBankingHistory(5)
	for i := 1; i < len(history); i++ {
		assert.True(t, !history[i-1].Timestamp.Before(history[i].Timestamp))
	}
}

func TestController_StopIsIdempotent(t *testing.T) {
	f := newFixture(t, testConfig())
	f.history.On("LoadRecent", mock.Anything, banking.HistoryLoadLimit).Return(nil, nil)

	assert.NoError(t, f.controller.Start())
	assert.NoError(t, f.controller.Stop())
	assert.NoError(t, f.controller.Stop())
}
