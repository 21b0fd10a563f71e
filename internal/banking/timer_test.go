package banking_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap/zaptest"

	"github.com/life2you_mini/profitbank/internal/banking"
	"github.com/life2you_mini/profitbank/internal/mocks"
)

func timerTestConfig(interval time.Duration) banking.BankingConfig {
	cfg := testConfig()
	cfg.Enabled = true
	cfg.BankingInterval = interval
	return cfg
}

// blockingGateway 第一笔划转在release关闭前不返回，
// 用于构造执行中的周期
type blockingGateway struct {
	mu      sync.Mutex
	calls   int
	release chan struct{}
}

func newBlockingGateway() *blockingGateway {
	return &blockingGateway{release: make(chan struct{})}
}

func (g *blockingGateway) TransferToSpot(ctx context.Context, amount float64) (*banking.TransferResult, error) {
	g.mu.Lock()
	g.calls++
	first := g.calls == 1
	g.mu.Unlock()

	if first {
		<-g.release
	}
	return &banking.TransferResult{Success: true, TransferID: "tx-blocked"}, nil
}

func (g *blockingGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func TestController_TimerDrivenCycle(t *testing.T) {
	f := newFixture(t, timerTestConfig(20*time.Millisecond))

	f.history.On("LoadRecent", mock.Anything, banking.HistoryLoadLimit).Return(nil, nil)
	f.history.On("Append", mock.Anything, mock.Anything).Return(nil)
	f.balance.On("GetFuturesBalance", mock.Anything).Return(10100.0, nil)
	f.baseline.On("GetInitialBalance", mock.Anything).Return(10000.0, nil)
	// 利润100，划转比例0.3 → 每周期划转30
	f.gateway.On("TransferToSpot", mock.Anything, 30.0).
		Return(&banking.TransferResult{Success: true, TransferID: "tx-timer"}, nil)

	assert.NoError(t, f.controller.Start())
	defer f.controller.Stop()

	// 定时器到期后自动完成划转周期
	assert.Eventually(t, func() bool {
		return f.controller.GetStats().Stats.TotalTransfers >= 1
	}, 2*time.Second, 10*time.Millisecond)

	snapshot := f.controller.GetStats()
	assert.Equal(t, 30.0, snapshot.Stats.AverageTransferSize)
	assert.False(t, snapshot.Degraded)
	assert.GreaterOrEqual(t, len(f.sink.EventsOfType(banking.EventProfitBanked)), 1)
}

func TestController_OverlappingTicksSkipped(t *testing.T) {
	gateway := newBlockingGateway()
	balance := new(mocks.MockBalanceProvider)
	baseline := new(mocks.MockBaselineStore)
	history := new(mocks.MockHistoryStore)

	controller := banking.NewController(
		context.Background(),
		timerTestConfig(15*time.Millisecond),
		zaptest.NewLogger(t),
		balance,
		baseline,
		gateway,
		history,
		new(mocks.CapturingEventSink),
	)

	history.On("LoadRecent", mock.Anything, banking.HistoryLoadLimit).Return(nil, nil)
	history.On("Append", mock.Anything, mock.Anything).Return(nil)
	balance.On("GetFuturesBalance", mock.Anything).Return(10100.0, nil)
	baseline.On("GetInitialBalance", mock.Anything).Return(10000.0, nil)

	assert.NoError(t, controller.Start())

	// 等第一笔划转进入执行
	assert.Eventually(t, func() bool {
		return gateway.callCount() == 1
	}, 2*time.Second, 5*time.Millisecond)

	// 多个周期过去后仍只有一笔在执行，期间的触发被跳过
	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, 1, gateway.callCount())

	close(gateway.release)
	assert.NoError(t, controller.Stop())
}

func TestController_ToggleAndIntervalWhileRunning(t *testing.T) {
	cfg := timerTestConfig(20 * time.Millisecond)
	cfg.Enabled = false
	f := newFixture(t, cfg)

	f.history.On("LoadRecent", mock.Anything, banking.HistoryLoadLimit).Return(nil, nil)
	f.history.On("Append", mock.Anything, mock.Anything).Return(nil)
	f.balance.On("GetFuturesBalance", mock.Anything).Return(10100.0, nil)
	f.baseline.On("GetInitialBalance", mock.Anything).Return(10000.0, nil)
	f.gateway.On("TransferToSpot", mock.Anything, 30.0).
		Return(&banking.TransferResult{Success: true, TransferID: "tx-toggle"}, nil)

	assert.NoError(t, f.controller.Start())
	defer f.controller.Stop()

	// 关闭状态下启动，定时器不触发周期
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 0, f.controller.GetStats().Stats.TotalTransfers)

	// 运行中开启自动划转后周期开始触发
	f.controller.SetBankingEnabled(true)
	assert.Eventually(t, func() bool {
		return f.controller.GetStats().Stats.TotalTransfers >= 1
	}, 2*time.Second, 10*time.Millisecond)

	// 运行中调整周期，定时器按新周期继续触发
	interval := 10 * time.Millisecond
	assert.NoError(t, f.controller.UpdateConfig(&banking.ConfigUpdate{BankingInterval: &interval}))
	assert.Equal(t, interval, f.controller.GetStats().Config.BankingInterval)

	before := f.controller.GetStats().Stats.TotalTransfers
	assert.Eventually(t, func() bool {
		return f.controller.GetStats().Stats.TotalTransfers > before
	}, 2*time.Second, 5*time.Millisecond)

	// 运行中关闭后不再产生新的周期
	f.controller.SetBankingEnabled(false)
	stopped := f.controller.GetStats().Stats.TotalTransfers
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, stopped, f.controller.GetStats().Stats.TotalTransfers)
}
