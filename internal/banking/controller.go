package banking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	// 停止时等待定时器协程退出的最长时间
	stopTimeout = 5 * time.Second

	// 内存中保留的历史记录条数上限
	maxInMemoryRecords = 500

	// 单个周期内外部调用的超时
	cycleTimeout = 30 * time.Second
)

// Controller 利润划转控制器
//
// 自动周期与手动划转整体串行在 mu 之后（单写者约束），
// 定时器触发时如果上一个周期仍在执行则跳过本次（TryLock）。
// 锁顺序：需要两把锁时先 mutex 后 mu（Start/UpdateConfig/
// SetBankingEnabled），持有 mu 期间不得获取 mutex。管理操作
// 在 mutex 内完成配置写入和定时器启停，并发调用不会让定时器
// 停留在过期的周期上。
type Controller struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger

	balance  BalanceProvider
	baseline BaselineStore
	gateway  TransferGateway
	history  HistoryStore
	sink     EventSink

	// mu 保护以下全部可变状态
	mu            sync.Mutex
	config        BankingConfig
	records       []*BankingRecord // 最新在前
	stats         BankingStats
	dailyTotal    float64
	lastResetDate string
	degraded      bool

	// 生命周期管理
	mutex       sync.Mutex
	isRunning   bool
	timerCancel context.CancelFunc
	wg          sync.WaitGroup
}

// NewController 创建利润划转控制器
func NewController(
	parentCtx context.Context,
	cfg BankingConfig,
	logger *zap.Logger,
	balance BalanceProvider,
	baseline BaselineStore,
	gateway TransferGateway,
	history HistoryStore,
	sink EventSink,
) *Controller {
	ctx, cancel := context.WithCancel(parentCtx)

	return &Controller{
		ctx:      ctx,
		cancel:   cancel,
		logger:   logger.With(zap.String("component", "banking_controller")),
		balance:  balance,
		baseline: baseline,
		gateway:  gateway,
		history:  history,
		sink:     sink,
		config:   cfg,
	}
}

// Start 初始化控制器：加载历史、重算统计、执行当日额度检查并启动定时器。
// 历史加载失败不是致命错误，按空历史继续并记录日志。
func (c *Controller) Start() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.isRunning {
		return ErrAlreadyRunning
	}

	c.logger.Info("初始化利润划转控制器")

	loadCtx, loadCancel := context.WithTimeout(c.ctx, cycleTimeout)
	records, err := c.history.LoadRecent(loadCtx, HistoryLoadLimit)
	loadCancel()
	if err != nil {
		c.logger.Error("加载划转历史失败，按空历史继续", zap.Error(err))
		records = nil
	}

	c.mu.Lock()
	c.records = records
	c.stats = ComputeStats(records)
	c.checkDailyResetLocked()
	totalBanked := c.stats.TotalBanked
	totalTransfers := c.stats.TotalTransfers
	cfg := c.config
	enabled := c.config.Enabled
	c.mu.Unlock()

	if enabled {
		c.startTimerLocked(cfg.BankingInterval)
	}
	c.isRunning = true

	c.logger.Info("利润划转控制器已初始化",
		zap.Int("历史记录数", len(records)),
		zap.Float64("累计已划转", totalBanked),
		zap.Bool("自动划转", enabled))

	c.publish(EventInitialized, InitializedPayload{
		TotalBanked:    totalBanked,
		TotalTransfers: totalTransfers,
		Config:         cfg,
	})

	return nil
}

// Stop 停止控制器，只停止后续周期，不等待进行中的划转完成
func (c *Controller) Stop() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.isRunning {
		return nil
	}

	c.logger.Info("停止利润划转控制器")
	c.cancel()
	c.timerCancel = nil

	// 等待定时器协程结束
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("利润划转控制器已停止")
	case <-time.After(stopTimeout):
		c.logger.Warn("利润划转控制器停止超时")
	}

	c.isRunning = false
	return nil
}

// SetBankingEnabled 开关自动划转。关闭只停止定时器，手动划转仍然允许
func (c *Controller) SetBankingEnabled(enabled bool) {
	c.mutex.Lock()
	c.mu.Lock()
	changed := c.config.Enabled != enabled
	c.config.Enabled = enabled
	interval := c.config.BankingInterval
	c.mu.Unlock()

	if c.isRunning {
		if enabled {
			c.startTimerLocked(interval)
		} else {
			c.stopTimerLocked()
		}
	}
	c.mutex.Unlock()

	if changed {
		c.logger.Info("自动划转开关已切换", zap.Bool("enabled", enabled))
		c.publish(EventToggled, ToggledPayload{Enabled: enabled})
	}
}

// UpdateConfig 合并部分配置更新，校验失败则保持原配置不变。
// 周期字段变化时重启定时器
func (c *Controller) UpdateConfig(update *ConfigUpdate) error {
	if update == nil {
		return nil
	}

	c.mutex.Lock()
	c.mu.Lock()
	merged, intervalChanged := c.config.Merge(update)
	if err := merged.Validate(); err != nil {
		c.mu.Unlock()
		c.mutex.Unlock()
		return fmt.Errorf("更新利润划转配置失败: %w", err)
	}
	enabledChanged := merged.Enabled != c.config.Enabled
	c.config = merged
	c.mu.Unlock()

	if c.isRunning {
		switch {
		case enabledChanged && !merged.Enabled:
			c.stopTimerLocked()
		case enabledChanged && merged.Enabled:
			c.startTimerLocked(merged.BankingInterval)
		case intervalChanged && merged.Enabled:
			c.stopTimerLocked()
			c.startTimerLocked(merged.BankingInterval)
		}
	}
	c.mutex.Unlock()

	c.logger.Info("利润划转配置已更新",
		zap.Float64("划转比例", merged.BankingPercentage),
		zap.Float64("单笔上限", merged.MaximumSingleTransfer),
		zap.Float64("单日上限", merged.MaxDailyBanking),
		zap.Duration("周期", merged.BankingInterval))

	c.publish(EventConfigUpdated, ConfigUpdatedPayload{Config: merged})

	if enabledChanged {
		c.publish(EventToggled, ToggledPayload{Enabled: merged.Enabled})
	}
	return nil
}

// GetStats 返回状态快照：统计、当日额度、配置和最近10条记录
func (c *Controller) GetStats() StatsSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	recent := make([]*BankingRecord, 0, 10)
	for i, record := range c.records {
		if i >= 10 {
			break
		}
		recent = append(recent, record)
	}

	return StatsSnapshot{
		Stats:              c.stats,
		DailyBankingTotal:  c.dailyTotal,
		LastDailyResetDate: c.lastResetDate,
		Config:             c.config,
		RecentHistory:      recent,
		Degraded:           c.degraded,
	}
}

// GetBankingHistory 返回最近的划转记录，最新在前
func (c *Controller) GetBankingHistory(limit int) []*BankingRecord {
	if limit <= 0 {
		limit = 50
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if limit > len(c.records) {
		limit = len(c.records)
	}
	result := make([]*BankingRecord, limit)
	copy(result, c.records[:limit])
	return result
}

// ManualBanking 手动划转。校验失败返回对应的错误且不产生历史记录，
// 自动划转关闭时仍然允许手动划转
func (c *Controller) ManualBanking(ctx context.Context, amount float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.checkDailyResetLocked()

	if amount <= 0 {
		return ErrInvalidAmount
	}
	if amount > c.config.MaximumSingleTransfer {
		return ErrExceedsSingleTransferLimit
	}
	if c.dailyTotal+amount > c.config.MaxDailyBanking {
		return ErrExceedsDailyLimit
	}

	futuresBalance := c.fetchFuturesBalanceLocked(ctx)
	if amount > ManualBalanceReserveRatio*futuresBalance {
		return ErrInsufficientBalance
	}

	c.logger.Info("执行手动划转",
		zap.Float64("金额", amount),
		zap.Float64("合约余额", futuresBalance))

	// 手动路径以当前余额作为利润快照，执行失败直接返回给调用方
	return c.executeBankingLocked(ctx, amount, futuresBalance, futuresBalance)
}

// checkAndBankProfits 自动划转周期。任何失败只记录日志，
// 不会中断定时器
func (c *Controller) checkAndBankProfits(ctx context.Context) {
	if !c.mu.TryLock() {
		c.logger.Warn("上一周期仍在执行，跳过本次划转检查")
		return
	}
	defer c.mu.Unlock()

	if !c.config.Enabled {
		return
	}

	cycleCtx, cancel := context.WithTimeout(ctx, cycleTimeout)
	defer cancel()

	c.checkDailyResetLocked()
	c.degraded = false

	futuresBalance := c.fetchFuturesBalanceLocked(cycleCtx)
	initialBalance := c.fetchInitialBalanceLocked(cycleCtx)

	currentProfit := futuresBalance - initialBalance
	if currentProfit <= 0 {
		c.logger.Debug("当前无利润，跳过划转",
			zap.Float64("合约余额", futuresBalance),
			zap.Float64("初始本金", initialBalance))
		return
	}
	if currentProfit < c.config.MinimumProfitThreshold {
		c.logger.Debug("利润低于划转门槛，跳过划转",
			zap.Float64("当前利润", currentProfit),
			zap.Float64("门槛", c.config.MinimumProfitThreshold))
		return
	}

	if c.emergencyStopLocked(futuresBalance, initialBalance) {
		return
	}

	bankingAmount := computeBankingAmount(currentProfit, c.config, c.dailyTotal)
	if bankingAmount < MinBankingUnit {
		c.logger.Info("可划转金额过小，跳过划转",
			zap.Float64("金额", bankingAmount),
			zap.Float64("当日已划转", c.dailyTotal))
		return
	}

	c.logger.Info("触发自动利润划转",
		zap.Float64("当前利润", currentProfit),
		zap.Float64("划转金额", bankingAmount))

	// 网关失败已在执行路径中计入统计，这里只记录日志
	if err := c.executeBankingLocked(cycleCtx, bankingAmount, currentProfit, futuresBalance); err != nil {
		c.logger.Error("自动划转执行失败", zap.Error(err))
	}
}

// emergencyStopLocked 紧急停止检查。回撤超过阈值时抑制本周期划转，
// 下一周期重新评估。初始本金为0时无法计算回撤，跳过检查
func (c *Controller) emergencyStopLocked(currentBalance, initialBalance float64) bool {
	if initialBalance <= 0 {
		c.logger.Warn("初始本金为0，跳过紧急停止检查")
		return false
	}

	drawdown := (initialBalance - currentBalance) / initialBalance
	if drawdown <= c.config.EmergencyStopThreshold {
		return false
	}

	c.stats.EmergencyStops++
	c.logger.Warn("回撤超过紧急停止阈值，本周期划转已抑制",
		zap.Float64("回撤", drawdown),
		zap.Float64("阈值", c.config.EmergencyStopThreshold),
		zap.Float64("当前余额", currentBalance),
		zap.Float64("初始本金", initialBalance))

	c.publish(EventEmergencyStop, EmergencyStopPayload{
		Drawdown:       drawdown,
		CurrentBalance: currentBalance,
		InitialBalance: initialBalance,
	})
	return true
}

// executeBankingLocked 执行划转，自动与手动路径共用。
// 成功时更新统计与当日额度并尽力持久化，失败时记入失败记录并返回错误
func (c *Controller) executeBankingLocked(ctx context.Context, amount, profitSnapshot, balanceBefore float64) error {
	result, err := c.gateway.TransferToSpot(ctx, amount)

	now := time.Now()
	if err != nil || result == nil || !result.Success {
		errMsg := "划转被网关拒绝"
		if err != nil {
			errMsg = err.Error()
		} else if result != nil && result.Error != "" {
			errMsg = result.Error
		}

		record := &BankingRecord{
			ID:          newRecordID(now),
			Timestamp:   now,
			Amount:      amount,
			TotalProfit: profitSnapshot,
			Status:      StatusFailed,
			Error:       errMsg,
		}
		c.prependRecordLocked(record)
		c.stats.FailedTransfers++
		c.persistRecordLocked(ctx, record)

		c.logger.Error("利润划转失败",
			zap.Float64("金额", amount),
			zap.String("原因", errMsg))

		c.publish(EventBankingFailed, BankingFailedPayload{Amount: amount, Error: errMsg})
		return fmt.Errorf("利润划转失败: %s", errMsg)
	}

	// 划转后余额为本地估算，不重新查询网关
	record := &BankingRecord{
		ID:                   newRecordID(now),
		Timestamp:            now,
		Amount:               amount,
		TotalProfit:          profitSnapshot,
		FuturesBalanceBefore: balanceBefore,
		FuturesBalanceAfter:  balanceBefore - amount,
		TransferID:           result.TransferID,
		Status:               StatusCompleted,
	}
	c.prependRecordLocked(record)
	c.stats.recordCompleted(amount, now)
	c.dailyTotal += amount
	c.persistRecordLocked(ctx, record)

	c.logger.Info("利润划转成功",
		zap.Float64("金额", amount),
		zap.String("transfer_id", result.TransferID),
		zap.Float64("当日已划转", c.dailyTotal))

	c.publish(EventProfitBanked, ProfitBankedPayload{Record: record, DailyTotal: c.dailyTotal})
	return nil
}

// checkDailyResetLocked 日期变化时将当日划转额度清零
func (c *Controller) checkDailyResetLocked() {
	today := time.Now().Format("2006-01-02")
	if c.lastResetDate == today {
		return
	}
	if c.lastResetDate != "" {
		c.logger.Info("跨日重置当日划转额度",
			zap.String("上次日期", c.lastResetDate),
			zap.Float64("昨日划转总额", c.dailyTotal))
	}
	c.dailyTotal = 0
	c.lastResetDate = today
}

// fetchFuturesBalanceLocked 查询合约余额，失败时按0处理并标记降级
func (c *Controller) fetchFuturesBalanceLocked(ctx context.Context) float64 {
	futuresBalance, err := c.balance.GetFuturesBalance(ctx)
	if err != nil {
		c.logger.Warn("获取合约余额失败，按0处理", zap.Error(err))
		c.degraded = true
		return 0
	}
	return futuresBalance
}

// fetchInitialBalanceLocked 查询初始本金，失败时使用兜底值并标记降级
func (c *Controller) fetchInitialBalanceLocked(ctx context.Context) float64 {
	initialBalance, err := c.baseline.GetInitialBalance(ctx)
	if err != nil {
		c.logger.Warn("获取初始本金失败，使用兜底值",
			zap.Error(err),
			zap.Float64("兜底值", DefaultInitialBalance))
		c.degraded = true
		return DefaultInitialBalance
	}
	return initialBalance
}

// prependRecordLocked 将记录插入内存历史头部并限制总长度
func (c *Controller) prependRecordLocked(record *BankingRecord) {
	c.records = append([]*BankingRecord{record}, c.records...)
	if len(c.records) > maxInMemoryRecords {
		c.records = c.records[:maxInMemoryRecords]
	}
}

// persistRecordLocked 持久化记录，失败只记日志，不回滚内存状态
func (c *Controller) persistRecordLocked(ctx context.Context, record *BankingRecord) {
	if err := c.history.Append(ctx, record); err != nil {
		c.logger.Error("持久化划转记录失败",
			zap.String("record_id", record.ID),
			zap.Error(err))
	}
}

// startTimerLocked 启动定时器协程，需持有 mutex
func (c *Controller) startTimerLocked(interval time.Duration) {
	if c.timerCancel != nil {
		return
	}
	timerCtx, cancel := context.WithCancel(c.ctx)
	c.timerCancel = cancel

	c.wg.Add(1)
	go c.runTimer(timerCtx, interval)
}

// stopTimerLocked 停止定时器协程，需持有 mutex
func (c *Controller) stopTimerLocked() {
	if c.timerCancel == nil {
		return
	}
	c.timerCancel()
	c.timerCancel = nil
}

// runTimer 定时器主循环，周期性触发自动划转检查
func (c *Controller) runTimer(ctx context.Context, interval time.Duration) {
	defer c.wg.Done()

	c.logger.Info("启动利润划转定时器", zap.Duration("周期", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("利润划转定时器已停止")
			return
		case <-ticker.C:
			c.checkAndBankProfits(ctx)
		}
	}
}

// publish 发布生命周期事件
func (c *Controller) publish(eventType EventType, payload interface{}) {
	if c.sink == nil {
		return
	}
	c.sink.Publish(Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Payload:   payload,
	})
}

// computeBankingAmount 计算本周期划转金额：
// min(利润×划转比例, 单笔上限, 当日剩余额度)
func computeBankingAmount(profit float64, cfg BankingConfig, dailyTotal float64) float64 {
	amount := decimal.NewFromFloat(profit).Mul(decimal.NewFromFloat(cfg.BankingPercentage))
	singleLimit := decimal.NewFromFloat(cfg.MaximumSingleTransfer)
	dailyRemaining := decimal.NewFromFloat(cfg.MaxDailyBanking).Sub(decimal.NewFromFloat(dailyTotal))

	return decimal.Min(amount, singleLimit, dailyRemaining).Round(8).InexactFloat64()
}

// newRecordID 生成时间派生的记录ID
func newRecordID(at time.Time) string {
	return fmt.Sprintf("bank-%d", at.UnixNano())
}
