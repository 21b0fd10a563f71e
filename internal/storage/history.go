package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/life2you_mini/profitbank/internal/banking"
)

// 业务键名常量
const (
	BankingHistoryKey = "banking:history"
	InitialBalanceKey = "account:initial_balance"

	// 持久化历史的最大长度，追加时裁剪
	historyMaxLength = 500
)

// BankingHistoryStore 基于Redis列表的划转历史存储，最新在前
type BankingHistoryStore struct {
	client *RedisClient
	logger *zap.Logger
}

// NewBankingHistoryStore 创建划转历史存储
func NewBankingHistoryStore(client *RedisClient, logger *zap.Logger) *BankingHistoryStore {
	return &BankingHistoryStore{
		client: client,
		logger: logger.With(zap.String("component", "history_store")),
	}
}

// Append 追加一条划转记录并裁剪历史长度
func (s *BankingHistoryStore) Append(ctx context.Context, record *banking.BankingRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("序列化划转记录失败: %w", err)
	}

	key := s.client.Key(BankingHistoryKey)
	pipe := s.client.Client().TxPipeline()
	pipe.LPush(ctx, key, string(data))
	pipe.LTrim(ctx, key, 0, historyMaxLength-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("写入划转历史失败: %w", err)
	}

	s.logger.Debug("划转记录已持久化",
		zap.String("record_id", record.ID),
		zap.String("status", record.Status))
	return nil
}

// LoadRecent 按最新在前的顺序加载最近的划转记录。
// 单条记录损坏时跳过该条并记录日志，不影响整体加载
func (s *BankingHistoryStore) LoadRecent(ctx context.Context, limit int) ([]*banking.BankingRecord, error) {
	if limit <= 0 {
		limit = banking.HistoryLoadLimit
	}

	key := s.client.Key(BankingHistoryKey)
	items, err := s.client.Client().LRange(ctx, key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("读取划转历史失败: %w", err)
	}

	records := make([]*banking.BankingRecord, 0, len(items))
	for _, item := range items {
		var record banking.BankingRecord
		if err := json.Unmarshal([]byte(item), &record); err != nil {
			s.logger.Warn("划转记录反序列化失败，已跳过", zap.Error(err))
			continue
		}
		records = append(records, &record)
	}

	return records, nil
}

// RedisBaselineStore 基于Redis的初始本金存储，
// 运行期可直接修改键值调整本金基线
type RedisBaselineStore struct {
	client *RedisClient
	logger *zap.Logger
}

// NewRedisBaselineStore 创建初始本金存储
func NewRedisBaselineStore(client *RedisClient, logger *zap.Logger) *RedisBaselineStore {
	return &RedisBaselineStore{
		client: client,
		logger: logger.With(zap.String("component", "baseline_store")),
	}
}

// GetInitialBalance 读取初始本金
func (s *RedisBaselineStore) GetInitialBalance(ctx context.Context) (float64, error) {
	value, err := s.client.Client().Get(ctx, s.client.Key(InitialBalanceKey)).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, fmt.Errorf("初始本金未配置")
		}
		return 0, fmt.Errorf("读取初始本金失败: %w", err)
	}

	balance, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("解析初始本金失败: %w", err)
	}
	return balance, nil
}

// Seed 初始本金不存在时写入配置值，已存在则保持不变
func (s *RedisBaselineStore) Seed(ctx context.Context, initialBalance float64) error {
	set, err := s.client.Client().SetNX(ctx, s.client.Key(InitialBalanceKey),
		strconv.FormatFloat(initialBalance, 'f', -1, 64), 0).Result()
	if err != nil {
		return fmt.Errorf("写入初始本金失败: %w", err)
	}
	if set {
		s.logger.Info("初始本金已写入Redis", zap.Float64("initial_balance", initialBalance))
	}
	return nil
}
