package mocks

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/life2you_mini/profitbank/internal/banking"
)

// MockBalanceProvider 合约余额查询接口的模拟实现
type MockBalanceProvider struct {
	mock.Mock
}

// GetFuturesBalance 获取合约余额的模拟实现
func (m *MockBalanceProvider) GetFuturesBalance(ctx context.Context) (float64, error) {
	args := m.Called(ctx)
	return args.Get(0).(float64), args.Error(1)
}

// MockBaselineStore 初始本金存储接口的模拟实现
type MockBaselineStore struct {
	mock.Mock
}

// GetInitialBalance 获取初始本金的模拟实现
func (m *MockBaselineStore) GetInitialBalance(ctx context.Context) (float64, error) {
	args := m.Called(ctx)
	return args.Get(0).(float64), args.Error(1)
}

// MockTransferGateway 划转网关接口的模拟实现
type MockTransferGateway struct {
	mock.Mock
}

// TransferToSpot 合约到现货划转的模拟实现
func (m *MockTransferGateway) TransferToSpot(ctx context.Context, amount float64) (*banking.TransferResult, error) {
	args := m.Called(ctx, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*banking.TransferResult), args.Error(1)
}

// MockHistoryStore 划转历史存储接口的模拟实现
type MockHistoryStore struct {
	mock.Mock
}

// LoadRecent 加载最近划转记录的模拟实现
func (m *MockHistoryStore) LoadRecent(ctx context.Context, limit int) ([]*banking.BankingRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*banking.BankingRecord), args.Error(1)
}

// Append 追加划转记录的模拟实现
func (m *MockHistoryStore) Append(ctx context.Context, record *banking.BankingRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

// CapturingEventSink 捕获事件的消费者，用于断言事件发布。
// 定时器协程也会发布事件，因此内部加锁
type CapturingEventSink struct {
	mu     sync.Mutex
	events []banking.Event
}

// Publish 实现 banking.EventSink
func (s *CapturingEventSink) Publish(event banking.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

// EventsOfType 返回指定类型的全部事件
func (s *CapturingEventSink) EventsOfType(eventType banking.EventType) []banking.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []banking.Event
	for _, event := range s.events {
		if event.Type == eventType {
			result = append(result, event)
		}
	}
	return result
}
