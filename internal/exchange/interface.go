package exchange

import (
	"context"

	"github.com/life2you_mini/profitbank/internal/banking"
)

// Exchange 交易所接口
type Exchange interface {
	// GetExchangeName 获取交易所名称
	GetExchangeName() string

	// GetFuturesBalance 获取合约账户余额（USDT计价）
	GetFuturesBalance(ctx context.Context) (float64, error)

	// TransferToSpot 将指定金额从合约账户划转到现货账户
	TransferToSpot(ctx context.Context, amount float64) (*banking.TransferResult, error)
}

// ExchangeFactory 交易所工厂，用于注册支持的交易所实例
type ExchangeFactory struct {
	exchanges map[string]Exchange
}

// NewExchangeFactory 创建交易所工厂
func NewExchangeFactory() *ExchangeFactory {
	return &ExchangeFactory{
		exchanges: make(map[string]Exchange),
	}
}

// Register 注册交易所实例
func (f *ExchangeFactory) Register(name string, ex Exchange) {
	f.exchanges[name] = ex
}

// Get 获取交易所实例
func (f *ExchangeFactory) Get(name string) (Exchange, bool) {
	ex, exists := f.exchanges[name]
	return ex, exists
}

// GetAll 获取所有交易所实例
func (f *ExchangeFactory) GetAll() []Exchange {
	var result []Exchange
	for _, ex := range f.exchanges {
		result = append(result, ex)
	}
	return result
}
