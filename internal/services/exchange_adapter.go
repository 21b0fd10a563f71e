package services

import (
	"context"

	"github.com/life2you_mini/profitbank/internal/banking"
	"github.com/life2you_mini/profitbank/internal/exchange"
)

// ExchangeAdapter 适配 exchange.Exchange 到控制器的
// banking.BalanceProvider 和 banking.TransferGateway 接口
type ExchangeAdapter struct {
	exchange exchange.Exchange
}

// NewExchangeAdapter 创建一个新的交易所适配器
func NewExchangeAdapter(ex exchange.Exchange) *ExchangeAdapter {
	return &ExchangeAdapter{
		exchange: ex,
	}
}

// GetFuturesBalance 实现 banking.BalanceProvider
func (a *ExchangeAdapter) GetFuturesBalance(ctx context.Context) (float64, error) {
	return a.exchange.GetFuturesBalance(ctx)
}

// TransferToSpot 实现 banking.TransferGateway
func (a *ExchangeAdapter) TransferToSpot(ctx context.Context, amount float64) (*banking.TransferResult, error) {
	return a.exchange.TransferToSpot(ctx, amount)
}
