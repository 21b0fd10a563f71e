package exchange

import (
	"context"
	"fmt"

	ccxt "github.com/ccxt/ccxt/go/v4"
	"go.uber.org/zap"

	"github.com/life2you_mini/profitbank/internal/banking"
)

// 划转使用的计价资产与账户类型
const (
	settlementAsset = "USDT"
	accountFuture   = "future"
	accountSpot     = "spot"
)

// BinanceClient 币安交易所客户端
type BinanceClient struct {
	exchange *ccxt.Binance
	logger   *zap.Logger
}

// NewBinanceClient 创建新的币安客户端
func NewBinanceClient(apiKey, apiSecret string, logger *zap.Logger) *BinanceClient {
	// 创建CCXT的Binance实例
	binanceInstance := ccxt.NewBinance(map[string]interface{}{
		"apiKey":          apiKey,
		"secret":          apiSecret,
		"enableRateLimit": true,
	})

	// 加载市场信息
	go func() {
		<-binanceInstance.LoadMarkets()
		logger.Info("Binance市场数据加载完成")
	}()

	return &BinanceClient{
		exchange: &binanceInstance,
		logger:   logger.With(zap.String("component", "binance_client")),
	}
}

// GetExchangeName 获取交易所名称
func (b *BinanceClient) GetExchangeName() string {
	return "Binance"
}

// GetFuturesBalance 获取合约账户的USDT余额
func (b *BinanceClient) GetFuturesBalance(ctx context.Context) (float64, error) {
	params := map[string]interface{}{
		"type": accountFuture,
	}

	balanceData, err := b.exchange.FetchBalance(ccxt.WithFetchBalanceParams(params))
	if err != nil {
		b.logger.Error("获取币安合约余额失败", zap.Error(err))
		return 0, fmt.Errorf("获取币安合约余额失败: %w", err)
	}

	// 提取USDT总余额
	total, ok := balanceData.Total[settlementAsset]
	if !ok || total == nil {
		return 0, fmt.Errorf("合约账户余额中不存在%s", settlementAsset)
	}

	return *total, nil
}

// TransferToSpot 将USDT从合约账户划转到现货账户
func (b *BinanceClient) TransferToSpot(ctx context.Context, amount float64) (*banking.TransferResult, error) {
	transferData, err := b.exchange.Transfer(settlementAsset, amount, accountFuture, accountSpot)
	if err != nil {
		b.logger.Error("币安合约到现货划转失败",
			zap.Error(err),
			zap.Float64("amount", amount))
		return nil, fmt.Errorf("币安划转失败: %w", err)
	}

	// 提取划转ID
	transferID := ""
	if transferData.Id != nil {
		transferID = *transferData.Id
	}
	if transferID == "" {
		b.logger.Warn("划转成功但未返回划转ID", zap.Float64("amount", amount))
	}

	b.logger.Info("币安合约到现货划转成功",
		zap.Float64("amount", amount),
		zap.String("transfer_id", transferID))

	return &banking.TransferResult{
		Success:    true,
		TransferID: transferID,
	}, nil
}
