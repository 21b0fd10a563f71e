package exchange

import (
	"go.uber.org/zap"
)

// BinanceConfig Binance配置
type BinanceConfig struct {
	Enabled   bool
	APIKey    string
	APISecret string
}

// CreateExchangeFactory 创建交易所工厂并初始化启用的交易所。
// 划转只在单一交易所内进行，工厂保留注册多个交易所的能力
func CreateExchangeFactory(
	logger *zap.Logger,
	binanceConfig *BinanceConfig,
) *ExchangeFactory {
	factory := NewExchangeFactory()

	// 初始化Binance
	if binanceConfig != nil && binanceConfig.Enabled {
		binanceClient := NewBinanceClient(binanceConfig.APIKey, binanceConfig.APISecret, logger)
		factory.Register("Binance", binanceClient)
		logger.Info("Binance交易所已注册")
	}

	return factory
}
