package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/life2you_mini/profitbank/internal/api"
	"github.com/life2you_mini/profitbank/internal/banking"
	"github.com/life2you_mini/profitbank/internal/config"
	"github.com/life2you_mini/profitbank/internal/exchange"
	"github.com/life2you_mini/profitbank/internal/notify"
	"github.com/life2you_mini/profitbank/internal/storage"
)

// ProfitBankService 利润划转服务
type ProfitBankService struct {
	ctx         context.Context
	cancel      context.CancelFunc
	logger      *zap.Logger
	redisClient *storage.RedisClient
	baseline    *storage.RedisBaselineStore
	controller  *banking.Controller
	apiServer   *api.Server
	cfg         *config.Config
}

// NewProfitBankService 创建新的利润划转服务
func NewProfitBankService(
	parentCtx context.Context,
	cfg *config.Config,
	logger *zap.Logger,
) (*ProfitBankService, error) {
	// 创建服务上下文
	ctx, cancel := context.WithCancel(parentCtx)

	// 初始化Redis客户端封装
	redisClient, err := storage.NewRedisClient(storage.RedisOptions{
		Host:      cfg.Redis.Host,
		Port:      cfg.Redis.Port,
		Password:  cfg.Redis.Password,
		DB:        cfg.Redis.DB,
		KeyPrefix: cfg.Redis.KeyPrefix,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("初始化Redis客户端失败: %w", err)
	}

	// 创建交易所工厂
	exchangeFactory := exchange.CreateExchangeFactory(
		logger,
		&exchange.BinanceConfig{
			Enabled:   cfg.Exchanges.Binance.Enabled,
			APIKey:    cfg.Exchanges.Binance.APIKey,
			APISecret: cfg.Exchanges.Binance.APISecret,
		},
	)

	binanceClient, found := exchangeFactory.Get("Binance")
	if !found {
		cancel()
		return nil, fmt.Errorf("Binance交易所未注册")
	}

	// 创建端口适配器
	exchangeAdapter := NewExchangeAdapter(binanceClient)
	historyStore := storage.NewBankingHistoryStore(redisClient, logger)
	baselineStore := storage.NewRedisBaselineStore(redisClient, logger)

	// 创建事件消费者：日志始终开启，Telegram按配置开启
	sinks := []banking.EventSink{notify.NewZapSink(logger)}
	if cfg.Notification.Telegram.Enabled {
		sinks = append(sinks, notify.NewTelegramSink(
			cfg.Notification.Telegram.BotToken,
			cfg.Notification.Telegram.ChatID,
			logger,
		))
	}
	eventSink := notify.NewMultiSink(sinks...)

	// 创建划转控制器
	controller := banking.NewController(
		ctx,
		cfg.Banking.ToBankingConfig(),
		logger,
		exchangeAdapter,
		baselineStore,
		exchangeAdapter,
		historyStore,
		eventSink,
	)

	// 创建HTTP接口
	var apiServer *api.Server
	if cfg.API.Enabled {
		apiServer = api.NewServer(cfg.API.ListenAddr, controller, redisClient, logger)
	}

	return &ProfitBankService{
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
		redisClient: redisClient,
		baseline:    baselineStore,
		controller:  controller,
		apiServer:   apiServer,
		cfg:         cfg,
	}, nil
}

// Start 启动服务
func (s *ProfitBankService) Start() error {
	s.logger.Info("启动利润划转服务")

	// 初始本金不存在时写入配置值，运行期可在Redis中直接调整
	seedCtx, seedCancel := context.WithTimeout(s.ctx, 5*time.Second)
	if err := s.baseline.Seed(seedCtx, s.cfg.Account.InitialBalance); err != nil {
		s.logger.Warn("写入初始本金失败，控制器将使用兜底逻辑", zap.Error(err))
	}
	seedCancel()

	// 初始化划转控制器
	if err := s.controller.Start(); err != nil {
		return fmt.Errorf("初始化划转控制器失败: %w", err)
	}

	// 启动HTTP接口
	if s.apiServer != nil {
		go func() {
			if err := s.apiServer.Start(); err != nil {
				s.logger.Error("HTTP接口启动失败", zap.Error(err))
			}
		}()
	}

	return nil
}

// Stop 停止服务
func (s *ProfitBankService) Stop(ctx context.Context) error {
	s.logger.Info("停止利润划转服务")

	// 停止HTTP接口
	if s.apiServer != nil {
		if err := s.apiServer.Stop(ctx); err != nil {
			s.logger.Error("停止HTTP接口失败", zap.Error(err))
		}
	}

	// 停止划转控制器
	if err := s.controller.Stop(); err != nil {
		s.logger.Error("停止划转控制器失败", zap.Error(err))
	}

	// 取消服务上下文
	s.cancel()

	// 关闭Redis连接
	if err := s.redisClient.Close(); err != nil {
		s.logger.Error("关闭Redis连接失败", zap.Error(err))
	}

	s.logger.Info("利润划转服务已停止")
	return nil
}

// Controller 返回划转控制器，供上层应用直接调用
func (s *ProfitBankService) Controller() *banking.Controller {
	return s.controller
}
