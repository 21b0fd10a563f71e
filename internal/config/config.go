package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/life2you_mini/profitbank/internal/banking"
)

// Config 应用配置结构
type Config struct {
	Exchanges    ExchangesConfig    `mapstructure:"exchanges"`
	Banking      BankingConfig      `mapstructure:"banking"`
	Account      AccountConfig      `mapstructure:"account"`
	System       SystemConfig       `mapstructure:"system"`
	Redis        RedisConfig        `mapstructure:"redis"`
	API          APIConfig          `mapstructure:"api"`
	Notification NotificationConfig `mapstructure:"notification"`
}

// ExchangesConfig 交易所配置
type ExchangesConfig struct {
	Binance BinanceConfig `mapstructure:"binance"`
}

// BinanceConfig Binance配置
type BinanceConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	APIKey    string `mapstructure:"api_key"`    // 从配置文件或环境变量中读取
	APISecret string `mapstructure:"api_secret"` // 从配置文件或环境变量中读取
}

// BankingConfig 利润划转配置
type BankingConfig struct {
	Enabled                bool    `mapstructure:"enabled"`
	BankingPercentage      float64 `mapstructure:"banking_percentage"`       // 每周期划转的利润比例 [0,1]
	MinimumProfitThreshold float64 `mapstructure:"minimum_profit_threshold"` // 低于该利润不划转
	MaximumSingleTransfer  float64 `mapstructure:"maximum_single_transfer"`  // 单笔划转上限
	BankingIntervalMs      int64   `mapstructure:"banking_interval_ms"`      // 定时周期（毫秒）
	EmergencyStopThreshold float64 `mapstructure:"emergency_stop_threshold"` // 紧急停止回撤阈值 [0,1]
	MaxDailyBanking        float64 `mapstructure:"max_daily_banking"`        // 单日划转总额上限
}

// ToBankingConfig 转换为控制器使用的配置结构
func (b *BankingConfig) ToBankingConfig() banking.BankingConfig {
	return banking.BankingConfig{
		Enabled:                b.Enabled,
		BankingPercentage:      b.BankingPercentage,
		MinimumProfitThreshold: b.MinimumProfitThreshold,
		MaximumSingleTransfer:  b.MaximumSingleTransfer,
		BankingInterval:        time.Duration(b.BankingIntervalMs) * time.Millisecond,
		EmergencyStopThreshold: b.EmergencyStopThreshold,
		MaxDailyBanking:        b.MaxDailyBanking,
	}
}

// AccountConfig 账户配置
type AccountConfig struct {
	InitialBalance float64 `mapstructure:"initial_balance"` // 初始本金，用于利润与回撤计算
}

// SystemConfig 系统配置
type SystemConfig struct {
	LogLevel string `mapstructure:"log_level"`
	LogDir   string `mapstructure:"log_dir"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// APIConfig HTTP接口配置
type APIConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
}

// NotificationConfig 通知配置
type NotificationConfig struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig Telegram配置
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"` // 从配置文件或环境变量中读取
	ChatID   string `mapstructure:"chat_id"`   // 从配置文件或环境变量中读取
}

// LoadConfig 从文件加载配置
func LoadConfig(filePath string) (*Config, error) {
	// 使用Viper读取配置
	v := viper.New()
	v.SetConfigFile(filePath)

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	// 绑定环境变量（可选，如果需要从环境变量覆盖配置）
	v.AutomaticEnv()
	v.SetEnvPrefix("PROFITBANK") // 环境变量前缀，如PROFITBANK_BINANCE_API_KEY

	// 特定环境变量映射，如果存在这些环境变量则优先使用
	if binanceApiKey := os.Getenv("BINANCE_API_KEY"); binanceApiKey != "" {
		v.Set("exchanges.binance.api_key", binanceApiKey)
	}
	if binanceApiSecret := os.Getenv("BINANCE_API_SECRET"); binanceApiSecret != "" {
		v.Set("exchanges.binance.api_secret", binanceApiSecret)
	}
	if telegramToken := os.Getenv("TELEGRAM_BOT_TOKEN"); telegramToken != "" {
		v.Set("notification.telegram.bot_token", telegramToken)
	}
	if telegramChatID := os.Getenv("TELEGRAM_CHAT_ID"); telegramChatID != "" {
		v.Set("notification.telegram.chat_id", telegramChatID)
	}

	// 解析配置到结构体
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	// 验证配置有效性
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}

	return &config, nil
}

// LoadConfigFromYAML 不经过Viper直接从YAML加载配置
func LoadConfigFromYAML(filePath string) (*Config, error) {
	yamlFile, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(yamlFile, &config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 验证配置有效性
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}

	return &config, nil
}

// validateConfig 验证配置有效性
func validateConfig(config *Config) error {
	// 验证交易所配置
	if !config.Exchanges.Binance.Enabled {
		return fmt.Errorf("至少需要启用一个交易所")
	}
	if config.Exchanges.Binance.APIKey == "" || config.Exchanges.Binance.APISecret == "" {
		return fmt.Errorf("Binance已启用，但API密钥未配置")
	}

	// 验证划转参数
	if config.Banking.BankingPercentage < 0 || config.Banking.BankingPercentage > 1 {
		return fmt.Errorf("划转比例必须在0到1之间")
	}
	if config.Banking.EmergencyStopThreshold < 0 || config.Banking.EmergencyStopThreshold > 1 {
		return fmt.Errorf("紧急停止阈值必须在0到1之间")
	}
	if config.Banking.MinimumProfitThreshold < 0 {
		return fmt.Errorf("最低利润门槛不能为负数")
	}
	if config.Banking.MaximumSingleTransfer < 0 {
		return fmt.Errorf("单笔划转上限不能为负数")
	}
	if config.Banking.MaxDailyBanking < 0 {
		return fmt.Errorf("单日划转上限不能为负数")
	}
	if config.Banking.BankingIntervalMs <= 0 {
		return fmt.Errorf("划转周期必须大于0")
	}

	// 验证账户配置
	if config.Account.InitialBalance < 0 {
		return fmt.Errorf("初始本金不能为负数")
	}

	// 验证Redis配置
	if config.Redis.Host == "" {
		return fmt.Errorf("Redis主机不能为空")
	}
	if config.Redis.Port <= 0 || config.Redis.Port > 65535 {
		return fmt.Errorf("无效的Redis端口")
	}

	// 验证Telegram配置
	if config.Notification.Telegram.Enabled {
		if config.Notification.Telegram.BotToken == "" || config.Notification.Telegram.ChatID == "" {
			return fmt.Errorf("Telegram已启用，但Token或ChatID未配置")
		}
	}

	// 验证API配置
	if config.API.Enabled && config.API.ListenAddr == "" {
		return fmt.Errorf("HTTP接口已启用，但监听地址未配置")
	}

	return nil
}

// GetDefaultConfig 获取默认配置（用于生成示例配置）
func GetDefaultConfig() *Config {
	return &Config{
		Exchanges: ExchangesConfig{
			Binance: BinanceConfig{
				Enabled: true,
			},
		},
		Banking: BankingConfig{
			Enabled:                true,
			BankingPercentage:      0.3,
			MinimumProfitThreshold: 50.0,
			MaximumSingleTransfer:  1000.0,
			BankingIntervalMs:      3600000, // 1小时
			EmergencyStopThreshold: 0.2,
			MaxDailyBanking:        5000.0,
		},
		Account: AccountConfig{
			InitialBalance: 10000.0,
		},
		System: SystemConfig{
			LogLevel: "INFO",
			LogDir:   "./logs",
		},
		Redis: RedisConfig{
			Host:      "localhost",
			Port:      6379,
			Password:  "",
			DB:        0,
			KeyPrefix: "profit_bank:",
		},
		API: APIConfig{
			Enabled:    true,
			ListenAddr: ":8080",
		},
		Notification: NotificationConfig{
			Telegram: TelegramConfig{
				Enabled: false,
			},
		},
	}
}
