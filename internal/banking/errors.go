package banking

import "errors"

// 手动划转的校验错误，校验失败不会产生任何历史记录
var (
	// ErrInvalidAmount 划转金额必须大于0
	ErrInvalidAmount = errors.New("划转金额必须大于0")

	// ErrExceedsSingleTransferLimit 划转金额超过单笔上限
	ErrExceedsSingleTransferLimit = errors.New("划转金额超过单笔上限")

	// ErrExceedsDailyLimit 划转金额超过当日剩余额度
	ErrExceedsDailyLimit = errors.New("划转金额超过当日剩余额度")

	// ErrInsufficientBalance 合约账户余额不足（需保留10%缓冲）
	ErrInsufficientBalance = errors.New("合约账户余额不足")

	// ErrInvalidConfig 配置取值非法
	ErrInvalidConfig = errors.New("利润划转配置非法")

	// ErrAlreadyRunning 控制器已在运行
	ErrAlreadyRunning = errors.New("利润划转控制器已在运行")
)
