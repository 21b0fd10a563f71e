package banking

import "context"

// BalanceProvider 合约账户余额查询接口
type BalanceProvider interface {
	// GetFuturesBalance 获取当前合约账户余额
	GetFuturesBalance(ctx context.Context) (float64, error)
}

// BaselineStore 初始本金存储接口
type BaselineStore interface {
	// GetInitialBalance 获取配置的初始本金
	GetInitialBalance(ctx context.Context) (float64, error)
}

// TransferGateway 合约到现货的划转网关
type TransferGateway interface {
	// TransferToSpot 将指定金额从合约账户划转到现货账户
	TransferToSpot(ctx context.Context, amount float64) (*TransferResult, error)
}

// HistoryStore 划转历史的持久化存储，只追加不修改
type HistoryStore interface {
	// LoadRecent 按最新在前的顺序加载最近的划转记录
	LoadRecent(ctx context.Context, limit int) ([]*BankingRecord, error)

	// Append 追加一条划转记录
	Append(ctx context.Context, record *BankingRecord) error
}
