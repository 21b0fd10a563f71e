package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions Redis客户端配置选项
type RedisOptions struct {
	Host      string
	Port      int
	Password  string
	DB        int
	KeyPrefix string
}

// RedisClient Redis存储客户端封装
type RedisClient struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisClient 创建新的Redis存储客户端并测试连接
func NewRedisClient(opts RedisOptions) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", opts.Host, opts.Port),
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
		MaxRetries:   3,
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("无法连接到Redis: %w", err)
	}

	return &RedisClient{
		client:    client,
		keyPrefix: opts.KeyPrefix,
	}, nil
}

// Client 返回原始的Redis客户端
func (c *RedisClient) Client() *redis.Client {
	return c.client
}

// Key 为业务键添加前缀
func (c *RedisClient) Key(name string) string {
	return c.keyPrefix + name
}

// Health 检查Redis连接状态
func (c *RedisClient) Health(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close 关闭Redis连接
func (c *RedisClient) Close() error {
	return c.client.Close()
}
