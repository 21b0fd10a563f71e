package notify

import (
	"go.uber.org/zap"

	"github.com/life2you_mini/profitbank/internal/banking"
)

// ZapSink 将生命周期事件写入结构化日志
type ZapSink struct {
	logger *zap.Logger
}

// NewZapSink 创建日志事件消费者
func NewZapSink(logger *zap.Logger) *ZapSink {
	return &ZapSink{
		logger: logger.With(zap.String("component", "event_sink")),
	}
}

// Publish 实现 banking.EventSink
func (s *ZapSink) Publish(event banking.Event) {
	s.logger.Info("划转生命周期事件",
		zap.String("event_type", string(event.Type)),
		zap.Time("event_time", event.Timestamp),
		zap.Any("payload", event.Payload))
}

// MultiSink 将事件分发给多个消费者
type MultiSink struct {
	sinks []banking.EventSink
}

// NewMultiSink 创建事件分发器
func NewMultiSink(sinks ...banking.EventSink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// Publish 实现 banking.EventSink
func (s *MultiSink) Publish(event banking.Event) {
	for _, sink := range s.sinks {
		sink.Publish(event)
	}
}
