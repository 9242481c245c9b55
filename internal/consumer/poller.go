package consumer

import (
	"context"
	"encoding/json"

	"github.com/Xushengqwer/go-common/core"
	"go.uber.org/zap"
)

// MessageFetcher 是回退队列读取端点的抽象，由后端客户端实现。
type MessageFetcher interface {
	FetchMessage(ctx context.Context, queueName string) (json.RawMessage, bool, error)
}

// QueuePoller 负责为一个固定的回退队列获取下一条待重放的消息，
// 或判定当前没有消息可取。它不持有任何跨轮询的状态。
type QueuePoller struct {
	queueName string
	fetcher   MessageFetcher
	logger    *core.ZapLogger
}

// NewQueuePoller 创建一个绑定到指定队列的轮询器。
func NewQueuePoller(queueName string, fetcher MessageFetcher, logger *core.ZapLogger) *QueuePoller {
	return &QueuePoller{
		queueName: queueName,
		fetcher:   fetcher,
		logger:    logger,
	}
}

// QueueName 返回此轮询器绑定的回退队列名称。
func (p *QueuePoller) QueueName() string {
	return p.queueName
}

// Poll 对队列执行一次破坏性读取。
// 传输层失败或响应体非法均通过 error 返回，调用方将其与"队列为空"同等对待，
// 只是以更高的日志级别记录——单次轮询失败永远不会终止消费循环。
func (p *QueuePoller) Poll(ctx context.Context) (json.RawMessage, bool, error) {
	payload, ok, err := p.fetcher.FetchMessage(ctx, p.queueName)
	if err != nil {
		p.logger.Warn("轮询回退队列失败，本轮视作队列为空",
			zap.String("队列(queue)", p.queueName),
			zap.Error(err),
		)
		return nil, false, err
	}
	return payload, ok, nil
}
