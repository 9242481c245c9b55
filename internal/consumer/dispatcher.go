package consumer

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrMalformedPayload 表示消息负载缺少必需字段或不是合法的 JSON 对象。
// 由于队列读取是破坏性的，携带此错误的消息会被记录并丢弃，消费循环继续运行。
var ErrMalformedPayload = errors.New("回退消息负载格式非法")

// ReplayDispatcher 是重放分发器的核心接口。
// 每个回退队列对应一个实现: 它负责把该队列特有的负载形状解码出来，
// 并向所属存储的写入 API 发起对应的重放请求。
type ReplayDispatcher interface {
	// QueueName 返回此分发器服务的回退队列名称。
	QueueName() string

	// Dispatch 解码一条消息负载并发起重放写入。
	//
	// 返回值:
	//   - 包裹 ErrMalformedPayload 的错误: 负载无法解码为目标记录类型，
	//     调用方应丢弃该消息，不发起任何写入。
	//   - 其他非 nil 错误: 写入端点失败 (网络错误或 4xx/5xx)。参考行为不做
	//     进程内重试——消息已从源队列移除，是否补偿交给死信通道。
	//   - nil: 恰好发起了一次写入请求且目标端接受。
	Dispatch(ctx context.Context, payload json.RawMessage) error
}
