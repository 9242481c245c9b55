package consumer

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Xushengqwer/fallback_replay/internal/constants"
	"github.com/Xushengqwer/fallback_replay/internal/models"
)

// DeadLetterSink 接收解码失败或重放失败的消息。
// 队列读取是破坏性的，参考行为下这两条路径都是静默丢数据;
// 配置一个真实的 sink (例如 Kafka) 可以把丢弃的消息留档，便于人工补偿。
type DeadLetterSink interface {
	// SendDeadLetter 投递一条死信事件。投递失败只记录日志，不影响消费循环。
	SendDeadLetter(ctx context.Context, event models.DeadLetterEvent) error

	// Close 关闭 sink 并释放资源。
	Close() error
}

// NewDeadLetterEvent 为一条无法重放的消息构造死信事件。
func NewDeadLetterEvent(queueName string, payload []byte, failureReason string) models.DeadLetterEvent {
	return models.DeadLetterEvent{
		DLQEventID:        uuid.NewString(),
		OriginalQueue:     queueName,
		OriginalPayload:   string(payload),
		FailureReason:     failureReason,
		FailedAt:          time.Now().UnixMilli(),
		ProcessingService: constants.ServiceName,
	}
}

// disabledDeadLetterSink 保持参考行为: 丢弃的消息只体现在日志里。
type disabledDeadLetterSink struct{}

// NewDisabledDeadLetterSink 返回一个不做任何投递的 sink。
func NewDisabledDeadLetterSink() DeadLetterSink {
	return disabledDeadLetterSink{}
}

func (disabledDeadLetterSink) SendDeadLetter(ctx context.Context, event models.DeadLetterEvent) error {
	return nil
}

func (disabledDeadLetterSink) Close() error {
	return nil
}

var _ DeadLetterSink = disabledDeadLetterSink{}
