package models

// DeadLetterEvent 定义了投递到死信队列的消息结构。
// 回退队列的读取是破坏性的：消息一经拉取便从源队列移除，若后续解码或重放失败，
// 该事件是这条消息最后的落点，用于事后排查与人工补偿。
type DeadLetterEvent struct {
	DLQEventID        string `json:"dlq_event_id"`       // 死信事件自身的唯一ID (由发送方生成)
	OriginalQueue     string `json:"original_queue"`     // 消息来源的回退队列名称
	OriginalPayload   string `json:"original_payload"`   // 拉取到的原始消息体 (JSON 字符串)
	FailureReason     string `json:"failure_reason"`     // 解码或重放失败的原因
	FailedAt          int64  `json:"failed_at"`          // 失败发生的时间戳 (Unix Milliseconds)
	ProcessingService string `json:"processing_service"` // 处理失败的服务名称
}
