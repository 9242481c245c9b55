package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Xushengqwer/go-common/core"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Xushengqwer/fallback_replay/internal/models"
)

// LogWriter 是文档存储写入 API 的抽象，由后端客户端实现。
type LogWriter interface {
	AppendLog(ctx context.Context, record models.LogReplayRecord) error
}

// logReplayDispatcher 将 nosql_fallback 队列的消息重放为日志追加请求。
type logReplayDispatcher struct {
	queueName string
	writer    LogWriter
	logger    *core.ZapLogger
}

// NewLogReplayDispatcher 创建 NoSQL 变体的重放分发器。
func NewLogReplayDispatcher(queueName string, writer LogWriter, logger *core.ZapLogger) ReplayDispatcher {
	return &logReplayDispatcher{
		queueName: queueName,
		writer:    writer,
		logger:    logger,
	}
}

func (d *logReplayDispatcher) QueueName() string {
	return d.queueName
}

// Dispatch 实现 ReplayDispatcher 接口。
// 日志重放是纯追加: 无幂等要求，details 保持原始字节原样传递。
func (d *logReplayDispatcher) Dispatch(ctx context.Context, payload json.RawMessage) error {
	var record models.LogReplayRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return fmt.Errorf("%w: 反序列化日志重放记录失败: %v", ErrMalformedPayload, err)
	}
	if err := record.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if len(record.Details) == 0 {
		// 原始系统允许 details 缺失，追加时落为一个空文档。
		record.Details = json.RawMessage("{}")
	}

	replayID := uuid.NewString()
	d.logger.Info("开始重放日志追加请求",
		zap.String("队列(queue)", d.queueName),
		zap.String("重放ID(replay_id)", replayID),
		zap.String("action", record.Action),
	)

	if err := d.writer.AppendLog(ctx, record); err != nil {
		return fmt.Errorf("重放日志追加请求失败 (action: %s): %w", record.Action, err)
	}

	d.logger.Info("日志重放成功",
		zap.String("队列(queue)", d.queueName),
		zap.String("重放ID(replay_id)", replayID),
		zap.String("action", record.Action),
	)
	return nil
}

var _ ReplayDispatcher = (*logReplayDispatcher)(nil)
