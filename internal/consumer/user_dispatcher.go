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

// UserWriter 是关系型存储写入 API 的抽象，由后端客户端实现。
type UserWriter interface {
	CreateUser(ctx context.Context, record models.UserReplayRecord) error
}

// userReplayDispatcher 将 sql_fallback 队列的消息重放为用户创建请求。
type userReplayDispatcher struct {
	queueName string
	writer    UserWriter
	logger    *core.ZapLogger
}

// NewUserReplayDispatcher 创建 SQL 变体的重放分发器。
func NewUserReplayDispatcher(queueName string, writer UserWriter, logger *core.ZapLogger) ReplayDispatcher {
	return &userReplayDispatcher{
		queueName: queueName,
		writer:    writer,
		logger:    logger,
	}
}

func (d *userReplayDispatcher) QueueName() string {
	return d.queueName
}

// Dispatch 实现 ReplayDispatcher 接口。
// 目标 API 以 email 为幂等键，重复重放同一记录由目标端自行吸收，消费者不做去重。
func (d *userReplayDispatcher) Dispatch(ctx context.Context, payload json.RawMessage) error {
	var record models.UserReplayRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return fmt.Errorf("%w: 反序列化用户重放记录失败: %v", ErrMalformedPayload, err)
	}
	if err := record.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	replayID := uuid.NewString()
	d.logger.Info("开始重放用户创建请求",
		zap.String("队列(queue)", d.queueName),
		zap.String("重放ID(replay_id)", replayID),
		zap.String("email", record.Email),
	)

	if err := d.writer.CreateUser(ctx, record); err != nil {
		return fmt.Errorf("重放用户创建请求失败 (email: %s): %w", record.Email, err)
	}

	d.logger.Info("用户重放成功",
		zap.String("队列(queue)", d.queueName),
		zap.String("重放ID(replay_id)", replayID),
		zap.String("email", record.Email),
	)
	return nil
}

var _ ReplayDispatcher = (*userReplayDispatcher)(nil)
