package models

import (
	"encoding/json"
	"errors"
	"strings"
)

// QueueMessage 是回退队列读取端点返回的信封。
// 队列为空时 Message 为 null/缺失；非空时 Message 的具体形状由所属队列决定，
// 在这里保持原始字节，交由对应的重放分发器解码。
type QueueMessage struct {
	QueueName string          `json:"queue_name"`
	Message   json.RawMessage `json:"message"`
}

// UserReplayRecord 是 sql_fallback 队列中的用户创建记录。
// Email 在目标存储中全局唯一，作为幂等键：重复重放同一 email 在目标端是空操作。
type UserReplayRecord struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Validate 检查重放所必需的字段。
func (r UserReplayRecord) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("缺少必需字段 'name'")
	}
	if strings.TrimSpace(r.Email) == "" {
		return errors.New("缺少必需字段 'email'")
	}
	return nil
}

// LogReplayRecord 是 nosql_fallback 队列中的日志记录。
// Details 对消费者完全不透明，重放时必须逐字节原样传递。
type LogReplayRecord struct {
	Action  string          `json:"action"`
	Details json.RawMessage `json:"details,omitempty"`
}

// Validate 检查重放所必需的字段。日志重放是追加写，无唯一性约束。
func (r LogReplayRecord) Validate() error {
	if strings.TrimSpace(r.Action) == "" {
		return errors.New("缺少必需字段 'action'")
	}
	return nil
}
