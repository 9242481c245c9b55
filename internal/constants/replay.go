package constants

import "time"

// ServiceName 用于日志、DLQ 事件以及 Kafka ClientID。
const ServiceName = "fallback-replay-service"

const (
	// QueueSQLFallback 承载主写入路径失败后的用户创建记录，目标是关系型存储。
	QueueSQLFallback = "sql_fallback"
	// QueueNoSQLFallback 承载主写入路径失败后的结构化日志记录，目标是文档存储。
	QueueNoSQLFallback = "nosql_fallback"
)

const (
	DefaultBackendBaseURL    = "http://localhost:8000" // 后端服务的默认地址
	DefaultEmptyPollInterval = 2 * time.Second         // 队列为空时的默认退避间隔
	DefaultRequestTimeout    = 10 * time.Second        // 单次 HTTP 请求(轮询或重放)的默认超时
)
