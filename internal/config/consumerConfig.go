package config

// ConsumerConfig 包含了消费循环的配置。
// 队列名称和空队列退避间隔从过程级常量提升为显式配置，便于用 mock 端点测试。
type ConsumerConfig struct {
	SQLQueueName        string `mapstructure:"sql_queue_name"`         // 用户创建记录所在的回退队列，默认 "sql_fallback"
	NoSQLQueueName      string `mapstructure:"nosql_queue_name"`       // 日志记录所在的回退队列，默认 "nosql_fallback"
	EmptyPollIntervalMs int64  `mapstructure:"empty_poll_interval_ms"` // 队列为空时下一次轮询前的等待时间 (毫秒)
}
