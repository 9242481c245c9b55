package config

// BackendConfig 包含了后端服务 HTTP API 的配置。
// 回退队列的读取端点和两个重放写入端点都由这一个服务提供。
type BackendConfig struct {
	BaseURL          string `mapstructure:"base_url"`           // 例如 "http://localhost:8000"
	RequestTimeoutMs int64  `mapstructure:"request_timeout_ms"` // 单次 HTTP 请求的超时时间 (毫秒)
}
