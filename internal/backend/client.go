// File: internal/backend/client.go
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Xushengqwer/go-common/core"
	"go.uber.org/zap"

	"github.com/Xushengqwer/fallback_replay/internal/config"
	"github.com/Xushengqwer/fallback_replay/internal/constants"
	"github.com/Xushengqwer/fallback_replay/internal/models"
)

// 错误响应体在日志和错误信息中最多保留的字节数
const maxErrorBodyBytes = 512

// Client 封装了与后端服务 HTTP API 的交互逻辑。
// 后端同时提供回退队列的读取端点和两个存储的写入端点，本客户端是它们唯一的入口。
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *core.ZapLogger
}

// NewClient 创建一个新的后端客户端实例。
func NewClient(cfg config.BackendConfig, logger *core.ZapLogger) (*Client, error) {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = constants.DefaultBackendBaseURL
		logger.Info("后端服务地址未配置，使用默认值", zap.String("base_url", baseURL))
	}

	timeout := time.Duration(cfg.RequestTimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = constants.DefaultRequestTimeout
		logger.Info("后端请求超时未配置，使用默认值", zap.Duration("timeout", timeout))
	}

	logger.Info("后端服务客户端初始化成功",
		zap.String("base_url", baseURL),
		zap.Duration("request_timeout", timeout),
	)

	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// FetchMessage 从指定的回退队列拉取下一条消息。
// 这是一次破坏性读取: 消息一经返回便从源队列移除，后续处理失败无法退回。
// 返回值: (payload, true, nil) 表示拉到消息; (nil, false, nil) 表示队列为空。
func (c *Client) FetchMessage(ctx context.Context, queueName string) (json.RawMessage, bool, error) {
	url := fmt.Sprintf("%s/messages/%s", c.baseURL, queueName)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("构造队列读取请求失败: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("请求队列读取端点失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("队列读取端点返回非200状态: %s", readErrorStatus(resp))
	}

	var envelope models.QueueMessage
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, false, fmt.Errorf("解码队列读取响应体失败: %w", err)
	}

	if isNullPayload(envelope.Message) {
		c.logger.Debug("回退队列为空", zap.String("队列(queue)", queueName))
		return nil, false, nil
	}

	c.logger.Debug("从回退队列拉取到消息",
		zap.String("队列(queue)", queueName),
		zap.Int("负载字节数(payload_bytes)", len(envelope.Message)),
	)
	return envelope.Message, true, nil
}

// CreateUser 将用户重放记录提交到关系型存储的写入 API。
// 目标端以 email 作为幂等键，重复提交同一 email 不会产生重复行。
func (c *Client) CreateUser(ctx context.Context, record models.UserReplayRecord) error {
	return c.postJSON(ctx, "/users/", record)
}

// AppendLog 将日志重放记录追加到文档存储的写入 API。
func (c *Client) AppendLog(ctx context.Context, record models.LogReplayRecord) error {
	return c.postJSON(ctx, "/logs/", record)
}

// EnqueueMessage 向指定的回退队列投递一条消息。
// 正常运行时消息由上游生产者写入，此方法主要供种子工具 (cmd/queueseeder) 使用。
func (c *Client) EnqueueMessage(ctx context.Context, queueName string, payload json.RawMessage) error {
	return c.postJSON(ctx, "/messages/", models.QueueMessage{
		QueueName: queueName,
		Message:   payload,
	})
}

// postJSON 将 body 序列化为 JSON 并 POST 到指定路径，非 2xx 状态视为错误。
func (c *Client) postJSON(ctx context.Context, path string, body interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("序列化请求体失败 (path: %s): %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("构造写入请求失败 (path: %s): %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("请求写入端点失败 (path: %s): %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("写入端点返回错误状态 (path: %s): %s", path, readErrorStatus(resp))
	}

	// 响应体中的已创建记录对重放流程没有用处，读完丢弃以复用连接。
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// isNullPayload 判断信封中的 message 字段是否为空队列信号 (缺失或 JSON null)。
func isNullPayload(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// readErrorStatus 将错误响应压缩为 "状态 + 截断的响应体" 的描述。
func readErrorStatus(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return resp.Status
	}
	return fmt.Sprintf("%s (响应体: %s)", resp.Status, trimmed)
}
