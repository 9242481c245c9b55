package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	commonconfig "github.com/Xushengqwer/go-common/config"
	"github.com/Xushengqwer/go-common/core"

	"github.com/Xushengqwer/fallback_replay/internal/models"
)

var errWriteUnavailable = errors.New("目标写入端点不可用")

func testLogger(t *testing.T) *core.ZapLogger {
	t.Helper()
	logger, err := core.NewZapLogger(commonconfig.ZapConfig{})
	if err != nil {
		t.Fatalf("初始化测试 logger 失败: %v", err)
	}
	return logger
}

// waitFor 轮询 cond 直到为真或超时。
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("等待条件超时: %s", msg)
}

// scriptedFetcher 用预置的消息序列模拟回退队列的破坏性读取。
type scriptedFetcher struct {
	mu     sync.Mutex
	queues map[string][]json.RawMessage
	polls  map[string]int
}

func newScriptedFetcher() *scriptedFetcher {
	return &scriptedFetcher{
		queues: make(map[string][]json.RawMessage),
		polls:  make(map[string]int),
	}
}

func (f *scriptedFetcher) push(queueName string, payload string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queues[queueName] = append(f.queues[queueName], json.RawMessage(payload))
}

func (f *scriptedFetcher) pollCount(queueName string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls[queueName]
}

func (f *scriptedFetcher) FetchMessage(ctx context.Context, queueName string) (json.RawMessage, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls[queueName]++
	msgs := f.queues[queueName]
	if len(msgs) == 0 {
		return nil, false, nil
	}
	// 破坏性读取: 返回即移除。
	f.queues[queueName] = msgs[1:]
	return msgs[0], true, nil
}

// fakeUserWriter 记录收到的用户创建请求。
type fakeUserWriter struct {
	mu      sync.Mutex
	records []models.UserReplayRecord
	err     error
	block   chan struct{} // 非 nil 时，CreateUser 阻塞直到该通道关闭
	entered chan struct{} // 非 nil 时，进入 CreateUser 后关闭一次
	once    sync.Once
}

func (f *fakeUserWriter) CreateUser(ctx context.Context, record models.UserReplayRecord) error {
	if f.entered != nil {
		f.once.Do(func() { close(f.entered) })
	}
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, record)
	return nil
}

func (f *fakeUserWriter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

// fakeLogWriter 记录收到的日志追加请求。
type fakeLogWriter struct {
	mu      sync.Mutex
	records []models.LogReplayRecord
	err     error
}

func (f *fakeLogWriter) AppendLog(ctx context.Context, record models.LogReplayRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, record)
	return nil
}

func (f *fakeLogWriter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

// recordingDeadLetterSink 捕获投递的死信事件。
type recordingDeadLetterSink struct {
	mu     sync.Mutex
	events []models.DeadLetterEvent
}

func (s *recordingDeadLetterSink) SendDeadLetter(ctx context.Context, event models.DeadLetterEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingDeadLetterSink) Close() error { return nil }

func (s *recordingDeadLetterSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}
