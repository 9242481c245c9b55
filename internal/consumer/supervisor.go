package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Xushengqwer/go-common/core"
	"github.com/dogmatiq/linger/backoff"
	"go.uber.org/zap"

	"github.com/Xushengqwer/fallback_replay/internal/config"
	"github.com/Xushengqwer/fallback_replay/internal/constants"
)

// State 表示监督器的生命周期状态。
type State int32

const (
	StateStarting State = iota // 循环尚未全部启动
	StateRunning               // 全部循环运行中
	StateStopping              // 已收到取消信号，等待循环收尾
	StateStopped               // 全部循环已退出
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// consumerLoop 将一个队列的轮询器与该队列的重放分发器绑定为一个独立的消费单元。
type consumerLoop struct {
	poller     *QueuePoller
	dispatcher ReplayDispatcher
}

// Supervisor 持有全部消费循环，并发启动它们，并提供统一的关闭路径。
// 两个循环之间没有任何共享可变状态，彼此只通过各自的后端 HTTP 调用产生副作用，
// 因此监督器唯一拥有的协调手段就是传入 Run 的取消信号。
type Supervisor struct {
	loops           []consumerLoop
	deadLetters     DeadLetterSink
	logger          *core.ZapLogger
	emptyPollDelay  time.Duration
	dispatchTimeout time.Duration
	state           atomic.Int32
}

// NewSupervisor 为每个分发器创建一个绑定同名队列的轮询器，并组装监督器。
// fetcher 通常是后端客户端；deadLetters 传 nil 时使用保持参考行为的禁用 sink。
func NewSupervisor(
	cfg config.ConsumerConfig,
	fetcher MessageFetcher,
	dispatchers []ReplayDispatcher,
	deadLetters DeadLetterSink,
	logger *core.ZapLogger,
) *Supervisor {
	emptyPollDelay := time.Duration(cfg.EmptyPollIntervalMs) * time.Millisecond
	if emptyPollDelay <= 0 {
		emptyPollDelay = constants.DefaultEmptyPollInterval
		logger.Info("空队列退避间隔未配置，使用默认值", zap.Duration("interval", emptyPollDelay))
	}
	if deadLetters == nil {
		deadLetters = NewDisabledDeadLetterSink()
	}

	loops := make([]consumerLoop, 0, len(dispatchers))
	for _, d := range dispatchers {
		loops = append(loops, consumerLoop{
			poller:     NewQueuePoller(d.QueueName(), fetcher, logger),
			dispatcher: d,
		})
	}

	s := &Supervisor{
		loops:           loops,
		deadLetters:     deadLetters,
		logger:          logger,
		emptyPollDelay:  emptyPollDelay,
		dispatchTimeout: constants.DefaultRequestTimeout,
	}
	s.state.Store(int32(StateStarting))
	return s
}

// State 返回监督器当前的生命周期状态。
func (s *Supervisor) State() State {
	return State(s.state.Load())
}

func (s *Supervisor) setState(st State) {
	old := State(s.state.Swap(int32(st)))
	if old != st {
		s.logger.Info("监督器状态变更",
			zap.String("旧状态(from)", old.String()),
			zap.String("新状态(to)", st.String()),
		)
	}
}

// Run 并发启动全部消费循环并阻塞，直到 ctx 被取消且所有循环完成收尾。
// 每个循环在下一次轮询开始前观察取消信号；进行中的重放永远不会被打断。
func (s *Supervisor) Run(ctx context.Context) error {
	if len(s.loops) == 0 {
		s.setState(StateStopped)
		return errors.New("监督器没有任何消费循环可运行")
	}

	wg := &sync.WaitGroup{}
	for _, loop := range s.loops {
		wg.Add(1)
		go func(loop consumerLoop) {
			defer wg.Done()
			s.runLoop(ctx, loop)
		}(loop)
	}
	s.setState(StateRunning)
	s.logger.Info("全部消费循环已启动", zap.Int("循环数量(loop_count)", len(s.loops)))

	stopObserver := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			// 仅当仍在运行时标记 Stopping；循环可能已经全部退出。
			if s.state.CompareAndSwap(int32(StateRunning), int32(StateStopping)) {
				s.logger.Info("监督器状态变更",
					zap.String("旧状态(from)", StateRunning.String()),
					zap.String("新状态(to)", StateStopping.String()),
				)
			}
		case <-stopObserver:
		}
	}()

	wg.Wait()
	close(stopObserver)
	s.setState(StateStopped)
	s.logger.Info("全部消费循环已退出，监督器关闭完成。")
	return nil
}

// runLoop 是单个队列的无限消费循环: 轮询 → (有消息)重放 → (无消息)退避 → 重复。
// 任何单条消息的失败都不会终止循环；循环只因取消信号退出。
func (s *Supervisor) runLoop(ctx context.Context, loop consumerLoop) {
	queueName := loop.poller.QueueName()
	s.logger.Info("消费循环启动", zap.String("队列(queue)", queueName))

	// 空队列与轮询失败采用同一个固定间隔退避，对应参考行为中的固定等待。
	counter := backoff.Counter{
		Strategy: backoff.Constant(s.emptyPollDelay),
	}

	for {
		// 取消信号必须在每次轮询开始之前被观察到。
		select {
		case <-ctx.Done():
			s.logger.Info("收到取消信号，消费循环退出", zap.String("队列(queue)", queueName))
			return
		default:
		}

		payload, ok, err := loop.poller.Poll(ctx)
		if err != nil {
			// 轮询失败与空队列同等对待 (Poll 内部已用更高级别记录)。
			if counter.Sleep(ctx, err) != nil {
				s.logger.Info("退避等待期间收到取消信号，消费循环退出", zap.String("队列(queue)", queueName))
				return
			}
			continue
		}
		if !ok {
			if counter.Sleep(ctx, nil) != nil {
				s.logger.Info("退避等待期间收到取消信号，消费循环退出", zap.String("队列(queue)", queueName))
				return
			}
			continue
		}

		counter.Reset()
		s.dispatch(ctx, loop, payload)
	}
}

// dispatch 执行一次重放，并按错误类别收尾。
// 消息此刻已从源队列移除: 负载非法或写入失败都意味着这条消息不会再被投递，
// 仅记录日志并交给死信 sink (默认禁用) 留档。
func (s *Supervisor) dispatch(parent context.Context, loop consumerLoop, payload json.RawMessage) {
	queueName := loop.dispatcher.QueueName()

	// 进行中的重放不允许被关闭信号打断，因此派发运行在与父上下文解耦、
	// 仅受请求超时约束的上下文里。
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), s.dispatchTimeout)
	defer cancel()

	err := loop.dispatcher.Dispatch(ctx, payload)
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, ErrMalformedPayload):
		s.logger.Error("消息负载非法，丢弃该消息",
			zap.String("队列(queue)", queueName),
			zap.ByteString("原始负载(raw_payload)", payload),
			zap.Error(err),
		)
	default:
		s.logger.Error("重放写入失败，消息已从源队列移除，不再重试",
			zap.String("队列(queue)", queueName),
			zap.Error(err),
		)
	}

	event := NewDeadLetterEvent(queueName, payload, err.Error())
	if dlqErr := s.deadLetters.SendDeadLetter(ctx, event); dlqErr != nil {
		s.logger.Error("投递死信事件失败",
			zap.String("队列(queue)", queueName),
			zap.String("DLQ事件ID(dlq_event_id)", event.DLQEventID),
			zap.Error(dlqErr),
		)
	}
}
