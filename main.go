// File: main.go
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Xushengqwer/go-common/core"
	"go.uber.org/zap"

	"github.com/Xushengqwer/fallback_replay/internal/backend"
	"github.com/Xushengqwer/fallback_replay/internal/config"
	"github.com/Xushengqwer/fallback_replay/internal/constants"
	"github.com/Xushengqwer/fallback_replay/internal/consumer"
)

func main() {
	var configFile string
	flag.StringVar(&configFile, "config", "internal/config/config.development.yaml", "指定配置文件的路径")
	flag.Parse()

	var cfg config.AppConfig
	if err := core.LoadConfig(configFile, &cfg); err != nil {
		log.Fatalf("致命错误: 加载配置文件 '%s' 失败: %v", configFile, err)
	}

	logger, loggerErr := core.NewZapLogger(cfg.ZapConfig)
	if loggerErr != nil {
		log.Fatalf("致命错误: 初始化 ZapLogger 失败: %v", loggerErr)
	}
	defer func() {
		logger.Info("正在同步所有日志条目...")
		if err := logger.Logger().Sync(); err != nil {
			log.Printf("警告: ZapLogger Sync 操作失败: %v\n", err)
		}
	}()
	logger.Info("Logger 初始化成功。")

	// --- 后端客户端初始化 ---
	client, err := backend.NewClient(cfg.Backend, logger)
	if err != nil {
		logger.Fatal("初始化后端服务客户端失败", zap.Error(err))
	}

	// --- 死信 sink 初始化 (根据配置选择) ---
	var deadLetters consumer.DeadLetterSink
	logger.Info("根据配置初始化死信 sink...", zap.String("configured_sink", cfg.DeadLetterSink))

	switch cfg.DeadLetterSink {
	case "kafka":
		kafkaSink, sinkErr := consumer.NewKafkaDeadLetterSink(cfg.Kafka, logger)
		if sinkErr != nil {
			logger.Fatal("初始化 Kafka 死信 sink 失败", zap.Error(sinkErr))
		}
		deadLetters = kafkaSink
		logger.Info("死信 sink 初始化成功: Kafka")
	case "", "disabled":
		// 参考行为: 丢弃的消息只体现在日志里。
		deadLetters = consumer.NewDisabledDeadLetterSink()
		logger.Info("死信 sink 已禁用 (参考行为)。")
	default:
		logger.Fatal("未知的死信 sink 配置",
			zap.String("configured_sink", cfg.DeadLetterSink),
			zap.String("supported_sinks", "disabled, kafka"),
		)
	}
	defer func() {
		logger.Info("正在关闭死信 sink...")
		if err := deadLetters.Close(); err != nil {
			logger.Error("关闭死信 sink 失败", zap.Error(err))
		} else {
			logger.Info("死信 sink 已成功关闭。")
		}
	}()

	// --- 重放分发器初始化 (每个回退队列一个) ---
	sqlQueue := cfg.Consumer.SQLQueueName
	if sqlQueue == "" {
		sqlQueue = constants.QueueSQLFallback
	}
	nosqlQueue := cfg.Consumer.NoSQLQueueName
	if nosqlQueue == "" {
		nosqlQueue = constants.QueueNoSQLFallback
	}

	dispatchers := []consumer.ReplayDispatcher{
		consumer.NewUserReplayDispatcher(sqlQueue, client, logger),
		consumer.NewLogReplayDispatcher(nosqlQueue, client, logger),
	}
	logger.Info("重放分发器初始化成功。",
		zap.String("SQL队列(sql_queue)", sqlQueue),
		zap.String("NoSQL队列(nosql_queue)", nosqlQueue),
	)

	// --- 启动消费监督器 ---
	supervisor := consumer.NewSupervisor(cfg.Consumer, client, dispatchers, deadLetters, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		receivedSignal := <-sigChan
		logger.Info("收到关闭信号，开始优雅关闭服务...", zap.String("信号(signal)", receivedSignal.String()))
		cancel()
	}()

	logger.Info("准备启动消费监督器...")
	if err := supervisor.Run(ctx); err != nil {
		logger.Error("消费监督器运行出错或已停止", zap.Error(err))
	}

	logger.Info("服务已成功关闭。")
}
