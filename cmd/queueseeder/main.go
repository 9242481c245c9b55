package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/Xushengqwer/go-common/core"
	"go.uber.org/zap"

	"github.com/Xushengqwer/fallback_replay/internal/backend"
	"github.com/Xushengqwer/fallback_replay/internal/config"
	"github.com/Xushengqwer/fallback_replay/internal/constants"
	"github.com/Xushengqwer/fallback_replay/internal/models"
)

// queueseeder 通过后端的 POST /messages/ 端点向两个回退队列投递测试消息，
// 用于手动验证重放消费者。加上 -malformed 可以混入非法负载，验证丢弃路径。
func main() {
	var configFile string
	var numMessages int
	var includeMalformed bool

	flag.StringVar(&configFile, "config", "internal/config/config.development.yaml", "指定配置文件的路径")
	flag.IntVar(&numMessages, "n", 10, "向每个队列发送的测试消息数量")
	flag.BoolVar(&includeMalformed, "malformed", false, "是否混入缺失必需字段的非法消息")
	flag.Parse()

	// 1. 加载配置
	var appCfg config.AppConfig
	if err := core.LoadConfig(configFile, &appCfg); err != nil {
		log.Fatalf("致命错误: 加载配置文件 '%s' 失败: %v", configFile, err)
	}

	// 2. 初始化 Logger
	logger, loggerErr := core.NewZapLogger(appCfg.ZapConfig)
	if loggerErr != nil {
		log.Fatalf("致命错误: 初始化 ZapLogger 失败: %v", loggerErr)
	}
	defer func() {
		_ = logger.Logger().Sync()
	}()

	logger.Info("队列种子工具启动，配置文件加载成功。")

	// 3. 初始化后端客户端
	client, err := backend.NewClient(appCfg.Backend, logger)
	if err != nil {
		logger.Fatal("初始化后端服务客户端失败", zap.Error(err))
	}

	sqlQueue := appCfg.Consumer.SQLQueueName
	if sqlQueue == "" {
		sqlQueue = constants.QueueSQLFallback
	}
	nosqlQueue := appCfg.Consumer.NoSQLQueueName
	if nosqlQueue == "" {
		nosqlQueue = constants.QueueNoSQLFallback
	}

	ctx := context.Background()

	// 4. 投递用户创建记录到 SQL 回退队列
	for i := 1; i <= numMessages; i++ {
		record := models.UserReplayRecord{
			Name:  fmt.Sprintf("测试用户%d", i),
			Email: fmt.Sprintf("user_%d_%d@example.com", time.Now().Unix(), i),
		}
		enqueue(ctx, logger, client, sqlQueue, record)
	}

	// 5. 投递日志记录到 NoSQL 回退队列
	for i := 1; i <= numMessages; i++ {
		details, _ := json.Marshal(map[string]interface{}{
			"attempt":   i,
			"source":    "queueseeder",
			"timestamp": time.Now().Format(time.RFC3339),
		})
		record := models.LogReplayRecord{
			Action:  fmt.Sprintf("seed_action_%d", i),
			Details: details,
		}
		enqueue(ctx, logger, client, nosqlQueue, record)
	}

	// 6. 可选: 混入非法负载，消费者应丢弃它们且循环不中断
	if includeMalformed {
		enqueue(ctx, logger, client, sqlQueue, map[string]string{"name": "缺少email字段"})
		enqueue(ctx, logger, client, nosqlQueue, map[string]string{"details_only": "缺少action字段"})
		logger.Info("已混入非法测试消息。")
	}

	logger.Info("所有测试消息已投递完毕。",
		zap.Int("每队列消息数(per_queue)", numMessages),
		zap.String("SQL队列(sql_queue)", sqlQueue),
		zap.String("NoSQL队列(nosql_queue)", nosqlQueue),
	)
}

func enqueue(ctx context.Context, logger *core.ZapLogger, client *backend.Client, queueName string, payload interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		logger.Error("序列化测试消息失败", zap.String("队列(queue)", queueName), zap.Error(err))
		return
	}
	if err := client.EnqueueMessage(ctx, queueName, raw); err != nil {
		logger.Error("投递测试消息失败",
			zap.String("队列(queue)", queueName),
			zap.ByteString("负载(payload)", raw),
			zap.Error(err),
		)
		return
	}
	logger.Info("成功投递测试消息",
		zap.String("队列(queue)", queueName),
		zap.ByteString("负载(payload)", raw),
	)
}
