package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/Xushengqwer/go-common/core"
	"go.uber.org/zap"

	"github.com/Xushengqwer/fallback_replay/internal/config"
	"github.com/Xushengqwer/fallback_replay/internal/models"
)

// kafkaDeadLetterSink 实现了 DeadLetterSink 接口，使用 Sarama 同步生产者
// 将死信事件投递到配置的 Kafka 主题。
type kafkaDeadLetterSink struct {
	producer sarama.SyncProducer
	topic    string
	logger   *core.ZapLogger
}

// NewKafkaDeadLetterSink 创建一个基于 Kafka 的死信 sink。
// cfg: 死信生产者的 Kafka 配置。
// logger: 日志记录器。
func NewKafkaDeadLetterSink(cfg config.KafkaConfig, logger *core.ZapLogger) (DeadLetterSink, error) {
	if len(cfg.Brokers) == 0 {
		logger.Error("Kafka死信配置错误: brokers 列表为空")
		return nil, fmt.Errorf("kafka死信配置错误: brokers 不能为空")
	}
	if cfg.DeadLetterTopic == "" {
		logger.Error("Kafka死信配置错误: dead_letter_topic 未定义")
		return nil, fmt.Errorf("kafka死信配置错误: dead_letter_topic 不能为空")
	}

	saramaCfg, err := getSaramaConfig(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("创建 Sarama 死信生产者配置失败: %w", err)
	}

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaCfg)
	if err != nil {
		logger.Error("创建 Kafka 同步生产者失败",
			zap.Strings("brokers", cfg.Brokers),
			zap.Error(err),
		)
		return nil, fmt.Errorf("创建 Kafka 同步生产者失败: %w", err)
	}
	logger.Info("Kafka 死信生产者创建成功",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("主题(topic)", cfg.DeadLetterTopic),
	)

	return &kafkaDeadLetterSink{
		producer: producer,
		topic:    cfg.DeadLetterTopic,
		logger:   logger,
	}, nil
}

// SendDeadLetter 实现 DeadLetterSink 接口。
func (s *kafkaDeadLetterSink) SendDeadLetter(ctx context.Context, event models.DeadLetterEvent) error {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("SendDeadLetter: 序列化 DeadLetterEvent 失败",
			zap.String("DLQ事件ID(dlq_event_id)", event.DLQEventID),
			zap.String("来源队列(original_queue)", event.OriginalQueue),
			zap.Error(err),
		)
		return fmt.Errorf("序列化 DeadLetterEvent 失败: %w", err)
	}

	// 使用事件ID作为消息的Key，有助于 Kafka 分区和日志压缩。
	msg := &sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(event.DLQEventID),
		Value: sarama.ByteEncoder(eventJSON),
	}

	s.logger.Debug("准备发送死信事件到 Kafka",
		zap.String("主题(topic)", msg.Topic),
		zap.String("消息键(key)", event.DLQEventID),
	)

	partition, offset, err := s.producer.SendMessage(msg)
	if err != nil {
		s.logger.Error("SendDeadLetter: 发送消息到 Kafka 死信主题失败",
			zap.String("DLQ事件ID(dlq_event_id)", event.DLQEventID),
			zap.String("来源队列(original_queue)", event.OriginalQueue),
			zap.Error(err),
		)
		return fmt.Errorf("发送消息到 Kafka 死信主题失败: %w", err)
	}

	s.logger.Info("成功发送死信事件到 Kafka",
		zap.String("主题(topic)", msg.Topic),
		zap.String("DLQ事件ID(dlq_event_id)", event.DLQEventID),
		zap.String("来源队列(original_queue)", event.OriginalQueue),
		zap.Int32("分区(partition)", partition),
		zap.Int64("偏移量(offset)", offset),
	)
	return nil
}

// Close 实现 DeadLetterSink 接口，关闭同步生产者。
func (s *kafkaDeadLetterSink) Close() error {
	if s.producer != nil {
		s.logger.Info("正在关闭 Kafka 死信生产者...")
		if err := s.producer.Close(); err != nil {
			s.logger.Error("关闭 Kafka 死信生产者失败", zap.Error(err))
			return err
		}
		s.logger.Info("Kafka 死信生产者已成功关闭。")
	}
	return nil
}

var _ DeadLetterSink = (*kafkaDeadLetterSink)(nil)
