package config

import "github.com/Xushengqwer/go-common/config"

// AppConfig 是整个应用的配置结构体
type AppConfig struct {
	ZapConfig      config.ZapConfig `mapstructure:"zapConfig" json:"zapConfig" yaml:"zapConfig"`
	Backend        BackendConfig    `mapstructure:"backend"`
	Consumer       ConsumerConfig   `mapstructure:"consumer"`
	DeadLetterSink string           `mapstructure:"dead_letter_sink"` // 死信投递方式: "disabled" (参考行为) 或 "kafka"
	Kafka          KafkaConfig      `mapstructure:"kafka"`            // 仅在 dead_letter_sink 为 "kafka" 时使用
}
