package kafka

import (
	"Inkwell/internal/api/config"
	log "log/slog"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
)

// Producer 异步事件生产者
// Publish 不等待确认也不返回错误：主事务提交后通知只能尽力而为
type Producer struct {
	producer sarama.AsyncProducer
	topic    string
}

// NewProducer 构造函数
func NewProducer(cfg *config.Config) (*Producer, error) {
	saramaCfg := newSaramaConfig(cfg.Kafka)

	producer, err := sarama.NewAsyncProducer(cfg.Kafka.Brokers, saramaCfg)
	if err != nil {
		return nil, err
	}

	p := &Producer{
		producer: producer,
		topic:    cfg.KafkaEventProducer.Topic,
	}
	go p.drainErrors()

	return p, nil
}

func (s *Producer) Publish(event *Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error("marshal event failed", "type", event.Type, "err", err)
		return
	}

	s.producer.Input() <- &sarama.ProducerMessage{
		Topic: s.topic,
		Value: sarama.ByteEncoder(data),
	}
}

// drainErrors 消费失败回执，只记录日志
func (s *Producer) drainErrors() {
	for err := range s.producer.Errors() {
		log.Error("event delivery failed", "topic", s.topic, "err", err)
	}
}

func (s *Producer) Close() error {
	return s.producer.Close()
}
