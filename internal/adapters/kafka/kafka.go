package kafka

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"
)

func InitKafkaProducer(brokers []string, topic string) (sarama.SyncProducer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Partitioner = sarama.NewHashPartitioner
	config.Producer.Partitioner(topic)
	config.Version = sarama.V2_0_0_0
	config.ClientID = "concord-gateway"
	config.Producer.MaxMessageBytes = 1000000
	config.Producer.Flush.MaxMessages = 1000

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}

	return producer, nil
}

// Publisher fans persisted chat events out to downstream consumers
// (search indexing, notification workers). Nil-safe: a nil Publisher
// drops everything, so single-binary deployments can run without Kafka.
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
}

func NewPublisher(producer sarama.SyncProducer, topic string) *Publisher {
	return &Publisher{producer: producer, topic: topic}
}

// PublishJSON keys the record by channel so per-channel ordering holds
// across partitions.
func (p *Publisher) PublishJSON(key string, payload any) error {
	if p == nil || p.producer == nil {
		return nil
	}

	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal kafka payload: %w", err)
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(value),
	})
	if err != nil {
		return err
	}

	slog.Debug("Published kafka message", "topic", p.topic, "partition", partition, "offset", offset)
	return nil
}

func (p *Publisher) Close() error {
	if p == nil || p.producer == nil {
		return nil
	}
	return p.producer.Close()
}
