package bus

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"github.com/docentsearch/docent-eval/internal/pkg/errors"
)

// KafkaBus publishes run events to Kafka topics.
type KafkaBus struct {
	config   KafkaConfig
	producer sarama.SyncProducer

	mu     sync.RWMutex
	closed bool
}

// KafkaConfig holds Kafka connection settings.
type KafkaConfig struct {
	Brokers  []string      // Kafka broker addresses
	ClientID string        // Client identifier
	Version  string        // Kafka version (e.g., "2.8.0")
	Timeout  time.Duration // Request timeout (default: 30s)
}

// NewKafkaBus creates a new Kafka-backed event publisher.
func NewKafkaBus(cfg KafkaConfig) (*KafkaBus, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New(errors.CodeValidation, "kafka brokers cannot be empty")
	}

	if cfg.ClientID == "" {
		cfg.ClientID = "docent-eval-bus"
	}
	if cfg.Version == "" {
		cfg.Version = "2.8.0"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	version, err := sarama.ParseKafkaVersion(cfg.Version)
	if err != nil {
		return nil, errors.Wrap(errors.CodeValidation, "invalid kafka version", err)
	}

	kafkaConfig := sarama.NewConfig()
	kafkaConfig.Version = version
	kafkaConfig.ClientID = cfg.ClientID
	kafkaConfig.Producer.Return.Successes = true
	kafkaConfig.Producer.Return.Errors = true
	kafkaConfig.Producer.Retry.Max = 3
	kafkaConfig.Producer.RequiredAcks = sarama.WaitForAll
	kafkaConfig.Net.DialTimeout = 10 * time.Second
	kafkaConfig.Net.ReadTimeout = cfg.Timeout
	kafkaConfig.Net.WriteTimeout = cfg.Timeout

	producer, err := sarama.NewSyncProducer(cfg.Brokers, kafkaConfig)
	if err != nil {
		return nil, errors.Wrap(errors.CodeUnavailable, "failed to create kafka producer", err)
	}

	return &KafkaBus{
		config:   cfg,
		producer: producer,
	}, nil
}

// Publish publishes an event to a Kafka topic.
func (b *KafkaBus) Publish(_ context.Context, topic string, event Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return errors.New(errors.CodeUnavailable, "bus is closed")
	}

	data, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(errors.CodeInternal, "failed to marshal event", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(data),
		Key:   sarama.StringEncoder(event.RunID), // Keep a run's events in one partition
	}

	if _, _, err := b.producer.SendMessage(msg); err != nil {
		return errors.Wrap(errors.CodeUnavailable, "failed to publish event", err)
	}

	return nil
}

// Close closes the producer.
func (b *KafkaBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	b.closed = true
	return b.producer.Close()
}
