// Package kafka publishes detection events to the alerting pipeline.
package kafka

import (
	"fmt"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"

	"github.com/spignelon/roadvision-assignment/internal/models"
)

type Producer struct {
	producer sarama.SyncProducer
	topic    string
}

// NewProducer создаёт продюсер с настройками
func NewProducer(brokers []string, topic string) (*Producer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}

	return &Producer{
		producer: producer,
		topic:    topic,
	}, nil
}

func (p *Producer) Close() error {
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("failed to close Kafka producer: %w", err)
	}
	return nil
}

// SendDetectionEvent отправляет одно событие детекции в Kafka
func (p *Producer) SendDetectionEvent(event models.DetectionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	kafkaMsg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.StreamID),
		Value: sarama.ByteEncoder(payload),
	}

	_, _, err = p.producer.SendMessage(kafkaMsg)
	if err != nil {
		return err
	}

	return nil
}
