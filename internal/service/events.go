package service

import (
	"context"
	"encoding/json"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/sirupsen/logrus"
)

const (
	mentionsTopic   = "pagechain.mentions"
	searchSyncTopic = "pagechain.search-sync"
)

var (
	_ Notifier   = (*KafkaEmitter)(nil)
	_ SearchSync = (*KafkaEmitter)(nil)
)

// KafkaEmitter produces mention and search-sync events. Everything is
// fire-and-forget: produce errors are logged and dropped, delivery
// reports are drained and logged only on failure.
type KafkaEmitter struct {
	producer *kafka.Producer
}

func NewKafkaEmitter(brokers string) (*KafkaEmitter, error) {
	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
	})
	if err != nil {
		return nil, err
	}

	e := &KafkaEmitter{producer: producer}
	go e.drainDeliveryReports()

	return e, nil
}

func (e *KafkaEmitter) drainDeliveryReports() {
	for ev := range e.producer.Events() {
		if m, ok := ev.(*kafka.Message); ok && m.TopicPartition.Error != nil {
			logrus.Errorf("event delivery failed: %v", m.TopicPartition.Error)
		}
	}
}

func (e *KafkaEmitter) produce(topic string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return e.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Value:          data,
	}, nil)
}

func (e *KafkaEmitter) NotifyMention(ctx context.Context, event MentionEvent) error {
	return e.produce(mentionsTopic, event)
}

func (e *KafkaEmitter) Sync(ctx context.Context, record SearchRecord) error {
	return e.produce(searchSyncTopic, record)
}

func (e *KafkaEmitter) Close() {
	e.producer.Flush(5000)
	e.producer.Close()
}

var (
	_ Notifier   = NopEmitter{}
	_ SearchSync = NopEmitter{}
)

// NopEmitter discards all events. Used in tests and when no broker is
// configured.
type NopEmitter struct {
}

func NewNopEmitter() NopEmitter {
	return NopEmitter{}
}

func (NopEmitter) NotifyMention(ctx context.Context, event MentionEvent) error {
	return nil
}

func (NopEmitter) Sync(ctx context.Context, record SearchRecord) error {
	return nil
}
