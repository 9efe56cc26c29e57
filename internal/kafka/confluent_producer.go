package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/saifiimuhammad/Pentutor-Backend/internal/domain"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/service"
	pkglog "github.com/saifiimuhammad/Pentutor-Backend/pkg/log"
)

// ConfluentProducer implements MeetingEventProducer using confluent-kafka-go.
// It is also a service.MeetingHook.
type ConfluentProducer struct {
	producer *kafka.Producer
	topic    string
	doneCh   chan struct{}
}

// NewConfluentProducer creates a new Kafka producer for meeting events.
func NewConfluentProducer(brokers, topic string, partitions int) (*ConfluentProducer, error) {
	// Ensure topic exists with desired partition count
	if err := ensureTopic(brokers, topic, partitions); err != nil {
		l := pkglog.L()
		l.Warn().Err(err).Str("topic", topic).Msg("failed to ensure topic, may already exist")
	}

	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
		"acks":              "1",
		"linger.ms":         5,
		"compression.type":  "snappy",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	cp := &ConfluentProducer{
		producer: p,
		topic:    topic,
		doneCh:   make(chan struct{}),
	}

	go cp.deliveryReportHandler()

	return cp, nil
}

func ensureTopic(brokers, topic string, partitions int) error {
	if partitions <= 0 {
		partitions = 1
	}
	admin, err := kafka.NewAdminClient(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
	})
	if err != nil {
		return fmt.Errorf("failed to create admin client: %w", err)
	}
	defer admin.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	results, err := admin.CreateTopics(ctx, []kafka.TopicSpecification{
		{
			Topic:             topic,
			NumPartitions:     partitions,
			ReplicationFactor: 1,
		},
	})
	if err != nil {
		return err
	}

	for _, result := range results {
		if result.Error.Code() != kafka.ErrNoError && result.Error.Code() != kafka.ErrTopicAlreadyExists {
			return fmt.Errorf("failed to create topic %s: %v", result.Topic, result.Error)
		}
	}

	return nil
}

func (cp *ConfluentProducer) deliveryReportHandler() {
	l := pkglog.L()
	for e := range cp.producer.Events() {
		if ev, ok := e.(*kafka.Message); ok && ev.TopicPartition.Error != nil {
			l.Error().Err(ev.TopicPartition.Error).Str("key", string(ev.Key)).Msg("kafka delivery failed")
		}
	}
	close(cp.doneCh)
}

// Produce writes event keyed by meeting id, so one meeting's events stay on
// one partition in order.
func (cp *ConfluentProducer) Produce(ctx context.Context, event *MeetingLifecycleEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal meeting event: %w", err)
	}

	err = cp.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &cp.topic,
			Partition: kafka.PartitionAny,
		},
		Key:   []byte(event.MeetingID),
		Value: value,
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to produce message: %w", err)
	}

	return nil
}

// OnMeetingEvent implements service.MeetingHook.
func (cp *ConfluentProducer) OnMeetingEvent(ctx context.Context, event service.MeetingEvent, meeting *domain.Meeting) {
	if err := cp.Produce(ctx, NewMeetingLifecycleEvent(event, meeting)); err != nil {
		l := pkglog.Ctx(ctx)
		l.Error().Err(err).Str(pkglog.FieldMeetingID, meeting.MeetingID).Str(pkglog.FieldEvent, string(event)).Msg("failed to produce meeting event")
	}
}

// NewMeetingLifecycleEvent builds the record for a lifecycle change.
func NewMeetingLifecycleEvent(event service.MeetingEvent, meeting *domain.Meeting) *MeetingLifecycleEvent {
	return &MeetingLifecycleEvent{
		Type:       string(event),
		MeetingID:  meeting.MeetingID,
		HostID:     meeting.HostID,
		Status:     string(meeting.Status),
		StartedAt:  meeting.StartedAt,
		EndedAt:    meeting.EndedAt,
		OccurredAt: time.Now().Unix(),
	}
}

// Close flushes pending messages and closes the producer.
func (cp *ConfluentProducer) Close() error {
	cp.producer.Flush(5000)
	cp.producer.Close()
	<-cp.doneCh
	return nil
}
