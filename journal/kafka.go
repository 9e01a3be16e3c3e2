package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	EventPositionClosed = "POSITION_CLOSED"
	EventEquity         = "EQUITY_SNAPSHOT"
)

// MessageWriter is the part of *kafka.Writer the journal needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Event is the JSON payload published for every record.
type Event struct {
	EventType string          `json:"eventType"`
	Key       string          `json:"key"`
	Timestamp time.Time       `json:"timestamp"`
	Position  *PositionRecord `json:"position,omitempty"`
	Equity    *EquitySnapshot `json:"equity,omitempty"`
}

// KafkaJournal publishes closed positions keyed by instrument and equity
// snapshots keyed by account id.
type KafkaJournal struct {
	w       MessageWriter
	account string
	timeout time.Duration
}

func NewKafka(brokers []string, topic, accountID string) *KafkaJournal {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}
	return NewKafkaWithWriter(w, accountID)
}

func NewKafkaWithWriter(w MessageWriter, accountID string) *KafkaJournal {
	return &KafkaJournal{w: w, account: accountID, timeout: 5 * time.Second}
}

func (j *KafkaJournal) RecordPosition(r PositionRecord) error {
	return j.publish(Event{
		EventType: EventPositionClosed,
		Key:       r.Instrument,
		Timestamp: r.CloseTime,
		Position:  &r,
	})
}

func (j *KafkaJournal) RecordEquity(e EquitySnapshot) error {
	return j.publish(Event{
		EventType: EventEquity,
		Key:       j.account,
		Timestamp: e.Time,
		Equity:    &e,
	})
}

func (j *KafkaJournal) publish(ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(ev.Key),
		Value: data,
	}
	if err := j.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}
	return nil
}

func (j *KafkaJournal) Close() error {
	return j.w.Close()
}
