package node

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/tradeportal/internal/logging"
	"github.com/dmitrijs2005/tradeportal/internal/server/models"
	"github.com/twmb/franz-go/pkg/kgo"
)

const (
	headerSenderRef  = "sender_ref"
	headerDocumentID = "document_id"
)

// Producer is the part of *kgo.Client the sender uses.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Envelope is the JSON value of an outbound record.
type Envelope struct {
	SenderRef string          `json:"sender_ref"`
	Subject   string          `json:"subject"`
	Body      json.RawMessage `json:"body"`
}

// KafkaSender produces outbound node messages keyed by sender_ref, so every
// status change of one message lands on one partition.
type KafkaSender struct {
	producer Producer
	topic    string
	logger   logging.Logger
}

func NewKafkaSender(p Producer, topic string, l logging.Logger) *KafkaSender {
	return &KafkaSender{producer: p, topic: topic, logger: l.With("module", "node-sender")}
}

func (s *KafkaSender) Send(ctx context.Context, m *models.NodeMessage) error {
	value, err := json.Marshal(Envelope{SenderRef: m.SenderRef, Subject: m.Subject, Body: m.Body})
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	rec := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(m.SenderRef),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: headerSenderRef, Value: []byte(m.SenderRef)},
			{Key: headerDocumentID, Value: []byte(m.DocumentID)},
		},
	}
	if err := s.producer.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("produce message %s: %w", m.SenderRef, err)
	}
	s.logger.Debug(ctx, "message produced", "sender_ref", m.SenderRef, "topic", s.topic)
	return nil
}

// LogSender only logs outbound messages. It stands in for the transport
// when no brokers are configured.
type LogSender struct {
	logger logging.Logger
}

func NewLogSender(l logging.Logger) *LogSender {
	return &LogSender{logger: l.With("module", "node-sender")}
}

func (s *LogSender) Send(ctx context.Context, m *models.NodeMessage) error {
	s.logger.Info(ctx, "outbound message not sent: no transport configured", "sender_ref", m.SenderRef, "document_id", m.DocumentID)
	return nil
}
