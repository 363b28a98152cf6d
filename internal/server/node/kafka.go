// Package node connects the portal to the peer network over Kafka: outbound
// messages are produced to one topic, deliveries and transport callbacks
// are consumed from another.
package node

import (
	"context"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// ClientConfig selects the brokers and topics of the node transport.
type ClientConfig struct {
	Brokers       []string
	OutboundTopic string
	StatusTopic   string
	Group         string
}

// NewClient builds a franz-go client that produces to the outbound topic by
// default and consumes the status topic as part of the consumer group.
func NewClient(cfg ClientConfig) (*kgo.Client, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers configured")
	}
	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.OutboundTopic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	}
	if cfg.StatusTopic != "" {
		opts = append(opts,
			kgo.ConsumerGroup(cfg.Group),
			kgo.ConsumeTopics(cfg.StatusTopic),
		)
	}
	cl, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}
	return cl, nil
}

// EnsureTopics creates the given topics with broker defaults for
// replication. Topics that already exist are left alone.
func EnsureTopics(ctx context.Context, cl *kgo.Client, partitions int32, topics ...string) error {
	adm := kadm.NewClient(cl)
	resp, err := adm.CreateTopics(ctx, partitions, -1, nil, topics...)
	if err != nil {
		return fmt.Errorf("create topics: %w", err)
	}
	for _, t := range resp {
		if t.Err != nil && !errors.Is(t.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", t.Topic, t.Err)
		}
	}
	return nil
}
