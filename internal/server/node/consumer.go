package node

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/tradeportal/internal/common"
	"github.com/dmitrijs2005/tradeportal/internal/logging"
	"github.com/dmitrijs2005/tradeportal/internal/server/models"
	"github.com/dmitrijs2005/tradeportal/internal/server/services"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Callback kinds on the status topic.
const (
	KindMessage = "message"
	KindStatus  = "status"
)

// Callback is the JSON value of a record on the status topic. Message
// callbacks deliver a message, inbound unless Direction says outbound;
// status callbacks report a transport status for a message identified by
// SenderRef.
type Callback struct {
	Kind       string          `json:"kind"`
	SenderRef  string          `json:"sender_ref"`
	Subject    string          `json:"subject,omitempty"`
	Body       json.RawMessage `json:"body,omitempty"`
	DocumentID string          `json:"document_id,omitempty"`
	Direction  string          `json:"direction,omitempty"`
	Status     string          `json:"status,omitempty"`
	Note       string          `json:"note,omitempty"`
}

// Fetcher is the part of *kgo.Client the consumer uses.
type Fetcher interface {
	PollFetches(ctx context.Context) kgo.Fetches
}

// Reconciler receives what the consumer decodes.
type Reconciler interface {
	Ingest(ctx context.Context, in services.InboundMessage) (*models.NodeMessage, bool, error)
	Process(ctx context.Context, senderRef string, next models.MessageStatus, note string) error
}

// Consumer feeds node callbacks to the reconciler. Records that cannot be
// applied are logged and skipped; redelivery is handled by deduplication.
type Consumer struct {
	fetcher    Fetcher
	reconciler Reconciler
	logger     logging.Logger
}

func NewConsumer(f Fetcher, r Reconciler, l logging.Logger) *Consumer {
	return &Consumer{fetcher: f, reconciler: r, logger: l.With("module", "node-consumer")}
}

// Run polls until ctx is cancelled or the client is closed.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		fetches := c.fetcher.PollFetches(ctx)
		if ctx.Err() != nil || fetches.IsClientClosed() {
			return nil
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.Error(ctx, "fetch failed", "topic", topic, "partition", partition, "error", err)
		})
		fetches.EachRecord(func(r *kgo.Record) {
			if err := c.Handle(ctx, r.Value); err != nil {
				c.log(ctx, r, err)
			}
		})
	}
}

func (c *Consumer) log(ctx context.Context, r *kgo.Record, err error) {
	args := []any{"topic", r.Topic, "partition", r.Partition, "offset", r.Offset, "error", err}
	switch {
	case errors.Is(err, common.ErrNoOwner), errors.Is(err, common.ErrInvalidState), errors.Is(err, common.ErrorNotFound):
		c.logger.Warn(ctx, "callback ignored", args...)
	default:
		c.logger.Error(ctx, "callback failed", args...)
	}
}

// Handle applies one encoded callback.
func (c *Consumer) Handle(ctx context.Context, value []byte) error {
	var cb Callback
	if err := json.Unmarshal(value, &cb); err != nil {
		return fmt.Errorf("%w: malformed callback: %v", common.ErrorValidation, err)
	}

	switch cb.Kind {
	case KindMessage:
		outbound, err := models.ParseDirection(cb.Direction)
		if err != nil {
			return err
		}
		_, _, err = c.reconciler.Ingest(ctx, services.InboundMessage{
			SenderRef:  cb.SenderRef,
			Subject:    cb.Subject,
			Body:       cb.Body,
			DocumentID: cb.DocumentID,
			IsOutbound: outbound,
		})
		return err
	case KindStatus:
		status, err := models.ParseMessageStatus(cb.Status)
		if err != nil {
			return err
		}
		return c.reconciler.Process(ctx, cb.SenderRef, status, cb.Note)
	default:
		return fmt.Errorf("%w: unknown callback kind %q", common.ErrorValidation, cb.Kind)
	}
}
