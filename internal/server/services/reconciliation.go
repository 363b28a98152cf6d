package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/tradeportal/internal/common"
	"github.com/dmitrijs2005/tradeportal/internal/dbx"
	"github.com/dmitrijs2005/tradeportal/internal/logging"
	"github.com/dmitrijs2005/tradeportal/internal/server/cache"
	"github.com/dmitrijs2005/tradeportal/internal/server/metrics"
	"github.com/dmitrijs2005/tradeportal/internal/server/models"
	"github.com/dmitrijs2005/tradeportal/internal/server/repositories/repomanager"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	msgOutboundSent   = "Outbound message has been sent"
	msgInboundArrived = "Inbound message received"

	// PredicateCOOIssued is the predicate of outbound certificate messages.
	PredicateCOOIssued = "UN.CEFACT.Trade.CertificateOfOrigin.created"
)

// Sender hands an outbound message to the peer network. Delivery retries
// belong to the implementation.
type Sender interface {
	Send(ctx context.Context, m *models.NodeMessage) error
}

// InboundMessage is a delivery from the peer network. IsOutbound marks a
// message this side of the exchange sent, reported back by the node.
type InboundMessage struct {
	SenderRef  string
	Subject    string
	Body       json.RawMessage
	DocumentID string
	IsOutbound bool
}

// BusinessEventHandler receives inbound messages linked to a document, after
// they are stored. Business events carried by them are the handler's
// concern; transport status changes never reach it.
type BusinessEventHandler func(ctx context.Context, d *models.Document, m *models.NodeMessage) error

// OutboundBody is the payload of messages this node sends.
type OutboundBody struct {
	Sender    string `json:"sender"`
	Receiver  string `json:"receiver"`
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Obj       string `json:"obj,omitempty"`
	URI       string `json:"oa_uri,omitempty"`
}

// ReconciliationService maps node message transport statuses onto the
// documents they belong to.
type ReconciliationService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	runner      dbx.Runner
	lifecycle   models.Lifecycle
	sender      Sender
	index       *searchIndexer
	onBusiness  BusinessEventHandler
	metrics     *metrics.Metrics
	now         func() time.Time
	logger      logging.Logger
}

func NewReconciliationService(db *sql.DB, rm repomanager.RepositoryManager, runner dbx.Runner, lc models.Lifecycle,
	sender Sender, ftas *cache.FTACache, m *metrics.Metrics, l logging.Logger) *ReconciliationService {
	l = l.With("module", "reconciler")
	return &ReconciliationService{
		db:          db,
		repomanager: rm,
		runner:      runner,
		lifecycle:   lc,
		sender:      sender,
		index:       &searchIndexer{repomanager: rm, ftas: ftas, logger: l},
		metrics:     m,
		now:         func() time.Time { return time.Now().UTC() },
		logger:      l,
	}
}

func (s *ReconciliationService) SetBusinessEventHandler(h BusinessEventHandler) {
	s.onBusiness = h
}

// Ingest stores an inbound delivery. A sender_ref already on file updates
// the stored message instead of creating another one; created tells which
// happened.
func (s *ReconciliationService) Ingest(ctx context.Context, in InboundMessage) (*models.NodeMessage, bool, error) {
	if in.SenderRef == "" {
		return nil, false, fmt.Errorf("%w: sender_ref is required", common.ErrorValidation)
	}
	if len(in.Body) == 0 {
		in.Body = json.RawMessage("{}")
	}
	if !json.Valid(in.Body) {
		return nil, false, fmt.Errorf("%w: body is not valid JSON", common.ErrorValidation)
	}

	var doc *models.Document
	if in.DocumentID != "" {
		d, err := s.repomanager.Documents(s.db).GetByID(ctx, in.DocumentID)
		switch {
		case err == nil:
			doc = d
		case errors.Is(err, common.ErrorNotFound):
			s.logger.Warn(ctx, "inbound message names an unknown document", "sender_ref", in.SenderRef, "document_id", in.DocumentID)
			in.DocumentID = ""
		default:
			return nil, false, err
		}
	}

	initial := models.MessageInbound
	if in.IsOutbound {
		initial = models.MessageSent
	}
	m := &models.NodeMessage{
		ID:         uuid.NewString(),
		DocumentID: in.DocumentID,
		Status:     initial,
		SenderRef:  in.SenderRef,
		Subject:    in.Subject,
		Body:       in.Body,
		IsOutbound: in.IsOutbound,
	}
	ev := models.MessageEvent{At: s.now(), Kind: models.EventReceived, Status: initial}

	stored, created, err := s.repomanager.NodeMessages(s.db).Upsert(ctx, m, ev)
	if err != nil {
		return nil, false, fmt.Errorf("error storing message: %w", err)
	}
	s.metrics.IncIngested(created)
	s.logger.Info(ctx, "inbound message ingested", "sender_ref", in.SenderRef, "message_id", stored.ID, "created", created)

	// the stored message keeps its first direction
	arrived := msgInboundArrived
	if stored.IsOutbound {
		arrived = msgOutboundSent
	}
	if stored.DocumentID != "" {
		if err := s.recordLink(ctx, stored, arrived); err != nil {
			return nil, false, err
		}
	}

	if doc != nil && !stored.IsOutbound && s.onBusiness != nil {
		if err := s.onBusiness(ctx, doc, stored); err != nil {
			s.logger.Error(ctx, "business event handler failed", "sender_ref", in.SenderRef, "error", err)
		}
	}
	return stored, created, nil
}

// recordLink appends the ledger entry of a message linked to its document.
// The entry is written once per message, whether the link came with the
// first delivery or a later one.
func (s *ReconciliationService) recordLink(ctx context.Context, m *models.NodeMessage, message string) error {
	return s.runner.RunInTx(ctx, m.DocumentID, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.Documents(tx).GetForUpdate(ctx, m.DocumentID); err != nil {
			return err
		}
		ledger := s.repomanager.History(tx)
		items, err := ledger.ListByDocument(ctx, m.DocumentID)
		if err != nil {
			return err
		}
		for _, it := range items {
			if it.Type == models.HistoryTypeNodeMessage && it.LinkedObjID == m.ID && it.Message == message {
				return nil
			}
		}
		return ledger.Append(ctx, &models.HistoryItem{
			DocumentID:  m.DocumentID,
			Type:        models.HistoryTypeNodeMessage,
			Message:     message,
			LinkedObjID: m.ID,
		})
	})
}

// Process moves the message with senderRef to next and applies the outcome
// to its document. Only outbound accepted and rejected change the document;
// each such change appends one ledger entry. Redelivering the current
// status is recorded in the message history and changes nothing else.
// Messages without a document fail with common.ErrNoOwner.
func (s *ReconciliationService) Process(ctx context.Context, senderRef string, next models.MessageStatus, note string) error {
	ctx, span := tracer.Start(ctx, "ReconciliationService.Process", trace.WithAttributes(
		attribute.String("sender_ref", senderRef),
		attribute.String("status", string(next)),
	))
	defer span.End()

	if _, err := models.ParseMessageStatus(string(next)); err != nil {
		return err
	}
	m, err := s.repomanager.NodeMessages(s.db).GetBySenderRef(ctx, senderRef)
	if err != nil {
		return err
	}
	if m.DocumentID == "" {
		s.metrics.IncTransition(string(next), "no-owner")
		return fmt.Errorf("%w: %s", common.ErrNoOwner, senderRef)
	}

	var result string
	err = s.runner.RunInTx(ctx, m.DocumentID, func(ctx context.Context, tx dbx.DBTX) error {
		start := time.Now()
		defer func() { s.metrics.ObserveReconcile(time.Since(start)) }()

		docs := s.repomanager.Documents(tx)
		msgs := s.repomanager.NodeMessages(tx)

		// Document first, then message: every writer locks in this order.
		d, err := docs.GetForUpdate(ctx, m.DocumentID)
		if err != nil {
			return err
		}
		cur, err := msgs.GetForUpdate(ctx, m.ID)
		if err != nil {
			return err
		}

		duplicate, err := cur.Status.CheckTransition(next, cur.IsOutbound)
		if err != nil {
			result = "invalid"
			return err
		}
		ev := models.MessageEvent{At: s.now(), Kind: models.EventStatus, Status: next, Note: note}
		if err := msgs.UpdateStatus(ctx, cur.ID, next, ev); err != nil {
			return err
		}
		if duplicate {
			result = "duplicate"
			return nil
		}

		item := s.lifecycle.MessageOutcome(d, cur, next)
		if item == nil {
			result = "recorded"
			return nil
		}
		s.index.fill(ctx, tx, d)
		if err := docs.Update(ctx, d); err != nil {
			return err
		}
		if err := s.repomanager.History(tx).Append(ctx, item); err != nil {
			return err
		}
		result = "applied"
		return nil
	})
	if result != "" {
		s.metrics.IncTransition(string(next), result)
	}
	if err != nil {
		span.RecordError(err)
		return err
	}

	s.logger.Info(ctx, "message status processed", "sender_ref", senderRef, "document_id", m.DocumentID, "status", next, "result", result)
	return nil
}

// Deliver creates the outbound message of an issued document, marks the
// document pending and hands the message to the sender. A send failure is
// not returned: it is processed as a rejection of the message.
func (s *ReconciliationService) Deliver(ctx context.Context, documentID string) (*models.NodeMessage, error) {
	ctx, span := tracer.Start(ctx, "ReconciliationService.Deliver", trace.WithAttributes(attribute.String("document_id", documentID)))
	defer span.End()

	var m *models.NodeMessage
	err := s.runner.RunInTx(ctx, documentID, func(ctx context.Context, tx dbx.DBTX) error {
		docs := s.repomanager.Documents(tx)
		d, err := docs.GetForUpdate(ctx, documentID)
		if err != nil {
			return err
		}
		if d.WorkflowStatus != models.WorkflowIssued {
			return fmt.Errorf("%w: only issued documents can be sent, got %s", common.ErrInvalidState, d.WorkflowStatus)
		}
		if err := s.lifecycle.MarkSent(d); err != nil {
			return err
		}

		body, err := s.outboundBody(ctx, tx, d)
		if err != nil {
			return err
		}
		m = &models.NodeMessage{
			ID:         uuid.NewString(),
			DocumentID: d.ID,
			Status:     models.MessageSent,
			SenderRef:  uuid.NewString(),
			Subject:    d.ID,
			Body:       body,
			IsOutbound: true,
			History:    []models.MessageEvent{{At: s.now(), Kind: models.EventSent, Status: models.MessageSent}},
		}
		if err := s.repomanager.NodeMessages(tx).Create(ctx, m); err != nil {
			return err
		}

		s.index.fill(ctx, tx, d)
		if err := docs.Update(ctx, d); err != nil {
			return err
		}
		return s.repomanager.History(tx).Append(ctx, &models.HistoryItem{
			DocumentID:  d.ID,
			Type:        models.HistoryTypeNodeMessage,
			Message:     msgOutboundSent,
			LinkedObjID: m.ID,
		})
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	sendErr := s.sender.Send(ctx, m)
	s.metrics.IncSend(sendErr)
	if sendErr != nil {
		s.logger.Error(ctx, "send failed", "document_id", documentID, "sender_ref", m.SenderRef, "error", sendErr)
		if err := s.Process(ctx, m.SenderRef, models.MessageRejected, "send failed: "+sendErr.Error()); err != nil {
			s.logger.Error(ctx, "recording send failure failed", "sender_ref", m.SenderRef, "error", err)
		}
	}
	return m, nil
}

func (s *ReconciliationService) outboundBody(ctx context.Context, tx dbx.DBTX, d *models.Document) (json.RawMessage, error) {
	body := OutboundBody{
		Sender:    s.lifecycle.HomeJurisdiction,
		Receiver:  d.ImportingCountry,
		Subject:   d.ID,
		Predicate: PredicateCOOIssued,
	}
	if d.OaID != "" {
		loc, err := s.repomanager.OaDetails(tx).GetByID(ctx, d.OaID)
		if err != nil {
			return nil, err
		}
		body.URI = loc.URI
		if h, err := s.repomanager.History(tx).LatestWrapped(ctx, d.ID); err == nil {
			body.Obj = h.RelatedFile
		}
	}
	return json.Marshal(body)
}

// Messages lists the messages of a document.
func (s *ReconciliationService) Messages(ctx context.Context, documentID string) ([]*models.NodeMessage, error) {
	return s.repomanager.NodeMessages(s.db).ListByDocument(ctx, documentID)
}
