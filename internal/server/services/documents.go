package services

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/tradeportal/internal/common"
	"github.com/dmitrijs2005/tradeportal/internal/dbx"
	"github.com/dmitrijs2005/tradeportal/internal/logging"
	"github.com/dmitrijs2005/tradeportal/internal/server/cache"
	"github.com/dmitrijs2005/tradeportal/internal/server/models"
	"github.com/dmitrijs2005/tradeportal/internal/server/repositories/documents"
	"github.com/dmitrijs2005/tradeportal/internal/server/repositories/repomanager"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("tradeportal/services")

const (
	msgCreated = "Document created"
	msgIssued  = "Document has been issued"
	msgDeleted = "Document deleted"
)

// DocumentService runs the document lifecycle: creation, import, issuing
// and saving. Status changes and their ledger entries are applied under the
// document's lock; minting, rendering and storage happen outside it.
type DocumentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	runner      dbx.Runner
	lifecycle   models.Lifecycle
	oa          *OAService
	files       *FileService
	renderer    Renderer
	index       *searchIndexer
	logger      logging.Logger
}

func NewDocumentService(db *sql.DB, rm repomanager.RepositoryManager, runner dbx.Runner, lc models.Lifecycle,
	oaSvc *OAService, files *FileService, ftas *cache.FTACache, r Renderer, l logging.Logger) *DocumentService {
	if r == nil {
		r = CertificateRenderer{}
	}
	l = l.With("module", "documents")
	return &DocumentService{
		db:          db,
		repomanager: rm,
		runner:      runner,
		lifecycle:   lc,
		oa:          oaSvc,
		files:       files,
		renderer:    r,
		index:       &searchIndexer{repomanager: rm, ftas: ftas, logger: l},
		logger:      l,
	}
}

// Create initializes the statuses of d and persists it. Incoming documents
// get a placeholder locator; documents submitted with certificate data are
// issued straight away behind a fresh locator and sealed.
func (s *DocumentService) Create(ctx context.Context, d *models.Document) (*models.Document, error) {
	ctx, span := tracer.Start(ctx, "DocumentService.Create")
	defer span.End()

	if err := s.prepare(d); err != nil {
		return nil, err
	}

	var (
		wrappedKey string
		err        error
	)
	switch d.WorkflowStatus {
	case models.WorkflowIncoming:
		loc, err := s.oa.Placeholder(ctx, d.CreatedByOrg)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		d.OaID = loc.ID
	case models.WorkflowIssued:
		if wrappedKey, err = s.mintAndSeal(ctx, d); err != nil {
			span.RecordError(err)
			return nil, err
		}
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}

	err = s.runner.RunInTx(ctx, d.ID, func(ctx context.Context, tx dbx.DBTX) error {
		s.index.fill(ctx, tx, d)
		if err := s.repomanager.Documents(tx).Create(ctx, d); err != nil {
			return fmt.Errorf("error creating document: %w", err)
		}
		hist := s.repomanager.History(tx)
		if err := hist.Append(ctx, &models.HistoryItem{DocumentID: d.ID, Type: models.HistoryTypeStatus, Message: msgCreated}); err != nil {
			return err
		}
		if wrappedKey != "" {
			return hist.Append(ctx, wrappedEntry(d, wrappedKey))
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.String("document_id", d.ID), attribute.String("workflow_status", string(d.WorkflowStatus)))
	s.logger.Info(ctx, "document created", "document_id", d.ID, "workflow_status", d.WorkflowStatus, "status", d.Status)
	return d, nil
}

// Import creates a document received from another jurisdiction.
func (s *DocumentService) Import(ctx context.Context, d *models.Document) (*models.Document, error) {
	if d.SendingJurisdiction == "" {
		return nil, fmt.Errorf("%w: sending jurisdiction is required", common.ErrorValidation)
	}
	c, err := models.NormalizeCountry(d.SendingJurisdiction)
	if err != nil {
		return nil, err
	}
	if c == s.lifecycle.HomeJurisdiction {
		return nil, fmt.Errorf("%w: imported documents must come from another jurisdiction", common.ErrorValidation)
	}
	d.SendingJurisdiction = c
	return s.Create(ctx, d)
}

// prepare assigns an id and starting statuses and validates everything but
// the locator, so bad input never mints one.
func (s *DocumentService) prepare(d *models.Document) error {
	if d.SendingJurisdiction != "" {
		c, err := models.NormalizeCountry(d.SendingJurisdiction)
		if err != nil {
			return err
		}
		d.SendingJurisdiction = c
	}
	d.ID = uuid.NewString()
	d.OaID = ""
	s.lifecycle.Initialize(d)

	trial := *d
	trial.WorkflowStatus = models.WorkflowDraft
	if err := trial.Validate(); err != nil {
		return err
	}
	d.ImportingCountry = trial.ImportingCountry
	return nil
}

func (s *DocumentService) mintAndSeal(ctx context.Context, d *models.Document) (string, error) {
	loc, err := s.oa.Mint(ctx, d.CreatedByOrg)
	if err != nil {
		return "", err
	}
	rendered, ok, err := s.RenderedDocument(ctx, d)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: document %s has nothing to render", common.ErrInvalidState, d.ID)
	}
	key, err := s.oa.Seal(ctx, loc, rendered)
	if err != nil {
		return "", err
	}
	d.OaID = loc.ID
	return key, nil
}

func wrappedEntry(d *models.Document, key string) *models.HistoryItem {
	return &models.HistoryItem{
		DocumentID:  d.ID,
		Type:        models.HistoryTypeOA,
		Message:     models.WrappedMessagePrefix + " and saved",
		LinkedObjID: d.OaID,
		RelatedFile: key,
	}
}

// Issue mints a locator for a draft, seals its rendered form and moves it
// to issued.
func (s *DocumentService) Issue(ctx context.Context, id, actor string) (*models.Document, error) {
	ctx, span := tracer.Start(ctx, "DocumentService.Issue", trace.WithAttributes(attribute.String("document_id", id)))
	defer span.End()

	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	// Fail before minting; the check is repeated under the lock.
	trial := *d
	if err := s.lifecycle.Issue(&trial, "-"); err != nil {
		return nil, err
	}

	key, err := s.mintAndSeal(ctx, d)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	locatorID := d.OaID

	err = s.runner.RunInTx(ctx, id, func(ctx context.Context, tx dbx.DBTX) error {
		docs := s.repomanager.Documents(tx)
		cur, err := docs.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.lifecycle.Issue(cur, locatorID); err != nil {
			return err
		}
		s.index.fill(ctx, tx, cur)
		if err := docs.Update(ctx, cur); err != nil {
			return err
		}
		hist := s.repomanager.History(tx)
		if err := hist.Append(ctx, wrappedEntry(cur, key)); err != nil {
			return err
		}
		if err := hist.Append(ctx, &models.HistoryItem{DocumentID: id, Type: models.HistoryTypeStatus, Message: msgIssued, ObjectBody: actor}); err != nil {
			return err
		}
		d = cur
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.logger.Info(ctx, "document issued", "document_id", id, "oa_id", locatorID, "actor", actor)
	return d, nil
}

// Save stores the descriptive fields of d. Statuses, ownership and the
// locator are kept from the stored record. Only drafts and documents that
// failed to issue can be edited.
func (s *DocumentService) Save(ctx context.Context, d *models.Document) (*models.Document, error) {
	var saved *models.Document
	err := s.runner.RunInTx(ctx, d.ID, func(ctx context.Context, tx dbx.DBTX) error {
		docs := s.repomanager.Documents(tx)
		cur, err := docs.GetForUpdate(ctx, d.ID)
		if err != nil {
			return err
		}
		if cur.WorkflowStatus != models.WorkflowDraft && cur.WorkflowStatus != models.WorkflowNotIssued {
			return fmt.Errorf("%w: a %s document cannot be edited", common.ErrInvalidState, cur.WorkflowStatus)
		}

		cur.Type = d.Type
		cur.DocumentNumber = d.DocumentNumber
		cur.FTAID = d.FTAID
		cur.ImportingCountry = d.ImportingCountry
		cur.IssuerID = d.IssuerID
		cur.ExporterID = d.ExporterID
		cur.ImporterName = d.ImporterName
		cur.ConsignmentRef = d.ConsignmentRef
		cur.ExtraData = d.ExtraData
		cur.RawCertificateData = d.RawCertificateData
		if err := cur.Validate(); err != nil {
			return err
		}

		s.index.fill(ctx, tx, cur)
		if err := docs.Update(ctx, cur); err != nil {
			return err
		}
		saved = cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// SetCanonicalObject names the attachment holding the canonical object of
// an incoming document. The attachment must already be recorded.
func (s *DocumentService) SetCanonicalObject(ctx context.Context, id, filename string) (*models.Document, error) {
	if filename == "" {
		return nil, fmt.Errorf("%w: filename is required", common.ErrorValidation)
	}

	var saved *models.Document
	err := s.runner.RunInTx(ctx, id, func(ctx context.Context, tx dbx.DBTX) error {
		docs := s.repomanager.Documents(tx)
		d, err := docs.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if d.WorkflowStatus != models.WorkflowIncoming {
			return fmt.Errorf("%w: only incoming documents carry a canonical object, got %s", common.ErrInvalidState, d.WorkflowStatus)
		}
		if _, err := s.repomanager.Files(tx).FindByFilename(ctx, id, filename); err != nil {
			return fmt.Errorf("error loading attachment %s: %w", filename, err)
		}

		d.IntergovDetails.Obj = filename
		if err := docs.Update(ctx, d); err != nil {
			return err
		}
		saved = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "canonical object set", "document_id", id, "filename", filename)
	return saved, nil
}

func (s *DocumentService) Get(ctx context.Context, id string) (*models.Document, error) {
	return s.repomanager.Documents(s.db).GetByID(ctx, id)
}

func (s *DocumentService) List(ctx context.Context, f documents.Filter) ([]*models.Document, error) {
	return s.repomanager.Documents(s.db).List(ctx, f)
}

// Delete removes the document with its files, ledger and messages. Parties,
// FTAs and the locator stay.
func (s *DocumentService) Delete(ctx context.Context, id string) error {
	err := s.runner.RunInTx(ctx, id, func(ctx context.Context, tx dbx.DBTX) error {
		docs := s.repomanager.Documents(tx)
		if _, err := docs.GetForUpdate(ctx, id); err != nil {
			return err
		}
		return docs.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.logger.Info(ctx, msgDeleted, "document_id", id)
	return nil
}

// PDFAttachment returns the oldest attachment named *.pdf, or nil.
func (s *DocumentService) PDFAttachment(ctx context.Context, d *models.Document) (*models.DocumentFile, error) {
	fs, err := s.repomanager.Files(s.db).ListByDocument(ctx, d.ID)
	if err != nil {
		return nil, err
	}
	for _, f := range fs {
		if strings.HasSuffix(f.Filename, ".pdf") {
			return f, nil
		}
	}
	return nil, nil
}

// RenderedDocument returns the EDI3 form of d. Documents submitted with
// certificate data return it with their PDF embedded; inbound documents
// return what the peer delivered; incoming documents not downloaded yet
// return ok=false. Everything else goes through the Renderer.
func (s *DocumentService) RenderedDocument(ctx context.Context, d *models.Document) (any, bool, error) {
	if d.IsAPICreated() {
		data := map[string]any{"certificateOfOrigin": d.RawCertificateData["certificateOfOrigin"]}
		s.embedPDF(ctx, d, data)
		return data, true, nil
	}

	if d.ImportingCountry == s.lifecycle.HomeJurisdiction {
		if len(d.IntergovDetails.OADoc) > 0 {
			return d.IntergovDetails.OADoc, true, nil
		}
		if d.IntergovDetails.Obj != "" {
			f, err := s.repomanager.Files(s.db).FindByFilename(ctx, d.ID, d.IntergovDetails.Obj)
			switch {
			case err == nil:
				b, err := s.files.Read(ctx, f)
				if err != nil {
					return nil, false, err
				}
				if json.Valid(b) {
					return json.RawMessage(b), true, nil
				}
				return string(b), true, nil
			case !errors.Is(err, common.ErrorNotFound):
				return nil, false, err
			}
		}
	}

	if d.IsIncoming(s.lifecycle.HomeJurisdiction) {
		return nil, false, nil
	}

	if _, err := models.ParseDocumentType(string(d.Type)); err != nil {
		return nil, false, err
	}
	out, err := s.renderer.Render(ctx, s.renderInput(ctx, d))
	if err != nil {
		return nil, false, fmt.Errorf("error rendering document: %w", err)
	}
	return out, true, nil
}

// embedPDF adds the PDF attachment to the certificate. Failures are logged
// and the attachment is left out.
func (s *DocumentService) embedPDF(ctx context.Context, d *models.Document, data map[string]any) {
	coo, ok := data["certificateOfOrigin"].(map[string]any)
	if !ok {
		return
	}
	f, err := s.PDFAttachment(ctx, d)
	if err != nil || f == nil {
		if err != nil {
			s.logger.Warn(ctx, "pdf attachment lookup failed", "document_id", d.ID, "error", err)
		}
		return
	}
	b, err := s.files.Read(ctx, f)
	if err != nil {
		s.logger.Warn(ctx, "pdf attachment unreadable", "document_id", d.ID, "file_id", f.ID, "error", err)
		return
	}

	embedded := make(map[string]any, len(coo)+1)
	for k, v := range coo {
		embedded[k] = v
	}
	embedded["attachedFile"] = map[string]any{
		"file":         base64.StdEncoding.EncodeToString(b),
		"encodingCode": "base64",
		"mimeCode":     f.MimeType(),
	}
	data["certificateOfOrigin"] = embedded
}

func (s *DocumentService) renderInput(ctx context.Context, d *models.Document) RenderInput {
	in := RenderInput{Document: d}
	parties := s.repomanager.Parties(s.db)
	if d.IssuerID != "" {
		if p, err := parties.GetByID(ctx, d.IssuerID); err == nil {
			in.Issuer = p
		}
	}
	if d.ExporterID != "" {
		if p, err := parties.GetByID(ctx, d.ExporterID); err == nil {
			in.Exporter = p
		}
	}
	if d.FTAID != 0 {
		if f, err := s.repomanager.FTAs(s.db).GetByID(ctx, d.FTAID); err == nil {
			in.FTA = f
		}
	}
	return in
}

// QRImage renders the QR code of the document's locator.
func (s *DocumentService) QRImage(ctx context.Context, id string) ([]byte, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.OaID == "" {
		return nil, common.ErrorNotFound
	}
	return s.oa.QRImage(ctx, d.OaID)
}
