package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/tradeportal/internal/common"
	"github.com/dmitrijs2005/tradeportal/internal/logging"
	"github.com/dmitrijs2005/tradeportal/internal/oa"
	"github.com/dmitrijs2005/tradeportal/internal/server/cache"
	"github.com/dmitrijs2005/tradeportal/internal/server/metrics"
	"github.com/dmitrijs2005/tradeportal/internal/server/models"
	"github.com/dmitrijs2005/tradeportal/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/tradeportal/internal/server/storage"
)

// WrappedSource tells where LookupWrappedFile found the wrapped file.
type WrappedSource int

const (
	SourceNone WrappedSource = iota
	SourceLocator
	SourceHistory
	SourceAttachment
)

func (s WrappedSource) String() string {
	switch s {
	case SourceLocator:
		return "locator"
	case SourceHistory:
		return "history"
	case SourceAttachment:
		return "attachment"
	default:
		return "none"
	}
}

// OAService owns OA locators: minting, sealing rendered documents behind
// them and serving the encrypted result to verifiers.
type OAService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	envelope    *oa.Envelope
	lifecycle   models.Lifecycle
	blobs       storage.BlobStore
	served      cache.WrappedDocCache
	metrics     *metrics.Metrics
	logger      logging.Logger
}

func NewOAService(db *sql.DB, rm repomanager.RepositoryManager, env *oa.Envelope, lc models.Lifecycle, blobs storage.BlobStore,
	served cache.WrappedDocCache, m *metrics.Metrics, l logging.Logger) *OAService {
	if served == nil {
		served = cache.NopWrappedCache{}
	}
	return &OAService{
		db:          db,
		repomanager: rm,
		envelope:    env,
		lifecycle:   lc,
		blobs:       blobs,
		served:      served,
		metrics:     m,
		logger:      l.With("module", "oa"),
	}
}

// Mint creates and persists a fresh locator.
func (s *OAService) Mint(ctx context.Context, createdFor string) (*models.OaLocator, error) {
	minted, err := s.envelope.Mint()
	if err != nil {
		return nil, err
	}
	loc := &models.OaLocator{
		ID:         minted.ID.String(),
		CreatedFor: createdFor,
		URI:        minted.URI,
		Key:        minted.Key,
	}
	if err := s.repomanager.OaDetails(s.db).Create(ctx, loc); err != nil {
		return nil, fmt.Errorf("error creating locator: %w", err)
	}
	return loc, nil
}

// Placeholder persists a locator with blank URI and key for an inbound
// document. Learn fills it in later.
func (s *OAService) Placeholder(ctx context.Context, createdFor string) (*models.OaLocator, error) {
	minted, err := s.envelope.Mint()
	if err != nil {
		return nil, err
	}
	loc := &models.OaLocator{ID: minted.ID.String(), CreatedFor: createdFor}
	if err := s.repomanager.OaDetails(s.db).Create(ctx, loc); err != nil {
		return nil, fmt.Errorf("error creating locator: %w", err)
	}
	return loc, nil
}

// Learn stores the URI and key of a placeholder once the peer supplies
// them. Learning the same pair again is a no-op; a different pair is
// rejected.
func (s *OAService) Learn(ctx context.Context, id string, pair oa.Locator) error {
	if pair.URI == "" || pair.Key == "" {
		return fmt.Errorf("%w: locator needs both uri and key", common.ErrorValidation)
	}
	repo := s.repomanager.OaDetails(s.db)
	loc, err := repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !loc.IsPlaceholder() {
		if loc.URI == pair.URI && loc.Key == pair.Key {
			return nil
		}
		return fmt.Errorf("%w: locator %s is already known", common.ErrInvalidState, id)
	}
	loc.URI, loc.Key = pair.URI, pair.Key
	return repo.Update(ctx, loc)
}

func (s *OAService) Get(ctx context.Context, id string) (*models.OaLocator, error) {
	return s.repomanager.OaDetails(s.db).GetByID(ctx, id)
}

// Seal wraps rendered, stores the wrapped JSON and persists the encrypted
// copy on the locator. It returns the storage key of the wrapped file.
func (s *OAService) Seal(ctx context.Context, loc *models.OaLocator, rendered any) (string, error) {
	if loc.IsPlaceholder() {
		return "", fmt.Errorf("%w: cannot seal behind a placeholder locator", common.ErrInvalidState)
	}
	w, err := oa.Wrap(rendered)
	if err != nil {
		return "", fmt.Errorf("error wrapping document: %w", err)
	}
	enc, err := oa.Encrypt(w, loc.Key)
	if err != nil {
		return "", fmt.Errorf("error encrypting document: %w", err)
	}
	data, err := json.Marshal(w)
	if err != nil {
		return "", err
	}

	key := wrappedFileKey(loc.ID)
	if err := s.blobs.Put(ctx, key, data, "application/json"); err != nil {
		return "", fmt.Errorf("error storing wrapped document: %w", err)
	}

	loc.IVBase64 = enc.IV
	loc.TagBase64 = enc.Tag
	loc.Ciphertext = enc.CipherText
	if err := s.repomanager.OaDetails(s.db).Update(ctx, loc); err != nil {
		return "", fmt.Errorf("error updating locator: %w", err)
	}
	if err := s.served.Invalidate(ctx, loc.ID); err != nil {
		s.logger.Warn(ctx, "cache invalidate failed", "oa_id", loc.ID, "error", err)
	}

	s.logger.Info(ctx, "document sealed", "oa_id", loc.ID, "target_hash", w.Signature.TargetHash)
	return key, nil
}

func wrappedFileKey(locatorID string) string {
	return "oa/" + locatorID + ".json"
}

// LookupWrappedFile finds the storage key of the wrapped file behind loc
// without changing anything. d is the document currently using the
// locator and may be nil.
func (s *OAService) LookupWrappedFile(ctx context.Context, loc *models.OaLocator, d *models.Document) (string, WrappedSource, error) {
	if loc.OAFile != "" {
		return loc.OAFile, SourceLocator, nil
	}
	if d == nil {
		return "", SourceNone, nil
	}

	if !d.IsIncoming(s.lifecycle.HomeJurisdiction) {
		h, err := s.repomanager.History(s.db).LatestWrapped(ctx, d.ID)
		if errors.Is(err, common.ErrorNotFound) {
			return "", SourceNone, nil
		}
		if err != nil {
			return "", SourceNone, err
		}
		return h.RelatedFile, SourceHistory, nil
	}

	if d.IntergovDetails.Obj == "" {
		return "", SourceNone, nil
	}
	f, err := s.repomanager.Files(s.db).FindByFilename(ctx, d.ID, d.IntergovDetails.Obj)
	if errors.Is(err, common.ErrorNotFound) {
		return "", SourceNone, nil
	}
	if err != nil {
		return "", SourceNone, err
	}
	return f.File, SourceAttachment, nil
}

// PopulateWrappedFile records key on the locator unless one is already set.
func (s *OAService) PopulateWrappedFile(ctx context.Context, locatorID, key string) error {
	changed, err := s.repomanager.OaDetails(s.db).SetOAFileIfEmpty(ctx, locatorID, key)
	if err != nil {
		return err
	}
	if changed {
		s.logger.Debug(ctx, "wrapped file cached on locator", "oa_id", locatorID, "file", key)
	}
	return nil
}

// ResolveWrappedFile returns the wrapped file of d's locator. ok is false
// when there is none. A key found in the ledger is cached on the locator;
// a canonical inbound attachment is not.
func (s *OAService) ResolveWrappedFile(ctx context.Context, d *models.Document) ([]byte, bool, error) {
	if d.OaID == "" {
		return nil, false, nil
	}
	loc, err := s.repomanager.OaDetails(s.db).GetByID(ctx, d.OaID)
	if err != nil {
		return nil, false, err
	}
	return s.resolve(ctx, loc, d)
}

func (s *OAService) resolve(ctx context.Context, loc *models.OaLocator, d *models.Document) ([]byte, bool, error) {
	key, src, err := s.LookupWrappedFile(ctx, loc, d)
	if err != nil {
		return nil, false, err
	}
	if src == SourceNone {
		return nil, false, nil
	}
	if src == SourceHistory {
		if err := s.PopulateWrappedFile(ctx, loc.ID, key); err != nil {
			return nil, false, err
		}
	}

	data, err := s.blobs.Get(ctx, key)
	if errors.Is(err, common.ErrorNotFound) {
		s.logger.Warn(ctx, "wrapped file missing from storage", "oa_id", loc.ID, "file", key, "source", src.String())
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Serve returns the encrypted document a verifier downloads from the
// locator URI. Placeholders and locators with nothing sealed behind them
// are not found.
func (s *OAService) Serve(ctx context.Context, locatorID string) ([]byte, error) {
	if b, ok, err := s.served.Get(ctx, locatorID); err != nil {
		s.logger.Warn(ctx, "cache read failed", "oa_id", locatorID, "error", err)
	} else if ok {
		s.metrics.IncWrappedServed(true)
		return b, nil
	}

	loc, err := s.repomanager.OaDetails(s.db).GetByID(ctx, locatorID)
	if err != nil {
		return nil, err
	}
	if loc.IsPlaceholder() {
		return nil, common.ErrorNotFound
	}

	enc, err := s.encrypted(ctx, loc)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(enc)
	if err != nil {
		return nil, err
	}
	if err := s.served.Set(ctx, locatorID, b); err != nil {
		s.logger.Warn(ctx, "cache write failed", "oa_id", locatorID, "error", err)
	}
	s.metrics.IncWrappedServed(false)
	return b, nil
}

func (s *OAService) encrypted(ctx context.Context, loc *models.OaLocator) (*oa.EncryptedDocument, error) {
	if loc.Ciphertext != "" {
		return &oa.EncryptedDocument{
			CipherText: loc.Ciphertext,
			IV:         loc.IVBase64,
			Tag:        loc.TagBase64,
			Type:       oa.EncryptionType,
		}, nil
	}

	d, err := s.repomanager.Documents(s.db).GetByOaID(ctx, loc.ID)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}
	data, ok, err := s.resolve(ctx, loc, d)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.ErrorNotFound
	}
	var w oa.WrappedDocument
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: stored wrapped document is malformed", common.ErrorValidation)
	}
	return oa.Encrypt(&w, loc.Key)
}

// QRImage renders the verifier URL of a locator as a PNG.
func (s *OAService) QRImage(ctx context.Context, locatorID string) ([]byte, error) {
	loc, err := s.repomanager.OaDetails(s.db).GetByID(ctx, locatorID)
	if err != nil {
		return nil, err
	}
	if loc.IsPlaceholder() {
		return nil, common.ErrorNotFound
	}
	return s.envelope.QRImage(oa.Locator{URI: loc.URI, Key: loc.Key})
}

// VerifierURL is the string embedded in the QR code.
func (s *OAService) VerifierURL(ctx context.Context, locatorID string) (string, error) {
	loc, err := s.repomanager.OaDetails(s.db).GetByID(ctx, locatorID)
	if err != nil {
		return "", err
	}
	if loc.IsPlaceholder() {
		return "", common.ErrorNotFound
	}
	return s.envelope.URLRepresentation(oa.Locator{URI: loc.URI, Key: loc.Key})
}
