package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/tradeportal/internal/common"
	"github.com/dmitrijs2005/tradeportal/internal/filex"
	"github.com/dmitrijs2005/tradeportal/internal/logging"
	"github.com/dmitrijs2005/tradeportal/internal/server/models"
	"github.com/dmitrijs2005/tradeportal/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/tradeportal/internal/server/storage"
	"github.com/google/uuid"
)

const (
	docFilesRoot = "docfiles"
	nonceLen     = 7
)

// StoragePath builds "docfiles/{owner}/{nonce}.{ext}". Only the extension of
// the declared filename is used; its base name never reaches the path.
func StoragePath(owner, declared string) (string, error) {
	nonce, err := common.RandomLowercase(nonceLen)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s/%s.%s", docFilesRoot, owner, nonce, filex.StorageExt(declared)), nil
}

// FileService stores document attachments in the blob store and records
// them against their document.
type FileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	blobs       storage.BlobStore
	logger      logging.Logger
}

func NewFileService(db *sql.DB, rm repomanager.RepositoryManager, blobs storage.BlobStore, l logging.Logger) *FileService {
	return &FileService{
		db:          db,
		repomanager: rm,
		blobs:       blobs,
		logger:      l.With("module", "files"),
	}
}

// Store writes data and returns the attachment. When documentID is empty the
// blob is written under a fresh reference token and the attachment is not
// recorded; Attach records it once the document exists.
func (s *FileService) Store(ctx context.Context, documentID string, data []byte, declared, uploader string) (*models.DocumentFile, error) {
	owner := documentID
	if owner == "" {
		owner = "ref" + uuid.NewString()
	} else if _, err := s.repomanager.Documents(s.db).GetByID(ctx, documentID); err != nil {
		return nil, fmt.Errorf("error loading document: %w", err)
	}

	key, err := StoragePath(owner, declared)
	if err != nil {
		return nil, fmt.Errorf("error generating storage path: %w", err)
	}

	f := &models.DocumentFile{
		CreatedBy: uploader,
		File:      key,
		Filename:  declared,
		Size:      int64(len(data)),
		Metadata:  map[string]any{},
	}
	if mt := f.MimeType(); mt != "" {
		f.Metadata["mimetype"] = mt
	}
	if strings.HasSuffix(strings.ToLower(declared), ".pdf") {
		pending := false
		f.IsWatermarked = &pending
	}

	if err := s.blobs.Put(ctx, key, data, f.MimeType()); err != nil {
		return nil, fmt.Errorf("error storing file: %w", err)
	}

	if documentID == "" {
		return f, nil
	}
	if err := s.Attach(ctx, documentID, f); err != nil {
		return nil, err
	}
	return f, nil
}

// Attach records an already stored blob against documentID.
func (s *FileService) Attach(ctx context.Context, documentID string, f *models.DocumentFile) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	f.DocumentID = documentID
	if err := s.repomanager.Files(s.db).Create(ctx, f); err != nil {
		return fmt.Errorf("error creating file: %w", err)
	}
	s.logger.Info(ctx, "file attached", "document_id", documentID, "file_id", f.ID, "size", f.Size)
	return nil
}

func (s *FileService) List(ctx context.Context, documentID string) ([]*models.DocumentFile, error) {
	return s.repomanager.Files(s.db).ListByDocument(ctx, documentID)
}

// Read returns the stored bytes of f.
func (s *FileService) Read(ctx context.Context, f *models.DocumentFile) ([]byte, error) {
	return s.blobs.Get(ctx, f.File)
}

// SetWatermarked is called by the watermarking collaborator.
func (s *FileService) SetWatermarked(ctx context.Context, id string, done bool) error {
	return s.repomanager.Files(s.db).SetWatermarked(ctx, id, &done)
}
