package files

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/tradeportal/internal/common"
	"github.com/dmitrijs2005/tradeportal/internal/server/models"
)

type MemoryRepository struct {
	mu    sync.RWMutex
	seq   int64
	files map[string]storedFile
}

type storedFile struct {
	models.DocumentFile
	seq int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{files: make(map[string]storedFile)}
}

func copyFile(f models.DocumentFile) *models.DocumentFile {
	f.Metadata = maps.Clone(f.Metadata)
	if f.IsWatermarked != nil {
		v := *f.IsWatermarked
		f.IsWatermarked = &v
	}
	return &f
}

func (r *MemoryRepository) Create(ctx context.Context, f *models.DocumentFile) error {
	if f.OriginalFile == "" {
		f.OriginalFile = f.File
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.files[f.ID]; ok {
		return common.ErrorAlreadyExists
	}
	r.seq++
	f.CreatedAt = time.Now().UTC()
	r.files[f.ID] = storedFile{DocumentFile: *copyFile(*f), seq: r.seq}
	return nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*models.DocumentFile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.files[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return copyFile(f.DocumentFile), nil
}

func (r *MemoryRepository) byDocument(documentID string) []storedFile {
	var result []storedFile
	for _, f := range r.files {
		if f.DocumentID == documentID {
			result = append(result, f)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].seq < result[j].seq })
	return result
}

func (r *MemoryRepository) ListByDocument(ctx context.Context, documentID string) ([]*models.DocumentFile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*models.DocumentFile
	for _, f := range r.byDocument(documentID) {
		result = append(result, copyFile(f.DocumentFile))
	}
	return result, nil
}

func (r *MemoryRepository) FindByFilename(ctx context.Context, documentID, filename string) (*models.DocumentFile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.byDocument(documentID)
	for i := len(list) - 1; i >= 0; i-- {
		if list[i].Filename == filename {
			return copyFile(list[i].DocumentFile), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *MemoryRepository) SetWatermarked(ctx context.Context, id string, state *bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.files[id]
	if !ok {
		return common.ErrorNotFound
	}
	f.IsWatermarked = nil
	if state != nil {
		v := *state
		f.IsWatermarked = &v
	}
	r.files[id] = f
	return nil
}

// DeleteByDocument drops every attachment of a document.
func (r *MemoryRepository) DeleteByDocument(documentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, f := range r.files {
		if f.DocumentID == documentID {
			delete(r.files, id)
		}
	}
}
