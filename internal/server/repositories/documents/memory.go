package documents

import (
	"bytes"
	"context"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/tradeportal/internal/common"
	"github.com/dmitrijs2005/tradeportal/internal/server/models"
)

// MemoryRepository keeps documents in a map. GetForUpdate does not lock;
// callers serialize through dbx.LockingRunner.
type MemoryRepository struct {
	mu       sync.RWMutex
	docs     map[string]models.Document
	onDelete []func(id string)
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{docs: make(map[string]models.Document)}
}

// OnDelete registers a hook run after a document is removed. Owned rows in
// other in-memory repositories are cascaded this way.
func (r *MemoryRepository) OnDelete(fn func(id string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onDelete = append(r.onDelete, fn)
}

func clone(d models.Document) models.Document {
	d.ExtraData = maps.Clone(d.ExtraData)
	d.RawCertificateData = maps.Clone(d.RawCertificateData)
	d.IntergovDetails.Extra = maps.Clone(d.IntergovDetails.Extra)
	d.IntergovDetails.OADoc = bytes.Clone(d.IntergovDetails.OADoc)
	return d
}

func (r *MemoryRepository) Create(ctx context.Context, d *models.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.docs[d.ID]; ok {
		return common.ErrorAlreadyExists
	}
	d.CreatedAt = time.Now().UTC()
	r.docs[d.ID] = clone(*d)
	return nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.docs[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	d = clone(d)
	return &d, nil
}

func (r *MemoryRepository) GetForUpdate(ctx context.Context, id string) (*models.Document, error) {
	return r.GetByID(ctx, id)
}

func (r *MemoryRepository) GetByOaID(ctx context.Context, oaID string) (*models.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var found *models.Document
	for _, d := range r.docs {
		if d.OaID != oaID {
			continue
		}
		if found == nil || d.CreatedAt.After(found.CreatedAt) {
			d = clone(d)
			found = &d
		}
	}
	if found == nil {
		return nil, common.ErrorNotFound
	}
	return found, nil
}

func (r *MemoryRepository) Update(ctx context.Context, d *models.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.docs[d.ID]
	if !ok {
		return common.ErrorNotFound
	}
	d.CreatedAt = old.CreatedAt
	d.CreatedByUser = old.CreatedByUser
	d.CreatedByOrg = old.CreatedByOrg
	r.docs[d.ID] = clone(*d)
	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	if _, ok := r.docs[id]; !ok {
		r.mu.Unlock()
		return common.ErrorNotFound
	}
	delete(r.docs, id)
	hooks := append([]func(string){}, r.onDelete...)
	r.mu.Unlock()

	for _, fn := range hooks {
		fn(id)
	}
	return nil
}

func (r *MemoryRepository) List(ctx context.Context, f Filter) ([]*models.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	search := strings.ToLower(f.Search)
	var result []*models.Document
	for _, d := range r.docs {
		if search != "" && !strings.Contains(strings.ToLower(d.SearchField), search) {
			continue
		}
		if f.CreatedByOrg != "" && d.CreatedByOrg != f.CreatedByOrg {
			continue
		}
		if f.WorkflowStatus != "" && d.WorkflowStatus != f.WorkflowStatus {
			continue
		}
		d = clone(d)
		result = append(result, &d)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })

	if f.Offset >= len(result) {
		return nil, nil
	}
	result = result[f.Offset:]
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
