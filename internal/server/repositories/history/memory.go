package history

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/tradeportal/internal/common"
	"github.com/dmitrijs2005/tradeportal/internal/server/models"
)

// MemoryRepository keeps entries in append order, which is also creation order.
type MemoryRepository struct {
	mu      sync.RWMutex
	nextID  int64
	lastAt  time.Time
	entries []models.HistoryItem
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Append(ctx context.Context, h *models.HistoryItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	h.ID = r.nextID
	now := time.Now().UTC()
	if now.Before(r.lastAt) {
		now = r.lastAt
	}
	r.lastAt = now
	h.CreatedAt = now
	r.entries = append(r.entries, *h)
	return nil
}

func (r *MemoryRepository) ListByDocument(ctx context.Context, documentID string) ([]*models.HistoryItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*models.HistoryItem
	for _, h := range r.entries {
		if h.DocumentID == documentID {
			h := h
			result = append(result, &h)
		}
	}
	return result, nil
}

func (r *MemoryRepository) LatestWrapped(ctx context.Context, documentID string) (*models.HistoryItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := len(r.entries) - 1; i >= 0; i-- {
		h := r.entries[i]
		if h.DocumentID == documentID && h.IsWrappedMarker() {
			return &h, nil
		}
	}
	return nil, common.ErrorNotFound
}

// DeleteByDocument drops the ledger of a deleted document.
func (r *MemoryRepository) DeleteByDocument(documentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.entries[:0]
	for _, h := range r.entries {
		if h.DocumentID != documentID {
			kept = append(kept, h)
		}
	}
	r.entries = kept
}
