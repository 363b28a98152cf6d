package parties

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/tradeportal/internal/common"
	"github.com/dmitrijs2005/tradeportal/internal/server/models"
)

// MemoryRepository keeps parties in a map. Used by tests and local runs.
type MemoryRepository struct {
	mu      sync.RWMutex
	parties map[string]models.Party
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{parties: make(map[string]models.Party)}
}

func (r *MemoryRepository) Create(ctx context.Context, p *models.Party) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.parties[p.ID]; ok {
		return common.ErrorAlreadyExists
	}
	p.CreatedAt = time.Now().UTC()
	r.parties[p.ID] = *p
	return nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*models.Party, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.parties[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &p, nil
}

func (r *MemoryRepository) FindByBusinessID(ctx context.Context, businessID string) ([]*models.Party, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*models.Party
	for _, p := range r.parties {
		if p.BusinessID == businessID || p.ClearBusinessID == businessID {
			p := p
			result = append(result, &p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}
