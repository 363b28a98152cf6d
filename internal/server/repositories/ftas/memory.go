package ftas

import (
	"context"
	"sort"
	"sync"

	"github.com/dmitrijs2005/tradeportal/internal/common"
	"github.com/dmitrijs2005/tradeportal/internal/server/models"
)

type MemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	ftas   map[int64]models.FTA
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{ftas: make(map[int64]models.FTA)}
}

func (r *MemoryRepository) Create(ctx context.Context, f *models.FTA) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	f.ID = r.nextID
	stored := *f
	stored.Countries = append([]string(nil), f.Countries...)
	r.ftas[f.ID] = stored
	return nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id int64) (*models.FTA, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.ftas[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	f.Countries = append([]string(nil), f.Countries...)
	return &f, nil
}

func (r *MemoryRepository) List(ctx context.Context) ([]*models.FTA, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*models.FTA, 0, len(r.ftas))
	for _, f := range r.ftas {
		f := f
		f.Countries = append([]string(nil), f.Countries...)
		result = append(result, &f)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}
