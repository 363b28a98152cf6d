package oadetails

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/tradeportal/internal/common"
	"github.com/dmitrijs2005/tradeportal/internal/server/models"
)

type MemoryRepository struct {
	mu       sync.RWMutex
	locators map[string]models.OaLocator
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{locators: make(map[string]models.OaLocator)}
}

func (r *MemoryRepository) Create(ctx context.Context, l *models.OaLocator) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.locators[l.ID]; ok {
		return common.ErrorAlreadyExists
	}
	l.CreatedAt = time.Now().UTC()
	r.locators[l.ID] = *l
	return nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*models.OaLocator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.locators[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &l, nil
}

func (r *MemoryRepository) Update(ctx context.Context, l *models.OaLocator) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.locators[l.ID]
	if !ok {
		return common.ErrorNotFound
	}
	l.CreatedAt = old.CreatedAt
	r.locators[l.ID] = *l
	return nil
}

func (r *MemoryRepository) SetOAFileIfEmpty(ctx context.Context, id, file string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.locators[id]
	if !ok || l.OAFile != "" {
		return false, nil
	}
	l.OAFile = file
	r.locators[id] = l
	return true, nil
}
