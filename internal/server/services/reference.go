package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/tradeportal/internal/common"
	"github.com/dmitrijs2005/tradeportal/internal/server/cache"
	"github.com/dmitrijs2005/tradeportal/internal/server/models"
	"github.com/dmitrijs2005/tradeportal/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// ReferenceService maintains the parties and agreements documents point at.
type ReferenceService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	ftas        *cache.FTACache
}

func NewReferenceService(db *sql.DB, rm repomanager.RepositoryManager, ftas *cache.FTACache) *ReferenceService {
	return &ReferenceService{db: db, repomanager: rm, ftas: ftas}
}

// CreateParty validates p, splits its business identifier and stores it.
func (s *ReferenceService) CreateParty(ctx context.Context, p *models.Party) (*models.Party, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p.SplitBusinessID()
	p.ID = uuid.NewString()
	if err := s.repomanager.Parties(s.db).Create(ctx, p); err != nil {
		return nil, fmt.Errorf("error creating party: %w", err)
	}
	return p, nil
}

// FindParties accepts the compound or the bare business identifier.
func (s *ReferenceService) FindParties(ctx context.Context, businessID string) ([]*models.Party, error) {
	return s.repomanager.Parties(s.db).FindByBusinessID(ctx, businessID)
}

func (s *ReferenceService) CreateFTA(ctx context.Context, f *models.FTA) (*models.FTA, error) {
	if f.Name == "" {
		return nil, fmt.Errorf("%w: agreement name is required", common.ErrorValidation)
	}
	for i, c := range f.Countries {
		n, err := models.NormalizeCountry(c)
		if err != nil {
			return nil, err
		}
		f.Countries[i] = n
	}
	if err := s.repomanager.FTAs(s.db).Create(ctx, f); err != nil {
		return nil, fmt.Errorf("error creating fta: %w", err)
	}
	if s.ftas != nil {
		s.ftas.Forget(f.ID)
	}
	return f, nil
}

func (s *ReferenceService) FTA(ctx context.Context, id int64) (*models.FTA, error) {
	if s.ftas != nil {
		return s.ftas.Get(ctx, s.repomanager.FTAs(s.db), id)
	}
	return s.repomanager.FTAs(s.db).GetByID(ctx, id)
}

func (s *ReferenceService) ListFTAs(ctx context.Context) ([]*models.FTA, error) {
	return s.repomanager.FTAs(s.db).List(ctx)
}
