package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/dmitrijs2005/tradeportal/internal/server/models"
	gocache "github.com/patrickmn/go-cache"
)

// FTALoader is satisfied by ftas.Repository.
type FTALoader interface {
	GetByID(ctx context.Context, id int64) (*models.FTA, error)
}

// FTACache is a read-through cache of agreements. They change rarely and
// are read on every document save.
type FTACache struct {
	cache *gocache.Cache
}

func NewFTACache(ttl time.Duration) *FTACache {
	return &FTACache{cache: gocache.New(ttl, 2*ttl)}
}

func (c *FTACache) Get(ctx context.Context, loader FTALoader, id int64) (*models.FTA, error) {
	key := strconv.FormatInt(id, 10)
	if v, ok := c.cache.Get(key); ok {
		return copyFTA(v.(models.FTA)), nil
	}

	f, err := loader.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, *copyFTA(*f), gocache.DefaultExpiration)
	return f, nil
}

func (c *FTACache) Forget(id int64) {
	c.cache.Delete(strconv.FormatInt(id, 10))
}

func copyFTA(f models.FTA) *models.FTA {
	f.Countries = append([]string(nil), f.Countries...)
	return &f
}
