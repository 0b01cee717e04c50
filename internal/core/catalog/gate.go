package catalog

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kythia/questapi/internal/core/quest"
)

// Refresher runs a sync cycle. *Syncer implements it.
type Refresher interface {
	Sync(ctx context.Context) (*SyncResult, error)
}

// Gate serves the cached catalog while it is fresh and refreshes it
// otherwise. Concurrent refreshes share a single cycle.
type Gate struct {
	store       quest.Store
	refresher   Refresher
	thresholdMS int64
	logger      *slog.Logger
	now         func() time.Time
	group       singleflight.Group
}

func NewGate(store quest.Store, refresher Refresher, thresholdMS int64, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		store:       store,
		refresher:   refresher,
		thresholdMS: thresholdMS,
		logger:      logger,
		now:         time.Now,
	}
}

// Quests returns the catalog document. A fresh cache row is returned
// unchanged; an absent or stale one triggers a sync first.
func (g *Gate) Quests(ctx context.Context) ([]byte, error) {
	cached, err := g.store.GetCachedDocument(ctx, CacheKey)
	if err != nil {
		return nil, err
	}
	if cached != nil && !g.IsStale(cached.UpdatedAt) {
		return cached.Data, nil
	}

	if cached == nil {
		g.logger.Info("quest cache empty, syncing")
	} else {
		g.logger.Info("quest cache stale, syncing", "updated_at", cached.UpdatedAt)
	}
	result, err := g.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	return result.Document, nil
}

// Refresh forces a sync cycle regardless of staleness.
func (g *Gate) Refresh(ctx context.Context) (*SyncResult, error) {
	// The shared cycle must outlive any single caller's cancellation.
	shared := context.WithoutCancel(ctx)
	v, err, _ := g.group.Do(CacheKey, func() (any, error) {
		return g.refresher.Sync(shared)
	})
	if err != nil {
		return nil, err
	}
	return v.(*SyncResult), nil
}

// IsStale reports whether a row written at updatedAt has reached the
// threshold age.
func (g *Gate) IsStale(updatedAt time.Time) bool {
	return g.now().Sub(updatedAt).Milliseconds() >= g.thresholdMS
}
