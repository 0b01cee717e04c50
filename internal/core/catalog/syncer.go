// Package catalog keeps the cached quest catalog in step with the provider.
package catalog

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kythia/questapi/internal/core/quest"
	"github.com/kythia/questapi/internal/core/validation"
	apperrors "github.com/kythia/questapi/internal/errors"
)

// CacheKey is the cache_store row holding the served catalog.
const CacheKey = "discord_quests"

// Provider returns the raw upstream catalog.
type Provider interface {
	FetchQuests(ctx context.Context) ([]byte, error)
}

type SyncResult struct {
	RunID    uuid.UUID `json:"run_id"`
	NewCount int       `json:"new_count"`
	Skipped  int       `json:"skipped"`
	Document []byte    `json:"-"`
	SyncedAt time.Time `json:"synced_at"`
}

// Syncer runs one fetch, ingest and rebuild cycle.
type Syncer struct {
	store     quest.Store
	provider  Provider
	validator *validation.Validator
	logger    *slog.Logger
	ageDays   int
	now       func() time.Time
}

func NewSyncer(store quest.Store, provider Provider, validator *validation.Validator, logger *slog.Logger, ageDays int) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		store:     store,
		provider:  provider,
		validator: validator,
		logger:    logger,
		ageDays:   ageDays,
		now:       time.Now,
	}
}

// Sync ingests quests the store has never seen, then rebuilds and caches the
// catalog from the store. Known quests are never re-ingested. The first
// ingest failure aborts the cycle; quests ingested before it stay stored.
func (s *Syncer) Sync(ctx context.Context) (*SyncResult, error) {
	runID := uuid.New()
	log := s.logger.With("run_id", runID.String())

	raw, err := s.provider.FetchQuests(ctx)
	if err != nil {
		log.Error("failed to fetch provider catalog", "error", err)
		if apperrors.Code(err) == "" {
			err = apperrors.ErrProviderFetch("failed to fetch quests", err)
		}
		return nil, err
	}

	if !json.Valid(raw) {
		log.Error("provider response is not JSON")
		return nil, apperrors.ErrProviderFetch("failed to parse provider response", nil)
	}
	if s.validator != nil {
		if err := s.validator.Validate(raw); err != nil {
			log.Error("provider catalog failed validation", "error", err)
			return nil, apperrors.ErrMapping("provider catalog failed validation", err)
		}
	}
	resp, err := quest.DecodeResponse(raw)
	if err != nil {
		log.Error("failed to decode provider catalog", "error", err)
		return nil, apperrors.ErrMapping("failed to decode provider catalog", err)
	}

	known, err := s.store.ListKnownIDs(ctx)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{RunID: runID}
	seen := make(map[string]struct{}, len(resp.Quests))
	for i := range resp.Quests {
		doc := &resp.Quests[i]
		if _, ok := known[doc.ID]; ok {
			result.Skipped++
			continue
		}
		if _, ok := seen[doc.ID]; ok {
			result.Skipped++
			continue
		}
		seen[doc.ID] = struct{}{}

		if err := quest.Ingest(ctx, s.store, doc); err != nil {
			log.Error("failed to ingest quest", "quest_id", doc.ID, "ingested", result.NewCount, "error", err)
			return nil, err
		}
		result.NewCount++
	}

	now := s.now().UTC()
	recent, err := s.store.ListRecentCompleteQuests(ctx, s.ageDays, now)
	if err != nil {
		return nil, err
	}
	document, err := json.Marshal(quest.ReconstructCatalog(recent))
	if err != nil {
		return nil, apperrors.ErrMapping("failed to encode catalog", err)
	}
	if err := s.store.PutCachedDocument(ctx, CacheKey, document, now); err != nil {
		return nil, err
	}

	result.Document = document
	result.SyncedAt = now
	log.Info("quest catalog synced",
		"fetched", len(resp.Quests),
		"new", result.NewCount,
		"skipped", result.Skipped,
		"served", len(recent),
	)
	return result, nil
}
