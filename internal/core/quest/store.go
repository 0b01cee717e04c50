package quest

import (
	"context"
	"time"
)

// Store is the normalized persistence of quests, their child collections and
// the cached catalog document. Every failure is a STORAGE_FAILURE QuestError
// except GetCompleteQuest's QUEST_NOT_FOUND.
type Store interface {
	UpsertQuest(ctx context.Context, q *Quest) error
	// UpsertAssets stores the quest's single asset bundle. A nil bundle
	// removes any stored one.
	UpsertAssets(ctx context.Context, questID string, assets *Assets) error

	// Replace* delete the quest's existing children of that kind and insert
	// the given set. An empty set leaves the quest with none.
	ReplaceTasks(ctx context.Context, questID string, tasks []Task) error
	ReplaceRewards(ctx context.Context, questID string, rewards []Reward) error
	ReplaceFeatures(ctx context.Context, questID string, featureIDs []int) error

	ListKnownIDs(ctx context.Context) (map[string]struct{}, error)
	GetCompleteQuest(ctx context.Context, id string) (*CompleteQuest, error)

	// ListRecentCompleteQuests returns quests whose expires_at is at or after
	// now minus ageDays, most recently started first.
	ListRecentCompleteQuests(ctx context.Context, ageDays int, now time.Time) ([]*CompleteQuest, error)

	// GetCachedDocument returns nil, nil when key has never been written.
	GetCachedDocument(ctx context.Context, key string) (*CachedDocument, error)
	PutCachedDocument(ctx context.Context, key string, data []byte, at time.Time) error

	// InTx runs fn against a Store bound to one transaction.
	InTx(ctx context.Context, fn func(tx Store) error) error
}

// RecentCutoff is the oldest expires_at still included for ageDays.
func RecentCutoff(ageDays int, now time.Time) time.Time {
	return now.Add(-time.Duration(ageDays) * 24 * time.Hour)
}
