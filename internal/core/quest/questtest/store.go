// Package questtest provides an in-memory quest.Store for tests.
package questtest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kythia/questapi/internal/core/quest"
	apperrors "github.com/kythia/questapi/internal/errors"
)

type state struct {
	quests   map[string]quest.Quest
	assets   map[string]quest.Assets
	tasks    map[string][]quest.Task
	rewards  map[string][]quest.Reward
	features map[string][]quest.Feature
	cache    map[string]quest.CachedDocument
	nextID   int64
}

func newState() *state {
	return &state{
		quests:   make(map[string]quest.Quest),
		assets:   make(map[string]quest.Assets),
		tasks:    make(map[string][]quest.Task),
		rewards:  make(map[string][]quest.Reward),
		features: make(map[string][]quest.Feature),
		cache:    make(map[string]quest.CachedDocument),
	}
}

func (s *state) clone() *state {
	c := newState()
	c.nextID = s.nextID
	for k, v := range s.quests {
		c.quests[k] = v
	}
	for k, v := range s.assets {
		c.assets[k] = v
	}
	for k, v := range s.tasks {
		c.tasks[k] = append([]quest.Task(nil), v...)
	}
	for k, v := range s.rewards {
		c.rewards[k] = append([]quest.Reward(nil), v...)
	}
	for k, v := range s.features {
		c.features[k] = append([]quest.Feature(nil), v...)
	}
	for k, v := range s.cache {
		c.cache[k] = v
	}
	return c
}

// Store is a mutex guarded quest.Store. InTx snapshots the state and restores
// it when fn fails.
type Store struct {
	txMu sync.Mutex

	mu     sync.Mutex
	st     *state
	calls  map[string]int
	failOn map[string]error
}

func NewStore() *Store {
	return &Store{
		st:     newState(),
		calls:  make(map[string]int),
		failOn: make(map[string]error),
	}
}

// FailOn makes every later call of op return err. A nil err clears it.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failOn, op)
		return
	}
	s.failOn[op] = err
}

// Calls reports how many times op was invoked.
func (s *Store) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// QuestCount reports the number of stored quests.
func (s *Store) QuestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.quests)
}

// begin records the call and returns the injected failure, if any. The
// caller holds mu afterwards.
func (s *Store) begin(op string) error {
	s.mu.Lock()
	s.calls[op]++
	if err, ok := s.failOn[op]; ok {
		return apperrors.ErrStorage(op, err)
	}
	return nil
}

func (s *Store) UpsertQuest(_ context.Context, q *quest.Quest) error {
	err := s.begin("UpsertQuest")
	defer s.mu.Unlock()
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	stored := *q
	if existing, ok := s.st.quests[q.ID]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	s.st.quests[q.ID] = stored
	q.CreatedAt, q.UpdatedAt = stored.CreatedAt, stored.UpdatedAt
	return nil
}

func (s *Store) UpsertAssets(_ context.Context, questID string, a *quest.Assets) error {
	err := s.begin("UpsertAssets")
	defer s.mu.Unlock()
	if err != nil {
		return err
	}
	if a == nil {
		delete(s.st.assets, questID)
		return nil
	}
	s.st.assets[questID] = *a
	return nil
}

func (s *Store) ReplaceTasks(_ context.Context, questID string, tasks []quest.Task) error {
	err := s.begin("ReplaceTasks")
	defer s.mu.Unlock()
	if err != nil {
		return err
	}
	rows := make([]quest.Task, 0, len(tasks))
	for _, t := range tasks {
		s.st.nextID++
		t.ID = s.st.nextID
		t.QuestID = questID
		rows = append(rows, t)
	}
	s.st.tasks[questID] = rows
	return nil
}

func (s *Store) ReplaceRewards(_ context.Context, questID string, rewards []quest.Reward) error {
	err := s.begin("ReplaceRewards")
	defer s.mu.Unlock()
	if err != nil {
		return err
	}
	rows := make([]quest.Reward, 0, len(rewards))
	for _, r := range rewards {
		s.st.nextID++
		r.ID = s.st.nextID
		r.QuestID = questID
		rows = append(rows, r)
	}
	s.st.rewards[questID] = rows
	return nil
}

func (s *Store) ReplaceFeatures(_ context.Context, questID string, featureIDs []int) error {
	err := s.begin("ReplaceFeatures")
	defer s.mu.Unlock()
	if err != nil {
		return err
	}
	rows := make([]quest.Feature, 0, len(featureIDs))
	for _, id := range featureIDs {
		s.st.nextID++
		rows = append(rows, quest.Feature{ID: s.st.nextID, QuestID: questID, FeatureID: id})
	}
	s.st.features[questID] = rows
	return nil
}

func (s *Store) ListKnownIDs(_ context.Context) (map[string]struct{}, error) {
	err := s.begin("ListKnownIDs")
	defer s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	ids := make(map[string]struct{}, len(s.st.quests))
	for id := range s.st.quests {
		ids[id] = struct{}{}
	}
	return ids, nil
}

func (s *Store) GetCompleteQuest(_ context.Context, id string) (*quest.CompleteQuest, error) {
	err := s.begin("GetCompleteQuest")
	defer s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if _, ok := s.st.quests[id]; !ok {
		return nil, apperrors.ErrQuestNotFound(id)
	}
	return s.complete(id), nil
}

func (s *Store) ListRecentCompleteQuests(_ context.Context, ageDays int, now time.Time) ([]*quest.CompleteQuest, error) {
	err := s.begin("ListRecentCompleteQuests")
	defer s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	cutoff := quest.RecentCutoff(ageDays, now)
	var out []*quest.CompleteQuest
	for id, q := range s.st.quests {
		if q.ExpiresAt.Before(cutoff) {
			continue
		}
		out = append(out, s.complete(id))
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Quest, out[j].Quest
		if !a.StartsAt.Equal(b.StartsAt) {
			return a.StartsAt.After(b.StartsAt)
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (s *Store) complete(id string) *quest.CompleteQuest {
	cq := &quest.CompleteQuest{
		Quest:    s.st.quests[id],
		Tasks:    append([]quest.Task{}, s.st.tasks[id]...),
		Rewards:  append([]quest.Reward{}, s.st.rewards[id]...),
		Features: append([]quest.Feature{}, s.st.features[id]...),
	}
	if a, ok := s.st.assets[id]; ok {
		cq.Assets = &a
	}
	return cq
}

func (s *Store) GetCachedDocument(_ context.Context, key string) (*quest.CachedDocument, error) {
	err := s.begin("GetCachedDocument")
	defer s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	doc, ok := s.st.cache[key]
	if !ok {
		return nil, nil
	}
	return &doc, nil
}

func (s *Store) PutCachedDocument(_ context.Context, key string, data []byte, at time.Time) error {
	err := s.begin("PutCachedDocument")
	defer s.mu.Unlock()
	if err != nil {
		return err
	}
	s.st.cache[key] = quest.CachedDocument{
		Key:       key,
		Data:      append([]byte(nil), data...),
		UpdatedAt: at.UTC(),
	}
	return nil
}

// SetCachedDocument seeds the cache row without counting a call.
func (s *Store) SetCachedDocument(key string, data []byte, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.cache[key] = quest.CachedDocument{Key: key, Data: data, UpdatedAt: at.UTC()}
}

func (s *Store) InTx(ctx context.Context, fn func(tx quest.Store) error) error {
	if err := s.begin("InTx"); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.st.clone()
	s.mu.Unlock()

	if err := fn(txStore{s}); err != nil {
		s.mu.Lock()
		s.st = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// txStore is the view handed to InTx callbacks; nested InTx joins the
// running transaction.
type txStore struct {
	*Store
}

func (t txStore) InTx(_ context.Context, fn func(tx quest.Store) error) error {
	return fn(t)
}
