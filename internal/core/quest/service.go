package quest

import (
	"context"
)

// Service serves individual quests straight from the normalized store.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Get reconstructs a single stored quest. Unknown ids yield QUEST_NOT_FOUND.
func (s *Service) Get(ctx context.Context, id string) (*Document, error) {
	cq, err := s.store.GetCompleteQuest(ctx, id)
	if err != nil {
		return nil, err
	}
	doc := Reconstruct(cq)
	return &doc, nil
}
