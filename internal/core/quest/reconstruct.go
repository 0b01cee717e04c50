package quest

import (
	"encoding/json"
)

var nullStatus = json.RawMessage("null")

// Reconstruct renders a stored quest back into the provider's document shape.
func Reconstruct(cq *CompleteQuest) Document {
	q := cq.Quest

	assets := cq.Assets
	if assets == nil {
		assets = &Assets{}
	}

	tasks := make(map[string]TaskDocument, len(cq.Tasks))
	for _, t := range cq.Tasks {
		tasks[t.TaskType] = TaskDocument{
			Type:         t.TaskType,
			Target:       t.Target,
			Applications: payload(t.Applications),
			ExternalIDs:  payload(t.ExternalIDs),
		}
	}
	joinOperator := q.TaskJoinOperator
	if joinOperator == "" {
		joinOperator = DefaultJoinOperator
	}

	rewards := make([]RewardDocument, 0, len(cq.Rewards))
	platforms := []int{}
	for i, r := range cq.Rewards {
		if i == 0 {
			platforms = append(platforms, r.Platform)
		}
		rewards = append(rewards, RewardDocument{
			Type:  r.RewardType,
			SKUID: r.SKUID,
			Messages: RewardMessages{
				Name:                             r.Name,
				NameWithArticle:                  r.NameWithArticle,
				RedemptionInstructionsByPlatform: payload(r.RedemptionInstructions),
			},
			OrbQuantity: r.OrbQuantity,
		})
	}

	cfg := Config{
		ID:            q.ID,
		ConfigVersion: q.ConfigVersion,
		StartsAt:      FormatTimestamp(q.StartsAt),
		ExpiresAt:     FormatTimestamp(q.ExpiresAt),
		Features:      cq.FeatureIDs(),
		Application: Application{
			ID:   q.ApplicationID,
			Name: q.ApplicationName,
			Link: q.ApplicationLink,
		},
		Assets: assets,
		Colors: &Colors{Primary: q.PrimaryColor, Secondary: q.SecondaryColor},
		Messages: Messages{
			QuestName:     q.QuestName,
			GameTitle:     q.GameTitle,
			GamePublisher: q.GamePublisher,
		},
		TaskConfigV2: &TaskConfig{Tasks: tasks, JoinOperator: joinOperator},
		RewardsConfig: RewardsConfig{
			AssignmentMethod: q.RewardAssignmentMethod,
			Rewards:          rewards,
			RewardsExpireAt:  formatOptionalTimestamp(q.RewardsExpireAt),
			Platforms:        platforms,
		},
		SharePolicy: q.SharePolicy,
	}
	if q.CTALink != nil {
		cta := &CTAConfig{Link: *q.CTALink}
		if q.CTAButtonLabel != nil {
			cta.ButtonLabel = *q.CTAButtonLabel
		}
		cfg.CTAConfig = cta
	}

	return Document{
		ID:              q.ID,
		Config:          cfg,
		UserStatus:      nullStatus,
		TargetedContent: []json.RawMessage{},
		Preview:         q.Preview,
	}
}

// ReconstructCatalog renders quests in the given order. An empty input yields
// {"quests": []}.
func ReconstructCatalog(quests []*CompleteQuest) Response {
	docs := make([]Document, 0, len(quests))
	for _, cq := range quests {
		docs = append(docs, Reconstruct(cq))
	}
	return Response{Quests: docs}
}
