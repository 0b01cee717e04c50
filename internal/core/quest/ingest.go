package quest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	apperrors "github.com/kythia/questapi/internal/errors"
)

// DefaultJoinOperator is used when the provider sends no task configuration.
const DefaultJoinOperator = "or"

// ToRows maps one provider document onto the normalized rows. It performs no
// I/O.
func ToRows(doc *Document) (*CompleteQuest, error) {
	if doc == nil || strings.TrimSpace(doc.ID) == "" {
		return nil, apperrors.ErrMapping("quest document has no id", nil)
	}
	cfg := doc.Config

	startsAt, err := ParseTimestamp(cfg.StartsAt)
	if err != nil {
		return nil, apperrors.ErrMapping(fmt.Sprintf("quest %s: invalid starts_at", doc.ID), err)
	}
	expiresAt, err := ParseTimestamp(cfg.ExpiresAt)
	if err != nil {
		return nil, apperrors.ErrMapping(fmt.Sprintf("quest %s: invalid expires_at", doc.ID), err)
	}
	var rewardsExpireAt *time.Time
	if s := cfg.RewardsConfig.RewardsExpireAt; s != nil && *s != "" {
		t, err := ParseTimestamp(*s)
		if err != nil {
			return nil, apperrors.ErrMapping(fmt.Sprintf("quest %s: invalid rewards_expire_at", doc.ID), err)
		}
		rewardsExpireAt = &t
	}

	q := Quest{
		ID:                     doc.ID,
		ConfigVersion:          cfg.ConfigVersion,
		StartsAt:               startsAt,
		ExpiresAt:              expiresAt,
		ApplicationID:          cfg.Application.ID,
		ApplicationName:        cfg.Application.Name,
		ApplicationLink:        cfg.Application.Link,
		SharePolicy:            cfg.SharePolicy,
		Preview:                doc.Preview,
		QuestName:              cfg.Messages.QuestName,
		GameTitle:              cfg.Messages.GameTitle,
		GamePublisher:          cfg.Messages.GamePublisher,
		TaskJoinOperator:       DefaultJoinOperator,
		RewardAssignmentMethod: cfg.RewardsConfig.AssignmentMethod,
		RewardsExpireAt:        rewardsExpireAt,
	}
	if cfg.Colors != nil {
		q.PrimaryColor = cfg.Colors.Primary
		q.SecondaryColor = cfg.Colors.Secondary
	}
	if cfg.CTAConfig != nil {
		link, label := cfg.CTAConfig.Link, cfg.CTAConfig.ButtonLabel
		q.CTALink = &link
		q.CTAButtonLabel = &label
	}

	cq := &CompleteQuest{
		Quest:    q,
		Tasks:    []Task{},
		Rewards:  []Reward{},
		Features: []Feature{},
	}
	if cfg.Assets != nil {
		a := *cfg.Assets
		cq.Assets = &a
	}

	if tc := cfg.TaskConfigV2; tc != nil {
		if tc.JoinOperator != "" {
			cq.Quest.TaskJoinOperator = tc.JoinOperator
		}
		types := make([]string, 0, len(tc.Tasks))
		for taskType := range tc.Tasks {
			types = append(types, taskType)
		}
		sort.Strings(types)
		for _, taskType := range types {
			td := tc.Tasks[taskType]
			cq.Tasks = append(cq.Tasks, Task{
				QuestID:      doc.ID,
				TaskType:     taskType,
				Target:       td.Target,
				Applications: payload(td.Applications),
				ExternalIDs:  payload(td.ExternalIDs),
			})
		}
	}

	// Every reward shares the first listed platform.
	platform := 0
	if len(cfg.RewardsConfig.Platforms) > 0 {
		platform = cfg.RewardsConfig.Platforms[0]
	}
	for _, rd := range cfg.RewardsConfig.Rewards {
		cq.Rewards = append(cq.Rewards, Reward{
			QuestID:                doc.ID,
			RewardType:             rd.Type,
			SKUID:                  rd.SKUID,
			Name:                   rd.Messages.Name,
			NameWithArticle:        rd.Messages.NameWithArticle,
			OrbQuantity:            rd.OrbQuantity,
			RedemptionInstructions: payload(rd.Messages.RedemptionInstructionsByPlatform),
			Platform:               platform,
		})
	}

	for _, id := range cfg.Features {
		cq.Features = append(cq.Features, Feature{QuestID: doc.ID, FeatureID: id})
	}

	return cq, nil
}

// Ingest maps doc and persists the quest with all of its children in one
// transaction. A mapping failure writes nothing.
func Ingest(ctx context.Context, store Store, doc *Document) error {
	cq, err := ToRows(doc)
	if err != nil {
		return err
	}

	return store.InTx(ctx, func(tx Store) error {
		if err := tx.UpsertQuest(ctx, &cq.Quest); err != nil {
			return err
		}
		if err := tx.UpsertAssets(ctx, cq.Quest.ID, cq.Assets); err != nil {
			return err
		}
		if err := tx.ReplaceTasks(ctx, cq.Quest.ID, cq.Tasks); err != nil {
			return err
		}
		if err := tx.ReplaceRewards(ctx, cq.Quest.ID, cq.Rewards); err != nil {
			return err
		}
		return tx.ReplaceFeatures(ctx, cq.Quest.ID, cq.FeatureIDs())
	})
}
