package quest_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/kythia/questapi/internal/core/quest"
	"github.com/kythia/questapi/internal/core/quest/questtest"
	apperrors "github.com/kythia/questapi/internal/errors"
)

func TestReconstructCatalog_Empty(t *testing.T) {
	out, err := json.Marshal(quest.ReconstructCatalog(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"quests":[]}`, string(out))
}

func TestReconstructCatalog_KeepsOrder(t *testing.T) {
	base := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	quests := []*quest.CompleteQuest{
		{Quest: quest.Quest{ID: "b", StartsAt: base.Add(48 * time.Hour), ExpiresAt: base.Add(96 * time.Hour)}},
		{Quest: quest.Quest{ID: "a", StartsAt: base, ExpiresAt: base.Add(96 * time.Hour)}},
	}

	catalog := quest.ReconstructCatalog(quests)
	require.Len(t, catalog.Quests, 2)
	assert.Equal(t, "b", catalog.Quests[0].ID)
	assert.Equal(t, "a", catalog.Quests[1].ID)
}

func TestReconstruct_StoredRows(t *testing.T) {
	label := "Play"
	link := "https://example.com/play"
	orbs := 250
	cq := &quest.CompleteQuest{
		Quest: quest.Quest{
			ID:                     "q1",
			ConfigVersion:          2,
			StartsAt:               time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC),
			ExpiresAt:              time.Date(2025, 10, 8, 12, 0, 0, 500000000, time.UTC),
			TaskJoinOperator:       "and",
			RewardAssignmentMethod: 1,
			CTALink:                &link,
			CTAButtonLabel:         &label,
		},
		Tasks: []quest.Task{
			{TaskType: "PLAY_ON_DESKTOP", Target: 900, Applications: datatypes.JSON(`[{"id":"1"}]`)},
			{TaskType: "STREAM_ON_DESKTOP", Target: 600},
		},
		Rewards: []quest.Reward{
			{RewardType: 4, Name: "Orbs", OrbQuantity: &orbs, Platform: 3},
			{RewardType: 3, Name: "Decoration", Platform: 3},
		},
		Features: []quest.Feature{{FeatureID: 7}, {FeatureID: 1}},
	}

	doc := quest.Reconstruct(cq)

	assert.Equal(t, "q1", doc.Config.ID)
	assert.Equal(t, "2025-10-08T12:00:00.5+00:00", doc.Config.ExpiresAt)
	assert.Equal(t, []int{7, 1}, doc.Config.Features)
	assert.Equal(t, "and", doc.Config.TaskConfigV2.JoinOperator)
	require.Contains(t, doc.Config.TaskConfigV2.Tasks, "PLAY_ON_DESKTOP")
	assert.Equal(t, "PLAY_ON_DESKTOP", doc.Config.TaskConfigV2.Tasks["PLAY_ON_DESKTOP"].Type)
	assert.JSONEq(t, `[{"id":"1"}]`, string(doc.Config.TaskConfigV2.Tasks["PLAY_ON_DESKTOP"].Applications))
	assert.Nil(t, doc.Config.TaskConfigV2.Tasks["STREAM_ON_DESKTOP"].Applications)
	require.Len(t, doc.Config.RewardsConfig.Rewards, 2)
	assert.Equal(t, "Orbs", doc.Config.RewardsConfig.Rewards[0].Messages.Name)
	assert.Equal(t, []int{3}, doc.Config.RewardsConfig.Platforms)
	assert.Nil(t, doc.Config.RewardsConfig.RewardsExpireAt)
	require.NotNil(t, doc.Config.CTAConfig)
	assert.Equal(t, "Play", doc.Config.CTAConfig.ButtonLabel)
	assert.NotNil(t, doc.Config.Assets)
	assert.Nil(t, doc.Config.Assets.Hero)
	assert.Equal(t, "null", string(doc.UserStatus))
	assert.Empty(t, doc.TargetedContent)
}

func TestReconstruct_ColorsAlwaysObject(t *testing.T) {
	primary := "#5865F2"
	for name, tc := range map[string]struct {
		quest quest.Quest
		want  string
	}{
		"none stored":  {quest: quest.Quest{ID: "q1"}, want: `{"primary":null,"secondary":null}`},
		"primary only": {quest: quest.Quest{ID: "q1", PrimaryColor: &primary}, want: `{"primary":"#5865F2","secondary":null}`},
	} {
		t.Run(name, func(t *testing.T) {
			doc := quest.Reconstruct(&quest.CompleteQuest{Quest: tc.quest})

			out, err := json.Marshal(doc.Config.Colors)
			require.NoError(t, err)
			assert.JSONEq(t, tc.want, string(out))
		})
	}
}

func TestService_Get(t *testing.T) {
	ctx := context.Background()
	store := questtest.NewStore()
	svc := quest.NewService(store)

	_, err := svc.Get(ctx, "missing")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeQuestNotFound))

	doc := loadDocument(t, "full_quest.json")
	require.NoError(t, quest.Ingest(ctx, store, doc))

	got, err := svc.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)
	assert.Equal(t, "Orbital Quest", got.Config.Messages.QuestName)
}
