package quest

import (
	"time"

	"gorm.io/datatypes"
)

// Quest is the normalized row of the quests table.
type Quest struct {
	ID                     string     `json:"id"`
	ConfigVersion          int        `json:"config_version"`
	StartsAt               time.Time  `json:"starts_at"`
	ExpiresAt              time.Time  `json:"expires_at"`
	ApplicationID          string     `json:"application_id"`
	ApplicationName        string     `json:"application_name"`
	ApplicationLink        string     `json:"application_link"`
	SharePolicy            string     `json:"share_policy"`
	Preview                bool       `json:"preview"`
	PrimaryColor           *string    `json:"primary_color"`
	SecondaryColor         *string    `json:"secondary_color"`
	QuestName              string     `json:"quest_name"`
	GameTitle              string     `json:"game_title"`
	GamePublisher          string     `json:"game_publisher"`
	CTALink                *string    `json:"cta_link"`
	CTAButtonLabel         *string    `json:"cta_button_label"`
	TaskJoinOperator       string     `json:"task_join_operator"`
	RewardAssignmentMethod int        `json:"reward_assignment_method"`
	RewardsExpireAt        *time.Time `json:"rewards_expire_at"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

// Assets is the media bundle of a quest. It doubles as the "assets" object
// of the provider document.
type Assets struct {
	Hero              *string `json:"hero"`
	HeroVideo         *string `json:"hero_video"`
	QuestBarHero      *string `json:"quest_bar_hero"`
	QuestBarHeroVideo *string `json:"quest_bar_hero_video"`
	GameTile          *string `json:"game_tile"`
	Logotype          *string `json:"logotype"`
	GameTileLight     *string `json:"game_tile_light"`
	GameTileDark      *string `json:"game_tile_dark"`
	LogotypeLight     *string `json:"logotype_light"`
	LogotypeDark      *string `json:"logotype_dark"`
}

type Task struct {
	ID           int64          `json:"id"`
	QuestID      string         `json:"quest_id"`
	TaskType     string         `json:"task_type"`
	Target       int            `json:"target"`
	Applications datatypes.JSON `json:"applications"`
	ExternalIDs  datatypes.JSON `json:"external_ids"`
}

type Reward struct {
	ID                     int64          `json:"id"`
	QuestID                string         `json:"quest_id"`
	RewardType             int            `json:"reward_type"`
	SKUID                  *string        `json:"sku_id"`
	Name                   string         `json:"reward_name"`
	NameWithArticle        string         `json:"reward_name_with_article"`
	OrbQuantity            *int           `json:"orb_quantity"`
	RedemptionInstructions datatypes.JSON `json:"redemption_instructions"`
	// Platform is the first entry of the provider's platform list, shared by
	// every reward of the quest.
	Platform int `json:"platform"`
}

type Feature struct {
	ID        int64  `json:"id"`
	QuestID   string `json:"quest_id"`
	FeatureID int    `json:"feature_id"`
}

// CompleteQuest is a quest hydrated with every child collection.
type CompleteQuest struct {
	Quest    Quest     `json:"quest"`
	Assets   *Assets   `json:"assets"`
	Tasks    []Task    `json:"tasks"`
	Rewards  []Reward  `json:"rewards"`
	Features []Feature `json:"features"`
}

// FeatureIDs returns the feature codes in storage order.
func (cq *CompleteQuest) FeatureIDs() []int {
	ids := make([]int, 0, len(cq.Features))
	for _, f := range cq.Features {
		ids = append(ids, f.FeatureID)
	}
	return ids
}

// CachedDocument is the cache_store row holding a reconstructed catalog.
type CachedDocument struct {
	Key       string         `json:"id"`
	Data      datatypes.JSON `json:"data"`
	UpdatedAt time.Time      `json:"updated_at"`
}
