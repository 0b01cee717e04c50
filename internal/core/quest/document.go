package quest

import (
	"bytes"
	"encoding/json"
	"math"

	"gorm.io/datatypes"
)

// Response is the provider's catalog envelope. The same shape is served back
// to clients after reconstruction.
type Response struct {
	Quests []Document `json:"quests"`
}

// Document is one quest in the provider's nested wire shape.
type Document struct {
	ID              string            `json:"id"`
	Config          Config            `json:"config"`
	UserStatus      json.RawMessage   `json:"user_status"`
	TargetedContent []json.RawMessage `json:"targeted_content"`
	Preview         bool              `json:"preview"`
}

type Config struct {
	ID            string        `json:"id"`
	ConfigVersion int           `json:"config_version"`
	StartsAt      string        `json:"starts_at"`
	ExpiresAt     string        `json:"expires_at"`
	Features      []int         `json:"features"`
	Application   Application   `json:"application"`
	Assets        *Assets       `json:"assets"`
	Colors        *Colors       `json:"colors"`
	Messages      Messages      `json:"messages"`
	TaskConfigV2  *TaskConfig   `json:"task_config_v2"`
	RewardsConfig RewardsConfig `json:"rewards_config"`
	SharePolicy   string        `json:"share_policy"`
	CTAConfig     *CTAConfig    `json:"cta_config,omitempty"`
}

type Application struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Link string `json:"link"`
}

type Colors struct {
	Primary   *string `json:"primary"`
	Secondary *string `json:"secondary"`
}

type Messages struct {
	QuestName     string `json:"quest_name"`
	GameTitle     string `json:"game_title"`
	GamePublisher string `json:"game_publisher"`
}

type TaskConfig struct {
	Tasks        map[string]TaskDocument `json:"tasks"`
	JoinOperator string                  `json:"join_operator"`
}

type TaskDocument struct {
	Type         string         `json:"type"`
	Target       int            `json:"target"`
	Applications datatypes.JSON `json:"applications"`
	ExternalIDs  datatypes.JSON `json:"external_ids"`
}

// UnmarshalJSON accepts any JSON number (or nothing) for target; values that
// are not whole numbers decode as 0.
func (t *TaskDocument) UnmarshalJSON(b []byte) error {
	var raw struct {
		Type         string          `json:"type"`
		Target       json.RawMessage `json:"target"`
		Applications datatypes.JSON  `json:"applications"`
		ExternalIDs  datatypes.JSON  `json:"external_ids"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*t = TaskDocument{
		Type:         raw.Type,
		Applications: raw.Applications,
		ExternalIDs:  raw.ExternalIDs,
	}
	var n float64
	if len(raw.Target) > 0 && json.Unmarshal(raw.Target, &n) == nil && n == math.Trunc(n) {
		t.Target = int(n)
	}
	return nil
}

type RewardsConfig struct {
	AssignmentMethod int              `json:"assignment_method"`
	Rewards          []RewardDocument `json:"rewards"`
	RewardsExpireAt  *string          `json:"rewards_expire_at"`
	Platforms        []int            `json:"platforms"`
}

type RewardDocument struct {
	Type        int            `json:"type"`
	SKUID       *string        `json:"sku_id"`
	Messages    RewardMessages `json:"messages"`
	OrbQuantity *int           `json:"orb_quantity"`
}

type RewardMessages struct {
	Name                             string         `json:"name"`
	NameWithArticle                  string         `json:"name_with_article"`
	RedemptionInstructionsByPlatform datatypes.JSON `json:"redemption_instructions_by_platform"`
}

type CTAConfig struct {
	Link        string `json:"link"`
	ButtonLabel string `json:"button_label"`
}

// DecodeResponse parses a raw provider catalog.
func DecodeResponse(raw []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// payload normalizes an opaque JSON value: empty input and JSON null both
// become nil so they are stored as SQL NULL.
func payload(j datatypes.JSON) datatypes.JSON {
	trimmed := bytes.TrimSpace(j)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	out := make(datatypes.JSON, len(trimmed))
	copy(out, trimmed)
	return out
}
