package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validCatalog = `{
  "quests": [
    {
      "id": "1",
      "preview": false,
      "config": {
        "starts_at": "2025-10-01T00:00:00+00:00",
        "expires_at": "2025-10-31T00:00:00+00:00",
        "features": [1, 2],
        "application": {"id": "10", "name": "Game", "link": "https://example.com"},
        "colors": null,
        "messages": {"quest_name": "Q", "game_title": "G", "game_publisher": "P"},
        "task_config_v2": {"tasks": {"PLAY": {"target": "lenient"}}, "join_operator": "or"},
        "rewards_config": {"assignment_method": 1, "rewards": [], "platforms": [0]},
        "share_policy": "shareable_everywhere",
        "something_new": {"nested": true}
      },
      "user_status": {"enrolled_at": null}
    }
  ]
}`

func TestValidator_AcceptsCatalog(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	assert.NoError(t, v.Validate([]byte(validCatalog)))
	assert.NoError(t, v.Validate([]byte(`{"quests": []}`)))
}

func TestValidator_RejectsMalformedCatalog(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	tests := []struct {
		name  string
		input string
	}{
		{"missing quests", `{}`},
		{"quests not array", `{"quests": {}}`},
		{"quest without id", `{"quests": [{"config": {}}]}`},
		{"empty id", `{"quests": [{"id": "", "config": {}}]}`},
		{"numeric starts_at", `{"quests": [{"id": "1", "config": {"starts_at": 1, "expires_at": "x", "application": {}, "messages": {}, "rewards_config": {}}}]}`},
		{"string feature", `{"quests": [{"id": "1", "config": {"starts_at": "x", "expires_at": "x", "features": ["a"], "application": {}, "messages": {}, "rewards_config": {}}}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate([]byte(tt.input))
			require.Error(t, err)
			assert.True(t, IsValidationError(err))
			assert.NotEmpty(t, GetValidationErrors(err).Errors)
		})
	}
}

func TestValidator_NotJSON(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	err = v.Validate([]byte(`<html>`))
	require.Error(t, err)
	assert.False(t, IsValidationError(err))
}

func TestNewValidatorWithSchema_Invalid(t *testing.T) {
	_, err := NewValidatorWithSchema([]byte(`{"type": 12}`))
	assert.Error(t, err)
}

func TestValidationErrors_Error(t *testing.T) {
	err := &ValidationErrors{Errors: []ValidationError{
		{Field: "quests.0.id", Message: "Invalid type"},
		{Field: "quests.1", Message: "id is required"},
	}}
	assert.Equal(t, "quests.0.id: Invalid type; quests.1: id is required", err.Error())
	assert.Nil(t, GetValidationErrors(assert.AnError))
}
