package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConditionAliases(t *testing.T) {
	cases := []struct {
		raw  string
		want Condition
	}{
		{"Near Mint", ConditionNearMint},
		{"NM", ConditionNearMint},
		{"NM/Mint", ConditionNearMint},
		{"Lightly Played", ConditionLightlyPlayed},
		{"LP", ConditionLightlyPlayed},
		{"excellent", ConditionLightlyPlayed},
		{"Moderately Played", ConditionPlayed},
		{"heavily played", ConditionPlayed},
		{"mint", ConditionMint},
		{"gem mint", ConditionMint},
		{"poor", ConditionDamaged},
		{"dmg", ConditionDamaged},
	}
	for _, tc := range cases {
		got, err := ParseCondition(tc.raw)
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.want, got, tc.raw)
	}
}

func TestParseConditionUnknown(t *testing.T) {
	_, err := ParseCondition("slightly chewed")
	require.Error(t, err)
}

func TestConditionOrdering(t *testing.T) {
	assert.Less(t, ConditionDamaged.Tier(), ConditionPlayed.Tier())
	assert.Less(t, ConditionPlayed.Tier(), ConditionLightlyPlayed.Tier())
	assert.Less(t, ConditionLightlyPlayed.Tier(), ConditionNearMint.Tier())
	assert.Less(t, ConditionNearMint.Tier(), ConditionMint.Tier())
}

func TestConditionJSONRoundTrip(t *testing.T) {
	type wrapper struct {
		Condition Condition `json:"condition"`
	}

	raw, err := json.Marshal(wrapper{Condition: ConditionNearMint})
	require.NoError(t, err)
	assert.JSONEq(t, `{"condition":"NearMint"}`, string(raw))

	var got wrapper
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, ConditionNearMint, got.Condition)
}

func TestConditionUnmarshalRejectsUnknown(t *testing.T) {
	var c Condition
	assert.Error(t, json.Unmarshal([]byte(`"pristine-ish"`), &c))
}
