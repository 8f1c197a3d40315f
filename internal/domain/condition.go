package domain

import (
	"fmt"
	"strings"
)

// Condition is the graded physical condition of a card. Values are ordered:
// a higher condition is strictly better, and Tier exposes the ordering for
// risk calculations.
type Condition int

const (
	ConditionDamaged Condition = iota + 1
	ConditionPlayed
	ConditionLightlyPlayed
	ConditionNearMint
	ConditionMint
)

var conditionNames = map[Condition]string{
	ConditionDamaged:       "Damaged",
	ConditionPlayed:        "Played",
	ConditionLightlyPlayed: "LightlyPlayed",
	ConditionNearMint:      "NearMint",
	ConditionMint:          "Mint",
}

// conditionAliases folds the many marketplace spellings into the five tiers.
// Graded-slab labels collapse onto the nearest raw tier.
var conditionAliases = map[string]Condition{
	"damaged":           ConditionDamaged,
	"dmg":               ConditionDamaged,
	"poor":              ConditionDamaged,
	"heavily played":    ConditionPlayed,
	"hp":                ConditionPlayed,
	"moderately played": ConditionPlayed,
	"mp":                ConditionPlayed,
	"played":            ConditionPlayed,
	"good":              ConditionPlayed,
	"gd":                ConditionPlayed,
	"lightly played":    ConditionLightlyPlayed,
	"light play":        ConditionLightlyPlayed,
	"lp":                ConditionLightlyPlayed,
	"excellent":         ConditionLightlyPlayed,
	"ex":                ConditionLightlyPlayed,
	"very good":         ConditionLightlyPlayed,
	"vg":                ConditionLightlyPlayed,
	"near mint":         ConditionNearMint,
	"nearmint":          ConditionNearMint,
	"nm":                ConditionNearMint,
	"nm/mint":           ConditionNearMint,
	"near mint or better": ConditionNearMint,
	"mint":              ConditionMint,
	"gem mint":          ConditionMint,
	"pristine":          ConditionMint,
	"lightlyplayed":     ConditionLightlyPlayed,
}

// ParseCondition converts a marketplace condition label to a Condition.
func ParseCondition(s string) (Condition, error) {
	key := strings.ToLower(strings.Join(strings.Fields(s), " "))
	if c, ok := conditionAliases[key]; ok {
		return c, nil
	}
	return 0, fmt.Errorf("unknown card condition %q", s)
}

// Tier returns the numeric rank of the condition, higher is better.
func (c Condition) Tier() int {
	return int(c)
}

// Valid reports whether c is one of the defined tiers.
func (c Condition) Valid() bool {
	_, ok := conditionNames[c]
	return ok
}

func (c Condition) String() string {
	if name, ok := conditionNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Condition(%d)", int(c))
}

// MarshalJSON encodes the condition as its canonical name.
func (c Condition) MarshalJSON() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("marshal condition: invalid value %d", int(c))
	}
	return []byte(`"` + conditionNames[c] + `"`), nil
}

// UnmarshalJSON decodes a condition from its canonical name or a known alias.
func (c *Condition) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := ParseCondition(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
