package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PriceObservation is one raw price datum for a card on a platform. It is
// immutable once recorded, owned by the collection layer; the core only reads
// it. Sold distinguishes completed-sale data from active listings.
type PriceObservation struct {
	CardName   string          `json:"card_name"`
	Platform   Platform        `json:"platform"`
	Condition  Condition       `json:"condition"`
	Price      decimal.Decimal `json:"price"`
	ObservedAt time.Time       `json:"observed_at"`
	ListingURL string          `json:"listing_url,omitempty"`
	Sold       bool            `json:"sold"`
}

// NormalizeCardName canonicalizes a card name for grouping and comparison:
// surrounding and repeated inner whitespace is collapsed and the result is
// lowercased.
func NormalizeCardName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// NormalizedCard returns the canonical grouping key for the observation.
func (o PriceObservation) NormalizedCard() string {
	return NormalizeCardName(o.CardName)
}

// Validate reports the first defect that makes the observation unusable, or
// nil when the record is well formed.
func (o PriceObservation) Validate() *ValidationError {
	if strings.TrimSpace(o.CardName) == "" {
		return &ValidationError{Field: "card_name", Reason: "must not be empty"}
	}
	if !o.Platform.Valid() {
		return &ValidationError{Field: "platform", Reason: "unknown platform " + string(o.Platform)}
	}
	if !o.Condition.Valid() {
		return &ValidationError{Field: "condition", Reason: "unknown condition tier"}
	}
	if !o.Price.IsPositive() {
		return &ValidationError{Field: "price", Reason: "must be greater than zero"}
	}
	if o.ObservedAt.IsZero() {
		return &ValidationError{Field: "observed_at", Reason: "must be set"}
	}
	return nil
}
