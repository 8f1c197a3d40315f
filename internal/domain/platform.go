// Package domain defines the core data model shared across the card arbitrage
// service: price observations, arbitrage opportunities, infrastructure health
// samples, and the interfaces implemented by stores, caches, and collectors.
package domain

import (
	"fmt"
	"strings"
)

// Platform identifies a marketplace where card prices are observed.
type Platform string

const (
	PlatformEBay      Platform = "ebay"
	PlatformTCGPlayer Platform = "tcgplayer"
	PlatformAmazon    Platform = "amazon"
	PlatformOther     Platform = "other"
)

// Platforms lists every known platform in a stable order.
var Platforms = []Platform{
	PlatformEBay,
	PlatformTCGPlayer,
	PlatformAmazon,
	PlatformOther,
}

// platformNames maps each platform to its display name. The table is the
// single source of truth; adding a platform means extending this map and the
// Platforms slice together.
var platformNames = map[Platform]string{
	PlatformEBay:      "eBay",
	PlatformTCGPlayer: "TCGplayer",
	PlatformAmazon:    "Amazon",
	PlatformOther:     "Other",
}

// ParsePlatform converts a raw marketplace identifier to a Platform. Unknown
// identifiers map to PlatformOther rather than failing, since collectors can
// encounter marketplaces that were added upstream before this service learned
// about them.
func ParsePlatform(s string) Platform {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := platformNames[p]; ok {
		return p
	}
	return PlatformOther
}

// Valid reports whether p is one of the known platforms.
func (p Platform) Valid() bool {
	_, ok := platformNames[p]
	return ok
}

// DisplayName returns the human-readable marketplace name.
func (p Platform) DisplayName() string {
	if name, ok := platformNames[p]; ok {
		return name
	}
	return platformNames[PlatformOther]
}

// PlatformPair is a directed buy/sell platform combination.
type PlatformPair struct {
	Buy  Platform `json:"buy"`
	Sell Platform `json:"sell"`
}

// String renders the pair in the "<buy>-to-<sell>" wire format used by the
// opportunities endpoint and by storage indexes.
func (pp PlatformPair) String() string {
	return string(pp.Buy) + "-to-" + string(pp.Sell)
}

// ParsePlatformPair parses the "<buy>-to-<sell>" wire format.
func ParsePlatformPair(s string) (PlatformPair, error) {
	buyRaw, sellRaw, ok := strings.Cut(strings.TrimSpace(s), "-to-")
	if !ok {
		return PlatformPair{}, fmt.Errorf("platform pair %q: want \"<buy>-to-<sell>\"", s)
	}
	buy := Platform(strings.ToLower(buyRaw))
	sell := Platform(strings.ToLower(sellRaw))
	if !buy.Valid() {
		return PlatformPair{}, fmt.Errorf("platform pair %q: unknown buy platform %q", s, buyRaw)
	}
	if !sell.Valid() {
		return PlatformPair{}, fmt.Errorf("platform pair %q: unknown sell platform %q", s, sellRaw)
	}
	return PlatformPair{Buy: buy, Sell: sell}, nil
}
