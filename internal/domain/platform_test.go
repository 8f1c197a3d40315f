package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlatform(t *testing.T) {
	assert.Equal(t, PlatformEBay, ParsePlatform("eBay"))
	assert.Equal(t, PlatformTCGPlayer, ParsePlatform(" tcgplayer "))
	assert.Equal(t, PlatformAmazon, ParsePlatform("AMAZON"))
	assert.Equal(t, PlatformOther, ParsePlatform("cardmarket"))
	assert.Equal(t, PlatformOther, ParsePlatform(""))
}

func TestPlatformPairString(t *testing.T) {
	pair := PlatformPair{Buy: PlatformTCGPlayer, Sell: PlatformEBay}
	assert.Equal(t, "tcgplayer-to-ebay", pair.String())
}

func TestParsePlatformPairRoundTrip(t *testing.T) {
	for _, buy := range Platforms {
		for _, sell := range Platforms {
			pair := PlatformPair{Buy: buy, Sell: sell}
			got, err := ParsePlatformPair(pair.String())
			require.NoError(t, err)
			assert.Equal(t, pair, got)
		}
	}
}

func TestParsePlatformPairRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "ebay", "ebay-to", "-to-ebay", "ebay->amazon"} {
		_, err := ParsePlatformPair(raw)
		assert.Error(t, err, raw)
	}
}

func TestNormalizeCardName(t *testing.T) {
	assert.Equal(t, "charizard base set", NormalizeCardName("  Charizard   Base Set "))
	assert.Equal(t, NormalizeCardName("PIKACHU"), NormalizeCardName("pikachu"))
}
