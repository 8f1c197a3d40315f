package ebay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardarb/internal/domain"
)

func TestFetchConvertsListings(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/item_summary/search", r.URL.Path)
		assert.Contains(t, r.URL.Query().Get("q"), "Charizard Base Set")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"itemSummaries":[
			{"title":"Charizard Base Set Near Mint","price":{"value":"450.00","currency":"USD"},"condition":"Near Mint","itemWebUrl":"https://ebay.example/1","buyingOptions":["FIXED_PRICE"]},
			{"title":"Charizard Base Set Played","price":{"value":"200.00","currency":"USD"},"condition":"Used","itemWebUrl":"https://ebay.example/2","buyingOptions":["AUCTION"]},
			{"title":"EUR listing","price":{"value":"100.00","currency":"EUR"},"condition":"Near Mint","buyingOptions":["FIXED_PRICE"]},
			{"title":"free listing","price":{"value":"0","currency":"USD"},"condition":"Near Mint","buyingOptions":["FIXED_PRICE"]}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, OAuthToken: "tok"})

	obs, err := c.Fetch(context.Background(), "Charizard Base Set", domain.FetchOptions{})
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok", gotAuth)
	require.Len(t, obs, 2)

	assert.Equal(t, domain.PlatformEBay, obs[0].Platform)
	assert.Equal(t, domain.ConditionNearMint, obs[0].Condition)
	assert.True(t, obs[0].Price.Equal(decimal.NewFromInt(450)))
	assert.Equal(t, "https://ebay.example/1", obs[0].ListingURL)
	assert.False(t, obs[0].Sold)

	// "Used" folds to LightlyPlayed rather than dropping the listing.
	assert.Equal(t, domain.ConditionLightlyPlayed, obs[1].Condition)
}

func TestFetchMarksEndedListingsSold(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"itemSummaries":[
			{"title":"ended","price":{"value":"120.00","currency":"USD"},"condition":"Near Mint","itemEndDate":"2026-08-01T00:00:00Z"}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, IncludeSold: true})

	obs, err := c.Fetch(context.Background(), "Lugia Neo Genesis", domain.FetchOptions{IncludeSold: true})
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.True(t, obs[0].Sold)

	// Sold listings are filtered when the caller does not ask for them.
	obs, err = c.Fetch(context.Background(), "Lugia Neo Genesis", domain.FetchOptions{})
	require.NoError(t, err)
	assert.Empty(t, obs)
}

func TestFetchUpstreamErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})

	_, err := c.Fetch(context.Background(), "Charizard Base Set", domain.FetchOptions{})
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}

func TestFetchRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})

	_, err := c.Fetch(context.Background(), "Charizard Base Set", domain.FetchOptions{})
	assert.ErrorIs(t, err, domain.ErrRateLimited)
}
