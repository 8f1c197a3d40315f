// Package ebay implements a price observation source backed by the eBay
// Browse API.
package ebay

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"cardarb/internal/domain"
)

// Config holds eBay Browse API access parameters.
type Config struct {
	BaseURL     string
	OAuthToken  string
	IncludeSold bool
	MaxResults  int
}

// Client fetches card listings from the eBay Browse API and converts them to
// price observations.
type Client struct {
	baseURL     string
	token       string
	includeSold bool
	maxResults  int
	httpClient  *http.Client
}

// NewClient creates a new eBay Browse API client.
func NewClient(cfg Config) *Client {
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 50
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		token:       cfg.OAuthToken,
		includeSold: cfg.IncludeSold,
		maxResults:  maxResults,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Platform identifies the marketplace this source observes.
func (c *Client) Platform() domain.Platform {
	return domain.PlatformEBay
}

// browseItem is the subset of the Browse API item summary we consume.
type browseItem struct {
	Title string `json:"title"`
	Price struct {
		Value    string `json:"value"`
		Currency string `json:"currency"`
	} `json:"price"`
	Condition     string   `json:"condition"`
	ItemWebURL    string   `json:"itemWebUrl"`
	ItemEndDate   string   `json:"itemEndDate"`
	BuyingOptions []string `json:"buyingOptions"`
}

// Fetch searches active listings for the card and returns them as price
// observations. Listings whose condition or price cannot be interpreted are
// skipped; the caller's evaluator reports malformed records, so Fetch only
// drops entries that never form a valid observation.
func (c *Client) Fetch(ctx context.Context, cardName string, opts domain.FetchOptions) ([]domain.PriceObservation, error) {
	limit := c.maxResults
	if opts.Limit > 0 && opts.Limit < limit {
		limit = opts.Limit
	}

	params := url.Values{}
	params.Set("q", cardName+" card")
	params.Set("limit", strconv.Itoa(limit))
	if opts.MaxPrice.IsPositive() {
		params.Set("filter", "price:[.."+opts.MaxPrice.StringFixed(2)+"],priceCurrency:USD")
	}

	body, err := c.doRequest(ctx, "/item_summary/search?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("ebay: search %q: %w", cardName, err)
	}

	var resp struct {
		ItemSummaries []browseItem `json:"itemSummaries"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("ebay: decode search response: %w", err)
	}

	now := time.Now().UTC()
	obs := make([]domain.PriceObservation, 0, len(resp.ItemSummaries))
	for _, item := range resp.ItemSummaries {
		o, ok := c.toObservation(item, cardName, now)
		if !ok {
			continue
		}
		if o.Sold && !(c.includeSold && opts.IncludeSold) {
			continue
		}
		obs = append(obs, o)
	}
	return obs, nil
}

func (c *Client) toObservation(item browseItem, cardName string, now time.Time) (domain.PriceObservation, bool) {
	if item.Price.Currency != "" && item.Price.Currency != "USD" {
		return domain.PriceObservation{}, false
	}
	price, err := decimal.NewFromString(item.Price.Value)
	if err != nil || !price.IsPositive() {
		return domain.PriceObservation{}, false
	}

	condition := domain.ConditionNearMint
	if item.Condition != "" {
		parsed, err := domain.ParseCondition(item.Condition)
		if err != nil {
			// eBay's generic grades ("New", "Used") are not card grades; map
			// them coarsely instead of dropping the listing.
			switch strings.ToLower(item.Condition) {
			case "new", "brand new":
				condition = domain.ConditionNearMint
			case "used", "pre-owned":
				condition = domain.ConditionLightlyPlayed
			default:
				return domain.PriceObservation{}, false
			}
		} else {
			condition = parsed
		}
	}

	sold := len(item.BuyingOptions) == 0 && item.ItemEndDate != ""

	return domain.PriceObservation{
		CardName:   cardName,
		Platform:   domain.PlatformEBay,
		Condition:  condition,
		Price:      price,
		ObservedAt: now,
		ListingURL: item.ItemWebURL,
		Sold:       sold,
	}, true
}

func (c *Client) doRequest(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, domain.ErrRateLimited
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", domain.ErrUpstreamUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
