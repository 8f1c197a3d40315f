// Package tcgplayer implements a price observation source backed by the
// TCGplayer catalog and pricing APIs.
package tcgplayer

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

// Config holds TCGplayer API access parameters.
type Config struct {
	BaseURL     string
	BearerToken string
	MaxResults  int
}

// Client fetches card market prices from TCGplayer and converts them to price
// observations.
type Client struct {
	baseURL    string
	token      string
	maxResults int
	httpClient *http.Client
}

// NewClient creates a new TCGplayer API client.
func NewClient(cfg Config) *Client {
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 50
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.BearerToken,
		maxResults: maxResults,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Platform identifies the marketplace this source observes.
func (c *Client) Platform() domain.Platform {
	return domain.PlatformTCGPlayer
}

type productResult struct {
	ProductID int    `json:"productId"`
	Name      string `json:"name"`
	URL       string `json:"url"`
}

type priceResult struct {
	ProductID   int      `json:"productId"`
	SubTypeName string   `json:"subTypeName"`
	MarketPrice *float64 `json:"marketPrice"`
	LowPrice    *float64 `json:"lowPrice"`
}

// Fetch resolves the card to catalog products and returns their current
// market prices as observations. TCGplayer quotes prices per printing rather
// than per listing, so each product contributes at most one observation.
func (c *Client) Fetch(ctx context.Context, cardName string, opts domain.FetchOptions) ([]domain.PriceObservation, error) {
	products, err := c.searchProducts(ctx, cardName, opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("tcgplayer: search %q: %w", cardName, err)
	}
	if len(products) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(products))
	urls := make(map[int]string, len(products))
	for _, p := range products {
		ids = append(ids, strconv.Itoa(p.ProductID))
		urls[p.ProductID] = p.URL
	}

	prices, err := c.productPrices(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("tcgplayer: prices for %q: %w", cardName, err)
	}

	now := time.Now().UTC()
	obs := make([]domain.PriceObservation, 0, len(prices))
	for _, pr := range prices {
		value := pr.MarketPrice
		if value == nil {
			value = pr.LowPrice
		}
		if value == nil || *value <= 0 {
			continue
		}
		price := decimal.NewFromFloat(*value)
		if opts.MaxPrice.IsPositive() && price.GreaterThan(opts.MaxPrice) {
			continue
		}
		obs = append(obs, domain.PriceObservation{
			CardName:   cardName,
			Platform:   domain.PlatformTCGPlayer,
			Condition:  domain.ConditionNearMint, // market price quotes assume NM
			Price:      price,
			ObservedAt: now,
			ListingURL: urls[pr.ProductID],
		})
	}
	return obs, nil
}

func (c *Client) searchProducts(ctx context.Context, cardName string, limit int) ([]productResult, error) {
	max := c.maxResults
	if limit > 0 && limit < max {
		max = limit
	}
	params := url.Values{}
	params.Set("productName", cardName)
	params.Set("limit", strconv.Itoa(max))

	body, err := c.doRequest(ctx, "/catalog/products?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var resp struct {
		Results []productResult `json:"results"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	return resp.Results, nil
}

func (c *Client) productPrices(ctx context.Context, productIDs []string) ([]priceResult, error) {
	body, err := c.doRequest(ctx, "/pricing/product/"+strings.Join(productIDs, ","))
	if err != nil {
		return nil, err
	}

	var resp struct {
		Results []priceResult `json:"results"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode prices: %w", err)
	}
	return resp.Results, nil
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
