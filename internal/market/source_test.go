package market

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardarb/internal/domain"
)

type stubSource struct {
	platform domain.Platform
	obs      []domain.PriceObservation
	err      error
}

func (s *stubSource) Platform() domain.Platform { return s.platform }

func (s *stubSource) Fetch(_ context.Context, _ string, _ domain.FetchOptions) ([]domain.PriceObservation, error) {
	return s.obs, s.err
}

func TestFetchAllMergesAcrossSources(t *testing.T) {
	ebay := &stubSource{platform: domain.PlatformEBay, obs: []domain.PriceObservation{
		{Platform: domain.PlatformEBay, CardName: "Charizard", Price: decimal.NewFromInt(580)},
	}}
	tcg := &stubSource{platform: domain.PlatformTCGPlayer, obs: []domain.PriceObservation{
		{Platform: domain.PlatformTCGPlayer, CardName: "Charizard", Price: decimal.NewFromInt(450)},
	}}
	ms := NewMultiSource([]domain.ObservationSource{tcg, ebay}, slog.Default())

	merged, diags := ms.FetchAll(context.Background(), "Charizard", domain.FetchOptions{})

	require.Len(t, merged, 2)
	assert.Empty(t, diags)
	assert.Equal(t, domain.PlatformTCGPlayer, merged[0].Platform)
	assert.Equal(t, domain.PlatformEBay, merged[1].Platform)
}

func TestFetchAllFailedSourceBecomesDiagnostic(t *testing.T) {
	good := &stubSource{platform: domain.PlatformTCGPlayer, obs: []domain.PriceObservation{
		{Platform: domain.PlatformTCGPlayer, CardName: "Charizard", Price: decimal.NewFromInt(450)},
	}}
	broken := &stubSource{platform: domain.PlatformEBay, err: errors.New("browse: 503")}
	ms := NewMultiSource([]domain.ObservationSource{good, broken}, slog.Default())

	merged, diags := ms.FetchAll(context.Background(), "Charizard", domain.FetchOptions{})

	require.Len(t, merged, 1)
	require.Len(t, diags, 1)
	assert.Equal(t, "ebay", diags[0].Source)
	assert.Equal(t, "browse: 503", diags[0].Reason)

	// Source-scoped diagnostics carry no record index.
	raw, err := json.Marshal(diags[0])
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "record")
}
