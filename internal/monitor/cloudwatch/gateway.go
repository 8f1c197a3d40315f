package cloudwatch

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"cardarb/internal/domain"
)

// GatewayCollector samples API Gateway request and error counts for one API.
type GatewayCollector struct {
	clients *Clients
	apiName string
	window  time.Duration
}

// NewGatewayCollector creates a collector for the named API.
func NewGatewayCollector(clients *Clients, apiName string, window time.Duration) *GatewayCollector {
	return &GatewayCollector{
		clients: clients,
		apiName: apiName,
		window:  window,
	}
}

func (c *GatewayCollector) Kind() domain.ResourceKind {
	return domain.ResourceGateway
}

func (c *GatewayCollector) Collect(ctx context.Context) ([]domain.ComponentHealthSample, error) {
	now := time.Now().UTC()
	dims := []cwtypes.Dimension{{
		Name:  aws.String("ApiName"),
		Value: aws.String(c.apiName),
	}}

	requests, err := c.clients.metricStat(ctx, "AWS/ApiGateway", "Count", dims, cwtypes.StatisticSum, c.window, now)
	if err != nil {
		return nil, err
	}
	errors4xx, err := c.clients.metricStat(ctx, "AWS/ApiGateway", "4XXError", dims, cwtypes.StatisticSum, c.window, now)
	if err != nil {
		return nil, err
	}
	errors5xx, err := c.clients.metricStat(ctx, "AWS/ApiGateway", "5XXError", dims, cwtypes.StatisticSum, c.window, now)
	if err != nil {
		return nil, err
	}
	latency, err := c.clients.metricStat(ctx, "AWS/ApiGateway", "Latency", dims, cwtypes.StatisticAverage, c.window, now)
	if err != nil {
		return nil, err
	}

	return []domain.ComponentHealthSample{{
		ResourceID: c.apiName,
		Kind:       domain.ResourceGateway,
		Gateway: &domain.GatewayMetrics{
			Requests:     int64(requests),
			Errors4xx:    int64(errors4xx),
			Errors5xx:    int64(errors5xx),
			AvgLatencyMs: latency,
		},
		SampledAt: now,
	}}, nil
}
