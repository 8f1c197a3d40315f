package cloudwatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/aws-sdk-go-v2/service/lambda"

	"cardarb/internal/domain"
)

// ComputeCollector samples Lambda function metrics. Functions are discovered
// by name prefix on every collect, so newly deployed functions show up
// without a config change.
type ComputeCollector struct {
	clients *Clients
	prefix  string
	window  time.Duration
}

// NewComputeCollector creates a collector for functions whose name starts
// with prefix.
func NewComputeCollector(clients *Clients, prefix string, window time.Duration) *ComputeCollector {
	return &ComputeCollector{
		clients: clients,
		prefix:  prefix,
		window:  window,
	}
}

func (c *ComputeCollector) Kind() domain.ResourceKind {
	return domain.ResourceCompute
}

// Collect lists matching functions and pulls their invocation, error,
// throttle, and duration metrics over the sampling window.
func (c *ComputeCollector) Collect(ctx context.Context) ([]domain.ComponentHealthSample, error) {
	names, err := c.listFunctions(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	samples := make([]domain.ComponentHealthSample, 0, len(names))
	for _, name := range names {
		metrics, err := c.functionMetrics(ctx, name, now)
		if err != nil {
			return nil, err
		}
		samples = append(samples, domain.ComponentHealthSample{
			ResourceID: name,
			Kind:       domain.ResourceCompute,
			Compute:    metrics,
			SampledAt:  now,
		})
	}
	return samples, nil
}

func (c *ComputeCollector) listFunctions(ctx context.Context) ([]string, error) {
	var names []string
	paginator := lambda.NewListFunctionsPaginator(c.clients.Lambda, &lambda.ListFunctionsInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("cloudwatch: list functions: %w", err)
		}
		for _, fn := range page.Functions {
			name := aws.ToString(fn.FunctionName)
			if c.prefix == "" || strings.HasPrefix(name, c.prefix) {
				names = append(names, name)
			}
		}
	}
	return names, nil
}

func (c *ComputeCollector) functionMetrics(ctx context.Context, name string, now time.Time) (*domain.ComputeMetrics, error) {
	dims := []cwtypes.Dimension{{
		Name:  aws.String("FunctionName"),
		Value: aws.String(name),
	}}

	invocations, err := c.clients.metricStat(ctx, "AWS/Lambda", "Invocations", dims, cwtypes.StatisticSum, c.window, now)
	if err != nil {
		return nil, err
	}
	errors, err := c.clients.metricStat(ctx, "AWS/Lambda", "Errors", dims, cwtypes.StatisticSum, c.window, now)
	if err != nil {
		return nil, err
	}
	throttles, err := c.clients.metricStat(ctx, "AWS/Lambda", "Throttles", dims, cwtypes.StatisticSum, c.window, now)
	if err != nil {
		return nil, err
	}
	duration, err := c.clients.metricStat(ctx, "AWS/Lambda", "Duration", dims, cwtypes.StatisticAverage, c.window, now)
	if err != nil {
		return nil, err
	}

	return &domain.ComputeMetrics{
		Invocations:   int64(invocations),
		Errors:        int64(errors),
		Throttles:     int64(throttles),
		AvgDurationMs: duration,
	}, nil
}
