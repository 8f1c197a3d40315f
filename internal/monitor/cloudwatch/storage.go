package cloudwatch

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"cardarb/internal/domain"
)

// StorageCollector samples DynamoDB table capacity and size. Provisioned
// units come from DescribeTable; consumed units come from CloudWatch over
// the sampling window. On-demand tables report zero provisioned units.
type StorageCollector struct {
	clients *Clients
	tables  []string
	window  time.Duration
}

// NewStorageCollector creates a collector for the named tables.
func NewStorageCollector(clients *Clients, tables []string, window time.Duration) *StorageCollector {
	return &StorageCollector{
		clients: clients,
		tables:  tables,
		window:  window,
	}
}

func (c *StorageCollector) Kind() domain.ResourceKind {
	return domain.ResourceStorage
}

func (c *StorageCollector) Collect(ctx context.Context) ([]domain.ComponentHealthSample, error) {
	now := time.Now().UTC()
	samples := make([]domain.ComponentHealthSample, 0, len(c.tables))
	for _, table := range c.tables {
		metrics, err := c.tableMetrics(ctx, table, now)
		if err != nil {
			return nil, err
		}
		samples = append(samples, domain.ComponentHealthSample{
			ResourceID: table,
			Kind:       domain.ResourceStorage,
			Storage:    metrics,
			SampledAt:  now,
		})
	}
	return samples, nil
}

func (c *StorageCollector) tableMetrics(ctx context.Context, table string, now time.Time) (*domain.StorageMetrics, error) {
	desc, err := c.clients.DynamoDB.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(table),
	})
	if err != nil {
		return nil, fmt.Errorf("cloudwatch: describe table %s: %w", table, err)
	}

	metrics := &domain.StorageMetrics{
		ItemCount: aws.ToInt64(desc.Table.ItemCount),
		SizeBytes: aws.ToInt64(desc.Table.TableSizeBytes),
	}
	if tp := desc.Table.ProvisionedThroughput; tp != nil {
		metrics.ProvisionedReadUnits = float64(aws.ToInt64(tp.ReadCapacityUnits))
		metrics.ProvisionedWriteUnits = float64(aws.ToInt64(tp.WriteCapacityUnits))
	}

	dims := []cwtypes.Dimension{{
		Name:  aws.String("TableName"),
		Value: aws.String(table),
	}}
	read, err := c.clients.metricStat(ctx, "AWS/DynamoDB", "ConsumedReadCapacityUnits", dims, cwtypes.StatisticSum, c.window, now)
	if err != nil {
		return nil, err
	}
	write, err := c.clients.metricStat(ctx, "AWS/DynamoDB", "ConsumedWriteCapacityUnits", dims, cwtypes.StatisticSum, c.window, now)
	if err != nil {
		return nil, err
	}

	// Consumed sums are per window; normalize to per-second units so they
	// compare against the provisioned per-second capacity.
	seconds := c.window.Seconds()
	if seconds > 0 {
		metrics.ConsumedReadUnits = read / seconds
		metrics.ConsumedWriteUnits = write / seconds
	}
	return metrics, nil
}
