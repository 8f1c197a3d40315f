// Package cloudwatch collects raw operational samples for the health
// aggregator from AWS: Lambda and API Gateway metrics via CloudWatch,
// DynamoDB table stats, and Step Functions execution outcomes. Collectors
// return counters only; severity classification happens in the aggregator.
package cloudwatch

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	cw "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
)

// Clients bundles the AWS service clients the collectors share.
type Clients struct {
	CloudWatch *cw.Client
	Lambda     *lambda.Client
	DynamoDB   *dynamodb.Client
	SFN        *sfn.Client
}

// New loads the default AWS configuration for the region and builds the
// service clients. Credentials come from the environment or instance role.
func New(ctx context.Context, region string) (*Clients, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("cloudwatch: load aws config: %w", err)
	}
	return &Clients{
		CloudWatch: cw.NewFromConfig(awsCfg),
		Lambda:     lambda.NewFromConfig(awsCfg),
		DynamoDB:   dynamodb.NewFromConfig(awsCfg),
		SFN:        sfn.NewFromConfig(awsCfg),
	}, nil
}

// metricStat fetches one aggregated statistic for a metric over the window.
// CloudWatch returns one datapoint per period; the window is used as a single
// period so the datapoints collapse to at most one value.
func (c *Clients) metricStat(ctx context.Context, namespace, metric string, dims []cwtypes.Dimension, stat cwtypes.Statistic, window time.Duration, now time.Time) (float64, error) {
	period := int32(window.Seconds())
	if period < 60 {
		period = 60
	}

	out, err := c.CloudWatch.GetMetricStatistics(ctx, &cw.GetMetricStatisticsInput{
		Namespace:  aws.String(namespace),
		MetricName: aws.String(metric),
		Dimensions: dims,
		StartTime:  aws.Time(now.Add(-window)),
		EndTime:    aws.Time(now),
		Period:     aws.Int32(period),
		Statistics: []cwtypes.Statistic{stat},
	})
	if err != nil {
		return 0, fmt.Errorf("cloudwatch: get %s/%s: %w", namespace, metric, err)
	}

	var total float64
	var count int
	for _, dp := range out.Datapoints {
		switch stat {
		case cwtypes.StatisticSum:
			if dp.Sum != nil {
				total += *dp.Sum
			}
		case cwtypes.StatisticAverage:
			if dp.Average != nil {
				total += *dp.Average
				count++
			}
		}
	}
	if stat == cwtypes.StatisticAverage && count > 0 {
		total /= float64(count)
	}
	return total, nil
}
