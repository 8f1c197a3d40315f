package cloudwatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
	sfntypes "github.com/aws/aws-sdk-go-v2/service/sfn/types"

	"cardarb/internal/domain"
)

// WorkflowCollector samples Step Functions execution outcomes for one state
// machine over the sampling window.
type WorkflowCollector struct {
	clients  *Clients
	machine  string
	window   time.Duration
}

// NewWorkflowCollector creates a collector for the given state machine ARN.
func NewWorkflowCollector(clients *Clients, stateMachineARN string, window time.Duration) *WorkflowCollector {
	return &WorkflowCollector{
		clients: clients,
		machine: stateMachineARN,
		window:  window,
	}
}

func (c *WorkflowCollector) Kind() domain.ResourceKind {
	return domain.ResourceWorkflow
}

func (c *WorkflowCollector) Collect(ctx context.Context) ([]domain.ComponentHealthSample, error) {
	now := time.Now().UTC()
	cutoff := now.Add(-c.window)

	var metrics domain.WorkflowMetrics
	paginator := sfn.NewListExecutionsPaginator(c.clients.SFN, &sfn.ListExecutionsInput{
		StateMachineArn: aws.String(c.machine),
	})
pages:
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("cloudwatch: list executions: %w", err)
		}
		for _, exec := range page.Executions {
			// Executions come newest first; stop at the window edge.
			if exec.StartDate != nil && exec.StartDate.Before(cutoff) {
				break pages
			}
			metrics.Executions++
			switch exec.Status {
			case sfntypes.ExecutionStatusSucceeded:
				metrics.Succeeded++
			case sfntypes.ExecutionStatusFailed, sfntypes.ExecutionStatusAborted:
				metrics.Failed++
			case sfntypes.ExecutionStatusTimedOut:
				metrics.TimedOut++
			}
		}
	}

	return []domain.ComponentHealthSample{{
		ResourceID: machineName(c.machine),
		Kind:       domain.ResourceWorkflow,
		Workflow:   &metrics,
		SampledAt:  now,
	}}, nil
}

// machineName extracts the human-readable name from a state machine ARN.
func machineName(arn string) string {
	if i := strings.LastIndex(arn, ":"); i >= 0 {
		return arn[i+1:]
	}
	return arn
}
