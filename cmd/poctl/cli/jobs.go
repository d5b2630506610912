package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/PPA-BE/Orders-At-Peak/internal/platform/cache"
	"github.com/PPA-BE/Orders-At-Peak/jobs"
)

// JobsCLI wraps manual management helpers for Asynq jobs.
type JobsCLI struct {
	client    *jobs.Client
	inspector *asynq.Inspector
}

// NewJobsCLI initialises the CLI helpers using the provided Redis address.
func NewJobsCLI(redisAddr string) (*JobsCLI, error) {
	opts, err := cache.Options(redisAddr)
	if err != nil {
		return nil, err
	}
	queueOpt := cache.QueueOpt(opts)
	return &JobsCLI{client: jobs.NewClient(queueOpt), inspector: asynq.NewInspector(queueOpt)}, nil
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var err error
	if c.inspector != nil {
		if closeErr := c.inspector.Close(); closeErr != nil {
			err = closeErr
		}
	}
	if c.client != nil {
		if closeErr := c.client.Close(); closeErr != nil {
			err = closeErr
		}
	}
	return err
}

// TriggerExport enqueues a workbook render for the PO.
func (c *JobsCLI) TriggerExport(ctx context.Context, poID string) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	return c.client.EnqueueExport(ctx, poID)
}

// InspectQueue reports the queue metrics for the default queue.
func (c *JobsCLI) InspectQueue(ctx context.Context) (jobs.QueueHealth, error) {
	if c == nil || c.inspector == nil {
		return jobs.QueueHealth{}, errors.New("jobs cli: inspector not configured")
	}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return jobs.QueueHealth{}, err
	}
	return jobs.QueueHealthFromInfo(info), nil
}

// ListRetry returns tasks waiting for another attempt.
func (c *JobsCLI) ListRetry(ctx context.Context, size int) ([]*asynq.TaskInfo, error) {
	if c == nil || c.inspector == nil {
		return nil, errors.New("jobs cli: inspector not configured")
	}
	if size <= 0 {
		size = 10
	}
	return c.inspector.ListRetryTasks(jobs.QueueDefault, asynq.PageSize(size), asynq.Page(1))
}

func (r *Root) jobsCLI() (*JobsCLI, error) {
	cfg, err := r.config()
	if err != nil {
		return nil, err
	}
	return NewJobsCLI(cfg.RedisAddr)
}

func (r *Root) jobsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Enqueue and inspect background jobs",
	}

	exportCmd := &cobra.Command{
		Use:   "export <po-id>",
		Short: "Enqueue a po:export job that stores the rendered workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := r.jobsCLI()
			if err != nil {
				return err
			}
			defer c.Close()
			info, err := c.TriggerExport(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
			return nil
		},
	}

	var retrySize int
	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print queue statistics as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := r.jobsCLI()
			if err != nil {
				return err
			}
			defer c.Close()
			stats, err := c.InspectQueue(cmd.Context())
			if err != nil {
				return err
			}
			out := struct {
				jobs.QueueHealth
				RetryTasks []retryTask `json:"retryTasks,omitempty"`
			}{QueueHealth: stats}
			if retrySize > 0 && stats.Retry > 0 {
				tasks, err := c.ListRetry(cmd.Context(), retrySize)
				if err != nil {
					return err
				}
				for _, t := range tasks {
					out.RetryTasks = append(out.RetryTasks, retryTask{ID: t.ID, Type: t.Type, Retried: t.Retried, LastErr: t.LastErr})
				}
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	inspectCmd.Flags().IntVar(&retrySize, "retry", 0, "also list up to N retrying tasks")

	cmd.AddCommand(exportCmd, inspectCmd)
	return cmd
}

type retryTask struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Retried int    `json:"retried"`
	LastErr string `json:"lastErr,omitempty"`
}
