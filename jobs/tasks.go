package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"

	"github.com/PPA-BE/Orders-At-Peak/internal/purchasing"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskExport renders a stored PO workbook into the artifact store.
	TaskExport = "po:export"
	// TaskPaymentNotify reconciles a PO after a payment change.
	TaskPaymentNotify = "po:payment-notify"
)

// ErrMissingPOID is returned when a task payload has no PO id.
var ErrMissingPOID = errors.New("jobs: po id required")

// ExportPayload identifies the PO to render.
type ExportPayload struct {
	POID string `json:"poId"`
}

// NewExportTask constructs an export task.
func NewExportTask(poID string) (*asynq.Task, error) {
	poID = strings.TrimSpace(poID)
	if poID == "" {
		return nil, ErrMissingPOID
	}
	body, err := json.Marshal(ExportPayload{POID: poID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskExport, body, asynq.Queue(QueueDefault)), nil
}

// NewPaymentNotifyTask wraps a committed payment event.
func NewPaymentNotifyTask(evt purchasing.PaymentEvent) (*asynq.Task, error) {
	if strings.TrimSpace(evt.POID) == "" {
		return nil, ErrMissingPOID
	}
	body, err := json.Marshal(evt)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPaymentNotify, body, asynq.Queue(QueueDefault), asynq.MaxRetry(5)), nil
}

// Client submits jobs to the queue.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisConnOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpts)}
}

// EnqueueExport enqueues a workbook render for the PO.
func (c *Client) EnqueueExport(ctx context.Context, poID string) (*asynq.TaskInfo, error) {
	task, err := NewExportTask(poID)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task)
}

// NotifyPayment implements purchasing.Notifier.
func (c *Client) NotifyPayment(ctx context.Context, evt purchasing.PaymentEvent) error {
	task, err := NewPaymentNotifyTask(evt)
	if err != nil {
		return err
	}
	if _, err := c.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("jobs: enqueue %s: %w", TaskPaymentNotify, err)
	}
	return nil
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}
