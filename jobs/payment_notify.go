package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/PPA-BE/Orders-At-Peak/internal/jobs"
	"github.com/PPA-BE/Orders-At-Peak/internal/purchasing"
)

// Reconciler reads fresh payment totals for a PO.
type Reconciler interface {
	Reconciliation(ctx context.Context, id string) (purchasing.Reconciliation, error)
}

// PaymentNotifyJob logs the reconciliation state after each payment change and
// flags POs whose payments cover the total without being marked paid.
type PaymentNotifyJob struct {
	Reconciler Reconciler
	Logger     *slog.Logger
	Metrics    *jobmetrics.Metrics
}

// NewPaymentNotifyJob wires dependencies for the payment notification handler.
func NewPaymentNotifyJob(reconciler Reconciler, logger *slog.Logger, metrics *jobmetrics.Metrics) *PaymentNotifyJob {
	return &PaymentNotifyJob{Reconciler: reconciler, Logger: logger, Metrics: metrics}
}

// Handle processes TaskPaymentNotify tasks.
func (j *PaymentNotifyJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Reconciler == nil {
		return errors.New("payment notify: handler not configured")
	}
	var evt purchasing.PaymentEvent
	if err := json.Unmarshal(t.Payload(), &evt); err != nil || evt.POID == "" {
		return fmt.Errorf("payment notify: bad payload: %w", asynq.SkipRetry)
	}

	tracker := j.metrics().Track(TaskPaymentNotify)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("po_id", evt.POID), slog.String("kind", evt.Kind), slog.String("actor", evt.Actor))
	rec, err := j.Reconciler.Reconciliation(ctx, evt.POID)
	if err != nil {
		if errors.Is(err, purchasing.ErrNotFound) {
			logger.Warn("payment notify skipped, po not found")
			return fmt.Errorf("payment notify: %w: %w", err, asynq.SkipRetry)
		}
		return err
	}
	logger.Info("payment reconciled",
		slog.String("status", rec.StatusLabel),
		slog.String("total", rec.Total.StringFixed(2)),
		slog.String("paid_total", rec.PaidTotal.StringFixed(2)),
		slog.String("remaining", rec.Remaining.StringFixed(2)))
	if rec.Settled() {
		j.metrics().AddSettled()
		logger.Warn("po fully paid but not marked paid")
	}
	return nil
}

func (j *PaymentNotifyJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *PaymentNotifyJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
