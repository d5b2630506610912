package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/PPA-BE/Orders-At-Peak/internal/export"
	jobmetrics "github.com/PPA-BE/Orders-At-Peak/internal/jobs"
	"github.com/PPA-BE/Orders-At-Peak/internal/purchasing"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// Preparer renders and stores a PO workbook.
type Preparer interface {
	Prepare(ctx context.Context, id string) (export.Result, error)
}

// ExportJob renders stored POs ahead of download.
type ExportJob struct {
	Exporter Preparer
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewExportJob wires dependencies for the export handler.
func NewExportJob(exporter Preparer, logger *slog.Logger, metrics *jobmetrics.Metrics) *ExportJob {
	return &ExportJob{Exporter: exporter, Logger: logger, Metrics: metrics}
}

// Handle processes TaskExport tasks.
func (j *ExportJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Exporter == nil {
		return errors.New("export job: handler not configured")
	}
	var payload ExportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.POID == "" {
		return fmt.Errorf("export job: bad payload: %w", asynq.SkipRetry)
	}

	tracker := j.metrics().Track(TaskExport)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("po_id", payload.POID))
	res, err := j.Exporter.Prepare(ctx, payload.POID)
	if err != nil {
		if errors.Is(err, purchasing.ErrNotFound) {
			logger.Warn("export skipped, po not found")
			return fmt.Errorf("export job: %w: %w", err, asynq.SkipRetry)
		}
		logger.Error("prepare export", slog.Any("error", err))
		return err
	}
	logger.Info("export stored", slog.String("filename", res.Filename), slog.Int("bytes", len(res.Data)))
	return nil
}

func (j *ExportJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *ExportJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
