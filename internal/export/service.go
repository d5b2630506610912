package export

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/PPA-BE/Orders-At-Peak/internal/purchasing"
)

// DocumentSource loads stored POs as render payloads.
type DocumentSource interface {
	Document(ctx context.Context, id string) (purchasing.Document, error)
}

// Recorder counts exports by source.
type Recorder interface {
	RecordExport(source string)
}

// Export sources reported to the Recorder.
const (
	SourceRendered = "rendered"
	SourceStored   = "stored"
)

// Service produces workbooks for stored or posted POs.
type Service struct {
	docs      DocumentSource
	loader    *TemplateLoader
	projector *Projector
	store     *ArtifactStore
	recorder  Recorder
	logger    *slog.Logger
}

// NewService wires the export flow. store and recorder may be nil.
func NewService(docs DocumentSource, loader *TemplateLoader, projector *Projector, store *ArtifactStore, recorder Recorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{docs: docs, loader: loader, projector: projector, store: store, recorder: recorder, logger: logger}
}

// ExportByID serves a stored artifact when present, otherwise renders the PO.
func (s *Service) ExportByID(ctx context.Context, id string) (Result, error) {
	if res, ok, err := s.store.Get(ctx, id); err != nil {
		s.logger.Warn("read export artifact", slog.String("po_id", id), slog.Any("error", err))
	} else if ok {
		s.record(SourceStored)
		return res, nil
	}
	doc, err := s.docs.Document(ctx, id)
	if err != nil {
		return Result{}, err
	}
	return s.ExportDocument(ctx, doc)
}

// ExportDocument renders a posted payload.
func (s *Service) ExportDocument(ctx context.Context, doc purchasing.Document) (Result, error) {
	tpl, err := s.loader.Load(ctx)
	if err != nil {
		return Result{}, err
	}
	res, err := s.projector.Render(tpl, doc)
	if err != nil {
		return Result{}, err
	}
	s.record(SourceRendered)
	return res, nil
}

// Prepare renders a stored PO and keeps the artifact for later downloads.
func (s *Service) Prepare(ctx context.Context, id string) (Result, error) {
	doc, err := s.docs.Document(ctx, id)
	if err != nil {
		return Result{}, err
	}
	res, err := s.ExportDocument(ctx, doc)
	if err != nil {
		return Result{}, err
	}
	if err := s.store.Put(ctx, id, res); err != nil {
		return Result{}, fmt.Errorf("export: store artifact: %w", err)
	}
	return res, nil
}

// Invalidate drops the stored workbook for id, so the next export renders
// against the current template.
func (s *Service) Invalidate(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("export: drop artifact: %w", err)
	}
	return nil
}

func (s *Service) record(source string) {
	if s.recorder != nil {
		s.recorder.RecordExport(source)
	}
}
