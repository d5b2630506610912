package preview

import (
	"context"
	"errors"
	"fmt"

	"github.com/PPA-BE/Orders-At-Peak/internal/purchasing"
)

// ErrPDFUnavailable is returned when no PDF converter is configured.
var ErrPDFUnavailable = errors.New("preview: pdf rendering not configured")

// DocumentSource loads stored POs as render payloads.
type DocumentSource interface {
	Document(ctx context.Context, id string) (purchasing.Document, error)
}

// PDFConverter turns a standalone HTML page into a PDF.
type PDFConverter interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// Service resolves documents and renders them as HTML or PDF.
type Service struct {
	docs     DocumentSource
	renderer *Renderer
	pdf      PDFConverter
}

// NewService constructs the preview service. pdf may be nil.
func NewService(docs DocumentSource, renderer *Renderer, pdf PDFConverter) *Service {
	return &Service{docs: docs, renderer: renderer, pdf: pdf}
}

// Load fetches a stored PO.
func (s *Service) Load(ctx context.Context, id string) (purchasing.Document, error) {
	return s.docs.Document(ctx, id)
}

// HTML renders the preview fragment.
func (s *Service) HTML(doc purchasing.Document) (string, error) {
	return s.renderer.RenderString(doc)
}

// PDF renders the standalone page and converts it.
func (s *Service) PDF(ctx context.Context, doc purchasing.Document) ([]byte, error) {
	if s.pdf == nil {
		return nil, ErrPDFUnavailable
	}
	html, err := s.renderer.RenderDocument(doc)
	if err != nil {
		return nil, err
	}
	pdf, err := s.pdf.RenderHTML(ctx, html)
	if err != nil {
		return nil, fmt.Errorf("preview: convert pdf: %w", err)
	}
	return pdf, nil
}
