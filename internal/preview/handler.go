package preview

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/PPA-BE/Orders-At-Peak/internal/platform/httpx"
	"github.com/PPA-BE/Orders-At-Peak/internal/purchasing"
)

// PathPreview serves HTML and PDF previews.
const PathPreview = "/api/po-preview"

var errorStatuses = httpx.StatusMap{
	purchasing.ErrValidation: http.StatusBadRequest,
	purchasing.ErrNotFound:   http.StatusNotFound,
	ErrPDFUnavailable:        http.StatusServiceUnavailable,
}

// Handler exposes previews over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers preview routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get(PathPreview, h.handleByID)
	r.With(httpx.RequireJSON).Post(PathPreview, h.handlePayload)
}

func (h *Handler) handleByID(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		httpx.Error(w, http.StatusBadRequest, fmt.Sprintf("%s: id required", purchasing.ErrValidation))
		return
	}
	doc, err := h.service.Load(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.write(w, r, doc)
}

func (h *Handler) handlePayload(w http.ResponseWriter, r *http.Request) {
	var doc purchasing.Document
	if err := httpx.DecodeJSON(w, r, &doc); err != nil {
		httpx.Error(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
		return
	}
	h.write(w, r, doc)
}

func (h *Handler) write(w http.ResponseWriter, r *http.Request, doc purchasing.Document) {
	if r.URL.Query().Get("format") == "pdf" {
		pdf, err := h.service.PDF(r.Context(), doc)
		if err != nil {
			h.fail(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", pdfName(doc.POID)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(pdf)
		return
	}
	html, err := h.service.HTML(doc)
	if err != nil {
		h.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(html))
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	status := httpx.StatusFor(err, errorStatuses)
	if status >= http.StatusInternalServerError {
		h.logger.Error("render preview", slog.Any("error", err))
	}
	httpx.Error(w, status, err.Error())
}

func pdfName(poID string) string {
	if poID == "" {
		poID = "PO"
	}
	return poID + ".pdf"
}
