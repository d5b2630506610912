package export

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/PPA-BE/Orders-At-Peak/internal/platform/httpx"
	"github.com/PPA-BE/Orders-At-Peak/internal/purchasing"
)

// PathExport serves workbook downloads.
const PathExport = "/api/po-export"

var errorStatuses = httpx.StatusMap{
	purchasing.ErrValidation: http.StatusBadRequest,
	purchasing.ErrNotFound:   http.StatusNotFound,
}

// Handler exposes workbook downloads.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers export routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get(PathExport, h.handleByID)
	r.With(httpx.RequireJSON).Post(PathExport, h.handlePayload)
}

func (h *Handler) handleByID(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		httpx.Error(w, http.StatusBadRequest, fmt.Sprintf("%s: id required", purchasing.ErrValidation))
		return
	}
	if refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh")); refresh {
		if err := h.service.Invalidate(r.Context(), id); err != nil {
			h.fail(w, id, err)
			return
		}
	}
	res, err := h.service.ExportByID(r.Context(), id)
	if err != nil {
		h.fail(w, id, err)
		return
	}
	writeWorkbook(w, res)
}

func (h *Handler) handlePayload(w http.ResponseWriter, r *http.Request) {
	var doc purchasing.Document
	if err := httpx.DecodeJSON(w, r, &doc); err != nil {
		httpx.Error(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
		return
	}
	res, err := h.service.ExportDocument(r.Context(), doc)
	if err != nil {
		h.fail(w, doc.POID, err)
		return
	}
	writeWorkbook(w, res)
}

func (h *Handler) fail(w http.ResponseWriter, id string, err error) {
	status := httpx.StatusFor(err, errorStatuses)
	if status >= http.StatusInternalServerError {
		h.logger.Error("export purchase order", slog.String("po_id", id), slog.Any("error", err))
	}
	httpx.Error(w, status, err.Error())
}

func writeWorkbook(w http.ResponseWriter, res Result) {
	w.Header().Set("Content-Type", ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Data)))
	w.Header().Set("X-PO-Subtotal", res.Totals.Subtotal.StringFixed(2))
	w.Header().Set("X-PO-Tax", res.Totals.Tax.StringFixed(2))
	w.Header().Set("X-PO-Total", res.Totals.Grand.StringFixed(2))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Data)
}
