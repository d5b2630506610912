package purchasing

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/PPA-BE/Orders-At-Peak/internal/platform/httpx"
	"github.com/PPA-BE/Orders-At-Peak/internal/shared"
)

// Route paths. The function aliases keep older clients working.
const (
	PathList            = "/api/po-list"
	PathListAlias       = "/.netlify/functions/po-list"
	PathGet             = "/api/po-get"
	PathCreate          = "/api/po-create"
	PathSetPONumber     = "/api/po-set-epicor"
	PathUpdateStatus    = "/api/po-update-status"
	PathMarkPaid        = "/api/po-mark-paid"
	PathAddPayment      = "/api/po-add-payment"
	PathAddPaymentAlias = "/.netlify/functions/po-add-payment"
)

var errorStatuses = httpx.StatusMap{
	ErrValidation: http.StatusBadRequest,
	ErrNotFound:   http.StatusNotFound,
}

// Handler serves the purchase order JSON API.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	v := validator.New()
	v.RegisterTagNameFunc(jsonFieldName)
	return &Handler{logger: logger, service: service, validator: v}
}

func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "-" || name == "" {
		return fld.Name
	}
	return name
}

// MountRoutes registers purchase order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.HandleFunc(PathList, h.handleList)
	r.HandleFunc(PathListAlias, h.handleList)
	r.Get(PathGet, h.handleGet)
	for _, path := range []string{PathCreate, PathSetPONumber, PathUpdateStatus, PathMarkPaid, PathAddPayment, PathAddPaymentAlias} {
		r.Options(path, func(w http.ResponseWriter, r *http.Request) { httpx.Preflight(w, r) })
	}
	r.Group(func(r chi.Router) {
		r.Use(httpx.RequireJSON)
		r.Post(PathCreate, h.handleCreate)
		r.Post(PathSetPONumber, h.handleSetPONumber)
		r.Post(PathUpdateStatus, h.handleUpdateStatus)
		r.Post(PathMarkPaid, h.handleMarkPaid)
		r.Post(PathAddPayment, h.handleAddPayment)
		r.Post(PathAddPaymentAlias, h.handleAddPayment)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	if httpx.Preflight(w, r) {
		return
	}
	httpx.SetCORS(w)
	if r.Method != http.MethodGet {
		httpx.MethodNotAllowed(w, r)
		return
	}
	page, size := shared.ParsePage(r.URL.Query().Get("page"), r.URL.Query().Get("pageSize"))
	result, err := h.service.List(r.Context(), ListParams{Page: page, PageSize: size})
	if err != nil {
		h.logger.Error("list purchase orders", slog.Any("error", err))
		httpx.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse{OK: true, ListResult: result})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	detail, err := h.service.Get(r.Context(), r.URL.Query().Get("id"))
	if err != nil {
		h.fail(w, "get purchase order", err)
		return
	}
	httpx.JSON(w, http.StatusOK, newDetailResponse(detail))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !h.decode(w, r, &req) {
		return
	}
	input, err := req.input()
	if err != nil {
		h.fail(w, "create purchase order", err)
		return
	}
	po, err := h.service.Create(r.Context(), shared.IdentityFromContext(r.Context()), input)
	if err != nil {
		h.fail(w, "create purchase order", err)
		return
	}
	httpx.JSON(w, http.StatusOK, createResponse{
		OK:       true,
		ID:       po.ID,
		Subtotal: po.Subtotal.StringFixed(2),
		Tax:      po.Tax.StringFixed(2),
		Total:    po.Total.StringFixed(2),
	})
}

func (h *Handler) handleSetPONumber(w http.ResponseWriter, r *http.Request) {
	var req setPONumberRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.SetPONumber(r.Context(), shared.IdentityFromContext(r.Context()), req.ID, req.EpicorPONumber); err != nil {
		h.fail(w, "set po number", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true, "id": req.ID, "poNumber": req.EpicorPONumber})
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.UpdateStatus(r.Context(), shared.IdentityFromContext(r.Context()), req.ID, req.Status); err != nil {
		h.fail(w, "update po status", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true, "id": req.ID, "status": req.Status})
}

func (h *Handler) handleMarkPaid(w http.ResponseWriter, r *http.Request) {
	var req markPaidRequest
	if !h.decode(w, r, &req) {
		return
	}
	paidAt, err := h.service.MarkPaid(r.Context(), shared.IdentityFromContext(r.Context()), req.ID)
	if err != nil {
		h.fail(w, "mark po paid", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true, "id": req.ID, "paidAt": paidAt})
}

func (h *Handler) handleAddPayment(w http.ResponseWriter, r *http.Request) {
	var req addPaymentRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.service.AddPayment(r.Context(), shared.IdentityFromContext(r.Context()), PaymentInput{
		POID:   req.ID,
		Amount: req.Amount.Decimal,
		Method: req.Method,
		Note:   req.Note,
	})
	if err != nil {
		h.fail(w, "add po payment", err)
		return
	}
	httpx.JSON(w, http.StatusOK, paymentResponse{
		OK:        true,
		ID:        req.ID,
		Payment:   result.Payment,
		PaidTotal: result.Reconciliation.PaidTotal.StringFixed(2),
		Remaining: result.Reconciliation.Remaining.StringFixed(2),
	})
}

// decode reads and validates the JSON body, writing a 400 on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(w, r, target); err != nil {
		httpx.Error(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
		return false
	}
	if err := h.validator.Struct(target); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			httpx.Error(w, http.StatusBadRequest, fmt.Sprintf("%s: %s is %s", ErrValidation, verrs[0].Field(), verrs[0].Tag()))
			return false
		}
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	status := httpx.StatusFor(err, errorStatuses)
	if status >= http.StatusInternalServerError {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.Error(w, status, err.Error())
}
