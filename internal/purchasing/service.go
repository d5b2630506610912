package purchasing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/PPA-BE/Orders-At-Peak/internal/shared"
)

const maxStatusLength = 64

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListSummaries(ctx context.Context, limit, offset int) ([]Summary, error)
	CountPOs(ctx context.Context) (int, error)
	GetPO(ctx context.Context, id string) (PurchaseOrder, []LineItem, []Payment, error)
	GetReconciliation(ctx context.Context, id string) (Reconciliation, error)
}

// AuditPort records who changed what.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Notifier receives payment related events after they are committed.
type Notifier interface {
	NotifyPayment(ctx context.Context, evt PaymentEvent) error
}

// Recorder collects domain counters.
type Recorder interface {
	POCreated()
	PaymentRecorded(amount float64)
}

// PaymentEvent kinds.
const (
	EventPaymentAdded = "payment_added"
	EventMarkedPaid   = "marked_paid"
)

// PaymentEvent describes a committed payment change.
type PaymentEvent struct {
	Kind   string          `json:"kind"`
	POID   string          `json:"poId"`
	Amount decimal.Decimal `json:"amount"`
	Actor  string          `json:"actor"`
	At     time.Time       `json:"at"`
}

// Reconciliation is the amounts-owed view of a single PO.
type Reconciliation struct {
	ID          string          `json:"id"`
	Status      string          `json:"status"`
	PaidAt      *time.Time      `json:"paidAt"`
	StatusLabel string          `json:"statusLabel"`
	Total       decimal.Decimal `json:"total"`
	PaidTotal   decimal.Decimal `json:"paidTotal"`
	Remaining   decimal.Decimal `json:"remaining"`
}

// Settled reports whether payments cover the total while the PO is not yet marked paid.
func (r Reconciliation) Settled() bool {
	return r.PaidAt == nil && r.Remaining.IsZero() && r.PaidTotal.IsPositive()
}

// ServiceConfig holds optional tuning for Service.
type ServiceConfig struct {
	TaxRate decimal.Decimal
	Logger  *slog.Logger
	Clock   func() time.Time
}

// Service orchestrates purchase order flows.
type Service struct {
	repo     RepositoryPort
	audit    AuditPort
	notifier Notifier
	recorder Recorder
	taxRate  decimal.Decimal
	logger   *slog.Logger
	clock    func() time.Time
}

// NewService constructs the purchasing service.
func NewService(repo RepositoryPort, audit AuditPort, notifier Notifier, recorder Recorder, cfg ServiceConfig) *Service {
	if cfg.TaxRate.IsZero() {
		cfg.TaxRate = HSTRate
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Service{
		repo:     repo,
		audit:    audit,
		notifier: notifier,
		recorder: recorder,
		taxRate:  cfg.TaxRate,
		logger:   cfg.Logger,
		clock:    cfg.Clock,
	}
}

// TaxRate exposes the configured tax rate.
func (s *Service) TaxRate() decimal.Decimal {
	return s.taxRate
}

// ListParams selects a page of purchase orders.
type ListParams struct {
	Page     int
	PageSize int
}

// ListResult is a page of annotated purchase orders plus the unpaginated count.
type ListResult struct {
	Page     int       `json:"page"`
	PageSize int       `json:"pageSize"`
	Count    int       `json:"count"`
	Rows     []Summary `json:"rows"`
}

// List returns purchase orders newest first with payment aggregation.
func (s *Service) List(ctx context.Context, params ListParams) (ListResult, error) {
	page, size := shared.ClampPage(params.Page, params.PageSize)
	rows, err := s.repo.ListSummaries(ctx, size, shared.Offset(page, size))
	if err != nil {
		return ListResult{}, err
	}
	count, err := s.repo.CountPOs(ctx)
	if err != nil {
		return ListResult{}, err
	}
	if rows == nil {
		rows = []Summary{}
	}
	for i := range rows {
		rows[i].Remaining = Remaining(rows[i].Total, rows[i].PaidTotal)
		rows[i].StatusLabel = StatusLabel(rows[i].Status, rows[i].PaidAt)
	}
	return ListResult{Page: page, PageSize: size, Count: count, Rows: rows}, nil
}

// Get loads one PO with items, payments and reconciliation.
func (s *Service) Get(ctx context.Context, id string) (Detail, error) {
	if strings.TrimSpace(id) == "" {
		return Detail{}, fmt.Errorf("%w: id required", ErrValidation)
	}
	po, items, payments, err := s.repo.GetPO(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	paid, remaining := Reconcile(po.Total, payments)
	return Detail{Order: po, Items: items, Payments: payments, PaidTotal: paid, Remaining: remaining}, nil
}

// Document loads a stored PO as a rendering payload.
func (s *Service) Document(ctx context.Context, id string) (Document, error) {
	detail, err := s.Get(ctx, id)
	if err != nil {
		return Document{}, err
	}
	return detail.Document(), nil
}

// Reconciliation reads fresh payment totals for a PO.
func (s *Service) Reconciliation(ctx context.Context, id string) (Reconciliation, error) {
	rec, err := s.repo.GetReconciliation(ctx, id)
	if err != nil {
		return Reconciliation{}, err
	}
	return annotate(rec), nil
}

func annotate(rec Reconciliation) Reconciliation {
	rec.Remaining = Remaining(rec.Total, rec.PaidTotal)
	rec.StatusLabel = StatusLabel(rec.Status, rec.PaidAt)
	return rec
}

// CreateInput describes a new PO with its line items.
type CreateInput struct {
	CreatedBy  string
	Department string
	Vendor     Vendor
	Currency   string
	OrderDate  time.Time
	Items      []LineItem
	Meta       map[string]any
}

// Create persists the PO header and its line items atomically. Totals are
// computed here and fixed from then on.
func (s *Service) Create(ctx context.Context, actor shared.Identity, input CreateInput) (PurchaseOrder, error) {
	if strings.TrimSpace(input.Vendor.DisplayName()) == "" {
		return PurchaseOrder{}, fmt.Errorf("%w: vendor required", ErrValidation)
	}
	for i, it := range input.Items {
		if it.Qty.IsNegative() || it.UnitPrice.IsNegative() {
			return PurchaseOrder{}, fmt.Errorf("%w: line %d has negative quantity or price", ErrValidation, i+1)
		}
	}
	totals := ComputeTotals(input.Items, s.taxRate)
	createdBy := input.CreatedBy
	if createdBy == "" {
		createdBy = actor.Name
	}
	meta := input.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	po := PurchaseOrder{
		ID:             uuid.NewString(),
		CreatedAt:      s.clock(),
		CreatedBy:      createdBy,
		CreatedByEmail: actor.Email,
		Department:     input.Department,
		VendorName:     input.Vendor.DisplayName(),
		Vendor:         input.Vendor,
		Currency:       strings.ToUpper(strings.TrimSpace(input.Currency)),
		OrderDate:      input.OrderDate,
		Subtotal:       totals.Subtotal,
		Tax:            totals.Tax,
		Total:          totals.Grand,
		Status:         StatusOpen,
		Meta:           meta,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.CreatePO(ctx, po); err != nil {
			return err
		}
		for i, it := range input.Items {
			it.POID = po.ID
			it.LineNo = i + 1
			if err := tx.InsertLineItem(ctx, it); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	if s.recorder != nil {
		s.recorder.POCreated()
	}
	s.recordAudit(ctx, actor, "PO_CREATE", po.ID, map[string]any{"total": po.Total.String(), "items": len(input.Items)})
	return po, nil
}

// SetPONumber stores the external ERP reference number.
func (s *Service) SetPONumber(ctx context.Context, actor shared.Identity, id, number string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: id required", ErrValidation)
	}
	number = strings.TrimSpace(number)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.SetPONumber(ctx, id, number)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actor, "PO_SET_REFERENCE", id, map[string]any{"po_number": number})
	return nil
}

// UpdateStatus overwrites the workflow label. Last writer wins.
func (s *Service) UpdateStatus(ctx context.Context, actor shared.Identity, id, status string) error {
	status = strings.TrimSpace(status)
	if strings.TrimSpace(id) == "" || status == "" {
		return fmt.Errorf("%w: id and status required", ErrValidation)
	}
	if len(status) > maxStatusLength {
		return fmt.Errorf("%w: status longer than %d characters", ErrValidation, maxStatusLength)
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateStatus(ctx, id, status)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actor, "PO_STATUS", id, map[string]any{"status": status})
	return nil
}

// MarkPaid stamps paid_at. It does not look at payment totals.
func (s *Service) MarkPaid(ctx context.Context, actor shared.Identity, id string) (time.Time, error) {
	if strings.TrimSpace(id) == "" {
		return time.Time{}, fmt.Errorf("%w: id required", ErrValidation)
	}
	now := s.clock()
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.MarkPaid(ctx, id, now)
	})
	if err != nil {
		return time.Time{}, err
	}
	s.recordAudit(ctx, actor, "PO_MARK_PAID", id, nil)
	s.notify(ctx, PaymentEvent{Kind: EventMarkedPaid, POID: id, Actor: actor.Actor(), At: now})
	return now, nil
}

// PaymentInput describes a payment to append.
type PaymentInput struct {
	POID   string
	Amount decimal.Decimal
	Method string
	Note   string
}

// PaymentResult returns the stored payment and fresh totals.
type PaymentResult struct {
	Payment        Payment
	Reconciliation Reconciliation
}

// AddPayment appends a payment. Status and paid_at are left untouched.
func (s *Service) AddPayment(ctx context.Context, actor shared.Identity, input PaymentInput) (PaymentResult, error) {
	if strings.TrimSpace(input.POID) == "" {
		return PaymentResult{}, fmt.Errorf("%w: id required", ErrValidation)
	}
	if !input.Amount.IsPositive() {
		return PaymentResult{}, fmt.Errorf("%w: amount must be greater than zero", ErrValidation)
	}
	payment := Payment{
		POID:       input.POID,
		Amount:     input.Amount,
		Method:     strings.TrimSpace(input.Method),
		Note:       strings.TrimSpace(input.Note),
		RecordedAt: s.clock(),
		RecordedBy: actor.Actor(),
	}
	// The totals are read in the insert transaction so a failed read
	// leaves no payment behind.
	var rec Reconciliation
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.InsertPayment(ctx, payment)
		if err != nil {
			return err
		}
		payment.ID = id
		rec, err = tx.GetReconciliation(ctx, input.POID)
		return err
	})
	if err != nil {
		return PaymentResult{}, err
	}
	if s.recorder != nil {
		s.recorder.PaymentRecorded(payment.Amount.InexactFloat64())
	}
	s.recordAudit(ctx, actor, "PO_PAYMENT", input.POID, map[string]any{"amount": payment.Amount.String(), "method": payment.Method})
	s.notify(ctx, PaymentEvent{Kind: EventPaymentAdded, POID: input.POID, Amount: payment.Amount, Actor: actor.Actor(), At: payment.RecordedAt})

	return PaymentResult{Payment: payment, Reconciliation: annotate(rec)}, nil
}

func (s *Service) notify(ctx context.Context, evt PaymentEvent) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyPayment(ctx, evt); err != nil {
		s.logger.Warn("enqueue payment notification", slog.String("po_id", evt.POID), slog.Any("error", err))
	}
}

func (s *Service) recordAudit(ctx context.Context, actor shared.Identity, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{Actor: actor, Action: action, Entity: "purchase_order", EntityID: entityID, Meta: meta}); err != nil {
		s.logger.Warn("record audit", slog.String("action", action), slog.Any("error", err))
	}
}
