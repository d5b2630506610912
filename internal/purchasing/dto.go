package purchasing

import (
	"fmt"
	"strings"
	"time"

	"github.com/PPA-BE/Orders-At-Peak/internal/money"
)

type createRequest struct {
	Document
	Meta map[string]any `json:"meta"`
}

type setPONumberRequest struct {
	ID             string `json:"id" validate:"required"`
	EpicorPONumber string `json:"epicorPoNumber" validate:"max=64"`
}

type updateStatusRequest struct {
	ID     string `json:"id" validate:"required"`
	Status string `json:"status" validate:"required,max=64"`
}

type markPaidRequest struct {
	ID string `json:"id" validate:"required"`
}

type addPaymentRequest struct {
	ID     string       `json:"id" validate:"required"`
	Amount money.Amount `json:"amount"`
	Method string       `json:"method" validate:"max=64"`
	Note   string       `json:"note" validate:"max=1000"`
}

type createResponse struct {
	OK       bool   `json:"ok"`
	ID       string `json:"id"`
	Subtotal string `json:"subtotal"`
	Tax      string `json:"tax"`
	Total    string `json:"total"`
}

type listResponse struct {
	OK bool `json:"ok"`
	ListResult
}

type paymentResponse struct {
	OK        bool    `json:"ok"`
	ID        string  `json:"id"`
	Payment   Payment `json:"payment"`
	PaidTotal string  `json:"paidTotal"`
	Remaining string  `json:"remaining"`
}

type detailResponse struct {
	OK          bool           `json:"ok"`
	ID          string         `json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	CreatedBy   string         `json:"created_by"`
	Department  string         `json:"department"`
	VendorName  string         `json:"vendor_name"`
	Vendor      Vendor         `json:"vendor"`
	Currency    string         `json:"currency"`
	Date        string         `json:"date"`
	Subtotal    string         `json:"subtotal"`
	Tax         string         `json:"tax"`
	Total       string         `json:"total"`
	Status      string         `json:"status"`
	PaidAt      *time.Time     `json:"paid_at"`
	StatusLabel string         `json:"status_label"`
	PONumber    *string        `json:"po_number"`
	Meta        map[string]any `json:"meta"`
	Items       []DocumentItem `json:"items"`
	Payments    []Payment      `json:"payments"`
	PaidTotal   string         `json:"paid_total"`
	Remaining   string         `json:"remaining"`
}

func newDetailResponse(d Detail) detailResponse {
	doc := d.Document()
	payments := d.Payments
	if payments == nil {
		payments = []Payment{}
	}
	return detailResponse{
		OK:          true,
		ID:          d.Order.ID,
		CreatedAt:   d.Order.CreatedAt,
		CreatedBy:   d.Order.CreatedBy,
		Department:  d.Order.Department,
		VendorName:  d.Order.VendorName,
		Vendor:      doc.Vendor,
		Currency:    d.Order.Currency,
		Date:        doc.Date,
		Subtotal:    d.Order.Subtotal.StringFixed(2),
		Tax:         d.Order.Tax.StringFixed(2),
		Total:       d.Order.Total.StringFixed(2),
		Status:      d.Order.Status,
		PaidAt:      d.Order.PaidAt,
		StatusLabel: d.StatusLabel(),
		PONumber:    d.Order.PONumber,
		Meta:        d.Order.Meta,
		Items:       doc.Items,
		Payments:    payments,
		PaidTotal:   d.PaidTotal.StringFixed(2),
		Remaining:   d.Remaining.StringFixed(2),
	}
}

// parseOrderDate accepts a calendar date or an RFC 3339 timestamp.
func parseOrderDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrValidation, raw)
	}
	return t, nil
}

func (r createRequest) input() (CreateInput, error) {
	date, err := parseOrderDate(r.Date)
	if err != nil {
		return CreateInput{}, err
	}
	return CreateInput{
		CreatedBy:  r.Requisitioner(),
		Department: r.RequestingDepartment(),
		Vendor:     r.Vendor,
		Currency:   r.Currency,
		OrderDate:  date,
		Items:      r.LineItems(),
		Meta:       r.Meta,
	}, nil
}
