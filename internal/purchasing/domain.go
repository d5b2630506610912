package purchasing

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/PPA-BE/Orders-At-Peak/internal/money"
)

// Common workflow labels. Status is open-ended; callers may store any label.
const (
	StatusOpen      = "Open"
	StatusApproved  = "Approved"
	StatusCancelled = "Cancelled"
)

// Vendor holds supplier details captured on the PO.
type Vendor struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name,omitempty"`
	ReferenceNo string `json:"referenceNo,omitempty"`
	Address1    string `json:"address1,omitempty"`
	City        string `json:"city,omitempty"`
	State       string `json:"state,omitempty"`
	Country     string `json:"country,omitempty"`
	Zip         string `json:"zip,omitempty"`
}

// DisplayName prefers the vendor name over its identifier.
func (v Vendor) DisplayName() string {
	if v.Name != "" {
		return v.Name
	}
	return v.ID
}

// PurchaseOrder domain model. Subtotal, Tax and Total are fixed at creation.
type PurchaseOrder struct {
	ID             string
	CreatedAt      time.Time
	CreatedBy      string
	CreatedByEmail string
	Department     string
	VendorName     string
	Vendor         Vendor
	Currency       string
	OrderDate      time.Time
	Subtotal       decimal.Decimal
	Tax            decimal.Decimal
	Total          decimal.Decimal
	Status         string
	PaidAt         *time.Time
	PONumber       *string
	Meta           map[string]any
}

// LineItem is one row of a PO.
type LineItem struct {
	ID           int64
	POID         string
	LineNo       int
	SupplierItem string
	PeakPart     string
	PartNumber   string
	Description  string
	Qty          decimal.Decimal
	UnitPrice    decimal.Decimal
	UOM          string
}

// PartCode picks the supplier code, then the internal code, then the generic
// part number.
func (l LineItem) PartCode() string {
	switch {
	case l.SupplierItem != "":
		return l.SupplierItem
	case l.PeakPart != "":
		return l.PeakPart
	default:
		return l.PartNumber
	}
}

// LineTotal is quantity times unit price.
func (l LineItem) LineTotal() decimal.Decimal {
	return l.Qty.Mul(l.UnitPrice)
}

// Payment is an insert-only record against a PO.
type Payment struct {
	ID         int64           `json:"id"`
	POID       string          `json:"poId"`
	Amount     decimal.Decimal `json:"amount"`
	Method     string          `json:"method"`
	Note       string          `json:"note"`
	RecordedAt time.Time       `json:"recordedAt"`
	RecordedBy string          `json:"recordedBy,omitempty"`
}

// Summary is one row of the aggregation query.
type Summary struct {
	ID          string          `json:"id"`
	CreatedAt   time.Time       `json:"created_at"`
	CreatedBy   string          `json:"created_by"`
	Department  string          `json:"department"`
	VendorName  string          `json:"vendor_name"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Tax         decimal.Decimal `json:"tax"`
	Total       decimal.Decimal `json:"total"`
	Status      string          `json:"status"`
	PaidAt      *time.Time      `json:"paid_at"`
	StatusLabel string          `json:"status_label"`
	PONumber    *string         `json:"po_number"`
	Meta        map[string]any  `json:"meta"`
	LineItems   int             `json:"line_items"`
	PaidTotal   decimal.Decimal `json:"paid_total"`
	Remaining   decimal.Decimal `json:"remaining"`
}

// Detail bundles a PO with its owned rows and reconciliation figures.
type Detail struct {
	Order     PurchaseOrder
	Items     []LineItem
	Payments  []Payment
	PaidTotal decimal.Decimal
	Remaining decimal.Decimal
}

// StatusLabel applies the display label rule to the detail.
func (d Detail) StatusLabel() string {
	return StatusLabel(d.Order.Status, d.Order.PaidAt)
}

// Document is the PO payload consumed by the spreadsheet and HTML projections.
// Its JSON shape matches what the web client posts.
type Document struct {
	POID       string         `json:"poId"`
	CreatedBy  string         `json:"createdBy"`
	Department string         `json:"department"`
	User       *DocumentUser  `json:"user,omitempty"`
	Date       string         `json:"date"`
	Vendor     Vendor         `json:"vendor"`
	Currency   string         `json:"currency"`
	Items      []DocumentItem `json:"items"`
}

// DocumentUser carries requester fallbacks.
type DocumentUser struct {
	Name       string `json:"name"`
	Department string `json:"department"`
}

// DocumentItem is a loosely typed line item as sent by the client.
type DocumentItem struct {
	SupplierItem string       `json:"supplierItem"`
	PeakPart     string       `json:"peakPart"`
	PartNumber   string       `json:"partNumber"`
	Description  string       `json:"description"`
	Qty          money.Amount `json:"qty"`
	UnitPrice    money.Amount `json:"unitPrice"`
	UOM          string       `json:"uom"`
}

// LineItem converts the document row into the domain shape.
func (i DocumentItem) LineItem() LineItem {
	return LineItem{
		SupplierItem: i.SupplierItem,
		PeakPart:     i.PeakPart,
		PartNumber:   i.PartNumber,
		Description:  i.Description,
		Qty:          i.Qty.Decimal,
		UnitPrice:    i.UnitPrice.Decimal,
		UOM:          i.UOM,
	}
}

// Requisitioner resolves who asked for the PO.
func (d Document) Requisitioner() string {
	if d.CreatedBy != "" {
		return d.CreatedBy
	}
	if d.User != nil {
		return d.User.Name
	}
	return ""
}

// RequestingDepartment resolves the department with the user fallback.
func (d Document) RequestingDepartment() string {
	if d.Department != "" {
		return d.Department
	}
	if d.User != nil {
		return d.User.Department
	}
	return ""
}

// LineItems converts every document row.
func (d Document) LineItems() []LineItem {
	items := make([]LineItem, 0, len(d.Items))
	for idx, it := range d.Items {
		li := it.LineItem()
		li.LineNo = idx + 1
		items = append(items, li)
	}
	return items
}

// IsCAD reports whether the document is priced in Canadian dollars.
func (d Document) IsCAD() bool {
	return strings.ToUpper(d.Currency) == "CAD"
}

// Document projects a stored PO into the rendering payload.
func (d Detail) Document() Document {
	doc := Document{
		POID:       d.Order.ID,
		CreatedBy:  d.Order.CreatedBy,
		Department: d.Order.Department,
		Vendor:     d.Order.Vendor,
		Currency:   d.Order.Currency,
		Items:      make([]DocumentItem, 0, len(d.Items)),
	}
	if doc.Vendor.Name == "" {
		doc.Vendor.Name = d.Order.VendorName
	}
	switch {
	case !d.Order.OrderDate.IsZero():
		doc.Date = d.Order.OrderDate.Format(time.DateOnly)
	case !d.Order.CreatedAt.IsZero():
		doc.Date = d.Order.CreatedAt.Format(time.DateOnly)
	}
	for _, it := range d.Items {
		doc.Items = append(doc.Items, DocumentItem{
			SupplierItem: it.SupplierItem,
			PeakPart:     it.PeakPart,
			PartNumber:   it.PartNumber,
			Description:  it.Description,
			Qty:          money.NewAmount(it.Qty),
			UnitPrice:    money.NewAmount(it.UnitPrice),
			UOM:          it.UOM,
		})
	}
	return doc
}

var (
	// ErrNotFound indicates record missing.
	ErrNotFound = errors.New("purchasing: not found")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("purchasing: invalid input")
)
