// Package preview renders the printable HTML view of a purchase order.
package preview

import (
	"bytes"
	"fmt"
	"io"

	"github.com/shopspring/decimal"

	"github.com/PPA-BE/Orders-At-Peak/internal/purchasing"
	"github.com/PPA-BE/Orders-At-Peak/internal/view"
)

// Template names inside the view engine.
const (
	fragmentTemplate = "preview/po.html"
	documentTemplate = "preview/document.html"
)

// Columns is the width of the line item table.
const Columns = 8

// ShipTo is the receiving address printed on every PO.
var ShipTo = []string{
	"Peak Processing Solutions",
	"2065 Solar Crescent",
	"Oldcastle, ON, Canada",
	"N0R1L0",
}

// Row is one rendered line item.
type Row struct {
	Index        int
	SupplierItem string
	PeakPart     string
	Description  string
	Qty          decimal.Decimal
	UOM          string
	UnitPrice    decimal.Decimal
	LineTotal    decimal.Decimal
}

// Page is the template model.
type Page struct {
	POID      string
	Date      string
	Vendor    purchasing.Vendor
	Locality  string
	ShipTo    []string
	Rows      []Row
	Totals    purchasing.Totals
	TaxLabel  string
	Columns   int
	LabelSpan int
}

// Renderer builds and renders preview pages.
type Renderer struct {
	engine  *view.Engine
	taxRate decimal.Decimal
}

// NewRenderer constructs a renderer. A zero rate falls back to HST.
func NewRenderer(engine *view.Engine, taxRate decimal.Decimal) *Renderer {
	if taxRate.IsZero() {
		taxRate = purchasing.HSTRate
	}
	return &Renderer{engine: engine, taxRate: taxRate}
}

// Build computes the page model. Totals come from the line items, not from
// any stored figures.
func (r *Renderer) Build(doc purchasing.Document) Page {
	items := doc.LineItems()
	rows := make([]Row, 0, len(items))
	for i, it := range items {
		rows = append(rows, Row{
			Index:        i + 1,
			SupplierItem: it.SupplierItem,
			PeakPart:     it.PeakPart,
			Description:  it.Description,
			Qty:          it.Qty,
			UOM:          it.UOM,
			UnitPrice:    it.UnitPrice,
			LineTotal:    it.LineTotal(),
		})
	}
	return Page{
		POID:      doc.POID,
		Date:      doc.Date,
		Vendor:    doc.Vendor,
		Locality:  locality(doc.Vendor),
		ShipTo:    ShipTo,
		Rows:      rows,
		Totals:    purchasing.ComputeTotals(items, r.taxRate),
		TaxLabel:  fmt.Sprintf("HST (%s%%)", r.taxRate.Mul(decimal.NewFromInt(100)).String()),
		Columns:   Columns,
		LabelSpan: Columns - 1,
	}
}

func locality(v purchasing.Vendor) string {
	out := v.City
	if v.State != "" {
		out += ", " + v.State
	}
	if v.Zip != "" {
		out += " " + v.Zip
	}
	return out
}

// Render writes the HTML fragment for doc.
func (r *Renderer) Render(w io.Writer, doc purchasing.Document) error {
	return r.engine.Execute(w, fragmentTemplate, r.Build(doc))
}

// RenderString returns the HTML fragment for doc.
func (r *Renderer) RenderString(doc purchasing.Document) (string, error) {
	var buf bytes.Buffer
	if err := r.Render(&buf, doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderDocument returns a standalone HTML page suitable for PDF conversion.
func (r *Renderer) RenderDocument(doc purchasing.Document) (string, error) {
	var buf bytes.Buffer
	if err := r.engine.Execute(&buf, documentTemplate, r.Build(doc)); err != nil {
		return "", err
	}
	return buf.String(), nil
}
