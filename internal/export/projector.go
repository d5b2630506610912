package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/PPA-BE/Orders-At-Peak/internal/purchasing"
)

// ContentType is the MIME type of the produced workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	dateFormat  = "yyyy-mm-dd"
	moneyNumFmt = 4 // #,##0.00
)

// Result is a rendered workbook.
type Result struct {
	Filename string
	Data     []byte
	Totals   purchasing.Totals
}

// Filename derives the download name from the PO id.
func Filename(poID string) string {
	poID = strings.TrimSpace(poID)
	if poID == "" {
		poID = "PO"
	}
	return poID + ".xlsx"
}

// Projector writes PO documents into a template copy.
type Projector struct {
	taxRate decimal.Decimal
	clock   func() time.Time
}

// NewProjector constructs a projector using the given tax rate for the
// reported totals.
func NewProjector(taxRate decimal.Decimal, clock func() time.Time) *Projector {
	if taxRate.IsZero() {
		taxRate = purchasing.HSTRate
	}
	if clock == nil {
		clock = time.Now
	}
	return &Projector{taxRate: taxRate, clock: clock}
}

// Render fills a fresh copy of tpl with doc.
func (p *Projector) Render(tpl *Template, doc purchasing.Document) (Result, error) {
	f, err := tpl.open()
	if err != nil {
		return Result{}, fmt.Errorf("export: open template: %w", err)
	}
	defer func() { _ = f.Close() }()

	w := &sheetWriter{f: f, sheet: tpl.cells.Sheet}
	cells := tpl.cells
	vendor := doc.Vendor

	w.set(cells.Header.Requisitioner, doc.Requisitioner())
	w.set(cells.Header.Department, doc.RequestingDepartment())
	w.set(cells.Header.Supplier, vendor.DisplayName())
	w.set(cells.Header.SupplierNo, vendor.ReferenceNo)
	w.set(cells.Header.Street, vendor.Address1)
	w.set(cells.Header.City, vendor.City)
	w.set(cells.Header.Province, vendor.State)
	w.set(cells.Header.Country, vendor.Country)
	w.set(cells.Header.Postal, vendor.Zip)
	p.writeDate(w, cells.Header.Date, doc.Date)

	if doc.IsCAD() {
		w.set(cells.CurrencyCAD, "CAD")
		w.set(cells.CurrencyOther, "")
	} else {
		w.set(cells.CurrencyCAD, "")
		w.set(cells.CurrencyOther, doc.Currency)
	}

	items := doc.LineItems()
	t := cells.Table
	for i, it := range items {
		row := t.StartRow + i
		w.set(cell(t.Part, row), it.PartCode())
		w.set(cell(t.Description, row), it.Description)
		w.set(cell(t.Qty, row), it.Qty.InexactFloat64())
		w.set(cell(t.UnitPrice, row), it.UnitPrice.InexactFloat64())
		w.set(cell(t.UOM, row), it.UOM)

		total := cell(t.Total, row)
		w.set(total, it.LineTotal().InexactFloat64())
		// The literal stays as the cached value if the formula cannot be set.
		_ = f.SetCellFormula(w.sheet, total, fmt.Sprintf("%s*%s", cell(t.Qty, row), cell(t.UnitPrice, row)))
		w.style(cell(t.UnitPrice, row), moneyFormat)
		w.style(total, moneyFormat)
	}

	if err := f.SetCellFormula(w.sheet, cells.Subtotal, cells.SubtotalFormula(len(items))); err != nil {
		w.fail(cells.Subtotal, err)
	}
	if w.err != nil {
		return Result{}, w.err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return Result{}, fmt.Errorf("export: write workbook: %w", err)
	}
	return Result{
		Filename: Filename(doc.POID),
		Data:     buf.Bytes(),
		Totals:   purchasing.ComputeTotals(items, p.taxRate),
	}, nil
}

// writeDate stores the PO date as a native date. A missing date uses today;
// text that is not a date is written verbatim.
func (p *Projector) writeDate(w *sheetWriter, ref, raw string) {
	raw = strings.TrimSpace(raw)
	var date time.Time
	switch {
	case raw == "":
		date = p.clock()
	default:
		parsed, err := parseDate(raw)
		if err != nil {
			w.set(ref, raw)
			return
		}
		date = parsed
	}
	w.set(ref, time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC))
	w.style(ref, dateFormatStyle)
}

func parseDate(raw string) (time.Time, error) {
	for _, layout := range []string{time.DateOnly, time.RFC3339, "2006/01/02", "01/02/2006"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("export: unrecognised date %q", raw)
}

// sheetWriter keeps the first hard write error. Styling errors are ignored.
type sheetWriter struct {
	f     *excelize.File
	sheet string
	err   error
}

func (w *sheetWriter) set(ref string, value any) {
	if w.err != nil {
		return
	}
	if err := w.f.SetCellValue(w.sheet, ref, value); err != nil {
		w.fail(ref, err)
	}
}

func (w *sheetWriter) fail(ref string, err error) {
	if w.err == nil {
		w.err = fmt.Errorf("export: write %s: %w", ref, err)
	}
}

// style changes only the number format of ref, keeping the template's
// borders and fonts.
func (w *sheetWriter) style(ref string, apply func(*excelize.Style)) {
	st := &excelize.Style{}
	if id, err := w.f.GetCellStyle(w.sheet, ref); err == nil {
		if existing, err := w.f.GetStyle(id); err == nil && existing != nil {
			st = existing
		}
	}
	apply(st)
	id, err := w.f.NewStyle(st)
	if err != nil {
		return
	}
	_ = w.f.SetCellStyle(w.sheet, ref, ref, id)
}

func moneyFormat(st *excelize.Style) {
	st.NumFmt = moneyNumFmt
	st.CustomNumFmt = nil
}

func dateFormatStyle(st *excelize.Style) {
	format := dateFormat
	st.CustomNumFmt = &format
}
