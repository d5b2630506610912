// Package export fills the purchase requisition workbook template from a PO.
package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// CellMapVersion is the layout revision this package knows how to fill.
// Bump it together with the template file whenever cells move.
const CellMapVersion = 1

// HeaderCells locates the single-value header fields.
type HeaderCells struct {
	Requisitioner string
	Date          string
	Department    string
	Supplier      string
	SupplierNo    string
	Street        string
	City          string
	Province      string
	Country       string
	Postal        string
}

// TableLayout locates the line item table. Columns are letters.
type TableLayout struct {
	StartRow    int
	Part        string
	Description string
	Qty         string
	UnitPrice   string
	UOM         string
	Total       string
}

// CellMap ties PO fields to template coordinates.
type CellMap struct {
	Version       int
	Sheet         string
	Header        HeaderCells
	CurrencyCAD   string
	CurrencyOther string
	Subtotal      string
	Table         TableLayout
	// Labels are optional cell -> text expectations checked at load.
	Labels map[string]string
}

// DefaultCellMap matches po-template-new.xlsx.
var DefaultCellMap = CellMap{
	Version: CellMapVersion,
	Sheet:   "Req",
	Header: HeaderCells{
		Requisitioner: "D3",
		Date:          "I3",
		Department:    "E4",
		Supplier:      "C6",
		SupplierNo:    "D7",
		Street:        "F8",
		City:          "F10",
		Province:      "F11",
		Country:       "F12",
		Postal:        "F13",
	},
	CurrencyCAD:   "C18",
	CurrencyOther: "E18",
	Subtotal:      "B36",
	Table: TableLayout{
		StartRow:    20,
		Part:        "A",
		Description: "C",
		Qty:         "F",
		UnitPrice:   "G",
		UOM:         "H",
		Total:       "I",
	},
}

func (m CellMap) namedCells() map[string]string {
	return map[string]string{
		"requisitioner": m.Header.Requisitioner,
		"date":          m.Header.Date,
		"department":    m.Header.Department,
		"supplier":      m.Header.Supplier,
		"supplierNo":    m.Header.SupplierNo,
		"street":        m.Header.Street,
		"city":          m.Header.City,
		"province":      m.Header.Province,
		"country":       m.Header.Country,
		"postal":        m.Header.Postal,
		"currencyCad":   m.CurrencyCAD,
		"currencyOther": m.CurrencyOther,
		"subtotal":      m.Subtotal,
	}
}

func (t TableLayout) columns() map[string]string {
	return map[string]string{
		"part":        t.Part,
		"description": t.Description,
		"qty":         t.Qty,
		"unitPrice":   t.UnitPrice,
		"uom":         t.UOM,
		"total":       t.Total,
	}
}

// Validate checks the map is internally consistent. It does not look at a workbook.
func (m CellMap) Validate() error {
	if m.Version != CellMapVersion {
		return fmt.Errorf("%w: cell map version %d, want %d", ErrTemplateMismatch, m.Version, CellMapVersion)
	}
	if strings.TrimSpace(m.Sheet) == "" {
		return fmt.Errorf("%w: sheet name required", ErrTemplateMismatch)
	}
	for name, cell := range m.namedCells() {
		if _, _, err := excelize.CellNameToCoordinates(cell); err != nil {
			return fmt.Errorf("%w: %s cell %q: %v", ErrTemplateMismatch, name, cell, err)
		}
	}
	if m.Table.StartRow < 1 {
		return fmt.Errorf("%w: table start row %d", ErrTemplateMismatch, m.Table.StartRow)
	}
	for name, col := range m.Table.columns() {
		if _, err := excelize.ColumnNameToNumber(col); err != nil {
			return fmt.Errorf("%w: %s column %q: %v", ErrTemplateMismatch, name, col, err)
		}
	}
	for cell := range m.Labels {
		if _, _, err := excelize.CellNameToCoordinates(cell); err != nil {
			return fmt.Errorf("%w: label cell %q: %v", ErrTemplateMismatch, cell, err)
		}
	}
	return nil
}

// cell joins a table column and row into an A1 reference.
func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

// SubtotalFormula sums the total column over the written rows. With no rows
// the range collapses to the first table row.
func (m CellMap) SubtotalFormula(rows int) string {
	first := m.Table.StartRow
	last := first + rows - 1
	if last < first {
		last = first
	}
	return fmt.Sprintf("SUM(%s:%s)", cell(m.Table.Total, first), cell(m.Table.Total, last))
}
