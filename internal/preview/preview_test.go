package preview

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/PPA-BE/Orders-At-Peak/internal/money"
	"github.com/PPA-BE/Orders-At-Peak/internal/purchasing"
	"github.com/PPA-BE/Orders-At-Peak/internal/view"
)

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	engine, err := view.NewEngine()
	require.NoError(t, err)
	return NewRenderer(engine, purchasing.HSTRate)
}

func item(supplier, peak, desc, qty, price, uom string) purchasing.DocumentItem {
	return purchasing.DocumentItem{
		SupplierItem: supplier,
		PeakPart:     peak,
		Description:  desc,
		Qty:          money.NewAmount(money.ParseString(qty)),
		UnitPrice:    money.NewAmount(money.ParseString(price)),
		UOM:          uom,
	}
}

func sampleDoc() purchasing.Document {
	return purchasing.Document{
		POID: "po-42",
		Date: "2024-06-01",
		Vendor: purchasing.Vendor{
			Name:     "Acme Supply",
			Address1: "12 Main St",
			City:     "Windsor",
			State:    "ON",
			Zip:      "N9A 1A1",
		},
		Items: []purchasing.DocumentItem{
			item("S-1", "P-1", "Bolts", "2", "10", "EA"),
			item("", "P-2", "Nuts", "1", "5", "EA"),
			item("", "", "Washers", "4", "2.5", "BX"),
		},
	}
}

func TestBuildTotals(t *testing.T) {
	page := newRenderer(t).Build(sampleDoc())
	require.Len(t, page.Rows, 3)
	require.Equal(t, 3, page.Rows[2].Index)
	require.Equal(t, "35.00", page.Totals.Subtotal.StringFixed(2))
	require.Equal(t, "4.55", page.Totals.Tax.StringFixed(2))
	require.Equal(t, "39.55", page.Totals.Grand.StringFixed(2))
	require.Equal(t, "HST (13%)", page.TaxLabel)
	require.Equal(t, "Windsor, ON N9A 1A1", page.Locality)
}

func TestRenderTable(t *testing.T) {
	html, err := newRenderer(t).RenderString(sampleDoc())
	require.NoError(t, err)
	require.Equal(t, 3, strings.Count(html, `border-slate-200 text-right font-medium">`))
	require.Contains(t, html, "$2.50")
	require.Contains(t, html, "$10.00")
	require.Contains(t, html, ">$35.00<")
	require.Contains(t, html, ">$4.55<")
	require.Contains(t, html, ">$39.55<")
	require.Contains(t, html, "HST (13%)")
	require.Contains(t, html, "2065 Solar Crescent")
	require.NotContains(t, html, "No items")
}

func TestRenderEmptyItems(t *testing.T) {
	html, err := newRenderer(t).RenderString(purchasing.Document{POID: "po-0"})
	require.NoError(t, err)
	require.Equal(t, 1, strings.Count(html, "No items"))
	require.Contains(t, html, `<td colspan="8" class="text-center text-slate-500 py-4 border border-slate-200">No items</td>`)
	// Subtotal, tax and grand total in the footer plus the PO block total.
	require.Equal(t, 4, strings.Count(html, ">$0.00<"))
	require.Contains(t, html, `<span class="font-medium">$0.00</span>`)
}

func TestRenderEscapesUserText(t *testing.T) {
	doc := sampleDoc()
	doc.Vendor.Name = `<script>alert("x")</script>`
	doc.POID = `"><img src=x>`
	doc.Items[0].Description = `Bolts & <b>nuts</b>`
	html, err := newRenderer(t).RenderString(doc)
	require.NoError(t, err)
	require.NotContains(t, html, "<script>")
	require.NotContains(t, html, "<img")
	require.NotContains(t, html, "<b>nuts</b>")
	require.Contains(t, html, "&lt;script&gt;")
	require.Contains(t, html, "Bolts &amp; &lt;b&gt;nuts&lt;/b&gt;")
}

func TestRenderDocumentWrapsFragment(t *testing.T) {
	html, err := newRenderer(t).RenderDocument(sampleDoc())
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(html, "<!DOCTYPE html>"))
	require.Contains(t, html, "<title>Purchase Order po-42</title>")
	require.Contains(t, html, "Grand Total")
}

type stubDocs map[string]purchasing.Document

func (s stubDocs) Document(ctx context.Context, id string) (purchasing.Document, error) {
	doc, ok := s[id]
	if !ok {
		return purchasing.Document{}, purchasing.ErrNotFound
	}
	return doc, nil
}

type stubPDF struct {
	html string
	err  error
}

func (s *stubPDF) RenderHTML(ctx context.Context, html string) ([]byte, error) {
	s.html = html
	if s.err != nil {
		return nil, s.err
	}
	return []byte("%PDF-1.7"), nil
}

func newTestHandler(t *testing.T, pdf PDFConverter) http.Handler {
	t.Helper()
	doc := sampleDoc()
	svc := NewService(stubDocs{doc.POID: doc}, newRenderer(t), pdf)
	r := chi.NewRouter()
	NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc).MountRoutes(r)
	return r
}

func TestHandlerHTML(t *testing.T) {
	h := newTestHandler(t, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, PathPreview+"?id=po-42", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Body.String(), "Acme Supply")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, PathPreview+"?id=missing", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	req := httptest.NewRequest(http.MethodPost, PathPreview, strings.NewReader(`{"poId":"draft","items":[]}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "No items")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, PathPreview+"?id=po-42&format=pdf", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandlerPDF(t *testing.T) {
	pdf := &stubPDF{}
	h := newTestHandler(t, pdf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, PathPreview+"?id=po-42&format=pdf", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	require.Equal(t, `inline; filename="po-42.pdf"`, rec.Header().Get("Content-Disposition"))
	require.Equal(t, "%PDF-1.7", rec.Body.String())
	require.Contains(t, pdf.html, "<!DOCTYPE html>")

	pdf.err = errors.New("gotenberg returned status 503")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, PathPreview+"?id=po-42&format=pdf", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "preview: convert pdf")
}
