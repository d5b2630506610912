package poapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/PPA-BE/Orders-At-Peak/internal/purchasing"
	"github.com/PPA-BE/Orders-At-Peak/internal/shared"
)

type recorded struct {
	method  string
	path    string
	query   string
	headers http.Header
	body    map[string]any
}

type stubServer struct {
	mu       sync.Mutex
	calls    []recorded
	handlers map[string]func(w http.ResponseWriter)
}

func newStubServer(t *testing.T, handlers map[string]func(w http.ResponseWriter)) (*stubServer, *httptest.Server) {
	s := &stubServer{handlers: handlers}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery, headers: r.Header.Clone()}
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			_ = json.Unmarshal(data, &rec.body)
		}
		s.mu.Lock()
		s.calls = append(s.calls, rec)
		s.mu.Unlock()
		h, ok := s.handlers[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		h(w)
	}))
	t.Cleanup(srv.Close)
	return s, srv
}

func respond(status int, body string) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

type toasts struct {
	msgs []string
}

func (n *toasts) notify(msg string, isError bool) {
	if isError {
		n.msgs = append(n.msgs, msg)
	}
}

var bob = shared.Identity{Email: "bob@example.com", Name: "Bob Stone"}

const paymentOK = `{"ok":true,"id":"po-1","payment":{"id":7,"poId":"po-1","amount":"40","method":"EFT","note":"","recordedAt":"2024-06-01T10:00:00Z"},"paidTotal":"40.00","remaining":"73.00"}`

func TestAddPaymentFallsBackOn404(t *testing.T) {
	stub, srv := newStubServer(t, map[string]func(http.ResponseWriter){
		purchasing.PathAddPaymentAlias: respond(http.StatusOK, paymentOK),
	})
	n := &toasts{}
	c := New(srv.URL, WithNotifier(n.notify))

	res, err := c.AddPOPayment(context.Background(), bob, PaymentRequest{ID: "po-1", Amount: "40", Method: "EFT"})
	require.NoError(t, err)
	require.Equal(t, "73.00", res.Remaining)
	require.Equal(t, "40", res.Payment.Amount.String())
	require.Equal(t, int64(7), res.Payment.ID)

	require.Len(t, stub.calls, 2)
	require.Equal(t, purchasing.PathAddPayment, stub.calls[0].path)
	require.Equal(t, purchasing.PathAddPaymentAlias, stub.calls[1].path)
	require.Equal(t, "bob@example.com", stub.calls[1].headers.Get(shared.HeaderUserEmail))
	require.Equal(t, "Bob Stone", stub.calls[1].headers.Get(shared.HeaderUserName))
	require.Equal(t, "application/json", stub.calls[1].headers.Get("Content-Type"))
	require.Equal(t, "40", stub.calls[1].body["amount"])
	require.Empty(t, n.msgs)
}

func TestAddPaymentFallbackFailure(t *testing.T) {
	stub, srv := newStubServer(t, map[string]func(http.ResponseWriter){
		purchasing.PathAddPayment:      respond(http.StatusMethodNotAllowed, `{"error":"Method not allowed"}`),
		purchasing.PathAddPaymentAlias: respond(http.StatusInternalServerError, `{"error":"db down"}`),
	})
	n := &toasts{}
	c := New(srv.URL, WithNotifier(n.notify))

	_, err := c.AddPOPayment(context.Background(), bob, PaymentRequest{ID: "po-1", Amount: "40"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusInternalServerError, apiErr.Status)
	require.EqualError(t, err, `API Error: 500 {"error":"db down"}`)
	require.Len(t, stub.calls, 2)
	require.Equal(t, []string{`Failed to add payment: {"error":"db down"}`}, n.msgs)
}

func TestAddPaymentDoesNotRetryOtherStatuses(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusInternalServerError} {
		stub, srv := newStubServer(t, map[string]func(http.ResponseWriter){
			purchasing.PathAddPayment:      respond(status, `{"error":"nope"}`),
			purchasing.PathAddPaymentAlias: respond(http.StatusOK, paymentOK),
		})
		_, err := New(srv.URL).AddPOPayment(context.Background(), bob, PaymentRequest{ID: "po-1", Amount: "1"})
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		require.Equal(t, status, apiErr.Status)
		require.Len(t, stub.calls, 1)
	}
}

func TestAddPaymentFallbackTransportErrorKeepsPrimary(t *testing.T) {
	_, srv := newStubServer(t, map[string]func(http.ResponseWriter){
		purchasing.PathAddPayment: respond(http.StatusNotFound, `{"error":"Not found"}`),
		purchasing.PathAddPaymentAlias: func(w http.ResponseWriter) {
			hj, ok := w.(http.Hijacker)
			if !ok {
				return
			}
			conn, _, err := hj.Hijack()
			if err == nil {
				_ = conn.Close()
			}
		},
	})
	_, err := New(srv.URL).AddPOPayment(context.Background(), bob, PaymentRequest{ID: "po-1", Amount: "1"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestMutationsNotifyAndReturnAPIError(t *testing.T) {
	stub, srv := newStubServer(t, map[string]func(http.ResponseWriter){
		purchasing.PathUpdateStatus: respond(http.StatusBadRequest, `{"error":"status required"}`),
		purchasing.PathSetPONumber:  respond(http.StatusOK, `{"ok":true,"id":"po-1","poNumber":"45001"}`),
		purchasing.PathMarkPaid:     respond(http.StatusNotFound, `{"error":"purchasing: not found"}`),
	})
	n := &toasts{}
	c := New(srv.URL, WithNotifier(n.notify))
	ctx := context.Background()

	_, err := c.UpdatePOStatus(ctx, bob, "po-1", "")
	require.EqualError(t, err, `API Error: 400 {"error":"status required"}`)

	saved, err := c.SaveEpicorPONumber(ctx, bob, "po-1", "45001")
	require.NoError(t, err)
	require.Equal(t, "45001", saved.PONumber)
	require.Equal(t, "45001", stub.calls[1].body["epicorPoNumber"])

	_, err = c.MarkPOAsPaid(ctx, shared.Identity{}, "po-1")
	require.Error(t, err)
	require.Empty(t, stub.calls[2].headers.Get(shared.HeaderUserEmail))
	require.Len(t, stub.calls, 3, "mark paid has no fallback route")

	require.Equal(t, []string{
		`Failed to update PO status: {"error":"status required"}`,
		`Failed to mark as paid: {"error":"purchasing: not found"}`,
	}, n.msgs)
}

func TestCreateAndList(t *testing.T) {
	stub, srv := newStubServer(t, map[string]func(http.ResponseWriter){
		purchasing.PathCreate: respond(http.StatusOK, `{"ok":true,"id":"po-9","subtotal":"35.00","tax":"4.55","total":"39.55"}`),
		purchasing.PathList:   respond(http.StatusOK, `{"ok":true,"page":2,"pageSize":10,"count":11,"rows":[{"id":"po-9","status":"Open","status_label":"Open","total":"39.55","paid_total":"0","remaining":"39.55","line_items":3}]}`),
	})
	c := New(srv.URL)
	ctx := context.Background()

	created, err := c.CreatePO(ctx, bob, CreateRequest{Document: purchasing.Document{
		CreatedBy: "Bob",
		Vendor:    purchasing.Vendor{Name: "Acme"},
	}})
	require.NoError(t, err)
	require.Equal(t, "39.55", created.Total)
	require.Equal(t, "Bob", stub.calls[0].body["createdBy"])

	list, err := c.ListPOs(ctx, 2, 10)
	require.NoError(t, err)
	require.Equal(t, 11, list.Count)
	require.Len(t, list.Rows, 1)
	require.Equal(t, 3, list.Rows[0].LineItems)
	require.Equal(t, "page=2&pageSize=10", stub.calls[1].query)
	require.Equal(t, http.MethodGet, stub.calls[1].method)
}

func TestCreateFailureIsWrapped(t *testing.T) {
	_, srv := newStubServer(t, map[string]func(http.ResponseWriter){
		purchasing.PathCreate: respond(http.StatusBadRequest, `{"error":"purchasing: invalid input: vendor required"}`),
	})
	n := &toasts{}
	_, err := New(srv.URL, WithNotifier(n.notify)).CreatePO(context.Background(), bob, CreateRequest{})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Contains(t, err.Error(), "failed to create PO in DB: API Error: 400")
	require.Empty(t, n.msgs)
}
