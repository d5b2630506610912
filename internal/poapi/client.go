// Package poapi is a Go client for the purchase order JSON API.
package poapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PPA-BE/Orders-At-Peak/internal/purchasing"
	"github.com/PPA-BE/Orders-At-Peak/internal/shared"
)

// APIError is a non-2xx response.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API Error: %d %s", e.Status, e.Body)
}

// Notifier shows a transient message to the operator. It is called before
// the error is returned.
type Notifier func(msg string, isError bool)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithNotifier installs a failure notifier.
func WithNotifier(n Notifier) Option {
	return func(c *Client) { c.notify = n }
}

// Client calls the purchase order API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	notify     Notifier
}

// New constructs a client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		notify:     func(string, bool) {},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateRequest is the body of a create call.
type CreateRequest struct {
	purchasing.Document
	Meta map[string]any `json:"meta,omitempty"`
}

// CreateResult echoes the stored totals.
type CreateResult struct {
	OK       bool   `json:"ok"`
	ID       string `json:"id"`
	Subtotal string `json:"subtotal"`
	Tax      string `json:"tax"`
	Total    string `json:"total"`
}

// PONumberResult is returned after saving the ERP reference.
type PONumberResult struct {
	OK       bool   `json:"ok"`
	ID       string `json:"id"`
	PONumber string `json:"poNumber"`
}

// StatusResult is returned after a status change.
type StatusResult struct {
	OK     bool   `json:"ok"`
	ID     string `json:"id"`
	Status string `json:"status"`
}

// MarkPaidResult is returned after stamping paid_at.
type MarkPaidResult struct {
	OK     bool      `json:"ok"`
	ID     string    `json:"id"`
	PaidAt time.Time `json:"paidAt"`
}

// PaymentRequest is the body of an add-payment call.
type PaymentRequest struct {
	ID     string `json:"id"`
	Amount string `json:"amount"`
	Method string `json:"method,omitempty"`
	Note   string `json:"note,omitempty"`
}

// PaymentResult carries the stored payment and fresh totals.
type PaymentResult struct {
	OK        bool               `json:"ok"`
	ID        string             `json:"id"`
	Payment   purchasing.Payment `json:"payment"`
	PaidTotal string             `json:"paidTotal"`
	Remaining string             `json:"remaining"`
}

// ListResult is one page of purchase orders.
type ListResult struct {
	OK       bool                 `json:"ok"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"pageSize"`
	Count    int                  `json:"count"`
	Rows     []purchasing.Summary `json:"rows"`
}

// CreatePO stores a new purchase order.
func (c *Client) CreatePO(ctx context.Context, id shared.Identity, req CreateRequest) (CreateResult, error) {
	var out CreateResult
	resp, err := c.post(ctx, purchasing.PathCreate, req, id)
	if err != nil {
		return out, err
	}
	if err := resp.err(); err != nil {
		return out, fmt.Errorf("failed to create PO in DB: %w", err)
	}
	return out, resp.decode(&out)
}

// SaveEpicorPONumber stores the external ERP PO number.
func (c *Client) SaveEpicorPONumber(ctx context.Context, id shared.Identity, poID, number string) (PONumberResult, error) {
	var out PONumberResult
	body := map[string]string{"id": poID, "epicorPoNumber": number}
	if err := c.mutate(ctx, purchasing.PathSetPONumber, "", body, id, "Failed to save Epicor PO #", &out); err != nil {
		return out, err
	}
	return out, nil
}

// UpdatePOStatus overwrites the workflow label.
func (c *Client) UpdatePOStatus(ctx context.Context, id shared.Identity, poID, status string) (StatusResult, error) {
	var out StatusResult
	body := map[string]string{"id": poID, "status": status}
	if err := c.mutate(ctx, purchasing.PathUpdateStatus, "", body, id, "Failed to update PO status", &out); err != nil {
		return out, err
	}
	return out, nil
}

// MarkPOAsPaid stamps the paid timestamp.
func (c *Client) MarkPOAsPaid(ctx context.Context, id shared.Identity, poID string) (MarkPaidResult, error) {
	var out MarkPaidResult
	body := map[string]string{"id": poID}
	if err := c.mutate(ctx, purchasing.PathMarkPaid, "", body, id, "Failed to mark as paid", &out); err != nil {
		return out, err
	}
	return out, nil
}

// AddPOPayment appends a payment. A 404 or 405 from the primary route is
// retried once on the function alias.
func (c *Client) AddPOPayment(ctx context.Context, id shared.Identity, req PaymentRequest) (PaymentResult, error) {
	var out PaymentResult
	if err := c.mutate(ctx, purchasing.PathAddPayment, purchasing.PathAddPaymentAlias, req, id, "Failed to add payment", &out); err != nil {
		return out, err
	}
	return out, nil
}

// ListPOs fetches one page of purchase orders. Zero values use server defaults.
func (c *Client) ListPOs(ctx context.Context, page, pageSize int) (ListResult, error) {
	var out ListResult
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if pageSize > 0 {
		q.Set("pageSize", strconv.Itoa(pageSize))
	}
	path := purchasing.PathList
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return out, err
	}
	resp, err := c.do(req)
	if err != nil {
		return out, err
	}
	if err := resp.err(); err != nil {
		return out, err
	}
	return out, resp.decode(&out)
}

func (c *Client) mutate(ctx context.Context, primary, fallback string, payload any, id shared.Identity, failMsg string, out any) error {
	resp, err := c.post(ctx, primary, payload, id)
	if err != nil {
		return err
	}
	if fallback != "" && (resp.status == http.StatusNotFound || resp.status == http.StatusMethodNotAllowed) {
		// A transport failure on the alias keeps the primary response.
		if retry, err := c.post(ctx, fallback, payload, id); err == nil {
			resp = retry
		}
	}
	if err := resp.err(); err != nil {
		c.notify(fmt.Sprintf("%s: %s", failMsg, resp.body), true)
		return err
	}
	return resp.decode(out)
}

func (c *Client) post(ctx context.Context, path string, payload any, id shared.Identity) (*response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("poapi: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range id.Headers() {
		req.Header[k] = v
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) (*response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &response{status: resp.StatusCode, body: string(data)}, nil
}

type response struct {
	status int
	body   string
}

func (r *response) err() error {
	if r.status >= 200 && r.status < 300 {
		return nil
	}
	return &APIError{Status: r.status, Body: r.body}
}

func (r *response) decode(out any) error {
	if err := json.Unmarshal([]byte(r.body), out); err != nil {
		return fmt.Errorf("poapi: decode response: %w", err)
	}
	return nil
}
