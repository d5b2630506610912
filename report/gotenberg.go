// Package report converts HTML pages to PDF through Gotenberg.
package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrNotConfigured is returned when no Gotenberg URL is set.
var ErrNotConfigured = errors.New("report: gotenberg url not configured")

// PageOptions controls paper layout. Sizes are in inches.
type PageOptions struct {
	PaperWidth   float64
	PaperHeight  float64
	MarginTop    float64
	MarginBottom float64
	MarginLeft   float64
	MarginRight  float64
	Landscape    bool
}

// LetterPortrait is the layout used for purchase orders.
var LetterPortrait = PageOptions{
	PaperWidth:   8.5,
	PaperHeight:  11,
	MarginTop:    0.4,
	MarginBottom: 0.4,
	MarginLeft:   0.4,
	MarginRight:  0.4,
}

// Client wraps interactions with the Gotenberg API.
type Client struct {
	baseURL    string
	page       PageOptions
	httpClient *http.Client
}

// NewClient constructs a new client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		page:    LetterPortrait,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// WithPage returns a copy using different page options.
func (c *Client) WithPage(page PageOptions) *Client {
	cp := *c
	cp.page = page
	return &cp
}

// Ping checks if the remote Gotenberg service is available.
func (c *Client) Ping(ctx context.Context) error {
	if c.baseURL == "" {
		return ErrNotConfigured
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/health", c.baseURL), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("gotenberg returned status %d", resp.StatusCode)
	}
	return nil
}

// RenderHTML converts a standalone HTML page into a PDF document.
func (c *Client) RenderHTML(ctx context.Context, html string) ([]byte, error) {
	if c.baseURL == "" {
		return nil, ErrNotConfigured
	}
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("files", "index.html")
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, strings.NewReader(html)); err != nil {
		return nil, err
	}
	if err := c.page.writeFields(writer); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/forms/chromium/convert/html", c.baseURL), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("render failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return io.ReadAll(resp.Body)
}

func (p PageOptions) writeFields(w *multipart.Writer) error {
	fields := []struct {
		name  string
		value float64
	}{
		{"paperWidth", p.PaperWidth},
		{"paperHeight", p.PaperHeight},
		{"marginTop", p.MarginTop},
		{"marginBottom", p.MarginBottom},
		{"marginLeft", p.MarginLeft},
		{"marginRight", p.MarginRight},
	}
	for _, f := range fields {
		if f.value <= 0 {
			continue
		}
		if err := w.WriteField(f.name, strconv.FormatFloat(f.value, 'f', -1, 64)); err != nil {
			return err
		}
	}
	if err := w.WriteField("printBackground", "true"); err != nil {
		return err
	}
	return w.WriteField("landscape", strconv.FormatBool(p.Landscape))
}
