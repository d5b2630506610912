package app

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/PPA-BE/Orders-At-Peak/internal/export"
	"github.com/PPA-BE/Orders-At-Peak/internal/observability"
	"github.com/PPA-BE/Orders-At-Peak/report"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.AppAddr)
	require.Equal(t, time.Hour, cfg.ExportTTL)
	require.Equal(t, 120, cfg.RateLimitPerMinute)
	require.Equal(t, "web/assets/po-template-new.xlsx", cfg.TemplatePath)
	require.True(t, cfg.TaxRate.Equal(decimal.RequireFromString("0.13")))
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("TAX_RATE", "0.05")
	t.Setenv("PO_EXPORT_TTL", "15m")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "30")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.True(t, cfg.IsProduction())
	require.Equal(t, "0.05", cfg.TaxRate.String())
	require.Equal(t, 15*time.Minute, cfg.ExportTTL)
	require.Equal(t, 30, cfg.RateLimitPerMinute)
}

func TestLoadConfigRejectsTaxRate(t *testing.T) {
	for _, raw := range []string{"0", "0.00", "1", "1.5", "-0.01", "abc"} {
		t.Run(raw, func(t *testing.T) {
			t.Setenv("TAX_RATE", raw)
			_, err := LoadConfig()
			require.Error(t, err)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{TaxRate: decimal.RequireFromString("0.13"), RateLimitPerMinute: 1, ExportTTL: time.Second, TemplatePath: "t.xlsx"}
	require.NoError(t, cfg.Validate())

	cfg.TaxRate = decimal.Zero
	require.ErrorContains(t, cfg.Validate(), "TAX_RATE must be in (0,1)")
	cfg.TaxRate = decimal.RequireFromString("0.13")

	cfg.RateLimitPerMinute = 0
	require.Error(t, cfg.Validate())

	cfg.RateLimitPerMinute = 1
	cfg.ExportTTL = 0
	require.Error(t, cfg.Validate())

	cfg.ExportTTL = time.Second
	cfg.TemplatePath = ""
	require.Error(t, cfg.Validate())
}

func TestConfigTemplateLabels(t *testing.T) {
	t.Setenv("PO_TEMPLATE_LABELS", "b3: REQUISITIONER ,H3:DATE")
	cfg, err := LoadConfig()
	require.NoError(t, err)

	cells := cfg.CellMap()
	require.Equal(t, map[string]string{"B3": "REQUISITIONER", "H3": "DATE"}, cells.Labels)
	require.Equal(t, export.DefaultCellMap.Header, cells.Header)
	require.Nil(t, export.DefaultCellMap.Labels)

	t.Setenv("PO_TEMPLATE_LABELS", "nowhere:DATE")
	_, err = LoadConfig()
	require.ErrorIs(t, err, export.ErrTemplateMismatch)
}

func TestRuntimeTestMode(t *testing.T) {
	t.Setenv(testModeEnv, "1")
	RefreshTestMode()
	require.True(t, InTestMode())

	t.Setenv(testModeEnv, "0")
	RefreshTestMode()
	require.False(t, InTestMode())
}

func newTestRouter(params RouterParams) http.Handler {
	if params.Logger == nil {
		params.Logger = testLogger()
	}
	if params.Config == nil {
		params.Config = &Config{AppEnv: "test", RateLimitPerMinute: 1000, AppRequestTimeout: 5 * time.Second}
	}
	return NewRouter(params)
}

func TestRouterHealthAndFallbacks(t *testing.T) {
	router := newTestRouter(RouterParams{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	require.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	require.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.JSONEq(t, `{"error":"Not found"}`, rr.Body.String())

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/healthz", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	require.JSONEq(t, `{"error":"Method not allowed"}`, rr.Body.String())
}

func TestRouterReadiness(t *testing.T) {
	router := newTestRouter(RouterParams{Ready: func(*http.Request) error { return errors.New("database unreachable") }})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	require.JSONEq(t, `{"error":"database unreachable"}`, rr.Body.String())

	router = newTestRouter(RouterParams{})
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestRouterMountsReportAndMetrics(t *testing.T) {
	gotenberg := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(gotenberg.Close)

	metrics := observability.NewMetrics()
	router := newTestRouter(RouterParams{
		ReportHandler: report.NewHandler(report.NewClient(gotenberg.URL), testLogger()),
		Metrics:       metrics,
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, report.PathPing, nil))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, strings.Contains(rr.Body.String(), `orders_http_requests_total{code="200",route="/api/pdf/ping"} 1`), rr.Body.String())
}

func TestRateLimitRespondsJSON(t *testing.T) {
	router := newTestRouter(RouterParams{Config: &Config{RateLimitPerMinute: 1}})

	req := func() *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		r.RemoteAddr = "10.0.0.1:1234"
		router.ServeHTTP(rr, r)
		return rr
	}
	require.Equal(t, http.StatusOK, req().Code)
	rr := req()
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	require.JSONEq(t, `{"error":"Too Many Requests"}`, rr.Body.String())
}
