package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/PPA-BE/Orders-At-Peak/internal/export"
	"github.com/PPA-BE/Orders-At-Peak/internal/observability"
	"github.com/PPA-BE/Orders-At-Peak/internal/platform/httpx"
	"github.com/PPA-BE/Orders-At-Peak/internal/preview"
	"github.com/PPA-BE/Orders-At-Peak/internal/purchasing"
	"github.com/PPA-BE/Orders-At-Peak/jobs"
	"github.com/PPA-BE/Orders-At-Peak/report"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	PurchasingHandler *purchasing.Handler
	ExportHandler     *export.Handler
	PreviewHandler    *preview.Handler
	ReportHandler     *report.Handler
	JobHandler        *jobs.Handler
	Metrics           *observability.Metrics
	// Ready reports dependency health for /readyz. Nil means always ready.
	Ready func(r *http.Request) error
}

// NewRouter constructs the chi.Router with PO API defaults.
func NewRouter(params RouterParams) http.Handler {
	if params.Logger == nil {
		params.Logger = slog.Default()
	}
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	if params.Config != nil && !params.Config.IsProduction() {
		r.Use(chimw.Logger)
	}

	r.NotFound(httpx.NotFound)
	r.MethodNotAllowed(httpx.MethodNotAllowed)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if params.Ready != nil {
			if err := params.Ready(r); err != nil {
				params.Logger.Warn("readiness check failed", slog.Any("error", err))
				httpx.Error(w, http.StatusServiceUnavailable, err.Error())
				return
			}
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	if params.PurchasingHandler != nil {
		params.PurchasingHandler.MountRoutes(r)
	}
	if params.ExportHandler != nil {
		params.ExportHandler.MountRoutes(r)
	}
	if params.PreviewHandler != nil {
		params.PreviewHandler.MountRoutes(r)
	}
	if params.ReportHandler != nil {
		params.ReportHandler.MountRoutes(r)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
