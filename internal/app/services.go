package app

import (
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/PPA-BE/Orders-At-Peak/internal/export"
	"github.com/PPA-BE/Orders-At-Peak/internal/observability"
	"github.com/PPA-BE/Orders-At-Peak/internal/preview"
	"github.com/PPA-BE/Orders-At-Peak/internal/purchasing"
	"github.com/PPA-BE/Orders-At-Peak/internal/shared"
	"github.com/PPA-BE/Orders-At-Peak/internal/view"
	"github.com/PPA-BE/Orders-At-Peak/report"
)

// ServiceDeps are the infrastructure handles shared by every entry point.
type ServiceDeps struct {
	Config   *Config
	Logger   *slog.Logger
	Pool     *pgxpool.Pool
	Redis    *redis.Client
	Notifier purchasing.Notifier
	Metrics  *observability.Metrics
}

// Services bundles the domain services used by the server, worker and CLI.
type Services struct {
	Purchasing *purchasing.Service
	Export     *export.Service
	Preview    *preview.Service
	Templates  *export.TemplateLoader
	PDF        *report.Client
}

// NewServices wires the purchasing, export and preview flows. Redis, Notifier
// and Metrics may be nil.
func NewServices(deps ServiceDeps) (*Services, error) {
	if deps.Config == nil || deps.Pool == nil {
		return nil, errors.New("app: config and database pool required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var (
		recorder purchasing.Recorder
		exports  export.Recorder
	)
	if deps.Metrics != nil {
		recorder = deps.Metrics
		exports = deps.Metrics
	}

	purchasingSvc := purchasing.NewService(
		purchasing.NewRepository(deps.Pool),
		shared.NewAuditLogger(deps.Pool),
		deps.Notifier,
		recorder,
		purchasing.ServiceConfig{TaxRate: deps.Config.TaxRate, Logger: logger},
	)

	loader := export.NewTemplateLoader(deps.Config.TemplatePath, deps.Config.CellMap())
	var store *export.ArtifactStore
	if deps.Redis != nil {
		store = export.NewArtifactStore(deps.Redis, deps.Config.ExportTTL)
	}
	exportSvc := export.NewService(
		purchasingSvc,
		loader,
		export.NewProjector(purchasingSvc.TaxRate(), nil),
		store,
		exports,
		logger,
	)

	engine, err := view.NewEngine()
	if err != nil {
		return nil, err
	}
	var (
		pdfClient *report.Client
		converter preview.PDFConverter
	)
	if deps.Config.GotenbergURL != "" {
		pdfClient = report.NewClient(deps.Config.GotenbergURL)
		converter = pdfClient
	}
	previewSvc := preview.NewService(purchasingSvc, preview.NewRenderer(engine, purchasingSvc.TaxRate()), converter)

	return &Services{
		Purchasing: purchasingSvc,
		Export:     exportSvc,
		Preview:    previewSvc,
		Templates:  loader,
		PDF:        pdfClient,
	}, nil
}

// Handlers builds the HTTP handlers for the services.
func (s *Services) Handlers(params RouterParams) RouterParams {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	params.PurchasingHandler = purchasing.NewHandler(logger, s.Purchasing)
	params.ExportHandler = export.NewHandler(logger, s.Export)
	params.PreviewHandler = preview.NewHandler(logger, s.Preview)
	if s.PDF != nil {
		params.ReportHandler = report.NewHandler(s.PDF, logger)
	}
	return params
}
