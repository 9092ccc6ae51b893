package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"adpulse/internal/config"
	"adpulse/internal/errors"
	"adpulse/internal/exporter"
	"adpulse/internal/infrastructure"
	"adpulse/internal/ingest"
	customMiddleware "adpulse/internal/middleware"
	"adpulse/internal/notify"
	"adpulse/internal/services"
	"adpulse/internal/sheetstore"
	handlers "adpulse/internal/transport/http"
)

// Version is the build version, overridable at link time.
var Version = "dev"

// Application wires configuration, services and the HTTP server.
type Application struct {
	Config  *config.Config
	Router  *chi.Mux
	Server  *http.Server
	Store   sheetstore.Store
	Service *services.ReportService
	Metrics *infrastructure.Metrics
	Logger  *slog.Logger
}

// NewApplication loads configuration and builds the full dependency graph.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("application starting",
		slog.String("version", Version),
		slog.Int("port", cfg.Server.Port),
		slog.Bool("sheets_enabled", cfg.SheetsEnabled()),
		slog.Bool("webhook_enabled", cfg.Webhook.URL != ""))

	app := &Application{
		Config:  cfg,
		Logger:  logger,
		Metrics: infrastructure.NewMetrics(),
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices builds the storage, ingestion, export and notification
// collaborators and the report service on top of them.
func (a *Application) initializeServices() error {
	if a.Config.SheetsEnabled() {
		creds, err := a.Config.SheetsCredentials()
		if err != nil {
			return fmt.Errorf("failed to read sheets credentials: %w", err)
		}
		store, err := sheetstore.New(context.Background(), sheetstore.Config{
			SpreadsheetID:   a.Config.Sheets.SpreadsheetID,
			WorksheetName:   a.Config.Sheets.WorksheetName,
			CredentialsJSON: creds,
		}, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize sheet store: %w", err)
		}
		a.Store = store
	} else {
		a.Logger.Warn("no spreadsheet configured, history is in-memory only")
		a.Store = sheetstore.NewMemory()
	}

	webhook := notify.NewWebhook(
		a.Config.Webhook.URL,
		&http.Client{Timeout: a.Config.Webhook.Timeout},
		a.Logger,
	)

	a.Service = services.NewReportService(
		a.Store,
		ingest.NewReader(a.Logger),
		exporter.NewExcelExporter(a.Logger),
		exporter.NewCSVWriter(a.Config.Paths.ExportsDir, a.Logger),
		webhook,
		a.Metrics,
		a.Config.Paths.ExportsDir,
		a.Logger,
	)

	return nil
}

// setupRouter configures the HTTP router and all routes.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(customMiddleware.Recoverer(a.Logger))
	r.Use(customMiddleware.SecurityHeaders)

	if a.Config.Security.EnableCORS {
		r.Use(customMiddleware.CORS(customMiddleware.CORSConfig{
			AllowedOrigins:   a.Config.Security.AllowedOrigins,
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
			Logger:           a.Logger,
		}))
	}

	if a.Config.Security.RateLimit.Enabled {
		r.Use(customMiddleware.NewRateLimiter(
			a.Config.Security.RateLimit.RPS,
			a.Config.Security.RateLimit.Burst,
			a.Logger,
		).Handler)
	}

	r.Use(customMiddleware.Compress(5))

	errorHandler := errors.NewErrorHandler(a.Logger, false)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		healthHandler := handlers.NewHealthHandler(Version, a.Config.SheetsEnabled(), a.Config.Webhook.URL != "")
		r.Get("/health", healthHandler.HealthCheck)
		r.Get("/health/ready", healthHandler.ReadinessCheck)
		r.Get("/health/live", healthHandler.LivenessCheck)
		r.Get("/version", healthHandler.Version)

		reportHandler := handlers.NewReportHandler(
			a.Service,
			a.Config.Server.MaxUploadBytes,
			a.Logger,
			errorHandler,
		)
		r.Mount("/reports", reportHandler.Routes())
	})

	// Generated exports are served as plain files so notification links
	// resolve.
	r.Route("/exports", func(r chi.Router) {
		r.Handle("/*", http.StripPrefix("/exports",
			http.FileServer(http.Dir(a.Config.Paths.ExportsDir))))
	})

	r.Handle("/metrics", a.Metrics.Handler())

	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	a.Router = r
}

// createServer creates the HTTP server.
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start begins serving. It returns immediately; server errors cancel the
// passed context.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "http server listening",
		slog.String("address", a.Server.Addr))

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	return nil
}

// Stop gracefully stops the application.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	infrastructure.CloseLogFile()
	a.Logger.InfoContext(ctx, "shutdown complete")
	return nil
}

// Run runs the application until interrupted.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "received interrupt signal")
	case <-ctx.Done():
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 1*time.Minute)
	defer stopCancel()
	return a.Stop(stopCtx)
}
