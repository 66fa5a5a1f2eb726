// Package serverapp assembles the composer HTTP service: schema loading,
// metrics, middleware, and the JSON API consumed by external UIs.
package serverapp

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pgcomposer/internal/config"
	"pgcomposer/internal/introspect"
	"pgcomposer/internal/logging"
	"pgcomposer/internal/observability"
	"pgcomposer/internal/schema"
	"pgcomposer/internal/schemafilter"
	"pgcomposer/internal/schemarefresh"
	"pgcomposer/internal/tlscert"
)

// App is the composed server with its dependencies.
type App struct {
	cfg     *config.Config
	logger  *logging.Logger
	schema  *schema.Schema
	meters  *observability.MeterProvider
	metrics *observability.ComposerMetrics
	server  *http.Server

	// Set only for DSN schema sources with background refresh enabled.
	db            *sql.DB
	refresher     *schemarefresh.Manager
	refreshCancel context.CancelFunc
}

// New builds an App from configuration. The schema is loaded in Init.
func New(cfg *config.Config, logger *logging.Logger) *App {
	return &App{cfg: cfg, logger: logger}
}

// Init loads the schema (document file or live introspection) and
// prepares the HTTP server.
func (a *App) Init(ctx context.Context) error {
	meters, err := observability.InitMeterProvider()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	a.meters = meters

	metrics, err := observability.InitComposerMetrics()
	if err != nil {
		return fmt.Errorf("failed to initialize composer metrics: %w", err)
	}
	a.metrics = metrics

	if err := a.loadSchema(ctx); err != nil {
		return err
	}
	a.logger.Info("schema loaded", "tables", len(a.currentSchema().Tables))

	mux := http.NewServeMux()
	a.registerRoutes(mux)
	mux.Handle("/metrics", promhttp.HandlerFor(meters.Registry(), promhttp.HandlerOpts{}))

	handler := middlewareChain(a.logger)(mux)
	a.server = &http.Server{
		Addr:         a.cfg.Server.ListenAddr,
		Handler:      handler,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}

	if a.cfg.Server.TLS.Enabled {
		certs, err := tlscert.NewManager(a.cfg.Server.TLS, a.logger)
		if err != nil {
			return fmt.Errorf("failed to initialize TLS: %w", err)
		}
		tlsConfig, err := certs.TLSConfig()
		if err != nil {
			return fmt.Errorf("failed to build TLS config: %w", err)
		}
		a.server.TLSConfig = tlsConfig
		a.logger.Info("TLS enabled", "certificates", certs.Description())
	}
	return nil
}

// currentSchema returns the live schema: the refresher's active
// snapshot when background refresh runs, the startup schema otherwise.
func (a *App) currentSchema() *schema.Schema {
	if a.refresher != nil {
		return a.refresher.Current()
	}
	return a.schema
}

func (a *App) loadSchema(ctx context.Context) error {
	if a.cfg.Schema.File != "" {
		loaded, err := schema.LoadFile(a.cfg.Schema.File)
		if err != nil {
			return fmt.Errorf("failed to load schema document: %w", err)
		}
		schemafilter.Apply(loaded, a.cfg.Schema.Filters)
		a.schema = loaded
		return nil
	}

	db, err := sql.Open("postgres", a.cfg.Schema.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	if a.cfg.Schema.RefreshEnabled {
		refresher, err := schemarefresh.NewManager(ctx, schemarefresh.Config{
			DB:          db,
			Logger:      a.logger,
			Filters:     a.cfg.Schema.Filters,
			MinInterval: a.cfg.Schema.RefreshMinInterval,
			MaxInterval: a.cfg.Schema.RefreshMaxInterval,
		})
		if err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to build schema snapshot: %w", err)
		}
		a.db = db
		a.refresher = refresher
		return nil
	}

	defer func() {
		_ = db.Close()
	}()
	loaded, err := introspect.Database(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to introspect database: %w", err)
	}
	schemafilter.Apply(loaded, a.cfg.Schema.Filters)
	a.schema = loaded
	return nil
}

// Start runs the HTTP server and the refresh loop, reporting the
// server's terminal error on the returned channel.
func (a *App) Start() <-chan error {
	if a.refresher != nil {
		refreshCtx, cancel := context.WithCancel(context.Background())
		a.refreshCancel = cancel
		a.refresher.Start(refreshCtx)
	}

	errs := make(chan error, 1)
	go func() {
		a.logger.Info("server listening", "addr", a.cfg.Server.ListenAddr)
		var err error
		if a.server.TLSConfig != nil {
			err = a.server.ListenAndServeTLS("", "")
		} else {
			err = a.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			errs <- err
		}
		close(errs)
	}()
	return errs
}

// Shutdown gracefully stops the server, the refresh loop, and the
// metric pipeline.
func (a *App) Shutdown(ctx context.Context) error {
	var firstErr error
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			firstErr = err
		}
	}
	if a.refreshCancel != nil {
		a.refreshCancel()
		if err := a.refresher.Wait(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := a.meters.Shutdown(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
