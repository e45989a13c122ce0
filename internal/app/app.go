// Package app wires the hashing protocol's components (session, tcpserver,
// logging, metrics) into a runnable process: configuration, the optional
// metrics HTTP surface, and graceful shutdown on signal.
package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"hashd/internal/logging"
	"hashd/internal/metrics"
	"hashd/internal/tcpserver"
)

// App owns one running instance of the hashing server plus its ambient
// metrics/health surface.
type App struct {
	cfg     Config
	log     logging.Logger
	metrics *metrics.Metrics
	server  *tcpserver.Server
}

// New constructs an App from cfg. It does not bind any sockets yet.
func New(cfg Config) (*App, error) {
	log := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Pretty,
	})

	m := metrics.New()

	srv, err := tcpserver.New(tcpserver.Config{
		Port:              cfg.Port,
		ConnectionTimeout: cfg.ConnectionTimeout,
		ReapInterval:      cfg.ReapInterval,
	}, log, m)
	if err != nil {
		return nil, fmt.Errorf("app: construct server: %w", err)
	}

	return &App{
		cfg:     cfg,
		log:     log,
		metrics: m,
		server:  srv,
	}, nil
}

// Run starts the hashing server and, if configured, the metrics HTTP
// surface, and blocks until ctx is cancelled or either fails.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.server.Start(gctx)
	})

	if a.cfg.MetricsAddr != "" {
		httpSrv := newMetricsServer(a.cfg.MetricsAddr, a.metrics.Registry())
		g.Go(func() error {
			return serveMetrics(gctx, httpSrv)
		})
		a.log.Message(fmt.Sprintf("metrics listening on %s", a.cfg.MetricsAddr))
	}

	return g.Wait()
}

// Logger exposes the app's logger, chiefly for the CLI entrypoint to log
// startup/shutdown events with the same sink the server uses.
func (a *App) Logger() logging.Logger { return a.log }
