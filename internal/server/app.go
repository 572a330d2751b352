// Package server runs the store simulator: the StoreGateway gRPC service and
// the HTTP receipt verification endpoint, until a signal arrives.
package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/creditkeeper/internal/client/catalog"
	"github.com/dmitrijs2005/creditkeeper/internal/logging"
	"github.com/dmitrijs2005/creditkeeper/internal/metrics"
	"github.com/dmitrijs2005/creditkeeper/internal/server/config"
	"github.com/dmitrijs2005/creditkeeper/internal/server/gateway"
	"github.com/prometheus/client_golang/prometheus"

	gs "github.com/dmitrijs2005/creditkeeper/internal/server/grpc"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	registry *prometheus.Registry
	grpc     *gs.GRPCServer
	verifier *gateway.Verifier
}

func NewApp(c *config.Config) (*App, error) {
	logger := logging.NewLogger(os.Stdout, c.LogLevel, c.LogFormat)

	cat, err := catalog.Load(c.ProductCatalogFile)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	var key []byte
	if c.SigningKey != "" {
		key = []byte(c.SigningKey)
	}
	store := gateway.NewStore(cat, gateway.Options{
		SigningKey:  key,
		Environment: c.Environment,
		CancelEvery: c.CancelEvery,
	}, logger)

	return &App{
		config:   c,
		logger:   logger,
		registry: reg,
		grpc:     gs.NewGRPCServer(c.EndpointAddrGRPC, logger, store, m),
		verifier: gateway.NewVerifier(store, c.SharedSecret, m),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.grpc.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	srv := &http.Server{
		Addr:              app.config.HTTPAddr,
		Handler:           app.verifier.Handler(app.registry),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	app.logger.Info(ctx, "Starting verification endpoint", "address", app.config.HTTPAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run blocks until ctx is cancelled, a termination signal arrives or one of
// the listeners fails.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting store simulator...", "environment", app.config.Environment)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()
}
