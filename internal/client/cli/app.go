package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/creditkeeper/internal/client/catalog"
	"github.com/dmitrijs2005/creditkeeper/internal/client/config"
	"github.com/dmitrijs2005/creditkeeper/internal/client/export"
	"github.com/dmitrijs2005/creditkeeper/internal/client/ledger"
	"github.com/dmitrijs2005/creditkeeper/internal/client/processed"
	"github.com/dmitrijs2005/creditkeeper/internal/client/receipt"
	"github.com/dmitrijs2005/creditkeeper/internal/client/reconciler"
	"github.com/dmitrijs2005/creditkeeper/internal/client/services"
	"github.com/dmitrijs2005/creditkeeper/internal/client/storage"
	"github.com/dmitrijs2005/creditkeeper/internal/client/trial"
	"github.com/dmitrijs2005/creditkeeper/internal/client/storefront"
	"github.com/dmitrijs2005/creditkeeper/internal/logging"
	"github.com/dmitrijs2005/creditkeeper/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

type App struct {
	config  *config.Config
	svc     services.CreditService
	store   *storage.Store
	log     logging.Logger
	reg     *prometheus.Registry
	reader  *bufio.Reader
	out     io.Writer
	sinkFor func(ctx context.Context, target string) (export.Sink, error)
}

// NewApp opens the credit store and wires the credit engine described by c.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	store, err := storage.Open(ctx, c.DatabaseDriver, c.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	cat, err := catalog.Load(c.ProductCatalogFile)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	l := ledger.New(store, log, ledger.WithLimits(c.HistoryLimit, c.PurchaseLimit))
	tracker := processed.New(store)
	gate := trial.New(store, log)

	hv := receipt.NewHTTPValidator(receipt.Config{
		ProductionURL: c.ProductionVerifyURL,
		SandboxURL:    c.SandboxVerifyURL,
		SharedSecret:  c.SharedSecret,
		Timeout:       c.ValidationTimeout,
		Retries:       uint64(max(c.ValidationRetries, 0)),
	}, &http.Client{Timeout: c.ValidationTimeout}, log)

	var signedKey []byte
	if c.SignedTxKey != "" {
		signedKey = []byte(c.SignedTxKey)
	}
	rec := reconciler.New(reconciler.Config{
		ValidationEnabled:     c.ValidationEnabled,
		TrustedFallback:       c.TrustedFallback,
		SignedTransactionKey:  signedKey,
		PollInterval:          c.PollInterval,
		PollBudget:            c.PollBudget,
		ManualReconcileWindow: c.ManualReconcileWindow,
	}, store, l, tracker, cat, hv, log, m)

	svc := services.NewCreditService(services.Deps{
		Store:              store,
		Ledger:             l,
		Trial:              gate,
		Tracker:            tracker,
		Catalog:            cat,
		Reconciler:         rec,
		Validator:          hv,
		Adapter:            adapterFactory(c, cat, log),
		DemoFallback:       c.DemoFallback,
		ProcessedRetention: c.ProcessedRetention,
		Log:                log,
		Metrics:            m,
	})

	a := &App{
		config: c,
		svc:    svc,
		store:  store,
		log:    log.With("module", "cli"),
		reg:    reg,
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}
	a.sinkFor = a.defaultSink
	return a, nil
}

func adapterFactory(c *config.Config, cat *catalog.Catalog, log logging.Logger) func(ctx context.Context) (storefront.Adapter, error) {
	return func(ctx context.Context) (storefront.Adapter, error) {
		if c.StoreMode == config.StoreModeMock {
			return storefront.NewMockAdapter(cat.Products()), nil
		}
		return storefront.NewGatewayAdapter(c.StoreEndpointAddr, log)
	}
}

// defaultSink picks the export destination: "s3" uploads to the configured
// bucket, an http(s) URL receives a PUT, anything else is a local directory
// (empty means the default one).
func (a *App) defaultSink(ctx context.Context, target string) (export.Sink, error) {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		return export.URLSink{URL: target, Client: &http.Client{Timeout: 30 * time.Second}}, nil
	}
	if target != "s3" {
		if target == "" {
			target = a.config.ExportDir
		}
		return export.FileSink{Dir: target}, nil
	}
	if a.config.S3Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is not configured")
	}
	client, err := export.NewS3Client(ctx, export.S3Config{
		Bucket:       a.config.S3Bucket,
		Prefix:       a.config.S3Prefix,
		Region:       a.config.S3Region,
		BaseEndpoint: a.config.S3BaseEndpoint,
		AccessKey:    a.config.S3AccessKey,
		SecretKey:    a.config.S3SecretKey,
	})
	if err != nil {
		return nil, err
	}
	return export.NewS3Sink(client, a.config.S3Bucket, a.config.S3Prefix), nil
}

// Run initializes the engine, serves metrics when configured and blocks in
// the REPL until the user exits or ctx is done.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	defer func() {
		if err := a.svc.Close(context.WithoutCancel(ctx)); err != nil {
			a.log.Warn(ctx, "failed to close store adapter", "error", err)
		}
		if err := a.store.Close(); err != nil {
			a.log.Warn(ctx, "failed to close database", "error", err)
		}
	}()

	if err := a.svc.Initialize(ctx); err != nil {
		return err
	}

	if a.config.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, a.config.MetricsAddr, a.reg, a.log); err != nil {
				a.log.Error(ctx, "metrics server stopped", "error", err)
			}
		}()
	}

	printlnFn(fmt.Sprintf("Welcome to CreditKeeper CLI, store: %s (type 'help' for commands)", a.svc.StoreName()))
	runREPL(ctx, a, a.getStatus, bufio.NewScanner(a.reader))
	return nil
}

func (a *App) getStatus() string {
	return fmt.Sprintf("(%s, %d credits)", a.svc.StoreName(), a.svc.Balance(context.Background()))
}
