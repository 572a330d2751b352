package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/creditkeeper/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
//	-driver string   database driver (sqlite or pgx)
//	-d string        database DSN
//	-m string        store mode (grpc or mock)
//	-a string        store gateway address
//	-demo bool       fall back to the demo store when the gateway is down
//	-v bool          verify receipts
//	-p string        product catalog JSON file
//	-metrics string  address of the Prometheus endpoint
//	-l string        log level
//
// os.Args is filtered with flagx.FilterArgs so unrelated flags are ignored.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:],
		[]string{"-driver", "-d", "-m", "-a", "-demo", "-v", "-p", "-metrics", "-l"},
		"-demo", "-v")

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.DatabaseDriver, "driver", cfg.DatabaseDriver, "database driver (sqlite or pgx)")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN")
	fs.StringVar(&cfg.StoreMode, "m", cfg.StoreMode, "store mode (grpc or mock)")
	fs.StringVar(&cfg.StoreEndpointAddr, "a", cfg.StoreEndpointAddr, "address and port of the store gateway")
	fs.BoolVar(&cfg.DemoFallback, "demo", cfg.DemoFallback, "use the demo store when the gateway is unavailable")
	fs.BoolVar(&cfg.ValidationEnabled, "v", cfg.ValidationEnabled, "verify receipts with the store")
	fs.StringVar(&cfg.ProductCatalogFile, "p", cfg.ProductCatalogFile, "product catalog JSON file")
	fs.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, "address of the Prometheus metrics endpoint")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
