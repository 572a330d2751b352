package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/creditkeeper/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   gRPC bind address (e.g., ":50061")
//	-w string   HTTP bind address for receipt verification and metrics
//	-s string   transaction signing key
//	-e string   environment (sandbox or production)
//	-p string   shared secret expected by receipt verification
//	-x int      cancel every n-th purchase
//	-k string   product catalog JSON file
//	-l string   log level
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-w", "-s", "-e", "-p", "-x", "-k", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run the gRPC gateway")
	fs.StringVar(&config.HTTPAddr, "w", config.HTTPAddr, "address and port of the verification endpoint")
	fs.StringVar(&config.SigningKey, "s", config.SigningKey, "transaction signing key")
	fs.StringVar(&config.Environment, "e", config.Environment, "environment (sandbox or production)")
	fs.StringVar(&config.SharedSecret, "p", config.SharedSecret, "receipt verification shared secret")
	fs.IntVar(&config.CancelEvery, "x", config.CancelEvery, "cancel every n-th purchase (0 disables)")
	fs.StringVar(&config.ProductCatalogFile, "k", config.ProductCatalogFile, "product catalog JSON file")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
