// Command server runs the store simulator: the gRPC storefront gateway and the
// receipt verification endpoint.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/creditkeeper/internal/server"
	"github.com/dmitrijs2005/creditkeeper/internal/server/config"
)

func main() {

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()
	app, err := server.NewApp(cfg)
	if err != nil {
		log.Fatalf("failed to start store simulator: %v", err)
	}

	app.Run(ctx)

}
