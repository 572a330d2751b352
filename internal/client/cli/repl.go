package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	Balance(ctx context.Context, args []string) error
	CanAnalyze(ctx context.Context, args []string) error
	Use(ctx context.Context, args []string) error
	History(ctx context.Context, args []string) error
	Purchases(ctx context.Context, args []string) error
	Products(ctx context.Context, args []string) error
	Buy(ctx context.Context, args []string) error
	Confirm(ctx context.Context, args []string) error
	Restore(ctx context.Context, args []string) error
	Reset(ctx context.Context, args []string) error
	Secret(ctx context.Context, args []string) error
	Export(ctx context.Context, args []string) error
}

const helpText = `Available commands:
  balance                    current credit balance
  can-analyze                whether one more analysis is available
  use                        consume the free analysis or one credit
  history [n]                recent balance changes
  purchases [n]              recent store purchases
  products                   credit packs for sale
  buy <product>              buy a credit pack
  confirm <product> <n>      wait for n credits, then reconcile manually
  restore                    restore unfinished store purchases
  reset                      wipe all credit data
  secret                     set the receipt verification shared secret
  export [dir|s3|url]        write an audit snapshot
  exit | quit                leave the program`

// runREPL starts a simple read–eval–print loop for the CreditKeeper CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command and dispatches the remaining tokens to methods on 'a'. The loop
// exits on scanner EOF, when ctx is done or when the user types "exit" or
// "quit".
//
// Command errors are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("ck %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error
		switch cmd {
		case "help":
			printlnFn(helpText)
		case "b", "balance":
			err = a.Balance(ctx, args)
		case "can-analyze":
			err = a.CanAnalyze(ctx, args)
		case "use":
			err = a.Use(ctx, args)
		case "history":
			err = a.History(ctx, args)
		case "purchases":
			err = a.Purchases(ctx, args)
		case "products":
			err = a.Products(ctx, args)
		case "buy":
			err = a.Buy(ctx, args)
		case "confirm":
			err = a.Confirm(ctx, args)
		case "restore":
			err = a.Restore(ctx, args)
		case "reset":
			err = a.Reset(ctx, args)
		case "secret":
			err = a.Secret(ctx, args)
		case "export":
			err = a.Export(ctx, args)
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			printlnFn("Unknown command:", cmd)
		}
		if err != nil {
			printlnFn("Error:", err)
		}
	}
}
