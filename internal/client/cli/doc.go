// Package cli provides the interactive CreditKeeper command-line client.
//
// It wires configuration, the local credit store, the store adapter and an
// interactive REPL. Typical flow: open the database, connect to the store
// (falling back to the demo store when allowed), start the purchase update
// listener and execute user commands.
//
// Key features:
//   - Balance, analysis availability and consumption
//   - Credit history and purchase records
//   - Buying credit packs with confirmation and manual reconcile
//   - Restoring purchases and exporting an audit snapshot
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
