// Package cli provides the interactive qfin command-line client.
//
// It wires configuration, the local session database, both service clients,
// the auth flows and the route guard behind a small REPL. Protected commands
// (whoami, data, optimize) run through the guard, so an expired credential
// is caught before any request is made.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App and runREPL for details.
package cli
