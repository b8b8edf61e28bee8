// Package main hosts the autotrans CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into batch
// runs against the catalog, single-folder transcodes, bundle downloads,
// ledger maintenance and configuration scaffolding. It centralizes
// configuration resolution and logger setup so subcommands can focus on
// presentation instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
