// Package main hosts the scdmix CLI entrypoint and command graph.
//
// The Cobra command tree loads the application config and import manifests,
// resolves source files against search directories, runs the importer, and
// reports per-target results as tables or JSON. Each import is recorded in
// the history ledger and guarded by a lock on the state directory.
//
// Keep this package lean: behavior belongs in the internal packages and is
// surfaced here through commands and flags.
package main
