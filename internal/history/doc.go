// Package history persists a ledger of import runs in SQLite.
//
// Each run records the manifest it processed and one row per target with its
// outcome, failure kind, and content digest. The ledger answers "what did the
// last run produce" and lets the CLI report whether an output changed since
// the previous import. The database lives under the configured state
// directory and uses WAL mode with busy retries so a reader such as
// `scdmix history` can run alongside an import.
package history
