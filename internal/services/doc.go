// Package services defines shared utilities consumed by the importer, the
// external tool wrappers, and the CLI.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, manifest items, targets, and source
//     names for logging.
//   - Structured error markers plus the Wrap helper so every failure carries a
//     class (resolution, probe, decode, invariant, output) that survives
//     wrapping and can be reported per target.
//
// Use these helpers when wiring new import logic so failure attribution stays
// uniform across the pipeline.
package services
