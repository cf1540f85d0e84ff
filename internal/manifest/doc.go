// Package manifest models the declarative import manifest: named sources
// located by file patterns, and targets assembled from source channels.
//
// Manifests load from JSON or TOML. Load compiles every input-file pattern
// and validates the shape of the document; reference checks that need decoded
// channel counts happen later in the importer.
package manifest
