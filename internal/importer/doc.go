// Package importer merges the sources of one manifest item into SCD targets.
//
// An Importer owns the item's resolver, a probe cache, and an arena of shared
// decoded sources. Merge walks every enabled target: it validates channel
// references, probes and opens the sources it needs, aligns each segment by
// offset and silence threshold, detects loop points, remaps channels, and
// hands the encoded container to an emit callback once per output path.
// Failures are reported per target and never abort unrelated targets.
package importer
