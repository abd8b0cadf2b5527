// Package tags keeps a local, queryable copy of the VNDB tag dump.
//
// The dump is a gzip JSON array published daily. Cache.Refresh downloads it
// into a data directory when the local copy is missing or older than the
// configured livetime; Cache.Load swaps the decoded list into memory, ordered
// by descending usage. Lookups never touch the network or the filesystem.
package tags
