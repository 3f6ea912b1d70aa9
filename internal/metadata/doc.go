// Package metadata defines the movie domain types shared across the
// pipeline: normalized queries, search candidates, and confirmed records
// with version fingerprinting.
package metadata
