// Package download fetches batches of files with a bounded worker pool.
//
// Each job streams to a temporary file while its digest is computed, and is
// renamed into place only after the checksum matches, so a destination path
// either holds fully verified content or does not exist. Destinations are
// confined to the engine's root directory. Failures are collected per job:
// the caller decides whether an optional file's failure matters.
package download
