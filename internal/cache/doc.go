// Package cache implements the shared library store reused by all instances.
//
// Artifacts are content-addressed by Maven coordinate and stored once, with
// a sidecar digest file recording the verified checksum. Concurrent requests
// for the same coordinate coalesce onto a single download, and a coordinate
// never silently changes content: a manifest claiming different bytes under
// an already-cached coordinate gets ErrConflict.
package cache
