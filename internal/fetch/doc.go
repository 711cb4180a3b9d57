// Package fetch provides the HTTP client shared by the catalog, download,
// and runtime packages.
//
// The client sends a launcher User-Agent with every request, retries
// transient failures with jittered exponential backoff, caches DNS lookups,
// and keeps a circuit breaker per upstream host so one unhealthy mirror
// cannot stall everything else.
package fetch
