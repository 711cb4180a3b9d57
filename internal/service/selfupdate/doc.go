// Package selfupdate replaces the running launcher binary with the release
// channel's current build: it fetches the published digest list, compares it
// against the installed binary, and applies a checksum-gated atomic swap.
package selfupdate
