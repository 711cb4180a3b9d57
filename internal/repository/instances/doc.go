// Package instances persists instance records and resolved manifests under
// the instances directory, one subdirectory per slug, and guards each slug
// with a busy lock so concurrent operations on one instance are rejected
// instead of interleaved.
package instances
