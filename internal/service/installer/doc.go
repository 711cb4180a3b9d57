// Package installer materializes instances from resolved manifests: it
// populates the shared library cache, downloads instance-local files,
// provisions the runtime, and persists the instance record. When a required
// step fails, it tears the instance back down, leaving only reusable
// shared-cache entries behind.
package installer
