// Package jre provisions per-instance Java runtimes. The archive for each
// major version is discovered through an Adoptium-compatible API, downloaded
// once into a shared archive store, and unpacked separately into every
// instance that needs it, so instances never share a live runtime image.
package jre
