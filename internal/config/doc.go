// Package config defines launcher settings and provides helpers to load,
// validate and save them in YAML format.
//
// The Config type holds the data directory, the upstream service endpoints,
// and tuning knobs for downloads and game launches. A missing settings file
// is not an error: Load falls back to defaults so a fresh install works
// without any setup.
package config
