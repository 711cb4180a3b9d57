// Package pack contains core domain types for resolved packs.
//
// It defines Manifest (everything one pack version needs on disk),
// FileEntry (a single downloadable file with its checksum and destination),
// Coordinate (a Maven-style library identity), and Checksum helpers shared
// by the download and cache layers.
package pack
