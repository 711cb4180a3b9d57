package pack

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// DestKind says where a manifest file lands on disk.
type DestKind string

const (
	// DestInstance places the file at a path relative to the instance directory.
	DestInstance DestKind = "instance"
	// DestLibrary places the file in the shared library cache under its
	// Maven coordinate.
	DestLibrary DestKind = "library"
)

var (
	// errManifestIdentity is returned when the pack id or version is missing.
	errManifestIdentity = errors.New("manifest must name a pack id and version")
	// errManifestGameVersion is returned when the game version is missing.
	errManifestGameVersion = errors.New("manifest must name a game version")
	// errManifestMainClass is returned when the main class is missing.
	errManifestMainClass = errors.New("manifest must name a main class")
	// errManifestRuntime is returned when the runtime major version is not positive.
	errManifestRuntime = errors.New("manifest runtime major version must be positive")
	// errFileName is returned when a file entry has no logical name.
	errFileName = errors.New("file entry must have a name")
	// errFileURL is returned when a file entry has no download URL.
	errFileURL = errors.New("file entry must have at least one URL")
	// errFileChecksum is returned when a file entry has no usable checksum.
	errFileChecksum = errors.New("file entry must carry a checksum")
	// errFilePath is returned when an instance-relative path escapes the
	// instance directory or is absolute.
	errFilePath = errors.New("file path must stay inside the instance directory")
	// errFileCoordinate is returned when a library entry has no coordinate.
	errFileCoordinate = errors.New("library entry must carry a coordinate")
)

// FileEntry is one downloadable file of a resolved pack.
type FileEntry struct {
	// Name is the logical name used in logs and error messages.
	Name string
	// URLs lists download locations in priority order: the primary source
	// first, then mirrors.
	URLs []string
	// Checksum is the expected content digest.
	Checksum Checksum
	// Size is the expected byte size, or -1 when the source does not say.
	Size int64
	// Kind says whether the file lands in the instance directory or the
	// shared library cache.
	Kind DestKind
	// Path is the destination relative to the instance directory.
	// Only meaningful when Kind is DestInstance.
	Path string
	// Coordinate is the library identity in the shared cache.
	// Only meaningful when Kind is DestLibrary.
	Coordinate Coordinate
	// OnClasspath marks library entries that join the launch classpath.
	OnClasspath bool
	// LoaderCore marks loader libraries that launch ahead of everything
	// else on the classpath.
	LoaderCore bool
	// Optional marks files whose download failure should not abort an install.
	Optional bool
}

// Validate checks a single file entry.
func (f *FileEntry) Validate() error {
	if f.Name == "" {
		return errFileName
	}

	if len(f.URLs) == 0 {
		return fmt.Errorf("file %q: %w", f.Name, errFileURL)
	}

	if f.Checksum.IsZero() {
		return fmt.Errorf("file %q: %w", f.Name, errFileChecksum)
	}

	if err := f.Checksum.Validate(); err != nil {
		return fmt.Errorf("file %q: %w", f.Name, err)
	}

	switch f.Kind {
	case DestInstance:
		if !validRelativePath(f.Path) {
			return fmt.Errorf("file %q: %w: %q", f.Name, errFilePath, f.Path)
		}
	case DestLibrary:
		if f.Coordinate.IsZero() {
			return fmt.Errorf("file %q: %w", f.Name, errFileCoordinate)
		}
	default:
		return fmt.Errorf("file %q: unknown destination kind %q", f.Name, f.Kind)
	}

	return nil
}

// Manifest is the fully resolved description of one pack version:
// everything an instance needs to download, verify, and launch.
type Manifest struct {
	// PackID is the catalog project id.
	PackID string
	// PackVersion is the catalog version id.
	PackVersion string
	// Name is the human-readable pack title.
	Name string
	// GameVersion is the game release the pack targets.
	GameVersion string
	// LoaderVersion is the mod loader release the pack targets.
	LoaderVersion string
	// MainClass is the JVM entry point for launching.
	MainClass string
	// JavaMajor is the required runtime major version.
	JavaMajor int
	// Files lists everything to download, libraries and instance files alike.
	Files []FileEntry
}

// Validate checks the manifest and every file entry in it.
func (m *Manifest) Validate() error {
	if m.PackID == "" || m.PackVersion == "" {
		return errManifestIdentity
	}

	if m.GameVersion == "" {
		return errManifestGameVersion
	}

	if m.MainClass == "" {
		return errManifestMainClass
	}

	if m.JavaMajor <= 0 {
		return errManifestRuntime
	}

	for i := range m.Files {
		if err := m.Files[i].Validate(); err != nil {
			return err
		}
	}

	return nil
}

// Libraries returns the file entries destined for the shared library cache.
func (m *Manifest) Libraries() []FileEntry {
	var libs []FileEntry

	for _, f := range m.Files {
		if f.Kind == DestLibrary {
			libs = append(libs, f)
		}
	}

	return libs
}

// validRelativePath reports whether p is a clean relative path that cannot
// escape the directory it is joined to.
func validRelativePath(p string) bool {
	if p == "" || strings.HasPrefix(p, "/") || strings.Contains(p, "\\") {
		return false
	}

	clean := path.Clean(p)

	return clean != ".." && !strings.HasPrefix(clean, "../") && clean != "."
}
