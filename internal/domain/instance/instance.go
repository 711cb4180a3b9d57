package instance

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
)

// Status tracks how far an instance got through installation.
type Status string

const (
	// StatusInstalling means files are still being materialized.
	// An instance found in this state after a restart is a crashed install.
	StatusInstalling Status = "installing"
	// StatusReady means the instance is fully installed and launchable.
	StatusReady Status = "ready"
	// StatusBroken means the last install or update failed and the
	// instance needs a repair before launching.
	StatusBroken Status = "broken"
)

var (
	// errSlugRequired is returned when an instance has no slug.
	errSlugRequired = errors.New("instance slug must not be empty")
	// errSlugFormat is returned for slugs with characters unsafe in paths.
	errSlugFormat = errors.New("instance slug may only contain lowercase letters, digits and hyphens")
	// errPackRequired is returned when the pack identity is missing.
	errPackRequired = errors.New("instance must reference a pack id and version")
)

// Content is one piece of user-added content, tracked so it can be
// removed again and survives pack updates.
type Content struct {
	// ProjectID is the catalog project the content came from.
	ProjectID string
	// VersionID is the exact catalog version installed.
	VersionID string
	// FileName is the file under the instance mods directory.
	FileName string
	// Sha1 is the hex digest recorded at install time.
	Sha1 string
}

// Instance is one installed copy of a pack with its own directory,
// runtime, and settings.
type Instance struct {
	// Slug is the directory-safe unique name.
	Slug string
	// Name is the display name shown in listings.
	Name string
	// PackID is the catalog project this instance was created from.
	PackID string
	// PackVersion is the installed catalog version id.
	PackVersion string
	// GameVersion is the game release the instance runs.
	GameVersion string
	// LoaderVersion is the installed mod loader release.
	LoaderVersion string
	// JavaMajor is the runtime major version the instance launches with.
	JavaMajor int
	// Status tracks installation progress.
	Status Status
	// Content lists user-added mods and resource packs.
	Content []Content
	// Warnings records non-fatal install problems, such as optional files
	// that failed to download.
	Warnings []string
	// CreatedAt is when the instance was first created.
	CreatedAt time.Time
	// UpdatedAt is when the instance last changed.
	UpdatedAt time.Time
	// LastLaunchedAt is when a game process last started, nil if never.
	LastLaunchedAt *time.Time
}

// Clone returns a deep copy of the instance.
func (i *Instance) Clone() *Instance {
	if i == nil {
		return nil
	}

	cloned := *i

	if i.Content != nil {
		cloned.Content = make([]Content, len(i.Content))
		copy(cloned.Content, i.Content)
	}

	if i.Warnings != nil {
		cloned.Warnings = make([]string, len(i.Warnings))
		copy(cloned.Warnings, i.Warnings)
	}

	if i.LastLaunchedAt != nil {
		ts := *i.LastLaunchedAt
		cloned.LastLaunchedAt = &ts
	}

	return &cloned
}

// Validate checks the identity fields of the instance.
func (i *Instance) Validate() error {
	if i.Slug == "" {
		return errSlugRequired
	}

	if !validSlug(i.Slug) {
		return fmt.Errorf("%w: %q", errSlugFormat, i.Slug)
	}

	if i.PackID == "" || i.PackVersion == "" {
		return errPackRequired
	}

	return nil
}

// Slugify turns a display name into a directory-safe slug:
// lowercase letters and digits, runs of anything else become one hyphen.
func Slugify(name string) string {
	var b strings.Builder

	lastHyphen := true // Suppress a leading hyphen.

	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) && r <= unicode.MaxASCII, unicode.IsDigit(r) && r <= unicode.MaxASCII:
			b.WriteRune(r)

			lastHyphen = false
		case !lastHyphen:
			b.WriteByte('-')

			lastHyphen = true
		}
	}

	return strings.TrimSuffix(b.String(), "-")
}

// validSlug reports whether s is safe to use as a directory name.
func validSlug(s string) bool {
	for _, r := range s {
		isLower := r >= 'a' && r <= 'z'
		isDigit := r >= '0' && r <= '9'

		if !isLower && !isDigit && r != '-' {
			return false
		}
	}

	return true
}
