package installer

import (
	"context"
	"errors"

	"github.com/WillHanighen/CottageLauncher/internal/cache"
	"github.com/WillHanighen/CottageLauncher/internal/catalog"
	"github.com/WillHanighen/CottageLauncher/internal/domain/pack"
	"github.com/WillHanighen/CottageLauncher/internal/download"
	"github.com/WillHanighen/CottageLauncher/internal/jre"
	"github.com/WillHanighen/CottageLauncher/internal/repository/instances"
)

var (
	// ErrAlreadyInstalled is returned when a create hits a slug that already
	// holds an installed instance. Re-running an install never mutates what
	// is already there; the user chooses update or remove explicitly.
	ErrAlreadyInstalled = errors.New("instance already installed")
	// ErrNotReady is returned when an operation needs a fully installed
	// instance and the record says otherwise.
	ErrNotReady = errors.New("instance is not ready")
	// ErrContentNotFound is returned when content removal cannot match any
	// installed content entry.
	ErrContentNotFound = errors.New("content not found in instance")
)

// Catalog is the slice of the catalog client the installer depends on.
type Catalog interface {
	// Resolve turns a project and version into a complete manifest.
	Resolve(ctx context.Context, idOrSlug, versionID string) (*pack.Manifest, error)
	// ResolveContent resolves one content project against an instance's
	// game version.
	ResolveContent(ctx context.Context, idOrSlug, versionID, gameVersion string) (*catalog.ContentFile, error)
}

// RuntimeProvisioner materializes a Java runtime inside an instance.
type RuntimeProvisioner interface {
	Ensure(ctx context.Context, instanceDir string, major int) (*jre.Runtime, error)
}

// Service orchestrates instance installation and content management.
// One service is safe for concurrent use across instances; operations on
// the same slug are serialized by the repository's busy locks.
type Service struct {
	catalog Catalog
	store   *cache.Store
	engine  *download.Engine
	runtime RuntimeProvisioner
	repo    *instances.Repository
	workers int
}

// NewService wires an installer over its collaborators.
// workers bounds how many library cache fetches run at once; zero or less
// falls back to the download engine's default width.
func NewService(
	cat Catalog,
	store *cache.Store,
	engine *download.Engine,
	runtime RuntimeProvisioner,
	repo *instances.Repository,
	workers int,
) *Service {
	if workers <= 0 {
		workers = download.DefaultWorkers
	}

	return &Service{
		catalog: cat,
		store:   store,
		engine:  engine,
		runtime: runtime,
		repo:    repo,
		workers: workers,
	}
}

// Repository exposes the instance repository for read-side callers such as
// the list command.
func (s *Service) Repository() *instances.Repository {
	return s.repo
}
