package catalog

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/WillHanighen/CottageLauncher/internal/domain/pack"
	"github.com/WillHanighen/CottageLauncher/internal/logger"
)

// loaderName is the only mod loader the launcher targets.
const loaderName = "fabric"

// Resolve turns a project and version into a complete manifest: the pack's
// own files, its required dependencies, the loader with its libraries, and
// the game's client jar and libraries. An empty versionID picks the newest
// version that supports the loader.
//
// The result is immutable once returned and safe to persist; nothing in it
// is trusted until the download layer verifies each file's checksum.
func (c *Client) Resolve(ctx context.Context, idOrSlug, versionID string) (*pack.Manifest, error) {
	ctx = logger.WithKV(ctx, "project", idOrSlug)

	project, err := c.Project(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}

	ver, err := c.pickVersion(ctx, project, versionID)
	if err != nil {
		return nil, err
	}

	if len(ver.GameVersions) == 0 {
		return nil, fmt.Errorf("%w: version %s names no game version", ErrUnavailable, ver.ID)
	}

	gameVersion := ver.GameVersions[0]

	profile, err := c.loaderProfile(ctx, gameVersion)
	if err != nil {
		return nil, err
	}

	if profile.LauncherMeta.MainClass.Client == "" {
		return nil, fmt.Errorf("%w: loader %s has no client entry point", ErrUnavailable, profile.Loader.Version)
	}

	meta, err := c.gameMeta(ctx, gameVersion)
	if err != nil {
		return nil, err
	}

	files, err := c.loaderFiles(ctx, profile)
	if err != nil {
		return nil, err
	}

	vanilla, err := gameFiles(meta, gameVersion)
	if err != nil {
		return nil, err
	}

	files = append(files, vanilla...)

	packFiles, err := c.contentFiles(ctx, project, ver, gameVersion)
	if err != nil {
		return nil, err
	}

	files = append(files, packFiles...)

	javaMajor := meta.JavaVersion.MajorVersion
	if javaMajor == 0 {
		javaMajor = pack.RuntimeMajorFor(gameVersion)
	}

	manifest := &pack.Manifest{
		PackID:        project.ID,
		PackVersion:   ver.ID,
		Name:          project.Title,
		GameVersion:   gameVersion,
		LoaderVersion: profile.Loader.Version,
		MainClass:     profile.LauncherMeta.MainClass.Client,
		JavaMajor:     javaMajor,
		Files:         files,
	}

	if err = manifest.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, err)
	}

	logger.InfoKV(ctx, "Resolved manifest",
		"pack", manifest.PackID,
		"version", manifest.PackVersion,
		"game", manifest.GameVersion,
		"loader", manifest.LoaderVersion,
		"files", len(manifest.Files))

	return manifest, nil
}

// pickVersion fetches the requested version, or the newest loader-capable
// one when versionID is empty.
func (c *Client) pickVersion(ctx context.Context, project *Project, versionID string) (*projectVersion, error) {
	if versionID != "" {
		ver, err := c.version(ctx, versionID)
		if err != nil {
			return nil, err
		}

		if ver.ProjectID != project.ID {
			return nil, fmt.Errorf("%w: version %s does not belong to project %s", ErrNotFound, versionID, project.ID)
		}

		return ver, nil
	}

	versions, err := c.versions(ctx, project.ID)
	if err != nil {
		return nil, err
	}

	for i := range versions {
		if supportsLoader(&versions[i]) {
			return &versions[i], nil
		}
	}

	if len(versions) > 0 {
		return &versions[0], nil
	}

	return nil, fmt.Errorf("%w: project %s has no versions", ErrNotFound, project.ID)
}

// contentFiles builds the instance-local entries: the pack's own files and
// every dependency, translated into files under the right content directory.
func (c *Client) contentFiles(ctx context.Context, project *Project, ver *projectVersion, gameVersion string) ([]pack.FileEntry, error) {
	files, err := versionFiles(ver, contentDir(project.ProjectType), false)
	if err != nil {
		return nil, err
	}

	seen := map[string]struct{}{ver.ProjectID: {}}

	for _, dep := range ver.Dependencies {
		optional := false

		switch dep.DependencyType {
		case "required":
		case "optional":
			optional = true
		default:
			continue
		}

		if dep.ProjectID != "" {
			if _, ok := seen[dep.ProjectID]; ok {
				continue
			}

			seen[dep.ProjectID] = struct{}{}
		}

		depVer, err := c.dependencyVersion(ctx, dep, gameVersion)
		if err != nil {
			if optional {
				logger.WarnKV(ctx, "Skipping unresolvable optional dependency",
					"project", dep.ProjectID, "error", err)

				continue
			}

			return nil, err
		}

		depFiles, err := versionFiles(depVer, "mods", optional)
		if err != nil {
			return nil, err
		}

		files = append(files, depFiles...)
	}

	return files, nil
}

// dependencyVersion resolves a declared dependency to a concrete version:
// the exact one when named, otherwise the newest compatible release.
func (c *Client) dependencyVersion(ctx context.Context, dep versionDependency, gameVersion string) (*projectVersion, error) {
	if dep.VersionID != "" {
		return c.version(ctx, dep.VersionID)
	}

	if dep.ProjectID == "" {
		return nil, fmt.Errorf("%w: dependency names neither project nor version", ErrUnavailable)
	}

	versions, err := c.versions(ctx, dep.ProjectID)
	if err != nil {
		return nil, err
	}

	for i := range versions {
		if supportsLoader(&versions[i]) && supportsGame(&versions[i], gameVersion) {
			return &versions[i], nil
		}
	}

	return nil, fmt.Errorf("%w: no %s build of %s for game %s", ErrNotFound, loaderName, dep.ProjectID, gameVersion)
}

// versionFiles converts a version's primary file into a manifest entry
// under the given content directory.
func versionFiles(ver *projectVersion, dir string, optional bool) ([]pack.FileEntry, error) {
	file, ok := ver.primaryFile()
	if !ok {
		return nil, fmt.Errorf("%w: version %s has no files", ErrUnavailable, ver.ID)
	}

	sum, err := fileChecksum(file)
	if err != nil {
		return nil, err
	}

	size := file.Size
	if size == 0 {
		size = -1
	}

	return []pack.FileEntry{{
		Name:     file.Filename,
		URLs:     []string{file.URL},
		Checksum: sum,
		Size:     size,
		Kind:     pack.DestInstance,
		Path:     path.Join(dir, file.Filename),
		Optional: optional,
	}}, nil
}

// fileChecksum picks the strongest digest the catalog published for a file.
func fileChecksum(file versionFile) (pack.Checksum, error) {
	if hex, ok := file.Hashes[string(pack.AlgoSHA512)]; ok {
		return pack.NewChecksum(pack.AlgoSHA512, hex)
	}

	if hex, ok := file.Hashes[string(pack.AlgoSHA1)]; ok {
		return pack.NewChecksum(pack.AlgoSHA1, hex)
	}

	return pack.Checksum{}, fmt.Errorf("%w: file %s has no usable digest", ErrUnavailable, file.Filename)
}

// contentDir maps a project type to its directory inside the instance.
func contentDir(projectType string) string {
	switch strings.ToLower(projectType) {
	case "resourcepack":
		return "resourcepacks"
	case "shader":
		return "shaderpacks"
	default:
		return "mods"
	}
}

// supportsLoader reports whether a version is built for the loader.
func supportsLoader(ver *projectVersion) bool {
	for _, l := range ver.Loaders {
		if strings.EqualFold(l, loaderName) {
			return true
		}
	}

	return false
}

// supportsGame reports whether a version supports a game release.
func supportsGame(ver *projectVersion, gameVersion string) bool {
	for _, g := range ver.GameVersions {
		if g == gameVersion {
			return true
		}
	}

	return false
}
