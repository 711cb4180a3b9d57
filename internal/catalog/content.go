package catalog

import (
	"context"
	"fmt"

	"github.com/WillHanighen/CottageLauncher/internal/domain/pack"
)

// ContentFile is one user-addable piece of content (a mod, resource pack,
// or shader) resolved to a concrete downloadable file.
type ContentFile struct {
	// ProjectID is the catalog project the content comes from.
	ProjectID string
	// VersionID is the exact catalog version resolved.
	VersionID string
	// Sha1 is the file's hex SHA-1 as the catalog publishes it, recorded in
	// the instance's content list.
	Sha1 string
	// Entry is the manifest entry to download into the instance.
	Entry pack.FileEntry
}

// ResolveContent resolves a single content project for an existing instance:
// the named version when given, otherwise the newest version compatible with
// the instance's loader and game release.
func (c *Client) ResolveContent(ctx context.Context, idOrSlug, versionID, gameVersion string) (*ContentFile, error) {
	project, err := c.Project(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}

	ver, err := c.pickContentVersion(ctx, project, versionID, gameVersion)
	if err != nil {
		return nil, err
	}

	files, err := versionFiles(ver, contentDir(project.ProjectType), false)
	if err != nil {
		return nil, err
	}

	file, _ := ver.primaryFile()

	return &ContentFile{
		ProjectID: project.ID,
		VersionID: ver.ID,
		Sha1:      file.Hashes[string(pack.AlgoSHA1)],
		Entry:     files[0],
	}, nil
}

// pickContentVersion selects the version of a content project to install.
func (c *Client) pickContentVersion(ctx context.Context, project *Project, versionID, gameVersion string) (*projectVersion, error) {
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
		if supportsLoader(&versions[i]) && supportsGame(&versions[i], gameVersion) {
			return &versions[i], nil
		}
	}

	return nil, fmt.Errorf("%w: no %s build of %s for game %s", ErrNotFound, loaderName, project.ID, gameVersion)
}
