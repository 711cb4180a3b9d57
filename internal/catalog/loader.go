package catalog

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/WillHanighen/CottageLauncher/internal/domain/pack"
)

// fabricMaven is the repository holding the loader and intermediary jars.
// The loader metadata names their coordinates but not their digests, so the
// digests come from the repository's own .sha1 sidecar files.
const fabricMaven = "https://maven.fabricmc.net"

// loaderProfile fetches the newest stable loader build for a game version,
// falling back to the newest build of any stability when no stable one exists.
func (c *Client) loaderProfile(ctx context.Context, gameVersion string) (*loaderEntry, error) {
	var entries []loaderEntry

	listURL := fmt.Sprintf("%s/versions/loader/%s", c.loaderMetaURL, url.PathEscape(gameVersion))
	if err := c.getJSON(ctx, listURL, &entries); err != nil {
		return nil, err
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no loader builds for game %s", ErrNotFound, gameVersion)
	}

	for i := range entries {
		if entries[i].Loader.Stable {
			return &entries[i], nil
		}
	}

	return &entries[0], nil
}

// loaderFiles converts a loader profile into manifest entries: the loader
// jar, the intermediary mappings, and every library the loader requires.
func (c *Client) loaderFiles(ctx context.Context, profile *loaderEntry) ([]pack.FileEntry, error) {
	var files []pack.FileEntry

	for _, maven := range []string{profile.Loader.Maven, profile.Intermediary.Maven} {
		entry, err := c.mavenFile(ctx, c.loaderMaven, maven)
		if err != nil {
			return nil, err
		}

		files = append(files, entry)
	}

	libraries := append([]loaderLibrary{},
		profile.LauncherMeta.Libraries.Common...)
	libraries = append(libraries, profile.LauncherMeta.Libraries.Client...)

	for _, lib := range libraries {
		coord, err := pack.ParseCoordinate(lib.Name)
		if err != nil {
			return nil, fmt.Errorf("%w: loader library %q: %s", ErrUnavailable, lib.Name, err)
		}

		sha1 := lib.Sha1
		if sha1 == "" {
			// Older metadata omits digests; the repository's sidecar has them.
			var fetchErr error

			sha1, fetchErr = c.mavenSha1(ctx, lib.URL, coord)
			if fetchErr != nil {
				return nil, fetchErr
			}
		}

		sum, err := pack.NewChecksum(pack.AlgoSHA1, sha1)
		if err != nil {
			return nil, fmt.Errorf("%w: loader library %q: %s", ErrUnavailable, lib.Name, err)
		}

		size := lib.Size
		if size == 0 {
			size = -1
		}

		files = append(files, pack.FileEntry{
			Name:        coord.String(),
			URLs:        []string{mavenURL(lib.URL, coord)},
			Checksum:    sum,
			Size:        size,
			Kind:        pack.DestLibrary,
			Coordinate:  coord,
			OnClasspath: true,
			LoaderCore:  true,
		})
	}

	return files, nil
}

// mavenFile builds a manifest entry for a bare Maven coordinate, reading
// its digest from the repository's .sha1 sidecar.
func (c *Client) mavenFile(ctx context.Context, repo, maven string) (pack.FileEntry, error) {
	coord, err := pack.ParseCoordinate(maven)
	if err != nil {
		return pack.FileEntry{}, fmt.Errorf("%w: coordinate %q: %s", ErrUnavailable, maven, err)
	}

	sha1, err := c.mavenSha1(ctx, repo, coord)
	if err != nil {
		return pack.FileEntry{}, err
	}

	sum, err := pack.NewChecksum(pack.AlgoSHA1, sha1)
	if err != nil {
		return pack.FileEntry{}, fmt.Errorf("%w: digest for %q: %s", ErrUnavailable, maven, err)
	}

	return pack.FileEntry{
		Name:        coord.String(),
		URLs:        []string{mavenURL(repo, coord)},
		Checksum:    sum,
		Size:        -1,
		Kind:        pack.DestLibrary,
		Coordinate:  coord,
		OnClasspath: true,
		LoaderCore:  true,
	}, nil
}

// mavenSha1 reads the hex digest the repository publishes next to the jar.
func (c *Client) mavenSha1(ctx context.Context, repo string, coord pack.Coordinate) (string, error) {
	text, err := c.getText(ctx, mavenURL(repo, coord)+".sha1")
	if err != nil {
		return "", err
	}

	// Some repositories append the file name after the digest.
	if fields := strings.Fields(text); len(fields) > 0 {
		return fields[0], nil
	}

	return "", fmt.Errorf("%w: empty digest for %s", ErrUnavailable, coord)
}

// mavenURL joins a repository base with a coordinate's repository path.
func mavenURL(repo string, coord pack.Coordinate) string {
	return strings.TrimSuffix(repo, "/") + "/" + coord.RepoPath()
}
