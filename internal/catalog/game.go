package catalog

import (
	"context"
	"fmt"
	"runtime"

	"github.com/WillHanighen/CottageLauncher/internal/domain/pack"
)

// gameMeta fetches the full metadata of one game version: first the index
// of all published versions, then the version's own document.
func (c *Client) gameMeta(ctx context.Context, gameVersion string) (*gameVersionMeta, error) {
	var index gameManifest
	if err := c.getJSON(ctx, c.gameMetaURL+"/mc/game/version_manifest_v2.json", &index); err != nil {
		return nil, err
	}

	var metaURL string

	for _, v := range index.Versions {
		if v.ID == gameVersion {
			metaURL = v.URL
			break
		}
	}

	if metaURL == "" {
		return nil, fmt.Errorf("%w: game version %s", ErrNotFound, gameVersion)
	}

	var meta gameVersionMeta
	if err := c.getJSON(ctx, metaURL, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// gameFiles converts game metadata into manifest entries: the client jar
// and every vanilla library allowed on the current platform.
func gameFiles(meta *gameVersionMeta, gameVersion string) ([]pack.FileEntry, error) {
	client := meta.Downloads.Client

	clientSum, err := pack.NewChecksum(pack.AlgoSHA1, client.Sha1)
	if err != nil {
		return nil, fmt.Errorf("%w: client jar digest: %s", ErrUnavailable, err)
	}

	files := []pack.FileEntry{{
		Name:     "client jar " + gameVersion,
		URLs:     []string{client.URL},
		Checksum: clientSum,
		Size:     client.Size,
		Kind:     pack.DestLibrary,
		Coordinate: pack.Coordinate{
			Group:    "com.mojang",
			Artifact: "minecraft",
			Version:  gameVersion,
		},
		OnClasspath: true,
	}}

	for _, lib := range meta.Libraries {
		if !libraryAllowed(lib.Rules) {
			continue
		}

		coord, parseErr := pack.ParseCoordinate(lib.Name)
		if parseErr != nil {
			return nil, fmt.Errorf("%w: game library %q: %s", ErrUnavailable, lib.Name, parseErr)
		}

		artifact := lib.Downloads.Artifact
		if artifact.URL == "" {
			continue
		}

		sum, sumErr := pack.NewChecksum(pack.AlgoSHA1, artifact.Sha1)
		if sumErr != nil {
			return nil, fmt.Errorf("%w: game library %q: %s", ErrUnavailable, lib.Name, sumErr)
		}

		files = append(files, pack.FileEntry{
			Name:        coord.String(),
			URLs:        []string{artifact.URL},
			Checksum:    sum,
			Size:        artifact.Size,
			Kind:        pack.DestLibrary,
			Coordinate:  coord,
			OnClasspath: true,
		})
	}

	return files, nil
}

// libraryAllowed evaluates a library's platform rules for this machine.
// No rules means allowed; otherwise the last matching rule's action wins.
func libraryAllowed(rules []gameLibraryRule) bool {
	if len(rules) == 0 {
		return true
	}

	allowed := false

	for _, rule := range rules {
		if rule.OS.Name != "" && rule.OS.Name != currentOSName() {
			continue
		}

		allowed = rule.Action == "allow"
	}

	return allowed
}

// currentOSName maps GOOS to the platform names game metadata uses.
func currentOSName() string {
	switch runtime.GOOS {
	case "windows":
		return "windows"
	case "darwin":
		return "osx"
	default:
		return "linux"
	}
}
