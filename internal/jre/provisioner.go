package jre

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/WillHanighen/CottageLauncher/internal/domain/pack"
	"github.com/WillHanighen/CottageLauncher/internal/download"
	"github.com/WillHanighen/CottageLauncher/internal/fetch"
	"github.com/WillHanighen/CottageLauncher/internal/logger"
)

// ErrUnavailable is returned when a matching runtime cannot be discovered,
// downloaded, or unpacked. There is no launching without a runtime, so the
// caller treats this as fatal to the attempt.
var ErrUnavailable = errors.New("runtime unavailable")

// slotPrefix names runtime image directories inside an instance:
// runtime/jre-17, runtime/jre-21 and so on.
const slotPrefix = "jre-"

// Runtime describes a provisioned runtime image inside one instance.
type Runtime struct {
	// Major is the Java major version of the image.
	Major int
	// Home is the unpacked image directory.
	Home string
	// JavaBin is the java executable inside the image.
	JavaBin string
}

// Provisioner materializes Java runtimes for instances.
type Provisioner struct {
	client      *fetch.Client
	engine      *download.Engine
	archivesDir string
	apiURL      string
}

// NewProvisioner creates a provisioner that discovers runtimes through the
// given Adoptium-compatible API and keeps downloaded archives in archivesDir.
func NewProvisioner(client *fetch.Client, engine *download.Engine, apiURL, archivesDir string) *Provisioner {
	return &Provisioner{
		client:      client,
		engine:      engine,
		archivesDir: filepath.Clean(archivesDir),
		apiURL:      strings.TrimSuffix(apiURL, "/"),
	}
}

// Ensure makes a runtime of the required major version present inside the
// instance directory and returns it. A correct image already in place is
// reused; an image of a different major version is replaced, since each
// instance carries exactly one runtime.
func (p *Provisioner) Ensure(ctx context.Context, instanceDir string, major int) (*Runtime, error) {
	if major <= 0 {
		return nil, fmt.Errorf("%w: invalid major version %d", ErrUnavailable, major)
	}

	slot := filepath.Join(instanceDir, "runtime", fmt.Sprintf("%s%d", slotPrefix, major))

	if rt, ok := probe(slot, major); ok {
		return rt, nil
	}

	if err := removeOtherSlots(filepath.Join(instanceDir, "runtime"), major); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, err)
	}

	asset, err := p.discover(ctx, major)
	if err != nil {
		return nil, err
	}

	archive, err := p.fetchArchive(ctx, asset)
	if err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Unpacking runtime",
		"major", major, "release", asset.ReleaseName, "slot", slot)

	if err = unpack(archive, slot); err != nil {
		_ = os.RemoveAll(slot)

		return nil, fmt.Errorf("%w: unpack %s: %s", ErrUnavailable, asset.ReleaseName, err)
	}

	rt, ok := probe(slot, major)
	if !ok {
		_ = os.RemoveAll(slot)

		return nil, fmt.Errorf("%w: archive %s contains no java executable", ErrUnavailable, asset.ReleaseName)
	}

	return rt, nil
}

// discover asks the runtime API for the newest asset of a major version
// matching the current platform.
func (p *Provisioner) discover(ctx context.Context, major int) (*asset, error) {
	assetsURL := fmt.Sprintf("%s/v3/assets/latest/%d/hotspot?os=%s&architecture=%s&image_type=jre",
		p.apiURL, major, url.QueryEscape(apiOS()), url.QueryEscape(apiArch()))

	var assets []asset
	if err := p.client.GetJSON(ctx, assetsURL, &assets); err != nil {
		return nil, fmt.Errorf("%w: discover java %d: %s", ErrUnavailable, major, err)
	}

	for i := range assets {
		a := &assets[i]
		if a.Binary.Package.Link != "" && a.Binary.Package.Checksum != "" {
			return a, nil
		}
	}

	return nil, fmt.Errorf("%w: no java %d build for %s/%s", ErrUnavailable, major, apiOS(), apiArch())
}

// fetchArchive downloads the asset's archive into the shared archive store,
// verified against the API's published digest. Archives are keyed by release
// name, so a second instance needing the same runtime hits the local copy.
func (p *Provisioner) fetchArchive(ctx context.Context, a *asset) (string, error) {
	sum, err := pack.NewChecksum(pack.AlgoSHA256, a.Binary.Package.Checksum)
	if err != nil {
		return "", fmt.Errorf("%w: digest for %s: %s", ErrUnavailable, a.ReleaseName, err)
	}

	size := a.Binary.Package.Size
	if size == 0 {
		size = -1
	}

	dest := filepath.Join(p.archivesDir, a.Binary.Package.Name)

	if matches, checkErr := fileMatches(dest, sum); checkErr == nil && matches {
		logger.DebugKV(ctx, "Runtime archive already cached", "archive", a.Binary.Package.Name)

		return dest, nil
	}

	path, err := p.engine.Fetch(ctx, download.Job{
		Name:     a.ReleaseName,
		URLs:     []string{a.Binary.Package.Link},
		Dest:     dest,
		Checksum: sum,
		Size:     size,
	})
	if err != nil {
		return "", fmt.Errorf("%w: download %s: %s", ErrUnavailable, a.ReleaseName, err)
	}

	return path, nil
}

// probe reports whether the slot holds a usable image and returns it.
func probe(slot string, major int) (*Runtime, bool) {
	javaBin := filepath.Join(slot, "bin", javaExecutable())
	if _, err := os.Stat(javaBin); err != nil {
		return nil, false
	}

	return &Runtime{Major: major, Home: slot, JavaBin: javaBin}, true
}

// removeOtherSlots deletes runtime images of any other major version.
func removeOtherSlots(runtimeDir string, keep int) error {
	entries, err := os.ReadDir(runtimeDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}

		return err
	}

	want := fmt.Sprintf("%s%d", slotPrefix, keep)

	for _, entry := range entries {
		if !entry.IsDir() || entry.Name() == want {
			continue
		}

		if err = os.RemoveAll(filepath.Join(runtimeDir, entry.Name())); err != nil {
			return err
		}
	}

	return nil
}

// fileMatches reports whether the file at path hashes to the expected digest.
func fileMatches(path string, sum pack.Checksum) (bool, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return false, err
	}

	defer f.Close()

	actual, err := pack.HashReader(f, sum.Algo)
	if err != nil {
		return false, err
	}

	return sum.Matches(actual), nil
}

// apiOS maps GOOS to the platform names the runtime API uses.
func apiOS() string {
	switch runtime.GOOS {
	case "darwin":
		return "mac"
	default:
		return runtime.GOOS
	}
}

// apiArch maps GOARCH to the architecture names the runtime API uses.
func apiArch() string {
	switch runtime.GOARCH {
	case "amd64":
		return "x64"
	case "arm64":
		return "aarch64"
	case "386":
		return "x86"
	default:
		return runtime.GOARCH
	}
}

// javaExecutable returns the java binary name for the current platform.
func javaExecutable() string {
	if runtime.GOOS == "windows" {
		return "java.exe"
	}

	return "java"
}

// asset is one runtime build the API offers.
type asset struct {
	ReleaseName string `json:"release_name"`
	Binary      struct {
		Package struct {
			Name     string `json:"name"`
			Link     string `json:"link"`
			Checksum string `json:"checksum"`
			Size     int64  `json:"size"`
		} `json:"package"`
	} `json:"binary"`
}
