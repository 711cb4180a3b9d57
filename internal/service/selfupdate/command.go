package selfupdate

import (
	"context"
	"crypto"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/WillHanighen/CottageLauncher/internal/config"
	"github.com/WillHanighen/CottageLauncher/internal/domain/pack"
	"github.com/WillHanighen/CottageLauncher/internal/fetch"
	"github.com/WillHanighen/CottageLauncher/internal/logger"
	"github.com/WillHanighen/CottageLauncher/internal/version"
)

// sumsFilename is the digest list the release pipeline publishes next to
// its binaries.
const sumsFilename = "sha256sums.txt"

var (
	// errNoReleaseURL is returned when the settings name no release channel.
	errNoReleaseURL = errors.New("no release URL configured, self-update is disabled")
	// errAssetMissing is returned when the digest list has no entry for
	// this platform's binary.
	errAssetMissing = errors.New("release has no binary for this platform")
)

// Options are inputs accepted by the upgrade entry point.
type Options struct {
	// ConfigPath is the optional path to the settings YAML file.
	ConfigPath string
}

// Run checks the release channel and swaps the running binary in place when
// its digest differs from the published one. The swap is atomic and gated
// on the digest, so a corrupt download never replaces a working launcher.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "upgrade")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if cfg.ReleaseURL == "" {
		return errNoReleaseURL
	}

	client := fetch.New(
		fetch.WithUserAgent(version.UserAgent()),
		fetch.WithMaxRetries(cfg.DownloadRetries),
	)

	assetName := platformAsset()
	releaseURL := strings.TrimSuffix(cfg.ReleaseURL, "/")

	wantHex, err := publishedDigest(ctx, client, releaseURL+"/"+sumsFilename, assetName)
	if err != nil {
		return err
	}

	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate running binary: %w", err)
	}

	current, err := binaryDigest(executable)
	if err != nil {
		return err
	}

	if strings.EqualFold(current, wantHex) {
		logger.Info(ctx, "Launcher is up to date")

		return nil
	}

	logger.InfoKV(ctx, "Downloading launcher update", "asset", assetName)

	checksum, err := hex.DecodeString(wantHex)
	if err != nil {
		return fmt.Errorf("release digest for %s is not hex: %w", assetName, err)
	}

	resp, err := client.Get(ctx, releaseURL+"/"+assetName)
	if err != nil {
		return fmt.Errorf("download %s: %w", assetName, err)
	}

	defer resp.Body.Close()

	if err = goupdate.Apply(resp.Body, goupdate.Options{
		TargetPath: executable,
		TargetMode: 0o755,
		Checksum:   checksum,
		Hash:       crypto.SHA256,
	}); err != nil {
		if rollbackErr := goupdate.RollbackError(err); rollbackErr != nil {
			return fmt.Errorf("apply update failed and rollback failed: %w", rollbackErr)
		}

		return fmt.Errorf("apply update: %w", err)
	}

	// The previous binary lingers as .old after a successful swap.
	if oldBinary := executable + ".old"; fileExists(oldBinary) {
		_ = os.Remove(oldBinary)
	}

	logger.InfoKV(ctx, "Launcher updated", "asset", assetName)

	return nil
}

// publishedDigest reads the release's digest list and returns the hex
// digest recorded for the asset. Lines look like "<hex>  <filename>".
func publishedDigest(ctx context.Context, client *fetch.Client, sumsURL, assetName string) (string, error) {
	resp, err := client.Get(ctx, sumsURL)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", sumsFilename, err)
	}

	defer resp.Body.Close()

	data, err := readAllLimited(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", sumsFilename, err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}

		if filepath.Base(fields[1]) == assetName {
			return strings.ToLower(fields[0]), nil
		}
	}

	return "", fmt.Errorf("%w: %s", errAssetMissing, assetName)
}

// binaryDigest returns the hex SHA-256 of the file at path.
func binaryDigest(path string) (string, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("open running binary: %w", err)
	}

	defer f.Close()

	digest, err := pack.HashReader(f, pack.AlgoSHA256)
	if err != nil {
		return "", err
	}

	return digest, nil
}

// platformAsset names the release binary for this OS and architecture,
// matching the layout the release pipeline publishes.
func platformAsset() string {
	name := fmt.Sprintf("cottage-launcher-%s-%s", runtime.GOOS, runtime.GOARCH)
	if runtime.GOOS == "windows" {
		name += ".exe"
	}

	return name
}

// readAllLimited reads the digest list with a sanity cap; the file is a few
// lines of hex and names.
func readAllLimited(r io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, 1<<20))
}

func fileExists(path string) bool {
	_, err := os.Stat(path)

	return err == nil
}
