package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the launcher settings shared by all subcommands.
type Config struct {
	// DataDir is the root directory for everything the launcher writes:
	// the shared library cache, runtime archives, and instance directories.
	DataDir string `yaml:"data_dir"`
	// CatalogURL is the base URL of the Modrinth-compatible pack catalog.
	CatalogURL string `yaml:"catalog_url"`
	// LoaderMetaURL is the base URL of the Fabric loader metadata service.
	LoaderMetaURL string `yaml:"loader_meta_url"`
	// GameMetaURL is the base URL of the vanilla game version manifest service.
	GameMetaURL string `yaml:"game_meta_url"`
	// RuntimeAPIURL is the base URL of the Adoptium runtime discovery API.
	RuntimeAPIURL string `yaml:"runtime_api_url"`
	// ReleaseURL is the base URL where launcher release artifacts are hosted.
	// Used by the upgrade command; empty disables self-updating.
	ReleaseURL string `yaml:"release_url"`
	// DownloadWorkers is the number of concurrent downloads per install plan.
	DownloadWorkers int `yaml:"download_workers"`
	// DownloadRetries is the number of extra attempts per file after a
	// transient failure.
	DownloadRetries int `yaml:"download_retries"`
	// JavaHeapMB is the -Xmx value in megabytes passed to launched games.
	JavaHeapMB int `yaml:"java_heap_mb"`
	// LoaderPins maps a library identity (group:artifact) to the exact
	// version the loader requires on the classpath, overriding the
	// usual highest-version rule.
	LoaderPins map[string]string `yaml:"loader_pins,omitempty"`
	// LogLevel is the launcher log verbosity: debug, info, warn, error or fatal.
	LogLevel string `yaml:"log_level"`
}

const (
	// DefaultConfigFilename is the default filename for launcher settings.
	DefaultConfigFilename = "cottage-launcher.yaml"

	// DefaultCatalogURL is the public Modrinth API endpoint.
	DefaultCatalogURL = "https://api.modrinth.com/v2"

	// DefaultLoaderMetaURL is the public Fabric metadata endpoint.
	DefaultLoaderMetaURL = "https://meta.fabricmc.net/v2"

	// DefaultGameMetaURL is the public Mojang version metadata endpoint.
	DefaultGameMetaURL = "https://piston-meta.mojang.com"

	// DefaultRuntimeAPIURL is the public Adoptium runtime discovery endpoint.
	DefaultRuntimeAPIURL = "https://api.adoptium.net"

	// DefaultDownloadWorkers is the default number of concurrent downloads.
	DefaultDownloadWorkers = 10

	// DefaultDownloadRetries is the default number of extra attempts per file.
	DefaultDownloadRetries = 3

	// DefaultJavaHeapMB is the default game heap size in megabytes.
	DefaultJavaHeapMB = 4096

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errDataDirRequired is returned when the data directory is missing.
	errDataDirRequired = errors.New("data directory must be provided")
)

// Default returns a configuration populated with the public service
// endpoints and a data directory under the user home.
func Default() *Config {
	dataDir := ".cottage-launcher"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".cottage-launcher")
	}

	return &Config{
		DataDir:         dataDir,
		CatalogURL:      DefaultCatalogURL,
		LoaderMetaURL:   DefaultLoaderMetaURL,
		GameMetaURL:     DefaultGameMetaURL,
		RuntimeAPIURL:   DefaultRuntimeAPIURL,
		DownloadWorkers: DefaultDownloadWorkers,
		DownloadRetries: DefaultDownloadRetries,
		JavaHeapMB:      DefaultJavaHeapMB,
		LogLevel:        "info",
	}
}

// Load reads configuration from the provided path and validates essential fields.
// A missing file is not an error: defaults are returned so first runs work
// without any setup.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}

		return nil, fmt.Errorf("read settings: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and formatting,
// filling defaults for omitted numeric values.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.DataDir == "" {
		return errDataDirRequired
	}

	for name, raw := range map[string]string{
		"catalog":     cfg.CatalogURL,
		"loader meta": cfg.LoaderMetaURL,
		"game meta":   cfg.GameMetaURL,
		"runtime API": cfg.RuntimeAPIURL,
		"release":     cfg.ReleaseURL,
	} {
		if raw == "" {
			continue
		}

		if _, err := url.ParseRequestURI(raw); err != nil {
			return fmt.Errorf("invalid %s URL: %w", name, err)
		}
	}

	if cfg.DownloadWorkers <= 0 {
		cfg.DownloadWorkers = DefaultDownloadWorkers
	}

	if cfg.DownloadRetries < 0 {
		cfg.DownloadRetries = DefaultDownloadRetries
	}

	if cfg.JavaHeapMB <= 0 {
		cfg.JavaHeapMB = DefaultJavaHeapMB
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	return nil
}

// LibrariesDir returns the shared library cache directory under the data root.
func (c *Config) LibrariesDir() string {
	return filepath.Join(c.DataDir, "libraries")
}

// RuntimesDir returns the shared runtime archive directory under the data root.
func (c *Config) RuntimesDir() string {
	return filepath.Join(c.DataDir, "runtimes")
}

// InstancesDir returns the directory holding all instance directories.
func (c *Config) InstancesDir() string {
	return filepath.Join(c.DataDir, "instances")
}
