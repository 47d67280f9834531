package runtimeconfig

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/goliatone/go-slug"
	urlkit "github.com/goliatone/go-urlkit"
)

var ErrRemoteFilenameRequired = errors.New("bookmarks config: remote filename is required")
var ErrRemoteFilenameInvalid = errors.New("bookmarks config: remote filename is invalid")
var ErrSyncLockTTLInvalid = errors.New("bookmarks config: creation lock TTL must be zero or positive")
var ErrSyncStrategyUnknown = errors.New("bookmarks config: sync strategy is invalid")
var ErrStorageDriverUnknown = errors.New("bookmarks config: storage driver is invalid")
var ErrStorageDSNRequired = errors.New("bookmarks config: storage DSN is required for the selected driver")
var ErrAdvancedCacheRequiresEnabledCache = errors.New("bookmarks config: advanced cache feature requires cache to be enabled")
var ErrCommandsCronRequiresSchedule = errors.New("bookmarks config: command cron auto-registration requires a sync schedule")
var ErrLinksRouteConfigRequired = errors.New("bookmarks config: links route config is required when links feature is enabled")
var ErrLoggingProviderRequired = errors.New("bookmarks config: logging provider is required when logging feature is enabled")
var ErrLoggingProviderUnknown = errors.New("bookmarks config: logging provider is invalid")
var ErrLoggingLevelInvalid = errors.New("bookmarks config: logging level is invalid")
var ErrLoggingFormatInvalid = errors.New("bookmarks config: logging format is invalid")

// Config aggregates feature flags and adapter bindings for the bookmarks module.
// Fields intentionally use simple types so host applications can extend them later.
type Config struct {
	Enabled  bool
	Remote   RemoteConfig
	Sync     SyncConfig
	Storage  StorageConfig
	Cache    CacheConfig
	Links    LinksConfig
	Preview  PreviewConfig
	Features Features
	Commands CommandsConfig
	Logging  LoggingConfig
}

// RemoteConfig identifies the remote document the collection syncs against.
type RemoteConfig struct {
	// DocumentID pins a known document, skipping filename discovery.
	DocumentID  string
	Filename    string
	Description string
}

// SyncConfig captures reconciliation behaviour.
type SyncConfig struct {
	CreationLockTTL time.Duration
	Strategy        string
	// AutoCreateRemote creates the remote document on first sync when no
	// document matches the configured filename.
	AutoCreateRemote bool
}

// StorageConfig selects the device-local persistence backend.
type StorageConfig struct {
	// Driver is one of memory, redis or bun.
	Driver string
	// DSN is the redis URL or SQL connection string, driver dependent.
	DSN string
}

// CacheConfig captures cache behaviour for the bun-backed local store.
type CacheConfig struct {
	Enabled    bool
	DefaultTTL time.Duration
}

// LinksConfig captures routing configuration for share-link resolution.
type LinksConfig struct {
	RouteConfig *urlkit.Config
	Group       string
	WebRoute    string
	RawRoute    string
	IDParam     string
}

// PreviewConfig mirrors the HTML preview renderer options.
type PreviewConfig struct {
	Extensions []string
	HardWraps  bool
	SafeMode   bool
}

// Features toggles module functionality.
type Features struct {
	Sync          bool
	Import        bool
	Links         bool
	AdvancedCache bool
	Logger        bool
}

// CommandsConfig captures optional command-layer behaviour.
type CommandsConfig struct {
	Enabled                bool
	AutoRegisterDispatcher bool
	AutoRegisterCron       bool
	SyncCron               string
}

// LoggingConfig captures provider-specific options for runtime logging.
type LoggingConfig struct {
	Provider  string
	Level     string
	Format    string
	AddSource bool
	Focus     []string
}

// DefaultConfig returns opinionated defaults for an embedded collection.
func DefaultConfig() Config {
	return Config{
		Enabled: true,
		Remote: RemoteConfig{
			Filename:    "bookmarks.md",
			Description: "Bookmark collection",
		},
		Sync: SyncConfig{
			CreationLockTTL:  30 * time.Second,
			Strategy:         "timestamp",
			AutoCreateRemote: true,
		},
		Storage: StorageConfig{
			Driver: "memory",
		},
		Cache: CacheConfig{
			Enabled:    true,
			DefaultTTL: time.Minute,
		},
		Features: Features{
			Sync:   true,
			Import: true,
		},
		Commands: CommandsConfig{},
		Logging: LoggingConfig{
			Provider: "console",
			Level:    "info",
			Format:   "",
		},
	}
}

// NormalizeFilename slugs the base name of a document filename, keeping
// the extension and defaulting it to .md.
func NormalizeFilename(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrRemoteFilenameRequired
	}
	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	if ext == "" {
		ext = ".md"
	}
	normalized, err := slug.Normalize(base)
	if err != nil || normalized == "" {
		return "", fmt.Errorf("%w: %s", ErrRemoteFilenameInvalid, name)
	}
	return normalized + ext, nil
}

// Validate performs high-level consistency checks.
func (cfg Config) Validate() error {
	if strings.TrimSpace(cfg.Remote.Filename) == "" && strings.TrimSpace(cfg.Remote.DocumentID) == "" {
		return ErrRemoteFilenameRequired
	}
	if cfg.Sync.CreationLockTTL < 0 {
		return ErrSyncLockTTLInvalid
	}
	if strategy := strings.TrimSpace(cfg.Sync.Strategy); strategy != "" && strategy != "timestamp" {
		return fmt.Errorf("%w: %s", ErrSyncStrategyUnknown, strategy)
	}
	driver := normalizeDriver(cfg.Storage.Driver)
	if !isSupportedDriver(driver) {
		return fmt.Errorf("%w: %s", ErrStorageDriverUnknown, cfg.Storage.Driver)
	}
	if (driver == "redis" || driver == "bun") && strings.TrimSpace(cfg.Storage.DSN) == "" {
		return fmt.Errorf("%w: %s", ErrStorageDSNRequired, driver)
	}
	if cfg.Features.AdvancedCache && !cfg.Cache.Enabled {
		return ErrAdvancedCacheRequiresEnabledCache
	}
	if cfg.Commands.AutoRegisterCron && strings.TrimSpace(cfg.Commands.SyncCron) == "" {
		return ErrCommandsCronRequiresSchedule
	}
	if cfg.Features.Links && cfg.Links.RouteConfig == nil {
		return ErrLinksRouteConfigRequired
	}
	if cfg.Features.Logger {
		provider := normalizeProvider(cfg.Logging.Provider)
		if provider == "" {
			return ErrLoggingProviderRequired
		}
		if !isSupportedProvider(provider) {
			return fmt.Errorf("%w: %s", ErrLoggingProviderUnknown, provider)
		}
		if level := strings.TrimSpace(cfg.Logging.Level); level != "" && !isSupportedLevel(level) {
			return fmt.Errorf("%w: %s", ErrLoggingLevelInvalid, level)
		}
		if provider == "gologger" {
			if format := strings.TrimSpace(cfg.Logging.Format); format != "" && !isSupportedFormat(format) {
				return fmt.Errorf("%w: %s", ErrLoggingFormatInvalid, format)
			}
		}
	}
	return nil
}

func normalizeDriver(driver string) string {
	driver = strings.ToLower(strings.TrimSpace(driver))
	if driver == "" {
		return "memory"
	}
	return driver
}

func isSupportedDriver(driver string) bool {
	switch driver {
	case "memory", "redis", "bun":
		return true
	default:
		return false
	}
}

func normalizeProvider(provider string) string {
	return strings.ToLower(strings.TrimSpace(provider))
}

func isSupportedProvider(provider string) bool {
	switch provider {
	case "console", "gologger":
		return true
	default:
		return false
	}
}

func isSupportedLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal":
		return true
	default:
		return false
	}
}

func isSupportedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json", "console", "pretty":
		return true
	default:
		return false
	}
}
