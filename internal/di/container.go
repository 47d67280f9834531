// Package di wires the bookmarks module from configuration. The
// container resolves the logger provider, local store, sync shell and
// collection service, applying option overrides before defaults.
package di

import (
	"errors"
	"fmt"
	"strings"
	"time"

	repocache "github.com/goliatone/go-repository-cache/cache"
	urlkit "github.com/goliatone/go-urlkit"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-bookmarks/internal/collection"
	collectioncmd "github.com/goliatone/go-bookmarks/internal/commands/collection"
	"github.com/goliatone/go-bookmarks/internal/links"
	"github.com/goliatone/go-bookmarks/internal/localstore"
	"github.com/goliatone/go-bookmarks/internal/logging"
	"github.com/goliatone/go-bookmarks/internal/logging/console"
	"github.com/goliatone/go-bookmarks/internal/logging/gologger"
	"github.com/goliatone/go-bookmarks/internal/markdown"
	"github.com/goliatone/go-bookmarks/internal/merge"
	"github.com/goliatone/go-bookmarks/internal/remote"
	"github.com/goliatone/go-bookmarks/internal/runtimeconfig"
	"github.com/goliatone/go-bookmarks/internal/sync"
	"github.com/goliatone/go-bookmarks/pkg/interfaces"
)

var (
	// ErrBunDBRequired is returned when the bun storage driver is selected
	// without a database handle.
	ErrBunDBRequired = errors.New("di: bun storage driver requires a *bun.DB, use WithBunDB")
)

// Container wires module dependencies.
type Container struct {
	Config runtimeconfig.Config

	loggerProvider interfaces.LoggerProvider
	remote         interfaces.RemoteRepository
	store          interfaces.LocalStore
	clock          func() time.Time

	bunDB         *bun.DB
	redisClient   *redis.Client
	cacheTTL      time.Duration
	cacheService  repocache.CacheService
	keySerializer repocache.KeySerializer

	routeManager *urlkit.RouteManager
	linkResolver *links.Resolver
	previewer    *markdown.Previewer

	shell         *sync.Service
	collectionSvc *collection.Service
}

// Option mutates the container before it is finalised.
type Option func(*Container)

// WithRemoteRepository overrides the default in-memory remote repository.
func WithRemoteRepository(repo interfaces.RemoteRepository) Option {
	return func(c *Container) {
		c.remote = repo
	}
}

// WithLocalStore overrides the store selected by the storage driver.
func WithLocalStore(store interfaces.LocalStore) Option {
	return func(c *Container) {
		c.store = store
	}
}

// WithLoggerProvider overrides the provider built from the logging config.
func WithLoggerProvider(provider interfaces.LoggerProvider) Option {
	return func(c *Container) {
		c.loggerProvider = provider
	}
}

// WithBunDB supplies the database handle for the bun storage driver.
func WithBunDB(db *bun.DB) Option {
	return func(c *Container) {
		c.bunDB = db
	}
}

// WithRedisClient supplies an existing client for the redis storage
// driver instead of dialing the configured DSN.
func WithRedisClient(client *redis.Client) Option {
	return func(c *Container) {
		c.redisClient = client
	}
}

// WithCache overrides the default cache service used by the bun store.
func WithCache(service repocache.CacheService, serializer repocache.KeySerializer) Option {
	return func(c *Container) {
		c.cacheService = service
		c.keySerializer = serializer
	}
}

// WithClock overrides the time source used by the sync shell.
func WithClock(clock func() time.Time) Option {
	return func(c *Container) {
		c.clock = clock
	}
}

// WithSyncShell overrides the default sync shell binding.
func WithSyncShell(shell *sync.Service) Option {
	return func(c *Container) {
		c.shell = shell
	}
}

// WithCollectionService overrides the default collection service binding.
func WithCollectionService(svc *collection.Service) Option {
	return func(c *Container) {
		c.collectionSvc = svc
	}
}

// NewContainer creates a container with the provided configuration.
func NewContainer(cfg runtimeconfig.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if filename := strings.TrimSpace(cfg.Remote.Filename); filename != "" {
		normalized, err := runtimeconfig.NormalizeFilename(filename)
		if err != nil {
			return nil, err
		}
		cfg.Remote.Filename = normalized
	}

	cacheTTL := cfg.Cache.DefaultTTL
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}

	c := &Container{
		Config:   cfg,
		cacheTTL: cacheTTL,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	if err := c.configureLogging(); err != nil {
		return nil, err
	}
	c.configureCacheDefaults()
	if err := c.configureStore(); err != nil {
		return nil, err
	}
	if err := c.configureLinks(); err != nil {
		return nil, err
	}

	if c.remote == nil {
		c.remote = remote.NewMemoryRepository()
	}

	if c.previewer == nil {
		c.previewer = markdown.NewPreviewer(markdown.PreviewOptions{
			Extensions: cfg.Preview.Extensions,
			HardWraps:  cfg.Preview.HardWraps,
			SafeMode:   cfg.Preview.SafeMode,
		})
	}

	if c.shell == nil {
		shell, err := sync.New(sync.Options{
			Remote:            c.remote,
			Store:             c.store,
			DocumentID:        cfg.Remote.DocumentID,
			Filename:          cfg.Remote.Filename,
			Description:       cfg.Remote.Description,
			CreationLockTTL:   cfg.Sync.CreationLockTTL,
			Strategy:          merge.Strategy(cfg.Sync.Strategy),
			DisableAutoCreate: !cfg.Sync.AutoCreateRemote,
			Logger:            logging.SyncLogger(c.loggerProvider),
			Clock:             c.clock,
		})
		if err != nil {
			return nil, err
		}
		c.shell = shell
	}

	if c.collectionSvc == nil {
		svc, err := collection.New(collection.Options{
			Shell:  c.shell,
			Logger: logging.CollectionLogger(c.loggerProvider),
			Clock:  c.clock,
		})
		if err != nil {
			return nil, err
		}
		c.collectionSvc = svc
	}

	return c, nil
}

func (c *Container) configureLogging() error {
	if c.loggerProvider != nil {
		return nil
	}
	if !c.Config.Features.Logger {
		return nil
	}

	switch strings.ToLower(strings.TrimSpace(c.Config.Logging.Provider)) {
	case "console":
		opts := console.Options{}
		if level, ok := consoleLevel(c.Config.Logging.Level); ok {
			opts.MinLevel = &level
		}
		c.loggerProvider = console.NewProvider(opts)
	case "gologger":
		provider, err := gologger.NewProvider(gologger.Config{
			Level:     c.Config.Logging.Level,
			Format:    c.Config.Logging.Format,
			AddSource: c.Config.Logging.AddSource,
			Focus:     c.Config.Logging.Focus,
		})
		if err != nil {
			return err
		}
		c.loggerProvider = provider
	default:
		return fmt.Errorf("%w: %s", runtimeconfig.ErrLoggingProviderUnknown, c.Config.Logging.Provider)
	}
	return nil
}

func (c *Container) configureCacheDefaults() {
	if !c.Config.Cache.Enabled {
		return
	}

	if c.cacheService == nil {
		cfg := repocache.DefaultConfig()
		if c.cacheTTL > 0 {
			cfg.TTL = c.cacheTTL
		}
		service, err := repocache.NewCacheService(cfg)
		if err == nil {
			c.cacheService = service
		}
	}

	if c.cacheService != nil && c.keySerializer == nil {
		c.keySerializer = repocache.NewDefaultKeySerializer()
	}
}

func (c *Container) configureStore() error {
	if c.store != nil {
		return nil
	}

	switch strings.ToLower(strings.TrimSpace(c.Config.Storage.Driver)) {
	case "", "memory":
		c.store = localstore.NewMemoryStore()
	case "redis":
		redisOpts := localstore.RedisOptions{TTL: c.Config.Cache.DefaultTTL}
		if c.redisClient != nil {
			c.store = localstore.NewRedisStoreWithClient(c.redisClient, redisOpts)
			return nil
		}
		store, err := localstore.NewRedisStore(c.Config.Storage.DSN, redisOpts)
		if err != nil {
			return err
		}
		c.store = store
	case "bun":
		if c.bunDB == nil {
			return ErrBunDBRequired
		}
		if c.Config.Cache.Enabled {
			c.store = localstore.NewBunStoreWithCache(c.bunDB, c.cacheService, c.keySerializer)
		} else {
			c.store = localstore.NewBunStore(c.bunDB)
		}
	default:
		return fmt.Errorf("%w: %s", runtimeconfig.ErrStorageDriverUnknown, c.Config.Storage.Driver)
	}
	return nil
}

func (c *Container) configureLinks() error {
	if c.linkResolver != nil || !c.Config.Features.Links {
		return nil
	}

	linksCfg := c.Config.Links
	if linksCfg.RouteConfig == nil {
		return runtimeconfig.ErrLinksRouteConfigRequired
	}

	manager := urlkit.NewRouteManager(linksCfg.RouteConfig)
	c.routeManager = manager

	resolver, err := links.NewResolver(links.Options{
		Manager:  manager,
		Group:    strings.TrimSpace(linksCfg.Group),
		WebRoute: strings.TrimSpace(linksCfg.WebRoute),
		RawRoute: strings.TrimSpace(linksCfg.RawRoute),
		IDParam:  strings.TrimSpace(linksCfg.IDParam),
	})
	if err != nil {
		return err
	}
	c.linkResolver = resolver
	return nil
}

// LoggerProvider exposes the configured logger provider, which is nil
// when the logging feature is disabled and no override was supplied.
func (c *Container) LoggerProvider() interfaces.LoggerProvider {
	return c.loggerProvider
}

// RemoteRepository exposes the configured remote document repository.
func (c *Container) RemoteRepository() interfaces.RemoteRepository {
	return c.remote
}

// LocalStore exposes the configured device-local store.
func (c *Container) LocalStore() interfaces.LocalStore {
	return c.store
}

// SyncShell exposes the configured sync shell.
func (c *Container) SyncShell() *sync.Service {
	return c.shell
}

// Collection exposes the configured collection service.
func (c *Container) Collection() *collection.Service {
	return c.collectionSvc
}

// Previewer exposes the HTML preview renderer.
func (c *Container) Previewer() *markdown.Previewer {
	return c.previewer
}

// LinkResolver exposes the share-link resolver, nil when the links
// feature is disabled.
func (c *Container) LinkResolver() *links.Resolver {
	return c.linkResolver
}

// RouteManager exposes the urlkit route manager backing the link
// resolver, nil when the links feature is disabled.
func (c *Container) RouteManager() *urlkit.RouteManager {
	return c.routeManager
}

// FeatureGates builds runtime feature gates from the configuration so
// command handlers honor flag changes without rewiring.
func (c *Container) FeatureGates() collectioncmd.FeatureGates {
	return collectioncmd.FeatureGates{
		SyncEnabled:   func() bool { return c.Config.Features.Sync },
		ImportEnabled: func() bool { return c.Config.Features.Import },
	}
}

// RegisterCommands builds the collection command handlers and registers
// them with the provided registry when commands are enabled.
func (c *Container) RegisterCommands(reg collectioncmd.CommandRegistry, opts ...collectioncmd.Option) (*collectioncmd.HandlerSet, error) {
	if !c.Config.Commands.Enabled {
		return nil, nil
	}
	return collectioncmd.RegisterCollectionCommands(reg, c.collectionSvc, c.loggerProvider, c.FeatureGates(), opts...)
}

func consoleLevel(level string) (console.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return console.LevelTrace, true
	case "debug":
		return console.LevelDebug, true
	case "info":
		return console.LevelInfo, true
	case "warn", "warning":
		return console.LevelWarn, true
	case "error":
		return console.LevelError, true
	case "fatal":
		return console.LevelFatal, true
	default:
		return console.LevelInfo, false
	}
}
