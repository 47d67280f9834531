package bookmarks

import "github.com/goliatone/go-bookmarks/internal/runtimeconfig"

var (
	ErrRemoteFilenameRequired            = runtimeconfig.ErrRemoteFilenameRequired
	ErrRemoteFilenameInvalid             = runtimeconfig.ErrRemoteFilenameInvalid
	ErrSyncLockTTLInvalid                = runtimeconfig.ErrSyncLockTTLInvalid
	ErrSyncStrategyUnknown               = runtimeconfig.ErrSyncStrategyUnknown
	ErrStorageDriverUnknown              = runtimeconfig.ErrStorageDriverUnknown
	ErrStorageDSNRequired                = runtimeconfig.ErrStorageDSNRequired
	ErrAdvancedCacheRequiresEnabledCache = runtimeconfig.ErrAdvancedCacheRequiresEnabledCache
	ErrCommandsCronRequiresSchedule      = runtimeconfig.ErrCommandsCronRequiresSchedule
	ErrLinksRouteConfigRequired          = runtimeconfig.ErrLinksRouteConfigRequired
	ErrLoggingProviderRequired           = runtimeconfig.ErrLoggingProviderRequired
	ErrLoggingProviderUnknown            = runtimeconfig.ErrLoggingProviderUnknown
	ErrLoggingLevelInvalid               = runtimeconfig.ErrLoggingLevelInvalid
	ErrLoggingFormatInvalid              = runtimeconfig.ErrLoggingFormatInvalid
)

type (
	Config         = runtimeconfig.Config
	RemoteConfig   = runtimeconfig.RemoteConfig
	SyncConfig     = runtimeconfig.SyncConfig
	StorageConfig  = runtimeconfig.StorageConfig
	CacheConfig    = runtimeconfig.CacheConfig
	LinksConfig    = runtimeconfig.LinksConfig
	PreviewConfig  = runtimeconfig.PreviewConfig
	Features       = runtimeconfig.Features
	CommandsConfig = runtimeconfig.CommandsConfig
	LoggingConfig  = runtimeconfig.LoggingConfig
)

func DefaultConfig() Config {
	return runtimeconfig.DefaultConfig()
}
