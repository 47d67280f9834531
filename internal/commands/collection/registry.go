package collectioncmd

import (
	"context"
	"errors"

	"github.com/goliatone/go-bookmarks/internal/commands"
	"github.com/goliatone/go-bookmarks/pkg/interfaces"
	command "github.com/goliatone/go-command"
)

// CommandRegistry is the minimal registration contract expected when wiring command handlers.
type CommandRegistry interface {
	RegisterCommand(handler any) error
}

// CronRegistrar matches the function signature used by go-command registries.
type CronRegistrar func(command.HandlerConfig, any) error

// HandlerSet groups the collection command handlers produced by RegisterCollectionCommands.
type HandlerSet struct {
	Sync        *SyncHandler
	Import      *ImportFileHandler
	Export      *ExportFileHandler
	AddBookmark *AddBookmarkHandler
}

// Option customises handler wiring during registration.
type Option func(*options)

type options struct {
	syncHandlerOpts        []commands.HandlerOption[SyncCommand]
	importHandlerOpts      []commands.HandlerOption[ImportFileCommand]
	exportHandlerOpts      []commands.HandlerOption[ExportFileCommand]
	addBookmarkHandlerOpts []commands.HandlerOption[AddBookmarkCommand]
}

// WithSyncHandlerOptions forwards options to the SyncHandler constructor.
func WithSyncHandlerOptions(opts ...commands.HandlerOption[SyncCommand]) Option {
	return func(cfg *options) {
		cfg.syncHandlerOpts = append(cfg.syncHandlerOpts, opts...)
	}
}

// WithImportHandlerOptions forwards options to the ImportFileHandler constructor.
func WithImportHandlerOptions(opts ...commands.HandlerOption[ImportFileCommand]) Option {
	return func(cfg *options) {
		cfg.importHandlerOpts = append(cfg.importHandlerOpts, opts...)
	}
}

// WithExportHandlerOptions forwards options to the ExportFileHandler constructor.
func WithExportHandlerOptions(opts ...commands.HandlerOption[ExportFileCommand]) Option {
	return func(cfg *options) {
		cfg.exportHandlerOpts = append(cfg.exportHandlerOpts, opts...)
	}
}

// WithAddBookmarkHandlerOptions forwards options to the AddBookmarkHandler constructor.
func WithAddBookmarkHandlerOptions(opts ...commands.HandlerOption[AddBookmarkCommand]) Option {
	return func(cfg *options) {
		cfg.addBookmarkHandlerOpts = append(cfg.addBookmarkHandlerOpts, opts...)
	}
}

// RegisterCollectionCommands builds the collection command handlers and registers
// them with the provided registry. The returned HandlerSet lets callers wire
// additional integrations (dispatcher, cron) as needed.
func RegisterCollectionCommands(reg CommandRegistry, service Service, provider interfaces.LoggerProvider, gates FeatureGates, opts ...Option) (*HandlerSet, error) {
	if service == nil {
		return nil, errors.New("collection command registration: service is nil")
	}

	cfg := options{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	logger := commands.CommandLogger(provider, "collection")

	set := &HandlerSet{
		Sync:        NewSyncHandler(service, logger, gates, cfg.syncHandlerOpts...),
		Import:      NewImportFileHandler(service, logger, gates, cfg.importHandlerOpts...),
		Export:      NewExportFileHandler(service, logger, cfg.exportHandlerOpts...),
		AddBookmark: NewAddBookmarkHandler(service, logger, cfg.addBookmarkHandlerOpts...),
	}

	if reg != nil {
		for _, handler := range []any{set.Sync, set.Import, set.Export, set.AddBookmark} {
			if err := reg.RegisterCommand(handler); err != nil {
				return nil, err
			}
		}
	}

	return set, nil
}

// RegisterSyncCron wires the sync handler into a cron registrar using the
// supplied command configuration and message payload.
func RegisterSyncCron(reg CronRegistrar, handler *SyncHandler, cfg command.HandlerConfig, msg SyncCommand) error {
	if reg == nil || handler == nil {
		return nil
	}
	return reg(cfg, func() error {
		return handler.Execute(context.Background(), msg)
	})
}
