// Package bootstrap builds a fully wired bookmarks module for the CLI
// entry points: a git-backed snippet store for the remote document and
// a SQLite-backed local store for sync bookkeeping, both rooted under a
// single data directory.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "github.com/mattn/go-sqlite3"

	bookmarks "github.com/goliatone/go-bookmarks"
	"github.com/goliatone/go-bookmarks/internal/di"
	"github.com/goliatone/go-bookmarks/internal/localstore"
	"github.com/goliatone/go-bookmarks/internal/logging"
	"github.com/goliatone/go-bookmarks/internal/remote/gitstore"
	"github.com/goliatone/go-bookmarks/pkg/interfaces"
)

// Options captures configuration for bookmarks CLI bootstraps.
type Options struct {
	DataDir    string
	Filename   string
	DocumentID string
	Verbose    bool

	// Remote overrides the default git-backed snippet store.
	Remote interfaces.RemoteRepository
	// LoggerProvider overrides the console provider built from Verbose.
	LoggerProvider interfaces.LoggerProvider
}

// Module wraps the bookmarks module with the opened collection, the
// CLI logger and a teardown hook.
type Module struct {
	Module     *bookmarks.Module
	Collection *bookmarks.CollectionService
	Logger     interfaces.Logger
	Close      func() error
}

// BuildModule constructs and opens a bookmarks module for CLI use.
func BuildModule(opts Options) (*Module, error) {
	dataDir := strings.TrimSpace(opts.DataDir)
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve data dir: %w", err)
		}
		dataDir = filepath.Join(home, ".go-bookmarks")
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	repo := opts.Remote
	if repo == nil {
		store, err := gitstore.New(gitstore.Options{
			BaseDir: filepath.Join(dataDir, "store"),
		})
		if err != nil {
			return nil, fmt.Errorf("initialise snippet store: %w", err)
		}
		repo = store
	}

	dsn := "file:" + filepath.Join(dataDir, "state.db") + "?_fk=1"
	sqldb, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open state database: %w", err)
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())
	if err := localstore.Migrate(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate state database: %w", err)
	}

	cfg := bookmarks.DefaultConfig()
	cfg.Storage.Driver = "bun"
	cfg.Storage.DSN = dsn
	cfg.Features.Logger = true
	cfg.Logging.Provider = "console"
	cfg.Logging.Level = "info"
	if opts.Verbose {
		cfg.Logging.Level = "debug"
	}
	if trimmed := strings.TrimSpace(opts.Filename); trimmed != "" {
		cfg.Remote.Filename = trimmed
	}
	if trimmed := strings.TrimSpace(opts.DocumentID); trimmed != "" {
		cfg.Remote.DocumentID = trimmed
	}

	diOpts := []di.Option{
		di.WithRemoteRepository(repo),
		di.WithBunDB(db),
	}
	if opts.LoggerProvider != nil {
		diOpts = append(diOpts, di.WithLoggerProvider(opts.LoggerProvider))
	}

	module, err := bookmarks.New(cfg, diOpts...)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialise bookmarks module: %w", err)
	}

	collection := module.Collection()
	if err := collection.Open(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open collection: %w", err)
	}

	logger := logging.CollectionLogger(module.Container().LoggerProvider())

	return &Module{
		Module:     module,
		Collection: collection,
		Logger:     logger,
		Close: func() error {
			return db.Close()
		},
	}, nil
}
