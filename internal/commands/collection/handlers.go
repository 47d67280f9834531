package collectioncmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goliatone/go-bookmarks/internal/bookmark"
	"github.com/goliatone/go-bookmarks/internal/collection"
	"github.com/goliatone/go-bookmarks/internal/commands"
	"github.com/goliatone/go-bookmarks/internal/logging"
	"github.com/goliatone/go-bookmarks/internal/markdown"
	"github.com/goliatone/go-bookmarks/internal/merge"
	"github.com/goliatone/go-bookmarks/internal/netscape"
	"github.com/goliatone/go-bookmarks/internal/sync"
	"github.com/goliatone/go-bookmarks/pkg/interfaces"
	command "github.com/goliatone/go-command"
)

const (
	syncOperation        = "collection.sync"
	importFileOperation  = "collection.import_file"
	exportFileOperation  = "collection.export_file"
	addBookmarkOperation = "collection.add_bookmark"
)

var (
	// ErrSyncFeatureDisabled is returned when the sync feature flag is disabled at runtime.
	ErrSyncFeatureDisabled = errors.New("collection command: sync feature disabled")
	// ErrImportFeatureDisabled is returned when the import feature flag is disabled at runtime.
	ErrImportFeatureDisabled = errors.New("collection command: import feature disabled")
)

var (
	_ command.Commander[SyncCommand]        = (*SyncHandler)(nil)
	_ command.Commander[ImportFileCommand]  = (*ImportFileHandler)(nil)
	_ command.Commander[ExportFileCommand]  = (*ExportFileHandler)(nil)
	_ command.Commander[AddBookmarkCommand] = (*AddBookmarkHandler)(nil)
)

// Service is the slice of the collection service the command handlers use.
type Service interface {
	Sync(ctx context.Context) (sync.Result, error)
	ResolveConflicts(ctx context.Context, resolutions []merge.Resolution) (sync.Result, error)
	Batch(ctx context.Context, fn func(*collection.Batch) error) error
	ImportTree(ctx context.Context, root *bookmark.Root) (int, error)
	Export() (string, error)
	Root() (*bookmark.Root, error)
}

// SyncHandler runs a reconciliation pass via the shared command handler foundation.
type SyncHandler struct {
	inner *commands.Handler[SyncCommand]
}

// NewSyncHandler creates a handler bound to the supplied collection service.
func NewSyncHandler(service Service, logger interfaces.Logger, gates FeatureGates, opts ...commands.HandlerOption[SyncCommand]) *SyncHandler {
	baseLogger := logger
	if baseLogger == nil {
		baseLogger = logging.NoOp()
	}

	exec := func(ctx context.Context, msg SyncCommand) error {
		if !gates.syncEnabled() {
			return ErrSyncFeatureDisabled
		}

		result, err := service.Sync(ctx)
		if err != nil {
			return err
		}
		if len(result.Conflicts) > 0 {
			if msg.ResolveWith == "" {
				return &sync.ConflictsPendingError{Conflicts: result.Conflicts}
			}
			pick := merge.PickLocal
			if msg.ResolveWith == "remote" {
				pick = merge.PickRemote
			}
			resolutions := make([]merge.Resolution, 0, len(result.Conflicts))
			for _, conflict := range result.Conflicts {
				resolutions = append(resolutions, merge.Resolution{Path: conflict.Path, Pick: pick})
			}
			result, err = service.ResolveConflicts(ctx, resolutions)
			if err != nil {
				return err
			}
		}

		logging.WithFields(baseLogger, map[string]any{
			"wrote":   result.Wrote,
			"created": result.Created,
		}).Info("collection.command.sync.completed")
		return nil
	}

	handlerOpts := []commands.HandlerOption[SyncCommand]{
		commands.WithLogger[SyncCommand](baseLogger),
		commands.WithOperation[SyncCommand](syncOperation),
		commands.WithMessageFields(func(msg SyncCommand) map[string]any {
			fields := map[string]any{}
			if msg.ResolveWith != "" {
				fields["resolve_with"] = msg.ResolveWith
			}
			return fields
		}),
		commands.WithTelemetry(commands.DefaultTelemetry[SyncCommand](baseLogger)),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &SyncHandler{inner: commands.NewHandler(exec, handlerOpts...)}
}

// Execute satisfies command.Commander[SyncCommand].
func (h *SyncHandler) Execute(ctx context.Context, msg SyncCommand) error {
	return h.inner.Execute(ctx, msg)
}

// ImportFileHandler imports a bookmark file into the collection.
type ImportFileHandler struct {
	inner *commands.Handler[ImportFileCommand]
}

// NewImportFileHandler creates a handler bound to the supplied collection service.
func NewImportFileHandler(service Service, logger interfaces.Logger, gates FeatureGates, opts ...commands.HandlerOption[ImportFileCommand]) *ImportFileHandler {
	baseLogger := logger
	if baseLogger == nil {
		baseLogger = logging.NoOp()
	}

	exec := func(ctx context.Context, msg ImportFileCommand) error {
		if !gates.importEnabled() {
			return ErrImportFeatureDisabled
		}

		data, err := os.ReadFile(msg.Path)
		if err != nil {
			return err
		}

		format := msg.Format
		if format == "" {
			format = detectFormat(msg.Path)
		}

		var imported *bookmark.Root
		switch format {
		case FormatNetscape:
			imported, _, err = netscape.Parse(strings.NewReader(string(data)), time.Now().UTC())
		default:
			imported, err = markdown.Parse(string(data))
		}
		if err != nil {
			return err
		}

		added, err := service.ImportTree(ctx, imported)
		if err != nil {
			return err
		}

		logging.WithFields(baseLogger, map[string]any{
			"path":     msg.Path,
			"format":   format,
			"imported": added,
		}).Info("collection.command.import_file.completed")
		return nil
	}

	handlerOpts := []commands.HandlerOption[ImportFileCommand]{
		commands.WithLogger[ImportFileCommand](baseLogger),
		commands.WithOperation[ImportFileCommand](importFileOperation),
		commands.WithMessageFields(func(msg ImportFileCommand) map[string]any {
			fields := map[string]any{
				"path": msg.Path,
			}
			if msg.Format != "" {
				fields["format"] = msg.Format
			}
			return fields
		}),
		commands.WithTelemetry(commands.DefaultTelemetry[ImportFileCommand](baseLogger)),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &ImportFileHandler{inner: commands.NewHandler(exec, handlerOpts...)}
}

// Execute satisfies command.Commander[ImportFileCommand].
func (h *ImportFileHandler) Execute(ctx context.Context, msg ImportFileCommand) error {
	return h.inner.Execute(ctx, msg)
}

// ExportFileHandler renders the collection document to disk.
type ExportFileHandler struct {
	inner *commands.Handler[ExportFileCommand]
}

// NewExportFileHandler creates a handler bound to the supplied collection service.
func NewExportFileHandler(service Service, logger interfaces.Logger, opts ...commands.HandlerOption[ExportFileCommand]) *ExportFileHandler {
	baseLogger := logger
	if baseLogger == nil {
		baseLogger = logging.NoOp()
	}

	exec := func(ctx context.Context, msg ExportFileCommand) error {
		var output string
		if msg.HTML {
			root, err := service.Root()
			if err != nil {
				return err
			}
			previewer := markdown.NewPreviewer(markdown.PreviewOptions{})
			output, err = previewer.Render(root)
			if err != nil {
				return err
			}
		} else {
			var err error
			output, err = service.Export()
			if err != nil {
				return err
			}
		}

		if err := os.WriteFile(msg.Path, []byte(output), 0o644); err != nil {
			return err
		}

		logging.WithFields(baseLogger, map[string]any{
			"path":  msg.Path,
			"html":  msg.HTML,
			"bytes": len(output),
		}).Info("collection.command.export_file.completed")
		return nil
	}

	handlerOpts := []commands.HandlerOption[ExportFileCommand]{
		commands.WithLogger[ExportFileCommand](baseLogger),
		commands.WithOperation[ExportFileCommand](exportFileOperation),
		commands.WithMessageFields(func(msg ExportFileCommand) map[string]any {
			return map[string]any{"path": msg.Path}
		}),
		commands.WithTelemetry(commands.DefaultTelemetry[ExportFileCommand](baseLogger)),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &ExportFileHandler{inner: commands.NewHandler(exec, handlerOpts...)}
}

// Execute satisfies command.Commander[ExportFileCommand].
func (h *ExportFileHandler) Execute(ctx context.Context, msg ExportFileCommand) error {
	return h.inner.Execute(ctx, msg)
}

// AddBookmarkHandler appends a bookmark, creating its category and bundle on demand.
type AddBookmarkHandler struct {
	inner *commands.Handler[AddBookmarkCommand]
}

// NewAddBookmarkHandler creates a handler bound to the supplied collection service.
func NewAddBookmarkHandler(service Service, logger interfaces.Logger, opts ...commands.HandlerOption[AddBookmarkCommand]) *AddBookmarkHandler {
	baseLogger := logger
	if baseLogger == nil {
		baseLogger = logging.NoOp()
	}

	exec := func(ctx context.Context, msg AddBookmarkCommand) error {
		return service.Batch(ctx, func(b *collection.Batch) error {
			if err := b.AddCategory(msg.Category); err != nil && !errors.Is(err, bookmark.ErrDuplicateName) {
				return err
			}
			if err := b.AddBundle(msg.Category, msg.Bundle); err != nil && !errors.Is(err, bookmark.ErrDuplicateName) {
				return err
			}
			_, err := b.AddBookmark(msg.Category, msg.Bundle, collection.BookmarkInput{
				Title: msg.Title,
				URL:   msg.URL,
				Tags:  msg.Tags,
				Notes: msg.Notes,
			})
			return err
		})
	}

	handlerOpts := []commands.HandlerOption[AddBookmarkCommand]{
		commands.WithLogger[AddBookmarkCommand](baseLogger),
		commands.WithOperation[AddBookmarkCommand](addBookmarkOperation),
		commands.WithMessageFields(func(msg AddBookmarkCommand) map[string]any {
			return map[string]any{
				"category": msg.Category,
				"bundle":   msg.Bundle,
				"url":      msg.URL,
			}
		}),
		commands.WithTelemetry(commands.DefaultTelemetry[AddBookmarkCommand](baseLogger)),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &AddBookmarkHandler{inner: commands.NewHandler(exec, handlerOpts...)}
}

// Execute satisfies command.Commander[AddBookmarkCommand].
func (h *AddBookmarkHandler) Execute(ctx context.Context, msg AddBookmarkCommand) error {
	return h.inner.Execute(ctx, msg)
}

func detectFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return FormatNetscape
	default:
		return FormatMarkdown
	}
}
