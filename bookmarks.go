// Package bookmarks keeps a hierarchical bookmark collection convergent
// with a remote Markdown document. The module embeds in a host
// application: construct it with New, open the collection, then mutate
// and query through the collection service while the sync shell handles
// reconciliation, conflict detection and optimistic concurrency against
// the remote snippet store.
package bookmarks

import (
	"github.com/goliatone/go-bookmarks/internal/bookmark"
	"github.com/goliatone/go-bookmarks/internal/collection"
	collectioncmd "github.com/goliatone/go-bookmarks/internal/commands/collection"
	"github.com/goliatone/go-bookmarks/internal/di"
	"github.com/goliatone/go-bookmarks/internal/links"
	"github.com/goliatone/go-bookmarks/internal/markdown"
	"github.com/goliatone/go-bookmarks/internal/merge"
	"github.com/goliatone/go-bookmarks/internal/netscape"
	"github.com/goliatone/go-bookmarks/internal/sync"
	"github.com/goliatone/go-bookmarks/pkg/interfaces"
)

// CollectionService exports the collection service for consumers of the
// bookmarks package.
type CollectionService = collection.Service

// SyncService exports the sync shell.
type SyncService = sync.Service

// SyncResult exports the outcome of a sync pass.
type SyncResult = sync.Result

// SyncState exports the observable shell states.
type SyncState = sync.State

// Batch exports the grouped-mutation recorder used by CollectionService.Batch.
type Batch = collection.Batch

// BookmarkInput exports the payload for adding a bookmark.
type BookmarkInput = collection.BookmarkInput

// BookmarkChange exports the partial-update payload for a bookmark.
type BookmarkChange = bookmark.BookmarkChange

// Root, Category, Bundle and Bookmark export the collection tree model.
type (
	Root     = bookmark.Root
	Category = bookmark.Category
	Bundle   = bookmark.Bundle
	Bookmark = bookmark.Bookmark
)

// Conflict and Resolution export the merge engine's conflict contract.
type (
	Conflict   = merge.Conflict
	Resolution = merge.Resolution
)

// Conflict resolution sides.
const (
	PickLocal  = merge.PickLocal
	PickRemote = merge.PickRemote
)

// LinkResolver exports the share-link resolver.
type LinkResolver = links.Resolver

// ShareLinks exports the resolved web and raw URLs for a document.
type ShareLinks = links.ShareLinks

// Previewer exports the HTML preview renderer.
type Previewer = markdown.Previewer

// PreviewOptions exports the HTML preview renderer options.
type PreviewOptions = markdown.PreviewOptions

// RemoteRepository exports the remote snippet store contract hosts implement.
type RemoteRepository = interfaces.RemoteRepository

// LocalStore exports the device-local bookkeeping store contract.
type LocalStore = interfaces.LocalStore

// Snippet exports the remote document record.
type Snippet = interfaces.Snippet

// CommandHandlers exports the collection command handler set.
type CommandHandlers = collectioncmd.HandlerSet

// Sync error sentinels surfaced by the shell.
var (
	ErrDocumentNotFound = sync.ErrDocumentNotFound
	ErrConflictsPending = sync.ErrConflictsPending
	ErrNoSnapshot       = sync.ErrNoSnapshot
	ErrVersionMismatch  = interfaces.ErrVersionMismatch
	ErrSnippetNotFound  = interfaces.ErrSnippetNotFound
	ErrNotOpened        = collection.ErrNotOpened
)

// Module is the top level bookmarks runtime facade.
type Module struct {
	container *di.Container
}

// New constructs a bookmarks module using the provided configuration and
// optional DI overrides.
func New(cfg Config, opts ...di.Option) (*Module, error) {
	container, err := di.NewContainer(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &Module{container: container}, nil
}

// Container exposes the underlying DI container for advanced integrations.
func (m *Module) Container() *di.Container {
	return m.container
}

// Collection returns the configured collection service.
func (m *Module) Collection() *CollectionService {
	if m == nil || m.container == nil {
		return nil
	}
	return m.container.Collection()
}

// Sync returns the configured sync shell.
func (m *Module) Sync() *SyncService {
	if m == nil || m.container == nil {
		return nil
	}
	return m.container.SyncShell()
}

// Preview returns the HTML preview renderer.
func (m *Module) Preview() *Previewer {
	if m == nil || m.container == nil {
		return nil
	}
	return m.container.Previewer()
}

// Links returns the share-link resolver, nil unless the links feature
// is enabled.
func (m *Module) Links() *LinkResolver {
	if m == nil || m.container == nil {
		return nil
	}
	return m.container.LinkResolver()
}

// RegisterCommands wires the collection command handlers into the
// supplied registry when the commands feature is enabled.
func (m *Module) RegisterCommands(reg collectioncmd.CommandRegistry, opts ...collectioncmd.Option) (*CommandHandlers, error) {
	return m.container.RegisterCommands(reg, opts...)
}

// ParseDocument parses collection Markdown into a tree without touching
// the remote. Useful for previewing imports.
func ParseDocument(text string) (*Root, error) {
	return markdown.Parse(text)
}

// GenerateDocument renders a tree to collection Markdown.
func GenerateDocument(root *Root) (string, error) {
	return markdown.Generate(root)
}

// ImportResult exports the netscape import accounting.
type ImportResult = netscape.Result
