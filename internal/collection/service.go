// Package collection is the stateful entry point for working with a
// bookmark collection. It holds the current tree, funnels every
// mutation through a pull-mutate-push cycle against the sync shell and
// exposes read helpers over the live tree.
package collection

import (
	"context"
	"errors"
	stdsync "sync"
	"time"

	"github.com/goliatone/go-bookmarks/internal/bookmark"
	"github.com/goliatone/go-bookmarks/internal/logging"
	"github.com/goliatone/go-bookmarks/internal/merge"
	"github.com/goliatone/go-bookmarks/internal/sync"
	"github.com/goliatone/go-bookmarks/pkg/interfaces"
	"github.com/google/uuid"
)

var (
	ErrShellRequired = errors.New("collection: sync shell required")
	ErrNotOpened     = errors.New("collection: not opened")
)

// Shell is the slice of the sync service the collection depends on.
type Shell interface {
	Load(ctx context.Context) (*bookmark.Root, error)
	Sync(ctx context.Context, local *bookmark.Root) (sync.Result, error)
	SyncWithConflictResolution(ctx context.Context, local *bookmark.Root, resolutions []merge.Resolution) (sync.Result, error)
	SyncBeforeOperation(ctx context.Context, local *bookmark.Root) (sync.Result, error)
	SaveAfterOperation(ctx context.Context, local *bookmark.Root) (sync.Result, error)
	RestoreSnapshot(ctx context.Context) (*bookmark.Root, error)
}

// Options configure the collection service.
type Options struct {
	Shell  Shell
	Logger interfaces.Logger
	Clock  func() time.Time
}

// Service owns one collection tree. All operations serialize on an
// internal mutex.
type Service struct {
	shell  Shell
	logger interfaces.Logger
	clock  func() time.Time

	mu   stdsync.Mutex
	root *bookmark.Root
}

// New builds a collection service from options.
func New(opts Options) (*Service, error) {
	if opts.Shell == nil {
		return nil, ErrShellRequired
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NoOp()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{shell: opts.Shell, logger: logger, clock: clock}, nil
}

// Open initializes the tree: the local snapshot first, the remote
// document next, and an empty tree when neither exists yet. The
// snapshot path keeps the collection usable offline.
func (s *Service) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	root, err := s.shell.RestoreSnapshot(ctx)
	if err == nil {
		s.root = root
		s.logger.Debug("opened from snapshot")
		return nil
	}
	if !errors.Is(err, sync.ErrNoSnapshot) {
		return err
	}

	root, err = s.shell.Load(ctx)
	if err == nil {
		s.root = root
		s.logger.Debug("opened from remote document")
		return nil
	}
	if !errors.Is(err, sync.ErrDocumentNotFound) {
		return err
	}

	s.root = bookmark.NewRoot(s.clock().UTC())
	s.logger.Debug("opened empty collection")
	return nil
}

// Root returns a deep copy of the current tree.
func (s *Service) Root() (*bookmark.Root, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.root == nil {
		return nil, ErrNotOpened
	}
	return s.root.Clone(), nil
}

// Sync reconciles the current tree against the remote document. When
// the result carries conflicts nothing was written; resolve them
// through ResolveConflicts.
func (s *Service) Sync(ctx context.Context) (sync.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.root == nil {
		return sync.Result{}, ErrNotOpened
	}

	result, err := s.shell.Sync(ctx, s.root)
	if err != nil {
		return sync.Result{}, err
	}
	if len(result.Conflicts) == 0 {
		s.root = result.Root
	}
	return result, nil
}

// ResolveConflicts finishes a conflicted sync with explicit picks.
func (s *Service) ResolveConflicts(ctx context.Context, resolutions []merge.Resolution) (sync.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.root == nil {
		return sync.Result{}, ErrNotOpened
	}

	result, err := s.shell.SyncWithConflictResolution(ctx, s.root, resolutions)
	if err != nil {
		return sync.Result{}, err
	}
	s.root = result.Root
	return result, nil
}

// mutate runs one edit inside a pull-mutate-push cycle: remote changes
// land first, the edit applies on the converged tree, and the result is
// written back through a single save.
func (s *Service) mutate(ctx context.Context, apply func(*bookmark.Root, time.Time) (*bookmark.Root, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.root == nil {
		return ErrNotOpened
	}

	pre, err := s.shell.SyncBeforeOperation(ctx, s.root)
	if err != nil {
		return err
	}
	if len(pre.Conflicts) != 0 {
		return &sync.ConflictsPendingError{Conflicts: pre.Conflicts}
	}

	mutated, err := apply(pre.Root, s.clock().UTC())
	if err != nil {
		return err
	}

	post, err := s.shell.SaveAfterOperation(ctx, mutated)
	if err != nil {
		return err
	}
	if len(post.Conflicts) != 0 {
		s.root = mutated
		return &sync.ConflictsPendingError{Conflicts: post.Conflicts}
	}
	s.root = post.Root
	return nil
}

// AddCategory appends a category.
func (s *Service) AddCategory(ctx context.Context, name string) error {
	return s.mutate(ctx, func(root *bookmark.Root, now time.Time) (*bookmark.Root, error) {
		return bookmark.AddCategory(root, name, now)
	})
}

// RenameCategory renames a category.
func (s *Service) RenameCategory(ctx context.Context, name, newName string) error {
	return s.mutate(ctx, func(root *bookmark.Root, now time.Time) (*bookmark.Root, error) {
		return bookmark.RenameCategory(root, name, newName, now)
	})
}

// RemoveCategory tombstones a category; the node disappears from the
// document on the next successful write and is purged afterwards.
func (s *Service) RemoveCategory(ctx context.Context, name string) error {
	return s.mutate(ctx, func(root *bookmark.Root, now time.Time) (*bookmark.Root, error) {
		return bookmark.TombstoneCategory(root, name, now)
	})
}

// AddBundle appends a bundle under a category.
func (s *Service) AddBundle(ctx context.Context, category, name string) error {
	return s.mutate(ctx, func(root *bookmark.Root, now time.Time) (*bookmark.Root, error) {
		return bookmark.AddBundle(root, category, name, now)
	})
}

// RenameBundle renames a bundle.
func (s *Service) RenameBundle(ctx context.Context, category, name, newName string) error {
	return s.mutate(ctx, func(root *bookmark.Root, now time.Time) (*bookmark.Root, error) {
		return bookmark.RenameBundle(root, category, name, newName, now)
	})
}

// RemoveBundle tombstones a bundle.
func (s *Service) RemoveBundle(ctx context.Context, category, name string) error {
	return s.mutate(ctx, func(root *bookmark.Root, now time.Time) (*bookmark.Root, error) {
		return bookmark.TombstoneBundle(root, category, name, now)
	})
}

// BookmarkInput is the caller-facing shape of a new bookmark.
type BookmarkInput struct {
	Title string
	URL   string
	Tags  []string
	Notes string
}

// AddBookmark appends a bookmark to a bundle and returns its id.
func (s *Service) AddBookmark(ctx context.Context, category, bundle string, input BookmarkInput) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.mutate(ctx, func(root *bookmark.Root, now time.Time) (*bookmark.Root, error) {
		bm := bookmark.NewBookmark(input.Title, input.URL, now)
		bm.Tags = append([]string(nil), input.Tags...)
		bm.Notes = input.Notes
		id = bm.ID
		return bookmark.AddBookmark(root, category, bundle, bm, now)
	})
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// UpdateBookmark applies a partial change to a bookmark.
func (s *Service) UpdateBookmark(ctx context.Context, category, bundle string, id uuid.UUID, change bookmark.BookmarkChange) error {
	return s.mutate(ctx, func(root *bookmark.Root, now time.Time) (*bookmark.Root, error) {
		return bookmark.UpdateBookmark(root, category, bundle, id, change, now)
	})
}

// RemoveBookmark tombstones a bookmark.
func (s *Service) RemoveBookmark(ctx context.Context, category, bundle string, id uuid.UUID) error {
	return s.mutate(ctx, func(root *bookmark.Root, now time.Time) (*bookmark.Root, error) {
		return bookmark.TombstoneBookmark(root, category, bundle, id, now)
	})
}

// MoveBookmark relocates a bookmark to another bundle.
func (s *Service) MoveBookmark(ctx context.Context, category, bundle string, id uuid.UUID, toCategory, toBundle string) error {
	return s.mutate(ctx, func(root *bookmark.Root, now time.Time) (*bookmark.Root, error) {
		return bookmark.MoveBookmark(root, category, bundle, id, toCategory, toBundle, now)
	})
}

// ImportTree grafts an externally built tree (a browser export, say)
// into the collection inside one sync cycle. Categories and bundles
// merge by name; bookmarks always append.
func (s *Service) ImportTree(ctx context.Context, imported *bookmark.Root) (int, error) {
	if imported == nil {
		return 0, bookmark.ErrRootRequired
	}
	added := 0
	err := s.mutate(ctx, func(root *bookmark.Root, now time.Time) (*bookmark.Root, error) {
		var err error
		root, added, err = graft(root, imported, now)
		return root, err
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}

func graft(root, imported *bookmark.Root, now time.Time) (*bookmark.Root, int, error) {
	added := 0
	for _, cat := range imported.Categories {
		if cat.Metadata.IsDeleted {
			continue
		}
		if _, ok := bookmark.FindCategory(root, cat.Name); !ok {
			next, err := bookmark.AddCategory(root, cat.Name, now)
			if err != nil {
				return nil, 0, err
			}
			root = next
		}
		for _, bun := range cat.Bundles {
			if bun.Metadata.IsDeleted {
				continue
			}
			if _, ok := bookmark.FindBundle(root, cat.Name, bun.Name); !ok {
				next, err := bookmark.AddBundle(root, cat.Name, bun.Name, now)
				if err != nil {
					return nil, 0, err
				}
				root = next
			}
			for _, bm := range bun.Bookmarks {
				if bm.Metadata.IsDeleted {
					continue
				}
				fresh := bookmark.NewBookmark(bm.Title, bm.URL, now)
				fresh.Tags = append([]string(nil), bm.Tags...)
				fresh.Notes = bm.Notes
				next, err := bookmark.AddBookmark(root, cat.Name, bun.Name, fresh, now)
				if err != nil {
					return nil, 0, err
				}
				root = next
				added++
			}
		}
	}
	return root, added, nil
}
