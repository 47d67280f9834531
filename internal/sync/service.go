// Package sync keeps a locally edited collection tree and its remote
// Markdown document convergent. The shell owns the device-local
// bookkeeping (cached document id, per-document lastSynced marker,
// creation lock, offline snapshot), delegates reconciliation to the
// merge engine and writes through the remote repository's optimistic
// concurrency check.
package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	stdsync "sync"
	"time"

	"github.com/goliatone/go-bookmarks/internal/bookmark"
	"github.com/goliatone/go-bookmarks/internal/identity"
	"github.com/goliatone/go-bookmarks/internal/logging"
	"github.com/goliatone/go-bookmarks/internal/markdown"
	"github.com/goliatone/go-bookmarks/internal/merge"
	"github.com/goliatone/go-bookmarks/pkg/interfaces"
)

// State is the externally observable shell state.
type State string

const (
	StateIdle            State = "idle"
	StateLoadingRemote   State = "loading-remote"
	StateMerging         State = "merging"
	StateConflictPending State = "conflict-pending"
	StateSaving          State = "saving"
	StateError           State = "error"
)

const (
	DefaultFilename        = "bookmarks.md"
	DefaultDescription     = "Bookmark collection"
	DefaultCreationLockTTL = 30 * time.Second
)

const (
	keyDocumentID = "document_id"
	lastSyncedKey = "last_synced:"
	snapshotKey   = "snapshot:"
	creationLock  = "creation_lock:"
)

// Options configure the sync shell. Remote and Store are required;
// everything else has a working default.
type Options struct {
	Remote interfaces.RemoteRepository
	Store  interfaces.LocalStore

	// DocumentID pins the shell to a known remote document, skipping
	// filename discovery entirely.
	DocumentID  string
	Filename    string
	Description string

	CreationLockTTL time.Duration
	Strategy        merge.Strategy

	// DisableAutoCreate makes a missing remote document an error instead
	// of creating it on the first write.
	DisableAutoCreate bool

	Logger interfaces.Logger
	Clock  func() time.Time
}

// Result reports what a sync pass did. Conflicts is non-empty when the
// merge stopped short of writing; Wrote and Created report remote
// mutations.
type Result struct {
	Root      *bookmark.Root
	Conflicts []merge.Conflict
	Wrote     bool
	Created   bool
}

// Service is the sync shell for one remote document. All operations
// serialize on an internal mutex; the shell is safe for concurrent use.
type Service struct {
	remote interfaces.RemoteRepository
	store  interfaces.LocalStore
	logger interfaces.Logger
	clock  func() time.Time

	documentID  string
	filename    string
	description string
	lockTTL     time.Duration
	strategy    merge.Strategy
	autoCreate  bool
	owner       string

	mu          stdsync.Mutex
	state       State
	version     string
	lastContent string
	cached      string
	pending     []merge.Conflict
}

// New builds a sync shell from options.
func New(opts Options) (*Service, error) {
	if opts.Remote == nil {
		return nil, ErrRemoteRequired
	}
	if opts.Store == nil {
		return nil, ErrStoreRequired
	}

	filename := opts.Filename
	if filename == "" {
		filename = DefaultFilename
	}
	description := opts.Description
	if description == "" {
		description = DefaultDescription
	}
	lockTTL := opts.CreationLockTTL
	if lockTTL <= 0 {
		lockTTL = DefaultCreationLockTTL
	}
	strategy := opts.Strategy
	if strategy == "" {
		strategy = merge.StrategyTimestamp
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NoOp()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown-host"
	}

	return &Service{
		remote:      opts.Remote,
		store:       opts.Store,
		logger:      logger,
		clock:       clock,
		documentID:  opts.DocumentID,
		filename:    filename,
		description: description,
		lockTTL:     lockTTL,
		strategy:    strategy,
		autoCreate:  !opts.DisableAutoCreate,
		owner:       identity.LockOwnerUUID(hostname, os.Getpid()).String(),
		state:       StateIdle,
	}, nil
}

// State returns the current shell state.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Conflicts returns the conflicts left by the last sync pass, if any.
func (s *Service) Conflicts() []merge.Conflict {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]merge.Conflict, len(s.pending))
	copy(out, s.pending)
	return out
}

// Load fetches the remote document and returns its parsed tree. The
// lastSynced marker advances to now because the returned tree is, by
// construction, identical to the remote.
func (s *Service) Load(ctx context.Context) (*bookmark.Root, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = StateLoadingRemote
	snippet, docID, err := s.readRemote(ctx)
	if err != nil {
		s.state = StateError
		return nil, err
	}

	root, err := markdown.ParseRaw(snippet.Content)
	if err != nil {
		s.state = StateError
		return nil, fmt.Errorf("sync: parse remote document: %w", err)
	}
	root = bookmark.EnsureRootMetadataWithoutTimestamp(root)

	now := s.clock().UTC()
	root = bookmark.UpdateAllLastSynced(root, now)
	if err := s.finishPass(ctx, docID, root, now); err != nil {
		s.state = StateError
		return nil, err
	}

	s.version = snippet.Version
	s.state = StateIdle
	logging.WithSyncContext(s.logger, docID, "load", string(s.state)).
		Debug("loaded remote document", "version", snippet.Version)
	return root, nil
}

// Save writes the tree to the remote document unconditionally, creating
// the document when none exists yet. The write still goes through the
// optimistic concurrency check against the last observed version, so a
// concurrent remote edit surfaces as ErrVersionMismatch instead of
// being overwritten.
func (s *Service) Save(ctx context.Context, root *bookmark.Root) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if root == nil {
		return Result{}, ErrLocalRequired
	}

	content, err := markdown.Generate(root)
	if err != nil {
		return Result{}, err
	}

	s.state = StateSaving
	docID, err := s.resolveDocumentID(ctx, true)
	if errors.Is(err, ErrDocumentNotFound) {
		if !s.autoCreate {
			s.state = StateError
			return Result{}, err
		}
		return s.createDocument(ctx, root, content)
	}
	if err != nil {
		s.state = StateError
		return Result{}, err
	}

	expected := s.version
	if expected == "" {
		snippet, err := s.remote.Read(ctx, docID)
		if err != nil {
			s.state = StateError
			return Result{}, err
		}
		expected = snippet.Version
	}

	snippet, err := s.remote.Update(ctx, interfaces.UpdateSnippetRequest{
		ID:              docID,
		Content:         content,
		ExpectedVersion: expected,
		Description:     s.description,
	})
	if err != nil {
		s.state = StateError
		return Result{}, err
	}

	now := s.clock().UTC()
	root = bookmark.UpdateAllLastSynced(root, now)
	if err := s.finishPass(ctx, docID, root, now); err != nil {
		s.state = StateError
		return Result{}, err
	}

	s.version = snippet.Version
	s.lastContent = content
	s.state = StateIdle
	return Result{Root: bookmark.PurgeTombstones(root), Wrote: true}, nil
}

// Sync runs a full reconciliation pass: read remote, merge against the
// lastSynced cutoff, write back when the merged tree differs from the
// remote. Conflicts stop the pass before any write.
func (s *Service) Sync(ctx context.Context, local *bookmark.Root) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sync(ctx, local, nil, true)
}

// SyncWithConflictResolution reruns a conflicted sync applying explicit
// per-path picks. Unresolved conflicts abort with an
// UnresolvedConflictsError from the merge engine.
func (s *Service) SyncWithConflictResolution(ctx context.Context, local *bookmark.Root, resolutions []merge.Resolution) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sync(ctx, local, resolutions, true)
}

// SyncBeforeOperation pulls remote changes into the local tree without
// writing anything back. Mutating operations call this first so remote
// deletions and edits propagate before the local edit lands.
func (s *Service) SyncBeforeOperation(ctx context.Context, local *bookmark.Root) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sync(ctx, local, nil, false)
}

// SaveAfterOperation writes the tree after a mutating operation. When a
// pull already ran in this cycle the write reuses the version it
// observed, so the operation costs one remote read and at most one
// write in total; a racing remote edit still fails the concurrency
// check. Without a prior pull this degrades to a full sync pass.
func (s *Service) SaveAfterOperation(ctx context.Context, local *bookmark.Root) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if local == nil {
		return Result{}, ErrLocalRequired
	}
	if s.version == "" {
		return s.sync(ctx, local, nil, true)
	}

	docID, err := s.resolveDocumentID(ctx, true)
	if err != nil {
		s.state = StateError
		return Result{}, err
	}

	content, err := markdown.Generate(local)
	if err != nil {
		s.state = StateError
		return Result{}, err
	}

	now := s.clock().UTC()
	if content == s.lastContent {
		local = bookmark.UpdateAllLastSynced(local, now)
		if err := s.finishPass(ctx, docID, local, now); err != nil {
			s.state = StateError
			return Result{}, err
		}
		s.state = StateIdle
		return Result{Root: bookmark.PurgeTombstones(local)}, nil
	}

	s.state = StateSaving
	updated, err := s.remote.Update(ctx, interfaces.UpdateSnippetRequest{
		ID:              docID,
		Content:         content,
		ExpectedVersion: s.version,
		Description:     s.description,
	})
	if err != nil {
		s.state = StateError
		return Result{}, err
	}

	now = s.clock().UTC()
	local = bookmark.UpdateAllLastSynced(local, now)
	if err := s.finishPass(ctx, docID, local, now); err != nil {
		s.state = StateError
		return Result{}, err
	}

	s.version = updated.Version
	s.lastContent = content
	s.state = StateIdle
	return Result{Root: bookmark.PurgeTombstones(local), Wrote: true}, nil
}

func (s *Service) sync(ctx context.Context, local *bookmark.Root, resolutions []merge.Resolution, write bool) (Result, error) {
	if local == nil {
		return Result{}, ErrLocalRequired
	}

	s.state = StateLoadingRemote
	snippet, docID, err := s.readRemote(ctx)
	if errors.Is(err, ErrDocumentNotFound) {
		if !write {
			// Nothing remote to pull from yet.
			s.state = StateIdle
			return Result{Root: local}, nil
		}
		if !s.autoCreate {
			s.state = StateError
			return Result{}, err
		}
		content, genErr := markdown.Generate(local)
		if genErr != nil {
			s.state = StateError
			return Result{}, genErr
		}
		return s.createDocument(ctx, local, content)
	}
	if err != nil {
		s.state = StateError
		return Result{}, err
	}

	remote, err := markdown.ParseRaw(snippet.Content)
	if err != nil {
		s.state = StateError
		return Result{}, fmt.Errorf("sync: parse remote document: %w", err)
	}
	remote = bookmark.EnsureRootMetadataWithoutTimestamp(remote)

	lastSynced, err := s.loadLastSynced(ctx, docID)
	if err != nil {
		s.state = StateError
		return Result{}, err
	}
	base := s.loadMergeBase(ctx, docID)

	s.state = StateMerging
	logger := logging.WithSyncContext(s.logger, docID, "sync", string(s.state))

	var merged *bookmark.Root
	var conflicts []merge.Conflict
	hasChanges := true
	if len(resolutions) > 0 {
		merged, err = merge.ResolveConflicts(merge.Input{
			Local:      local,
			Remote:     remote,
			Base:       base,
			LastSynced: lastSynced,
			Strategy:   s.strategy,
		}, resolutions)
		if err != nil {
			s.state = StateError
			return Result{}, err
		}
		hasChanges = !bookmark.Equivalent(merged, remote)
	} else {
		result, mergeErr := merge.Merge(merge.Input{
			Local:      local,
			Remote:     remote,
			Base:       base,
			LastSynced: lastSynced,
			Strategy:   s.strategy,
		})
		if mergeErr != nil {
			s.state = StateError
			return Result{}, mergeErr
		}
		if result.HasConflicts {
			s.pending = result.Conflicts
			s.state = StateConflictPending
			logger.Warn("sync stopped on conflicts", "conflicts", len(result.Conflicts))
			return Result{Root: local, Conflicts: result.Conflicts}, nil
		}
		merged = result.Merged
		conflicts = nil
		hasChanges = result.HasChanges
	}
	s.pending = nil
	s.version = snippet.Version

	if !write {
		s.state = StateIdle
		return Result{Root: merged, Conflicts: conflicts}, nil
	}

	now := s.clock().UTC()
	if !hasChanges {
		// Remote already matches; just refresh the cutoff.
		merged = bookmark.UpdateAllLastSynced(merged, now)
		if err := s.finishPass(ctx, docID, merged, now); err != nil {
			s.state = StateError
			return Result{}, err
		}
		s.state = StateIdle
		logger.Debug("sync found no changes")
		return Result{Root: bookmark.PurgeTombstones(merged)}, nil
	}

	s.state = StateSaving
	content, err := markdown.Generate(merged)
	if err != nil {
		s.state = StateError
		return Result{}, err
	}
	updated, err := s.remote.Update(ctx, interfaces.UpdateSnippetRequest{
		ID:              docID,
		Content:         content,
		ExpectedVersion: snippet.Version,
		Description:     s.description,
	})
	if err != nil {
		s.state = StateError
		return Result{}, err
	}

	now = s.clock().UTC()
	merged = bookmark.UpdateAllLastSynced(merged, now)
	if err := s.finishPass(ctx, docID, merged, now); err != nil {
		s.state = StateError
		return Result{}, err
	}

	s.version = updated.Version
	s.lastContent = content
	s.state = StateIdle
	logger.Info("sync wrote remote document", "version", updated.Version)
	return Result{Root: bookmark.PurgeTombstones(merged), Wrote: true}, nil
}

// readRemote resolves the document id and reads the snippet, clearing a
// stale cached id once before giving up.
func (s *Service) readRemote(ctx context.Context) (interfaces.Snippet, string, error) {
	docID, err := s.resolveDocumentID(ctx, true)
	if err != nil {
		return interfaces.Snippet{}, "", err
	}

	snippet, err := s.remote.Read(ctx, docID)
	if errors.Is(err, interfaces.ErrSnippetNotFound) && docID == s.cached {
		s.cached = ""
		if delErr := s.store.Delete(ctx, keyDocumentID); delErr != nil {
			return interfaces.Snippet{}, "", delErr
		}
		docID, err = s.resolveDocumentID(ctx, true)
		if err != nil {
			return interfaces.Snippet{}, "", err
		}
		snippet, err = s.remote.Read(ctx, docID)
	}
	if err != nil {
		if errors.Is(err, interfaces.ErrSnippetNotFound) {
			return interfaces.Snippet{}, "", fmt.Errorf("%w: %s", ErrDocumentNotFound, docID)
		}
		return interfaces.Snippet{}, "", err
	}
	s.lastContent = snippet.Content
	return snippet, docID, nil
}

// resolveDocumentID resolves in precedence order: configured id, cached
// id, then filename discovery against the remote when allowed.
func (s *Service) resolveDocumentID(ctx context.Context, allowRemote bool) (string, error) {
	if s.documentID != "" {
		return s.documentID, nil
	}
	if s.cached != "" {
		return s.cached, nil
	}

	cached, err := s.store.Get(ctx, keyDocumentID)
	if err == nil && cached != "" {
		s.cached = cached
		return cached, nil
	}
	if err != nil && !errors.Is(err, interfaces.ErrKeyNotFound) {
		return "", err
	}
	if !allowRemote {
		return "", ErrDocumentNotFound
	}

	docID, err := s.remote.FindByFilename(ctx, s.filename)
	if errors.Is(err, interfaces.ErrSnippetNotFound) {
		return "", fmt.Errorf("%w: filename %q", ErrDocumentNotFound, s.filename)
	}
	if err != nil {
		return "", err
	}
	if err := s.cacheDocumentID(ctx, docID); err != nil {
		return "", err
	}
	return docID, nil
}

// createDocument creates the remote document from the local tree. The
// creation lock narrows the duplicate-creation window between two shell
// instances on the same device; a second filename search inside the
// lock catches a document created in between.
func (s *Service) createDocument(ctx context.Context, root *bookmark.Root, content string) (Result, error) {
	release, err := s.acquireCreationLock(ctx)
	if err != nil {
		s.state = StateError
		return Result{}, err
	}
	defer release()

	if docID, err := s.remote.FindByFilename(ctx, s.filename); err == nil {
		// Someone else created it while we were deciding to.
		if cacheErr := s.cacheDocumentID(ctx, docID); cacheErr != nil {
			s.state = StateError
			return Result{}, cacheErr
		}
		return s.sync(ctx, root, nil, true)
	} else if !errors.Is(err, interfaces.ErrSnippetNotFound) {
		s.state = StateError
		return Result{}, err
	}

	s.state = StateSaving
	snippet, err := s.remote.Create(ctx, interfaces.CreateSnippetRequest{
		Filename:    s.filename,
		Description: s.description,
		Content:     content,
	})
	if err != nil {
		s.state = StateError
		return Result{}, err
	}
	if err := s.cacheDocumentID(ctx, snippet.ID); err != nil {
		s.state = StateError
		return Result{}, err
	}

	now := s.clock().UTC()
	root = bookmark.UpdateAllLastSynced(root, now)
	if err := s.finishPass(ctx, snippet.ID, root, now); err != nil {
		s.state = StateError
		return Result{}, err
	}

	s.version = snippet.Version
	s.lastContent = content
	s.state = StateIdle
	logging.WithSyncContext(s.logger, snippet.ID, "create", string(s.state)).
		Info("created remote document", "filename", s.filename)
	return Result{Root: bookmark.PurgeTombstones(root), Wrote: true, Created: true}, nil
}

type lockRecord struct {
	Owner     string    `json:"owner"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Service) acquireCreationLock(ctx context.Context) (func(), error) {
	key := creationLock + s.filename
	now := s.clock().UTC()

	raw, err := s.store.Get(ctx, key)
	if err != nil && !errors.Is(err, interfaces.ErrKeyNotFound) {
		return nil, err
	}
	if err == nil && raw != "" {
		var record lockRecord
		if jsonErr := json.Unmarshal([]byte(raw), &record); jsonErr == nil {
			if record.Owner != s.owner && now.Before(record.ExpiresAt) {
				return nil, &interfaces.LockHeldError{
					Owner:     record.Owner,
					ExpiresAt: record.ExpiresAt,
				}
			}
		}
		// Expired, malformed or our own lock: take it over.
	}

	record := lockRecord{Owner: s.owner, ExpiresAt: now.Add(s.lockTTL)}
	encoded, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	if err := s.store.Set(ctx, key, string(encoded)); err != nil {
		return nil, err
	}
	return func() {
		_ = s.store.Delete(ctx, key)
	}, nil
}

func (s *Service) cacheDocumentID(ctx context.Context, docID string) error {
	s.cached = docID
	return s.store.Set(ctx, keyDocumentID, docID)
}

func (s *Service) loadLastSynced(ctx context.Context, docID string) (*time.Time, error) {
	raw, err := s.store.Get(ctx, lastSyncedKey+docID)
	if errors.Is(err, interfaces.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		// A corrupt marker degrades to a first sync, never to data loss.
		return nil, nil
	}
	return &parsed, nil
}

// finishPass persists the per-pass bookkeeping: the lastSynced marker
// and the offline snapshot of the converged tree.
func (s *Service) finishPass(ctx context.Context, docID string, root *bookmark.Root, now time.Time) error {
	if err := s.store.Set(ctx, lastSyncedKey+docID, now.Format(time.RFC3339Nano)); err != nil {
		return err
	}
	return s.storeSnapshot(ctx, docID, bookmark.PurgeTombstones(root))
}
