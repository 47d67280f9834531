package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/goliatone/go-bookmarks/internal/bookmark"
	"github.com/goliatone/go-bookmarks/internal/validation"
	"github.com/goliatone/go-bookmarks/pkg/interfaces"
)

// storeSnapshot persists the converged tree so the collection can start
// offline next time. Snapshot failures are non-fatal to a sync pass and
// surface as a warning only.
func (s *Service) storeSnapshot(ctx context.Context, docID string, root *bookmark.Root) error {
	encoded, err := json.Marshal(root)
	if err != nil {
		return fmt.Errorf("sync: encode snapshot: %w", err)
	}
	if err := s.store.Set(ctx, snapshotKey+docID, string(encoded)); err != nil {
		s.logger.Warn("snapshot write failed", "document_id", docID, "error", err)
	}
	return nil
}

// loadMergeBase returns the snapshot tree as the three-way merge base.
// Any failure degrades to a nil base: the merge then falls back to
// comparing content against the remote, it never fails the pass.
func (s *Service) loadMergeBase(ctx context.Context, docID string) *bookmark.Root {
	raw, err := s.store.Get(ctx, snapshotKey+docID)
	if err != nil {
		return nil
	}
	if err := validation.ValidateSnapshot([]byte(raw)); err != nil {
		return nil
	}
	root := &bookmark.Root{}
	if err := json.Unmarshal([]byte(raw), root); err != nil {
		return nil
	}
	return bookmark.EnsureRootMetadataWithoutTimestamp(root)
}

// RestoreSnapshot returns the last persisted tree for the shell's
// document without touching the remote. The snapshot is validated
// against the collection schema before it is trusted.
func (s *Service) RestoreSnapshot(ctx context.Context) (*bookmark.Root, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docID, err := s.resolveDocumentID(ctx, false)
	if errors.Is(err, ErrDocumentNotFound) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, err
	}

	raw, err := s.store.Get(ctx, snapshotKey+docID)
	if errors.Is(err, interfaces.ErrKeyNotFound) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, err
	}

	if err := validation.ValidateSnapshot([]byte(raw)); err != nil {
		return nil, fmt.Errorf("sync: snapshot rejected: %w", err)
	}

	root := &bookmark.Root{}
	if err := json.Unmarshal([]byte(raw), root); err != nil {
		return nil, fmt.Errorf("sync: decode snapshot: %w", err)
	}
	return bookmark.EnsureRootMetadataWithoutTimestamp(root), nil
}
