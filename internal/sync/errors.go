package sync

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-bookmarks/internal/merge"
)

var (
	ErrRemoteRequired   = errors.New("sync: remote repository required")
	ErrStoreRequired    = errors.New("sync: local store required")
	ErrLocalRequired    = errors.New("sync: local tree required")
	ErrDocumentNotFound = errors.New("sync: document not found")
	ErrConflictsPending = errors.New("sync: conflicts pending")
	ErrNoSnapshot       = errors.New("sync: no snapshot stored")
)

// ConflictsPendingError reports that a merge detected concurrent edits
// and no remote write happened. The caller resolves the listed conflicts
// and retries through SyncWithConflictResolution.
type ConflictsPendingError struct {
	Conflicts []merge.Conflict
}

func (e *ConflictsPendingError) Error() string {
	return fmt.Sprintf("sync: %d conflict(s) pending resolution", len(e.Conflicts))
}

func (e *ConflictsPendingError) Unwrap() error { return ErrConflictsPending }
