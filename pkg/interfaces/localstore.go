package interfaces

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrKeyNotFound is returned by LocalStore.Get for absent keys.
var ErrKeyNotFound = errors.New("localstore: key not found")

// ErrLockHeld is returned when the cooperative creation lock is already
// taken by another shell instance.
var ErrLockHeld = errors.New("localstore: lock held")

// LockHeldError carries the holder of a cooperative lock. The lock is a
// race-narrowing heuristic, not a correctness guarantee: it only keeps
// two instances on the same device from creating duplicate documents.
type LockHeldError struct {
	Owner     string
	ExpiresAt time.Time
}

func (e *LockHeldError) Error() string {
	return fmt.Sprintf("localstore: lock held by %s until %s", e.Owner, e.ExpiresAt.Format(time.RFC3339))
}

func (e *LockHeldError) Unwrap() error { return ErrLockHeld }

// LocalStore is the device-local key-value persistence used for sync
// bookkeeping: the cached document id, the per-document lastSynced
// marker, the creation-lock record and the last-known collection
// snapshot. Keys are namespaced by the caller; values are opaque
// strings.
type LocalStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
