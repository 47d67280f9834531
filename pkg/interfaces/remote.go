package interfaces

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrSnippetNotFound = errors.New("remote: snippet not found")
	ErrVersionMismatch = errors.New("remote: version mismatch")
	ErrTransport       = errors.New("remote: transport failure")
)

// VersionMismatchError reports a failed optimistic-concurrency check:
// the document changed remotely since it was last read.
type VersionMismatchError struct {
	ID       string
	Expected string
	Actual   string
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("remote: snippet %s version mismatch: expected %q have %q", e.ID, e.Expected, e.Actual)
}

func (e *VersionMismatchError) Unwrap() error { return ErrVersionMismatch }

// Snippet is one remote text document plus its concurrency token. The
// Version is opaque; callers only ever pass it back unchanged.
type Snippet struct {
	ID          string
	Filename    string
	Description string
	Content     string
	Version     string
	UpdatedAt   time.Time
}

// CreateSnippetRequest creates a new document.
type CreateSnippetRequest struct {
	Filename    string
	Description string
	Content     string
}

// UpdateSnippetRequest overwrites a document's content if and only if
// ExpectedVersion still matches the stored version.
type UpdateSnippetRequest struct {
	ID              string
	Content         string
	ExpectedVersion string
	Description     string
}

// RemoteRepository is the gist-like snippet store the collection
// synchronizes against. Implementations are injected by the host
// application; they must return ErrSnippetNotFound for missing ids and
// a VersionMismatchError when an update loses the concurrency check.
type RemoteRepository interface {
	Create(ctx context.Context, req CreateSnippetRequest) (Snippet, error)
	Read(ctx context.Context, id string) (Snippet, error)
	Update(ctx context.Context, req UpdateSnippetRequest) (Snippet, error)
	Exists(ctx context.Context, id string) (bool, error)
	// FindByFilename resolves a document id by the filename it carries,
	// returning ErrSnippetNotFound when no document matches.
	FindByFilename(ctx context.Context, filename string) (string, error)
}
