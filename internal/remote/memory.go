// Package remote ships reference implementations of the
// interfaces.RemoteRepository contract: an in-memory store for tests
// and offline use, and a git-worktree store under gitstore for
// self-hosted synchronization.
package remote

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/goliatone/go-bookmarks/pkg/interfaces"
	"github.com/google/uuid"
)

// MemoryRepository is a map-backed snippet store guarded by a mutex.
// Versions are monotonically increasing counters per document.
type MemoryRepository struct {
	mu       sync.RWMutex
	snippets map[string]*memorySnippet
	clock    func() time.Time
}

type memorySnippet struct {
	id          string
	filename    string
	description string
	content     string
	revision    int
	updatedAt   time.Time
}

// NewMemoryRepository creates an empty in-memory snippet store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		snippets: make(map[string]*memorySnippet),
		clock:    time.Now,
	}
}

// WithClock overrides the timestamp source, used by tests.
func (r *MemoryRepository) WithClock(clock func() time.Time) *MemoryRepository {
	if clock != nil {
		r.clock = clock
	}
	return r
}

func (r *MemoryRepository) Create(ctx context.Context, req interfaces.CreateSnippetRequest) (interfaces.Snippet, error) {
	if err := ctx.Err(); err != nil {
		return interfaces.Snippet{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	record := &memorySnippet{
		id:          uuid.NewString(),
		filename:    req.Filename,
		description: req.Description,
		content:     req.Content,
		revision:    1,
		updatedAt:   r.clock(),
	}
	r.snippets[record.id] = record
	return record.snapshot(), nil
}

func (r *MemoryRepository) Read(ctx context.Context, id string) (interfaces.Snippet, error) {
	if err := ctx.Err(); err != nil {
		return interfaces.Snippet{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.snippets[id]
	if !ok {
		return interfaces.Snippet{}, interfaces.ErrSnippetNotFound
	}
	return record.snapshot(), nil
}

func (r *MemoryRepository) Update(ctx context.Context, req interfaces.UpdateSnippetRequest) (interfaces.Snippet, error) {
	if err := ctx.Err(); err != nil {
		return interfaces.Snippet{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.snippets[req.ID]
	if !ok {
		return interfaces.Snippet{}, interfaces.ErrSnippetNotFound
	}
	current := strconv.Itoa(record.revision)
	if req.ExpectedVersion != current {
		return interfaces.Snippet{}, &interfaces.VersionMismatchError{
			ID:       req.ID,
			Expected: req.ExpectedVersion,
			Actual:   current,
		}
	}
	record.content = req.Content
	record.revision++
	record.updatedAt = r.clock()
	if req.Description != "" {
		record.description = req.Description
	}
	return record.snapshot(), nil
}

func (r *MemoryRepository) Exists(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.snippets[id]
	return ok, nil
}

func (r *MemoryRepository) FindByFilename(ctx context.Context, filename string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, record := range r.snippets {
		if record.filename == filename {
			return record.id, nil
		}
	}
	return "", interfaces.ErrSnippetNotFound
}

func (s *memorySnippet) snapshot() interfaces.Snippet {
	return interfaces.Snippet{
		ID:          s.id,
		Filename:    s.filename,
		Description: s.description,
		Content:     s.content,
		Version:     strconv.Itoa(s.revision),
		UpdatedAt:   s.updatedAt,
	}
}

var _ interfaces.RemoteRepository = (*MemoryRepository)(nil)
