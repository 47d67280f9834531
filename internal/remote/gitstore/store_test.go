package gitstore

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-bookmarks/pkg/interfaces"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(Options{BaseDir: t.TempDir()})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func TestGitStoreCreateReadUpdate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, interfaces.CreateSnippetRequest{
		Filename:    "bookmarks.md",
		Description: "bookmark collection",
		Content:     "# Dev\n\n## Tools\n\n- [A](https://a.com)\n\n",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Version == "" {
		t.Fatal("expected commit hash as version")
	}

	read, err := store.Read(ctx, created.ID)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if read.Content != created.Content {
		t.Fatalf("round-trip content mismatch: %q", read.Content)
	}
	if read.Version != created.Version {
		t.Fatalf("expected stable version, got %q want %q", read.Version, created.Version)
	}

	updated, err := store.Update(ctx, interfaces.UpdateSnippetRequest{
		ID:              created.ID,
		Content:         "# Dev\n\n",
		ExpectedVersion: created.Version,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Version == created.Version {
		t.Fatal("expected a new commit hash after update")
	}

	read, err = store.Read(ctx, created.ID)
	if err != nil || read.Content != "# Dev\n\n" {
		t.Fatalf("read after update: content=%q err=%v", read.Content, err)
	}
}

func TestGitStoreVersionMismatch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, interfaces.CreateSnippetRequest{Filename: "bookmarks.md", Content: "v1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.Update(ctx, interfaces.UpdateSnippetRequest{
		ID:              created.ID,
		Content:         "v2",
		ExpectedVersion: created.Version,
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	_, err = store.Update(ctx, interfaces.UpdateSnippetRequest{
		ID:              created.ID,
		Content:         "stale",
		ExpectedVersion: created.Version,
	})
	if !errors.Is(err, interfaces.ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got %v", err)
	}
}

func TestGitStoreFindByFilename(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, interfaces.CreateSnippetRequest{Filename: "bookmarks.md", Content: "x"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	id, err := store.FindByFilename(ctx, "bookmarks.md")
	if err != nil || id != created.ID {
		t.Fatalf("find: id=%q err=%v", id, err)
	}
	if _, err := store.FindByFilename(ctx, "other.md"); !errors.Is(err, interfaces.ErrSnippetNotFound) {
		t.Fatalf("expected ErrSnippetNotFound, got %v", err)
	}

	ok, err := store.Exists(ctx, created.ID)
	if err != nil || !ok {
		t.Fatalf("exists: ok=%v err=%v", ok, err)
	}
	ok, err = store.Exists(ctx, "missing")
	if err != nil || ok {
		t.Fatalf("exists missing: ok=%v err=%v", ok, err)
	}
}

func TestGitStoreReadMissing(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Read(context.Background(), "missing"); !errors.Is(err, interfaces.ErrSnippetNotFound) {
		t.Fatalf("expected ErrSnippetNotFound, got %v", err)
	}
}
