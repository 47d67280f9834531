package collection

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-bookmarks/internal/bookmark"
	"github.com/goliatone/go-bookmarks/internal/localstore"
	"github.com/goliatone/go-bookmarks/internal/remote"
	"github.com/goliatone/go-bookmarks/internal/sync"
	"github.com/goliatone/go-bookmarks/pkg/interfaces"
)

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

type countingRemote struct {
	inner   interfaces.RemoteRepository
	reads   int
	updates int
	creates int
}

func (c *countingRemote) Create(ctx context.Context, req interfaces.CreateSnippetRequest) (interfaces.Snippet, error) {
	c.creates++
	return c.inner.Create(ctx, req)
}

func (c *countingRemote) Read(ctx context.Context, id string) (interfaces.Snippet, error) {
	c.reads++
	return c.inner.Read(ctx, id)
}

func (c *countingRemote) Update(ctx context.Context, req interfaces.UpdateSnippetRequest) (interfaces.Snippet, error) {
	c.updates++
	return c.inner.Update(ctx, req)
}

func (c *countingRemote) Exists(ctx context.Context, id string) (bool, error) {
	return c.inner.Exists(ctx, id)
}

func (c *countingRemote) FindByFilename(ctx context.Context, filename string) (string, error) {
	return c.inner.FindByFilename(ctx, filename)
}

func (c *countingRemote) reset() {
	c.reads, c.updates, c.creates = 0, 0, 0
}

type fixture struct {
	service *Service
	remote  *countingRemote
	repo    *remote.MemoryRepository
	clock   *fakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := newFakeClock()
	repo := remote.NewMemoryRepository().WithClock(clock.Now)
	counting := &countingRemote{inner: repo}

	shell, err := sync.New(sync.Options{
		Remote: counting,
		Store:  localstore.NewMemoryStore(),
		Clock:  clock.Now,
	})
	if err != nil {
		t.Fatalf("new shell: %v", err)
	}
	service, err := New(Options{Shell: shell, Clock: clock.Now})
	if err != nil {
		t.Fatalf("new collection: %v", err)
	}
	if err := service.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}
	return &fixture{service: service, remote: counting, repo: repo, clock: clock}
}

func (f *fixture) remoteContent(t *testing.T) string {
	t.Helper()
	id, err := f.repo.FindByFilename(context.Background(), sync.DefaultFilename)
	if err != nil {
		t.Fatalf("find document: %v", err)
	}
	snippet, err := f.repo.Read(context.Background(), id)
	if err != nil {
		t.Fatalf("read document: %v", err)
	}
	return snippet.Content
}

func TestOpenStartsEmptyWithoutRemoteOrSnapshot(t *testing.T) {
	f := newFixture(t)
	root, err := f.service.Root()
	if err != nil {
		t.Fatalf("root: %v", err)
	}
	if len(root.Categories) != 0 {
		t.Fatalf("expected empty tree, got %d categories", len(root.Categories))
	}
}

func TestMutationsWriteThrough(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.service.AddCategory(ctx, "Dev"); err != nil {
		t.Fatalf("add category: %v", err)
	}
	if err := f.service.AddBundle(ctx, "Dev", "Tools"); err != nil {
		t.Fatalf("add bundle: %v", err)
	}
	id, err := f.service.AddBookmark(ctx, "Dev", "Tools", BookmarkInput{Title: "A", URL: "https://a.com"})
	if err != nil {
		t.Fatalf("add bookmark: %v", err)
	}

	if got := f.remoteContent(t); got != "# Dev\n\n## Tools\n\n- [A](https://a.com)\n\n" {
		t.Fatalf("remote content = %q", got)
	}

	category, bundle, bm, ok, err := f.service.FindBookmark(id)
	if err != nil || !ok {
		t.Fatalf("find bookmark: ok=%v err=%v", ok, err)
	}
	if category != "Dev" || bundle != "Tools" || bm.Title != "A" {
		t.Fatalf("unexpected location: %s/%s %+v", category, bundle, bm)
	}
}

func TestRemoveBookmarkDisappearsFromDocument(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.service.Batch(ctx, func(b *Batch) error {
		if err := b.AddCategory("Dev"); err != nil {
			return err
		}
		if err := b.AddBundle("Dev", "Tools"); err != nil {
			return err
		}
		if _, err := b.AddBookmark("Dev", "Tools", BookmarkInput{Title: "A", URL: "https://a.com"}); err != nil {
			return err
		}
		_, err := b.AddBookmark("Dev", "Tools", BookmarkInput{Title: "B", URL: "https://b.com"})
		return err
	})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}

	root, _ := f.service.Root()
	id := root.Categories[0].Bundles[0].Bookmarks[1].ID
	if err := f.service.RemoveBookmark(ctx, "Dev", "Tools", id); err != nil {
		t.Fatalf("remove: %v", err)
	}

	if got := f.remoteContent(t); got != "# Dev\n\n## Tools\n\n- [A](https://a.com)\n\n" {
		t.Fatalf("remote content = %q", got)
	}
	count, err := f.service.Count()
	if err != nil || count != 1 {
		t.Fatalf("count = %d err=%v", count, err)
	}
	// The tombstone is purged once the write confirming the deletion lands.
	root, _ = f.service.Root()
	if got := len(root.Categories[0].Bundles[0].Bookmarks); got != 1 {
		t.Fatalf("expected purged tombstone, got %d bookmarks", got)
	}
}

func TestBatchCostsOneReadOneWrite(t *testing.T) {
	for _, n := range []int{0, 1, 3, 10} {
		f := newFixture(t)
		ctx := context.Background()

		// Seed an existing document so the batch is pure read-modify-write.
		if err := f.service.AddCategory(ctx, "Dev"); err != nil {
			t.Fatalf("n=%d seed: %v", n, err)
		}
		if err := f.service.AddBundle(ctx, "Dev", "Tools"); err != nil {
			t.Fatalf("n=%d seed bundle: %v", n, err)
		}

		f.remote.reset()
		err := f.service.Batch(ctx, func(b *Batch) error {
			for i := 0; i < n; i++ {
				title := "Bookmark " + string(rune('A'+i))
				url := "https://example.com/" + string(rune('a'+i))
				if _, err := b.AddBookmark("Dev", "Tools", BookmarkInput{Title: title, URL: url}); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			t.Fatalf("n=%d batch: %v", n, err)
		}

		if f.remote.reads != 1 {
			t.Fatalf("n=%d expected one remote read, got %d", n, f.remote.reads)
		}
		wantWrites := 0
		if n > 0 {
			wantWrites = 1
		}
		if f.remote.updates != wantWrites || f.remote.creates != 0 {
			t.Fatalf("n=%d expected %d writes, got updates=%d creates=%d",
				n, wantWrites, f.remote.updates, f.remote.creates)
		}
	}
}

func TestBatchErrorAbortsWithoutWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.service.AddCategory(ctx, "Dev"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	f.remote.reset()
	boom := errors.New("boom")
	err := f.service.Batch(ctx, func(b *Batch) error {
		if err := b.AddCategory("Work"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected batch error, got %v", err)
	}
	if f.remote.updates != 0 || f.remote.creates != 0 {
		t.Fatal("aborted batch must not write")
	}

	root, _ := f.service.Root()
	if len(root.Categories) != 1 {
		t.Fatalf("expected tree unchanged, got %d categories", len(root.Categories))
	}
}

func TestMutationPullsRemoteEditsFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.service.AddCategory(ctx, "Dev"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := f.service.AddBundle(ctx, "Dev", "Tools"); err != nil {
		t.Fatalf("seed bundle: %v", err)
	}

	// Another device adds a bookmark directly.
	id, _ := f.repo.FindByFilename(ctx, sync.DefaultFilename)
	snippet, _ := f.repo.Read(ctx, id)
	if _, err := f.repo.Update(ctx, interfaces.UpdateSnippetRequest{
		ID:              id,
		Content:         "# Dev\n\n## Tools\n\n- [Remote](https://remote.example)\n\n",
		ExpectedVersion: snippet.Version,
	}); err != nil {
		t.Fatalf("remote edit: %v", err)
	}

	if _, err := f.service.AddBookmark(ctx, "Dev", "Tools", BookmarkInput{Title: "Mine", URL: "https://mine.example"}); err != nil {
		t.Fatalf("add bookmark: %v", err)
	}

	root, _ := f.service.Root()
	bookmarks := root.Categories[0].Bundles[0].Bookmarks
	if len(bookmarks) != 2 {
		t.Fatalf("expected remote edit pulled in, got %d bookmarks", len(bookmarks))
	}
}

func TestImportTreeGraftsByName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.service.AddCategory(ctx, "Dev"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := f.service.AddBundle(ctx, "Dev", "Tools"); err != nil {
		t.Fatalf("seed bundle: %v", err)
	}

	at := f.clock.Now()
	imported := bookmark.NewRoot(at)
	imported, _ = bookmark.AddCategory(imported, "Dev", at)
	imported, _ = bookmark.AddBundle(imported, "Dev", "Tools", at)
	imported, _ = bookmark.AddBookmark(imported, "Dev", "Tools", bookmark.NewBookmark("A", "https://a.com", at), at)
	imported, _ = bookmark.AddCategory(imported, "Reading", at)
	imported, _ = bookmark.AddBundle(imported, "Reading", "Queue", at)
	imported, _ = bookmark.AddBookmark(imported, "Reading", "Queue", bookmark.NewBookmark("B", "https://b.com", at), at)

	added, err := f.service.ImportTree(ctx, imported)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if added != 2 {
		t.Fatalf("expected 2 imported bookmarks, got %d", added)
	}

	root, _ := f.service.Root()
	if len(root.Categories) != 2 {
		t.Fatalf("expected merged categories, got %d", len(root.Categories))
	}
	if _, ok := bookmark.FindBundle(root, "Reading", "Queue"); !ok {
		t.Fatal("expected imported bundle present")
	}
}

func TestQueriesRequireOpen(t *testing.T) {
	shell, err := sync.New(sync.Options{
		Remote: remote.NewMemoryRepository(),
		Store:  localstore.NewMemoryStore(),
	})
	if err != nil {
		t.Fatalf("new shell: %v", err)
	}
	service, err := New(Options{Shell: shell})
	if err != nil {
		t.Fatalf("new collection: %v", err)
	}
	if _, err := service.Root(); !errors.Is(err, ErrNotOpened) {
		t.Fatalf("expected ErrNotOpened, got %v", err)
	}
	if _, err := service.Count(); !errors.Is(err, ErrNotOpened) {
		t.Fatalf("expected ErrNotOpened, got %v", err)
	}
}

func TestTagsAggregate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.service.Batch(ctx, func(b *Batch) error {
		if err := b.AddCategory("Dev"); err != nil {
			return err
		}
		if err := b.AddBundle("Dev", "Tools"); err != nil {
			return err
		}
		if _, err := b.AddBookmark("Dev", "Tools", BookmarkInput{Title: "A", URL: "https://a.com", Tags: []string{"Go", "tools"}}); err != nil {
			return err
		}
		_, err := b.AddBookmark("Dev", "Tools", BookmarkInput{Title: "B", URL: "https://b.com", Tags: []string{"go"}})
		return err
	})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}

	counts, err := f.service.TagCounts()
	if err != nil {
		t.Fatalf("tag counts: %v", err)
	}
	if counts["go"] != 2 || counts["tools"] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}
	tags, err := f.service.Tags()
	if err != nil || len(tags) != 2 {
		t.Fatalf("tags = %v err=%v", tags, err)
	}
}
