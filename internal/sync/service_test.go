package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-bookmarks/internal/bookmark"
	"github.com/goliatone/go-bookmarks/internal/localstore"
	"github.com/goliatone/go-bookmarks/internal/merge"
	"github.com/goliatone/go-bookmarks/internal/remote"
	"github.com/goliatone/go-bookmarks/pkg/interfaces"
)

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) time.Time {
	c.now = c.now.Add(d)
	return c.now
}

// countingRemote counts calls so tests can assert a sync pass costs one
// read and at most one write regardless of how many local mutations it
// carries.
type countingRemote struct {
	inner     interfaces.RemoteRepository
	reads     int
	updates   int
	creates   int
	searches  int
	afterRead func()
}

func (c *countingRemote) Create(ctx context.Context, req interfaces.CreateSnippetRequest) (interfaces.Snippet, error) {
	c.creates++
	return c.inner.Create(ctx, req)
}

func (c *countingRemote) Read(ctx context.Context, id string) (interfaces.Snippet, error) {
	c.reads++
	snippet, err := c.inner.Read(ctx, id)
	if c.afterRead != nil {
		c.afterRead()
	}
	return snippet, err
}

func (c *countingRemote) Update(ctx context.Context, req interfaces.UpdateSnippetRequest) (interfaces.Snippet, error) {
	c.updates++
	return c.inner.Update(ctx, req)
}

func (c *countingRemote) Exists(ctx context.Context, id string) (bool, error) {
	return c.inner.Exists(ctx, id)
}

func (c *countingRemote) FindByFilename(ctx context.Context, filename string) (string, error) {
	c.searches++
	return c.inner.FindByFilename(ctx, filename)
}

func (c *countingRemote) reset() {
	c.reads, c.updates, c.creates, c.searches = 0, 0, 0, 0
}

type fixture struct {
	service *Service
	remote  *countingRemote
	repo    *remote.MemoryRepository
	store   *localstore.MemoryStore
	clock   *fakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := newFakeClock()
	repo := remote.NewMemoryRepository().WithClock(clock.Now)
	counting := &countingRemote{inner: repo}
	store := localstore.NewMemoryStore()

	service, err := New(Options{
		Remote: counting,
		Store:  store,
		Clock:  clock.Now,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &fixture{service: service, remote: counting, repo: repo, store: store, clock: clock}
}

func devToolsRoot(t *testing.T, at time.Time) *bookmark.Root {
	t.Helper()
	root := bookmark.NewRoot(at)
	root, err := bookmark.AddCategory(root, "Dev", at)
	if err != nil {
		t.Fatalf("add category: %v", err)
	}
	root, err = bookmark.AddBundle(root, "Dev", "Tools", at)
	if err != nil {
		t.Fatalf("add bundle: %v", err)
	}
	root, err = bookmark.AddBookmark(root, "Dev", "Tools", bookmark.NewBookmark("A", "https://a.com", at), at)
	if err != nil {
		t.Fatalf("add bookmark: %v", err)
	}
	return root
}

func remoteContent(t *testing.T, f *fixture) string {
	t.Helper()
	id, err := f.repo.FindByFilename(context.Background(), DefaultFilename)
	if err != nil {
		t.Fatalf("find document: %v", err)
	}
	snippet, err := f.repo.Read(context.Background(), id)
	if err != nil {
		t.Fatalf("read document: %v", err)
	}
	return snippet.Content
}

func TestSyncCreatesDocumentWhenRemoteEmpty(t *testing.T) {
	f := newFixture(t)
	local := devToolsRoot(t, f.clock.Now())
	f.clock.Advance(time.Minute)

	result, err := f.service.Sync(context.Background(), local)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if !result.Created || !result.Wrote {
		t.Fatalf("expected creation, got %+v", result)
	}
	if got, want := remoteContent(t, f), "# Dev\n\n## Tools\n\n- [A](https://a.com)\n\n"; got != want {
		t.Fatalf("remote content = %q, want %q", got, want)
	}
	if cached, err := f.store.Get(context.Background(), keyDocumentID); err != nil || cached == "" {
		t.Fatalf("expected cached document id, got %q err=%v", cached, err)
	}
	if state := f.service.State(); state != StateIdle {
		t.Fatalf("state = %q, want idle", state)
	}
}

func TestSyncIsIdempotent(t *testing.T) {
	f := newFixture(t)
	local := devToolsRoot(t, f.clock.Now())
	f.clock.Advance(time.Minute)

	first, err := f.service.Sync(context.Background(), local)
	if err != nil {
		t.Fatalf("first sync: %v", err)
	}

	f.remote.reset()
	f.clock.Advance(time.Minute)
	second, err := f.service.Sync(context.Background(), first.Root)
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if second.Wrote || second.Created {
		t.Fatalf("expected no-op sync, got %+v", second)
	}
	if f.remote.updates != 0 || f.remote.creates != 0 {
		t.Fatalf("expected no remote writes, got updates=%d creates=%d", f.remote.updates, f.remote.creates)
	}
	if f.remote.reads != 1 {
		t.Fatalf("expected exactly one remote read, got %d", f.remote.reads)
	}
}

func TestSyncMatchingContentWithoutMarkerNeedsNoWrite(t *testing.T) {
	f := newFixture(t)
	if _, err := f.repo.Create(context.Background(), interfaces.CreateSnippetRequest{
		Filename: DefaultFilename,
		Content:  "# Dev\n\n## Tools\n\n- [A](https://a.com)\n\n",
	}); err != nil {
		t.Fatalf("seed remote: %v", err)
	}

	local := devToolsRoot(t, f.clock.Now())
	f.clock.Advance(time.Minute)
	result, err := f.service.Sync(context.Background(), local)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if result.Wrote {
		t.Fatal("expected no write when content already matches")
	}
	if f.remote.updates != 0 {
		t.Fatalf("expected zero updates, got %d", f.remote.updates)
	}
}

func TestSyncPropagatesRemoteDeletion(t *testing.T) {
	f := newFixture(t)
	at := f.clock.Now()
	local := devToolsRoot(t, at)
	var err error
	local, err = bookmark.AddBookmark(local, "Dev", "Tools", bookmark.NewBookmark("B", "https://b.com", at), at)
	if err != nil {
		t.Fatalf("add bookmark: %v", err)
	}
	f.clock.Advance(time.Minute)

	first, err := f.service.Sync(context.Background(), local)
	if err != nil {
		t.Fatalf("first sync: %v", err)
	}

	// Another device removed B.
	id, _ := f.repo.FindByFilename(context.Background(), DefaultFilename)
	snippet, _ := f.repo.Read(context.Background(), id)
	if _, err := f.repo.Update(context.Background(), interfaces.UpdateSnippetRequest{
		ID:              id,
		Content:         "# Dev\n\n## Tools\n\n- [A](https://a.com)\n\n",
		ExpectedVersion: snippet.Version,
	}); err != nil {
		t.Fatalf("remote edit: %v", err)
	}

	f.clock.Advance(time.Minute)
	result, err := f.service.Sync(context.Background(), first.Root)
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if result.Wrote {
		t.Fatal("deletion adoption should not need a write")
	}
	bundle := result.Root.Categories[0].Bundles[0]
	if len(bundle.Bookmarks) != 1 || bundle.Bookmarks[0].Title != "A" {
		t.Fatalf("expected remote deletion to propagate, got %+v", bundle.Bookmarks)
	}
}

func TestSyncDetectsConflictAndResolves(t *testing.T) {
	f := newFixture(t)
	local := devToolsRoot(t, f.clock.Now())
	f.clock.Advance(time.Minute)

	first, err := f.service.Sync(context.Background(), local)
	if err != nil {
		t.Fatalf("first sync: %v", err)
	}
	local = first.Root

	// Remote retitles A while we retitle it differently.
	id, _ := f.repo.FindByFilename(context.Background(), DefaultFilename)
	snippet, _ := f.repo.Read(context.Background(), id)
	if _, err := f.repo.Update(context.Background(), interfaces.UpdateSnippetRequest{
		ID:              id,
		Content:         "# Dev\n\n## Tools\n\n- [A remote](https://a.com)\n\n",
		ExpectedVersion: snippet.Version,
	}); err != nil {
		t.Fatalf("remote edit: %v", err)
	}

	editAt := f.clock.Advance(time.Minute)
	bmID := local.Categories[0].Bundles[0].Bookmarks[0].ID
	title := "A local"
	local, err = bookmark.UpdateBookmark(local, "Dev", "Tools", bmID, bookmark.BookmarkChange{Title: &title}, editAt)
	if err != nil {
		t.Fatalf("local edit: %v", err)
	}

	f.clock.Advance(time.Minute)
	f.remote.reset()
	result, err := f.service.Sync(context.Background(), local)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if len(result.Conflicts) != 1 {
		t.Fatalf("expected one conflict, got %d", len(result.Conflicts))
	}
	if result.Wrote || f.remote.updates != 0 {
		t.Fatal("conflicted sync must not write")
	}
	if state := f.service.State(); state != StateConflictPending {
		t.Fatalf("state = %q, want conflict-pending", state)
	}
	if got := f.service.Conflicts(); len(got) != 1 {
		t.Fatalf("expected pending conflicts exposed, got %d", len(got))
	}

	resolved, err := f.service.SyncWithConflictResolution(context.Background(), local, []merge.Resolution{
		{Path: result.Conflicts[0].Path, Pick: merge.PickLocal},
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !resolved.Wrote {
		t.Fatal("picking local should write the remote")
	}
	if got := remoteContent(t, f); got != "# Dev\n\n## Tools\n\n- [A local](https://a.com)\n\n" {
		t.Fatalf("remote content = %q", got)
	}
	if state := f.service.State(); state != StateIdle {
		t.Fatalf("state = %q, want idle", state)
	}
}

func TestSyncWithConflictResolutionRejectsUnresolved(t *testing.T) {
	f := newFixture(t)
	local := devToolsRoot(t, f.clock.Now())
	f.clock.Advance(time.Minute)
	first, err := f.service.Sync(context.Background(), local)
	if err != nil {
		t.Fatalf("first sync: %v", err)
	}
	local = first.Root

	id, _ := f.repo.FindByFilename(context.Background(), DefaultFilename)
	snippet, _ := f.repo.Read(context.Background(), id)
	if _, err := f.repo.Update(context.Background(), interfaces.UpdateSnippetRequest{
		ID:              id,
		Content:         "# Dev\n\n## Tools\n\n- [A remote](https://a.com)\n\n",
		ExpectedVersion: snippet.Version,
	}); err != nil {
		t.Fatalf("remote edit: %v", err)
	}
	editAt := f.clock.Advance(time.Minute)
	bmID := local.Categories[0].Bundles[0].Bookmarks[0].ID
	title := "A local"
	local, err = bookmark.UpdateBookmark(local, "Dev", "Tools", bmID, bookmark.BookmarkChange{Title: &title}, editAt)
	if err != nil {
		t.Fatalf("local edit: %v", err)
	}

	_, err = f.service.SyncWithConflictResolution(context.Background(), local, []merge.Resolution{
		{Path: "Dev/Tools/other", Pick: merge.PickLocal},
	})
	var unresolved *merge.UnresolvedConflictsError
	if !errors.As(err, &unresolved) {
		t.Fatalf("expected UnresolvedConflictsError, got %v", err)
	}
}

func TestSyncBeforeOperationDoesNotWrite(t *testing.T) {
	f := newFixture(t)
	local := devToolsRoot(t, f.clock.Now())
	f.clock.Advance(time.Minute)
	first, err := f.service.Sync(context.Background(), local)
	if err != nil {
		t.Fatalf("first sync: %v", err)
	}
	local = first.Root

	addAt := f.clock.Advance(time.Minute)
	local, err = bookmark.AddBookmark(local, "Dev", "Tools", bookmark.NewBookmark("B", "https://b.com", addAt), addAt)
	if err != nil {
		t.Fatalf("add bookmark: %v", err)
	}

	f.remote.reset()
	result, err := f.service.SyncBeforeOperation(context.Background(), local)
	if err != nil {
		t.Fatalf("pre-sync: %v", err)
	}
	if result.Wrote || f.remote.updates != 0 || f.remote.creates != 0 {
		t.Fatal("pre-operation sync must not write")
	}
	if got := len(result.Root.Categories[0].Bundles[0].Bookmarks); got != 2 {
		t.Fatalf("expected local addition kept, got %d bookmarks", got)
	}
}

func TestSyncBeforeOperationWithoutRemoteDocument(t *testing.T) {
	f := newFixture(t)
	local := devToolsRoot(t, f.clock.Now())

	result, err := f.service.SyncBeforeOperation(context.Background(), local)
	if err != nil {
		t.Fatalf("pre-sync: %v", err)
	}
	if result.Wrote || f.remote.creates != 0 {
		t.Fatal("pre-operation sync must not create the remote document")
	}
	if result.Root != local {
		t.Fatal("expected local tree returned unchanged")
	}
}

func TestSyncBatchCostsOneReadOneWrite(t *testing.T) {
	for _, n := range []int{0, 1, 3, 10} {
		f := newFixture(t)
		local := devToolsRoot(t, f.clock.Now())
		f.clock.Advance(time.Minute)
		first, err := f.service.Sync(context.Background(), local)
		if err != nil {
			t.Fatalf("n=%d first sync: %v", n, err)
		}
		local = first.Root

		editAt := f.clock.Advance(time.Minute)
		for i := 0; i < n; i++ {
			bm := bookmark.NewBookmark(
				"Extra "+string(rune('A'+i)),
				"https://extra.example/"+string(rune('a'+i)),
				editAt,
			)
			local, err = bookmark.AddBookmark(local, "Dev", "Tools", bm, editAt)
			if err != nil {
				t.Fatalf("n=%d add bookmark: %v", n, err)
			}
		}

		f.remote.reset()
		f.clock.Advance(time.Minute)
		result, err := f.service.Sync(context.Background(), local)
		if err != nil {
			t.Fatalf("n=%d sync: %v", n, err)
		}
		if f.remote.reads != 1 {
			t.Fatalf("n=%d expected one read, got %d", n, f.remote.reads)
		}
		wantWrites := 0
		if n > 0 {
			wantWrites = 1
		}
		if f.remote.updates != wantWrites {
			t.Fatalf("n=%d expected %d writes, got %d", n, wantWrites, f.remote.updates)
		}
		if result.Wrote != (n > 0) {
			t.Fatalf("n=%d wrote=%v", n, result.Wrote)
		}
	}
}

func TestSyncSurfacesVersionMismatch(t *testing.T) {
	f := newFixture(t)
	local := devToolsRoot(t, f.clock.Now())
	f.clock.Advance(time.Minute)
	first, err := f.service.Sync(context.Background(), local)
	if err != nil {
		t.Fatalf("first sync: %v", err)
	}
	local = first.Root

	editAt := f.clock.Advance(time.Minute)
	local, err = bookmark.AddBookmark(local, "Dev", "Tools", bookmark.NewBookmark("B", "https://b.com", editAt), editAt)
	if err != nil {
		t.Fatalf("add bookmark: %v", err)
	}

	// A racing writer lands between our read and our write.
	f.remote.afterRead = func() {
		f.remote.afterRead = nil
		id, _ := f.repo.FindByFilename(context.Background(), DefaultFilename)
		snippet, _ := f.repo.Read(context.Background(), id)
		_, _ = f.repo.Update(context.Background(), interfaces.UpdateSnippetRequest{
			ID:              id,
			Content:         snippet.Content + "# Racing\n\n",
			ExpectedVersion: snippet.Version,
		})
	}

	f.clock.Advance(time.Minute)
	_, err = f.service.Sync(context.Background(), local)
	if !errors.Is(err, interfaces.ErrVersionMismatch) {
		t.Fatalf("expected version mismatch, got %v", err)
	}
	if state := f.service.State(); state != StateError {
		t.Fatalf("state = %q, want error", state)
	}
}

func TestSyncRespectsCreationLock(t *testing.T) {
	f := newFixture(t)
	record := `{"owner":"some-other-process","expires_at":"` +
		f.clock.Now().Add(20*time.Second).Format(time.RFC3339Nano) + `"}`
	if err := f.store.Set(context.Background(), creationLock+DefaultFilename, record); err != nil {
		t.Fatalf("seed lock: %v", err)
	}

	local := devToolsRoot(t, f.clock.Now())
	_, err := f.service.Sync(context.Background(), local)
	if !errors.Is(err, interfaces.ErrLockHeld) {
		t.Fatalf("expected ErrLockHeld, got %v", err)
	}
	var held *interfaces.LockHeldError
	if !errors.As(err, &held) || held.Owner != "some-other-process" {
		t.Fatalf("expected lock holder surfaced, got %v", err)
	}
}

func TestSyncTakesOverExpiredCreationLock(t *testing.T) {
	f := newFixture(t)
	record := `{"owner":"some-other-process","expires_at":"` +
		f.clock.Now().Add(-time.Second).Format(time.RFC3339Nano) + `"}`
	if err := f.store.Set(context.Background(), creationLock+DefaultFilename, record); err != nil {
		t.Fatalf("seed lock: %v", err)
	}

	local := devToolsRoot(t, f.clock.Now())
	f.clock.Advance(time.Minute)
	result, err := f.service.Sync(context.Background(), local)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if !result.Created {
		t.Fatal("expected creation after lock expiry")
	}
	if _, err := f.store.Get(context.Background(), creationLock+DefaultFilename); !errors.Is(err, interfaces.ErrKeyNotFound) {
		t.Fatalf("expected lock released, got %v", err)
	}
}

func TestLoadReturnsRemoteTree(t *testing.T) {
	f := newFixture(t)
	if _, err := f.repo.Create(context.Background(), interfaces.CreateSnippetRequest{
		Filename: DefaultFilename,
		Content:  "# Dev\n\n## Tools\n\n- [A](https://a.com)\n  - tags: go, tools\n\n",
	}); err != nil {
		t.Fatalf("seed remote: %v", err)
	}

	f.clock.Advance(time.Minute)
	root, err := f.service.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	bm := root.Categories[0].Bundles[0].Bookmarks[0]
	if bm.Title != "A" || len(bm.Tags) != 2 {
		t.Fatalf("unexpected tree: %+v", bm)
	}

	marker, err := f.store.Get(context.Background(), lastSyncedKey+f.service.cached)
	if err != nil || marker == "" {
		t.Fatalf("expected lastSynced marker, got %q err=%v", marker, err)
	}
}

func TestLoadMissingDocument(t *testing.T) {
	f := newFixture(t)
	if _, err := f.service.Load(context.Background()); !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestRestoreSnapshotRoundTrip(t *testing.T) {
	f := newFixture(t)
	local := devToolsRoot(t, f.clock.Now())
	f.clock.Advance(time.Minute)
	first, err := f.service.Sync(context.Background(), local)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}

	restored, err := f.service.RestoreSnapshot(context.Background())
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if !bookmark.Equivalent(restored, first.Root) {
		t.Fatal("restored snapshot should match the synced tree")
	}
}

func TestRestoreSnapshotWithoutHistory(t *testing.T) {
	f := newFixture(t)
	if _, err := f.service.RestoreSnapshot(context.Background()); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot, got %v", err)
	}
}

func TestSaveOverwritesRemote(t *testing.T) {
	f := newFixture(t)
	local := devToolsRoot(t, f.clock.Now())
	f.clock.Advance(time.Minute)
	if _, err := f.service.Sync(context.Background(), local); err != nil {
		t.Fatalf("sync: %v", err)
	}

	editAt := f.clock.Advance(time.Minute)
	local, err := bookmark.RenameCategory(local, "Dev", "Engineering", editAt)
	if err != nil {
		t.Fatalf("rename: %v", err)
	}

	result, err := f.service.Save(context.Background(), local)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !result.Wrote {
		t.Fatal("expected save to write")
	}
	if got := remoteContent(t, f); got != "# Engineering\n\n## Tools\n\n- [A](https://a.com)\n\n" {
		t.Fatalf("remote content = %q", got)
	}
}

func TestSyncDisabledAutoCreateFailsOnMissingDocument(t *testing.T) {
	clock := newFakeClock()
	repo := remote.NewMemoryRepository().WithClock(clock.Now)
	counting := &countingRemote{inner: repo}
	service, err := New(Options{
		Remote:            counting,
		Store:             localstore.NewMemoryStore(),
		DisableAutoCreate: true,
		Clock:             clock.Now,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	local := devToolsRoot(t, clock.Now())
	_, err = service.Sync(context.Background(), local)
	if !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if counting.creates != 0 {
		t.Fatalf("creates = %d, want 0", counting.creates)
	}
	if got := service.State(); got != StateError {
		t.Fatalf("state = %q, want %q", got, StateError)
	}
}

func TestSyncLocalEditAfterSyncDoesNotConflict(t *testing.T) {
	f := newFixture(t)
	local := devToolsRoot(t, f.clock.Now())
	f.clock.Advance(time.Minute)

	first, err := f.service.Sync(context.Background(), local)
	if err != nil {
		t.Fatalf("initial sync: %v", err)
	}
	local = first.Root

	editAt := f.clock.Advance(10 * time.Minute)
	id := local.Categories[0].Bundles[0].Bookmarks[0].ID
	title := "A renamed"
	local, err = bookmark.UpdateBookmark(local, "Dev", "Tools", id, bookmark.BookmarkChange{Title: &title}, editAt)
	if err != nil {
		t.Fatalf("update bookmark: %v", err)
	}

	// The remote is still the tree the first sync wrote, so the rename
	// is a one-sided edit and must merge cleanly.
	result, err := f.service.Sync(context.Background(), local)
	if err != nil {
		t.Fatalf("sync after edit: %v", err)
	}
	if len(result.Conflicts) > 0 {
		t.Fatalf("one-sided local edit conflicted: %+v", result.Conflicts)
	}
	if !result.Wrote {
		t.Fatal("expected the rename to be written")
	}
	if got, want := remoteContent(t, f), "# Dev\n\n## Tools\n\n- [A renamed](https://a.com)\n\n"; got != want {
		t.Fatalf("remote content = %q, want %q", got, want)
	}
	if state := f.service.State(); state != StateIdle {
		t.Fatalf("state = %q, want idle", state)
	}
}
