package markdown_test

import (
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-bookmarks/internal/bookmark"
	"github.com/goliatone/go-bookmarks/internal/markdown"
)

func exampleRoot(t *testing.T) *bookmark.Root {
	t.Helper()
	now := time.Unix(1700000000, 0)
	root := bookmark.NewRoot(now)
	root, err := bookmark.AddCategory(root, "Dev", now)
	if err != nil {
		t.Fatalf("add category: %v", err)
	}
	root, err = bookmark.AddBundle(root, "Dev", "Tools", now)
	if err != nil {
		t.Fatalf("add bundle: %v", err)
	}
	root, err = bookmark.AddBookmark(root, "Dev", "Tools", bookmark.NewBookmark("A", "https://a.com", now), now)
	if err != nil {
		t.Fatalf("add bookmark: %v", err)
	}
	return root
}

func TestGenerateMinimalDocument(t *testing.T) {
	text, err := markdown.Generate(exampleRoot(t))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	want := "# Dev\n\n## Tools\n\n- [A](https://a.com)\n\n"
	if text != want {
		t.Fatalf("expected %q got %q", want, text)
	}
}

func TestGenerateTagsAndNotes(t *testing.T) {
	now := time.Unix(1700000000, 0)
	root := exampleRoot(t)

	bm := bookmark.NewBookmark("Go", "https://go.dev", now)
	bm.Tags = []string{"go", "lang"}
	bm.Notes = "The Go programming language"
	root, err := bookmark.AddBookmark(root, "Dev", "Tools", bm, now)
	if err != nil {
		t.Fatalf("add bookmark: %v", err)
	}

	text, err := markdown.Generate(root)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	want := "# Dev\n\n## Tools\n\n- [A](https://a.com)\n\n" +
		"- [Go](https://go.dev)\n  - tags: go, lang\n  - notes: The Go programming language\n\n"
	if text != want {
		t.Fatalf("expected %q got %q", want, text)
	}
}

func TestGenerateSkipsTombstones(t *testing.T) {
	now := time.Unix(1700000000, 0)
	root := exampleRoot(t)
	root, err := bookmark.AddCategory(root, "Life", now)
	if err != nil {
		t.Fatalf("add category: %v", err)
	}
	root, err = bookmark.TombstoneCategory(root, "Life", now)
	if err != nil {
		t.Fatalf("tombstone: %v", err)
	}

	text, err := markdown.Generate(root)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	want := "# Dev\n\n## Tools\n\n- [A](https://a.com)\n\n"
	if text != want {
		t.Fatalf("tombstoned category leaked into document: %q", text)
	}
}

func TestGenerateEmptyRoot(t *testing.T) {
	now := time.Unix(1700000000, 0)
	text, err := markdown.Generate(bookmark.NewRoot(now))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != "" {
		t.Fatalf("expected empty document got %q", text)
	}
	if _, err := markdown.Generate(nil); err == nil {
		t.Fatalf("expected error for nil root")
	}
}

func TestGenerateFlattensNewlines(t *testing.T) {
	now := time.Unix(1700000000, 0)
	root := exampleRoot(t)
	bm := bookmark.NewBookmark("Multi\nline", "https://m.com", now)
	bm.Notes = "first\nsecond"
	root, err := bookmark.AddBookmark(root, "Dev", "Tools", bm, now)
	if err != nil {
		t.Fatalf("add bookmark: %v", err)
	}

	text, err := markdown.Generate(root)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if want := "- [Multi line](https://m.com)\n  - notes: first second\n"; !strings.Contains(text, want) {
		t.Fatalf("newlines not flattened: %q", text)
	}
}

func TestRoundTripPreservesStructure(t *testing.T) {
	now := time.Unix(1700000000, 0)
	root := exampleRoot(t)

	bm := bookmark.NewBookmark("Go", "https://go.dev", now)
	bm.Tags = []string{"go", "lang"}
	bm.Notes = "stdlib first"
	root, err := bookmark.AddBookmark(root, "Dev", "Tools", bm, now)
	if err != nil {
		t.Fatalf("add bookmark: %v", err)
	}
	root, err = bookmark.AddBundle(root, "Dev", "Reading", now)
	if err != nil {
		t.Fatalf("add bundle: %v", err)
	}
	root, err = bookmark.AddBookmark(root, "Dev", "Reading", bookmark.NewBookmark("Blog", "https://blog.example.com", now), now)
	if err != nil {
		t.Fatalf("add bookmark: %v", err)
	}

	text, err := markdown.Generate(root)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	parsed, err := markdown.ParseAt(text, now)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if !bookmark.Equivalent(root, parsed) {
		regen, _ := markdown.Generate(parsed)
		t.Fatalf("round trip changed the tree:\n--- original ---\n%s\n--- reparsed ---\n%s", text, regen)
	}
}

func TestRoundTripFixtureIsStable(t *testing.T) {
	text := readFixture(t, "collection.md")
	root, err := markdown.Parse(text)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	regen, err := markdown.Generate(root)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if regen != text {
		t.Fatalf("fixture did not survive a round trip:\n%s", regen)
	}
}
