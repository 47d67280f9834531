// Package netscape imports browser bookmark exports in the
// NETSCAPE-Bookmark-file-1 HTML format. Top-level folders become
// categories, second-level folders become bundles; deeper nesting
// flattens into the enclosing bundle. Anchors outside any folder land
// in an "Imported" category.
package netscape

import (
	"errors"
	"io"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/goliatone/go-bookmarks/internal/bookmark"
)

// ErrNotBookmarkFile is returned when the input carries no bookmark
// anchors or folders at all.
var ErrNotBookmarkFile = errors.New("netscape: not a bookmark export")

const (
	fallbackCategory = "Imported"
	fallbackBundle   = "General"
)

// Result accounts for what an import produced.
type Result struct {
	Categories int
	Bundles    int
	Bookmarks  int
	Skipped    int
}

type entry struct {
	folders []string
	title   string
	url     string
	tags    []string
	notes   string
}

// Parse reads a bookmark export and builds a collection tree. Duplicate
// URLs within the same bundle are skipped and counted.
func Parse(r io.Reader, now time.Time) (*bookmark.Root, Result, error) {
	entries, err := scan(r)
	if err != nil {
		return nil, Result{}, err
	}
	if len(entries) == 0 {
		return nil, Result{}, ErrNotBookmarkFile
	}
	return assemble(entries, now)
}

// scan tokenizes the export. The format is near-HTML with unclosed DT
// elements, so folder nesting is tracked off DL boundaries instead of
// the document tree.
func scan(r io.Reader) ([]entry, error) {
	tokenizer := html.NewTokenizer(r)

	var (
		entries []entry
		stack   []string
		pending string
		capture *strings.Builder
		mode    atom.Atom
	)

	flushHeader := func() {
		if mode == atom.H3 && capture != nil {
			pending = strings.TrimSpace(capture.String())
		}
		capture = nil
		mode = 0
	}

	// DD elements are never closed in browser exports; their text runs
	// until the next tag boundary.
	commitNotes := func() {
		if mode == atom.Dd && capture != nil && len(entries) > 0 {
			entries[len(entries)-1].notes = strings.TrimSpace(capture.String())
			capture = nil
			mode = 0
		}
	}

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			if err := tokenizer.Err(); err != io.EOF {
				return nil, err
			}
			commitNotes()
			return entries, nil

		case html.StartTagToken:
			token := tokenizer.Token()
			commitNotes()
			switch token.DataAtom {
			case atom.H3:
				capture = &strings.Builder{}
				mode = atom.H3
			case atom.Dl:
				flushHeader()
				name := pending
				if name == "" {
					name = fallbackCategory
				}
				stack = append(stack, name)
				pending = ""
			case atom.A:
				capture = &strings.Builder{}
				mode = atom.A
				entries = append(entries, entry{
					folders: folderPath(stack),
					url:     attr(token, "href"),
					tags:    splitTags(attr(token, "tags")),
				})
			case atom.Dd:
				capture = &strings.Builder{}
				mode = atom.Dd
			}

		case html.TextToken:
			if capture != nil {
				capture.Write(tokenizer.Text())
			}

		case html.EndTagToken:
			token := tokenizer.Token()
			switch token.DataAtom {
			case atom.H3:
				flushHeader()
			case atom.A:
				if mode == atom.A && capture != nil && len(entries) > 0 {
					entries[len(entries)-1].title = strings.TrimSpace(capture.String())
				}
				capture = nil
				mode = 0
			case atom.Dd:
				commitNotes()
			case atom.Dl:
				commitNotes()
				if len(stack) > 0 {
					stack = stack[:len(stack)-1]
				}
			}
		}
	}
}

// folderPath drops the outermost DL, which wraps the whole document and
// names no folder.
func folderPath(stack []string) []string {
	if len(stack) <= 1 {
		return nil
	}
	out := make([]string, len(stack)-1)
	copy(out, stack[1:])
	return out
}

func assemble(entries []entry, now time.Time) (*bookmark.Root, Result, error) {
	root := bookmark.NewRoot(now)
	result := Result{}
	seen := map[string]bool{}

	for _, e := range entries {
		if e.url == "" {
			result.Skipped++
			continue
		}
		category := fallbackCategory
		bundle := fallbackBundle
		if len(e.folders) > 0 {
			category = e.folders[0]
		}
		if len(e.folders) > 1 {
			bundle = e.folders[1]
		}

		if _, ok := bookmark.FindCategory(root, category); !ok {
			next, err := bookmark.AddCategory(root, category, now)
			if err != nil {
				return nil, Result{}, err
			}
			root = next
			result.Categories++
		}
		if _, ok := bookmark.FindBundle(root, category, bundle); !ok {
			next, err := bookmark.AddBundle(root, category, bundle, now)
			if err != nil {
				return nil, Result{}, err
			}
			root = next
			result.Bundles++
		}

		dedup := category + "\x00" + bundle + "\x00" + e.url
		if seen[dedup] {
			result.Skipped++
			continue
		}
		seen[dedup] = true

		title := e.title
		if title == "" {
			title = e.url
		}
		bm := bookmark.NewBookmark(title, e.url, now)
		bm.Tags = e.tags
		bm.Notes = e.notes
		next, err := bookmark.AddBookmark(root, category, bundle, bm, now)
		if err != nil {
			return nil, Result{}, err
		}
		root = next
		result.Bookmarks++
	}
	return root, result, nil
}

func attr(token html.Token, name string) string {
	for _, a := range token.Attr {
		if strings.EqualFold(a.Key, name) {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	var tags []string
	for _, part := range strings.Split(raw, ",") {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
