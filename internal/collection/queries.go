package collection

import (
	"github.com/goliatone/go-bookmarks/internal/bookmark"
	"github.com/goliatone/go-bookmarks/internal/markdown"
	"github.com/google/uuid"
)

// Category returns a copy of the named category.
func (s *Service) Category(name string) (bookmark.Category, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.root == nil {
		return bookmark.Category{}, false, ErrNotOpened
	}
	cat, ok := bookmark.FindCategory(s.root, name)
	return cat, ok, nil
}

// Bundle returns a copy of the named bundle.
func (s *Service) Bundle(category, name string) (bookmark.Bundle, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.root == nil {
		return bookmark.Bundle{}, false, ErrNotOpened
	}
	bun, ok := bookmark.FindBundle(s.root, category, name)
	return bun, ok, nil
}

// FindBookmark locates a bookmark by id anywhere in the tree.
func (s *Service) FindBookmark(id uuid.UUID) (category, bundle string, bm bookmark.Bookmark, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.root == nil {
		return "", "", bookmark.Bookmark{}, false, ErrNotOpened
	}
	category, bundle, bm, ok = bookmark.LocateBookmark(s.root, id)
	return category, bundle, bm, ok, nil
}

// TagCounts returns case-folded tag usage counts across live bookmarks.
func (s *Service) TagCounts() (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.root == nil {
		return nil, ErrNotOpened
	}
	return bookmark.TagCounts(s.root), nil
}

// Tags returns the sorted set of tags in use.
func (s *Service) Tags() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.root == nil {
		return nil, ErrNotOpened
	}
	return bookmark.SortedTags(s.root), nil
}

// Count returns the number of live bookmarks.
func (s *Service) Count() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.root == nil {
		return 0, ErrNotOpened
	}
	return bookmark.CountBookmarks(s.root), nil
}

// Export renders the current tree to the document format without
// touching the remote.
func (s *Service) Export() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.root == nil {
		return "", ErrNotOpened
	}
	return markdown.Generate(s.root)
}
