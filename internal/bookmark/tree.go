package bookmark

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrRootRequired     = errors.New("bookmark: root is required")
	ErrNameRequired     = errors.New("bookmark: name is required")
	ErrTitleRequired    = errors.New("bookmark: title is required")
	ErrURLRequired      = errors.New("bookmark: url is required")
	ErrCategoryNotFound = errors.New("bookmark: category not found")
	ErrBundleNotFound   = errors.New("bookmark: bundle not found")
	ErrBookmarkNotFound = errors.New("bookmark: bookmark not found")
	ErrDuplicateName    = errors.New("bookmark: duplicate name")
)

// DuplicateNameError reports a sibling-name collision. Kind is
// "category" or "bundle"; Scope names the parent ("" for the root).
type DuplicateNameError struct {
	Kind  string
	Name  string
	Scope string
}

func (e *DuplicateNameError) Error() string {
	if e.Scope == "" {
		return fmt.Sprintf("bookmark: %s %q already exists", e.Kind, e.Name)
	}
	return fmt.Sprintf("bookmark: %s %q already exists in %q", e.Kind, e.Name, e.Scope)
}

func (e *DuplicateNameError) Unwrap() error { return ErrDuplicateName }

// BookmarkChange is a partial update; nil fields are left unchanged.
type BookmarkChange struct {
	Title *string
	URL   *string
	Tags  *[]string
	Notes *string
}

// AddCategory appends a category. Adding over a live sibling of the
// same normalized name fails; adding over a tombstoned sibling replaces
// the tombstone in place, superseding the pending deletion.
func AddCategory(root *Root, name string, now time.Time) (*Root, error) {
	if root == nil {
		return nil, ErrRootRequired
	}
	want := NormalizeName(name)
	if want == "" {
		return nil, ErrNameRequired
	}
	out := root.Clone()
	ts := now
	fresh := Category{Name: want, Metadata: Metadata{LastModified: &ts}}
	for i := range out.Categories {
		c := &out.Categories[i]
		if NormalizeName(c.Name) != want {
			continue
		}
		if !c.Metadata.IsDeleted {
			return nil, &DuplicateNameError{Kind: "category", Name: want}
		}
		out.Categories[i] = fresh
		touch(&out.Metadata, now)
		return out, nil
	}
	out.Categories = append(out.Categories, fresh)
	touch(&out.Metadata, now)
	return out, nil
}

// RenameCategory renames a live category, keeping its position and
// contents.
func RenameCategory(root *Root, name, newName string, now time.Time) (*Root, error) {
	if root == nil {
		return nil, ErrRootRequired
	}
	next := NormalizeName(newName)
	if next == "" {
		return nil, ErrNameRequired
	}
	out := root.Clone()
	idx := indexOfCategory(out, name)
	if idx < 0 {
		return nil, ErrCategoryNotFound
	}
	for i := range out.Categories {
		c := &out.Categories[i]
		if i != idx && !c.Metadata.IsDeleted && NormalizeName(c.Name) == next {
			return nil, &DuplicateNameError{Kind: "category", Name: next}
		}
	}
	out.Categories[idx].Name = next
	touch(&out.Categories[idx].Metadata, now)
	touch(&out.Metadata, now)
	return out, nil
}

// RemoveCategory hard-deletes a category immediately. Use
// TombstoneCategory when the collection is being synchronized.
func RemoveCategory(root *Root, name string, now time.Time) (*Root, error) {
	if root == nil {
		return nil, ErrRootRequired
	}
	out := root.Clone()
	idx := indexOfCategory(out, name)
	if idx < 0 {
		return nil, ErrCategoryNotFound
	}
	out.Categories = append(out.Categories[:idx], out.Categories[idx+1:]...)
	touch(&out.Metadata, now)
	return out, nil
}

// TombstoneCategory soft-deletes a category. The node stays in the tree,
// excluded from traversal and generation, until the deletion reaches the
// remote document.
func TombstoneCategory(root *Root, name string, now time.Time) (*Root, error) {
	if root == nil {
		return nil, ErrRootRequired
	}
	out := root.Clone()
	idx := indexOfCategory(out, name)
	if idx < 0 {
		return nil, ErrCategoryNotFound
	}
	out.Categories[idx].Metadata.IsDeleted = true
	touch(&out.Categories[idx].Metadata, now)
	touch(&out.Metadata, now)
	return out, nil
}

// AddBundle appends a bundle to a live category, with the same
// tombstone-replacement behavior as AddCategory.
func AddBundle(root *Root, category, name string, now time.Time) (*Root, error) {
	if root == nil {
		return nil, ErrRootRequired
	}
	want := NormalizeName(name)
	if want == "" {
		return nil, ErrNameRequired
	}
	out := root.Clone()
	ci := indexOfCategory(out, category)
	if ci < 0 {
		return nil, ErrCategoryNotFound
	}
	cat := &out.Categories[ci]
	ts := now
	fresh := Bundle{Name: want, Metadata: Metadata{LastModified: &ts}}
	for i := range cat.Bundles {
		b := &cat.Bundles[i]
		if NormalizeName(b.Name) != want {
			continue
		}
		if !b.Metadata.IsDeleted {
			return nil, &DuplicateNameError{Kind: "bundle", Name: want, Scope: cat.Name}
		}
		cat.Bundles[i] = fresh
		touch(&cat.Metadata, now)
		touch(&out.Metadata, now)
		return out, nil
	}
	cat.Bundles = append(cat.Bundles, fresh)
	touch(&cat.Metadata, now)
	touch(&out.Metadata, now)
	return out, nil
}

// RenameBundle renames a live bundle within its category.
func RenameBundle(root *Root, category, name, newName string, now time.Time) (*Root, error) {
	if root == nil {
		return nil, ErrRootRequired
	}
	next := NormalizeName(newName)
	if next == "" {
		return nil, ErrNameRequired
	}
	out := root.Clone()
	ci := indexOfCategory(out, category)
	if ci < 0 {
		return nil, ErrCategoryNotFound
	}
	cat := &out.Categories[ci]
	bi := indexOfBundle(cat, name)
	if bi < 0 {
		return nil, ErrBundleNotFound
	}
	for i := range cat.Bundles {
		b := &cat.Bundles[i]
		if i != bi && !b.Metadata.IsDeleted && NormalizeName(b.Name) == next {
			return nil, &DuplicateNameError{Kind: "bundle", Name: next, Scope: cat.Name}
		}
	}
	cat.Bundles[bi].Name = next
	touch(&cat.Bundles[bi].Metadata, now)
	touch(&cat.Metadata, now)
	touch(&out.Metadata, now)
	return out, nil
}

// RemoveBundle hard-deletes a bundle.
func RemoveBundle(root *Root, category, name string, now time.Time) (*Root, error) {
	if root == nil {
		return nil, ErrRootRequired
	}
	out := root.Clone()
	ci := indexOfCategory(out, category)
	if ci < 0 {
		return nil, ErrCategoryNotFound
	}
	cat := &out.Categories[ci]
	bi := indexOfBundle(cat, name)
	if bi < 0 {
		return nil, ErrBundleNotFound
	}
	cat.Bundles = append(cat.Bundles[:bi], cat.Bundles[bi+1:]...)
	touch(&cat.Metadata, now)
	touch(&out.Metadata, now)
	return out, nil
}

// TombstoneBundle soft-deletes a bundle.
func TombstoneBundle(root *Root, category, name string, now time.Time) (*Root, error) {
	if root == nil {
		return nil, ErrRootRequired
	}
	out := root.Clone()
	ci := indexOfCategory(out, category)
	if ci < 0 {
		return nil, ErrCategoryNotFound
	}
	cat := &out.Categories[ci]
	bi := indexOfBundle(cat, name)
	if bi < 0 {
		return nil, ErrBundleNotFound
	}
	cat.Bundles[bi].Metadata.IsDeleted = true
	touch(&cat.Bundles[bi].Metadata, now)
	touch(&cat.Metadata, now)
	touch(&out.Metadata, now)
	return out, nil
}

// AddBookmark appends a bookmark to a live bundle. A zero id gets a
// fresh one; an absent timestamp is stamped at now.
func AddBookmark(root *Root, category, bundle string, bm Bookmark, now time.Time) (*Root, error) {
	if root == nil {
		return nil, ErrRootRequired
	}
	if bm.Title == "" {
		return nil, ErrTitleRequired
	}
	if bm.URL == "" {
		return nil, ErrURLRequired
	}
	out := root.Clone()
	ci := indexOfCategory(out, category)
	if ci < 0 {
		return nil, ErrCategoryNotFound
	}
	cat := &out.Categories[ci]
	bi := indexOfBundle(cat, bundle)
	if bi < 0 {
		return nil, ErrBundleNotFound
	}
	next := cloneBookmark(bm)
	if next.ID == uuid.Nil {
		next.ID = uuid.New()
	}
	if next.Metadata.LastModified == nil {
		ts := now
		next.Metadata.LastModified = &ts
	}
	bun := &cat.Bundles[bi]
	bun.Bookmarks = append(bun.Bookmarks, next)
	touch(&bun.Metadata, now)
	touch(&cat.Metadata, now)
	touch(&out.Metadata, now)
	return out, nil
}

// UpdateBookmark applies a partial change to a live bookmark.
func UpdateBookmark(root *Root, category, bundle string, id uuid.UUID, change BookmarkChange, now time.Time) (*Root, error) {
	if root == nil {
		return nil, ErrRootRequired
	}
	if change.Title != nil && *change.Title == "" {
		return nil, ErrTitleRequired
	}
	if change.URL != nil && *change.URL == "" {
		return nil, ErrURLRequired
	}
	out := root.Clone()
	ci := indexOfCategory(out, category)
	if ci < 0 {
		return nil, ErrCategoryNotFound
	}
	cat := &out.Categories[ci]
	bi := indexOfBundle(cat, bundle)
	if bi < 0 {
		return nil, ErrBundleNotFound
	}
	bun := &cat.Bundles[bi]
	mi := indexOfBookmark(bun, id)
	if mi < 0 {
		return nil, ErrBookmarkNotFound
	}
	bm := &bun.Bookmarks[mi]
	if change.Title != nil {
		bm.Title = *change.Title
	}
	if change.URL != nil {
		bm.URL = *change.URL
	}
	if change.Tags != nil {
		bm.Tags = append([]string(nil), (*change.Tags)...)
	}
	if change.Notes != nil {
		bm.Notes = *change.Notes
	}
	touch(&bm.Metadata, now)
	touch(&bun.Metadata, now)
	touch(&cat.Metadata, now)
	touch(&out.Metadata, now)
	return out, nil
}

// RemoveBookmark hard-deletes a bookmark.
func RemoveBookmark(root *Root, category, bundle string, id uuid.UUID, now time.Time) (*Root, error) {
	if root == nil {
		return nil, ErrRootRequired
	}
	out := root.Clone()
	ci := indexOfCategory(out, category)
	if ci < 0 {
		return nil, ErrCategoryNotFound
	}
	cat := &out.Categories[ci]
	bi := indexOfBundle(cat, bundle)
	if bi < 0 {
		return nil, ErrBundleNotFound
	}
	bun := &cat.Bundles[bi]
	mi := indexOfBookmark(bun, id)
	if mi < 0 {
		return nil, ErrBookmarkNotFound
	}
	bun.Bookmarks = append(bun.Bookmarks[:mi], bun.Bookmarks[mi+1:]...)
	touch(&bun.Metadata, now)
	touch(&cat.Metadata, now)
	touch(&out.Metadata, now)
	return out, nil
}

// TombstoneBookmark soft-deletes a bookmark.
func TombstoneBookmark(root *Root, category, bundle string, id uuid.UUID, now time.Time) (*Root, error) {
	if root == nil {
		return nil, ErrRootRequired
	}
	out := root.Clone()
	ci := indexOfCategory(out, category)
	if ci < 0 {
		return nil, ErrCategoryNotFound
	}
	cat := &out.Categories[ci]
	bi := indexOfBundle(cat, bundle)
	if bi < 0 {
		return nil, ErrBundleNotFound
	}
	bun := &cat.Bundles[bi]
	mi := indexOfBookmark(bun, id)
	if mi < 0 {
		return nil, ErrBookmarkNotFound
	}
	bun.Bookmarks[mi].Metadata.IsDeleted = true
	touch(&bun.Bookmarks[mi].Metadata, now)
	touch(&bun.Metadata, now)
	touch(&cat.Metadata, now)
	touch(&out.Metadata, now)
	return out, nil
}

// MoveBookmark relocates a bookmark to another live bundle, preserving
// its id. The source slot is hard-removed; a move is not a deletion.
func MoveBookmark(root *Root, category, bundle string, id uuid.UUID, toCategory, toBundle string, now time.Time) (*Root, error) {
	if root == nil {
		return nil, ErrRootRequired
	}
	out := root.Clone()
	ci := indexOfCategory(out, category)
	if ci < 0 {
		return nil, ErrCategoryNotFound
	}
	cat := &out.Categories[ci]
	bi := indexOfBundle(cat, bundle)
	if bi < 0 {
		return nil, ErrBundleNotFound
	}
	bun := &cat.Bundles[bi]
	mi := indexOfBookmark(bun, id)
	if mi < 0 {
		return nil, ErrBookmarkNotFound
	}
	tci := indexOfCategory(out, toCategory)
	if tci < 0 {
		return nil, ErrCategoryNotFound
	}
	tbi := indexOfBundle(&out.Categories[tci], toBundle)
	if tbi < 0 {
		return nil, ErrBundleNotFound
	}

	moved := cloneBookmark(bun.Bookmarks[mi])
	bun.Bookmarks = append(bun.Bookmarks[:mi], bun.Bookmarks[mi+1:]...)
	touch(&bun.Metadata, now)
	touch(&cat.Metadata, now)

	target := &out.Categories[tci].Bundles[tbi]
	touch(&moved.Metadata, now)
	target.Bookmarks = append(target.Bookmarks, moved)
	touch(&target.Metadata, now)
	touch(&out.Categories[tci].Metadata, now)
	touch(&out.Metadata, now)
	return out, nil
}

// PurgeTombstones drops every soft-deleted node. Called after a
// successful remote write, once deletions have propagated.
func PurgeTombstones(root *Root) *Root {
	out := root.Clone()
	if out == nil {
		return nil
	}
	cats := out.Categories[:0]
	for _, c := range out.Categories {
		if c.Metadata.IsDeleted {
			continue
		}
		bundles := c.Bundles[:0]
		for _, b := range c.Bundles {
			if b.Metadata.IsDeleted {
				continue
			}
			marks := b.Bookmarks[:0]
			for _, bm := range b.Bookmarks {
				if !bm.Metadata.IsDeleted {
					marks = append(marks, bm)
				}
			}
			b.Bookmarks = marks
			bundles = append(bundles, b)
		}
		c.Bundles = bundles
		cats = append(cats, c)
	}
	out.Categories = cats
	return out
}

func indexOfCategory(root *Root, name string) int {
	want := NormalizeName(name)
	for i := range root.Categories {
		c := &root.Categories[i]
		if !c.Metadata.IsDeleted && NormalizeName(c.Name) == want {
			return i
		}
	}
	return -1
}

func indexOfBundle(cat *Category, name string) int {
	want := NormalizeName(name)
	for i := range cat.Bundles {
		b := &cat.Bundles[i]
		if !b.Metadata.IsDeleted && NormalizeName(b.Name) == want {
			return i
		}
	}
	return -1
}

func indexOfBookmark(bun *Bundle, id uuid.UUID) int {
	for i := range bun.Bookmarks {
		bm := &bun.Bookmarks[i]
		if !bm.Metadata.IsDeleted && bm.ID == id {
			return i
		}
	}
	return -1
}

func touch(m *Metadata, now time.Time) {
	ts := now
	m.LastModified = &ts
}
