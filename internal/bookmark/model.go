// Package bookmark defines the collection tree (Root, Category, Bundle,
// Bookmark) and the operations that edit it. Values are treated as
// immutable: every operation returns a fresh tree and leaves its input
// untouched.
package bookmark

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// CurrentVersion is the collection schema version stamped on every Root.
const CurrentVersion = 1

// Metadata carries the per-node sync bookkeeping. LastSynced is local
// state and never travels to the remote document or the snapshot.
type Metadata struct {
	LastModified *time.Time `json:"lastModified,omitempty"`
	LastSynced   *time.Time `json:"-"`
	IsDeleted    bool       `json:"isDeleted,omitempty"`
}

// Bookmark is a single saved link. The ID is assigned once and survives
// edits and moves; it is never encoded in the document format.
type Bookmark struct {
	ID       uuid.UUID `json:"id"`
	Title    string    `json:"title"`
	URL      string    `json:"url"`
	Tags     []string  `json:"tags,omitempty"`
	Notes    string    `json:"notes,omitempty"`
	Metadata Metadata  `json:"metadata"`
}

// Bundle groups bookmarks under a category. Names are unique within the
// owning category; bookmark order is insertion order.
type Bundle struct {
	Name      string     `json:"name"`
	Bookmarks []Bookmark `json:"bookmarks,omitempty"`
	Metadata  Metadata   `json:"metadata"`
}

// Category is a top-level grouping. Names are unique within the root.
type Category struct {
	Name     string   `json:"name"`
	Bundles  []Bundle `json:"bundles,omitempty"`
	Metadata Metadata `json:"metadata"`
}

// Root is the whole collection.
type Root struct {
	Version    int        `json:"version"`
	Categories []Category `json:"categories,omitempty"`
	Metadata   Metadata   `json:"metadata"`
}

// NewRoot returns an empty collection stamped at now.
func NewRoot(now time.Time) *Root {
	ts := now
	return &Root{
		Version:  CurrentVersion,
		Metadata: Metadata{LastModified: &ts},
	}
}

// NewBookmark builds a bookmark with a fresh creation-time id.
func NewBookmark(title, url string, now time.Time) Bookmark {
	ts := now
	return Bookmark{
		ID:       uuid.New(),
		Title:    strings.TrimSpace(title),
		URL:      strings.TrimSpace(url),
		Metadata: Metadata{LastModified: &ts},
	}
}

// NormalizeName is the canonical form used for sibling matching and
// uniqueness checks: NFC-normalized, surrounding whitespace removed.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// Clone deep-copies the tree.
func (r *Root) Clone() *Root {
	if r == nil {
		return nil
	}
	out := &Root{
		Version:  r.Version,
		Metadata: cloneMetadata(r.Metadata),
	}
	if len(r.Categories) > 0 {
		out.Categories = make([]Category, len(r.Categories))
		for i := range r.Categories {
			out.Categories[i] = cloneCategory(r.Categories[i])
		}
	}
	return out
}

func cloneCategory(c Category) Category {
	out := Category{
		Name:     c.Name,
		Metadata: cloneMetadata(c.Metadata),
	}
	if len(c.Bundles) > 0 {
		out.Bundles = make([]Bundle, len(c.Bundles))
		for i := range c.Bundles {
			out.Bundles[i] = cloneBundle(c.Bundles[i])
		}
	}
	return out
}

func cloneBundle(b Bundle) Bundle {
	out := Bundle{
		Name:     b.Name,
		Metadata: cloneMetadata(b.Metadata),
	}
	if len(b.Bookmarks) > 0 {
		out.Bookmarks = make([]Bookmark, len(b.Bookmarks))
		for i := range b.Bookmarks {
			out.Bookmarks[i] = cloneBookmark(b.Bookmarks[i])
		}
	}
	return out
}

func cloneBookmark(bm Bookmark) Bookmark {
	out := bm
	out.Metadata = cloneMetadata(bm.Metadata)
	if len(bm.Tags) > 0 {
		out.Tags = append([]string(nil), bm.Tags...)
	}
	return out
}

func cloneMetadata(m Metadata) Metadata {
	out := Metadata{IsDeleted: m.IsDeleted}
	if m.LastModified != nil {
		ts := *m.LastModified
		out.LastModified = &ts
	}
	if m.LastSynced != nil {
		ts := *m.LastSynced
		out.LastSynced = &ts
	}
	return out
}

// Equivalent reports structural equality of the live portion of two
// trees, ignoring ids and metadata: same categories, bundles and
// bookmarks with the same names, titles, urls, tags and notes in the
// same order.
func Equivalent(a, b *Root) bool {
	la, lb := liveCategories(a), liveCategories(b)
	if len(la) != len(lb) {
		return false
	}
	for i := range la {
		if !equivalentCategory(la[i], lb[i]) {
			return false
		}
	}
	return true
}

func equivalentCategory(a, b Category) bool {
	if NormalizeName(a.Name) != NormalizeName(b.Name) {
		return false
	}
	la, lb := liveBundles(a), liveBundles(b)
	if len(la) != len(lb) {
		return false
	}
	for i := range la {
		if !equivalentBundle(la[i], lb[i]) {
			return false
		}
	}
	return true
}

func equivalentBundle(a, b Bundle) bool {
	if NormalizeName(a.Name) != NormalizeName(b.Name) {
		return false
	}
	la, lb := liveBookmarks(a), liveBookmarks(b)
	if len(la) != len(lb) {
		return false
	}
	for i := range la {
		if !EquivalentBookmark(la[i], lb[i]) {
			return false
		}
	}
	return true
}

// EquivalentBookmark compares two bookmarks ignoring id and metadata.
func EquivalentBookmark(a, b Bookmark) bool {
	if a.Title != b.Title || a.URL != b.URL || a.Notes != b.Notes {
		return false
	}
	if len(a.Tags) != len(b.Tags) {
		return false
	}
	for i := range a.Tags {
		if a.Tags[i] != b.Tags[i] {
			return false
		}
	}
	return true
}

func liveCategories(r *Root) []Category {
	if r == nil {
		return nil
	}
	var out []Category
	for _, c := range r.Categories {
		if !c.Metadata.IsDeleted {
			out = append(out, c)
		}
	}
	return out
}

func liveBundles(c Category) []Bundle {
	var out []Bundle
	for _, b := range c.Bundles {
		if !b.Metadata.IsDeleted {
			out = append(out, b)
		}
	}
	return out
}

func liveBookmarks(b Bundle) []Bookmark {
	var out []Bookmark
	for _, bm := range b.Bookmarks {
		if !bm.Metadata.IsDeleted {
			out = append(out, bm)
		}
	}
	return out
}

// FindCategory returns a copy of the named live category.
func FindCategory(root *Root, name string) (Category, bool) {
	if root == nil {
		return Category{}, false
	}
	want := NormalizeName(name)
	for i := range root.Categories {
		c := &root.Categories[i]
		if !c.Metadata.IsDeleted && NormalizeName(c.Name) == want {
			return cloneCategory(*c), true
		}
	}
	return Category{}, false
}

// FindBundle returns a copy of the named live bundle inside a category.
func FindBundle(root *Root, category, bundle string) (Bundle, bool) {
	cat, ok := FindCategory(root, category)
	if !ok {
		return Bundle{}, false
	}
	want := NormalizeName(bundle)
	for i := range cat.Bundles {
		b := &cat.Bundles[i]
		if !b.Metadata.IsDeleted && NormalizeName(b.Name) == want {
			return cloneBundle(*b), true
		}
	}
	return Bundle{}, false
}

// LocateBookmark finds a live bookmark by id anywhere in the tree and
// returns a copy along with its category and bundle names.
func LocateBookmark(root *Root, id uuid.UUID) (category, bundle string, bm Bookmark, ok bool) {
	if root == nil {
		return "", "", Bookmark{}, false
	}
	for ci := range root.Categories {
		c := &root.Categories[ci]
		if c.Metadata.IsDeleted {
			continue
		}
		for bi := range c.Bundles {
			b := &c.Bundles[bi]
			if b.Metadata.IsDeleted {
				continue
			}
			for mi := range b.Bookmarks {
				m := &b.Bookmarks[mi]
				if !m.Metadata.IsDeleted && m.ID == id {
					return c.Name, b.Name, cloneBookmark(*m), true
				}
			}
		}
	}
	return "", "", Bookmark{}, false
}

// TagCounts tallies tag usage across live bookmarks. Tags are folded
// case-insensitively, so "Go" and "go" count together.
func TagCounts(root *Root) map[string]int {
	counts := map[string]int{}
	if root == nil {
		return counts
	}
	for _, c := range liveCategories(root) {
		for _, b := range liveBundles(c) {
			for _, bm := range liveBookmarks(b) {
				for _, tag := range bm.Tags {
					key := strings.ToLower(strings.TrimSpace(tag))
					if key == "" {
						continue
					}
					counts[key]++
				}
			}
		}
	}
	return counts
}

// SortedTags returns the distinct folded tags in ascending order.
func SortedTags(root *Root) []string {
	counts := TagCounts(root)
	tags := make([]string, 0, len(counts))
	for tag := range counts {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// CountBookmarks counts live bookmarks across the tree.
func CountBookmarks(root *Root) int {
	total := 0
	if root == nil {
		return 0
	}
	for _, c := range liveCategories(root) {
		for _, b := range liveBundles(c) {
			total += len(liveBookmarks(b))
		}
	}
	return total
}
