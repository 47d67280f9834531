// Package merge reconciles a locally edited collection tree against the
// tree parsed from the remote document. The snapshot persisted after the
// previous sync is the three-way merge base: a local node is "changed"
// when its LastModified is strictly newer than the lastSynced cutoff,
// and a remote node is "changed" when it differs from its base
// counterpart. Remote trees read through ParseRaw carry no timestamps,
// so without a base the only evidence of a remote edit is content
// difference.
package merge

import (
	"strings"
	"time"

	"github.com/goliatone/go-bookmarks/internal/bookmark"
)

// Strategy selects the conflict policy. Only timestamp precedence is
// implemented; the selector exists so callers declare intent explicitly.
type Strategy string

// StrategyTimestamp resolves edits by timestamp precedence against the
// lastSynced cutoff and records a conflict whenever both sides changed.
const StrategyTimestamp Strategy = "timestamp"

// Kind names the tree level a conflict occurred at.
type Kind string

const (
	KindCategory Kind = "category"
	KindBundle   Kind = "bundle"
	KindBookmark Kind = "bookmark"
)

// Side picks which version of a conflicted node wins.
type Side string

const (
	PickLocal  Side = "local"
	PickRemote Side = "remote"
)

// Conflict carries both versions of a node that changed on both sides
// since the last sync. A nil side means the node was deleted there.
type Conflict struct {
	Path   string
	Kind   Kind
	Local  *bookmark.Bookmark
	Remote *bookmark.Bookmark
}

// Resolution resolves one conflict by path.
type Resolution struct {
	Path string
	Pick Side
}

// Input bundles the merge operands. LastSynced may be nil on a first
// sync, in which case every local node counts as changed. Base is the
// tree both sides diverged from, normally the snapshot persisted after
// the previous sync; when present, a remote node counts as changed only
// when it differs from its base counterpart, so a one-sided local edit
// merges cleanly instead of conflicting.
type Input struct {
	Local      *bookmark.Root
	Remote     *bookmark.Root
	Base       *bookmark.Root
	LastSynced *time.Time
	Strategy   Strategy
}

// Result is the merge outcome. HasChanges is false only when the merged
// tree is equivalent (modulo ids and metadata) to the remote tree, i.e.
// no remote write is needed.
type Result struct {
	Merged       *bookmark.Root
	Conflicts    []Conflict
	HasConflicts bool
	HasChanges   bool
}

// Merge reconciles local against remote. Tombstoned local nodes stay in
// the merged tree so the sync shell can purge them once the write
// confirming their deletion succeeds; they are invisible to generation.
func Merge(in Input) (Result, error) {
	return mergeWith(in, nil)
}

// ResolveConflicts re-runs the merge applying explicit per-conflict
// picks. Conflicts without a matching resolution are returned inside an
// UnresolvedConflictsError.
func ResolveConflicts(in Input, resolutions []Resolution) (*bookmark.Root, error) {
	picks := make(map[string]Side, len(resolutions))
	for _, res := range resolutions {
		picks[res.Path] = res.Pick
	}
	result, err := mergeWith(in, picks)
	if err != nil {
		return nil, err
	}
	if result.HasConflicts {
		return nil, &UnresolvedConflictsError{Conflicts: result.Conflicts}
	}
	return result.Merged, nil
}

func mergeWith(in Input, picks map[string]Side) (Result, error) {
	if in.Strategy == "" {
		in.Strategy = StrategyTimestamp
	}
	if in.Strategy != StrategyTimestamp {
		return Result{}, ErrStrategyUnsupported
	}
	if in.Local == nil {
		return Result{}, ErrLocalRequired
	}
	remote := in.Remote
	if remote == nil {
		remote = &bookmark.Root{Version: bookmark.CurrentVersion}
	}

	m := &merger{
		cutoff:  in.LastSynced,
		picks:   picks,
		hasBase: in.Base != nil,
	}

	var baseCats []bookmark.Category
	if in.Base != nil {
		baseCats = in.Base.Categories
	}

	merged := &bookmark.Root{
		Version:  bookmark.CurrentVersion,
		Metadata: in.Local.Metadata,
	}
	merged.Categories = m.mergeCategories(in.Local.Categories, remote.Categories, baseCats)

	result := Result{
		Merged:       merged,
		Conflicts:    m.conflicts,
		HasConflicts: len(m.conflicts) > 0,
	}
	result.HasChanges = !bookmark.Equivalent(merged, remote)
	return result, nil
}

type merger struct {
	cutoff    *time.Time
	picks     map[string]Side
	hasBase   bool
	conflicts []Conflict
}

func (m *merger) mergeCategories(local, remote, base []bookmark.Category) []bookmark.Category {
	var out []bookmark.Category
	claimed := make([]bool, len(remote))

	for _, lc := range local {
		ri := indexByName(lc.Name, func(i int) string { return remote[i].Name }, len(remote), claimed)
		if lc.Metadata.IsDeleted {
			// Local deletion pending propagation: consume the remote
			// twin so it is not re-adopted, keep the tombstone.
			if ri >= 0 {
				claimed[ri] = true
			}
			out = append(out, lc)
			continue
		}
		if ri < 0 {
			// Absent remotely: a node touched after the cutoff was
			// added or edited here, anything older was deleted there.
			if bookmark.ModifiedSince(lc.Metadata, m.cutoff) {
				out = append(out, lc)
			}
			continue
		}
		claimed[ri] = true
		rc := remote[ri]
		mergedCat := bookmark.Category{
			Name:     lc.Name,
			Metadata: lc.Metadata,
		}
		mergedCat.Bundles = m.mergeBundles(lc.Name, lc.Bundles, rc.Bundles, baseBundles(base, lc.Name))
		out = append(out, mergedCat)
	}

	for i, rc := range remote {
		if !claimed[i] {
			out = append(out, rc)
		}
	}
	return out
}

func (m *merger) mergeBundles(categoryName string, local, remote, base []bookmark.Bundle) []bookmark.Bundle {
	var out []bookmark.Bundle
	claimed := make([]bool, len(remote))

	for _, lb := range local {
		ri := indexByName(lb.Name, func(i int) string { return remote[i].Name }, len(remote), claimed)
		if lb.Metadata.IsDeleted {
			if ri >= 0 {
				claimed[ri] = true
			}
			out = append(out, lb)
			continue
		}
		if ri < 0 {
			if bookmark.ModifiedSince(lb.Metadata, m.cutoff) {
				out = append(out, lb)
			}
			continue
		}
		claimed[ri] = true
		rb := remote[ri]
		mergedBun := bookmark.Bundle{
			Name:     lb.Name,
			Metadata: lb.Metadata,
		}
		mergedBun.Bookmarks = m.mergeBookmarks(categoryName, lb.Name, lb.Bookmarks, rb.Bookmarks, baseBookmarks(base, lb.Name))
		out = append(out, mergedBun)
	}

	for i, rb := range remote {
		if !claimed[i] {
			out = append(out, rb)
		}
	}
	return out
}

func (m *merger) mergeBookmarks(categoryName, bundleName string, local, remote, base []bookmark.Bookmark) []bookmark.Bookmark {
	claimed := make([]bool, len(remote))
	matches := matchBookmarks(local, remote)

	var out []bookmark.Bookmark
	for li, lm := range local {
		ri := matches[li]
		if lm.Metadata.IsDeleted {
			if ri >= 0 {
				claimed[ri] = true
			}
			out = append(out, lm)
			continue
		}
		if ri < 0 {
			if bookmark.ModifiedSince(lm.Metadata, m.cutoff) {
				out = append(out, lm)
			}
			continue
		}
		claimed[ri] = true
		out = append(out, m.mergeBookmarkPair(categoryName, bundleName, lm, remote[ri], base))
	}

	for i, rm := range remote {
		if !claimed[i] {
			out = append(out, rm)
		}
	}
	return out
}

func (m *merger) mergeBookmarkPair(categoryName, bundleName string, local, remote bookmark.Bookmark, base []bookmark.Bookmark) bookmark.Bookmark {
	if bookmark.EquivalentBookmark(local, remote) {
		return local
	}

	localChanged := bookmark.ModifiedSince(local.Metadata, m.cutoff)
	remoteChanged := m.remoteEdited(local, remote, base)

	path := JoinPath(categoryName, bundleName, local.Title)

	switch {
	case localChanged && !remoteChanged:
		return local
	case remoteChanged && !localChanged:
		return adoptRemote(local, remote)
	default:
		// Both sides changed, or neither did yet the content differs
		// (equal-timestamp clock edge). Never pick a side by fiat.
		if pick, ok := m.picks[path]; ok {
			if pick == PickRemote {
				return adoptRemote(local, remote)
			}
			return local
		}
		lc, rc := local, remote
		m.conflicts = append(m.conflicts, Conflict{
			Path:   path,
			Kind:   KindBookmark,
			Local:  &lc,
			Remote: &rc,
		})
		return local
	}
}

// remoteEdited reports whether the remote side of a matched pair
// diverged since the last sync. With a base the answer is exact: the
// remote changed only if it no longer matches its base counterpart.
// Without one, an absent timestamp has to count as changed.
func (m *merger) remoteEdited(local, remote bookmark.Bookmark, base []bookmark.Bookmark) bool {
	if !m.hasBase {
		return remote.Metadata.LastModified == nil ||
			bookmark.ModifiedSince(remote.Metadata, m.cutoff)
	}
	baseBm, ok := findBaseBookmark(local, remote, base)
	if !ok {
		// The pair has no ancestor: both sides introduced it.
		return true
	}
	return !bookmark.EquivalentBookmark(remote, baseBm)
}

// findBaseBookmark locates the common ancestor of a matched pair. The
// base snapshot carries local ids, so the id pass only sees the local
// side; url and title passes consider both sides because either may
// have changed the field the other still shares with the base.
func findBaseBookmark(local, remote bookmark.Bookmark, base []bookmark.Bookmark) (bookmark.Bookmark, bool) {
	for _, b := range base {
		if b.ID == local.ID {
			return b, true
		}
	}
	for _, b := range base {
		if b.URL != "" && (b.URL == local.URL || b.URL == remote.URL) {
			return b, true
		}
	}
	for _, b := range base {
		if b.Title != "" && (b.Title == local.Title || b.Title == remote.Title) {
			return b, true
		}
	}
	return bookmark.Bookmark{}, false
}

// adoptRemote takes the remote field values while keeping the local id,
// so the bookmark's identity survives the remote edit.
func adoptRemote(local, remote bookmark.Bookmark) bookmark.Bookmark {
	out := remote
	out.ID = local.ID
	return out
}

// matchBookmarks pairs local bookmarks with remote ones: by id first,
// then url, then title, and finally the remaining unmatched entries are
// aligned positionally in order. Positional alignment keeps a bookmark
// whose title changed on one side and url on the other recognizable as
// a single node instead of a delete plus an add.
func matchBookmarks(local, remote []bookmark.Bookmark) []int {
	matches := make([]int, len(local))
	for i := range matches {
		matches[i] = -1
	}
	taken := make([]bool, len(remote))

	pass := func(match func(l, r bookmark.Bookmark) bool) {
		for li := range local {
			if matches[li] >= 0 {
				continue
			}
			for ri := range remote {
				if taken[ri] {
					continue
				}
				if match(local[li], remote[ri]) {
					matches[li] = ri
					taken[ri] = true
					break
				}
			}
		}
	}

	pass(func(l, r bookmark.Bookmark) bool { return l.ID == r.ID })
	pass(func(l, r bookmark.Bookmark) bool { return l.URL != "" && l.URL == r.URL })
	pass(func(l, r bookmark.Bookmark) bool { return l.Title != "" && l.Title == r.Title })

	// Positional pass over whatever is left, in order.
	var freeRemote []int
	for ri := range remote {
		if !taken[ri] {
			freeRemote = append(freeRemote, ri)
		}
	}
	next := 0
	for li := range local {
		if matches[li] >= 0 || local[li].Metadata.IsDeleted {
			continue
		}
		if next >= len(freeRemote) {
			break
		}
		matches[li] = freeRemote[next]
		taken[freeRemote[next]] = true
		next++
	}

	return matches
}

// JoinPath builds the slash-joined conflict path for a node.
func JoinPath(parts ...string) string {
	kept := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "/")
}

func baseBundles(cats []bookmark.Category, name string) []bookmark.Bundle {
	want := bookmark.NormalizeName(name)
	for _, c := range cats {
		if bookmark.NormalizeName(c.Name) == want {
			return c.Bundles
		}
	}
	return nil
}

func baseBookmarks(bundles []bookmark.Bundle, name string) []bookmark.Bookmark {
	want := bookmark.NormalizeName(name)
	for _, b := range bundles {
		if bookmark.NormalizeName(b.Name) == want {
			return b.Bookmarks
		}
	}
	return nil
}

func indexByName(name string, nameAt func(int) string, n int, claimed []bool) int {
	want := bookmark.NormalizeName(name)
	for i := 0; i < n; i++ {
		if claimed[i] {
			continue
		}
		if bookmark.NormalizeName(nameAt(i)) == want {
			return i
		}
	}
	return -1
}
