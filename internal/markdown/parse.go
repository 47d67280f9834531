package markdown

import (
	"regexp"
	"strings"
	"time"

	"github.com/adrg/frontmatter"

	"github.com/goliatone/go-bookmarks/internal/bookmark"
	"github.com/goliatone/go-bookmarks/internal/identity"
)

// Parse builds a collection tree from document text, stamping fresh
// metadata at the current time. Ids are regenerated deterministically
// from each bookmark's location; they are never encoded in the text.
func Parse(text string) (*bookmark.Root, error) {
	return ParseAt(text, time.Now())
}

// ParseAt is Parse with an explicit clock.
func ParseAt(text string, now time.Time) (*bookmark.Root, error) {
	root, err := ParseRaw(text)
	if err != nil {
		return nil, err
	}
	return bookmark.EnsureRootMetadata(root, now), nil
}

// ParseRaw builds the tree without stamping any timestamps, so nodes
// read from the remote never pretend to be newer than they provably
// are. The sync shell pairs this with EnsureRootMetadataWithoutTimestamp.
func ParseRaw(text string) (*bookmark.Root, error) {
	body, offset := stripFrontMatter(text)

	p := &docParser{
		root:    &bookmark.Root{Version: bookmark.CurrentVersion},
		ci:      -1,
		bi:      -1,
		seenCat: map[string]struct{}{},
	}

	for i, raw := range strings.Split(body, "\n") {
		if err := p.consume(offset+i+1, strings.TrimRight(raw, "\r")); err != nil {
			return nil, err
		}
	}
	return p.root, nil
}

var linkPattern = regexp.MustCompile(`^- \[(.*)\]\((.*)\)\s*$`)

const (
	tagsPrefix  = "  - tags:"
	notesPrefix = "  - notes:"
)

// docParser is the line-oriented state machine. The state is implicit
// in the cursor: no category yet, inside a category, inside a bundle,
// or attached to an open bookmark.
type docParser struct {
	root *bookmark.Root

	ci, bi   int
	open     bool
	seenCat  map[string]struct{}
	seenBun  map[string]struct{}
	position int
}

func (p *docParser) consume(line int, text string) error {
	switch {
	case strings.TrimSpace(text) == "":
		p.open = false

	case strings.HasPrefix(text, "## "):
		return p.startBundle(line, text[3:])

	case strings.HasPrefix(text, "# "):
		return p.startCategory(line, text[2:])

	case strings.HasPrefix(text, "- ["):
		if match := linkPattern.FindStringSubmatch(text); match != nil {
			return p.startBookmark(line, match)
		}
		// Checklist items ("- [x] ...") and other non-link list entries
		// fall through with the rest of the unrecognized lines.

	case strings.HasPrefix(text, tagsPrefix):
		if p.open {
			p.currentBookmark().Tags = splitTags(text[len(tagsPrefix):])
		}

	case strings.HasPrefix(text, notesPrefix):
		if p.open {
			p.currentBookmark().Notes = strings.TrimSpace(text[len(notesPrefix):])
		}

	default:
		// Unrecognized lines are ignored: legacy documents carry
		// HTML-comment metadata and other decorations.
	}
	return nil
}

func (p *docParser) startCategory(line int, rest string) error {
	name := bookmark.NormalizeName(rest)
	if name == "" {
		return parseErrorf(line, "category name is empty")
	}
	if _, dup := p.seenCat[name]; dup {
		return parseErrorf(line, "duplicate category %q", name)
	}
	p.seenCat[name] = struct{}{}

	p.root.Categories = append(p.root.Categories, bookmark.Category{Name: name})
	p.ci = len(p.root.Categories) - 1
	p.bi = -1
	p.open = false
	p.seenBun = map[string]struct{}{}
	return nil
}

func (p *docParser) startBundle(line int, rest string) error {
	if p.ci < 0 {
		return parseErrorf(line, "bundle heading before any category")
	}
	name := bookmark.NormalizeName(rest)
	if name == "" {
		return parseErrorf(line, "bundle name is empty")
	}
	if _, dup := p.seenBun[name]; dup {
		return parseErrorf(line, "duplicate bundle %q in category %q", name, p.currentCategory().Name)
	}
	p.seenBun[name] = struct{}{}

	cat := p.currentCategory()
	cat.Bundles = append(cat.Bundles, bookmark.Bundle{Name: name})
	p.bi = len(cat.Bundles) - 1
	p.open = false
	p.position = 0
	return nil
}

func (p *docParser) startBookmark(line int, match []string) error {
	if p.bi < 0 {
		return parseErrorf(line, "bookmark before any bundle")
	}
	title := strings.TrimSpace(match[1])
	url := strings.TrimSpace(match[2])
	if title == "" {
		return parseErrorf(line, "bookmark title is empty")
	}
	if url == "" {
		return parseErrorf(line, "bookmark url is empty")
	}

	cat := p.currentCategory()
	bun := &cat.Bundles[p.bi]
	bun.Bookmarks = append(bun.Bookmarks, bookmark.Bookmark{
		ID:    identity.ParsedBookmarkUUID(cat.Name, bun.Name, p.position, url),
		Title: title,
		URL:   url,
	})
	p.position++
	p.open = true
	return nil
}

func (p *docParser) currentCategory() *bookmark.Category {
	return &p.root.Categories[p.ci]
}

func (p *docParser) currentBookmark() *bookmark.Bookmark {
	bun := &p.currentCategory().Bundles[p.bi]
	return &bun.Bookmarks[len(bun.Bookmarks)-1]
}

func splitTags(raw string) []string {
	var tags []string
	for _, part := range strings.Split(raw, ",") {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// legacyFrontMatter mirrors the document header some older clients
// wrote. The values are accepted and discarded; the tree itself is the
// source of truth.
type legacyFrontMatter struct {
	Title   string         `yaml:"title"`
	Version int            `yaml:"version"`
	Updated string         `yaml:"updated"`
	Custom  map[string]any `yaml:",inline"`
}

// stripFrontMatter removes an optional leading front-matter block and
// reports how many lines it occupied, so parse errors keep pointing at
// the original text.
func stripFrontMatter(text string) (string, int) {
	if !strings.HasPrefix(text, "---") {
		return text, 0
	}
	var meta legacyFrontMatter
	body, err := frontmatter.Parse(strings.NewReader(text), &meta)
	if err != nil {
		return text, 0
	}
	stripped := string(body)
	return stripped, strings.Count(text, "\n") - strings.Count(stripped, "\n")
}
