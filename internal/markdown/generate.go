package markdown

import (
	"strings"

	"github.com/goliatone/go-bookmarks/internal/bookmark"
)

// Generate renders the live portion of the tree to the document format.
// Tombstoned nodes are omitted; insertion order is preserved exactly.
func Generate(root *bookmark.Root) (string, error) {
	if root == nil {
		return "", ErrRootRequired
	}

	var b strings.Builder
	for _, cat := range root.Categories {
		if cat.Metadata.IsDeleted {
			continue
		}
		b.WriteString("# ")
		b.WriteString(flatten(cat.Name))
		b.WriteString("\n\n")

		for _, bun := range cat.Bundles {
			if bun.Metadata.IsDeleted {
				continue
			}
			b.WriteString("## ")
			b.WriteString(flatten(bun.Name))
			b.WriteString("\n\n")

			for _, bm := range bun.Bookmarks {
				if bm.Metadata.IsDeleted {
					continue
				}
				writeBookmark(&b, bm)
			}
		}
	}
	return b.String(), nil
}

func writeBookmark(b *strings.Builder, bm bookmark.Bookmark) {
	b.WriteString("- [")
	b.WriteString(flatten(bm.Title))
	b.WriteString("](")
	b.WriteString(flatten(bm.URL))
	b.WriteString(")\n")

	if tags := joinTags(bm.Tags); tags != "" {
		b.WriteString("  - tags: ")
		b.WriteString(tags)
		b.WriteString("\n")
	}
	if notes := flatten(bm.Notes); notes != "" {
		b.WriteString("  - notes: ")
		b.WriteString(notes)
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func joinTags(tags []string) string {
	var kept []string
	for _, tag := range tags {
		if t := flatten(tag); t != "" {
			kept = append(kept, t)
		}
	}
	return strings.Join(kept, ", ")
}

// flatten keeps values on a single line; the format is line-oriented
// and embedded newlines would corrupt it.
func flatten(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.TrimSpace(s)
}
