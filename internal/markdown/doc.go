// Package markdown converts bookmark collections to and from the
// Markdown document format used for remote synchronization: `#`
// headings for categories, `##` headings for bundles, list items with
// inline links for bookmarks, and two-space-indented attribute lines
// for tags and notes. Parsing is line-oriented and tolerant of legacy
// front matter and unrecognized lines; generation is deterministic so
// equivalent trees always produce identical documents.
package markdown
