package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/goliatone/go-bookmarks/internal/bookmark"
)

// PreviewOptions tune the HTML rendering of a collection document.
type PreviewOptions struct {
	// Extensions names goldmark extensions to enable; empty means the
	// default set (gfm, linkify, tasklist).
	Extensions []string
	HardWraps  bool
	// SafeMode suppresses raw HTML passthrough in the output.
	SafeMode bool
}

// Previewer renders collections to HTML through the goldmark engine. It
// is stateless, so a single instance can be shared without locking.
type Previewer struct {
	defaults PreviewOptions
}

// NewPreviewer constructs a previewer with the provided defaults.
func NewPreviewer(defaults PreviewOptions) *Previewer {
	return &Previewer{defaults: defaults}
}

// Render generates the collection document and converts it to HTML.
func (p *Previewer) Render(root *bookmark.Root) (string, error) {
	return p.RenderWithOptions(root, p.defaults)
}

// RenderWithOptions renders with per-call options.
func (p *Previewer) RenderWithOptions(root *bookmark.Root, opts PreviewOptions) (string, error) {
	text, err := Generate(root)
	if err != nil {
		return "", err
	}

	engine := newGoldmarkEngine(opts)
	var buf bytes.Buffer
	if err := engine.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("markdown preview: %w", err)
	}
	return buf.String(), nil
}

func newGoldmarkEngine(opts PreviewOptions) goldmark.Markdown {
	exts := collectExtensions(opts.Extensions)

	parserOptions := []parser.Option{
		parser.WithAutoHeadingID(),
	}

	rendererOptions := []renderer.Option{}
	if opts.HardWraps {
		rendererOptions = append(rendererOptions, html.WithHardWraps())
	}
	if !opts.SafeMode {
		rendererOptions = append(rendererOptions, html.WithUnsafe())
	}

	engineOptions := []goldmark.Option{
		goldmark.WithParserOptions(parserOptions...),
	}
	if len(rendererOptions) > 0 {
		engineOptions = append(engineOptions, goldmark.WithRendererOptions(rendererOptions...))
	}
	if len(exts) > 0 {
		engineOptions = append(engineOptions, goldmark.WithExtensions(exts...))
	}
	return goldmark.New(engineOptions...)
}

var extensionRegistry = map[string]goldmark.Extender{
	"gfm":           extension.GFM,
	"table":         extension.Table,
	"tables":        extension.Table,
	"strikethrough": extension.Strikethrough,
	"linkify":       extension.Linkify,
	"autolink":      extension.Linkify,
	"tasklist":      extension.TaskList,
	"definition":    extension.DefinitionList,
	"footnote":      extension.Footnote,
}

func collectExtensions(names []string) []goldmark.Extender {
	if len(names) == 0 {
		return []goldmark.Extender{
			extension.GFM,
			extension.Linkify,
			extension.TaskList,
		}
	}

	var extenders []goldmark.Extender
	seen := map[string]struct{}{}

	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		ext, ok := extensionRegistry[key]
		if !ok {
			continue
		}
		extenders = append(extenders, ext)
		seen[key] = struct{}{}
	}
	return extenders
}
