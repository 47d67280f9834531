package collectioncmd

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	syncMessageType        = "bookmarks.collection.sync"
	importFileMessageType  = "bookmarks.collection.import_file"
	exportFileMessageType  = "bookmarks.collection.export_file"
	addBookmarkMessageType = "bookmarks.collection.add_bookmark"
)

// Import formats accepted by ImportFileCommand.
const (
	FormatNetscape = "netscape"
	FormatMarkdown = "markdown"
)

// SyncCommand runs a full reconciliation pass against the remote document.
type SyncCommand struct {
	// ResolveWith picks a side for every pending conflict: "local", "remote"
	// or empty to fail on conflicts.
	ResolveWith string `json:"resolve_with,omitempty"`
}

// Type implements command.Message.
func (SyncCommand) Type() string { return syncMessageType }

// Validate restricts the blanket conflict resolution to known sides.
func (cmd SyncCommand) Validate() error {
	return validation.ValidateStruct(&cmd,
		validation.Field(&cmd.ResolveWith, validation.In("", "local", "remote")),
	)
}

// ImportFileCommand imports bookmarks from a file on disk into the collection.
type ImportFileCommand struct {
	// Path selects the file to import.
	Path string `json:"path"`
	// Format names the input format; defaults to netscape for .html files
	// and markdown otherwise when empty.
	Format string `json:"format,omitempty"`
}

// Type implements command.Message.
func (ImportFileCommand) Type() string { return importFileMessageType }

// Validate ensures a usable path and a known format before handlers execute.
func (cmd ImportFileCommand) Validate() error {
	return validation.ValidateStruct(&cmd,
		validation.Field(&cmd.Path, validation.Required, validation.By(func(value any) error {
			if strings.TrimSpace(value.(string)) == "" {
				return validation.NewError("bookmarks.collection.import_file.path_required", "path is required")
			}
			return nil
		})),
		validation.Field(&cmd.Format, validation.In("", FormatNetscape, FormatMarkdown)),
	)
}

// ExportFileCommand renders the collection document to a file on disk.
type ExportFileCommand struct {
	// Path selects the destination file.
	Path string `json:"path"`
	// HTML renders a goldmark HTML preview instead of the raw document.
	HTML bool `json:"html,omitempty"`
}

// Type implements command.Message.
func (ExportFileCommand) Type() string { return exportFileMessageType }

// Validate ensures a destination path is present.
func (cmd ExportFileCommand) Validate() error {
	return validation.ValidateStruct(&cmd,
		validation.Field(&cmd.Path, validation.Required, validation.By(func(value any) error {
			if strings.TrimSpace(value.(string)) == "" {
				return validation.NewError("bookmarks.collection.export_file.path_required", "path is required")
			}
			return nil
		})),
	)
}

// AddBookmarkCommand appends a bookmark to a bundle, creating the category
// and bundle on demand.
type AddBookmarkCommand struct {
	Category string   `json:"category"`
	Bundle   string   `json:"bundle"`
	Title    string   `json:"title"`
	URL      string   `json:"url"`
	Tags     []string `json:"tags,omitempty"`
	Notes    string   `json:"notes,omitempty"`
}

// Type implements command.Message.
func (AddBookmarkCommand) Type() string { return addBookmarkMessageType }

// Validate requires the full bookmark location and content.
func (cmd AddBookmarkCommand) Validate() error {
	required := func(code, label string) validation.RuleFunc {
		return func(value any) error {
			if strings.TrimSpace(value.(string)) == "" {
				return validation.NewError(code, label+" is required")
			}
			return nil
		}
	}
	return validation.ValidateStruct(&cmd,
		validation.Field(&cmd.Category, validation.Required,
			validation.By(required("bookmarks.collection.add_bookmark.category_required", "category"))),
		validation.Field(&cmd.Bundle, validation.Required,
			validation.By(required("bookmarks.collection.add_bookmark.bundle_required", "bundle"))),
		validation.Field(&cmd.Title, validation.Required,
			validation.By(required("bookmarks.collection.add_bookmark.title_required", "title"))),
		validation.Field(&cmd.URL, validation.Required,
			validation.By(required("bookmarks.collection.add_bookmark.url_required", "url"))),
	)
}
