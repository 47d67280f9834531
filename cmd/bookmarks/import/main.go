package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/goliatone/go-bookmarks/cmd/bookmarks/internal/bootstrap"
	collectioncmd "github.com/goliatone/go-bookmarks/internal/commands/collection"
)

var moduleBuilder = bootstrap.BuildModule

func main() {
	if err := runImport(os.Args[1:]); err != nil {
		log.Fatalf("bookmarks import: %v", err)
	}
}

func runImport(args []string) error {
	fs := flag.NewFlagSet("bookmarks-import", flag.ExitOnError)
	file := fs.String("file", "", "Bookmark file to import (netscape HTML export or collection Markdown)")
	format := fs.String("format", "", `Input format: "netscape" or "markdown" (detected from the extension when empty)`)
	dataDir := fs.String("data-dir", "", "Directory holding the snippet store and sync state (defaults to ~/.go-bookmarks)")
	filename := fs.String("filename", "", "Remote document filename (defaults to bookmarks.md)")
	document := fs.String("document", "", "Remote document id, skipping filename discovery")
	verbose := fs.Bool("verbose", false, "Enable debug logging")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return fmt.Errorf("file is required")
	}

	module, err := moduleBuilder(bootstrap.Options{
		DataDir:    *dataDir,
		Filename:   *filename,
		DocumentID: *document,
		Verbose:    *verbose,
	})
	if err != nil {
		return fmt.Errorf("bootstrap module: %w", err)
	}
	defer module.Close()

	handler := collectioncmd.NewImportFileHandler(module.Collection, module.Logger, collectioncmd.FeatureGates{})
	cmd := collectioncmd.ImportFileCommand{
		Path:   *file,
		Format: *format,
	}
	if err := handler.Execute(context.Background(), cmd); err != nil {
		return fmt.Errorf("execute import command: %w", err)
	}

	fmt.Fprintln(os.Stdout, "bookmarks imported successfully")
	return nil
}
