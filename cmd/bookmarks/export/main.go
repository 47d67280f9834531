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
	if err := runExport(os.Args[1:]); err != nil {
		log.Fatalf("bookmarks export: %v", err)
	}
}

func runExport(args []string) error {
	fs := flag.NewFlagSet("bookmarks-export", flag.ExitOnError)
	out := fs.String("out", "", "Destination file for the exported document")
	html := fs.Bool("html", false, "Render an HTML preview instead of the raw Markdown document")
	dataDir := fs.String("data-dir", "", "Directory holding the snippet store and sync state (defaults to ~/.go-bookmarks)")
	filename := fs.String("filename", "", "Remote document filename (defaults to bookmarks.md)")
	document := fs.String("document", "", "Remote document id, skipping filename discovery")
	verbose := fs.Bool("verbose", false, "Enable debug logging")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *out == "" {
		return fmt.Errorf("out is required")
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

	handler := collectioncmd.NewExportFileHandler(module.Collection, module.Logger)
	cmd := collectioncmd.ExportFileCommand{
		Path: *out,
		HTML: *html,
	}
	if err := handler.Execute(context.Background(), cmd); err != nil {
		return fmt.Errorf("execute export command: %w", err)
	}

	fmt.Fprintf(os.Stdout, "collection exported to %s\n", *out)
	return nil
}
