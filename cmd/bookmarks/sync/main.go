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
	if err := runSync(os.Args[1:]); err != nil {
		log.Fatalf("bookmarks sync: %v", err)
	}
}

func runSync(args []string) error {
	fs := flag.NewFlagSet("bookmarks-sync", flag.ExitOnError)
	dataDir := fs.String("data-dir", "", "Directory holding the snippet store and sync state (defaults to ~/.go-bookmarks)")
	filename := fs.String("filename", "", "Remote document filename (defaults to bookmarks.md)")
	document := fs.String("document", "", "Remote document id, skipping filename discovery")
	resolve := fs.String("resolve", "", `Blanket conflict resolution: "local" or "remote" (empty fails on conflicts)`)
	verbose := fs.Bool("verbose", false, "Enable debug logging")

	if err := fs.Parse(args); err != nil {
		return err
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

	handler := collectioncmd.NewSyncHandler(module.Collection, module.Logger, collectioncmd.FeatureGates{})
	cmd := collectioncmd.SyncCommand{ResolveWith: *resolve}
	if err := handler.Execute(context.Background(), cmd); err != nil {
		return fmt.Errorf("execute sync command: %w", err)
	}

	fmt.Fprintln(os.Stdout, "collection synchronized")
	return nil
}
