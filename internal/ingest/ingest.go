// Package ingest walks directories and loads text documents into the store.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/mfreitag/docvec/internal/config"
	"github.com/mfreitag/docvec/internal/store"
)

// Summary counts what one ingestion run did.
type Summary struct {
	Added      int
	Skipped    int // already stored or filtered out by the walker
	Failed     int
	TotalBytes int64
}

// Ingester loads files and directory trees into a store.
type Ingester struct {
	store store.Store
	opts  WalkOptions
}

// New creates an Ingester.
func New(st store.Store, opts WalkOptions) *Ingester {
	return &Ingester{store: st, opts: opts}
}

// WalkOptionsFromConfig builds walker options from the loaded configuration.
func WalkOptionsFromConfig(cfg *config.Config, root string) WalkOptions {
	return WalkOptions{
		Root:           root,
		MaxFileSize:    int64(cfg.Ingest.MaxFileSize),
		MaxFileCount:   cfg.Ingest.MaxFileCount,
		IgnorePatterns: cfg.Ingest.Ignore,
		UseGitignore:   true,
		Extensions:     cfg.Ingest.Extensions,
	}
}

// IngestFile stores a single file under its base name. Files already in the
// store are skipped.
func (ing *Ingester) IngestFile(ctx context.Context, path string) (added bool, err error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}

	name := DocumentName(filepath.Base(path))
	existing, err := ing.store.GetDocument(ctx, name)
	if err != nil {
		return false, err
	}
	if existing != nil {
		log.Debug("Skipping stored document", "name", name)
		return false, nil
	}

	if err := ing.store.Put(ctx, name, string(content)); err != nil {
		return false, fmt.Errorf("failed to store %s: %w", name, err)
	}
	return true, nil
}

// IngestDirectory walks root and stores every accepted text file. Per-file
// failures are counted, logged and skipped so one bad file does not abort
// the run.
func (ing *Ingester) IngestDirectory(ctx context.Context, root string, progress func(name string)) (*Summary, error) {
	opts := ing.opts
	opts.Root = root

	walker, err := NewWalker(opts)
	if err != nil {
		return nil, err
	}

	summary := &Summary{}

	err = walker.Walk(func(info FileInfo) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		name := DocumentName(info.RelPath)
		if progress != nil {
			progress(name)
		}

		existing, err := ing.store.GetDocument(ctx, name)
		if err != nil {
			return err
		}
		if existing != nil {
			summary.Skipped++
			return nil
		}

		content, err := os.ReadFile(info.Path)
		if err != nil {
			log.Warn("Failed to read file", "path", info.Path, "error", err)
			summary.Failed++
			return nil
		}

		if err := ing.store.Put(ctx, name, string(content)); err != nil {
			log.Warn("Failed to store document", "name", name, "error", err)
			summary.Failed++
			return nil
		}

		summary.Added++
		summary.TotalBytes += info.Size
		return nil
	})
	if err != nil {
		return nil, err
	}

	summary.Skipped += walker.Stats().FilesSkipped
	return summary, nil
}

// DocumentName maps a relative file path to a flat store name. Store names
// cannot contain path separators, so nested paths are flattened with "__".
func DocumentName(relPath string) string {
	name := filepath.ToSlash(relPath)
	return strings.ReplaceAll(name, "/", "__")
}
