// Package watcher implements the file watcher (C2): it observes the user and
// project artifact tiers recursively, coalesces bursts of filesystem events
// behind a short debounce window, and republishes a fresh catalog.Snapshot
// through a catalog.Store on every create/modify/delete of a tier's .md
// files. Concurrency contract: one background task owns the watcher; catalog
// swaps are serialized through the Store's single-writer discipline (§4.2),
// so readers calling Store.Load are never blocked.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/swissarmyhammer-go/swissarmyhammer/internal/catalog"
	"github.com/swissarmyhammer-go/swissarmyhammer/pkg/logger"
)

var log = logger.New("watcher:fsnotify")

// debounceWindow matches §4.2's "≈200ms" coalescing window.
const debounceWindow = 200 * time.Millisecond

// Watcher observes the user and project tiers and republishes the catalog
// on relevant filesystem changes.
type Watcher struct {
	loader *catalog.Loader
	store  *catalog.Store
	fsw    *fsnotify.Watcher
}

// New creates a Watcher that rescans via loader and publishes into store.
// It performs no filesystem subscription until Run is called.
func New(loader *catalog.Loader, store *catalog.Store) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{loader: loader, store: store, fsw: fsw}, nil
}

// Run subscribes to every directory under the user and project tiers and
// blocks, rescanning and republishing on relevant events, until ctx is
// canceled. It performs one initial Load+Publish before watching so the
// Store never serves a stale snapshot while the first subscription is being
// set up.
func (w *Watcher) Run(ctx context.Context) error {
	w.store.Publish(w.loader.Load())

	for _, root := range []string{w.loader.UserDir, w.loader.ProjectDir} {
		if root == "" {
			continue
		}
		if err := addTreeRecursive(w.fsw, root); err != nil {
			log.Printf("failed to watch %s: %v", root, err)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	pending := make(chan struct{}, 1)

	g.Go(func() error {
		return w.debounceLoop(ctx, pending)
	})
	g.Go(func() error {
		return w.eventLoop(ctx, pending)
	})

	return g.Wait()
}

// eventLoop drains fsnotify events, filtering to .md files, and signals the
// debounce loop that a rescan is needed. It also re-subscribes to newly
// created directories so a new subdirectory of an existing tier is watched
// without requiring a process restart.
func (w *Watcher) eventLoop(ctx context.Context, pending chan<- struct{}) error {
	defer w.fsw.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			log.Printf("fsnotify error: %v", err)
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := addTreeRecursive(w.fsw, ev.Name); err != nil {
						log.Printf("failed to watch new directory %s: %v", ev.Name, err)
					}
				}
			}
			if !relevantEvent(ev) {
				continue
			}
			select {
			case pending <- struct{}{}:
			default:
			}
		}
	}
}

// relevantEvent reports whether ev should trigger a rescan: any
// create/write/remove/rename of a .md (or .md.liquid) file.
func relevantEvent(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	return strings.HasSuffix(ev.Name, ".md") || strings.HasSuffix(ev.Name, ".md.liquid")
}

// debounceLoop coalesces bursts of pending signals into a single rescan
// every debounceWindow, per §4.2.
func (w *Watcher) debounceLoop(ctx context.Context, pending <-chan struct{}) error {
	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	armed := false

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-pending:
			if !armed {
				timer.Reset(debounceWindow)
				armed = true
			}
		case <-timer.C:
			armed = false
			log.Printf("rescanning catalog after debounce window")
			w.store.Publish(w.loader.Load())
		}
	}
}

// addTreeRecursive subscribes fsw to root and every directory beneath it.
func addTreeRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if err := fsw.Add(path); err != nil {
				log.Printf("failed to watch %s: %v", path, err)
			}
		}
		return nil
	})
}
