package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// debounceDelay coalesces bursts of fsnotify events (editors and batch jobs
// touch files several times per save) into a single trigger.
const debounceDelay = 2 * time.Second

// fileWatcher turns raw fsnotify events on the dataset files into at most
// one trigger per debounce window on C.
type fileWatcher struct {
	C <-chan time.Time
}

// newFileWatcher watches the parent directories of paths; most writers
// replace files by rename, which only the directory sees. Events for
// unrelated files in those directories are dropped.
func newFileWatcher(ctx context.Context, paths []string) (*fileWatcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	watched := make(map[string]bool, len(paths))
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			_ = fw.Close()
			return nil, fmt.Errorf("resolve %s: %w", p, err)
		}
		watched[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			_ = fw.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	ch := make(chan time.Time, 1)
	go func() {
		defer fw.Close()
		var pending <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return

			case ev, ok := <-fw.Events:
				if !ok {
					return
				}
				if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Rename) {
					continue
				}
				abs, err := filepath.Abs(ev.Name)
				if err != nil || !watched[abs] {
					continue
				}
				log.Debug().Str("file", abs).Str("op", ev.Op.String()).Msg("dataset file event")
				pending = time.After(debounceDelay)

			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Msg("file watcher error")

			case t := <-pending:
				pending = nil
				select {
				case ch <- t:
				default: // a trigger is already queued
				}
			}
		}
	}()

	return &fileWatcher{C: ch}, nil
}
