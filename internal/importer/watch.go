package importer

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before a changed source is imported.
const DefaultDebounce = 500 * time.Millisecond

// Watcher re-imports an entity whenever its source file in Dir changes.
// Editors often save in several steps, so changes are collected until the
// file has been quiet for Debounce.
type Watcher struct {
	Pipeline *Pipeline
	Dir      string // directory backing Pipeline.Source
	Debounce time.Duration

	// OnImport is called after every re-import. Optional.
	OnImport func(Summary, error)

	pending map[string]time.Time // entity key -> last event
	sources map[string][]string  // source file name -> entity keys
}

// Watch blocks until ctx is done, importing changed entities as they settle.
func (w *Watcher) Watch(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	// Watch the directory rather than the files: many editors replace a file
	// on save, which drops a watch placed on the file itself.
	if err := fw.Add(w.Dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.Dir, err)
	}

	w.pending = make(map[string]time.Time)
	w.sources = make(map[string][]string)
	for _, def := range w.Pipeline.Definitions() {
		name := filepath.Clean(filepath.FromSlash(def.Info.Source))
		w.sources[name] = append(w.sources[name], def.Info.Key)
	}

	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	log := w.Pipeline.logger().With("dir", w.Dir)
	log.Info("watching for changes", "entities", len(w.Pipeline.Definitions()))

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", "error", err)

		case now := <-ticker.C:
			for _, key := range w.settled(now, debounce) {
				sum, err := w.Pipeline.Run(ctx, key)
				if err != nil {
					log.Error("re-import failed", "entity", key, "error", err)
				}
				if w.OnImport != nil {
					w.OnImport(sum, err)
				}
			}
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}
	rel, err := filepath.Rel(w.Dir, event.Name)
	if err != nil {
		return
	}
	for _, key := range w.sources[filepath.Clean(rel)] {
		w.pending[key] = time.Now()
	}
}

// settled removes and returns, sorted, the entities whose last event is at
// least debounce old.
func (w *Watcher) settled(now time.Time, debounce time.Duration) []string {
	var keys []string
	for key, t := range w.pending {
		if now.Sub(t) >= debounce {
			keys = append(keys, key)
			delete(w.pending, key)
		}
	}
	sort.Strings(keys)
	return keys
}
