package main

import (
	"context"
	"log"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// watcher reports writes to clip files. It watches the parent directories so
// files replaced by rename are still seen.
type watcher struct {
	w      *fsnotify.Watcher
	reload func(path string)

	mu    sync.Mutex
	files map[string]bool
	dirs  map[string]int
}

func newWatcher(reload func(path string)) (*watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &watcher{
		w:      w,
		reload: reload,
		files:  make(map[string]bool),
		dirs:   make(map[string]int),
	}, nil
}

func (w *watcher) add(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.files[path] {
		return nil
	}
	dir := filepath.Dir(path)
	if w.dirs[dir] == 0 {
		if err := w.w.Add(dir); err != nil {
			return err
		}
	}
	w.dirs[dir]++
	w.files[path] = true
	return nil
}

func (w *watcher) remove(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.files[path] {
		return
	}
	delete(w.files, path)
	dir := filepath.Dir(path)
	if w.dirs[dir]--; w.dirs[dir] == 0 {
		delete(w.dirs, dir)
		w.w.Remove(dir)
	}
}

func (w *watcher) watching(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.files[path]
}

func (w *watcher) run(ctx context.Context) error {
	defer w.w.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if path := filepath.Clean(ev.Name); w.watching(path) {
				w.reload(path)
			}
		case err, ok := <-w.w.Errors:
			if !ok {
				return nil
			}
			log.Printf("watch: %v", err)
		}
	}
}
