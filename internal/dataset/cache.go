package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Cache hands out loaded datasets and reloads them only when the source file
// changes. Identity is the absolute path; staleness is checked against the
// file's modtime and size on every Get.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
}

type cacheEntry struct {
	ds      *Dataset
	modTime time.Time
	size    int64
	opt     LoadOptions
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*cacheEntry)}
}

// Get returns the cached dataset for path, loading it if absent or stale.
// Changing load options also forces a reload.
func (c *Cache) Get(path string, opt LoadOptions) (*Dataset, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat dataset: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[abs]; ok {
		if e.modTime.Equal(info.ModTime()) && e.size == info.Size() && e.opt == opt {
			return e.ds, nil
		}
	}
	ds, err := Load(abs, opt)
	if err != nil {
		return nil, err
	}
	c.entries[abs] = &cacheEntry{ds: ds, modTime: info.ModTime(), size: info.Size(), opt: opt}
	return ds, nil
}

// Invalidate drops the cached entry for path, if any.
func (c *Cache) Invalidate(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}
	c.mu.Lock()
	delete(c.entries, abs)
	c.mu.Unlock()
}

// Len reports how many datasets are cached.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Watcher invalidates a cache entry when its source file is rewritten and
// notifies the owner so derived state can be rebuilt.
type Watcher struct {
	watcher  *fsnotify.Watcher
	cache    *Cache
	path     string
	onChange func()

	mu      sync.Mutex
	lastMod time.Time
}

// NewWatcher watches the directory containing path. onChange may be nil.
func NewWatcher(cache *Cache, path string, onChange func()) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	// Watching the directory, not the file: editors and exporters replace
	// files via rename, which drops a file-level watch.
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	return &Watcher{watcher: w, cache: cache, path: abs, onChange: onChange}, nil
}

// Run consumes watcher events until Close is called. It returns nil on a
// clean shutdown and the first watcher error otherwise.
func (w *Watcher) Run() error {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			info, err := os.Stat(w.path)
			if err != nil {
				continue
			}
			w.mu.Lock()
			changed := info.ModTime().After(w.lastMod)
			if changed {
				w.lastMod = info.ModTime()
			}
			w.mu.Unlock()
			if changed {
				w.cache.Invalidate(w.path)
				if w.onChange != nil {
					w.onChange()
				}
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}

// Close stops the watcher; Run returns afterwards.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
