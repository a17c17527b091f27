// Package watch invalidates cached metadata when the files behind it change.
package watch

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/odatakit/odatakit/internal/metadata"
)

// DefaultDebounce is how long the watcher waits for a burst of events to settle
const DefaultDebounce = 100 * time.Millisecond

// MetadataWatcher watches resolved metadata paths and drops their cache
// entries when the file content actually changes
type MetadataWatcher struct {
	watcher   *fsnotify.Watcher
	debouncer *Debouncer
	cache     *metadata.Cache
	fs        metadata.FileSystem
	logger    *zap.Logger

	mu    sync.Mutex
	paths map[string]string // cleaned path -> cache key
	dirs  map[string]bool

	stopChan chan struct{}
	stopOnce sync.Once
	stopErr  error
	wg       sync.WaitGroup
}

// NewMetadataWatcher creates a watcher for the given cache
func NewMetadataWatcher(cache *metadata.Cache, fs metadata.FileSystem, logger *zap.Logger) (*MetadataWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if fs == nil {
		fs = metadata.OSFileSystem{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	mw := &MetadataWatcher{
		watcher:   watcher,
		debouncer: NewDebouncer(DefaultDebounce),
		cache:     cache,
		fs:        fs,
		logger:    logger.Named("watch"),
		paths:     make(map[string]string),
		dirs:      make(map[string]bool),
		stopChan:  make(chan struct{}),
	}
	mw.debouncer.SetCallback(mw.check)
	return mw, nil
}

// Watch starts tracking a resolved metadata path. The path's directory is
// watched so that editors replacing the file on save are noticed.
func (mw *MetadataWatcher) Watch(path string) error {
	clean := filepath.Clean(path)
	dir := filepath.Dir(clean)

	mw.mu.Lock()
	defer mw.mu.Unlock()

	mw.paths[clean] = path
	if mw.dirs[dir] {
		return nil
	}
	if err := mw.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}
	mw.dirs[dir] = true
	mw.logger.Debug("Watching directory", zap.String("dir", dir))
	return nil
}

// WatchService tracks the resolved path of every map entry of svc
func (mw *MetadataWatcher) WatchService(svc *metadata.Service) error {
	for _, entry := range svc.MapEntries() {
		if err := mw.Watch(svc.ResolvePath(entry)); err != nil {
			return err
		}
	}
	return nil
}

// Start begins processing file system events
func (mw *MetadataWatcher) Start() {
	mw.wg.Add(1)
	go mw.watch()
}

// Stop stops the watcher. It is safe to call more than once and from
// several goroutines; every call returns the result of the first.
func (mw *MetadataWatcher) Stop() error {
	mw.stopOnce.Do(func() {
		close(mw.stopChan)
		mw.wg.Wait()
		mw.debouncer.Stop()
		mw.stopErr = mw.watcher.Close()
	})
	return mw.stopErr
}

// watch is the main event loop
func (mw *MetadataWatcher) watch() {
	defer mw.wg.Done()

	for {
		select {
		case event, ok := <-mw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if _, tracked := mw.cacheKey(event.Name); tracked {
				mw.debouncer.Add(event.Name)
			}

		case err, ok := <-mw.watcher.Errors:
			if !ok {
				return
			}
			mw.handleError(err)

		case <-mw.stopChan:
			return
		}
	}
}

// handleError logs a watcher error. After an event overflow some changes may
// have been missed, so every cached entry is dropped.
func (mw *MetadataWatcher) handleError(err error) {
	if errors.Is(err, fsnotify.ErrEventOverflow) {
		mw.logger.Warn("File watcher overflowed, dropping all cached metadata", zap.Error(err))
		mw.cache.InvalidateAll()
		return
	}
	mw.logger.Warn("File watcher error", zap.Error(err))
}

func (mw *MetadataWatcher) cacheKey(name string) (string, bool) {
	mw.mu.Lock()
	defer mw.mu.Unlock()

	key, ok := mw.paths[filepath.Clean(name)]
	return key, ok
}

// check invalidates the cache entries of files whose content hash changed
func (mw *MetadataWatcher) check(files []string) {
	for _, name := range files {
		key, ok := mw.cacheKey(name)
		if !ok {
			continue
		}
		if mw.changed(key) {
			mw.logger.Info("Metadata file changed, dropping cached copy", zap.String("path", key))
			mw.cache.Invalidate(key)
		}
	}
}

// changed reports whether the cached entry for key is stale
func (mw *MetadataWatcher) changed(key string) bool {
	entry, ok := mw.cache.Get(key)
	if !ok {
		return false
	}

	data, err := mw.fs.ReadFile(key)
	if err != nil {
		// removed or unreadable: the next lookup reports the error
		return true
	}
	return xxhash.Sum64(data) != entry.Hash
}

// Debouncer collects file changes and triggers callbacks after a delay
type Debouncer struct {
	duration time.Duration
	timer    *time.Timer
	files    map[string]struct{}
	mutex    sync.Mutex
	callback func([]string)
	stopped  bool
}

// NewDebouncer creates a new debouncer instance
func NewDebouncer(duration time.Duration) *Debouncer {
	return &Debouncer{
		duration: duration,
		files:    make(map[string]struct{}),
	}
}

// Add adds a file to the debouncer and restarts the delay
func (d *Debouncer) Add(file string) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.stopped {
		return
	}
	d.files[file] = struct{}{}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.duration, d.flush)
}

// flush triggers the callback with accumulated files
func (d *Debouncer) flush() {
	d.mutex.Lock()
	if len(d.files) == 0 || d.callback == nil {
		d.mutex.Unlock()
		return
	}
	files := make([]string, 0, len(d.files))
	for file := range d.files {
		files = append(files, file)
	}
	d.files = make(map[string]struct{})
	callback := d.callback
	d.mutex.Unlock()

	callback(files)
}

// SetCallback sets the callback function
func (d *Debouncer) SetCallback(callback func([]string)) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.callback = callback
}

// Stop stops the debouncer; pending files are dropped
func (d *Debouncer) Stop() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.stopped = true
}
