// Package watcher keeps imported profile files in sync with the store by watching
// directories with fsnotify.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultSettle = 400 * time.Millisecond

// Handler reacts to changes of profile files. FileChanged runs once a file has
// stopped changing for the settle interval; FileRemoved runs when a file is
// deleted or renamed away.
type Handler interface {
	FileChanged(ctx context.Context, path string) error
	FileRemoved(ctx context.Context, path string) error
}

// HandlerFuncs adapts two functions to a Handler. Nil functions are no-ops.
type HandlerFuncs struct {
	Changed func(ctx context.Context, path string) error
	Removed func(ctx context.Context, path string) error
}

func (h HandlerFuncs) FileChanged(ctx context.Context, path string) error {
	if h.Changed == nil {
		return nil
	}
	return h.Changed(ctx, path)
}

func (h HandlerFuncs) FileRemoved(ctx context.Context, path string) error {
	if h.Removed == nil {
		return nil
	}
	return h.Removed(ctx, path)
}

// Watcher watches import directories for profile file changes. Handler calls
// run one at a time on the watcher's goroutine.
type Watcher struct {
	extensions []string
	recursive  bool
	handler    Handler
	settle     time.Duration
	logger     *zap.Logger

	mu      sync.Mutex
	roots   []string
	watched map[string][]string // import root -> directories registered for it
	fsw     *fsnotify.Watcher
	ctx     context.Context
	queue   *settleQueue
	done    chan struct{}
	halt    sync.Once
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets a logger for watch events and handler failures.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce sets how long a file must stay unchanged before it is imported.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.settle = d
		}
	}
}

// New creates a watcher over roots. extensions filter which files are passed
// to h (empty means all).
func New(roots, extensions []string, recursive bool, h Handler, opts ...Option) *Watcher {
	w := &Watcher{
		extensions: extensions,
		recursive:  recursive,
		handler:    h,
		settle:     defaultSettle,
		logger:     zap.NewNop(),
		roots:      append([]string(nil), roots...),
		watched:    make(map[string][]string),
		ctx:        context.Background(),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.queue = newSettleQueue(w.settle)
	return w
}

// Start registers the roots and begins watching. It runs until ctx is
// cancelled or Stop is called. Missing root directories are created.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fsw != nil {
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.fsw = fsw
	w.ctx = ctx
	for i, root := range w.roots {
		abs, err := filepath.Abs(root)
		if err == nil {
			abs = filepath.Clean(abs)
			err = w.registerRootLocked(abs)
		}
		if err != nil {
			_ = fsw.Close()
			w.fsw = nil
			return err
		}
		w.roots[i] = abs
	}
	w.logger.Debug("watching import directories",
		zap.Strings("roots", w.roots), zap.Strings("extensions", w.extensions), zap.Bool("recursive", w.recursive))
	go w.loop(ctx, fsw)
	return nil
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher) {
	tick := time.NewTicker(pollInterval(w.settle))
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case now := <-tick.C:
			for _, path := range w.queue.due(now) {
				w.importFile(path)
			}
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.onEvent(ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Warn("watch error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) onEvent(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	if !w.underRoot(path) {
		return
	}
	w.logger.Debug("profile file event", zap.String("op", ev.Op.String()), zap.String("path", path))

	if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
		w.queue.drop(path)
		if matchExtension(path, w.extensions) {
			w.unimportFile(path)
		}
		return
	}
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		w.watchNewDirectory(path)
		return
	}
	if matchExtension(path, w.extensions) {
		w.queue.touch(path, time.Now())
	}
}

// watchNewDirectory registers a directory created under a root and imports
// any profile files already inside it.
func (w *Watcher) watchNewDirectory(dir string) {
	w.mu.Lock()
	fsw := w.fsw
	w.mu.Unlock()
	if fsw == nil {
		return
	}
	for _, d := range w.directoriesUnder(dir) {
		if err := fsw.Add(d); err != nil {
			w.logger.Debug("cannot watch new directory", zap.String("path", d), zap.Error(err))
		}
	}
	w.importExisting(dir)
}

// directoriesUnder lists dir and, when recursive, every directory below it.
func (w *Watcher) directoriesUnder(dir string) []string {
	if !w.recursive {
		return []string{dir}
	}
	var dirs []string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			dirs = append(dirs, path)
		}
		return nil
	})
	return dirs
}

func (w *Watcher) underRoot(path string) bool {
	for _, root := range w.Directories() {
		if inDir(root, path) {
			return true
		}
	}
	return false
}

func inDir(dir, path string) bool {
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func matchExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, e := range extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}

func (w *Watcher) importFile(path string) {
	if w.handler == nil {
		return
	}
	if err := w.handler.FileChanged(w.context(), path); err != nil {
		w.logger.Warn("profile file import failed", zap.String("path", path), zap.Error(err))
	}
}

func (w *Watcher) unimportFile(path string) {
	if w.handler == nil {
		return
	}
	if err := w.handler.FileRemoved(w.context(), path); err != nil {
		w.logger.Warn("profile file removal failed", zap.String("path", path), zap.Error(err))
	}
}

func (w *Watcher) context() context.Context {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ctx
}

// importExisting imports the matching files already present under root.
func (w *Watcher) importExisting(root string) {
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && !w.recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if matchExtension(path, w.extensions) {
			w.importFile(path)
		}
		return nil
	})
}

// registerRootLocked creates root if needed and adds it, plus subdirectories
// when recursive, to the fsnotify watcher.
func (w *Watcher) registerRootLocked(root string) error {
	if err := os.MkdirAll(root, 0755); err != nil {
		return err
	}
	dirs := w.directoriesUnder(root)
	for _, d := range dirs {
		if err := w.fsw.Add(d); err != nil {
			return err
		}
	}
	w.watched[root] = dirs
	return nil
}

// AddDirectory adds an import root and optionally imports the profile files
// already in it.
func (w *Watcher) AddDirectory(root string, syncExisting bool) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	abs = filepath.Clean(abs)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fsw == nil {
		return nil
	}
	if _, ok := w.watched[abs]; ok {
		return nil
	}
	if err := w.registerRootLocked(abs); err != nil {
		return err
	}
	w.roots = append(w.roots, abs)
	w.logger.Debug("import directory added", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	if syncExisting && w.handler != nil {
		go w.importExisting(abs)
	}
	return nil
}

// RemoveDirectory stops watching the given root. Profiles imported from it stay
// in the store.
func (w *Watcher) RemoveDirectory(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	abs = filepath.Clean(abs)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fsw == nil {
		return nil
	}
	dirs, ok := w.watched[abs]
	if !ok {
		return nil
	}
	for _, d := range dirs {
		_ = w.fsw.Remove(d)
	}
	delete(w.watched, abs)
	for i, r := range w.roots {
		if r == abs {
			w.roots = append(w.roots[:i], w.roots[i+1:]...)
			break
		}
	}
	w.logger.Debug("import directory removed", zap.String("path", abs))
	return nil
}

// Directories returns a copy of the current import roots.
func (w *Watcher) Directories() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.roots...)
}

// SyncExistingFiles imports every matching file already present under the
// import roots. Call it after Start.
func (w *Watcher) SyncExistingFiles() {
	for _, root := range w.Directories() {
		w.importExisting(root)
	}
}

// Stop stops the watcher. Files still settling are not imported.
func (w *Watcher) Stop() {
	w.mu.Lock()
	fsw := w.fsw
	w.fsw = nil
	w.mu.Unlock()
	if fsw == nil {
		return
	}
	w.queue.clear()
	_ = fsw.Close()
	w.halt.Do(func() { close(w.done) })
}
