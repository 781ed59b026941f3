package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/YoungY620/mrequires/core/logging"
)

// Config contains watcher configuration.
type Config struct {
	Root string
	// Extra lists further directories to watch, such as namespace bases
	// outside Root. Ignore globs apply relative to the directory a file is in.
	Extra       []string
	IgnoreGlobs []string
	// Extensions limits which files count as changes; empty accepts all.
	Extensions []string
	// Debounce is restarted by every change; MaxWait bounds the total delay
	// after the first pending change.
	Debounce time.Duration
	MaxWait  time.Duration
	Logger   logging.Printer
}

// Watcher collects changed files under Root and hands them to onChange in
// batches.
type Watcher struct {
	cfg      Config
	fs       *fsnotify.Watcher
	onChange func([]string)
	log      logging.Printer

	roots          []string // Root first, then Extra directories not inside it
	ignoreMatchers []globMatcher
	extFilter      map[string]struct{}

	mu                sync.Mutex
	pending           map[string]struct{}
	debounce, maxWait *time.Timer
	sem               chan struct{} // capacity 1: one onChange at a time
	closed            bool
	closeOnce         sync.Once
}

// New prepares a Watcher and registers every non-ignored directory.
func New(cfg Config, onChange func([]string)) (*Watcher, error) {
	if cfg.Root == "" {
		return nil, errors.New("watcher: root path is required")
	}
	rootAbs, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("watcher: resolve root: %w", err)
	}
	cfg.Root = rootAbs
	if cfg.Debounce <= 0 {
		cfg.Debounce = 300 * time.Millisecond
	}
	if cfg.MaxWait < cfg.Debounce {
		cfg.MaxWait = cfg.Debounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watcher: create fsnotify: %w", err)
	}

	w := &Watcher{
		cfg:      cfg,
		fs:       fsw,
		onChange: onChange,
		log:      cfg.Logger,
		pending:  make(map[string]struct{}),
		sem:      make(chan struct{}, 1),
	}
	if w.log == nil {
		w.log = logging.NewNop()
	}
	for _, glob := range cfg.IgnoreGlobs {
		if strings.TrimSpace(glob) == "" {
			continue
		}
		w.ignoreMatchers = append(w.ignoreMatchers, newGlobMatcher(glob))
	}
	if len(cfg.Extensions) > 0 {
		w.extFilter = make(map[string]struct{}, len(cfg.Extensions))
		for _, ext := range cfg.Extensions {
			if ext == "" {
				continue
			}
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			w.extFilter[strings.ToLower(ext)] = struct{}{}
		}
	}

	w.roots = []string{cfg.Root}
	if err := w.walkAndWatch(cfg.Root); err != nil {
		fsw.Close()
		return nil, err
	}
	for _, dir := range cfg.Extra {
		abs, err := filepath.Abs(dir)
		if err != nil {
			w.log.Warnf("Cannot watch %s: %v", dir, err)
			continue
		}
		if _, ok := w.rootOf(abs); ok {
			continue // already covered
		}
		w.roots = append(w.roots, abs)
		if err := w.walkAndWatch(abs); err != nil {
			w.roots = w.roots[:len(w.roots)-1]
			w.log.Warnf("Cannot watch %s: %v", abs, err)
		}
	}
	return w, nil
}

// Roots returns the absolute watched directories, Root first.
func (w *Watcher) Roots() []string {
	return append([]string(nil), w.roots...)
}

// Root returns the absolute watched directory.
func (w *Watcher) Root() string {
	return w.cfg.Root
}

func (w *Watcher) walkAndWatch(root string) error {
	return filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			return nil // skip inaccessible entries
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && w.shouldIgnore(p) {
			return filepath.SkipDir
		}
		if watchErr := w.fs.Add(p); watchErr != nil {
			w.log.Warnf("Cannot watch %s: %v", p, watchErr)
		}
		return nil
	})
}

// ScanAll marks every matching file as pending and returns how many were added.
func (w *Watcher) ScanAll() int {
	count := 0
	for _, root := range w.roots {
		_ = filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				if p != root && w.shouldIgnore(p) {
					return filepath.SkipDir
				}
				return nil
			}
			if w.shouldIgnore(p) || !w.hasExtension(p) {
				return nil
			}
			w.add(p)
			count++
			return nil
		})
	}
	w.log.Debugf("ScanAll: added %d files to pending", count)
	return count
}

// Run forwards filesystem events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.process(e)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			if err != nil {
				w.log.Errorf("Watcher error: %v", err)
			}
		}
	}
}

func (w *Watcher) process(e fsnotify.Event) {
	if e.Name == "" || w.shouldIgnore(e.Name) {
		return
	}
	w.log.Debugf("Event: %s %s", e.Op, e.Name)

	if e.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(e.Name); err == nil && info.IsDir() {
			w.log.Debugf("Watching new directory: %s", e.Name)
			_ = w.walkAndWatch(e.Name)
			return
		}
	}
	if !w.hasExtension(e.Name) {
		return
	}
	if e.Op.Has(fsnotify.Write) || e.Op.Has(fsnotify.Create) || e.Op.Has(fsnotify.Remove) || e.Op.Has(fsnotify.Rename) {
		w.add(e.Name)
	}
}

func (w *Watcher) add(file string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	first := len(w.pending) == 0
	w.pending[file] = struct{}{}

	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(w.cfg.Debounce, w.Flush)

	if first {
		w.maxWait = time.AfterFunc(w.cfg.MaxWait, w.Flush)
	}
}

// Flush hands every pending file to onChange. When a previous flush is
// still running it returns at once and the files stay pending; the running
// flush schedules another one for them when it finishes.
func (w *Watcher) Flush() {
	select {
	case w.sem <- struct{}{}:
	default:
		w.log.Debugf("Build in progress, skipping flush (files remain in pending)")
		return
	}
	defer w.release()

	w.mu.Lock()
	if w.debounce != nil {
		w.debounce.Stop()
		w.debounce = nil
	}
	if w.maxWait != nil {
		w.maxWait.Stop()
		w.maxWait = nil
	}
	files := make([]string, 0, len(w.pending))
	for f := range w.pending {
		files = append(files, f)
	}
	w.pending = make(map[string]struct{})
	w.mu.Unlock()

	sort.Strings(files)
	if len(files) > 0 && w.onChange != nil {
		w.onChange(files)
	}
}

// release frees the flush slot and re-arms the debounce timer for files
// that arrived while onChange was running.
func (w *Watcher) release() {
	<-w.sem

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || len(w.pending) == 0 {
		return
	}
	w.log.Debugf("%d files changed during build, scheduling another flush", len(w.pending))
	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(w.cfg.Debounce, w.Flush)
}

// Close stops pending timers and releases the fsnotify handle.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		w.mu.Lock()
		w.closed = true
		if w.debounce != nil {
			w.debounce.Stop()
		}
		if w.maxWait != nil {
			w.maxWait.Stop()
		}
		w.mu.Unlock()
		err = w.fs.Close()
	})
	return err
}

// rootOf returns p relative to the first watched directory containing it.
func (w *Watcher) rootOf(p string) (string, bool) {
	for _, root := range w.roots {
		rel, err := filepath.Rel(root, p)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		return rel, true
	}
	return "", false
}

func (w *Watcher) shouldIgnore(p string) bool {
	rel, ok := w.rootOf(p)
	if !ok {
		return true
	}
	rel = filepath.ToSlash(rel)
	for _, m := range w.ignoreMatchers {
		if m.Match(rel) {
			return true
		}
	}
	return false
}

func (w *Watcher) hasExtension(p string) bool {
	if w.extFilter == nil {
		return true
	}
	_, ok := w.extFilter[strings.ToLower(filepath.Ext(p))]
	return ok
}

// globMatcher provides minimal glob support (`*`, `**` and shell patterns
// within a segment). A single-segment pattern such as `node_modules` or
// `*.log` matches any segment of the path; longer patterns match a leading
// run of segments.
type globMatcher struct {
	raw      string
	segments []string
}

func newGlobMatcher(raw string) globMatcher {
	raw = strings.Trim(filepath.ToSlash(strings.TrimSpace(raw)), "/")
	return globMatcher{
		raw:      raw,
		segments: splitGlob(raw),
	}
}

func splitGlob(glob string) []string {
	if glob == "" {
		return nil
	}
	return strings.Split(glob, "/")
}

func (m globMatcher) Match(p string) bool {
	if m.raw == "" {
		return false
	}
	pathSegs := strings.Split(filepath.ToSlash(p), "/")
	if len(m.segments) == 1 && m.segments[0] != "**" {
		for _, seg := range pathSegs {
			if matchSegment(m.segments[0], seg) {
				return true
			}
		}
		return false
	}
	for i := 1; i <= len(pathSegs); i++ {
		if matchSegments(pathSegs[:i], m.segments) {
			return true
		}
	}
	return false
}

func matchSegments(pathSegs, pattern []string) bool {
	if len(pattern) == 0 {
		return len(pathSegs) == 0
	}
	head := pattern[0]
	switch head {
	case "**":
		if len(pattern) == 1 {
			return true
		}
		for i := 0; i <= len(pathSegs); i++ {
			if matchSegments(pathSegs[i:], pattern[1:]) {
				return true
			}
		}
		return false
	default:
		if len(pathSegs) == 0 {
			return false
		}
		if !matchSegment(head, pathSegs[0]) {
			return false
		}
		return matchSegments(pathSegs[1:], pattern[1:])
	}
}

func matchSegment(pattern, seg string) bool {
	ok, err := path.Match(pattern, seg)
	if err != nil {
		return pattern == seg
	}
	return ok
}
