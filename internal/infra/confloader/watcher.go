package confloader

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/yndnr/resonance-go/internal/telemetry/logger"
)

// DefaultDebounce coalesces the burst of events editors produce on save.
const DefaultDebounce = 200 * time.Millisecond

// Watcher reports writes to a set of files. Each file's parent directory
// is watched, so replacing a file by rename is seen as a change too.
type Watcher struct {
	fs       *fsnotify.Watcher
	onChange func(path string)
	log      logger.Logger
	debounce time.Duration

	mu      sync.Mutex
	files   map[string]struct{}
	pending map[string]struct{}
	timer   *time.Timer

	stop     chan struct{}
	stopOnce sync.Once
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithWatcherLogger sets the logger.
func WithWatcherLogger(l logger.Logger) WatcherOption {
	return func(w *Watcher) { w.log = logger.OrDefault(l) }
}

// WithDebounce sets the quiet period before onChange runs. Zero reports
// every event.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounce = d }
}

// NewWatcher returns a stopped watcher that calls onChange with the
// absolute path of each changed file.
func NewWatcher(onChange func(path string), opts ...WatcherOption) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fs:       fs,
		onChange: onChange,
		log:      logger.Default(),
		debounce: DefaultDebounce,
		files:    make(map[string]struct{}),
		pending:  make(map[string]struct{}),
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Add starts tracking the given files.
func (w *Watcher) Add(paths ...string) error {
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		if err := w.fs.Add(filepath.Dir(abs)); err != nil {
			return err
		}
		w.mu.Lock()
		w.files[abs] = struct{}{}
		w.mu.Unlock()
		w.log.Debug("watching file", "path", abs)
	}
	return nil
}

// Start consumes events in a new goroutine until Stop.
func (w *Watcher) Start() {
	go w.loop()
}

func (w *Watcher) loop() {
	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				w.schedule(ev.Name)
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Warn("file watcher error", "error", err)
		case <-w.stop:
			return
		}
	}
}

// schedule queues name if it is tracked and (re)arms the debounce timer.
func (w *Watcher) schedule(name string) {
	abs, err := filepath.Abs(name)
	if err != nil {
		return
	}

	w.mu.Lock()
	if _, ok := w.files[abs]; !ok {
		w.mu.Unlock()
		return
	}
	if w.debounce <= 0 {
		w.mu.Unlock()
		w.onChange(abs)
		return
	}
	w.pending[abs] = struct{}{}
	if w.timer == nil {
		w.timer = time.AfterFunc(w.debounce, w.flush)
	} else {
		w.timer.Reset(w.debounce)
	}
	w.mu.Unlock()
}

func (w *Watcher) flush() {
	w.mu.Lock()
	changed := make([]string, 0, len(w.pending))
	for p := range w.pending {
		changed = append(changed, p)
	}
	clear(w.pending)
	w.mu.Unlock()

	select {
	case <-w.stop:
		return
	default:
	}
	for _, p := range changed {
		w.log.Debug("file changed", "path", p)
		w.onChange(p)
	}
}

// Stop closes the watcher. Later calls return nil.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stop)
		err = w.fs.Close()

		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
	})
	return err
}
