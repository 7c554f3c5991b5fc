package store

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces the event burst of an atomic temp-file rename.
const DefaultDebounce = 100 * time.Millisecond

// FileWatcher watches a file for changes made by other processes.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	filePath string
	debounce time.Duration
	onChange func()
	logger   *slog.Logger

	done    chan struct{}
	mu      sync.Mutex
	timer   *time.Timer
	running bool
}

// NewFileWatcher creates a watcher that calls onChange when filePath changes.
func NewFileWatcher(filePath string, onChange func(), logger *slog.Logger) (*FileWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &FileWatcher{
		watcher:  watcher,
		filePath: filePath,
		debounce: DefaultDebounce,
		onChange: onChange,
		logger:   logger,
		done:     make(chan struct{}),
	}, nil
}

// SetDebounce sets the quiet period before onChange fires.
func (fw *FileWatcher) SetDebounce(d time.Duration) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	fw.debounce = d
}

// Start begins watching the file for changes.
func (fw *FileWatcher) Start() error {
	fw.mu.Lock()
	if fw.running {
		fw.mu.Unlock()
		return nil
	}
	fw.running = true
	fw.mu.Unlock()

	// Watch the directory containing the file so atomic renames are seen
	dir := filepath.Dir(fw.filePath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}
	if err := fw.watcher.Add(dir); err != nil {
		return err
	}

	go fw.watch()
	fw.logger.Debug("state watcher started", "path", fw.filePath)
	return nil
}

func (fw *FileWatcher) watch() {
	filename := filepath.Base(fw.filePath)

	for {
		select {
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}

			if filepath.Base(event.Name) != filename {
				continue
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				fw.schedule()
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Warn("file watcher error", "error", err)

		case <-fw.done:
			return
		}
	}
}

// schedule (re)arms the debounce timer.
func (fw *FileWatcher) schedule() {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if !fw.running {
		return
	}
	if fw.timer != nil {
		fw.timer.Stop()
	}
	fw.timer = time.AfterFunc(fw.debounce, func() {
		fw.logger.Debug("state file changed", "file", fw.filePath)
		fw.onChange()
	})
}

// Stop stops the file watcher.
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if !fw.running {
		return nil
	}

	fw.running = false
	if fw.timer != nil {
		fw.timer.Stop()
	}
	close(fw.done)
	return fw.watcher.Close()
}
