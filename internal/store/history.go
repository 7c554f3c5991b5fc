package store

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmylchreest/themed/internal/model"
)

// HistorySchemaVersion is the current history log schema version.
const HistorySchemaVersion = 1

// ErrHistoryClosed is returned when operations are attempted on a closed history.
var ErrHistoryClosed = errors.New("history is closed")

// historyHeader is the first line of the JSONL file.
type historyHeader struct {
	ThemedSchemaVersion int   `json:"themed_schema_version"`
	CreatedAt           int64 `json:"created_at"`
}

// History is an append-only JSONL log of applied transitions.
type History struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	closed bool
}

// OpenHistory opens the history log at path, creating it if needed.
//
// Several processes may hold the same log open. Appends and rewrites take
// a lock file next to the log, and each handle reopens the log when a
// rewrite by another handle has replaced it.
func OpenHistory(path string) (*History, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	lock, err := acquireLock(lockPathFor(path))
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	file, err := openLogFile(path)
	if err != nil {
		return nil, err
	}
	return &History{path: path, file: file}, nil
}

// openLogFile opens path for appending and writes the header if the file
// is empty. Callers hold the lock.
func openLogFile(path string) (*os.File, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.Size() == 0 {
		if err := writeHeader(file); err != nil {
			file.Close()
			return nil, err
		}
	}
	return file, nil
}

// Path returns the log path.
func (h *History) Path() string {
	return h.path
}

func writeHeader(w io.Writer) error {
	data, err := json.Marshal(historyHeader{
		ThemedSchemaVersion: HistorySchemaVersion,
		CreatedAt:           time.Now().Unix(),
	})
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

// reopenIfReplacedLocked switches to the file now at h.path when another
// handle has rewritten or removed the log.
func (h *History) reopenIfReplacedLocked() error {
	onDisk, err := os.Stat(h.path)
	switch {
	case err == nil:
		current, err := h.file.Stat()
		if err == nil && os.SameFile(current, onDisk) {
			return nil
		}
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("stat %s: %w", h.path, err)
	}

	file, err := openLogFile(h.path)
	if err != nil {
		return err
	}
	h.file.Close()
	h.file = file
	return nil
}

// withLock runs fn holding the cross-process lock on a current handle.
func (h *History) withLock(fn func() error) (err error) {
	lock, err := acquireLock(lockPathFor(h.path))
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, lock.Release())
	}()

	if err := h.reopenIfReplacedLocked(); err != nil {
		return err
	}
	return fn()
}

// Append adds a transition to the log.
func (h *History) Append(t model.Transition) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed || h.file == nil {
		return ErrHistoryClosed
	}

	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return h.withLock(func() error {
		if _, err := h.file.Write(append(data, '\n')); err != nil {
			return err
		}
		return h.file.Sync()
	})
}

// Load reads all transitions, oldest first. Malformed lines are skipped.
func (h *History) Load() ([]model.Transition, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed || h.file == nil {
		return nil, ErrHistoryClosed
	}
	// Rewrites replace the file by rename, so no lock is needed to read.
	if err := h.reopenIfReplacedLocked(); err != nil {
		return nil, err
	}
	return h.loadLocked()
}

func (h *History) loadLocked() ([]model.Transition, error) {
	if _, err := h.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek %s: %w", h.path, err)
	}

	var transitions []model.Transition
	scanner := bufio.NewScanner(h.file)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		if lineNum == 1 {
			var header historyHeader
			if err := json.Unmarshal(line, &header); err == nil && header.ThemedSchemaVersion > 0 {
				if header.ThemedSchemaVersion > HistorySchemaVersion {
					return nil, fmt.Errorf("unsupported schema version %d (max: %d)",
						header.ThemedSchemaVersion, HistorySchemaVersion)
				}
				continue
			}
		}

		var t model.Transition
		if err := json.Unmarshal(line, &t); err != nil {
			continue
		}
		if t.ID != "" {
			transitions = append(transitions, t)
		}
	}

	if err := scanner.Err(); err != nil {
		return transitions, fmt.Errorf("error reading file: %w", err)
	}

	if _, err := h.file.Seek(0, io.SeekEnd); err != nil {
		return transitions, err
	}

	return transitions, nil
}

// Prune keeps only the newest keep transitions. keep <= 0 keeps everything.
// Returns the number of transitions removed.
func (h *History) Prune(keep int) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed || h.file == nil {
		return 0, ErrHistoryClosed
	}
	if keep <= 0 {
		return 0, nil
	}

	removed := 0
	err := h.withLock(func() error {
		transitions, err := h.loadLocked()
		if err != nil {
			return err
		}
		if len(transitions) <= keep {
			return nil
		}
		removed = len(transitions) - keep
		return h.rewriteLocked(transitions[removed:])
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// PruneBefore removes transitions recorded before cutoff.
// Returns the number of transitions removed.
func (h *History) PruneBefore(cutoff time.Time) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed || h.file == nil {
		return 0, ErrHistoryClosed
	}

	removed := 0
	err := h.withLock(func() error {
		transitions, err := h.loadLocked()
		if err != nil {
			return err
		}

		kept := make([]model.Transition, 0, len(transitions))
		for _, t := range transitions {
			if !t.Time().Before(cutoff) {
				kept = append(kept, t)
			}
		}
		removed = len(transitions) - len(kept)
		if removed == 0 {
			return nil
		}
		return h.rewriteLocked(kept)
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// rewriteLocked replaces the log with ts by renaming a synced temp file
// over it, then switches this handle to the new file. Other handles notice
// the replacement on their next operation. Callers hold the lock.
func (h *History) rewriteLocked(ts []model.Transition) error {
	var buf bytes.Buffer
	if err := writeHeader(&buf); err != nil {
		return err
	}
	for _, t := range ts {
		data, err := json.Marshal(t)
		if err != nil {
			return err
		}
		buf.Write(append(data, '\n'))
	}

	if err := writeFileAtomic(h.path, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to rewrite %s: %w", h.path, err)
	}
	return h.reopenIfReplacedLocked()
}

// Close releases the file handle.
func (h *History) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true

	if h.file != nil {
		err := h.file.Close()
		h.file = nil
		return err
	}
	return nil
}
